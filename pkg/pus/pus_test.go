package pus

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raccoon-os/rccn-usr/pkg/ccsds"
)

func buildTCBytes(t *testing.T, apid uint16, service, subservice uint8, appData []byte) []byte {
	t.Helper()
	secondary := ccsds.EncodeTCSecondaryHeader(ccsds.TCSecondaryHeader{
		Version:    0,
		Service:    service,
		Subservice: subservice,
	})
	body := append(append([]byte(nil), secondary[:]...), appData...)

	primary := ccsds.PrimaryHeader{
		Type:          ccsds.PacketTypeTC,
		SecHeaderFlag: true,
		APID:          apid,
		SeqFlags:      0x3,
		SeqCount:      1,
		DataLen:       uint16(len(body) + 2 - 1),
	}
	primaryBuf := ccsds.EncodePrimaryHeader(primary)

	out := append(append([]byte(nil), primaryBuf[:]...), body...)
	crc := ccsds.CRC16CCITT(out)
	return append(out, byte(crc>>8), byte(crc))
}

type recordingSink struct {
	pkts []TMPacket
}

func (s *recordingSink) SendTM(pkt TMPacket) error {
	s.pkts = append(s.pkts, pkt)
	return nil
}

type fakeHandler struct {
	apid       uint16
	service    uint8
	parseErr   error
	lastToken  TokenAccepted
	engine     *Engine
}

func (h *fakeHandler) APID() uint16      { return h.apid }
func (h *fakeHandler) ServiceID() uint8  { return h.service }
func (h *fakeHandler) ParseCommand(subservice uint8, appData []byte) (any, error) {
	if h.parseErr != nil {
		return nil, h.parseErr
	}
	return appData, nil
}
func (h *fakeHandler) HandleTc(token TokenAccepted, cmd any) (CommandExecutionStatus, error) {
	h.lastToken = token
	return h.engine.Handle(token, func() bool { return true })
}

func TestHandleTcBytesFullAcceptSequence(t *testing.T) {
	sink := &recordingSink{}
	reporter := NewReporter(1, sink)
	h := &fakeHandler{apid: 1, service: 20}
	engine := NewEngine(reporter, h)
	h.engine = engine

	raw := buildTCBytes(t, 1, 20, 1, []byte{0xAA})
	require.NoError(t, engine.HandleTcBytes(raw))

	require.Len(t, sink.pkts, 3)
	assert.EqualValues(t, 1, sink.pkts[0].Secondary.Subservice) // accept-success
	assert.EqualValues(t, 3, sink.pkts[1].Secondary.Subservice) // start-success
	assert.EqualValues(t, 7, sink.pkts[2].Secondary.Subservice) // completion-success

	for i, p := range sink.pkts {
		assert.EqualValues(t, i, p.Secondary.MessageCount)
	}
}

func TestHandleTcBytesUnknownApidEmitsNoTm(t *testing.T) {
	sink := &recordingSink{}
	reporter := NewReporter(1, sink)
	h := &fakeHandler{apid: 1, service: 20}
	engine := NewEngine(reporter, h)
	h.engine = engine

	raw := buildTCBytes(t, 99, 20, 1, nil)
	err := engine.HandleTcBytes(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownApid)
	assert.Empty(t, sink.pkts)
}

func TestHandleTcBytesParseErrorEmitsAcceptFailure(t *testing.T) {
	sink := &recordingSink{}
	reporter := NewReporter(1, sink)
	h := &fakeHandler{apid: 1, service: 20, parseErr: fmt.Errorf("bad subservice")}
	engine := NewEngine(reporter, h)
	h.engine = engine

	raw := buildTCBytes(t, 1, 20, 99, nil)
	err := engine.HandleTcBytes(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandParseError)

	require.Len(t, sink.pkts, 1)
	assert.EqualValues(t, 2, sink.pkts[0].Secondary.Subservice)
	assert.Equal(t, byte(AcceptanceErrorCommandParseError), sink.pkts[0].SourceData[len(sink.pkts[0].SourceData)-1])
}

func TestMessageCounterWrapsAndIsMonotonic(t *testing.T) {
	sink := &recordingSink{}
	reporter := &Reporter{apid: 1, sink: sink, counter: 0xFFFE}

	tok := reporter.Register(TCPacket{Primary: ccsds.PrimaryHeader{APID: 1, SeqCount: 1}})
	_, err := reporter.AcceptSuccess(tok)
	require.NoError(t, err)
	tok2 := reporter.Register(TCPacket{Primary: ccsds.PrimaryHeader{APID: 1, SeqCount: 2}})
	_, err = reporter.AcceptSuccess(tok2)
	require.NoError(t, err)
	tok3 := reporter.Register(TCPacket{Primary: ccsds.PrimaryHeader{APID: 1, SeqCount: 3}})
	_, err = reporter.AcceptSuccess(tok3)
	require.NoError(t, err)

	require.Len(t, sink.pkts, 3)
	assert.EqualValues(t, 0xFFFE, sink.pkts[0].Secondary.MessageCount)
	assert.EqualValues(t, 0xFFFF, sink.pkts[1].Secondary.MessageCount)
	assert.EqualValues(t, 0x0000, sink.pkts[2].Secondary.MessageCount)
}
