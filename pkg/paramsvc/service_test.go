package paramsvc

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raccoon-os/rccn-usr/pkg/ccsds"
	"github.com/raccoon-os/rccn-usr/pkg/pus"
)

type recordingSink struct {
	pkts []pus.TMPacket
}

func (s *recordingSink) SendTM(pkt pus.TMPacket) error {
	s.pkts = append(s.pkts, pkt)
	return nil
}

func buildTC(t *testing.T, apid uint16, subservice uint8, appData []byte) []byte {
	t.Helper()
	secondary := ccsds.EncodeTCSecondaryHeader(ccsds.TCSecondaryHeader{
		Version:    0,
		Service:    20,
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

func newFixture() (*ExampleParams, *Service, *pus.Engine, *recordingSink) {
	params := &ExampleParams{A: 0xC0FF, B: 1.337, C: -42}
	svc := New(1, params)
	sink := &recordingSink{}
	reporter := pus.NewReporter(1, sink)
	engine := pus.NewEngine(reporter, svc)
	svc.Bind(engine)
	return params, svc, engine, sink
}

func be32(v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return buf[:]
}

func be16(v uint16) []byte {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return buf[:]
}

func be64(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

// TestReportParameterValuesRoundTrip is spec Scenario A.
func TestReportParameterValuesRoundTrip(t *testing.T) {
	_, _, engine, sink := newFixture()

	appData := append([]byte{}, be16(3)...)
	appData = append(appData, be32(0xABCDEF00)...)
	appData = append(appData, be32(0x00EFCDAB)...)
	appData = append(appData, be32(0xF00BA400)...)

	raw := buildTC(t, 1, 1, appData)
	require.NoError(t, engine.HandleTcBytes(raw))

	require.Len(t, sink.pkts, 4)
	assert.EqualValues(t, 1, sink.pkts[0].Secondary.Subservice)
	assert.EqualValues(t, 3, sink.pkts[1].Secondary.Subservice)
	assert.EqualValues(t, 7, sink.pkts[2].Secondary.Subservice)

	report := sink.pkts[3]
	assert.EqualValues(t, 20, report.Secondary.Service)
	assert.EqualValues(t, 2, report.Secondary.Subservice)

	expected := append([]byte{}, be16(3)...)
	expected = append(expected, be32(0xABCDEF00)...)
	expected = append(expected, be16(0xC0FF)...)
	expected = append(expected, be32(0x00EFCDAB)...)
	expected = append(expected, be32(math.Float32bits(1.337))...)
	expected = append(expected, be32(0xF00BA400)...)
	expected = append(expected, be32(uint32(int32(-42)))...)

	assert.Equal(t, expected, report.SourceData)
}

// TestSetParameterValues is spec Scenario B.
func TestSetParameterValues(t *testing.T) {
	params, _, engine, sink := newFixture()

	appData := append([]byte{}, be16(3)...)
	appData = append(appData, be32(0xABCDEF00)...)
	appData = append(appData, be64(0xBABE)...)
	appData = append(appData, be32(0x00EFCDAB)...)
	appData = append(appData, be64(math.Float64bits(337.1))...)
	appData = append(appData, be32(0xF00BA400)...)
	appData = append(appData, be64(uint64(int64(-99)))...)

	raw := buildTC(t, 1, 3, appData)
	require.NoError(t, engine.HandleTcBytes(raw))

	require.Len(t, sink.pkts, 3)
	assert.EqualValues(t, 1, sink.pkts[0].Secondary.Subservice)
	assert.EqualValues(t, 3, sink.pkts[1].Secondary.Subservice)
	assert.EqualValues(t, 7, sink.pkts[2].Secondary.Subservice)

	assert.EqualValues(t, 0xBABE, params.A)
	assert.InDelta(t, float32(337.1), params.B, 1e-3)
	assert.EqualValues(t, -99, params.C)
}

// TestUnknownSubserviceEmitsAcceptFailure is spec Scenario C.
func TestUnknownSubserviceEmitsAcceptFailure(t *testing.T) {
	_, _, engine, sink := newFixture()

	raw := buildTC(t, 1, 99, nil)
	err := engine.HandleTcBytes(raw)
	require.Error(t, err)
	require.ErrorIs(t, err, pus.ErrCommandParseError)

	require.Len(t, sink.pkts, 1)
	assert.EqualValues(t, 1, sink.pkts[0].Secondary.Service)
	assert.EqualValues(t, 2, sink.pkts[0].Secondary.Subservice)
	assert.Equal(t, byte(pus.AcceptanceErrorCommandParseError), sink.pkts[0].SourceData[len(sink.pkts[0].SourceData)-1])
}

// TestWrongApidEmitsNoTm is spec Scenario D.
func TestWrongApidEmitsNoTm(t *testing.T) {
	_, _, engine, sink := newFixture()

	raw := buildTC(t, 99, 1, be16(0))
	err := engine.HandleTcBytes(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, pus.ErrUnknownApid)
	assert.Empty(t, sink.pkts)
}

func TestReportDeclaredCountMismatchStartFails(t *testing.T) {
	_, _, engine, sink := newFixture()

	// declares 3 hashes but only supplies 1 -> consistency check mismatch.
	appData := append([]byte{}, be16(3)...)
	appData = append(appData, be32(0xABCDEF00)...)

	raw := buildTC(t, 1, 1, appData)
	err := engine.HandleTcBytes(raw)
	require.NoError(t, err) // HandleTcBytes logs handler errors, does not propagate them

	require.Len(t, sink.pkts, 2)
	assert.EqualValues(t, 1, sink.pkts[0].Secondary.Subservice) // accept-success
	assert.EqualValues(t, 4, sink.pkts[1].Secondary.Subservice) // start-failure
	assert.Equal(t, byte(0), sink.pkts[1].SourceData[len(sink.pkts[1].SourceData)-1])
}
