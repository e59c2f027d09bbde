package pusapp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raccoon-os/rccn-usr/pkg/bytechan"
	"github.com/raccoon-os/rccn-usr/pkg/ccsds"
	"github.com/raccoon-os/rccn-usr/pkg/config"
	"github.com/raccoon-os/rccn-usr/pkg/pus"
	"github.com/raccoon-os/rccn-usr/pkg/transport"
)

type loopbackHandler struct {
	apid    uint16
	service uint8
	calls   int
}

func (h *loopbackHandler) APID() uint16     { return h.apid }
func (h *loopbackHandler) ServiceID() uint8 { return h.service }
func (h *loopbackHandler) ParseCommand(subservice uint8, appData []byte) (any, error) {
	return appData, nil
}
func (h *loopbackHandler) HandleTc(token pus.TokenAccepted, cmd any) (pus.CommandExecutionStatus, error) {
	h.calls++
	return pus.StatusStarted, nil
}

func buildTC(t *testing.T, apid uint16, service, subservice uint8) []byte {
	t.Helper()
	secondary := ccsds.EncodeTCSecondaryHeader(ccsds.TCSecondaryHeader{Service: service, Subservice: subservice})
	body := append([]byte{}, secondary[:]...)
	primary := ccsds.PrimaryHeader{
		Type:          ccsds.PacketTypeTC,
		SecHeaderFlag: true,
		APID:          apid,
		SeqFlags:      0x3,
		SeqCount:      1,
		DataLen:       uint16(len(body) + 2 - 1),
	}
	primaryBuf := ccsds.EncodePrimaryHeader(primary)
	out := append(append([]byte{}, primaryBuf[:]...), body...)
	crc := ccsds.CRC16CCITT(out)
	return append(out, byte(crc>>8), byte(crc))
}

func TestDispatchRoutesToRegisteredService(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	mgr := transport.NewManager()
	app := New(mgr, 0)

	// Register needs a bound tx channel for the default TM VC; a discard
	// writer satisfies that without a real socket.
	mgr.RegisterWriterAdapter(config.TransportUDP, discardAdapter{})
	require.NoError(t, mgr.AddVirtualChannel(transport.VirtualChannel{
		ID:          0,
		Name:        "tmtc",
		TxTransport: &config.Transport{Kind: config.TransportUDP, Send: "127.0.0.1:0"},
	}))

	h := &loopbackHandler{apid: 1, service: 20}
	require.NoError(t, app.Register(ctx, h))

	raw := buildTC(t, 1, 20, 1)
	app.dispatch(raw)
	assert.Equal(t, 1, h.calls)

	other := buildTC(t, 2, 20, 1)
	app.dispatch(other)
	assert.Equal(t, 1, h.calls)
}

// discardAdapter is a writer adapter stub that accepts a VC binding and
// immediately drains whatever is sent to it, for tests that only need
// Application.Register's tx-channel lookup to succeed.
type discardAdapter struct{}

func (discardAdapter) AddWriter(b config.Transport, recv *bytechan.Chan) (transport.Driver, error) {
	return func(ctx context.Context) error {
		for {
			if _, ok := recv.Recv(ctx); !ok {
				return nil
			}
		}
	}, nil
}
