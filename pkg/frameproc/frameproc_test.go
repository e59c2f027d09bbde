package frameproc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raccoon-os/rccn-usr/pkg/bytechan"
	"github.com/raccoon-os/rccn-usr/pkg/diag"
)

func encodeTCFrame(t *testing.T, spacecraftID uint16, vcID uint8, data []byte) []byte {
	t.Helper()
	totalLen := 5 + len(data)
	buf := make([]byte, totalLen)
	buf[0] = 0 // version 0, no bypass, no control command
	buf[1] = byte(spacecraftID & 0xFF)
	buf[0] |= byte((spacecraftID >> 8) & 0x3)
	buf[2] = (vcID & 0x3F) << 2
	lenField := uint16(totalLen - 1)
	buf[2] |= byte((lenField >> 8) & 0x3)
	buf[3] = byte(lenField & 0xFF)
	buf[4] = 0
	copy(buf[5:], data)
	return buf
}

// TestProcessIncomingFramesDispatchesByVC is spec Scenario E.
func TestProcessIncomingFramesDispatchesByVC(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rx := bytechan.New()
	vc0 := bytechan.New()
	vc1 := bytechan.New()
	recorder := diag.NewRecorder()
	proc := New(0x100, recorder)

	data := []byte("hello vc1")
	frame := encodeTCFrame(t, 0x100, 1, data)

	wrongFrame := encodeTCFrame(t, 0x200, 1, []byte("dropped"))
	require.NoError(t, rx.Send(ctx, frame))
	require.NoError(t, rx.Send(ctx, wrongFrame))
	rx.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- proc.ProcessIncomingFrames(ctx, rx, map[uint8]*bytechan.Chan{0: vc0, 1: vc1})
	}()

	got, ok := vc1.Recv(ctx)
	require.True(t, ok)
	assert.Equal(t, data, got)

	require.ErrorIs(t, <-errCh, ErrRXChannelClosed)

	select {
	case got := <-vc0.Raw():
		t.Fatalf("unexpected delivery on vc0: %v", got)
	default:
	}
	snap := recorder.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, diag.EventUnknownSpacecraft, snap[0].Kind)
	assert.EqualValues(t, 0x200, snap[0].SpacecraftID)
}

// TestAccumulatorOverflowResetsCleanly is spec Scenario F.
func TestAccumulatorOverflowResetsCleanly(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	recorder := diag.NewRecorder()
	proc := New(0x100, recorder)

	garbage := make([]byte, 10000)
	for i := range garbage {
		garbage[i] = 0xFF
	}

	assert.NotPanics(t, func() {
		proc.feed(garbage)
	})
	assert.Equal(t, 0, proc.cursor)

	snap := recorder.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, diag.EventDecoderReset, snap[0].Kind)

	data := []byte("still works")
	frame := encodeTCFrame(t, 0x100, 2, data)
	rx := bytechan.New()
	vc2 := bytechan.New()
	require.NoError(t, rx.Send(ctx, frame))
	rx.Close()

	err := proc.ProcessIncomingFrames(ctx, rx, map[uint8]*bytechan.Chan{2: vc2})
	require.ErrorIs(t, err, ErrRXChannelClosed)

	got, ok := vc2.Recv(ctx)
	require.True(t, ok)
	assert.Equal(t, data, got)
}
