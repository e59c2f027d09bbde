package ccsds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimaryHeaderRoundTrip(t *testing.T) {
	h := PrimaryHeader{
		Version:       0,
		Type:          PacketTypeTC,
		SecHeaderFlag: true,
		APID:          1,
		SeqFlags:      0x3,
		SeqCount:      42,
		DataLen:       10,
	}
	buf := EncodePrimaryHeader(h)
	got, err := DecodePrimaryHeader(buf[:])
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestTCFrameRoundTrip(t *testing.T) {
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	scID := uint16(0x100)
	vcID := uint8(1)

	// Build a frame by hand the way an on-wire source would.
	totalLen := TCPrimaryHeaderLen + len(data)
	buf := make([]byte, totalLen)
	buf[0] = byte(scID >> 8 & 0x3)
	buf[1] = byte(scID)
	buf[2] = (vcID & 0x3F) << 2
	lenField := uint16(totalLen - 1)
	buf[2] |= byte(lenField >> 8 & 0x3)
	buf[3] = byte(lenField)
	buf[4] = 7
	copy(buf[TCPrimaryHeaderLen:], data)

	frame, size, err := DecodeTCFrame(buf)
	require.NoError(t, err)
	assert.Equal(t, totalLen, size)
	assert.Equal(t, scID, frame.SpacecraftID)
	assert.Equal(t, vcID, frame.VCID)
	assert.Equal(t, data, frame.Data)
}

func TestTCFrameIncomplete(t *testing.T) {
	_, _, err := DecodeTCFrame([]byte{0, 0, 0})
	require.Error(t, err)
}

func TestUSLPFrameEncodeLengthTracksPayload(t *testing.T) {
	small := NewUSLPFrame(3, []byte{1, 2, 3})
	bufSmall, err := small.Encode()
	require.NoError(t, err)
	assert.Len(t, bufSmall, USLPHeaderLen+3)

	large := NewUSLPFrame(3, make([]byte, 1000))
	bufLarge, err := large.Encode()
	require.NoError(t, err)
	assert.Len(t, bufLarge, USLPHeaderLen+1000)
	assert.NotEqual(t, len(bufSmall), len(bufLarge))

	assert.EqualValues(t, OutboundSpacecraftID, small.SpacecraftID)
}

func TestDecodeUSLPFrameNotImplemented(t *testing.T) {
	_, _, err := DecodeUSLPFrame(nil)
	require.Error(t, err)
}
