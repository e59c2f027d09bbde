package paramset

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNarrowInt(t *testing.T) {
	assert.EqualValues(t, 0xC0FF, NarrowInt(0x000000000000C0FF, 16))
	assert.EqualValues(t, 0xFF, NarrowInt(0x000000000000C0FF, 8))
	assert.EqualValues(t, 0x000000000000C0FF, NarrowInt(0x000000000000C0FF, 64))
}

func TestFloatNarrowingRoundTrip(t *testing.T) {
	raw := F32ToRaw(1.337)
	assert.InDelta(t, 1.337, RawToF32(raw), 1e-6)

	raw64 := F64ToRaw(337.1)
	assert.InDelta(t, 337.1, RawToF64(raw64), 1e-9)
}

// fixedSet is a minimal test double implementing Set over a single u16
// field, used to exercise AggregateSet's first-match-wins resolution.
type fixedSet struct {
	hash  uint32
	value uint16
}

func (f *fixedSet) Get(hash uint32, w io.Writer) (int, error) {
	if hash != f.hash {
		return 0, ErrUnknownParameter
	}
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], f.value)
	n, err := w.Write(buf[:])
	return n * 8, err
}

func (f *fixedSet) Set(hash uint32, cur *BitCursor) bool {
	if hash != f.hash {
		return false
	}
	raw, err := cur.ReadRawField()
	if err != nil {
		return false
	}
	f.value = uint16(NarrowInt(raw, 16))
	return true
}

func TestAggregateSetFirstMatchWins(t *testing.T) {
	a := &fixedSet{hash: 0xAAAAAAAA, value: 1}
	b := &fixedSet{hash: 0xBBBBBBBB, value: 2}
	c := &fixedSet{hash: 0xBBBBBBBB, value: 3}
	agg := NewAggregateSet(a, b, c)

	var buf bytes.Buffer
	n, err := agg.Get(0xBBBBBBBB, &buf)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.EqualValues(t, 2, binary.BigEndian.Uint16(buf.Bytes()))

	_, err = agg.Get(0xCCCCCCCC, &bytes.Buffer{})
	require.ErrorIs(t, err, ErrUnknownParameter)
}
