package diag

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderWrapsAroundCapacity(t *testing.T) {
	r := NewRecorder()
	for i := 0; i < Capacity+10; i++ {
		r.Record(Event{Kind: EventDecoderReset, DroppedBytes: i})
	}

	snap := r.Snapshot()
	require.Len(t, snap, Capacity)
	assert.Equal(t, 10, snap[0].DroppedBytes)
	assert.Equal(t, Capacity+9, snap[Capacity-1].DroppedBytes)
}

func TestEncodeSnapshotRoundTrips(t *testing.T) {
	r := NewRecorder()
	r.Record(Event{Kind: EventUnknownSpacecraft, SpacecraftID: 0x200})

	out, err := r.EncodeSnapshot()
	require.NoError(t, err)

	var decoded []Event
	require.NoError(t, cbor.Unmarshal(out, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, EventUnknownSpacecraft, decoded[0].Kind)
	assert.EqualValues(t, 0x200, decoded[0].SpacecraftID)
}
