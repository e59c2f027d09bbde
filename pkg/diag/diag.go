// Package diag records the non-fatal decoder diagnostics the frame
// processor produces (spec §4.2: decoder reset, UnknownSpacecraft,
// UnknownVirtualChannel) in a bounded ring buffer, CBOR-encoded on demand
// for snapshot export. No diagnostics/telemetry-export library appears in
// the retrieved corpus for this kind of ad hoc structured event; CBOR via
// fxamacker/cbor/v2 is adopted from gravwell-gravwell's own use of the
// library for compact event encoding (see DESIGN.md).
package diag

import (
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// EventKind tags the three decoder-level events spec §4.2 calls out.
type EventKind string

const (
	EventDecoderReset        EventKind = "decoder_reset"
	EventUnknownSpacecraft   EventKind = "unknown_spacecraft"
	EventUnknownVirtualChan  EventKind = "unknown_virtual_channel"
)

// Event is one recorded diagnostic.
type Event struct {
	Kind         EventKind `cbor:"kind"`
	SpacecraftID uint16    `cbor:"spacecraft_id,omitempty"`
	VCID         uint8     `cbor:"vc_id,omitempty"`
	DroppedBytes int       `cbor:"dropped_bytes,omitempty"`
}

// Capacity is the fixed ring buffer depth.
const Capacity = 256

// Recorder is a bounded, mutex-guarded ring buffer of Events.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
}

// NewRecorder allocates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{events: make([]Event, Capacity)}
}

// Record appends e, overwriting the oldest entry once the buffer is full.
func (r *Recorder) Record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.next] = e
	r.next = (r.next + 1) % Capacity
	if r.next == 0 {
		r.full = true
	}
}

// Snapshot returns every recorded event in chronological order.
func (r *Recorder) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]Event, r.next)
		copy(out, r.events[:r.next])
		return out
	}
	out := make([]Event, Capacity)
	copy(out, r.events[r.next:])
	copy(out[Capacity-r.next:], r.events[:r.next])
	return out
}

// EncodeSnapshot CBOR-encodes the current snapshot for export.
func (r *Recorder) EncodeSnapshot() ([]byte, error) {
	return cbor.Marshal(r.Snapshot())
}
