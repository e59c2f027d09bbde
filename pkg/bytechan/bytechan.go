// Package bytechan implements the bounded byte-buffer FIFO used throughout
// rccn-usr to move opaque payloads between transport adapters, the frame
// processor, and the PUS application layer (spec §3 "Byte channel").
package bytechan

import (
	"context"
	"reflect"
)

// Capacity is the fixed buffer depth for every byte channel in the system
// (spec §3). Producers block once a channel holds this many buffers.
const Capacity = 32

// Chan is a many-producer, many-consumer bounded FIFO of byte buffers.
type Chan struct {
	ch chan []byte
}

// New allocates a byte channel at the fixed system capacity.
func New() *Chan {
	return &Chan{ch: make(chan []byte, Capacity)}
}

// Send enqueues buf, blocking while the channel is full or until ctx is
// done.
func (c *Chan) Send(ctx context.Context, buf []byte) error {
	select {
	case c.ch <- buf:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv dequeues the next buffer, blocking until one is available, the
// channel is closed, or ctx is done.
func (c *Chan) Recv(ctx context.Context) ([]byte, bool) {
	select {
	case buf, ok := <-c.ch:
		return buf, ok
	case <-ctx.Done():
		return nil, false
	}
}

// Close closes the underlying channel. Only the producer side should call
// this.
func (c *Chan) Close() { close(c.ch) }

// Raw exposes the underlying channel for use in a select statement or as a
// case in WaitAny.
func (c *Chan) Raw() chan []byte { return c.ch }

// WaitAny blocks on the union of the given byte channels, keyed by virtual
// channel id, and returns the first buffer to arrive along with the VC it
// arrived on. It implements the "fair multi-wait" primitive described in
// spec §4.2 and §4.5: with a fixed, small number of runtime select cases Go
// can express this directly, but the VC set here is configuration-driven
// and variably sized, so reflect.Select is used to build the case list at
// call time. The Go runtime's select already picks pseudo-randomly among
// ready cases, which satisfies the fairness requirement without extra
// bookkeeping.
func WaitAny(ctx context.Context, chans map[uint8]*Chan) (vcID uint8, data []byte, ok bool) {
	ids := make([]uint8, 0, len(chans)+1)
	cases := make([]reflect.SelectCase, 0, len(chans)+1)
	for id, c := range chans {
		ids = append(ids, id)
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(c.ch),
		})
	}
	cases = append(cases, reflect.SelectCase{
		Dir:  reflect.SelectRecv,
		Chan: reflect.ValueOf(ctx.Done()),
	})

	chosen, recv, recvOK := reflect.Select(cases)
	if chosen == len(ids) {
		return 0, nil, false
	}
	if !recvOK {
		return ids[chosen], nil, false
	}
	return ids[chosen], recv.Interface().([]byte), true
}
