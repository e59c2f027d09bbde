// Package frameproc implements the bidirectional frame processor of spec
// §4.2: ProcessIncomingFrames decodes TC Transfer Frames off a single
// ingress byte channel and fans their payloads out to per-VC channels;
// ProcessFramesOut fans per-VC egress payloads back in, wrapping each in a
// USLP Transfer Frame for a single egress byte channel.
package frameproc

import (
	"context"
	"fmt"
	"log"

	"github.com/raccoon-os/rccn-usr/pkg/bytechan"
	"github.com/raccoon-os/rccn-usr/pkg/ccsds"
	"github.com/raccoon-os/rccn-usr/pkg/diag"
)

// AccumulatorSize is the fixed inbound accumulation buffer size (spec
// §4.2).
const AccumulatorSize = 8096

// ErrRXChannelClosed is returned by ProcessIncomingFrames when the ingress
// channel closes (spec §4.2's terminal condition).
var ErrRXChannelClosed = fmt.Errorf("frameproc: rx channel closed")

// Processor runs the inbound and outbound frame pipelines against a
// transport-layer VcId -> byte-channel view. It is deliberately untyped
// over transport.VcId to avoid an import cycle; callers pass
// transport.VcId values directly since that type is a uint8 alias.
type Processor struct {
	SpacecraftID uint16
	Recorder     *diag.Recorder

	accum    [AccumulatorSize]byte
	cursor   int
}

// New constructs a Processor for the given spacecraft id.
func New(spacecraftID uint16, recorder *diag.Recorder) *Processor {
	return &Processor{SpacecraftID: spacecraftID, Recorder: recorder}
}

// feed appends incoming into the accumulator, applying the corrected
// overflow check from spec §9's resolved Open Question: reject (decoder
// reset) when the new data would overflow the accumulator relative to the
// current cursor, i.e. when cursor+len(incoming) > len(accumulator) — not
// the source's arithmetically inverted rcvd_size > buf_pos+buf.len().
func (p *Processor) feed(incoming []byte) {
	if p.cursor+len(incoming) > len(p.accum) {
		log.Printf("[frameproc] accumulator overflow, resetting (cursor=%d, incoming=%d)", p.cursor, len(incoming))
		if p.Recorder != nil {
			p.Recorder.Record(diag.Event{Kind: diag.EventDecoderReset, DroppedBytes: p.cursor + len(incoming)})
		}
		p.cursor = 0
		return
	}
	copy(p.accum[p.cursor:], incoming)
	p.cursor += len(incoming)
}

// consume discards the first n bytes of the accumulator by shifting the
// remainder down and moving the cursor back by n.
func (p *Processor) consume(n int) {
	remaining := p.cursor - n
	copy(p.accum[:remaining], p.accum[n:p.cursor])
	p.cursor = remaining
}

// ProcessIncomingFrames implements spec §4.2's inbound pipeline: it reads
// raw byte buffers from rx, decodes TC Transfer Frames out of the running
// accumulator, and delivers each frame's data field to the VC tx channel
// matching its vcId. txByVC is the transport manager's per-VC TX map (the
// first result of VcMaps): each VC's decoded data leaves through that VC's
// tx transport towards the application layer.
func (p *Processor) ProcessIncomingFrames(ctx context.Context, rx *bytechan.Chan, txByVC map[uint8]*bytechan.Chan) error {
	for {
		buf, ok := rx.Recv(ctx)
		if !ok {
			if ctx.Err() != nil {
				return nil
			}
			return ErrRXChannelClosed
		}

		p.feed(buf)

		for {
			frame, size, err := ccsds.DecodeTCFrame(p.accum[:p.cursor])
			if err != nil {
				break // fragmented frame, keep buffering
			}

			if frame.SpacecraftID != p.SpacecraftID {
				log.Printf("[frameproc] unknown spacecraft id 0x%x", frame.SpacecraftID)
				if p.Recorder != nil {
					p.Recorder.Record(diag.Event{Kind: diag.EventUnknownSpacecraft, SpacecraftID: frame.SpacecraftID})
				}
			} else if ch, ok := txByVC[frame.VCID]; ok {
				if err := ch.Send(ctx, frame.Data); err != nil {
					return fmt.Errorf("frameproc: deliver to vc %d: %w", frame.VCID, err)
				}
			} else {
				log.Printf("[frameproc] unknown virtual channel %d", frame.VCID)
				if p.Recorder != nil {
					p.Recorder.Record(diag.Event{Kind: diag.EventUnknownVirtualChan, VCID: frame.VCID})
				}
			}

			p.consume(size)
		}
	}
}

// ProcessFramesOut implements spec §4.2's outbound pipeline: it waits on
// the union of every per-VC egress channel, wraps each arriving payload in
// a USLP Transfer Frame, and forwards the serialised bytes to tx. Every
// outbound frame carries ccsds.OutboundSpacecraftID (spec §4.2's fixed
// 0xAB), not the spacecraft id configured for inbound validation.
func ProcessFramesOut(ctx context.Context, vcChans map[uint8]*bytechan.Chan, tx *bytechan.Chan) error {
	for {
		vcID, data, ok := bytechan.WaitAny(ctx, vcChans)
		if !ok {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("frameproc: all egress channels closed")
		}

		frame := ccsds.NewUSLPFrame(vcID, data)
		encoded, err := frame.Encode()
		if err != nil {
			log.Printf("[frameproc] encoding uslp frame for vc %d: %v", vcID, err)
			continue
		}

		if err := tx.Send(ctx, encoded); err != nil {
			return fmt.Errorf("frameproc: send uslp frame: %w", err)
		}
	}
}
