package pus

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/raccoon-os/rccn-usr/pkg/ccsds"
	"github.com/raccoon-os/rccn-usr/pkg/timestamp"
)

// tcContext is the slice of a TC packet the verification state machine
// needs to stamp TM[1,n] reports: its originating APID and sequence count.
type tcContext struct {
	apid     uint16
	seqCount uint16
}

// TokenNone, TokenAccepted and TokenStarted encode the verification state
// machine's states as distinct Go types (spec §9 "typestate encoding"):
// each Reporter transition method consumes the token for the state it
// requires and returns the token for the next state (or no token, for a
// terminal transition), making the illegal transitions unrepresentable at
// the type level without needing a runtime enum check.
type TokenNone struct{ tc tcContext }
type TokenAccepted struct{ tc tcContext }
type TokenStarted struct{ tc tcContext }

// TMSink is where the Reporter enqueues every verification (and
// application) TM it builds. In this system that is the egress byte channel
// of the application's default TM VC, which is VC 0 unless cmd/rccn-pus is
// given a different -tm-vc (spec §4.3 "default TM VC").
type TMSink interface {
	SendTM(pkt TMPacket) error
}

// Reporter builds and sends PUS TM packets on behalf of the PUS service
// engine, and owns the shared, mod-2^16 message counter (spec §4.3,
// §5 "Shared resources"). The counter's mutex is held only for the
// duration of stamping a single TM, never across the sink's I/O.
type Reporter struct {
	mu      sync.Mutex
	counter uint16

	apid uint16 // this engine's own APID, stamped as the TM packet's source
	sink TMSink
}

// NewReporter constructs a reporter for a PUS application identified by
// apid, sending every TM through sink.
func NewReporter(apid uint16, sink TMSink) *Reporter {
	return &Reporter{apid: apid, sink: sink}
}

// Register creates a Token<None> for a freshly-parsed TC, per spec §4.3
// "Register the TC with the verification reporter".
func (r *Reporter) Register(tc TCPacket) TokenNone {
	return TokenNone{tc: tcContext{apid: tc.Primary.APID, seqCount: tc.Primary.SeqCount}}
}

func verificationAppData(tc tcContext, extra ...byte) []byte {
	out := make([]byte, 0, 4+len(extra))
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], tc.apid)
	out = append(out, buf[:]...)
	binary.BigEndian.PutUint16(buf[:], tc.seqCount)
	out = append(out, buf[:]...)
	return append(out, extra...)
}

func (r *Reporter) send(service, subservice uint8, appData []byte) error {
	r.mu.Lock()
	count := r.counter
	r.counter++
	r.mu.Unlock()

	pkt := TMPacket{
		Primary: ccsds.PrimaryHeader{APID: r.apid, SeqFlags: 0x3},
		Secondary: ccsds.TMSecondaryHeader{
			Service:      service,
			Subservice:   subservice,
			MessageCount: count,
			Time:         timestamp.Now(),
		},
		SourceData: appData,
	}
	if err := r.sink.SendTM(pkt); err != nil {
		return fmt.Errorf("%w: %v", ErrCantSendDirectTm, err)
	}
	return nil
}

// AcceptSuccess emits TM[1,1] and advances to Token<Accepted>.
func (r *Reporter) AcceptSuccess(t TokenNone) (TokenAccepted, error) {
	if err := r.send(1, 1, verificationAppData(t.tc)); err != nil {
		return TokenAccepted{}, err
	}
	return TokenAccepted{tc: t.tc}, nil
}

// AcceptFailure emits TM[1,2] with the given error code. This is a
// terminal transition: no further TM may be emitted for this TC.
func (r *Reporter) AcceptFailure(t TokenNone, code AcceptanceError) error {
	return r.send(1, 2, verificationAppData(t.tc, byte(code)))
}

// StartSuccess emits TM[1,3] and advances to Token<Started>.
func (r *Reporter) StartSuccess(t TokenAccepted) (TokenStarted, error) {
	if err := r.send(1, 3, verificationAppData(t.tc)); err != nil {
		return TokenStarted{}, err
	}
	return TokenStarted{tc: t.tc}, nil
}

// StartFailure emits TM[1,4] with the given error code. Terminal.
func (r *Reporter) StartFailure(t TokenAccepted, code uint8) error {
	return r.send(1, 4, verificationAppData(t.tc, code))
}

// CompleteSuccess emits TM[1,7]. Terminal.
func (r *Reporter) CompleteSuccess(t TokenStarted) error {
	return r.send(1, 7, verificationAppData(t.tc))
}

// CompleteFailure emits TM[1,8] with the given error code. Terminal.
func (r *Reporter) CompleteFailure(t TokenStarted, code uint8) error {
	return r.send(1, 8, verificationAppData(t.tc, code))
}

// SendAppTm emits an application TM on behalf of a service that has
// already completed its verification sequence (spec §4.3 handleWithTm).
func (r *Reporter) SendAppTm(service, subservice uint8, appData []byte) error {
	return r.send(service, subservice, appData)
}
