// Package paramsvc implements PUS Service 20, parameter management,
// against the generic paramset.Set contract (spec §4.4): subservice 1
// reports parameter values, subservice 3 sets them. The parameter set
// itself is guarded by a mutex held for the whole report/set loop of one
// TC, so concurrent TCs see a consistent snapshot (spec §5 "Shared
// resources").
package paramsvc

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/raccoon-os/rccn-usr/pkg/paramset"
	"github.com/raccoon-os/rccn-usr/pkg/pus"
)

const (
	subserviceReportParameterValues uint8 = 1
	subserviceSetParameterValues    uint8 = 3
)

// ErrUnknownSubservice is returned by ParseCommand for any subservice this
// service does not implement.
var ErrUnknownSubservice = fmt.Errorf("paramsvc: unknown subservice")

// reportCommand is the parsed form of a subservice-1 TC: the requested
// hashes, plus the TC's own declared count for the §4.4 consistency check.
type reportCommand struct {
	declaredN uint16
	hashes    []uint32
}

// setCommand is the parsed form of a subservice-3 TC.
type setCommand struct {
	hashes []uint32
	raw    []uint64
}

// Service implements pus.Handler for PUS Service 20 against a single
// paramset.Set (which may itself be a paramset.AggregateSet).
type Service struct {
	apid   uint16
	params paramset.Set
	mu     sync.Mutex

	engine *pus.Engine
}

// New constructs a Service 20 handler for apid, operating on params.
func New(apid uint16, params paramset.Set) *Service {
	return &Service{apid: apid, params: params}
}

// Bind attaches the Engine this service is registered under, needed so
// HandleTc can reach the Reporter directly for the subservice-1
// consistency-check's out-of-band start-failure (spec §4.4).
func (s *Service) Bind(engine *pus.Engine) { s.engine = engine }

func (s *Service) APID() uint16     { return s.apid }
func (s *Service) ServiceID() uint8 { return 20 }

// ParseCommand decodes subservice 1 and 3 application data (spec §4.4). It
// deliberately does not reject a subservice-1 declared count that disagrees
// with the number of hashes actually present in appData — that mismatch is
// detected and reported as a start-failure by HandleTc, per the
// consistency check in spec §4.4, not rejected as a parse error. For
// subservice 3 the declared count is not read: the pairs are taken from the
// length of appData, and no count check is made.
func (s *Service) ParseCommand(subservice uint8, appData []byte) (any, error) {
	switch subservice {
	case subserviceReportParameterValues:
		if len(appData) < 2 {
			return nil, fmt.Errorf("paramsvc: report command too short")
		}
		n := binary.BigEndian.Uint16(appData[:2])
		rest := appData[2:]
		count := len(rest) / 4
		hashes := make([]uint32, count)
		for i := 0; i < count; i++ {
			hashes[i] = binary.BigEndian.Uint32(rest[i*4 : i*4+4])
		}
		return reportCommand{declaredN: n, hashes: hashes}, nil

	case subserviceSetParameterValues:
		if len(appData) < 2 {
			return nil, fmt.Errorf("paramsvc: set command too short")
		}
		rest := appData[2:]
		const pairLen = 4 + 8
		count := len(rest) / pairLen
		hashes := make([]uint32, count)
		raw := make([]uint64, count)
		for i := 0; i < count; i++ {
			off := i * pairLen
			hashes[i] = binary.BigEndian.Uint32(rest[off : off+4])
			raw[i] = binary.BigEndian.Uint64(rest[off+4 : off+pairLen])
		}
		return setCommand{hashes: hashes, raw: raw}, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownSubservice, subservice)
	}
}

// HandleTc drives the accept-already-done command through start/complete,
// per spec §4.4.
func (s *Service) HandleTc(token pus.TokenAccepted, cmd any) (pus.CommandExecutionStatus, error) {
	switch c := cmd.(type) {
	case reportCommand:
		return s.handleReport(token, c)
	case setCommand:
		return s.handleSet(token, c)
	default:
		return pus.StatusFailed, fmt.Errorf("paramsvc: unexpected command type %T", cmd)
	}
}

func (s *Service) handleReport(token pus.TokenAccepted, cmd reportCommand) (pus.CommandExecutionStatus, error) {
	if int(cmd.declaredN) != len(cmd.hashes) {
		if err := s.engine.Reporter.StartFailure(token, 0); err != nil {
			return pus.StatusFailed, err
		}
		return pus.StatusFailed, fmt.Errorf("paramsvc: declared count %d does not match %d hashes", cmd.declaredN, len(cmd.hashes))
	}

	return s.engine.HandleWithTm(token, func() (pus.AppTmResult, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		var buf []byte
		var hdr [2]byte
		binary.BigEndian.PutUint16(hdr[:], uint16(len(cmd.hashes)))
		buf = append(buf, hdr[:]...)

		for _, hash := range cmd.hashes {
			var hashBuf [4]byte
			binary.BigEndian.PutUint32(hashBuf[:], hash)
			buf = append(buf, hashBuf[:]...)

			w := &byteWriter{}
			if _, err := s.params.Get(hash, w); err != nil {
				return pus.AppTmResult{}, fmt.Errorf("paramsvc: get 0x%08x: %w", hash, err)
			}
			buf = append(buf, w.buf...)
		}

		return pus.AppTmResult{Subservice: 2, Data: buf}, nil
	})
}

func (s *Service) handleSet(token pus.TokenAccepted, cmd setCommand) (pus.CommandExecutionStatus, error) {
	return s.engine.Handle(token, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()

		for i, hash := range cmd.hashes {
			cur := paramset.NewBitCursor(rawFieldBytes(cmd.raw[i]))
			if !s.params.Set(hash, cur) {
				return false
			}
		}
		return true
	})
}

func rawFieldBytes(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

// byteWriter is a minimal io.Writer accumulator.
type byteWriter struct {
	buf []byte
}

func (w *byteWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}
