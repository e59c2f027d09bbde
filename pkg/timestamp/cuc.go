// Package timestamp produces the CCSDS Unsegmented time Code (CUC) field
// stamped into every PUS TM secondary header (spec §3, §6).
package timestamp

import "time"

// PField is the fixed P-field byte for the 7-byte CUC time field used by
// this system: the P-field itself, a 4-byte coarse time, and a 2-byte
// fine time. Two fine bytes give a resolution of 1/65536 s (about 15.3µs);
// the field does not carry 60ns resolution.
const PField = 0x2E

// CUCLen is the wire length of the time field, P-field included.
const CUCLen = 7

// Now produces the 7-byte CUC timestamp for the current instant.
//
// Per spec §1 Non-goals there is no leap-second source in this system, so
// the coarse seconds field is seconds since the Unix epoch with no
// leap-second correction applied; this is a deliberate scope cut, not a
// defect.
func Now() [CUCLen]byte {
	return At(time.Now().UTC())
}

// At produces the CUC timestamp for a specific instant, for deterministic
// testing.
func At(t time.Time) [CUCLen]byte {
	var out [CUCLen]byte
	out[0] = PField

	sec := t.Unix()
	if sec < 0 {
		sec = 0
	}
	out[1] = byte(sec >> 24)
	out[2] = byte(sec >> 16)
	out[3] = byte(sec >> 8)
	out[4] = byte(sec)

	// 2-byte fine time: fractional second scaled to a 24-bit counter
	// (2^24 ticks per second ~= 59.6ns/tick), low byte dropped to fit the
	// 2-byte field, so the emitted resolution is 2^-16 s.
	frac := uint32(uint64(t.Nanosecond()) << 24 / 1_000_000_000)
	out[5] = byte(frac >> 16)
	out[6] = byte(frac >> 8)
	return out
}
