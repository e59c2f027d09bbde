// Package paramset implements the generic hash-keyed parameter set
// contract PUS Service 20 reads and writes (spec §4.4): Get/Set against a
// 32-bit hash, and the first-match-wins aggregate of sub-sets.
package paramset

import (
	"encoding/binary"
	"fmt"
)

// BitCursor is a sequential big-endian reader over a byte slice. Despite
// the name (kept from spec §4.4's "bit-cursor" wording) every field this
// system reads is byte-aligned; ReadRawField always consumes exactly 8
// bytes, matching SetParameterValues's "raw 64-bit big-endian field"
// rule.
type BitCursor struct {
	buf []byte
	pos int
}

// NewBitCursor wraps buf for sequential reads starting at offset 0.
func NewBitCursor(buf []byte) *BitCursor {
	return &BitCursor{buf: buf}
}

// ErrShortRead is returned when a read would run past the end of the
// underlying buffer.
var ErrShortRead = fmt.Errorf("paramset: short read")

// ReadU32 consumes a 4-byte big-endian hash key.
func (c *BitCursor) ReadU32() (uint32, error) {
	if c.pos+4 > len(c.buf) {
		return 0, ErrShortRead
	}
	v := binary.BigEndian.Uint32(c.buf[c.pos : c.pos+4])
	c.pos += 4
	return v, nil
}

// ReadRawField consumes the raw 8-byte big-endian value field used by
// SetParameterValues (spec §4.4): "read a raw 64-bit big-endian field from
// the bit-cursor, then narrow according to the parameter's declared
// width".
func (c *BitCursor) ReadRawField() (uint64, error) {
	if c.pos+8 > len(c.buf) {
		return 0, ErrShortRead
	}
	v := binary.BigEndian.Uint64(c.buf[c.pos : c.pos+8])
	c.pos += 8
	return v, nil
}

// Remaining reports how many bytes are left to read.
func (c *BitCursor) Remaining() int { return len(c.buf) - c.pos }
