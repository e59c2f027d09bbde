package paramset

import (
	"fmt"
	"io"
	"math"
)

// Set is the contract a declarative parameter struct's generated code
// implements (spec §4.4/§4.5): Get serialises one parameter's raw
// big-endian bytes to w and reports how many bits were written; Set reads
// the parameter's value off cur and reports whether the hash was known.
type Set interface {
	Get(hash uint32, w io.Writer) (bitsWritten int, err error)
	Set(hash uint32, cur *BitCursor) bool
}

// ErrUnknownParameter is returned by Get when hash names no field in the
// set.
var ErrUnknownParameter = fmt.Errorf("paramset: unknown parameter")

// AggregateSet resolves lookups across sub-sets in declaration order,
// first match wins, per spec §4.4's aggregate variant and §3's "two-level
// namespace where hashes are expected to be unique across the union".
type AggregateSet struct {
	Members []Set
}

// NewAggregateSet builds an aggregate over the given sub-sets in the order
// they should be tried.
func NewAggregateSet(members ...Set) *AggregateSet {
	return &AggregateSet{Members: members}
}

func (a *AggregateSet) Get(hash uint32, w io.Writer) (int, error) {
	for _, m := range a.Members {
		n, err := m.Get(hash, w)
		if err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: 0x%08x", ErrUnknownParameter, hash)
}

func (a *AggregateSet) Set(hash uint32, cur *BitCursor) bool {
	for _, m := range a.Members {
		if m.Set(hash, cur) {
			return true
		}
	}
	return false
}

// NarrowInt takes the trailing width/8 bytes of a raw 64-bit big-endian
// field, for integer parameters of width bits 8/16/32/64 (spec §4.4).
func NarrowInt(raw uint64, width int) uint64 {
	if width >= 64 {
		return raw
	}
	return raw & ((uint64(1) << uint(width)) - 1)
}

// RawToF32 converts a raw field read as a float64 and cast down to
// float32, per spec §4.4's narrowing rule for f32 parameters.
func RawToF32(raw uint64) float32 {
	return float32(math.Float64frombits(raw))
}

// RawToF64 reinterprets the full raw field as a float64, per spec §4.4's
// narrowing rule for f64 parameters.
func RawToF64(raw uint64) float64 {
	return math.Float64frombits(raw)
}

// F32ToRaw converts a float32 up to float64 and reinterprets it as the raw
// 64-bit field SetParameterValues would have read, the exact inverse of
// RawToF32. Used by tests that build synthetic TC payloads.
func F32ToRaw(v float32) uint64 {
	return math.Float64bits(float64(v))
}

// F64ToRaw reinterprets a float64 as its raw bit pattern.
func F64ToRaw(v float64) uint64 {
	return math.Float64bits(v)
}
