package ccsds

import (
	"encoding/binary"
	"fmt"
)

// USLPHeaderLen is the fixed primary header length this system emits for a
// USLP Transfer Frame: version/reserved(1) + spacecraft id(2) +
// source-or-destination flag(1) + VC id(1) + MAP id(1) + frame length(2).
// No insert zone, no operational control field, no frame error control
// field are emitted (spec §4.2).
const USLPHeaderLen = 8

// DefaultVersionID is the fixed USLP transfer frame version id this system
// stamps on every outbound frame (spec §4.2).
const DefaultVersionID = 12

// OutboundSpacecraftID is the fixed spacecraft id stamped on every outbound
// USLP frame (spec §4.2: "spacecraft-id=0xAB"). This is independent of the
// configured spacecraft id the frame processor validates inbound TC frames
// against.
const OutboundSpacecraftID = 0xAB

// MaxUSLPFrameLength is the nominal fixed-rate downlink frame length named
// in spec §3. Per the resolution of spec §9's second Open Question, the
// length field actually emitted reflects the real payload size rather than
// always padding/truncating to this constant; MaxUSLPFrameLength remains
// available as a transport-level MTU check.
const MaxUSLPFrameLength = 512

// USLPTransferFrame is the downlink transfer frame this system builds for
// each per-VC egress payload (spec §3, §4.2).
type USLPTransferFrame struct {
	VersionID            uint8
	SpacecraftID         uint16
	SourceOrDestination  bool
	VCID                 uint8
	MapID                uint8
	Payload              []byte
}

// NewUSLPFrame builds the frame spec §4.2 describes for outbound VC
// payloads: version-id 12, spacecraft-id 0xAB, source-or-destination true,
// map-id 0, no truncation, no insert zone. The spacecraft id is always
// OutboundSpacecraftID; it is not configurable and does not track the
// spacecraft id the frame processor validates inbound frames against.
func NewUSLPFrame(vcID uint8, payload []byte) USLPTransferFrame {
	return USLPTransferFrame{
		VersionID:           DefaultVersionID,
		SpacecraftID:        OutboundSpacecraftID,
		SourceOrDestination: true,
		VCID:                vcID,
		MapID:               0,
		Payload:             payload,
	}
}

// Encode serialises the frame to bytes. The frame length field is the
// actual header+payload length minus one, per the resolved Open Question;
// it is not hardcoded.
func (f USLPTransferFrame) Encode() ([]byte, error) {
	total := USLPHeaderLen + len(f.Payload)
	if total > 0x10000 {
		return nil, fmt.Errorf("ccsds: uslp frame too large: %d bytes", total)
	}

	buf := make([]byte, total)
	buf[0] = (f.VersionID & 0xF) << 4
	binary.BigEndian.PutUint16(buf[1:3], f.SpacecraftID)
	if f.SourceOrDestination {
		buf[3] = 0x80
	}
	buf[4] = f.VCID
	buf[5] = f.MapID
	binary.BigEndian.PutUint16(buf[6:8], uint16(total-1))
	copy(buf[USLPHeaderLen:], f.Payload)
	return buf, nil
}

// DecodeUSLPFrame is declared for symmetry with DecodeTCFrame but is out of
// scope for this system: spec §4.2 states inbound framing handles TC
// frames only and USLP decode is "declared but out of scope". Calling this
// always fails; it exists so frameproc can wire a downlink-facing ingress
// path later without a package-level API break.
func DecodeUSLPFrame(buf []byte) (USLPTransferFrame, int, error) {
	return USLPTransferFrame{}, 0, fmt.Errorf("ccsds: %w", ErrUSLPDecodeNotImplemented)
}

// ErrUSLPDecodeNotImplemented is returned by DecodeUSLPFrame.
var ErrUSLPDecodeNotImplemented = fmt.Errorf("uslp inbound decode not implemented")
