package ccsds

import "fmt"

// TCPrimaryHeaderLen is the fixed 5-byte CCSDS 232.0-B TC Transfer Frame
// primary header.
const TCPrimaryHeaderLen = 5

// TCTransferFrame carries the fields the frame processor cares about (spec
// §3): spacecraft id, virtual channel id, and the data field. Other header
// fields (bypass flag, control command flag, frame sequence number) are
// parsed but simply passed through, never interpreted by this system.
type TCTransferFrame struct {
	Version         uint8
	BypassFlag      bool
	ControlCmdFlag  bool
	SpacecraftID    uint16 // 10 bits
	VCID            uint8  // 6 bits
	SequenceNumber  uint8
	Data            []byte
}

// DecodeTCFrame attempts to parse a single TC Transfer Frame from the front
// of buf. It returns the decoded frame and the number of bytes consumed
// from buf (the frame's declared total length), or an error if buf does not
// yet hold a complete frame (the caller should keep buffering).
func DecodeTCFrame(buf []byte) (TCTransferFrame, int, error) {
	if len(buf) < TCPrimaryHeaderLen {
		return TCTransferFrame{}, 0, fmt.Errorf("ccsds: tc frame header needs %d bytes, have %d", TCPrimaryHeaderLen, len(buf))
	}

	b0, b1, b2, b3, b4 := buf[0], buf[1], buf[2], buf[3], buf[4]

	frame := TCTransferFrame{
		Version:        (b0 >> 6) & 0x3,
		BypassFlag:     (b0>>5)&0x1 == 1,
		ControlCmdFlag: (b0>>4)&0x1 == 1,
		SpacecraftID:   (uint16(b0&0x3) << 8) | uint16(b1),
		VCID:           (b2 >> 2) & 0x3F,
		SequenceNumber: b4,
	}

	frameLenField := (uint16(b2&0x3) << 8) | uint16(b3)
	totalLen := int(frameLenField) + 1

	if totalLen < TCPrimaryHeaderLen {
		return TCTransferFrame{}, 0, fmt.Errorf("ccsds: tc frame declares impossible length %d", totalLen)
	}
	if len(buf) < totalLen {
		return TCTransferFrame{}, 0, fmt.Errorf("ccsds: tc frame incomplete, need %d bytes, have %d", totalLen, len(buf))
	}

	frame.Data = append([]byte(nil), buf[TCPrimaryHeaderLen:totalLen]...)
	return frame, totalLen, nil
}
