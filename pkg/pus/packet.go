// Package pus implements the PUS TC/TM packet shell (spec §3) and the
// ECSS verification state machine (spec §4.3) that drives PUS Service 1
// reporting for every accepted command.
package pus

import (
	"fmt"

	"github.com/raccoon-os/rccn-usr/pkg/ccsds"
)

// TCPacket is a parsed PUS TC packet: CCSDS Space Packet primary header +
// PUS TC secondary header + application data (+ trailing CRC, which
// ParseTCPacket requires and validates but does not retain).
type TCPacket struct {
	Primary   ccsds.PrimaryHeader
	Secondary ccsds.TCSecondaryHeader
	AppData   []byte
}

// ErrPacketTooShort is returned when buf cannot possibly hold a valid
// primary header, secondary header, and CRC trailer.
var ErrPacketTooShort = fmt.Errorf("pus: packet too short")

// ErrBadCRC is returned when a packet's trailing CRC does not match the
// computed CRC over everything preceding it.
var ErrBadCRC = fmt.Errorf("pus: bad crc")

const crcLen = 2

// ParseTCPacket parses buf as a PUS TC packet (spec §3: "Inbound only").
// The packet is expected to carry a trailing 2-byte CRC-16/CCITT.
func ParseTCPacket(buf []byte) (TCPacket, error) {
	minLen := ccsds.PrimaryHeaderLen + ccsds.TCSecondaryHeaderLen + crcLen
	if len(buf) < minLen {
		return TCPacket{}, fmt.Errorf("%w: need at least %d bytes, have %d", ErrPacketTooShort, minLen, len(buf))
	}

	primary, err := ccsds.DecodePrimaryHeader(buf)
	if err != nil {
		return TCPacket{}, fmt.Errorf("pus: tc primary header: %w", err)
	}

	body := buf[ccsds.PrimaryHeaderLen:]
	payloadCRC := body[:len(body)-crcLen]
	wantCRC := ccsds.CRC16CCITT(buf[:len(buf)-crcLen])
	gotCRC := uint16(buf[len(buf)-2])<<8 | uint16(buf[len(buf)-1])
	if wantCRC != gotCRC {
		return TCPacket{}, fmt.Errorf("%w: computed 0x%04x, got 0x%04x", ErrBadCRC, wantCRC, gotCRC)
	}

	secondary, err := ccsds.DecodeTCSecondaryHeader(payloadCRC)
	if err != nil {
		return TCPacket{}, fmt.Errorf("pus: tc secondary header: %w", err)
	}

	appData := append([]byte(nil), payloadCRC[ccsds.TCSecondaryHeaderLen:]...)

	return TCPacket{Primary: primary, Secondary: secondary, AppData: appData}, nil
}

// TMPacket is a PUS TM packet ready for serialization: CCSDS Space Packet
// primary header + PUS TM secondary header + source data + CRC.
type TMPacket struct {
	Primary    ccsds.PrimaryHeader
	Secondary  ccsds.TMSecondaryHeader
	SourceData []byte
}

// Encode serialises the TM packet to wire bytes, appending the trailing
// CRC-16/CCITT.
func (p TMPacket) Encode() []byte {
	secBuf := ccsds.EncodeTMSecondaryHeader(p.Secondary)
	body := make([]byte, 0, ccsds.TMSecondaryHeaderLen+len(p.SourceData))
	body = append(body, secBuf[:]...)
	body = append(body, p.SourceData...)

	p.Primary.Type = ccsds.PacketTypeTM
	p.Primary.SecHeaderFlag = true
	p.Primary.DataLen = uint16(len(body) + crcLen - 1)
	primaryBuf := ccsds.EncodePrimaryHeader(p.Primary)

	out := make([]byte, 0, ccsds.PrimaryHeaderLen+len(body)+crcLen)
	out = append(out, primaryBuf[:]...)
	out = append(out, body...)

	crc := ccsds.CRC16CCITT(out)
	out = append(out, byte(crc>>8), byte(crc))
	return out
}
