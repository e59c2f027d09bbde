// Package ccsds implements the wire formats this system layers on top of:
// CCSDS Space Packets (primary header + PUS TC/TM secondary headers, per
// ECSS-E-70-41A) and CCSDS transfer frames (TC inbound, USLP outbound, per
// CCSDS 232.0 / 732.1).
//
// No CCSDS/PUS codec library appears anywhere in the retrieved corpus, so
// this package is built on encoding/binary directly; see DESIGN.md.
package ccsds

import (
	"encoding/binary"
	"fmt"
)

// PacketType distinguishes TC (uplink) from TM (downlink) space packets.
type PacketType uint8

const (
	PacketTypeTM PacketType = 0
	PacketTypeTC PacketType = 1
)

// PrimaryHeaderLen is the fixed 6-byte CCSDS Space Packet primary header.
const PrimaryHeaderLen = 6

// PrimaryHeader is the 6-byte CCSDS Space Packet primary header.
type PrimaryHeader struct {
	Version        uint8 // 3 bits, always 0 for this system
	Type           PacketType
	SecHeaderFlag  bool
	APID           uint16 // 11 bits
	SeqFlags       uint8  // 2 bits, 0b11 = unsegmented, used throughout
	SeqCount       uint16 // 14 bits
	DataLen        uint16 // packet data field length minus one, per CCSDS
}

// EncodePrimaryHeader serialises h into a 6-byte big-endian buffer.
func EncodePrimaryHeader(h PrimaryHeader) [PrimaryHeaderLen]byte {
	var buf [PrimaryHeaderLen]byte

	w0 := uint16(h.Version&0x7) << 13
	if h.Type == PacketTypeTC {
		w0 |= 1 << 12
	}
	if h.SecHeaderFlag {
		w0 |= 1 << 11
	}
	w0 |= h.APID & 0x7FF
	binary.BigEndian.PutUint16(buf[0:2], w0)

	w1 := (uint16(h.SeqFlags&0x3) << 14) | (h.SeqCount & 0x3FFF)
	binary.BigEndian.PutUint16(buf[2:4], w1)

	binary.BigEndian.PutUint16(buf[4:6], h.DataLen)
	return buf
}

// DecodePrimaryHeader parses the first 6 bytes of buf as a primary header.
func DecodePrimaryHeader(buf []byte) (PrimaryHeader, error) {
	if len(buf) < PrimaryHeaderLen {
		return PrimaryHeader{}, fmt.Errorf("ccsds: primary header needs %d bytes, got %d", PrimaryHeaderLen, len(buf))
	}
	w0 := binary.BigEndian.Uint16(buf[0:2])
	w1 := binary.BigEndian.Uint16(buf[2:4])

	h := PrimaryHeader{
		Version:       uint8((w0 >> 13) & 0x7),
		SecHeaderFlag: (w0>>11)&0x1 == 1,
		APID:          w0 & 0x7FF,
		SeqFlags:      uint8((w1 >> 14) & 0x3),
		SeqCount:      w1 & 0x3FFF,
		DataLen:       binary.BigEndian.Uint16(buf[4:6]),
	}
	if (w0>>12)&0x1 == 1 {
		h.Type = PacketTypeTC
	} else {
		h.Type = PacketTypeTM
	}
	return h, nil
}

// TCSecondaryHeaderLen is the fixed length of the PUS TC secondary header
// used by this system: version(1) + ack flags folded into version byte +
// service(1) + subservice(1) + source id(2).
const TCSecondaryHeaderLen = 5

// TCSecondaryHeader is the ECSS PUS TC secondary header.
type TCSecondaryHeader struct {
	Version    uint8
	Service    uint8
	Subservice uint8
	SourceID   uint16
}

func EncodeTCSecondaryHeader(h TCSecondaryHeader) [TCSecondaryHeaderLen]byte {
	var buf [TCSecondaryHeaderLen]byte
	buf[0] = h.Version & 0x0F
	buf[1] = h.Service
	buf[2] = h.Subservice
	binary.BigEndian.PutUint16(buf[3:5], h.SourceID)
	return buf
}

func DecodeTCSecondaryHeader(buf []byte) (TCSecondaryHeader, error) {
	if len(buf) < TCSecondaryHeaderLen {
		return TCSecondaryHeader{}, fmt.Errorf("ccsds: tc secondary header needs %d bytes, got %d", TCSecondaryHeaderLen, len(buf))
	}
	return TCSecondaryHeader{
		Version:    buf[0] & 0x0F,
		Service:    buf[1],
		Subservice: buf[2],
		SourceID:   binary.BigEndian.Uint16(buf[3:5]),
	}, nil
}

// TMSecondaryHeaderLen is the fixed length of the PUS TM secondary header
// used here: version(1) + service(1) + subservice(1) + msg counter(2) +
// destination id(2) + CUC time field(7).
const TMSecondaryHeaderLen = 14

// TMSecondaryHeader is the ECSS PUS TM secondary header.
type TMSecondaryHeader struct {
	Version       uint8
	Service       uint8
	Subservice    uint8
	MessageCount  uint16
	DestinationID uint16
	Time          [7]byte
}

func EncodeTMSecondaryHeader(h TMSecondaryHeader) [TMSecondaryHeaderLen]byte {
	var buf [TMSecondaryHeaderLen]byte
	buf[0] = h.Version & 0x0F
	buf[1] = h.Service
	buf[2] = h.Subservice
	binary.BigEndian.PutUint16(buf[3:5], h.MessageCount)
	binary.BigEndian.PutUint16(buf[5:7], h.DestinationID)
	copy(buf[7:14], h.Time[:])
	return buf
}

func DecodeTMSecondaryHeader(buf []byte) (TMSecondaryHeader, error) {
	if len(buf) < TMSecondaryHeaderLen {
		return TMSecondaryHeader{}, fmt.Errorf("ccsds: tm secondary header needs %d bytes, got %d", TMSecondaryHeaderLen, len(buf))
	}
	var h TMSecondaryHeader
	h.Version = buf[0] & 0x0F
	h.Service = buf[1]
	h.Subservice = buf[2]
	h.MessageCount = binary.BigEndian.Uint16(buf[3:5])
	h.DestinationID = binary.BigEndian.Uint16(buf[5:7])
	copy(h.Time[:], buf[7:14])
	return h, nil
}

// CRC16CCITT computes the CRC used to trail PUS TC/TM packets (CRC-16/CCITT
// FALSE: poly 0x1021, init 0xFFFF, no reflect, no xorout).
func CRC16CCITT(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
