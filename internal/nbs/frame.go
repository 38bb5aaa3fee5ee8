// Package nbs decodes NOAAPort Broadcast System (NBS/SBN) wire frames and
// defines the total order frames are blended under.
package nbs

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// MaxFrame is the largest accepted frame, header plus data, in bytes.
const MaxFrame = 5000

// FH layout, all multi-byte fields big-endian. Checksum covers bytes [0:14).
const (
	fhSize           = 16
	fhChecksumOffset = 14

	// HDLCBroadcast is the only HDLC address the core accepts.
	HDLCBroadcast = 255
)

// Command values recognized in FrameHeader.Command.
const (
	CommandData = 3
	CommandSync = 5
	CommandTest = 10
)

// FrameHeader is the fixed 16-byte prefix of every NBS frame.
type FrameHeader struct {
	HDLCAddress    byte
	HDLCControl    byte
	Version        byte
	Size           byte
	Control        byte
	Command        byte
	DataStream     byte
	Source         byte
	SequenceNumber uint32
	RunNumber      uint16
	Checksum       uint16
}

// decodeFrameHeader parses exactly fhSize bytes. The caller has already
// verified the checksum; decodeFrameHeader never fails on well-formed input.
func decodeFrameHeader(b []byte) FrameHeader {
	return FrameHeader{
		HDLCAddress:    b[0],
		HDLCControl:    b[1],
		Version:        b[2],
		Size:           b[3],
		Control:        b[4],
		Command:        b[5],
		DataStream:     b[6],
		Source:         b[7],
		SequenceNumber: binary.BigEndian.Uint32(b[8:12]),
		RunNumber:      binary.BigEndian.Uint16(b[12:14]),
		Checksum:       binary.BigEndian.Uint16(b[14:16]),
	}
}

// checksumFH returns the unsigned sum of the header's first 14 bytes,
// the value FH.Checksum must equal per invariant 4.
func checksumFH(b []byte) uint16 {
	var sum uint32
	for _, v := range b[:fhChecksumOffset] {
		sum += uint32(v)
	}
	return uint16(sum)
}

// validChecksum reports whether the 16-byte header buffer carries a
// correct checksum. Never trust Size/Command before this passes.
func validChecksum(b []byte) bool {
	return len(b) == fhSize && checksumFH(b) == binary.BigEndian.Uint16(b[14:16])
}

// pdhMinSize is the smallest legal ProductDefinitionHeader per invariant 5.
const pdhMinSize = 16

// transferTypeOptionHeader is the PDH.TransferType bit that signals a
// trailing ProductSpecificHeader.
const transferTypeOptionHeader = 0x40

// ProductDefinitionHeader follows the FrameHeader on data frames.
type ProductDefinitionHeader struct {
	Size                  byte
	TransferType          byte
	PSHSize               uint16
	TotalSize             uint16
	BlockNumber           uint16
	DataBlockOffset       uint16
	DataBlockSize         uint16
	ProductSequenceNumber uint32
}

var (
	// ErrPDHTooShort means PDH.Size < pdhMinSize (invariant 5).
	ErrPDHTooShort = errors.New("pdh: size below minimum")
	// ErrPDHTotalSize means PDH.TotalSize < PDH.Size (invariant 5).
	ErrPDHTotalSize = errors.New("pdh: total_size below size")
)

// decodePDH parses the fixed 16-byte prefix of a PDH buffer of at least
// pdhMinSize bytes. Trailing bytes beyond the fixed prefix (up to PDH.Size)
// are not interpreted.
func decodePDH(b []byte) (ProductDefinitionHeader, error) {
	if len(b) < pdhMinSize {
		return ProductDefinitionHeader{}, ErrPDHTooShort
	}
	pdh := ProductDefinitionHeader{
		Size:                  b[0],
		TransferType:          b[1],
		PSHSize:               binary.BigEndian.Uint16(b[2:4]),
		TotalSize:             binary.BigEndian.Uint16(b[4:6]),
		BlockNumber:           binary.BigEndian.Uint16(b[6:8]),
		DataBlockOffset:       binary.BigEndian.Uint16(b[8:10]),
		DataBlockSize:         binary.BigEndian.Uint16(b[10:12]),
		ProductSequenceNumber: binary.BigEndian.Uint32(b[12:16]),
	}
	if int(pdh.Size) < pdhMinSize {
		return ProductDefinitionHeader{}, ErrPDHTooShort
	}
	if pdh.TotalSize < uint16(pdh.Size) {
		return ProductDefinitionHeader{}, ErrPDHTotalSize
	}
	return pdh, nil
}

// HasOptionHeader reports whether the transfer-type bitmask declares a
// trailing ProductSpecificHeader.
func (pdh ProductDefinitionHeader) HasOptionHeader() bool {
	return pdh.TransferType&transferTypeOptionHeader != 0
}

// PSHLen is the number of bytes the option header occupies, if present.
func (pdh ProductDefinitionHeader) PSHLen() int {
	return int(pdh.TotalSize) - int(pdh.Size)
}

// Frame is a fully decoded, validated NBS record. Immutable after decode.
type Frame struct {
	FH    FrameHeader
	PDH   ProductDefinitionHeader
	PSH   []byte // raw option header bytes, uninterpreted beyond length
	Data  []byte
	Bytes []byte // the full wire encoding, FH+PDH+PSH+Data, as received
	Key   OrderingKey
}

// Size is the total wire length of the frame.
func (f Frame) Size() int {
	return len(f.Bytes)
}
