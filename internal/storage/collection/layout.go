package collection

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/okian/vendorhub/internal/storage/codec"
)

// Region layout:
//
//	[0,64)     header: magic "VCOL", version u16, slot size u32 @8, committed u64 @16
//	[64,...)   slots, slotSize bytes each
//
// Slot layout: key u64, payload length u32, crc32c(key|length|payload) u32,
// payload padded to codec.MaxRecordSize.
const (
	headerSize    = 64
	formatVersion = 1

	offVersion   = 4
	offSlotSize  = 8
	offCommitted = 16

	slotHeaderSize = 16
	slotSize       = slotHeaderSize + codec.MaxRecordSize
)

var (
	magic      = []byte("VCOL")
	crc32Table = crc32.MakeTable(crc32.Castagnoli)
)

func slotOffset(n int64) int64 {
	return headerSize + n*slotSize
}

func encodeSlot(key uint64, payload []byte) []byte {
	buf := make([]byte, slotHeaderSize+len(payload))
	binary.LittleEndian.PutUint64(buf[0:], key)
	binary.LittleEndian.PutUint32(buf[8:], uint32(len(payload)))
	copy(buf[slotHeaderSize:], payload)
	binary.LittleEndian.PutUint32(buf[12:], slotChecksum(buf))
	return buf
}

// slotChecksum covers key, length and payload; buf must be a full slot prefix.
func slotChecksum(buf []byte) uint32 {
	crc := crc32.Update(0, crc32Table, buf[:12])
	return crc32.Update(crc, crc32Table, buf[slotHeaderSize:])
}

type slotHeader struct {
	key    uint64
	length uint32
	crc    uint32
}

func decodeSlotHeader(buf []byte) slotHeader {
	return slotHeader{
		key:    binary.LittleEndian.Uint64(buf[0:]),
		length: binary.LittleEndian.Uint32(buf[8:]),
		crc:    binary.LittleEndian.Uint32(buf[12:]),
	}
}
