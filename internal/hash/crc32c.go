package hash

import (
	"encoding/binary"
	"hash/crc32"
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// Seal stores the CRC32C of b[:len(b)-4] in the last four bytes of b,
// little endian. b must be at least four bytes long.
func Seal(b []byte) {
	n := len(b) - 4
	binary.LittleEndian.PutUint32(b[n:], CRC32C(b[:n]))
}

// Sealed reports whether b ends in the checksum Seal would write.
func Sealed(b []byte) bool {
	n := len(b) - 4
	if n < 0 {
		return false
	}
	return binary.LittleEndian.Uint32(b[n:]) == CRC32C(b[:n])
}
