package objects

import (
	"encoding/binary"

	"github.com/fsinspect/go-apfs/internal/types"
)

// Fletcher-64 as specified by the Apple File System Reference: the checksum
// covers the object bytes after the 8-byte checksum field, accumulated as
// little-endian 32-bit words. Both running sums are reduced modulo 0xFFFFFFFF
// and the result is complement-folded, so appending the stored checksum words
// to the covered bytes sums to zero.

const fletcherModulus = uint64(0xFFFFFFFF)

// fletcherChunkWords bounds how many 32-bit words are accumulated before the
// sums are reduced, keeping both sums well inside a uint64.
const fletcherChunkWords = 1024

// Fletcher64 computes the checksum of the given bytes. The length must be a
// multiple of four; trailing bytes beyond the last whole word are ignored.
func Fletcher64(data []byte) uint64 {
	var sum1, sum2 uint64

	for offset := 0; offset < len(data); offset += fletcherChunkWords * 4 {
		chunkEnd := offset + fletcherChunkWords*4
		if chunkEnd > len(data) {
			chunkEnd = len(data)
		}

		for i := offset; i+4 <= chunkEnd; i += 4 {
			sum1 += uint64(binary.LittleEndian.Uint32(data[i : i+4]))
			sum2 += sum1
		}

		sum1 %= fletcherModulus
		sum2 %= fletcherModulus
	}

	ckLow := fletcherModulus - ((sum1 + sum2) % fletcherModulus)
	ckHigh := fletcherModulus - ((sum1 + ckLow) % fletcherModulus)

	return ckLow | (ckHigh << 32)
}

// ComputeObjectChecksum computes the checksum an object's header should carry:
// Fletcher-64 over everything after the checksum field itself.
func ComputeObjectChecksum(object []byte) (uint64, error) {
	if len(object) < types.ObjPhysSize {
		return 0, types.ErrTooShort
	}
	return Fletcher64(object[types.MaxCksumSize:]), nil
}

// VerifyObjectChecksum recomputes an object's checksum and compares it with
// the stored value.
func VerifyObjectChecksum(object []byte) bool {
	if len(object) < types.ObjPhysSize {
		return false
	}
	stored := binary.LittleEndian.Uint64(object[0:types.MaxCksumSize])
	return Fletcher64(object[types.MaxCksumSize:]) == stored
}
