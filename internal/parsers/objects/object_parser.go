package objects

import (
	"encoding/binary"
	"fmt"

	"github.com/fsinspect/go-apfs/internal/types"
)

// ParseObjectHeader parses the common object header at the start of a
// physical object. It performs no checksum verification; use ParseObject for
// the gated form.
func ParseObjectHeader(data []byte, endian binary.ByteOrder) (*types.ObjPhysT, error) {
	if len(data) < types.ObjPhysSize {
		return nil, fmt.Errorf("object header needs %d bytes, got %d: %w",
			types.ObjPhysSize, len(data), types.ErrTooShort)
	}

	hdr := &types.ObjPhysT{}
	copy(hdr.OChecksum[:], data[0:8])
	hdr.OOid = types.OidT(endian.Uint64(data[8:16]))
	hdr.OXid = types.XidT(endian.Uint64(data[16:24]))
	hdr.OType = endian.Uint32(data[24:28])
	hdr.OSubtype = endian.Uint32(data[28:32])

	return hdr, nil
}

// ParseObject parses and checksum-verifies a physical object, returning the
// header and the body bytes that follow it. No structure in this module
// interprets an object body before this gate has passed.
func ParseObject(data []byte, endian binary.ByteOrder) (*types.ObjPhysT, []byte, error) {
	hdr, err := ParseObjectHeader(data, endian)
	if err != nil {
		return nil, nil, err
	}

	if !VerifyObjectChecksum(data) {
		return nil, nil, fmt.Errorf("object oid=%d xid=%d: %w",
			hdr.OOid, hdr.OXid, types.ErrChecksumMismatch)
	}

	return hdr, data[types.ObjPhysSize:], nil
}

// ExpectType checks that a gated object carries the type expected in the
// context it was reached from.
func ExpectType(hdr *types.ObjPhysT, objType uint32) error {
	if hdr.Type() != objType {
		return fmt.Errorf("object oid=%d has type 0x%08x, want 0x%08x: %w",
			hdr.OOid, hdr.Type(), objType, types.ErrWrongType)
	}
	return nil
}
