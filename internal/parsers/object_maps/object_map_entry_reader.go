package objectmaps

import (
	"encoding/binary"
	"fmt"

	"github.com/fsinspect/go-apfs/internal/types"
)

// ObjectMapEntry is a decoded object map record pairing a virtual object
// identifier and transaction identifier with the physical location of the
// object's data.
type ObjectMapEntry struct {
	Key types.OmapKeyT
	Val types.OmapValT
}

// ParseOmapKey decodes an omap_key_t from a raw key slice.
func ParseOmapKey(data []byte, endian binary.ByteOrder) (types.OmapKeyT, error) {
	if len(data) < types.OmapKeySize {
		return types.OmapKeyT{}, fmt.Errorf("object map key needs %d bytes, got %d: %w",
			types.OmapKeySize, len(data), types.ErrTooShort)
	}
	return types.OmapKeyT{
		OkOid: types.OidT(endian.Uint64(data[0:8])),
		OkXid: types.XidT(endian.Uint64(data[8:16])),
	}, nil
}

// ParseOmapVal decodes an omap_val_t from a raw value slice.
func ParseOmapVal(data []byte, endian binary.ByteOrder) (types.OmapValT, error) {
	if len(data) < types.OmapValSize {
		return types.OmapValT{}, fmt.Errorf("object map value needs %d bytes, got %d: %w",
			types.OmapValSize, len(data), types.ErrTooShort)
	}
	return types.OmapValT{
		OvFlags: endian.Uint32(data[0:4]),
		OvSize:  endian.Uint32(data[4:8]),
		OvPaddr: types.Paddr(endian.Uint64(data[8:16])),
	}, nil
}

// ParseObjectMapEntry decodes a key/value pair from the mapping tree.
func ParseObjectMapEntry(key, value []byte, endian binary.ByteOrder) (*ObjectMapEntry, error) {
	k, err := ParseOmapKey(key, endian)
	if err != nil {
		return nil, err
	}
	v, err := ParseOmapVal(value, endian)
	if err != nil {
		return nil, err
	}
	return &ObjectMapEntry{Key: k, Val: v}, nil
}

// ObjectID returns the virtual object identifier of the mapping.
func (e *ObjectMapEntry) ObjectID() types.OidT {
	return e.Key.OkOid
}

// TransactionID returns the transaction identifier of the mapping.
func (e *ObjectMapEntry) TransactionID() types.XidT {
	return e.Key.OkXid
}

// Flags returns the value's flags.
func (e *ObjectMapEntry) Flags() uint32 {
	return e.Val.OvFlags
}

// Size returns the size, in bytes, of the mapped object.
func (e *ObjectMapEntry) Size() uint32 {
	return e.Val.OvSize
}

// PhysicalAddress returns the block address of the mapped object.
func (e *ObjectMapEntry) PhysicalAddress() types.Paddr {
	return e.Val.OvPaddr
}

// IsDeleted reports whether the mapping is a placeholder for a deleted
// object.
func (e *ObjectMapEntry) IsDeleted() bool {
	return e.Val.OvFlags&types.OmapValDeleted != 0
}

// IsEncrypted reports whether the mapped object is encrypted.
func (e *ObjectMapEntry) IsEncrypted() bool {
	return e.Val.OvFlags&types.OmapValEncrypted != 0
}

// HasHeader reports whether the mapped object is stored with an object
// header.
func (e *ObjectMapEntry) HasHeader() bool {
	return e.Val.OvFlags&types.OmapValNoheader == 0
}
