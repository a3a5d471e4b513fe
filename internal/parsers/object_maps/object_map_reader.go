package objectmaps

import (
	"encoding/binary"
	"fmt"

	"github.com/fsinspect/go-apfs/internal/parsers/objects"
	"github.com/fsinspect/go-apfs/internal/types"
)

// ObjectMapReader parses and provides access to an object map block.
type ObjectMapReader struct {
	omap   *types.OmapPhysT
	endian binary.ByteOrder
}

// NewObjectMapReader verifies and parses an object map from a raw block.
// The block's checksum and object type are validated before any field is
// decoded.
func NewObjectMapReader(data []byte, endian binary.ByteOrder) (*ObjectMapReader, error) {
	if endian == nil {
		endian = binary.LittleEndian
	}

	header, _, err := objects.ParseObject(data, endian)
	if err != nil {
		return nil, fmt.Errorf("failed to parse object map block: %w", err)
	}
	if err := objects.ExpectType(header, types.ObjectTypeOmap); err != nil {
		return nil, err
	}

	omap, err := parseOmapPhys(data, header, endian)
	if err != nil {
		return nil, err
	}

	return &ObjectMapReader{
		omap:   omap,
		endian: endian,
	}, nil
}

// parseOmapPhys decodes the omap_phys_t fields that follow the object header.
func parseOmapPhys(data []byte, header *types.ObjPhysT, endian binary.ByteOrder) (*types.OmapPhysT, error) {
	if len(data) < types.OmapPhysSize {
		return nil, fmt.Errorf("object map needs %d bytes, got %d: %w",
			types.OmapPhysSize, len(data), types.ErrTooShort)
	}

	omap := &types.OmapPhysT{OmO: *header}

	omap.OmFlags = endian.Uint32(data[32:36])
	omap.OmSnapCount = endian.Uint32(data[36:40])
	omap.OmTreeType = endian.Uint32(data[40:44])
	omap.OmSnapshotTreeType = endian.Uint32(data[44:48])
	omap.OmTreeOid = types.OidT(endian.Uint64(data[48:56]))
	omap.OmSnapshotTreeOid = types.OidT(endian.Uint64(data[56:64]))
	omap.OmMostRecentSnap = types.XidT(endian.Uint64(data[64:72]))
	omap.OmPendingRevertMin = types.XidT(endian.Uint64(data[72:80]))
	omap.OmPendingRevertMax = types.XidT(endian.Uint64(data[80:88]))

	return omap, nil
}

// ObjectMap returns the parsed object map structure.
func (r *ObjectMapReader) ObjectMap() *types.OmapPhysT {
	return r.omap
}

// Flags returns the object map's flags.
func (r *ObjectMapReader) Flags() uint32 {
	return r.omap.OmFlags
}

// SnapshotCount returns the number of snapshots the object map has.
func (r *ObjectMapReader) SnapshotCount() uint32 {
	return r.omap.OmSnapCount
}

// TreeType returns the type of tree used for object mappings.
func (r *ObjectMapReader) TreeType() uint32 {
	return r.omap.OmTreeType
}

// SnapshotTreeType returns the type of tree used for snapshots.
func (r *ObjectMapReader) SnapshotTreeType() uint32 {
	return r.omap.OmSnapshotTreeType
}

// TreeOID returns the object identifier of the mapping tree's root node.
// The root of an object map's tree is addressed physically, so this value
// is a block address.
func (r *ObjectMapReader) TreeOID() types.OidT {
	return r.omap.OmTreeOid
}

// SnapshotTreeOID returns the object identifier of the snapshot tree's root.
func (r *ObjectMapReader) SnapshotTreeOID() types.OidT {
	return r.omap.OmSnapshotTreeOid
}

// MostRecentSnapshotXID returns the transaction identifier of the most
// recent snapshot stored in this object map.
func (r *ObjectMapReader) MostRecentSnapshotXID() types.XidT {
	return r.omap.OmMostRecentSnap
}

// PendingRevertMin returns the smallest transaction identifier of an
// in-progress revert.
func (r *ObjectMapReader) PendingRevertMin() types.XidT {
	return r.omap.OmPendingRevertMin
}

// PendingRevertMax returns the largest transaction identifier of an
// in-progress revert.
func (r *ObjectMapReader) PendingRevertMax() types.XidT {
	return r.omap.OmPendingRevertMax
}

// IsManuallyManaged reports whether the object map doesn't support snapshots.
func (r *ObjectMapReader) IsManuallyManaged() bool {
	return r.omap.OmFlags&types.OmapManuallyManaged != 0
}
