package objects

import (
	"github.com/fsinspect/go-apfs/internal/types"
)

// StorageType describes how an object is addressed.
type StorageType string

const (
	StorageVirtual   StorageType = "virtual"
	StorageEphemeral StorageType = "ephemeral"
	StoragePhysical  StorageType = "physical"
	StorageUnknown   StorageType = "unknown"
)

// DetermineStorageType classifies an object type field by its storage bits.
func DetermineStorageType(objectType uint32) StorageType {
	switch objectType & types.ObjStorageTypeMask {
	case types.ObjVirtual:
		return StorageVirtual
	case types.ObjEphemeral:
		return StorageEphemeral
	case types.ObjPhysical:
		return StoragePhysical
	default:
		return StorageUnknown
	}
}

var objectTypeNames = map[uint32]string{
	types.ObjectTypeNxSuperblock:  "container superblock",
	types.ObjectTypeBtree:         "B-tree root node",
	types.ObjectTypeBtreeNode:     "B-tree node",
	types.ObjectTypeSpaceman:      "space manager",
	types.ObjectTypeOmap:          "object map",
	types.ObjectTypeCheckpointMap: "checkpoint map",
	types.ObjectTypeFs:            "volume superblock",
	types.ObjectTypeFstree:        "file-system tree",
	types.ObjectTypeBlockreftree:  "extent-reference tree",
	types.ObjectTypeSnapmetatree:  "snapshot metadata tree",
	types.ObjectTypeNxReaper:      "reaper",
	types.ObjectTypeOmapSnapshot:  "object map snapshot tree",
	types.ObjectTypeEfiJumpstart:  "EFI jumpstart",
	types.ObjectTypeFextTree:      "file extent tree",
	types.ObjectTypeIntegrityMeta: "integrity metadata",
}

// TypeName returns a human-readable name for an object type value, masking
// off the flag bits first.
func TypeName(objectType uint32) string {
	if name, ok := objectTypeNames[objectType&types.ObjectTypeMask]; ok {
		return name
	}
	return "unknown"
}

// IsBtreeNodeType reports whether the type tags a B-tree root or interior
// node. Both carry btree_node_phys_t bodies.
func IsBtreeNodeType(objectType uint32) bool {
	t := objectType & types.ObjectTypeMask
	return t == types.ObjectTypeBtree || t == types.ObjectTypeBtreeNode
}
