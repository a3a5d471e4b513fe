package types

// B-Trees (pages 122-134)
// The B-trees used in Apple File System are implemented using the
// btree_node_phys_t structure to represent a node. The same structure is used
// for all nodes in a tree.

// BtreeNodePhysT is a B-tree node.
// Reference: page 123
type BtreeNodePhysT struct {
	// The object's header. (page 124)
	BtnO ObjPhysT

	// The B-tree node's flags. (page 124)
	BtnFlags uint16

	// The number of child levels below this node. (page 124)
	// The value of this field is zero for a leaf node and one for the
	// immediate parent of a leaf node. Likewise, the height of a tree is one
	// plus the value of this field on the tree's root node.
	BtnLevel uint16

	// The number of keys stored in this node. (page 124)
	BtnNkeys uint32

	// The location of the table of contents. (page 124)
	// The offset is counted from the beginning of the node's btn_data field.
	// If the BTNODE_FIXED_KV_SIZE flag is set, the table of contents is an
	// array of instances of kvoff_t; otherwise, it's an array of kvloc_t.
	BtnTableSpace NlocT

	// The location of the shared free space for keys and values. (page 124)
	BtnFreeSpace NlocT

	// A linked list that tracks free key space. (page 125)
	BtnKeyFreeList NlocT

	// A linked list that tracks free value space. (page 125)
	BtnValFreeList NlocT

	// The node's storage area. (page 125)
	// This area contains the table of contents, keys, free space, and values.
	// A root node also has an instance of btree_info_t at the end of its
	// storage area.
	BtnData []byte
}

// BtreeNodePhysSize is the size, in bytes, of the fixed portion of a B-tree
// node, up to the beginning of btn_data.
const BtreeNodePhysSize = 56

// BtreeInfoFixedT contains static information about a B-tree.
// Reference: page 125
type BtreeInfoFixedT struct {
	// The B-tree's flags. (page 125)
	BtFlags uint32

	// The on-disk size, in bytes, of a node in this B-tree. (page 126)
	BtNodeSize uint32

	// The size of a key, or zero if the keys have variable size. (page 126)
	BtKeySize uint32

	// The size of a value, or zero if the values have variable size. (page 126)
	// Nonleaf nodes in a tree with variable-size values still include
	// BTNODE_FIXED_KV_SIZE, because the values stored in those nodes are the
	// object identifiers of their child nodes, which have a fixed size.
	BtValSize uint32
}

// BtreeInfoT contains information about a B-tree, stored at the end of a
// root node's storage area.
// Reference: page 126
type BtreeInfoT struct {
	// Information about the B-tree that doesn't change over time. (page 126)
	BtFixed BtreeInfoFixedT

	// The length, in bytes, of the longest key that has ever been stored in the B-tree. (page 126)
	BtLongestKey uint32

	// The length, in bytes, of the longest value that has ever been stored in the B-tree. (page 126)
	BtLongestVal uint32

	// The number of keys stored in the B-tree. (page 127)
	BtKeyCount uint64

	// The number of nodes stored in the B-tree. (page 127)
	BtNodeCount uint64
}

// BtreeInfoSize is the on-disk size, in bytes, of a btree_info_t footer.
const BtreeInfoSize = 40

// NlocT is a location within a B-tree node.
// Reference: page 128
type NlocT struct {
	// The offset, in bytes. (page 128)
	// Depending on the data type that contains this location, the offset is
	// either implicitly positive or negative, and is counted starting at
	// different points in the B-tree node.
	Off uint16

	// The length, in bytes. (page 128)
	Len uint16
}

// BtoffInvalid is an invalid offset.
// Reference: page 128
const BtoffInvalid uint16 = 0xffff

// KvlocT is the location, within a B-tree node, of a key and value.
// Reference: page 128
type KvlocT struct {
	// The location of the key. (page 129)
	K NlocT

	// The location of the value. (page 129)
	V NlocT
}

// KvlocSize is the on-disk size, in bytes, of a kvloc_t entry.
const KvlocSize = 8

// KvoffT is the location, within a B-tree node, of a fixed-size key and value.
// Reference: page 129
type KvoffT struct {
	// The offset of the key. (page 129)
	K uint16

	// The offset of the value. (page 129)
	V uint16
}

// KvoffSize is the on-disk size, in bytes, of a kvoff_t entry.
const KvoffSize = 4

// B-Tree Node Flags (pages 133-134)

// BtnodeRoot indicates a root node.
// Reference: page 133
const BtnodeRoot uint16 = 0x0001

// BtnodeLeaf indicates a leaf node.
// Reference: page 133
const BtnodeLeaf uint16 = 0x0002

// BtnodeFixedKvSize indicates a node with keys and values of a fixed size.
// Reference: page 133
const BtnodeFixedKvSize uint16 = 0x0004

// BtnodeHashed indicates a node that contains child hashes.
// Reference: page 133
const BtnodeHashed uint16 = 0x0008

// BtnodeNoheader indicates a node stored without an object header.
// Reference: page 134
const BtnodeNoheader uint16 = 0x0010

// BtnodeCheckKoffInval is used transiently and is never set on disk.
// Reference: page 134
const BtnodeCheckKoffInval uint16 = 0x8000

// B-Tree Flags (pages 132-133)

// BtreeUint64Keys indicates a tree whose keys are ordered as unsigned 64-bit integers.
// Reference: page 132
const BtreeUint64Keys uint32 = 0x00000001

// BtreeSequentialInsert indicates a tree optimized for sequential insertions.
// Reference: page 132
const BtreeSequentialInsert uint32 = 0x00000002

// BtreeAllowGhosts indicates a tree that may contain keys with no value.
// Reference: page 132
const BtreeAllowGhosts uint32 = 0x00000004

// BtreeEphemeral indicates a tree whose child nodes are ephemeral objects.
// Reference: page 132
const BtreeEphemeral uint32 = 0x00000008

// BtreePhysical indicates a tree whose child nodes are physical objects.
// Reference: page 132
const BtreePhysical uint32 = 0x00000010

// BtreeNonpersistent indicates a tree that isn't persisted across unmounting.
// Reference: page 133
const BtreeNonpersistent uint32 = 0x00000020

// BtreeKvNonaligned indicates a tree whose keys and values aren't required to
// be eight-byte aligned.
// Reference: page 133
const BtreeKvNonaligned uint32 = 0x00000040

// BtreeHashed indicates a tree whose nonleaf nodes store a hash of their child nodes.
// Reference: page 133
const BtreeHashed uint32 = 0x00000080
