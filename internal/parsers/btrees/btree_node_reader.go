package btrees

import (
	"encoding/binary"
	"fmt"

	"github.com/fsinspect/go-apfs/internal/parsers/objects"
	"github.com/fsinspect/go-apfs/internal/types"
)

// BTreeNodeReader parses and provides access to a single B-tree node
// (btree_node_phys_t).
type BTreeNodeReader struct {
	node   *types.BtreeNodePhysT
	data   []byte
	endian binary.ByteOrder
}

// NewBTreeNodeReader parses a B-tree node from a raw block. The block must
// pass the object checksum gate and carry a B-tree node object type.
func NewBTreeNodeReader(data []byte, endian binary.ByteOrder) (*BTreeNodeReader, error) {
	if endian == nil {
		endian = binary.LittleEndian
	}

	hdr, _, err := objects.ParseObject(data, endian)
	if err != nil {
		return nil, fmt.Errorf("B-tree node: %w", err)
	}
	if !objects.IsBtreeNodeType(hdr.OType) {
		return nil, fmt.Errorf("B-tree node oid=%d has type 0x%08x: %w",
			hdr.OOid, hdr.Type(), types.ErrWrongType)
	}

	node, err := parseBTreeNode(data, endian)
	if err != nil {
		return nil, fmt.Errorf("B-tree node: %w", err)
	}
	node.BtnO = *hdr

	return &BTreeNodeReader{node: node, data: data, endian: endian}, nil
}

// parseBTreeNode decodes the fields that follow the object header.
func parseBTreeNode(data []byte, endian binary.ByteOrder) (*types.BtreeNodePhysT, error) {
	if len(data) < types.BtreeNodePhysSize {
		return nil, fmt.Errorf("need %d bytes, got %d: %w",
			types.BtreeNodePhysSize, len(data), types.ErrTooShort)
	}

	node := &types.BtreeNodePhysT{}

	node.BtnFlags = endian.Uint16(data[32:34])
	node.BtnLevel = endian.Uint16(data[34:36])
	node.BtnNkeys = endian.Uint32(data[36:40])

	node.BtnTableSpace.Off = endian.Uint16(data[40:42])
	node.BtnTableSpace.Len = endian.Uint16(data[42:44])
	node.BtnFreeSpace.Off = endian.Uint16(data[44:46])
	node.BtnFreeSpace.Len = endian.Uint16(data[46:48])
	node.BtnKeyFreeList.Off = endian.Uint16(data[48:50])
	node.BtnKeyFreeList.Len = endian.Uint16(data[50:52])
	node.BtnValFreeList.Off = endian.Uint16(data[52:54])
	node.BtnValFreeList.Len = endian.Uint16(data[54:56])

	node.BtnData = data[types.BtreeNodePhysSize:]

	return node, nil
}

// Header returns the node's object header.
func (br *BTreeNodeReader) Header() *types.ObjPhysT {
	return &br.node.BtnO
}

// Flags returns the B-tree node's flags.
func (br *BTreeNodeReader) Flags() uint16 {
	return br.node.BtnFlags
}

// Level returns the number of child levels below this node.
func (br *BTreeNodeReader) Level() uint16 {
	return br.node.BtnLevel
}

// KeyCount returns the number of keys stored in this node.
func (br *BTreeNodeReader) KeyCount() uint32 {
	return br.node.BtnNkeys
}

// TableSpace returns the location of the table of contents.
func (br *BTreeNodeReader) TableSpace() types.NlocT {
	return br.node.BtnTableSpace
}

// FreeSpace returns the location of the shared free space for keys and values.
func (br *BTreeNodeReader) FreeSpace() types.NlocT {
	return br.node.BtnFreeSpace
}

// KeyFreeList returns the linked list that tracks free key space.
func (br *BTreeNodeReader) KeyFreeList() types.NlocT {
	return br.node.BtnKeyFreeList
}

// ValueFreeList returns the linked list that tracks free value space.
func (br *BTreeNodeReader) ValueFreeList() types.NlocT {
	return br.node.BtnValFreeList
}

// Data returns the node's storage area.
func (br *BTreeNodeReader) Data() []byte {
	return br.node.BtnData
}

// IsRoot checks if the node is a root node.
func (br *BTreeNodeReader) IsRoot() bool {
	return br.node.BtnFlags&types.BtnodeRoot != 0
}

// IsLeaf checks if the node is a leaf node.
func (br *BTreeNodeReader) IsLeaf() bool {
	return br.node.BtnFlags&types.BtnodeLeaf != 0
}

// HasFixedKVSize checks if the node has keys and values of fixed size.
func (br *BTreeNodeReader) HasFixedKVSize() bool {
	return br.node.BtnFlags&types.BtnodeFixedKvSize != 0
}

// IsHashed checks if the node contains child hashes.
func (br *BTreeNodeReader) IsHashed() bool {
	return br.node.BtnFlags&types.BtnodeHashed != 0
}
