package btrees

import (
	"encoding/binary"
	"fmt"

	"github.com/fsinspect/go-apfs/internal/types"
)

// NodeEntryReader extracts key and value byte slices from a B-tree node's
// storage area, handling both the fixed-size (kvoff_t) and variable-size
// (kvloc_t) table-of-contents layouts.
//
// Key offsets are counted forward from the end of the table of contents, and
// value offsets are counted backward from the end of the node. A root node's
// value area ends before the btree_info_t footer.
type NodeEntryReader struct {
	node   *BTreeNodeReader
	endian binary.ByteOrder

	// Fixed key and value sizes for BTNODE_FIXED_KV_SIZE layouts, supplied
	// by the tree's codec since kvoff_t entries don't record lengths.
	fixedKeySize   int
	fixedValueSize int
}

// NewNodeEntryReader creates an entry reader over a parsed node. For nodes
// with the fixed-size layout the caller supplies the tree's key and value
// sizes; they are ignored for variable-size nodes.
func NewNodeEntryReader(node *BTreeNodeReader, endian binary.ByteOrder, fixedKeySize, fixedValueSize int) (*NodeEntryReader, error) {
	if endian == nil {
		endian = binary.LittleEndian
	}
	r := &NodeEntryReader{
		node:           node,
		endian:         endian,
		fixedKeySize:   fixedKeySize,
		fixedValueSize: fixedValueSize,
	}
	if node.HasFixedKVSize() && (fixedKeySize <= 0 || fixedValueSize <= 0) {
		return nil, fmt.Errorf("fixed-size node requires key and value sizes: %w",
			types.ErrCorruptTree)
	}

	ts := node.TableSpace()
	data := node.Data()
	if int(ts.Off)+int(ts.Len) > len(data) {
		return nil, fmt.Errorf("table of contents off=%d len=%d exceeds node data %d: %w",
			ts.Off, ts.Len, len(data), types.ErrCorruptTree)
	}
	if want := int(node.KeyCount()) * r.entrySize(); want > int(ts.Len) {
		return nil, fmt.Errorf("%d keys need %d table bytes, descriptor has %d: %w",
			node.KeyCount(), want, ts.Len, types.ErrCorruptTree)
	}
	return r, nil
}

// entrySize returns the size of one table-of-contents entry.
func (r *NodeEntryReader) entrySize() int {
	if r.node.HasFixedKVSize() {
		return types.KvoffSize
	}
	return types.KvlocSize
}

// keyAreaStart returns the offset, within the node's storage area, where the
// key area begins.
func (r *NodeEntryReader) keyAreaStart() int {
	ts := r.node.TableSpace()
	return int(ts.Off) + int(ts.Len)
}

// valueAreaEnd returns the offset, within the node's storage area, where the
// value area ends.
func (r *NodeEntryReader) valueAreaEnd() int {
	end := len(r.node.Data())
	if r.node.IsRoot() {
		end -= types.BtreeInfoSize
	}
	return end
}

// EntryAt returns the key and value byte slices of the entry at the given
// index. For a nonleaf node the value is the child object identifier.
func (r *NodeEntryReader) EntryAt(index int) (key, value []byte, err error) {
	if index < 0 || index >= int(r.node.KeyCount()) {
		return nil, nil, fmt.Errorf("entry index %d of %d: %w",
			index, r.node.KeyCount(), types.ErrCorruptTree)
	}

	data := r.node.Data()
	tocOff := int(r.node.TableSpace().Off) + index*r.entrySize()
	keyStart := r.keyAreaStart()
	valEnd := r.valueAreaEnd()

	if r.node.HasFixedKVSize() {
		kOff := int(r.endian.Uint16(data[tocOff : tocOff+2]))
		vOff := int(r.endian.Uint16(data[tocOff+2 : tocOff+4]))

		// Fixed layouts don't record lengths; the tree's codec supplies
		// them, and a nonleaf value is always an 8-byte child oid.
		keyLen := r.fixedKeySize
		valLen := r.fixedValueSize
		if !r.node.IsLeaf() {
			valLen = 8
		}

		return r.slice(data, keyStart+kOff, keyLen, valEnd-vOff, valLen)
	}

	kOff := int(r.endian.Uint16(data[tocOff : tocOff+2]))
	kLen := int(r.endian.Uint16(data[tocOff+2 : tocOff+4]))
	vOff := int(r.endian.Uint16(data[tocOff+4 : tocOff+6]))
	vLen := int(r.endian.Uint16(data[tocOff+6 : tocOff+8]))

	if !r.node.IsLeaf() {
		vLen = 8
	}

	return r.slice(data, keyStart+kOff, kLen, valEnd-vOff, vLen)
}

// slice bounds-checks and returns the key and value regions.
func (r *NodeEntryReader) slice(data []byte, keyStart, keyLen, valStart, valLen int) ([]byte, []byte, error) {
	if keyStart < 0 || keyLen < 0 || keyStart+keyLen > len(data) {
		return nil, nil, fmt.Errorf("key off=%d len=%d exceeds node data %d: %w",
			keyStart, keyLen, len(data), types.ErrCorruptTree)
	}
	if valStart < 0 || valLen < 0 || valStart+valLen > len(data) {
		return nil, nil, fmt.Errorf("value off=%d len=%d exceeds node data %d: %w",
			valStart, valLen, len(data), types.ErrCorruptTree)
	}
	return data[keyStart : keyStart+keyLen], data[valStart : valStart+valLen], nil
}

// ChildOIDAt returns the child object identifier stored in the value of a
// nonleaf entry.
func (r *NodeEntryReader) ChildOIDAt(index int) (types.OidT, error) {
	if r.node.IsLeaf() {
		return 0, fmt.Errorf("leaf node has no children: %w", types.ErrCorruptTree)
	}
	_, value, err := r.EntryAt(index)
	if err != nil {
		return 0, err
	}
	if len(value) < 8 {
		return 0, fmt.Errorf("child value %d bytes, want 8: %w", len(value), types.ErrCorruptTree)
	}
	return types.OidT(r.endian.Uint64(value[0:8])), nil
}

// BTreeInfoAt parses the btree_info_t footer of a root node.
func (r *NodeEntryReader) BTreeInfoAt() (*types.BtreeInfoT, error) {
	if !r.node.IsRoot() {
		return nil, fmt.Errorf("btree_info_t footer on non-root node: %w", types.ErrCorruptTree)
	}
	data := r.node.Data()
	if len(data) < types.BtreeInfoSize {
		return nil, fmt.Errorf("root storage area %d bytes: %w", len(data), types.ErrTooShort)
	}

	raw := data[len(data)-types.BtreeInfoSize:]
	info := &types.BtreeInfoT{}
	info.BtFixed.BtFlags = r.endian.Uint32(raw[0:4])
	info.BtFixed.BtNodeSize = r.endian.Uint32(raw[4:8])
	info.BtFixed.BtKeySize = r.endian.Uint32(raw[8:12])
	info.BtFixed.BtValSize = r.endian.Uint32(raw[12:16])
	info.BtLongestKey = r.endian.Uint32(raw[16:20])
	info.BtLongestVal = r.endian.Uint32(raw[20:24])
	info.BtKeyCount = r.endian.Uint64(raw[24:32])
	info.BtNodeCount = r.endian.Uint64(raw[32:40])
	return info, nil
}
