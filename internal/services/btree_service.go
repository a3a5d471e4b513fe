package services

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/fsinspect/go-apfs/internal/interfaces"
	"github.com/fsinspect/go-apfs/internal/parsers/btrees"
	"github.com/fsinspect/go-apfs/internal/types"
)

// BTreeService walks one on-disk B-tree. The key ordering and entry layout
// come from the tree's codec, and nonleaf child identifiers are translated
// to block addresses by the tree's child resolver, so the same traversal
// serves physically rooted trees and virtually rooted ones.
//
// Every node is checksum-verified when read. Nodes whose entries are out
// of order, whose levels don't decrease by one per generation, or whose
// offsets point outside the node are reported as corrupt rather than
// trusted.
type BTreeService struct {
	device  interfaces.BlockDeviceReader
	endian  binary.ByteOrder
	codec   interfaces.TreeCodec
	resolve interfaces.ChildResolver

	rootAddress types.Paddr
}

// NewBTreeService creates a traversal service for the tree rooted at the
// given block address. A nil resolver addresses children physically, with
// the object identifier used directly as a block address.
func NewBTreeService(device interfaces.BlockDeviceReader, endian binary.ByteOrder, codec interfaces.TreeCodec, resolve interfaces.ChildResolver, rootAddress types.Paddr) (*BTreeService, error) {
	if device == nil {
		return nil, fmt.Errorf("block device cannot be nil")
	}
	if codec == nil {
		return nil, fmt.Errorf("tree codec cannot be nil")
	}
	if endian == nil {
		endian = binary.LittleEndian
	}
	if resolve == nil {
		resolve = func(oid types.OidT) (types.Paddr, error) {
			return types.Paddr(oid), nil
		}
	}
	return &BTreeService{
		device:      device,
		endian:      endian,
		codec:       codec,
		resolve:     resolve,
		rootAddress: rootAddress,
	}, nil
}

// loadedNode pairs a parsed node with its entry reader.
type loadedNode struct {
	node    *btrees.BTreeNodeReader
	entries *btrees.NodeEntryReader
}

// loadNode reads, verifies and parses the node at a block address.
func (s *BTreeService) loadNode(address types.Paddr) (*loadedNode, error) {
	data, err := s.device.ReadBlock(address)
	if err != nil {
		return nil, fmt.Errorf("failed to read node at %d: %w", address, err)
	}

	node, err := btrees.NewBTreeNodeReader(data, s.endian)
	if err != nil {
		return nil, fmt.Errorf("failed to parse node at %d: %w", address, err)
	}

	entries, err := btrees.NewNodeEntryReader(node, s.endian,
		s.codec.FixedKeySize(), s.codec.FixedValueSize())
	if err != nil {
		return nil, fmt.Errorf("node at %d: %w", address, err)
	}

	return &loadedNode{node: node, entries: entries}, nil
}

// loadChild resolves and loads the child at a nonleaf entry, checking that
// its level is exactly one below the parent's.
func (s *BTreeService) loadChild(parent *loadedNode, index int) (*loadedNode, error) {
	oid, err := parent.entries.ChildOIDAt(index)
	if err != nil {
		return nil, err
	}

	address, err := s.resolve(oid)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve child %d: %w", oid, err)
	}

	child, err := s.loadNode(address)
	if err != nil {
		return nil, err
	}
	if child.node.Level()+1 != parent.node.Level() {
		return nil, fmt.Errorf("child at %d has level %d under parent level %d: %w",
			address, child.node.Level(), parent.node.Level(), types.ErrCorruptTree)
	}
	return child, nil
}

// searchNode returns the index of the last entry whose key doesn't sort
// after the target, or -1 if the target sorts before every entry.
func (s *BTreeService) searchNode(n *loadedNode, key []byte) (int, error) {
	count := int(n.node.KeyCount())

	var keyErr error
	// Index of the first entry sorting strictly after the target.
	idx := sort.Search(count, func(i int) bool {
		if keyErr != nil {
			return false
		}
		k, _, err := n.entries.EntryAt(i)
		if err != nil {
			keyErr = err
			return false
		}
		return s.codec.Compare(k, key) > 0
	})
	if keyErr != nil {
		return 0, keyErr
	}
	return idx - 1, nil
}

// descendToLeaf walks from the root to the leaf that would hold the given
// key, following the last child whose first key doesn't sort after it.
// The returned index is the candidate entry in the leaf, or -1 when the key
// sorts before everything in the tree.
func (s *BTreeService) descendToLeaf(key []byte) (*loadedNode, int, error) {
	current, err := s.loadNode(s.rootAddress)
	if err != nil {
		return nil, 0, err
	}
	if !current.node.IsRoot() {
		return nil, 0, fmt.Errorf("node at %d is not a root: %w", s.rootAddress, types.ErrCorruptTree)
	}

	for !current.node.IsLeaf() {
		idx, err := s.searchNode(current, key)
		if err != nil {
			return nil, 0, err
		}
		if idx < 0 {
			// The key sorts before the whole tree; nothing at or below it.
			return current, -1, nil
		}
		current, err = s.loadChild(current, idx)
		if err != nil {
			return nil, 0, err
		}
	}

	idx, err := s.searchNode(current, key)
	if err != nil {
		return nil, 0, err
	}
	return current, idx, nil
}

// Lookup finds the value stored under an exactly matching key. A missing
// key is reported through the found flag, not as an error.
func (s *BTreeService) Lookup(key []byte) ([]byte, bool, error) {
	leaf, idx, err := s.descendToLeaf(key)
	if err != nil {
		return nil, false, err
	}
	if idx < 0 || !leaf.node.IsLeaf() {
		return nil, false, nil
	}

	k, v, err := leaf.entries.EntryAt(idx)
	if err != nil {
		return nil, false, err
	}
	if s.codec.Compare(k, key) != 0 {
		return nil, false, nil
	}
	return v, true, nil
}

// LookupLE finds the entry with the largest key that doesn't sort after
// the given key.
func (s *BTreeService) LookupLE(key []byte) ([]byte, []byte, bool, error) {
	leaf, idx, err := s.descendToLeaf(key)
	if err != nil {
		return nil, nil, false, err
	}
	if idx < 0 || !leaf.node.IsLeaf() {
		return nil, nil, false, nil
	}

	k, v, err := leaf.entries.EntryAt(idx)
	if err != nil {
		return nil, nil, false, err
	}
	return k, v, true, nil
}

// Iterate walks leaf entries in ascending key order, starting at the first
// key that doesn't sort before fromKey; a nil fromKey starts at the
// smallest key. The visitor returning false stops the walk.
func (s *BTreeService) Iterate(fromKey []byte, visit interfaces.BTreeEntryVisitor) error {
	root, err := s.loadNode(s.rootAddress)
	if err != nil {
		return err
	}
	if !root.node.IsRoot() {
		return fmt.Errorf("node at %d is not a root: %w", s.rootAddress, types.ErrCorruptTree)
	}

	walk := &treeWalk{service: s, fromKey: fromKey, visit: visit}
	if err := walk.node(root); err != nil && err != errWalkDone {
		return err
	}
	return nil
}

// errWalkDone unwinds an in-order walk the visitor has stopped.
var errWalkDone = fmt.Errorf("walk stopped")

// treeWalk carries the state of one in-order traversal.
type treeWalk struct {
	service *BTreeService
	fromKey []byte
	visit   interfaces.BTreeEntryVisitor

	lastKey []byte
	started bool
}

func (w *treeWalk) node(n *loadedNode) error {
	count := int(n.node.KeyCount())

	if n.node.IsLeaf() {
		for i := 0; i < count; i++ {
			key, value, err := n.entries.EntryAt(i)
			if err != nil {
				return err
			}
			if w.fromKey != nil && w.service.codec.Compare(key, w.fromKey) < 0 {
				continue
			}
			if w.started {
				if c := w.service.codec.Compare(w.lastKey, key); c >= 0 {
					return fmt.Errorf("keys out of order in leaf: %w", types.ErrCorruptTree)
				}
			}
			w.started = true
			w.lastKey = append(w.lastKey[:0], key...)

			keep, err := w.visit(key, value)
			if err != nil {
				return err
			}
			if !keep {
				return errWalkDone
			}
		}
		return nil
	}

	// Children left of the one that could hold fromKey contain only
	// smaller keys and can be skipped wholesale.
	start := 0
	if w.fromKey != nil {
		idx, err := w.service.searchNode(n, w.fromKey)
		if err != nil {
			return err
		}
		if idx > 0 {
			start = idx
		}
	}

	for i := start; i < count; i++ {
		child, err := w.service.loadChild(n, i)
		if err != nil {
			return err
		}
		if err := w.node(child); err != nil {
			return err
		}
	}
	return nil
}
