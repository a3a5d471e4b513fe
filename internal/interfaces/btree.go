package interfaces

import (
	"github.com/fsinspect/go-apfs/internal/types"
)

// KeyComparator orders raw B-tree keys. It returns a negative value when a
// sorts before b, zero when the keys are equal, and a positive value
// otherwise.
type KeyComparator func(a, b []byte) int

// ChildResolver translates a nonleaf entry's child object identifier into
// the physical address of the child node.
type ChildResolver func(oid types.OidT) (types.Paddr, error)

// TreeCodec describes the key and value layout of one kind of B-tree so a
// generic traversal can decode its nodes.
type TreeCodec interface {
	// Compare orders two raw keys
	Compare(a, b []byte) int

	// FixedKeySize returns the key size for fixed-layout nodes, or zero
	// if keys have variable size
	FixedKeySize() int

	// FixedValueSize returns the value size for fixed-layout leaf nodes,
	// or zero if values have variable size
	FixedValueSize() int
}

// BTreeEntryVisitor receives one leaf entry during an in-order walk.
// Returning false stops the walk early.
type BTreeEntryVisitor func(key, value []byte) (bool, error)

// BTreeSearcher provides lookup operations over one B-tree.
type BTreeSearcher interface {
	// Lookup finds the value stored under an exactly matching key
	Lookup(key []byte) (value []byte, found bool, err error)

	// LookupLE finds the entry with the largest key that doesn't sort
	// after the given key
	LookupLE(key []byte) (matchKey, value []byte, found bool, err error)

	// Iterate walks leaf entries in ascending key order, starting at the
	// first key that doesn't sort before fromKey; a nil fromKey starts at
	// the smallest key
	Iterate(fromKey []byte, visit BTreeEntryVisitor) error
}

// ObjectResolver maps a virtual object identifier to the physical address
// of the object's most recent version visible at a transaction.
type ObjectResolver interface {
	// Resolve returns the physical location of a virtual object
	Resolve(oid types.OidT, maxXid types.XidT) (types.Paddr, error)
}
