// Package types implements the on-disk data structures of the Apple File
// System physical object layer, following the official Apple File System
// Reference (June 2020).
package types

// General-Purpose Types (page 9)
// Basic types that are used in a variety of contexts, and aren't associated
// with any particular functionality.

// Paddr represents a physical address of an on-disk block.
// Negative numbers aren't valid addresses.
// This value is modeled as a signed integer to match IOKit.
// Reference: page 9
type Paddr int64

// Validate checks if the physical address is valid.
func (p Paddr) Validate() bool {
	return p >= 0
}

// Prange represents a range of physical addresses.
// Reference: page 9
type Prange struct {
	// The first block in the range. (page 9)
	PrStartPaddr Paddr
	// The number of blocks in the range. (page 9)
	PrBlockCount uint64
}

// Validate checks that the range describes an allocated, addressable extent.
// A count of zero never describes an allocated range.
func (r Prange) Validate() bool {
	return r.PrStartPaddr.Validate() && r.PrBlockCount > 0
}

// UUID represents a universally unique identifier.
// Reference: page 9
type UUID [16]byte

// IsNil reports whether the identifier is the all-zero UUID.
func (u UUID) IsNil() bool {
	return u == UUID{}
}
