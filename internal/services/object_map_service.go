package services

import (
	"encoding/binary"
	"fmt"

	"github.com/fsinspect/go-apfs/internal/interfaces"
	objectmaps "github.com/fsinspect/go-apfs/internal/parsers/object_maps"
	"github.com/fsinspect/go-apfs/internal/parsers/objects"
	"github.com/fsinspect/go-apfs/internal/types"
)

// omapTreeCodec orders object map keys by object identifier, then by
// transaction identifier, matching the on-disk sort of the mapping tree.
type omapTreeCodec struct {
	endian binary.ByteOrder
}

func (c omapTreeCodec) Compare(a, b []byte) int {
	aOid := c.endian.Uint64(a[0:8])
	bOid := c.endian.Uint64(b[0:8])
	switch {
	case aOid < bOid:
		return -1
	case aOid > bOid:
		return 1
	}

	aXid := c.endian.Uint64(a[8:16])
	bXid := c.endian.Uint64(b[8:16])
	switch {
	case aXid < bXid:
		return -1
	case aXid > bXid:
		return 1
	}
	return 0
}

func (c omapTreeCodec) FixedKeySize() int   { return types.OmapKeySize }
func (c omapTreeCodec) FixedValueSize() int { return types.OmapValSize }

// ObjectMapService resolves virtual object identifiers to physical block
// addresses through one object map's B-tree.
//
// An object map stores every retained version of each object, keyed by
// (object identifier, transaction identifier). Resolution finds the
// version with the largest transaction identifier that doesn't exceed the
// requested one.
type ObjectMapService struct {
	reader *objectmaps.ObjectMapReader
	tree   *BTreeService
	endian binary.ByteOrder
}

// NewObjectMapService reads the object map at the given block address and
// opens its mapping tree. The tree's nodes are addressed physically.
func NewObjectMapService(device interfaces.BlockDeviceReader, endian binary.ByteOrder, omapAddress types.Paddr) (*ObjectMapService, error) {
	if endian == nil {
		endian = binary.LittleEndian
	}

	data, err := device.ReadBlock(omapAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to read object map at %d: %w", omapAddress, err)
	}

	reader, err := objectmaps.NewObjectMapReader(data, endian)
	if err != nil {
		return nil, err
	}

	tree, err := NewBTreeService(device, endian, omapTreeCodec{endian: endian}, nil,
		types.Paddr(reader.TreeOID()))
	if err != nil {
		return nil, err
	}

	return &ObjectMapService{
		reader: reader,
		tree:   tree,
		endian: endian,
	}, nil
}

// ObjectMap returns the reader for the parsed object map block.
func (s *ObjectMapService) ObjectMap() *objectmaps.ObjectMapReader {
	return s.reader
}

// ResolveEntry returns the mapping for the newest version of an object
// that is no newer than maxXid.
func (s *ObjectMapService) ResolveEntry(oid types.OidT, maxXid types.XidT) (*objectmaps.ObjectMapEntry, error) {
	searchKey := make([]byte, types.OmapKeySize)
	s.endian.PutUint64(searchKey[0:8], uint64(oid))
	s.endian.PutUint64(searchKey[8:16], uint64(maxXid))

	foundKey, foundVal, found, err := s.tree.LookupLE(searchKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("object %d at transaction %d: %w", oid, maxXid, types.ErrNotFound)
	}

	entry, err := objectmaps.ParseObjectMapEntry(foundKey, foundVal, s.endian)
	if err != nil {
		return nil, err
	}
	// LookupLE may land on the previous object's versions.
	if entry.ObjectID() != oid {
		return nil, fmt.Errorf("object %d at transaction %d: %w", oid, maxXid, types.ErrNotFound)
	}
	if entry.IsDeleted() {
		return nil, fmt.Errorf("object %d deleted as of transaction %d: %w",
			oid, entry.TransactionID(), types.ErrNotFound)
	}
	return entry, nil
}

// Resolve returns the physical address of the newest version of an object
// that is no newer than maxXid.
func (s *ObjectMapService) Resolve(oid types.OidT, maxXid types.XidT) (types.Paddr, error) {
	entry, err := s.ResolveEntry(oid, maxXid)
	if err != nil {
		return 0, err
	}
	return entry.PhysicalAddress(), nil
}

// ChildResolver adapts the service for traversals of virtually addressed
// trees, pinning resolution to one transaction.
func (s *ObjectMapService) ChildResolver(maxXid types.XidT) interfaces.ChildResolver {
	return func(oid types.OidT) (types.Paddr, error) {
		return s.Resolve(oid, maxXid)
	}
}

// VerifyResolved reads the block an entry points at and checks that its
// header carries the expected object identifier.
func (s *ObjectMapService) VerifyResolved(device interfaces.BlockDeviceReader, entry *objectmaps.ObjectMapEntry) error {
	if !entry.HasHeader() {
		return nil
	}

	data, err := device.ReadBlock(entry.PhysicalAddress())
	if err != nil {
		return err
	}
	header, _, err := objects.ParseObject(data, s.endian)
	if err != nil {
		return err
	}
	if header.OOid != entry.ObjectID() {
		return fmt.Errorf("block %d carries object %d, expected %d: %w",
			entry.PhysicalAddress(), header.OOid, entry.ObjectID(), types.ErrWrongType)
	}
	return nil
}

var _ interfaces.ObjectResolver = (*ObjectMapService)(nil)
