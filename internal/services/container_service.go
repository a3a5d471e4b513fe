package services

import (
	"encoding/binary"
	"fmt"

	"github.com/fsinspect/go-apfs/internal/interfaces"
	"github.com/fsinspect/go-apfs/internal/parsers/container"
	"github.com/fsinspect/go-apfs/internal/types"
)

// ContainerService opens a container on a block device and anchors all
// further reads to its current checkpoint.
//
// Opening performs the standard mount-time walk. The block-zero superblock
// is parsed for the descriptor area's location, the checkpoint ring is
// swept for the newest valid superblock, and the container's object map is
// opened from that superblock.
type ContainerService struct {
	device     interfaces.BlockDeviceReader
	endian     binary.ByteOrder
	current    *container.ContainerSuperblockReader
	checkpoint *CheckpointCandidate
	omap       *ObjectMapService
}

// NewContainerService reads block zero, locates the current checkpoint,
// and opens the container's object map.
func NewContainerService(device interfaces.BlockDeviceReader, endian binary.ByteOrder) (*ContainerService, error) {
	if device == nil {
		return nil, fmt.Errorf("block device cannot be nil")
	}
	if endian == nil {
		endian = binary.LittleEndian
	}

	blockZeroData, err := device.ReadBlock(0)
	if err != nil {
		return nil, fmt.Errorf("failed to read block zero: %w", err)
	}
	blockZero, err := container.NewContainerSuperblockReader(blockZeroData, endian)
	if err != nil {
		return nil, fmt.Errorf("block zero: %w", err)
	}

	discovery := NewCheckpointDiscoveryService(device, endian)
	candidate, err := discovery.FindLatestValidSuperblock(blockZero)
	if err != nil {
		return nil, err
	}
	current := candidate.Reader

	omap, err := NewObjectMapService(device, endian, types.Paddr(current.ObjectMapOID()))
	if err != nil {
		return nil, fmt.Errorf("container object map: %w", err)
	}

	return &ContainerService{
		device:     device,
		endian:     endian,
		current:    current,
		checkpoint: candidate,
		omap:       omap,
	}, nil
}

// Superblock returns the reader for the current checkpoint's superblock.
func (s *ContainerService) Superblock() *container.ContainerSuperblockReader {
	return s.current
}

// Checkpoint returns where the current superblock was found.
func (s *ContainerService) Checkpoint() *CheckpointCandidate {
	return s.checkpoint
}

// TransactionID returns the transaction identifier of the current
// checkpoint.
func (s *ContainerService) TransactionID() types.XidT {
	return s.current.TransactionID()
}

// ObjectMap returns the container-level object map service.
func (s *ContainerService) ObjectMap() *ObjectMapService {
	return s.omap
}

// Device returns the block device the container was opened on.
func (s *ContainerService) Device() interfaces.BlockDeviceReader {
	return s.device
}

// ResolveVirtualObject reads and verifies the block holding the newest
// version of a virtual object visible at the current checkpoint.
func (s *ContainerService) ResolveVirtualObject(oid types.OidT) ([]byte, error) {
	entry, err := s.omap.ResolveEntry(oid, s.TransactionID())
	if err != nil {
		return nil, err
	}
	data, err := s.device.ReadBlock(entry.PhysicalAddress())
	if err != nil {
		return nil, err
	}
	return data, nil
}
