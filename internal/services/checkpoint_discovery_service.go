package services

import (
	"encoding/binary"
	"fmt"

	"github.com/fsinspect/go-apfs/internal/interfaces"
	"github.com/fsinspect/go-apfs/internal/parsers/container"
	"github.com/fsinspect/go-apfs/internal/parsers/objects"
	"github.com/fsinspect/go-apfs/internal/types"
)

// CheckpointDiscoveryService locates the most recent valid container
// superblock in the checkpoint descriptor area.
//
// The block-zero superblock is only a hint left by the last clean unmount:
// it names the descriptor area but may be stale. The authoritative copy is
// the checkpoint superblock with the highest transaction identifier that
// still passes validation.
type CheckpointDiscoveryService struct {
	device interfaces.BlockDeviceReader
	endian binary.ByteOrder
}

// NewCheckpointDiscoveryService creates a discovery service over a device.
func NewCheckpointDiscoveryService(device interfaces.BlockDeviceReader, endian binary.ByteOrder) *CheckpointDiscoveryService {
	if endian == nil {
		endian = binary.LittleEndian
	}
	return &CheckpointDiscoveryService{
		device: device,
		endian: endian,
	}
}

// CheckpointCandidate is a validated superblock found in the descriptor
// ring.
type CheckpointCandidate struct {
	Reader        *container.ContainerSuperblockReader
	TransactionID types.XidT
	BlockAddress  types.Paddr
}

// FindLatestValidSuperblock sweeps the checkpoint descriptor ring named by
// the block-zero superblock and returns the valid superblock with the
// highest transaction identifier. Blocks that fail their checksum, carry
// the wrong object type, or carry the wrong magic are skipped; checkpoint
// map blocks between superblocks are expected and ignored.
func (cds *CheckpointDiscoveryService) FindLatestValidSuperblock(blockZero *container.ContainerSuperblockReader) (*CheckpointCandidate, error) {
	descBase := blockZero.CheckpointDescriptorBase()
	descBlocks := blockZero.CheckpointDescriptorBlocks()
	if descBlocks == 0 {
		return nil, fmt.Errorf("checkpoint descriptor area is empty: %w", types.ErrNoValidCheckpoint)
	}

	// Start just before the next-write slot and walk the ring backward, so
	// the newest checkpoint is examined first.
	next := blockZero.CheckpointDescriptorNext()
	var best *CheckpointCandidate
	for i := uint32(0); i < descBlocks; i++ {
		slot := (next + descBlocks - 1 - i) % descBlocks
		addr := descBase + types.Paddr(slot)

		data, err := cds.device.ReadBlock(addr)
		if err != nil {
			continue
		}

		candidate := cds.examineBlock(data, addr)
		if candidate == nil {
			continue
		}
		if best == nil || candidate.TransactionID > best.TransactionID {
			best = candidate
		}
	}

	if best == nil {
		return nil, fmt.Errorf("no valid superblock in %d descriptor blocks at %d: %w",
			descBlocks, descBase, types.ErrNoValidCheckpoint)
	}
	return best, nil
}

// examineBlock returns a candidate if the block is a well-formed container
// superblock, or nil if it is anything else.
func (cds *CheckpointDiscoveryService) examineBlock(data []byte, addr types.Paddr) *CheckpointCandidate {
	header, _, err := objects.ParseObject(data, cds.endian)
	if err != nil {
		return nil
	}
	// Descriptor blocks alternate between checkpoint maps and superblocks.
	if header.Type() != types.ObjectTypeNxSuperblock {
		return nil
	}

	reader, err := container.NewContainerSuperblockReader(data, cds.endian)
	if err != nil {
		return nil
	}

	return &CheckpointCandidate{
		Reader:        reader,
		TransactionID: reader.TransactionID(),
		BlockAddress:  addr,
	}
}
