package container

import (
	"encoding/binary"
	"fmt"

	"github.com/fsinspect/go-apfs/internal/parsers/objects"
	"github.com/fsinspect/go-apfs/internal/types"
)

// ContainerSuperblockReader parses and provides access to a container
// superblock (nx_superblock_t).
type ContainerSuperblockReader struct {
	superblock *types.NxSuperblockT
	endian     binary.ByteOrder
}

// NewContainerSuperblockReader parses a container superblock from a raw
// block. The block must pass the object checksum gate, carry the container
// superblock object type, and carry the NXSB magic.
func NewContainerSuperblockReader(data []byte, endian binary.ByteOrder) (*ContainerSuperblockReader, error) {
	if endian == nil {
		endian = binary.LittleEndian
	}

	hdr, _, err := objects.ParseObject(data, endian)
	if err != nil {
		return nil, fmt.Errorf("container superblock: %w", err)
	}
	if err := objects.ExpectType(hdr, types.ObjectTypeNxSuperblock); err != nil {
		return nil, fmt.Errorf("container superblock: %w", err)
	}

	sb, err := parseContainerSuperblock(data, endian)
	if err != nil {
		return nil, fmt.Errorf("container superblock: %w", err)
	}
	sb.NxO = *hdr

	if sb.NxMagic != types.NxMagic {
		return nil, fmt.Errorf("container superblock magic 0x%08x, want 0x%08x: %w",
			sb.NxMagic, types.NxMagic, types.ErrBadMagic)
	}

	return &ContainerSuperblockReader{superblock: sb, endian: endian}, nil
}

// parseContainerSuperblock decodes the fields that follow the object header.
func parseContainerSuperblock(data []byte, endian binary.ByteOrder) (*types.NxSuperblockT, error) {
	if len(data) < types.NxSuperblockSize {
		return nil, fmt.Errorf("need %d bytes, got %d: %w",
			types.NxSuperblockSize, len(data), types.ErrTooShort)
	}

	sb := &types.NxSuperblockT{}

	sb.NxMagic = endian.Uint32(data[32:36])
	sb.NxBlockSize = endian.Uint32(data[36:40])
	sb.NxBlockCount = endian.Uint64(data[40:48])
	sb.NxFeatures = endian.Uint64(data[48:56])
	sb.NxReadonlyCompatibleFeatures = endian.Uint64(data[56:64])
	sb.NxIncompatibleFeatures = endian.Uint64(data[64:72])
	copy(sb.NxUuid[:], data[72:88])
	sb.NxNextOid = types.OidT(endian.Uint64(data[88:96]))
	sb.NxNextXid = types.XidT(endian.Uint64(data[96:104]))

	// Checkpoint ring geometry.
	sb.NxXpDescBlocks = endian.Uint32(data[104:108])
	sb.NxXpDataBlocks = endian.Uint32(data[108:112])
	sb.NxXpDescBase = types.Paddr(endian.Uint64(data[112:120]))
	sb.NxXpDataBase = types.Paddr(endian.Uint64(data[120:128]))
	sb.NxXpDescNext = endian.Uint32(data[128:132])
	sb.NxXpDataNext = endian.Uint32(data[132:136])
	sb.NxXpDescIndex = endian.Uint32(data[136:140])
	sb.NxXpDescLen = endian.Uint32(data[140:144])
	sb.NxXpDataIndex = endian.Uint32(data[144:148])
	sb.NxXpDataLen = endian.Uint32(data[148:152])

	sb.NxSpacemanOid = types.OidT(endian.Uint64(data[152:160]))
	sb.NxOmapOid = types.OidT(endian.Uint64(data[160:168]))
	sb.NxReaperOid = types.OidT(endian.Uint64(data[168:176]))

	sb.NxTestType = endian.Uint32(data[176:180])
	sb.NxMaxFileSystems = endian.Uint32(data[180:184])

	offset := 184
	for i := 0; i < types.NxMaxFileSystems; i++ {
		sb.NxFsOid[i] = types.OidT(endian.Uint64(data[offset : offset+8]))
		offset += 8
	}

	for i := 0; i < types.NxNumCounters; i++ {
		sb.NxCounters[i] = endian.Uint64(data[offset : offset+8])
		offset += 8
	}

	sb.NxBlockedOutPrange.PrStartPaddr = types.Paddr(endian.Uint64(data[offset : offset+8]))
	sb.NxBlockedOutPrange.PrBlockCount = endian.Uint64(data[offset+8 : offset+16])
	offset += 16

	sb.NxEvictMappingTreeOid = types.OidT(endian.Uint64(data[offset : offset+8]))
	offset += 8
	sb.NxFlags = endian.Uint64(data[offset : offset+8])
	offset += 8
	sb.NxEfiJumpstart = types.Paddr(endian.Uint64(data[offset : offset+8]))
	offset += 8

	copy(sb.NxFusionUuid[:], data[offset:offset+16])
	offset += 16

	sb.NxKeylocker.PrStartPaddr = types.Paddr(endian.Uint64(data[offset : offset+8]))
	sb.NxKeylocker.PrBlockCount = endian.Uint64(data[offset+8 : offset+16])
	offset += 16

	for i := 0; i < types.NxEphInfoCount; i++ {
		sb.NxEphemeralInfo[i] = endian.Uint64(data[offset : offset+8])
		offset += 8
	}

	sb.NxTestOid = types.OidT(endian.Uint64(data[offset : offset+8]))
	offset += 8
	sb.NxFusionMtOid = types.OidT(endian.Uint64(data[offset : offset+8]))
	offset += 8
	sb.NxFusionWbcOid = types.OidT(endian.Uint64(data[offset : offset+8]))
	offset += 8

	sb.NxFusionWbc.PrStartPaddr = types.Paddr(endian.Uint64(data[offset : offset+8]))
	sb.NxFusionWbc.PrBlockCount = endian.Uint64(data[offset+8 : offset+16])
	offset += 16

	sb.NxNewestMountedVersion = endian.Uint64(data[offset : offset+8])
	offset += 8

	sb.NxMkbLocker.PrStartPaddr = types.Paddr(endian.Uint64(data[offset : offset+8]))
	sb.NxMkbLocker.PrBlockCount = endian.Uint64(data[offset+8 : offset+16])

	return sb, nil
}

// Superblock returns the parsed structure.
func (csr *ContainerSuperblockReader) Superblock() *types.NxSuperblockT {
	return csr.superblock
}

// Magic returns the magic number of the container superblock.
func (csr *ContainerSuperblockReader) Magic() uint32 {
	return csr.superblock.NxMagic
}

// BlockSize returns the logical block size used in the container.
func (csr *ContainerSuperblockReader) BlockSize() uint32 {
	return csr.superblock.NxBlockSize
}

// BlockCount returns the total number of logical blocks in the container.
func (csr *ContainerSuperblockReader) BlockCount() uint64 {
	return csr.superblock.NxBlockCount
}

// UUID returns the universally unique identifier of the container.
func (csr *ContainerSuperblockReader) UUID() types.UUID {
	return csr.superblock.NxUuid
}

// TransactionID returns the transaction this superblock was committed in.
func (csr *ContainerSuperblockReader) TransactionID() types.XidT {
	return csr.superblock.NxO.OXid
}

// NextObjectID returns the next object identifier to be assigned.
func (csr *ContainerSuperblockReader) NextObjectID() types.OidT {
	return csr.superblock.NxNextOid
}

// NextTransactionID returns the next transaction to be used.
func (csr *ContainerSuperblockReader) NextTransactionID() types.XidT {
	return csr.superblock.NxNextXid
}

// ObjectMapOID returns the physical object identifier of the container's object map.
func (csr *ContainerSuperblockReader) ObjectMapOID() types.OidT {
	return csr.superblock.NxOmapOid
}

// SpaceManagerOID returns the ephemeral object identifier of the space manager.
func (csr *ContainerSuperblockReader) SpaceManagerOID() types.OidT {
	return csr.superblock.NxSpacemanOid
}

// ReaperOID returns the ephemeral object identifier of the reaper.
func (csr *ContainerSuperblockReader) ReaperOID() types.OidT {
	return csr.superblock.NxReaperOid
}

// CheckpointDescriptorBase returns the base address of the checkpoint
// descriptor ring.
func (csr *ContainerSuperblockReader) CheckpointDescriptorBase() types.Paddr {
	return csr.superblock.NxXpDescBase
}

// CheckpointDescriptorBlocks returns the number of blocks in the checkpoint
// descriptor ring.
func (csr *ContainerSuperblockReader) CheckpointDescriptorBlocks() uint32 {
	return csr.superblock.CheckpointDescBlocks()
}

// CheckpointDescriptorNext returns the next write index of the checkpoint
// descriptor ring.
func (csr *ContainerSuperblockReader) CheckpointDescriptorNext() uint32 {
	return csr.superblock.NxXpDescNext
}

// MaxFileSystems returns the maximum number of volumes this container holds.
func (csr *ContainerSuperblockReader) MaxFileSystems() uint32 {
	return csr.superblock.NxMaxFileSystems
}

// IsVolumeSlotOccupied reports whether the given volume slot holds a volume.
// A zero entry is the unused-slot convention, not a valid object identifier.
func (csr *ContainerSuperblockReader) IsVolumeSlotOccupied(index int) bool {
	if index < 0 || index >= types.NxMaxFileSystems {
		return false
	}
	return csr.superblock.NxFsOid[index] != types.OidInvalid
}

// VolumeOIDs returns the virtual object identifiers of every occupied volume
// slot, in slot order. Zero slots are skipped.
func (csr *ContainerSuperblockReader) VolumeOIDs() []types.OidT {
	var oids []types.OidT
	for i := 0; i < types.NxMaxFileSystems; i++ {
		if csr.IsVolumeSlotOccupied(i) {
			oids = append(oids, csr.superblock.NxFsOid[i])
		}
	}
	return oids
}

// Counter returns the container counter with the given identifier.
func (csr *ContainerSuperblockReader) Counter(id int) uint64 {
	if id < 0 || id >= types.NxNumCounters {
		return 0
	}
	return csr.superblock.NxCounters[id]
}

// Flags returns the container's flags.
func (csr *ContainerSuperblockReader) Flags() uint64 {
	return csr.superblock.NxFlags
}

// Features returns the container's optional feature bits.
func (csr *ContainerSuperblockReader) Features() uint64 {
	return csr.superblock.NxFeatures
}
