package types

// Container (pages 22-43)
// The container superblock is the entry point to the filesystem. Because of
// the copy-on-write design, all versions of it are kept in the checkpoint
// descriptor area, and the most recent valid version is the current one.

// NxMagic is the value of the nx_magic field: 'NXSB' stored little-endian.
// Reference: page 24
const NxMagic uint32 = 'N' | 'X'<<8 | 'S'<<16 | 'B'<<24

// NxMaxFileSystems is the maximum number of volumes that can be stored in a container.
// Reference: page 27
const NxMaxFileSystems = 100

// NxEphInfoCount is the number of entries in the ephemeral information array.
// Reference: page 28
const NxEphInfoCount = 4

// NxNumCounters is the number of entries in the container's counters array.
// Reference: page 31
const NxNumCounters = 32

// Container counter identifiers (page 31)
const (
	// NxCntrObjCksumSet counts objects whose checksum has been computed and stored.
	NxCntrObjCksumSet = 0
	// NxCntrObjCksumFail counts objects whose stored checksum failed verification.
	NxCntrObjCksumFail = 1
)

// NxSuperblockT is a container superblock (nx_superblock_t).
// Reference: page 23
type NxSuperblockT struct {
	// The object's header. (page 23)
	NxO ObjPhysT

	// A number that can be used to verify that you're reading an instance of
	// nx_superblock_t. (page 24)
	NxMagic uint32

	// The logical block size used in the Apple File System container. (page 24)
	NxBlockSize uint32

	// The total number of logical blocks available in the container. (page 24)
	NxBlockCount uint64

	// A bit field of the optional features being used by this container. (page 24)
	NxFeatures uint64

	// A bit field of the read-only compatible features being used by this container. (page 24)
	NxReadonlyCompatibleFeatures uint64

	// A bit field of the backward-incompatible features being used by this container. (page 25)
	NxIncompatibleFeatures uint64

	// The universally unique identifier of this container. (page 25)
	NxUuid UUID

	// The next object identifier to be used for a new ephemeral or virtual object. (page 25)
	NxNextOid OidT

	// The next transaction to be used. (page 25)
	NxNextXid XidT

	// The number of blocks used by the checkpoint descriptor area. (page 25)
	// The highest bit is used as a flag; the remaining bits are the block count.
	NxXpDescBlocks uint32

	// The number of blocks used by the checkpoint data area. (page 25)
	NxXpDataBlocks uint32

	// The base address of the checkpoint descriptor area. (page 26)
	NxXpDescBase Paddr

	// The base address of the checkpoint data area. (page 26)
	NxXpDataBase Paddr

	// The next index to use in the checkpoint descriptor area. (page 26)
	NxXpDescNext uint32

	// The next index to use in the checkpoint data area. (page 26)
	NxXpDataNext uint32

	// The index of the first valid item in the checkpoint descriptor area. (page 26)
	NxXpDescIndex uint32

	// The number of blocks in the checkpoint descriptor area used by the
	// checkpoint that this superblock belongs to. (page 26)
	NxXpDescLen uint32

	// The index of the first valid item in the checkpoint data area. (page 27)
	NxXpDataIndex uint32

	// The number of blocks in the checkpoint data area used by the checkpoint
	// that this superblock belongs to. (page 27)
	NxXpDataLen uint32

	// The ephemeral object identifier for the space manager. (page 27)
	NxSpacemanOid OidT

	// The physical object identifier for the container's object map. (page 27)
	NxOmapOid OidT

	// The ephemeral object identifier for the reaper. (page 27)
	NxReaperOid OidT

	// Reserved for testing. (page 27)
	NxTestType uint32

	// The maximum number of volumes that can be stored in this container. (page 27)
	NxMaxFileSystems uint32

	// An array of virtual object identifiers for volumes. (page 28)
	// Unused slots hold zero and don't represent volumes.
	NxFsOid [NxMaxFileSystems]OidT

	// An array of counters that store information about the container. (page 28)
	NxCounters [NxNumCounters]uint64

	// The physical range of blocks where space will not be allocated. (page 28)
	NxBlockedOutPrange Prange

	// The physical object identifier of a tree used to keep track of objects
	// that must be moved out of blocked-out storage. (page 28)
	NxEvictMappingTreeOid OidT

	// Other container flags. (page 28)
	NxFlags uint64

	// The physical object identifier of the object that contains EFI driver data. (page 29)
	NxEfiJumpstart Paddr

	// The universally unique identifier of the container's Fusion set. (page 29)
	NxFusionUuid UUID

	// The location of the container's keybag. (page 29)
	NxKeylocker Prange

	// An array of fields used in the management of ephemeral data. (page 29)
	NxEphemeralInfo [NxEphInfoCount]uint64

	// Reserved for testing. (page 29)
	NxTestOid OidT

	// The physical object identifier of the Fusion middle tree. (page 30)
	NxFusionMtOid OidT

	// The ephemeral object identifier of the Fusion write-back cache state. (page 30)
	NxFusionWbcOid OidT

	// The blocks used for the Fusion write-back cache area. (page 30)
	NxFusionWbc Prange

	// Reserved. (page 30)
	NxNewestMountedVersion uint64

	// Wrapped media key location. (page 30)
	NxMkbLocker Prange
}

// NxSuperblockSize is the on-disk size, in bytes, of a container superblock.
const NxSuperblockSize = 1408

// NxXpDescBlocksMask extracts the block count from nx_xp_desc_blocks; the
// highest bit flags a checkpoint descriptor area that isn't contiguous.
const NxXpDescBlocksMask uint32 = 0x7fffffff

// CheckpointDescBlocks returns the number of blocks in the checkpoint
// descriptor ring.
func (sb *NxSuperblockT) CheckpointDescBlocks() uint32 {
	return sb.NxXpDescBlocks & NxXpDescBlocksMask
}
