package types

// Volumes (pages 51-76)
// A volume superblock is located through the container's object map, and in
// turn locates the volume's own object map and filesystem trees.

// ApfsMagic is the value of the apfs_magic field: 'APSB' stored little-endian.
// Reference: page 55
const ApfsMagic uint32 = 'A' | 'P'<<8 | 'S'<<16 | 'B'<<24

// ApfsMaxHist is the number of entries in the modification history.
// Reference: page 55
const ApfsMaxHist = 8

// ApfsVolnameLen is the length, in bytes, of the volume name buffer.
// Reference: page 55
const ApfsVolnameLen = 256

// ApfsModifiedNamelen is the length, in bytes, of the software identifier in
// a modification record.
// Reference: page 62
const ApfsModifiedNamelen = 32

// WrappedMetaCryptoStateT holds information about the volume's encryption
// state for its metadata (wrapped_meta_crypto_state_t).
// Reference: page 107
type WrappedMetaCryptoStateT struct {
	// The major version of this structure. (page 107)
	MajorVersion uint16

	// The minor version of this structure. (page 107)
	MinorVersion uint16

	// The encryption state's flags. (page 107)
	Cpflags uint32

	// The protection class associated with the metadata. (page 108)
	PersistentClass uint32

	// The version of the OS that created this structure. (page 108)
	KeyOsVersion uint32

	// The version of the encryption key. (page 108)
	KeyRevision uint16

	// Reserved, padding. (page 108)
	Unused uint16
}

// WrappedMetaCryptoStateSize is the on-disk size, in bytes, of a
// wrapped_meta_crypto_state_t structure.
const WrappedMetaCryptoStateSize = 20

// ApfsModifiedByT contains information about a software component that
// modified the volume (apfs_modified_by_t).
// Reference: page 62
type ApfsModifiedByT struct {
	// A string that identifies the software. (page 62)
	Id [ApfsModifiedNamelen]byte

	// The time the modification happened. (page 62)
	Timestamp uint64

	// The last transaction identifier that's part of the modification. (page 62)
	LastXid XidT
}

// ApfsModifiedBySize is the on-disk size, in bytes, of an apfs_modified_by_t record.
const ApfsModifiedBySize = 48

// ApfsSuperblockT is a volume superblock (apfs_superblock_t).
// Reference: page 52
type ApfsSuperblockT struct {
	// The object's header. (page 54)
	ApfsO ObjPhysT

	// A number that can be used to verify that you're reading an instance of
	// apfs_superblock_t. (page 55)
	ApfsMagic uint32

	// The index of the object identifier for this volume's file system in the
	// container's array of file systems. (page 55)
	ApfsFsIndex uint32

	// A bit field of the optional features being used by this volume. (page 55)
	ApfsFeatures uint64

	// A bit field of the read-only compatible features being used by this volume. (page 55)
	ApfsReadonlyCompatibleFeatures uint64

	// A bit field of the backward-incompatible features being used by this volume. (page 56)
	ApfsIncompatibleFeatures uint64

	// The time that this volume was last unmounted. (page 56)
	ApfsUnmountTime uint64

	// The number of blocks that have been reserved for this volume to allocate. (page 56)
	ApfsFsReserveBlockCount uint64

	// The maximum number of blocks that this volume can allocate. (page 56)
	ApfsFsQuotaBlockCount uint64

	// The number of blocks currently allocated for this volume's file system. (page 56)
	ApfsFsAllocCount uint64

	// Information about the key used to encrypt metadata for this volume. (page 56)
	ApfsMetaCrypto WrappedMetaCryptoStateT

	// The type of the root file-system tree. (page 57)
	ApfsRootTreeType uint32

	// The type of the extent-reference tree. (page 57)
	ApfsExtentrefTreeType uint32

	// The type of the snapshot metadata tree. (page 57)
	ApfsSnapMetaTreeType uint32

	// The physical object identifier of the volume's object map. (page 57)
	ApfsOmapOid OidT

	// The virtual object identifier of the root file-system tree. (page 57)
	ApfsRootTreeOid OidT

	// The physical object identifier of the extent-reference tree. (page 57)
	ApfsExtentrefTreeOid OidT

	// The virtual object identifier of the snapshot metadata tree. (page 58)
	ApfsSnapMetaTreeOid OidT

	// The transaction identifier of a snapshot that the volume will revert to. (page 58)
	ApfsRevertToXid XidT

	// The physical object identifier of a volume superblock that the volume
	// will revert to. (page 58)
	ApfsRevertToSblockOid OidT

	// The next identifier that will be assigned to a file-system object in this volume. (page 58)
	ApfsNextObjId uint64

	// The number of regular files in this volume. (page 58)
	ApfsNumFiles uint64

	// The number of directories in this volume. (page 59)
	ApfsNumDirectories uint64

	// The number of symbolic links in this volume. (page 59)
	ApfsNumSymlinks uint64

	// The number of other files in this volume. (page 59)
	ApfsNumOtherFsobjects uint64

	// The number of snapshots in this volume. (page 59)
	ApfsNumSnapshots uint64

	// The total number of blocks that have been allocated by this volume. (page 59)
	ApfsTotalBlocksAlloced uint64

	// The total number of blocks that have been freed by this volume. (page 59)
	ApfsTotalBlocksFreed uint64

	// The universally unique identifier for this volume. (page 59)
	ApfsVolUuid UUID

	// The time that this volume was last modified. (page 60)
	ApfsLastModTime uint64

	// The volume's flags. (page 60)
	ApfsFsFlags uint64

	// Information about the software that created this volume. (page 60)
	ApfsFormattedBy ApfsModifiedByT

	// Information about the software that has modified this volume. (page 60)
	ApfsModifiedBy [ApfsMaxHist]ApfsModifiedByT

	// The name of the volume, represented as a null-terminated UTF-8 string. (page 60)
	ApfsVolname [ApfsVolnameLen]byte

	// The next document identifier that will be assigned. (page 60)
	ApfsNextDocId uint32

	// The role of this volume within the container. (page 61)
	ApfsRole uint16

	// Reserved. (page 61)
	Reserved uint16

	// The transaction identifier of the snapshot to root from, or zero to
	// root normally. (page 61)
	ApfsRootToXid XidT

	// The current state of encryption or decryption rolling. (page 61)
	ApfsErStateOid OidT

	// The largest object identifier used by this volume at the time
	// INODE_WAS_EVER_CLONED started storing valid information. (page 61)
	ApfsCloneinfoIdEpoch uint64

	// A transaction identifier used with apfs_cloneinfo_id_epoch. (page 62)
	ApfsCloneinfoXid uint64

	// The virtual object identifier of the extended snapshot metadata object. (page 62)
	ApfsSnapMetaExtOid OidT

	// The volume group the volume belongs to, or nil if it belongs to none. (page 62)
	ApfsVolumeGroupId UUID

	// The virtual object identifier of the integrity metadata object. (page 62)
	ApfsIntegrityMetaOid OidT

	// The virtual object identifier of the file extent tree. (page 62)
	ApfsFextTreeOid OidT

	// The type of the file extent tree. (page 62)
	ApfsFextTreeType uint32

	// Reserved. (page 62)
	ReservedType uint32

	// Reserved. (page 62)
	ReservedOid OidT
}

// ApfsSuperblockSize is the on-disk size, in bytes, of a volume superblock.
const ApfsSuperblockSize = 1056

// Volume Roles (pages 72-74)

const (
	// ApfsVolRoleNone indicates the volume has no defined role.
	ApfsVolRoleNone uint16 = 0x0000
	// ApfsVolRoleSystem indicates the volume contains a root directory for the system.
	ApfsVolRoleSystem uint16 = 0x0001
	// ApfsVolRoleUser indicates the volume contains users' home directories.
	ApfsVolRoleUser uint16 = 0x0002
	// ApfsVolRoleRecovery indicates the volume contains a recovery system.
	ApfsVolRoleRecovery uint16 = 0x0004
	// ApfsVolRoleVm indicates the volume is used as swap space for virtual memory.
	ApfsVolRoleVm uint16 = 0x0008
	// ApfsVolRolePreboot indicates the volume contains files needed to boot from
	// an encrypted volume.
	ApfsVolRolePreboot uint16 = 0x0010
	// ApfsVolRoleInstaller indicates the volume is used by the OS installer.
	ApfsVolRoleInstaller uint16 = 0x0020
)

// ApfsVolumeEnumShift is the number of bits the extended role values are
// shifted by.
const ApfsVolumeEnumShift = 6

const (
	// ApfsVolRoleData indicates the volume contains mutable data.
	ApfsVolRoleData uint16 = 1 << ApfsVolumeEnumShift
	// ApfsVolRoleBaseband indicates the volume is used by the radio firmware.
	ApfsVolRoleBaseband uint16 = 2 << ApfsVolumeEnumShift
	// ApfsVolRoleUpdate indicates the volume is used by the software update mechanism.
	ApfsVolRoleUpdate uint16 = 3 << ApfsVolumeEnumShift
	// ApfsVolRoleXart indicates the volume is used to manage OS access to secure user data.
	ApfsVolRoleXart uint16 = 4 << ApfsVolumeEnumShift
	// ApfsVolRoleHardware indicates the volume is used for firmware data.
	ApfsVolRoleHardware uint16 = 5 << ApfsVolumeEnumShift
	// ApfsVolRoleBackup indicates the volume is used by Time Machine to store backups.
	ApfsVolRoleBackup uint16 = 6 << ApfsVolumeEnumShift
	// ApfsVolRoleEnterprise indicates the volume is used to store enterprise-managed data.
	ApfsVolRoleEnterprise uint16 = 9 << ApfsVolumeEnumShift
	// ApfsVolRolePrelogin indicates the volume is used to store system data used before login.
	ApfsVolRolePrelogin uint16 = 11 << ApfsVolumeEnumShift
)

// Volume Flags (pages 63-64)

// ApfsFsUnencrypted indicates the volume isn't encrypted.
// Reference: page 63
const ApfsFsUnencrypted uint64 = 0x00000001

// ApfsFsOnekey indicates the volume's files are all encrypted with the
// volume encryption key.
// Reference: page 63
const ApfsFsOnekey uint64 = 0x00000008

// ApfsFsSpilledover indicates the volume has run out of allocated space on
// the solid-state drive.
// Reference: page 64
const ApfsFsSpilledover uint64 = 0x00000010
