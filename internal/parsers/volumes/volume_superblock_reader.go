package volumes

import (
	"encoding/binary"
	"fmt"

	"github.com/fsinspect/go-apfs/internal/parsers/objects"
	"github.com/fsinspect/go-apfs/internal/types"
)

// VolumeSuperblockReader parses and provides access to a volume superblock.
type VolumeSuperblockReader struct {
	superblock *types.ApfsSuperblockT
	endian     binary.ByteOrder
}

// NewVolumeSuperblockReader verifies and parses a volume superblock from a
// raw block. The checksum, object type and magic number are validated before
// the reader is returned.
func NewVolumeSuperblockReader(data []byte, endian binary.ByteOrder) (*VolumeSuperblockReader, error) {
	if endian == nil {
		endian = binary.LittleEndian
	}

	header, _, err := objects.ParseObject(data, endian)
	if err != nil {
		return nil, fmt.Errorf("failed to parse volume superblock block: %w", err)
	}
	if err := objects.ExpectType(header, types.ObjectTypeFs); err != nil {
		return nil, err
	}

	sb, err := parseVolumeSuperblock(data, header, endian)
	if err != nil {
		return nil, err
	}

	return &VolumeSuperblockReader{
		superblock: sb,
		endian:     endian,
	}, nil
}

// parseVolumeSuperblock decodes the apfs_superblock_t fields that follow the
// object header.
func parseVolumeSuperblock(data []byte, header *types.ObjPhysT, endian binary.ByteOrder) (*types.ApfsSuperblockT, error) {
	if len(data) < types.ApfsSuperblockSize {
		return nil, fmt.Errorf("volume superblock needs %d bytes, got %d: %w",
			types.ApfsSuperblockSize, len(data), types.ErrTooShort)
	}

	sb := &types.ApfsSuperblockT{ApfsO: *header}

	sb.ApfsMagic = endian.Uint32(data[32:36])
	if sb.ApfsMagic != types.ApfsMagic {
		return nil, fmt.Errorf("volume superblock magic 0x%08X, want 0x%08X: %w",
			sb.ApfsMagic, types.ApfsMagic, types.ErrBadMagic)
	}

	sb.ApfsFsIndex = endian.Uint32(data[36:40])
	sb.ApfsFeatures = endian.Uint64(data[40:48])
	sb.ApfsReadonlyCompatibleFeatures = endian.Uint64(data[48:56])
	sb.ApfsIncompatibleFeatures = endian.Uint64(data[56:64])
	sb.ApfsUnmountTime = endian.Uint64(data[64:72])
	sb.ApfsFsReserveBlockCount = endian.Uint64(data[72:80])
	sb.ApfsFsQuotaBlockCount = endian.Uint64(data[80:88])
	sb.ApfsFsAllocCount = endian.Uint64(data[88:96])

	sb.ApfsMetaCrypto = types.WrappedMetaCryptoStateT{
		MajorVersion:    endian.Uint16(data[96:98]),
		MinorVersion:    endian.Uint16(data[98:100]),
		Cpflags:         endian.Uint32(data[100:104]),
		PersistentClass: endian.Uint32(data[104:108]),
		KeyOsVersion:    endian.Uint32(data[108:112]),
		KeyRevision:     endian.Uint16(data[112:114]),
		Unused:          endian.Uint16(data[114:116]),
	}

	sb.ApfsRootTreeType = endian.Uint32(data[116:120])
	sb.ApfsExtentrefTreeType = endian.Uint32(data[120:124])
	sb.ApfsSnapMetaTreeType = endian.Uint32(data[124:128])
	sb.ApfsOmapOid = types.OidT(endian.Uint64(data[128:136]))
	sb.ApfsRootTreeOid = types.OidT(endian.Uint64(data[136:144]))
	sb.ApfsExtentrefTreeOid = types.OidT(endian.Uint64(data[144:152]))
	sb.ApfsSnapMetaTreeOid = types.OidT(endian.Uint64(data[152:160]))
	sb.ApfsRevertToXid = types.XidT(endian.Uint64(data[160:168]))
	sb.ApfsRevertToSblockOid = types.OidT(endian.Uint64(data[168:176]))
	sb.ApfsNextObjId = endian.Uint64(data[176:184])
	sb.ApfsNumFiles = endian.Uint64(data[184:192])
	sb.ApfsNumDirectories = endian.Uint64(data[192:200])
	sb.ApfsNumSymlinks = endian.Uint64(data[200:208])
	sb.ApfsNumOtherFsobjects = endian.Uint64(data[208:216])
	sb.ApfsNumSnapshots = endian.Uint64(data[216:224])
	sb.ApfsTotalBlocksAlloced = endian.Uint64(data[224:232])
	sb.ApfsTotalBlocksFreed = endian.Uint64(data[232:240])
	copy(sb.ApfsVolUuid[:], data[240:256])
	sb.ApfsLastModTime = endian.Uint64(data[256:264])
	sb.ApfsFsFlags = endian.Uint64(data[264:272])

	sb.ApfsFormattedBy = parseModifiedBy(data[272:320], endian)
	for i := 0; i < types.ApfsMaxHist; i++ {
		start := 320 + i*types.ApfsModifiedBySize
		sb.ApfsModifiedBy[i] = parseModifiedBy(data[start:start+types.ApfsModifiedBySize], endian)
	}

	copy(sb.ApfsVolname[:], data[704:960])
	sb.ApfsNextDocId = endian.Uint32(data[960:964])
	sb.ApfsRole = endian.Uint16(data[964:966])
	sb.Reserved = endian.Uint16(data[966:968])
	sb.ApfsRootToXid = types.XidT(endian.Uint64(data[968:976]))
	sb.ApfsErStateOid = types.OidT(endian.Uint64(data[976:984]))
	sb.ApfsCloneinfoIdEpoch = endian.Uint64(data[984:992])
	sb.ApfsCloneinfoXid = endian.Uint64(data[992:1000])
	sb.ApfsSnapMetaExtOid = types.OidT(endian.Uint64(data[1000:1008]))
	copy(sb.ApfsVolumeGroupId[:], data[1008:1024])
	sb.ApfsIntegrityMetaOid = types.OidT(endian.Uint64(data[1024:1032]))
	sb.ApfsFextTreeOid = types.OidT(endian.Uint64(data[1032:1040]))
	sb.ApfsFextTreeType = endian.Uint32(data[1040:1044])
	sb.ReservedType = endian.Uint32(data[1044:1048])
	sb.ReservedOid = types.OidT(endian.Uint64(data[1048:1056]))

	return sb, nil
}

// parseModifiedBy decodes an apfs_modified_by_t record.
func parseModifiedBy(data []byte, endian binary.ByteOrder) types.ApfsModifiedByT {
	var mb types.ApfsModifiedByT
	copy(mb.Id[:], data[0:types.ApfsModifiedNamelen])
	mb.Timestamp = endian.Uint64(data[32:40])
	mb.LastXid = types.XidT(endian.Uint64(data[40:48]))
	return mb
}

// Superblock returns the parsed volume superblock structure.
func (r *VolumeSuperblockReader) Superblock() *types.ApfsSuperblockT {
	return r.superblock
}

// Magic returns the volume superblock's magic number.
func (r *VolumeSuperblockReader) Magic() uint32 {
	return r.superblock.ApfsMagic
}

// ObjectMapOID returns the physical object identifier of the volume's
// object map.
func (r *VolumeSuperblockReader) ObjectMapOID() types.OidT {
	return r.superblock.ApfsOmapOid
}

// RootTreeOID returns the virtual object identifier of the volume's root
// file-system tree.
func (r *VolumeSuperblockReader) RootTreeOID() types.OidT {
	return r.superblock.ApfsRootTreeOid
}

// Features returns the volume's optional feature flags.
func (r *VolumeSuperblockReader) Features() uint64 {
	return r.superblock.ApfsFeatures
}

// IncompatibleFeatures returns the volume's backward-incompatible feature
// flags.
func (r *VolumeSuperblockReader) IncompatibleFeatures() uint64 {
	return r.superblock.ApfsIncompatibleFeatures
}

// Flags returns the volume's flags.
func (r *VolumeSuperblockReader) Flags() uint64 {
	return r.superblock.ApfsFsFlags
}

// IsUnencrypted reports whether the volume is stored without encryption.
func (r *VolumeSuperblockReader) IsUnencrypted() bool {
	return r.superblock.ApfsFsFlags&types.ApfsFsUnencrypted != 0
}

// FileCount returns the number of regular files on the volume.
func (r *VolumeSuperblockReader) FileCount() uint64 {
	return r.superblock.ApfsNumFiles
}

// DirectoryCount returns the number of directories on the volume.
func (r *VolumeSuperblockReader) DirectoryCount() uint64 {
	return r.superblock.ApfsNumDirectories
}

// SnapshotCount returns the number of snapshots of the volume.
func (r *VolumeSuperblockReader) SnapshotCount() uint64 {
	return r.superblock.ApfsNumSnapshots
}
