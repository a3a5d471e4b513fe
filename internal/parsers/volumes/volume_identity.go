package volumes

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/fsinspect/go-apfs/internal/types"
)

// VolumeIdentity exposes the naming and role fields of a volume superblock.
type VolumeIdentity struct {
	superblock *types.ApfsSuperblockT
}

// NewVolumeIdentity creates a VolumeIdentity over a parsed superblock.
func NewVolumeIdentity(superblock *types.ApfsSuperblockT) *VolumeIdentity {
	return &VolumeIdentity{
		superblock: superblock,
	}
}

// UUID returns the unique volume identifier.
func (vi *VolumeIdentity) UUID() uuid.UUID {
	return uuid.UUID(vi.superblock.ApfsVolUuid)
}

// GroupUUID returns the identifier of the volume group the volume belongs
// to, or the nil UUID if it belongs to none.
func (vi *VolumeIdentity) GroupUUID() uuid.UUID {
	return uuid.UUID(vi.superblock.ApfsVolumeGroupId)
}

// InVolumeGroup reports whether the volume belongs to a volume group.
func (vi *VolumeIdentity) InVolumeGroup() bool {
	return !vi.superblock.ApfsVolumeGroupId.IsNil()
}

// Name returns the volume name, trimmed of its null terminators.
func (vi *VolumeIdentity) Name() string {
	name := string(vi.superblock.ApfsVolname[:])
	name = strings.TrimRight(name, "\x00 ")

	if utf8.ValidString(name) {
		return name
	}
	return "[Invalid Volume Name]"
}

// Role returns the raw role value.
func (vi *VolumeIdentity) Role() uint16 {
	return vi.superblock.ApfsRole
}

// RoleName provides a human-readable description of the volume's role.
func (vi *VolumeIdentity) RoleName() string {
	switch vi.superblock.ApfsRole {
	case types.ApfsVolRoleNone:
		return "None"
	case types.ApfsVolRoleSystem:
		return "System"
	case types.ApfsVolRoleUser:
		return "User"
	case types.ApfsVolRoleRecovery:
		return "Recovery"
	case types.ApfsVolRoleVm:
		return "Virtual Memory"
	case types.ApfsVolRolePreboot:
		return "Preboot"
	case types.ApfsVolRoleInstaller:
		return "Installer"
	case types.ApfsVolRoleData:
		return "Data"
	case types.ApfsVolRoleBaseband:
		return "Baseband"
	case types.ApfsVolRoleUpdate:
		return "Update"
	case types.ApfsVolRoleXart:
		return "XART (Secure User Data)"
	case types.ApfsVolRoleHardware:
		return "Hardware"
	case types.ApfsVolRoleBackup:
		return "Backup"
	case types.ApfsVolRoleEnterprise:
		return "Enterprise"
	case types.ApfsVolRolePrelogin:
		return "Prelogin"
	default:
		return "Unknown"
	}
}

// Index returns the volume's index in the container's filesystem array.
func (vi *VolumeIdentity) Index() uint32 {
	return vi.superblock.ApfsFsIndex
}
