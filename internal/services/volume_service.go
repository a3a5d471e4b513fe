package services

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fsinspect/go-apfs/internal/parsers/volumes"
	"github.com/fsinspect/go-apfs/internal/types"
)

// Volume pairs a parsed volume superblock with its identity accessors and
// the slot it occupies in the container's filesystem array.
type Volume struct {
	Reader   *volumes.VolumeSuperblockReader
	Identity *volumes.VolumeIdentity
	Slot     int
	OID      types.OidT
}

// VolumeGroup is a set of volumes sharing one volume group identifier,
// such as a paired system and data volume.
type VolumeGroup struct {
	GroupUUID uuid.UUID
	Volumes   []*Volume
}

// VolumeService enumerates the volumes of an opened container.
type VolumeService struct {
	container *ContainerService
	endian    binary.ByteOrder
}

// NewVolumeService creates a volume service over an opened container.
func NewVolumeService(container *ContainerService, endian binary.ByteOrder) *VolumeService {
	if endian == nil {
		endian = binary.LittleEndian
	}
	return &VolumeService{
		container: container,
		endian:    endian,
	}
}

// ListVolumes resolves every occupied filesystem slot through the
// container's object map and parses the volume superblocks. Empty slots
// are skipped, so the result holds exactly the mounted-on-disk volumes.
// A slot whose object has been deleted from the object map is skipped as
// well; any other failure aborts the scan.
func (s *VolumeService) ListVolumes() ([]*Volume, error) {
	sb := s.container.Superblock()
	maxSlots := int(sb.MaxFileSystems())

	var found []*Volume
	for slot := 0; slot < maxSlots; slot++ {
		if !sb.IsVolumeSlotOccupied(slot) {
			continue
		}
		oid := sb.Superblock().NxFsOid[slot]

		volume, err := s.readVolume(slot, oid)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("volume slot %d: %w", slot, err)
		}
		found = append(found, volume)
	}
	return found, nil
}

// readVolume resolves one filesystem object identifier and parses the
// volume superblock it points at.
func (s *VolumeService) readVolume(slot int, oid types.OidT) (*Volume, error) {
	data, err := s.container.ResolveVirtualObject(oid)
	if err != nil {
		return nil, err
	}

	reader, err := volumes.NewVolumeSuperblockReader(data, s.endian)
	if err != nil {
		return nil, err
	}

	return &Volume{
		Reader:   reader,
		Identity: volumes.NewVolumeIdentity(reader.Superblock()),
		Slot:     slot,
		OID:      oid,
	}, nil
}

// GroupVolumes buckets volumes by their volume group identifier. Volumes
// that belong to no group each form a group of one keyed by their own
// volume identifier.
func (s *VolumeService) GroupVolumes(vols []*Volume) []*VolumeGroup {
	var groups []*VolumeGroup
	byUUID := make(map[uuid.UUID]*VolumeGroup)

	for _, v := range vols {
		key := v.Identity.GroupUUID()
		if !v.Identity.InVolumeGroup() {
			groups = append(groups, &VolumeGroup{
				GroupUUID: v.Identity.UUID(),
				Volumes:   []*Volume{v},
			})
			continue
		}

		group, ok := byUUID[key]
		if !ok {
			group = &VolumeGroup{GroupUUID: key}
			byUUID[key] = group
			groups = append(groups, group)
		}
		group.Volumes = append(group.Volumes, v)
	}
	return groups
}

// FindVolumeByName returns the first volume whose name matches exactly.
func (s *VolumeService) FindVolumeByName(name string) (*Volume, error) {
	vols, err := s.ListVolumes()
	if err != nil {
		return nil, err
	}
	for _, v := range vols {
		if v.Identity.Name() == name {
			return v, nil
		}
	}
	return nil, fmt.Errorf("volume %q: %w", name, types.ErrNotFound)
}
