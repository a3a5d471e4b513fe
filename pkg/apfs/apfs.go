// Package apfs opens Apple File System containers read-only and exposes
// their superblocks, object maps and volumes.
package apfs

import (
	"encoding/binary"
	"fmt"

	"github.com/fsinspect/go-apfs/internal/interfaces"
	"github.com/fsinspect/go-apfs/internal/parsers/container"
	"github.com/fsinspect/go-apfs/internal/services"
	"github.com/fsinspect/go-apfs/internal/types"
)

// DefaultBlockSize is the logical block size assumed before the container
// superblock has been read. Nearly every container uses it.
const DefaultBlockSize = 4096

// Options configures how a container is opened.
type Options struct {
	// ByteOffset is where the container starts within the file, for
	// containers inside a partitioned image. Zero means the file begins
	// with the container.
	ByteOffset int64

	// CacheBlocks is the number of blocks kept in the read cache. Zero
	// selects a default; a negative value disables caching.
	CacheBlocks int
}

// Container is an opened, checkpoint-anchored container.
type Container struct {
	device    interfaces.BlockDevice
	container *services.ContainerService
	volumes   *services.VolumeService
}

// Open opens the container in a disk image or raw device file with default
// options.
func Open(path string) (*Container, error) {
	return OpenWithOptions(path, Options{})
}

// OpenWithOptions opens a container, probing the block size from the
// block-zero superblock before the checkpoint walk.
func OpenWithOptions(path string, opts Options) (*Container, error) {
	blockSize, err := probeBlockSize(path, opts.ByteOffset)
	if err != nil {
		return nil, err
	}

	device, err := openDevice(path, blockSize, opts)
	if err != nil {
		return nil, err
	}

	container, err := services.NewContainerService(device, binary.LittleEndian)
	if err != nil {
		device.Close()
		return nil, err
	}

	return &Container{
		device:    device,
		container: container,
		volumes:   services.NewVolumeService(container, binary.LittleEndian),
	}, nil
}

// probeBlockSize reads the block-zero superblock with the default block
// size to learn the container's real one.
func probeBlockSize(path string, byteOffset int64) (uint32, error) {
	probe, err := services.NewFileBlockDevice(path, DefaultBlockSize, byteOffset)
	if err != nil {
		return 0, err
	}
	defer probe.Close()

	blockZero, err := probe.ReadBlock(0)
	if err != nil {
		return 0, fmt.Errorf("failed to read block zero: %w", err)
	}

	// Only the block size field matters here; the checkpoint walk
	// re-validates the superblock in full.
	blockSize := binary.LittleEndian.Uint32(blockZero[36:40])
	magic := binary.LittleEndian.Uint32(blockZero[32:36])
	if magic != types.NxMagic {
		return 0, fmt.Errorf("block zero magic 0x%08X, want 0x%08X: %w",
			magic, types.NxMagic, types.ErrBadMagic)
	}
	if blockSize == 0 || blockSize%512 != 0 {
		return 0, fmt.Errorf("implausible block size %d in block zero", blockSize)
	}
	return blockSize, nil
}

// openDevice opens the backing file at the probed block size, wrapping it
// in a cache unless caching is disabled.
func openDevice(path string, blockSize uint32, opts Options) (interfaces.BlockDevice, error) {
	file, err := services.NewFileBlockDevice(path, blockSize, opts.ByteOffset)
	if err != nil {
		return nil, err
	}
	if opts.CacheBlocks < 0 {
		return file, nil
	}

	cached, err := services.NewCachingBlockDevice(file, opts.CacheBlocks)
	if err != nil {
		file.Close()
		return nil, err
	}
	return cached, nil
}

// Superblock returns the current checkpoint's container superblock reader.
func (c *Container) Superblock() *container.ContainerSuperblockReader {
	return c.container.Superblock()
}

// TransactionID returns the transaction identifier of the checkpoint the
// container was anchored to when opened.
func (c *Container) TransactionID() types.XidT {
	return c.container.TransactionID()
}

// Volumes lists the container's volumes.
func (c *Container) Volumes() ([]*services.Volume, error) {
	return c.volumes.ListVolumes()
}

// VolumeGroups lists volumes bucketed by volume group.
func (c *Container) VolumeGroups() ([]*services.VolumeGroup, error) {
	vols, err := c.volumes.ListVolumes()
	if err != nil {
		return nil, err
	}
	return c.volumes.GroupVolumes(vols), nil
}

// FindVolume returns the volume with the given name.
func (c *Container) FindVolume(name string) (*services.Volume, error) {
	return c.volumes.FindVolumeByName(name)
}

// Resolve maps a virtual object identifier to its physical address at the
// current checkpoint.
func (c *Container) Resolve(oid types.OidT) (types.Paddr, error) {
	return c.container.ObjectMap().Resolve(oid, c.container.TransactionID())
}

// Close releases the backing device.
func (c *Container) Close() error {
	return c.device.Close()
}
