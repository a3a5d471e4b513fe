package services

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fsinspect/go-apfs/internal/interfaces"
	"github.com/fsinspect/go-apfs/internal/types"
)

// DefaultCacheBlocks is the number of blocks a caching device retains when
// no explicit capacity is configured.
const DefaultCacheBlocks = 1024

// CachingBlockDevice wraps a block device with an LRU cache of verified
// raw blocks. Tree walks revisit the same interior nodes constantly, so a
// modest cache removes most repeat reads.
//
// The cache holds single blocks only; multi-block reads pass through.
type CachingBlockDevice struct {
	device interfaces.BlockDevice
	cache  *lru.Cache[types.Paddr, []byte]
}

// NewCachingBlockDevice wraps a device with a cache of up to maxBlocks
// single-block reads.
func NewCachingBlockDevice(device interfaces.BlockDevice, maxBlocks int) (*CachingBlockDevice, error) {
	if maxBlocks <= 0 {
		maxBlocks = DefaultCacheBlocks
	}
	cache, err := lru.New[types.Paddr, []byte](maxBlocks)
	if err != nil {
		return nil, fmt.Errorf("failed to create block cache: %w", err)
	}
	return &CachingBlockDevice{
		device: device,
		cache:  cache,
	}, nil
}

// ReadBlock returns the cached copy of a block, reading through to the
// underlying device on a miss. Callers must not modify the returned slice.
func (d *CachingBlockDevice) ReadBlock(address types.Paddr) ([]byte, error) {
	if data, ok := d.cache.Get(address); ok {
		return data, nil
	}

	data, err := d.device.ReadBlock(address)
	if err != nil {
		return nil, err
	}
	d.cache.Add(address, data)
	return data, nil
}

// ReadBlockRange reads consecutive blocks directly from the underlying
// device.
func (d *CachingBlockDevice) ReadBlockRange(start types.Paddr, count uint32) ([]byte, error) {
	return d.device.ReadBlockRange(start, count)
}

// BlockSize returns the underlying device's block size.
func (d *CachingBlockDevice) BlockSize() uint32 {
	return d.device.BlockSize()
}

// TotalBlocks returns the underlying device's block count.
func (d *CachingBlockDevice) TotalBlocks() uint64 {
	return d.device.TotalBlocks()
}

// IsValidAddress checks whether a block address is on the device.
func (d *CachingBlockDevice) IsValidAddress(address types.Paddr) bool {
	return d.device.IsValidAddress(address)
}

// CanReadRange checks whether a range of blocks can be read.
func (d *CachingBlockDevice) CanReadRange(start types.Paddr, count uint32) bool {
	return d.device.CanReadRange(start, count)
}

// Close empties the cache and closes the underlying device.
func (d *CachingBlockDevice) Close() error {
	d.cache.Purge()
	return d.device.Close()
}

var _ interfaces.BlockDevice = (*CachingBlockDevice)(nil)
