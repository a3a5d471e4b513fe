package services

import (
	"fmt"
	"io"
	"os"

	"github.com/fsinspect/go-apfs/internal/interfaces"
	"github.com/fsinspect/go-apfs/internal/types"
)

// FileBlockDevice reads fixed-size blocks from a disk image or raw device
// file. A nonzero start offset lets a container that begins partway into
// the file (a partition inside a whole-disk image) be addressed from block
// zero.
type FileBlockDevice struct {
	file        *os.File
	startOffset int64
	blockSize   uint32
	totalBlocks uint64
}

// NewFileBlockDevice opens a file and exposes it as a block device.
func NewFileBlockDevice(path string, blockSize uint32, startOffset int64) (*FileBlockDevice, error) {
	if path == "" {
		return nil, fmt.Errorf("device path cannot be empty")
	}
	if blockSize == 0 {
		return nil, fmt.Errorf("block size cannot be zero")
	}
	if startOffset < 0 {
		return nil, fmt.Errorf("start offset cannot be negative")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat device: %w", err)
	}

	size := info.Size() - startOffset
	if size < int64(blockSize) {
		file.Close()
		return nil, fmt.Errorf("device holds %d bytes past offset %d, smaller than one %d-byte block",
			size, startOffset, blockSize)
	}

	return &FileBlockDevice{
		file:        file,
		startOffset: startOffset,
		blockSize:   blockSize,
		totalBlocks: uint64(size) / uint64(blockSize),
	}, nil
}

// ReadBlock reads a single block at the specified address.
func (d *FileBlockDevice) ReadBlock(address types.Paddr) ([]byte, error) {
	return d.ReadBlockRange(address, 1)
}

// ReadBlockRange reads count consecutive blocks starting at the given
// address.
func (d *FileBlockDevice) ReadBlockRange(start types.Paddr, count uint32) ([]byte, error) {
	if count == 0 {
		return nil, fmt.Errorf("block count cannot be zero")
	}
	if !d.CanReadRange(start, count) {
		return nil, fmt.Errorf("blocks [%d, %d) are outside the device's %d blocks",
			start, int64(start)+int64(count), d.totalBlocks)
	}

	buf := make([]byte, uint64(count)*uint64(d.blockSize))
	offset := d.startOffset + int64(start)*int64(d.blockSize)
	n, err := d.file.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read %d blocks at %d: %w", count, start, err)
	}
	if n < len(buf) {
		return nil, fmt.Errorf("incomplete read at block %d: got %d bytes, want %d", start, n, len(buf))
	}
	return buf, nil
}

// BlockSize returns the size of a single block in bytes.
func (d *FileBlockDevice) BlockSize() uint32 {
	return d.blockSize
}

// TotalBlocks returns the number of blocks on the device.
func (d *FileBlockDevice) TotalBlocks() uint64 {
	return d.totalBlocks
}

// IsValidAddress checks whether a block address is on the device.
func (d *FileBlockDevice) IsValidAddress(address types.Paddr) bool {
	return address >= 0 && uint64(address) < d.totalBlocks
}

// CanReadRange checks whether count blocks starting at start are all on
// the device.
func (d *FileBlockDevice) CanReadRange(start types.Paddr, count uint32) bool {
	if start < 0 || count == 0 {
		return false
	}
	return uint64(start)+uint64(count) <= d.totalBlocks
}

// Close releases the underlying file.
func (d *FileBlockDevice) Close() error {
	return d.file.Close()
}

var _ interfaces.BlockDevice = (*FileBlockDevice)(nil)
