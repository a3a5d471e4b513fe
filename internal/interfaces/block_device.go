package interfaces

import (
	"io"

	"github.com/fsinspect/go-apfs/internal/types"
)

// BlockDeviceReader provides methods for reading from block devices
type BlockDeviceReader interface {
	// ReadBlock reads a single block at the specified address
	ReadBlock(address types.Paddr) ([]byte, error)

	// ReadBlockRange reads multiple consecutive blocks
	ReadBlockRange(start types.Paddr, count uint32) ([]byte, error)

	// BlockSize returns the size of a single block in bytes
	BlockSize() uint32

	// TotalBlocks returns the total number of blocks on the device
	TotalBlocks() uint64

	// IsValidAddress checks if a block address is valid
	IsValidAddress(address types.Paddr) bool

	// CanReadRange checks if a range of blocks can be read
	CanReadRange(start types.Paddr, count uint32) bool
}

// BlockDevice is a readable device that must be closed after use
type BlockDevice interface {
	BlockDeviceReader
	io.Closer
}
