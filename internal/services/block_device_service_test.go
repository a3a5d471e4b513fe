package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsinspect/go-apfs/internal/types"
)

// writeImage creates a temp file of count blocks where every block is
// filled with its own index.
func writeImage(t *testing.T, blockSize, count int, leadingJunk int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "container.img")
	data := make([]byte, leadingJunk+blockSize*count)
	for b := 0; b < count; b++ {
		for i := 0; i < blockSize; i++ {
			data[leadingJunk+b*blockSize+i] = byte(b)
		}
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestFileBlockDeviceReads(t *testing.T) {
	path := writeImage(t, 512, 8, 0)

	device, err := NewFileBlockDevice(path, 512, 0)
	require.NoError(t, err)
	defer device.Close()

	assert.Equal(t, uint32(512), device.BlockSize())
	assert.Equal(t, uint64(8), device.TotalBlocks())

	block, err := device.ReadBlock(3)
	require.NoError(t, err)
	assert.Equal(t, byte(3), block[0])
	assert.Len(t, block, 512)

	span, err := device.ReadBlockRange(2, 3)
	require.NoError(t, err)
	assert.Len(t, span, 3*512)
	assert.Equal(t, byte(2), span[0])
	assert.Equal(t, byte(4), span[2*512])
}

func TestFileBlockDeviceStartOffset(t *testing.T) {
	path := writeImage(t, 512, 4, 100)

	device, err := NewFileBlockDevice(path, 512, 100)
	require.NoError(t, err)
	defer device.Close()

	block, err := device.ReadBlock(0)
	require.NoError(t, err)
	assert.Equal(t, byte(0), block[0], "block zero starts past the offset")
	assert.Equal(t, uint64(4), device.TotalBlocks())
}

func TestFileBlockDeviceBounds(t *testing.T) {
	path := writeImage(t, 512, 4, 0)

	device, err := NewFileBlockDevice(path, 512, 0)
	require.NoError(t, err)
	defer device.Close()

	assert.True(t, device.IsValidAddress(3))
	assert.False(t, device.IsValidAddress(4))
	assert.False(t, device.IsValidAddress(-1))
	assert.True(t, device.CanReadRange(2, 2))
	assert.False(t, device.CanReadRange(3, 2))

	_, err = device.ReadBlock(4)
	assert.Error(t, err)
	_, err = device.ReadBlockRange(3, 2)
	assert.Error(t, err)
}

func TestFileBlockDeviceRejectsBadArguments(t *testing.T) {
	path := writeImage(t, 512, 4, 0)

	_, err := NewFileBlockDevice("", 512, 0)
	assert.Error(t, err)
	_, err = NewFileBlockDevice(path, 0, 0)
	assert.Error(t, err)
	_, err = NewFileBlockDevice(path, 512, -1)
	assert.Error(t, err)
	_, err = NewFileBlockDevice(path, 512, 4096)
	assert.Error(t, err, "offset past the last whole block")
}

func TestCachingBlockDeviceServesRepeats(t *testing.T) {
	inner := newMemoryDevice(64)
	inner.put(5, stamp(t, func() []byte {
		data := make([]byte, testBlockSize)
		writeHeader(data, 5, 1, types.ObjectTypeCheckpointMap|types.ObjPhysical, 0)
		return data
	}()))

	device, err := NewCachingBlockDevice(inner, 8)
	require.NoError(t, err)

	first, err := device.ReadBlock(5)
	require.NoError(t, err)

	// Remove the backing block; the cache must still serve it.
	delete(inner.blocks, 5)
	second, err := device.ReadBlock(5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCachingBlockDevicePassesThroughMetadata(t *testing.T) {
	inner := newMemoryDevice(64)
	device, err := NewCachingBlockDevice(inner, 0)
	require.NoError(t, err)

	assert.Equal(t, uint32(testBlockSize), device.BlockSize())
	assert.Equal(t, uint64(64), device.TotalBlocks())
	assert.True(t, device.IsValidAddress(63))
	assert.False(t, device.IsValidAddress(64))
}
