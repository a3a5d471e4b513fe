package services

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsinspect/go-apfs/internal/types"
)

// omapKey builds a raw 16-byte search key.
func omapKey(oid, xid uint64) []byte {
	key := make([]byte, types.OmapKeySize)
	binary.LittleEndian.PutUint64(key[0:8], oid)
	binary.LittleEndian.PutUint64(key[8:16], xid)
	return key
}

// buildTwoLevelTree installs a root with two leaf children on the device
// and returns the root's address. Physical addressing: a node's object
// identifier doubles as its block address.
func buildTwoLevelTree(t *testing.T, device *memoryDevice) types.Paddr {
	t.Helper()

	leftEntries := []omapEntry{
		{oid: 10, xid: 1, paddr: 1010},
		{oid: 10, xid: 5, paddr: 1050},
		{oid: 11, xid: 2, paddr: 1102},
	}
	rightEntries := []omapEntry{
		{oid: 20, xid: 3, paddr: 2003},
		{oid: 30, xid: 1, paddr: 3001},
		{oid: 30, xid: 9, flags: types.OmapValDeleted},
	}

	device.put(501, buildMappingNode(t, nodeSpec{oid: 501, level: 0, keys: leftEntries}))
	device.put(502, buildMappingNode(t, nodeSpec{oid: 502, level: 0, keys: rightEntries}))
	device.put(500, buildMappingNode(t, nodeSpec{
		oid:   500,
		root:  true,
		level: 1,
		keys: []omapEntry{
			{oid: 10, xid: 1},
			{oid: 20, xid: 3},
		},
		childs: []types.OidT{501, 502},
	}))
	return 500
}

func newTestTree(t *testing.T, device *memoryDevice, root types.Paddr) *BTreeService {
	t.Helper()
	tree, err := NewBTreeService(device, binary.LittleEndian,
		omapTreeCodec{endian: binary.LittleEndian}, nil, root)
	require.NoError(t, err)
	return tree
}

func TestBTreeLookupExact(t *testing.T) {
	device := newMemoryDevice(4096)
	tree := newTestTree(t, device, buildTwoLevelTree(t, device))

	value, found, err := tree.Lookup(omapKey(20, 3))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(2003), binary.LittleEndian.Uint64(value[8:16]))
}

func TestBTreeLookupMissIsNotAnError(t *testing.T) {
	device := newMemoryDevice(4096)
	tree := newTestTree(t, device, buildTwoLevelTree(t, device))

	// Key between stored keys.
	_, found, err := tree.Lookup(omapKey(15, 1))
	require.NoError(t, err)
	assert.False(t, found)

	// Key before the whole tree.
	_, found, err = tree.Lookup(omapKey(1, 1))
	require.NoError(t, err)
	assert.False(t, found)

	// Key after the whole tree.
	_, found, err = tree.Lookup(omapKey(99, 99))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBTreeLookupLE(t *testing.T) {
	device := newMemoryDevice(4096)
	tree := newTestTree(t, device, buildTwoLevelTree(t, device))

	// Falls between (10,1) and (10,5): the floor is (10,1).
	key, value, found, err := tree.LookupLE(omapKey(10, 3))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(10), binary.LittleEndian.Uint64(key[0:8]))
	assert.Equal(t, uint64(1), binary.LittleEndian.Uint64(key[8:16]))
	assert.Equal(t, uint64(1010), binary.LittleEndian.Uint64(value[8:16]))

	// The floor can live in an earlier leaf than the descent target.
	key, _, found, err = tree.LookupLE(omapKey(19, 9))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(11), binary.LittleEndian.Uint64(key[0:8]))

	// Nothing sorts at or below (1,1).
	_, _, found, err = tree.LookupLE(omapKey(1, 1))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBTreeIterateAscending(t *testing.T) {
	device := newMemoryDevice(4096)
	tree := newTestTree(t, device, buildTwoLevelTree(t, device))

	var visited []uint64
	err := tree.Iterate(nil, func(key, value []byte) (bool, error) {
		visited = append(visited,
			binary.LittleEndian.Uint64(key[0:8])<<8|binary.LittleEndian.Uint64(key[8:16]))
		return true, nil
	})
	require.NoError(t, err)

	want := []uint64{10<<8 | 1, 10<<8 | 5, 11<<8 | 2, 20<<8 | 3, 30<<8 | 1, 30<<8 | 9}
	assert.Equal(t, want, visited, "entries arrive in ascending key order")
}

func TestBTreeIterateFromKey(t *testing.T) {
	device := newMemoryDevice(4096)
	tree := newTestTree(t, device, buildTwoLevelTree(t, device))

	var first []byte
	err := tree.Iterate(omapKey(11, 0), func(key, value []byte) (bool, error) {
		first = append([]byte(nil), key...)
		return false, nil
	})
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, uint64(11), binary.LittleEndian.Uint64(first[0:8]),
		"iteration starts at the first key at or after fromKey")
}

func TestBTreeIterateEarlyStop(t *testing.T) {
	device := newMemoryDevice(4096)
	tree := newTestTree(t, device, buildTwoLevelTree(t, device))

	count := 0
	err := tree.Iterate(nil, func(key, value []byte) (bool, error) {
		count++
		return count < 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestBTreeIterateDetectsDisorder(t *testing.T) {
	device := newMemoryDevice(4096)

	// Leaf with keys deliberately out of order.
	device.put(600, buildMappingNode(t, nodeSpec{
		oid:  600,
		root: true,
		keys: []omapEntry{
			{oid: 9, xid: 1},
			{oid: 5, xid: 1},
		},
	}))
	tree := newTestTree(t, device, 600)

	err := tree.Iterate(nil, func(key, value []byte) (bool, error) { return true, nil })
	assert.ErrorIs(t, err, types.ErrCorruptTree)
}

func TestBTreeIterateDetectsDuplicates(t *testing.T) {
	device := newMemoryDevice(4096)

	device.put(600, buildMappingNode(t, nodeSpec{
		oid:  600,
		root: true,
		keys: []omapEntry{
			{oid: 5, xid: 1},
			{oid: 5, xid: 1},
		},
	}))
	tree := newTestTree(t, device, 600)

	err := tree.Iterate(nil, func(key, value []byte) (bool, error) { return true, nil })
	assert.ErrorIs(t, err, types.ErrCorruptTree)
}

func TestBTreeRejectsLevelSkew(t *testing.T) {
	device := newMemoryDevice(4096)

	// Child claims level 1 under a level-1 parent.
	device.put(501, buildMappingNode(t, nodeSpec{
		oid:    501,
		level:  1,
		keys:   []omapEntry{{oid: 10, xid: 1}},
		childs: []types.OidT{502},
	}))
	device.put(500, buildMappingNode(t, nodeSpec{
		oid:    500,
		root:   true,
		level:  1,
		keys:   []omapEntry{{oid: 10, xid: 1}},
		childs: []types.OidT{501},
	}))
	tree := newTestTree(t, device, 500)

	_, _, err := tree.Lookup(omapKey(10, 1))
	assert.ErrorIs(t, err, types.ErrCorruptTree)
}

func TestBTreeRejectsNonRootEntry(t *testing.T) {
	device := newMemoryDevice(4096)
	device.put(700, buildMappingNode(t, nodeSpec{
		oid:  700,
		keys: []omapEntry{{oid: 1, xid: 1}},
	}))
	tree := newTestTree(t, device, 700)

	_, _, err := tree.Lookup(omapKey(1, 1))
	assert.ErrorIs(t, err, types.ErrCorruptTree)
}

func TestBTreeSingleNodeTree(t *testing.T) {
	device := newMemoryDevice(4096)
	device.put(800, buildMappingNode(t, nodeSpec{
		oid:  800,
		root: true,
		keys: []omapEntry{
			{oid: 3, xid: 1, paddr: 31},
			{oid: 4, xid: 2, paddr: 42},
		},
	}))
	tree := newTestTree(t, device, 800)

	value, found, err := tree.Lookup(omapKey(4, 2))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(42), binary.LittleEndian.Uint64(value[8:16]))
}
