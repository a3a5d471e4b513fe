package objectmaps

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsinspect/go-apfs/internal/parsers/objects"
	"github.com/fsinspect/go-apfs/internal/types"
)

// buildObjectMapBlock assembles a checksummed omap_phys_t block.
func buildObjectMapBlock(t *testing.T, oid types.OidT, treeOid types.OidT, flags uint32) []byte {
	t.Helper()

	data := make([]byte, 4096)
	binary.LittleEndian.PutUint64(data[8:16], uint64(oid))
	binary.LittleEndian.PutUint64(data[16:24], 44)
	binary.LittleEndian.PutUint32(data[24:28], types.ObjectTypeOmap|types.ObjPhysical)

	binary.LittleEndian.PutUint32(data[32:36], flags)
	binary.LittleEndian.PutUint32(data[36:40], 2) // snapshots
	binary.LittleEndian.PutUint32(data[40:44], types.ObjectTypeBtree|types.ObjPhysical)
	binary.LittleEndian.PutUint32(data[44:48], types.ObjectTypeBtree|types.ObjPhysical)
	binary.LittleEndian.PutUint64(data[48:56], uint64(treeOid))
	binary.LittleEndian.PutUint64(data[56:64], 0)
	binary.LittleEndian.PutUint64(data[64:72], 40) // most recent snapshot
	binary.LittleEndian.PutUint64(data[72:80], 0)
	binary.LittleEndian.PutUint64(data[80:88], 0)

	cksum, err := objects.ComputeObjectChecksum(data)
	require.NoError(t, err)
	binary.LittleEndian.PutUint64(data[0:8], cksum)
	return data
}

func TestObjectMapReader(t *testing.T) {
	data := buildObjectMapBlock(t, 1057, 512, types.OmapManuallyManaged)

	reader, err := NewObjectMapReader(data, binary.LittleEndian)
	require.NoError(t, err)

	assert.Equal(t, types.OidT(512), reader.TreeOID())
	assert.Equal(t, uint32(2), reader.SnapshotCount())
	assert.Equal(t, types.XidT(40), reader.MostRecentSnapshotXID())
	assert.True(t, reader.IsManuallyManaged())
	assert.Equal(t, types.ObjectTypeBtree|types.ObjPhysical, reader.TreeType())
}

func TestObjectMapReaderRejectsWrongType(t *testing.T) {
	data := buildObjectMapBlock(t, 1057, 512, 0)
	binary.LittleEndian.PutUint32(data[24:28], types.ObjectTypeFs|types.ObjVirtual)
	cksum, err := objects.ComputeObjectChecksum(data)
	require.NoError(t, err)
	binary.LittleEndian.PutUint64(data[0:8], cksum)

	_, err = NewObjectMapReader(data, binary.LittleEndian)
	assert.ErrorIs(t, err, types.ErrWrongType)
}

func TestObjectMapReaderChecksumGate(t *testing.T) {
	data := buildObjectMapBlock(t, 1057, 512, 0)
	data[50] ^= 0x04

	_, err := NewObjectMapReader(data, binary.LittleEndian)
	assert.ErrorIs(t, err, types.ErrChecksumMismatch)
}

func TestParseObjectMapEntry(t *testing.T) {
	key := make([]byte, types.OmapKeySize)
	binary.LittleEndian.PutUint64(key[0:8], 99)
	binary.LittleEndian.PutUint64(key[8:16], 7)

	value := make([]byte, types.OmapValSize)
	binary.LittleEndian.PutUint32(value[0:4], types.OmapValEncrypted)
	binary.LittleEndian.PutUint32(value[4:8], 4096)
	binary.LittleEndian.PutUint64(value[8:16], 123456)

	entry, err := ParseObjectMapEntry(key, value, binary.LittleEndian)
	require.NoError(t, err)

	assert.Equal(t, types.OidT(99), entry.ObjectID())
	assert.Equal(t, types.XidT(7), entry.TransactionID())
	assert.Equal(t, uint32(4096), entry.Size())
	assert.Equal(t, types.Paddr(123456), entry.PhysicalAddress())
	assert.True(t, entry.IsEncrypted())
	assert.False(t, entry.IsDeleted())
	assert.True(t, entry.HasHeader())
}

func TestParseObjectMapEntryDeleted(t *testing.T) {
	key := make([]byte, types.OmapKeySize)
	value := make([]byte, types.OmapValSize)
	binary.LittleEndian.PutUint32(value[0:4], types.OmapValDeleted|types.OmapValNoheader)

	entry, err := ParseObjectMapEntry(key, value, binary.LittleEndian)
	require.NoError(t, err)
	assert.True(t, entry.IsDeleted())
	assert.False(t, entry.HasHeader())
}

func TestParseOmapKeyTooShort(t *testing.T) {
	_, err := ParseOmapKey(make([]byte, 8), binary.LittleEndian)
	assert.ErrorIs(t, err, types.ErrTooShort)

	_, err = ParseOmapVal(make([]byte, 8), binary.LittleEndian)
	assert.ErrorIs(t, err, types.ErrTooShort)
}
