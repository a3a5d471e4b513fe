package objects

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsinspect/go-apfs/internal/types"
)

func TestParseObjectHeader(t *testing.T) {
	data := buildObject(t, 128, 77, 12, types.ObjectTypeOmap|types.ObjPhysical, types.ObjectTypeInvalid)

	header, err := ParseObjectHeader(data, binary.LittleEndian)
	require.NoError(t, err)

	assert.Equal(t, types.OidT(77), header.OOid)
	assert.Equal(t, types.XidT(12), header.OXid)
	assert.Equal(t, types.ObjectTypeOmap, header.Type())
	assert.Equal(t, types.ObjPhysical, header.TypeFlags())
	assert.True(t, header.IsPhysical())
	assert.False(t, header.IsVirtual())
}

func TestParseObjectHeaderTooShort(t *testing.T) {
	_, err := ParseObjectHeader(make([]byte, 16), binary.LittleEndian)
	assert.ErrorIs(t, err, types.ErrTooShort)
}

func TestParseObjectGatesOnChecksum(t *testing.T) {
	data := buildObject(t, 256, 9, 2, types.ObjectTypeBtree|types.ObjPhysical, types.ObjectTypeOmap)

	header, body, err := ParseObject(data, binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, types.OidT(9), header.OOid)
	assert.Len(t, body, 256-types.ObjPhysSize)

	data[200] ^= 0x10
	_, _, err = ParseObject(data, binary.LittleEndian)
	assert.ErrorIs(t, err, types.ErrChecksumMismatch)
}

func TestExpectType(t *testing.T) {
	data := buildObject(t, 64, 4, 4, types.ObjectTypeFs|types.ObjVirtual, 0)
	header, err := ParseObjectHeader(data, binary.LittleEndian)
	require.NoError(t, err)

	assert.NoError(t, ExpectType(header, types.ObjectTypeFs))
	assert.ErrorIs(t, ExpectType(header, types.ObjectTypeOmap), types.ErrWrongType)
}

func TestDetermineStorageType(t *testing.T) {
	assert.Equal(t, StorageVirtual, DetermineStorageType(types.ObjectTypeFstree|types.ObjVirtual))
	assert.Equal(t, StoragePhysical, DetermineStorageType(types.ObjectTypeOmap|types.ObjPhysical))
	assert.Equal(t, StorageEphemeral, DetermineStorageType(types.ObjectTypeNxSuperblock|types.ObjEphemeral))
}

func TestIsBtreeNodeType(t *testing.T) {
	assert.True(t, IsBtreeNodeType(types.ObjectTypeBtree|types.ObjPhysical))
	assert.True(t, IsBtreeNodeType(types.ObjectTypeBtreeNode|types.ObjPhysical))
	assert.False(t, IsBtreeNodeType(types.ObjectTypeOmap|types.ObjPhysical))
}
