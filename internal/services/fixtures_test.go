package services

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fsinspect/go-apfs/internal/parsers/objects"
	"github.com/fsinspect/go-apfs/internal/types"
)

const testBlockSize = 4096

// memoryDevice serves blocks from a map, standing in for a disk image.
type memoryDevice struct {
	blocks      map[types.Paddr][]byte
	totalBlocks uint64
}

func newMemoryDevice(totalBlocks uint64) *memoryDevice {
	return &memoryDevice{
		blocks:      make(map[types.Paddr][]byte),
		totalBlocks: totalBlocks,
	}
}

func (d *memoryDevice) put(address types.Paddr, data []byte) {
	d.blocks[address] = data
}

func (d *memoryDevice) ReadBlock(address types.Paddr) ([]byte, error) {
	if data, ok := d.blocks[address]; ok {
		return data, nil
	}
	if !d.IsValidAddress(address) {
		return nil, fmt.Errorf("block %d is outside the device", address)
	}
	return make([]byte, testBlockSize), nil
}

func (d *memoryDevice) ReadBlockRange(start types.Paddr, count uint32) ([]byte, error) {
	var out []byte
	for i := uint32(0); i < count; i++ {
		block, err := d.ReadBlock(start + types.Paddr(i))
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	return out, nil
}

func (d *memoryDevice) BlockSize() uint32   { return testBlockSize }
func (d *memoryDevice) TotalBlocks() uint64 { return d.totalBlocks }

func (d *memoryDevice) IsValidAddress(address types.Paddr) bool {
	return address >= 0 && uint64(address) < d.totalBlocks
}

func (d *memoryDevice) CanReadRange(start types.Paddr, count uint32) bool {
	return start >= 0 && count > 0 && uint64(start)+uint64(count) <= d.totalBlocks
}

func (d *memoryDevice) Close() error { return nil }

// stamp computes and stores the object checksum of a fixture block.
func stamp(t *testing.T, data []byte) []byte {
	t.Helper()
	cksum, err := objects.ComputeObjectChecksum(data)
	require.NoError(t, err)
	binary.LittleEndian.PutUint64(data[0:8], cksum)
	return data
}

// writeHeader fills the object header fields other than the checksum.
func writeHeader(data []byte, oid types.OidT, xid types.XidT, objType, subtype uint32) {
	binary.LittleEndian.PutUint64(data[8:16], uint64(oid))
	binary.LittleEndian.PutUint64(data[16:24], uint64(xid))
	binary.LittleEndian.PutUint32(data[24:28], objType)
	binary.LittleEndian.PutUint32(data[28:32], subtype)
}

// containerFixture configures a synthetic container superblock.
type containerFixture struct {
	xid        types.XidT
	omapOID    types.OidT
	descBase   types.Paddr
	descBlocks uint32
	descNext   uint32
	fsOids     []types.OidT
}

// buildContainerSuperblock assembles a checksummed nx_superblock_t block.
func buildContainerSuperblock(t *testing.T, f containerFixture) []byte {
	t.Helper()

	data := make([]byte, testBlockSize)
	writeHeader(data, types.OidNxSuperblock, f.xid, types.ObjectTypeNxSuperblock|types.ObjEphemeral, 0)

	binary.LittleEndian.PutUint32(data[32:36], types.NxMagic)
	binary.LittleEndian.PutUint32(data[36:40], testBlockSize)
	binary.LittleEndian.PutUint64(data[40:48], 1<<20)
	binary.LittleEndian.PutUint64(data[88:96], 9000)             // next oid
	binary.LittleEndian.PutUint64(data[96:104], uint64(f.xid)+1) // next xid
	binary.LittleEndian.PutUint32(data[104:108], f.descBlocks)
	binary.LittleEndian.PutUint64(data[112:120], uint64(f.descBase))
	binary.LittleEndian.PutUint32(data[128:132], f.descNext)
	binary.LittleEndian.PutUint64(data[160:168], uint64(f.omapOID))
	binary.LittleEndian.PutUint32(data[180:184], types.NxMaxFileSystems)
	for i, oid := range f.fsOids {
		binary.LittleEndian.PutUint64(data[184+i*8:192+i*8], uint64(oid))
	}

	return stamp(t, data)
}

// buildCheckpointMapBlock assembles a minimal checkpoint map block, which
// checkpoint discovery must skip over.
func buildCheckpointMapBlock(t *testing.T, xid types.XidT) []byte {
	t.Helper()
	data := make([]byte, testBlockSize)
	writeHeader(data, 0, xid, types.ObjectTypeCheckpointMap|types.ObjPhysical, 0)
	return stamp(t, data)
}

// buildOmapBlock assembles a checksummed omap_phys_t block pointing at a
// mapping tree root.
func buildOmapBlock(t *testing.T, oid types.OidT, treeRoot types.Paddr) []byte {
	t.Helper()

	data := make([]byte, testBlockSize)
	writeHeader(data, oid, 1, types.ObjectTypeOmap|types.ObjPhysical, 0)
	binary.LittleEndian.PutUint32(data[40:44], types.ObjectTypeBtree|types.ObjPhysical)
	binary.LittleEndian.PutUint64(data[48:56], uint64(treeRoot))
	return stamp(t, data)
}

// omapEntry is one mapping record for tree fixtures.
type omapEntry struct {
	oid   uint64
	xid   uint64
	flags uint32
	paddr uint64
}

// nodeSpec configures one synthetic B-tree node.
type nodeSpec struct {
	oid    types.OidT
	root   bool
	level  uint16
	keys   []omapEntry  // leaf payload, or nonleaf separator keys
	childs []types.OidT // child object identifiers for nonleaf nodes
}

// buildMappingNode assembles a fixed-layout object map tree node. Leaf
// entries carry 16-byte values; nonleaf entries carry 8-byte child object
// identifiers.
func buildMappingNode(t *testing.T, spec nodeSpec) []byte {
	t.Helper()

	data := make([]byte, testBlockSize)

	objType := types.ObjectTypeBtreeNode | types.ObjPhysical
	flags := types.BtnodeFixedKvSize
	if spec.root {
		objType = types.ObjectTypeBtree | types.ObjPhysical
		flags |= types.BtnodeRoot
	}
	leaf := spec.level == 0
	if leaf {
		flags |= types.BtnodeLeaf
	} else {
		require.Equal(t, len(spec.keys), len(spec.childs), "one child per separator key")
	}

	writeHeader(data, spec.oid, 1, objType, types.ObjectTypeOmap)
	binary.LittleEndian.PutUint16(data[32:34], flags)
	binary.LittleEndian.PutUint16(data[34:36], spec.level)
	binary.LittleEndian.PutUint32(data[36:40], uint32(len(spec.keys)))

	tocLen := uint16(len(spec.keys) * types.KvoffSize)
	binary.LittleEndian.PutUint16(data[40:42], 0)
	binary.LittleEndian.PutUint16(data[42:44], tocLen)

	storage := data[types.BtreeNodePhysSize:]
	keyStart := int(tocLen)
	valEnd := len(storage)
	if spec.root {
		valEnd -= types.BtreeInfoSize
	}

	valSize := types.OmapValSize
	if !leaf {
		valSize = 8
	}

	for i, e := range spec.keys {
		kOff := i * types.OmapKeySize
		vOff := (i + 1) * valSize

		toc := i * types.KvoffSize
		binary.LittleEndian.PutUint16(storage[toc:toc+2], uint16(kOff))
		binary.LittleEndian.PutUint16(storage[toc+2:toc+4], uint16(vOff))

		key := storage[keyStart+kOff:]
		binary.LittleEndian.PutUint64(key[0:8], e.oid)
		binary.LittleEndian.PutUint64(key[8:16], e.xid)

		val := storage[valEnd-vOff:]
		if leaf {
			binary.LittleEndian.PutUint32(val[0:4], e.flags)
			binary.LittleEndian.PutUint32(val[4:8], testBlockSize)
			binary.LittleEndian.PutUint64(val[8:16], e.paddr)
		} else {
			binary.LittleEndian.PutUint64(val[0:8], uint64(spec.childs[i]))
		}
	}

	if spec.root {
		info := storage[len(storage)-types.BtreeInfoSize:]
		binary.LittleEndian.PutUint32(info[4:8], testBlockSize)
		binary.LittleEndian.PutUint32(info[8:12], types.OmapKeySize)
		binary.LittleEndian.PutUint32(info[12:16], types.OmapValSize)
	}

	return stamp(t, data)
}

// volumeSpec configures a synthetic volume superblock.
type volumeSpec struct {
	oid       types.OidT
	name      string
	role      uint16
	volUUID   [16]byte
	groupUUID [16]byte
}

// buildVolumeBlock assembles a checksummed apfs_superblock_t block.
func buildVolumeBlock(t *testing.T, spec volumeSpec) []byte {
	t.Helper()

	data := make([]byte, testBlockSize)
	writeHeader(data, spec.oid, 1, types.ObjectTypeFs|types.ObjVirtual, 0)
	binary.LittleEndian.PutUint32(data[32:36], types.ApfsMagic)
	copy(data[240:256], spec.volUUID[:])
	copy(data[704:960], spec.name)
	binary.LittleEndian.PutUint16(data[964:966], spec.role)
	copy(data[1008:1024], spec.groupUUID[:])
	return stamp(t, data)
}
