package types

// Object Maps (pages 44-50)
// An object map uses a B-tree to store a mapping from virtual object
// identifiers and transaction identifiers to the physical addresses where
// those objects are stored.

// OmapPhysT is an object map.
// Reference: page 44
type OmapPhysT struct {
	// The object's header. (page 45)
	OmO ObjPhysT

	// The object map's flags. (page 45)
	OmFlags uint32

	// The number of snapshots that this object map has. (page 45)
	OmSnapCount uint32

	// The type of tree being used for object mappings. (page 45)
	OmTreeType uint32

	// The type of tree being used for snapshots. (page 45)
	OmSnapshotTreeType uint32

	// The virtual object identifier of the tree being used for object mappings. (page 45)
	OmTreeOid OidT

	// The virtual object identifier of the tree being used to hold snapshot information. (page 45)
	OmSnapshotTreeOid OidT

	// The transaction identifier of the most recent snapshot that's stored in this object map. (page 45)
	OmMostRecentSnap XidT

	// The smallest transaction identifier for an in-progress revert. (page 46)
	OmPendingRevertMin XidT

	// The largest transaction identifier for an in-progress revert. (page 46)
	OmPendingRevertMax XidT
}

// OmapPhysSize is the on-disk size, in bytes, of an object map structure.
const OmapPhysSize = 88

// OmapKeyT is a key used to access an entry in the object map.
// Reference: page 46
type OmapKeyT struct {
	// The object identifier. (page 46)
	OkOid OidT

	// The transaction identifier. (page 46)
	OkXid XidT
}

// OmapValT is a value in the object map.
// Reference: page 46
type OmapValT struct {
	// A bit field of flags. (page 46)
	OvFlags uint32

	// The size, in bytes, of the object. (page 47)
	// This value must be a multiple of the container's logical block size.
	OvSize uint32

	// The address of the object. (page 47)
	OvPaddr Paddr
}

// OmapKeySize is the on-disk size, in bytes, of an object map key.
const OmapKeySize = 16

// OmapValSize is the on-disk size, in bytes, of an object map value.
const OmapValSize = 16

// Object Map Value Flags (page 48)

// OmapValDeleted indicates the object has been deleted, and this mapping is a placeholder.
// Reference: page 48
const OmapValDeleted uint32 = 0x00000001

// OmapValSaved indicates this object mapping shouldn't be replaced when the object is updated.
// Reference: page 48
const OmapValSaved uint32 = 0x00000002

// OmapValEncrypted indicates the object is encrypted.
// Reference: page 48
const OmapValEncrypted uint32 = 0x00000004

// OmapValNoheader indicates the object is stored without an obj_phys_t header.
// Reference: page 48
const OmapValNoheader uint32 = 0x00000008

// OmapValCryptoGeneration is the encryption key generation flag.
// Reference: page 48
const OmapValCryptoGeneration uint32 = 0x00000010

// Object Map Flags (page 49)

// OmapManuallyManaged indicates an object map that doesn't support snapshots.
// Reference: page 49
const OmapManuallyManaged uint32 = 0x00000001

// OmapEncrypting indicates that the object map is transitioning to being encrypted.
// Reference: page 49
const OmapEncrypting uint32 = 0x00000002

// OmapDecrypting indicates that the object map is transitioning to being decrypted.
// Reference: page 49
const OmapDecrypting uint32 = 0x00000004

// OmapKeyrolling indicates that the object map is rolling its encryption key.
// Reference: page 49
const OmapKeyrolling uint32 = 0x00000008

// OmapCryptoGeneration is the object map's encryption key generation flag.
// Reference: page 49
const OmapCryptoGeneration uint32 = 0x00000010
