package types

import "errors"

// Decode error taxonomy. Every parser and service in this module reports
// failures by wrapping one of these sentinels, so callers can classify a
// failure with errors.Is without depending on message text.
var (
	// ErrTooShort indicates a buffer smaller than the structure it should hold.
	ErrTooShort = errors.New("buffer too short")

	// ErrChecksumMismatch indicates the object header checksum gate failed.
	ErrChecksumMismatch = errors.New("object checksum mismatch")

	// ErrWrongType indicates a structure decoded but its object type was not
	// the one expected in the context it was reached from.
	ErrWrongType = errors.New("unexpected object type")

	// ErrBadMagic indicates a superblock magic field did not match.
	ErrBadMagic = errors.New("bad magic")

	// ErrNoValidCheckpoint indicates the checkpoint descriptor ring was
	// exhausted without a single valid superblock.
	ErrNoValidCheckpoint = errors.New("no valid checkpoint")

	// ErrNotFound indicates an object-map lookup miss.
	ErrNotFound = errors.New("object not found")

	// ErrCorruptTree indicates a B-tree ordering violation, a duplicate key,
	// or a checksum failure encountered mid-traversal.
	ErrCorruptTree = errors.New("corrupt B-tree")
)
