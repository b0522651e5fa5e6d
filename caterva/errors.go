package caterva

import "errors"

// Sentinel errors mirroring the flat error-code set §6 of the spec
// describes. Callers compare with errors.Is; every returned error wraps
// exactly one of these via fmt.Errorf("...: %w", ...).
var (
	// ErrNullPointer is returned when an Array has no backend
	// *schunk.Store. Methods do not check for a nil *Array.
	ErrNullPointer = errors.New("caterva: null pointer")

	// ErrInvalidArgument covers shape/chunk/block mismatches, negative
	// extents, ndim out of range, chunkshape[i] > shape[i] when
	// shape[i] != 0, and blockshape[i] > chunkshape[i].
	ErrInvalidArgument = errors.New("caterva: invalid argument")

	// ErrInvalidIndex is returned by SqueezeIndex when asked to remove a
	// dimension whose extent is not 1.
	ErrInvalidIndex = errors.New("caterva: invalid index")

	// ErrInvalidStorage is returned when the storage cannot be used as a
	// Caterva array: an unknown compressor id, a backend that fails to open,
	// or a missing or undecodable "caterva" metadata blob.
	ErrInvalidStorage = errors.New("caterva: invalid storage")

	// ErrBackendFailed wraps any error surfaced by the super-chunk
	// backend (compression, decompression, metadata I/O). The array does
	// not retry and does not attempt to reverse partial appends: the
	// backend is the source of truth for what has been persisted.
	ErrBackendFailed = errors.New("caterva: backend failed")

	// ErrAlloc is returned when a caller-supplied Allocator fails to
	// produce a buffer.
	ErrAlloc = errors.New("caterva: allocation failed")
)
