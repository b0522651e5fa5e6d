package caterva

import (
	"fmt"

	"github.com/NickleDave/Caterva/internal/schunk"
)

// Config describes the geometry, storage and codec an Array is created
// with. It is the Go analogue of a caterva_params_t plus a
// caterva_storage_t pair.
type Config struct {
	// ItemSize is the fixed width, in bytes, of every array element.
	ItemSize int

	// Shape is the array's logical extent, one entry per dimension.
	// len(Shape) determines NDim; it must be between 1 and
	// geometry.MaxDim.
	Shape []int64

	// ChunkShape is the per-dimension chunk extent (the codec unit).
	ChunkShape []int32

	// BlockShape is the per-dimension block extent (the selective
	// decompression unit); each entry must divide evenly into nothing in
	// particular but must not exceed the matching ChunkShape entry.
	BlockShape []int32

	// Storage configures the super-chunk backend: a Contiguous flag (recorded
	// only; a persisted store is always one container object), an optional
	// gocloud.dev/blob URL to persist to, and codec selection/parameters.
	Storage schunk.StorageConfig

	// EnableCache turns on the single-slot most-recently-decompressed
	// chunk cache GetSliceBuffer consults before asking the backend to
	// decompress again.
	EnableCache bool

	// Allocator supplies the buffer ToBuffer returns (GetSliceBuffer writes
	// into the caller's dst instead). Nil means DefaultAllocator.
	Allocator Allocator

	// DType optionally names the element's Go numeric type for ToTensor
	// and GetSliceTensor ("float32", "float64", "int32", "int64"). It is
	// purely a convenience label for tensor materialization; it has no
	// effect on storage layout and is not persisted.
	DType string
}

func (c Config) codec() (schunk.Codec, error) {
	id := c.Storage.Codec.CompressorID
	if id == "" {
		id = "zstd"
	}
	codec, ok := schunk.LookupCodec(id)
	if !ok {
		return nil, fmt.Errorf("%w: unknown compressor id %q", ErrInvalidStorage, id)
	}
	return codec, nil
}

func (c Config) allocator() Allocator {
	if c.Allocator != nil {
		return c.Allocator
	}
	return DefaultAllocator
}
