// Package caterva implements a double-partition, N-dimensional chunked
// array store: every array is split into row-major chunks (the codec
// unit), and every chunk is further split into row-major blocks (the
// selective-decompression unit). Chunks are handed to a pluggable
// super-chunk backend (internal/schunk) for compression and persistence;
// the geometry, repartitioning and slicing logic here never looks inside a
// compressed frame itself.
package caterva

import (
	"context"
	"fmt"

	"github.com/NickleDave/Caterva/internal/geometry"
	"github.com/NickleDave/Caterva/internal/metapack"
	"github.com/NickleDave/Caterva/internal/schunk"
	"github.com/NickleDave/Caterva/internal/schunk/bloscodec"
)

// Array is a chunked, blocked N-dimensional array backed by a super-chunk
// store. Its scalar counters mirror the caterva_array_t fields: every
// derived extent (ext*) and every product (*nitems) is computed once, at
// construction or open time, and cached for the lifetime of the array.
type Array struct {
	ndim     int
	itemsize int

	shape      []int64
	chunkshape []int32
	blockshape []int32

	extshape      []int64
	extchunkshape []int32

	// nextChunkShape is the logical (unpadded) shape of the last,
	// possibly-partial chunk along each dimension: shape[i] -
	// chunkshape[i]*(nchunks_along_i-1). Equal to chunkshape when shape
	// divides evenly.
	nextChunkShape []int32

	nitems         int64
	chunkNitems    int64
	blockNitems    int64
	extNitems      int64
	extChunkNitems int64
	nextChunkNitems int64

	filled bool // true once the backend holds extnitems/chunknitems chunks

	// empty is the completeness flag from the data model (never set true by
	// any constructor here, matching caterva_blosc_from_frame's carr->empty
	// = false; a zero-extent Shape is not "empty" in this sense, it is a
	// fully filled array that happens to hold no elements).
	empty bool

	// zeroSized is an internal shortcut, not part of the public
	// completeness flags: true when some Shape entry is 0, so buffer-sized
	// operations can skip the chunk-iteration loop and go straight to a
	// zero-length result.
	zeroSized bool

	dtype string // convenience label for ToTensor/GetSliceTensor; not persisted

	alloc Allocator
	cache *chunkCache

	sc *schunk.Store
}

// chunkCache is the single-slot, most-recently-decompressed chunk cache
// GetSliceBuffer consults before asking the backend to decompress again.
type chunkCache struct {
	nchunk int
	data   []byte
	valid  bool
}

// NDim returns the array's dimensionality.
func (a *Array) NDim() int { return a.ndim }

// ItemSize returns the fixed element width, in bytes.
func (a *Array) ItemSize() int { return a.itemsize }

// Shape returns a copy of the array's logical extent.
func (a *Array) Shape() []int64 { return append([]int64(nil), a.shape...) }

// ChunkShape returns a copy of the per-dimension chunk extent.
func (a *Array) ChunkShape() []int32 { return append([]int32(nil), a.chunkshape...) }

// BlockShape returns a copy of the per-dimension block extent.
func (a *Array) BlockShape() []int32 { return append([]int32(nil), a.blockshape...) }

// NItems returns the total number of logical elements (product of Shape).
func (a *Array) NItems() int64 { return a.nitems }

// NChunks returns the number of chunks the backend currently holds.
func (a *Array) NChunks() int {
	if a.sc == nil {
		return 0
	}
	return a.sc.NChunks()
}

// IsEmpty reports the data model's "empty" completeness flag. A zero-extent
// Shape does not make an array empty in this sense: a shape=[0] array
// (array_test.go's TestZeroShapeIsFilledNotEmpty) is simultaneously
// filled=true, empty=false,
// since a zero-element array trivially holds all the chunks it will ever
// need (zero of them).
func (a *Array) IsEmpty() bool { return a.empty }

// IsFilled reports whether the backend holds exactly extnitems/chunknitems
// chunks: every chunk the array's geometry calls for has been appended.
func (a *Array) IsFilled() bool { return a.filled }

// SetDType labels the array's element type for ToTensor/GetSliceTensor.
// Opened arrays don't persist a DType (it isn't part of the wire
// geometry), so callers that want tensor materialization after OpenPath or
// OpenBytes must set it explicitly.
func (a *Array) SetDType(dtype string) { a.dtype = dtype }

// Empty creates a new array with the geometry and storage described by
// cfg. The backend super-chunk is created but holds no chunks; use
// FromBuffer or repeated Append to fill it. An array with a zero-extent
// axis needs no chunks and reports IsFilled from the start.
func Empty(cfg Config) (*Array, error) {
	a, err := newFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	codec, err := cfg.codec()
	if err != nil {
		return nil, err
	}
	cfg.Storage.Codec.CompressorID = codec.ID()

	sc, err := schunk.New(cfg.Storage, codec, cfg.ItemSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendFailed, err)
	}
	a.sc = sc

	meta, err := metapack.Encode(a.ndim, a.shape, a.chunkshape, a.blockshape)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding metadata: %v", ErrInvalidArgument, err)
	}
	if err := sc.MetaAdd(context.Background(), metapack.Name, meta); err != nil {
		return nil, fmt.Errorf("%w: storing metadata: %v", ErrBackendFailed, err)
	}

	return a, nil
}

// newFromConfig validates cfg and computes every geometry-derived field,
// without touching the backend.
func newFromConfig(cfg Config) (*Array, error) {
	ndim := len(cfg.Shape)
	if ndim < 1 || ndim > geometry.MaxDim {
		return nil, fmt.Errorf("%w: ndim %d out of range [1, %d]", ErrInvalidArgument, ndim, geometry.MaxDim)
	}
	if len(cfg.ChunkShape) != ndim || len(cfg.BlockShape) != ndim {
		return nil, fmt.Errorf("%w: shape/chunkshape/blockshape length mismatch", ErrInvalidArgument)
	}
	if cfg.ItemSize <= 0 {
		return nil, fmt.Errorf("%w: itemsize must be positive, got %d", ErrInvalidArgument, cfg.ItemSize)
	}

	zeroSized := false
	for i := 0; i < ndim; i++ {
		if cfg.Shape[i] < 0 {
			return nil, fmt.Errorf("%w: shape[%d]=%d is negative", ErrInvalidArgument, i, cfg.Shape[i])
		}
		if cfg.Shape[i] == 0 {
			zeroSized = true
		}
		if cfg.ChunkShape[i] <= 0 {
			return nil, fmt.Errorf("%w: chunkshape[%d]=%d must be positive", ErrInvalidArgument, i, cfg.ChunkShape[i])
		}
		if cfg.BlockShape[i] <= 0 || cfg.BlockShape[i] > cfg.ChunkShape[i] {
			return nil, fmt.Errorf("%w: blockshape[%d]=%d must be in (0, chunkshape[%d]=%d]",
				ErrInvalidArgument, i, cfg.BlockShape[i], i, cfg.ChunkShape[i])
		}
		if cfg.Shape[i] != 0 && int64(cfg.ChunkShape[i]) > cfg.Shape[i] {
			return nil, fmt.Errorf("%w: chunkshape[%d]=%d must not exceed shape[%d]=%d",
				ErrInvalidArgument, i, cfg.ChunkShape[i], i, cfg.Shape[i])
		}
	}

	extshape, err := geometry.ExtShape(cfg.Shape, cfg.ChunkShape)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	extchunkshape, err := geometry.ExtChunkShape(cfg.ChunkShape, cfg.BlockShape)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	nextChunkShape := make([]int32, ndim)
	for i := 0; i < ndim; i++ {
		if cfg.Shape[i] == 0 {
			nextChunkShape[i] = 0
			continue
		}
		rem := cfg.Shape[i] % int64(cfg.ChunkShape[i])
		if rem == 0 {
			nextChunkShape[i] = cfg.ChunkShape[i]
		} else {
			nextChunkShape[i] = int32(rem)
		}
	}

	a := &Array{
		ndim:            ndim,
		itemsize:        cfg.ItemSize,
		shape:           append([]int64(nil), cfg.Shape...),
		chunkshape:      append([]int32(nil), cfg.ChunkShape...),
		blockshape:      append([]int32(nil), cfg.BlockShape...),
		extshape:        extshape,
		extchunkshape:   extchunkshape,
		nextChunkShape:  nextChunkShape,
		nitems:          geometry.Product64(cfg.Shape),
		chunkNitems:     geometry.Product32(cfg.ChunkShape),
		blockNitems:     geometry.Product32(cfg.BlockShape),
		extNitems:       geometry.Product64(extshape),
		extChunkNitems:  geometry.Product32(extchunkshape),
		nextChunkNitems: geometry.Product32(nextChunkShape),
		zeroSized:       zeroSized,
		dtype:           cfg.DType,
		alloc:           cfg.allocator(),
	}
	a.filled = numChunksAlong(a.extshape, a.chunkshape) == 0
	if cfg.EnableCache {
		a.cache = &chunkCache{}
	}
	return a, nil
}

// Free releases the array's backend handle. It is safe to call more than
// once.
func (a *Array) Free() error {
	if a.sc == nil {
		return nil
	}
	if err := a.sc.Free(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendFailed, err)
	}
	return nil
}

// openFromStore rebuilds an Array's geometry from a store's persisted
// "caterva" metadata blob. Shared by OpenPath and OpenBytes.
func openFromStore(sc *schunk.Store, enableCache bool, alloc Allocator) (*Array, error) {
	blob, err := sc.MetaGet(metapack.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: reading metadata: %v", ErrInvalidStorage, err)
	}
	g, err := metapack.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding metadata: %v", ErrInvalidStorage, err)
	}

	cfg := Config{
		ItemSize:   sc.ItemSize(),
		Shape:      g.Shape,
		ChunkShape: g.ChunkShape,
		BlockShape: g.BlockShape,
	}
	a, err := newFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	a.sc = sc
	if alloc != nil {
		a.alloc = alloc
	}
	if enableCache {
		a.cache = &chunkCache{}
	}
	a.filled = a.sc.NChunks() >= numChunksAlong(a.extshape, a.chunkshape)
	return a, nil
}

// OpenPath opens a previously persisted array at a gocloud.dev/blob URL
// (e.g. "file:///..." or "s3://bucket/prefix"). This is also how a
// bucket-backed array (cfg.Storage.Path set to any gocloud.dev/blob scheme)
// is reopened; there is no separate bucket-specific entrypoint, matching
// the backend's URL-agnostic treatment of Path.
func OpenPath(ctx context.Context, path string, enableCache bool) (*Array, error) {
	sc, err := schunk.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStorage, err)
	}
	a, err := openFromStore(sc, enableCache, nil)
	if err != nil {
		sc.Free()
		return nil, err
	}
	return a, nil
}

// OpenBytes reconstructs an array from a previously serialized container
// image (see Array.ToBytes). doCopy makes an extra up-front copy of data;
// either way the returned array does not alias data, since the backend
// copies every frame and metadata blob out of it while decoding.
func OpenBytes(data []byte, doCopy bool, enableCache bool) (*Array, error) {
	sc, err := schunk.FromBytes(data, doCopy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStorage, err)
	}
	return openFromStore(sc, enableCache, nil)
}

// ToBytes serializes the array's full backend container — all chunk
// frames and metadata, including the geometry — to a self-contained byte
// slice suitable for OpenBytes.
func (a *Array) ToBytes() []byte {
	return a.sc.ToBytes()
}

// Copy duplicates the array onto a fresh backend configured by storage,
// under the destination geometry given by chunkshape/blockshape. When that
// geometry matches the source's own, the source is Blosc-backed, and
// storage.Codec.CompressorID is either unset or names the source's own
// compressor, Copy clones the backend directly (compressed frames carry
// straight across, untouched). Otherwise — including whenever a genuine
// compressor change is requested, which a raw clone cannot honor without
// decoding and re-encoding every chunk — it falls back to a
// get_slice(0, Shape)-style rebuild: a brand-new array under the requested
// geometry and codec, filled by reading the source's full logical contents
// back through GetSliceBuffer and recompressing it chunk by chunk.
func (a *Array) Copy(ctx context.Context, chunkshape, blockshape []int32, storage schunk.StorageConfig) (*Array, error) {
	srcCodecID := a.sc.CodecParams().CompressorID
	sameCodec := storage.Codec.CompressorID == "" || storage.Codec.CompressorID == srcCodecID
	if sameShape32(chunkshape, a.chunkshape) && sameShape32(blockshape, a.blockshape) &&
		srcCodecID == bloscodec.ID && sameCodec {
		sc, err := a.sc.Copy(ctx, storage)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackendFailed, err)
		}
		cp := *a
		cp.sc = sc
		if a.cache != nil {
			cp.cache = &chunkCache{}
		}
		return &cp, nil
	}

	start := make([]int64, a.ndim)
	stop := append([]int64(nil), a.shape...)
	cfg := Config{
		Storage:     storage,
		EnableCache: a.cache != nil,
		Allocator:   a.alloc,
		DType:       a.dtype,
	}
	return a.GetSlice(ctx, start, stop, chunkshape, blockshape, cfg)
}

// sameShape32 reports whether two int32 shape vectors are equal element by
// element.
func sameShape32(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// numChunksAlong returns the total number of chunks (the product, over all
// axes, of extshape[i]/chunkshape[i]) an array of this geometry holds once
// fully filled.
func numChunksAlong(extshape []int64, chunkshape []int32) int {
	n := int64(1)
	for i := range extshape {
		n *= extshape[i] / int64(chunkshape[i])
	}
	return int(n)
}
