package caterva

import (
	"context"
	"fmt"

	"github.com/NickleDave/Caterva/internal/geometry"
	"github.com/NickleDave/Caterva/internal/repart"
)

// decompressChunk decompresses chunk nchunk (block-major, extchunkshape
// sized) and un-repartitions it back into a dense, row-major buffer shaped
// chunkshape. maskout, when non-nil, flags blocks (in the same row-major
// block-grid order repart.Pack writes them) the caller has no use for: the
// backend leaves those bytes untouched rather than decompressing them,
// implementing the selective-decompression the block partition exists for
// (§4.5). A masked read bypasses the single-slot cache on both ends — it
// only produces a partial chunk, so it must not answer a later full-chunk
// read, and it must not evict a cached full chunk a later full-chunk read
// could have reused.
func (a *Array) decompressChunk(nchunk int, maskout []bool) ([]byte, error) {
	if maskout == nil && a.cache != nil && a.cache.valid && a.cache.nchunk == nchunk {
		return a.cache.data, nil
	}

	extChunkNitems := a.extChunkNitems
	packed := make([]byte, extChunkNitems*int64(a.itemsize))
	if err := a.sc.DecompressChunk(nchunk, packed, int(a.blockNitems), maskout); err != nil {
		return nil, fmt.Errorf("%w: decompressing chunk %d: %v", ErrBackendFailed, nchunk, err)
	}

	unpacked, err := repart.Unpack(a.ndim, a.chunkshape, a.blockshape, a.itemsize, packed)
	if err != nil {
		return nil, fmt.Errorf("%w: unpacking chunk %d: %v", ErrInvalidArgument, nchunk, err)
	}

	if maskout == nil && a.cache != nil {
		a.cache.nchunk = nchunk
		a.cache.data = unpacked
		a.cache.valid = true
	}
	return unpacked, nil
}

// blockMask returns, for the chunk-local region [chunkLocalOrigin,
// chunkLocalOrigin+overlapLen), a per-block maskout slice in the row-major
// block-grid order repart.Pack/Unpack use: maskout[i] is true when block i
// has no intersection with that region at all, so decompressChunk's
// backend call can skip it.
func (a *Array) blockMask(chunkLocalOrigin, overlapLen []int64) []bool {
	blockGrid := make([]int64, a.ndim)
	for i := 0; i < a.ndim; i++ {
		blockGrid[i] = int64(a.extchunkshape[i]) / int64(a.blockshape[i])
	}
	nBlocks := geometry.Product64(blockGrid)
	mask := make([]bool, nBlocks)
	for k := int64(0); k < nBlocks; k++ {
		bc := geometry.LinToMulti(k, blockGrid)
		needed := true
		for i := 0; i < a.ndim; i++ {
			blockStart := bc[i] * int64(a.blockshape[i])
			blockEnd := blockStart + int64(a.blockshape[i])
			lo := maxInt64(chunkLocalOrigin[i], blockStart)
			hi := minInt64(chunkLocalOrigin[i]+overlapLen[i], blockEnd)
			if hi <= lo {
				needed = false
				break
			}
		}
		mask[k] = !needed
	}
	return mask
}

// ToBuffer decompresses every chunk and reassembles the array's full
// logical contents into a single dense, row-major buffer.
func (a *Array) ToBuffer(ctx context.Context) ([]byte, error) {
	if a.sc == nil {
		return nil, fmt.Errorf("%w: array has no backend", ErrNullPointer)
	}
	dst, err := a.alloc.Alloc(int(a.nitems) * a.itemsize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAlloc, err)
	}
	if a.zeroSized {
		return dst, nil
	}

	shapeR := geometry.RightAlignI64(a.shape)
	arrayStrides := geometry.Strides(shapeR[:])
	chunkR := geometry.RightAlignI32(a.chunkshape)
	chunkStrides := geometry.Strides32(chunkR[:])

	grid := a.chunkGridShape()
	total := numChunksAlong(a.extshape, a.chunkshape)
	for nchunk := 0; nchunk < total; nchunk++ {
		coord := geometry.LinToMulti(int64(nchunk), grid)
		unpacked, err := a.decompressChunk(nchunk, nil)
		if err != nil {
			return nil, err
		}

		logical := a.logicalChunkShapeAt(coord)
		logical64 := make([]int64, a.ndim)
		for i, v := range logical {
			logical64[i] = int64(v)
		}
		logicalR := geometry.RightAlignI64(logical64)

		origin := make([]int64, a.ndim)
		for i := range coord {
			origin[i] = coord[i] * int64(a.chunkshape[i])
		}
		originR := geometry.RightAlignI64From0(origin)

		copyRegion(dst, unpacked, logicalR[:], nil, originR[:], chunkStrides, arrayStrides, a.itemsize)
	}
	return dst, nil
}

// GetSliceBuffer decompresses just the chunks overlapping [start, stop)
// (half-open, per axis, in array-element coordinates) and writes the
// selected region into dst as a dense, row-major buffer shaped
// stop[i]-start[i]. dst must already be sized for that buffer.
func (a *Array) GetSliceBuffer(ctx context.Context, start, stop []int64, dst []byte) error {
	if a.sc == nil {
		return fmt.Errorf("%w: array has no backend", ErrNullPointer)
	}
	if len(start) != a.ndim || len(stop) != a.ndim {
		return fmt.Errorf("%w: start/stop must have %d entries", ErrInvalidIndex, a.ndim)
	}
	sliceShape := make([]int64, a.ndim)
	for i := 0; i < a.ndim; i++ {
		if start[i] < 0 || stop[i] > a.shape[i] || start[i] > stop[i] {
			return fmt.Errorf("%w: axis %d range [%d, %d) out of bounds for shape %d",
				ErrInvalidIndex, i, start[i], stop[i], a.shape[i])
		}
		sliceShape[i] = stop[i] - start[i]
	}
	wantLen := geometry.Product64(sliceShape) * int64(a.itemsize)
	if int64(len(dst)) != wantLen {
		return fmt.Errorf("%w: dst has %d bytes, want %d", ErrInvalidArgument, len(dst), wantLen)
	}
	if geometry.Product64(sliceShape) == 0 {
		return nil
	}

	sliceShapeR := geometry.RightAlignI64(sliceShape)
	sliceStrides := geometry.Strides(sliceShapeR[:])

	chunkR := geometry.RightAlignI32(a.chunkshape)
	chunkStrides := geometry.Strides32(chunkR[:])

	// Fast path: the whole requested range is one full-size chunk,
	// chunk-aligned. Decompress once and copy straight through, skipping
	// the general per-chunk-overlap loop below.
	if a.fastPathSlice(start, stop) {
		grid := a.chunkGridShape()
		coord := make([]int64, a.ndim)
		for i := 0; i < a.ndim; i++ {
			coord[i] = start[i] / int64(a.chunkshape[i])
		}
		nchunk := int(geometry.MultiToLin(coord, grid))
		unpacked, err := a.decompressChunk(nchunk, nil)
		if err != nil {
			return err
		}
		copy(dst, unpacked[:wantLen])
		return nil
	}

	firstChunk, lastChunk := make([]int64, a.ndim), make([]int64, a.ndim)
	for i := 0; i < a.ndim; i++ {
		firstChunk[i] = start[i] / int64(a.chunkshape[i])
		lastChunk[i] = (stop[i] - 1) / int64(a.chunkshape[i])
	}

	grid := a.chunkGridShape()
	chunkRangeShape := make([]int64, a.ndim)
	for i := 0; i < a.ndim; i++ {
		chunkRangeShape[i] = lastChunk[i] - firstChunk[i] + 1
	}
	nRangeChunks := geometry.Product64(chunkRangeShape)

	for k := int64(0); k < nRangeChunks; k++ {
		rel := geometry.LinToMulti(k, chunkRangeShape)
		coord := make([]int64, a.ndim)
		for i := range rel {
			coord[i] = firstChunk[i] + rel[i]
		}
		nchunk := int(geometry.MultiToLin(coord, grid))

		// Overlap of [start,stop) with this chunk's logical extent, in
		// array coordinates, then translated into both the chunk-local
		// and slice-local frames.
		chunkOrigin := make([]int64, a.ndim)
		overlapStart := make([]int64, a.ndim)
		overlapLen := make([]int64, a.ndim)
		for i := 0; i < a.ndim; i++ {
			chunkOrigin[i] = coord[i] * int64(a.chunkshape[i])
			lo := maxInt64(start[i], chunkOrigin[i])
			hi := minInt64(stop[i], chunkOrigin[i]+int64(a.chunkshape[i]))
			overlapStart[i] = lo
			overlapLen[i] = hi - lo
			if overlapLen[i] < 0 {
				overlapLen[i] = 0
			}
		}
		if geometry.Product64(overlapLen) == 0 {
			continue
		}

		chunkLocalOrigin := make([]int64, a.ndim)
		for i := 0; i < a.ndim; i++ {
			chunkLocalOrigin[i] = overlapStart[i] - chunkOrigin[i]
		}

		// Only request the blocks this overlap actually touches, per §4.5
		// step 3a/3b, unless the overlap spans the chunk's whole logical
		// extent, in which case a plain full decompression both serves the
		// cache and costs the backend nothing extra.
		logical := a.logicalChunkShapeAt(coord)
		fullChunk := true
		for i := 0; i < a.ndim; i++ {
			if chunkLocalOrigin[i] != 0 || overlapLen[i] != int64(logical[i]) {
				fullChunk = false
				break
			}
		}
		var mask []bool
		if !fullChunk {
			mask = a.blockMask(chunkLocalOrigin, overlapLen)
		}
		unpacked, err := a.decompressChunk(nchunk, mask)
		if err != nil {
			return err
		}

		overlapLenR := geometry.RightAlignI64(overlapLen)
		sliceLocalOrigin := make([]int64, a.ndim)
		for i := 0; i < a.ndim; i++ {
			sliceLocalOrigin[i] = overlapStart[i] - start[i]
		}
		chunkLocalOriginR := geometry.RightAlignI64From0(chunkLocalOrigin)
		sliceLocalOriginR := geometry.RightAlignI64From0(sliceLocalOrigin)

		copyRegion(dst, unpacked, overlapLenR[:], chunkLocalOriginR[:], sliceLocalOriginR[:], chunkStrides, sliceStrides, a.itemsize)
	}
	return nil
}

// fastPathSlice reports whether [start, stop) exactly covers one full,
// chunk-aligned chunk along every axis: start[i] is a chunkshape[i]
// multiple, and stop[i]-start[i] == chunkshape[i].
func (a *Array) fastPathSlice(start, stop []int64) bool {
	for i := 0; i < a.ndim; i++ {
		if start[i]%int64(a.chunkshape[i]) != 0 {
			return false
		}
		if stop[i]-start[i] != int64(a.chunkshape[i]) {
			return false
		}
	}
	return true
}

// GetSlice extracts [start, stop) into a brand-new array with its own
// backend, geometry given by chunkshape/blockshape and the rest of its
// configuration given by cfg (cfg.Shape/ItemSize are overwritten). It
// copies only the chunks that overlap the requested range (via
// GetSliceBuffer), rather than materializing the source array's full
// contents first.
func (a *Array) GetSlice(ctx context.Context, start, stop []int64, chunkshape, blockshape []int32, cfg Config) (*Array, error) {
	sliceShape := make([]int64, a.ndim)
	for i := 0; i < a.ndim; i++ {
		sliceShape[i] = stop[i] - start[i]
	}
	cfg.Shape = sliceShape
	cfg.ChunkShape = chunkshape
	cfg.BlockShape = blockshape
	cfg.ItemSize = a.itemsize

	out, err := Empty(cfg)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, geometry.Product64(sliceShape)*int64(a.itemsize))
	if err := a.GetSliceBuffer(ctx, start, stop, buf); err != nil {
		out.Free()
		return nil, err
	}
	if err := out.FromBuffer(ctx, buf); err != nil {
		out.Free()
		return nil, err
	}
	return out, nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
