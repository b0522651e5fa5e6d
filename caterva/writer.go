package caterva

import (
	"context"
	"fmt"

	"github.com/NickleDave/Caterva/internal/geometry"
	"github.com/NickleDave/Caterva/internal/repart"
)

// chunkGridShape returns, per axis, how many chunks (including a possibly
// partial trailing one) tile the array's extended extent.
func (a *Array) chunkGridShape() []int64 {
	grid := make([]int64, a.ndim)
	for i := 0; i < a.ndim; i++ {
		grid[i] = a.extshape[i] / int64(a.chunkshape[i])
	}
	return grid
}

// logicalChunkShapeAt returns the real (unpadded) extent of the chunk at
// grid coordinate coord: chunkshape along every axis, except the last
// chunk along an axis whose shape doesn't divide evenly, which is
// nextChunkShape there.
func (a *Array) logicalChunkShapeAt(coord []int64) []int32 {
	grid := a.chunkGridShape()
	out := make([]int32, a.ndim)
	for i := 0; i < a.ndim; i++ {
		if coord[i] == grid[i]-1 {
			out[i] = a.nextChunkShape[i]
		} else {
			out[i] = a.chunkshape[i]
		}
	}
	return out
}

// FromBuffer fills an empty array by slicing buf — a dense, row-major
// buffer logically shaped Shape — into successive chunks and appending
// each in row-major chunk-grid order.
func (a *Array) FromBuffer(ctx context.Context, buf []byte) error {
	if a.sc == nil {
		return fmt.Errorf("%w: array has no backend", ErrNullPointer)
	}
	want := a.nitems * int64(a.itemsize)
	if int64(len(buf)) != want {
		return fmt.Errorf("%w: buffer has %d bytes, want %d (nitems=%d * itemsize=%d)",
			ErrInvalidArgument, len(buf), want, a.nitems, a.itemsize)
	}
	if a.zeroSized {
		a.filled = true
		return nil
	}

	grid := a.chunkGridShape()
	total := numChunksAlong(a.extshape, a.chunkshape)
	for nchunk := 0; nchunk < total; nchunk++ {
		coord := geometry.LinToMulti(int64(nchunk), grid)
		region, err := a.extractChunk(buf, coord)
		if err != nil {
			return err
		}
		if err := a.Append(ctx, region); err != nil {
			return fmt.Errorf("chunk %d: %w", nchunk, err)
		}
	}
	return nil
}

// Append compresses and stores the next sequential chunk. buf must be
// exactly logicalChunkShapeAt(nextCoord)'s element count wide: full
// chunkshape everywhere except a trailing, short final chunk along an axis
// whose extent doesn't divide chunkshape evenly, where the caller passes
// only the live extent. Append zero-pads internally before repartitioning,
// so a short edge chunk and a fully zero-padded full-size chunk are
// indistinguishable once stored.
func (a *Array) Append(ctx context.Context, buf []byte) error {
	if a.sc == nil {
		return fmt.Errorf("%w: array has no backend", ErrNullPointer)
	}
	nchunk := a.sc.NChunks()
	total := numChunksAlong(a.extshape, a.chunkshape)
	if nchunk >= total {
		return fmt.Errorf("%w: array already has all %d chunks", ErrInvalidArgument, total)
	}

	grid := a.chunkGridShape()
	coord := geometry.LinToMulti(int64(nchunk), grid)
	logical := a.logicalChunkShapeAt(coord)

	wantN := geometry.Product32(logical)
	wantLen := wantN * int64(a.itemsize)
	if int64(len(buf)) != wantLen {
		return fmt.Errorf("%w: chunk %d expects %d bytes (logical shape %v), got %d bytes",
			ErrInvalidArgument, nchunk, wantLen, logical, len(buf))
	}

	padded := a.padToChunkShape(buf, logical)

	packed, err := repart.Pack(a.ndim, a.chunkshape, a.blockshape, a.itemsize, padded)
	if err != nil {
		return fmt.Errorf("%w: repartitioning chunk %d: %v", ErrInvalidArgument, nchunk, err)
	}

	if _, err := a.sc.AppendBuffer(ctx, packed); err != nil {
		return fmt.Errorf("%w: appending chunk %d: %v", ErrBackendFailed, nchunk, err)
	}
	if a.cache != nil {
		a.cache.valid = false
	}
	if nchunk+1 >= total {
		a.filled = true
	}
	return nil
}

// padToChunkShape embeds a dense buffer logically shaped logical into a
// zero-filled, dense buffer shaped the array's full chunkshape. When
// logical already equals chunkshape it returns a private copy of buf
// unchanged.
func (a *Array) padToChunkShape(buf []byte, logical []int32) []byte {
	dst := make([]byte, a.chunkNitems*int64(a.itemsize))

	full := true
	for i := range logical {
		if logical[i] != a.chunkshape[i] {
			full = false
			break
		}
	}
	if full {
		copy(dst, buf)
		return dst
	}

	logical64 := make([]int64, a.ndim)
	for i, v := range logical {
		logical64[i] = int64(v)
	}
	chunkR := geometry.RightAlignI32(a.chunkshape)
	logicalR := geometry.RightAlignI64(logical64)

	dstStrides := geometry.Strides32(chunkR[:])
	srcStrides := geometry.Strides(logicalR[:])

	copyRegion(dst, buf, logicalR[:], nil, nil, srcStrides, dstStrides, a.itemsize)
	return dst
}

// extractChunk gathers the live region of buf (a dense, row-major buffer
// shaped Shape) belonging to the chunk at grid coordinate coord into a new,
// dense, unpadded buffer shaped logicalChunkShapeAt(coord).
func (a *Array) extractChunk(buf []byte, coord []int64) ([]byte, error) {
	logical := a.logicalChunkShapeAt(coord)
	logical64 := make([]int64, a.ndim)
	for i, v := range logical {
		logical64[i] = int64(v)
	}
	origin := make([]int64, a.ndim)
	for i := range coord {
		origin[i] = coord[i] * int64(a.chunkshape[i])
	}

	shapeR := geometry.RightAlignI64(a.shape)
	originR := geometry.RightAlignI64From0(origin)
	logicalR := geometry.RightAlignI64(logical64)

	arrayStrides := geometry.Strides(shapeR[:])
	dstStrides := geometry.Strides(logicalR[:])

	nitems := geometry.Product64(logicalR[:])
	dst := make([]byte, nitems*int64(a.itemsize))

	copyRegion(dst, buf, logicalR[:], originR[:], nil, arrayStrides, dstStrides, a.itemsize)
	return dst, nil
}

// copyRegion is the shared gather/scatter primitive for the writer and
// reader paths: it walks a MaxDim-wide row-major region of the given shape,
// offsetting into src by srcOrigin (if non-nil) and into dst by dstOrigin
// (if non-nil), using srcStrides/dstStrides for each side respectively.
// extractChunk sets only srcOrigin (gather from the array), ToBuffer only
// dstOrigin (scatter into the array), GetSliceBuffer both (chunk-local
// source, slice-local destination); both nil means a dense, unoffset
// reshape.
func copyRegion(dst, src []byte, shape, srcOrigin, dstOrigin, srcStrides, dstStrides []int64, itemsize int) {
	lineLen := shape[geometry.MaxDim-1]
	if lineLen == 0 {
		return
	}
	byteLen := int(lineLen) * itemsize

	var walk func(dim int, srcOff, dstOff int64)
	walk = func(dim int, srcOff, dstOff int64) {
		if dim == geometry.MaxDim-1 {
			if srcOrigin != nil {
				srcOff += srcOrigin[dim] * srcStrides[dim]
			}
			if dstOrigin != nil {
				dstOff += dstOrigin[dim] * dstStrides[dim]
			}
			srcStart := srcOff * int64(itemsize)
			dstStart := dstOff * int64(itemsize)
			copy(dst[dstStart:dstStart+int64(byteLen)], src[srcStart:srcStart+int64(byteLen)])
			return
		}
		for i := int64(0); i < shape[dim]; i++ {
			so, do := i, i
			if srcOrigin != nil {
				so += srcOrigin[dim]
			}
			if dstOrigin != nil {
				do += dstOrigin[dim]
			}
			walk(dim+1, srcOff+so*srcStrides[dim], dstOff+do*dstStrides[dim])
		}
	}
	walk(0, 0, 0)
}
