// Package repart implements the repartitioner: it reorders a dense,
// row-major, chunk-shaped buffer into block-major (row-major inside each
// block) storage, padding any partial trailing block with zeros. Unpack is
// its inverse, used by the reader path: it walks the same block grid and
// copies only the live cells back into dense row-major order.
package repart

import (
	"fmt"

	"github.com/NickleDave/Caterva/internal/geometry"
)

// Pack reorders src — a dense row-major buffer logically shaped
// chunkshape, already zero-padded by the caller for any trailing-edge
// chunk — into a block-major, row-major-inside-block buffer shaped
// extchunkshape (chunkshape padded up to a blockshape multiple).
//
// The output is bit-identical for identical input; padded cells beyond
// chunkshape's clip against a block are left zero.
func Pack(ndim int, chunkshape, blockshape []int32, itemsize int, src []byte) ([]byte, error) {
	if len(chunkshape) != ndim || len(blockshape) != ndim {
		return nil, fmt.Errorf("repart: vector length mismatch with ndim=%d", ndim)
	}

	chunk := geometry.RightAlignI32(chunkshape)
	block := geometry.RightAlignI32(blockshape)

	var extChunk [geometry.MaxDim]int32
	var gridShape [geometry.MaxDim]int64
	for i := 0; i < geometry.MaxDim; i++ {
		extChunk[i] = int32(geometry.PadUp(int64(chunk[i]), int64(block[i])))
		gridShape[i] = int64(extChunk[i]) / int64(block[i])
	}

	chunkNitems := geometry.Product32(chunk[:])
	wantSrcLen := chunkNitems * int64(itemsize)
	if int64(len(src)) != wantSrcLen {
		return nil, fmt.Errorf("repart: src has %d bytes, want %d (chunknitems=%d * itemsize=%d)",
			len(src), wantSrcLen, chunkNitems, itemsize)
	}

	blockNitems := geometry.Product32(block[:])
	extChunkNitems := geometry.Product32(extChunk[:])
	totalBlocks := extChunkNitems / blockNitems

	dst := make([]byte, extChunkNitems*int64(itemsize))

	chunkStrides := geometry.Strides32(chunk[:])  // element strides into src
	blockStrides := geometry.Strides32(block[:])  // element strides inside one block

	for sci := int64(0); sci < totalBlocks; sci++ {
		blockCoord := geometry.LinToMulti(sci, gridShape[:])

		var origin [geometry.MaxDim]int64
		var clip [geometry.MaxDim]int64
		for i := 0; i < geometry.MaxDim; i++ {
			origin[i] = blockCoord[i] * int64(block[i])
			clip[i] = geometry.Clip(origin[i], int64(block[i]), int64(chunk[i]))
		}

		dstBlockBase := sci * blockNitems * int64(itemsize)
		copyBlockLines(dst, src, origin[:], clip[:], chunkStrides, blockStrides, dstBlockBase, itemsize)
	}

	return dst, nil
}

// Unpack is the inverse of Pack: it reorders a block-major, row-major
// -inside-block buffer shaped extchunkshape back into a dense, row-major
// buffer shaped chunkshape, dropping the zero padding a short trailing
// block carried.
func Unpack(ndim int, chunkshape, blockshape []int32, itemsize int, packed []byte) ([]byte, error) {
	if len(chunkshape) != ndim || len(blockshape) != ndim {
		return nil, fmt.Errorf("repart: vector length mismatch with ndim=%d", ndim)
	}

	chunk := geometry.RightAlignI32(chunkshape)
	block := geometry.RightAlignI32(blockshape)

	var extChunk [geometry.MaxDim]int32
	var gridShape [geometry.MaxDim]int64
	for i := 0; i < geometry.MaxDim; i++ {
		extChunk[i] = int32(geometry.PadUp(int64(chunk[i]), int64(block[i])))
		gridShape[i] = int64(extChunk[i]) / int64(block[i])
	}

	blockNitems := geometry.Product32(block[:])
	extChunkNitems := geometry.Product32(extChunk[:])
	totalBlocks := extChunkNitems / blockNitems

	wantPackedLen := extChunkNitems * int64(itemsize)
	if int64(len(packed)) != wantPackedLen {
		return nil, fmt.Errorf("repart: packed has %d bytes, want %d (extchunknitems=%d * itemsize=%d)",
			len(packed), wantPackedLen, extChunkNitems, itemsize)
	}

	chunkNitems := geometry.Product32(chunk[:])
	dst := make([]byte, chunkNitems*int64(itemsize))

	chunkStrides := geometry.Strides32(chunk[:])
	blockStrides := geometry.Strides32(block[:])

	for sci := int64(0); sci < totalBlocks; sci++ {
		blockCoord := geometry.LinToMulti(sci, gridShape[:])

		var origin [geometry.MaxDim]int64
		var clip [geometry.MaxDim]int64
		for i := 0; i < geometry.MaxDim; i++ {
			origin[i] = blockCoord[i] * int64(block[i])
			clip[i] = geometry.Clip(origin[i], int64(block[i]), int64(chunk[i]))
		}

		srcBlockBase := sci * blockNitems * int64(itemsize)
		copyBlockLinesFromBlock(dst, packed, origin[:], clip[:], chunkStrides, blockStrides, srcBlockBase, itemsize)
	}

	return dst, nil
}

// copyBlockLinesFromBlock is copyBlockLines with source and destination
// roles swapped: it scatters one block's live lines out of a block-major
// buffer into their place in a dense, row-major chunk buffer.
func copyBlockLinesFromBlock(dst, src []byte, origin, clip []int64, chunkStrides, blockStrides []int64, srcBlockBase int64, itemsize int) {
	lineLen := clip[geometry.MaxDim-1]
	if lineLen == 0 {
		return
	}
	byteLen := int(lineLen) * itemsize

	var walk func(dim int, dstOff, srcOff int64)
	walk = func(dim int, dstOff, srcOff int64) {
		if dim == geometry.MaxDim-1 {
			dstOff += origin[dim] * chunkStrides[dim]
			dstStart := dstOff * int64(itemsize)
			srcStart := srcBlockBase + srcOff*int64(itemsize)
			copy(dst[dstStart:dstStart+int64(byteLen)], src[srcStart:srcStart+int64(byteLen)])
			return
		}
		for i := int64(0); i < clip[dim]; i++ {
			walk(dim+1, dstOff+(origin[dim]+i)*chunkStrides[dim], srcOff+i*blockStrides[dim])
		}
	}
	walk(0, 0, 0)
}

// copyBlockLines walks the outer MaxDim-1 axes of one block and bulk
// copies each innermost-axis line, which is always contiguous in both the
// source chunk buffer and the destination block buffer.
func copyBlockLines(dst, src []byte, origin, clip []int64, chunkStrides, blockStrides []int64, dstBlockBase int64, itemsize int) {
	lineLen := clip[geometry.MaxDim-1]
	if lineLen == 0 {
		return
	}
	byteLen := int(lineLen) * itemsize

	var walk func(dim int, srcOff, dstOff int64)
	walk = func(dim int, srcOff, dstOff int64) {
		if dim == geometry.MaxDim-1 {
			srcOff += origin[dim] * chunkStrides[dim]
			srcStart := srcOff * int64(itemsize)
			dstStart := dstBlockBase + dstOff*int64(itemsize)
			copy(dst[dstStart:dstStart+int64(byteLen)], src[srcStart:srcStart+int64(byteLen)])
			return
		}
		for i := int64(0); i < clip[dim]; i++ {
			walk(dim+1, srcOff+(origin[dim]+i)*chunkStrides[dim], dstOff+i*blockStrides[dim])
		}
	}
	walk(0, 0, 0)
}
