package caterva

import (
	"context"
	"fmt"

	"github.com/NickleDave/Caterva/internal/metapack"
)

// Squeeze removes every dimension whose logical extent is 1, relabeling
// the array's geometry in place. It never touches the backend's stored
// chunk frames: a size-1 axis is, by construction, a single chunk
// containing a single block along that axis, so dropping it changes only
// how linear storage is interpreted, not the bytes themselves.
func (a *Array) Squeeze(ctx context.Context) error {
	var axes []int
	for i := 0; i < a.ndim; i++ {
		if a.shape[i] == 1 {
			axes = append(axes, i)
		}
	}
	return a.SqueezeIndex(ctx, axes)
}

// SqueezeIndex removes exactly the named axes, each of which must have
// extent 1 and be unpadded (chunkshape == blockshape == 1 along that
// axis), relabeling the array's geometry in place.
func (a *Array) SqueezeIndex(ctx context.Context, axes []int) error {
	if len(axes) == 0 {
		return nil
	}
	remove := make(map[int]bool, len(axes))
	for _, ax := range axes {
		if ax < 0 || ax >= a.ndim {
			return fmt.Errorf("%w: axis %d out of range [0, %d)", ErrInvalidIndex, ax, a.ndim)
		}
		if a.shape[ax] != 1 {
			return fmt.Errorf("%w: axis %d has extent %d, squeeze requires 1", ErrInvalidIndex, ax, a.shape[ax])
		}
		if a.chunkshape[ax] != 1 || a.blockshape[ax] != 1 {
			return fmt.Errorf("%w: axis %d is padded (chunkshape=%d blockshape=%d), cannot squeeze without repacking",
				ErrInvalidIndex, ax, a.chunkshape[ax], a.blockshape[ax])
		}
		remove[ax] = true
	}
	if len(remove) >= a.ndim {
		return fmt.Errorf("%w: cannot squeeze every dimension", ErrInvalidArgument)
	}

	newNDim := a.ndim - len(remove)
	shape := make([]int64, 0, newNDim)
	chunkshape := make([]int32, 0, newNDim)
	blockshape := make([]int32, 0, newNDim)
	for i := 0; i < a.ndim; i++ {
		if remove[i] {
			continue
		}
		shape = append(shape, a.shape[i])
		chunkshape = append(chunkshape, a.chunkshape[i])
		blockshape = append(blockshape, a.blockshape[i])
	}

	rebuilt, err := newFromConfig(Config{
		ItemSize:   a.itemsize,
		Shape:      shape,
		ChunkShape: chunkshape,
		BlockShape: blockshape,
	})
	if err != nil {
		return err
	}
	rebuilt.sc = a.sc
	rebuilt.alloc = a.alloc
	rebuilt.filled = a.filled
	if a.cache != nil {
		rebuilt.cache = &chunkCache{}
	}

	meta, err := metapack.Encode(rebuilt.ndim, rebuilt.shape, rebuilt.chunkshape, rebuilt.blockshape)
	if err != nil {
		return fmt.Errorf("%w: encoding squeezed metadata: %v", ErrInvalidArgument, err)
	}
	if err := a.sc.MetaUpdate(ctx, metapack.Name, meta); err != nil {
		return fmt.Errorf("%w: updating metadata: %v", ErrBackendFailed, err)
	}

	*a = *rebuilt
	return nil
}
