package caterva

import (
	"context"
	"fmt"
	"io"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Dataset walks an array's leading (axis 0) dimension in fixed-size
// batches, handing each one back as a gomlx tensor. It exists for
// training-loop style consumers that want "next batch" rather than random
// access; GetSliceTensor already covers arbitrary-range reads.
type Dataset struct {
	a            *Array
	CurrentIndex int64
}

// NewDataset wraps arr for batched reading. arr must have a DType set
// (see Array.SetDType) since batches are materialized as tensors.
func NewDataset(arr *Array) (*Dataset, error) {
	if arr.dtype == "" {
		return nil, fmt.Errorf("%w: array has no DType set; call SetDType first", ErrInvalidArgument)
	}
	return &Dataset{a: arr}, nil
}

// NextBatch reads the next batchSize elements along axis 0 (fewer, on the
// last batch, if the axis doesn't divide evenly) and returns them as a
// tensor shaped [n, Shape[1], Shape[2], ...]. It returns io.EOF once
// CurrentIndex has reached the axis-0 extent.
func (d *Dataset) NextBatch(ctx context.Context, batchSize int) (*tensors.Tensor, error) {
	axis0 := d.a.shape[0]
	if d.CurrentIndex >= axis0 {
		return nil, io.EOF
	}

	start := make([]int64, d.a.ndim)
	stop := make([]int64, d.a.ndim)
	start[0] = d.CurrentIndex
	end := d.CurrentIndex + int64(batchSize)
	if end > axis0 {
		end = axis0
	}
	stop[0] = end
	for i := 1; i < d.a.ndim; i++ {
		stop[i] = d.a.shape[i]
	}

	t, err := d.a.GetSliceTensor(ctx, start, stop)
	if err != nil {
		return nil, err
	}
	d.CurrentIndex = end
	return t, nil
}

// Reset rewinds the dataset to the beginning of axis 0.
func (d *Dataset) Reset() { d.CurrentIndex = 0 }
