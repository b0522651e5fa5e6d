package caterva

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// ToTensor decompresses the whole array and wraps it as a gomlx tensor
// shaped Shape, decoding raw bytes according to DType ("float32",
// "float64", "int32" or "int64"). This is a convenience reshape, not a
// compute step: no element-wise work happens here, only a byte
// reinterpretation identical to what ToBuffer already produced.
func (a *Array) ToTensor(ctx context.Context) (*tensors.Tensor, error) {
	if a.dtype == "" {
		return nil, fmt.Errorf("%w: array has no DType set; call SetDType first", ErrInvalidArgument)
	}
	buf, err := a.ToBuffer(ctx)
	if err != nil {
		return nil, err
	}
	dims := make([]int, a.ndim)
	for i, v := range a.shape {
		dims[i] = int(v)
	}
	return bytesToTensor(a.dtype, buf, dims)
}

// GetSliceTensor is GetSliceBuffer followed by a tensor reshape, for
// callers who want a gomlx tensor over just [start, stop) without an
// intermediate Array.
func (a *Array) GetSliceTensor(ctx context.Context, start, stop []int64) (*tensors.Tensor, error) {
	if a.dtype == "" {
		return nil, fmt.Errorf("%w: array has no DType set; call SetDType first", ErrInvalidArgument)
	}
	dims := make([]int, a.ndim)
	for i := range start {
		dims[i] = int(stop[i] - start[i])
	}
	nitems := 1
	for _, d := range dims {
		nitems *= d
	}
	buf := make([]byte, nitems*a.itemsize)
	if err := a.GetSliceBuffer(ctx, start, stop, buf); err != nil {
		return nil, err
	}
	return bytesToTensor(a.dtype, buf, dims)
}

func bytesToTensor(dtype string, buf []byte, dims []int) (*tensors.Tensor, error) {
	switch dtype {
	case "float32":
		n := len(buf) / 4
		v := make([]float32, n)
		for i := 0; i < n; i++ {
			v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}
		return tensors.FromFlatDataAndDimensions(v, dims...), nil
	case "float64":
		n := len(buf) / 8
		v := make([]float64, n)
		for i := 0; i < n; i++ {
			v[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
		}
		return tensors.FromFlatDataAndDimensions(v, dims...), nil
	case "int32":
		n := len(buf) / 4
		v := make([]int32, n)
		for i := 0; i < n; i++ {
			v[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
		}
		return tensors.FromFlatDataAndDimensions(v, dims...), nil
	case "int64":
		n := len(buf) / 8
		v := make([]int64, n)
		for i := 0; i < n; i++ {
			v[i] = int64(binary.LittleEndian.Uint64(buf[i*8:]))
		}
		return tensors.FromFlatDataAndDimensions(v, dims...), nil
	default:
		return nil, fmt.Errorf("%w: unsupported DType %q", ErrInvalidArgument, dtype)
	}
}
