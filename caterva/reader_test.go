package caterva_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NickleDave/Caterva/internal/schunk"

	"github.com/NickleDave/Caterva/caterva"
)

func make2D(t *testing.T) *caterva.Array {
	t.Helper()
	cfg := caterva.Config{
		ItemSize:    4,
		Shape:       []int64{6, 5},
		ChunkShape:  []int32{3, 3},
		BlockShape:  []int32{2, 2},
		Storage:     schunk.StorageConfig{Codec: schunk.CodecParams{CompressorID: "none"}},
		EnableCache: true,
	}
	a, err := caterva.Empty(cfg)
	require.NoError(t, err)

	vals := make([]int32, 30)
	for i := range vals {
		vals[i] = int32(i)
	}
	require.NoError(t, a.FromBuffer(context.Background(), int32Buffer(vals)))
	return a
}

// element returns the value at row-major (r,c) in a 6x5 array filled with
// 0..29 in row-major order.
func element(r, c int64) int32 {
	return int32(r*5 + c)
}

func TestGetSliceBufferFastPathFullChunk(t *testing.T) {
	ctx := context.Background()
	a := make2D(t)
	defer a.Free()

	// Chunk (0,0): rows [0,3), cols [0,3) — full-size, chunk-aligned.
	dst := make([]byte, 3*3*4)
	require.NoError(t, a.GetSliceBuffer(ctx, []int64{0, 0}, []int64{3, 3}, dst))

	got := int32Values(dst)
	want := []int32{
		element(0, 0), element(0, 1), element(0, 2),
		element(1, 0), element(1, 1), element(1, 2),
		element(2, 0), element(2, 1), element(2, 2),
	}
	require.Equal(t, want, got)
}

func TestGetSliceBufferCrossesChunkBoundary(t *testing.T) {
	ctx := context.Background()
	a := make2D(t)
	defer a.Free()

	// rows [2,4), cols [1,4): straddles all four chunks.
	dst := make([]byte, 2*3*4)
	require.NoError(t, a.GetSliceBuffer(ctx, []int64{2, 1}, []int64{4, 4}, dst))

	got := int32Values(dst)
	want := []int32{
		element(2, 1), element(2, 2), element(2, 3),
		element(3, 1), element(3, 2), element(3, 3),
	}
	require.Equal(t, want, got)
}

func TestGetSliceBufferFullExtent(t *testing.T) {
	ctx := context.Background()
	a := make2D(t)
	defer a.Free()

	dst := make([]byte, 6*5*4)
	require.NoError(t, a.GetSliceBuffer(ctx, []int64{0, 0}, []int64{6, 5}, dst))

	want := make([]int32, 30)
	for i := range want {
		want[i] = int32(i)
	}
	require.Equal(t, want, int32Values(dst))
}

func TestGetSliceBufferRejectsOutOfRange(t *testing.T) {
	ctx := context.Background()
	a := make2D(t)
	defer a.Free()

	dst := make([]byte, 3*3*4)
	err := a.GetSliceBuffer(ctx, []int64{0, 0}, []int64{3, 100}, dst)
	require.ErrorIs(t, err, caterva.ErrInvalidIndex)
}

func TestGetSlice(t *testing.T) {
	ctx := context.Background()
	a := make2D(t)
	defer a.Free()

	out, err := a.GetSlice(ctx, []int64{2, 1}, []int64{4, 4}, []int32{2, 3}, []int32{1, 2}, caterva.Config{
		Storage: schunk.StorageConfig{Codec: schunk.CodecParams{CompressorID: "none"}},
	})
	require.NoError(t, err)
	defer out.Free()

	buf, err := out.ToBuffer(ctx)
	require.NoError(t, err)
	want := []int32{
		element(2, 1), element(2, 2), element(2, 3),
		element(3, 1), element(3, 2), element(3, 3),
	}
	require.Equal(t, want, int32Values(buf))
}

func TestChunkCacheHitReusesDecompressedChunk(t *testing.T) {
	ctx := context.Background()
	a := make2D(t)
	defer a.Free()

	dst1 := make([]byte, 3*3*4)
	require.NoError(t, a.GetSliceBuffer(ctx, []int64{0, 0}, []int64{3, 3}, dst1))
	dst2 := make([]byte, 3*3*4)
	require.NoError(t, a.GetSliceBuffer(ctx, []int64{0, 0}, []int64{3, 3}, dst2))
	require.Equal(t, dst1, dst2)
}
