package caterva_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NickleDave/Caterva/internal/schunk"

	"github.com/NickleDave/Caterva/caterva"
)

func TestSqueezeRemovesUnitAxis(t *testing.T) {
	ctx := context.Background()
	cfg := caterva.Config{
		ItemSize:   4,
		Shape:      []int64{1, 8},
		ChunkShape: []int32{1, 4},
		BlockShape: []int32{1, 2},
		Storage:    schunk.StorageConfig{Codec: schunk.CodecParams{CompressorID: "none"}},
	}
	a, err := caterva.Empty(cfg)
	require.NoError(t, err)
	defer a.Free()
	require.NoError(t, a.FromBuffer(ctx, int32Buffer([]int32{0, 1, 2, 3, 4, 5, 6, 7})))

	require.NoError(t, a.Squeeze(ctx))
	require.Equal(t, 1, a.NDim())
	require.Equal(t, []int64{8}, a.Shape())

	out, err := a.ToBuffer(ctx)
	require.NoError(t, err)
	require.Equal(t, []int32{0, 1, 2, 3, 4, 5, 6, 7}, int32Values(out))
}

func TestSqueezeIndexRejectsNonUnitAxis(t *testing.T) {
	ctx := context.Background()
	a, err := caterva.Empty(baseConfig())
	require.NoError(t, err)
	defer a.Free()

	err = a.SqueezeIndex(ctx, []int{0})
	require.ErrorIs(t, err, caterva.ErrInvalidIndex)
}

func TestSqueezeIndexRejectsOutOfRange(t *testing.T) {
	ctx := context.Background()
	a, err := caterva.Empty(baseConfig())
	require.NoError(t, err)
	defer a.Free()

	err = a.SqueezeIndex(ctx, []int{5})
	require.ErrorIs(t, err, caterva.ErrInvalidIndex)
}
