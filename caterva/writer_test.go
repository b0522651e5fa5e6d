package caterva_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NickleDave/Caterva/internal/schunk"

	"github.com/NickleDave/Caterva/caterva"
)

func int32Buffer(vals []int32) []byte {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return buf
}

func int32Values(buf []byte) []int32 {
	out := make([]int32, len(buf)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

func TestFromBufferToBufferAlignedRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, err := caterva.Empty(baseConfig())
	require.NoError(t, err)
	defer a.Free()

	src := int32Buffer([]int32{0, 1, 2, 3, 4, 5, 6, 7})
	require.NoError(t, a.FromBuffer(ctx, src))
	require.Equal(t, 2, a.NChunks())

	out, err := a.ToBuffer(ctx)
	require.NoError(t, err)
	require.Equal(t, []int32{0, 1, 2, 3, 4, 5, 6, 7}, int32Values(out))
}

func TestFromBufferToBufferPaddedTrailingChunk(t *testing.T) {
	ctx := context.Background()
	cfg := caterva.Config{
		ItemSize:   4,
		Shape:      []int64{6},
		ChunkShape: []int32{4},
		BlockShape: []int32{2},
		Storage:    schunk.StorageConfig{Codec: schunk.CodecParams{CompressorID: "none"}},
	}
	a, err := caterva.Empty(cfg)
	require.NoError(t, err)
	defer a.Free()

	src := int32Buffer([]int32{10, 11, 12, 13, 14, 15})
	require.NoError(t, a.FromBuffer(ctx, src))
	require.Equal(t, 2, a.NChunks())

	out, err := a.ToBuffer(ctx)
	require.NoError(t, err)
	require.Equal(t, []int32{10, 11, 12, 13, 14, 15}, int32Values(out))
}

func TestFromBuffer2DPaddedRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := caterva.Config{
		ItemSize:   4,
		Shape:      []int64{6, 5},
		ChunkShape: []int32{3, 3},
		BlockShape: []int32{2, 2},
		Storage:    schunk.StorageConfig{Codec: schunk.CodecParams{CompressorID: "none"}},
	}
	a, err := caterva.Empty(cfg)
	require.NoError(t, err)
	defer a.Free()

	vals := make([]int32, 30)
	for i := range vals {
		vals[i] = int32(i)
	}
	src := int32Buffer(vals)
	require.NoError(t, a.FromBuffer(ctx, src))
	require.Equal(t, 4, a.NChunks()) // 2x2 chunk grid

	out, err := a.ToBuffer(ctx)
	require.NoError(t, err)
	require.Equal(t, vals, int32Values(out))
}

func TestAppendShortEdgeChunkMatchesFromBuffer(t *testing.T) {
	ctx := context.Background()
	cfg := caterva.Config{
		ItemSize:   4,
		Shape:      []int64{6},
		ChunkShape: []int32{4},
		BlockShape: []int32{2},
		Storage:    schunk.StorageConfig{Codec: schunk.CodecParams{CompressorID: "none"}},
	}

	// Built by FromBuffer, which internally zero-pads the trailing chunk.
	a1, err := caterva.Empty(cfg)
	require.NoError(t, err)
	defer a1.Free()
	require.NoError(t, a1.FromBuffer(ctx, int32Buffer([]int32{0, 1, 2, 3, 4, 5})))

	// Built by hand, appending only the live extent of the trailing chunk.
	a2, err := caterva.Empty(cfg)
	require.NoError(t, err)
	defer a2.Free()
	require.NoError(t, a2.Append(ctx, int32Buffer([]int32{0, 1, 2, 3})))
	require.NoError(t, a2.Append(ctx, int32Buffer([]int32{4, 5})))

	out1, err := a1.ToBuffer(ctx)
	require.NoError(t, err)
	out2, err := a2.ToBuffer(ctx)
	require.NoError(t, err)
	require.Equal(t, int32Values(out1), int32Values(out2))
	require.Equal(t, []int32{0, 1, 2, 3, 4, 5}, int32Values(out2))
}

func TestAppendRejectsWrongChunkLength(t *testing.T) {
	ctx := context.Background()
	a, err := caterva.Empty(baseConfig())
	require.NoError(t, err)
	defer a.Free()

	err = a.Append(ctx, make([]byte, 4))
	require.ErrorIs(t, err, caterva.ErrInvalidArgument)
}

func TestFromBufferRejectsWrongLength(t *testing.T) {
	ctx := context.Background()
	a, err := caterva.Empty(baseConfig())
	require.NoError(t, err)
	defer a.Free()

	err = a.FromBuffer(ctx, make([]byte, 4))
	require.ErrorIs(t, err, caterva.ErrInvalidArgument)
}
