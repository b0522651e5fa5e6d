package caterva_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NickleDave/Caterva/internal/schunk"

	"github.com/NickleDave/Caterva/caterva"

	_ "gocloud.dev/blob/fileblob"
)

func TestToBytesOpenBytesRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, err := caterva.Empty(baseConfig())
	require.NoError(t, err)
	defer a.Free()
	require.NoError(t, a.FromBuffer(ctx, int32Buffer([]int32{0, 1, 2, 3, 4, 5, 6, 7})))

	image := a.ToBytes()

	restored, err := caterva.OpenBytes(image, true, false)
	require.NoError(t, err)
	defer restored.Free()

	require.Equal(t, a.Shape(), restored.Shape())
	require.Equal(t, a.ChunkShape(), restored.ChunkShape())
	require.Equal(t, a.BlockShape(), restored.BlockShape())

	out, err := restored.ToBuffer(ctx)
	require.NoError(t, err)
	require.Equal(t, []int32{0, 1, 2, 3, 4, 5, 6, 7}, int32Values(out))
}

func TestOpenPathPersistsArray(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := "file://" + dir

	cfg := baseConfig()
	cfg.Storage.Path = path
	cfg.Storage.Contiguous = true

	a, err := caterva.Empty(cfg)
	require.NoError(t, err)
	require.NoError(t, a.FromBuffer(ctx, int32Buffer([]int32{1, 2, 3, 4, 5, 6, 7, 8})))
	require.NoError(t, a.Free())

	reopened, err := caterva.OpenPath(ctx, path, false)
	require.NoError(t, err)
	defer reopened.Free()

	out, err := reopened.ToBuffer(ctx)
	require.NoError(t, err)
	require.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8}, int32Values(out))
}

func TestCopyDuplicatesData(t *testing.T) {
	ctx := context.Background()
	a, err := caterva.Empty(baseConfig())
	require.NoError(t, err)
	defer a.Free()
	require.NoError(t, a.FromBuffer(ctx, int32Buffer([]int32{0, 1, 2, 3, 4, 5, 6, 7})))

	cp, err := a.Copy(ctx, a.ChunkShape(), a.BlockShape(), schunk.StorageConfig{Codec: schunk.CodecParams{CompressorID: "none"}})
	require.NoError(t, err)
	defer cp.Free()

	out, err := cp.ToBuffer(ctx)
	require.NoError(t, err)
	require.Equal(t, []int32{0, 1, 2, 3, 4, 5, 6, 7}, int32Values(out))
	require.Equal(t, cp.NChunks(), a.NChunks())
}

// TestCopyClonesBloscBackend exercises Copy's branch (a): matching geometry
// and a Blosc-backed source, so the destination's frames should be a raw
// clone of the source's rather than a GetSlice-based rebuild.
func TestCopyClonesBloscBackend(t *testing.T) {
	ctx := context.Background()
	cfg := baseConfig()
	cfg.Storage.Codec = schunk.CodecParams{CompressorID: "blosc"}
	a, err := caterva.Empty(cfg)
	require.NoError(t, err)
	defer a.Free()
	require.NoError(t, a.FromBuffer(ctx, int32Buffer([]int32{0, 1, 2, 3, 4, 5, 6, 7})))

	cp, err := a.Copy(ctx, a.ChunkShape(), a.BlockShape(), schunk.StorageConfig{Codec: schunk.CodecParams{CompressorID: "blosc"}})
	require.NoError(t, err)
	defer cp.Free()

	out, err := cp.ToBuffer(ctx)
	require.NoError(t, err)
	require.Equal(t, []int32{0, 1, 2, 3, 4, 5, 6, 7}, int32Values(out))
	require.Equal(t, a.NChunks(), cp.NChunks())
}

// TestCopyChangingGeometryRebuilds exercises Copy's branch (b): a different
// destination chunkshape forces a GetSlice-based rebuild even though the
// source is Blosc-backed.
func TestCopyChangingGeometryRebuilds(t *testing.T) {
	ctx := context.Background()
	cfg := baseConfig()
	cfg.Storage.Codec = schunk.CodecParams{CompressorID: "blosc"}
	a, err := caterva.Empty(cfg)
	require.NoError(t, err)
	defer a.Free()
	require.NoError(t, a.FromBuffer(ctx, int32Buffer([]int32{0, 1, 2, 3, 4, 5, 6, 7})))

	cp, err := a.Copy(ctx, []int32{8}, []int32{4}, schunk.StorageConfig{Codec: schunk.CodecParams{CompressorID: "blosc"}})
	require.NoError(t, err)
	defer cp.Free()

	require.Equal(t, []int32{8}, cp.ChunkShape())
	out, err := cp.ToBuffer(ctx)
	require.NoError(t, err)
	require.Equal(t, []int32{0, 1, 2, 3, 4, 5, 6, 7}, int32Values(out))
}

// TestCopyChangingCodecRebuilds exercises a requested compressor change with
// matching geometry: Copy must route through the rebuild branch rather than
// a raw backend clone, so the destination's chunks are genuinely recompressed
// under the new codec instead of relabeled.
func TestCopyChangingCodecRebuilds(t *testing.T) {
	ctx := context.Background()
	cfg := baseConfig()
	cfg.Storage.Codec = schunk.CodecParams{CompressorID: "blosc"}
	a, err := caterva.Empty(cfg)
	require.NoError(t, err)
	defer a.Free()
	require.NoError(t, a.FromBuffer(ctx, int32Buffer([]int32{0, 1, 2, 3, 4, 5, 6, 7})))

	cp, err := a.Copy(ctx, a.ChunkShape(), a.BlockShape(), schunk.StorageConfig{Codec: schunk.CodecParams{CompressorID: "zstd"}})
	require.NoError(t, err)
	defer cp.Free()

	out, err := cp.ToBuffer(ctx)
	require.NoError(t, err)
	require.Equal(t, []int32{0, 1, 2, 3, 4, 5, 6, 7}, int32Values(out))
}
