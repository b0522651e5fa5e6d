package schunk_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NickleDave/Caterva/internal/schunk"
	_ "github.com/NickleDave/Caterva/internal/schunk/nonecodec"
	_ "gocloud.dev/blob/fileblob"
)

func newStore(t *testing.T) *schunk.Store {
	t.Helper()
	codec, ok := schunk.LookupCodec("none")
	require.True(t, ok)
	s, err := schunk.New(schunk.StorageConfig{}, codec, 4)
	require.NoError(t, err)
	return s
}

func TestAppendAndDecompressRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	chunk := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	nchunk, err := s.AppendBuffer(ctx, chunk)
	require.NoError(t, err)
	require.Equal(t, 0, nchunk)
	require.Equal(t, 1, s.NChunks())

	dst := make([]byte, len(chunk))
	err = s.DecompressChunk(nchunk, dst, 0, nil)
	require.NoError(t, err)
	require.Equal(t, chunk, dst)
}

func TestMaskedDecompress(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	// Two blocks of 2 int32 elements (8 bytes) each.
	chunk := []byte{
		1, 0, 0, 0, 2, 0, 0, 0,
		3, 0, 0, 0, 4, 0, 0, 0,
	}
	nchunk, err := s.AppendBuffer(ctx, chunk)
	require.NoError(t, err)

	dst := make([]byte, len(chunk))
	for i := range dst {
		dst[i] = 0xff
	}
	err = s.DecompressChunk(nchunk, dst, 2, []bool{false, true})
	require.NoError(t, err)

	want := []byte{
		1, 0, 0, 0, 2, 0, 0, 0, // block 0 decompressed
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, // block 1 left untouched
	}
	require.Equal(t, want, dst)
}

func TestMetadataBlob(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.False(t, s.MetaExists("caterva"))
	require.NoError(t, s.MetaAdd(ctx, "caterva", []byte{1, 2, 3}))
	require.True(t, s.MetaExists("caterva"))

	got, err := s.MetaGet("caterva")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got)

	require.NoError(t, s.MetaUpdate(ctx, "caterva", []byte{9}))
	got, err = s.MetaGet("caterva")
	require.NoError(t, err)
	require.Equal(t, []byte{9}, got)

	_, err = s.MetaGet("missing")
	require.ErrorIs(t, err, schunk.ErrNotFound)
}

func TestToBytesFromBytesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	chunk := []byte{1, 2, 3, 4}
	_, err := s.AppendBuffer(ctx, chunk)
	require.NoError(t, err)
	require.NoError(t, s.MetaAdd(ctx, "caterva", []byte{7, 7}))

	image := s.ToBytes()

	restored, err := schunk.FromBytes(image, true)
	require.NoError(t, err)
	require.Equal(t, 1, restored.NChunks())

	dst := make([]byte, len(chunk))
	require.NoError(t, restored.DecompressChunk(0, dst, 0, nil))
	require.Equal(t, chunk, dst)

	meta, err := restored.MetaGet("caterva")
	require.NoError(t, err)
	require.Equal(t, []byte{7, 7}, meta)
}

func TestOpenPathPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := "file://" + dir

	codec, ok := schunk.LookupCodec("none")
	require.True(t, ok)

	s, err := schunk.New(schunk.StorageConfig{Contiguous: true, Path: path}, codec, 4)
	require.NoError(t, err)

	chunk := []byte{1, 2, 3, 4}
	_, err = s.AppendBuffer(ctx, chunk)
	require.NoError(t, err)
	require.NoError(t, s.MetaAdd(ctx, "caterva", []byte{5}))
	require.NoError(t, s.Free())

	reopened, err := schunk.Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Free()

	require.Equal(t, 1, reopened.NChunks())
	dst := make([]byte, len(chunk))
	require.NoError(t, reopened.DecompressChunk(0, dst, 0, nil))
	require.Equal(t, chunk, dst)
}

func TestOpenMissingPathFails(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	_, err := schunk.Open(ctx, "file://"+dir)
	require.ErrorIs(t, err, schunk.ErrNotFound)
}
