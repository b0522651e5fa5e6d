// Package zlibcodec adapts the standard library's compress/zlib to
// schunk.Codec, for reading (and writing) containers tagged with the
// legacy "zlib" compressor id — the teacher repo (TuSKan-go-zarr) decodes
// this Zarr compressor the same way in reader.go.
package zlibcodec

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/NickleDave/Caterva/internal/schunk"
)

// ID is the compressor id this codec registers and persists as.
const ID = "zlib"

type codec struct{}

// New returns the zlib schunk.Codec singleton.
func New() schunk.Codec { return codec{} }

func init() {
	schunk.RegisterCodec(New())
}

func (codec) ID() string { return ID }

func (codec) Compress(src []byte, itemsize int) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		w.Close()
		return nil, fmt.Errorf("zlibcodec: compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlibcodec: compress: %w", err)
	}
	return buf.Bytes(), nil
}

func (codec) Decompress(dst, frame []byte, itemsize, blockNitems int, maskout []bool) error {
	r, err := zlib.NewReader(bytes.NewReader(frame))
	if err != nil {
		return fmt.Errorf("zlibcodec: new reader: %w", err)
	}
	defer r.Close()

	plain, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("zlibcodec: decompress: %w", err)
	}

	if maskout == nil {
		copy(dst, plain)
		return nil
	}
	schunk.CopyUnmaskedBlocks(dst, plain, itemsize, blockNitems, maskout)
	return nil
}
