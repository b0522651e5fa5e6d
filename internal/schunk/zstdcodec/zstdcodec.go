// Package zstdcodec adapts github.com/klauspost/compress/zstd to
// schunk.Codec. It is the default compressor — the teacher repo
// (TuSKan-go-zarr) already depends on klauspost/compress for its own
// Zarr "zstd" compressor id, decoding with a one-shot zstd.NewReader and
// DecodeAll the same way zarr/dataset.go does.
package zstdcodec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/NickleDave/Caterva/internal/schunk"
)

// ID is the compressor id this codec registers and persists as.
const ID = "zstd"

type codec struct{}

// New returns the zstd schunk.Codec singleton.
func New() schunk.Codec { return codec{} }

func init() {
	schunk.RegisterCodec(New())
}

func (codec) ID() string { return ID }

func (codec) Compress(src []byte, itemsize int) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstdcodec: new writer: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(src, nil), nil
}

func (codec) Decompress(dst, frame []byte, itemsize, blockNitems int, maskout []bool) error {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return fmt.Errorf("zstdcodec: new reader: %w", err)
	}
	defer dec.Close()

	plain, err := dec.DecodeAll(frame, nil)
	if err != nil {
		return fmt.Errorf("zstdcodec: decode: %w", err)
	}

	if maskout == nil {
		copy(dst, plain)
		return nil
	}
	schunk.CopyUnmaskedBlocks(dst, plain, itemsize, blockNitems, maskout)
	return nil
}
