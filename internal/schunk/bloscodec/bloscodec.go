// Package bloscodec adapts github.com/mrjoshuak/go-blosc to
// schunk.Codec. It is the closest available analogue of the C Blosc
// library the system this spec ports (NickleDave/Caterva) was originally
// layered on, and is the compressor id a real Caterva container would
// read back as "blosc".
package bloscodec

import (
	"fmt"

	"github.com/mrjoshuak/go-blosc"

	"github.com/NickleDave/Caterva/internal/schunk"
)

// ID is the compressor id this codec registers and persists as.
const ID = "blosc"

// defaultLevel is the Blosc compression level (0-9) every Compress call
// uses. The codec does not receive CodecParams, so CodecParams.Level has no
// effect on it.
const defaultLevel = 5

type codec struct{}

// New returns the Blosc schunk.Codec singleton.
func New() schunk.Codec { return codec{} }

func init() {
	schunk.RegisterCodec(New())
}

func (codec) ID() string { return ID }

func (codec) Compress(src []byte, itemsize int) ([]byte, error) {
	frame, err := blosc.Compress(defaultLevel, itemsize, src)
	if err != nil {
		return nil, fmt.Errorf("bloscodec: compress: %w", err)
	}
	return frame, nil
}

func (codec) Decompress(dst, frame []byte, itemsize, blockNitems int, maskout []bool) error {
	plain, err := blosc.Decompress(frame)
	if err != nil {
		return fmt.Errorf("bloscodec: decompress: %w", err)
	}

	if maskout == nil {
		copy(dst, plain)
		return nil
	}
	schunk.CopyUnmaskedBlocks(dst, plain, itemsize, blockNitems, maskout)
	return nil
}
