// Package nonecodec is a pass-through schunk.Codec ("none"): chunks are
// stored uncompressed. It exists for tests and for callers who want the
// double-partition geometry without paying a codec's CPU cost, and keeps
// the writer/reader paths honest about not assuming any particular codec.
package nonecodec

import (
	"fmt"

	"github.com/NickleDave/Caterva/internal/schunk"
)

// ID is the compressor id this codec registers and persists as.
const ID = "none"

type codec struct{}

// New returns the no-op schunk.Codec singleton.
func New() schunk.Codec { return codec{} }

func init() {
	schunk.RegisterCodec(New())
}

func (codec) ID() string { return ID }

func (codec) Compress(src []byte, itemsize int) ([]byte, error) {
	frame := make([]byte, len(src))
	copy(frame, src)
	return frame, nil
}

func (codec) Decompress(dst, frame []byte, itemsize, blockNitems int, maskout []bool) error {
	if maskout == nil {
		if len(frame) != len(dst) {
			return fmt.Errorf("nonecodec: frame has %d bytes, dst wants %d", len(frame), len(dst))
		}
		copy(dst, frame)
		return nil
	}
	schunk.CopyUnmaskedBlocks(dst, frame, itemsize, blockNitems, maskout)
	return nil
}
