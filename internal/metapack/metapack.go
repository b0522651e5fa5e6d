// Package metapack serializes and deserializes the Caterva geometry
// descriptor to and from the compact, self-delimited "caterva" metadata
// blob carried by the super-chunk backend.
//
// The wire format is a tagged-array envelope: a fixed 5-element array
// header, followed by version and ndim scalars, followed by three
// ndim-element typed arrays (shape as int64, chunkshape and blockshape as
// int32). All multi-byte payloads are big-endian regardless of host
// endianness — bytes are shifted out explicitly rather than branching on
// host byte order.
package metapack

import (
	"encoding/binary"
	"fmt"

	"github.com/NickleDave/Caterva/internal/geometry"
)

// Name is the metadata layer name the super-chunk backend stores this blob
// under.
const Name = "caterva"

// Version is the current metadata format version written by Encode.
const Version = 0

const (
	tagFixArray5 = 0x95
	tagFixArrayN = 0x90 // OR'd with ndim for an ndim-element fixed array
	tagInt64     = 0xd3
	tagInt32     = 0xd2
)

// Geometry is the decoded form of a metadata blob.
type Geometry struct {
	Version    int
	NDim       int
	Shape      []int64
	ChunkShape []int32
	BlockShape []int32
}

// Encode serializes (ndim, shape, chunkshape, blockshape) to the
// "caterva" wire format. Axes beyond ndim are not written. Decode returns
// ndim-length vectors; right-aligning them with geometry.RightAlign* fills
// the unused slots with 1.
func Encode(ndim int, shape []int64, chunkshape, blockshape []int32) ([]byte, error) {
	if ndim < 1 || ndim > geometry.MaxDim {
		return nil, fmt.Errorf("metapack: ndim %d out of range [1, %d]", ndim, geometry.MaxDim)
	}
	if len(shape) != ndim || len(chunkshape) != ndim || len(blockshape) != ndim {
		return nil, fmt.Errorf("metapack: vector length mismatch with ndim=%d", ndim)
	}

	size := 3 + 3*(1+ndim) + ndim*(8+4+4)
	buf := make([]byte, 0, size)

	buf = append(buf, tagFixArray5)
	buf = append(buf, byte(Version))
	buf = append(buf, byte(ndim))

	buf = append(buf, tagFixArrayN|byte(ndim))
	for _, v := range shape {
		buf = append(buf, tagInt64)
		buf = appendBigEndian64(buf, uint64(v))
	}

	buf = append(buf, tagFixArrayN|byte(ndim))
	for _, v := range chunkshape {
		buf = append(buf, tagInt32)
		buf = appendBigEndian32(buf, uint32(v))
	}

	buf = append(buf, tagFixArrayN|byte(ndim))
	for _, v := range blockshape {
		buf = append(buf, tagInt32)
		buf = appendBigEndian32(buf, uint32(v))
	}

	if len(buf) != size {
		return nil, fmt.Errorf("metapack: internal length mismatch: wrote %d, expected %d", len(buf), size)
	}
	return buf, nil
}

// Decode parses a "caterva" metadata blob produced by Encode. A stored
// version greater than Version is a hard error (the source this format was
// ported from only asserted on this condition; here it is always
// propagated as an error).
func Decode(b []byte) (Geometry, error) {
	var g Geometry
	if len(b) < 3 {
		return g, fmt.Errorf("metapack: blob too short (%d bytes)", len(b))
	}
	if b[0] != tagFixArray5 {
		return g, fmt.Errorf("metapack: bad envelope tag 0x%02x, want 0x%02x", b[0], tagFixArray5)
	}

	version := int(b[1])
	if version > Version {
		return g, fmt.Errorf("metapack: unsupported metadata version %d (known up to %d)", version, Version)
	}
	ndim := int(b[2])
	if ndim < 1 || ndim > geometry.MaxDim {
		return g, fmt.Errorf("metapack: decoded ndim %d out of range [1, %d]", ndim, geometry.MaxDim)
	}

	r := reader{buf: b, pos: 3}

	shape, err := r.readArray(ndim, tagInt64, 8)
	if err != nil {
		return g, fmt.Errorf("metapack: shape: %w", err)
	}
	chunkshape, err := r.readArray(ndim, tagInt32, 4)
	if err != nil {
		return g, fmt.Errorf("metapack: chunkshape: %w", err)
	}
	blockshape, err := r.readArray(ndim, tagInt32, 4)
	if err != nil {
		return g, fmt.Errorf("metapack: blockshape: %w", err)
	}

	g = Geometry{
		Version:    version,
		NDim:       ndim,
		Shape:      toInt64(shape),
		ChunkShape: toInt32(chunkshape),
		BlockShape: toInt32(blockshape),
	}
	return g, nil
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) readArray(ndim int, wantTag byte, width int) ([]uint64, error) {
	if r.pos >= len(r.buf) {
		return nil, fmt.Errorf("truncated array header")
	}
	header := r.buf[r.pos]
	r.pos++
	if header != tagFixArrayN|byte(ndim) {
		return nil, fmt.Errorf("bad array header 0x%02x, want 0x%02x", header, tagFixArrayN|byte(ndim))
	}

	out := make([]uint64, ndim)
	for i := 0; i < ndim; i++ {
		if r.pos+1+width > len(r.buf) {
			return nil, fmt.Errorf("truncated element %d", i)
		}
		tag := r.buf[r.pos]
		r.pos++
		if tag != wantTag {
			return nil, fmt.Errorf("bad element tag 0x%02x, want 0x%02x", tag, wantTag)
		}
		switch width {
		case 8:
			out[i] = binary.BigEndian.Uint64(r.buf[r.pos:])
		case 4:
			out[i] = uint64(binary.BigEndian.Uint32(r.buf[r.pos:]))
		}
		r.pos += width
	}
	return out, nil
}

func toInt64(in []uint64) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func toInt32(in []uint64) []int32 {
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}

func appendBigEndian64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendBigEndian32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}
