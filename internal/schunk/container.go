package schunk

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// containerKey is the object name a contiguous (on-disk or bucket-backed)
// Store serializes its whole image under.
const containerKey = "container.cat"

// The container image is a small self-delimited framing, independent of
// any one codec: compressor id, itemsize, the JSON-encoded codec
// parameters, chunk count, each chunk's compressed frame length-prefixed,
// then the metadata map the same way.
// All integers are big-endian, matching the metapack convention of never
// branching on host endianness.

// ToBytes serializes the full store — every compressed chunk frame and
// every metadata blob — into one self-contained image that FromBytes can
// reconstruct without the backing bucket.
func (s *Store) ToBytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encodeContainer()
}

func (s *Store) encodeContainer() []byte {
	var buf []byte

	buf = appendString(buf, s.codec.ID())
	buf = appendUint32(buf, uint32(s.itemsize))
	codecParams, _ := json.Marshal(s.cfg.Codec)
	buf = appendBytes(buf, codecParams)

	buf = appendUint32(buf, uint32(len(s.chunks)))
	for _, c := range s.chunks {
		buf = appendBytes(buf, c.frame)
	}

	buf = appendUint32(buf, uint32(len(s.meta)))
	for name, v := range s.meta {
		buf = appendString(buf, name)
		buf = appendBytes(buf, v)
	}

	return buf
}

func (s *Store) decodeContainer(data []byte) error {
	r := &byteReader{buf: data}

	codecID, err := r.readString()
	if err != nil {
		return fmt.Errorf("reading codec id: %w", err)
	}
	codec, ok := LookupCodec(codecID)
	if !ok {
		return fmt.Errorf("no codec registered for id %q (forgot to import its package?)", codecID)
	}
	s.codec = codec

	itemsize, err := r.readUint32()
	if err != nil {
		return fmt.Errorf("reading itemsize: %w", err)
	}
	s.itemsize = int(itemsize)

	codecParams, err := r.readBytes()
	if err != nil {
		return fmt.Errorf("reading codec params: %w", err)
	}
	if len(codecParams) > 0 {
		if err := json.Unmarshal(codecParams, &s.cfg.Codec); err != nil {
			return fmt.Errorf("decoding codec params: %w", err)
		}
	}

	nchunks, err := r.readUint32()
	if err != nil {
		return fmt.Errorf("reading chunk count: %w", err)
	}
	s.chunks = make([]chunkRecord, 0, nchunks)
	for i := uint32(0); i < nchunks; i++ {
		frame, err := r.readBytes()
		if err != nil {
			return fmt.Errorf("reading chunk %d: %w", i, err)
		}
		s.chunks = append(s.chunks, chunkRecord{frame: frame})
	}

	nmeta, err := r.readUint32()
	if err != nil {
		return fmt.Errorf("reading metadata count: %w", err)
	}
	if s.meta == nil {
		s.meta = make(map[string][]byte, nmeta)
	}
	for i := uint32(0); i < nmeta; i++ {
		name, err := r.readString()
		if err != nil {
			return fmt.Errorf("reading metadata name %d: %w", i, err)
		}
		v, err := r.readBytes()
		if err != nil {
			return fmt.Errorf("reading metadata blob %q: %w", name, err)
		}
		s.meta[name] = v
	}

	return nil
}

type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) readUint32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, fmt.Errorf("truncated uint32")
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *byteReader) readBytes() ([]byte, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	if r.pos+int(n) > len(r.buf) {
		return nil, fmt.Errorf("truncated byte slice of length %d", n)
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return out, nil
}

func (r *byteReader) readString() (string, error) {
	b, err := r.readBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendBytes(buf, v []byte) []byte {
	buf = appendUint32(buf, uint32(len(v)))
	return append(buf, v...)
}

func appendString(buf []byte, s string) []byte {
	return appendBytes(buf, []byte(s))
}
