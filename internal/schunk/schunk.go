// Package schunk is Caterva's "super-chunk" collaborator: an opaque store
// that accepts and returns chunk-sized byte buffers, compresses each chunk
// independently with a pluggable Codec, carries named metadata blobs
// alongside the chunk frames, and supports masked decompression of
// individual blocks within a chunk.
//
// This is the external backend spec.md treats as out of scope for the
// geometry/writer/reader core; it is implemented concretely here so the
// module is runnable end to end, behind the same narrow interface a real
// Blosc super-chunk would expose.
package schunk

import (
	"context"
	"fmt"
	"io"
	"sync"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// ErrNotFound is returned when a requested chunk or metadata blob does not
// exist in the store.
var ErrNotFound = fmt.Errorf("schunk: not found")

// Codec compresses and decompresses one chunk at a time. Implementations
// live under internal/schunk/<name>codec.
type Codec interface {
	// ID is the short compressor name persisted in StorageConfig and used
	// to pick the codec back out on Open.
	ID() string
	// Compress encodes src (itemsize-wide elements) into a self-delimited
	// frame.
	Compress(src []byte, itemsize int) ([]byte, error)
	// Decompress decodes frame into dst, which is sized for the full
	// uncompressed (block-ordered) chunk: blockNitems*itemsize bytes per
	// block. If maskout is non-nil, maskout[i] == true means block i must
	// be left untouched (its bytes in dst are not overwritten) — the
	// masked-decompression contract §6 describes. Codecs that cannot
	// decompress a subset of blocks decompress the whole frame internally
	// and only copy the unmasked blocks out, so the caller-visible
	// behavior is identical either way.
	Decompress(dst, frame []byte, itemsize, blockNitems int, maskout []bool) error
}

// CodecParams mirrors the subset of blosc2 codec configuration the array
// passes through on Empty/Open: compressor selection, level, filters,
// thread counts, an optional prefilter id and a trained-dictionary flag.
type CodecParams struct {
	CompressorID string   `json:"compressor_id"`
	Level        int      `json:"level"`
	Filters      []string `json:"filters,omitempty"`
	FilterMeta   []byte   `json:"filter_meta,omitempty"`
	Threads      int      `json:"threads"`
	DecompThreads int     `json:"decomp_threads"`
	Prefilter    string   `json:"prefilter,omitempty"`
	UseDict      bool     `json:"use_dict"`
}

// StorageConfig is the subset of backend storage configuration the array
// passes through to a new Store.
type StorageConfig struct {
	Contiguous bool        // recorded only; a Store with a Path always persists one container object
	Path       string      // gocloud.dev/blob URL ("" for pure in-memory)
	Codec      CodecParams
}

// chunkRecord is one stored, compressed chunk frame.
type chunkRecord struct {
	frame []byte
}

// Store is the concrete super-chunk backend. One Store belongs to exactly
// one Array. Every method holds mu for its duration, so single calls do not
// race; a sequence of calls is not atomic.
type Store struct {
	mu sync.Mutex

	cfg    StorageConfig
	codec  Codec
	itemsize int

	chunks []chunkRecord
	meta   map[string][]byte

	bucket *blob.Bucket // non-nil when cfg.Path was set
}

// New creates an empty super-chunk backend with the given storage
// configuration, codec and item size.
func New(cfg StorageConfig, codec Codec, itemsize int) (*Store, error) {
	if codec == nil {
		return nil, fmt.Errorf("schunk: New: codec must not be nil")
	}
	if itemsize <= 0 {
		return nil, fmt.Errorf("schunk: New: itemsize must be positive, got %d", itemsize)
	}
	s := &Store{
		cfg:      cfg,
		codec:    codec,
		itemsize: itemsize,
		meta:     make(map[string][]byte),
	}
	if cfg.Path != "" {
		bucket, err := blob.OpenBucket(context.Background(), cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("schunk: opening bucket %q: %w", cfg.Path, err)
		}
		s.bucket = bucket
	}
	return s, nil
}

// Open reconstructs a Store previously persisted at path (a
// gocloud.dev/blob URL, e.g. "file:///..." or "mem://"). The codec is
// resolved from the id recorded in the persisted container via the
// package-level codec registry.
func Open(ctx context.Context, path string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("schunk: Open %q: %w", path, err)
	}
	s := &Store{
		cfg:    StorageConfig{Contiguous: true, Path: path},
		meta:   make(map[string][]byte),
		bucket: bucket,
	}
	if err := s.loadFromBucket(ctx); err != nil {
		bucket.Close()
		return nil, err
	}
	return s, nil
}

// FromBytes reconstructs a Store from a previously serialized container
// image (see Store.ToBytes). doCopy makes an extra up-front copy of data;
// either way decoding copies every frame and metadata blob out of data, so
// the returned Store does not alias it. The codec is resolved from the id recorded in the image via the
// package-level codec registry.
func FromBytes(data []byte, doCopy bool) (*Store, error) {
	if doCopy {
		dup := make([]byte, len(data))
		copy(dup, data)
		data = dup
	}
	s := &Store{
		meta: make(map[string][]byte),
	}
	if err := s.decodeContainer(data); err != nil {
		return nil, fmt.Errorf("schunk: FromBytes: %w", err)
	}
	return s, nil
}

// Free releases the backend handle. It is safe to call more than once.
func (s *Store) Free() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bucket != nil {
		err := s.bucket.Close()
		s.bucket = nil
		return err
	}
	return nil
}

// Copy clones the store, including all chunk frames and metadata verbatim,
// onto a fresh in-memory (or newly opened, if cfg.Path is set) backend.
// This is a byte-for-byte clone of already-compressed frames, so it cannot
// change compressor: cfg.Codec.CompressorID, if set, is resolved via
// LookupCodec and must name the same codec the source already uses (an
// unknown or different id is an error, not a silently-ignored request) —
// recompressing under a different codec means decoding and re-encoding
// every chunk, which belongs to the array layer's rebuild path, not a
// backend clone.
func (s *Store) Copy(ctx context.Context, cfg StorageConfig) (*Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id := cfg.Codec.CompressorID; id != "" {
		c, ok := LookupCodec(id)
		if !ok {
			return nil, fmt.Errorf("schunk: Copy: unknown compressor id %q", id)
		}
		if c.ID() != s.codec.ID() {
			return nil, fmt.Errorf("schunk: Copy: cannot change compressor from %q to %q via a backend clone",
				s.codec.ID(), c.ID())
		}
	}
	cfg.Codec.CompressorID = s.codec.ID()
	dst, err := New(cfg, s.codec, s.itemsize)
	if err != nil {
		return nil, err
	}
	dst.chunks = make([]chunkRecord, len(s.chunks))
	for i, c := range s.chunks {
		frame := make([]byte, len(c.frame))
		copy(frame, c.frame)
		dst.chunks[i] = chunkRecord{frame: frame}
	}
	for k, v := range s.meta {
		metaCopy := make([]byte, len(v))
		copy(metaCopy, v)
		dst.meta[k] = metaCopy
	}
	if dst.bucket != nil {
		if err := dst.persist(ctx); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// NChunks returns the number of chunks currently stored.
func (s *Store) NChunks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// AppendBuffer compresses ptr (block-ordered bytes for exactly one chunk)
// and appends it as the next chunk. It returns the new chunk's index.
func (s *Store) AppendBuffer(ctx context.Context, ptr []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame, err := s.codec.Compress(ptr, s.itemsize)
	if err != nil {
		return 0, fmt.Errorf("schunk: AppendBuffer: compress: %w", err)
	}
	s.chunks = append(s.chunks, chunkRecord{frame: frame})
	nchunk := len(s.chunks) - 1
	if s.bucket != nil {
		if err := s.persist(ctx); err != nil {
			return 0, err
		}
	}
	return nchunk, nil
}

// DecompressChunk decompresses chunk nchunk into dst, which must be sized
// for the full (block-padded) uncompressed chunk. When maskout is
// non-nil, masked-out blocks are left untouched in dst rather than
// overwritten — callers that rely on this for a fresh buffer must
// pre-zero dst themselves.
func (s *Store) DecompressChunk(nchunk int, dst []byte, blockNitems int, maskout []bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if nchunk < 0 || nchunk >= len(s.chunks) {
		return fmt.Errorf("schunk: DecompressChunk: index %d out of range [0, %d)", nchunk, len(s.chunks))
	}
	return s.codec.Decompress(dst, s.chunks[nchunk].frame, s.itemsize, blockNitems, maskout)
}

// MetaExists reports whether a named metadata blob has been registered.
func (s *Store) MetaExists(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.meta[name]
	return ok
}

// MetaGet returns a copy of the named metadata blob, or ErrNotFound.
func (s *Store) MetaGet(name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.meta[name]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// MetaAdd registers a new named metadata blob. It is an error to add a
// name that already exists; use MetaUpdate instead.
func (s *Store) MetaAdd(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meta[name]; ok {
		return fmt.Errorf("schunk: MetaAdd: metadata layer %q already exists", name)
	}
	s.meta[name] = append([]byte(nil), data...)
	if s.bucket != nil {
		return s.persist(ctx)
	}
	return nil
}

// MetaUpdate overwrites an existing named metadata blob.
func (s *Store) MetaUpdate(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[name] = append([]byte(nil), data...)
	if s.bucket != nil {
		return s.persist(ctx)
	}
	return nil
}

// CodecParams returns the codec parameters this store was configured
// with.
func (s *Store) CodecParams() CodecParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Codec
}

// ItemSize returns the configured item width in bytes.
func (s *Store) ItemSize() int {
	return s.itemsize
}

// loadFromBucket reads back a previously persisted container from the
// bucket opened for this store (used by Open).
func (s *Store) loadFromBucket(ctx context.Context) error {
	r, err := s.bucket.NewReader(ctx, containerKey, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return fmt.Errorf("%w: no container persisted at this path yet", ErrNotFound)
		}
		return fmt.Errorf("reading container: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading container: %w", err)
	}
	return s.decodeContainer(data)
}

// persist writes the full in-memory container image back to the bucket.
// The teacher corpus's chunk-per-object Zarr layout is deliberately not
// used here: Caterva's metadata model needs atomic, whole-container
// round-trips, so one container key holds everything.
func (s *Store) persist(ctx context.Context) error {
	data := s.encodeContainer()
	w, err := s.bucket.NewWriter(ctx, containerKey, nil)
	if err != nil {
		return fmt.Errorf("persisting container: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("persisting container: %w", err)
	}
	return w.Close()
}
