package schunk

import "fmt"

// registry maps a compressor id to the Codec implementation for it.
// Concrete codecs (zstdcodec, bloscodec, zlibcodec) register themselves
// from an init() func, so Open/FromBytes can pick the right codec purely
// from what was persisted, without the caller threading codec selection
// through every call site.
var registry = make(map[string]Codec)

// RegisterCodec makes codec available under codec.ID() for later lookup.
// It panics on a duplicate id, the same fail-fast posture Go's
// database/sql and image packages use for driver/format registration.
func RegisterCodec(codec Codec) {
	id := codec.ID()
	if _, exists := registry[id]; exists {
		panic(fmt.Sprintf("schunk: codec %q already registered", id))
	}
	registry[id] = codec
}

// LookupCodec returns the codec registered under id, if any.
func LookupCodec(id string) (Codec, bool) {
	c, ok := registry[id]
	return c, ok
}
