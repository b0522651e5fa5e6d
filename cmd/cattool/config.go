package main

import (
	"encoding/json/v2"
	"fmt"
	"os"

	"github.com/NickleDave/Caterva/internal/schunk"
)

// codecConfigFile is the on-disk shape of an optional --codec-config JSON
// file for the copy subcommand, letting a caller pick compressor
// parameters without a pile of flags.
type codecConfigFile struct {
	CompressorID string   `json:"compressor_id"`
	Level        int      `json:"level"`
	Filters      []string `json:"filters,omitempty"`
	Threads      int      `json:"threads"`
}

func loadCodecConfig(path string) (schunk.CodecParams, error) {
	f, err := os.Open(path)
	if err != nil {
		return schunk.CodecParams{}, fmt.Errorf("opening codec config %q: %w", path, err)
	}
	defer f.Close()

	var cfg codecConfigFile
	if err := json.UnmarshalRead(f, &cfg); err != nil {
		return schunk.CodecParams{}, fmt.Errorf("decoding codec config %q: %w", path, err)
	}
	return schunk.CodecParams{
		CompressorID: cfg.CompressorID,
		Level:        cfg.Level,
		Filters:      cfg.Filters,
		Threads:      cfg.Threads,
	}, nil
}
