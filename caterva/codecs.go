package caterva

// Importing every bundled codec for its registration side effect means a
// caller only has to name a compressor id in StorageConfig.Codec to use
// it, the same way database/sql drivers register themselves on import.
import (
	_ "github.com/NickleDave/Caterva/internal/schunk/bloscodec"
	_ "github.com/NickleDave/Caterva/internal/schunk/nonecodec"
	_ "github.com/NickleDave/Caterva/internal/schunk/zlibcodec"
	_ "github.com/NickleDave/Caterva/internal/schunk/zstdcodec"
)
