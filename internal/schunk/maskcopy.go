package schunk

// CopyUnmaskedBlocks copies every block not flagged in maskout from a
// fully decompressed, block-ordered src buffer into dst. It is shared by
// codecs (klauspost/zstd, compress/zlib) whose underlying library has no
// native notion of "decompress only some blocks": they decompress the
// whole frame into a scratch buffer and then use this helper so the
// caller-visible contract matches a codec that could skip the masked
// blocks entirely.
func CopyUnmaskedBlocks(dst, src []byte, itemsize, blockNitems int, maskout []bool) {
	blockBytes := blockNitems * itemsize
	nblocks := len(src) / blockBytes
	for i := 0; i < nblocks; i++ {
		if maskout != nil && i < len(maskout) && maskout[i] {
			continue
		}
		start := i * blockBytes
		end := start + blockBytes
		if end > len(dst) {
			end = len(dst)
		}
		if start >= end {
			continue
		}
		copy(dst[start:end], src[start:end])
	}
}
