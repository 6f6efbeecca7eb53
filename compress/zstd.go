package compress

// ZstdCompressor provides Zstandard compression, the best choice for archiving
// recordings that are written once and rarely read.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
