// Package compress provides the compression codecs used by recording archives.
//
// Raw event recordings compress well: EVT3 payloads are dominated by
// repeated TIME_LOW and ADDR_Y records, and DAT payloads by slowly changing
// timestamps. The archive package stores a recording compressed with one of:
//
//   - None (format.CompressionNone): stored as is
//   - Zstd (format.CompressionZstd): best ratio, for cold storage
//   - S2 (format.CompressionS2): balanced speed and ratio
//   - LZ4 (format.CompressionLZ4): fastest decompression
//
// All codecs share the Codec interface:
//
//	codec, err := compress.GetCodec(format.CompressionZstd)
//	if err != nil {
//	    return err
//	}
//	packed, _ := codec.Compress(recording)
//	raw, err := codec.Decompress(packed)
//
// # Zstd backends
//
// Zstd uses the pure Go klauspost/compress implementation by default. Builds
// with cgo enabled and the gozstd tag use the valyala/gozstd binding to the
// reference C library instead; both produce standard zstd frames.
//
// # Thread Safety
//
// All codecs are stateless values backed by pooled encoders and decoders and
// can be shared across goroutines.
package compress
