// Package archive stores recordings in a compressed, checksummed container.
//
// An archive is a 24-byte Header followed by the recording compressed with
// one of the compress codecs. The recording itself, header lines included,
// is kept byte for byte, so unpacking yields a file every reader accepts:
//
//	var buf bytes.Buffer
//	stats, err := archive.Pack(&buf, recording, format.EVT3, archive.WithCompression(format.CompressionZstd))
//	...
//	f, raw, err := archive.Unpack(buf.Bytes())
package archive

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/arloliu/evraw/compress"
	"github.com/arloliu/evraw/errs"
	"github.com/arloliu/evraw/format"
	"github.com/arloliu/evraw/internal/hash"
	"github.com/arloliu/evraw/internal/options"
)

// DefaultCompression is the compression used by Pack when none is given.
const DefaultCompression = format.CompressionZstd

// Config holds the configuration of Pack.
type Config struct {
	Compression format.CompressionType
	Logger      *slog.Logger
}

// Option configures Pack.
type Option = options.Option[*Config]

// WithCompression selects the payload compression.
func WithCompression(c format.CompressionType) Option {
	return options.New(func(cfg *Config) error {
		if _, err := compress.GetCodec(c); err != nil {
			return err
		}
		cfg.Compression = c

		return nil
	})
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(cfg *Config) {
		cfg.Logger = logger
	})
}

// Pack compresses recording and writes it to w as an archive of format f.
func Pack(w io.Writer, recording []byte, f format.Format, opts ...Option) (compress.Stats, error) {
	cfg := &Config{Compression: DefaultCompression}
	if err := options.Apply(cfg, opts...); err != nil {
		return compress.Stats{}, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if !f.Valid() {
		return compress.Stats{}, fmt.Errorf("%w: %s", errs.ErrInvalidFormat, f)
	}

	c, err := compress.GetCodec(cfg.Compression)
	if err != nil {
		return compress.Stats{}, err
	}
	payload, err := c.Compress(recording)
	if err != nil {
		return compress.Stats{}, fmt.Errorf("compress recording: %w", err)
	}

	h := Header{
		Version:     Version,
		Format:      f,
		Compression: cfg.Compression,
		RawSize:     uint64(len(recording)),
		Checksum:    hash.Checksum(recording),
	}
	if _, err := w.Write(h.Bytes()); err != nil {
		return compress.Stats{}, errs.IO("write archive header", err)
	}
	if _, err := w.Write(payload); err != nil {
		return compress.Stats{}, errs.IO("write archive payload", err)
	}

	stats := compress.Stats{
		Algorithm:      cfg.Compression,
		OriginalSize:   int64(len(recording)),
		CompressedSize: int64(len(payload)),
	}
	cfg.Logger.Debug("packed recording",
		slog.String("format", f.String()),
		slog.String("compression", cfg.Compression.String()),
		slog.Int64("raw_bytes", stats.OriginalSize),
		slog.Int64("compressed_bytes", stats.CompressedSize),
		slog.Float64("space_savings", stats.SpaceSavings()),
	)

	return stats, nil
}

// Unpack verifies an archive and returns the format and the raw recording.
//
// Returns errs.ErrInvalidArchive for a malformed container or payload and
// errs.ErrChecksumMismatch when the restored recording does not match the
// stored xxHash64. With CompressionNone the result shares memory with data.
func Unpack(data []byte) (format.Format, []byte, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return 0, nil, err
	}

	c, err := compress.GetCodec(h.Compression)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", errs.ErrInvalidArchive, err)
	}

	payload := data[HeaderSize:]
	var raw []byte
	// an LZ4 block expands at most 255x; larger claims fall back to probing
	if sd, ok := c.(compress.SizedDecompressor); ok && h.RawSize <= uint64(len(payload))*255+16 {
		raw, err = sd.DecompressSized(payload, int(h.RawSize))
	} else {
		raw, err = c.Decompress(payload)
	}
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", errs.ErrInvalidArchive, err)
	}

	if uint64(len(raw)) != h.RawSize {
		return 0, nil, fmt.Errorf("%w: payload is %d bytes, header says %d", errs.ErrInvalidArchive, len(raw), h.RawSize)
	}
	if sum := hash.Checksum(raw); sum != h.Checksum {
		return 0, nil, fmt.Errorf("%w: got %016x, want %016x", errs.ErrChecksumMismatch, sum, h.Checksum)
	}

	return h.Format, raw, nil
}
