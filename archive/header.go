package archive

import (
	"fmt"

	"github.com/arloliu/evraw/endian"
	"github.com/arloliu/evraw/errs"
	"github.com/arloliu/evraw/format"
)

const (
	// Magic opens every archive.
	Magic = "EVRA"
	// Version is the container layout written by Pack.
	Version uint8 = 1
	// HeaderSize is the fixed size of the container header.
	HeaderSize = 24
)

// Header is the fixed-size container header preceding the compressed payload.
//
// Layout, little-endian:
//
//	0-3    magic "EVRA"
//	4      version
//	5      wire format of the recording
//	6      compression type
//	7      reserved, zero
//	8-15   size of the raw recording in bytes
//	16-23  xxHash64 of the raw recording
type Header struct {
	Version     uint8
	Format      format.Format
	Compression format.CompressionType
	RawSize     uint64
	Checksum    uint64
}

// Bytes serializes the header.
func (h Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	engine := endian.Wire()

	copy(b[0:4], Magic)
	b[4] = h.Version
	b[5] = uint8(h.Format)
	b[6] = uint8(h.Compression)
	engine.PutUint64(b[8:16], h.RawSize)
	engine.PutUint64(b[16:24], h.Checksum)

	return b
}

// ParseHeader parses the container header at the start of data.
//
// Returns an error wrapping errs.ErrInvalidArchive when data is too short,
// the magic or version is wrong, or the format is unknown.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than the header", errs.ErrInvalidArchive, len(data))
	}
	if string(data[0:4]) != Magic {
		return Header{}, fmt.Errorf("%w: bad magic %q", errs.ErrInvalidArchive, data[0:4])
	}

	engine := endian.Wire()
	h := Header{
		Version:     data[4],
		Format:      format.Format(data[5]),
		Compression: format.CompressionType(data[6]),
		RawSize:     engine.Uint64(data[8:16]),
		Checksum:    engine.Uint64(data[16:24]),
	}

	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: unsupported version %d", errs.ErrInvalidArchive, h.Version)
	}
	if !h.Format.Valid() {
		return Header{}, fmt.Errorf("%w: %w: %d", errs.ErrInvalidArchive, errs.ErrInvalidFormat, data[5])
	}

	return h, nil
}

// IsArchive reports whether data starts with the archive magic.
func IsArchive(data []byte) bool {
	return len(data) >= len(Magic) && string(data[:len(Magic)]) == Magic
}
