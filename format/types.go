// Package format defines the wire formats and archive compression types understood by evraw.
package format

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arloliu/evraw/errs"
)

type (
	// Format identifies the wire encoding of an event recording.
	Format uint8
	// CompressionType identifies the compression applied to an archived recording.
	CompressionType uint8
)

const (
	DAT  Format = 0x1 // DAT represents the 8-byte DAT record layout.
	EVT2 Format = 0x2 // EVT2 represents the 4-byte EVT 2.0 record layout.
	EVT3 Format = 0x3 // EVT3 represents the 2-byte EVT 3.0 record layout.

	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
)

// Record sizes in bytes.
const (
	DatRecordSize  = 8
	Evt2RecordSize = 4
	Evt3RecordSize = 2
)

// MaxEventsPerRecord is the largest number of events a single record can expand to.
// Only EVT3 VECT_12 records reach it.
const MaxEventsPerRecord = 12

func (f Format) String() string {
	switch f {
	case DAT:
		return "DAT"
	case EVT2:
		return "EVT2"
	case EVT3:
		return "EVT3"
	default:
		return "Unknown"
	}
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	return f == DAT || f == EVT2 || f == EVT3
}

// RecordSize returns the fixed size of one wire record, or 0 for an unknown format.
func (f Format) RecordSize() int {
	switch f {
	case DAT:
		return DatRecordSize
	case EVT2:
		return Evt2RecordSize
	case EVT3:
		return Evt3RecordSize
	default:
		return 0
	}
}

// Extension returns the conventional file extension of f, including the dot.
func (f Format) Extension() string {
	if f == DAT {
		return ".dat"
	}

	return ".raw"
}

// Parse converts a case-insensitive format name ("dat", "evt2", "evt3") into a Format.
func Parse(name string) (Format, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DAT":
		return DAT, nil
	case "EVT2", "EVT2.0":
		return EVT2, nil
	case "EVT3", "EVT3.0":
		return EVT3, nil
	default:
		return 0, fmt.Errorf("%w: %q", errs.ErrInvalidFormat, name)
	}
}

// CheckPath verifies that path carries the extension expected for f.
//
// DAT recordings use ".dat" while EVT2 and EVT3 recordings share ".raw".
func CheckPath(path string, f Format) error {
	if !f.Valid() {
		return fmt.Errorf("%w: %s", errs.ErrInvalidFormat, f)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != f.Extension() {
		return fmt.Errorf("%w: %s recordings need a %q file, got %q",
			errs.ErrUnsupportedExtension, f, f.Extension(), filepath.Base(path))
	}

	return nil
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}
