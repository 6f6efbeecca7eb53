// Package errs defines the error values returned by evraw.
//
// Fatal conditions are reported as errors wrapping one of the sentinels below,
// so callers can classify them with errors.Is:
//
//	n, err := reader.Read(cursor, out)
//	if errors.Is(err, errs.ErrUnrecognizedRecordType) {
//	    // the stream cannot be resumed past this point
//	}
//
// Non-monotonic timestamps are not errors; they are reported through the
// codec.Observer diagnostic channel instead.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrIO reports a failure of the underlying medium (open, read, write or seek).
	ErrIO = errors.New("evraw: i/o failure")
	// ErrAllocation reports an output or growable buffer that could not be sized.
	ErrAllocation = errors.New("evraw: buffer allocation failed")
	// ErrMalformedHeader reports a header scan that could not find the payload boundary.
	ErrMalformedHeader = errors.New("evraw: malformed header")
	// ErrUnrecognizedRecordType reports a record type tag outside the enumerated set.
	ErrUnrecognizedRecordType = errors.New("evraw: unrecognized record type")
	// ErrInvalidFormat reports an unsupported or mismatched wire format.
	ErrInvalidFormat = errors.New("evraw: invalid format")
	// ErrUnsupportedExtension reports a file path whose extension does not match its format.
	ErrUnsupportedExtension = errors.New("evraw: unsupported file extension")
	// ErrInvalidBufferSize reports a non-positive I/O buffer size.
	ErrInvalidBufferSize = errors.New("evraw: invalid buffer size")
	// ErrInvalidEvent reports an event whose fields cannot be encoded in the target format.
	ErrInvalidEvent = errors.New("evraw: invalid event")
	// ErrInvalidWindow reports a non-positive time window or duration.
	ErrInvalidWindow = errors.New("evraw: invalid time window")
	// ErrInvalidTarget reports a non-positive event count target.
	ErrInvalidTarget = errors.New("evraw: invalid target count")
	// ErrInvalidArchive reports an archive container that cannot be parsed.
	ErrInvalidArchive = errors.New("evraw: invalid archive")
	// ErrChecksumMismatch reports an archive payload whose checksum does not match.
	ErrChecksumMismatch = errors.New("evraw: checksum mismatch")
	// ErrUnsupportedCompression reports an unknown archive compression type.
	ErrUnsupportedCompression = errors.New("evraw: unsupported compression")
)

// RecordTypeError describes an unrecognized record type tag met while decoding.
//
// It matches ErrUnrecognizedRecordType with errors.Is.
type RecordTypeError struct {
	Format string // Format is the name of the wire format being decoded.
	Tag    uint8  // Tag is the offending type tag.
	Offset int64  // Offset is the byte offset of the record, or -1 when unknown.
}

func (e *RecordTypeError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("evraw: %s record type not recognised: 0x%x", e.Format, e.Tag)
	}

	return fmt.Sprintf("evraw: %s record type not recognised: 0x%x at byte %d", e.Format, e.Tag, e.Offset)
}

// Is reports whether target is ErrUnrecognizedRecordType.
func (e *RecordTypeError) Is(target error) bool {
	return target == ErrUnrecognizedRecordType
}

// IO wraps err as an ErrIO failure with the given operation context.
// It returns nil when err is nil.
func IO(op string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
