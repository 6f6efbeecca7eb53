// Package header locates and produces the textual header that precedes the
// binary payload of DAT, EVT2 and EVT3 recordings.
//
// A header is a run of lines that each start with '%' and end with '\n'. The
// first line that does not start with '%' is the first byte of the payload.
// DAT recordings additionally carry a two byte preamble (event type, event
// size) between the header and the first record.
package header

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/arloliu/evraw/errs"
	"github.com/arloliu/evraw/format"
)

const (
	// Sentinel is the byte every header line starts with.
	Sentinel byte = 0x25
	// LineEnd terminates every header line.
	LineEnd byte = 0x0A

	// DatEventType and DatEventSize are the canonical DAT preamble bytes.
	DatEventType byte = 0x00
	DatEventSize byte = 0x08

	// DatPreambleSize is the number of preamble bytes following a DAT header.
	DatPreambleSize = 2

	scanChunkSize = 512
)

// Header is the parsed textual header of a recording.
type Header struct {
	// Lines holds each header line without the leading sentinel, surrounding
	// spaces and trailing newline.
	Lines []string
	// Size is the number of header bytes, up to but excluding the first payload byte.
	Size int64
}

// Format guesses the wire format from an "evt 2.0" / "evt 3.0" style line.
//
// DAT headers carry no such marker, so ok is false for them.
func (h Header) Format() (f format.Format, ok bool) {
	for _, line := range h.Lines {
		l := strings.ToLower(line)
		switch {
		case strings.Contains(l, "evt 3.0"), strings.Contains(l, "format evt3"):
			return format.EVT3, true
		case strings.Contains(l, "evt 2.0"), strings.Contains(l, "format evt2"):
			return format.EVT2, true
		}
	}

	return 0, false
}

// Scan skips the header at the current position of r and returns its size.
//
// On return r is positioned at the first payload byte. When mirror is not nil
// every header byte is copied to it verbatim, which is how truncated recordings
// keep their original header.
//
// Returns an error wrapping errs.ErrMalformedHeader when the input ends inside a
// header line, or errs.ErrIO when reading, seeking or mirroring fails.
func Scan(r io.ReadSeeker, mirror io.Writer) (int64, error) {
	h, err := scan(r, mirror, false)
	if err != nil {
		return 0, err
	}

	return h.Size, nil
}

// Read is like Scan but also returns the header lines.
func Read(r io.ReadSeeker, mirror io.Writer) (Header, error) {
	return scan(r, mirror, true)
}

func scan(r io.ReadSeeker, mirror io.Writer, keepLines bool) (Header, error) {
	var h Header

	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return h, errs.IO("header seek", err)
	}

	var (
		buf         [scanChunkSize]byte
		line        []byte
		atLineStart = true
	)

	for {
		n, rerr := r.Read(buf[:])
		chunk := buf[:n]

		for i, c := range chunk {
			if atLineStart {
				if c != Sentinel {
					if err := mirrorBytes(mirror, chunk[:i]); err != nil {
						return h, err
					}
					h.Size += int64(i)

					if _, err := r.Seek(start+h.Size, io.SeekStart); err != nil {
						return h, errs.IO("header seek", err)
					}

					return h, nil
				}
				atLineStart = false
			}

			if keepLines {
				line = append(line, c)
			}

			if c == LineEnd {
				atLineStart = true
				if keepLines {
					h.Lines = append(h.Lines, trimLine(line))
					line = line[:0]
				}
			}
		}

		if err := mirrorBytes(mirror, chunk); err != nil {
			return h, err
		}
		h.Size += int64(n)

		if rerr != nil {
			if !errors.Is(rerr, io.EOF) {
				return h, errs.IO("header read", rerr)
			}
			if !atLineStart {
				return h, fmt.Errorf("%w: input ends inside a header line after %d bytes", errs.ErrMalformedHeader, h.Size)
			}

			// header followed by an empty payload
			return h, nil
		}
	}
}

// SkipDatPreamble consumes the two DAT preamble bytes that follow the header,
// copying them to mirror when it is not nil.
func SkipDatPreamble(r io.Reader, mirror io.Writer) error {
	var pre [DatPreambleSize]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: missing DAT event type/size bytes", errs.ErrMalformedHeader)
		}

		return errs.IO("dat preamble read", err)
	}

	return mirrorBytes(mirror, pre[:])
}

// PayloadOffset skips the header, and the DAT preamble for DAT, returning the
// absolute offset of the first record.
func PayloadOffset(r io.ReadSeeker, f format.Format) (int64, error) {
	if _, err := Scan(r, nil); err != nil {
		return 0, err
	}

	if f == format.DAT {
		if err := SkipDatPreamble(r, nil); err != nil {
			return 0, err
		}
	}

	off, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, errs.IO("payload seek", err)
	}

	return off, nil
}

// DefaultLines returns the header lines written by evraw for f.
func DefaultLines(f format.Format) []string {
	switch f {
	case format.DAT:
		return []string{"Data file containing CD events.", "Version 2", "Generated by evraw"}
	case format.EVT2:
		return []string{"This EVT2 file has been generated through evraw", "evt 2.0"}
	case format.EVT3:
		return []string{"This EVT3 file has been generated through evraw", "evt 3.0"}
	default:
		return nil
	}
}

// Write emits a header for f, using DefaultLines when lines is empty, followed
// by the DAT preamble for DAT recordings. It returns the number of bytes written.
func Write(w io.Writer, f format.Format, lines ...string) (int, error) {
	if !f.Valid() {
		return 0, fmt.Errorf("%w: %s", errs.ErrInvalidFormat, f)
	}

	if len(lines) == 0 {
		lines = DefaultLines(f)
	}

	var sb strings.Builder
	for _, l := range lines {
		sb.WriteByte(Sentinel)
		sb.WriteByte(' ')
		sb.WriteString(strings.NewReplacer("\n", " ", "\r", " ").Replace(l))
		sb.WriteByte(LineEnd)
	}
	if f == format.DAT {
		sb.WriteByte(DatEventType)
		sb.WriteByte(DatEventSize)
	}

	n, err := io.WriteString(w, sb.String())
	if err != nil {
		return n, errs.IO("header write", err)
	}

	return n, nil
}

func mirrorBytes(w io.Writer, p []byte) error {
	if w == nil || len(p) == 0 {
		return nil
	}

	if _, err := w.Write(p); err != nil {
		return errs.IO("header copy", err)
	}

	return nil
}

func trimLine(line []byte) string {
	s := strings.TrimSuffix(string(line), "\n")
	s = strings.TrimSuffix(s, "\r")
	s = strings.TrimPrefix(s, string(Sentinel))

	return strings.TrimSpace(s)
}
