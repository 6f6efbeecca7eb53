// Package evraw reads, writes and truncates raw recordings of event-based
// vision sensors in the DAT, EVT 2.0 and EVT 3.0 wire formats.
//
// Each event carries a microsecond timestamp, pixel coordinates and a
// polarity. The wire formats spread these over small records whose
// timestamps are rebuilt from wrapping counters, so decoding is stateful;
// the codec package holds the record layouts and the stream package the
// resumable chunked reader.
//
// # Basic Usage
//
// Decoding a whole recording:
//
//	batch, f, err := evraw.ReadFile("recording.raw")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, e := range batch.All() {
//	    fmt.Println(f, e)
//	}
//
// Decoding in chunks of a fixed duration:
//
//	rec, err := evraw.Open("recording.raw")
//	...
//	defer rec.Close()
//	reader, err := rec.NewReader()
//	cursor := stream.NewTimeWindowCursor(10 * time.Millisecond)
//	for events, err := range reader.Chunks(cursor) {
//	    ...
//	}
//
// Writing and appending:
//
//	st, err := evraw.WriteFile("out.raw", format.EVT3, events[:1000])
//	st, err = evraw.AppendFile("out.raw", format.EVT3, st, events[1000:])
//
// # Package Structure
//
// This package provides file-level wrappers around the stream, cut and
// archive packages. For buffer reuse, custom observers or non-file sources,
// use those packages directly.
package evraw

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arloliu/evraw/archive"
	"github.com/arloliu/evraw/codec"
	"github.com/arloliu/evraw/compress"
	"github.com/arloliu/evraw/cut"
	"github.com/arloliu/evraw/errs"
	"github.com/arloliu/evraw/event"
	"github.com/arloliu/evraw/format"
	"github.com/arloliu/evraw/header"
	"github.com/arloliu/evraw/stream"
)

// ArchiveExtension is the conventional file extension of archived recordings.
const ArchiveExtension = ".evra"

// Recording is an opened recording positioned at its first byte.
//
// Archived recordings are unpacked into memory by Open; plain recordings are
// read from the file.
type Recording struct {
	io.ReadSeeker

	format   format.Format
	archived bool
	file     *os.File
}

// Open opens the recording at path and detects its format.
//
// Archives are recognized by their magic bytes whatever their name. Plain
// recordings with a ".dat" extension are DAT; others are identified by the
// "evt 2.0" or "evt 3.0" marker in their header, failing with
// errs.ErrInvalidFormat when there is none.
func Open(path string) (*Recording, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errs.IO("open recording", err)
	}

	rec, err := open(file, path)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	return rec, nil
}

func open(file *os.File, path string) (*Recording, error) {
	magic := make([]byte, len(archive.Magic))
	n, err := io.ReadFull(file, magic)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, errs.IO("read recording", err)
	}

	if archive.IsArchive(magic[:n]) {
		data, err := io.ReadAll(io.MultiReader(bytes.NewReader(magic), file))
		if err != nil {
			return nil, errs.IO("read archive", err)
		}
		if err := file.Close(); err != nil {
			return nil, errs.IO("close archive", err)
		}

		f, raw, err := archive.Unpack(data)
		if err != nil {
			return nil, err
		}

		return &Recording{ReadSeeker: bytes.NewReader(raw), format: f, archived: true}, nil
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, errs.IO("seek to start", err)
	}

	f, err := detect(file, path)
	if err != nil {
		return nil, err
	}

	return &Recording{ReadSeeker: file, format: f, file: file}, nil
}

func detect(r io.ReadSeeker, path string) (format.Format, error) {
	if strings.EqualFold(filepath.Ext(path), format.DAT.Extension()) {
		return format.DAT, nil
	}

	h, err := header.Read(r, nil)
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, errs.IO("seek to start", err)
	}

	f, ok := h.Format()
	if !ok {
		return 0, fmt.Errorf("%w: no format marker in the header of %s", errs.ErrInvalidFormat, path)
	}

	return f, nil
}

// Format returns the detected wire format.
func (r *Recording) Format() format.Format {
	return r.format
}

// Archived reports whether the recording was unpacked from an archive.
func (r *Recording) Archived() bool {
	return r.archived
}

// NewReader returns a stream.Reader over the recording.
func (r *Recording) NewReader(opts ...stream.Option) (*stream.Reader, error) {
	return stream.NewReader(r, r.format, opts...)
}

// Close releases the underlying file, if any.
func (r *Recording) Close() error {
	if r.file == nil {
		return nil
	}

	return r.file.Close()
}

// ReadFile decodes every event of the recording at path.
//
// Returns the events and the detected format.
func ReadFile(path string, opts ...stream.Option) (*event.Batch, format.Format, error) {
	rec, err := Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer rec.Close()

	reader, err := rec.NewReader(opts...)
	if err != nil {
		return nil, 0, err
	}

	batch, err := reader.ReadAll()
	if err != nil {
		return nil, 0, err
	}

	return batch, rec.format, nil
}

// Truncate writes the first durationMs milliseconds of the recording at
// inPath to outPath and returns the number of events kept.
//
// Both paths must carry the extension of format f. The input may be an
// archive, named with ArchiveExtension appended; the output is always a
// plain recording.
func Truncate(inPath, outPath string, f format.Format, durationMs int64, opts ...cut.Option) (int, error) {
	if durationMs <= 0 {
		return 0, fmt.Errorf("%w: %dms", errs.ErrInvalidWindow, durationMs)
	}
	if err := format.CheckPath(strings.TrimSuffix(inPath, ArchiveExtension), f); err != nil {
		return 0, err
	}
	if err := format.CheckPath(outPath, f); err != nil {
		return 0, err
	}

	rec, err := Open(inPath)
	if err != nil {
		return 0, err
	}
	defer rec.Close()

	if rec.format != f {
		return 0, fmt.Errorf("%w: %s is %s, not %s", errs.ErrInvalidFormat, inPath, rec.format, f)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return 0, errs.IO("create output", err)
	}

	n, err := cut.Truncate(rec, out, f, time.Duration(durationMs)*time.Millisecond, opts...)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = errs.IO("close output", cerr)
	}

	return n, err
}

// WriteFile creates the recording at path, writes events to it and returns
// the encoder registers needed to append to it later with AppendFile.
func WriteFile(path string, f format.Format, events []event.Event, opts ...stream.Option) (codec.EncoderState, error) {
	if err := format.CheckPath(path, f); err != nil {
		return codec.EncoderState{}, err
	}

	file, err := os.Create(path)
	if err != nil {
		return codec.EncoderState{}, errs.IO("create recording", err)
	}

	return writeFile(file, f, events, opts...)
}

// AppendFile appends events to the recording at path, continuing from the
// encoder registers st returned by a previous WriteFile or AppendFile.
func AppendFile(path string, f format.Format, st codec.EncoderState, events []event.Event, opts ...stream.Option) (codec.EncoderState, error) {
	if err := format.CheckPath(path, f); err != nil {
		return st, err
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return st, errs.IO("open recording", err)
	}

	opts = append(opts, stream.WithoutHeader(), stream.WithEncoderState(st))

	return writeFile(file, f, events, opts...)
}

func writeFile(file *os.File, f format.Format, events []event.Event, opts ...stream.Option) (codec.EncoderState, error) {
	w, err := stream.NewWriter(file, f, opts...)
	if err != nil {
		_ = file.Close()
		return codec.EncoderState{}, err
	}

	err = w.Write(events)
	if cerr := file.Close(); err == nil && cerr != nil {
		err = errs.IO("close recording", cerr)
	}

	return w.State(), err
}

// ArchiveFile packs the recording at inPath into an archive at outPath.
func ArchiveFile(inPath, outPath string, opts ...archive.Option) (compress.Stats, error) {
	rec, err := Open(inPath)
	if err != nil {
		return compress.Stats{}, err
	}
	defer rec.Close()

	if rec.archived {
		return compress.Stats{}, fmt.Errorf("%w: %s is already an archive", errs.ErrInvalidArchive, inPath)
	}

	data, err := io.ReadAll(rec)
	if err != nil {
		return compress.Stats{}, errs.IO("read recording", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return compress.Stats{}, errs.IO("create archive", err)
	}

	stats, err := archive.Pack(out, data, rec.format, opts...)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = errs.IO("close archive", cerr)
	}

	return stats, err
}
