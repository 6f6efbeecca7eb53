package stream

import (
	"io"
	"log/slog"

	"github.com/arloliu/evraw/codec"
	"github.com/arloliu/evraw/errs"
	"github.com/arloliu/evraw/event"
	"github.com/arloliu/evraw/format"
	"github.com/arloliu/evraw/header"
	"github.com/arloliu/evraw/internal/hash"
	"github.com/arloliu/evraw/internal/pool"
)

// Writer encodes events into a recording.
//
// The header is written on the first call to Write unless WithoutHeader is
// given. Encoder registers persist across calls, so a recording can be
// produced from any number of batches; State exposes them so that a later
// Writer can append to the same recording.
type Writer struct {
	dst    *hash.ChecksumWriter
	format format.Format
	cfg    *Config
	logger *slog.Logger
	enc    codec.Encoder

	state       codec.EncoderState
	wroteHeader bool
	written     int64
	events      int
}

// NewWriter creates a Writer encoding format f into dst.
func NewWriter(dst io.Writer, f format.Format, opts ...Option) (*Writer, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	enc, err := codec.NewEncoder(f)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		dst:         hash.Writer(dst),
		format:      f,
		cfg:         cfg,
		logger:      cfg.Logger.With(slog.String("format", f.String())),
		enc:         enc,
		wroteHeader: cfg.SkipHeader,
	}
	if cfg.EncoderState != nil {
		w.state = *cfg.EncoderState
	}

	return w, nil
}

// Write encodes events and writes the resulting records.
//
// Events must be in non-decreasing timestamp order, also across calls. If
// an event cannot be encoded, the records of the events before it are still
// written and the error wraps errs.ErrInvalidEvent.
func (w *Writer) Write(events []event.Event) error {
	if !w.wroteHeader {
		n, err := header.Write(w.dst, w.format, w.cfg.HeaderLines...)
		w.written += int64(n)
		if err != nil {
			return err
		}
		w.wroteHeader = true
	}

	bb := pool.GetWriteBuffer()
	defer pool.PutWriteBuffer(bb)

	limit := w.cfg.BufferSize * w.format.RecordSize()
	for i, e := range events {
		var err error
		bb.B, err = w.enc.Encode(&w.state, e, bb.B)
		if err != nil {
			if ferr := w.flush(bb); ferr != nil {
				return ferr
			}
			w.logger.Debug("rejected event", slog.Int("index", i), slog.String("event", e.String()))

			return err
		}
		w.events++

		if bb.Len() >= limit {
			if err := w.flush(bb); err != nil {
				return err
			}
		}
	}

	return w.flush(bb)
}

// State returns the encoder registers after the last written event.
func (w *Writer) State() codec.EncoderState {
	return w.state
}

// Written returns the number of bytes written, header included.
func (w *Writer) Written() int64 {
	return w.written
}

// Checksum returns the xxHash64 of the bytes written by this Writer. For a
// Writer that produced a whole recording it equals the checksum stored when
// the recording is archived.
func (w *Writer) Checksum() uint64 {
	return w.dst.Sum()
}

// Events returns the number of events encoded.
func (w *Writer) Events() int {
	return w.events
}

func (w *Writer) flush(bb *pool.ByteBuffer) error {
	if bb.Len() == 0 {
		return nil
	}

	n, err := bb.WriteTo(w.dst)
	w.written += n
	bb.Reset()
	if err != nil {
		return errs.IO("write records", err)
	}

	return nil
}
