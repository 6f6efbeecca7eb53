// Package stream implements resumable, chunked decoding and incremental
// encoding of DAT, EVT2 and EVT3 recordings.
//
// Reading follows a two-phase protocol. Measure dry-runs the decode from the
// cursor and returns how many events the next Read will produce; the caller
// sizes a buffer accordingly and Read replays the identical decode into it,
// committing the cursor:
//
//	r, _ := stream.NewReader(f, format.EVT3)
//	cur := stream.NewCursor(100_000)
//	for !cur.Finished {
//	    n, err := r.Measure(cur)
//	    if err != nil {
//	        return err
//	    }
//	    out := make([]event.Event, n)
//	    if _, err := r.Read(cur, out); err != nil {
//	        return err
//	    }
//	}
//
// Both passes are pure functions of the cursor (offset and registers) and the
// bytes of the stream, so they always agree.
package stream

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"time"

	"github.com/arloliu/evraw/codec"
	"github.com/arloliu/evraw/errs"
	"github.com/arloliu/evraw/event"
	"github.com/arloliu/evraw/format"
	"github.com/arloliu/evraw/header"
	"github.com/arloliu/evraw/internal/pool"
)

// Reader decodes one recording. It holds no per-stream state besides the
// source: positions and registers live in the Cursor passed to each call.
type Reader struct {
	src    io.ReadSeeker
	format format.Format
	cfg    *Config
	logger *slog.Logger

	dec   codec.Decoder // reports diagnostics, used by Read
	quiet codec.Decoder // silent, used by Measure
}

// NewReader creates a Reader decoding src as format f.
func NewReader(src io.ReadSeeker, f format.Format, opts ...Option) (*Reader, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	dec, err := codec.NewDecoder(f, cfg.Observer)
	if err != nil {
		return nil, err
	}
	quiet, err := codec.NewDecoder(f, nil)
	if err != nil {
		return nil, err
	}

	return &Reader{
		src:    src,
		format: f,
		cfg:    cfg,
		logger: cfg.Logger.With(slog.String("format", f.String())),
		dec:    dec,
		quiet:  quiet,
	}, nil
}

// Format returns the wire format decoded by the reader.
func (r *Reader) Format() format.Format {
	return r.format
}

// Measure returns the number of events the next Read with the same cursor
// would produce given a large enough buffer. It only mutates the cursor to
// position it after the header on first use.
func (r *Reader) Measure(cur *Cursor) (int, error) {
	if err := r.start(cur); err != nil {
		return 0, err
	}

	p, err := r.run(cur, r.quiet, counter{})
	if err != nil {
		return 0, err
	}

	return p.n, nil
}

// MeasureTimeWindow switches the cursor to time-window mode and measures the
// next window. Returns errs.ErrInvalidWindow if window is not positive.
func (r *Reader) MeasureTimeWindow(cur *Cursor, window time.Duration) (int, error) {
	if window <= 0 {
		return 0, fmt.Errorf("%w: %s", errs.ErrInvalidWindow, window)
	}
	cur.Window = window

	return r.Measure(cur)
}

// Read decodes events into out and returns how many were written.
//
// Decoding stops before the first record that would exceed the cursor's
// Target or Window, or whose events do not fit in out; a record is never
// split. When PersistOffset is set the cursor is advanced past the consumed
// records. Finished is set once the end of the stream has been reached.
//
// On error the cursor is left as it was before the call.
func (r *Reader) Read(cur *Cursor, out []event.Event) (int, error) {
	if err := r.start(cur); err != nil {
		return 0, err
	}

	s := &sliceSink{out: out}
	p, err := r.run(cur, r.dec, s)
	if err != nil {
		return 0, err
	}
	if p.full && p.n == 0 {
		return 0, fmt.Errorf("%w: output buffer of %d events cannot hold the next record", errs.ErrAllocation, len(out))
	}

	if cur.PersistOffset {
		cur.Offset += p.consumed
		cur.State = p.state
	}
	if p.eof {
		cur.Finished = true
	}

	r.logger.Debug("read chunk",
		slog.Int("events", p.n),
		slog.Int64("bytes", p.consumed),
		slog.Int64("offset", cur.Offset),
		slog.Bool("finished", cur.Finished),
	)

	return p.n, nil
}

// Next measures and reads the next chunk into a freshly allocated slice.
func (r *Reader) Next(cur *Cursor) ([]event.Event, error) {
	n, err := r.Measure(cur)
	if err != nil {
		return nil, err
	}

	out := make([]event.Event, n)
	m, err := r.Read(cur, out)
	if err != nil {
		return nil, err
	}

	return out[:m], nil
}

// Chunks returns an iterator over the successive chunks of the stream, as
// produced by Next, until the cursor is finished or an error occurs.
//
// A cursor without PersistOffset yields a single chunk.
func (r *Reader) Chunks(cur *Cursor) iter.Seq2[[]event.Event, error] {
	return func(yield func([]event.Event, error) bool) {
		for !cur.Finished {
			events, err := r.Next(cur)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(events) == 0 && cur.Finished {
				return
			}
			if !yield(events, nil) || !cur.PersistOffset {
				return
			}
		}
	}
}

// ReadAll decodes the whole recording from the start into a Batch, scanning
// the header once and growing the batch as needed.
func (r *Reader) ReadAll() (*event.Batch, error) {
	cur := NewCursor(0)
	if err := r.start(cur); err != nil {
		return nil, err
	}

	batch := event.NewBatch(event.DefaultBatchCapacity)
	if r.format == format.DAT {
		// one event per record
		end, err := r.src.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, errs.IO("seek to end", err)
		}
		if err := batch.Reserve(int((end - cur.Offset) / format.DatRecordSize)); err != nil {
			return nil, err
		}
	}
	p, err := r.run(cur, r.dec, batchSink{batch})
	if err != nil {
		return nil, err
	}
	batch.ShrinkToFit()

	r.logger.Debug("read recording", slog.Int("events", p.n), slog.Int64("bytes", p.consumed))

	return batch, nil
}

// start scans the header the first time a cursor is used.
func (r *Reader) start(cur *Cursor) error {
	if cur.Started {
		return nil
	}

	if _, err := r.src.Seek(0, io.SeekStart); err != nil {
		return errs.IO("seek to start", err)
	}
	off, err := header.PayloadOffset(r.src, r.format)
	if err != nil {
		return err
	}

	cur.Offset = off
	cur.State = codec.State{}
	cur.Finished = false
	cur.Started = true

	r.logger.Debug("located payload", slog.Int64("offset", off))

	return nil
}

// pass is the outcome of one decode run from a cursor.
type pass struct {
	n        int         // events accepted
	consumed int64       // bytes of whole records consumed
	state    codec.State // registers after the last consumed record
	eof      bool        // every record up to the end of input was consumed
	full     bool        // stopped because the sink could not take a record
}

// sink receives the events of each accepted record.
type sink interface {
	// accept takes the events of one record, or reports false when they do
	// not fit, in which case nothing is taken.
	accept(events []event.Event) bool
}

type counter struct{}

func (counter) accept([]event.Event) bool { return true }

type sliceSink struct {
	out []event.Event
	n   int
}

func (s *sliceSink) accept(events []event.Event) bool {
	if s.n+len(events) > len(s.out) {
		return false
	}
	s.n += copy(s.out[s.n:], events)

	return true
}

type batchSink struct {
	batch *event.Batch
}

func (s batchSink) accept(events []event.Event) bool {
	s.batch.PushSlice(events)
	return true
}

// run decodes records from the cursor position until a stop rule fires or
// the input ends. The cursor itself is not modified.
//
// Stop rules, checked before each record in this order:
//   - Target events were already accepted;
//   - in window mode, the record's first event lies Window or more after
//     the first event of the run;
//   - the sink cannot take the record's events.
//
// A record excluded by a stop rule is not consumed and its effect on the
// registers is rolled back, so the next run starts exactly at it.
func (r *Reader) run(cur *Cursor, dec codec.Decoder, s sink) (pass, error) {
	if cur.Target < 0 {
		return pass{}, fmt.Errorf("%w: %d", errs.ErrInvalidTarget, cur.Target)
	}

	size := dec.RecordSize()
	if _, err := r.src.Seek(cur.Offset, io.SeekStart); err != nil {
		return pass{}, errs.IO("seek to cursor", err)
	}

	bb := pool.GetReadBuffer()
	defer pool.PutReadBuffer(bb)
	buf := bb.Resize(r.cfg.BufferSize * size)

	scratch, release := pool.GetEventSlice(format.MaxEventsPerRecord)
	defer release()

	p := pass{state: cur.State}
	window := cur.windowMicros()
	var t0 int64
	haveT0 := false

	for {
		m, err := io.ReadFull(r.src, buf)
		last := false
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			last = true
		case err != nil:
			return pass{}, errs.IO("read records", err)
		}
		if tail := m % size; tail != 0 {
			r.logger.Debug("ignoring truncated trailing record", slog.Int("bytes", tail))
			m -= tail
		}

		for off := 0; off < m; off += size {
			if cur.Target > 0 && p.n >= cur.Target {
				return p, nil
			}

			prev := p.state
			scratch, err = dec.Decode(&p.state, buf[off:off+size], scratch[:0])
			if err != nil {
				var rte *errs.RecordTypeError
				if errors.As(err, &rte) {
					rte.Offset = cur.Offset + p.consumed
				}

				return pass{}, err
			}

			if len(scratch) > 0 {
				if window > 0 {
					if !haveT0 {
						t0, haveT0 = scratch[0].T, true
					} else if scratch[0].T-t0 >= window {
						p.state = prev
						return p, nil
					}
				}
				if !s.accept(scratch) {
					p.state = prev
					p.full = true

					return p, nil
				}
				p.n += len(scratch)
			}
			p.consumed += int64(size)
		}

		if last {
			p.eof = true
			return p, nil
		}
	}
}
