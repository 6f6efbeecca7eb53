// Package cut truncates recordings to a target duration without re-encoding.
//
// The header is copied verbatim and the payload is copied record by record
// while the decoder replays it, so the output is always a byte prefix of the
// input ending on a record boundary.
package cut

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/arloliu/evraw/codec"
	"github.com/arloliu/evraw/errs"
	"github.com/arloliu/evraw/format"
	"github.com/arloliu/evraw/header"
	"github.com/arloliu/evraw/internal/options"
	"github.com/arloliu/evraw/internal/pool"
)

// DefaultBufferSize is the default number of records copied per I/O call.
const DefaultBufferSize = 4096

// Config holds the configuration of Truncate.
type Config struct {
	BufferSize int
	Logger     *slog.Logger
}

// Option configures Truncate.
type Option = options.Option[*Config]

// WithBufferSize sets the number of records copied per I/O call.
func WithBufferSize(n int) Option {
	return options.New(func(cfg *Config) error {
		if n <= 0 {
			return fmt.Errorf("%w: %d", errs.ErrInvalidBufferSize, n)
		}
		cfg.BufferSize = n

		return nil
	})
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(cfg *Config) {
		cfg.Logger = logger
	})
}

// Truncate copies the first d of the recording in to out and returns the
// number of events copied.
//
// The duration is measured from the first event. Copying stops right after
// the first event-bearing record whose last event lies d or more after the
// first one, so the output never ends on a time update that no event follows.
// Returns errs.ErrInvalidWindow if d is not positive.
func Truncate(in io.ReadSeeker, out io.Writer, f format.Format, d time.Duration, opts ...Option) (int, error) {
	cfg := &Config{BufferSize: DefaultBufferSize}
	if err := options.Apply(cfg, opts...); err != nil {
		return 0, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With(slog.String("format", f.String()))

	if d <= 0 {
		return 0, fmt.Errorf("%w: %s", errs.ErrInvalidWindow, d)
	}
	limit := max(d.Microseconds(), 1)

	dec, err := codec.NewDecoder(f, codec.LogObserver(logger))
	if err != nil {
		return 0, err
	}

	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return 0, errs.IO("seek to start", err)
	}
	hdr, err := header.Scan(in, out)
	if err != nil {
		return 0, err
	}
	if f == format.DAT {
		if err := header.SkipDatPreamble(in, out); err != nil {
			return 0, err
		}
		hdr += header.DatPreambleSize
	}

	size := dec.RecordSize()
	bb := pool.GetReadBuffer()
	defer pool.PutReadBuffer(bb)
	buf := bb.Resize(cfg.BufferSize * size)

	scratch, release := pool.GetEventSlice(format.MaxEventsPerRecord)
	defer release()

	var (
		st      codec.State
		t0      int64
		haveT0  bool
		n       int
		written int64
		offset  = hdr
	)

	for {
		m, rerr := io.ReadFull(in, buf)
		last := errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF)
		if rerr != nil && !last {
			return n, errs.IO("read records", rerr)
		}
		m -= m % size

		end, done := m, false
		for off := 0; off < m; off += size {
			scratch, err = dec.Decode(&st, buf[off:off+size], scratch[:0])
			if err != nil {
				var rte *errs.RecordTypeError
				if errors.As(err, &rte) {
					rte.Offset = offset + int64(off)
				}

				return n, err
			}
			if len(scratch) == 0 {
				continue
			}

			if !haveT0 {
				t0, haveT0 = scratch[0].T, true
			}
			n += len(scratch)
			if scratch[len(scratch)-1].T-t0 >= limit {
				end, done = off+size, true
				break
			}
		}

		if _, err := out.Write(buf[:end]); err != nil {
			return n, errs.IO("write records", err)
		}
		written += int64(end)
		offset += int64(end)

		if done || last {
			break
		}
	}

	logger.Debug("truncated recording",
		slog.Int("events", n),
		slog.Int64("payload_bytes", written),
		slog.Duration("duration", d),
	)

	return n, nil
}
