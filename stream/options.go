package stream

import (
	"fmt"
	"log/slog"

	"github.com/arloliu/evraw/codec"
	"github.com/arloliu/evraw/errs"
	"github.com/arloliu/evraw/internal/options"
)

// DefaultBufferSize is the default number of wire records read or written per I/O call.
const DefaultBufferSize = 4096

// Config holds the configuration shared by Reader and Writer.
type Config struct {
	// BufferSize is the number of records moved per I/O call.
	BufferSize int
	// Logger receives debug traces and non-monotonic timestamp warnings.
	Logger *slog.Logger
	// Observer overrides the non-monotonic timestamp handler of Read calls.
	Observer codec.Observer

	// HeaderLines replaces the default header text written by a Writer.
	HeaderLines []string
	// SkipHeader makes a Writer emit records only, for appending to an
	// existing recording.
	SkipHeader bool
	// EncoderState seeds the encoder registers of a Writer.
	EncoderState *codec.EncoderState
}

// Option configures a Reader or a Writer.
type Option = options.Option[*Config]

func newConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		BufferSize: DefaultBufferSize,
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = codec.LogObserver(cfg.Logger)
	}

	return cfg, nil
}

// WithBufferSize sets the number of records moved per I/O call.
//
// Returns errs.ErrInvalidBufferSize if n is not positive.
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

// WithObserver sets the handler of non-monotonic timestamps met by Read.
// The default logs a warning on the configured logger.
func WithObserver(obs codec.Observer) Option {
	return options.NoError(func(cfg *Config) {
		cfg.Observer = obs
	})
}

// WithHeaderLines sets the header text lines written by a Writer.
func WithHeaderLines(lines ...string) Option {
	return options.NoError(func(cfg *Config) {
		cfg.HeaderLines = lines
	})
}

// WithoutHeader makes a Writer skip the header, for appending records to an
// existing recording.
func WithoutHeader() Option {
	return options.NoError(func(cfg *Config) {
		cfg.SkipHeader = true
	})
}

// WithEncoderState seeds a Writer with the registers left by a previous
// Writer of the same recording.
func WithEncoderState(st codec.EncoderState) Option {
	return options.NoError(func(cfg *Config) {
		cfg.EncoderState = &st
	})
}
