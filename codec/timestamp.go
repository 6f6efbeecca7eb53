package codec

import (
	"log/slog"

	"github.com/arloliu/evraw/format"
)

// Observer receives non-fatal decode diagnostics.
//
// Decoding never stops because of a diagnostic: the out-of-order timestamp is
// kept as computed and the stream continues.
type Observer interface {
	// NonMonotonic is called when a reconstructed timestamp is smaller than
	// the previous one of the same stream.
	NonMonotonic(f format.Format, prev, cur int64)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(f format.Format, prev, cur int64)

// NonMonotonic calls fn(f, prev, cur).
func (fn ObserverFunc) NonMonotonic(f format.Format, prev, cur int64) {
	fn(f, prev, cur)
}

// LogObserver returns an Observer that logs diagnostics as warnings on logger.
// A nil logger uses slog.Default().
func LogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}

	return ObserverFunc(func(f format.Format, prev, cur int64) {
		logger.Warn("timestamps are not monotonic",
			slog.String("format", f.String()),
			slog.Int64("prev", prev),
			slog.Int64("cur", cur),
		)
	})
}

// DatTime reconstructs an absolute DAT timestamp from the raw 32-bit field.
//
// A field smaller than the previous one is a wrap and bumps the overflow
// counter before combining: t = overflow<<32 | low.
func (s *State) DatTime(low uint32) int64 {
	if low < s.LastLow {
		s.Overflow++
	}
	s.LastLow = low

	return int64(s.Overflow<<32 | uint64(low)) //nolint:gosec
}

// Evt2Time combines the current 28-bit TIME_HIGH register with the 6-bit
// field of a CD record: t = high<<6 | low.
func (s *State) Evt2Time(low uint64) int64 {
	return int64(s.TimeHigh<<evt2LowBits | (low & mask6b)) //nolint:gosec
}

// Evt3TimeLow applies a 12-bit TIME_LOW field and returns the reconstructed timestamp.
func (s *State) Evt3TimeLow(v uint64) int64 {
	v &= mask12b
	if v < s.TimeLow {
		s.TimeLowOverflow++
	}
	s.TimeLow = v

	return s.Evt3Time()
}

// Evt3TimeHigh applies a 12-bit TIME_HIGH field and returns the reconstructed timestamp.
func (s *State) Evt3TimeHigh(v uint64) int64 {
	v &= mask12b
	if v < s.TimeHigh {
		s.TimeHighOverflow++
	}
	s.TimeHigh = v

	return s.Evt3Time()
}

// Evt3Time returns the EVT3 timestamp for the current registers:
//
//	t = (highOverflow << 24) + ((high + lowOverflow) << 12) + low
//
// A wrap of the low field counts as one implicit step of the high field, so
// the low overflow counter is added into the high term rather than shifted on
// its own. Recordings in the wild depend on this exact arithmetic.
func (s *State) Evt3Time() int64 {
	t := s.TimeHighOverflow<<evt3HighOvfShift + (s.TimeHigh+s.TimeLowOverflow)<<evt3FieldBits + s.TimeLow

	return int64(t) //nolint:gosec
}

// advance records t as the latest timestamp, reporting a decrease to obs.
func (s *State) advance(t int64, f format.Format, obs Observer) {
	if t < s.LastT && obs != nil {
		obs.NonMonotonic(f, s.LastT, t)
	}
	s.LastT = t
}
