package stream

import (
	"time"

	"github.com/arloliu/evraw/codec"
)

// Cursor persists the position and decoder registers of one open stream
// across repeated Measure and Read calls.
//
// A Cursor is a plain value owned by a single caller. It must not be shared
// between goroutines, and it must only be used with the stream and format it
// was first used with.
type Cursor struct {
	// Offset is the byte offset of the next record to decode. It is only
	// meaningful once Started is set.
	Offset int64

	// Target bounds the number of events of one call; 0 means unbounded.
	// An EVT3 vector record is never split, so a call may overshoot Target
	// by up to format.MaxEventsPerRecord-1 events.
	Target int

	// Window bounds one call to events with t - t0 < Window, where t0 is the
	// timestamp of the first event of the call; 0 disables the bound.
	// Timestamps are microseconds, so Window is truncated to microseconds.
	Window time.Duration

	// Finished is set by Read once the end of the stream was reached.
	Finished bool

	// PersistOffset controls whether Read commits Offset and State. When
	// false, every Read decodes the same range again.
	PersistOffset bool

	// Started reports whether the header was scanned and Offset points into
	// the payload.
	Started bool

	// State holds the decoder registers matching Offset.
	State codec.State
}

// NewCursor returns a cursor reading at most target events per call.
// A target of 0 reads up to the end of the stream.
func NewCursor(target int) *Cursor {
	return &Cursor{Target: target, PersistOffset: true}
}

// NewTimeWindowCursor returns a cursor reading consecutive time windows of the given length.
func NewTimeWindowCursor(window time.Duration) *Cursor {
	return &Cursor{Window: window, PersistOffset: true}
}

// Reset rewinds the cursor to the start of the stream, keeping its bounds.
func (c *Cursor) Reset() {
	c.Offset = 0
	c.Finished = false
	c.Started = false
	c.State = codec.State{}
}

// windowMicros returns the window in microseconds, 0 when disabled.
func (c *Cursor) windowMicros() int64 {
	if c.Window <= 0 {
		return 0
	}

	return max(c.Window.Microseconds(), 1)
}
