package codec

// State holds the decoder registers of one open stream.
//
// State is a plain value: copying it takes a snapshot, and assigning a copy
// back restores it. The streaming reader relies on this to replay the same
// decode twice (measure, then read) from identical registers. A State must
// only ever be used with a single stream and a single format.
//
// Registers used per format:
//
//	DAT:  LastLow, Overflow, LastT
//	EVT2: TimeHigh, LastT
//	EVT3: TimeHigh, TimeLow, TimeHighOverflow, TimeLowOverflow, BaseX, Y, P, LastT
type State struct {
	// LastT is the most recently reconstructed timestamp in microseconds.
	// For EVT3 it is also the time register stamped on emitted events.
	LastT int64

	// LastLow is the previous raw 32-bit DAT timestamp.
	LastLow uint32
	// Overflow counts wraps of the DAT 32-bit timestamp.
	Overflow uint64

	// TimeHigh is the EVT2 28-bit or EVT3 12-bit high time field.
	TimeHigh uint64
	// TimeLow is the EVT3 12-bit low time field.
	TimeLow uint64
	// TimeHighOverflow counts wraps of the EVT3 high time field.
	TimeHighOverflow uint64
	// TimeLowOverflow counts wraps of the EVT3 low time field.
	TimeLowOverflow uint64

	// BaseX is the EVT3 vector base address.
	BaseX uint16
	// Y is the EVT3 current row.
	Y int16
	// P is the EVT3 current polarity.
	P uint8
}

// EncoderState holds the encoder registers of one output stream.
//
// Like State it is a plain value and is carried across Write calls so that a
// stream can be appended to incrementally.
type EncoderState struct {
	// Started reports whether at least one event was encoded.
	Started bool
	// LastT is the timestamp of the previously encoded event.
	LastT int64
	// TimeHigh is the last EVT2 TIME_HIGH field emitted.
	TimeHigh uint64
	// Mirror tracks the registers an EVT3 decoder holds after reading
	// everything emitted so far.
	Mirror State
}
