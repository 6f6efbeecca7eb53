// Package codec implements bit-exact decoding and encoding of single DAT, EVT2
// and EVT3 wire records.
//
// Decoders and encoders are stateless: every register lives in a State or
// EncoderState value owned by the caller and threaded through each call. The
// same decoder can therefore serve any number of streams concurrently, as long
// as each stream brings its own State.
//
// # Decoding
//
//	dec, _ := codec.NewDecoder(format.EVT3, nil)
//	var st codec.State
//	events := make([]event.Event, 0, format.MaxEventsPerRecord)
//	for rec := range records {
//	    events, err = dec.Decode(&st, rec, events[:0])
//	    if err != nil {
//	        return err // unrecognized record type
//	    }
//	    // use events
//	}
//
// # Encoding
//
//	enc, _ := codec.NewEncoder(format.EVT2)
//	var st codec.EncoderState
//	var out []byte
//	for _, e := range batch {
//	    out, err = enc.Encode(&st, e, out)
//	}
package codec

import (
	"fmt"

	"github.com/arloliu/evraw/endian"
	"github.com/arloliu/evraw/errs"
	"github.com/arloliu/evraw/event"
	"github.com/arloliu/evraw/format"
)

// Decoder decodes one wire record at a time.
type Decoder interface {
	// Format returns the wire format handled by the decoder.
	Format() format.Format

	// RecordSize returns the size in bytes of one wire record.
	RecordSize() int

	// Decode decodes the record rec, updating st and appending the produced
	// events to dst. A record produces zero, one, or (EVT3 vectors) up to
	// format.MaxEventsPerRecord events.
	//
	// rec must hold at least RecordSize bytes. An unknown type tag returns a
	// *errs.RecordTypeError; in that case st may have been left unchanged
	// and dst is returned as given.
	Decode(st *State, rec []byte, dst []event.Event) ([]event.Event, error)
}

// Encoder encodes events into wire records.
type Encoder interface {
	// Format returns the wire format produced by the encoder.
	Format() format.Format

	// Encode appends the records needed to carry e to dst and updates st.
	//
	// Events must be passed in non-decreasing timestamp order. An event whose
	// fields cannot be represented in the format returns an error wrapping
	// errs.ErrInvalidEvent and leaves st and dst untouched.
	Encode(st *EncoderState, e event.Event, dst []byte) ([]byte, error)
}

// NewDecoder returns the decoder for f. Non-monotonic timestamps are reported
// to obs, which may be nil to discard them.
func NewDecoder(f format.Format, obs Observer) (Decoder, error) {
	engine := endian.Wire()

	switch f {
	case format.DAT:
		return DatDecoder{engine: engine, obs: obs}, nil
	case format.EVT2:
		return Evt2Decoder{engine: engine, obs: obs}, nil
	case format.EVT3:
		return Evt3Decoder{engine: engine, obs: obs}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidFormat, f)
	}
}

// NewEncoder returns the encoder for f.
func NewEncoder(f format.Format) (Encoder, error) {
	engine := endian.Wire()

	switch f {
	case format.DAT:
		return DatEncoder{engine: engine}, nil
	case format.EVT2:
		return Evt2Encoder{engine: engine}, nil
	case format.EVT3:
		return Evt3Encoder{engine: engine}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidFormat, f)
	}
}

// checkEvent validates the fields shared by every format.
func checkEvent(st *EncoderState, e event.Event, maxAddr int16, maxP uint8) error {
	if e.T < 0 {
		return fmt.Errorf("%w: negative timestamp %d", errs.ErrInvalidEvent, e.T)
	}
	if st.Started && e.T < st.LastT {
		return fmt.Errorf("%w: timestamp %d precedes %d", errs.ErrInvalidEvent, e.T, st.LastT)
	}
	if e.X < 0 || e.X > maxAddr || e.Y < 0 || e.Y > maxAddr {
		return fmt.Errorf("%w: address (%d, %d) outside [0, %d]", errs.ErrInvalidEvent, e.X, e.Y, maxAddr)
	}
	if e.P > maxP {
		return fmt.Errorf("%w: polarity %d", errs.ErrInvalidEvent, e.P)
	}

	return nil
}
