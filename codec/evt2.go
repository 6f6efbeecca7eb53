package codec

import (
	"fmt"

	"github.com/arloliu/evraw/endian"
	"github.com/arloliu/evraw/errs"
	"github.com/arloliu/evraw/event"
	"github.com/arloliu/evraw/format"
)

const (
	evt2MaxAddr = mask11b
	evt2MaxT    = 1 << 34
)

// Evt2Decoder decodes 4-byte EVT 2.0 records.
//
// CD_OFF and CD_ON records carry y in bits 0-10, x in bits 11-21 and the low
// 6 bits of the timestamp in bits 22-27; the polarity is the type tag itself.
// TIME_HIGH records set the upper 28 bits of the timestamp.
type Evt2Decoder struct {
	engine endian.EndianEngine
	obs    Observer
}

var _ Decoder = Evt2Decoder{}

func (Evt2Decoder) Format() format.Format { return format.EVT2 }

func (Evt2Decoder) RecordSize() int { return format.Evt2RecordSize }

// Decode decodes one EVT2 record.
func (d Evt2Decoder) Decode(st *State, rec []byte, dst []event.Event) ([]event.Event, error) {
	word := d.engine.Uint32(rec)

	switch tag := Evt2Tag(word); tag {
	case Evt2CDOff, Evt2CDOn:
		t := st.Evt2Time(uint64(word >> evt2LowShift))
		st.advance(t, format.EVT2, d.obs)

		return append(dst, event.Event{
			T: t,
			X: int16((word >> evt2XShift) & mask11b), //nolint:gosec
			Y: int16(word & mask11b),                 //nolint:gosec
			P: uint8(tag),
		}), nil

	case Evt2TimeHigh:
		st.TimeHigh = uint64(word & mask28b)

		return dst, nil

	case Evt2ExtTrigger, Evt2Others, Evt2Continued:
		return dst, nil

	default:
		return dst, &errs.RecordTypeError{Format: format.EVT2.String(), Tag: uint8(tag), Offset: -1}
	}
}

// Evt2Encoder encodes events as EVT 2.0 records.
//
// A TIME_HIGH record is written before the first event and whenever the upper
// 28 bits of the timestamp change, so timestamps must stay below 2^34.
type Evt2Encoder struct {
	engine endian.EndianEngine
}

var _ Encoder = Evt2Encoder{}

func (Evt2Encoder) Format() format.Format { return format.EVT2 }

// Encode appends the EVT2 records carrying e.
func (d Evt2Encoder) Encode(st *EncoderState, e event.Event, dst []byte) ([]byte, error) {
	if err := checkEvent(st, e, evt2MaxAddr, 1); err != nil {
		return dst, err
	}
	if e.T >= evt2MaxT {
		return dst, fmt.Errorf("%w: EVT2 timestamp %d exceeds 34 bits", errs.ErrInvalidEvent, e.T)
	}

	t := uint32(e.T >> evt2LowBits) //nolint:gosec
	if !st.Started || uint64(t) != st.TimeHigh {
		dst = d.engine.AppendUint32(dst, uint32(Evt2TimeHigh)<<evt2TypeShift|t)
		st.TimeHigh = uint64(t)
	}

	word := uint32(e.P)<<evt2TypeShift |
		uint32(e.T&mask6b)<<evt2LowShift |
		uint32(e.X)<<evt2XShift | //nolint:gosec
		uint32(e.Y) //nolint:gosec
	dst = d.engine.AppendUint32(dst, word)

	st.Started = true
	st.LastT = e.T

	return dst, nil
}
