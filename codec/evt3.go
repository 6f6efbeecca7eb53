package codec

import (
	"github.com/arloliu/evraw/endian"
	"github.com/arloliu/evraw/errs"
	"github.com/arloliu/evraw/event"
	"github.com/arloliu/evraw/format"
)

const (
	evt3MaxAddr   = mask11b
	evt3Vect12Len = 12
	evt3Vect8Len  = 8
)

// Evt3Decoder decodes 2-byte EVT 3.0 records.
//
// EVT3 is a register machine: ADDR_Y, VECT_BASE_X, TIME_LOW and TIME_HIGH
// records only update State, while ADDR_X emits one event and VECT_12/VECT_8
// emit one event per set bit of their mask. Emitted events carry the time
// register State.LastT.
type Evt3Decoder struct {
	engine endian.EndianEngine
	obs    Observer
}

var _ Decoder = Evt3Decoder{}

func (Evt3Decoder) Format() format.Format { return format.EVT3 }

func (Evt3Decoder) RecordSize() int { return format.Evt3RecordSize }

// Decode decodes one EVT3 record.
func (d Evt3Decoder) Decode(st *State, rec []byte, dst []event.Event) ([]event.Event, error) {
	word := d.engine.Uint16(rec)

	switch tag := Evt3Tag(word); tag {
	case Evt3AddrY:
		st.Y = int16(word & mask11b) //nolint:gosec

	case Evt3AddrX:
		st.P = uint8((word >> evt3PolarityShift) & 0x1)
		dst = append(dst, event.Event{
			T: st.LastT,
			X: int16(word & mask11b), //nolint:gosec
			Y: st.Y,
			P: st.P,
		})

	case Evt3VectBaseX:
		st.P = uint8((word >> evt3PolarityShift) & 0x1)
		st.BaseX = word & mask11b

	case Evt3Vect12:
		dst = expandVector(st, uint32(word&mask12b), evt3Vect12Len, dst)

	case Evt3Vect8:
		dst = expandVector(st, uint32(word&mask8b), evt3Vect8Len, dst)

	case Evt3TimeLow:
		t := st.Evt3TimeLow(uint64(word))
		st.advance(t, format.EVT3, d.obs)

	case Evt3TimeHigh:
		t := st.Evt3TimeHigh(uint64(word))
		st.advance(t, format.EVT3, d.obs)

	case Evt3Continued4, Evt3ExtTrigger, Evt3Others, Evt3Continued12:

	default:
		return dst, &errs.RecordTypeError{Format: format.EVT3.String(), Tag: uint8(tag), Offset: -1}
	}

	return dst, nil
}

// expandVector emits one event per set bit k of mask at x = BaseX+k, then
// advances BaseX by the vector width.
func expandVector(st *State, mask uint32, width int, dst []event.Event) []event.Event {
	for k := 0; k < width; k++ {
		if mask&(1<<k) == 0 {
			continue
		}
		dst = append(dst, event.Event{
			T: st.LastT,
			X: int16(st.BaseX + uint16(k)), //nolint:gosec
			Y: st.Y,
			P: st.P,
		})
	}
	st.BaseX += uint16(width) //nolint:gosec

	return dst
}

// Evt3Encoder encodes events as EVT 3.0 records.
//
// The encoder never emits vector records: each event becomes one ADDR_X,
// preceded by ADDR_Y, TIME_HIGH and TIME_LOW records whenever the decoder
// registers would otherwise disagree with the event. Those registers are
// tracked in EncoderState.Mirror by replaying every emitted record through
// the decoder, so the output decodes to exactly the encoded timestamps.
type Evt3Encoder struct {
	engine endian.EndianEngine
}

var _ Encoder = Evt3Encoder{}

func (Evt3Encoder) Format() format.Format { return format.EVT3 }

// Encode appends the EVT3 records carrying e.
func (d Evt3Encoder) Encode(st *EncoderState, e event.Event, dst []byte) ([]byte, error) {
	if err := checkEvent(st, e, evt3MaxAddr, 1); err != nil {
		return dst, err
	}

	m := st.Mirror
	first := !st.Started
	t := uint64(e.T) //nolint:gosec

	if first || m.Y != e.Y {
		dst = d.emit(&m, dst, Evt3AddrY, uint16(e.Y)) //nolint:gosec
	}

	// t = (H + lowOverflow)<<12 + low with H = highOverflow<<12 + high.
	// TIME_HIGH moves H forward by at most 4095 per record.
	low := t & mask12b
	lowOvf := m.TimeLowOverflow
	if low < m.TimeLow {
		lowOvf++
	}
	need := t>>evt3FieldBits - lowOvf
	force := first
	for {
		cur := m.TimeHighOverflow<<evt3FieldBits + m.TimeHigh
		if !force && cur >= need {
			break
		}
		next := min(need, cur+mask12b)
		dst = d.emit(&m, dst, Evt3TimeHigh, uint16(next&mask12b))
		force = false
	}

	if first || m.Evt3Time() != e.T {
		dst = d.emit(&m, dst, Evt3TimeLow, uint16(low))
	}

	dst = d.emit(&m, dst, Evt3AddrX, uint16(e.P)<<evt3PolarityShift|uint16(e.X)) //nolint:gosec

	st.Mirror = m
	st.Started = true
	st.LastT = e.T

	return dst, nil
}

// emit appends one record and applies it to the mirrored decoder registers.
func (d Evt3Encoder) emit(m *State, dst []byte, tag Evt3Type, payload uint16) []byte {
	dst = d.engine.AppendUint16(dst, uint16(tag)<<evt3TypeShift|payload)

	var scratch [1]event.Event
	_, _ = Evt3Decoder{engine: d.engine}.Decode(m, dst[len(dst)-format.Evt3RecordSize:], scratch[:0])

	return dst
}
