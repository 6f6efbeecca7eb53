package codec

import (
	"fmt"

	"github.com/arloliu/evraw/endian"
	"github.com/arloliu/evraw/errs"
	"github.com/arloliu/evraw/event"
	"github.com/arloliu/evraw/format"
)

const (
	datMaxAddr     = mask14b
	datMaxPolarity = mask4b
	datMaxGap      = 1 << 32
)

// DatDecoder decodes 8-byte DAT records.
//
// Bytes 0-3 hold the low 32 bits of the timestamp. Bytes 4-7 hold x in bits
// 0-13, y in bits 14-27 and the polarity nibble in bits 28-31. Every record
// yields exactly one event.
type DatDecoder struct {
	engine endian.EndianEngine
	obs    Observer
}

var _ Decoder = DatDecoder{}

func (DatDecoder) Format() format.Format { return format.DAT }

func (DatDecoder) RecordSize() int { return format.DatRecordSize }

// Decode decodes one DAT record.
func (d DatDecoder) Decode(st *State, rec []byte, dst []event.Event) ([]event.Event, error) {
	low := d.engine.Uint32(rec[0:4])
	word := d.engine.Uint32(rec[4:8])

	t := st.DatTime(low)
	st.advance(t, format.DAT, d.obs)

	return append(dst, event.Event{
		T: t,
		X: int16(word & mask14b),               //nolint:gosec
		Y: int16((word >> datYShift) & mask14b), //nolint:gosec
		P: uint8((word >> datPShift) & mask4b),  //nolint:gosec
	}), nil
}

// DatEncoder encodes events as 8-byte DAT records.
//
// DAT can only carry the low 32 bits of a timestamp; the decoder rebuilds the
// rest from wraps. The first timestamp must therefore be below 2^32 and two
// consecutive timestamps must be less than 2^32 apart.
type DatEncoder struct {
	engine endian.EndianEngine
}

var _ Encoder = DatEncoder{}

func (DatEncoder) Format() format.Format { return format.DAT }

// Encode appends one DAT record carrying e.
func (d DatEncoder) Encode(st *EncoderState, e event.Event, dst []byte) ([]byte, error) {
	if err := checkEvent(st, e, datMaxAddr, datMaxPolarity); err != nil {
		return dst, err
	}

	prev := int64(0)
	if st.Started {
		prev = st.LastT
	}
	if e.T-prev >= datMaxGap {
		return dst, fmt.Errorf("%w: DAT timestamp gap %d exceeds 32 bits", errs.ErrInvalidEvent, e.T-prev)
	}

	word := uint32(e.X) | uint32(e.Y)<<datYShift | uint32(e.P)<<datPShift //nolint:gosec
	dst = d.engine.AppendUint32(dst, uint32(e.T))                         //nolint:gosec
	dst = d.engine.AppendUint32(dst, word)

	st.Started = true
	st.LastT = e.T

	return dst, nil
}
