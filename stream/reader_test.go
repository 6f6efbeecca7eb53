package stream

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/arloliu/evraw/codec"
	"github.com/arloliu/evraw/errs"
	"github.com/arloliu/evraw/event"
	"github.com/arloliu/evraw/format"
	"github.com/arloliu/evraw/header"
	"github.com/stretchr/testify/require"
)

var allFormats = []format.Format{format.DAT, format.EVT2, format.EVT3}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func randomEvents(seed uint64, n int) []event.Event {
	rng := rand.New(rand.NewPCG(seed, 42))
	events := make([]event.Event, n)
	ts := int64(rng.IntN(1000))
	for i := range events {
		ts += rng.Int64N(300)
		events[i] = event.Event{
			T: ts,
			X: int16(rng.IntN(640)),
			Y: int16(rng.IntN(480)),
			P: uint8(rng.IntN(2)),
		}
	}

	return events
}

// recording encodes events into an in-memory file with a default header.
func recording(t *testing.T, f format.Format, events []event.Event) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := NewWriter(&buf, f, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, w.Write(events))

	return buf.Bytes()
}

// evt3Recording builds an EVT3 file from raw words.
func evt3Recording(t *testing.T, words ...uint16) []byte {
	t.Helper()

	var buf bytes.Buffer
	_, err := header.Write(&buf, format.EVT3)
	require.NoError(t, err)
	for _, w := range words {
		buf.Write(binary.LittleEndian.AppendUint16(nil, w))
	}

	return buf.Bytes()
}

func evt3(tag codec.Evt3Type, payload uint16) uint16 {
	return uint16(tag)<<12 | payload
}

// vectorWords returns an EVT3 payload mixing single and vector events.
func vectorWords() []uint16 {
	return []uint16{
		evt3(codec.Evt3TimeHigh, 0),
		evt3(codec.Evt3TimeLow, 10),
		evt3(codec.Evt3AddrY, 7),
		evt3(codec.Evt3AddrX, 1),
		evt3(codec.Evt3VectBaseX, 1<<11|100),
		evt3(codec.Evt3Vect12, 0b1011),   // 3 events
		evt3(codec.Evt3Vect8, 0b11111111), // 8 events
		evt3(codec.Evt3TimeLow, 20),
		evt3(codec.Evt3AddrX, 2),
		evt3(codec.Evt3Others, 0),
		evt3(codec.Evt3AddrY, 8),
		evt3(codec.Evt3VectBaseX, 0),
		evt3(codec.Evt3Vect8, 0b1), // 1 event
		evt3(codec.Evt3TimeLow, 30),
		evt3(codec.Evt3AddrX, 3),
	}
}

func newReader(t *testing.T, data []byte, f format.Format, opts ...Option) *Reader {
	t.Helper()

	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	r, err := NewReader(bytes.NewReader(data), f, opts...)
	require.NoError(t, err)

	return r
}

func readChunks(t *testing.T, r *Reader, cur *Cursor) []event.Event {
	t.Helper()

	var all []event.Event
	for events, err := range r.Chunks(cur) {
		require.NoError(t, err)
		all = append(all, events...)
	}
	require.True(t, cur.Finished)

	return all
}

func TestNewReader_Options(t *testing.T) {
	_, err := NewReader(bytes.NewReader(nil), format.EVT2, WithBufferSize(0))
	require.ErrorIs(t, err, errs.ErrInvalidBufferSize)

	_, err = NewReader(bytes.NewReader(nil), format.Format(0))
	require.ErrorIs(t, err, errs.ErrInvalidFormat)

	r, err := NewReader(bytes.NewReader(nil), format.EVT3, WithBufferSize(16))
	require.NoError(t, err)
	require.Equal(t, format.EVT3, r.Format())
}

func TestReader_ReadAll(t *testing.T) {
	events := randomEvents(1, 3000)

	for _, f := range allFormats {
		t.Run(f.String(), func(t *testing.T) {
			batch, err := newReader(t, recording(t, f, events), f).ReadAll()
			require.NoError(t, err)
			require.Equal(t, events, batch.Events())
			require.Equal(t, len(events), batch.Cap())
		})
	}
}

func TestReader_ReadAll_EmptyPayload(t *testing.T) {
	for _, f := range allFormats {
		batch, err := newReader(t, recording(t, f, nil), f).ReadAll()
		require.NoError(t, err)
		require.Zero(t, batch.Len())
	}
}

func TestReader_ChunkEquivalence(t *testing.T) {
	events := randomEvents(2, 2000)

	for _, f := range allFormats {
		data := recording(t, f, events)
		whole, err := newReader(t, data, f).ReadAll()
		require.NoError(t, err)

		for _, target := range []int{1, 7, 500, 1999, 2000, 5000} {
			for _, bufSize := range []int{1, 3, 4096} {
				r := newReader(t, data, f, WithBufferSize(bufSize))
				got := readChunks(t, r, NewCursor(target))
				require.Equal(t, whole.Events(), got, "%s target=%d buffer=%d", f, target, bufSize)
			}
		}
	}
}

func TestReader_ChunkEquivalence_Vectors(t *testing.T) {
	data := evt3Recording(t, vectorWords()...)

	whole, err := newReader(t, data, format.EVT3).ReadAll()
	require.NoError(t, err)
	require.Equal(t, 15, whole.Len())

	for target := 1; target <= 16; target++ {
		got := readChunks(t, newReader(t, data, format.EVT3, WithBufferSize(2)), NewCursor(target))
		require.Equal(t, whole.Events(), got, "target=%d", target)
	}
}

func TestReader_VectorRecordIsNeverSplit(t *testing.T) {
	r := newReader(t, evt3Recording(t, vectorWords()...), format.EVT3)
	cur := NewCursor(2)

	// The single ADDR_X event leaves room, so the 3-event VECT_12 is taken whole.
	n, err := r.Measure(cur)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	out := make([]event.Event, n)
	m, err := r.Read(cur, out)
	require.NoError(t, err)
	require.Equal(t, n, m)
	require.Equal(t, []int16{1, 100, 101, 103}, []int16{out[0].X, out[1].X, out[2].X, out[3].X})
	require.Equal(t, uint16(112), cur.State.BaseX)
}

func TestReader_DeterministicReplay(t *testing.T) {
	data := evt3Recording(t, vectorWords()...)
	r := newReader(t, data, format.EVT3)

	cur := NewCursor(5)
	_, err := r.Next(cur)
	require.NoError(t, err)

	snapshot := *cur

	n1, err := r.Measure(cur)
	require.NoError(t, err)
	n2, err := r.Measure(cur)
	require.NoError(t, err)
	require.Equal(t, n1, n2)
	require.Equal(t, snapshot, *cur, "measure must not mutate the cursor")

	first := make([]event.Event, n1)
	_, err = r.Read(cur, first)
	require.NoError(t, err)
	after := *cur

	*cur = snapshot
	second := make([]event.Event, n1)
	_, err = r.Read(cur, second)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, after, *cur)
}

func TestReader_TimeWindow(t *testing.T) {
	events := []event.Event{
		{T: 0, X: 1, Y: 1},
		{T: 500, X: 2, Y: 1},
		{T: 1200, X: 3, Y: 1},
		{T: 2000, X: 4, Y: 1},
	}

	for _, f := range allFormats {
		t.Run(f.String(), func(t *testing.T) {
			r := newReader(t, recording(t, f, events), f)
			cur := NewCursor(0)

			n, err := r.MeasureTimeWindow(cur, time.Millisecond)
			require.NoError(t, err)
			require.Equal(t, 2, n)

			out := make([]event.Event, n)
			_, err = r.Read(cur, out)
			require.NoError(t, err)
			require.Equal(t, events[:2], out)
			require.False(t, cur.Finished)

			// The next window starts at the excluded event.
			rest, err := r.Next(cur)
			require.NoError(t, err)
			require.Equal(t, events[2:], rest)
			require.True(t, cur.Finished)
		})
	}
}

func TestReader_TimeWindowCursor(t *testing.T) {
	events := randomEvents(3, 1000)
	data := recording(t, format.EVT2, events)
	r := newReader(t, data, format.EVT2)

	var all []event.Event
	for chunk, err := range r.Chunks(NewTimeWindowCursor(5 * time.Millisecond)) {
		require.NoError(t, err)
		require.NotEmpty(t, chunk)
		require.Less(t, chunk[len(chunk)-1].T-chunk[0].T, int64(5000))
		all = append(all, chunk...)
	}
	require.Equal(t, events, all)
}

func TestReader_MeasureTimeWindow_Invalid(t *testing.T) {
	r := newReader(t, recording(t, format.EVT2, nil), format.EVT2)

	_, err := r.MeasureTimeWindow(NewCursor(0), 0)
	require.ErrorIs(t, err, errs.ErrInvalidWindow)
}

func TestReader_NegativeTarget(t *testing.T) {
	r := newReader(t, recording(t, format.DAT, randomEvents(3, 10)), format.DAT)
	cur := NewCursor(-1)

	_, err := r.Measure(cur)
	require.ErrorIs(t, err, errs.ErrInvalidTarget)

	_, err = r.Read(cur, make([]event.Event, 10))
	require.ErrorIs(t, err, errs.ErrInvalidTarget)
	require.False(t, cur.Finished)
}

func TestReader_HeaderInit(t *testing.T) {
	rec := recording(t, format.EVT2, []event.Event{{T: 70, X: 3, Y: 4, P: 1}})
	payload, err := header.PayloadOffset(bytes.NewReader(rec), format.EVT2)
	require.NoError(t, err)

	var buf bytes.Buffer
	hdr, err := header.Write(&buf, format.EVT2, "first", "evt 2.0")
	require.NoError(t, err)
	buf.Write(rec[payload:])

	r := newReader(t, buf.Bytes(), format.EVT2)
	cur := NewCursor(0)

	_, err = r.Measure(cur)
	require.NoError(t, err)
	require.True(t, cur.Started)
	require.Equal(t, int64(hdr), cur.Offset)

	events, err := r.Next(cur)
	require.NoError(t, err)
	require.Equal(t, []event.Event{{T: 70, X: 3, Y: 4, P: 1}}, events)
}

func TestReader_Finished(t *testing.T) {
	events := randomEvents(4, 10)
	r := newReader(t, recording(t, format.DAT, events), format.DAT)
	cur := NewCursor(4)

	for _, want := range []struct {
		n        int
		finished bool
	}{{4, false}, {4, false}, {2, true}, {0, true}} {
		got, err := r.Next(cur)
		require.NoError(t, err)
		require.Len(t, got, want.n)
		require.Equal(t, want.finished, cur.Finished)
	}
}

func TestReader_NoPersistOffset(t *testing.T) {
	events := randomEvents(5, 100)
	r := newReader(t, recording(t, format.EVT3, events), format.EVT3)

	cur := NewCursor(30)
	cur.PersistOffset = false

	first, err := r.Next(cur)
	require.NoError(t, err)
	start := cur.Offset

	second, err := r.Next(cur)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, start, cur.Offset)
	require.Equal(t, codec.State{}, cur.State)
	require.Equal(t, events[:30], first)
}

func TestReader_OutputTooSmall(t *testing.T) {
	r := newReader(t, evt3Recording(t, vectorWords()...), format.EVT3)
	cur := NewCursor(0)

	// One slot: the first ADDR_X fits, the VECT_12 does not.
	out := make([]event.Event, 1)
	n, err := r.Read(cur, out)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.False(t, cur.Finished)

	snapshot := *cur
	_, err = r.Read(cur, out)
	require.ErrorIs(t, err, errs.ErrAllocation)
	require.Equal(t, snapshot, *cur)
}

func TestReader_UnknownRecordLeavesCursor(t *testing.T) {
	data := recording(t, format.EVT2, randomEvents(6, 20))
	hdr, err := header.PayloadOffset(bytes.NewReader(data), format.EVT2)
	require.NoError(t, err)
	payload := int64(len(data)) - hdr
	data = binary.LittleEndian.AppendUint32(data, 0x3<<28)

	r := newReader(t, data, format.EVT2)
	cur := NewCursor(20)
	_, err = r.Next(cur)
	require.NoError(t, err)

	snapshot := *cur
	_, err = r.Measure(cur)
	require.ErrorIs(t, err, errs.ErrUnrecognizedRecordType)

	_, err = r.Read(cur, make([]event.Event, 100))
	require.ErrorIs(t, err, errs.ErrUnrecognizedRecordType)
	require.Equal(t, snapshot, *cur)

	var rte *errs.RecordTypeError
	require.ErrorAs(t, err, &rte)
	require.Equal(t, hdr+payload, rte.Offset)
	require.Equal(t, uint8(0x3), rte.Tag)
}

func TestReader_TruncatedTrailingRecord(t *testing.T) {
	events := randomEvents(7, 50)
	data := recording(t, format.DAT, events)
	data = append(data, 0x01, 0x02, 0x03)

	got := readChunks(t, newReader(t, data, format.DAT, WithBufferSize(7)), NewCursor(9))
	require.Equal(t, events, got)
}

func TestReader_ObserverOnlyDuringRead(t *testing.T) {
	var buf bytes.Buffer
	_, err := header.Write(&buf, format.EVT2)
	require.NoError(t, err)
	for _, w := range []uint32{0x8<<28 | 2, 0x1 << 28, 0x8<<28 | 1, 0x1 << 28} {
		buf.Write(binary.LittleEndian.AppendUint32(nil, w))
	}

	var reports int
	obs := codec.ObserverFunc(func(format.Format, int64, int64) { reports++ })
	r := newReader(t, buf.Bytes(), format.EVT2, WithObserver(obs))

	cur := NewCursor(0)
	n, err := r.Measure(cur)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Zero(t, reports)

	out := make([]event.Event, n)
	_, err = r.Read(cur, out)
	require.NoError(t, err)
	require.Equal(t, 1, reports)
	require.Equal(t, []int64{128, 64}, []int64{out[0].T, out[1].T})
}

func TestCursor_Reset(t *testing.T) {
	events := randomEvents(8, 40)
	r := newReader(t, recording(t, format.EVT3, events), format.EVT3)

	cur := NewCursor(25)
	first, err := r.Next(cur)
	require.NoError(t, err)

	cur.Reset()
	require.False(t, cur.Started)
	require.Equal(t, 25, cur.Target)

	again, err := r.Next(cur)
	require.NoError(t, err)
	require.Equal(t, first, again)
}
