package event

import (
	"fmt"
	"iter"

	"github.com/arloliu/evraw/errs"
)

// DefaultBatchCapacity is the initial capacity used by NewBatch when a
// non-positive capacity is requested.
const DefaultBatchCapacity = 8192

// Batch is an append-only, structure-of-arrays event buffer.
//
// The four columns are kept in parallel slices so callers can hand them to
// columnar consumers without a transpose. Capacity is tracked separately from
// length and doubles whenever a Push finds the batch full, giving amortized
// O(1) appends.
//
// Batch is not safe for concurrent use.
type Batch struct {
	T []int64
	X []int16
	Y []int16
	P []uint8

	capacity int
}

// NewBatch creates an empty batch able to hold capacity events before growing.
func NewBatch(capacity int) *Batch {
	if capacity <= 0 {
		capacity = DefaultBatchCapacity
	}

	return &Batch{
		T:        make([]int64, 0, capacity),
		X:        make([]int16, 0, capacity),
		Y:        make([]int16, 0, capacity),
		P:        make([]uint8, 0, capacity),
		capacity: capacity,
	}
}

// Len returns the number of events in the batch.
func (b *Batch) Len() int {
	return len(b.T)
}

// Cap returns the number of events the batch can hold before growing.
func (b *Batch) Cap() int {
	return b.capacity
}

// Push appends e, doubling the capacity of every column when the batch is full.
func (b *Batch) Push(e Event) {
	if len(b.T) == b.capacity {
		b.grow(b.capacity * 2)
	}

	b.T = append(b.T, e.T)
	b.X = append(b.X, e.X)
	b.Y = append(b.Y, e.Y)
	b.P = append(b.P, e.P)
}

// PushSlice appends every event of events in order.
func (b *Batch) PushSlice(events []Event) {
	for _, e := range events {
		b.Push(e)
	}
}

// Reserve makes sure at least n more events fit without growing.
//
// It returns an error wrapping errs.ErrAllocation when n is negative or the
// required capacity overflows.
func (b *Batch) Reserve(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative reservation %d", errs.ErrAllocation, n)
	}

	need := len(b.T) + n
	if need < len(b.T) {
		return fmt.Errorf("%w: capacity overflow", errs.ErrAllocation)
	}

	if need <= b.capacity {
		return nil
	}

	newCap := b.capacity
	if newCap == 0 {
		newCap = DefaultBatchCapacity
	}
	for newCap < need {
		newCap *= 2
	}
	b.grow(newCap)

	return nil
}

// ShrinkToFit reallocates every column to exactly Len elements.
func (b *Batch) ShrinkToFit() {
	n := len(b.T)
	if n == b.capacity {
		return
	}

	b.T = append(make([]int64, 0, n), b.T...)
	b.X = append(make([]int16, 0, n), b.X...)
	b.Y = append(make([]int16, 0, n), b.Y...)
	b.P = append(make([]uint8, 0, n), b.P...)
	b.capacity = n
}

// At returns the i-th event. It panics if i is out of range.
func (b *Batch) At(i int) Event {
	return Event{T: b.T[i], X: b.X[i], Y: b.Y[i], P: b.P[i]}
}

// All returns an iterator over the events of the batch in order.
func (b *Batch) All() iter.Seq2[int, Event] {
	return func(yield func(int, Event) bool) {
		for i := range b.T {
			if !yield(i, b.At(i)) {
				return
			}
		}
	}
}

// Events returns the batch as a freshly allocated row-oriented slice.
func (b *Batch) Events() []Event {
	out := make([]Event, len(b.T))
	for i := range out {
		out[i] = b.At(i)
	}

	return out
}

// Reset empties the batch while keeping its allocated columns.
func (b *Batch) Reset() {
	b.T = b.T[:0]
	b.X = b.X[:0]
	b.Y = b.Y[:0]
	b.P = b.P[:0]
}

func (b *Batch) grow(newCap int) {
	if newCap == 0 {
		newCap = DefaultBatchCapacity
	}

	t := make([]int64, len(b.T), newCap)
	copy(t, b.T)
	x := make([]int16, len(b.X), newCap)
	copy(x, b.X)
	y := make([]int16, len(b.Y), newCap)
	copy(y, b.Y)
	p := make([]uint8, len(b.P), newCap)
	copy(p, b.P)

	b.T, b.X, b.Y, b.P = t, x, y, p
	b.capacity = newCap
}
