package pool

import (
	"sync"

	"github.com/arloliu/evraw/event"
)

var eventSlicePool = sync.Pool{
	New: func() any { return &[]event.Event{} },
}

// GetEventSlice retrieves an empty event slice with at least the given capacity.
//
// The slice is used as per-record scratch space by decoders: callers append
// to it and reslice it to zero length between records. The caller must call
// the returned cleanup function to return the slice to the pool.
//
// Example:
//
//	scratch, cleanup := pool.GetEventSlice(format.MaxEventsPerRecord)
//	defer cleanup()
func GetEventSlice(capacity int) ([]event.Event, func()) {
	ptr, _ := eventSlicePool.Get().(*[]event.Event)
	if cap(*ptr) < capacity {
		*ptr = make([]event.Event, 0, capacity)
	}

	return (*ptr)[:0], func() { eventSlicePool.Put(ptr) }
}
