// Package event defines the decoded contrast-detection event and the growable
// structure-of-arrays batch used by whole-file decoding.
package event

import "fmt"

// Event is a single contrast-detection event.
//
// T is the absolute timestamp in microseconds, X and Y the pixel address and P
// the polarity (0 or 1). Events are plain values and are never mutated once
// produced by a decoder.
type Event struct {
	T int64
	X int16
	Y int16
	P uint8
}

func (e Event) String() string {
	return fmt.Sprintf("{t=%d x=%d y=%d p=%d}", e.T, e.X, e.Y, e.P)
}

// IsMonotonic reports whether the timestamps of events never decrease.
func IsMonotonic(events []Event) bool {
	for i := 1; i < len(events); i++ {
		if events[i].T < events[i-1].T {
			return false
		}
	}

	return true
}
