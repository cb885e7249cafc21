// Package layout assigns overlapping events to non-overlapping lanes and
// maps them to normalized geometry. It is pure computation: identical
// inputs always produce identical output, so everything here is testable
// without a rendering surface.
package layout

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"calview/internal/model"
)

// ErrInvalidInterval marks an event whose start is after its end. Such an
// event is a contract violation by the supplying source; the allocator
// fails fast rather than silently swapping the bounds.
var ErrInvalidInterval = errors.New("interval start is after end")

// Allocation is the result of assigning one container's events to lanes.
type Allocation struct {
	// LaneOf maps event ID to its lane index, 0..LaneCount-1.
	LaneOf map[string]int

	// LaneCount is the total number of lanes opened, which for interval
	// sets equals the minimum possible (the chromatic number of the
	// overlap graph).
	LaneCount int
}

// Allocate assigns each event to a lane such that overlapping events
// never share one, using the fewest lanes possible.
//
// The sweep places events in start order (ties: longer duration first,
// then ID) into the first lane whose previous occupant has ended. A lane
// is free when its recorded end is <= the event's start, so back-to-back
// events share a lane while zero-duration events still exclude anything
// active at their instant. Greedy earliest-fit over start-sorted
// intervals is optimal for interval graphs and, with the fixed tie-break,
// deterministic under input permutation.
func Allocate(events []model.Event) (Allocation, error) {
	alloc := Allocation{LaneOf: make(map[string]int, len(events))}

	for _, ev := range events {
		if ev.Start.After(ev.End) {
			return Allocation{}, fmt.Errorf("event %s: %w", ev.ID, ErrInvalidInterval)
		}
	}

	sorted := SortForLayout(events)

	var laneEnds []time.Time
	for _, ev := range sorted {
		placed := false
		for i, end := range laneEnds {
			if !end.After(ev.Start) {
				laneEnds[i] = ev.End
				alloc.LaneOf[ev.ID] = i
				placed = true
				break
			}
		}
		if !placed {
			alloc.LaneOf[ev.ID] = len(laneEnds)
			laneEnds = append(laneEnds, ev.End)
		}
	}

	alloc.LaneCount = len(laneEnds)
	return alloc, nil
}

// SortForLayout returns a copy of events in the canonical layout order:
// start ascending, then duration descending, then ID ascending. The input
// slice is not modified.
func SortForLayout(events []model.Event) []model.Event {
	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.Duration() != b.Duration() {
			return a.Duration() > b.Duration()
		}
		return a.ID < b.ID
	})
	return sorted
}
