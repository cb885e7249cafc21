package layout

import (
	"time"

	"calview/internal/model"
)

// Span is a container's visible time window, half-open.
type Span struct {
	Start time.Time
	End   time.Time
}

// Duration returns the span's length.
func (s Span) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Contains reports whether the event intersects the span. Instant events
// sitting exactly on the span start are visible; everything touching only
// the boundaries is not.
func (s Span) Contains(ev model.Event) bool {
	if ev.Start.Equal(ev.End) {
		return !ev.Start.Before(s.Start) && ev.Start.Before(s.End)
	}
	return ev.Start.Before(s.End) && s.Start.Before(ev.End)
}

// MapTimed converts a lane assignment into a normalized rectangle within
// the container span. Top and Height are clamped to [0,1] so an event
// extending past the visible window renders as partially (or, when fully
// outside, zero-height) visible instead of overflowing.
func MapTimed(ev model.Event, lane, laneCount int, span Span) model.Rect {
	if laneCount < 1 {
		laneCount = 1
	}

	total := span.Duration()
	if total <= 0 {
		return model.Rect{Left: float64(lane) / float64(laneCount), Width: 1 / float64(laneCount)}
	}

	top := clamp01(float64(ev.Start.Sub(span.Start)) / float64(total))
	bottom := clamp01(float64(ev.End.Sub(span.Start)) / float64(total))
	if bottom < top {
		bottom = top
	}

	return model.Rect{
		Top:    top,
		Height: bottom - top,
		Left:   float64(lane) / float64(laneCount),
		Width:  1 / float64(laneCount),
	}
}

// StackMonth lays out one month cell's events as stacked rows. Month
// cells have no time axis, so every event gets its own row in canonical
// order; rows past maxRows are flagged truncated for the UI to reveal on
// hover. The row index doubles as the lane so the no-shared-lane
// invariant holds trivially.
func StackMonth(events []model.Event, maxRows int) []model.PositionedEvent {
	sorted := SortForLayout(events)

	out := make([]model.PositionedEvent, 0, len(sorted))
	for i, ev := range sorted {
		out = append(out, model.PositionedEvent{
			Event:     ev,
			Lane:      i,
			LaneCount: len(sorted),
			Order:     i,
			Truncated: maxRows > 0 && i >= maxRows,
		})
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
