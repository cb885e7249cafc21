package model

import "time"

// ViewMode selects which calendar layout the composer produces.
type ViewMode string

const (
	ModeMonth ViewMode = "month"
	ModeWeek  ViewMode = "week"
	ModeDay   ViewMode = "day"
)

// Valid reports whether m is one of the three supported view modes.
func (m ViewMode) Valid() bool {
	switch m {
	case ModeMonth, ModeWeek, ModeDay:
		return true
	}
	return false
}

// Event is a single discrete occurrence as supplied by an event source.
// Recurring events are expanded into Events before they reach the layout
// engine; the engine treats them as an immutable read-only snapshot.
type Event struct {
	// ID uniquely identifies the occurrence within one rendering request.
	// For recurring events this combines the UID with the instance start.
	ID string

	SourceID string // event source ID (e.g., config ICS ID)

	Title    string
	Location string

	AllDay bool

	// Start / End are in the configured display timezone, minute
	// resolution. Start == End denotes an instant event.
	Start time.Time
	End   time.Time
}

// Duration returns the event's length. Zero for instant events.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Overlaps reports whether two events' intervals overlap. Back-to-back
// events (a.End == b.Start) do not overlap.
func (e Event) Overlaps(o Event) bool {
	return e.Start.Before(o.End) && o.Start.Before(e.End)
}

// Rect is a normalized geometry for an event fragment in a timed view.
// All values are fractions of the containing day column: Top/Height along
// the time axis, Left/Width across lanes.
type Rect struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
}

// PositionedEvent is one laid-out fragment of an event inside a DayCell.
// An event spanning several days produces one fragment per day it touches.
type PositionedEvent struct {
	Event Event `json:"event"`

	// Lane / LaneCount describe the non-overlapping slot assignment for
	// the containing cell: 0 <= Lane < LaneCount.
	Lane      int `json:"lane"`
	LaneCount int `json:"lane_count"`

	// Rect is set for timed views (week/day).
	Rect Rect `json:"rect"`

	// Order and Truncated are set for the month view: Order is the
	// vertical stacking position within the cell, Truncated marks events
	// past the cell's visible row budget (revealed on hover by the UI).
	Order     int  `json:"order"`
	Truncated bool `json:"truncated"`
}

// DayCell is one rendered calendar day. Cells are build-and-discard: they
// are constructed for a single render pass and never retained.
type DayCell struct {
	Date time.Time `json:"date"`

	// InCurrentPeriod is false for lead/trail days pulled in from the
	// adjacent month to complete the grid rectangle.
	InCurrentPeriod bool `json:"in_current_period"`

	IsToday bool `json:"is_today"`

	// Slots holds the start times of the cell's hourly slots in timed
	// views; empty in month mode.
	Slots []time.Time `json:"slots,omitempty"`

	// Events are the positioned fragments for this day, populated by the
	// view composer.
	Events []PositionedEvent `json:"events"`

	// Overflow is the number of events beyond the month cell's visible
	// row budget. Zero in timed views.
	Overflow int `json:"overflow,omitempty"`
}

// RenderModel is the composer's complete output for one request: the grid
// skeleton with every event fragment positioned. Presentation turns the
// normalized rectangles into concrete coordinates.
type RenderModel struct {
	Mode ViewMode `json:"mode"`

	// Focus is the date the view is centered on: first of the month,
	// Monday of the ISO week, or the day itself.
	Focus time.Time `json:"focus"`

	// RangeStart / RangeEnd bound the rendered period, half-open.
	RangeStart time.Time `json:"range_start"`
	RangeEnd   time.Time `json:"range_end"`

	// Weeks holds rows of exactly 7 cells in month mode.
	Weeks [][]DayCell `json:"weeks,omitempty"`

	// Days holds the 7 week cells or the single day cell in timed modes.
	Days []DayCell `json:"days,omitempty"`
}
