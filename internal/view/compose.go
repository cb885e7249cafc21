// Package view orchestrates the layout engine: it resolves navigation
// into a date range, fetches events from the source collaborator, builds
// the grid, and positions every event fragment into its day cell.
package view

import (
	"context"
	"errors"
	"fmt"
	"time"

	"calview/internal/grid"
	"calview/internal/layout"
	appLog "calview/internal/log"
	"calview/internal/model"
	"calview/internal/source"
)

// ErrInvalidNavigation marks a malformed navigation request (unknown
// mode, out-of-range month or week number). It is rejected before any
// fetch is attempted.
var ErrInvalidNavigation = errors.New("invalid navigation")

// Options carries the layout configuration a composer applies to every
// render pass.
type Options struct {
	// WeekStart is the first column of the month grid.
	WeekStart time.Weekday

	// HourSlots is the slot count per day in timed views (default 24).
	HourSlots int

	// MonthMaxRows is the visible row budget of a month cell before
	// events are truncated behind hover-to-reveal (default 3).
	MonthMaxRows int

	// Location is the display timezone.
	Location *time.Location

	// FetchTimeout bounds the event-source fetch per render request.
	FetchTimeout time.Duration

	// Now is injectable for testing; defaults to time.Now.
	Now func() time.Time
}

func (o Options) normalize() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.HourSlots <= 0 {
		o.HourSlots = 24
	}
	if o.MonthMaxRows <= 0 {
		o.MonthMaxRows = 3
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 15 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Composer is the view state machine. It holds the current mode and
// focus date and only moves them in response to navigation calls; every
// Render is an independent build-and-discard pass over a fresh snapshot,
// so concurrent requests simply use separate composers.
type Composer struct {
	src  source.EventSource
	opts Options

	mode  model.ViewMode
	focus time.Time // midnight in opts.Location
}

// NewComposer builds a composer starting in month mode focused on the
// current date.
func NewComposer(src source.EventSource, opts Options) *Composer {
	opts = opts.normalize()
	return &Composer{
		src:   src,
		opts:  opts,
		mode:  model.ModeMonth,
		focus: grid.StartOfDay(opts.Now().In(opts.Location)),
	}
}

// Mode returns the current view mode.
func (c *Composer) Mode() model.ViewMode { return c.mode }

// Focus returns the current focus date.
func (c *Composer) Focus() time.Time { return c.focus }

// SetMode switches the view mode, keeping the focus date.
func (c *Composer) SetMode(mode model.ViewMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidNavigation, mode)
	}
	c.mode = mode
	return nil
}

// Next advances the focus by one period of the current mode.
func (c *Composer) Next() { c.shift(1) }

// Prev moves the focus back by one period of the current mode.
func (c *Composer) Prev() { c.shift(-1) }

func (c *Composer) shift(n int) {
	switch c.mode {
	case model.ModeMonth:
		// Anchor at the first of the month so short months cannot
		// skip over their neighbors.
		first := time.Date(c.focus.Year(), c.focus.Month(), 1, 0, 0, 0, 0, c.opts.Location)
		c.focus = first.AddDate(0, n, 0)
	case model.ModeWeek:
		c.focus = c.focus.AddDate(0, 0, 7*n)
	default:
		c.focus = c.focus.AddDate(0, 0, n)
	}
}

// JumpTo moves the focus to an arbitrary date without changing mode.
func (c *Composer) JumpTo(date time.Time) {
	c.focus = grid.StartOfDay(date.In(c.opts.Location))
}

// JumpToMonth focuses the given month and switches to month mode.
func (c *Composer) JumpToMonth(year int, month int) error {
	if err := checkYear(year); err != nil {
		return err
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidNavigation, month)
	}
	c.mode = model.ModeMonth
	c.focus = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, c.opts.Location)
	return nil
}

// JumpToWeek focuses the given ISO week and switches to week mode.
func (c *Composer) JumpToWeek(isoYear, isoWeek int) error {
	if err := checkYear(isoYear); err != nil {
		return err
	}
	if isoWeek < 1 || isoWeek > grid.ISOWeeksInYear(isoYear) {
		return fmt.Errorf("%w: week %d out of range for %d", ErrInvalidNavigation, isoWeek, isoYear)
	}
	c.mode = model.ModeWeek
	c.focus = grid.ISOWeekStart(isoYear, isoWeek, c.opts.Location)
	return nil
}

// JumpToDay focuses the given date and switches to day mode.
func (c *Composer) JumpToDay(year int, month int, day int) error {
	if err := checkYear(year); err != nil {
		return err
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidNavigation, month)
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, c.opts.Location)
	if d.Day() != day || d.Month() != time.Month(month) {
		// time.Date normalizes overflow (e.g. Feb 30); a request that
		// does not round-trip was malformed.
		return fmt.Errorf("%w: no such date %d-%02d-%02d", ErrInvalidNavigation, year, month, day)
	}
	c.mode = model.ModeDay
	c.focus = d
	return nil
}

func checkYear(year int) error {
	if year < 1 || year > 9999 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidNavigation, year)
	}
	return nil
}

// Render computes the render model for the current mode and focus. The
// pass is all-or-nothing with respect to the event source: a failed or
// timed-out fetch surfaces as ErrSourceUnavailable and no partial model
// is returned. Individual malformed events (start after end) are logged
// and excluded without aborting the rest of the render.
func (c *Composer) Render(ctx context.Context) (model.RenderModel, error) {
	gridOpts := grid.Options{
		WeekStart: c.opts.WeekStart,
		HourSlots: c.opts.HourSlots,
		Location:  c.opts.Location,
		Now:       c.opts.Now(),
	}

	switch c.mode {
	case model.ModeMonth:
		return c.renderMonth(ctx, gridOpts)
	case model.ModeWeek:
		return c.renderWeek(ctx, gridOpts)
	default:
		return c.renderDay(ctx, gridOpts)
	}
}

func (c *Composer) renderMonth(ctx context.Context, gridOpts grid.Options) (model.RenderModel, error) {
	year, month := c.focus.Year(), c.focus.Month()
	weeks := grid.Month(year, month, gridOpts)

	rangeStart := weeks[0][0].Date
	last := weeks[len(weeks)-1][6].Date
	rangeEnd := last.AddDate(0, 0, 1)

	events, err := c.fetch(ctx, rangeStart, rangeEnd)
	if err != nil {
		return model.RenderModel{}, err
	}

	for wi := range weeks {
		for di := range weeks[wi] {
			cell := &weeks[wi][di]
			dayEvents := eventsInSpan(events, daySpan(cell.Date))
			cell.Events = layout.StackMonth(dayEvents, c.opts.MonthMaxRows)
			if n := len(cell.Events) - c.opts.MonthMaxRows; n > 0 {
				cell.Overflow = n
			}
		}
	}

	return model.RenderModel{
		Mode:       model.ModeMonth,
		Focus:      time.Date(year, month, 1, 0, 0, 0, 0, c.opts.Location),
		RangeStart: rangeStart,
		RangeEnd:   rangeEnd,
		Weeks:      weeks,
	}, nil
}

func (c *Composer) renderWeek(ctx context.Context, gridOpts grid.Options) (model.RenderModel, error) {
	isoYear, isoWeek := c.focus.ISOWeek()
	days := grid.Week(isoYear, isoWeek, gridOpts)

	rangeStart := days[0].Date
	rangeEnd := days[6].Date.AddDate(0, 0, 1)

	events, err := c.fetch(ctx, rangeStart, rangeEnd)
	if err != nil {
		return model.RenderModel{}, err
	}

	for i := range days {
		if err := c.fillTimedCell(&days[i], events); err != nil {
			return model.RenderModel{}, err
		}
	}

	return model.RenderModel{
		Mode:       model.ModeWeek,
		Focus:      rangeStart,
		RangeStart: rangeStart,
		RangeEnd:   rangeEnd,
		Days:       days,
	}, nil
}

func (c *Composer) renderDay(ctx context.Context, gridOpts grid.Options) (model.RenderModel, error) {
	day := grid.Day(c.focus, gridOpts)

	rangeStart := day.Date
	rangeEnd := day.Date.AddDate(0, 0, 1)

	events, err := c.fetch(ctx, rangeStart, rangeEnd)
	if err != nil {
		return model.RenderModel{}, err
	}

	if err := c.fillTimedCell(&day, events); err != nil {
		return model.RenderModel{}, err
	}

	return model.RenderModel{
		Mode:       model.ModeDay,
		Focus:      rangeStart,
		RangeStart: rangeStart,
		RangeEnd:   rangeEnd,
		Days:       []model.DayCell{day},
	}, nil
}

// fillTimedCell lays out the events intersecting one day column: lane
// allocation over the real intervals, then normalized rectangles clamped
// to the day's visible span. A multi-day event contributes a clamped
// fragment to every day it touches.
func (c *Composer) fillTimedCell(cell *model.DayCell, events []model.Event) error {
	span := daySpan(cell.Date)
	dayEvents := eventsInSpan(events, span)

	alloc, err := layout.Allocate(dayEvents)
	if err != nil {
		return err
	}

	positioned := make([]model.PositionedEvent, 0, len(dayEvents))
	for _, ev := range layout.SortForLayout(dayEvents) {
		lane := alloc.LaneOf[ev.ID]
		positioned = append(positioned, model.PositionedEvent{
			Event:     ev,
			Lane:      lane,
			LaneCount: alloc.LaneCount,
			Rect:      layout.MapTimed(ev, lane, alloc.LaneCount, span),
		})
	}
	cell.Events = positioned
	return nil
}

// fetch pulls the event snapshot for the range, bounded by the configured
// timeout, and drops malformed records.
func (c *Composer) fetch(ctx context.Context, rangeStart, rangeEnd time.Time) ([]model.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	defer cancel()

	events, err := c.src.FetchEvents(ctx, rangeStart, rangeEnd)
	if err != nil {
		if errors.Is(err, source.ErrSourceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", source.ErrSourceUnavailable, err)
	}

	valid := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.Start.After(ev.End) {
			appLog.Error("dropping event with invalid interval", layout.ErrInvalidInterval,
				"id", ev.ID,
				"start", ev.Start.Format(time.RFC3339),
				"end", ev.End.Format(time.RFC3339),
			)
			continue
		}
		valid = append(valid, ev)
	}
	return valid, nil
}

func daySpan(date time.Time) layout.Span {
	return layout.Span{Start: date, End: date.AddDate(0, 0, 1)}
}

func eventsInSpan(events []model.Event, span layout.Span) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range events {
		if span.Contains(ev) {
			out = append(out, ev)
		}
	}
	return out
}
