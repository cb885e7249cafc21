// Package grid builds the date-cell skeletons for the month, week, and
// day views. Builders are pure: cells come back with empty event lists
// and the composer fills them in.
package grid

import (
	"time"

	"calview/internal/model"
)

// Options carries the caller context every builder needs.
type Options struct {
	// WeekStart is the first column of the month grid, normally
	// time.Monday or time.Sunday.
	WeekStart time.Weekday

	// HourSlots is the number of time slots a day exposes in timed
	// views. 24 means hourly.
	HourSlots int

	// Location is the display timezone cells are built in.
	Location *time.Location

	// Now is the caller-supplied current instant used for IsToday.
	Now time.Time
}

func (o Options) normalize() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.HourSlots <= 0 {
		o.HourSlots = 24
	}
	return o
}

// Month returns the full calendar weeks intersecting the given month as
// rows of exactly 7 cells. The grid starts on the configured week-start
// day and ends the day before the next week-start, so lead/trail days
// from the adjacent months are included and flagged InCurrentPeriod=false.
// Year rollover (January lead days from December and vice versa) falls
// out of plain date arithmetic.
func Month(year int, month time.Month, opts Options) [][]model.DayCell {
	opts = opts.normalize()

	first := time.Date(year, month, 1, 0, 0, 0, 0, opts.Location)
	cur := weekStartOf(first, opts.WeekStart)

	var weeks [][]model.DayCell
	for {
		row := make([]model.DayCell, 0, 7)
		for i := 0; i < 7; i++ {
			cell := newCell(cur, opts)
			cell.InCurrentPeriod = cur.Month() == month && cur.Year() == year
			row = append(row, cell)
			cur = cur.AddDate(0, 0, 1)
		}
		weeks = append(weeks, row)
		// cur now points at the next row's first day; once that falls
		// outside the month the grid is complete.
		if cur.Month() != month || cur.Year() != year {
			break
		}
	}
	return weeks
}

// Week returns exactly 7 cells for the given ISO-8601 week, Monday first,
// each exposing the configured hourly slots. ISO week 1 may begin in the
// previous calendar year; week 53 exists in long years. Both fall out of
// ISOWeekStart.
func Week(isoYear, isoWeek int, opts Options) []model.DayCell {
	opts = opts.normalize()

	cur := ISOWeekStart(isoYear, isoWeek, opts.Location)
	days := make([]model.DayCell, 0, 7)
	for i := 0; i < 7; i++ {
		cell := newCell(cur, opts)
		cell.InCurrentPeriod = true
		cell.Slots = daySlots(cur, opts.HourSlots)
		days = append(days, cell)
		cur = cur.AddDate(0, 0, 1)
	}
	return days
}

// Day returns a single cell configured as a tall one-column agenda.
func Day(date time.Time, opts Options) model.DayCell {
	opts = opts.normalize()

	d := StartOfDay(date.In(opts.Location))
	cell := newCell(d, opts)
	cell.InCurrentPeriod = true
	cell.Slots = daySlots(d, opts.HourSlots)
	return cell
}

// ISOWeekStart returns the Monday that opens the given ISO week, at
// midnight in loc. January 4th is always inside ISO week 1, which anchors
// the computation.
func ISOWeekStart(isoYear, isoWeek int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	jan4 := time.Date(isoYear, time.January, 4, 0, 0, 0, 0, loc)
	week1 := weekStartOf(jan4, time.Monday)
	return week1.AddDate(0, 0, (isoWeek-1)*7)
}

// ISOWeeksInYear reports how many ISO weeks the given ISO year has
// (52 or 53).
func ISOWeeksInYear(isoYear int) int {
	// December 28th is always in the last ISO week of its year.
	dec28 := time.Date(isoYear, time.December, 28, 0, 0, 0, 0, time.UTC)
	_, w := dec28.ISOWeek()
	return w
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDate reports whether a and b fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// weekStartOf walks t back to the most recent occurrence of the given
// weekday, at midnight.
func weekStartOf(t time.Time, start time.Weekday) time.Time {
	d := StartOfDay(t)
	back := (int(d.Weekday()) - int(start) + 7) % 7
	return d.AddDate(0, 0, -back)
}

func newCell(date time.Time, opts Options) model.DayCell {
	return model.DayCell{
		Date:    date,
		IsToday: SameDate(date, opts.Now.In(opts.Location)),
		Events:  []model.PositionedEvent{},
	}
}

func daySlots(day time.Time, n int) []time.Time {
	step := 24 * time.Hour / time.Duration(n)
	slots := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		slots = append(slots, day.Add(time.Duration(i)*step))
	}
	return slots
}
