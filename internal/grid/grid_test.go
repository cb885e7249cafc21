package grid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.September, 1, 10, 30, 0, 0, time.UTC)

func testOpts() Options {
	return Options{
		WeekStart: time.Monday,
		HourSlots: 24,
		Location:  time.UTC,
		Now:       testNow,
	}
}

func TestMonth_Shape(t *testing.T) {
	tests := []struct {
		name      string
		year      int
		month     time.Month
		weekStart time.Weekday
		wantWeeks int
	}{
		{"september 2026 monday start", 2026, time.September, time.Monday, 5},
		{"september 2026 sunday start", 2026, time.September, time.Sunday, 5},
		{"february 2027 starts on monday", 2027, time.February, time.Monday, 4},
		{"august 2026 six rows", 2026, time.August, time.Monday, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOpts()
			opts.WeekStart = tt.weekStart

			weeks := Month(tt.year, tt.month, opts)
			assert.Len(t, weeks, tt.wantWeeks)

			for _, row := range weeks {
				require.Len(t, row, 7)
			}

			// First and last cell fall on the configured week start
			// and the day before it.
			first := weeks[0][0]
			last := weeks[len(weeks)-1][6]
			assert.Equal(t, tt.weekStart, first.Date.Weekday())
			wantLast := time.Weekday((int(tt.weekStart) + 6) % 7)
			assert.Equal(t, wantLast, last.Date.Weekday())
		})
	}
}

func TestMonth_NoGapsOrDuplicates(t *testing.T) {
	weeks := Month(2026, time.September, testOpts())

	seen := map[string]bool{}
	var prev time.Time
	for _, row := range weeks {
		for _, cell := range row {
			key := cell.Date.Format("2006-01-02")
			assert.False(t, seen[key], "duplicate cell %s", key)
			seen[key] = true
			if !prev.IsZero() {
				assert.Equal(t, prev.AddDate(0, 0, 1), cell.Date)
			}
			prev = cell.Date
		}
	}
}

func TestMonth_LeadTrailFlags(t *testing.T) {
	// September 2026 starts on a Tuesday; the Monday-start grid leads
	// with Aug 31 and trails into Oct 4.
	weeks := Month(2026, time.September, testOpts())

	first := weeks[0][0]
	assert.Equal(t, time.August, first.Date.Month())
	assert.False(t, first.InCurrentPeriod)

	last := weeks[len(weeks)-1][6]
	assert.Equal(t, time.October, last.Date.Month())
	assert.False(t, last.InCurrentPeriod)

	inMonth := 0
	for _, row := range weeks {
		for _, cell := range row {
			if cell.InCurrentPeriod {
				inMonth++
				assert.Equal(t, time.September, cell.Date.Month())
			}
		}
	}
	assert.Equal(t, 30, inMonth)
}

func TestMonth_YearRollover(t *testing.T) {
	t.Run("january leads with december", func(t *testing.T) {
		weeks := Month(2026, time.January, testOpts())
		first := weeks[0][0]
		assert.Equal(t, 2025, first.Date.Year())
		assert.Equal(t, time.December, first.Date.Month())
		assert.False(t, first.InCurrentPeriod)
	})

	t.Run("december trails into january", func(t *testing.T) {
		weeks := Month(2026, time.December, testOpts())
		last := weeks[len(weeks)-1][6]
		assert.Equal(t, 2027, last.Date.Year())
		assert.Equal(t, time.January, last.Date.Month())
		assert.False(t, last.InCurrentPeriod)
	})
}

func TestMonth_IsToday(t *testing.T) {
	weeks := Month(2026, time.September, testOpts())

	todays := 0
	for _, row := range weeks {
		for _, cell := range row {
			if cell.IsToday {
				todays++
				assert.True(t, SameDate(cell.Date, testNow))
			}
		}
	}
	assert.Equal(t, 1, todays)
}

func TestWeek(t *testing.T) {
	days := Week(2026, 36, testOpts())
	require.Len(t, days, 7)

	// ISO week 36 of 2026 runs Mon Aug 31 .. Sun Sep 6.
	assert.Equal(t, time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC), days[0].Date)
	assert.Equal(t, time.Date(2026, time.September, 6, 0, 0, 0, 0, time.UTC), days[6].Date)

	for i, day := range days {
		assert.Equal(t, days[0].Date.AddDate(0, 0, i), day.Date)
		require.Len(t, day.Slots, 24)
		assert.Equal(t, day.Date, day.Slots[0])
		assert.Equal(t, day.Date.Add(23*time.Hour), day.Slots[23])
	}
}

func TestWeek_ConfigurableSlots(t *testing.T) {
	opts := testOpts()
	opts.HourSlots = 48

	days := Week(2026, 36, opts)
	require.Len(t, days[0].Slots, 48)
	assert.Equal(t, days[0].Date.Add(30*time.Minute), days[0].Slots[1])
}

func TestISOWeekStart(t *testing.T) {
	tests := []struct {
		name     string
		isoYear  int
		isoWeek  int
		wantDate time.Time
	}{
		// ISO week 1 of 2026 starts in the previous calendar year.
		{"week 1 2026", 2026, 1, time.Date(2025, time.December, 29, 0, 0, 0, 0, time.UTC)},
		// 2026 has 53 ISO weeks.
		{"week 53 2026", 2026, 53, time.Date(2026, time.December, 28, 0, 0, 0, 0, time.UTC)},
		{"week 1 2025", 2025, 1, time.Date(2024, time.December, 30, 0, 0, 0, 0, time.UTC)},
		{"mid-year week", 2026, 36, time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ISOWeekStart(tt.isoYear, tt.isoWeek, time.UTC)
			assert.Equal(t, tt.wantDate, got)

			// Round-trip through the standard library.
			y, w := got.ISOWeek()
			assert.Equal(t, tt.isoYear, y)
			assert.Equal(t, tt.isoWeek, w)
		})
	}
}

func TestISOWeeksInYear(t *testing.T) {
	assert.Equal(t, 53, ISOWeeksInYear(2026))
	assert.Equal(t, 52, ISOWeeksInYear(2025))
	assert.Equal(t, 53, ISOWeeksInYear(2020))
}

func TestDay(t *testing.T) {
	day := Day(time.Date(2026, time.September, 1, 15, 45, 0, 0, time.UTC), testOpts())

	assert.Equal(t, time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC), day.Date)
	assert.True(t, day.InCurrentPeriod)
	assert.True(t, day.IsToday)
	assert.Len(t, day.Slots, 24)
	assert.Empty(t, day.Events)
}
