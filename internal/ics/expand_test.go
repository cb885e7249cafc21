package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var expandRange = ExpandConfig{
	DisplayLocation: time.UTC,
	RangeStart:      time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
	RangeEnd:        time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC),
}

func parsed(uid string, start, end time.Time) ParsedEvent {
	return ParsedEvent{
		Source:  Source{ID: "test"},
		UID:     uid,
		Summary: uid,
		Start:   start,
		End:     end,
	}
}

func TestExpand_SingleEvent(t *testing.T) {
	start := time.Date(2026, time.September, 2, 9, 0, 0, 0, time.UTC)
	res, err := ExpandOccurrences([]ParsedEvent{
		parsed("standup", start, start.Add(30*time.Minute)),
	}, expandRange)
	require.NoError(t, err)

	require.Len(t, res.Events, 1)
	ev := res.Events[0]
	assert.Equal(t, "standup#2026-09-02T09:00:00Z", ev.ID)
	assert.Equal(t, "test", ev.SourceID)
	assert.Equal(t, start, ev.Start)
	assert.Equal(t, start.Add(30*time.Minute), ev.End)
}

func TestExpand_OutsideRangeExcluded(t *testing.T) {
	start := time.Date(2026, time.October, 2, 9, 0, 0, 0, time.UTC)
	res, err := ExpandOccurrences([]ParsedEvent{
		parsed("later", start, start.Add(time.Hour)),
	}, expandRange)
	require.NoError(t, err)
	assert.Empty(t, res.Events)
}

func TestExpand_DailyRRuleWithExDate(t *testing.T) {
	start := time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC)
	ev := parsed("daily", start, start.Add(time.Hour))
	ev.RawRRule = "FREQ=DAILY;COUNT=10"
	ev.ExDates = []time.Time{time.Date(2026, time.September, 3, 9, 0, 0, 0, time.UTC)}

	res, err := ExpandOccurrences([]ParsedEvent{ev}, expandRange)
	require.NoError(t, err)

	// Sep 1 through Sep 6 at 09:00, minus the Sep 3 exception.
	require.Len(t, res.Events, 5)
	for _, occ := range res.Events {
		assert.NotEqual(t, 3, occ.Start.Day())
		assert.Equal(t, time.Hour, occ.End.Sub(occ.Start))
	}
	assert.Empty(t, res.TruncatedUIDs)
}

func TestExpand_RecurrenceIDOverride(t *testing.T) {
	start := time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC)
	base := parsed("weekly", start, start.Add(time.Hour))
	base.RawRRule = "FREQ=DAILY;COUNT=3"

	// The Sep 2 instance is moved an hour later and renamed.
	rid := time.Date(2026, time.September, 2, 9, 0, 0, 0, time.UTC)
	override := parsed("weekly", rid.Add(time.Hour), rid.Add(2*time.Hour))
	override.Summary = "moved"
	override.Recurrence = &rid
	override.IsOverride = true

	res, err := ExpandOccurrences([]ParsedEvent{base, override}, expandRange)
	require.NoError(t, err)
	require.Len(t, res.Events, 3)

	var moved int
	for _, occ := range res.Events {
		if occ.Title == "moved" {
			moved++
			assert.Equal(t, rid.Add(time.Hour), occ.Start)
		}
	}
	assert.Equal(t, 1, moved)
}

func TestExpand_AllDayRecurring(t *testing.T) {
	start := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	ev := parsed("holiday", start, start.Add(24*time.Hour))
	ev.AllDay = true
	ev.RawRRule = "FREQ=WEEKLY;COUNT=3"

	cfg := expandRange
	cfg.RangeEnd = time.Date(2026, time.September, 30, 0, 0, 0, 0, time.UTC)

	res, err := ExpandOccurrences([]ParsedEvent{ev}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Events, 3)

	for _, occ := range res.Events {
		assert.True(t, occ.AllDay)
		assert.Equal(t, 0, occ.Start.Hour())
		assert.Equal(t, 24*time.Hour, occ.End.Sub(occ.Start))
	}
	assert.Equal(t, 8, res.Events[1].Start.Day())
}

func TestExpand_OccurrenceCap(t *testing.T) {
	start := time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC)
	ev := parsed("runaway", start, start.Add(time.Hour))
	ev.RawRRule = "FREQ=HOURLY"

	cfg := expandRange
	cfg.MaxOccurrencesPerEvent = 10

	res, err := ExpandOccurrences([]ParsedEvent{ev}, cfg)
	require.NoError(t, err)
	assert.Len(t, res.Events, 10)
	assert.Equal(t, []string{"runaway"}, res.TruncatedUIDs)
}

func TestExpand_RejectsInvertedRange(t *testing.T) {
	cfg := ExpandConfig{
		RangeStart: time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err := ExpandOccurrences(nil, cfg)
	assert.Error(t, err)
}
