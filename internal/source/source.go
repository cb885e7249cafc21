// Package source defines the event-source collaborator contract the view
// composer consumes, plus the concrete sources (ICS subscriptions, Google
// Calendar) and an all-or-nothing merger.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"calview/internal/model"
)

// ErrSourceUnavailable marks a failed or timed-out event fetch. The
// composer aborts the whole render on it rather than emitting a grid
// half-populated with stale data.
var ErrSourceUnavailable = errors.New("event source unavailable")

// EventSource supplies discrete event occurrences overlapping a time
// range. Returned events need not be sorted; recurring events must
// already be expanded. Implementations should honor ctx cancellation.
type EventSource interface {
	FetchEvents(ctx context.Context, rangeStart, rangeEnd time.Time) ([]model.Event, error)
}

// Multi concatenates the results of several sources. A failure of any one
// source fails the whole fetch: partial event lists would render as a
// misleadingly sparse calendar.
type Multi struct {
	sources []EventSource
}

// NewMulti builds a Multi over the given sources. Nil entries are skipped.
func NewMulti(sources ...EventSource) *Multi {
	m := &Multi{}
	for _, s := range sources {
		if s != nil {
			m.sources = append(m.sources, s)
		}
	}
	return m
}

// FetchEvents implements EventSource.
func (m *Multi) FetchEvents(ctx context.Context, rangeStart, rangeEnd time.Time) ([]model.Event, error) {
	var all []model.Event
	for _, s := range m.sources {
		events, err := s.FetchEvents(ctx, rangeStart, rangeEnd)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		all = append(all, events...)
	}
	return all, nil
}
