package source

import (
	"context"
	"fmt"
	"time"

	"calview/internal/ics"
	appLog "calview/internal/log"
	"calview/internal/model"
)

// ICS reads one or more ICS subscription feeds and expands their
// recurrences into discrete occurrences.
type ICS struct {
	fetcher *ics.Fetcher
	sources []ics.Source
	loc     *time.Location
}

// NewICS builds an ICS source over the given subscriptions. cacheDir
// backs the fetcher's HTTP cache; loc is the display timezone all
// occurrences are normalized to.
func NewICS(cacheDir string, timeout time.Duration, loc *time.Location, sources []ics.Source) *ICS {
	if loc == nil {
		loc = time.Local
	}
	return &ICS{
		fetcher: ics.NewFetcher(cacheDir, timeout),
		sources: sources,
		loc:     loc,
	}
}

// FetchEvents implements EventSource. A subscription that cannot be
// fetched (even from cache) or parsed fails the whole call; a half-empty
// calendar is worse than an explicit error.
func (s *ICS) FetchEvents(ctx context.Context, rangeStart, rangeEnd time.Time) ([]model.Event, error) {
	if len(s.sources) == 0 {
		return nil, nil
	}

	results, errs := s.fetcher.FetchAll(ctx, s.sources)
	if len(errs) > 0 {
		return nil, fmt.Errorf("ics: %d of %d feeds failed: %v", len(errs), len(s.sources), errs[0])
	}

	parsed := make([]ics.ParsedEvent, 0)
	for _, res := range results {
		events, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			return nil, fmt.Errorf("ics: parse %s: %w", res.Source.ID, err)
		}
		parsed = append(parsed, events...)
	}

	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: s.loc,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("ics: expand: %w", err)
	}

	appLog.Debug("ics source fetched", "feeds", len(s.sources), "events", len(expanded.Events))
	return expanded.Events, nil
}
