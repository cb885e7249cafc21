package source

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	appLog "calview/internal/log"
	"calview/internal/model"
)

// Google reads events from a Google Calendar via a service account. The
// API expands recurring events server-side (SingleEvents), so the layout
// engine receives discrete occurrences just like from the ICS source.
type Google struct {
	service    *calendar.Service
	calendarID string
	loc        *time.Location
}

// NewGoogle builds a Google Calendar source from a service-account JSON
// key file. calendarID defaults to "primary".
func NewGoogle(ctx context.Context, credentialsFile, calendarID string, loc *time.Location) (*Google, error) {
	if calendarID == "" {
		calendarID = "primary"
	}
	if loc == nil {
		loc = time.Local
	}

	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("google: read credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("google: load credentials: %w", err)
	}

	service, err := calendar.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("google: create service: %w", err)
	}

	return &Google{
		service:    service,
		calendarID: calendarID,
		loc:        loc,
	}, nil
}

// FetchEvents implements EventSource.
func (g *Google) FetchEvents(ctx context.Context, rangeStart, rangeEnd time.Time) ([]model.Event, error) {
	call := g.service.Events.List(g.calendarID).
		TimeMin(rangeStart.Format(time.RFC3339)).
		TimeMax(rangeEnd.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(2500).
		Context(ctx)

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("google: list events: %w", err)
	}

	events := make([]model.Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		ev, err := g.convert(item)
		if err != nil {
			// Skip the record but keep the rest of the calendar.
			appLog.Warn("google: skipping event", "id", item.Id, "reason", err.Error())
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("google source fetched", "calendar", g.calendarID, "events", len(events))
	return events, nil
}

func (g *Google) convert(item *calendar.Event) (model.Event, error) {
	ev := model.Event{
		ID:       item.Id,
		SourceID: "google:" + g.calendarID,
		Title:    item.Summary,
		Location: item.Location,
	}
	if ev.Title == "" {
		ev.Title = "(untitled)"
	}

	var err error
	ev.Start, ev.AllDay, err = g.parseTime(item.Start)
	if err != nil {
		return model.Event{}, fmt.Errorf("start: %w", err)
	}
	ev.End, _, err = g.parseTime(item.End)
	if err != nil {
		return model.Event{}, fmt.Errorf("end: %w", err)
	}

	return ev, nil
}

// parseTime handles the API's dual representation: DateTime for timed
// events, Date for all-day ones.
func (g *Google) parseTime(edt *calendar.EventDateTime) (time.Time, bool, error) {
	switch {
	case edt == nil:
		return time.Time{}, false, fmt.Errorf("missing time")
	case edt.DateTime != "":
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, false, err
		}
		return t.In(g.loc), false, nil
	case edt.Date != "":
		t, err := time.ParseInLocation("2006-01-02", edt.Date, g.loc)
		if err != nil {
			return time.Time{}, false, err
		}
		return t, true, nil
	default:
		return time.Time{}, false, fmt.Errorf("missing time")
	}
}
