// ABOUTME: Converts Google Calendar events into CRM calendar events and activities
// ABOUTME: Lists live events for the calendar aggregator
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/hirepipe/models"
	"google.golang.org/api/calendar/v3"
)

// SourceGoogleCalendar tags activities imported from Google.
const SourceGoogleCalendar = "google_calendar"

// eventTimes parses start and end. All-day events use their dates.
func eventTimes(ev *calendar.Event) (start, end time.Time, allDay bool, err error) {
	if ev == nil || ev.Start == nil {
		return start, end, false, fmt.Errorf("missing start time")
	}
	if ev.Start.Date != "" {
		start, err = time.Parse("2006-01-02", ev.Start.Date)
		if err != nil {
			return start, end, true, fmt.Errorf("invalid start date: %w", err)
		}
		end = start.AddDate(0, 0, 1)
		if ev.End != nil && ev.End.Date != "" {
			if e, perr := time.Parse("2006-01-02", ev.End.Date); perr == nil {
				end = e
			}
		}
		return start, end, true, nil
	}

	start, err = time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		return start, end, false, fmt.Errorf("invalid start time: %w", err)
	}
	end = start.Add(time.Hour)
	if ev.End != nil && ev.End.DateTime != "" {
		if e, perr := time.Parse(time.RFC3339, ev.End.DateTime); perr == nil && e.After(start) {
			end = e
		}
	}
	return start, end, false, nil
}

// ToCalendarEvent converts a live Google event.
func ToCalendarEvent(ev *calendar.Event) (models.CalendarEvent, bool) {
	if ev == nil || ev.Status == "cancelled" {
		return models.CalendarEvent{}, false
	}
	start, end, allDay, err := eventTimes(ev)
	if err != nil {
		return models.CalendarEvent{}, false
	}
	title := ev.Summary
	if title == "" {
		title = "(no title)"
	}
	return models.CalendarEvent{
		ID:     "google:" + ev.Id,
		Title:  title,
		Start:  start,
		End:    end,
		AllDay: allDay,
		Type:   models.EventGoogleCalendar,
	}, true
}

// ListEvents returns the primary calendar's events overlapping [from, to).
func ListEvents(ctx context.Context, api EventsAPI, from, to time.Time) ([]models.CalendarEvent, error) {
	opts := ListOptions{TimeMin: from, TimeMax: to}
	var out []models.CalendarEvent
	for {
		page, err := api.ListPage(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list calendar events: %w", err)
		}
		for _, ev := range page.Items {
			if ce, ok := ToCalendarEvent(ev); ok {
				out = append(out, ce)
			}
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		opts.PageToken = page.NextPageToken
	}
}

// Lister adapts ListEvents to the calendar package's EventLister shape.
func Lister(api EventsAPI) func(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	return func(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
		return ListEvents(ctx, api, from, to)
	}
}
