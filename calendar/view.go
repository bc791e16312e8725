// ABOUTME: Calendar view ranges and per-type event colours
// ABOUTME: Month and day windows anchored in the caller's location
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/hirepipe/models"
)

// View is the calendar granularity.
type View string

const (
	ViewMonth View = "month"
	ViewDay   View = "day"
)

// ParseView accepts "month" or "day"; empty means month.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case "", ViewMonth:
		return ViewMonth, nil
	case ViewDay:
		return ViewDay, nil
	default:
		return "", fmt.Errorf("unknown calendar view %q (want month or day)", s)
	}
}

// Range returns the half-open window [start, end) that view covers around anchor.
func Range(view View, anchor time.Time) (time.Time, time.Time) {
	loc := anchor.Location()
	switch view {
	case ViewDay:
		start := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 0, 1)
	default:
		start := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0)
	}
}

// InRange keeps events that overlap [start, end).
func InRange(events []models.CalendarEvent, start, end time.Time) []models.CalendarEvent {
	var out []models.CalendarEvent
	for _, ev := range events {
		evEnd := ev.End
		if evEnd.IsZero() {
			evEnd = ev.Start
		}
		if ev.Start.Before(end) && (evEnd.After(start) || !ev.Start.Before(start)) {
			out = append(out, ev)
		}
	}
	return out
}

var colors = map[string]string{
	models.EventCRMAppointment: "#1e88e5",
	models.EventGoogleCalendar: "#43a047",
	models.EventSyncedActivity: "#8e24aa",
}

// ColorFor returns the display colour for an event type.
func ColorFor(eventType string) string {
	if c, ok := colors[eventType]; ok {
		return c
	}
	return "#757575"
}
