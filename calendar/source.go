// ABOUTME: Calendar event sources: CRM appointment tasks, synced activities, Google Calendar
// ABOUTME: Polling sources emit only when their snapshot changes
package calendar

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/logging"
	"github.com/harperreed/hirepipe/models"
	"go.uber.org/zap"
)

// DefaultPollInterval is how often database-backed sources re-read.
const DefaultPollInterval = 5 * time.Second

// Source produces snapshots of one event type. Subscribe blocks until ctx
// is done, calling emit with the full current snapshot each time it changes.
type Source interface {
	Type() string
	Subscribe(ctx context.Context, emit func([]models.CalendarEvent)) error
}

// WindowFunc returns the time range a source should cover right now.
type WindowFunc func() (time.Time, time.Time)

// FixedWindow always returns the same range.
func FixedWindow(from, to time.Time) WindowFunc {
	return func() (time.Time, time.Time) { return from, to }
}

// TaskSource polls appointment-classified tasks.
type TaskSource struct {
	DB       *sql.DB
	TenantID string
	// UserID, when set, keeps only tasks assigned to or associated with the user.
	UserID   string
	Window   WindowFunc
	Interval time.Duration
	Logger   *zap.Logger
}

func (s *TaskSource) Type() string { return models.EventCRMAppointment }

func (s *TaskSource) Subscribe(ctx context.Context, emit func([]models.CalendarEvent)) error {
	return poll(ctx, s.Interval, logging.OrNop(s.Logger).With(zap.String("source", s.Type())), s.Fetch, emit)
}

// Fetch reads the current appointment snapshot.
func (s *TaskSource) Fetch(ctx context.Context) ([]models.CalendarEvent, error) {
	var from, to time.Time
	if s.Window != nil {
		from, to = s.Window()
	}
	tasks, err := db.ListAppointmentTasks(s.DB, s.TenantID, from, to)
	if err != nil {
		return nil, err
	}

	events := make([]models.CalendarEvent, 0, len(tasks))
	for _, t := range tasks {
		if s.UserID != "" && t.AssigneeID != s.UserID && !containsRef(t.Associations.Salespeople, s.UserID) {
			continue
		}
		if ev, ok := TaskEvent(t); ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

// TaskEvent converts an appointment task to a calendar event.
func TaskEvent(t models.Task) (models.CalendarEvent, bool) {
	start, end, ok := t.Window()
	if !ok {
		return models.CalendarEvent{}, false
	}
	return models.CalendarEvent{
		ID:        "task:" + t.ID.String(),
		Title:     t.Title,
		Start:     start,
		End:       end,
		Type:      models.EventCRMAppointment,
		Color:     ColorFor(models.EventCRMAppointment),
		RelatedTo: relatedTo(t.Associations),
	}, true
}

// ActivitySource polls calendar_event activities synced from Google.
type ActivitySource struct {
	DB       *sql.DB
	TenantID string
	Window   WindowFunc
	Interval time.Duration
	Logger   *zap.Logger
}

func (s *ActivitySource) Type() string { return models.EventSyncedActivity }

func (s *ActivitySource) Subscribe(ctx context.Context, emit func([]models.CalendarEvent)) error {
	return poll(ctx, s.Interval, logging.OrNop(s.Logger).With(zap.String("source", s.Type())), s.Fetch, emit)
}

// Fetch reads the current synced-activity snapshot.
func (s *ActivitySource) Fetch(ctx context.Context) ([]models.CalendarEvent, error) {
	var from, to time.Time
	if s.Window != nil {
		from, to = s.Window()
	}
	activities, err := db.ListActivities(s.DB, s.TenantID, models.ActivityCalendarEvent, from)
	if err != nil {
		return nil, err
	}

	events := make([]models.CalendarEvent, 0, len(activities))
	for _, a := range activities {
		if !to.IsZero() && !a.Timestamp.Before(to) {
			continue
		}
		events = append(events, ActivityEvent(a))
	}
	return events, nil
}

// ActivityEvent converts a synced activity to a calendar event.
func ActivityEvent(a models.Activity) models.CalendarEvent {
	end := a.Timestamp.Add(time.Hour)
	if a.EndAt != nil && a.EndAt.After(a.Timestamp) {
		end = *a.EndAt
	}
	return models.CalendarEvent{
		ID:        "activity:" + a.ID.String(),
		Title:     a.Title,
		Start:     a.Timestamp,
		End:       end,
		Type:      models.EventSyncedActivity,
		Color:     ColorFor(models.EventSyncedActivity),
		RelatedTo: relatedTo(a.Associations),
	}
}

// EventLister lists live Google Calendar events in a range.
type EventLister func(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error)

// GoogleSource lists events once. Failures are logged and leave the
// merged view without Google events.
type GoogleSource struct {
	List   EventLister
	Window WindowFunc
	Logger *zap.Logger
}

func (s *GoogleSource) Type() string { return models.EventGoogleCalendar }

func (s *GoogleSource) Subscribe(ctx context.Context, emit func([]models.CalendarEvent)) error {
	if s.List != nil {
		events, err := s.Fetch(ctx)
		if err != nil {
			logging.OrNop(s.Logger).Warn("google calendar unavailable", zap.Error(err))
		} else {
			emit(events)
		}
	}
	<-ctx.Done()
	return nil
}

// Fetch lists the events in the current window.
func (s *GoogleSource) Fetch(ctx context.Context) ([]models.CalendarEvent, error) {
	if s.List == nil {
		return nil, nil
	}
	var from, to time.Time
	if s.Window != nil {
		from, to = s.Window()
	}
	return s.List(ctx, from, to)
}

func poll(ctx context.Context, interval time.Duration, log *zap.Logger,
	fetch func(context.Context) ([]models.CalendarEvent, error), emit func([]models.CalendarEvent)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	log = logging.OrNop(log)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last string
	first := true
	for {
		events, err := fetch(ctx)
		switch {
		case err != nil:
			log.Warn("calendar source poll failed", zap.Error(err))
		case first || fingerprint(events) != last:
			last = fingerprint(events)
			first = false
			emit(events)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func fingerprint(events []models.CalendarEvent) string {
	var b strings.Builder
	for _, ev := range events {
		fmt.Fprintf(&b, "%s|%s|%d|%d|%t\n", ev.ID, ev.Title, ev.Start.UnixNano(), ev.End.UnixNano(), ev.AllDay)
	}
	return b.String()
}

func relatedTo(a models.Associations) *models.RelatedRef {
	for _, candidate := range []struct {
		kind string
		refs []models.Ref
	}{
		{"deal", a.Deals},
		{"company", a.Companies},
		{"contact", a.Contacts},
	} {
		if ids := models.CanonicalIDs(candidate.refs); len(ids) > 0 {
			return &models.RelatedRef{Kind: candidate.kind, ID: ids[0]}
		}
	}
	return nil
}

func containsRef(refs []models.Ref, id string) bool {
	for _, r := range refs {
		if r.Key() == id {
			return true
		}
	}
	return false
}
