// ABOUTME: Tests for calendar merging and the aggregator
// ABOUTME: Checks ordering, per-source replacement and subscriber fan-out
package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func ev(id string, hour int) models.CalendarEvent {
	start := base.Add(time.Duration(hour) * time.Hour)
	return models.CalendarEvent{ID: id, Title: id, Start: start, End: start.Add(time.Hour)}
}

func ids(events []models.CalendarEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestMergerReplacesOnlyOwnSource(t *testing.T) {
	m := NewMerger()
	m.Apply(models.EventGoogleCalendar, []models.CalendarEvent{ev("g1", 1), ev("g2", 3)})
	m.Apply(models.EventCRMAppointment, []models.CalendarEvent{ev("a1", 2)})

	m.Apply(models.EventCRMAppointment, []models.CalendarEvent{ev("a2", 0), ev("a3", 4)})

	got := m.Events()
	if diff := cmp.Diff([]string{"a2", "g1", "g2", "a3"}, ids(got)); diff != "" {
		t.Errorf("merged order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, m.Count(models.EventGoogleCalendar))
	for _, e := range got {
		if e.ID[0] == 'g' {
			assert.Equal(t, models.EventGoogleCalendar, e.Type)
			assert.Equal(t, ColorFor(models.EventGoogleCalendar), e.Color)
		} else {
			assert.Equal(t, models.EventCRMAppointment, e.Type)
		}
	}

	m.Apply(models.EventCRMAppointment, nil)
	assert.Equal(t, []string{"g1", "g2"}, ids(m.Events()))
}

func TestMergerKeepsCrossSourceDuplicates(t *testing.T) {
	m := NewMerger()
	m.Apply(models.EventGoogleCalendar, []models.CalendarEvent{ev("same", 1)})
	m.Apply(models.EventSyncedActivity, []models.CalendarEvent{ev("same", 1)})

	assert.Len(t, m.Events(), 2)
}

func TestRangeAndParseView(t *testing.T) {
	anchor := time.Date(2025, 2, 14, 15, 30, 0, 0, time.UTC)

	start, end := Range(ViewMonth, anchor)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), end)

	start, end = Range(ViewDay, anchor)
	assert.Equal(t, time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), end)

	v, err := ParseView("")
	require.NoError(t, err)
	assert.Equal(t, ViewMonth, v)
	v, err = ParseView("Day")
	require.NoError(t, err)
	assert.Equal(t, ViewDay, v)
	_, err = ParseView("week")
	assert.Error(t, err)
}

func TestInRange(t *testing.T) {
	events := []models.CalendarEvent{ev("before", -3), ev("inside", 1), ev("after", 30)}
	start := base
	end := base.Add(24 * time.Hour)

	assert.Equal(t, []string{"inside"}, ids(InRange(events, start, end)))
}

type scriptedSource struct {
	typ       string
	snapshots chan []models.CalendarEvent
	err       error
}

func (s *scriptedSource) Type() string { return s.typ }

func (s *scriptedSource) Subscribe(ctx context.Context, emit func([]models.CalendarEvent)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evs, ok := <-s.snapshots:
			if !ok {
				return s.err
			}
			emit(evs)
		}
	}
}

func waitFor(t *testing.T, ch <-chan []models.CalendarEvent, want []string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case view, ok := <-ch:
			require.True(t, ok, "subscription closed before expected view %v", want)
			if cmp.Equal(want, ids(view)) {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for view %v", want)
		}
	}
}

func TestAggregatorFansOutMergedView(t *testing.T) {
	tasks := &scriptedSource{typ: models.EventCRMAppointment, snapshots: make(chan []models.CalendarEvent)}
	google := &scriptedSource{typ: models.EventGoogleCalendar, snapshots: make(chan []models.CalendarEvent)}
	agg := NewAggregator(nil, tasks, google)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- agg.Run(ctx) }()

	sub, unsubscribe := agg.Subscribe()
	defer unsubscribe()

	google.snapshots <- []models.CalendarEvent{ev("g1", 1)}
	waitFor(t, sub, []string{"g1"})

	tasks.snapshots <- []models.CalendarEvent{ev("a1", 0)}
	waitFor(t, sub, []string{"a1", "g1"})

	tasks.snapshots <- []models.CalendarEvent{ev("a2", 2)}
	waitFor(t, sub, []string{"g1", "a2"})

	cancel()
	require.NoError(t, <-done)

	_, open := <-sub
	for open {
		_, open = <-sub
	}
}

func TestAggregatorSourceFailureStopsRun(t *testing.T) {
	failing := &scriptedSource{typ: models.EventSyncedActivity, snapshots: make(chan []models.CalendarEvent), err: errors.New("listener dropped")}
	healthy := &scriptedSource{typ: models.EventCRMAppointment, snapshots: make(chan []models.CalendarEvent)}
	agg := NewAggregator(nil, failing, healthy)

	close(failing.snapshots)
	err := agg.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listener dropped")

	assert.ErrorIs(t, agg.Run(context.Background()), ErrClosed)

	sub, cancel := agg.Subscribe()
	defer cancel()
	_, ok := <-sub
	assert.False(t, ok)
}

func TestSlowSubscriberSeesLatestOnly(t *testing.T) {
	agg := NewAggregator(nil)
	sub, cancel := agg.Subscribe()
	defer cancel()

	// Initial empty view is buffered; further broadcasts replace it.
	agg.merger.Apply(models.EventCRMAppointment, []models.CalendarEvent{ev("a1", 0)})
	agg.broadcast()
	agg.merger.Apply(models.EventCRMAppointment, []models.CalendarEvent{ev("a2", 0)})
	agg.broadcast()

	view := <-sub
	assert.Equal(t, []string{"a2"}, ids(view))
	select {
	case extra := <-sub:
		t.Fatalf("expected a single buffered view, got another: %v", ids(extra))
	default:
	}
}

func TestConcurrentBroadcastsEndOnLatestView(t *testing.T) {
	const sources = 8
	for round := 0; round < 200; round++ {
		agg := NewAggregator(nil)
		sub, cancel := agg.Subscribe()

		var wg sync.WaitGroup
		for i := 0; i < sources; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				agg.merger.Apply(fmt.Sprintf("source-%d", i), []models.CalendarEvent{ev(fmt.Sprintf("e%d", i), i)})
				agg.broadcast()
			}(i)
		}
		wg.Wait()

		view := <-sub
		require.Len(t, view, sources, "round %d delivered a stale view", round)
		cancel()
	}
}

func TestPollEmitsOnlyOnChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	responses := [][]models.CalendarEvent{
		{ev("a", 0)},
		{ev("a", 0)},
		{ev("a", 0), ev("b", 1)},
		{ev("a", 0), ev("b", 1)},
		{ev("b", 1)},
	}
	calls := 0
	fetch := func(context.Context) ([]models.CalendarEvent, error) {
		i := calls
		if i >= len(responses)-1 {
			i = len(responses) - 1
			cancel()
		}
		calls++
		return responses[i], nil
	}

	var emitted [][]string
	err := poll(ctx, time.Millisecond, nil, fetch, func(evs []models.CalendarEvent) {
		emitted = append(emitted, ids(evs))
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"a", "b"}, {"b"}}, emitted)
}

func TestGoogleSourceSwallowsErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &GoogleSource{List: func(context.Context, time.Time, time.Time) ([]models.CalendarEvent, error) {
		cancel()
		return nil, errors.New("permission denied")
	}}

	emitted := false
	require.NoError(t, src.Subscribe(ctx, func([]models.CalendarEvent) { emitted = true }))
	assert.False(t, emitted)
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	require.NoError(t, db.InitSchema(conn))
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestTaskSourceFiltersToUser(t *testing.T) {
	conn := setupDB(t)
	start := time.Now().Add(time.Hour).Truncate(time.Second)

	mine := &models.Task{TenantID: "t1", Title: "Mine", Classification: "appointment", StartAt: &start, AssigneeID: "u1",
		Associations: models.Associations{Deals: []models.Ref{models.IDRef("d1")}}}
	shared := &models.Task{TenantID: "t1", Title: "Shared", Classification: "appointment", StartAt: &start,
		Associations: models.Associations{Salespeople: []models.Ref{{Kind: models.RefObject, ID: "u1"}}}}
	theirs := &models.Task{TenantID: "t1", Title: "Theirs", Classification: "appointment", StartAt: &start, AssigneeID: "u2"}
	for _, task := range []*models.Task{mine, shared, theirs} {
		require.NoError(t, db.CreateTask(conn, task))
	}

	src := &TaskSource{DB: conn, TenantID: "t1", UserID: "u1"}
	events, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, models.EventCRMAppointment, e.Type)
		if e.Title == "Mine" {
			assert.Equal(t, &models.RelatedRef{Kind: "deal", ID: "d1"}, e.RelatedTo)
			assert.True(t, e.End.Equal(e.Start.Add(time.Hour)))
		}
	}
}

func TestActivitySourceWindow(t *testing.T) {
	conn := setupDB(t)
	in := base.Add(2 * time.Hour)
	out := base.Add(40 * 24 * time.Hour)

	for _, a := range []*models.Activity{
		{TenantID: "t1", Type: models.ActivityCalendarEvent, Title: "In", Timestamp: in, ExternalID: "e1", Source: "google_calendar"},
		{TenantID: "t1", Type: models.ActivityCalendarEvent, Title: "Out", Timestamp: out, ExternalID: "e2", Source: "google_calendar"},
		{TenantID: "t1", Type: models.ActivityEmail, Title: "Email", Timestamp: in},
	} {
		require.NoError(t, db.CreateActivity(conn, a))
	}

	start, end := Range(ViewMonth, base)
	src := &ActivitySource{DB: conn, TenantID: "t1", Window: FixedWindow(start, end)}
	events, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "In", events[0].Title)
	assert.Equal(t, models.EventSyncedActivity, events[0].Type)
}
