package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotMergesSourcesAndDropsFailures(t *testing.T) {
	conn := setupDB(t)
	start := time.Date(2025, 4, 2, 15, 0, 0, 0, time.UTC)

	task := &models.Task{TenantID: "t1", Title: "Site visit", Classification: "appointment", StartAt: &start}
	require.NoError(t, db.CreateTask(conn, task))
	synced := &models.Activity{TenantID: "t1", Type: models.ActivityCalendarEvent, Title: "Intro call", Timestamp: start.Add(-time.Hour)}
	require.NoError(t, db.CreateActivity(conn, synced))

	from, to := Range(ViewMonth, start)
	failing := func(context.Context, time.Time, time.Time) ([]models.CalendarEvent, error) {
		return nil, errors.New("invalid token")
	}
	sources := StandardSources(conn, "t1", "", failing, FixedWindow(from, to), nil)
	require.Len(t, sources, 3)

	events, err := Snapshot(context.Background(), nil, sources...)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Intro call", events[0].Title)
	assert.Equal(t, models.EventSyncedActivity, events[0].Type)
	assert.Equal(t, "Site visit", events[1].Title)
	assert.Equal(t, models.EventCRMAppointment, events[1].Type)
}

func TestSnapshotIncludesGoogleEvents(t *testing.T) {
	conn := setupDB(t)
	start := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
	google := func(_ context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
		assert.True(t, from.Before(to))
		return []models.CalendarEvent{{ID: "google:abc", Title: "Standup", Start: start, End: start.Add(15 * time.Minute)}}, nil
	}

	events, err := Snapshot(context.Background(), nil, StandardSources(conn, "t1", "", google, FixedWindow(Range(ViewDay, start)), nil)...)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventGoogleCalendar, events[0].Type)
	assert.Equal(t, ColorFor(models.EventGoogleCalendar), events[0].Color)
}
