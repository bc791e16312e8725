// ABOUTME: Tests for the calendar MCP tool handler
// ABOUTME: Merges appointments, synced activities and Google events over a view window
package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
)

func TestListCalendarEventsMergesSources(t *testing.T) {
	env := setupEnv(t)
	inMonth := testNow.Add(48 * time.Hour)
	nextMonth := testNow.AddDate(0, 1, 0)

	for _, task := range []*models.Task{
		{TenantID: testTenant, Title: "Site walk", Classification: "appointment", StartAt: &inMonth, AssigneeID: testUser},
		{TenantID: testTenant, Title: "Later", Classification: "appointment", StartAt: &nextMonth, AssigneeID: testUser},
	} {
		if err := db.CreateTask(env.DB, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}
	synced := &models.Activity{TenantID: testTenant, Type: models.ActivityCalendarEvent, Title: "Kickoff", Timestamp: testNow.Add(-24 * time.Hour)}
	if err := db.CreateActivity(env.DB, synced); err != nil {
		t.Fatalf("CreateActivity failed: %v", err)
	}
	env.Google = func(_ context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
		return []models.CalendarEvent{{ID: "google:1", Title: "Dentist", Start: testNow, End: testNow.Add(time.Hour)}}, nil
	}

	handler := NewCalendarHandlers(env)
	_, out, err := handler.ListCalendarEvents(context.Background(), nil, ListEventsInput{})
	if err != nil {
		t.Fatalf("ListCalendarEvents failed: %v", err)
	}
	if out.View != "month" {
		t.Errorf("expected month view, got %s", out.View)
	}
	if len(out.Events) != 3 {
		t.Fatalf("expected 3 events, got %+v", out.Events)
	}
	want := []string{"Kickoff", "Dentist", "Site walk"}
	for i, title := range want {
		if out.Events[i].Title != title {
			t.Errorf("event %d: expected %s, got %s", i, title, out.Events[i].Title)
		}
	}
	for _, typ := range []string{models.EventCRMAppointment, models.EventSyncedActivity, models.EventGoogleCalendar} {
		if out.Counts[typ] != 1 {
			t.Errorf("expected one %s event, got %d", typ, out.Counts[typ])
		}
	}
}

func TestListCalendarEventsDayViewWithoutGoogle(t *testing.T) {
	env := setupEnv(t)
	env.Google = func(context.Context, time.Time, time.Time) ([]models.CalendarEvent, error) {
		return nil, errors.New("token expired")
	}
	at := testNow.Add(2 * time.Hour)
	if err := db.CreateTask(env.DB, &models.Task{TenantID: testTenant, Title: "Interview", Classification: "appointment", StartAt: &at}); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	handler := NewCalendarHandlers(env)
	_, out, err := handler.ListCalendarEvents(context.Background(), nil, ListEventsInput{View: "day", Date: "2025-05-14"})
	if err != nil {
		t.Fatalf("ListCalendarEvents failed: %v", err)
	}
	if len(out.Events) != 1 || out.Events[0].Title != "Interview" {
		t.Errorf("expected only the interview, got %+v", out.Events)
	}

	if _, _, err := handler.ListCalendarEvents(context.Background(), nil, ListEventsInput{View: "week"}); err == nil {
		t.Error("expected error for unsupported view")
	}
}
