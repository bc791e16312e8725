// ABOUTME: Calendar MCP tool handler
// ABOUTME: Returns the merged appointment, synced-activity and Google view for a day or month
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/hirepipe/calendar"
	"github.com/harperreed/hirepipe/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type CalendarHandlers struct {
	env *Env
}

func NewCalendarHandlers(env *Env) *CalendarHandlers {
	return &CalendarHandlers{env: env}
}

type ListEventsInput struct {
	View string `json:"view,omitempty" validate:"omitempty,oneof=month day" jsonschema:"Calendar view: month (default) or day"`
	Date string `json:"date,omitempty" jsonschema:"Anchor date in ISO 8601 format (default today)"`
	Mine bool   `json:"mine,omitempty" jsonschema:"Only appointments assigned to the current user"`
}

type EventOutput struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	AllDay      bool   `json:"all_day,omitempty"`
	Type        string `json:"type"`
	Color       string `json:"color"`
	RelatedKind string `json:"related_kind,omitempty"`
	RelatedID   string `json:"related_id,omitempty"`
}

type ListEventsOutput struct {
	View   string         `json:"view"`
	Start  string         `json:"start"`
	End    string         `json:"end"`
	Events []EventOutput  `json:"events"`
	Counts map[string]int `json:"counts_by_type"`
}

func (h *CalendarHandlers) ListCalendarEvents(ctx context.Context, request *mcp.CallToolRequest, input ListEventsInput) (*mcp.CallToolResult, ListEventsOutput, error) {
	if err := checkInput(input); err != nil {
		return nil, ListEventsOutput{}, err
	}
	view, err := calendar.ParseView(input.View)
	if err != nil {
		return nil, ListEventsOutput{}, err
	}
	anchor := h.env.now()
	if input.Date != "" {
		t, err := ParseTime("date", input.Date)
		if err != nil {
			return nil, ListEventsOutput{}, err
		}
		anchor = *t
	}

	start, end := calendar.Range(view, anchor)
	userID := ""
	if input.Mine {
		userID = h.env.UserID
	}
	sources := calendar.StandardSources(h.env.DB, h.env.TenantID, userID, h.env.Google,
		calendar.FixedWindow(start, end), h.env.logger())

	events, err := calendar.Snapshot(ctx, h.env.logger(), sources...)
	if err != nil {
		return nil, ListEventsOutput{}, fmt.Errorf("failed to load calendar: %w", err)
	}
	events = calendar.InRange(events, start, end)

	out := ListEventsOutput{
		View:   string(view),
		Start:  start.Format(time.RFC3339),
		End:    end.Format(time.RFC3339),
		Events: make([]EventOutput, len(events)),
		Counts: make(map[string]int),
	}
	for i, ev := range events {
		out.Counts[ev.Type]++
		out.Events[i] = EventToOutput(ev)
	}
	return nil, out, nil
}

// EventToOutput flattens an event with RFC 3339 times.
func EventToOutput(ev models.CalendarEvent) EventOutput {
	out := EventOutput{
		ID:     ev.ID,
		Title:  ev.Title,
		Start:  ev.Start.Format(time.RFC3339),
		End:    ev.End.Format(time.RFC3339),
		AllDay: ev.AllDay,
		Type:   ev.Type,
		Color:  ev.Color,
	}
	if ev.RelatedTo != nil {
		out.RelatedKind = ev.RelatedTo.Kind
		out.RelatedID = ev.RelatedTo.ID
	}
	return out
}
