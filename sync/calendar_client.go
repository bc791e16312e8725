// ABOUTME: Calendar API client setup and the narrow events API the importer uses
// ABOUTME: Creates an authenticated Calendar service from an OAuth token
package sync

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const maxResults = 250 // Google Calendar API max per page

// ListOptions selects one page of primary-calendar events.
type ListOptions struct {
	SyncToken string
	TimeMin   time.Time
	TimeMax   time.Time
	PageToken string
}

// EventsAPI is the part of the Calendar API used here.
type EventsAPI interface {
	ListPage(ctx context.Context, opts ListOptions) (*calendar.Events, error)
}

// ServiceAPI adapts a *calendar.Service to EventsAPI.
type ServiceAPI struct {
	Service    *calendar.Service
	CalendarID string
}

func (s *ServiceAPI) ListPage(ctx context.Context, opts ListOptions) (*calendar.Events, error) {
	id := s.CalendarID
	if id == "" {
		id = "primary"
	}
	call := s.Service.Events.List(id).
		Context(ctx).
		MaxResults(maxResults).
		SingleEvents(true)

	if opts.SyncToken != "" {
		// Google rejects ordering and time bounds alongside a sync token.
		call = call.SyncToken(opts.SyncToken)
	} else {
		call = call.OrderBy("startTime").ShowDeleted(true)
		if !opts.TimeMin.IsZero() {
			call = call.TimeMin(opts.TimeMin.Format(time.RFC3339))
		}
		if !opts.TimeMax.IsZero() {
			call = call.TimeMax(opts.TimeMax.Format(time.RFC3339))
		}
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}
	return call.Do()
}

// NewCalendarClient creates a Google Calendar API service from an OAuth token.
func NewCalendarClient(ctx context.Context, token *oauth2.Token) (*calendar.Service, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}

	client := NewOAuthConfig().Client(ctx, token)

	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return service, nil
}
