// ABOUTME: Imports Google Calendar events as calendar_event activities
// ABOUTME: Handles pagination, sync tokens with 410 fallback, and cancelled events
package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/logging"
	"github.com/harperreed/hirepipe/models"
)

const calendarService = "calendar"

// initialWindow is how far back a full sync reaches.
var initialWindow = -6 * 30 * 24 * time.Hour

// ImportResult summarises one import run.
type ImportResult struct {
	Fetched     int
	Created     int
	Updated     int
	Deleted     int
	Skipped     map[string]int
	Incremental bool
	FellBack    bool
}

// Importer writes Google events into a tenant's activities.
type Importer struct {
	DB       *sql.DB
	TenantID string
	API      EventsAPI
	Logger   *zap.Logger
	Now      func() time.Time
}

// shouldSkipEvent reports whether an event is not worth importing.
func shouldSkipEvent(event *calendar.Event) (bool, string) {
	if event == nil {
		return true, "nil event"
	}
	if event.Start == nil {
		return true, "missing start time"
	}
	for _, attendee := range event.Attendees {
		if attendee.Self && attendee.ResponseStatus == "declined" {
			return true, "declined"
		}
	}
	return false, ""
}

func (im *Importer) now() time.Time {
	if im.Now != nil {
		return im.Now()
	}
	return time.Now()
}

// Import runs a full sync when initial is set or no token is stored, and an
// incremental sync otherwise. An expired token (410) falls back to a full
// sync from the last successful run.
func (im *Importer) Import(ctx context.Context, initial bool) (*ImportResult, error) {
	log := logging.OrNop(im.Logger).With(zap.String("tenant", im.TenantID))

	if err := db.UpdateSyncStatus(im.DB, im.TenantID, calendarService, models.SyncStatusSyncing, nil); err != nil {
		return nil, fmt.Errorf("failed to update sync status: %w", err)
	}

	result, err := im.run(ctx, initial, log)
	if err != nil {
		msg := err.Error()
		_ = db.UpdateSyncStatus(im.DB, im.TenantID, calendarService, models.SyncStatusError, &msg)
		return result, err
	}
	return result, nil
}

func (im *Importer) run(ctx context.Context, initial bool, log *zap.Logger) (*ImportResult, error) {
	state, err := db.GetSyncState(im.DB, im.TenantID, calendarService)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	contacts, err := db.ListContacts(im.DB, im.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}
	matcher := NewContactMatcher(contacts)

	result := &ImportResult{Skipped: make(map[string]int)}
	opts := ListOptions{TimeMin: im.now().Add(initialWindow)}
	if !initial && state != nil && state.LastSyncToken != nil {
		opts = ListOptions{SyncToken: *state.LastSyncToken}
		result.Incremental = true
	}

	for {
		page, err := im.API.ListPage(ctx, opts)
		if err != nil {
			if !isGone(err) || opts.SyncToken == "" {
				return result, fmt.Errorf("failed to fetch calendar events: %w", err)
			}
			log.Info("calendar sync token expired, falling back to time-based sync")
			if err := db.ClearSyncToken(im.DB, im.TenantID, calendarService); err != nil {
				return result, err
			}
			fallback := im.now().Add(initialWindow)
			if state != nil && state.LastSyncTime != nil {
				fallback = *state.LastSyncTime
			}
			opts = ListOptions{TimeMin: fallback}
			result.FellBack = true
			result.Incremental = false
			continue
		}

		result.Fetched += len(page.Items)
		for _, event := range page.Items {
			if err := im.apply(event, matcher, result); err != nil {
				return result, err
			}
		}

		if page.NextPageToken == "" {
			if page.NextSyncToken != "" {
				if err := db.UpdateSyncToken(im.DB, im.TenantID, calendarService, page.NextSyncToken); err != nil {
					return result, fmt.Errorf("failed to update sync token: %w", err)
				}
			} else if err := db.UpdateSyncStatus(im.DB, im.TenantID, calendarService, models.SyncStatusIdle, nil); err != nil {
				return result, fmt.Errorf("failed to update sync status: %w", err)
			}
			break
		}
		opts.PageToken = page.NextPageToken
	}

	log.Info("calendar import finished",
		zap.Int("fetched", result.Fetched),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted),
		zap.Bool("incremental", result.Incremental))
	return result, nil
}

func (im *Importer) apply(event *calendar.Event, matcher *ContactMatcher, result *ImportResult) error {
	if event != nil && event.Status == "cancelled" {
		if err := db.DeleteActivityByExternalID(im.DB, im.TenantID, SourceGoogleCalendar, event.Id); err != nil {
			return err
		}
		result.Deleted++
		return nil
	}
	if skip, reason := shouldSkipEvent(event); skip {
		result.Skipped[reason]++
		return nil
	}

	start, end, _, err := eventTimes(event)
	if err != nil {
		result.Skipped["unparseable time"]++
		return nil
	}

	emails := make([]string, 0, len(event.Attendees))
	for _, a := range event.Attendees {
		if !a.Self {
			emails = append(emails, a.Email)
		}
	}

	matched := matcher.Match(emails)

	title := event.Summary
	if title == "" {
		title = "(no title)"
	}
	activity := &models.Activity{
		TenantID:     im.TenantID,
		Type:         models.ActivityCalendarEvent,
		Title:        title,
		Description:  event.Description,
		Timestamp:    start,
		EndAt:        &end,
		Associations: AssociationsFor(matched),
		ExternalID:   event.Id,
		Source:       SourceGoogleCalendar,
	}
	created, err := db.UpsertActivityByExternalID(im.DB, activity)
	if err != nil {
		return err
	}
	if created {
		result.Created++
	} else {
		result.Updated++
	}

	if start.Before(im.now()) {
		for _, c := range matched {
			if c.LastContactedAt != nil && !start.After(*c.LastContactedAt) {
				continue
			}
			if err := db.TouchContact(im.DB, im.TenantID, c.ID, start); err != nil {
				return err
			}
			touched := start
			c.LastContactedAt = &touched
		}
	}
	return nil
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusGone
}

// ImportCalendar runs one import against a live Calendar service.
func ImportCalendar(ctx context.Context, database *sql.DB, tenantID string, svc *calendar.Service, initial bool, logger *zap.Logger) (*ImportResult, error) {
	im := &Importer{DB: database, TenantID: tenantID, API: &ServiceAPI{Service: svc}, Logger: logger}
	return im.Import(ctx, initial)
}
