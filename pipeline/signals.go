// ABOUTME: Recomputes a deal's seven-day activity and email counts from logged activities
// ABOUTME: Persists the counts so the scorer's bonus tiers can see them
package pipeline

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
)

// SignalWindow is how far back activity signals look.
const SignalWindow = 7 * 24 * time.Hour

// RefreshSignals counts the activities linked to deal inside SignalWindow,
// stores them on the deal row and returns the updated deal.
func RefreshSignals(conn *sql.DB, deal models.Deal, now time.Time) (models.Deal, error) {
	since := now.Add(-SignalWindow)
	dealID := deal.ID.String()

	activities, err := db.ListActivities(conn, deal.TenantID, "", since)
	if err != nil {
		return deal, fmt.Errorf("failed to count activities: %w", err)
	}

	total, emails := 0, 0
	var last *time.Time
	for i := range activities {
		a := activities[i]
		if !linksToDeal(a, dealID) {
			continue
		}
		total++
		if a.Type == models.ActivityEmail {
			emails++
		}
		if a.Timestamp.After(now) {
			continue
		}
		if last == nil || a.Timestamp.After(*last) {
			ts := a.Timestamp
			last = &ts
		}
	}
	if deal.LastActivityAt != nil && (last == nil || deal.LastActivityAt.After(*last)) {
		last = deal.LastActivityAt
	}

	if err := db.UpdateDealSignals(conn, deal.TenantID, deal.ID, total, emails, last); err != nil {
		return deal, err
	}
	deal.ActivityCount7d = &total
	deal.EmailCount7d = &emails
	deal.LastActivityAt = last
	return deal, nil
}

func linksToDeal(a models.Activity, dealID string) bool {
	for _, id := range models.CanonicalIDs(a.Associations.Deals) {
		if id == dealID {
			return true
		}
	}
	return false
}
