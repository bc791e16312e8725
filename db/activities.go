// ABOUTME: Activity database operations for emails, calls, meetings, notes and calendar events
// ABOUTME: Supports idempotent upserts of imported calendar events by external id
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/models"
)

const activityColumns = `id, tenant_id, type, title, description, timestamp, end_at, associations,
	external_id, source, created_by, created_at`

func CreateActivity(db *sql.DB, activity *models.Activity) error {
	if err := checkTenant(activity.TenantID); err != nil {
		return err
	}
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	activity.CreatedAt = time.Now()
	if activity.Timestamp.IsZero() {
		activity.Timestamp = activity.CreatedAt
	}

	assoc, err := toJSON(activity.Associations)
	if err != nil {
		return fmt.Errorf("failed to encode associations: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO activities (`+activityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, activity.ID.String(), activity.TenantID, activity.Type, activity.Title, activity.Description,
		activity.Timestamp, activity.EndAt, assoc, nullString(activity.ExternalID), activity.Source,
		activity.CreatedBy, activity.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// UpsertActivityByExternalID inserts the activity or updates the row already
// imported from the same source and external id. It reports whether a new
// row was created.
func UpsertActivityByExternalID(db *sql.DB, activity *models.Activity) (bool, error) {
	if err := checkTenant(activity.TenantID); err != nil {
		return false, err
	}
	if activity.ExternalID == "" {
		return false, fmt.Errorf("external id is required for upsert")
	}

	existing, err := GetActivityByExternalID(db, activity.TenantID, activity.Source, activity.ExternalID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return true, CreateActivity(db, activity)
	}

	activity.ID = existing.ID
	activity.CreatedAt = existing.CreatedAt
	assoc, err := toJSON(activity.Associations)
	if err != nil {
		return false, fmt.Errorf("failed to encode associations: %w", err)
	}
	_, err = db.Exec(`
		UPDATE activities
		SET type = ?, title = ?, description = ?, timestamp = ?, end_at = ?, associations = ?, created_by = ?
		WHERE tenant_id = ? AND id = ?
	`, activity.Type, activity.Title, activity.Description, activity.Timestamp, activity.EndAt, assoc,
		activity.CreatedBy, activity.TenantID, activity.ID.String())
	if err != nil {
		return false, fmt.Errorf("failed to update activity: %w", err)
	}
	return false, nil
}

func scanActivity(row rowScanner) (*models.Activity, error) {
	var a models.Activity
	var description, assoc, externalID, source, createdBy sql.NullString
	var endAt sql.NullTime

	err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.Type,
		&a.Title,
		&description,
		&a.Timestamp,
		&endAt,
		&assoc,
		&externalID,
		&source,
		&createdBy,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Description = description.String
	a.ExternalID = externalID.String
	a.Source = source.String
	a.CreatedBy = createdBy.String
	a.EndAt = timePtr(endAt)
	if err := fromJSON(assoc, &a.Associations); err != nil {
		return nil, fmt.Errorf("activity %s: bad associations: %w", a.ID, err)
	}
	return &a, nil
}

// GetActivityByExternalID returns nil, nil when nothing was imported under that id.
func GetActivityByExternalID(db *sql.DB, tenantID, source, externalID string) (*models.Activity, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}
	a, err := scanActivity(db.QueryRow(`
		SELECT `+activityColumns+`
		FROM activities WHERE tenant_id = ? AND source = ? AND external_id = ?
	`, tenantID, source, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

// DeleteActivityByExternalID removes an imported activity, e.g. a cancelled event.
func DeleteActivityByExternalID(db *sql.DB, tenantID, source, externalID string) error {
	if err := checkTenant(tenantID); err != nil {
		return err
	}
	_, err := db.Exec(`DELETE FROM activities WHERE tenant_id = ? AND source = ? AND external_id = ?`,
		tenantID, source, externalID)
	if err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	return nil
}

// ListActivities returns activities newest first. Empty activityType matches
// every type and a zero since matches all time.
func ListActivities(db *sql.DB, tenantID, activityType string, since time.Time) ([]models.Activity, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT `+activityColumns+`
		FROM activities
		WHERE tenant_id = ? AND (? = '' OR type = ?)
		ORDER BY timestamp DESC
	`, tenantID, activityType, activityType)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var activities []models.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if !since.IsZero() && a.Timestamp.Before(since) {
			continue
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

// CountActivities counts activities linked to ref since the given time.
func CountActivities(db *sql.DB, tenantID string, ref models.RelatedRef, activityType string, since time.Time) (int, error) {
	activities, err := ListActivities(db, tenantID, activityType, since)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, a := range activities {
		if activityLinksTo(a, ref) {
			count++
		}
	}
	return count, nil
}

func activityLinksTo(a models.Activity, ref models.RelatedRef) bool {
	var refs []models.Ref
	switch ref.Kind {
	case "deal":
		refs = a.Associations.Deals
	case "company":
		refs = a.Associations.Companies
	case "contact":
		refs = a.Associations.Contacts
	default:
		return false
	}
	return containsID(models.CanonicalIDs(refs), ref.ID)
}
