// ABOUTME: Deal database operations
// ABOUTME: Handles tenant-scoped deal lifecycle, stage changes, and activity signals
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/models"
)

const dealColumns = `id, tenant_id, name, stage, estimated_revenue, stage_data, associations, legacy_owners,
	probability, close_date, division_id, activity_count_7d, email_count_7d, last_activity_at, created_at, updated_at`

// DealFilter narrows FindDeals. Zero values match everything.
type DealFilter struct {
	Stage     string
	CompanyID string
	OwnerID   string
	Limit     int
}

func CreateDeal(db *sql.DB, deal *models.Deal) error {
	if err := checkTenant(deal.TenantID); err != nil {
		return err
	}
	if deal.ID == uuid.Nil {
		deal.ID = uuid.New()
	}
	now := time.Now()
	deal.CreatedAt = now
	deal.UpdatedAt = now

	args, err := dealArgs(deal)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO deals (id, tenant_id, name, stage, estimated_revenue, stage_data, associations, legacy_owners,
			probability, close_date, division_id, activity_count_7d, email_count_7d, last_activity_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, append([]interface{}{deal.ID.String(), deal.TenantID}, append(args, deal.CreatedAt, deal.UpdatedAt)...)...)
	if err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}
	return nil
}

// dealArgs returns the mutable columns from name through last_activity_at.
func dealArgs(d *models.Deal) ([]interface{}, error) {
	stageData, err := nullableJSON(d.StageData, d.StageData == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stage data: %w", err)
	}
	assoc, err := toJSON(d.Associations)
	if err != nil {
		return nil, fmt.Errorf("failed to encode associations: %w", err)
	}
	legacy, err := toJSON(d.LegacyOwners)
	if err != nil {
		return nil, fmt.Errorf("failed to encode legacy owners: %w", err)
	}
	return []interface{}{
		d.Name, d.Stage, d.EstimatedRevenue, stageData, assoc, legacy,
		d.Probability, d.CloseDate, nullString(d.DivisionID), d.ActivityCount7d, d.EmailCount7d, d.LastActivityAt,
	}, nil
}

func scanDeal(row rowScanner) (*models.Deal, error) {
	var d models.Deal
	var revenue, probability sql.NullFloat64
	var stageData, assoc, legacy, divisionID sql.NullString
	var closeDate, lastActivity sql.NullTime
	var activityCount, emailCount sql.NullInt64

	err := row.Scan(
		&d.ID,
		&d.TenantID,
		&d.Name,
		&d.Stage,
		&revenue,
		&stageData,
		&assoc,
		&legacy,
		&probability,
		&closeDate,
		&divisionID,
		&activityCount,
		&emailCount,
		&lastActivity,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if revenue.Valid {
		d.EstimatedRevenue = &revenue.Float64
	}
	if probability.Valid {
		d.Probability = &probability.Float64
	}
	if closeDate.Valid {
		d.CloseDate = &closeDate.Time
	}
	if lastActivity.Valid {
		d.LastActivityAt = &lastActivity.Time
	}
	if activityCount.Valid {
		n := int(activityCount.Int64)
		d.ActivityCount7d = &n
	}
	if emailCount.Valid {
		n := int(emailCount.Int64)
		d.EmailCount7d = &n
	}
	d.DivisionID = divisionID.String

	if stageData.Valid {
		d.StageData = &models.StageData{}
		if err := fromJSON(stageData, d.StageData); err != nil {
			return nil, fmt.Errorf("deal %s: bad stage data: %w", d.ID, err)
		}
	}
	if err := fromJSON(assoc, &d.Associations); err != nil {
		return nil, fmt.Errorf("deal %s: bad associations: %w", d.ID, err)
	}
	if err := fromJSON(legacy, &d.LegacyOwners); err != nil {
		return nil, fmt.Errorf("deal %s: bad legacy owners: %w", d.ID, err)
	}
	return &d, nil
}

// GetDeal returns nil, nil when the deal does not exist in the tenant.
func GetDeal(db *sql.DB, tenantID string, id uuid.UUID) (*models.Deal, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}

	deal, err := scanDeal(db.QueryRow(`
		SELECT `+dealColumns+`
		FROM deals WHERE tenant_id = ? AND id = ?
	`, tenantID, id.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}
	return deal, nil
}

func UpdateDeal(db *sql.DB, deal *models.Deal) error {
	if err := checkTenant(deal.TenantID); err != nil {
		return err
	}
	deal.UpdatedAt = time.Now()

	args, err := dealArgs(deal)
	if err != nil {
		return err
	}
	args = append(args, deal.UpdatedAt, deal.TenantID, deal.ID.String())

	res, err := db.Exec(`
		UPDATE deals
		SET name = ?, stage = ?, estimated_revenue = ?, stage_data = ?, associations = ?, legacy_owners = ?,
			probability = ?, close_date = ?, division_id = ?, activity_count_7d = ?, email_count_7d = ?, last_activity_at = ?,
			updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to update deal: %w", err)
	}
	return rowsAffected(res)
}

// FindDeals lists deals, most recently updated first.
func FindDeals(db *sql.DB, tenantID string, filter DealFilter) ([]models.Deal, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT `+dealColumns+`
		FROM deals
		WHERE tenant_id = ? AND (? = '' OR stage = ?)
		ORDER BY updated_at DESC
	`, tenantID, filter.Stage, filter.Stage)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var deals []models.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		if filter.CompanyID != "" && !containsID(d.CompanyIDs(), filter.CompanyID) {
			continue
		}
		if filter.OwnerID != "" && !models.IsAssociatedWith(*d, filter.OwnerID) {
			continue
		}
		deals = append(deals, *d)
		if filter.Limit > 0 && len(deals) >= filter.Limit {
			break
		}
	}
	return deals, rows.Err()
}

// ListDeals returns every deal in the tenant.
func ListDeals(db *sql.DB, tenantID string) ([]models.Deal, error) {
	return FindDeals(db, tenantID, DealFilter{})
}

// UpdateDealSignals stores the trailing seven-day activity and email counts.
func UpdateDealSignals(db *sql.DB, tenantID string, id uuid.UUID, activities, emails int, lastActivity *time.Time) error {
	if err := checkTenant(tenantID); err != nil {
		return err
	}
	res, err := db.Exec(`
		UPDATE deals SET activity_count_7d = ?, email_count_7d = ?, last_activity_at = COALESCE(?, last_activity_at)
		WHERE tenant_id = ? AND id = ?
	`, activities, emails, lastActivity, tenantID, id.String())
	if err != nil {
		return fmt.Errorf("failed to update deal signals: %w", err)
	}
	return rowsAffected(res)
}

func DeleteDeal(db *sql.DB, tenantID string, id uuid.UUID) error {
	if err := checkTenant(tenantID); err != nil {
		return err
	}
	res, err := db.Exec(`DELETE FROM deals WHERE tenant_id = ? AND id = ?`, tenantID, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete deal: %w", err)
	}
	return rowsAffected(res)
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
