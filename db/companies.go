// ABOUTME: Company database operations
// ABOUTME: Handles tenant-scoped CRUD, locations, divisions, and cached pipeline totals
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/models"
)

const companyColumns = `id, tenant_id, name, domain, industry, state, notes, associations, legacy_owners,
	pipeline_value, closed_value, division_totals, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// CompanyFilter narrows FindCompanies. Zero values match everything.
type CompanyFilter struct {
	Query   string
	State   string
	OwnerID string
	Limit   int
}

func CreateCompany(db *sql.DB, company *models.Company) error {
	if err := checkTenant(company.TenantID); err != nil {
		return err
	}
	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}
	now := time.Now()
	company.CreatedAt = now
	company.UpdatedAt = now

	assoc, err := toJSON(company.Associations)
	if err != nil {
		return fmt.Errorf("failed to encode associations: %w", err)
	}
	legacy, err := toJSON(company.LegacyOwners)
	if err != nil {
		return fmt.Errorf("failed to encode legacy owners: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO companies (id, tenant_id, name, domain, industry, state, notes, associations, legacy_owners, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, company.ID.String(), company.TenantID, company.Name, company.Domain, company.Industry, company.State,
		company.Notes, assoc, legacy, company.CreatedAt, company.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

func scanCompany(row rowScanner) (*models.Company, error) {
	var c models.Company
	var assoc, legacy, pipelineValue, closedValue, divisionTotals sql.NullString

	err := row.Scan(
		&c.ID,
		&c.TenantID,
		&c.Name,
		&c.Domain,
		&c.Industry,
		&c.State,
		&c.Notes,
		&assoc,
		&legacy,
		&pipelineValue,
		&closedValue,
		&divisionTotals,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := fromJSON(assoc, &c.Associations); err != nil {
		return nil, fmt.Errorf("company %s: bad associations: %w", c.ID, err)
	}
	if err := fromJSON(legacy, &c.LegacyOwners); err != nil {
		return nil, fmt.Errorf("company %s: bad legacy owners: %w", c.ID, err)
	}
	if pipelineValue.Valid {
		c.PipelineValue = &models.PipelineValue{}
		if err := fromJSON(pipelineValue, c.PipelineValue); err != nil {
			return nil, fmt.Errorf("company %s: bad pipeline value: %w", c.ID, err)
		}
	}
	if closedValue.Valid {
		c.ClosedValue = &models.ClosedValue{}
		if err := fromJSON(closedValue, c.ClosedValue); err != nil {
			return nil, fmt.Errorf("company %s: bad closed value: %w", c.ID, err)
		}
	}
	if err := fromJSON(divisionTotals, &c.DivisionTotals); err != nil {
		return nil, fmt.Errorf("company %s: bad division totals: %w", c.ID, err)
	}
	return &c, nil
}

// GetCompany returns nil, nil when the company does not exist in the tenant.
func GetCompany(db *sql.DB, tenantID string, id uuid.UUID) (*models.Company, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}

	company, err := scanCompany(db.QueryRow(`
		SELECT `+companyColumns+`
		FROM companies WHERE tenant_id = ? AND id = ?
	`, tenantID, id.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return company, nil
}

func FindCompanyByName(db *sql.DB, tenantID, name string) (*models.Company, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}

	company, err := scanCompany(db.QueryRow(`
		SELECT `+companyColumns+`
		FROM companies WHERE tenant_id = ? AND LOWER(name) = LOWER(?)
	`, tenantID, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find company: %w", err)
	}
	return company, nil
}

// FindCompanies searches name and domain. Owner filtering resolves both the
// salespeople array and legacy owner fields.
func FindCompanies(db *sql.DB, tenantID string, filter CompanyFilter) ([]models.Company, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT `+companyColumns+`
		FROM companies
		WHERE tenant_id = ?
			AND (? = '' OR LOWER(name) LIKE ? OR LOWER(domain) LIKE ?)
			AND (? = '' OR state = ?)
		ORDER BY name
	`, tenantID, filter.Query, likePattern(filter.Query), likePattern(filter.Query), filter.State, filter.State)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var companies []models.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		if filter.OwnerID != "" && !models.IsAssociatedWith(*c, filter.OwnerID) {
			continue
		}
		companies = append(companies, *c)
		if filter.Limit > 0 && len(companies) >= filter.Limit {
			break
		}
	}
	return companies, rows.Err()
}

// ListCompanies returns every company in the tenant.
func ListCompanies(db *sql.DB, tenantID string) ([]models.Company, error) {
	return FindCompanies(db, tenantID, CompanyFilter{})
}

func UpdateCompany(db *sql.DB, company *models.Company) error {
	if err := checkTenant(company.TenantID); err != nil {
		return err
	}
	company.UpdatedAt = time.Now()

	assoc, err := toJSON(company.Associations)
	if err != nil {
		return fmt.Errorf("failed to encode associations: %w", err)
	}
	legacy, err := toJSON(company.LegacyOwners)
	if err != nil {
		return fmt.Errorf("failed to encode legacy owners: %w", err)
	}

	res, err := db.Exec(`
		UPDATE companies
		SET name = ?, domain = ?, industry = ?, state = ?, notes = ?, associations = ?, legacy_owners = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`, company.Name, company.Domain, company.Industry, company.State, company.Notes, assoc, legacy,
		company.UpdatedAt, company.TenantID, company.ID.String())
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	return rowsAffected(res)
}

// UpdateCompanyTotals writes the cached pipeline and closed totals.
func UpdateCompanyTotals(db *sql.DB, tenantID string, id uuid.UUID, pipeline models.PipelineValue, closed models.ClosedValue, divisions map[string]models.PipelineValue) error {
	if err := checkTenant(tenantID); err != nil {
		return err
	}

	pv, err := toJSON(pipeline)
	if err != nil {
		return err
	}
	cv, err := toJSON(closed)
	if err != nil {
		return err
	}
	dt, err := nullableJSON(divisions, len(divisions) == 0)
	if err != nil {
		return err
	}

	res, err := db.Exec(`
		UPDATE companies
		SET pipeline_value = ?, closed_value = ?, division_totals = ?
		WHERE tenant_id = ? AND id = ?
	`, pv, cv, dt, tenantID, id.String())
	if err != nil {
		return fmt.Errorf("failed to update company totals: %w", err)
	}
	return rowsAffected(res)
}

// ClearCompanyTotals drops cached totals so the next read recomputes them.
func ClearCompanyTotals(db *sql.DB, tenantID string, id uuid.UUID) error {
	if err := checkTenant(tenantID); err != nil {
		return err
	}
	_, err := db.Exec(`
		UPDATE companies SET pipeline_value = NULL, closed_value = NULL, division_totals = NULL
		WHERE tenant_id = ? AND id = ?
	`, tenantID, id.String())
	if err != nil {
		return fmt.Errorf("failed to clear company totals: %w", err)
	}
	return nil
}

func DeleteCompany(db *sql.DB, tenantID string, id uuid.UUID) error {
	if err := checkTenant(tenantID); err != nil {
		return err
	}

	deals, err := ListDeals(db, tenantID)
	if err != nil {
		return err
	}
	var dealCount int
	for _, d := range deals {
		for _, cid := range d.CompanyIDs() {
			if cid == id.String() {
				dealCount++
			}
		}
	}
	if dealCount > 0 {
		return fmt.Errorf("cannot delete company with %d active deals", dealCount)
	}

	// Unlink legacy company references
	_, err = db.Exec(`UPDATE contacts SET company_id = NULL WHERE tenant_id = ? AND company_id = ?`, tenantID, id.String())
	if err != nil {
		return fmt.Errorf("failed to update contacts: %w", err)
	}

	res, err := db.Exec(`DELETE FROM companies WHERE tenant_id = ? AND id = ?`, tenantID, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	return rowsAffected(res)
}

func CreateLocation(db *sql.DB, tenantID string, loc *models.CompanyLocation) error {
	if err := checkTenant(tenantID); err != nil {
		return err
	}
	loc.ID = uuid.New()
	loc.CreatedAt = time.Now()

	_, err := db.Exec(`
		INSERT INTO company_locations (id, tenant_id, company_id, name, city, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, loc.ID.String(), tenantID, loc.CompanyID.String(), loc.Name, loc.City, loc.State, loc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create location: %w", err)
	}
	return nil
}

func ListLocations(db *sql.DB, tenantID string, companyID uuid.UUID) ([]models.CompanyLocation, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT id, company_id, name, city, state, created_at
		FROM company_locations
		WHERE tenant_id = ? AND company_id = ?
		ORDER BY name
	`, tenantID, companyID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var locations []models.CompanyLocation
	for rows.Next() {
		var l models.CompanyLocation
		if err := rows.Scan(&l.ID, &l.CompanyID, &l.Name, &l.City, &l.State, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

func CreateDivision(db *sql.DB, tenantID string, div *models.Division) error {
	if err := checkTenant(tenantID); err != nil {
		return err
	}
	div.ID = uuid.New()
	div.CreatedAt = time.Now()

	_, err := db.Exec(`
		INSERT INTO company_divisions (id, tenant_id, company_id, name, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, div.ID.String(), tenantID, div.CompanyID.String(), div.Name, div.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create division: %w", err)
	}
	return nil
}

func ListDivisions(db *sql.DB, tenantID string, companyID uuid.UUID) ([]models.Division, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT id, company_id, name, created_at
		FROM company_divisions
		WHERE tenant_id = ? AND company_id = ?
		ORDER BY name
	`, tenantID, companyID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query divisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var divisions []models.Division
	for rows.Next() {
		var d models.Division
		if err := rows.Scan(&d.ID, &d.CompanyID, &d.Name, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan division: %w", err)
		}
		divisions = append(divisions, d)
	}
	return divisions, rows.Err()
}
