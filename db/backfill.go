// ABOUTME: Association backfill helpers used by the migrate tool
// ABOUTME: Rewrites association arrays without touching updated_at
package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/models"
)

// Association tables that carry salespeople arrays.
const (
	TableContacts  = "contacts"
	TableCompanies = "companies"
	TableDeals     = "deals"
)

// ListTenants returns every tenant id, ordered.
func ListTenants(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT id FROM tenants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetAssociations replaces one row's associations. updated_at is left alone
// so a backfill does not make every deal look freshly touched.
func SetAssociations(db *sql.DB, table, tenantID string, id uuid.UUID, assoc models.Associations) error {
	if err := checkTenant(tenantID); err != nil {
		return err
	}
	var query string
	switch table {
	case TableContacts:
		query = `UPDATE contacts SET associations = ? WHERE tenant_id = ? AND id = ?`
	case TableCompanies:
		query = `UPDATE companies SET associations = ? WHERE tenant_id = ? AND id = ?`
	case TableDeals:
		query = `UPDATE deals SET associations = ? WHERE tenant_id = ? AND id = ?`
	default:
		return fmt.Errorf("table %q has no associations", table)
	}

	encoded, err := toJSON(assoc)
	if err != nil {
		return fmt.Errorf("failed to encode associations: %w", err)
	}
	res, err := db.Exec(query, encoded, tenantID, id.String())
	if err != nil {
		return fmt.Errorf("failed to update %s associations: %w", table, err)
	}
	return rowsAffected(res)
}
