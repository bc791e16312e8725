// ABOUTME: Salesperson (user) database operations
// ABOUTME: Backs the team directory used to resolve association references
package db

import (
	"database/sql"
	"fmt"

	"github.com/harperreed/hirepipe/models"
)

// SaveUser inserts or updates a salesperson in the tenant.
func SaveUser(db *sql.DB, user *models.Salesperson) error {
	if err := checkTenant(user.TenantID); err != nil {
		return err
	}
	if user.ID == "" {
		return fmt.Errorf("user id is required")
	}

	_, err := db.Exec(`
		INSERT INTO users (id, tenant_id, name, email, role, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			active = excluded.active
	`, user.ID, user.TenantID, user.Name, user.Email, user.Role, user.Active)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// GetUser returns nil, nil when the user is not in the tenant.
func GetUser(db *sql.DB, tenantID, id string) (*models.Salesperson, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}

	var u models.Salesperson
	var email, role sql.NullString
	err := db.QueryRow(`
		SELECT id, tenant_id, name, email, role, active
		FROM users WHERE tenant_id = ? AND id = ?
	`, tenantID, id).Scan(&u.ID, &u.TenantID, &u.Name, &email, &role, &u.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.Email = email.String
	u.Role = role.String
	return &u, nil
}

// ListSalespeople returns the tenant's active users ordered by name.
func ListSalespeople(db *sql.DB, tenantID string) ([]models.Salesperson, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT id, tenant_id, name, email, role, active
		FROM users
		WHERE tenant_id = ? AND active = 1
		ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []models.Salesperson
	for rows.Next() {
		var u models.Salesperson
		var email, role sql.NullString
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Name, &email, &role, &u.Active); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Email = email.String
		u.Role = role.String
		users = append(users, u)
	}
	return users, rows.Err()
}
