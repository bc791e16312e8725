// ABOUTME: Email template database operations
// ABOUTME: Templates are unique by name within a tenant
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/models"
)

// SaveTemplate creates the template or replaces the one with the same name.
func SaveTemplate(db *sql.DB, tpl *models.EmailTemplate) error {
	if err := checkTenant(tpl.TenantID); err != nil {
		return err
	}
	if tpl.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	now := time.Now()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now

	_, err := db.Exec(`
		INSERT INTO email_templates (id, tenant_id, name, subject, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, name) DO UPDATE SET
			subject = excluded.subject,
			body = excluded.body,
			updated_at = excluded.updated_at
	`, tpl.ID.String(), tpl.TenantID, tpl.Name, tpl.Subject, tpl.Body, tpl.CreatedAt, tpl.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

// GetTemplateByName returns nil, nil when no template has that name.
func GetTemplateByName(db *sql.DB, tenantID, name string) (*models.EmailTemplate, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}

	var t models.EmailTemplate
	err := db.QueryRow(`
		SELECT id, tenant_id, name, subject, body, created_at, updated_at
		FROM email_templates WHERE tenant_id = ? AND name = ?
	`, tenantID, name).Scan(&t.ID, &t.TenantID, &t.Name, &t.Subject, &t.Body, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &t, nil
}

func ListTemplates(db *sql.DB, tenantID string) ([]models.EmailTemplate, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT id, tenant_id, name, subject, body, created_at, updated_at
		FROM email_templates WHERE tenant_id = ? ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var templates []models.EmailTemplate
	for rows.Next() {
		var t models.EmailTemplate
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Name, &t.Subject, &t.Body, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}
