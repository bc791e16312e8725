// ABOUTME: Pipeline stage database operations
// ABOUTME: Tenant funnel definition with ordered stages and default probabilities
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/hirepipe/models"
)

// DefaultStages is the stock staffing funnel seeded for new tenants.
var DefaultStages = []models.PipelineStage{
	{ID: "discovery", Name: "Discovery", Probability: 10},
	{ID: "qualification", Name: "Qualification", Probability: 20},
	{ID: "scoping", Name: "Scoping", Probability: 30},
	{ID: "proposal-drafted", Name: "Proposal Drafted", Probability: 40},
	{ID: "proposal-review", Name: "Proposal Review", Probability: 50},
	{ID: "negotiation", Name: "Negotiation", Probability: 70},
	{ID: "verbal-agreement", Name: "Verbal Agreement", Probability: 90},
	{ID: "onboarding", Name: "Onboarding", Probability: 100},
	{ID: "live-account", Name: "Live Account", Probability: 100},
	{ID: "dormant", Name: "Dormant", Probability: 0},
}

func CreateStage(db *sql.DB, stage *models.PipelineStage) error {
	if err := checkTenant(stage.TenantID); err != nil {
		return err
	}
	if stage.ID == "" {
		stage.ID = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(stage.Name)), " ", "-")
	}
	if stage.ID == "" {
		return fmt.Errorf("stage name is required")
	}
	stage.CreatedAt = time.Now()

	_, err := db.Exec(`
		INSERT INTO pipeline_stages (id, tenant_id, name, probability, sort_order, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, id) DO UPDATE SET
			name = excluded.name,
			probability = excluded.probability,
			sort_order = excluded.sort_order
	`, stage.ID, stage.TenantID, stage.Name, stage.Probability, stage.Order, stage.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save stage: %w", err)
	}
	return nil
}

// ListStages returns the tenant's stages in funnel order.
func ListStages(db *sql.DB, tenantID string) ([]models.PipelineStage, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT id, tenant_id, name, probability, sort_order, created_at
		FROM pipeline_stages
		WHERE tenant_id = ?
		ORDER BY sort_order, name
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stages []models.PipelineStage
	for rows.Next() {
		var s models.PipelineStage
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Name, &s.Probability, &s.Order, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

// SeedDefaultStages installs DefaultStages when the tenant has none.
// It returns the number of stages written.
func SeedDefaultStages(db *sql.DB, tenantID string) (int, error) {
	existing, err := ListStages(db, tenantID)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for i, s := range DefaultStages {
		stage := s
		stage.TenantID = tenantID
		stage.Order = i
		if err := CreateStage(db, &stage); err != nil {
			return i, err
		}
	}
	return len(DefaultStages), nil
}
