// ABOUTME: Assembles the stage mapper and scorer for one tenant
// ABOUTME: Shared by the CLI, MCP handlers, dashboard and TUI
package pipeline

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
)

// Engine is the tenant-configured scoring pipeline.
type Engine struct {
	Stages []models.PipelineStage
	Mapper *StageMapper
	Scorer *Scorer
}

// LoadEngine reads the tenant's pipeline stages and builds a mapper and
// scorer from them. now may be nil for the wall clock.
func LoadEngine(conn *sql.DB, tenantID string, health HealthConfig, stageCfg StageConfig, now func() time.Time) (*Engine, error) {
	stages, err := db.ListStages(conn, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline stages: %w", err)
	}
	mapper, err := NewStageMapper(stageCfg, stages)
	if err != nil {
		return nil, fmt.Errorf("invalid stage table: %w", err)
	}
	if err := health.Validate(); err != nil {
		return nil, fmt.Errorf("invalid health rubric: %w", err)
	}
	scorer := NewScorer(health, stages)
	scorer.Mapper = mapper
	if now != nil {
		scorer.Now = now
	}
	return &Engine{Stages: stages, Mapper: mapper, Scorer: scorer}, nil
}

// DealView is a deal with its derived value and score.
type DealView struct {
	Deal     models.Deal   `json:"deal"`
	Estimate ValueEstimate `json:"estimate"`
	Value    string        `json:"value"`
	Score    DealScore     `json:"score"`
}

// View derives the estimate and score for one deal.
func (e *Engine) View(deal models.Deal) DealView {
	est := EstimateValue(deal)
	return DealView{
		Deal:     deal,
		Estimate: est,
		Value:    FormatEstimate(est),
		Score:    e.Scorer.Score(deal),
	}
}

// HealthCounts tallies deals by health.
func (e *Engine) HealthCounts(deals []models.Deal) map[string]int {
	counts := map[string]int{HealthGreen: 0, HealthYellow: 0, HealthRed: 0, HealthClosed: 0}
	for _, d := range deals {
		counts[e.Scorer.Score(d).Health]++
	}
	return counts
}
