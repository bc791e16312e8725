// ABOUTME: Pipeline funnel MCP tool handler
// ABOUTME: Groups deals into canonical stages with value ranges and health counts
package handlers

import (
	"context"
	"fmt"

	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/harperreed/hirepipe/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PipelineHandlers struct {
	env *Env
}

func NewPipelineHandlers(env *Env) *PipelineHandlers {
	return &PipelineHandlers{env: env}
}

type FunnelInput struct {
	Mine    bool   `json:"mine,omitempty" jsonschema:"Only deals associated with the current user"`
	OwnerID string `json:"owner_id,omitempty" jsonschema:"Only deals associated with this salesperson"`
}

type FunnelStage struct {
	Stage string  `json:"stage"`
	Count int     `json:"count"`
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Value string  `json:"value"`
}

type FunnelOutput struct {
	Stages   []FunnelStage     `json:"stages"`
	Bubbles  []pipeline.Bubble `json:"bubbles"`
	Health   map[string]int    `json:"health_counts"`
	Unmapped []string          `json:"unmapped_stages,omitempty"`
	Total    string            `json:"open_value"`
}

func (h *PipelineHandlers) PipelineFunnel(_ context.Context, request *mcp.CallToolRequest, input FunnelInput) (*mcp.CallToolResult, FunnelOutput, error) {
	if err := checkInput(input); err != nil {
		return nil, FunnelOutput{}, err
	}
	owner := input.OwnerID
	if input.Mine {
		owner = h.env.UserID
	}
	deals, err := db.FindDeals(h.env.DB, h.env.TenantID, db.DealFilter{OwnerID: owner})
	if err != nil {
		return nil, FunnelOutput{}, fmt.Errorf("failed to list deals: %w", err)
	}
	engine, err := h.env.Engine()
	if err != nil {
		return nil, FunnelOutput{}, err
	}
	return nil, funnelOutput(engine, deals), nil
}

func funnelOutput(engine *pipeline.Engine, deals []models.Deal) FunnelOutput {
	buckets := pipeline.Funnel(deals, engine.Mapper)
	out := FunnelOutput{
		Stages:  make([]FunnelStage, len(buckets)),
		Bubbles: pipeline.Bubbles(deals, engine.Mapper, engine.Scorer),
		Health:  engine.HealthCounts(deals),
	}
	if out.Bubbles == nil {
		out.Bubbles = []pipeline.Bubble{}
	}

	var low, high float64
	for i, b := range buckets {
		out.Stages[i] = FunnelStage{
			Stage: b.Stage,
			Count: b.Count,
			Low:   b.Low,
			High:  b.High,
			Value: pipeline.FormatEstimate(pipeline.ValueEstimate{Kind: pipeline.EstimateRange, Min: b.Low, Max: b.High}),
		}
		if !engine.Mapper.IsClosed(b.Stage) {
			low += b.Low
			high += b.High
		}
	}

	seen := make(map[string]bool)
	for _, d := range deals {
		if _, kind := engine.Mapper.Map(d); kind == pipeline.MatchUnmapped && !seen[d.Stage] {
			seen[d.Stage] = true
			out.Unmapped = append(out.Unmapped, d.Stage)
		}
	}
	out.Total = pipeline.FormatEstimate(pipeline.ValueEstimate{Kind: pipeline.EstimateRange, Min: low, Max: high})
	return out
}
