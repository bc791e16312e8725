// ABOUTME: Deal MCP tool handlers
// ABOUTME: Implements create_deal, update_deal, score_deal and estimate_deal_value tools
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/harperreed/hirepipe/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

type DealHandlers struct {
	env *Env
}

func NewDealHandlers(env *Env) *DealHandlers {
	return &DealHandlers{env: env}
}

// QualificationInput mirrors the qualification stage data.
type QualificationInput struct {
	PayRate      *float64 `json:"expected_average_pay_rate,omitempty" validate:"omitempty,gte=0" jsonschema:"Expected average hourly pay rate"`
	Markup       *float64 `json:"expected_average_markup,omitempty" validate:"omitempty,gte=0" jsonschema:"Expected average markup percentage (e.g. 40 for 40%)"`
	Starting     *float64 `json:"starting,omitempty" validate:"omitempty,gte=0" jsonschema:"Headcount at start"`
	After30Days  *float64 `json:"after_30_days,omitempty" validate:"omitempty,gte=0" jsonschema:"Headcount after 30 days"`
	After90Days  *float64 `json:"after_90_days,omitempty" validate:"omitempty,gte=0" jsonschema:"Headcount after 90 days"`
	After180Days *float64 `json:"after_180_days,omitempty" validate:"omitempty,gte=0" jsonschema:"Headcount after 180 days"`
}

func (q *QualificationInput) toModel() *models.QualificationData {
	if q == nil {
		return nil
	}
	data := &models.QualificationData{
		ExpectedAveragePayRate: q.PayRate,
		ExpectedAverageMarkup:  q.Markup,
	}
	if q.Starting != nil || q.After30Days != nil || q.After90Days != nil || q.After180Days != nil {
		data.StaffPlacementTimeline = &models.PlacementTimeline{
			Starting:     q.Starting,
			After30Days:  q.After30Days,
			After90Days:  q.After90Days,
			After180Days: q.After180Days,
		}
	}
	return data
}

type CreateDealInput struct {
	Name             string              `json:"name" validate:"required" jsonschema:"Deal name (required)"`
	Stage            string              `json:"stage,omitempty" jsonschema:"Stage name as the tenant uses it (default Discovery)"`
	CompanyName      string              `json:"company_name" validate:"required" jsonschema:"Company name (required, will be created if not found)"`
	ContactEmail     string              `json:"contact_email,omitempty" validate:"omitempty,email" jsonschema:"Email of an existing contact to link"`
	EstimatedRevenue *float64            `json:"estimated_revenue,omitempty" validate:"omitempty,gte=0" jsonschema:"Flat revenue estimate in dollars"`
	Probability      *float64            `json:"probability,omitempty" validate:"omitempty,gte=0,lte=100" jsonschema:"Explicit win probability (0-100)"`
	CloseDate        string              `json:"close_date,omitempty" jsonschema:"Expected close date in ISO 8601 format"`
	DivisionID       string              `json:"division_id,omitempty" jsonschema:"Company division the deal belongs to"`
	Qualification    *QualificationInput `json:"qualification,omitempty" jsonschema:"Qualification data used for the value range"`
	OwnerID          string              `json:"owner_id,omitempty" jsonschema:"Salesperson id to assign (defaults to the current user)"`
}

type DealOutput struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Stage       string                 `json:"stage"`
	Canonical   string                 `json:"canonical_stage"`
	Value       string                 `json:"value"`
	Estimate    pipeline.ValueEstimate `json:"estimate"`
	Score       pipeline.DealScore     `json:"score"`
	CompanyIDs  []string               `json:"company_ids,omitempty"`
	ContactIDs  []string               `json:"contact_ids,omitempty"`
	Salespeople []string               `json:"salespeople,omitempty"`
	CloseDate   *string                `json:"close_date,omitempty"`
	CreatedAt   string                 `json:"created_at"`
	UpdatedAt   string                 `json:"updated_at"`
}

func (h *DealHandlers) CreateDeal(ctx context.Context, request *mcp.CallToolRequest, input CreateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	if err := checkInput(input); err != nil {
		return nil, DealOutput{}, err
	}
	closeDate, err := ParseTime("close_date", input.CloseDate)
	if err != nil {
		return nil, DealOutput{}, err
	}

	company, err := findOrCreateCompany(h.env, input.CompanyName)
	if err != nil {
		return nil, DealOutput{}, err
	}

	stage := input.Stage
	if stage == "" {
		stage = "Discovery"
	}
	deal := &models.Deal{
		TenantID:         h.env.TenantID,
		Name:             input.Name,
		Stage:            stage,
		EstimatedRevenue: input.EstimatedRevenue,
		Probability:      input.Probability,
		CloseDate:        closeDate,
		DivisionID:       input.DivisionID,
	}
	if q := input.Qualification.toModel(); q != nil {
		deal.StageData = &models.StageData{Qualification: q}
	}
	deal.Associations.Companies = []models.Ref{models.IDRef(company.ID.String())}
	deal.Associations.Salespeople = ownerRefs(ctx, h.env, input.OwnerID)

	if input.ContactEmail != "" {
		contact, err := db.GetContactByEmail(h.env.DB, h.env.TenantID, input.ContactEmail)
		if err != nil {
			return nil, DealOutput{}, fmt.Errorf("failed to lookup contact: %w", err)
		}
		if contact == nil {
			return nil, DealOutput{}, fmt.Errorf("no contact with email %s", input.ContactEmail)
		}
		deal.Associations.Contacts = []models.Ref{models.IDRef(contact.ID.String())}
	}

	if err := db.CreateDeal(h.env.DB, deal); err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to create deal: %w", err)
	}

	engine, err := h.env.Engine()
	if err != nil {
		return nil, DealOutput{}, err
	}
	h.invalidate(ctx, engine, *deal)
	return nil, dealToOutput(engine, *deal), nil
}

type UpdateDealInput struct {
	ID               string              `json:"id" validate:"required,uuid" jsonschema:"Deal ID (required)"`
	Name             string              `json:"name,omitempty" jsonschema:"New deal name"`
	Stage            string              `json:"stage,omitempty" jsonschema:"New stage"`
	EstimatedRevenue *float64            `json:"estimated_revenue,omitempty" validate:"omitempty,gte=0" jsonschema:"New flat revenue estimate"`
	Probability      *float64            `json:"probability,omitempty" validate:"omitempty,gte=0,lte=100" jsonschema:"New explicit win probability (0-100)"`
	CloseDate        string              `json:"close_date,omitempty" jsonschema:"New expected close date in ISO 8601 format"`
	Qualification    *QualificationInput `json:"qualification,omitempty" jsonschema:"Replacement qualification data"`
}

func (h *DealHandlers) UpdateDeal(ctx context.Context, request *mcp.CallToolRequest, input UpdateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	if err := checkInput(input); err != nil {
		return nil, DealOutput{}, err
	}
	deal, err := h.load(input.ID)
	if err != nil {
		return nil, DealOutput{}, err
	}
	closeDate, err := ParseTime("close_date", input.CloseDate)
	if err != nil {
		return nil, DealOutput{}, err
	}

	if input.Name != "" {
		deal.Name = input.Name
	}
	if input.Stage != "" {
		deal.Stage = input.Stage
	}
	if input.EstimatedRevenue != nil {
		deal.EstimatedRevenue = input.EstimatedRevenue
	}
	if input.Probability != nil {
		deal.Probability = input.Probability
	}
	if closeDate != nil {
		deal.CloseDate = closeDate
	}
	if q := input.Qualification.toModel(); q != nil {
		deal.StageData = &models.StageData{Qualification: q}
	}

	if err := db.UpdateDeal(h.env.DB, deal); err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to update deal: %w", err)
	}

	engine, err := h.env.Engine()
	if err != nil {
		return nil, DealOutput{}, err
	}
	h.invalidate(ctx, engine, *deal)
	return nil, dealToOutput(engine, *deal), nil
}

type ScoreDealInput struct {
	ID             string `json:"id" validate:"required,uuid" jsonschema:"Deal ID (required)"`
	RefreshSignals bool   `json:"refresh_signals,omitempty" jsonschema:"Recount the last seven days of activity before scoring"`
}

func (h *DealHandlers) ScoreDeal(_ context.Context, request *mcp.CallToolRequest, input ScoreDealInput) (*mcp.CallToolResult, DealOutput, error) {
	if err := checkInput(input); err != nil {
		return nil, DealOutput{}, err
	}
	deal, err := h.load(input.ID)
	if err != nil {
		return nil, DealOutput{}, err
	}
	if input.RefreshSignals {
		refreshed, err := pipeline.RefreshSignals(h.env.DB, *deal, h.env.now())
		if err != nil {
			return nil, DealOutput{}, err
		}
		deal = &refreshed
	}
	engine, err := h.env.Engine()
	if err != nil {
		return nil, DealOutput{}, err
	}
	return nil, dealToOutput(engine, *deal), nil
}

type EstimateValueInput struct {
	ID               string              `json:"id,omitempty" validate:"required_without_all=EstimatedRevenue Qualification,omitempty,uuid" jsonschema:"Deal ID to estimate"`
	EstimatedRevenue *float64            `json:"estimated_revenue,omitempty" validate:"omitempty,gte=0" jsonschema:"Flat revenue for an ad hoc estimate"`
	Qualification    *QualificationInput `json:"qualification,omitempty" jsonschema:"Qualification data for an ad hoc estimate"`
}

type EstimateValueOutput struct {
	Kind  string  `json:"kind"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Value string  `json:"value"`
}

// EstimateDealValue estimates a stored deal or, without an id, the figures
// passed in.
func (h *DealHandlers) EstimateDealValue(_ context.Context, request *mcp.CallToolRequest, input EstimateValueInput) (*mcp.CallToolResult, EstimateValueOutput, error) {
	if err := checkInput(input); err != nil {
		return nil, EstimateValueOutput{}, err
	}

	var deal models.Deal
	if input.ID != "" {
		stored, err := h.load(input.ID)
		if err != nil {
			return nil, EstimateValueOutput{}, err
		}
		deal = *stored
	} else {
		deal.EstimatedRevenue = input.EstimatedRevenue
		if q := input.Qualification.toModel(); q != nil {
			deal.StageData = &models.StageData{Qualification: q}
		}
	}

	est := pipeline.EstimateValue(deal)
	return nil, EstimateValueOutput{
		Kind:  string(est.Kind),
		Min:   est.Min,
		Max:   est.Max,
		Value: pipeline.FormatEstimate(est),
	}, nil
}

type RankDealsInput struct {
	Mine  bool `json:"mine,omitempty" jsonschema:"Only deals associated with the current user"`
	Limit int  `json:"limit,omitempty" validate:"omitempty,min=1,max=500" jsonschema:"Maximum number of deals (default 10)"`
}

type RankDealsOutput struct {
	Deals  []DealOutput   `json:"deals"`
	Health map[string]int `json:"health_counts"`
}

// RankDeals lists open deals by win probability.
func (h *DealHandlers) RankDeals(_ context.Context, request *mcp.CallToolRequest, input RankDealsInput) (*mcp.CallToolResult, RankDealsOutput, error) {
	if err := checkInput(input); err != nil {
		return nil, RankDealsOutput{}, err
	}
	limit := input.Limit
	if limit == 0 {
		limit = 10
	}
	filter := db.DealFilter{}
	if input.Mine {
		filter.OwnerID = h.env.UserID
	}
	deals, err := db.FindDeals(h.env.DB, h.env.TenantID, filter)
	if err != nil {
		return nil, RankDealsOutput{}, fmt.Errorf("failed to list deals: %w", err)
	}
	engine, err := h.env.Engine()
	if err != nil {
		return nil, RankDealsOutput{}, err
	}

	ranked := engine.Scorer.Rank(deals)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := RankDealsOutput{Deals: make([]DealOutput, len(ranked)), Health: engine.HealthCounts(deals)}
	for i, r := range ranked {
		out.Deals[i] = dealToOutput(engine, r.Deal)
	}
	return nil, out, nil
}

func (h *DealHandlers) load(id string) (*models.Deal, error) {
	deal, err := db.GetDeal(h.env.DB, h.env.TenantID, uuid.MustParse(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}
	if deal == nil {
		return nil, fmt.Errorf("deal not found: %s", id)
	}
	return deal, nil
}

// invalidate drops cached company totals after a deal changes. Failures are
// logged; the next read recomputes.
func (h *DealHandlers) invalidate(ctx context.Context, engine *pipeline.Engine, deal models.Deal) {
	if err := h.env.totals(engine.Mapper).Invalidate(ctx, h.env.TenantID, deal); err != nil {
		h.env.logger().Warn("failed to invalidate company totals",
			zap.String("deal", deal.ID.String()), zap.Error(err))
	}
}

func dealToOutput(engine *pipeline.Engine, deal models.Deal) DealOutput {
	view := engine.View(deal)
	canonical, _ := engine.Mapper.Map(deal)
	return DealOutput{
		ID:          deal.ID.String(),
		Name:        deal.Name,
		Stage:       deal.Stage,
		Canonical:   canonical,
		Value:       view.Value,
		Estimate:    view.Estimate,
		Score:       view.Score,
		CompanyIDs:  deal.CompanyIDs(),
		ContactIDs:  deal.ContactIDs(),
		Salespeople: models.OwnerIDs(deal),
		CloseDate:   formatTime(deal.CloseDate),
		CreatedAt:   deal.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   deal.UpdatedAt.Format(time.RFC3339),
	}
}
