// ABOUTME: Company MCP tool handlers
// ABOUTME: Implements add_company, find_companies and company_pipeline_totals tools
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
)

type CompanyHandlers struct {
	env *Env
}

func NewCompanyHandlers(env *Env) *CompanyHandlers {
	return &CompanyHandlers{env: env}
}

type AddCompanyInput struct {
	Name     string `json:"name" validate:"required" jsonschema:"Company name (required)"`
	Domain   string `json:"domain,omitempty" validate:"omitempty,fqdn" jsonschema:"Company domain (e.g., acme.com)"`
	Industry string `json:"industry,omitempty" jsonschema:"Industry or sector"`
	State    string `json:"state,omitempty" validate:"omitempty,max=32" jsonschema:"State or region code"`
	Notes    string `json:"notes,omitempty" jsonschema:"Additional notes about the company"`
	OwnerID  string `json:"owner_id,omitempty" jsonschema:"Salesperson id to assign (defaults to the current user)"`
}

type CompanyOutput struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Domain      string                `json:"domain,omitempty"`
	Industry    string                `json:"industry,omitempty"`
	State       string                `json:"state,omitempty"`
	Salespeople []string              `json:"salespeople,omitempty"`
	Pipeline    *models.PipelineValue `json:"pipeline_value,omitempty"`
	Closed      *models.ClosedValue   `json:"closed_value,omitempty"`
	CreatedAt   string                `json:"created_at"`
	UpdatedAt   string                `json:"updated_at"`
}

func (h *CompanyHandlers) AddCompany(ctx context.Context, request *mcp.CallToolRequest, input AddCompanyInput) (*mcp.CallToolResult, CompanyOutput, error) {
	if err := checkInput(input); err != nil {
		return nil, CompanyOutput{}, err
	}

	existing, err := db.FindCompanyByName(h.env.DB, h.env.TenantID, input.Name)
	if err != nil {
		return nil, CompanyOutput{}, fmt.Errorf("failed to lookup company: %w", err)
	}
	if existing != nil {
		return nil, CompanyOutput{}, fmt.Errorf("company %q already exists (id %s)", existing.Name, existing.ID)
	}

	company := &models.Company{
		TenantID: h.env.TenantID,
		Name:     input.Name,
		Domain:   input.Domain,
		Industry: input.Industry,
		State:    input.State,
		Notes:    input.Notes,
	}
	company.Associations.Salespeople = ownerRefs(ctx, h.env, input.OwnerID)

	if err := db.CreateCompany(h.env.DB, company); err != nil {
		return nil, CompanyOutput{}, fmt.Errorf("failed to create company: %w", err)
	}
	return nil, companyToOutput(company), nil
}

type FindCompaniesInput struct {
	Query   string `json:"query,omitempty" jsonschema:"Search query (searches name and domain)"`
	State   string `json:"state,omitempty" jsonschema:"Filter by state (companyState)"`
	OwnerID string `json:"owner_id,omitempty" jsonschema:"Only companies associated with this salesperson"`
	Mine    bool   `json:"mine,omitempty" jsonschema:"Only companies associated with the current user"`
	Limit   int    `json:"limit,omitempty" validate:"omitempty,min=1,max=1000" jsonschema:"Maximum number of results (default 10)"`
}

type FindCompaniesOutput struct {
	Companies []CompanyOutput `json:"companies"`
}

func (h *CompanyHandlers) FindCompanies(_ context.Context, request *mcp.CallToolRequest, input FindCompaniesInput) (*mcp.CallToolResult, FindCompaniesOutput, error) {
	if err := checkInput(input); err != nil {
		return nil, FindCompaniesOutput{}, err
	}
	limit := input.Limit
	if limit == 0 {
		limit = 10
	}
	owner := input.OwnerID
	if input.Mine {
		owner = h.env.UserID
	}

	companies, err := db.FindCompanies(h.env.DB, h.env.TenantID, db.CompanyFilter{
		Query:   input.Query,
		State:   input.State,
		OwnerID: owner,
		Limit:   limit,
	})
	if err != nil {
		return nil, FindCompaniesOutput{}, fmt.Errorf("failed to find companies: %w", err)
	}

	result := make([]CompanyOutput, len(companies))
	for i := range companies {
		result[i] = companyToOutput(&companies[i])
	}
	return nil, FindCompaniesOutput{Companies: result}, nil
}

type CompanyTotalsInput struct {
	CompanyID string `json:"company_id" validate:"required,uuid" jsonschema:"Company ID (required)"`
	Recompute bool   `json:"recompute,omitempty" jsonschema:"Ignore cached totals and recompute from deals"`
}

type CompanyTotalsOutput struct {
	CompanyID string                          `json:"company_id"`
	Pipeline  models.PipelineValue            `json:"pipeline_value"`
	Closed    models.ClosedValue              `json:"closed_value"`
	Divisions map[string]models.PipelineValue `json:"division_totals,omitempty"`
	Range     string                          `json:"range"`
	Source    string                          `json:"source"`
}

func (h *CompanyHandlers) CompanyPipelineTotals(ctx context.Context, request *mcp.CallToolRequest, input CompanyTotalsInput) (*mcp.CallToolResult, CompanyTotalsOutput, error) {
	if err := checkInput(input); err != nil {
		return nil, CompanyTotalsOutput{}, err
	}
	companyID := uuid.MustParse(input.CompanyID)

	engine, err := h.env.Engine()
	if err != nil {
		return nil, CompanyTotalsOutput{}, err
	}
	svc := h.env.totals(engine.Mapper)

	var totals *pipeline.Totals
	if input.Recompute {
		company, gerr := db.GetCompany(h.env.DB, h.env.TenantID, companyID)
		if gerr != nil {
			return nil, CompanyTotalsOutput{}, gerr
		}
		if company == nil {
			return nil, CompanyTotalsOutput{}, fmt.Errorf("company not found")
		}
		totals, err = svc.Recompute(ctx, h.env.TenantID, companyID)
	} else {
		totals, err = svc.Get(ctx, h.env.TenantID, companyID)
	}
	if err != nil {
		return nil, CompanyTotalsOutput{}, fmt.Errorf("failed to get company totals: %w", err)
	}

	return nil, CompanyTotalsOutput{
		CompanyID: totals.CompanyID,
		Pipeline:  totals.Pipeline,
		Closed:    totals.Closed,
		Divisions: totals.Divisions,
		Range:     pipeline.FormatEstimate(pipeline.ValueEstimate{Kind: pipeline.EstimateRange, Min: totals.Pipeline.Low, Max: totals.Pipeline.High}),
		Source:    totals.Source,
	}, nil
}

func companyToOutput(company *models.Company) CompanyOutput {
	return CompanyOutput{
		ID:          company.ID.String(),
		Name:        company.Name,
		Domain:      company.Domain,
		Industry:    company.Industry,
		State:       company.State,
		Salespeople: models.OwnerIDs(*company),
		Pipeline:    company.PipelineValue,
		Closed:      company.ClosedValue,
		CreatedAt:   company.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   company.UpdatedAt.Format(time.RFC3339),
	}
}
