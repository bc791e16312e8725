// ABOUTME: Tests for company MCP tool handlers
// ABOUTME: Covers duplicate detection, state filtering and pipeline totals
package handlers

import (
	"context"
	"testing"

	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/harperreed/hirepipe/pipeline"
)

func TestAddCompanyRejectsDuplicates(t *testing.T) {
	env := setupEnv(t)
	handler := NewCompanyHandlers(env)

	_, out, err := handler.AddCompany(context.Background(), nil, AddCompanyInput{Name: "Acme", Domain: "acme.com", State: "IL"})
	if err != nil {
		t.Fatalf("AddCompany failed: %v", err)
	}
	if out.ID == "" || out.State != "IL" {
		t.Errorf("unexpected output: %+v", out)
	}
	if _, _, err := handler.AddCompany(context.Background(), nil, AddCompanyInput{Name: "Acme"}); err == nil {
		t.Error("expected duplicate company error")
	}
}

func TestFindCompaniesByStateAndOwner(t *testing.T) {
	env := setupEnv(t)
	handler := NewCompanyHandlers(env)
	ctx := context.Background()

	for _, in := range []AddCompanyInput{
		{Name: "Mine IL", State: "IL"},
		{Name: "Mine WI", State: "WI"},
		{Name: "Theirs IL", State: "IL", OwnerID: "u-bob"},
	} {
		if _, _, err := handler.AddCompany(ctx, nil, in); err != nil {
			t.Fatalf("AddCompany failed: %v", err)
		}
	}

	_, out, err := handler.FindCompanies(ctx, nil, FindCompaniesInput{State: "IL"})
	if err != nil {
		t.Fatalf("FindCompanies failed: %v", err)
	}
	if len(out.Companies) != 2 {
		t.Errorf("expected 2 IL companies, got %d", len(out.Companies))
	}

	_, out, err = handler.FindCompanies(ctx, nil, FindCompaniesInput{State: "IL", Mine: true})
	if err != nil {
		t.Fatalf("FindCompanies failed: %v", err)
	}
	if len(out.Companies) != 1 || out.Companies[0].Name != "Mine IL" {
		t.Errorf("expected only 'Mine IL', got %+v", out.Companies)
	}
}

func TestCompanyPipelineTotals(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	company := &models.Company{TenantID: testTenant, Name: "Acme"}
	if err := db.CreateCompany(env.DB, company); err != nil {
		t.Fatalf("CreateCompany failed: %v", err)
	}
	link := models.Associations{Companies: []models.Ref{models.IDRef(company.ID.String())}}
	for _, d := range []*models.Deal{
		{TenantID: testTenant, Name: "Open", Stage: "Negotiation", EstimatedRevenue: f64(20000), Associations: link},
		{TenantID: testTenant, Name: "Won", Stage: "closed won", EstimatedRevenue: f64(50000), Associations: link},
	} {
		if err := db.CreateDeal(env.DB, d); err != nil {
			t.Fatalf("CreateDeal failed: %v", err)
		}
	}

	handler := NewCompanyHandlers(env)
	_, out, err := handler.CompanyPipelineTotals(ctx, nil, CompanyTotalsInput{CompanyID: company.ID.String()})
	if err != nil {
		t.Fatalf("CompanyPipelineTotals failed: %v", err)
	}
	if out.Pipeline != (models.PipelineValue{Low: 20000, High: 20000, DealCount: 1}) {
		t.Errorf("unexpected pipeline value: %+v", out.Pipeline)
	}
	if out.Closed != (models.ClosedValue{Total: 50000, DealCount: 1}) {
		t.Errorf("unexpected closed value: %+v", out.Closed)
	}
	if out.Range != "$20,000" {
		t.Errorf("expected range $20,000, got %q", out.Range)
	}
	if out.Source != pipeline.TotalsFromCompute {
		t.Errorf("expected computed totals, got %s", out.Source)
	}

	_, again, err := handler.CompanyPipelineTotals(ctx, nil, CompanyTotalsInput{CompanyID: company.ID.String()})
	if err != nil {
		t.Fatalf("CompanyPipelineTotals failed: %v", err)
	}
	if again.Source == pipeline.TotalsFromCompute {
		t.Error("second read should come from a cache")
	}

	if _, _, err := handler.CompanyPipelineTotals(ctx, nil, CompanyTotalsInput{CompanyID: "nope"}); err == nil {
		t.Error("expected error for invalid company id")
	}
}
