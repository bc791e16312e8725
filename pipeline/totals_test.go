// ABOUTME: Tests for company pipeline totals
// ABOUTME: Verifies recompute, caching and closed totals
package pipeline

import (
	"context"
	"database/sql"
	"testing"

	"github.com/harperreed/hirepipe/cache"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenant = "tenant-a"

func TestCompanyTotals(t *testing.T) {
	link := models.Associations{Companies: []models.Ref{models.IDRef("c1")}}
	deals := []models.Deal{
		{Stage: "Negotiation", EstimatedRevenue: f64(10000), Associations: link, DivisionID: "east"},
		{Stage: "Discovery", EstimatedRevenue: f64(5000), Associations: link},
		{Stage: "closed won", EstimatedRevenue: f64(50000), Associations: link},
		{Stage: "lost", EstimatedRevenue: f64(99999), Associations: link},
		{Stage: "Negotiation", EstimatedRevenue: f64(77777)},
	}

	open, closed, divisions := CompanyTotals("c1", deals, nil)

	assert.Equal(t, models.PipelineValue{Low: 15000, High: 15000, DealCount: 2}, open)
	assert.Equal(t, models.ClosedValue{Total: 50000, DealCount: 1}, closed)
	assert.Equal(t, map[string]models.PipelineValue{"east": {Low: 10000, High: 10000, DealCount: 1}}, divisions)
}

func setupTotals(t *testing.T) (*sql.DB, *TotalsService) {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	require.NoError(t, db.InitSchema(conn))
	t.Cleanup(func() { _ = conn.Close() })

	return conn, &TotalsService{DB: conn, Cache: cache.NewMemory()}
}

func TestTotalsServiceComputesThenReadsDocument(t *testing.T) {
	ctx := context.Background()
	conn, svc := setupTotals(t)

	company := &models.Company{TenantID: tenant, Name: "Acme"}
	require.NoError(t, db.CreateCompany(conn, company))
	deal := &models.Deal{
		TenantID:         tenant,
		Name:             "Pickers",
		Stage:            "Proposal Drafted",
		EstimatedRevenue: f64(40000),
		Associations:     models.Associations{Companies: []models.Ref{models.IDRef(company.ID.String())}},
	}
	require.NoError(t, db.CreateDeal(conn, deal))

	first, err := svc.Get(ctx, tenant, company.ID)
	require.NoError(t, err)
	assert.Equal(t, TotalsFromCompute, first.Source)
	assert.Equal(t, 40000.0, first.Pipeline.High)

	second, err := svc.Get(ctx, tenant, company.ID)
	require.NoError(t, err)
	assert.Equal(t, TotalsFromDocument, second.Source)
	assert.Equal(t, first.Pipeline, second.Pipeline)

	// Clearing the row falls back to the shared cache.
	require.NoError(t, db.ClearCompanyTotals(conn, tenant, company.ID))
	third, err := svc.Get(ctx, tenant, company.ID)
	require.NoError(t, err)
	assert.Equal(t, TotalsFromCache, third.Source)

	// Invalidate clears both and the next read recomputes.
	deal.Stage = "closed won"
	require.NoError(t, db.UpdateDeal(conn, deal))
	require.NoError(t, svc.Invalidate(ctx, tenant, *deal))
	fourth, err := svc.Get(ctx, tenant, company.ID)
	require.NoError(t, err)
	assert.Equal(t, TotalsFromCompute, fourth.Source)
	assert.Equal(t, models.ClosedValue{Total: 40000, DealCount: 1}, fourth.Closed)
	assert.Zero(t, fourth.Pipeline.DealCount)
}

func TestTotalsServiceMissingCompany(t *testing.T) {
	_, svc := setupTotals(t)

	company := models.Company{TenantID: tenant}
	_, err := svc.Get(context.Background(), tenant, company.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestRecomputeAll(t *testing.T) {
	ctx := context.Background()
	conn, svc := setupTotals(t)

	for _, name := range []string{"A", "B", "C"} {
		require.NoError(t, db.CreateCompany(conn, &models.Company{TenantID: tenant, Name: name}))
	}

	n, err := svc.RecomputeAll(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	companies, err := db.ListCompanies(conn, tenant)
	require.NoError(t, err)
	for _, c := range companies {
		assert.NotNil(t, c.PipelineValue, c.Name)
	}
}
