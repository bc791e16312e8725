// ABOUTME: Per-company pipeline and closed-value totals with document and Redis caching
// ABOUTME: Recomputes from deals when neither cache has a value
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/cache"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/logging"
	"github.com/harperreed/hirepipe/models"
	"go.uber.org/zap"
)

// Where a Totals value was read from.
const (
	TotalsFromDocument = "document"
	TotalsFromCache    = "cache"
	TotalsFromCompute  = "computed"
)

// Totals is the pipeline summary for one company.
type Totals struct {
	CompanyID string                          `json:"company_id"`
	Pipeline  models.PipelineValue            `json:"pipeline"`
	Closed    models.ClosedValue              `json:"closed"`
	Divisions map[string]models.PipelineValue `json:"divisions,omitempty"`
	Source    string                          `json:"source"`
}

// CompanyTotals sums the deals linked to companyID. Open deals add their
// low/high range, won deals add their high value to the closed total, and
// lost deals are skipped.
func CompanyTotals(companyID string, deals []models.Deal, mapper *StageMapper) (models.PipelineValue, models.ClosedValue, map[string]models.PipelineValue) {
	if mapper == nil {
		mapper = DefaultStageMapper()
	}

	var open models.PipelineValue
	var closed models.ClosedValue
	divisions := make(map[string]models.PipelineValue)

	for _, d := range deals {
		if !linkedTo(d, companyID) {
			continue
		}
		stage, _ := mapper.Map(d)
		low, high := ValueForPipeline(d)

		switch {
		case mapper.IsWon(stage):
			closed.Total += high
			closed.DealCount++
		case mapper.IsLost(stage):
		default:
			open.Low += low
			open.High += high
			open.DealCount++
			if d.DivisionID != "" {
				div := divisions[d.DivisionID]
				div.Low += low
				div.High += high
				div.DealCount++
				divisions[d.DivisionID] = div
			}
		}
	}
	return open, closed, divisions
}

func linkedTo(d models.Deal, companyID string) bool {
	for _, id := range d.CompanyIDs() {
		if id == companyID {
			return true
		}
	}
	return false
}

// TotalsService reads and maintains cached company totals.
type TotalsService struct {
	DB     *sql.DB
	Cache  cache.Store
	Mapper *StageMapper
	Logger *zap.Logger
	TTL    time.Duration
}

func totalsKey(tenantID string, companyID uuid.UUID) string {
	return fmt.Sprintf("hirepipe:totals:%s:%s", tenantID, companyID)
}

// Get returns the totals stored on the company row, then the shared cache,
// and recomputes only when both are empty.
func (s *TotalsService) Get(ctx context.Context, tenantID string, companyID uuid.UUID) (*Totals, error) {
	log := logging.OrNop(s.Logger)

	company, err := db.GetCompany(s.DB, tenantID, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, fmt.Errorf("company %s: %w", companyID, db.ErrNotFound)
	}

	if company.PipelineValue != nil && company.ClosedValue != nil {
		return &Totals{
			CompanyID: companyID.String(),
			Pipeline:  *company.PipelineValue,
			Closed:    *company.ClosedValue,
			Divisions: company.DivisionTotals,
			Source:    TotalsFromDocument,
		}, nil
	}

	if s.Cache != nil {
		var cached Totals
		ok, err := cache.GetJSON(ctx, s.Cache, totalsKey(tenantID, companyID), &cached)
		if err != nil {
			log.Warn("totals cache read failed", zap.Error(err))
		} else if ok {
			cached.Source = TotalsFromCache
			return &cached, nil
		}
	}

	return s.Recompute(ctx, tenantID, companyID)
}

// Recompute derives totals from the company's deals and writes both caches.
func (s *TotalsService) Recompute(ctx context.Context, tenantID string, companyID uuid.UUID) (*Totals, error) {
	deals, err := db.FindDeals(s.DB, tenantID, db.DealFilter{CompanyID: companyID.String()})
	if err != nil {
		return nil, err
	}
	return s.store(ctx, tenantID, companyID, deals)
}

func (s *TotalsService) store(ctx context.Context, tenantID string, companyID uuid.UUID, deals []models.Deal) (*Totals, error) {
	log := logging.OrNop(s.Logger)

	open, closed, divisions := CompanyTotals(companyID.String(), deals, s.Mapper)
	if err := db.UpdateCompanyTotals(s.DB, tenantID, companyID, open, closed, divisions); err != nil {
		return nil, err
	}

	totals := &Totals{
		CompanyID: companyID.String(),
		Pipeline:  open,
		Closed:    closed,
		Source:    TotalsFromCompute,
	}
	if len(divisions) > 0 {
		totals.Divisions = divisions
	}

	if s.Cache != nil {
		if err := cache.SetJSON(ctx, s.Cache, totalsKey(tenantID, companyID), totals, s.TTL); err != nil {
			log.Warn("totals cache write failed", zap.Error(err))
		}
	}
	log.Debug("recomputed company totals",
		zap.String("tenant", tenantID),
		zap.String("company", companyID.String()),
		zap.Int("open_deals", open.DealCount),
		zap.Int("closed_deals", closed.DealCount))
	return totals, nil
}

// Invalidate drops cached totals for the companies a deal touches.
func (s *TotalsService) Invalidate(ctx context.Context, tenantID string, deal models.Deal) error {
	for _, id := range deal.CompanyIDs() {
		companyID, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		if err := db.ClearCompanyTotals(s.DB, tenantID, companyID); err != nil {
			return err
		}
		if s.Cache != nil {
			if err := s.Cache.Del(ctx, totalsKey(tenantID, companyID)); err != nil {
				logging.OrNop(s.Logger).Warn("totals cache delete failed", zap.Error(err))
			}
		}
	}
	return nil
}

// RecomputeAll refreshes totals for every company in the tenant.
func (s *TotalsService) RecomputeAll(ctx context.Context, tenantID string) (int, error) {
	companies, err := db.ListCompanies(s.DB, tenantID)
	if err != nil {
		return 0, err
	}
	deals, err := db.ListDeals(s.DB, tenantID)
	if err != nil {
		return 0, err
	}

	for i, c := range companies {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if _, err := s.store(ctx, tenantID, c.ID, deals); err != nil {
			return i, fmt.Errorf("failed to recompute totals for %s: %w", c.Name, err)
		}
	}
	return len(companies), nil
}
