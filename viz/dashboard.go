// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Funnel bars by canonical stage, health counts and accounts needing attention
package viz

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/harperreed/hirepipe/pipeline"
)

// StaleContactDays is how long without contact before a contact needs attention.
const StaleContactDays = 30

type DashboardStats struct {
	Funnel []pipeline.FunnelBucket
	Health map[string]int

	OpenLow  float64
	OpenHigh float64
	Closed   float64

	TotalContacts  int
	TotalCompanies int
	TotalDeals     int

	StaleContacts []StaleContact
	RedDeals      []RedDeal
}

type StaleContact struct {
	Name string
	// DaysSince is -1 for contacts never reached.
	DaysSince int
}

type RedDeal struct {
	Name        string
	Stage       string
	Value       string
	Probability float64
	DaysSince   int
}

// GenerateDashboardStats gathers the dashboard for one tenant. ownerID, when
// set, limits every section to that salesperson's records.
func GenerateDashboardStats(database *sql.DB, tenantID, ownerID string, engine *pipeline.Engine, now time.Time) (*DashboardStats, error) {
	deals, err := db.FindDeals(database, tenantID, db.DealFilter{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	companies, err := db.ListCompanies(database, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch companies: %w", err)
	}
	contacts, err := db.ListContacts(database, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}
	if ownerID != "" {
		contacts = models.ContactsForUser(contacts, companies, ownerID)
		companies = models.FilterByUser(companies, ownerID)
	}

	stats := &DashboardStats{
		Funnel:         pipeline.Funnel(deals, engine.Mapper),
		Health:         engine.HealthCounts(deals),
		TotalContacts:  len(contacts),
		TotalCompanies: len(companies),
		TotalDeals:     len(deals),
	}

	for _, d := range deals {
		stage, _ := engine.Mapper.Map(d)
		low, high := pipeline.ValueForPipeline(d)
		switch {
		case engine.Mapper.IsWon(stage):
			stats.Closed += high
		case engine.Mapper.IsLost(stage):
		default:
			stats.OpenLow += low
			stats.OpenHigh += high
		}

		view := engine.View(d)
		if view.Score.Health == pipeline.HealthRed {
			stats.RedDeals = append(stats.RedDeals, RedDeal{
				Name:        d.Name,
				Stage:       view.Score.Stage,
				Value:       view.Value,
				Probability: view.Score.Probability,
				DaysSince:   view.Score.DaysSinceUpdate,
			})
		}
	}
	sort.SliceStable(stats.RedDeals, func(i, j int) bool {
		return stats.RedDeals[i].DaysSince > stats.RedDeals[j].DaysSince
	})

	for _, contact := range contacts {
		if !contact.IsActive {
			continue
		}
		if contact.LastContactedAt == nil {
			stats.StaleContacts = append(stats.StaleContacts, StaleContact{Name: contact.DisplayName(), DaysSince: -1})
			continue
		}
		days := int(now.Sub(*contact.LastContactedAt).Hours() / 24)
		if days > StaleContactDays {
			stats.StaleContacts = append(stats.StaleContacts, StaleContact{Name: contact.DisplayName(), DaysSince: days})
		}
	}

	return stats, nil
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  HIREPIPE DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("PIPELINE FUNNEL\n")
	RenderFunnel(&out, stats.Funnel)
	fmt.Fprintf(&out, "\n  Open: %s   Closed: %s\n\n",
		pipeline.FormatEstimate(pipeline.ValueEstimate{Kind: pipeline.EstimateRange, Min: stats.OpenLow, Max: stats.OpenHigh}),
		pipeline.FormatDollars(stats.Closed))

	out.WriteString("HEALTH\n")
	fmt.Fprintf(&out, "  🟢 %d  🟡 %d  🔴 %d  ⚪ %d closed\n\n",
		stats.Health[pipeline.HealthGreen], stats.Health[pipeline.HealthYellow],
		stats.Health[pipeline.HealthRed], stats.Health[pipeline.HealthClosed])

	out.WriteString("STATS\n")
	fmt.Fprintf(&out, "  📇 %d contacts  🏢 %d companies  💼 %d deals\n\n",
		stats.TotalContacts, stats.TotalCompanies, stats.TotalDeals)

	if len(stats.StaleContacts) > 0 || len(stats.RedDeals) > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		if len(stats.StaleContacts) > 0 {
			fmt.Fprintf(&out, "  ⚠️  %d contacts - no contact in %d+ days\n", len(stats.StaleContacts), StaleContactDays)
		}
		for _, d := range stats.RedDeals {
			age := "never touched"
			if d.DaysSince >= 0 {
				age = fmt.Sprintf("%dd", d.DaysSince)
			}
			fmt.Fprintf(&out, "  🔴 %-24s %-18s %s (%s)\n", d.Name, d.Stage, d.Value, age)
		}
	}

	return out.String()
}

// RenderFunnel draws one bar per stage, scaled to the largest count.
func RenderFunnel(out *strings.Builder, buckets []pipeline.FunnelBucket) {
	maxCount := 0
	for _, b := range buckets {
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, b := range buckets {
		barLength := (b.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		value := pipeline.FormatEstimate(pipeline.ValueEstimate{Kind: pipeline.EstimateRange, Min: b.Low, Max: b.High})
		if b.Count == 0 {
			value = "-"
		}
		fmt.Fprintf(out, "  %-17s %s  %2d  %s\n", b.Stage, bar, b.Count, value)
	}
}
