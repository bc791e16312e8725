// ABOUTME: Deal CLI commands
// ABOUTME: Adding, listing and scoring deals with value ranges and health
package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/harperreed/hirepipe/pipeline"
	"go.uber.org/zap"
)

var healthStyles = map[string]lipgloss.Style{
	pipeline.HealthGreen:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	pipeline.HealthYellow: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	pipeline.HealthRed:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	pipeline.HealthClosed: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
}

// healthLabel colours the health name when writing to a terminal.
func (a *App) healthLabel(health string) string {
	if !a.Interactive {
		return health
	}
	if style, ok := healthStyles[health]; ok {
		return style.Render(health)
	}
	return health
}

// optFloat returns nil for a negative sentinel so unset flags stay unset.
func optFloat(v float64) *float64 {
	if v < 0 {
		return nil
	}
	return &v
}

// AddDealCommand adds a new deal linked to a company.
func AddDealCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("add-deal", flag.ExitOnError)
	name := fs.String("name", "", "Deal name (required)")
	company := fs.String("company", "", "Company name (required, created if missing)")
	stage := fs.String("stage", "Discovery", "Stage as the tenant names it")
	contact := fs.String("contact", "", "Email of an existing contact to link")
	revenue := fs.Float64("revenue", -1, "Flat revenue estimate in dollars")
	probability := fs.Float64("probability", -1, "Explicit win probability (0-100)")
	closeDate := fs.String("close", "", "Expected close date (YYYY-MM-DD)")
	division := fs.String("division", "", "Company division id")
	payRate := fs.Float64("pay-rate", -1, "Expected average hourly pay rate")
	markup := fs.Float64("markup", -1, "Expected average markup percent (e.g. 40)")
	starting := fs.Float64("start", -1, "Placed headcount at start")
	d30 := fs.Float64("d30", -1, "Placed headcount after 30 days")
	d90 := fs.Float64("d90", -1, "Placed headcount after 90 days")
	d180 := fs.Float64("d180", -1, "Placed headcount after 180 days")
	owner := fs.String("owner", "", "Salesperson id (default: current user)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*name) == "" {
		return fmt.Errorf("--name is required")
	}
	if strings.TrimSpace(*company) == "" {
		return fmt.Errorf("--company is required")
	}
	if *probability > 100 {
		return fmt.Errorf("--probability must be between 0 and 100")
	}

	deal := &models.Deal{
		TenantID:         app.tenant(),
		Name:             *name,
		Stage:            *stage,
		EstimatedRevenue: optFloat(*revenue),
		Probability:      optFloat(*probability),
		DivisionID:       *division,
	}
	if *closeDate != "" {
		t, err := time.Parse("2006-01-02", *closeDate)
		if err != nil {
			return fmt.Errorf("invalid --close date: %w", err)
		}
		deal.CloseDate = &t
	}

	q := &models.QualificationData{
		ExpectedAveragePayRate: optFloat(*payRate),
		ExpectedAverageMarkup:  optFloat(*markup),
	}
	timeline := &models.PlacementTimeline{
		Starting:     optFloat(*starting),
		After30Days:  optFloat(*d30),
		After90Days:  optFloat(*d90),
		After180Days: optFloat(*d180),
	}
	if timeline.Starting != nil || timeline.After30Days != nil || timeline.After90Days != nil || timeline.After180Days != nil {
		q.StaffPlacementTimeline = timeline
	}
	if q.ExpectedAveragePayRate != nil || q.ExpectedAverageMarkup != nil || q.StaffPlacementTimeline != nil {
		deal.StageData = &models.StageData{Qualification: q}
	}

	c, err := app.findOrCreateCompany(*company)
	if err != nil {
		return err
	}
	deal.Associations.Companies = []models.Ref{models.IDRef(c.ID.String())}
	deal.Associations.Salespeople = app.salespersonRefs(ctx, *owner)

	if *contact != "" {
		linked, err := db.GetContactByEmail(app.DB, app.tenant(), *contact)
		if err != nil {
			return fmt.Errorf("failed to lookup contact: %w", err)
		}
		if linked == nil {
			return fmt.Errorf("no contact with email %s", *contact)
		}
		deal.Associations.Contacts = []models.Ref{models.IDRef(linked.ID.String())}
	}

	if err := db.CreateDeal(app.DB, deal); err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}

	engine, err := app.Engine()
	if err != nil {
		return err
	}
	if err := app.Totals(engine).Invalidate(ctx, app.tenant(), *deal); err != nil {
		app.Logger.Warn("failed to invalidate company totals", zap.Error(err))
	}

	view := engine.View(*deal)
	fmt.Fprintf(app.Out, "✓ Deal created: %s (ID: %s)\n", deal.Name, deal.ID)
	fmt.Fprintf(app.Out, "  Company: %s\n", c.Name)
	fmt.Fprintf(app.Out, "  Stage:   %s\n", deal.Stage)
	fmt.Fprintf(app.Out, "  Value:   %s\n", view.Value)
	return nil
}

// ListDealsCommand lists deals with value and health. --ranked orders open
// deals by adjusted probability.
func ListDealsCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("list-deals", flag.ExitOnError)
	stage := fs.String("stage", "", "Filter by stage")
	company := fs.String("company", "", "Filter by company name")
	mine := fs.Bool("mine", false, "Only deals associated with the current user")
	owner := fs.String("owner", "", "Only deals associated with this salesperson")
	ranked := fs.Bool("ranked", false, "Open deals only, highest probability first")
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	ownerID, err := app.ownerFilter(*mine, *owner)
	if err != nil {
		return err
	}

	filter := db.DealFilter{Stage: *stage, OwnerID: ownerID}
	if *company != "" {
		c, err := app.lookupCompany(*company)
		if err != nil {
			return err
		}
		filter.CompanyID = c.ID.String()
	}
	if !*ranked {
		filter.Limit = *limit
	}

	deals, err := db.FindDeals(app.DB, app.tenant(), filter)
	if err != nil {
		return fmt.Errorf("failed to find deals: %w", err)
	}

	engine, err := app.Engine()
	if err != nil {
		return err
	}

	var rows []pipeline.ScoredDeal
	if *ranked {
		rows = engine.Scorer.Rank(deals)
		if len(rows) > *limit {
			rows = rows[:*limit]
		}
	} else {
		for _, d := range deals {
			rows = append(rows, pipeline.ScoredDeal{Deal: d, Score: engine.Scorer.Score(d)})
		}
	}

	if len(rows) == 0 {
		fmt.Fprintln(app.Out, "No deals found")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSTAGE\tCANONICAL\tVALUE\tPROB\tHEALTH\tID")
	_, _ = fmt.Fprintln(w, "----\t-----\t---------\t-----\t----\t------\t--")
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f%%\t%s\t%s\n",
			r.Deal.Name, orDash(r.Deal.Stage), r.Score.Stage,
			pipeline.FormatEstimate(pipeline.EstimateValue(r.Deal)),
			r.Score.Probability, app.healthLabel(r.Score.Health), shortID(r.Deal.ID.String()))
	}
	_ = w.Flush()

	fmt.Fprintf(app.Out, "\nTotal: %d deal(s)\n", len(rows))
	return nil
}

// ScoreDealCommand prints the score breakdown for one deal.
func ScoreDealCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("score-deal", flag.ExitOnError)
	refresh := fs.Bool("refresh", false, "Recount the deal's activity signals first")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("deal ID is required")
	}
	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid deal ID: %w", err)
	}
	deal, err := db.GetDeal(app.DB, app.tenant(), id)
	if err != nil {
		return fmt.Errorf("failed to get deal: %w", err)
	}
	if deal == nil {
		return fmt.Errorf("deal not found: %s", id)
	}

	if *refresh {
		refreshed, err := pipeline.RefreshSignals(app.DB, *deal, app.now())
		if err != nil {
			return fmt.Errorf("failed to refresh signals: %w", err)
		}
		deal = &refreshed
	}

	engine, err := app.Engine()
	if err != nil {
		return err
	}
	view := engine.View(*deal)
	s := view.Score

	fmt.Fprintf(app.Out, "%s\n", deal.Name)
	fmt.Fprintf(app.Out, "  Stage:          %s -> %s\n", orDash(deal.Stage), s.Stage)
	fmt.Fprintf(app.Out, "  Value:          %s\n", view.Value)
	fmt.Fprintf(app.Out, "  Base:           %.0f%%\n", s.BaseProbability)
	fmt.Fprintf(app.Out, "  Activity bonus: %+.0f\n", s.ActivityBonus)
	fmt.Fprintf(app.Out, "  Probability:    %.0f%%\n", s.Probability)
	if s.DaysSinceUpdate >= 0 {
		fmt.Fprintf(app.Out, "  Last touched:   %d day(s) ago\n", s.DaysSinceUpdate)
	} else {
		fmt.Fprintln(app.Out, "  Last touched:   never")
	}
	fmt.Fprintf(app.Out, "  Health:         %s\n", app.healthLabel(s.Health))
	return nil
}
