// ABOUTME: Company CLI commands
// ABOUTME: Adding, listing and pipeline totals for client companies
package cli

import (
	"context"
	"flag"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/harperreed/hirepipe/pipeline"
)

// AddCompanyCommand adds a new company.
func AddCompanyCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("add-company", flag.ExitOnError)
	name := fs.String("name", "", "Company name (required)")
	domain := fs.String("domain", "", "Company domain (e.g., acme.com)")
	industry := fs.String("industry", "", "Industry")
	state := fs.String("state", "", "Company state (e.g. prospect, client)")
	notes := fs.String("notes", "", "Notes about company")
	owner := fs.String("owner", "", "Salesperson id (default: current user)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*name) == "" {
		return fmt.Errorf("--name is required")
	}

	existing, err := db.FindCompanyByName(app.DB, app.tenant(), *name)
	if err != nil {
		return fmt.Errorf("failed to lookup company: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("company %q already exists (ID: %s)", existing.Name, existing.ID)
	}

	company := &models.Company{
		TenantID: app.tenant(),
		Name:     *name,
		Domain:   *domain,
		Industry: *industry,
		State:    *state,
		Notes:    *notes,
	}
	company.Associations.Salespeople = app.salespersonRefs(ctx, *owner)

	if err := db.CreateCompany(app.DB, company); err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}

	fmt.Fprintf(app.Out, "✓ Company created: %s (ID: %s)\n", company.Name, company.ID)
	if company.Domain != "" {
		fmt.Fprintf(app.Out, "  Domain: %s\n", company.Domain)
	}
	return nil
}

// ListCompaniesCommand lists companies with their cached pipeline range.
func ListCompaniesCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("list-companies", flag.ExitOnError)
	query := fs.String("query", "", "Search by name or domain")
	state := fs.String("state", "", "Filter by company state")
	mine := fs.Bool("mine", false, "Only companies associated with the current user")
	owner := fs.String("owner", "", "Only companies associated with this salesperson")
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	ownerID, err := app.ownerFilter(*mine, *owner)
	if err != nil {
		return err
	}

	companies, err := db.FindCompanies(app.DB, app.tenant(), db.CompanyFilter{
		Query: *query, State: *state, OwnerID: ownerID, Limit: *limit,
	})
	if err != nil {
		return fmt.Errorf("failed to find companies: %w", err)
	}
	if len(companies) == 0 {
		fmt.Fprintln(app.Out, "No companies found")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tDOMAIN\tSTATE\tPIPELINE\tOWNERS\tID")
	_, _ = fmt.Fprintln(w, "----\t------\t-----\t--------\t------\t--")
	for _, c := range companies {
		value := "-"
		if c.PipelineValue != nil {
			value = formatRange(c.PipelineValue.Low, c.PipelineValue.High)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Name, orDash(c.Domain), orDash(c.State), value,
			orDash(strings.Join(models.OwnerIDs(c), ",")), shortID(c.ID.String()))
	}
	_ = w.Flush()

	fmt.Fprintf(app.Out, "\nTotal: %d company(ies)\n", len(companies))
	return nil
}

// CompanyTotalsCommand prints a company's open and closed pipeline value.
// With --all every company is recomputed.
func CompanyTotalsCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("company-totals", flag.ExitOnError)
	recompute := fs.Bool("recompute", false, "Ignore cached totals and recompute from deals")
	all := fs.Bool("all", false, "Recompute totals for every company")
	_ = fs.Parse(args)

	engine, err := app.Engine()
	if err != nil {
		return err
	}
	svc := app.Totals(engine)

	if *all {
		n, err := svc.RecomputeAll(ctx, app.tenant())
		if err != nil {
			return fmt.Errorf("failed to recompute totals: %w", err)
		}
		fmt.Fprintf(app.Out, "✓ Recomputed totals for %d company(ies)\n", n)
		return nil
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("company ID or name is required")
	}
	company, err := app.lookupCompany(fs.Arg(0))
	if err != nil {
		return err
	}

	var totals *pipeline.Totals
	if *recompute {
		totals, err = svc.Recompute(ctx, app.tenant(), company.ID)
	} else {
		totals, err = svc.Get(ctx, app.tenant(), company.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to compute totals: %w", err)
	}

	fmt.Fprintf(app.Out, "%s (%s)\n", company.Name, totals.Source)
	fmt.Fprintf(app.Out, "  Open pipeline: %s across %d deal(s)\n",
		formatRange(totals.Pipeline.Low, totals.Pipeline.High), totals.Pipeline.DealCount)
	fmt.Fprintf(app.Out, "  Closed:        %s across %d deal(s)\n",
		pipeline.FormatDollars(totals.Closed.Total), totals.Closed.DealCount)

	if len(totals.Divisions) > 0 {
		divs := make([]string, 0, len(totals.Divisions))
		for id := range totals.Divisions {
			divs = append(divs, id)
		}
		sort.Strings(divs)
		fmt.Fprintln(app.Out, "  Divisions:")
		for _, id := range divs {
			v := totals.Divisions[id]
			fmt.Fprintf(app.Out, "    %s: %s (%d)\n", id, formatRange(v.Low, v.High), v.DealCount)
		}
	}
	return nil
}

// lookupCompany accepts a UUID or an exact company name.
func (a *App) lookupCompany(ref string) (*models.Company, error) {
	if id, err := uuid.Parse(ref); err == nil {
		c, err := db.GetCompany(a.DB, a.tenant(), id)
		if err != nil {
			return nil, fmt.Errorf("failed to get company: %w", err)
		}
		if c == nil {
			return nil, fmt.Errorf("company not found: %s", ref)
		}
		return c, nil
	}
	c, err := db.FindCompanyByName(a.DB, a.tenant(), ref)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup company: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("company not found: %s", ref)
	}
	return c, nil
}

func formatRange(low, high float64) string {
	if low == high {
		return pipeline.FormatDollars(low)
	}
	return pipeline.FormatDollars(low) + " - " + pipeline.FormatDollars(high)
}
