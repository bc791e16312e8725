// ABOUTME: Pipeline stage CLI commands
// ABOUTME: Seeds the stock staffing funnel and shows how tenant stages map
package cli

import (
	"context"
	"flag"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/harperreed/hirepipe/db"
)

// SeedStagesCommand installs the default stages for a tenant with none.
func SeedStagesCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("seed-stages", flag.ExitOnError)
	_ = fs.Parse(args)

	n, err := db.SeedDefaultStages(app.DB, app.tenant())
	if err != nil {
		return fmt.Errorf("failed to seed stages: %w", err)
	}
	if n == 0 {
		fmt.Fprintln(app.Out, "Stages already configured, nothing seeded")
		return nil
	}
	fmt.Fprintf(app.Out, "✓ Seeded %d pipeline stage(s)\n", n)
	return nil
}

// ListStagesCommand lists tenant stages with the canonical stage each maps to.
func ListStagesCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("list-stages", flag.ExitOnError)
	_ = fs.Parse(args)

	engine, err := app.Engine()
	if err != nil {
		return err
	}
	if len(engine.Stages) == 0 {
		fmt.Fprintln(app.Out, "No stages configured. Run 'hirepipe crm seed-stages'.")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ORDER\tNAME\tPROB\tCANONICAL\tMATCH")
	_, _ = fmt.Fprintln(w, "-----\t----\t----\t---------\t-----")
	for _, s := range engine.Stages {
		canonical, kind := engine.Mapper.MapName(s.Name)
		_, _ = fmt.Fprintf(w, "%d\t%s\t%.0f%%\t%s\t%s\n", s.Order, s.Name, s.Probability, orDash(canonical), kind)
	}
	_ = w.Flush()

	terminal := engine.Mapper.TerminalAliases()
	if len(terminal) == 0 {
		return nil
	}
	aliases := make([]string, 0, len(terminal))
	for alias := range terminal {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	fmt.Fprintln(app.Out, "\nClosed/won/lost aliases (edit scoring.yaml to change):")
	for _, alias := range aliases {
		fmt.Fprintf(app.Out, "  %q -> %s\n", alias, terminal[alias])
	}
	return nil
}
