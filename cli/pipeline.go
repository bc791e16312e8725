// ABOUTME: Pipeline CLI commands
// ABOUTME: Terminal funnel dashboard and graphviz pipeline and account graphs
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/harperreed/hirepipe/handlers"
	"github.com/harperreed/hirepipe/viz"
)

// PipelineFunnelCommand prints the funnel, health counts and deals that need
// attention. --json prints the same structure the MCP tool returns.
func PipelineFunnelCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("pipeline funnel", flag.ExitOnError)
	mine := fs.Bool("mine", false, "Only deals associated with the current user")
	owner := fs.String("owner", "", "Only deals associated with this salesperson")
	asJSON := fs.Bool("json", false, "Print JSON instead of the dashboard")
	_ = fs.Parse(args)

	ownerID, err := app.ownerFilter(*mine, *owner)
	if err != nil {
		return err
	}

	if *asJSON {
		h := handlers.NewPipelineHandlers(app.baseEnv())
		_, out, err := h.PipelineFunnel(ctx, nil, handlers.FunnelInput{OwnerID: ownerID})
		if err != nil {
			return err
		}
		enc := json.NewEncoder(app.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	engine, err := app.Engine()
	if err != nil {
		return err
	}
	stats, err := viz.GenerateDashboardStats(app.DB, app.tenant(), ownerID, engine, app.now())
	if err != nil {
		return fmt.Errorf("failed to build dashboard: %w", err)
	}
	fmt.Fprint(app.Out, viz.RenderDashboard(stats))
	return nil
}

// PipelineGraphCommand writes a graphviz rendering of the funnel or of
// accounts and their deals.
func PipelineGraphCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("pipeline graph", flag.ExitOnError)
	kind := fs.String("kind", "pipeline", "Graph kind: pipeline or accounts")
	mine := fs.Bool("mine", false, "Only deals associated with the current user")
	owner := fs.String("owner", "", "Only deals associated with this salesperson")
	output := fs.String("output", "", "Output file (default: stdout)")
	_ = fs.Parse(args)

	ownerID, err := app.ownerFilter(*mine, *owner)
	if err != nil {
		return err
	}
	engine, err := app.Engine()
	if err != nil {
		return err
	}
	generator := viz.NewGraphGenerator(app.DB, app.tenant(), engine)

	var dot string
	switch *kind {
	case "pipeline":
		dot, err = generator.GeneratePipelineGraph(ownerID)
	case "accounts":
		dot, err = generator.GenerateAccountGraph(ownerID)
	default:
		return fmt.Errorf("unknown graph kind %q (want pipeline or accounts)", *kind)
	}
	if err != nil {
		return err
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(dot), 0644)
	}
	fmt.Fprintln(app.Out, dot)
	return nil
}
