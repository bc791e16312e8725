// ABOUTME: MCP server subcommand
// ABOUTME: Serves the CRM tools, resources and prompts over stdio
package cli

import (
	"context"

	"github.com/harperreed/hirepipe/handlers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// MCPCommand starts the MCP server on stdio. Logs go to stderr.
func MCPCommand(ctx context.Context, app *App, args []string) error {
	if _, err := app.user(); err != nil {
		app.Logger.Warn("no user configured, owner-scoped tools will return every record")
	}
	app.Logger.Info("starting MCP server",
		zap.String("tenant", app.tenant()),
		zap.String("version", handlers.Version))

	server := handlers.NewServer(app.Env(ctx))
	return server.Run(ctx, &mcp.StdioTransport{})
}
