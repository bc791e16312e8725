// ABOUTME: Web dashboard command
// ABOUTME: Serves the read-only dashboard until interrupted
package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/harperreed/hirepipe/session"
	"github.com/harperreed/hirepipe/web"
	"go.uber.org/zap"
)

// WebCommand starts the web dashboard. Navigation state is kept in the
// session store when an acting user is set.
func WebCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("web", flag.ExitOnError)
	port := fs.Int("port", app.Config.WebPort, "Port to listen on")
	_ = fs.Parse(args)

	var store *session.Store
	if app.Config.UserID != "" {
		s, err := app.Sessions()
		if err != nil {
			app.Logger.Warn("session store unavailable, navigation will not persist", zap.Error(err))
		} else {
			store = s
		}
	}

	server, err := web.NewServer(app.Env(ctx), store)
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	fmt.Fprintf(app.Out, "Serving dashboard on http://localhost:%d (Ctrl+C to stop)\n", *port)
	return server.Start(ctx, *port)
}
