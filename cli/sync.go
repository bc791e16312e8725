// ABOUTME: Google sync CLI commands
// ABOUTME: Handles OAuth setup, calendar import and sync status
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/harperreed/hirepipe/pipeline"
	"github.com/harperreed/hirepipe/sync"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// oauthTimeout bounds how long sync init waits for the browser round trip.
const oauthTimeout = 5 * time.Minute

// SyncInitCommand runs the OAuth flow and saves the tenant's token.
func SyncInitCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("sync init", flag.ExitOnError)
	noBrowser := fs.Bool("no-browser", false, "Print the URL instead of opening a browser")
	_ = fs.Parse(args)

	config, err := sync.CheckCredentials()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, oauthTimeout)
	defer cancel()

	state := uuid.NewString()
	tokens := make(chan *oauth2.Token, 1)
	errs := make(chan error, 1)

	// Sends never block so Shutdown is not held up by a repeated callback.
	fail := func(err error) {
		select {
		case errs <- err:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			fail(fmt.Errorf("oauth state mismatch"))
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			fail(fmt.Errorf("no authorization code received"))
			return
		}
		token, err := config.Exchange(ctx, code)
		if err != nil {
			http.Error(w, "exchange failed", http.StatusBadGateway)
			fail(fmt.Errorf("failed to exchange code: %w", err))
			return
		}
		_, _ = fmt.Fprintf(w, "Authorization successful! You can close this window.")
		select {
		case tokens <- token:
		default:
		}
	})

	server := &http.Server{Addr: ":8080", Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail(err)
		}
	}()
	defer func() { _ = server.Shutdown(context.Background()) }()

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Fprintln(app.Out, "Opening browser for Google OAuth...")
	fmt.Fprintf(app.Out, "\nIf browser doesn't open, visit this URL:\n%s\n\n", authURL)
	if !*noBrowser {
		if err := openBrowser(authURL); err != nil {
			app.Logger.Debug("failed to open browser", zap.Error(err))
		}
	}

	select {
	case token := <-tokens:
		if err := sync.SaveToken(app.tenant(), token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		fmt.Fprintf(app.Out, "✓ Authenticated successfully\n")
		fmt.Fprintf(app.Out, "✓ Token saved to %s\n\n", sync.TokenPath(app.tenant()))
		fmt.Fprintln(app.Out, "Ready to sync! Run 'hirepipe sync calendar --initial' to import events.")
		return nil
	case err := <-errs:
		return fmt.Errorf("OAuth flow failed: %w", err)
	case <-ctx.Done():
		return fmt.Errorf("OAuth flow timed out: %w", ctx.Err())
	}
}

// SyncCalendarCommand imports Google Calendar events as activities and then
// refreshes activity signals on open deals.
func SyncCalendarCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("sync calendar", flag.ExitOnError)
	initial := fs.Bool("initial", false, "Full import (last 6 months)")
	signals := fs.Bool("signals", true, "Refresh deal activity signals after importing")
	_ = fs.Parse(args)

	token, err := sync.LoadToken(app.tenant())
	if err != nil {
		return fmt.Errorf("no authentication token found. Run 'hirepipe sync init' first: %w", err)
	}
	svc, err := sync.NewCalendarClient(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to create Calendar client: %w", err)
	}

	fmt.Fprintln(app.Out, "Syncing Google Calendar...")
	result, err := sync.ImportCalendar(ctx, app.DB, app.tenant(), svc, *initial, app.Logger)
	if err != nil {
		c := sync.Classify(err)
		app.Logger.Error("calendar sync failed", zap.String("code", c.Code), zap.Error(err))
		return fmt.Errorf("calendar sync failed: %s", c.Message)
	}

	mode := "full"
	if result.Incremental {
		mode = "incremental"
	}
	fmt.Fprintf(app.Out, "✓ %s sync: %d fetched, %d created, %d updated, %d deleted\n",
		mode, result.Fetched, result.Created, result.Updated, result.Deleted)
	if result.FellBack {
		fmt.Fprintln(app.Out, "  Sync token expired, fell back to a full import")
	}
	if len(result.Skipped) > 0 {
		reasons := make([]string, 0, len(result.Skipped))
		for r := range result.Skipped {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Fprintf(app.Out, "  Skipped %d: %s\n", result.Skipped[r], r)
		}
	}

	if !*signals {
		return nil
	}
	n, err := app.refreshOpenDealSignals()
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "✓ Refreshed activity signals on %d open deal(s)\n", n)
	return nil
}

func (a *App) refreshOpenDealSignals() (int, error) {
	engine, err := a.Engine()
	if err != nil {
		return 0, err
	}
	deals, err := db.ListDeals(a.DB, a.tenant())
	if err != nil {
		return 0, fmt.Errorf("failed to list deals: %w", err)
	}
	n := 0
	for _, d := range deals {
		if engine.Scorer.Score(d).Closed() {
			continue
		}
		if _, err := pipeline.RefreshSignals(a.DB, d, a.now()); err != nil {
			return n, fmt.Errorf("failed to refresh signals for %s: %w", d.ID, err)
		}
		n++
	}
	return n, nil
}

// SyncStatusCommand prints per-service sync state.
func SyncStatusCommand(ctx context.Context, app *App, args []string) error {
	states, err := db.GetAllSyncStates(app.DB, app.tenant())
	if err != nil {
		return fmt.Errorf("failed to read sync state: %w", err)
	}

	if _, err := sync.LoadToken(app.tenant()); err != nil {
		fmt.Fprintln(app.Out, "Google: not connected (run 'hirepipe sync init')")
	} else {
		fmt.Fprintf(app.Out, "Google: connected (%s)\n", sync.TokenPath(app.tenant()))
	}
	if len(states) == 0 {
		fmt.Fprintln(app.Out, "No syncs have run yet")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "\nSERVICE\tSTATUS\tLAST SYNC\tERROR")
	for _, s := range states {
		last := "never"
		if s.LastSyncTime != nil {
			last = s.LastSyncTime.Local().Format("2006-01-02 15:04")
		}
		msg := "-"
		if s.Status == models.SyncStatusError && s.ErrorMessage != nil {
			msg = *s.ErrorMessage
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Service, orDash(s.Status), last, msg)
	}
	return w.Flush()
}

// openBrowser attempts to open URL in default browser
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		cmd = "xdg-open"
		args = []string{url}
	}

	return exec.Command(cmd, args...).Start()
}
