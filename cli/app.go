// ABOUTME: Shared command context for the CLI
// ABOUTME: Opens the database, cache and team directory once per invocation
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/harperreed/hirepipe/cache"
	"github.com/harperreed/hirepipe/calendar"
	"github.com/harperreed/hirepipe/config"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/handlers"
	"github.com/harperreed/hirepipe/logging"
	"github.com/harperreed/hirepipe/models"
	"github.com/harperreed/hirepipe/pipeline"
	"github.com/harperreed/hirepipe/session"
	"github.com/harperreed/hirepipe/sync"
	"github.com/harperreed/hirepipe/team"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// ErrNoTenant is returned when neither --tenant nor HIREPIPE_TENANT is set.
var ErrNoTenant = errors.New("tenant is required (use --tenant or HIREPIPE_TENANT)")

// ErrNoUser is returned by commands that act on behalf of a salesperson.
var ErrNoUser = errors.New("user is required (use --user or HIREPIPE_USER)")

// App is what every command receives.
type App struct {
	Config *config.Config
	DB     *sql.DB
	Logger *zap.Logger
	Cache  cache.Store
	Team   *team.Directory
	Out    io.Writer
	// Interactive is true when stdout is a terminal.
	Interactive bool
	Now         func() time.Time

	sessions *session.Store
	closers  []func() error
}

// Open wires the application from cfg.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg.TenantID == "" {
		return nil, ErrNoTenant
	}
	logger = logging.OrNop(logger)

	database, err := db.OpenDatabase(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.EnsureTenant(database, cfg.TenantID, ""); err != nil {
		_ = database.Close()
		return nil, err
	}

	app := &App{
		Config:      cfg,
		DB:          database,
		Logger:      logger,
		Out:         os.Stdout,
		Interactive: term.IsTerminal(int(os.Stdout.Fd())),
		Now:         time.Now,
	}
	app.closers = append(app.closers, database.Close)

	if cfg.RedisAddr != "" {
		r, err := cache.NewRedis(ctx, cache.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}, logger)
		if err != nil {
			logger.Warn("redis unavailable, using in-process cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			app.Cache = cache.NewMemory()
		} else {
			app.Cache = r
			app.closers = append(app.closers, r.Close)
		}
	} else {
		app.Cache = cache.NewMemory()
	}

	app.Team = team.NewDirectory(database, app.Cache, logger)
	app.closers = append(app.closers, func() error {
		app.Team.Flush()
		app.Team.Close()
		return nil
	})
	return app, nil
}

// Close releases everything Open acquired, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) tenant() string { return a.Config.TenantID }

func (a *App) user() (string, error) {
	if a.Config.UserID == "" {
		return "", ErrNoUser
	}
	return a.Config.UserID, nil
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Engine loads the tenant's stage mapper and scorer.
func (a *App) Engine() (*pipeline.Engine, error) {
	return pipeline.LoadEngine(a.DB, a.tenant(), a.Config.Health, a.Config.Stages, a.Now)
}

// Totals returns the company totals service.
func (a *App) Totals(engine *pipeline.Engine) *pipeline.TotalsService {
	return &pipeline.TotalsService{DB: a.DB, Cache: a.Cache, Mapper: engine.Mapper, Logger: a.Logger, TTL: time.Hour}
}

// GoogleLister returns a live Google Calendar lister when the tenant has a
// saved token, or nil.
func (a *App) GoogleLister(ctx context.Context) calendar.EventLister {
	token, err := sync.LoadToken(a.tenant())
	if err != nil {
		a.Logger.Debug("no google token, calendar view limited to CRM events", zap.Error(err))
		return nil
	}
	svc, err := sync.NewCalendarClient(ctx, token)
	if err != nil {
		a.Logger.Warn("google calendar client failed", zap.Error(err))
		return nil
	}
	return sync.Lister(&sync.ServiceAPI{Service: svc})
}

// Env builds the shared handler environment for the MCP server and web UI.
func (a *App) Env(ctx context.Context) *handlers.Env {
	env := a.baseEnv()
	env.Google = a.GoogleLister(ctx)
	return env
}

// baseEnv leaves Google out for commands that never read the calendar.
func (a *App) baseEnv() *handlers.Env {
	return &handlers.Env{
		DB:       a.DB,
		TenantID: a.tenant(),
		UserID:   a.Config.UserID,
		Health:   a.Config.Health,
		Stages:   a.Config.Stages,
		Cache:    a.Cache,
		Team:     a.Team,
		Logger:   a.Logger,
		Now:      a.Now,
	}
}

// Sessions opens the session store once: charm when a host is configured,
// otherwise a local badger directory.
func (a *App) Sessions() (*session.Store, error) {
	if a.sessions != nil {
		return a.sessions, nil
	}
	if a.Config.CharmHost != "" {
		kv, err := session.OpenCharm(a.Config.CharmHost, true)
		if err != nil {
			return nil, err
		}
		a.sessions = session.NewStore(kv)
		return a.sessions, nil
	}
	kv, err := session.OpenBadger(a.Config.SessionDir)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, kv.Close)
	a.sessions = session.NewStore(kv)
	return a.sessions, nil
}

// ownerFilter returns the user id when mine is set.
func (a *App) ownerFilter(mine bool, owner string) (string, error) {
	if owner != "" {
		return owner, nil
	}
	if !mine {
		return "", nil
	}
	return a.user()
}

// salespersonRefs resolves owner (or the current user) into an association entry.
func (a *App) salespersonRefs(ctx context.Context, owner string) []models.Ref {
	if owner == "" {
		owner = a.Config.UserID
	}
	if owner == "" {
		return nil
	}
	ref := a.Team.Resolve(ctx, a.tenant(), models.IDRef(owner))
	if ref.Name != "" {
		ref.Kind = models.RefObject
	}
	return []models.Ref{ref}
}

func (a *App) findOrCreateCompany(name string) (*models.Company, error) {
	company, err := db.FindCompanyByName(a.DB, a.tenant(), name)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup company: %w", err)
	}
	if company != nil {
		return company, nil
	}
	company = &models.Company{TenantID: a.tenant(), Name: name}
	if err := db.CreateCompany(a.DB, company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	fmt.Fprintf(a.Out, "  Created company: %s\n", company.Name)
	return company, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
