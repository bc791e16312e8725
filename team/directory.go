// ABOUTME: Tenant salesperson directory backed by the users table
// ABOUTME: Memory and shared-cache layers with debounced reloads

package team

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/hirepipe/cache"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/debounce"
	"github.com/harperreed/hirepipe/logging"
	"github.com/harperreed/hirepipe/models"
	"go.uber.org/zap"
)

// DefaultTTL bounds how long the shared cache keeps a tenant's team.
const DefaultTTL = 10 * time.Minute

// Directory lists and resolves the salespeople of a tenant.
type Directory struct {
	db     *sql.DB
	shared cache.Store
	logger *zap.Logger
	ttl    time.Duration

	mu        sync.RWMutex
	teams     map[string][]models.Salesperson
	reloaders map[string]*debounce.Debouncer
	wait      time.Duration
}

// NewDirectory builds a directory. shared may be nil.
func NewDirectory(conn *sql.DB, shared cache.Store, logger *zap.Logger) *Directory {
	return &Directory{
		db:        conn,
		shared:    shared,
		logger:    logging.OrNop(logger),
		ttl:       DefaultTTL,
		teams:     make(map[string][]models.Salesperson),
		reloaders: make(map[string]*debounce.Debouncer),
		wait:      debounce.TeamReloadWait,
	}
}

func cacheKey(tenantID string) string {
	return "hirepipe:team:" + tenantID
}

// List returns the active salespeople for tenantID.
func (d *Directory) List(ctx context.Context, tenantID string) ([]models.Salesperson, error) {
	d.mu.RLock()
	team, ok := d.teams[tenantID]
	d.mu.RUnlock()
	if ok {
		return team, nil
	}

	if d.shared != nil {
		var cached []models.Salesperson
		hit, err := cache.GetJSON(ctx, d.shared, cacheKey(tenantID), &cached)
		if err != nil {
			d.logger.Warn("team cache read failed", zap.String("tenant", tenantID), zap.Error(err))
		} else if hit {
			d.store(tenantID, cached)
			return cached, nil
		}
	}

	return d.load(ctx, tenantID)
}

func (d *Directory) load(ctx context.Context, tenantID string) ([]models.Salesperson, error) {
	team, err := db.ListSalespeople(d.db, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load salespeople: %w", err)
	}
	if team == nil {
		team = []models.Salesperson{}
	}
	d.store(tenantID, team)

	if d.shared != nil {
		if err := cache.SetJSON(ctx, d.shared, cacheKey(tenantID), team, d.ttl); err != nil {
			d.logger.Warn("team cache write failed", zap.String("tenant", tenantID), zap.Error(err))
		}
	}
	d.logger.Debug("team loaded", zap.String("tenant", tenantID), zap.Int("salespeople", len(team)))
	return team, nil
}

func (d *Directory) store(tenantID string, team []models.Salesperson) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.teams[tenantID] = team
}

// RequestReload refreshes the tenant's team once requests stop arriving for
// the debounce window. Bursts of requests cause a single reload.
func (d *Directory) RequestReload(tenantID string) {
	d.mu.Lock()
	deb, ok := d.reloaders[tenantID]
	if !ok {
		deb = debounce.New(d.wait)
		d.reloaders[tenantID] = deb
	}
	d.mu.Unlock()

	deb.Trigger(func() {
		if err := d.Reload(context.Background(), tenantID); err != nil {
			d.logger.Warn("team reload failed", zap.String("tenant", tenantID), zap.Error(err))
		}
	})
}

// Reload drops every cached copy of the tenant's team and reads it again.
// On failure the previous team stays in memory.
func (d *Directory) Reload(ctx context.Context, tenantID string) error {
	if d.shared != nil {
		if err := d.shared.Del(ctx, cacheKey(tenantID)); err != nil {
			d.logger.Warn("team cache delete failed", zap.String("tenant", tenantID), zap.Error(err))
		}
	}
	_, err := d.load(ctx, tenantID)
	return err
}

// Flush runs any pending reloads immediately.
func (d *Directory) Flush() {
	d.mu.RLock()
	pending := make([]*debounce.Debouncer, 0, len(d.reloaders))
	for _, deb := range d.reloaders {
		pending = append(pending, deb)
	}
	d.mu.RUnlock()
	for _, deb := range pending {
		deb.Flush()
	}
}

// Close cancels pending reloads.
func (d *Directory) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, deb := range d.reloaders {
		deb.Stop()
	}
}

// Resolve fills in the name and email of a ref from the directory. Refs
// that already carry a name, or whose id is unknown, are returned unchanged.
func (d *Directory) Resolve(ctx context.Context, tenantID string, ref models.Ref) models.Ref {
	if ref.Name != "" || ref.Key() == "" {
		return ref
	}
	team, err := d.List(ctx, tenantID)
	if err != nil {
		d.logger.Warn("team lookup failed", zap.String("tenant", tenantID), zap.Error(err))
		return ref
	}
	for _, sp := range team {
		if sp.ID == ref.Key() {
			ref.Name = sp.Name
			if ref.Email == "" {
				ref.Email = sp.Email
			}
			return ref
		}
	}
	return ref
}

// ResolveAll resolves every ref in order.
func (d *Directory) ResolveAll(ctx context.Context, tenantID string, refs []models.Ref) []models.Ref {
	out := make([]models.Ref, len(refs))
	for i, r := range refs {
		out[i] = d.Resolve(ctx, tenantID, r)
	}
	return out
}
