// ABOUTME: One-shot merged calendar read for callers that do not stream
// ABOUTME: Fetches every source concurrently and drops the ones that fail
package calendar

import (
	"context"
	"database/sql"

	"github.com/harperreed/hirepipe/logging"
	"github.com/harperreed/hirepipe/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Fetcher is a Source that can also be read once.
type Fetcher interface {
	Source
	Fetch(ctx context.Context) ([]models.CalendarEvent, error)
}

// Snapshot reads every source once and returns the merged view. A failing
// source is logged and left out, the same way the live view treats it.
func Snapshot(ctx context.Context, logger *zap.Logger, sources ...Fetcher) ([]models.CalendarEvent, error) {
	log := logging.OrNop(logger)
	merger := NewMerger()

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			events, err := src.Fetch(gctx)
			if err != nil {
				log.Warn("calendar source unavailable", zap.String("source", src.Type()), zap.Error(err))
				return nil
			}
			merger.Apply(src.Type(), events)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return merger.Events(), nil
}

// StandardSources builds the appointment, synced-activity and Google
// sources over one window. google may be nil.
func StandardSources(conn *sql.DB, tenantID, userID string, google EventLister, window WindowFunc, logger *zap.Logger) []Fetcher {
	sources := []Fetcher{
		&TaskSource{DB: conn, TenantID: tenantID, UserID: userID, Window: window, Logger: logger},
		&ActivitySource{DB: conn, TenantID: tenantID, Window: window, Logger: logger},
	}
	if google != nil {
		sources = append(sources, &GoogleSource{List: google, Window: window, Logger: logger})
	}
	return sources
}

// AsSources widens fetchers for NewAggregator.
func AsSources(fetchers []Fetcher) []Source {
	out := make([]Source, len(fetchers))
	for i, f := range fetchers {
		out[i] = f
	}
	return out
}
