// ABOUTME: Runs calendar sources concurrently and fans out the merged view
// ABOUTME: Slow subscribers only ever see the latest snapshot
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/harperreed/hirepipe/logging"
	"github.com/harperreed/hirepipe/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned by Run when the aggregator has already run.
var ErrClosed = errors.New("calendar aggregator closed")

// Aggregator merges every source into one view.
type Aggregator struct {
	sources []Source
	merger  *Merger
	logger  *zap.Logger

	mu      sync.Mutex
	subs    map[int]chan []models.CalendarEvent
	nextID  int
	started bool
	closed  bool
}

func NewAggregator(logger *zap.Logger, sources ...Source) *Aggregator {
	return &Aggregator{
		sources: sources,
		merger:  NewMerger(),
		logger:  logging.OrNop(logger),
		subs:    make(map[int]chan []models.CalendarEvent),
	}
}

// Run subscribes to every source until ctx is done or a source fails.
// Subscriber channels are closed when Run returns.
func (a *Aggregator) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return ErrClosed
	}
	a.started = true
	a.mu.Unlock()

	defer a.close()

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range a.sources {
		src := src
		g.Go(func() error {
			err := src.Subscribe(gctx, func(events []models.CalendarEvent) {
				a.merger.Apply(src.Type(), events)
				a.logger.Debug("calendar snapshot",
					zap.String("source", src.Type()),
					zap.Int("events", len(events)))
				a.broadcast()
			})
			if err != nil {
				return fmt.Errorf("calendar source %s: %w", src.Type(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Events returns the current merged view.
func (a *Aggregator) Events() []models.CalendarEvent {
	return a.merger.Events()
}

// Subscribe returns a channel that receives the merged view after every
// change, starting with the current view. Call cancel to unsubscribe.
func (a *Aggregator) Subscribe() (<-chan []models.CalendarEvent, func()) {
	ch := make(chan []models.CalendarEvent, 1)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		close(ch)
		return ch, func() {}
	}

	id := a.nextID
	a.nextID++
	a.subs[id] = ch
	ch <- a.merger.Events()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			if c, ok := a.subs[id]; ok {
				delete(a.subs, id)
				close(c)
			}
		})
	}
}

// broadcast reads the view under a.mu so a view taken before a later
// Apply can never be delivered after that Apply's own broadcast.
func (a *Aggregator) broadcast() {
	a.mu.Lock()
	defer a.mu.Unlock()

	view := a.merger.Events()
	for _, ch := range a.subs {
		select {
		case ch <- view:
		default:
			// Drop the stale view the subscriber has not read yet.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- view:
			default:
			}
		}
	}
}

func (a *Aggregator) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	for id, ch := range a.subs {
		close(ch)
		delete(a.subs, id)
	}
}
