// ABOUTME: Per-source calendar snapshot merging
// ABOUTME: Each source replaces only its own events; no cross-source de-duplication
package calendar

import (
	"sort"
	"sync"

	"github.com/harperreed/hirepipe/models"
)

// Merger holds the latest snapshot from each source. Safe for concurrent use.
type Merger struct {
	mu       sync.RWMutex
	bySource map[string][]models.CalendarEvent
}

func NewMerger() *Merger {
	return &Merger{bySource: make(map[string][]models.CalendarEvent)}
}

// Apply replaces every event previously held for source with events.
// Events are tagged with the source type and given its colour when unset.
func (m *Merger) Apply(source string, events []models.CalendarEvent) {
	snapshot := make([]models.CalendarEvent, len(events))
	for i, ev := range events {
		ev.Type = source
		if ev.Color == "" {
			ev.Color = ColorFor(source)
		}
		snapshot[i] = ev
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.bySource[source] = snapshot
}

// Events returns the merged view ordered by start time, then id.
func (m *Merger) Events() []models.CalendarEvent {
	m.mu.RLock()
	var out []models.CalendarEvent
	for _, evs := range m.bySource {
		out = append(out, evs...)
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns how many events source currently holds.
func (m *Merger) Count(source string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bySource[source])
}
