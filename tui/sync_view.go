// ABOUTME: TUI view for Google Calendar sync status and controls
// ABOUTME: Displays per-service sync state and runs an incremental calendar import
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/harperreed/hirepipe/sync"
	"go.uber.org/zap"
)

var (
	syncHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Underline(true)

	syncServiceStyle = lipgloss.NewStyle().
				Bold(true).
				Width(12)

	syncIdleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	syncSyncingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)

	syncMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true)
)

// syncTimeout bounds one calendar import started from the TUI.
const syncTimeout = 2 * time.Minute

// SyncCompleteMsg is sent when a sync operation completes.
type SyncCompleteMsg struct {
	Result *sync.ImportResult
	Error  error
}

func (m Model) renderSyncView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Google Calendar Sync"))
	s.WriteString("\n\n")

	if len(m.syncStates) == 0 {
		s.WriteString(syncMessageStyle.Render("No sync data found. Run 'hirepipe sync init' first."))
		s.WriteString("\n\n")
	} else {
		s.WriteString(syncHeaderStyle.Render("Service Status"))
		s.WriteString("\n\n")
		for _, state := range m.syncStates {
			s.WriteString(m.renderSyncRow(state))
			s.WriteString("\n")
		}
		s.WriteString("\n")
	}

	if m.syncInProgress {
		s.WriteString(syncSyncingStyle.Render("⟳ Syncing calendar..."))
		s.WriteString("\n\n")
	} else if m.syncMessage != "" {
		s.WriteString(syncMessageStyle.Render(m.syncMessage))
		s.WriteString("\n\n")
	}

	s.WriteString(m.renderSyncHelp())
	return s.String()
}

func (m Model) renderSyncRow(state db.SyncState) string {
	var row strings.Builder
	row.WriteString(syncServiceStyle.Render(strings.ToUpper(state.Service[:1]) + state.Service[1:]))

	switch state.Status {
	case models.SyncStatusError:
		msg := "  ✗ Error"
		if state.ErrorMessage != nil {
			msg += ": " + *state.ErrorMessage
		}
		row.WriteString(errorStyle.Render(msg))
	case models.SyncStatusSyncing:
		row.WriteString(syncSyncingStyle.Render("  ⟳ Syncing"))
	default:
		row.WriteString(syncIdleStyle.Render("  ✓ Idle"))
	}
	if state.LastSyncTime != nil {
		row.WriteString(syncMessageStyle.Render(" • Last synced " + formatTimeSince(m.now(), *state.LastSyncTime)))
	}
	return row.String()
}

func (m Model) renderSyncHelp() string {
	help := []string{
		"Enter: Sync calendar",
		"r: Refresh status",
		"Esc: Back",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m *Model) loadSyncStates() {
	states, err := db.GetAllSyncStates(m.env.DB, m.env.TenantID)
	if err != nil {
		m.logger.Warn("failed to load sync states", zap.Error(err))
		m.syncStates = nil
		return
	}
	m.syncStates = states
}

func (m Model) handleSyncKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.syncInProgress {
			return m, nil
		}
		m.syncInProgress = true
		m.syncMessage = ""
		return m, m.syncCalendar()
	case "r":
		m.loadSyncStates()
	case "esc":
		m.viewMode = ViewList
		m.reload()
	}

	return m, nil
}

// syncCalendar runs an incremental import off the update loop.
func (m Model) syncCalendar() tea.Cmd {
	env := m.env
	logger := m.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()

		token, err := sync.LoadToken(env.TenantID)
		if err != nil {
			return SyncCompleteMsg{Error: fmt.Errorf("not authenticated: %w", err)}
		}
		client, err := sync.NewCalendarClient(ctx, token)
		if err != nil {
			return SyncCompleteMsg{Error: fmt.Errorf("failed to create Calendar client: %w", err)}
		}
		result, err := sync.ImportCalendar(ctx, env.DB, env.TenantID, client, false, logger)
		return SyncCompleteMsg{Result: result, Error: err}
	}
}

func (m Model) handleSyncComplete(msg SyncCompleteMsg) Model {
	m.syncInProgress = false

	if msg.Error != nil {
		c := sync.Classify(msg.Error)
		m.syncMessage = fmt.Sprintf("✗ calendar sync failed: %s", c.Message)
	} else if msg.Result != nil {
		m.syncMessage = fmt.Sprintf("✓ %d fetched, %d created, %d updated, %d deleted",
			msg.Result.Fetched, msg.Result.Created, msg.Result.Updated, msg.Result.Deleted)
	}

	m.loadSyncStates()
	return m
}

func (m Model) now() time.Time {
	if m.env.Now != nil {
		return m.env.Now()
	}
	return time.Now()
}

// formatTimeSince formats a time duration in a human-readable way.
func formatTimeSince(now, t time.Time) string {
	duration := now.Sub(t)

	if duration < time.Minute {
		return "just now"
	} else if duration < time.Hour {
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	} else if duration < 24*time.Hour {
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}
	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}
