package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/hirepipe/viz"
)

func (m Model) renderPipelineView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("PIPELINE"))
	s.WriteString("\n\n")

	if m.pipelineText == "" {
		s.WriteString("Loading pipeline...\n")
	} else {
		s.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Render(m.pipelineText))
	}

	s.WriteString("\n\n")
	s.WriteString(m.renderPipelineHelp())

	return s.String()
}

func (m Model) renderPipelineHelp() string {
	help := []string{
		"Esc: Back",
		"r: Refresh",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handlePipelineKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewList
		m.pipelineText = ""
	case "r":
		m.loadPipeline()
	}

	return m, nil
}

// loadPipeline renders the funnel dashboard for the current owner filter.
func (m *Model) loadPipeline() {
	stats, err := viz.GenerateDashboardStats(m.env.DB, m.env.TenantID, m.ownerID(), m.engine, m.now())
	if err != nil {
		m.pipelineText = fmt.Sprintf("Error: %v", err)
		return
	}
	m.pipelineText = viz.RenderDashboard(stats)
}
