package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/hirepipe/debounce"
	"github.com/harperreed/hirepipe/models"
	"github.com/harperreed/hirepipe/pipeline"
)

var (
	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))
)

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("HIREPIPE"))
	s.WriteString("\n\n")

	s.WriteString(m.renderTabs())
	s.WriteString("\n")
	s.WriteString(m.renderFilters())
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n\n")
	}

	s.WriteString(m.renderTable())
	s.WriteString("\n\n")

	if m.searching {
		s.WriteString("Search: " + m.search.View())
		s.WriteString("\n")
	}

	s.WriteString(m.renderListHelp())

	return s.String()
}

func (m Model) renderTabs() string {
	tabs := []string{"Contacts", "Companies", "Deals"}
	var rendered []string

	for i, tab := range tabs {
		if EntityType(i) == m.entityType {
			rendered = append(rendered, tabActiveStyle.Render(tab))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderFilters() string {
	var parts []string
	if m.mine {
		parts = append(parts, "mine")
	} else {
		parts = append(parts, "everyone")
	}
	if m.sess.Search != "" {
		parts = append(parts, fmt.Sprintf("search %q", m.sess.Search))
	}
	switch m.entityType {
	case EntityContacts:
		if m.sess.ContactState != "" {
			parts = append(parts, "state "+m.sess.ContactState)
		}
	case EntityCompanies:
		if m.sess.CompanyState != "" {
			parts = append(parts, "state "+m.sess.CompanyState)
		}
	}
	return helpStyle.Render("Showing: " + strings.Join(parts, ", "))
}

func (m Model) renderTable() string {
	switch m.entityType {
	case EntityContacts:
		return m.renderContactsTable()
	case EntityCompanies:
		return m.renderCompaniesTable()
	case EntityDeals:
		return m.renderDealsTable()
	}
	return ""
}

func (m Model) tableHeight() int {
	if h := m.height - 12; h > 3 {
		return h
	}
	return 3
}

func (m Model) renderContactsTable() string {
	columns := []table.Column{
		{Title: "Name", Width: 28},
		{Title: "Email", Width: 30},
		{Title: "State", Width: 12},
		{Title: "Last Contacted", Width: 14},
	}

	var rows []table.Row
	for _, contact := range m.contacts {
		last := "never"
		if contact.LastContactedAt != nil {
			last = contact.LastContactedAt.Format("2006-01-02")
		}
		rows = append(rows, table.Row{
			contact.DisplayName(),
			contact.Email,
			contact.State,
			last,
		})
	}

	return m.renderRows(columns, rows)
}

func (m Model) renderCompaniesTable() string {
	columns := []table.Column{
		{Title: "Name", Width: 28},
		{Title: "Domain", Width: 24},
		{Title: "State", Width: 12},
		{Title: "Pipeline", Width: 24},
	}

	var rows []table.Row
	for _, company := range m.companies {
		value := "-"
		if company.PipelineValue != nil {
			value = formatRange(company.PipelineValue.Low, company.PipelineValue.High)
		}
		rows = append(rows, table.Row{
			company.Name,
			company.Domain,
			company.State,
			value,
		})
	}

	return m.renderRows(columns, rows)
}

func (m Model) renderRows(columns []table.Column, rows []table.Row) string {
	if len(rows) == 0 {
		return helpStyle.Render("Nothing here yet")
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(m.tableHeight()),
	)

	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}

	return t.View()
}

// renderDealsTable draws rows by hand so the health column keeps its colour.
func (m Model) renderDealsTable() string {
	if len(m.deals) == 0 {
		return helpStyle.Render("Nothing here yet")
	}

	const format = "%-30.30s %-18.18s %-26.26s %5s  "
	var s strings.Builder
	s.WriteString(headerStyle.Render(fmt.Sprintf(format+"%s", "Name", "Stage", "Value", "Prob", "Health")))
	s.WriteString("\n")

	start := 0
	if h := m.tableHeight(); m.selectedRow >= h {
		start = m.selectedRow - h + 1
	}
	end := start + m.tableHeight()
	if end > len(m.deals) {
		end = len(m.deals)
	}

	for i := start; i < end; i++ {
		view := m.deals[i]
		line := fmt.Sprintf(format, view.Deal.Name, view.Deal.Stage, view.Value,
			fmt.Sprintf("%.0f%%", view.Score.Probability))
		if i == m.selectedRow {
			line = cursorStyle.Render(line)
		}
		s.WriteString(line)
		s.WriteString(renderHealth(view.Score.Health))
		s.WriteString("\n")
	}
	return s.String()
}

func (m Model) renderListHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"Tab: Switch tabs",
		"Enter: View details",
		"/: Search",
		"m: Mine/everyone",
		"p: Pipeline",
		"s: Sync",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if m.selectedRow < m.rowCount()-1 {
			m.selectedRow++
		}
	case "tab":
		m.saveSession()
		m.entityType = (m.entityType + 1) % EntityType(len(entityTabs))
		m.selectedRow = m.sess.Positions[entityTabs[m.entityType]]
		m.reload()
		m.saveSession()
	case "enter":
		if id := m.getSelectedID(); id != "" {
			m.saveSession()
			m.viewMode = ViewDetail
			m.selectedID = id
		}
	case "/":
		m.searching = true
		m.searchBefore = m.sess.Search
		m.search.SetValue(m.sess.Search)
		m.search.Focus()
		return m, textinput.Blink
	case "m":
		if m.env.UserID != "" {
			m.mine = !m.mine
			m.selectedRow = 0
			m.reload()
		}
	case "p":
		m.viewMode = ViewPipeline
		m.loadPipeline()
	case "s":
		m.viewMode = ViewSync
		m.loadSyncStates()
	case "r":
		m.reload()
	}

	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.sess.Search = strings.TrimSpace(m.search.Value())
		m.searching = false
		m.search.Blur()
		m.selectedRow = 0
		m.reload()
		m.saveSession()
		return m, nil
	case "esc":
		m.searching = false
		m.search.Blur()
		if m.sess.Search != m.searchBefore {
			m.sess.Search = m.searchBefore
			m.selectedRow = 0
			m.reload()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.searchSeq++
	seq := m.searchSeq
	tick := tea.Tick(debounce.SearchWait, func(time.Time) tea.Msg {
		return searchTickMsg{seq: seq}
	})
	return m, tea.Batch(cmd, tick)
}

// searchTickMsg fires once typing has paused. Only the newest one filters.
type searchTickMsg struct {
	seq int
}

func (m Model) handleSearchTick(msg searchTickMsg) Model {
	if !m.searching || msg.seq != m.searchSeq {
		return m
	}
	m.sess.Search = strings.TrimSpace(m.search.Value())
	m.selectedRow = 0
	m.reload()
	return m
}

func (m Model) getSelectedID() string {
	switch m.entityType {
	case EntityContacts:
		if m.selectedRow < len(m.contacts) {
			return m.contacts[m.selectedRow].ID.String()
		}
	case EntityCompanies:
		if m.selectedRow < len(m.companies) {
			return m.companies[m.selectedRow].ID.String()
		}
	case EntityDeals:
		if m.selectedRow < len(m.deals) {
			return m.deals[m.selectedRow].Deal.ID.String()
		}
	}
	return ""
}

func formatRange(low, high float64) string {
	if low == high {
		return pipeline.FormatDollars(low)
	}
	return pipeline.FormatDollars(low) + " - " + pipeline.FormatDollars(high)
}

// companyNames resolves company ids for display.
func (m Model) companyNames(ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, m.companyName(id))
	}
	return names
}

func (m Model) contactNames(refs []models.Ref) []string {
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, m.contactName(ref.ID))
	}
	return names
}
