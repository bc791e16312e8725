package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/harperreed/hirepipe/pipeline"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(20)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	sectionStyle = lipgloss.NewStyle().Bold(true)
)

func (m Model) renderDetailView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("DETAIL VIEW"))
	s.WriteString("\n\n")

	switch m.entityType {
	case EntityContacts:
		s.WriteString(m.renderContactDetail())
	case EntityCompanies:
		s.WriteString(m.renderCompanyDetail())
	case EntityDeals:
		s.WriteString(m.renderDealDetail())
	}

	s.WriteString("\n\n")
	s.WriteString(m.renderDetailHelp())

	return s.String()
}

func (m Model) renderContactDetail() string {
	id, err := uuid.Parse(m.selectedID)
	if err != nil {
		return fmt.Sprintf("Error: invalid ID: %v", err)
	}

	contact, err := db.GetContact(m.env.DB, m.env.TenantID, id)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if contact == nil {
		return "Contact not found"
	}

	var s strings.Builder

	s.WriteString(m.renderField("Name", contact.DisplayName()))
	s.WriteString(m.renderField("Email", contact.Email))
	s.WriteString(m.renderField("Phone", contact.Phone))
	s.WriteString(m.renderField("Title", contact.JobTitle))
	s.WriteString(m.renderField("State", contact.State))
	s.WriteString(m.renderField("Companies", strings.Join(m.companyNames(contact.CompanyIDs()), ", ")))
	s.WriteString(m.renderField("Salespeople", strings.Join(m.salespeople(models.OwnerIDs(contact)), ", ")))

	if contact.LastContactedAt != nil {
		s.WriteString(m.renderField("Last Contacted", contact.LastContactedAt.Format("2006-01-02")))
	}

	return s.String()
}

func (m Model) renderCompanyDetail() string {
	id, err := uuid.Parse(m.selectedID)
	if err != nil {
		return fmt.Sprintf("Error: invalid ID: %v", err)
	}

	company, err := db.GetCompany(m.env.DB, m.env.TenantID, id)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if company == nil {
		return "Company not found"
	}

	var s strings.Builder

	s.WriteString(m.renderField("Name", company.Name))
	s.WriteString(m.renderField("Domain", company.Domain))
	s.WriteString(m.renderField("Industry", company.Industry))
	s.WriteString(m.renderField("State", company.State))
	s.WriteString(m.renderField("Salespeople", strings.Join(m.salespeople(models.OwnerIDs(company)), ", ")))

	totals, err := m.totals().Get(context.Background(), m.env.TenantID, id)
	if err != nil {
		s.WriteString(m.renderField("Pipeline", fmt.Sprintf("error: %v", err)))
	} else {
		s.WriteString(m.renderField("Open Pipeline",
			fmt.Sprintf("%s (%d deals)", formatRange(totals.Pipeline.Low, totals.Pipeline.High), totals.Pipeline.DealCount)))
		s.WriteString(m.renderField("Closed",
			fmt.Sprintf("%s (%d deals)", pipeline.FormatDollars(totals.Closed.Total), totals.Closed.DealCount)))
	}

	s.WriteString("\n")
	s.WriteString(sectionStyle.Render("CONTACTS"))
	s.WriteString("\n")

	contacts, _ := db.FindContacts(m.env.DB, m.env.TenantID, db.ContactFilter{CompanyID: id.String(), Limit: 100})
	for _, contact := range contacts {
		s.WriteString(fmt.Sprintf("  • %s (%s)\n", contact.DisplayName(), contact.Email))
	}

	return s.String()
}

func (m Model) renderDealDetail() string {
	id, err := uuid.Parse(m.selectedID)
	if err != nil {
		return fmt.Sprintf("Error: invalid ID: %v", err)
	}

	deal, err := db.GetDeal(m.env.DB, m.env.TenantID, id)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if deal == nil {
		return "Deal not found"
	}
	view := m.engine.View(*deal)
	score := view.Score

	var s strings.Builder

	s.WriteString(m.renderField("Name", deal.Name))
	s.WriteString(m.renderField("Companies", strings.Join(m.companyNames(deal.CompanyIDs()), ", ")))
	s.WriteString(m.renderField("Contacts", strings.Join(m.contactNames(deal.Associations.Contacts), ", ")))
	s.WriteString(m.renderField("Stage", fmt.Sprintf("%s -> %s", deal.Stage, score.Stage)))
	s.WriteString(m.renderField("Value", view.Value))

	if deal.CloseDate != nil {
		s.WriteString(m.renderField("Expected Close", deal.CloseDate.Format("2006-01-02")))
	}

	s.WriteString("\n")
	s.WriteString(sectionStyle.Render("SCORE"))
	s.WriteString("\n")
	s.WriteString(m.renderField("Base", fmt.Sprintf("%.0f%%", score.BaseProbability)))
	s.WriteString(m.renderField("Activity Bonus", fmt.Sprintf("%+.0f", score.ActivityBonus)))
	s.WriteString(m.renderField("Probability", fmt.Sprintf("%.0f%%", score.Probability)))
	if score.DaysSinceUpdate >= 0 {
		s.WriteString(m.renderField("Last Touched", fmt.Sprintf("%d day(s) ago", score.DaysSinceUpdate)))
	} else {
		s.WriteString(m.renderField("Last Touched", "never"))
	}
	s.WriteString(fmt.Sprintf("%s %s\n", fieldLabelStyle.Render("Health:"), renderHealth(score.Health)))

	return s.String()
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		value = "-"
	}
	return fmt.Sprintf("%s %s\n",
		fieldLabelStyle.Render(label+":"),
		fieldValueStyle.Render(value))
}

func (m Model) renderDetailHelp() string {
	help := []string{
		"Esc: Back",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewList
		m.selectedID = ""
	}

	return m, nil
}

func (m Model) totals() *pipeline.TotalsService {
	return &pipeline.TotalsService{
		DB:     m.env.DB,
		Cache:  m.env.Cache,
		Mapper: m.engine.Mapper,
		Logger: m.logger,
		TTL:    time.Hour,
	}
}

func (m Model) companyName(id string) string {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	company, err := db.GetCompany(m.env.DB, m.env.TenantID, parsed)
	if err != nil || company == nil {
		return id
	}
	return company.Name
}

func (m Model) contactName(id string) string {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	contact, err := db.GetContact(m.env.DB, m.env.TenantID, parsed)
	if err != nil || contact == nil {
		return id
	}
	return contact.DisplayName()
}

// salespeople shows team names where the directory knows them.
func (m Model) salespeople(ids []string) []string {
	known := make(map[string]string)
	if m.env.Team != nil {
		team, err := m.env.Team.List(context.Background(), m.env.TenantID)
		if err == nil {
			for _, p := range team {
				known[p.ID] = p.Name
			}
		}
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := known[id]; ok && name != "" {
			names = append(names, name)
			continue
		}
		names = append(names, id)
	}
	return names
}
