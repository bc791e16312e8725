// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Tabbed contacts, companies and deals for one salesperson with session-backed navigation
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/handlers"
	"github.com/harperreed/hirepipe/logging"
	"github.com/harperreed/hirepipe/models"
	"github.com/harperreed/hirepipe/pipeline"
	"github.com/harperreed/hirepipe/session"
	"go.uber.org/zap"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
	ViewPipeline
	ViewSync
)

// EntityType represents the type of entity being viewed
type EntityType int

const (
	EntityContacts EntityType = iota
	EntityCompanies
	EntityDeals
)

var entityTabs = []string{session.TabContacts, session.TabCompanies, session.TabDeals}

func entityForTab(tab string) EntityType {
	for i, t := range entityTabs {
		if t == tab {
			return EntityType(i)
		}
	}
	return EntityContacts
}

// Model is the main bubbletea model
type Model struct {
	env      *handlers.Env
	engine   *pipeline.Engine
	sessions *session.Store
	sess     *session.Session
	logger   *zap.Logger

	viewMode   ViewMode
	entityType EntityType
	mine       bool

	contacts  []models.Contact
	companies []models.Company
	deals     []pipeline.DealView

	selectedRow int
	selectedID  string

	searching    bool
	search       textinput.Model
	searchBefore string
	searchSeq    int

	pipelineText string

	syncStates     []db.SyncState
	syncInProgress bool
	syncMessage    string

	width  int
	height int
	err    error
}

// NewModel loads the first tab. sessions may be nil; the starting tab,
// filters and list positions then come from defaults instead.
func NewModel(env *handlers.Env, sessions *session.Store) (Model, error) {
	engine, err := env.Engine()
	if err != nil {
		return Model{}, err
	}

	search := textinput.New()
	search.Placeholder = "name or email"
	search.CharLimit = 80

	m := Model{
		env:      env,
		engine:   engine,
		sessions: sessions,
		logger:   logging.OrNop(env.Logger),
		viewMode: ViewList,
		mine:     env.UserID != "",
		search:   search,
		width:    80,
		height:   24,
	}
	m.sess = m.loadSession()
	m.entityType = entityForTab(m.sess.Tab)
	m.selectedRow = m.sess.Positions[entityTabs[m.entityType]]
	m.reload()
	return m, nil
}

func (m Model) loadSession() *session.Session {
	fallback := &session.Session{UserID: m.env.UserID, TenantID: m.env.TenantID, CalendarView: "month"}
	if m.sessions == nil || m.env.UserID == "" {
		return fallback
	}
	sess, err := m.sessions.Current()
	if err == nil && sess.UserID == m.env.UserID && sess.TenantID == m.env.TenantID {
		return sess
	}
	sess, err = m.sessions.Start(m.env.UserID, m.env.TenantID)
	if err != nil {
		m.logger.Warn("failed to start session", zap.Error(err))
		return fallback
	}
	return sess
}

// saveSession records the current tab and list position.
func (m *Model) saveSession() {
	tab := entityTabs[m.entityType]
	m.sess.Tab = tab
	if m.sess.Positions == nil {
		m.sess.Positions = make(map[string]int)
	}
	m.sess.Positions[tab] = m.selectedRow
	if m.sessions == nil || m.sess.ID == "" {
		return
	}
	if err := m.sessions.Save(m.sess); err != nil {
		m.logger.Warn("failed to save session", zap.Error(err))
	}
}

func (m *Model) ownerID() string {
	if m.mine {
		return m.env.UserID
	}
	return ""
}

// reload fetches the rows for the active tab.
func (m *Model) reload() {
	m.err = nil
	var n int
	switch m.entityType {
	case EntityContacts:
		contacts, err := db.FindContacts(m.env.DB, m.env.TenantID, db.ContactFilter{
			Query: m.sess.Search, State: m.sess.ContactState, Limit: 100,
		})
		if err != nil {
			m.err = fmt.Errorf("failed to load contacts: %w", err)
			return
		}
		if owner := m.ownerID(); owner != "" {
			companies, err := db.ListCompanies(m.env.DB, m.env.TenantID)
			if err != nil {
				m.err = fmt.Errorf("failed to load companies: %w", err)
				return
			}
			contacts = models.ContactsForUser(contacts, companies, owner)
		}
		m.contacts = contacts
		n = len(contacts)
	case EntityCompanies:
		companies, err := db.FindCompanies(m.env.DB, m.env.TenantID, db.CompanyFilter{
			Query: m.sess.Search, State: m.sess.CompanyState, OwnerID: m.ownerID(), Limit: 100,
		})
		if err != nil {
			m.err = fmt.Errorf("failed to load companies: %w", err)
			return
		}
		m.companies = companies
		n = len(companies)
	case EntityDeals:
		deals, err := db.FindDeals(m.env.DB, m.env.TenantID, db.DealFilter{OwnerID: m.ownerID(), Limit: 100})
		if err != nil {
			m.err = fmt.Errorf("failed to load deals: %w", err)
			return
		}
		m.deals = make([]pipeline.DealView, len(deals))
		for i, d := range deals {
			m.deals[i] = m.engine.View(d)
		}
		n = len(deals)
	}
	if m.selectedRow >= n {
		m.selectedRow = n - 1
	}
	if m.selectedRow < 0 {
		m.selectedRow = 0
	}
}

func (m Model) rowCount() int {
	switch m.entityType {
	case EntityContacts:
		return len(m.contacts)
	case EntityCompanies:
		return len(m.companies)
	case EntityDeals:
		return len(m.deals)
	}
	return 0
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case SyncCompleteMsg:
		return m.handleSyncComplete(msg), nil
	case searchTickMsg:
		return m.handleSearchTick(msg), nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewList:
		return m.renderListView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewPipeline:
		return m.renderPipelineView()
	case ViewSync:
		return m.renderSyncView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKeys(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.saveSession()
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewList:
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewPipeline:
		return m.handlePipelineKeys(msg)
	case ViewSync:
		return m.handleSyncKeys(msg)
	}

	return m, nil
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	healthStyles = map[string]lipgloss.Style{
		pipeline.HealthGreen:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		pipeline.HealthYellow: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		pipeline.HealthRed:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		pipeline.HealthClosed: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
)

func renderHealth(health string) string {
	if style, ok := healthStyles[health]; ok {
		return style.Render(health)
	}
	return health
}
