// ABOUTME: Web UI server with embedded templates
// ABOUTME: Read-only dashboard whose tab, filters and calendar view persist in the session
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/handlers"
	"github.com/harperreed/hirepipe/logging"
	"github.com/harperreed/hirepipe/pipeline"
	"github.com/harperreed/hirepipe/session"
	"github.com/harperreed/hirepipe/viz"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

var healthColors = map[string]string{
	pipeline.HealthGreen:  "#2e7d32",
	pipeline.HealthYellow: "#f9a825",
	pipeline.HealthRed:    "#c62828",
	pipeline.HealthClosed: "#757575",
}

func healthColor(health string) string {
	if c, ok := healthColors[health]; ok {
		return c
	}
	return "#757575"
}

type Server struct {
	env       *handlers.Env
	sessions  *session.Store
	templates *template.Template
	logger    *zap.Logger
}

// NewServer builds the dashboard. sessions may be nil, in which case
// navigation state lives only in the query string.
func NewServer(env *handlers.Env, sessions *session.Store) (*Server, error) {
	funcMap := template.FuncMap{
		"healthColor": healthColor,
		"percent": func(v float64) string {
			return fmt.Sprintf("%.0f%%", v)
		},
		"dollars": pipeline.FormatDollars,
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Server{
		env:       env,
		sessions:  sessions,
		templates: tmpl,
		logger:    logging.OrNop(env.Logger),
	}, nil
}

// Handler returns the routed mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDashboard)
	mux.HandleFunc("/contacts", s.handleContacts)
	mux.HandleFunc("/companies", s.handleCompanies)
	mux.HandleFunc("/deals", s.handleDeals)
	mux.HandleFunc("/calendar", s.handleCalendar)
	mux.HandleFunc("/graphs", s.handleGraphs)
	mux.HandleFunc("/ws/calendar", s.handleCalendarSocket)
	return mux
}

// Start serves on port until ctx is cancelled.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("web server started", zap.String("url", fmt.Sprintf("http://localhost:%d", port)))

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// navigation loads the session, applies the request's tab and list filters
// and saves it back. Without a store or user the state is request-scoped.
func (s *Server) navigation(r *http.Request, tab string) *session.Session {
	q := r.URL.Query()
	if tab != "" && !q.Has("tab") {
		q.Set("tab", tab)
	}

	var sess *session.Session
	if s.sessions != nil && s.env.UserID != "" {
		cur, err := s.sessions.Current()
		switch {
		case err == nil && cur.UserID == s.env.UserID && cur.TenantID == s.env.TenantID:
			sess = cur
		case err == nil || errors.Is(err, session.ErrNoSession):
			sess, err = s.sessions.Start(s.env.UserID, s.env.TenantID)
			if err != nil {
				s.logger.Warn("failed to start session", zap.Error(err))
			}
		default:
			s.logger.Warn("failed to read session", zap.Error(err))
		}
	}
	persist := sess != nil
	if sess == nil {
		sess = &session.Session{UserID: s.env.UserID, TenantID: s.env.TenantID, CalendarView: "month"}
	}

	sess.ApplyQuery(q)
	if q.Has("view") {
		sess.SetCalendarView(q.Get("view"))
	}
	if q.Has("q") {
		sess.Search = strings.TrimSpace(q.Get("q"))
	}
	if persist {
		if err := s.sessions.Save(sess); err != nil {
			s.logger.Warn("failed to save session", zap.Error(err))
		}
	}
	return sess
}

func mine(r *http.Request) bool {
	v := r.URL.Query().Get("mine")
	return v == "1" || v == "true"
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	sess := s.navigation(r, "")
	switch sess.Tab {
	case session.TabContacts, session.TabCompanies, session.TabDeals, session.TabCalendar:
		http.Redirect(w, r, "/"+sess.Tab, http.StatusFound)
		return
	}

	engine, err := s.env.Engine()
	if err != nil {
		s.serverError(w, err)
		return
	}
	owner := ""
	if mine(r) {
		owner = s.env.UserID
	}
	stats, err := viz.GenerateDashboardStats(s.env.DB, s.env.TenantID, owner, engine, s.now())
	if err != nil {
		s.serverError(w, err)
		return
	}
	_, funnel, err := handlers.NewPipelineHandlers(s.env).PipelineFunnel(r.Context(), nil, handlers.FunnelInput{OwnerID: owner})
	if err != nil {
		s.serverError(w, err)
		return
	}

	s.render(w, map[string]any{
		"Title":           "Pipeline",
		"Tab":             session.TabPipeline,
		"ContentTemplate": "dashboard-content",
		"Stats":           stats,
		"Funnel":          funnel,
		"OpenValue":       pipeline.FormatEstimate(pipeline.ValueEstimate{Kind: pipeline.EstimateRange, Min: stats.OpenLow, Max: stats.OpenHigh}),
		"ClosedValue":     pipeline.FormatDollars(stats.Closed),
		"Mine":            mine(r),
	})
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	sess := s.navigation(r, session.TabContacts)
	_, out, err := handlers.NewContactHandlers(s.env).FindContacts(r.Context(), nil, handlers.FindContactsInput{
		Query: sess.Search, State: sess.ContactState, Mine: mine(r) && s.env.UserID != "", Limit: 500,
	})
	if err != nil {
		s.serverError(w, err)
		return
	}
	names, err := s.companyNames()
	if err != nil {
		s.serverError(w, err)
		return
	}

	type contactRow struct {
		handlers.ContactOutput
		CompanyName string
	}
	rows := make([]contactRow, len(out.Contacts))
	for i, c := range out.Contacts {
		rows[i] = contactRow{ContactOutput: c}
		if len(c.CompanyIDs) > 0 {
			rows[i].CompanyName = names[c.CompanyIDs[0]]
		}
	}

	s.render(w, map[string]any{
		"Title":           "Contacts",
		"Tab":             session.TabContacts,
		"ContentTemplate": "contacts-content",
		"Contacts":        rows,
		"State":           sess.ContactState,
		"Search":          sess.Search,
		"Mine":            mine(r),
	})
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	sess := s.navigation(r, session.TabCompanies)
	_, out, err := handlers.NewCompanyHandlers(s.env).FindCompanies(r.Context(), nil, handlers.FindCompaniesInput{
		Query: sess.Search, State: sess.CompanyState, Mine: mine(r) && s.env.UserID != "", Limit: 500,
	})
	if err != nil {
		s.serverError(w, err)
		return
	}

	s.render(w, map[string]any{
		"Title":           "Companies",
		"Tab":             session.TabCompanies,
		"ContentTemplate": "companies-content",
		"Companies":       out.Companies,
		"State":           sess.CompanyState,
		"Search":          sess.Search,
		"Mine":            mine(r),
	})
}

func (s *Server) handleDeals(w http.ResponseWriter, r *http.Request) {
	s.navigation(r, session.TabDeals)
	filter := db.DealFilter{Stage: r.URL.Query().Get("stage")}
	if mine(r) {
		filter.OwnerID = s.env.UserID
	}
	deals, err := db.FindDeals(s.env.DB, s.env.TenantID, filter)
	if err != nil {
		s.serverError(w, err)
		return
	}
	engine, err := s.env.Engine()
	if err != nil {
		s.serverError(w, err)
		return
	}
	views := make([]pipeline.DealView, len(deals))
	for i, d := range deals {
		views[i] = engine.View(d)
	}

	s.render(w, map[string]any{
		"Title":           "Deals",
		"Tab":             session.TabDeals,
		"ContentTemplate": "deals-content",
		"Deals":           views,
		"Health":          engine.HealthCounts(deals),
		"Mine":            mine(r),
	})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	sess := s.navigation(r, session.TabCalendar)
	_, out, err := handlers.NewCalendarHandlers(s.env).ListCalendarEvents(r.Context(), nil, handlers.ListEventsInput{
		View: sess.CalendarView, Date: r.URL.Query().Get("date"), Mine: mine(r) && s.env.UserID != "",
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.render(w, map[string]any{
		"Title":           "Calendar",
		"Tab":             session.TabCalendar,
		"ContentTemplate": "calendar-content",
		"Calendar":        out,
		"View":            sess.CalendarView,
		"Date":            r.URL.Query().Get("date"),
		"Mine":            mine(r),
	})
}

func (s *Server) handleGraphs(w http.ResponseWriter, r *http.Request) {
	engine, err := s.env.Engine()
	if err != nil {
		s.serverError(w, err)
		return
	}
	owner := ""
	if mine(r) {
		owner = s.env.UserID
	}
	generator := viz.NewGraphGenerator(s.env.DB, s.env.TenantID, engine)

	kind := r.URL.Query().Get("kind")
	var dot string
	switch kind {
	case "", "pipeline":
		kind = "pipeline"
		dot, err = generator.GeneratePipelineGraph(owner)
	case "accounts":
		dot, err = generator.GenerateAccountGraph(owner)
	default:
		http.Error(w, "Invalid graph kind", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}

	s.render(w, map[string]any{
		"Title":           "Graphs",
		"Tab":             session.TabPipeline,
		"ContentTemplate": "graphs-content",
		"Kind":            kind,
		"DOT":             dot,
		"Mine":            mine(r),
	})
}

func (s *Server) companyNames() (map[string]string, error) {
	companies, err := db.ListCompanies(s.env.DB, s.env.TenantID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(companies))
	for _, c := range companies {
		names[c.ID.String()] = c.Name
	}
	return names, nil
}

func (s *Server) now() time.Time {
	if s.env.Now != nil {
		return s.env.Now()
	}
	return time.Now()
}

func (s *Server) render(w http.ResponseWriter, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "layout.html", data); err != nil {
		s.logger.Error("template render failed", zap.Any("template", data["ContentTemplate"]), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", zap.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
