// ABOUTME: Tests for the web dashboard
// ABOUTME: Renders each page against SQLite and checks session persistence and the calendar socket
package web

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harperreed/hirepipe/cache"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/handlers"
	"github.com/harperreed/hirepipe/models"
	"github.com/harperreed/hirepipe/session"
	"github.com/harperreed/hirepipe/team"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testTenant = "tenant-a"
	testUser   = "u-alice"
)

var testNow = time.Date(2025, 5, 14, 10, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

func setupEnv(t *testing.T) *handlers.Env {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	require.NoError(t, db.InitSchema(conn))
	t.Cleanup(func() { _ = conn.Close() })

	_, err = db.SeedDefaultStages(conn, testTenant)
	require.NoError(t, err)

	shared := cache.NewMemory()
	directory := team.NewDirectory(conn, shared, nil)
	t.Cleanup(directory.Close)

	return &handlers.Env{
		DB:       conn,
		TenantID: testTenant,
		UserID:   testUser,
		Cache:    shared,
		Team:     directory,
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return testNow },
	}
}

func setupServer(t *testing.T, withSessions bool) (*Server, *handlers.Env, *session.Store) {
	t.Helper()
	env := setupEnv(t)

	var store *session.Store
	if withSessions {
		kv, err := session.OpenBadger(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { _ = kv.Close() })
		store = session.NewStore(kv)
	}

	srv, err := NewServer(env, store)
	require.NoError(t, err)
	return srv, env, store
}

func seedDeal(t *testing.T, env *handlers.Env, name, stage string, updated time.Time) *models.Deal {
	t.Helper()
	company := &models.Company{TenantID: testTenant, Name: name + " Inc"}
	require.NoError(t, db.CreateCompany(env.DB, company))

	deal := &models.Deal{
		TenantID:         testTenant,
		Name:             name,
		Stage:            stage,
		EstimatedRevenue: f64(50000),
		Associations: models.Associations{
			Companies:   []models.Ref{models.IDRef(company.ID.String())},
			Salespeople: []models.Ref{models.IDRef(testUser)},
		},
	}
	require.NoError(t, db.CreateDeal(env.DB, deal))
	_, err := env.DB.Exec(`UPDATE deals SET updated_at = ? WHERE id = ?`, updated, deal.ID.String())
	require.NoError(t, err)
	return deal
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestDashboardRendersFunnel(t *testing.T) {
	srv, env, _ := setupServer(t, false)
	seedDeal(t, env, "Warehouse ramp", "Discovery", testNow.AddDate(0, 0, -2))

	rec := get(t, srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Funnel")
	assert.Contains(t, body, "$50,000")
	assert.Contains(t, body, "Discovery")
}

func TestUnknownPathIsNotFound(t *testing.T) {
	srv, _, _ := setupServer(t, false)
	rec := get(t, srv, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDealsPageShowsHealth(t *testing.T) {
	srv, env, _ := setupServer(t, false)
	seedDeal(t, env, "Fresh deal", "Discovery", testNow.AddDate(0, 0, -1))
	seedDeal(t, env, "Stale deal", "Discovery", testNow.AddDate(0, 0, -60))

	rec := get(t, srv, "/deals")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Fresh deal")
	assert.Contains(t, body, "Stale deal")
	assert.Contains(t, body, "green")
	assert.Contains(t, body, "red")
}

func TestContactsFilterPersistsInSession(t *testing.T) {
	srv, env, store := setupServer(t, true)
	require.NoError(t, db.CreateContact(env.DB, &models.Contact{TenantID: testTenant, FirstName: "Dana", LastName: "Lee", State: "active"}))
	require.NoError(t, db.CreateContact(env.DB, &models.Contact{TenantID: testTenant, FirstName: "Sam", LastName: "Ortiz", State: "cold"}))

	rec := get(t, srv, "/contacts?contactState=active")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dana Lee")
	assert.NotContains(t, rec.Body.String(), "Sam Ortiz")

	sess, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, session.TabContacts, sess.Tab)
	assert.Equal(t, "active", sess.ContactState)

	// The filter sticks without the query parameter.
	rec = get(t, srv, "/contacts")
	assert.NotContains(t, rec.Body.String(), "Sam Ortiz")
}

func TestDashboardRedirectsToSavedTab(t *testing.T) {
	srv, _, store := setupServer(t, true)

	rec := get(t, srv, "/companies?companyState=client")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, srv, "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/companies", rec.Header().Get("Location"))

	rec = get(t, srv, "/?tab=pipeline")
	assert.Equal(t, http.StatusOK, rec.Code)
	sess, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, session.TabPipeline, sess.Tab)
	assert.Equal(t, "client", sess.CompanyState)
}

func TestCalendarViewPersists(t *testing.T) {
	srv, _, store := setupServer(t, true)

	rec := get(t, srv, "/calendar?view=day")
	require.Equal(t, http.StatusOK, rec.Code)

	sess, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, "day", sess.CalendarView)

	rec = get(t, srv, "/calendar")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "view=day")
}

func TestCalendarPageListsAppointments(t *testing.T) {
	srv, env, _ := setupServer(t, false)
	start := testNow.AddDate(0, 0, 3)
	end := start.Add(time.Hour)
	require.NoError(t, db.CreateTask(env.DB, &models.Task{
		TenantID: testTenant, Title: "Site visit", Classification: "appointment", StartAt: &start, EndAt: &end,
	}))

	rec := get(t, srv, "/calendar?view=month")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Site visit")
}

func TestGraphsRejectsUnknownKind(t *testing.T) {
	srv, _, _ := setupServer(t, false)

	rec := get(t, srv, "/graphs?kind=pipeline")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "digraph")

	rec = get(t, srv, "/graphs?kind=venn")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalendarSocketPushesEvents(t *testing.T) {
	srv, env, _ := setupServer(t, false)
	start := testNow.AddDate(0, 0, 1)
	end := start.Add(time.Hour)
	require.NoError(t, db.CreateTask(env.DB, &models.Task{
		TenantID: testTenant, Title: "Kickoff", Classification: "appointment", StartAt: &start, EndAt: &end,
	}))

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/calendar?view=month"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	for {
		var update CalendarUpdate
		require.NoError(t, conn.ReadJSON(&update))
		assert.Equal(t, "month", update.View)
		if len(update.Events) > 0 {
			assert.Equal(t, "Kickoff", update.Events[0].Title)
			return
		}
	}
}

func TestCalendarSocketRejectsBadView(t *testing.T) {
	srv, _, _ := setupServer(t, false)
	rec := get(t, srv, "/ws/calendar?view=week")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func seedAppointment(t *testing.T, env *handlers.Env, title string, start time.Time) {
	t.Helper()
	end := start.Add(time.Hour)
	require.NoError(t, db.CreateTask(env.DB, &models.Task{
		TenantID: testTenant, Title: title, Classification: "appointment", StartAt: &start, EndAt: &end,
	}))
}

func dialCalendar(t *testing.T, ts *httptest.Server, query string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/calendar?" + query
	return websocket.DefaultDialer.Dial(url, header)
}

func TestCalendarSocketUsesRequestedDate(t *testing.T) {
	srv, env, _ := setupServer(t, false)
	seedAppointment(t, env, "May kickoff", testNow.AddDate(0, 0, 1))
	seedAppointment(t, env, "July review", time.Date(2025, 7, 10, 15, 0, 0, 0, time.UTC))

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := dialCalendar(t, ts, "view=month&date=2025-07-01", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	for {
		var update CalendarUpdate
		require.NoError(t, conn.ReadJSON(&update))
		assert.Equal(t, "2025-07-01T00:00:00Z", update.Start)
		assert.Equal(t, "2025-08-01T00:00:00Z", update.End)
		if len(update.Events) > 0 {
			require.Len(t, update.Events, 1)
			assert.Equal(t, "July review", update.Events[0].Title)
			return
		}
	}
}

func TestCalendarPagePassesDateToSocket(t *testing.T) {
	srv, _, _ := setupServer(t, false)
	rec := get(t, srv, "/calendar?view=month&date=2025-07-01")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "date=2025-07-01")
	assert.Contains(t, rec.Body.String(), "2025-07-01T00:00:00Z")
}

func TestCalendarSocketRejectsBadDate(t *testing.T) {
	srv, _, _ := setupServer(t, false)
	rec := get(t, srv, "/ws/calendar?view=month&date=July")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalendarSocketChecksOrigin(t *testing.T) {
	srv, _, _ := setupServer(t, false)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	_, resp, err := dialCalendar(t, ts, "view=day", http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dialCalendar(t, ts, "view=day", http.Header{"Origin": {ts.URL}})
	require.NoError(t, err)
	_ = conn.Close()
}
