// ABOUTME: Tests for CRM CLI commands against a temporary database
// ABOUTME: Commands write to a buffer so output can be asserted
package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/hirepipe/config"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/harperreed/hirepipe/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testTenant = "acme-staffing"

var testNow = time.Date(2025, 5, 14, 10, 0, 0, 0, time.UTC)

func setupTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	isolateXDG(t)
	dir := t.TempDir()
	cfg := &config.Config{
		TenantID:   testTenant,
		UserID:     "u-alice",
		DBPath:     filepath.Join(dir, "test.db"),
		WebPort:    8080,
		SessionDir: filepath.Join(dir, "session"),
		Health:     pipeline.DefaultHealthConfig(),
		Stages:     pipeline.DefaultStageConfig(),
	}
	app, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	var out bytes.Buffer
	app.Out = &out
	app.Interactive = false
	app.Now = func() time.Time { return testNow }

	require.NoError(t, db.SaveUser(app.DB, &models.Salesperson{
		ID: "u-alice", TenantID: testTenant, Name: "Alice Park", Email: "alice@acme.test", Active: true,
	}))
	_, err = db.SeedDefaultStages(app.DB, testTenant)
	require.NoError(t, err)
	return app, &out
}

func TestOpenRequiresTenant(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{DBPath: filepath.Join(t.TempDir(), "x.db")}, nil)
	assert.ErrorIs(t, err, ErrNoTenant)
}

func TestAddContactCreatesCompanyAndOwner(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := context.Background()

	err := AddContactCommand(ctx, app, []string{"--first", "Dana", "--last", "Ruiz", "--email", "dana@globex.test", "--company", "Globex"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Contact created: Dana Ruiz")

	company, err := db.FindCompanyByName(app.DB, testTenant, "Globex")
	require.NoError(t, err)
	require.NotNil(t, company)

	contacts, err := db.ListContacts(app.DB, testTenant)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, []string{company.ID.String()}, contacts[0].CompanyIDs())
	require.Len(t, contacts[0].Associations.Salespeople, 1)
	assert.Equal(t, models.RefObject, contacts[0].Associations.Salespeople[0].Kind)
	assert.Equal(t, "Alice Park", contacts[0].Associations.Salespeople[0].Name)
}

func TestAddContactRequiresFirstName(t *testing.T) {
	app, _ := setupTestApp(t)
	err := AddContactCommand(context.Background(), app, []string{"--email", "x@y.test"})
	assert.EqualError(t, err, "--first is required")
}

func TestListContactsMineIncludesCompanyOwnership(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := context.Background()

	require.NoError(t, AddCompanyCommand(ctx, app, []string{"--name", "Initech"}))
	company, err := db.FindCompanyByName(app.DB, testTenant, "Initech")
	require.NoError(t, err)

	// Owned by someone else, but linked to Alice's company.
	require.NoError(t, db.CreateContact(app.DB, &models.Contact{
		TenantID:     testTenant,
		FirstName:    "Peter",
		Associations: models.Associations{Companies: []models.Ref{models.IDRef(company.ID.String())}},
		LegacyOwners: models.LegacyOwners{SalesOwnerID: "u-bob"},
	}))
	require.NoError(t, db.CreateContact(app.DB, &models.Contact{
		TenantID:     testTenant,
		FirstName:    "Milton",
		LegacyOwners: models.LegacyOwners{SalesOwnerID: "u-bob"},
	}))

	out.Reset()
	require.NoError(t, ListContactsCommand(ctx, app, []string{"--mine"}))
	assert.Contains(t, out.String(), "Peter")
	assert.NotContains(t, out.String(), "Milton")
	assert.Contains(t, out.String(), "Total: 1 contact(s)")
}

func TestAddCompanyRejectsDuplicate(t *testing.T) {
	app, _ := setupTestApp(t)
	ctx := context.Background()
	require.NoError(t, AddCompanyCommand(ctx, app, []string{"--name", "Umbrella"}))
	err := AddCompanyCommand(ctx, app, []string{"--name", "Umbrella"})
	assert.ErrorContains(t, err, "already exists")
}

func TestAddDealShowsQualificationRange(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := context.Background()

	err := AddDealCommand(ctx, app, []string{
		"--name", "Warehouse ramp", "--company", "Globex", "--stage", "Qualification",
		"--pay-rate", "20", "--markup", "40", "--start", "2", "--d180", "5",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Deal created: Warehouse ramp")
	assert.Contains(t, out.String(), "$116,480 - $291,200")
}

func TestListDealsRanked(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := context.Background()

	require.NoError(t, AddDealCommand(ctx, app, []string{"--name", "Early", "--company", "Globex", "--stage", "Discovery"}))
	require.NoError(t, AddDealCommand(ctx, app, []string{"--name", "Late", "--company", "Globex", "--stage", "Negotiation"}))
	require.NoError(t, AddDealCommand(ctx, app, []string{"--name", "Won", "--company", "Globex", "--stage", "closed won"}))

	out.Reset()
	require.NoError(t, ListDealsCommand(ctx, app, []string{"--ranked"}))
	text := out.String()
	assert.NotContains(t, text, "Won ")
	late := bytes.Index(out.Bytes(), []byte("Late"))
	early := bytes.Index(out.Bytes(), []byte("Early"))
	require.True(t, late >= 0 && early >= 0)
	assert.Less(t, late, early)
}

func TestScoreDealNotFound(t *testing.T) {
	app, _ := setupTestApp(t)
	err := ScoreDealCommand(context.Background(), app, []string{"6f1c3f8e-55a4-4d8e-9d3c-2c1d1f0b9a11"})
	assert.ErrorContains(t, err, "deal not found")
}

func TestCompanyTotals(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := context.Background()

	require.NoError(t, AddDealCommand(ctx, app, []string{"--name", "A", "--company", "Globex", "--revenue", "50000"}))
	require.NoError(t, AddDealCommand(ctx, app, []string{"--name", "B", "--company", "Globex", "--stage", "Onboarding", "--revenue", "20000"}))

	out.Reset()
	require.NoError(t, CompanyTotalsCommand(ctx, app, []string{"--recompute", "Globex"}))
	assert.Contains(t, out.String(), "Open pipeline: $50,000 across 1 deal(s)")
	assert.Contains(t, out.String(), "Closed:        $20,000 across 1 deal(s)")
}

func TestListStagesShowsCanonicalMapping(t *testing.T) {
	app, out := setupTestApp(t)
	require.NoError(t, ListStagesCommand(context.Background(), app, nil))
	assert.Contains(t, out.String(), "Proposal Drafted")
	assert.Contains(t, out.String(), "canonical")
	assert.Contains(t, out.String(), `"closed won" -> Onboarding`)
}

func TestSeedStagesIsIdempotent(t *testing.T) {
	app, out := setupTestApp(t)
	require.NoError(t, SeedStagesCommand(context.Background(), app, nil))
	assert.Contains(t, out.String(), "nothing seeded")
}

func TestAddTaskAppointmentShowsOnCalendar(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := context.Background()

	require.NoError(t, AddTaskCommand(ctx, app, []string{
		"--title", "Site visit", "--appointment", "--start", "2025-05-20T15:00:00Z",
	}))
	assert.Contains(t, out.String(), "Appointment created: Site visit")

	out.Reset()
	require.NoError(t, CalendarListCommand(ctx, app, []string{"--view", "month", "--date", "2025-05-01"}))
	assert.Contains(t, out.String(), "Site visit")
	assert.Contains(t, out.String(), models.EventCRMAppointment)
	assert.Contains(t, out.String(), "Total: 1 event(s)")
}

func TestAddTaskRejectsBackwardsWindow(t *testing.T) {
	app, _ := setupTestApp(t)
	err := AddTaskCommand(context.Background(), app, []string{
		"--title", "x", "--start", "2025-05-20T15:00:00Z", "--end", "2025-05-20T14:00:00Z",
	})
	assert.ErrorContains(t, err, "--end must be after --start")
}

func TestLogActivityTouchesContact(t *testing.T) {
	app, _ := setupTestApp(t)
	ctx := context.Background()

	contact := &models.Contact{TenantID: testTenant, FirstName: "Dana"}
	require.NoError(t, db.CreateContact(app.DB, contact))

	require.NoError(t, LogActivityCommand(ctx, app, []string{
		"--type", "call", "--title", "Intro call", "--contact", contact.ID.String(), "--at", "2025-05-13T09:00:00Z",
	}))

	got, err := db.GetContact(app.DB, testTenant, contact.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastContactedAt)
	assert.True(t, got.LastContactedAt.Equal(time.Date(2025, 5, 13, 9, 0, 0, 0, time.UTC)))
}

func TestLogActivityRejectsUnknownType(t *testing.T) {
	app, _ := setupTestApp(t)
	err := LogActivityCommand(context.Background(), app, []string{"--type", "fax", "--title", "x"})
	assert.ErrorContains(t, err, "invalid --type")
}

func TestTemplateRoundTrip(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := context.Background()

	contact := &models.Contact{TenantID: testTenant, FirstName: "Dana", Email: "dana@globex.test"}
	require.NoError(t, db.CreateContact(app.DB, contact))

	require.NoError(t, AddTemplateCommand(ctx, app, []string{
		"--name", "intro", "--subject", "Hi {{.Contact.FirstName}}", "--body", "From {{.Sender.Name}}",
	}))
	out.Reset()
	require.NoError(t, RenderTemplateCommand(ctx, app, []string{"--name", "intro", contact.ID.String()}))
	assert.Contains(t, out.String(), "To: dana@globex.test")
	assert.Contains(t, out.String(), "Subject: Hi Dana")
	assert.Contains(t, out.String(), "From Alice Park")
}

func TestPipelineFunnelDashboard(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := context.Background()
	require.NoError(t, AddDealCommand(ctx, app, []string{"--name", "A", "--company", "Globex", "--stage", "Negotiation", "--revenue", "10000"}))

	out.Reset()
	require.NoError(t, PipelineFunnelCommand(ctx, app, []string{"--mine"}))
	assert.Contains(t, out.String(), "Negotiation")
}

func TestPipelineFunnelJSON(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := context.Background()
	require.NoError(t, AddDealCommand(ctx, app, []string{"--name", "A", "--company", "Globex", "--revenue", "10000"}))

	out.Reset()
	require.NoError(t, PipelineFunnelCommand(ctx, app, []string{"--json"}))
	assert.Contains(t, out.String(), `"open_value": "$10,000"`)
}

func TestPipelineGraphUnknownKind(t *testing.T) {
	app, _ := setupTestApp(t)
	err := PipelineGraphCommand(context.Background(), app, []string{"--kind", "org"})
	assert.ErrorContains(t, err, "unknown graph kind")
}

func TestSessionSetAndShow(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := context.Background()

	require.NoError(t, SessionSetCommand(ctx, app, []string{"--tab", "deals", "--calendar-view", "day"}))
	out.Reset()
	require.NoError(t, SessionShowCommand(ctx, app, nil))
	assert.Contains(t, out.String(), "Tab:           deals")
	assert.Contains(t, out.String(), "Calendar view: day")

	require.NoError(t, SessionClearCommand(ctx, app, nil))
	out.Reset()
	require.NoError(t, SessionShowCommand(ctx, app, nil))
	assert.Contains(t, out.String(), "No active session")
}

func TestAddUserReloadsDirectory(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := context.Background()

	require.NoError(t, ListUsersCommand(ctx, app, nil))
	assert.Contains(t, out.String(), "Alice Park")

	require.NoError(t, AddUserCommand(ctx, app, []string{"--id", "u-bo", "--name", "Bo Chen", "--email", "bo@acme.test"}))
	require.NoError(t, AddUserCommand(ctx, app, []string{"--id", "u-cy", "--name", "Cy Diaz"}))
	assert.Contains(t, out.String(), "Salesperson saved: Bo Chen")

	out.Reset()
	require.NoError(t, ListUsersCommand(ctx, app, nil))
	assert.NotContains(t, out.String(), "Bo Chen", "reload waits for the quiet window")

	app.Team.Flush()
	out.Reset()
	require.NoError(t, ListUsersCommand(ctx, app, nil))
	assert.Contains(t, out.String(), "Bo Chen")
	assert.Contains(t, out.String(), "Cy Diaz")

	ref := app.Team.Resolve(ctx, testTenant, models.IDRef("u-bo"))
	assert.Equal(t, "Bo Chen", ref.Name)
}

func TestAddUserRequiresIDAndName(t *testing.T) {
	app, _ := setupTestApp(t)
	assert.Error(t, AddUserCommand(context.Background(), app, []string{"--id", "u-x"}))
}
