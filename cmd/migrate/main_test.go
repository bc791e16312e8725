// ABOUTME: Tests for the legacy owner backfill
// ABOUTME: Covers dry runs, idempotence and leaving updated_at untouched
package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testTenant = "tenant-a"

func seed(t *testing.T, path string) (*models.Contact, *models.Deal) {
	t.Helper()
	database, err := db.OpenDatabase(path)
	require.NoError(t, err)
	defer func() { _ = database.Close() }()
	require.NoError(t, db.EnsureTenant(database, testTenant, ""))

	company := &models.Company{TenantID: testTenant, Name: "Globex"}
	company.Owner = "u-bob"
	require.NoError(t, db.CreateCompany(database, company))

	contact := &models.Contact{TenantID: testTenant, FirstName: "Dana", CompanyID: company.ID.String()}
	contact.SalesOwnerID = "u-alice"
	contact.Associations.Salespeople = []models.Ref{models.IDRef("u-alice")}
	contact.AccountOwnerID = "u-carol"
	require.NoError(t, db.CreateContact(database, contact))

	deal := &models.Deal{TenantID: testTenant, Name: "Ramp", Stage: "Discovery"}
	deal.SalesOwnerID = "u-alice"
	require.NoError(t, db.CreateDeal(database, deal))
	return contact, deal
}

func TestBackfillMovesLegacyOwners(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crm.db")
	contact, deal := seed(t, path)

	database, err := db.OpenDatabase(path)
	require.NoError(t, err)
	defer func() { _ = database.Close() }()
	before, err := db.GetDeal(database, testTenant, deal.ID)
	require.NoError(t, err)

	report, err := backfillTenant(database, testTenant, false, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Report{Contacts: 1, Companies: 1, Deals: 1}, report)

	gotContact, err := db.GetContact(database, testTenant, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u-alice", "u-carol"}, models.CanonicalIDs(gotContact.Associations.Salespeople))
	assert.Equal(t, []string{contact.CompanyID}, models.CanonicalIDs(gotContact.Associations.Companies))

	gotDeal, err := db.GetDeal(database, testTenant, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u-alice"}, models.CanonicalIDs(gotDeal.Associations.Salespeople))
	assert.WithinDuration(t, before.UpdatedAt, gotDeal.UpdatedAt, time.Millisecond)

	again, err := backfillTenant(database, testTenant, false, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Report{}, again)
}

func TestDryRunChangesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crm.db")
	_, deal := seed(t, path)

	var out bytes.Buffer
	require.NoError(t, migrate(path, "", true, true, &out, zap.NewNop()))
	assert.Contains(t, out.String(), "[DRY RUN] would update 1 contact(s), 1 company(ies), 1 deal(s)")
	assert.NotContains(t, out.String(), "Backup created")

	database, err := db.OpenDatabase(path)
	require.NoError(t, err)
	defer func() { _ = database.Close() }()
	got, err := db.GetDeal(database, testTenant, deal.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Associations.Salespeople)
}

func TestMigrateWritesBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crm.db")
	seed(t, path)

	var out bytes.Buffer
	require.NoError(t, migrate(path, testTenant, false, true, &out, zap.NewNop()))
	assert.Contains(t, out.String(), "Backup created")

	matches, err := filepath.Glob(path + ".backup.*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestMigrateMissingDatabase(t *testing.T) {
	err := migrate(filepath.Join(t.TempDir(), "nope.db"), "", false, false, &bytes.Buffer{}, zap.NewNop())
	assert.Error(t, err)
}
