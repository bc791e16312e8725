// ABOUTME: Tests for Google sync CLI commands
// ABOUTME: Verifies token handling and sync status without network access
package cli

import (
	"context"
	"testing"

	"github.com/adrg/xdg"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// isolateXDG points token storage at a temp dir for the test.
func isolateXDG(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	xdg.Reload()
	t.Cleanup(xdg.Reload)
}

func TestSyncCalendarCommand_NoToken(t *testing.T) {
	app, _ := setupTestApp(t)

	err := SyncCalendarCommand(context.Background(), app, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no authentication token found")
}

func TestSyncInitCommand_NoCredentials(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")
	app, _ := setupTestApp(t)

	err := SyncInitCommand(context.Background(), app, []string{"--no-browser"})
	assert.ErrorContains(t, err, "credentials not configured")
}

func TestSyncStatusCommand(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := context.Background()

	require.NoError(t, SyncStatusCommand(ctx, app, nil))
	assert.Contains(t, out.String(), "not connected")
	assert.Contains(t, out.String(), "No syncs have run yet")

	require.NoError(t, sync.SaveToken(testTenant, &oauth2.Token{AccessToken: "x"}))
	msg := "token revoked"
	require.NoError(t, db.UpdateSyncStatus(app.DB, testTenant, "calendar", "error", &msg))

	out.Reset()
	require.NoError(t, SyncStatusCommand(ctx, app, nil))
	assert.Contains(t, out.String(), "Google: connected")
	assert.Contains(t, out.String(), "token revoked")
}

func TestRefreshOpenDealSignalsSkipsClosed(t *testing.T) {
	app, _ := setupTestApp(t)
	ctx := context.Background()
	require.NoError(t, AddDealCommand(ctx, app, []string{"--name", "Open", "--company", "Globex"}))
	require.NoError(t, AddDealCommand(ctx, app, []string{"--name", "Lost", "--company", "Globex", "--stage", "closed lost"}))

	n, err := app.refreshOpenDealSignals()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
