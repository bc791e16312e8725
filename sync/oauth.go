// ABOUTME: OAuth configuration and token management for Google Calendar
// ABOUTME: Handles the consent flow, token storage at XDG paths, and auto-refresh
package sync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// CalendarScope is the only Google scope the CRM asks for.
const CalendarScope = "https://www.googleapis.com/auth/calendar.readonly"

// NewOAuthConfig creates the OAuth2 config. Credentials come from
// GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.
func NewOAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  "http://localhost:8080/oauth/callback",
		Scopes:       []string{CalendarScope},
		Endpoint:     google.Endpoint,
	}
}

// CheckCredentials returns the config, or an error when credentials are unset.
func CheckCredentials() (*oauth2.Config, error) {
	config := NewOAuthConfig()
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("google OAuth credentials not configured. Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET environment variables")
	}
	return config, nil
}

// TokenPath returns the XDG path for a tenant's OAuth token.
func TokenPath(tenantID string) string {
	name := "google-credentials.json"
	if tenantID != "" {
		name = "google-credentials-" + tenantID + ".json"
	}
	return filepath.Join(xdg.DataHome, "hirepipe", name)
}

// SaveToken writes the token with owner-only permissions.
func SaveToken(tenantID string, token *oauth2.Token) error {
	path := TokenPath(tenantID)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}

// LoadToken reads the tenant's saved token.
func LoadToken(tenantID string) (*oauth2.Token, error) {
	f, err := os.Open(TokenPath(tenantID))
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &token, nil
}
