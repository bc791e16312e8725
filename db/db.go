// ABOUTME: Database connection management and initialization
// ABOUTME: Handles opening SQLite database with WAL mode and shared tenant/JSON helpers
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrInvalidTenant is returned when a call is made without a tenant id.
	ErrInvalidTenant = errors.New("tenant id is required")
	// ErrNotFound is returned by updates that matched no row.
	ErrNotFound = errors.New("record not found")
)

func OpenDatabase(path string) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	// Open database with WAL mode
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	// Configure connection pool for SQLite (avoid database locked errors)
	db.SetMaxOpenConns(1)

	// Initialize schema
	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func checkTenant(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return ErrInvalidTenant
	}
	return nil
}

// EnsureTenant creates the tenant row if it does not exist.
func EnsureTenant(db *sql.DB, tenantID, name string) error {
	if err := checkTenant(tenantID); err != nil {
		return err
	}
	if name == "" {
		name = tenantID
	}
	_, err := db.Exec(`
		INSERT INTO tenants (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, tenantID, name)
	if err != nil {
		return fmt.Errorf("failed to ensure tenant: %w", err)
	}
	return nil
}

func toJSON(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// nullableJSON stores nil pointers and empty maps as NULL.
func nullableJSON(v interface{}, empty bool) (sql.NullString, error) {
	if empty {
		return sql.NullString{}, nil
	}
	s, err := toJSON(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: s, Valid: true}, nil
}

func fromJSON(s sql.NullString, v interface{}) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), v)
}

func likePattern(query string) string {
	return "%" + strings.ToLower(query) + "%"
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func rowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
