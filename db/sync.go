// ABOUTME: Database operations for the sync_state table
// ABOUTME: Manages per-tenant sync status and tokens for external calendar imports
package db

import (
	"database/sql"
	"fmt"
	"time"
)

// SyncState represents the sync state for a service within a tenant.
type SyncState struct {
	TenantID      string
	Service       string
	LastSyncTime  *time.Time
	LastSyncToken *string
	Status        string
	ErrorMessage  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func scanSyncState(row rowScanner) (*SyncState, error) {
	var state SyncState
	var lastSyncTime sql.NullTime
	var lastSyncToken sql.NullString
	var errorMessage sql.NullString
	var status sql.NullString

	err := row.Scan(
		&state.TenantID,
		&state.Service,
		&lastSyncTime,
		&lastSyncToken,
		&status,
		&errorMessage,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	state.Status = status.String
	state.LastSyncTime = timePtr(lastSyncTime)
	if lastSyncToken.Valid {
		state.LastSyncToken = &lastSyncToken.String
	}
	if errorMessage.Valid {
		state.ErrorMessage = &errorMessage.String
	}
	return &state, nil
}

// GetSyncState retrieves the sync state for a service.
func GetSyncState(db *sql.DB, tenantID, service string) (*SyncState, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}

	state, err := scanSyncState(db.QueryRow(`
		SELECT tenant_id, service, last_sync_time, last_sync_token, status, error_message, created_at, updated_at
		FROM sync_state
		WHERE tenant_id = ? AND service = ?
	`, tenantID, service))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}
	return state, nil
}

// UpdateSyncStatus updates the sync status for a service.
func UpdateSyncStatus(db *sql.DB, tenantID, service, status string, errorMsg *string) error {
	if err := checkTenant(tenantID); err != nil {
		return err
	}

	var errorMsgVal sql.NullString
	if errorMsg != nil {
		errorMsgVal = sql.NullString{String: *errorMsg, Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO sync_state (tenant_id, service, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(tenant_id, service) DO UPDATE SET
			status = excluded.status,
			error_message = excluded.error_message,
			updated_at = CURRENT_TIMESTAMP
	`, tenantID, service, status, errorMsgVal)
	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}
	return nil
}

// UpdateSyncToken updates the sync token and last sync time for a service.
func UpdateSyncToken(db *sql.DB, tenantID, service, token string) error {
	if err := checkTenant(tenantID); err != nil {
		return err
	}

	_, err := db.Exec(`
		INSERT INTO sync_state (tenant_id, service, last_sync_time, last_sync_token, status, created_at, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP, ?, 'idle', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(tenant_id, service) DO UPDATE SET
			last_sync_time = CURRENT_TIMESTAMP,
			last_sync_token = excluded.last_sync_token,
			status = 'idle',
			error_message = NULL,
			updated_at = CURRENT_TIMESTAMP
	`, tenantID, service, token)
	if err != nil {
		return fmt.Errorf("failed to update sync token: %w", err)
	}
	return nil
}

// ClearSyncToken forces the next import to run a full sync.
func ClearSyncToken(db *sql.DB, tenantID, service string) error {
	if err := checkTenant(tenantID); err != nil {
		return err
	}
	_, err := db.Exec(`
		UPDATE sync_state SET last_sync_token = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE tenant_id = ? AND service = ?
	`, tenantID, service)
	if err != nil {
		return fmt.Errorf("failed to clear sync token: %w", err)
	}
	return nil
}

// GetAllSyncStates retrieves the sync state for all services in a tenant.
func GetAllSyncStates(db *sql.DB, tenantID string) ([]SyncState, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT tenant_id, service, last_sync_time, last_sync_token, status, error_message, created_at, updated_at
		FROM sync_state
		WHERE tenant_id = ?
		ORDER BY service
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var states []SyncState
	for rows.Next() {
		state, err := scanSyncState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync state: %w", err)
		}
		states = append(states, *state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync states: %w", err)
	}
	return states, nil
}
