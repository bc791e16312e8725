// ABOUTME: Contact database operations
// ABOUTME: Handles tenant-scoped CRUD and lookups across new and legacy company links
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/models"
)

const contactColumns = `id, tenant_id, first_name, last_name, full_name, email, phone, job_title, company_id,
	associations, legacy_owners, state, tags, is_active, last_contacted_at, created_at, updated_at`

// ContactFilter narrows FindContacts. Zero values match everything.
type ContactFilter struct {
	Query     string
	State     string
	CompanyID string
	OwnerID   string
	Limit     int
}

func CreateContact(db *sql.DB, contact *models.Contact) error {
	if err := checkTenant(contact.TenantID); err != nil {
		return err
	}
	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	now := time.Now()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	args, err := contactArgs(contact)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO contacts (id, tenant_id, first_name, last_name, full_name, email, phone, job_title, company_id,
			associations, legacy_owners, state, tags, is_active, last_contacted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, append([]interface{}{contact.ID.String(), contact.TenantID}, append(args, contact.CreatedAt, contact.UpdatedAt)...)...)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

// contactArgs returns the mutable columns from first_name through last_contacted_at.
func contactArgs(c *models.Contact) ([]interface{}, error) {
	assoc, err := toJSON(c.Associations)
	if err != nil {
		return nil, fmt.Errorf("failed to encode associations: %w", err)
	}
	legacy, err := toJSON(c.LegacyOwners)
	if err != nil {
		return nil, fmt.Errorf("failed to encode legacy owners: %w", err)
	}
	tags, err := nullableJSON(c.Tags, len(c.Tags) == 0)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	return []interface{}{
		c.FirstName, c.LastName, c.FullName, c.Email, c.Phone, c.JobTitle, nullString(c.CompanyID),
		assoc, legacy, c.State, tags, c.IsActive, c.LastContactedAt,
	}, nil
}

func scanContact(row rowScanner) (*models.Contact, error) {
	var c models.Contact
	var companyID, assoc, legacy, tags sql.NullString
	var lastContacted sql.NullTime

	err := row.Scan(
		&c.ID,
		&c.TenantID,
		&c.FirstName,
		&c.LastName,
		&c.FullName,
		&c.Email,
		&c.Phone,
		&c.JobTitle,
		&companyID,
		&assoc,
		&legacy,
		&c.State,
		&tags,
		&c.IsActive,
		&lastContacted,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.CompanyID = companyID.String
	if lastContacted.Valid {
		c.LastContactedAt = &lastContacted.Time
	}
	if err := fromJSON(assoc, &c.Associations); err != nil {
		return nil, fmt.Errorf("contact %s: bad associations: %w", c.ID, err)
	}
	if err := fromJSON(legacy, &c.LegacyOwners); err != nil {
		return nil, fmt.Errorf("contact %s: bad legacy owners: %w", c.ID, err)
	}
	if err := fromJSON(tags, &c.Tags); err != nil {
		return nil, fmt.Errorf("contact %s: bad tags: %w", c.ID, err)
	}
	return &c, nil
}

// GetContact returns nil, nil when the contact does not exist in the tenant.
func GetContact(db *sql.DB, tenantID string, id uuid.UUID) (*models.Contact, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}

	contact, err := scanContact(db.QueryRow(`
		SELECT `+contactColumns+`
		FROM contacts WHERE tenant_id = ? AND id = ?
	`, tenantID, id.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return contact, nil
}

// GetContactByEmail matches the whole address, ignoring case and
// surrounding space. Returns nil, nil when no contact has it.
func GetContactByEmail(db *sql.DB, tenantID, email string) (*models.Contact, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}

	contact, err := scanContact(db.QueryRow(`
		SELECT `+contactColumns+`
		FROM contacts WHERE tenant_id = ? AND LOWER(email) = LOWER(?)
		ORDER BY created_at, id
		LIMIT 1
	`, tenantID, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact by email: %w", err)
	}
	return contact, nil
}

// FindContacts searches names and email. Company filtering matches both
// associations.companies and the legacy companyId column.
func FindContacts(db *sql.DB, tenantID string, filter ContactFilter) ([]models.Contact, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}

	pattern := likePattern(filter.Query)
	rows, err := db.Query(`
		SELECT `+contactColumns+`
		FROM contacts
		WHERE tenant_id = ?
			AND (? = '' OR LOWER(full_name) LIKE ? OR LOWER(first_name || ' ' || last_name) LIKE ? OR LOWER(email) LIKE ?)
			AND (? = '' OR state = ?)
		ORDER BY last_name, first_name, full_name
	`, tenantID, filter.Query, pattern, pattern, pattern, filter.State, filter.State)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var contacts []models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		if filter.CompanyID != "" && !c.BelongsToCompany(filter.CompanyID) {
			continue
		}
		if filter.OwnerID != "" && !models.IsAssociatedWith(*c, filter.OwnerID) {
			continue
		}
		contacts = append(contacts, *c)
		if filter.Limit > 0 && len(contacts) >= filter.Limit {
			break
		}
	}
	return contacts, rows.Err()
}

// ListContacts returns every contact in the tenant.
func ListContacts(db *sql.DB, tenantID string) ([]models.Contact, error) {
	return FindContacts(db, tenantID, ContactFilter{})
}

func UpdateContact(db *sql.DB, contact *models.Contact) error {
	if err := checkTenant(contact.TenantID); err != nil {
		return err
	}
	contact.UpdatedAt = time.Now()

	args, err := contactArgs(contact)
	if err != nil {
		return err
	}
	args = append(args, contact.UpdatedAt, contact.TenantID, contact.ID.String())

	res, err := db.Exec(`
		UPDATE contacts
		SET first_name = ?, last_name = ?, full_name = ?, email = ?, phone = ?, job_title = ?, company_id = ?,
			associations = ?, legacy_owners = ?, state = ?, tags = ?, is_active = ?, last_contacted_at = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	return rowsAffected(res)
}

// TouchContact records an interaction time on the contact.
func TouchContact(db *sql.DB, tenantID string, id uuid.UUID, at time.Time) error {
	if err := checkTenant(tenantID); err != nil {
		return err
	}
	res, err := db.Exec(`
		UPDATE contacts SET last_contacted_at = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`, at, time.Now(), tenantID, id.String())
	if err != nil {
		return fmt.Errorf("failed to update last contacted: %w", err)
	}
	return rowsAffected(res)
}

func DeleteContact(db *sql.DB, tenantID string, id uuid.UUID) error {
	if err := checkTenant(tenantID); err != nil {
		return err
	}
	res, err := db.Exec(`DELETE FROM contacts WHERE tenant_id = ? AND id = ?`, tenantID, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	return rowsAffected(res)
}
