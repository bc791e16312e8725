// ABOUTME: Matches calendar attendees to CRM contacts by email
// ABOUTME: Used to link imported events to contacts and their companies
package sync

import (
	"strings"

	"github.com/harperreed/hirepipe/models"
)

type ContactMatcher struct {
	byEmail map[string]*models.Contact
}

// NewContactMatcher creates a matcher from existing contacts.
func NewContactMatcher(contacts []models.Contact) *ContactMatcher {
	m := &ContactMatcher{
		byEmail: make(map[string]*models.Contact),
	}
	for i := range contacts {
		email := normalizeEmail(contacts[i].Email)
		if email != "" {
			m.byEmail[email] = &contacts[i]
		}
	}
	return m
}

// FindMatch looks for an existing contact by email.
func (m *ContactMatcher) FindMatch(email string) (*models.Contact, bool) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return nil, false
	}
	contact, found := m.byEmail[normalized]
	return contact, found
}

// Match returns the distinct contacts whose email appears in emails.
func (m *ContactMatcher) Match(emails []string) []*models.Contact {
	seen := make(map[*models.Contact]bool)
	var out []*models.Contact
	for _, email := range emails {
		c, ok := m.FindMatch(email)
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// AssociationsFor links the contacts and every company they belong to.
func AssociationsFor(contacts []*models.Contact) models.Associations {
	var contactRefs, companyRefs []models.Ref
	for _, c := range contacts {
		contactRefs = append(contactRefs, models.IDRef(c.ID.String()))
		for _, id := range c.CompanyIDs() {
			companyRefs = append(companyRefs, models.IDRef(id))
		}
	}
	return models.Associations{
		Contacts:  dedupRefs(contactRefs),
		Companies: dedupRefs(companyRefs),
	}
}

func dedupRefs(refs []models.Ref) []models.Ref {
	ids := models.CanonicalIDs(refs)
	if len(ids) == 0 {
		return nil
	}
	out := make([]models.Ref, len(ids))
	for i, id := range ids {
		out[i] = models.IDRef(id)
	}
	return out
}

// normalizeEmail converts email to lowercase for comparison.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
