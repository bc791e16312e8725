// ABOUTME: Tests for attendee to contact matching
// ABOUTME: Email lookups are case-insensitive
package sync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/models"
)

func TestMatchContactByEmail(t *testing.T) {
	existing := []models.Contact{
		{ID: uuid.New(), FirstName: "Alice", Email: "alice@example.com"},
		{ID: uuid.New(), FirstName: "Bob", Email: "bob@example.com"},
	}
	matcher := NewContactMatcher(existing)

	match, found := matcher.FindMatch(" Alice@Example.com ")
	if !found || match.FirstName != "Alice" {
		t.Errorf("expected Alice, got %v %v", match, found)
	}
	if _, found := matcher.FindMatch("charlie@example.com"); found {
		t.Error("expected no match for charlie@example.com")
	}
	if _, found := matcher.FindMatch(""); found {
		t.Error("expected no match for empty email")
	}
}

func TestAssociationsForDedupes(t *testing.T) {
	alice := models.Contact{ID: uuid.New(), Email: "alice@example.com", CompanyID: "c1",
		Associations: models.Associations{Companies: []models.Ref{models.IDRef("c1"), models.IDRef("c2")}}}
	matcher := NewContactMatcher([]models.Contact{alice})

	matched := matcher.Match([]string{"alice@example.com", "ALICE@example.com", "nobody@example.com"})
	if len(matched) != 1 {
		t.Fatalf("expected one distinct match, got %d", len(matched))
	}
	assoc := AssociationsFor(matched)
	if got := models.CanonicalIDs(assoc.Companies); len(got) != 2 || got[0] != "c1" || got[1] != "c2" {
		t.Errorf("expected companies [c1 c2], got %v", got)
	}
}
