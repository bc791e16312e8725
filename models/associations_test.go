// ABOUTME: Tests for association resolution across new and legacy ownership schemas
// ABOUTME: Covers object refs, bare-id refs, legacy owner fields, and company-derived contacts
package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAssociatedWithObjectRef(t *testing.T) {
	var company Company
	require.NoError(t, json.Unmarshal([]byte(`{"associations":{"salespeople":[{"id":"u1"}]}}`), &company))

	assert.True(t, IsAssociatedWith(company, "u1"))
	assert.False(t, IsAssociatedWith(company, "u2"))
}

func TestIsAssociatedWithBareStringRef(t *testing.T) {
	var company Company
	require.NoError(t, json.Unmarshal([]byte(`{"associations":{"salespeople":["u1"]}}`), &company))

	assert.True(t, IsAssociatedWith(company, "u1"))
	assert.Equal(t, MatchSalespeople, AssociationSource(company, "u1"))
}

func TestIsAssociatedWithLegacyOwnerOnly(t *testing.T) {
	var company Company
	require.NoError(t, json.Unmarshal([]byte(`{"salesOwnerId":"u1"}`), &company))

	assert.True(t, IsAssociatedWith(company, "u1"))
	assert.Equal(t, MatchSalesOwner, AssociationSource(company, "u1"))
}

func TestAssociationSourceOrder(t *testing.T) {
	deal := Deal{
		Associations: Associations{Salespeople: []Ref{IDRef("u1")}},
		LegacyOwners: LegacyOwners{SalesOwnerID: "u1", AccountOwnerID: "u2", Owner: "u3"},
	}

	assert.Equal(t, MatchSalespeople, AssociationSource(deal, "u1"))
	assert.Equal(t, MatchAccountOwner, AssociationSource(deal, "u2"))
	assert.Equal(t, MatchOwner, AssociationSource(deal, "u3"))
	assert.Equal(t, MatchNone, AssociationSource(deal, "u4"))
}

func TestEmptyUserNeverMatches(t *testing.T) {
	contact := Contact{Associations: Associations{Salespeople: []Ref{{Kind: RefObject}}}}
	assert.False(t, IsAssociatedWith(contact, ""))
}

func TestUIDObjectRef(t *testing.T) {
	var deal Deal
	require.NoError(t, json.Unmarshal([]byte(`{"associations":{"salespeople":[{"uid":"u9","displayName":"Pat"}]}}`), &deal))

	require.Len(t, deal.Associations.Salespeople, 1)
	ref := deal.Associations.Salespeople[0]
	assert.Equal(t, RefObject, ref.Kind)
	assert.Equal(t, "u9", ref.ID)
	assert.Equal(t, "Pat", ref.Name)
	assert.True(t, IsAssociatedWith(deal, "u9"))
}

func TestRefRoundTripKeepsForm(t *testing.T) {
	in := `["u1",{"id":"u2","name":"Sam","email":"sam@example.com"}]`
	var refs []Ref
	require.NoError(t, json.Unmarshal([]byte(in), &refs))

	out, err := json.Marshal(refs)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestRefRejectsNumbers(t *testing.T) {
	var r Ref
	assert.Error(t, json.Unmarshal([]byte(`42`), &r))
}

func TestCanonicalIDsDedupes(t *testing.T) {
	ids := CanonicalIDs([]Ref{IDRef("a"), {Kind: RefObject, ID: "b"}, IDRef(" a "), IDRef("")})
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestOwnerIDs(t *testing.T) {
	company := Company{
		Associations: Associations{Salespeople: []Ref{IDRef("u1")}},
		LegacyOwners: LegacyOwners{SalesOwnerID: "u1", Owner: "u2"},
	}
	assert.Equal(t, []string{"u1", "u2"}, OwnerIDs(company))
}

func TestFilterByUser(t *testing.T) {
	deals := []Deal{
		{Name: "a", Associations: Associations{Salespeople: []Ref{IDRef("u1")}}},
		{Name: "b", LegacyOwners: LegacyOwners{Owner: "u1"}},
		{Name: "c", Associations: Associations{Salespeople: []Ref{IDRef("u2")}}},
	}

	got := FilterByUser(deals, "u1")
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "b", got[1].Name)
}

func TestContactCompanyIDsMergesLegacy(t *testing.T) {
	contact := Contact{
		CompanyID:    "c2",
		Associations: Associations{Companies: []Ref{IDRef("c1"), {Kind: RefObject, ID: "c2"}}},
	}
	assert.Equal(t, []string{"c1", "c2"}, contact.CompanyIDs())
	assert.True(t, contact.BelongsToCompany("c2"))
	assert.False(t, contact.BelongsToCompany("c3"))
}

func TestContactsForUserThroughCompany(t *testing.T) {
	acme := Company{ID: uuid.New(), Associations: Associations{Salespeople: []Ref{IDRef("u1")}}}
	other := Company{ID: uuid.New()}

	contacts := []Contact{
		{FirstName: "direct", LegacyOwners: LegacyOwners{AccountOwnerID: "u1"}},
		{FirstName: "via-company", Associations: Associations{Companies: []Ref{IDRef(acme.ID.String())}}},
		{FirstName: "via-legacy-company", CompanyID: acme.ID.String()},
		{FirstName: "unrelated", CompanyID: other.ID.String()},
	}

	got := ContactsForUser(contacts, []Company{acme, other}, "u1")
	var names []string
	for _, c := range got {
		names = append(names, c.FirstName)
	}
	assert.Equal(t, []string{"direct", "via-company", "via-legacy-company"}, names)
}

func TestCompanyNameFallsBackToName(t *testing.T) {
	var legacy Company
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Globex","salesOwnerId":"u1"}`), &legacy))
	assert.Equal(t, "Globex", legacy.Name)
	assert.True(t, IsAssociatedWith(legacy, "u1"))

	var both Company
	require.NoError(t, json.Unmarshal([]byte(`{"companyName":"Acme Logistics","name":"acme"}`), &both))
	assert.Equal(t, "Acme Logistics", both.Name)

	out, err := json.Marshal(both)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"companyName":"Acme Logistics"`)
	assert.NotContains(t, string(out), `"name"`)
}
