// ABOUTME: Association resolution between users and contacts, companies, and deals
// ABOUTME: Single canonical membership check over salespeople arrays and legacy owner fields
package models

// Owned is implemented by every entity that can be assigned to salespeople.
type Owned interface {
	SalespersonRefs() []Ref
	LegacyOwnerFields() []LegacyOwnerField
}

// LegacyOwnerField is one named legacy owner slot.
type LegacyOwnerField struct {
	Name  string
	Value string
}

// MatchSource reports which field produced an association match.
type MatchSource string

const (
	MatchNone         MatchSource = ""
	MatchSalespeople  MatchSource = "salespeople"
	MatchSalesOwner   MatchSource = "legacy:salesOwnerId"
	MatchAccountOwner MatchSource = "legacy:accountOwnerId"
	MatchOwner        MatchSource = "legacy:owner"
)

// LegacyOwnerFields returns the legacy slots in match order.
func (l LegacyOwners) LegacyOwnerFields() []LegacyOwnerField {
	return []LegacyOwnerField{
		{Name: "salesOwnerId", Value: l.SalesOwnerID},
		{Name: "accountOwnerId", Value: l.AccountOwnerID},
		{Name: "owner", Value: l.Owner},
	}
}

// LegacyIDs returns the non-empty legacy owner ids in match order.
func (l LegacyOwners) LegacyIDs() []string {
	var ids []string
	for _, f := range l.LegacyOwnerFields() {
		if f.Value != "" {
			ids = append(ids, f.Value)
		}
	}
	return ids
}

func (c Contact) SalespersonRefs() []Ref { return c.Associations.Salespeople }
func (c Company) SalespersonRefs() []Ref { return c.Associations.Salespeople }
func (d Deal) SalespersonRefs() []Ref    { return d.Associations.Salespeople }

// CanonicalIDs reduces refs to their ids, dropping blanks and duplicates
// while keeping first-seen order.
func CanonicalIDs(refs []Ref) []string {
	seen := make(map[string]bool, len(refs))
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		k := r.Key()
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		ids = append(ids, k)
	}
	return ids
}

// AssociationSource reports how userID is associated with entity. The
// salespeople array is checked before legacy fields and the first match wins.
func AssociationSource(entity Owned, userID string) MatchSource {
	if userID == "" {
		return MatchNone
	}

	for _, r := range entity.SalespersonRefs() {
		if r.Key() == userID {
			return MatchSalespeople
		}
	}

	for _, f := range entity.LegacyOwnerFields() {
		if f.Value == "" || f.Value != userID {
			continue
		}
		switch f.Name {
		case "salesOwnerId":
			return MatchSalesOwner
		case "accountOwnerId":
			return MatchAccountOwner
		default:
			return MatchOwner
		}
	}

	return MatchNone
}

// IsAssociatedWith reports whether userID owns or is assigned to entity.
func IsAssociatedWith(entity Owned, userID string) bool {
	return AssociationSource(entity, userID) != MatchNone
}

// OwnerIDs lists every user id the entity is associated with, salespeople first.
func OwnerIDs(entity Owned) []string {
	refs := append([]Ref(nil), entity.SalespersonRefs()...)
	for _, f := range entity.LegacyOwnerFields() {
		if f.Value != "" {
			refs = append(refs, IDRef(f.Value))
		}
	}
	return CanonicalIDs(refs)
}

// FilterByUser keeps the items associated with userID.
func FilterByUser[T Owned](items []T, userID string) []T {
	var out []T
	for _, item := range items {
		if IsAssociatedWith(item, userID) {
			out = append(out, item)
		}
	}
	return out
}

// CompanyIDs merges associations.companies with the legacy companyId field.
func (c Contact) CompanyIDs() []string {
	refs := append([]Ref(nil), c.Associations.Companies...)
	if c.CompanyID != "" {
		refs = append(refs, IDRef(c.CompanyID))
	}
	return CanonicalIDs(refs)
}

// BelongsToCompany reports whether the contact is linked to companyID by
// either schema.
func (c Contact) BelongsToCompany(companyID string) bool {
	for _, id := range c.CompanyIDs() {
		if id == companyID {
			return true
		}
	}
	return false
}

// CompanyIDs lists the companies a deal is linked to.
func (d Deal) CompanyIDs() []string {
	return CanonicalIDs(d.Associations.Companies)
}

// ContactIDs lists the contacts a deal is linked to.
func (d Deal) ContactIDs() []string {
	return CanonicalIDs(d.Associations.Contacts)
}

// ContactsForUser returns contacts associated with userID directly or
// through a company the user is associated with.
func ContactsForUser(contacts []Contact, companies []Company, userID string) []Contact {
	owned := make(map[string]bool)
	for _, c := range companies {
		if IsAssociatedWith(c, userID) {
			owned[c.ID.String()] = true
		}
	}

	var out []Contact
	for _, contact := range contacts {
		if IsAssociatedWith(contact, userID) {
			out = append(out, contact)
			continue
		}
		for _, id := range contact.CompanyIDs() {
			if owned[id] {
				out = append(out, contact)
				break
			}
		}
	}
	return out
}
