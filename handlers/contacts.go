// ABOUTME: Contact MCP tool handlers
// ABOUTME: Implements add_contact and find_contacts with salesperson ownership filtering
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ContactHandlers struct {
	env *Env
}

func NewContactHandlers(env *Env) *ContactHandlers {
	return &ContactHandlers{env: env}
}

type AddContactInput struct {
	FirstName   string `json:"first_name" validate:"required" jsonschema:"First name (required)"`
	LastName    string `json:"last_name,omitempty" jsonschema:"Last name"`
	Email       string `json:"email,omitempty" validate:"omitempty,email" jsonschema:"Contact email address"`
	Phone       string `json:"phone,omitempty" jsonschema:"Contact phone number"`
	JobTitle    string `json:"job_title,omitempty" jsonschema:"Job title"`
	State       string `json:"state,omitempty" validate:"omitempty,max=32" jsonschema:"State or region code"`
	CompanyName string `json:"company_name,omitempty" jsonschema:"Company name (will be looked up or created)"`
	OwnerID     string `json:"owner_id,omitempty" jsonschema:"Salesperson id to assign (defaults to the current user)"`
}

type ContactOutput struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	JobTitle        string   `json:"job_title,omitempty"`
	State           string   `json:"state,omitempty"`
	CompanyIDs      []string `json:"company_ids,omitempty"`
	Salespeople     []string `json:"salespeople,omitempty"`
	LastContactedAt *string  `json:"last_contacted_at,omitempty"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

func (h *ContactHandlers) AddContact(ctx context.Context, request *mcp.CallToolRequest, input AddContactInput) (*mcp.CallToolResult, ContactOutput, error) {
	if err := checkInput(input); err != nil {
		return nil, ContactOutput{}, err
	}

	contact := &models.Contact{
		TenantID:  h.env.TenantID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Phone:     input.Phone,
		JobTitle:  input.JobTitle,
		State:     input.State,
		IsActive:  true,
	}

	if input.CompanyName != "" {
		company, err := findOrCreateCompany(h.env, input.CompanyName)
		if err != nil {
			return nil, ContactOutput{}, err
		}
		contact.Associations.Companies = []models.Ref{models.IDRef(company.ID.String())}
	}
	contact.Associations.Salespeople = ownerRefs(ctx, h.env, input.OwnerID)

	if err := db.CreateContact(h.env.DB, contact); err != nil {
		return nil, ContactOutput{}, fmt.Errorf("failed to create contact: %w", err)
	}
	return nil, contactToOutput(contact), nil
}

type FindContactsInput struct {
	Query     string `json:"query,omitempty" jsonschema:"Search query (searches name and email)"`
	CompanyID string `json:"company_id,omitempty" validate:"omitempty,uuid" jsonschema:"Filter by company ID"`
	State     string `json:"state,omitempty" jsonschema:"Filter by state (contactState)"`
	OwnerID   string `json:"owner_id,omitempty" jsonschema:"Only contacts associated with this salesperson"`
	Mine      bool   `json:"mine,omitempty" jsonschema:"Only contacts associated with the current user"`
	Limit     int    `json:"limit,omitempty" validate:"omitempty,min=1,max=1000" jsonschema:"Maximum number of results (default 10)"`
}

type FindContactsOutput struct {
	Contacts []ContactOutput `json:"contacts"`
}

// FindContacts applies the owner filter through company ownership too: a
// contact belongs to a salesperson when either it or one of its companies does.
func (h *ContactHandlers) FindContacts(_ context.Context, request *mcp.CallToolRequest, input FindContactsInput) (*mcp.CallToolResult, FindContactsOutput, error) {
	if err := checkInput(input); err != nil {
		return nil, FindContactsOutput{}, err
	}
	limit := input.Limit
	if limit == 0 {
		limit = 10
	}
	owner := input.OwnerID
	if input.Mine {
		owner = h.env.UserID
	}

	filter := db.ContactFilter{Query: input.Query, State: input.State, CompanyID: input.CompanyID}
	if owner == "" {
		filter.Limit = limit
	}
	contacts, err := db.FindContacts(h.env.DB, h.env.TenantID, filter)
	if err != nil {
		return nil, FindContactsOutput{}, fmt.Errorf("failed to find contacts: %w", err)
	}

	if owner != "" {
		companies, err := db.ListCompanies(h.env.DB, h.env.TenantID)
		if err != nil {
			return nil, FindContactsOutput{}, fmt.Errorf("failed to load companies: %w", err)
		}
		contacts = models.ContactsForUser(contacts, companies, owner)
		if len(contacts) > limit {
			contacts = contacts[:limit]
		}
	}

	result := make([]ContactOutput, len(contacts))
	for i := range contacts {
		result[i] = contactToOutput(&contacts[i])
	}
	return nil, FindContactsOutput{Contacts: result}, nil
}

func contactToOutput(contact *models.Contact) ContactOutput {
	return ContactOutput{
		ID:              contact.ID.String(),
		Name:            contact.DisplayName(),
		Email:           contact.Email,
		Phone:           contact.Phone,
		JobTitle:        contact.JobTitle,
		State:           contact.State,
		CompanyIDs:      contact.CompanyIDs(),
		Salespeople:     models.OwnerIDs(*contact),
		LastContactedAt: formatTime(contact.LastContactedAt),
		CreatedAt:       contact.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       contact.UpdatedAt.Format(time.RFC3339),
	}
}

// ownerRefs assigns ownerID, or the current user, as an object-form ref
// when the team directory knows the name.
func ownerRefs(ctx context.Context, env *Env, ownerID string) []models.Ref {
	if ownerID == "" {
		ownerID = env.UserID
	}
	if ownerID == "" {
		return nil
	}
	ref := models.IDRef(ownerID)
	if env.Team != nil {
		if resolved := env.Team.Resolve(ctx, env.TenantID, ref); resolved.Name != "" {
			resolved.Kind = models.RefObject
			ref = resolved
		}
	}
	return []models.Ref{ref}
}

func findOrCreateCompany(env *Env, name string) (*models.Company, error) {
	company, err := db.FindCompanyByName(env.DB, env.TenantID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup company: %w", err)
	}
	if company != nil {
		return company, nil
	}
	company = &models.Company{TenantID: env.TenantID, Name: name}
	if err := db.CreateCompany(env.DB, company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return company, nil
}
