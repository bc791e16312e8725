// ABOUTME: Email template MCP tool handlers
// ABOUTME: Saves templates and renders them against a contact, its company and the sender
package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/harperreed/hirepipe/templates"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type TemplateHandlers struct {
	env *Env
}

func NewTemplateHandlers(env *Env) *TemplateHandlers {
	return &TemplateHandlers{env: env}
}

type SaveTemplateInput struct {
	Name    string `json:"name" validate:"required" jsonschema:"Template name (required, unique per tenant)"`
	Subject string `json:"subject" validate:"required" jsonschema:"Subject line, may use {{.Contact.FirstName}} style fields"`
	Body    string `json:"body" validate:"required" jsonschema:"Message body, may use {{.Contact.FirstName}} style fields"`
}

type TemplateOutput struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *TemplateHandlers) SaveTemplate(_ context.Context, request *mcp.CallToolRequest, input SaveTemplateInput) (*mcp.CallToolResult, TemplateOutput, error) {
	if err := checkInput(input); err != nil {
		return nil, TemplateOutput{}, err
	}
	tpl := &models.EmailTemplate{
		TenantID: h.env.TenantID,
		Name:     input.Name,
		Subject:  input.Subject,
		Body:     input.Body,
	}
	if err := templates.Check(*tpl); err != nil {
		return nil, TemplateOutput{}, err
	}
	if err := db.SaveTemplate(h.env.DB, tpl); err != nil {
		return nil, TemplateOutput{}, fmt.Errorf("failed to save template: %w", err)
	}
	// Overwrites keep the original row id.
	if stored, err := db.GetTemplateByName(h.env.DB, h.env.TenantID, tpl.Name); err == nil && stored != nil {
		tpl = stored
	}
	return nil, TemplateOutput{ID: tpl.ID.String(), Name: tpl.Name, Subject: tpl.Subject, Body: tpl.Body}, nil
}

type RenderTemplateInput struct {
	Name      string `json:"name" validate:"required" jsonschema:"Template name (required)"`
	ContactID string `json:"contact_id" validate:"required,uuid" jsonschema:"Contact to address (required)"`
}

type RenderTemplateOutput struct {
	To      string `json:"to,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *TemplateHandlers) RenderEmailTemplate(ctx context.Context, request *mcp.CallToolRequest, input RenderTemplateInput) (*mcp.CallToolResult, RenderTemplateOutput, error) {
	if err := checkInput(input); err != nil {
		return nil, RenderTemplateOutput{}, err
	}
	tpl, err := db.GetTemplateByName(h.env.DB, h.env.TenantID, input.Name)
	if err != nil {
		return nil, RenderTemplateOutput{}, fmt.Errorf("failed to get template: %w", err)
	}
	if tpl == nil {
		return nil, RenderTemplateOutput{}, fmt.Errorf("template not found: %s", input.Name)
	}

	contact, err := db.GetContact(h.env.DB, h.env.TenantID, uuid.MustParse(input.ContactID))
	if err != nil {
		return nil, RenderTemplateOutput{}, fmt.Errorf("failed to get contact: %w", err)
	}
	if contact == nil {
		return nil, RenderTemplateOutput{}, fmt.Errorf("contact not found: %s", input.ContactID)
	}

	var company *models.Company
	if ids := contact.CompanyIDs(); len(ids) > 0 {
		if id, perr := uuid.Parse(ids[0]); perr == nil {
			company, err = db.GetCompany(h.env.DB, h.env.TenantID, id)
			if err != nil {
				return nil, RenderTemplateOutput{}, fmt.Errorf("failed to get company: %w", err)
			}
		}
	}

	msg, err := templates.Render(*tpl, contact, company, h.sender(ctx))
	if err != nil {
		return nil, RenderTemplateOutput{}, err
	}
	return nil, RenderTemplateOutput{To: contact.Email, Subject: msg.Subject, Body: msg.Body}, nil
}

// sender looks the acting user up in the team directory, then the users table.
func (h *TemplateHandlers) sender(ctx context.Context) *models.Salesperson {
	if h.env.UserID == "" {
		return nil
	}
	if h.env.Team != nil {
		ref := h.env.Team.Resolve(ctx, h.env.TenantID, models.IDRef(h.env.UserID))
		if ref.Name != "" {
			return &models.Salesperson{ID: ref.ID, TenantID: h.env.TenantID, Name: ref.Name, Email: ref.Email}
		}
	}
	user, err := db.GetUser(h.env.DB, h.env.TenantID, h.env.UserID)
	if err != nil || user == nil {
		return nil
	}
	return user
}
