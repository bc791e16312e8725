// ABOUTME: Tests for email template MCP tool handlers
// ABOUTME: Saves a template and renders it for a contact with company and sender fields
package handlers

import (
	"context"
	"testing"

	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
)

func TestSaveAndRenderTemplate(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	handler := NewTemplateHandlers(env)

	company := &models.Company{TenantID: testTenant, Name: "Acme Logistics"}
	if err := db.CreateCompany(env.DB, company); err != nil {
		t.Fatalf("CreateCompany failed: %v", err)
	}
	contact := &models.Contact{TenantID: testTenant, FirstName: "Dana", Email: "dana@acme.com", CompanyID: company.ID.String(), IsActive: true}
	if err := db.CreateContact(env.DB, contact); err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}

	_, saved, err := handler.SaveTemplate(ctx, nil, SaveTemplateInput{
		Name:    "intro",
		Subject: "Staffing for {{.Company.Name}}",
		Body:    "Hi {{.Contact.FirstName}}, this is {{.Sender.Name}}. {{.Contact.Nickname}}",
	})
	if err != nil {
		t.Fatalf("SaveTemplate failed: %v", err)
	}

	_, replaced, err := handler.SaveTemplate(ctx, nil, SaveTemplateInput{
		Name:    "intro",
		Subject: "Staffing for {{.Company.Name}}",
		Body:    "Hi {{.Contact.FirstName}}, this is {{.Sender.Name}}.",
	})
	if err != nil {
		t.Fatalf("SaveTemplate failed: %v", err)
	}
	if replaced.ID != saved.ID {
		t.Errorf("overwrite changed id %s -> %s", saved.ID, replaced.ID)
	}

	_, msg, err := handler.RenderEmailTemplate(ctx, nil, RenderTemplateInput{Name: "intro", ContactID: contact.ID.String()})
	if err != nil {
		t.Fatalf("RenderEmailTemplate failed: %v", err)
	}
	if msg.To != "dana@acme.com" {
		t.Errorf("unexpected recipient %q", msg.To)
	}
	if msg.Subject != "Staffing for Acme Logistics" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if msg.Body != "Hi Dana, this is Alice Park." {
		t.Errorf("unexpected body %q", msg.Body)
	}
}

func TestSaveTemplateRejectsBadSyntax(t *testing.T) {
	env := setupEnv(t)
	handler := NewTemplateHandlers(env)
	if _, _, err := handler.SaveTemplate(context.Background(), nil, SaveTemplateInput{Name: "broken", Subject: "{{.Contact", Body: "x"}); err == nil {
		t.Error("expected parse error")
	}
	if _, _, err := handler.RenderEmailTemplate(context.Background(), nil, RenderTemplateInput{Name: "missing", ContactID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8"}); err == nil {
		t.Error("expected error for missing template")
	}
}
