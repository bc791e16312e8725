// ABOUTME: Salesperson directory MCP tool handlers
// ABOUTME: Saves team members and schedules a debounced directory reload
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type TeamHandlers struct {
	env *Env
}

func NewTeamHandlers(env *Env) *TeamHandlers {
	return &TeamHandlers{env: env}
}

type AddSalespersonInput struct {
	ID       string `json:"id" validate:"required" jsonschema:"Salesperson id, as used in associations.salespeople (required)"`
	Name     string `json:"name" validate:"required" jsonschema:"Display name (required)"`
	Email    string `json:"email,omitempty" validate:"omitempty,email" jsonschema:"Email address"`
	Role     string `json:"role,omitempty" jsonschema:"Role, defaults to sales"`
	Inactive bool   `json:"inactive,omitempty" jsonschema:"Keep the user out of the directory"`
}

type SalespersonOutput struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Active bool   `json:"active"`
}

func salespersonToOutput(sp models.Salesperson) SalespersonOutput {
	return SalespersonOutput{ID: sp.ID, Name: sp.Name, Email: sp.Email, Role: sp.Role, Active: sp.Active}
}

func (h *TeamHandlers) AddSalesperson(_ context.Context, request *mcp.CallToolRequest, input AddSalespersonInput) (*mcp.CallToolResult, SalespersonOutput, error) {
	if err := checkInput(input); err != nil {
		return nil, SalespersonOutput{}, err
	}
	role := input.Role
	if role == "" {
		role = "sales"
	}
	user := models.Salesperson{
		ID:       strings.TrimSpace(input.ID),
		TenantID: h.env.TenantID,
		Name:     strings.TrimSpace(input.Name),
		Email:    input.Email,
		Role:     role,
		Active:   !input.Inactive,
	}
	if err := db.SaveUser(h.env.DB, &user); err != nil {
		return nil, SalespersonOutput{}, fmt.Errorf("failed to save salesperson: %w", err)
	}
	if h.env.Team != nil {
		h.env.Team.RequestReload(h.env.TenantID)
	}
	return nil, salespersonToOutput(user), nil
}

type ListSalespeopleInput struct{}

type ListSalespeopleOutput struct {
	Salespeople []SalespersonOutput `json:"salespeople"`
}

func (h *TeamHandlers) ListSalespeople(ctx context.Context, request *mcp.CallToolRequest, input ListSalespeopleInput) (*mcp.CallToolResult, ListSalespeopleOutput, error) {
	var team []models.Salesperson
	var err error
	if h.env.Team != nil {
		team, err = h.env.Team.List(ctx, h.env.TenantID)
	} else {
		team, err = db.ListSalespeople(h.env.DB, h.env.TenantID)
	}
	if err != nil {
		return nil, ListSalespeopleOutput{}, fmt.Errorf("failed to list salespeople: %w", err)
	}
	out := ListSalespeopleOutput{Salespeople: make([]SalespersonOutput, len(team))}
	for i, sp := range team {
		out.Salespeople[i] = salespersonToOutput(sp)
	}
	return nil, out, nil
}
