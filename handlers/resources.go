// ABOUTME: MCP resource handlers for exposing CRM data
// ABOUTME: Provides read-only access to contacts, companies, deals and the pipeline funnel via URI
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ResourceHandlers struct {
	env *Env
}

func NewResourceHandlers(env *Env) *ResourceHandlers {
	return &ResourceHandlers{env: env}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "crm://") {
		return nil, fmt.Errorf("invalid URI scheme: expected crm://")
	}

	parts := strings.Split(strings.TrimPrefix(uri, "crm://"), "/")
	var id *uuid.UUID
	if len(parts) > 1 {
		parsed, err := uuid.Parse(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid %s ID: %w", strings.TrimSuffix(parts[0], "s"), err)
		}
		id = &parsed
	}

	var (
		payload any
		err     error
	)
	switch parts[0] {
	case "contacts":
		if id == nil {
			payload, err = db.ListContacts(h.env.DB, h.env.TenantID)
		} else {
			payload, err = notFound(db.GetContact(h.env.DB, h.env.TenantID, *id))
		}
	case "companies":
		if id == nil {
			payload, err = db.ListCompanies(h.env.DB, h.env.TenantID)
		} else {
			payload, err = notFound(db.GetCompany(h.env.DB, h.env.TenantID, *id))
		}
	case "deals":
		if id == nil {
			payload, err = h.deals()
		} else {
			payload, err = h.deal(*id)
		}
	case "pipeline":
		payload, err = h.pipeline()
	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", uri, err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{URI: uri, MIMEType: "application/json", Text: string(data)},
	}}, nil
}

func notFound[T any](v *T, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("not found")
	}
	return v, nil
}

func (h *ResourceHandlers) deals() ([]pipeline.DealView, error) {
	deals, err := db.ListDeals(h.env.DB, h.env.TenantID)
	if err != nil {
		return nil, err
	}
	engine, err := h.env.Engine()
	if err != nil {
		return nil, err
	}
	views := make([]pipeline.DealView, len(deals))
	for i, d := range deals {
		views[i] = engine.View(d)
	}
	return views, nil
}

func (h *ResourceHandlers) deal(id uuid.UUID) (*pipeline.DealView, error) {
	deal, err := notFound(db.GetDeal(h.env.DB, h.env.TenantID, id))
	if err != nil {
		return nil, err
	}
	engine, err := h.env.Engine()
	if err != nil {
		return nil, err
	}
	view := engine.View(*deal)
	return &view, nil
}

func (h *ResourceHandlers) pipeline() (*FunnelOutput, error) {
	deals, err := db.ListDeals(h.env.DB, h.env.TenantID)
	if err != nil {
		return nil, err
	}
	engine, err := h.env.Engine()
	if err != nil {
		return nil, err
	}
	out := funnelOutput(engine, deals)
	return &out, nil
}
