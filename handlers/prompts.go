// ABOUTME: MCP prompt handlers for reusable CRM workflow templates
// ABOUTME: Builds contact, company, pipeline and stale-deal prompts from live tenant data
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/harperreed/hirepipe/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	env *Env
}

func NewPromptHandlers(env *Env) *PromptHandlers {
	return &PromptHandlers{env: env}
}

// Prompts lists the prompts GetPrompt can build.
func Prompts() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        "contact-summary",
			Description: "Summarize a contact, their company and open deals",
			Arguments:   []*mcp.PromptArgument{{Name: "contact_id", Description: "Contact ID", Required: true}},
		},
		{
			Name:        "company-overview",
			Description: "Overview of a company with contacts, deals and pipeline totals",
			Arguments:   []*mcp.PromptArgument{{Name: "company_id", Description: "Company ID", Required: true}},
		},
		{
			Name:        "pipeline-review",
			Description: "Review the funnel by canonical stage with health counts",
		},
		{
			Name:        "stale-deals",
			Description: "Suggest follow-ups for red-health deals",
			Arguments:   []*mcp.PromptArgument{{Name: "mine", Description: "Set to true to limit to your deals"}},
		},
	}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := request.Params.Arguments
	switch request.Params.Name {
	case "contact-summary":
		return h.contactSummary(args)
	case "company-overview":
		return h.companyOverview(ctx, args)
	case "pipeline-review":
		return h.pipelineReview()
	case "stale-deals":
		return h.staleDeals(args)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: text}},
		},
	}
}

func idArg(args map[string]string, name string) (uuid.UUID, error) {
	raw, ok := args[name]
	if !ok || raw == "" {
		return uuid.Nil, fmt.Errorf("%s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return id, nil
}

func (h *PromptHandlers) contactSummary(args map[string]string) (*mcp.GetPromptResult, error) {
	contactID, err := idArg(args, "contact_id")
	if err != nil {
		return nil, err
	}
	contact, err := notFound(db.GetContact(h.env.DB, h.env.TenantID, contactID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contact: %w", err)
	}

	var text strings.Builder
	text.WriteString("Please provide a comprehensive summary of this contact:\n\n")
	fmt.Fprintf(&text, "Name: %s\n", contact.DisplayName())
	if contact.JobTitle != "" {
		fmt.Fprintf(&text, "Title: %s\n", contact.JobTitle)
	}
	if contact.Email != "" {
		fmt.Fprintf(&text, "Email: %s\n", contact.Email)
	}
	if contact.Phone != "" {
		fmt.Fprintf(&text, "Phone: %s\n", contact.Phone)
	}
	for _, id := range contact.CompanyIDs() {
		cid, perr := uuid.Parse(id)
		if perr != nil {
			continue
		}
		if company, _ := db.GetCompany(h.env.DB, h.env.TenantID, cid); company != nil {
			fmt.Fprintf(&text, "Company: %s\n", company.Name)
		}
	}
	if contact.LastContactedAt != nil {
		fmt.Fprintf(&text, "Last Contacted: %s\n", contact.LastContactedAt.Format("2006-01-02"))
	}
	if owners := models.OwnerIDs(*contact); len(owners) > 0 {
		fmt.Fprintf(&text, "Salespeople: %s\n", strings.Join(owners, ", "))
	}

	text.WriteString("\nPlease analyze this contact and provide:")
	text.WriteString("\n1. A brief summary of their role and background")
	text.WriteString("\n2. Recommendations for next steps or follow-up actions")
	text.WriteString("\n3. Any staffing needs their company may have")

	return userPrompt(fmt.Sprintf("Summary for contact: %s", contact.DisplayName()), text.String()), nil
}

func (h *PromptHandlers) companyOverview(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	companyID, err := idArg(args, "company_id")
	if err != nil {
		return nil, err
	}
	company, err := notFound(db.GetCompany(h.env.DB, h.env.TenantID, companyID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company: %w", err)
	}
	contacts, err := db.FindContacts(h.env.DB, h.env.TenantID, db.ContactFilter{CompanyID: companyID.String(), Limit: 1000})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}
	deals, err := db.FindDeals(h.env.DB, h.env.TenantID, db.DealFilter{CompanyID: companyID.String(), Limit: 1000})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	engine, err := h.env.Engine()
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Complete overview of: %s\n\n", company.Name)
	if company.Industry != "" {
		fmt.Fprintf(&text, "Industry: %s\n", company.Industry)
	}
	if company.State != "" {
		fmt.Fprintf(&text, "State: %s\n", company.State)
	}

	fmt.Fprintf(&text, "\nContacts: %d people\n", len(contacts))
	for _, contact := range contacts {
		fmt.Fprintf(&text, "  - %s", contact.DisplayName())
		if contact.Email != "" {
			fmt.Fprintf(&text, " <%s>", contact.Email)
		}
		text.WriteString("\n")
	}

	fmt.Fprintf(&text, "\nDeals: %d\n", len(deals))
	for _, deal := range deals {
		view := engine.View(deal)
		fmt.Fprintf(&text, "  - %s: %s (%s, %s health)\n", deal.Name, view.Value, view.Score.Stage, view.Score.Health)
	}

	if totals, err := h.env.totals(engine.Mapper).Get(ctx, h.env.TenantID, companyID); err == nil {
		fmt.Fprintf(&text, "\nOpen Pipeline: %s across %d deals\n",
			pipeline.FormatEstimate(pipeline.ValueEstimate{Kind: pipeline.EstimateRange, Min: totals.Pipeline.Low, Max: totals.Pipeline.High}),
			totals.Pipeline.DealCount)
		fmt.Fprintf(&text, "Closed: %s across %d deals\n", pipeline.FormatDollars(totals.Closed.Total), totals.Closed.DealCount)
	}
	if company.Notes != "" {
		fmt.Fprintf(&text, "\nNotes: %s\n", company.Notes)
	}

	text.WriteString("\nPlease provide:")
	text.WriteString("\n1. A summary of the relationship with this company")
	text.WriteString("\n2. Key opportunities or risks")
	text.WriteString("\n3. Recommended next actions")

	return userPrompt(fmt.Sprintf("Overview of %s", company.Name), text.String()), nil
}

func (h *PromptHandlers) pipelineReview() (*mcp.GetPromptResult, error) {
	deals, err := db.ListDeals(h.env.DB, h.env.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	engine, err := h.env.Engine()
	if err != nil {
		return nil, err
	}
	funnel := funnelOutput(engine, deals)

	var text strings.Builder
	text.WriteString("Please review this staffing pipeline:\n\n")
	for _, stage := range funnel.Stages {
		fmt.Fprintf(&text, "%-14s %3d deals  %s\n", stage.Stage, stage.Count, stage.Value)
	}
	fmt.Fprintf(&text, "\nOpen pipeline value: %s\n", funnel.Total)
	fmt.Fprintf(&text, "Health: %d green, %d yellow, %d red, %d closed\n",
		funnel.Health[pipeline.HealthGreen], funnel.Health[pipeline.HealthYellow],
		funnel.Health[pipeline.HealthRed], funnel.Health[pipeline.HealthClosed])
	if len(funnel.Unmapped) > 0 {
		fmt.Fprintf(&text, "Unrecognized stage names: %s\n", strings.Join(funnel.Unmapped, ", "))
	}

	text.WriteString("\nPlease provide:")
	text.WriteString("\n1. Where deals are getting stuck")
	text.WriteString("\n2. Which stages need attention this week")
	text.WriteString("\n3. A realistic forecast range")

	return userPrompt("Pipeline review", text.String()), nil
}

func (h *PromptHandlers) staleDeals(args map[string]string) (*mcp.GetPromptResult, error) {
	filter := db.DealFilter{}
	if args["mine"] == "true" {
		filter.OwnerID = h.env.UserID
	}
	deals, err := db.FindDeals(h.env.DB, h.env.TenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	engine, err := h.env.Engine()
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	text.WriteString("These deals have gone cold and need follow-up:\n\n")
	count := 0
	for _, d := range deals {
		view := engine.View(d)
		if view.Score.Health != pipeline.HealthRed {
			continue
		}
		count++
		age := "no recorded activity"
		if view.Score.DaysSinceUpdate >= 0 {
			age = fmt.Sprintf("%d days since update", view.Score.DaysSinceUpdate)
		}
		fmt.Fprintf(&text, "- %s (%s, %s, %.0f%% likely, %s)\n", d.Name, view.Score.Stage, view.Value, view.Score.Probability, age)
	}
	if count == 0 {
		text.WriteString("No red deals right now.\n")
	}

	text.WriteString("\nFor each deal, suggest:")
	text.WriteString("\n1. Who to contact and how")
	text.WriteString("\n2. A short message that restarts the conversation")
	text.WriteString("\n3. Whether the deal should be closed out instead")

	return userPrompt(fmt.Sprintf("Follow-ups for %d stale deals", count), text.String()), nil
}
