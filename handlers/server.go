// ABOUTME: Assembles the MCP server with every tool, resource and prompt registered
// ABOUTME: The CLI runs it over stdio; tests drive it over in-memory transports
package handlers

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients.
const Version = "0.2.0"

// NewServer registers the CRM tools against env.
func NewServer(env *Env) *mcp.Server {
	contacts := NewContactHandlers(env)
	companies := NewCompanyHandlers(env)
	deals := NewDealHandlers(env)
	funnel := NewPipelineHandlers(env)
	cal := NewCalendarHandlers(env)
	tpls := NewTemplateHandlers(env)
	people := NewTeamHandlers(env)
	resources := NewResourceHandlers(env)
	prompts := NewPromptHandlers(env)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "hirepipe",
		Version: Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_contact",
		Description: "Add a new contact, linked to a company and assigned to a salesperson",
	}, contacts.AddContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_contacts",
		Description: "Search contacts by name, email, state or company; owner filters include contacts of owned companies",
	}, contacts.FindContacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_company",
		Description: "Add a new company to the CRM",
	}, companies.AddCompany)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_companies",
		Description: "Search companies by name, state or owning salesperson",
	}, companies.FindCompanies)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "company_pipeline_totals",
		Description: "Open pipeline range and closed value for one company",
	}, companies.CompanyPipelineTotals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_deal",
		Description: "Create a deal for a company, with a flat estimate or qualification data",
	}, deals.CreateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_deal",
		Description: "Update a deal's name, stage, estimate, probability or close date",
	}, deals.UpdateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "score_deal",
		Description: "Score a deal's win probability and health",
	}, deals.ScoreDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "estimate_deal_value",
		Description: "Estimate a deal's revenue range from qualification data or a flat estimate",
	}, deals.EstimateDealValue)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rank_deals",
		Description: "List open deals by win probability with health counts",
	}, deals.RankDeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pipeline_funnel",
		Description: "Group deals into canonical stages with counts, value ranges and health",
	}, funnel.PipelineFunnel)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_calendar_events",
		Description: "Merged calendar of CRM appointments, synced activities and Google events for a day or month",
	}, cal.ListCalendarEvents)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "save_email_template",
		Description: "Create or replace a named email template",
	}, tpls.SaveTemplate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "render_email_template",
		Description: "Render a saved email template for a contact",
	}, tpls.RenderEmailTemplate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_salesperson",
		Description: "Add or update a salesperson in the tenant directory",
	}, people.AddSalesperson)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_salespeople",
		Description: "List the active salespeople of the tenant",
	}, people.ListSalespeople)

	for _, r := range []*mcp.Resource{
		{URI: "crm://contacts", Name: "contacts", Description: "All contacts", MIMEType: "application/json"},
		{URI: "crm://companies", Name: "companies", Description: "All companies", MIMEType: "application/json"},
		{URI: "crm://deals", Name: "deals", Description: "All deals with value and score", MIMEType: "application/json"},
		{URI: "crm://pipeline", Name: "pipeline", Description: "Funnel by canonical stage", MIMEType: "application/json"},
	} {
		server.AddResource(r, resources.ReadResource)
	}
	for _, t := range []*mcp.ResourceTemplate{
		{URITemplate: "crm://contacts/{id}", Name: "contact", MIMEType: "application/json"},
		{URITemplate: "crm://companies/{id}", Name: "company", MIMEType: "application/json"},
		{URITemplate: "crm://deals/{id}", Name: "deal", MIMEType: "application/json"},
	} {
		server.AddResourceTemplate(t, resources.ReadResource)
	}

	for _, p := range Prompts() {
		server.AddPrompt(p, prompts.GetPrompt)
	}
	return server
}
