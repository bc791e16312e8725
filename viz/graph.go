// ABOUTME: Graphviz renderings of the pipeline and account map
// ABOUTME: Deals are grouped by canonical stage and coloured by health
package viz

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/harperreed/hirepipe/db"
	"github.com/harperreed/hirepipe/models"
	"github.com/harperreed/hirepipe/pipeline"
)

// GraphGenerator renders one tenant's CRM data as DOT.
type GraphGenerator struct {
	db       *sql.DB
	tenantID string
	engine   *pipeline.Engine
}

func NewGraphGenerator(database *sql.DB, tenantID string, engine *pipeline.Engine) *GraphGenerator {
	return &GraphGenerator{db: database, tenantID: tenantID, engine: engine}
}

// HealthColor is the fill used for a deal's health band.
func HealthColor(health string) string {
	switch health {
	case pipeline.HealthGreen:
		return "palegreen"
	case pipeline.HealthYellow:
		return "lightgoldenrod1"
	case pipeline.HealthRed:
		return "lightpink"
	default:
		return "gray85"
	}
}

func shortID(prefix, id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return prefix + "_" + id
}

// render builds a graph with fill and serializes it as DOT.
func render(label string, fill func(*cgraph.Graph) error) (string, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	graph.SetLabel(label)
	if err := fill(graph); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

// GeneratePipelineGraph draws one cluster per canonical stage, in funnel
// order, holding that stage's deals. ownerID limits the graph to one
// salesperson's deals when set.
func (g *GraphGenerator) GeneratePipelineGraph(ownerID string) (string, error) {
	deals, err := db.FindDeals(g.db, g.tenantID, db.DealFilter{OwnerID: ownerID})
	if err != nil {
		return "", fmt.Errorf("failed to fetch deals: %w", err)
	}

	byStage := make(map[string][]models.Deal)
	for _, d := range deals {
		stage, _ := g.engine.Mapper.Map(d)
		byStage[stage] = append(byStage[stage], d)
	}
	stages := g.engine.Mapper.Canonical()
	if len(byStage[pipeline.StageUnmapped]) > 0 {
		stages = append(stages, pipeline.StageUnmapped)
	}

	return render("Deal Pipeline", func(graph *cgraph.Graph) error {
		graph.SetRankDir(cgraph.LRRank)

		var prev *cgraph.Node
		for i, stage := range stages {
			sub, err := graph.CreateSubGraphByName(fmt.Sprintf("cluster_%d", i))
			if err != nil {
				return fmt.Errorf("failed to create stage cluster: %w", err)
			}
			sub.SetLabel(stage)

			anchor, err := sub.CreateNodeByName(fmt.Sprintf("stage_%d", i))
			if err != nil {
				return fmt.Errorf("failed to create stage node: %w", err)
			}
			anchor.SetLabel(fmt.Sprintf("%s\n%d deals", stage, len(byStage[stage])))
			anchor.SetShape(cgraph.PlainTextShape)
			if prev != nil {
				edge, err := graph.CreateEdgeByName(fmt.Sprintf("flow_%d", i), prev, anchor)
				if err != nil {
					return fmt.Errorf("failed to create flow edge: %w", err)
				}
				edge.SetStyle(cgraph.InvisibleEdgeStyle)
			}
			prev = anchor

			for _, deal := range byStage[stage] {
				view := g.engine.View(deal)
				node, err := sub.CreateNodeByName(shortID("deal", deal.ID.String()))
				if err != nil {
					return fmt.Errorf("failed to create deal node: %w", err)
				}
				node.SetLabel(fmt.Sprintf("%s\n%s\n%.0f%%", deal.Name, view.Value, view.Score.Probability))
				node.SetShape(cgraph.BoxShape)
				node.SetStyle(cgraph.FilledNodeStyle)
				node.SetFillColor(HealthColor(view.Score.Health))
			}
		}
		return nil
	})
}

// GenerateAccountGraph links companies to their contacts and deals.
func (g *GraphGenerator) GenerateAccountGraph(ownerID string) (string, error) {
	companies, err := db.FindCompanies(g.db, g.tenantID, db.CompanyFilter{OwnerID: ownerID})
	if err != nil {
		return "", fmt.Errorf("failed to fetch companies: %w", err)
	}
	contacts, err := db.ListContacts(g.db, g.tenantID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch contacts: %w", err)
	}
	deals, err := db.ListDeals(g.db, g.tenantID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch deals: %w", err)
	}

	return render("Accounts", func(graph *cgraph.Graph) error {
		companyNodes := make(map[string]*cgraph.Node)
		for _, company := range companies {
			node, err := graph.CreateNodeByName(shortID("company", company.ID.String()))
			if err != nil {
				return fmt.Errorf("failed to create company node: %w", err)
			}
			node.SetLabel(company.Name)
			node.SetShape(cgraph.BoxShape)
			node.SetStyle(cgraph.FilledNodeStyle)
			node.SetFillColor("lightblue")
			companyNodes[company.ID.String()] = node
		}

		for _, contact := range contacts {
			var targets []*cgraph.Node
			for _, id := range contact.CompanyIDs() {
				if n, ok := companyNodes[id]; ok {
					targets = append(targets, n)
				}
			}
			if len(targets) == 0 {
				continue
			}
			node, err := graph.CreateNodeByName(shortID("contact", contact.ID.String()))
			if err != nil {
				return fmt.Errorf("failed to create contact node: %w", err)
			}
			node.SetLabel(fmt.Sprintf("%s\n%s", contact.DisplayName(), contact.Email))
			node.SetShape(cgraph.EllipseShape)
			for _, target := range targets {
				edge, err := graph.CreateEdgeByName("works_at", node, target)
				if err != nil {
					return fmt.Errorf("failed to create edge: %w", err)
				}
				edge.SetStyle(cgraph.DashedEdgeStyle)
			}
		}

		for _, deal := range deals {
			var targets []*cgraph.Node
			for _, id := range deal.CompanyIDs() {
				if n, ok := companyNodes[id]; ok {
					targets = append(targets, n)
				}
			}
			if len(targets) == 0 {
				continue
			}
			view := g.engine.View(deal)
			node, err := graph.CreateNodeByName(shortID("deal", deal.ID.String()))
			if err != nil {
				return fmt.Errorf("failed to create deal node: %w", err)
			}
			node.SetLabel(fmt.Sprintf("%s\n%s\n(%s)", deal.Name, view.Value, view.Score.Stage))
			node.SetShape(cgraph.DiamondShape)
			node.SetStyle(cgraph.FilledNodeStyle)
			node.SetFillColor(HealthColor(view.Score.Health))
			for _, target := range targets {
				if _, err := graph.CreateEdgeByName("deal", target, node); err != nil {
					return fmt.Errorf("failed to create edge: %w", err)
				}
			}
		}
		return nil
	})
}
