// ABOUTME: Canonical pipeline stages and the alias table for historical stage names
// ABOUTME: Maps raw deal stages onto chart columns with a probability-band fallback
package pipeline

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/harperreed/hirepipe/models"
)

// Canonical stages, in funnel order.
const (
	StageDiscovery       = "Discovery"
	StageQualification   = "Qualification"
	StageScoping         = "Scoping"
	StageProposalDrafted = "Proposal Drafted"
	StageProposalReview  = "Proposal Review"
	StageNegotiation     = "Negotiation"
	StageVerbalAgreement = "Verbal Agreement"
	StageOnboarding      = "Onboarding"
	StageLiveAccount     = "Live Account"
	StageDormant         = "Dormant"
)

// StageUnmapped collects deals that no rule could place.
const StageUnmapped = "Unmapped"

// MatchKind records which rule placed a deal.
type MatchKind string

const (
	MatchCanonical   MatchKind = "canonical"
	MatchAlias       MatchKind = "alias"
	MatchTenantStage MatchKind = "tenant_stage"
	MatchBand        MatchKind = "probability_band"
	MatchUnmapped    MatchKind = "unmapped"
)

// ProbabilityBand assigns deals with probability <= Max to Stage.
type ProbabilityBand struct {
	Max   float64 `yaml:"max" json:"max"`
	Stage string  `yaml:"stage" json:"stage"`
}

// StageConfig is the tunable part of the mapper, loadable from YAML.
type StageConfig struct {
	Canonical []string          `yaml:"canonical"`
	Aliases   map[string]string `yaml:"aliases"`
	Bands     []ProbabilityBand `yaml:"bands"`
	Won       []string          `yaml:"won"`
	Lost      []string          `yaml:"lost"`
}

// DefaultCanonicalStages returns the funnel columns in order.
func DefaultCanonicalStages() []string {
	return []string{
		StageDiscovery,
		StageQualification,
		StageScoping,
		StageProposalDrafted,
		StageProposalReview,
		StageNegotiation,
		StageVerbalAgreement,
		StageOnboarding,
		StageLiveAccount,
		StageDormant,
	}
}

// DefaultStageConfig reproduces the alias table used by the funnel and
// bubble charts. Closed/won/lost variants land on Onboarding and Dormant.
func DefaultStageConfig() StageConfig {
	return StageConfig{
		Canonical: DefaultCanonicalStages(),
		Aliases: map[string]string{
			"lead":             StageDiscovery,
			"new":              StageDiscovery,
			"new lead":         StageDiscovery,
			"prospect":         StageDiscovery,
			"prospecting":      StageDiscovery,
			"contacted":        StageDiscovery,
			"initial contact":  StageDiscovery,
			"qualified":        StageQualification,
			"qualifying":       StageQualification,
			"needs analysis":   StageScoping,
			"needs assessment": StageScoping,
			"proposal":         StageProposalDrafted,
			"proposal sent":    StageProposalDrafted,
			"quote":            StageProposalDrafted,
			"quoted":           StageProposalDrafted,
			"in review":        StageProposalReview,
			"review":           StageProposalReview,
			"negotiating":      StageNegotiation,
			"contract":         StageNegotiation,
			"contracting":      StageNegotiation,
			"verbal":           StageVerbalAgreement,
			"verbal commit":    StageVerbalAgreement,
			"commit":           StageVerbalAgreement,
			"won":              StageOnboarding,
			"closed won":       StageOnboarding,
			"closedwon":        StageOnboarding,
			"implementation":   StageOnboarding,
			"live":             StageLiveAccount,
			"active":           StageLiveAccount,
			"active account":   StageLiveAccount,
			"lost":             StageDormant,
			"closed lost":      StageDormant,
			"closedlost":       StageDormant,
			"inactive":         StageDormant,
			"on hold":          StageDormant,
		},
		Bands: []ProbabilityBand{
			{Max: 10, Stage: StageDiscovery},
			{Max: 25, Stage: StageQualification},
			{Max: 40, Stage: StageScoping},
			{Max: 55, Stage: StageProposalDrafted},
			{Max: 70, Stage: StageProposalReview},
			{Max: 85, Stage: StageNegotiation},
			{Max: 99, Stage: StageVerbalAgreement},
			{Max: 100, Stage: StageOnboarding},
		},
		Won:  []string{StageOnboarding, StageLiveAccount},
		Lost: []string{StageDormant},
	}
}

// Validate checks that every alias and band points at a canonical stage.
func (c StageConfig) Validate() error {
	if len(c.Canonical) == 0 {
		return fmt.Errorf("stage config needs at least one canonical stage")
	}
	known := make(map[string]bool, len(c.Canonical))
	for _, s := range c.Canonical {
		known[s] = true
	}
	for alias, target := range c.Aliases {
		if !known[target] {
			return fmt.Errorf("alias %q points at unknown stage %q", alias, target)
		}
	}
	prev := -1.0
	for _, b := range c.Bands {
		if !known[b.Stage] {
			return fmt.Errorf("probability band points at unknown stage %q", b.Stage)
		}
		if b.Max <= prev {
			return fmt.Errorf("probability bands must be strictly ascending (%.0f after %.0f)", b.Max, prev)
		}
		prev = b.Max
	}
	for _, s := range append(append([]string(nil), c.Won...), c.Lost...) {
		if !known[s] {
			return fmt.Errorf("closed stage %q is not canonical", s)
		}
	}
	return nil
}

// StageMapper places deals onto canonical stages.
type StageMapper struct {
	canonical []string
	byKey     map[string]string
	aliases   map[string]string
	bands     []ProbabilityBand
	won       map[string]bool
	lost      map[string]bool

	tenantByID   map[string]models.PipelineStage
	tenantByName map[string]models.PipelineStage
}

// NewStageMapper builds a mapper from cfg and the tenant's configured stages.
func NewStageMapper(cfg StageConfig, tenantStages []models.PipelineStage) (*StageMapper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &StageMapper{
		canonical:    append([]string(nil), cfg.Canonical...),
		byKey:        make(map[string]string, len(cfg.Canonical)),
		aliases:      make(map[string]string, len(cfg.Aliases)),
		bands:        append([]ProbabilityBand(nil), cfg.Bands...),
		won:          make(map[string]bool),
		lost:         make(map[string]bool),
		tenantByID:   make(map[string]models.PipelineStage),
		tenantByName: make(map[string]models.PipelineStage),
	}
	for _, s := range cfg.Canonical {
		m.byKey[NormalizeStage(s)] = s
	}
	for alias, target := range cfg.Aliases {
		m.aliases[NormalizeStage(alias)] = target
	}
	for _, s := range cfg.Won {
		m.won[s] = true
	}
	for _, s := range cfg.Lost {
		m.lost[s] = true
	}
	for _, st := range tenantStages {
		if st.ID != "" {
			m.tenantByID[st.ID] = st
		}
		if st.Name != "" {
			m.tenantByName[NormalizeStage(st.Name)] = st
		}
	}
	return m, nil
}

// DefaultStageMapper returns a mapper over the default table with no tenant stages.
func DefaultStageMapper() *StageMapper {
	m, err := NewStageMapper(DefaultStageConfig(), nil)
	if err != nil {
		panic(err)
	}
	return m
}

// Canonical returns the funnel columns in order.
func (m *StageMapper) Canonical() []string {
	return append([]string(nil), m.canonical...)
}

// MapName maps a raw stage name without using deal probability.
func (m *StageMapper) MapName(stage string) (string, MatchKind) {
	key := NormalizeStage(stage)
	if key == "" {
		return "", MatchUnmapped
	}
	if s, ok := m.byKey[key]; ok {
		return s, MatchCanonical
	}
	if s, ok := m.aliases[key]; ok {
		return s, MatchAlias
	}
	return "", MatchUnmapped
}

// Map places a deal: canonical name, alias, tenant stage, then probability band.
func (m *StageMapper) Map(deal models.Deal) (string, MatchKind) {
	if s, kind := m.MapName(deal.Stage); kind != MatchUnmapped {
		return s, kind
	}

	tenantStage, hasTenant := m.TenantStage(deal.Stage)
	if hasTenant {
		if s, kind := m.MapName(tenantStage.Name); kind != MatchUnmapped {
			return s, MatchTenantStage
		}
	}

	var prob *float64
	switch {
	case deal.Probability != nil:
		prob = deal.Probability
	case hasTenant:
		p := tenantStage.Probability
		prob = &p
	}
	if prob != nil {
		if s, ok := m.band(*prob); ok {
			return s, MatchBand
		}
	}
	return StageUnmapped, MatchUnmapped
}

// TenantStage looks up the tenant pipeline stage by id, then by name.
func (m *StageMapper) TenantStage(stage string) (models.PipelineStage, bool) {
	if st, ok := m.tenantByID[stage]; ok {
		return st, true
	}
	st, ok := m.tenantByName[NormalizeStage(stage)]
	return st, ok
}

func (m *StageMapper) band(prob float64) (string, bool) {
	for _, b := range m.bands {
		if prob <= b.Max {
			return b.Stage, true
		}
	}
	return "", false
}

// IsWon reports whether a canonical stage counts as closed-won.
func (m *StageMapper) IsWon(stage string) bool { return m.won[stage] }

// IsLost reports whether a canonical stage counts as closed-lost.
func (m *StageMapper) IsLost(stage string) bool { return m.lost[stage] }

// IsClosed reports whether a canonical stage is out of the open pipeline.
func (m *StageMapper) IsClosed(stage string) bool { return m.won[stage] || m.lost[stage] }

// TerminalAliases lists aliases whose wording says closed, won or lost.
// They land on post-sale stages, which is worth surfacing to tenants whose
// own taxonomy has explicit closed stages.
func (m *StageMapper) TerminalAliases() map[string]string {
	out := make(map[string]string)
	for alias, target := range m.aliases {
		for _, word := range []string{"won", "lost", "closed"} {
			if strings.Contains(alias, word) {
				out[alias] = target
				break
			}
		}
	}
	return out
}

// NormalizeStage lowercases a stage name, splits camelCase, and collapses
// separators so "Closed_Won", "closed-won" and "closedWon" compare equal
// to "closed won".
func NormalizeStage(stage string) string {
	var b strings.Builder
	var prev rune
	for i, r := range strings.TrimSpace(stage) {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			r = ' '
		case i > 0 && unicode.IsUpper(r) && unicode.IsLower(prev):
			b.WriteByte(' ')
		}
		b.WriteRune(unicode.ToLower(r))
		prev = r
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
