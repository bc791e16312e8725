// ABOUTME: Tests for stage normalization and canonical mapping
// ABOUTME: Covers aliases, tenant stages and probability bands
package pipeline

import (
	"testing"

	"github.com/harperreed/hirepipe/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapNameAliases(t *testing.T) {
	m := DefaultStageMapper()

	cases := []struct {
		in   string
		want string
		via  MatchKind
	}{
		{"closed won", StageOnboarding, MatchAlias},
		{"Closed_Won", StageOnboarding, MatchAlias},
		{"closedWon", StageOnboarding, MatchAlias},
		{"won", StageOnboarding, MatchAlias},
		{"closed-lost", StageDormant, MatchAlias},
		{"qualified", StageQualification, MatchAlias},
		{"Negotiation", StageNegotiation, MatchCanonical},
		{"  proposal   drafted ", StageProposalDrafted, MatchCanonical},
		{"something new", "", MatchUnmapped},
		{"", "", MatchUnmapped},
	}
	for _, tc := range cases {
		got, via := m.MapName(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.via, via, tc.in)
	}
}

func TestMapFallbacks(t *testing.T) {
	tenantStages := []models.PipelineStage{
		{ID: "stg_9", Name: "Contract Sent", Probability: 80},
		{ID: "stg_2", Name: "Qualified", Probability: 20},
	}
	m, err := NewStageMapper(DefaultStageConfig(), tenantStages)
	require.NoError(t, err)

	// Tenant stage id whose name is itself an alias.
	stage, via := m.Map(models.Deal{Stage: "stg_2"})
	assert.Equal(t, StageQualification, stage)
	assert.Equal(t, MatchTenantStage, via)

	// Tenant stage with an unknown name falls to its probability band.
	stage, via = m.Map(models.Deal{Stage: "stg_9"})
	assert.Equal(t, StageNegotiation, stage)
	assert.Equal(t, MatchBand, via)

	// Deal probability takes precedence over the tenant stage probability.
	stage, via = m.Map(models.Deal{Stage: "stg_9", Probability: f64(5)})
	assert.Equal(t, StageDiscovery, stage)
	assert.Equal(t, MatchBand, via)

	// Unknown stage with a probability.
	stage, via = m.Map(models.Deal{Stage: "mystery", Probability: f64(60)})
	assert.Equal(t, StageProposalReview, stage)
	assert.Equal(t, MatchBand, via)

	// Nothing to go on.
	stage, via = m.Map(models.Deal{Stage: "mystery"})
	assert.Equal(t, StageUnmapped, stage)
	assert.Equal(t, MatchUnmapped, via)
}

func TestTerminalAliases(t *testing.T) {
	terminal := DefaultStageMapper().TerminalAliases()

	assert.Equal(t, StageOnboarding, terminal["closed won"])
	assert.Equal(t, StageOnboarding, terminal["won"])
	assert.Equal(t, StageDormant, terminal["lost"])
	assert.NotContains(t, terminal, "qualified")
}

func TestStageConfigValidate(t *testing.T) {
	require.NoError(t, DefaultStageConfig().Validate())

	badAlias := DefaultStageConfig()
	badAlias.Aliases["closed won"] = "Closed Won"
	assert.Error(t, badAlias.Validate())

	badBands := DefaultStageConfig()
	badBands.Bands = []ProbabilityBand{{Max: 50, Stage: StageDiscovery}, {Max: 20, Stage: StageScoping}}
	assert.Error(t, badBands.Validate())

	_, err := NewStageMapper(StageConfig{}, nil)
	assert.Error(t, err)
}

func TestClosedStages(t *testing.T) {
	m := DefaultStageMapper()
	assert.True(t, m.IsWon(StageOnboarding))
	assert.True(t, m.IsWon(StageLiveAccount))
	assert.True(t, m.IsLost(StageDormant))
	assert.False(t, m.IsClosed(StageNegotiation))
}

func TestNormalizeStage(t *testing.T) {
	assert.Equal(t, "closed won", NormalizeStage("Closed-Won"))
	assert.Equal(t, "proposal review", NormalizeStage("proposalReview"))
	assert.Equal(t, "live account", NormalizeStage("LIVE_ACCOUNT"))
}
