// ABOUTME: Tests for deal health scoring
// ABOUTME: Exercises recency bonuses, threshold shifts and closed deals
package pipeline

import (
	"testing"
	"time"

	"github.com/harperreed/hirepipe/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scoringNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testScorer() *Scorer {
	return &Scorer{
		Config: DefaultHealthConfig(),
		Stages: []models.PipelineStage{
			{ID: "s-review", Name: "Client Review", Probability: 50},
			{ID: "s-intro", Name: "Intro", Probability: 10},
		},
		Now: func() time.Time { return scoringNow },
	}
}

func dealUpdated(daysAgo int) models.Deal {
	return models.Deal{
		Name:        "Forklift operators",
		Stage:       "s-review",
		Probability: f64(50),
		UpdatedAt:   scoringNow.Add(-time.Duration(daysAgo) * 24 * time.Hour),
	}
}

func TestScoreRecentDealIsGreen(t *testing.T) {
	score := testScorer().Score(dealUpdated(2))

	assert.Equal(t, 50.0, score.BaseProbability)
	assert.Equal(t, 15.0, score.ActivityBonus)
	assert.Equal(t, 65.0, score.Probability)
	assert.Equal(t, HealthGreen, score.Health)
	assert.Equal(t, 2, score.DaysSinceUpdate)
}

func TestScoreStaleDealIsRed(t *testing.T) {
	score := testScorer().Score(dealUpdated(40))

	assert.Equal(t, -10.0, score.ActivityBonus)
	assert.Equal(t, 40.0, score.Probability)
	assert.Equal(t, HealthRed, score.Health)
}

func TestScoreBaseProbability(t *testing.T) {
	s := testScorer()

	stageOnly := dealUpdated(20)
	stageOnly.Probability = nil
	assert.Equal(t, 50.0, s.Score(stageOnly).BaseProbability)

	dealOnly := dealUpdated(20)
	dealOnly.Stage = "unknown stage"
	dealOnly.Probability = f64(30)
	assert.Equal(t, 30.0, s.Score(dealOnly).BaseProbability)

	neither := dealUpdated(20)
	neither.Stage = ""
	neither.Probability = nil
	assert.Equal(t, 0.0, s.Score(neither).BaseProbability)

	byName := dealUpdated(20)
	byName.Stage = "client_review"
	byName.Probability = f64(70)
	assert.Equal(t, 60.0, s.Score(byName).BaseProbability)
}

func TestScoreClampsProbability(t *testing.T) {
	s := testScorer()

	hot := dealUpdated(1)
	hot.Probability = f64(100)
	hot.Stage = ""
	hot.ActivityCount7d = intPtr(9)
	assert.Equal(t, 100.0, s.Score(hot).Probability)

	cold := dealUpdated(60)
	cold.Probability = f64(5)
	cold.Stage = ""
	assert.Equal(t, 0.0, s.Score(cold).Probability)
}

func intPtr(v int) *int { return &v }

func TestScoreSignalsUpgradeYellow(t *testing.T) {
	s := testScorer()

	// 10 days since update: recency +5, yellow on recency alone.
	deal := dealUpdated(10)
	assert.Equal(t, HealthYellow, s.Score(deal).Health)

	// Five activities and three emails push the bonus to +20, which widens
	// the green window and upgrades the band.
	deal.ActivityCount7d = intPtr(5)
	deal.EmailCount7d = intPtr(3)
	score := s.Score(deal)
	assert.Equal(t, 20.0, score.ActivityBonus)
	assert.Equal(t, HealthGreen, score.Health)
}

func TestScoreBonusUpgradesLowProbability(t *testing.T) {
	s := testScorer()

	deal := dealUpdated(5)
	deal.Stage = "s-intro"
	deal.Probability = f64(10)
	score := s.Score(deal)
	assert.Equal(t, 10.0, score.ActivityBonus)
	assert.Equal(t, 20.0, score.Probability)
	// Probability below the green minimum; bonus +10 upgrades yellow.
	assert.Equal(t, HealthGreen, score.Health)

	deal.UpdatedAt = scoringNow.Add(-20 * 24 * time.Hour)
	score = s.Score(deal)
	assert.Equal(t, 0.0, score.ActivityBonus)
	assert.Equal(t, HealthRed, score.Health)
}

func TestScoreMissingTimestampIsStale(t *testing.T) {
	deal := dealUpdated(0)
	deal.UpdatedAt = time.Time{}

	score := testScorer().Score(deal)
	assert.Equal(t, -1, score.DaysSinceUpdate)
	assert.Equal(t, -10.0, score.ActivityBonus)
	assert.Equal(t, HealthRed, score.Health)
}

func TestScoreUsesLastActivity(t *testing.T) {
	deal := dealUpdated(40)
	recent := scoringNow.Add(-24 * time.Hour)
	deal.LastActivityAt = &recent

	score := testScorer().Score(deal)
	assert.Equal(t, 1, score.DaysSinceUpdate)
	assert.Equal(t, HealthGreen, score.Health)
}

func TestScoreClosedDeals(t *testing.T) {
	s := testScorer()

	for _, stage := range []string{"closed won", "Closed Lost", "Onboarding", "live_account"} {
		deal := dealUpdated(2)
		deal.Stage = stage
		score := s.Score(deal)
		assert.Equal(t, HealthClosed, score.Health, stage)
		assert.True(t, score.Closed(), stage)
	}
}

func TestScoreClosedByProbabilityBand(t *testing.T) {
	s := testScorer()

	signed := dealUpdated(2)
	signed.Stage = "Signed"
	signed.Probability = f64(100)
	score := s.Score(signed)
	assert.Equal(t, StageOnboarding, score.Stage)
	assert.Equal(t, HealthClosed, score.Health)
	assert.Empty(t, s.Rank([]models.Deal{signed}))

	stage, _ := s.mapper().Map(signed)
	assert.Equal(t, score.Stage, stage)
}

func TestRankSkipsClosedDeals(t *testing.T) {
	s := testScorer()

	a := dealUpdated(2)
	a.Name = "A"
	b := dealUpdated(40)
	b.Name = "B"
	c := dealUpdated(2)
	c.Name = "C"
	c.Stage = "won"

	ranked := s.Rank([]models.Deal{b, c, a})
	require.Len(t, ranked, 2)
	assert.Equal(t, "A", ranked[0].Deal.Name)
	assert.Equal(t, "B", ranked[1].Deal.Name)
}

func TestHealthConfigValidate(t *testing.T) {
	require.NoError(t, DefaultHealthConfig().Validate())

	inverted := DefaultHealthConfig()
	inverted.YellowDays = 3
	assert.Error(t, inverted.Validate())

	unordered := DefaultHealthConfig()
	unordered.RecencyTiers = []BonusTier{{MaxDays: 7, Bonus: 10}, {MaxDays: 3, Bonus: 15}}
	assert.Error(t, unordered.Validate())

	staleTooSoon := DefaultHealthConfig()
	staleTooSoon.StaleAfterDays = 10
	assert.Error(t, staleTooSoon.Validate())

	badPenalty := DefaultHealthConfig()
	badPenalty.DowngradePenalty = 5
	assert.Error(t, badPenalty.Validate())
}
