// ABOUTME: Tests for funnel and bubble aggregation
// ABOUTME: Checks canonical ordering and value ranges per stage
package pipeline

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/harperreed/hirepipe/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunnelBuckets(t *testing.T) {
	deals := []models.Deal{
		{Stage: "closed won", EstimatedRevenue: f64(50000)},
		{Stage: "Onboarding", EstimatedRevenue: f64(10000)},
		{Stage: "qualified", EstimatedRevenue: f64(20000)},
		qualifiedDeal(16, 40, models.PlacementTimeline{Starting: f64(2), After180Days: f64(5)}),
		{Stage: "???"},
	}
	deals[3].Stage = "Qualification"

	buckets := Funnel(deals, nil)
	require.Len(t, buckets, len(DefaultCanonicalStages())+1)

	byStage := make(map[string]FunnelBucket)
	for _, b := range buckets {
		byStage[b.Stage] = b
	}

	assert.Equal(t, FunnelBucket{Stage: StageOnboarding, Count: 2, Low: 60000, High: 60000}, byStage[StageOnboarding])

	q := byStage[StageQualification]
	assert.Equal(t, 2, q.Count)
	assert.InDelta(t, 20000+93184, q.Low, 0.01)
	assert.InDelta(t, 20000+232960, q.High, 0.01)

	assert.Equal(t, 1, byStage[StageUnmapped].Count)
	assert.Equal(t, StageUnmapped, buckets[len(buckets)-1].Stage)
	assert.Equal(t, StageDiscovery, buckets[0].Stage)
}

func TestFunnelEmpty(t *testing.T) {
	buckets := Funnel(nil, DefaultStageMapper())

	want := make([]FunnelBucket, 0, len(DefaultCanonicalStages()))
	for _, s := range DefaultCanonicalStages() {
		want = append(want, FunnelBucket{Stage: s})
	}
	if diff := cmp.Diff(want, buckets); diff != "" {
		t.Errorf("empty funnel mismatch (-want +got):\n%s", diff)
	}
}

func TestBubbles(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	scorer := &Scorer{Config: DefaultHealthConfig(), Now: func() time.Time { return now }}

	deals := []models.Deal{
		{Stage: "Negotiation", Probability: f64(60), EstimatedRevenue: f64(1000), UpdatedAt: now},
		{Stage: "negotiating", Probability: f64(40), EstimatedRevenue: f64(3000), UpdatedAt: now.Add(-20 * 24 * time.Hour)},
	}

	bubbles := Bubbles(deals, nil, scorer)
	require.Len(t, bubbles, 1)
	b := bubbles[0]
	assert.Equal(t, StageNegotiation, b.Stage)
	assert.Equal(t, 2, b.Count)
	assert.Equal(t, 4000.0, b.Value)
	// 60+15 and 40+0 average to 57.5.
	assert.Equal(t, 57.5, b.AvgProbability)
}
