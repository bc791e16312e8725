// ABOUTME: Tests for deal value estimation and dollar formatting
// ABOUTME: Covers flat, range and missing estimates
package pipeline

import (
	"testing"

	"github.com/harperreed/hirepipe/models"
	"github.com/stretchr/testify/assert"
)

func f64(v float64) *float64 { return &v }

func qualifiedDeal(payRate, markup float64, tl models.PlacementTimeline) models.Deal {
	return models.Deal{
		Name: "Warehouse staffing",
		StageData: &models.StageData{Qualification: &models.QualificationData{
			ExpectedAveragePayRate: f64(payRate),
			ExpectedAverageMarkup:  f64(markup),
			StaffPlacementTimeline: &tl,
		}},
	}
}

func TestEstimateValueFromQualification(t *testing.T) {
	deal := qualifiedDeal(16, 40, models.PlacementTimeline{Starting: f64(2), After180Days: f64(5)})

	est := EstimateValue(deal)
	assert.Equal(t, EstimateRange, est.Kind)
	assert.InDelta(t, 93184, est.Min, 0.001)
	assert.InDelta(t, 232960, est.Max, 0.001)
	assert.Equal(t, "$93,184 - $232,960", FormatEstimate(est))
}

func TestEstimateValueFlat(t *testing.T) {
	deal := models.Deal{EstimatedRevenue: f64(50000)}

	est := EstimateValue(deal)
	assert.Equal(t, EstimateFlat, est.Kind)
	assert.Equal(t, "$50,000", est.String())

	low, high := ValueForPipeline(deal)
	assert.Equal(t, 50000.0, low)
	assert.Equal(t, 50000.0, high)
}

func TestEstimateValueNone(t *testing.T) {
	est := EstimateValue(models.Deal{})
	assert.Equal(t, EstimateNone, est.Kind)
	assert.Equal(t, "-", FormatEstimate(est))

	low, high := ValueForPipeline(models.Deal{})
	assert.Zero(t, low)
	assert.Zero(t, high)
}

func TestEstimateValueCheckpointFallback(t *testing.T) {
	// No 180-day figure: the peak falls back to the 90-day checkpoint.
	deal := qualifiedDeal(20, 50, models.PlacementTimeline{Starting: f64(1), After90Days: f64(3)})

	est := EstimateValue(deal)
	perHead := 20 * 1.5 * AnnualHours
	assert.InDelta(t, perHead, est.Min, 0.001)
	assert.InDelta(t, perHead*3, est.Max, 0.001)
}

func TestEstimateValueQualificationWinsOverFlat(t *testing.T) {
	deal := qualifiedDeal(16, 40, models.PlacementTimeline{Starting: f64(2), After180Days: f64(5)})
	deal.EstimatedRevenue = f64(1)

	assert.Equal(t, EstimateRange, EstimateValue(deal).Kind)
}

func TestEstimateValueIncompleteQualificationFallsBack(t *testing.T) {
	deal := models.Deal{
		EstimatedRevenue: f64(75000),
		StageData: &models.StageData{Qualification: &models.QualificationData{
			ExpectedAveragePayRate: f64(18),
		}},
	}

	est := EstimateValue(deal)
	assert.Equal(t, EstimateFlat, est.Kind)
	assert.Equal(t, "$75,000", FormatEstimate(est))
}

func TestEstimateValueMissingMarkup(t *testing.T) {
	deal := models.Deal{StageData: &models.StageData{Qualification: &models.QualificationData{
		ExpectedAveragePayRate: f64(10),
		StaffPlacementTimeline: &models.PlacementTimeline{Starting: f64(1)},
	}}}

	est := EstimateValue(deal)
	assert.Equal(t, EstimateRange, est.Kind)
	assert.Equal(t, "$20,800", FormatEstimate(est))
}

func TestFormatDollars(t *testing.T) {
	cases := map[float64]string{
		0:         "$0",
		999:       "$999",
		1000:      "$1,000",
		1234567.5: "$1,234,568",
		-2500:     "-$2,500",
		999.49:    "$999",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatDollars(in), "FormatDollars(%v)", in)
	}
}
