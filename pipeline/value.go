// ABOUTME: Deal revenue estimation from qualification staffing data or flat estimates
// ABOUTME: Produces a min/max range from pay rate, markup, and headcount ramp
package pipeline

import (
	"math"
	"strconv"
	"strings"

	"github.com/harperreed/hirepipe/models"
)

// AnnualHours is the full-time hours per placed employee per year.
const AnnualHours = 2080

// EstimateKind says where an estimate came from.
type EstimateKind string

const (
	EstimateNone  EstimateKind = "none"
	EstimateFlat  EstimateKind = "flat"
	EstimateRange EstimateKind = "range"
)

// ValueEstimate is a deal's expected revenue. Flat estimates have Min == Max.
type ValueEstimate struct {
	Kind EstimateKind `json:"kind"`
	Min  float64      `json:"min"`
	Max  float64      `json:"max"`
}

// EstimateValue derives revenue from qualification data when a placement
// timeline is present, otherwise from the flat estimatedRevenue field.
func EstimateValue(deal models.Deal) ValueEstimate {
	if est, ok := qualificationEstimate(deal.Qualification()); ok {
		return est
	}
	if deal.EstimatedRevenue != nil && *deal.EstimatedRevenue > 0 {
		v := *deal.EstimatedRevenue
		return ValueEstimate{Kind: EstimateFlat, Min: v, Max: v}
	}
	return ValueEstimate{Kind: EstimateNone}
}

func qualificationEstimate(q *models.QualificationData) (ValueEstimate, bool) {
	if q == nil || q.ExpectedAveragePayRate == nil || q.StaffPlacementTimeline == nil {
		return ValueEstimate{}, false
	}
	payRate := *q.ExpectedAveragePayRate
	if payRate <= 0 {
		return ValueEstimate{}, false
	}

	markup := 0.0
	if q.ExpectedAverageMarkup != nil {
		markup = *q.ExpectedAverageMarkup
	}

	tl := q.StaffPlacementTimeline
	starting, ok := firstSet(tl.Starting, tl.After30Days, tl.After90Days, tl.After180Days)
	if !ok {
		return ValueEstimate{}, false
	}
	peak, _ := firstSet(tl.After180Days, tl.After90Days, tl.After30Days, tl.Starting)

	billRate := payRate * (1 + markup/100)
	perEmployee := billRate * AnnualHours

	est := ValueEstimate{
		Kind: EstimateRange,
		Min:  perEmployee * starting,
		Max:  perEmployee * peak,
	}
	if est.Min == 0 && est.Max == 0 {
		return ValueEstimate{}, false
	}
	return est, true
}

func firstSet(vals ...*float64) (float64, bool) {
	for _, v := range vals {
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

// ValueForPipeline returns the low/high contribution of a deal to pipeline totals.
func ValueForPipeline(deal models.Deal) (low, high float64) {
	est := EstimateValue(deal)
	if est.Kind == EstimateNone {
		return 0, 0
	}
	return est.Min, est.Max
}

// Midpoint is the single value used where a chart needs one number.
func (v ValueEstimate) Midpoint() float64 {
	return (v.Min + v.Max) / 2
}

// String formats the estimate as "$93,184 - $232,960", "$50,000" or "-".
func (v ValueEstimate) String() string {
	return FormatEstimate(v)
}

// FormatEstimate renders an estimate for display.
func FormatEstimate(v ValueEstimate) string {
	switch v.Kind {
	case EstimateRange:
		lo, hi := FormatDollars(v.Min), FormatDollars(v.Max)
		if lo == hi {
			return lo
		}
		return lo + " - " + hi
	case EstimateFlat:
		return FormatDollars(v.Min)
	default:
		return "-"
	}
}

// FormatDollars renders whole dollars with thousands separators.
func FormatDollars(v float64) string {
	rounded := int64(math.Round(v))
	neg := rounded < 0
	if neg {
		rounded = -rounded
	}

	digits := strconv.FormatInt(rounded, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return b.String()
}
