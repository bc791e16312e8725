// ABOUTME: Funnel and bubble chart aggregation over canonical pipeline stages
// ABOUTME: Sums counts and value ranges per stage in funnel order
package pipeline

import "github.com/harperreed/hirepipe/models"

// FunnelBucket is one column of the funnel chart.
type FunnelBucket struct {
	Stage string  `json:"stage"`
	Count int     `json:"count"`
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
}

// Bubble is one point on the bubble chart.
type Bubble struct {
	Stage          string  `json:"stage"`
	Count          int     `json:"count"`
	Value          float64 `json:"value"`
	AvgProbability float64 `json:"avg_probability"`
}

// Funnel groups deals by canonical stage. Every canonical stage gets a
// bucket, in order; an Unmapped bucket is appended only when needed.
func Funnel(deals []models.Deal, mapper *StageMapper) []FunnelBucket {
	if mapper == nil {
		mapper = DefaultStageMapper()
	}

	stages := mapper.Canonical()
	index := make(map[string]int, len(stages)+1)
	buckets := make([]FunnelBucket, len(stages))
	for i, s := range stages {
		buckets[i].Stage = s
		index[s] = i
	}

	for _, d := range deals {
		stage, _ := mapper.Map(d)
		i, ok := index[stage]
		if !ok {
			buckets = append(buckets, FunnelBucket{Stage: stage})
			i = len(buckets) - 1
			index[stage] = i
		}
		low, high := ValueForPipeline(d)
		buckets[i].Count++
		buckets[i].Low += low
		buckets[i].High += high
	}
	return buckets
}

// Bubbles aggregates deals for the bubble chart: count, midpoint value and
// the average scored probability per stage. Empty stages are omitted.
func Bubbles(deals []models.Deal, mapper *StageMapper, scorer *Scorer) []Bubble {
	if mapper == nil {
		mapper = DefaultStageMapper()
	}

	type acc struct {
		count int
		value float64
		prob  float64
	}
	sums := make(map[string]*acc)
	var order []string
	for _, s := range mapper.Canonical() {
		sums[s] = &acc{}
		order = append(order, s)
	}

	for _, d := range deals {
		stage, _ := mapper.Map(d)
		a, ok := sums[stage]
		if !ok {
			a = &acc{}
			sums[stage] = a
			order = append(order, stage)
		}
		a.count++
		a.value += EstimateValue(d).Midpoint()
		if scorer != nil {
			a.prob += scorer.Score(d).Probability
		} else if d.Probability != nil {
			a.prob += *d.Probability
		}
	}

	var out []Bubble
	for _, s := range order {
		a := sums[s]
		if a.count == 0 {
			continue
		}
		out = append(out, Bubble{
			Stage:          s,
			Count:          a.count,
			Value:          a.value,
			AvgProbability: a.prob / float64(a.count),
		})
	}
	return out
}
