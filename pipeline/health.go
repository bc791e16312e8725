// ABOUTME: Deal health and probability scoring from stage probability and recency signals
// ABOUTME: The rubric lives in HealthConfig so it can be tuned from scoring.yaml
package pipeline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/harperreed/hirepipe/models"
)

// Health bands.
const (
	HealthGreen  = "green"
	HealthYellow = "yellow"
	HealthRed    = "red"
	HealthClosed = "closed"
)

// BonusTier awards Bonus when days since update is at most MaxDays.
type BonusTier struct {
	MaxDays int     `yaml:"max_days" json:"max_days"`
	Bonus   float64 `yaml:"bonus" json:"bonus"`
}

// SignalTier awards Bonus when a seven-day count is at least Min.
type SignalTier struct {
	Min   int     `yaml:"min" json:"min"`
	Bonus float64 `yaml:"bonus" json:"bonus"`
}

// HealthConfig is the scoring rubric.
type HealthConfig struct {
	RecencyTiers   []BonusTier  `yaml:"recency_tiers"`
	StaleAfterDays int          `yaml:"stale_after_days"`
	StalePenalty   float64      `yaml:"stale_penalty"`
	ActivityTiers  []SignalTier `yaml:"activity_tiers"`
	EmailTiers     []SignalTier `yaml:"email_tiers"`

	GreenDays             float64 `yaml:"green_days"`
	YellowDays            float64 `yaml:"yellow_days"`
	GreenMinProbability   float64 `yaml:"green_min_probability"`
	ThresholdDaysPerPoint float64 `yaml:"threshold_days_per_point"`
	UpgradeBonus          float64 `yaml:"upgrade_bonus"`
	DowngradePenalty      float64 `yaml:"downgrade_penalty"`
}

// DefaultHealthConfig returns the stock rubric.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		RecencyTiers: []BonusTier{
			{MaxDays: 3, Bonus: 15},
			{MaxDays: 7, Bonus: 10},
			{MaxDays: 14, Bonus: 5},
		},
		StaleAfterDays: 30,
		StalePenalty:   -10,
		ActivityTiers: []SignalTier{
			{Min: 5, Bonus: 10},
			{Min: 2, Bonus: 5},
		},
		EmailTiers: []SignalTier{
			{Min: 3, Bonus: 5},
		},
		GreenDays:             7,
		YellowDays:            14,
		GreenMinProbability:   50,
		ThresholdDaysPerPoint: 0.2,
		UpgradeBonus:          10,
		DowngradePenalty:      -10,
	}
}

// Validate rejects rubrics with inverted or out-of-range thresholds.
func (c HealthConfig) Validate() error {
	if c.GreenDays < 0 || c.YellowDays < c.GreenDays {
		return fmt.Errorf("yellow_days (%.1f) must be >= green_days (%.1f) >= 0", c.YellowDays, c.GreenDays)
	}
	if c.GreenMinProbability < 0 || c.GreenMinProbability > 100 {
		return fmt.Errorf("green_min_probability must be within 0-100, got %.1f", c.GreenMinProbability)
	}
	if c.ThresholdDaysPerPoint < 0 {
		return fmt.Errorf("threshold_days_per_point must not be negative")
	}
	if c.UpgradeBonus <= 0 || c.DowngradePenalty >= 0 {
		return fmt.Errorf("upgrade_bonus must be positive and downgrade_penalty negative")
	}
	prev := -1
	for _, t := range c.RecencyTiers {
		if t.MaxDays <= prev {
			return fmt.Errorf("recency tiers must be ascending by max_days")
		}
		prev = t.MaxDays
	}
	if c.StaleAfterDays <= prev {
		return fmt.Errorf("stale_after_days (%d) must exceed the last recency tier (%d)", c.StaleAfterDays, prev)
	}
	return nil
}

// DealScore is the result of scoring one deal.
type DealScore struct {
	Stage           string  `json:"stage"`
	BaseProbability float64 `json:"base_probability"`
	ActivityBonus   float64 `json:"activity_bonus"`
	Probability     float64 `json:"probability"`
	Health          string  `json:"health"`
	// DaysSinceUpdate is -1 when the deal has no timestamp.
	DaysSinceUpdate int `json:"days_since_update"`
}

// Closed reports whether the deal is out of the open pipeline.
func (s DealScore) Closed() bool { return s.Health == HealthClosed }

// Scorer scores deals against a tenant's pipeline stages.
type Scorer struct {
	Config HealthConfig
	Stages []models.PipelineStage
	Mapper *StageMapper
	Now    func() time.Time
}

// NewScorer builds a scorer with the default mapper and wall clock.
func NewScorer(cfg HealthConfig, stages []models.PipelineStage) *Scorer {
	return &Scorer{Config: cfg, Stages: stages, Now: time.Now}
}

func (s *Scorer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scorer) mapper() *StageMapper {
	if s.Mapper != nil {
		return s.Mapper
	}
	return DefaultStageMapper()
}

// Score computes probability and health for one deal.
func (s *Scorer) Score(deal models.Deal) DealScore {
	cfg := s.Config
	score := DealScore{
		BaseProbability: s.baseProbability(deal),
		DaysSinceUpdate: -1,
	}

	touched := deal.LastTouched()
	if !touched.IsZero() {
		days := int(math.Floor(s.now().Sub(touched).Hours() / 24))
		if days < 0 {
			days = 0
		}
		score.DaysSinceUpdate = days
	}

	score.ActivityBonus = cfg.activityBonus(deal, score.DaysSinceUpdate)
	score.Probability = clamp(score.BaseProbability+score.ActivityBonus, 0, 100)

	mapper := s.mapper()
	if stage, kind := mapper.Map(deal); kind != MatchUnmapped {
		score.Stage = stage
		if mapper.IsClosed(stage) {
			score.Health = HealthClosed
			return score
		}
	}

	score.Health = cfg.health(score.DaysSinceUpdate, score.Probability, score.ActivityBonus)
	return score
}

// baseProbability averages stage and deal probability, using whichever is
// present when only one is.
func (s *Scorer) baseProbability(deal models.Deal) float64 {
	stageProb, hasStage := s.stageProbability(deal.Stage)
	switch {
	case hasStage && deal.Probability != nil:
		return (stageProb + *deal.Probability) / 2
	case hasStage:
		return stageProb
	case deal.Probability != nil:
		return *deal.Probability
	default:
		return 0
	}
}

func (s *Scorer) stageProbability(stage string) (float64, bool) {
	if stage == "" {
		return 0, false
	}
	for _, st := range s.Stages {
		if st.ID == stage {
			return st.Probability, true
		}
	}
	key := NormalizeStage(stage)
	for _, st := range s.Stages {
		if NormalizeStage(st.Name) == key {
			return st.Probability, true
		}
	}
	return 0, false
}

func (c HealthConfig) activityBonus(deal models.Deal, days int) float64 {
	var bonus float64
	switch {
	case days < 0 || days > c.StaleAfterDays:
		bonus = c.StalePenalty
	default:
		for _, t := range c.RecencyTiers {
			if days <= t.MaxDays {
				bonus = t.Bonus
				break
			}
		}
	}

	if deal.ActivityCount7d != nil {
		bonus += signalBonus(c.ActivityTiers, *deal.ActivityCount7d)
	}
	if deal.EmailCount7d != nil {
		bonus += signalBonus(c.EmailTiers, *deal.EmailCount7d)
	}
	return bonus
}

func signalBonus(tiers []SignalTier, count int) float64 {
	best := 0.0
	found := false
	for _, t := range tiers {
		if count >= t.Min && (!found || t.Bonus > best) {
			best = t.Bonus
			found = true
		}
	}
	return best
}

func (c HealthConfig) health(days int, probability, bonus float64) string {
	if days < 0 {
		return HealthRed
	}
	shift := bonus * c.ThresholdDaysPerPoint
	green := math.Max(0, c.GreenDays+shift)
	yellow := math.Max(0, c.YellowDays+shift)

	d := float64(days)
	var health string
	switch {
	case d <= green && probability >= c.GreenMinProbability:
		health = HealthGreen
	case d <= yellow:
		health = HealthYellow
	default:
		health = HealthRed
	}

	switch {
	case health == HealthYellow && bonus >= c.UpgradeBonus:
		health = HealthGreen
	case health == HealthGreen && bonus <= c.DowngradePenalty:
		health = HealthYellow
	}
	return health
}

// ScoredDeal pairs a deal with its score.
type ScoredDeal struct {
	Deal  models.Deal
	Score DealScore
}

// Rank scores deals and returns the open ones, highest probability first.
// Ties keep the most recently touched deal first.
func (s *Scorer) Rank(deals []models.Deal) []ScoredDeal {
	out := make([]ScoredDeal, 0, len(deals))
	for _, d := range deals {
		sc := s.Score(d)
		if sc.Closed() {
			continue
		}
		out = append(out, ScoredDeal{Deal: d, Score: sc})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score.Probability != out[j].Score.Probability {
			return out[i].Score.Probability > out[j].Score.Probability
		}
		return out[i].Deal.LastTouched().After(out[j].Deal.LastTouched())
	})
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
