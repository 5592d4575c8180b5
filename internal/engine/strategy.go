package engine

import (
	"math"

	"github.com/miradorstack/meeting-correlator/internal/models"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

const weightTolerance = 1e-6

// confidenceScale fixes fused confidences to six decimal places so weighted
// sums compare exactly against thresholds.
const confidenceScale = 1e6

func roundConfidence(v float64) float64 {
	return math.Round(v*confidenceScale) / confidenceScale
}

// Weights is a linear fusion profile over the three matcher confidences.
type Weights struct {
	Temporal    float64 `yaml:"temporal"`
	Participant float64 `yaml:"participant"`
	Content     float64 `yaml:"content"`
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Temporal + w.Participant + w.Content
}

// Validate checks the profile is non-negative and sums to one.
func (w Weights) Validate() error {
	if !(w.Temporal >= 0 && w.Participant >= 0 && w.Content >= 0) {
		return utils.InvalidInput("engine.Weights", "weights must be non-negative: %+v", w)
	}
	if !(math.Abs(w.Sum()-1) <= weightTolerance) {
		return utils.InvalidInput("engine.Weights", "weights must sum to 1.0, got %.6f", w.Sum())
	}
	return nil
}

// Profiles maps each weighted strategy to its fusion weights.
type Profiles map[models.Strategy]Weights

// DefaultProfiles returns the shipped weight profiles.
func DefaultProfiles() Profiles {
	return Profiles{
		models.StrategyTemporalFirst:    {Temporal: 0.5, Participant: 0.3, Content: 0.2},
		models.StrategyParticipantFirst: {Temporal: 0.2, Participant: 0.5, Content: 0.3},
		models.StrategyContentFirst:     {Temporal: 0.2, Participant: 0.3, Content: 0.5},
		models.StrategyBalanced:         {Temporal: 0.34, Participant: 0.33, Content: 0.33},
	}
}

// Validate checks every weighted strategy has a valid profile.
func (p Profiles) Validate() error {
	for _, s := range models.WeightedStrategies {
		w, ok := p[s]
		if !ok {
			return utils.InvalidInput("engine.Profiles", "missing weight profile for %s", s)
		}
		if err := w.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// withDefaults fills missing profiles from DefaultProfiles without mutating p.
func (p Profiles) withDefaults() Profiles {
	out := DefaultProfiles()
	for s, w := range p {
		out[s] = w
	}
	return out
}

// Fuse combines component scores under strategy s, returning the fused
// confidence and the category label of the decision.
func Fuse(s models.Strategy, c models.ComponentScores, profiles Profiles) (float64, models.MatchCategory) {
	if s == models.StrategyAdaptive {
		return adaptive(c)
	}
	w := profiles[s]
	return w.Temporal*c.Temporal + w.Participant*c.Participant + w.Content*c.Content, models.CategoryComposite
}

// adaptive picks the strongest signal. Equal scores resolve temporal, then
// participant, then content.
func adaptive(c models.ComponentScores) (float64, models.MatchCategory) {
	best, category := c.Temporal, models.CategoryTemporal
	if c.Participant > best {
		best, category = c.Participant, models.CategoryParticipant
	}
	if c.Content > best {
		best, category = c.Content, models.CategoryContent
	}
	return best, category
}
