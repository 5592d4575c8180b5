package matchers

import (
	"maps"
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/miradorstack/meeting-correlator/internal/models"
)

const epsilon = 1e-9

// Thresholds maps a continuous measure in [0,1] onto confidence bands.
type Thresholds struct {
	Perfect float64 `yaml:"perfect"`
	High    float64 `yaml:"high"`
	Medium  float64 `yaml:"medium"`
	Low     float64 `yaml:"low"`
}

// Band returns the highest band whose threshold v reaches.
func (t Thresholds) Band(v float64) models.ConfidenceBand {
	switch {
	case v+epsilon >= t.Perfect:
		return models.BandPerfect
	case v+epsilon >= t.High:
		return models.BandHigh
	case v+epsilon >= t.Medium:
		return models.BandMedium
	case v+epsilon >= t.Low:
		return models.BandLow
	}
	return models.BandNone
}

// DefaultOverlapThresholds are the participant overlap bands.
func DefaultOverlapThresholds() Thresholds {
	return Thresholds{Perfect: 1.0, High: 0.8, Medium: 0.6, Low: 0.4}
}

// DefaultContentThresholds are the content similarity bands.
func DefaultContentThresholds() Thresholds {
	return Thresholds{Perfect: 0.95, High: 0.8, Medium: 0.6, Low: 0.4}
}

// SequenceRatio is the Ratcliff/Obershelp similarity of a and b over runes:
// 2*M / (len(a)+len(b)) where M counts characters in matching blocks.
func SequenceRatio(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}

// Jaccard is |A∩B| / |A∪B| over distinct tokens; 0 when both are empty.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]uint8, len(a)+len(b))
	for _, t := range a {
		set[t] |= 1
	}
	for _, t := range b {
		set[t] |= 2
	}
	shared := 0
	for _, mask := range set {
		if mask == 3 {
			shared++
		}
	}
	return float64(shared) / float64(len(set))
}

// WeightedOverlap is Σmin(w)/Σmax(w) over the union of keys. Keys are
// summed in sorted order so results are bit-for-bit reproducible.
func WeightedOverlap(a, b map[string]float64) float64 {
	union := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		union[k] = struct{}{}
	}
	for k := range b {
		union[k] = struct{}{}
	}
	var num, den float64
	for _, k := range slices.Sorted(maps.Keys(union)) {
		wa, wb := a[k], b[k]
		num += min(wa, wb)
		den += max(wa, wb)
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
