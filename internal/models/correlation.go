package models

import (
	"fmt"
	"strings"
	"time"
)

// MatchCategory names the signal that decided a match.
type MatchCategory int

const (
	CategoryTemporal MatchCategory = iota + 1
	CategoryParticipant
	CategoryContent
	CategoryComposite
)

// Categories lists every match category in precedence order.
var Categories = []MatchCategory{CategoryTemporal, CategoryParticipant, CategoryContent, CategoryComposite}

func (c MatchCategory) String() string {
	switch c {
	case CategoryTemporal:
		return "temporal"
	case CategoryParticipant:
		return "participant"
	case CategoryContent:
		return "content"
	case CategoryComposite:
		return "composite"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Valid reports whether c is a declared category.
func (c MatchCategory) Valid() bool {
	return c >= CategoryTemporal && c <= CategoryComposite
}

// ConfidenceBand is a discretised confidence level shared by all matchers.
type ConfidenceBand int

const (
	BandNone ConfidenceBand = iota
	BandLow
	BandMedium
	BandHigh
	BandPerfect
)

// Confidence maps the band onto the shared confidence scale.
func (b ConfidenceBand) Confidence() float64 {
	switch b {
	case BandPerfect:
		return 0.95
	case BandHigh:
		return 0.85
	case BandMedium:
		return 0.70
	case BandLow:
		return 0.50
	}
	return 0
}

func (b ConfidenceBand) String() string {
	switch b {
	case BandNone:
		return "none"
	case BandLow:
		return "low"
	case BandMedium:
		return "medium"
	case BandHigh:
		return "high"
	case BandPerfect:
		return "perfect"
	}
	return fmt.Sprintf("band(%d)", int(b))
}

// Strategy selects how per-matcher scores are fused.
type Strategy int

const (
	StrategyAdaptive Strategy = iota
	StrategyTemporalFirst
	StrategyParticipantFirst
	StrategyContentFirst
	StrategyBalanced
)

// WeightedStrategies lists the strategies driven by a weight profile.
var WeightedStrategies = []Strategy{StrategyTemporalFirst, StrategyParticipantFirst, StrategyContentFirst, StrategyBalanced}

func (s Strategy) String() string {
	switch s {
	case StrategyAdaptive:
		return "adaptive"
	case StrategyTemporalFirst:
		return "temporal-first"
	case StrategyParticipantFirst:
		return "participant-first"
	case StrategyContentFirst:
		return "content-first"
	case StrategyBalanced:
		return "balanced"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// Valid reports whether s is a declared strategy.
func (s Strategy) Valid() bool {
	return s >= StrategyAdaptive && s <= StrategyBalanced
}

// ParseStrategy accepts the canonical names plus underscore spellings.
func ParseStrategy(value string) (Strategy, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "_", "-")
	switch normalized {
	case "", "adaptive":
		return StrategyAdaptive, nil
	case "temporal-first", "temporal":
		return StrategyTemporalFirst, nil
	case "participant-first", "participant":
		return StrategyParticipantFirst, nil
	case "content-first", "content":
		return StrategyContentFirst, nil
	case "balanced":
		return StrategyBalanced, nil
	}
	return StrategyAdaptive, fmt.Errorf("unknown strategy %q", value)
}

// Side identifies which input channel a record came from.
type Side int

const (
	SideNotice Side = iota
	SideArtifact
)

func (s Side) String() string {
	if s == SideArtifact {
		return "artifact"
	}
	return "notice"
}

// TemporalEvidence explains a temporal score.
type TemporalEvidence struct {
	NoticeTime   time.Time
	ArtifactTime time.Time
	Delta        time.Duration
	// ArtifactSource is one of filename, metadata, metadata-date.
	ArtifactSource string
	// AssumedUTC is set when a zone abbreviation could not be resolved.
	AssumedUTC string
}

// ParticipantPair is one accepted fuzzy pairing.
type ParticipantPair struct {
	Notice     string
	Artifact   string
	Similarity float64
}

// ParticipantEvidence explains a participant score.
type ParticipantEvidence struct {
	Pairs              []ParticipantPair
	NoticeCount        int
	ArtifactCount      int
	Overlap            float64
	NoticeParticipants []string
}

// ContentEvidence explains a content score.
type ContentEvidence struct {
	NoticeText      string
	ArtifactText    string
	SharedKeywords  []string
	Sequence        float64
	Jaccard         float64
	WeightedOverlap float64
	MeetingType     string
	Similarity      float64
}

// Explanation carries whichever matcher payloads contributed to a decision.
type Explanation struct {
	Temporal    *TemporalEvidence
	Participant *ParticipantEvidence
	Content     *ContentEvidence
}

// Merge returns an explanation holding the non-nil payloads of both.
func (e Explanation) Merge(other Explanation) Explanation {
	if other.Temporal != nil {
		e.Temporal = other.Temporal
	}
	if other.Participant != nil {
		e.Participant = other.Participant
	}
	if other.Content != nil {
		e.Content = other.Content
	}
	return e
}

// PairScore is one matcher's verdict for a notice/artifact pair.
type PairScore struct {
	Matcher       MatchCategory
	NoticeID      string
	ArtifactID    string
	ArtifactIndex int
	Confidence    float64
	Band          ConfidenceBand
	Explanation   Explanation
}

// ComponentScores holds the per-matcher confidences of a candidate.
type ComponentScores struct {
	Temporal    float64
	Participant float64
	Content     float64
}

// Get returns the component score for a single-signal category.
func (c ComponentScores) Get(category MatchCategory) float64 {
	switch category {
	case CategoryTemporal:
		return c.Temporal
	case CategoryParticipant:
		return c.Participant
	case CategoryContent:
		return c.Content
	}
	return 0
}

// CorrelationMatch is the decision record for one notice/artifact candidate.
type CorrelationMatch struct {
	NoticeID      string
	ArtifactID    string
	NoticeIndex   int
	ArtifactIndex int
	Category      MatchCategory
	Confidence    float64
	Strategy      Strategy
	Components    ComponentScores
	Explanation   Explanation
}

// Provenance lists the source record ids of a correlated entity.
type Provenance struct {
	NoticeID   string
	ArtifactID string
}

// CorrelatedEntity is the merged output for a matched pair.
type CorrelatedEntity struct {
	ID           string
	Title        string
	Timestamp    time.Time
	Participants []string
	Content      string
	Match        CorrelationMatch
	Sources      Provenance
}

// OrphanRecord wraps an unmatched record and every attempt made for it.
type OrphanRecord struct {
	Side     Side
	RecordID string
	Index    int
	Title    string
	Attempts []CorrelationMatch
	// Reason is a short human-readable cause.
	Reason string
}

// SideCounts tallies one input side.
type SideCounts struct {
	Total    int
	Matched  int
	Orphaned int
}

// CorrelationMetrics summarises one correlation run.
type CorrelationMetrics struct {
	Notices        SideCounts
	Artifacts      SideCounts
	ByCategory     map[MatchCategory]int
	MeanConfidence float64
	Duration       time.Duration
	Accuracy       float64
	Strategy       Strategy
	MinConfidence  float64
}

// ScoredNotice is one row of the scoring stage output.
type ScoredNotice struct {
	NoticeIndex int
	NoticeID    string
	Scores      []PairScore
	// Attempts holds every fused candidate in artifact order.
	Attempts []CorrelationMatch
	// Selected is the best attempt at or above the threshold.
	Selected *CorrelationMatch
}

// CorrelationRun is the complete output of one run.
type CorrelationRun struct {
	RunID           string
	Strategy        Strategy
	MinConfidence   float64
	Scored          []ScoredNotice
	Entities        []CorrelatedEntity
	NoticeOrphans   []OrphanRecord
	ArtifactOrphans []OrphanRecord
	Metrics         CorrelationMetrics
	Review          []ReviewItem
}
