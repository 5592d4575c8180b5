package matchers

import (
	"log/slog"
	"time"

	"github.com/miradorstack/meeting-correlator/internal/extractors"
	"github.com/miradorstack/meeting-correlator/internal/models"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

// DefaultHorizon bounds how far apart a pair may be before it is skipped.
const DefaultHorizon = 24 * time.Hour

// TemporalBands are the inclusive delta cutoffs for each confidence band.
type TemporalBands struct {
	Perfect time.Duration `yaml:"perfect"`
	High    time.Duration `yaml:"high"`
	Medium  time.Duration `yaml:"medium"`
	Low     time.Duration `yaml:"low"`
}

// DefaultTemporalBands returns the 2/5/15/30 minute bands.
func DefaultTemporalBands() TemporalBands {
	return TemporalBands{
		Perfect: 2 * time.Minute,
		High:    5 * time.Minute,
		Medium:  15 * time.Minute,
		Low:     30 * time.Minute,
	}
}

// Band maps an absolute delta onto a confidence band.
func (b TemporalBands) Band(delta time.Duration) models.ConfidenceBand {
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta <= b.Perfect:
		return models.BandPerfect
	case delta <= b.High:
		return models.BandHigh
	case delta <= b.Medium:
		return models.BandMedium
	case delta <= b.Low:
		return models.BandLow
	}
	return models.BandNone
}

// TemporalMatcher scores pairs by timestamp proximity.
type TemporalMatcher struct {
	times   *extractors.TimeExtractor
	bands   TemporalBands
	horizon time.Duration
	logger  *slog.Logger
}

// TemporalOptions configures a TemporalMatcher. Zero values take defaults.
type TemporalOptions struct {
	Bands   TemporalBands
	Horizon time.Duration
}

// NewTemporalMatcher constructs a TemporalMatcher.
func NewTemporalMatcher(times *extractors.TimeExtractor, opts TemporalOptions, logger *slog.Logger) *TemporalMatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if times == nil {
		times = extractors.NewTimeExtractor(nil, nil, logger)
	}
	if opts.Bands == (TemporalBands{}) {
		opts.Bands = DefaultTemporalBands()
	}
	if opts.Horizon <= 0 {
		opts.Horizon = DefaultHorizon
	}
	return &TemporalMatcher{
		times:   times,
		bands:   opts.Bands,
		horizon: opts.Horizon,
		logger:  logger.With(utils.Matcher(models.CategoryTemporal.String())),
	}
}

// Category implements the matcher identity.
func (m *TemporalMatcher) Category() models.MatchCategory { return models.CategoryTemporal }

type artifactTime struct {
	id string
	ts extractors.Timestamp
	ok bool
}

// TemporalIndex holds pre-extracted artifact timestamps. Read-only once built.
type TemporalIndex struct {
	items []artifactTime
}

// Index extracts every artifact timestamp once.
func (m *TemporalMatcher) Index(artifacts []models.Artifact) *TemporalIndex {
	idx := &TemporalIndex{items: make([]artifactTime, len(artifacts))}
	for i, a := range artifacts {
		ts, ok := m.times.ArtifactTime(a)
		idx.items[i] = artifactTime{id: a.ID, ts: ts, ok: ok}
	}
	return idx
}

// Match scores notice against artifacts. See Score.
func (m *TemporalMatcher) Match(notice models.Notice, artifacts []models.Artifact) *models.PairScore {
	return m.Score(notice, m.Index(artifacts))
}

// Score returns the closest artifact in time, or nil when the notice has no
// timestamp or nothing falls inside a band. Ties go to the smaller delta,
// then to the earlier artifact.
func (m *TemporalMatcher) Score(notice models.Notice, idx *TemporalIndex) *models.PairScore {
	nt, ok := m.times.NoticeTime(notice)
	if !ok {
		m.logger.Debug("notice has no timestamp", utils.NoticeID(notice.ID))
		return nil
	}
	if idx == nil {
		return nil
	}

	bestIdx := -1
	var bestBand models.ConfidenceBand
	var bestDelta time.Duration
	for i, item := range idx.items {
		if !item.ok {
			continue
		}
		delta := utils.AbsDelta(nt.Time, item.ts.Time)
		if delta > m.horizon {
			continue
		}
		band := m.bands.Band(delta)
		if band == models.BandNone {
			continue
		}
		if bestIdx < 0 || band > bestBand || (band == bestBand && delta < bestDelta) {
			bestIdx, bestBand, bestDelta = i, band, delta
		}
	}
	if bestIdx < 0 {
		return nil
	}

	best := idx.items[bestIdx]
	return &models.PairScore{
		Matcher:       models.CategoryTemporal,
		NoticeID:      notice.ID,
		ArtifactID:    best.id,
		ArtifactIndex: bestIdx,
		Confidence:    bestBand.Confidence(),
		Band:          bestBand,
		Explanation: models.Explanation{Temporal: &models.TemporalEvidence{
			NoticeTime:     nt.Time,
			ArtifactTime:   best.ts.Time,
			Delta:          bestDelta,
			ArtifactSource: best.ts.Source,
			AssumedUTC:     best.ts.AssumedUTC,
		}},
	}
}
