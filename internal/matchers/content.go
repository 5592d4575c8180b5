package matchers

import (
	"log/slog"

	"github.com/miradorstack/meeting-correlator/internal/extractors"
	"github.com/miradorstack/meeting-correlator/internal/models"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

// ContentBlend weights the three textual measures.
type ContentBlend struct {
	Sequence        float64 `yaml:"sequence"`
	Jaccard         float64 `yaml:"jaccard"`
	WeightedOverlap float64 `yaml:"weightedOverlap"`
	// MeetingTypeBonus is added when both sides share a meeting type.
	MeetingTypeBonus float64 `yaml:"meetingTypeBonus"`
}

// DefaultContentBlend returns 0.3/0.4/0.3 with a 0.2 meeting-type bonus.
func DefaultContentBlend() ContentBlend {
	return ContentBlend{Sequence: 0.3, Jaccard: 0.4, WeightedOverlap: 0.3, MeetingTypeBonus: 0.2}
}

// ContentMatcher scores pairs by normalised title and keyword similarity.
type ContentMatcher struct {
	text   *extractors.TextAnalyzer
	bands  Thresholds
	blend  ContentBlend
	logger *slog.Logger
}

// ContentOptions configures a ContentMatcher. Zero values take defaults.
type ContentOptions struct {
	Bands Thresholds
	Blend ContentBlend
}

// NewContentMatcher constructs a ContentMatcher.
func NewContentMatcher(text *extractors.TextAnalyzer, opts ContentOptions, logger *slog.Logger) *ContentMatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if text == nil {
		text = extractors.NewTextAnalyzer(nil)
	}
	if opts.Bands == (Thresholds{}) {
		opts.Bands = DefaultContentThresholds()
	}
	if opts.Blend == (ContentBlend{}) {
		opts.Blend = DefaultContentBlend()
	}
	return &ContentMatcher{
		text:   text,
		bands:  opts.Bands,
		blend:  opts.Blend,
		logger: logger.With(utils.Matcher(models.CategoryContent.String())),
	}
}

// Category implements the matcher identity.
func (m *ContentMatcher) Category() models.MatchCategory { return models.CategoryContent }

type contentProfile struct {
	raw        string
	normalized string
	keywords   extractors.Keywords
}

type artifactText struct {
	id      string
	profile contentProfile
	ok      bool
}

// ContentIndex holds pre-normalised artifact text.
type ContentIndex struct {
	items []artifactText
}

func (m *ContentMatcher) profile(raw string) contentProfile {
	normalized := m.text.Normalize(raw)
	return contentProfile{raw: raw, normalized: normalized, keywords: m.text.Keywords(normalized)}
}

// Index normalises every artifact's comparison text once.
func (m *ContentMatcher) Index(artifacts []models.Artifact) *ContentIndex {
	idx := &ContentIndex{items: make([]artifactText, len(artifacts))}
	for i, a := range artifacts {
		item := artifactText{id: a.ID}
		if raw, ok := m.text.ArtifactText(a); ok {
			item.profile = m.profile(raw)
			item.ok = item.profile.normalized != ""
		}
		idx.items[i] = item
	}
	return idx
}

// Match scores notice against artifacts. See Score.
func (m *ContentMatcher) Match(notice models.Notice, artifacts []models.Artifact) *models.PairScore {
	return m.Score(notice, m.Index(artifacts))
}

// Score returns the most textually similar artifact. Ties go to the higher
// raw similarity, then to the earlier artifact.
func (m *ContentMatcher) Score(notice models.Notice, idx *ContentIndex) *models.PairScore {
	raw, ok := m.text.NoticeText(notice)
	if !ok {
		m.logger.Debug("notice has no title or body", utils.NoticeID(notice.ID))
		return nil
	}
	if idx == nil {
		return nil
	}
	np := m.profile(raw)
	if np.normalized == "" {
		return nil
	}

	bestIdx := -1
	var best models.ContentEvidence
	var bestBand models.ConfidenceBand
	for i, item := range idx.items {
		if !item.ok {
			continue
		}
		ev := m.compare(np, item.profile)
		band := m.bands.Band(ev.Similarity)
		if band == models.BandNone {
			continue
		}
		if bestIdx < 0 || band > bestBand || (band == bestBand && ev.Similarity > best.Similarity+epsilon) {
			bestIdx, bestBand, best = i, band, ev
		}
	}
	if bestIdx < 0 {
		return nil
	}

	return &models.PairScore{
		Matcher:       models.CategoryContent,
		NoticeID:      notice.ID,
		ArtifactID:    idx.items[bestIdx].id,
		ArtifactIndex: bestIdx,
		Confidence:    bestBand.Confidence(),
		Band:          bestBand,
		Explanation:   models.Explanation{Content: &best},
	}
}

// Similarity returns the blended similarity of two raw texts.
func (m *ContentMatcher) Similarity(a, b string) float64 {
	return m.compare(m.profile(a), m.profile(b)).Similarity
}

func (m *ContentMatcher) compare(a, b contentProfile) models.ContentEvidence {
	ev := models.ContentEvidence{
		NoticeText:      a.raw,
		ArtifactText:    b.raw,
		Sequence:        SequenceRatio(a.normalized, b.normalized),
		Jaccard:         Jaccard(a.keywords.Terms, b.keywords.Terms),
		WeightedOverlap: WeightedOverlap(a.keywords.Weights, b.keywords.Weights),
	}
	for _, term := range a.keywords.Terms {
		if b.keywords.Has(term) {
			ev.SharedKeywords = append(ev.SharedKeywords, term)
		}
	}
	sim := m.blend.Sequence*ev.Sequence + m.blend.Jaccard*ev.Jaccard + m.blend.WeightedOverlap*ev.WeightedOverlap
	if a.keywords.MeetingType != "" && a.keywords.MeetingType == b.keywords.MeetingType {
		ev.MeetingType = a.keywords.MeetingType
		sim += m.blend.MeetingTypeBonus
	}
	ev.Similarity = clamp01(sim)
	return ev
}
