package matchers

import (
	"log/slog"

	"github.com/miradorstack/meeting-correlator/internal/extractors"
	"github.com/miradorstack/meeting-correlator/internal/models"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

// DefaultNameThreshold is the minimum similarity for two names to pair.
const DefaultNameThreshold = 0.6

// ParticipantMatcher scores pairs by fuzzy participant overlap.
type ParticipantMatcher struct {
	people     *extractors.ParticipantExtractor
	bands      Thresholds
	nameCutoff float64
	logger     *slog.Logger
}

// ParticipantOptions configures a ParticipantMatcher. Zero values take defaults.
type ParticipantOptions struct {
	Bands Thresholds
	// NameThreshold is the minimum name similarity to pair; nil uses
	// DefaultNameThreshold, zero pairs any names.
	NameThreshold *float64
}

// NewParticipantMatcher constructs a ParticipantMatcher.
func NewParticipantMatcher(people *extractors.ParticipantExtractor, opts ParticipantOptions, logger *slog.Logger) *ParticipantMatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if people == nil {
		people = extractors.NewParticipantExtractor(nil, logger)
	}
	if opts.Bands == (Thresholds{}) {
		opts.Bands = DefaultOverlapThresholds()
	}
	cutoff := DefaultNameThreshold
	if opts.NameThreshold != nil {
		cutoff = *opts.NameThreshold
	}
	return &ParticipantMatcher{
		people:     people,
		bands:      opts.Bands,
		nameCutoff: cutoff,
		logger:     logger.With(utils.Matcher(models.CategoryParticipant.String())),
	}
}

// Category implements the matcher identity.
func (m *ParticipantMatcher) Category() models.MatchCategory { return models.CategoryParticipant }

type artifactPeople struct {
	id     string
	people []extractors.Participant
}

// ParticipantIndex holds pre-extracted artifact participants.
type ParticipantIndex struct {
	items []artifactPeople
}

// Index extracts every artifact's participants once.
func (m *ParticipantMatcher) Index(artifacts []models.Artifact) *ParticipantIndex {
	idx := &ParticipantIndex{items: make([]artifactPeople, len(artifacts))}
	for i, a := range artifacts {
		idx.items[i] = artifactPeople{id: a.ID, people: m.people.FromArtifact(a)}
	}
	return idx
}

// Match scores notice against artifacts. See Score.
func (m *ParticipantMatcher) Match(notice models.Notice, artifacts []models.Artifact) *models.PairScore {
	return m.Score(notice, m.Index(artifacts))
}

// Score returns the artifact with the strongest participant overlap. Ties go
// to the larger number of matched pairs, then to the earlier artifact.
func (m *ParticipantMatcher) Score(notice models.Notice, idx *ParticipantIndex) *models.PairScore {
	attendees := m.people.FromNotice(notice)
	if len(attendees) == 0 {
		m.logger.Debug("notice has no participants", utils.NoticeID(notice.ID))
		return nil
	}
	if idx == nil {
		return nil
	}

	bestIdx := -1
	var best models.ParticipantEvidence
	var bestBand models.ConfidenceBand
	for i, item := range idx.items {
		if len(item.people) == 0 {
			continue
		}
		pairs := m.pair(attendees, item.people)
		if len(pairs) == 0 {
			continue
		}
		overlap := 2 * float64(len(pairs)) / float64(len(attendees)+len(item.people))
		band := m.bands.Band(overlap)
		if band == models.BandNone {
			continue
		}
		if bestIdx < 0 || band > bestBand || (band == bestBand && len(pairs) > len(best.Pairs)) {
			bestIdx, bestBand = i, band
			best = models.ParticipantEvidence{
				Pairs:              pairs,
				NoticeCount:        len(attendees),
				ArtifactCount:      len(item.people),
				Overlap:            overlap,
				NoticeParticipants: displayNames(attendees),
			}
		}
	}
	if bestIdx < 0 {
		return nil
	}

	return &models.PairScore{
		Matcher:       models.CategoryParticipant,
		NoticeID:      notice.ID,
		ArtifactID:    idx.items[bestIdx].id,
		ArtifactIndex: bestIdx,
		Confidence:    bestBand.Confidence(),
		Band:          bestBand,
		Explanation:   models.Explanation{Participant: &best},
	}
}

// pair greedily matches each notice participant, in order, to its most
// similar unclaimed artifact participant.
func (m *ParticipantMatcher) pair(notice, artifact []extractors.Participant) []models.ParticipantPair {
	claimed := make([]bool, len(artifact))
	var pairs []models.ParticipantPair
	for _, np := range notice {
		bestJ, bestSim := -1, 0.0
		for j, ap := range artifact {
			if claimed[j] {
				continue
			}
			if sim := NameSimilarity(np, ap); sim > bestSim {
				bestJ, bestSim = j, sim
			}
		}
		if bestJ >= 0 && bestSim+epsilon >= m.nameCutoff {
			claimed[bestJ] = true
			pairs = append(pairs, models.ParticipantPair{
				Notice:     np.Display,
				Artifact:   artifact[bestJ].Display,
				Similarity: bestSim,
			})
		}
	}
	return pairs
}

// NameSimilarity is the best of whole-name, first-name, last-name and
// token-set similarity.
func NameSimilarity(a, b extractors.Participant) float64 {
	best := SequenceRatio(a.Normalized, b.Normalized)
	if first := SequenceRatio(a.First(), b.First()); a.First() != "" && first > best {
		best = first
	}
	if a.Last() != "" && b.Last() != "" {
		if last := SequenceRatio(a.Last(), b.Last()); last > best {
			best = last
		}
	}
	if j := Jaccard(a.Tokens, b.Tokens); j > best {
		best = j
	}
	return best
}

func displayNames(people []extractors.Participant) []string {
	out := make([]string, len(people))
	for i, p := range people {
		out[i] = p.Display
	}
	return out
}
