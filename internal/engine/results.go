package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/miradorstack/meeting-correlator/internal/extractors"
	"github.com/miradorstack/meeting-correlator/internal/models"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

// Orphan reasons.
const (
	ReasonNoCandidate     = "no candidate"
	ReasonBelowThreshold  = "below threshold"
	ReasonArtifactClaimed = "artifact already claimed"
	ReasonNotSelected     = "not selected"
)

// Resolution is the outcome of the assignment stage.
type Resolution struct {
	Entities        []models.CorrelatedEntity
	NoticeOrphans   []models.OrphanRecord
	ArtifactOrphans []models.OrphanRecord
	Metrics         models.CorrelationMetrics
}

// ResultsManager turns the scored table into a 1:1 assignment.
type ResultsManager struct {
	times  *extractors.TimeExtractor
	people *extractors.ParticipantExtractor
	logger *slog.Logger
}

// NewResultsManager constructs a ResultsManager. Nil extractors use defaults.
func NewResultsManager(logger *slog.Logger, times *extractors.TimeExtractor, people *extractors.ParticipantExtractor) *ResultsManager {
	if logger == nil {
		logger = slog.Default()
	}
	if times == nil {
		times = extractors.NewTimeExtractor(nil, nil, logger)
	}
	if people == nil {
		people = extractors.NewParticipantExtractor(nil, logger)
	}
	return &ResultsManager{times: times, people: people, logger: logger}
}

// Resolve walks selected matches in notice order and accepts each one whose
// artifact is still free. Claims are first-come-first-served: a later notice
// never displaces an earlier one, even with a higher score, and a notice that
// loses its artifact does not fall back to its next candidate.
func (r *ResultsManager) Resolve(scored []models.ScoredNotice, notices []models.Notice, artifacts []models.Artifact) Resolution {
	claimedBy := make([]int, len(artifacts))
	for i := range claimedBy {
		claimedBy[i] = -1
	}
	matched := make([]bool, len(notices))

	var res Resolution
	var total float64
	byCategory := make(map[models.MatchCategory]int)
	for _, row := range scored {
		sel := row.Selected
		if sel == nil {
			continue
		}
		if owner := claimedBy[sel.ArtifactIndex]; owner >= 0 {
			r.logger.Debug("artifact already claimed",
				utils.NoticeID(row.NoticeID),
				utils.ArtifactID(sel.ArtifactID),
				slog.String("claimed_by", notices[owner].ID),
			)
			continue
		}
		claimedBy[sel.ArtifactIndex] = row.NoticeIndex
		matched[row.NoticeIndex] = true
		res.Entities = append(res.Entities, r.entity(*sel, notices[row.NoticeIndex], artifacts[sel.ArtifactIndex]))
		byCategory[sel.Category]++
		total += sel.Confidence
	}

	for i, n := range notices {
		if matched[i] {
			continue
		}
		var row models.ScoredNotice
		if i < len(scored) {
			row = scored[i]
		}
		res.NoticeOrphans = append(res.NoticeOrphans, models.OrphanRecord{
			Side:     models.SideNotice,
			RecordID: n.ID,
			Index:    i,
			Title:    noticeTitle(n),
			Attempts: row.Attempts,
			Reason:   noticeReason(row),
		})
	}

	artifactAttempts := make([][]models.CorrelationMatch, len(artifacts))
	for _, row := range scored {
		for _, attempt := range row.Attempts {
			artifactAttempts[attempt.ArtifactIndex] = append(artifactAttempts[attempt.ArtifactIndex], attempt)
		}
	}
	for i, a := range artifacts {
		if claimedBy[i] >= 0 {
			continue
		}
		reason := ReasonNoCandidate
		if len(artifactAttempts[i]) > 0 {
			reason = ReasonNotSelected
		}
		res.ArtifactOrphans = append(res.ArtifactOrphans, models.OrphanRecord{
			Side:     models.SideArtifact,
			RecordID: a.ID,
			Index:    i,
			Title:    artifactTitle(a),
			Attempts: artifactAttempts[i],
			Reason:   reason,
		})
	}

	matchedCount := len(res.Entities)
	res.Metrics = models.CorrelationMetrics{
		Notices:    models.SideCounts{Total: len(notices), Matched: matchedCount, Orphaned: len(res.NoticeOrphans)},
		Artifacts:  models.SideCounts{Total: len(artifacts), Matched: matchedCount, Orphaned: len(res.ArtifactOrphans)},
		ByCategory: byCategory,
		Accuracy:   accuracy(matchedCount, len(notices), len(artifacts)),
	}
	if matchedCount > 0 {
		res.Metrics.MeanConfidence = total / float64(matchedCount)
	}
	return res
}

// accuracy is the share of the smaller side that was matched.
func accuracy(matched, notices, artifacts int) float64 {
	bound := min(notices, artifacts)
	if bound == 0 {
		return 0
	}
	return float64(matched) / float64(bound)
}

func noticeReason(row models.ScoredNotice) string {
	switch {
	case len(row.Attempts) == 0:
		return ReasonNoCandidate
	case row.Selected == nil:
		return ReasonBelowThreshold
	}
	return ReasonArtifactClaimed
}

func (r *ResultsManager) entity(match models.CorrelationMatch, n models.Notice, a models.Artifact) models.CorrelatedEntity {
	entity := models.CorrelatedEntity{
		ID:      fmt.Sprintf("%s::%s", n.ID, a.ID),
		Match:   match,
		Sources: models.Provenance{NoticeID: n.ID, ArtifactID: a.ID},
	}

	if title, ok := a.Title(); ok {
		entity.Title = title
	} else {
		entity.Title = noticeTitle(n)
	}

	entity.Timestamp = r.timestamp(match, n, a)
	entity.Participants = r.participants(n, a)

	if content, ok := a.Content(); ok {
		entity.Content = content
	} else if body, ok := n.Body(); ok {
		entity.Content = body
	}
	return entity
}

func (r *ResultsManager) timestamp(match models.CorrelationMatch, n models.Notice, a models.Artifact) time.Time {
	if ev := match.Explanation.Temporal; ev != nil {
		return ev.NoticeTime
	}
	if ts, ok := r.times.NoticeTime(n); ok {
		return ts.Time
	}
	if ts, ok := r.times.ArtifactTime(a); ok {
		return ts.Time
	}
	return time.Time{}
}

// participants unions both sides by normalised identity, notice side first.
func (r *ResultsManager) participants(n models.Notice, a models.Artifact) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, group := range [][]extractors.Participant{r.people.FromNotice(n), r.people.FromArtifact(a)} {
		for _, p := range group {
			if _, dup := seen[p.Normalized]; dup {
				continue
			}
			seen[p.Normalized] = struct{}{}
			out = append(out, p.Display)
		}
	}
	return out
}

func noticeTitle(n models.Notice) string {
	title, _ := n.Title()
	return title
}

func artifactTitle(a models.Artifact) string {
	if title, ok := a.Title(); ok {
		return title
	}
	filename, _ := a.Filename()
	return filename
}
