package engine

import (
	"context"
	"log/slog"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/meeting-correlator/internal/matchers"
	"github.com/miradorstack/meeting-correlator/internal/models"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

// Correlator runs the three matchers for every notice and fuses their picks
// into a scored candidate table.
type Correlator struct {
	temporal    *matchers.TemporalMatcher
	participant *matchers.ParticipantMatcher
	content     *matchers.ContentMatcher
	profiles    Profiles
	workers     int
	logger      *slog.Logger
}

// CorrelatorOptions configures a Correlator. Zero values take defaults.
type CorrelatorOptions struct {
	Profiles Profiles
	// Workers bounds scoring concurrency; defaults to GOMAXPROCS.
	Workers int
}

// NewCorrelator constructs a Correlator. Nil matchers are built with defaults.
func NewCorrelator(
	logger *slog.Logger,
	temporal *matchers.TemporalMatcher,
	participant *matchers.ParticipantMatcher,
	content *matchers.ContentMatcher,
	opts CorrelatorOptions,
) (*Correlator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if temporal == nil {
		temporal = matchers.NewTemporalMatcher(nil, matchers.TemporalOptions{}, logger)
	}
	if participant == nil {
		participant = matchers.NewParticipantMatcher(nil, matchers.ParticipantOptions{}, logger)
	}
	if content == nil {
		content = matchers.NewContentMatcher(nil, matchers.ContentOptions{}, logger)
	}
	profiles := opts.Profiles.withDefaults()
	if err := profiles.Validate(); err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Correlator{
		temporal:    temporal,
		participant: participant,
		content:     content,
		profiles:    profiles,
		workers:     workers,
		logger:      logger,
	}, nil
}

// Profiles returns the active weight profiles.
func (c *Correlator) Profiles() Profiles { return c.profiles }

type artifactIndex struct {
	temporal    *matchers.TemporalIndex
	participant *matchers.ParticipantIndex
	content     *matchers.ContentIndex
}

// Score evaluates every notice against the full artifact list. Rows are
// computed concurrently, each goroutine writing only its own slot; the
// returned table is ordered like notices and must be treated as read-only.
func (c *Correlator) Score(ctx context.Context, notices []models.Notice, artifacts []models.Artifact, strategy models.Strategy, minConfidence float64) ([]models.ScoredNotice, error) {
	if !strategy.Valid() {
		return nil, utils.InvalidInput("engine.Score", "unknown strategy %d", int(strategy))
	}
	if !(minConfidence >= 0 && minConfidence <= 1) {
		return nil, utils.InvalidInput("engine.Score", "minConfidence %.3f outside [0,1]", minConfidence)
	}

	idx, err := c.index(ctx, artifacts)
	if err != nil {
		return nil, err
	}

	table := make([]models.ScoredNotice, len(notices))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i := range notices {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			table[i] = c.scoreNotice(i, notices[i], idx, strategy, minConfidence)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

// index pre-extracts artifact signals, one goroutine per matcher.
func (c *Correlator) index(ctx context.Context, artifacts []models.Artifact) (artifactIndex, error) {
	var idx artifactIndex
	var g errgroup.Group
	g.Go(func() error {
		idx.temporal = c.temporal.Index(artifacts)
		return nil
	})
	g.Go(func() error {
		idx.participant = c.participant.Index(artifacts)
		return nil
	})
	g.Go(func() error {
		idx.content = c.content.Index(artifacts)
		return nil
	})
	if err := g.Wait(); err != nil {
		return artifactIndex{}, err
	}
	return idx, ctx.Err()
}

func (c *Correlator) scoreNotice(i int, notice models.Notice, idx artifactIndex, strategy models.Strategy, minConfidence float64) models.ScoredNotice {
	row := models.ScoredNotice{NoticeIndex: i, NoticeID: notice.ID}
	for _, pick := range []*models.PairScore{
		c.temporal.Score(notice, idx.temporal),
		c.participant.Score(notice, idx.participant),
		c.content.Score(notice, idx.content),
	} {
		if pick != nil {
			row.Scores = append(row.Scores, *pick)
		}
	}
	if len(row.Scores) == 0 {
		c.logger.Debug("no matcher produced a candidate", utils.NoticeID(notice.ID))
		return row
	}

	candidates := make([]int, 0, len(row.Scores))
	for _, s := range row.Scores {
		if !slices.Contains(candidates, s.ArtifactIndex) {
			candidates = append(candidates, s.ArtifactIndex)
		}
	}
	slices.Sort(candidates)

	best := -1
	for _, artifactIdx := range candidates {
		attempt := c.fuse(i, notice.ID, artifactIdx, row.Scores, strategy)
		row.Attempts = append(row.Attempts, attempt)
		if attempt.Confidence < minConfidence {
			continue
		}
		if best < 0 || attempt.Confidence > row.Attempts[best].Confidence {
			best = len(row.Attempts) - 1
		}
	}
	if best >= 0 {
		selected := row.Attempts[best]
		row.Selected = &selected
	}
	return row
}

// fuse builds the attempt for one candidate artifact. Only matchers that
// picked this artifact contribute a component score.
func (c *Correlator) fuse(noticeIdx int, noticeID string, artifactIdx int, scores []models.PairScore, strategy models.Strategy) models.CorrelationMatch {
	attempt := models.CorrelationMatch{
		NoticeID:      noticeID,
		NoticeIndex:   noticeIdx,
		ArtifactIndex: artifactIdx,
		Strategy:      strategy,
	}
	for _, s := range scores {
		if s.ArtifactIndex != artifactIdx {
			continue
		}
		attempt.ArtifactID = s.ArtifactID
		attempt.Explanation = attempt.Explanation.Merge(s.Explanation)
		switch s.Matcher {
		case models.CategoryTemporal:
			attempt.Components.Temporal = s.Confidence
		case models.CategoryParticipant:
			attempt.Components.Participant = s.Confidence
		case models.CategoryContent:
			attempt.Components.Content = s.Confidence
		}
	}
	confidence, category := Fuse(strategy, attempt.Components, c.profiles)
	attempt.Confidence = roundConfidence(min(max(confidence, 0), 1))
	attempt.Category = category
	return attempt
}
