package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/meeting-correlator/internal/metrics"
	"github.com/miradorstack/meeting-correlator/internal/models"
	"github.com/miradorstack/meeting-correlator/internal/review"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

// DefaultMinConfidence is the fused score a candidate needs to be selected.
const DefaultMinConfidence = 0.6

// PipelineOptions holds run defaults applied when a request leaves them unset.
type PipelineOptions struct {
	Strategy      models.Strategy
	MinConfidence *float64
}

// Pipeline orchestrates one correlation run: score, assign, review.
type Pipeline struct {
	logger        *slog.Logger
	correlator    *Correlator
	results       *ResultsManager
	reviewer      *review.Builder
	strategy      models.Strategy
	minConfidence float64
}

// NewPipeline constructs a Pipeline. reviewer may be nil.
func NewPipeline(
	logger *slog.Logger,
	correlator *Correlator,
	results *ResultsManager,
	reviewer *review.Builder,
	opts PipelineOptions,
) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if correlator == nil {
		c, err := NewCorrelator(logger, nil, nil, nil, CorrelatorOptions{})
		if err != nil {
			return nil, err
		}
		correlator = c
	}
	if results == nil {
		results = NewResultsManager(logger, nil, nil)
	}
	minConfidence := DefaultMinConfidence
	if opts.MinConfidence != nil {
		minConfidence = *opts.MinConfidence
	}
	if err := validateRun(opts.Strategy, minConfidence); err != nil {
		return nil, err
	}
	return &Pipeline{
		logger:        logger,
		correlator:    correlator,
		results:       results,
		reviewer:      reviewer,
		strategy:      opts.Strategy,
		minConfidence: minConfidence,
	}, nil
}

// Run correlates the request's notices with its artifacts. Only malformed
// call arguments and context cancellation produce an error; noisy records
// end up as orphans.
func (p *Pipeline) Run(ctx context.Context, req models.CorrelationRequest) (models.CorrelationRun, error) {
	start := time.Now()
	run, err := p.run(ctx, req, start)
	duration := time.Since(start)
	switch {
	case err == nil:
		metrics.ObserveRun(duration, metrics.OutcomeSuccess)
		metrics.ObserveResult(run.Metrics)
	case utils.IsInvalidInput(err):
		metrics.ObserveRun(duration, metrics.OutcomeInvalid)
	default:
		metrics.ObserveRun(duration, metrics.OutcomeError)
	}
	return run, err
}

func (p *Pipeline) run(ctx context.Context, req models.CorrelationRequest, start time.Time) (models.CorrelationRun, error) {
	strategy := p.strategy
	if req.Strategy != nil {
		strategy = *req.Strategy
	}
	minConfidence := p.minConfidence
	if req.MinConfidence != nil {
		minConfidence = *req.MinConfidence
	}
	if err := validateRun(strategy, minConfidence); err != nil {
		return models.CorrelationRun{}, err
	}

	notices, err := prepare(req.Notices, models.SideNotice, func(r models.Record) models.Notice { return models.Notice{Record: r} })
	if err != nil {
		return models.CorrelationRun{}, err
	}
	artifacts, err := prepare(req.Artifacts, models.SideArtifact, func(r models.Record) models.Artifact { return models.Artifact{Record: r} })
	if err != nil {
		return models.CorrelationRun{}, err
	}

	runID := uuid.NewString()
	logger := p.logger.With(utils.RunID(runID), utils.Strategy(strategy.String()))
	logger.Debug("correlation run started",
		slog.Int("notices", len(notices)),
		slog.Int("artifacts", len(artifacts)),
		slog.Float64("min_confidence", minConfidence),
	)

	scored, err := p.correlator.Score(ctx, notices, artifacts, strategy, minConfidence)
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("correlation run cancelled", utils.Error(err))
		}
		return models.CorrelationRun{}, fmt.Errorf("score notices: %w", err)
	}

	res := p.results.Resolve(scored, notices, artifacts)
	res.Metrics.Strategy = strategy
	res.Metrics.MinConfidence = minConfidence
	res.Metrics.Duration = time.Since(start)

	run := models.CorrelationRun{
		RunID:           runID,
		Strategy:        strategy,
		MinConfidence:   minConfidence,
		Scored:          scored,
		Entities:        res.Entities,
		NoticeOrphans:   res.NoticeOrphans,
		ArtifactOrphans: res.ArtifactOrphans,
		Metrics:         res.Metrics,
	}
	if p.reviewer != nil {
		run.Review = p.reviewer.Build(ctx, run)
	}

	logger.Info("correlation run complete",
		slog.Int("matched", len(run.Entities)),
		slog.Int("notice_orphans", len(run.NoticeOrphans)),
		slog.Int("artifact_orphans", len(run.ArtifactOrphans)),
		slog.Float64("accuracy", run.Metrics.Accuracy),
		utils.Duration(run.Metrics.Duration),
	)
	return run, nil
}

func validateRun(strategy models.Strategy, minConfidence float64) error {
	if !strategy.Valid() {
		return utils.InvalidInput("engine.Run", "unknown strategy %d", int(strategy))
	}
	if !(minConfidence >= 0 && minConfidence <= 1) {
		return utils.InvalidInput("engine.Run", "minConfidence %.3f outside [0,1]", minConfidence)
	}
	return nil
}

// prepare assigns positional ids to anonymous records and rejects duplicate
// explicit ids. A positional id already taken by an explicit one gains a
// numeric suffix.
func prepare[T any](records []models.Record, side models.Side, wrap func(models.Record) T) ([]T, error) {
	prepared := make([]models.Record, len(records))
	seen := make(map[string]int, len(records))
	for i, r := range records {
		if r.ID == "" {
			if id, ok := r.Text("id"); ok {
				r.ID = id
			}
		}
		if r.ID != "" {
			if first, dup := seen[r.ID]; dup {
				return nil, utils.InvalidInput("engine.Run", "duplicate %s id %q at positions %d and %d", side, r.ID, first, i)
			}
			seen[r.ID] = i
		}
		prepared[i] = r
	}

	out := make([]T, len(prepared))
	for i, r := range prepared {
		if r.ID == "" {
			r.ID = fmt.Sprintf("%s-%d", side, i)
			for n := 1; ; n++ {
				if _, taken := seen[r.ID]; !taken {
					break
				}
				r.ID = fmt.Sprintf("%s-%d-%d", side, i, n)
			}
			seen[r.ID] = i
		}
		out[i] = wrap(r)
	}
	return out, nil
}
