package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/miradorstack/meeting-correlator/internal/config"
	"github.com/miradorstack/meeting-correlator/internal/engine"
	"github.com/miradorstack/meeting-correlator/internal/extractors"
	"github.com/miradorstack/meeting-correlator/internal/lexicon"
	"github.com/miradorstack/meeting-correlator/internal/matchers"
	"github.com/miradorstack/meeting-correlator/internal/models"
	"github.com/miradorstack/meeting-correlator/internal/review"
)

// buildPipeline assembles the correlation engine from configuration.
func buildPipeline(cfg *config.Config, logger *slog.Logger, store review.Store) (*engine.Pipeline, error) {
	corr := cfg.Correlation

	lex, err := lexicon.Load(cfg.Lexicon.Path)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	reference, err := time.LoadLocation(corr.ReferenceTimezone)
	if err != nil {
		return nil, fmt.Errorf("reference timezone: %w", err)
	}
	strategy, err := models.ParseStrategy(corr.Strategy)
	if err != nil {
		return nil, err
	}

	times := extractors.NewTimeExtractor(lex, reference, logger)
	people := extractors.NewParticipantExtractor(lex, logger)
	text := extractors.NewTextAnalyzer(lex)

	temporal := matchers.NewTemporalMatcher(times, matchers.TemporalOptions{
		Bands:   matchers.TemporalBands(corr.TemporalBands),
		Horizon: corr.Horizon,
	}, logger)
	participant := matchers.NewParticipantMatcher(people, matchers.ParticipantOptions{
		Bands:         matchers.Thresholds(corr.OverlapBands),
		NameThreshold: &corr.ParticipantThreshold,
	}, logger)
	content := matchers.NewContentMatcher(text, matchers.ContentOptions{
		Bands: matchers.Thresholds(corr.ContentBands),
	}, logger)

	profiles := engine.Profiles{}
	for name, w := range corr.Weights {
		s, err := models.ParseStrategy(name)
		if err != nil {
			return nil, fmt.Errorf("weights: %w", err)
		}
		profiles[s] = engine.Weights(w)
	}

	correlator, err := engine.NewCorrelator(logger, temporal, participant, content, engine.CorrelatorOptions{
		Profiles: profiles,
		Workers:  corr.Workers,
	})
	if err != nil {
		return nil, err
	}

	minConfidence := corr.MinConfidence
	return engine.NewPipeline(
		logger,
		correlator,
		engine.NewResultsManager(logger, times, people),
		review.NewBuilder(logger, store),
		engine.PipelineOptions{Strategy: strategy, MinConfidence: &minConfidence},
	)
}
