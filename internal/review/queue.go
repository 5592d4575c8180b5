package review

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/miradorstack/meeting-correlator/internal/models"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

// Store receives the review queue of a run.
type Store interface {
	StoreQueue(ctx context.Context, runID string, items []models.ReviewItem) error
}

// Builder ranks orphans for manual review.
type Builder struct {
	store  Store
	logger *slog.Logger
}

// NewBuilder constructs a Builder; store may be nil for dry runs.
func NewBuilder(logger *slog.Logger, store Store) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{store: store, logger: logger}
}

// Build turns the run's orphans into a review queue, strongest near miss
// first, and hands it to the store. Store failures are logged, not returned.
func (b *Builder) Build(ctx context.Context, run models.CorrelationRun) []models.ReviewItem {
	items := make([]models.ReviewItem, 0, len(run.NoticeOrphans)+len(run.ArtifactOrphans))
	for _, o := range run.NoticeOrphans {
		items = append(items, item(o))
	}
	for _, o := range run.ArtifactOrphans {
		items = append(items, item(o))
	}

	// Stable: equal confidence keeps notices before artifacts, then input order.
	slices.SortStableFunc(items, func(a, b models.ReviewItem) int {
		return cmp.Compare(b.BestConfidence, a.BestConfidence)
	})
	for i := range items {
		items[i].Priority = i + 1
	}

	if b.store != nil && len(items) > 0 {
		if err := b.store.StoreQueue(ctx, run.RunID, items); err != nil {
			b.logger.Warn("review queue store failed", utils.RunID(run.RunID), utils.Error(err))
		}
	}
	return items
}

func item(o models.OrphanRecord) models.ReviewItem {
	it := models.ReviewItem{
		Side:     o.Side,
		RecordID: o.RecordID,
		Title:    o.Title,
		Attempts: len(o.Attempts),
	}
	best := -1
	for i, a := range o.Attempts {
		if best < 0 || a.Confidence > o.Attempts[best].Confidence {
			best = i
		}
	}
	if best < 0 {
		it.Reason = o.Reason
		return it
	}
	near := o.Attempts[best]
	it.BestConfidence = near.Confidence
	it.BestCategory = near.Category
	if o.Side == models.SideNotice {
		it.BestCandidateID = near.ArtifactID
	} else {
		it.BestCandidateID = near.NoticeID
	}
	it.Reason = fmt.Sprintf("%s; best %s candidate %s at %.2f", o.Reason, near.Category, it.BestCandidateID, near.Confidence)
	return it
}
