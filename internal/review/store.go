package review

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/miradorstack/meeting-correlator/internal/cache"
	"github.com/miradorstack/meeting-correlator/internal/models"
)

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context, runID string, items []models.ReviewItem) error

// StoreQueue implements Store.
func (f StoreFunc) StoreQueue(ctx context.Context, runID string, items []models.ReviewItem) error {
	return f(ctx, runID, items)
}

// CacheStore persists review queues in a cache provider keyed by run ID.
type CacheStore struct {
	provider cache.Provider
	prefix   string
	ttl      time.Duration
}

// NewCacheStore returns a Store writing to provider under prefix+runID.
func NewCacheStore(provider cache.Provider, prefix string, ttl time.Duration) *CacheStore {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	if prefix == "" {
		prefix = "meeting-correlator:review:"
	}
	return &CacheStore{provider: provider, prefix: prefix, ttl: ttl}
}

type storedItem struct {
	Side            string  `json:"side"`
	RecordID        string  `json:"recordId"`
	Title           string  `json:"title,omitempty"`
	BestCandidateID string  `json:"bestCandidateId,omitempty"`
	BestConfidence  float64 `json:"bestConfidence"`
	BestCategory    string  `json:"bestCategory,omitempty"`
	Attempts        int     `json:"attempts"`
	Priority        int     `json:"priority"`
	Reason          string  `json:"reason"`
}

// StoreQueue implements Store. Empty queues are not written.
func (s *CacheStore) StoreQueue(ctx context.Context, runID string, items []models.ReviewItem) error {
	if len(items) == 0 {
		return nil
	}
	docs := make([]storedItem, len(items))
	for i, it := range items {
		docs[i] = storedItem{
			Side:            it.Side.String(),
			RecordID:        it.RecordID,
			Title:           it.Title,
			BestCandidateID: it.BestCandidateID,
			BestConfidence:  it.BestConfidence,
			Attempts:        it.Attempts,
			Priority:        it.Priority,
			Reason:          it.Reason,
		}
		if it.BestCandidateID != "" {
			docs[i].BestCategory = it.BestCategory.String()
		}
	}
	payload, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode review queue: %w", err)
	}
	if err := s.provider.Set(ctx, s.prefix+runID, payload, s.ttl); err != nil {
		return fmt.Errorf("store review queue: %w", err)
	}
	return nil
}
