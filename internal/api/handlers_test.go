package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/meeting-correlator/internal/models"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestFromStructRequest(t *testing.T) {
	req := mustStruct(t, map[string]any{
		"notices": []any{
			map[string]any{"id": "n1", "title": "Team Sync", "participants": []any{"david@co.com"}},
		},
		"artifacts": []any{
			map[string]any{"id": "a1", "metadata": map[string]any{"participants": []any{"David"}}},
			map[string]any{"title": "Retro"},
		},
		"strategy":      "participant_first",
		"minConfidence": 0.75,
	})

	got, err := FromStructRequest(req)
	require.NoError(t, err)
	require.Len(t, got.Notices, 1)
	assert.Equal(t, "n1", got.Notices[0].ID)
	require.Len(t, got.Artifacts, 2)
	assert.Empty(t, got.Artifacts[1].ID)
	require.NotNil(t, got.Strategy)
	assert.Equal(t, models.StrategyParticipantFirst, *got.Strategy)
	require.NotNil(t, got.MinConfidence)
	assert.InDelta(t, 0.75, *got.MinConfidence, 1e-9)

	notice := models.Notice{Record: got.Notices[0]}
	participants, ok := notice.Participants()
	require.True(t, ok)
	assert.Equal(t, []string{"david@co.com"}, participants)
}

func TestFromStructRequestOptionalFields(t *testing.T) {
	got, err := FromStructRequest(mustStruct(t, map[string]any{"notices": nil}))
	require.NoError(t, err)
	assert.Empty(t, got.Notices)
	assert.Empty(t, got.Artifacts)
	assert.Nil(t, got.Strategy)
	assert.Nil(t, got.MinConfidence)
}

func TestFromStructRequestRejectsStructuralErrors(t *testing.T) {
	cases := map[string]map[string]any{
		"notices not a list":    {"notices": "n1"},
		"artifacts not a list":  {"artifacts": map[string]any{"id": "a1"}},
		"element not an object": {"notices": []any{"n1"}},
		"unknown strategy":      {"strategy": "greedy"},
		"strategy not a string": {"strategy": 3.0},
		"threshold not number":  {"min_confidence": "high"},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromStructRequest(mustStruct(t, fields))
			require.Error(t, err)
			assert.True(t, utils.IsInvalidInput(err))
		})
	}

	_, err := FromStructRequest(nil)
	assert.True(t, utils.IsInvalidInput(err))
}

func TestToStructRun(t *testing.T) {
	noticeTime := time.Date(2025, 6, 24, 8, 46, 0, 0, time.UTC)
	match := models.CorrelationMatch{
		NoticeID:   "n1",
		ArtifactID: "a1",
		Category:   models.CategoryComposite,
		Confidence: 0.95,
		Strategy:   models.StrategyBalanced,
		Components: models.ComponentScores{Temporal: 0.95, Participant: 0.95, Content: 0.95},
		Explanation: models.Explanation{
			Temporal: &models.TemporalEvidence{
				NoticeTime:     noticeTime,
				ArtifactTime:   noticeTime.Add(2 * time.Minute),
				Delta:          2 * time.Minute,
				ArtifactSource: "filename",
				AssumedUTC:     "PDT",
			},
			Participant: &models.ParticipantEvidence{
				Pairs:   []models.ParticipantPair{{Notice: "David", Artifact: "David", Similarity: 1}},
				Overlap: 1,
			},
		},
	}
	run := models.CorrelationRun{
		RunID:         "run-1",
		Strategy:      models.StrategyBalanced,
		MinConfidence: 0.6,
		Entities: []models.CorrelatedEntity{{
			ID:           "n1::a1",
			Title:        "Team Sync Notes",
			Timestamp:    noticeTime,
			Participants: []string{"David", "Charlie"},
			Match:        match,
			Sources:      models.Provenance{NoticeID: "n1", ArtifactID: "a1"},
		}},
		ArtifactOrphans: []models.OrphanRecord{{Side: models.SideArtifact, RecordID: "a2", Index: 1, Reason: "no candidate"}},
		Review:          []models.ReviewItem{{Side: models.SideArtifact, RecordID: "a2", Priority: 1, Reason: "no candidate"}},
		Metrics: models.CorrelationMetrics{
			Notices:    models.SideCounts{Total: 1, Matched: 1},
			Artifacts:  models.SideCounts{Total: 2, Matched: 1, Orphaned: 1},
			ByCategory: map[models.MatchCategory]int{models.CategoryComposite: 1},
			Accuracy:   1,
			Strategy:   models.StrategyBalanced,
		},
	}

	doc, err := ToStructRun(run)
	require.NoError(t, err)
	m := doc.AsMap()

	assert.Equal(t, "run-1", m["runId"])
	assert.Equal(t, "balanced", m["strategy"])
	entities := m["entities"].([]any)
	require.Len(t, entities, 1)
	entity := entities[0].(map[string]any)
	assert.Equal(t, "2025-06-24T08:46:00Z", entity["timestamp"])
	assert.Equal(t, []any{"David", "Charlie"}, entity["participants"])

	matchDoc := entity["match"].(map[string]any)
	assert.Equal(t, "composite", matchDoc["category"])
	temporal := matchDoc["explanation"].(map[string]any)["temporal"].(map[string]any)
	assert.Equal(t, 120.0, temporal["deltaSeconds"])
	assert.Equal(t, "PDT", temporal["assumedUtc"])

	orphans := m["orphans"].(map[string]any)
	assert.Empty(t, orphans["notices"])
	assert.Len(t, orphans["artifacts"], 1)

	metrics := m["metrics"].(map[string]any)
	assert.Equal(t, 1.0, metrics["byCategory"].(map[string]any)["composite"])
	assert.Equal(t, 1.0, metrics["artifacts"].(map[string]any)["orphaned"])
}
