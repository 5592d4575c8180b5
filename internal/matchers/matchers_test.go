package matchers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/meeting-correlator/internal/extractors"
	"github.com/miradorstack/meeting-correlator/internal/models"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

func notice(fields map[string]any) models.Notice {
	return models.Notice{Record: models.NewRecord(fields)}
}

func artifact(fields map[string]any) models.Artifact {
	return models.Artifact{Record: models.NewRecord(fields)}
}

func temporal() *TemporalMatcher {
	times := extractors.NewTimeExtractor(nil, time.UTC, utils.NopLogger())
	return NewTemporalMatcher(times, TemporalOptions{}, utils.NopLogger())
}

func TestTemporalBands(t *testing.T) {
	b := DefaultTemporalBands()
	assert.Equal(t, models.BandPerfect, b.Band(2*time.Minute))
	assert.Equal(t, models.BandHigh, b.Band(-4*time.Minute))
	assert.Equal(t, models.BandMedium, b.Band(15*time.Minute))
	assert.Equal(t, models.BandLow, b.Band(30*time.Minute))
	assert.Equal(t, models.BandNone, b.Band(31*time.Minute))
}

func TestTemporalBandsMonotonic(t *testing.T) {
	b := DefaultTemporalBands()
	prev := b.Band(0).Confidence()
	for d := time.Duration(0); d <= 2*time.Hour; d += 30 * time.Second {
		c := b.Band(d).Confidence()
		assert.LessOrEqual(t, c, prev, "delta %s", d)
		prev = c
	}
}

func TestNarrowerBandsNeverRaiseConfidence(t *testing.T) {
	base := DefaultTemporalBands()
	narrowings := []func(TemporalBands, time.Duration) TemporalBands{
		func(b TemporalBands, d time.Duration) TemporalBands { b.Perfect -= d; return b },
		func(b TemporalBands, d time.Duration) TemporalBands { b.High -= d; return b },
		func(b TemporalBands, d time.Duration) TemporalBands { b.Medium -= d; return b },
		func(b TemporalBands, d time.Duration) TemporalBands { b.Low -= d; return b },
	}
	for i, narrow := range narrowings {
		for _, by := range []time.Duration{30 * time.Second, time.Minute, 4 * time.Minute, 20 * time.Minute} {
			narrowed := narrow(base, by)
			for d := time.Duration(0); d <= 45*time.Minute; d += 15 * time.Second {
				assert.LessOrEqual(t, narrowed.Band(d).Confidence(), base.Band(d).Confidence(),
					"cutoff %d narrowed by %s at delta %s", i, by, d)
			}
		}
	}

	thresholds := DefaultContentThresholds()
	stricter := thresholds
	stricter.High, stricter.Low = 0.9, 0.55
	for v := 0.0; v <= 1.0; v += 0.01 {
		assert.LessOrEqual(t, stricter.Band(v).Confidence(), thresholds.Band(v).Confidence(), "value %.2f", v)
	}

	n := notice(map[string]any{"id": "n1", "timestamp": "2025-06-24T09:00:00Z"})
	a := []models.Artifact{artifact(map[string]any{"id": "a1", "filename": "Sync - 2025_06_24 09_04"})}
	times := extractors.NewTimeExtractor(nil, time.UTC, utils.NopLogger())
	wide := NewTemporalMatcher(times, TemporalOptions{}, utils.NopLogger()).Match(n, a)
	tight := NewTemporalMatcher(times, TemporalOptions{Bands: TemporalBands{
		Perfect: time.Minute, High: 3 * time.Minute, Medium: 10 * time.Minute, Low: 20 * time.Minute,
	}}, utils.NopLogger()).Match(n, a)
	require.NotNil(t, wide)
	require.NotNil(t, tight)
	assert.Equal(t, models.BandHigh, wide.Band)
	assert.Equal(t, models.BandMedium, tight.Band)
	assert.Less(t, tight.Confidence, wide.Confidence)
}

func TestTemporalMatchPicksClosest(t *testing.T) {
	m := temporal()
	n := notice(map[string]any{"id": "n1", "timestamp": "2025-06-24T08:46:00Z"})
	artifacts := []models.Artifact{
		artifact(map[string]any{"id": "far", "filename": "Sync - 2025_06_24 08_55 - Notes by Gemini"}),
		artifact(map[string]any{"id": "near", "filename": "Sync - 2025_06_24 08_48 PDT - Notes by Gemini"}),
		artifact(map[string]any{"id": "undated", "filename": "random.pdf"}),
	}

	score := m.Match(n, artifacts)
	require.NotNil(t, score)
	assert.Equal(t, "near", score.ArtifactID)
	assert.Equal(t, 1, score.ArtifactIndex)
	assert.Equal(t, models.BandPerfect, score.Band)
	assert.InDelta(t, 0.95, score.Confidence, 1e-9)
	require.NotNil(t, score.Explanation.Temporal)
	assert.Equal(t, 2*time.Minute, score.Explanation.Temporal.Delta)
	assert.Equal(t, "PDT", score.Explanation.Temporal.AssumedUTC)
}

func TestTemporalTieKeepsInputOrder(t *testing.T) {
	m := temporal()
	n := notice(map[string]any{"id": "n1", "timestamp": "2025-06-24T09:00:00Z"})
	artifacts := []models.Artifact{
		artifact(map[string]any{"id": "before", "filename": "A - 2025_06_24 08_57"}),
		artifact(map[string]any{"id": "after", "filename": "B - 2025_06_24 09_03"}),
	}
	score := m.Match(n, artifacts)
	require.NotNil(t, score)
	assert.Equal(t, "before", score.ArtifactID)
}

func TestTemporalNoCandidate(t *testing.T) {
	m := temporal()
	artifacts := []models.Artifact{
		artifact(map[string]any{"id": "a1", "filename": "Sync - 2025_06_25 08_46"}),
	}

	assert.Nil(t, m.Match(notice(map[string]any{"id": "n1"}), artifacts))
	assert.Nil(t, m.Match(notice(map[string]any{"id": "n2", "timestamp": "2025-06-24T08:46:00Z"}), artifacts))
	assert.Nil(t, m.Match(notice(map[string]any{"id": "n3", "timestamp": "2025-06-25T09:30:00Z"}), artifacts))
	assert.Nil(t, m.Match(notice(map[string]any{"id": "n4", "timestamp": "2025-06-25T08:46:00Z"}), nil))
}

func TestTemporalCustomBands(t *testing.T) {
	times := extractors.NewTimeExtractor(nil, time.UTC, utils.NopLogger())
	m := NewTemporalMatcher(times, TemporalOptions{Bands: TemporalBands{
		Perfect: time.Minute, High: 2 * time.Minute, Medium: 3 * time.Minute, Low: 4 * time.Minute,
	}}, utils.NopLogger())
	n := notice(map[string]any{"id": "n1", "timestamp": "2025-06-24T08:46:00Z"})
	score := m.Match(n, []models.Artifact{artifact(map[string]any{"id": "a1", "filename": "X - 2025_06_24 08_49"})})
	require.NotNil(t, score)
	assert.Equal(t, models.BandMedium, score.Band)
}

func TestNameSimilarity(t *testing.T) {
	people := extractors.NewParticipantExtractor(nil, utils.NopLogger())
	person := func(name string) extractors.Participant {
		out := people.FromNotice(notice(map[string]any{"participants": []any{name}}))
		require.Len(t, out, 1)
		return out[0]
	}

	assert.InDelta(t, 1.0, NameSimilarity(person("Dave Chen"), person("David Chen")), 1e-9)
	assert.InDelta(t, 1.0, NameSimilarity(person("David"), person("David Chen")), 1e-9)
	assert.InDelta(t, 1.0, NameSimilarity(person("Priya Shah"), person("P. Shah")), 1e-9)
	assert.Less(t, NameSimilarity(person("Alice"), person("Bob")), DefaultNameThreshold)
}

func TestParticipantMatchNicknamesAndFilename(t *testing.T) {
	m := NewParticipantMatcher(nil, ParticipantOptions{}, utils.NopLogger())
	n := notice(map[string]any{"id": "n1", "participants": []any{"dave@example.com", "charlie@example.com"}})
	artifacts := []models.Artifact{
		artifact(map[string]any{"id": "other", "metadata": map[string]any{"participants": []any{"Alice", "Bob"}}}),
		artifact(map[string]any{"id": "notes", "filename": "David _ Charles - 2025_06_24 08_48 - Notes by Gemini"}),
	}

	score := m.Match(n, artifacts)
	require.NotNil(t, score)
	assert.Equal(t, "notes", score.ArtifactID)
	assert.Equal(t, models.BandPerfect, score.Band)
	require.NotNil(t, score.Explanation.Participant)
	assert.Len(t, score.Explanation.Participant.Pairs, 2)
	assert.InDelta(t, 1.0, score.Explanation.Participant.Overlap, 1e-9)
}

func TestParticipantPartialOverlap(t *testing.T) {
	m := NewParticipantMatcher(nil, ParticipantOptions{}, utils.NopLogger())
	n := notice(map[string]any{"id": "n1", "participants": []any{"Alice", "Bob", "Carol"}})
	a := artifact(map[string]any{"id": "a1", "metadata": map[string]any{"participants": []any{"Alice", "Bob"}}})

	score := m.Match(n, []models.Artifact{a})
	require.NotNil(t, score)
	assert.InDelta(t, 0.8, score.Explanation.Participant.Overlap, 1e-9)
	assert.Equal(t, models.BandHigh, score.Band)
	assert.InDelta(t, 0.85, score.Confidence, 1e-9)
}

func TestParticipantTiePrefersMorePairs(t *testing.T) {
	m := NewParticipantMatcher(nil, ParticipantOptions{}, utils.NopLogger())
	n := notice(map[string]any{"id": "n1", "participants": []any{"Alice", "Bob", "Carol", "Dan"}})
	artifacts := []models.Artifact{
		// 2 pairs, overlap 4/6
		artifact(map[string]any{"id": "small", "metadata": map[string]any{"participants": []any{"Alice", "Bob"}}}),
		// 3 pairs, overlap 6/10
		artifact(map[string]any{"id": "large", "metadata": map[string]any{
			"participants": []any{"Alice", "Bob", "Carol", "Xavier", "Yolanda", "Zed"},
		}}),
	}
	score := m.Match(n, artifacts)
	require.NotNil(t, score)
	assert.Equal(t, models.BandMedium, score.Band)
	assert.Equal(t, "large", score.ArtifactID)
}

func TestParticipantNoOverlap(t *testing.T) {
	m := NewParticipantMatcher(nil, ParticipantOptions{}, utils.NopLogger())
	n := notice(map[string]any{"id": "n1", "participants": []any{"Alice"}})
	a := artifact(map[string]any{"id": "a1", "metadata": map[string]any{"participants": []any{"Bob", "Olga"}}})

	assert.Nil(t, m.Match(n, []models.Artifact{a}))
	assert.Nil(t, m.Match(notice(map[string]any{"id": "n2"}), []models.Artifact{a}))
	assert.Nil(t, m.Match(notice(map[string]any{"id": "n3", "participants": 42}), []models.Artifact{a}))
}

func TestParticipantZeroNameThresholdIsHonoured(t *testing.T) {
	n := notice(map[string]any{"id": "n1", "participants": []any{"Alice"}})
	a := artifact(map[string]any{"id": "a1", "metadata": map[string]any{"participants": []any{"Bob", "Olga"}}})

	assert.Nil(t, NewParticipantMatcher(nil, ParticipantOptions{}, utils.NopLogger()).Match(n, []models.Artifact{a}))

	zero := 0.0
	m := NewParticipantMatcher(nil, ParticipantOptions{NameThreshold: &zero}, utils.NopLogger())
	score := m.Match(n, []models.Artifact{a})
	require.NotNil(t, score)
	require.NotNil(t, score.Explanation.Participant)
	assert.Len(t, score.Explanation.Participant.Pairs, 1)
}

func TestContentSimilarity(t *testing.T) {
	m := NewContentMatcher(nil, ContentOptions{}, utils.NopLogger())

	assert.InDelta(t, 1.0, m.Similarity("Team Sync", "Meeting: Team Sync"), 1e-9)
	assert.Less(t, m.Similarity("Budget Review Q3", "Team Sync"), 0.4)

	score := m.Match(
		notice(map[string]any{"id": "n1", "title": "Weekly Team Sync"}),
		[]models.Artifact{
			artifact(map[string]any{"id": "a1", "title": "Quarterly Budget Planning"}),
			artifact(map[string]any{"id": "a2", "title": "Team Sync"}),
		},
	)
	require.NotNil(t, score)
	assert.Equal(t, "a2", score.ArtifactID)
	require.NotNil(t, score.Explanation.Content)
	assert.Equal(t, "sync", score.Explanation.Content.MeetingType)
	assert.Contains(t, score.Explanation.Content.SharedKeywords, "team")
	assert.GreaterOrEqual(t, score.Confidence, 0.85)
}

func TestContentMeetingTypeBonus(t *testing.T) {
	withBonus := NewContentMatcher(nil, ContentOptions{}, utils.NopLogger())
	without := NewContentMatcher(nil, ContentOptions{Blend: ContentBlend{Sequence: 0.3, Jaccard: 0.4, WeightedOverlap: 0.3}}, utils.NopLogger())

	a, b := "Retro", "Payments Retrospective"
	assert.InDelta(t, without.Similarity(a, b)+0.2, withBonus.Similarity(a, b), 1e-9)
}

func TestContentNoCandidate(t *testing.T) {
	m := NewContentMatcher(nil, ContentOptions{}, utils.NopLogger())
	artifacts := []models.Artifact{artifact(map[string]any{"id": "a1", "title": "Hiring Pipeline Review"})}

	assert.Nil(t, m.Match(notice(map[string]any{"id": "n1", "title": "Marketing Offsite"}), artifacts))
	assert.Nil(t, m.Match(notice(map[string]any{"id": "n2"}), artifacts))
}

func TestThresholdsBand(t *testing.T) {
	th := DefaultContentThresholds()
	assert.Equal(t, models.BandPerfect, th.Band(0.95))
	assert.Equal(t, models.BandHigh, th.Band(0.8))
	assert.Equal(t, models.BandMedium, th.Band(0.6))
	assert.Equal(t, models.BandLow, th.Band(0.4))
	assert.Equal(t, models.BandNone, th.Band(0.39))
}

func TestSimilarityPrimitives(t *testing.T) {
	assert.InDelta(t, 1.0, SequenceRatio("", ""), 1e-9)
	assert.InDelta(t, 0.0, SequenceRatio("abc", ""), 1e-9)
	assert.InDelta(t, 0.75, SequenceRatio("abcd", "bcde"), 1e-9)
	assert.InDelta(t, 0.75, SequenceRatio("café", "cafe"), 1e-9)

	assert.InDelta(t, 0.0, Jaccard(nil, nil), 1e-9)
	assert.InDelta(t, 1.0/3, Jaccard([]string{"a", "b"}, []string{"b", "c"}), 1e-9)

	assert.InDelta(t, 0.5, WeightedOverlap(map[string]float64{"a": 2}, map[string]float64{"a": 1}), 1e-9)
	assert.InDelta(t, 0.0, WeightedOverlap(nil, nil), 1e-9)
}
