package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/meeting-correlator/internal/models"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

func TestDefaultProfilesAreValid(t *testing.T) {
	require.NoError(t, DefaultProfiles().Validate())
}

func TestWeightsValidate(t *testing.T) {
	assert.True(t, utils.IsInvalidInput(Weights{Temporal: 0.5, Participant: 0.5, Content: 0.5}.Validate()))
	assert.True(t, utils.IsInvalidInput(Weights{Temporal: 1.5, Participant: -0.5}.Validate()))
	assert.True(t, utils.IsInvalidInput(Weights{Temporal: math.NaN(), Content: 1}.Validate()))
	assert.NoError(t, Weights{Temporal: 1}.Validate())
}

func TestFuseWeighted(t *testing.T) {
	c := models.ComponentScores{Temporal: 0.95, Participant: 0.7}

	got, category := Fuse(models.StrategyTemporalFirst, c, DefaultProfiles())
	assert.InDelta(t, 0.5*0.95+0.3*0.7, got, 1e-9)
	assert.Equal(t, models.CategoryComposite, category)

	got, _ = Fuse(models.StrategyContentFirst, c, DefaultProfiles())
	assert.InDelta(t, 0.2*0.95+0.3*0.7, got, 1e-9)
}

func TestRoundConfidenceIsExactAtThreshold(t *testing.T) {
	c := models.ComponentScores{Temporal: 0.95, Participant: 0.95, Content: 0.95}
	raw, _ := Fuse(models.StrategyBalanced, c, DefaultProfiles())
	assert.Equal(t, 0.95, roundConfidence(raw))

	assert.Equal(t, 0.6, roundConfidence(0.6000000004))
	below := roundConfidence(0.5999994)
	assert.Equal(t, 0.599999, below)
	assert.Less(t, below, 0.6)
}

func TestFuseAdaptive(t *testing.T) {
	got, category := Fuse(models.StrategyAdaptive, models.ComponentScores{Participant: 0.85, Content: 0.7}, nil)
	assert.InDelta(t, 0.85, got, 1e-9)
	assert.Equal(t, models.CategoryParticipant, category)

	_, category = Fuse(models.StrategyAdaptive, models.ComponentScores{Temporal: 0.7, Participant: 0.7, Content: 0.7}, nil)
	assert.Equal(t, models.CategoryTemporal, category)

	_, category = Fuse(models.StrategyAdaptive, models.ComponentScores{Participant: 0.5, Content: 0.5}, nil)
	assert.Equal(t, models.CategoryParticipant, category)
}

func TestNewCorrelatorRejectsBadProfile(t *testing.T) {
	_, err := NewCorrelator(utils.NopLogger(), nil, nil, nil, CorrelatorOptions{
		Profiles: Profiles{models.StrategyBalanced: {Temporal: 0.9, Participant: 0.9}},
	})
	require.Error(t, err)
	assert.True(t, utils.IsInvalidInput(err))
}
