package feedback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tono-megu/ai-video-gen/models"
)

func TestEvolveRecentNoCorrections(t *testing.T) {
	db := newTestDB(t)
	result, err := EvolveRecent(context.Background(),
		NewCorrectionStore(db), NewPreferenceStore(db), NewInferenceEngine(nil), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, result.CorrectionsAnalyzed)
	assert.Empty(t, result.Created)
	assert.Equal(t, ModeMock, result.Mode)
}

func TestEvolveRecentCreatesMockPreferences(t *testing.T) {
	db := newTestDB(t)
	corrections := NewCorrectionStore(db)
	prefs := NewPreferenceStore(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := corrections.Record(ctx, &models.CorrectionEvent{
			ProjectID: 1, Stage: models.StageImage, Category: models.CategoryStyle,
		})
		require.NoError(t, err)
	}

	result, err := EvolveRecent(ctx, corrections, prefs, NewInferenceEngine(nil), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, result.CorrectionsAnalyzed)
	assert.Equal(t, ModeMock, result.Mode)
	require.Len(t, result.Created, 2)
	assert.InDelta(t, 0.6, result.Created[0].Confidence, 1e-9)

	// The created preferences are persisted and active.
	stored, err := prefs.Query(ctx, PreferenceQuery{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestEvolveRecentSkipsInvalidCandidates(t *testing.T) {
	db := newTestDB(t)
	corrections := NewCorrectionStore(db)
	prefs := NewPreferenceStore(db)
	ctx := context.Background()

	_, err := corrections.Record(ctx, &models.CorrectionEvent{ProjectID: 1})
	require.NoError(t, err)

	// One candidate claims project scope without a project id, one is fine.
	gen := &fakeGen{response: `[
  {"description": "broken scope", "scope": "project", "confidence": 0.7},
  {"description": "valid global", "confidence": 0.7}
]`}

	result, err := EvolveRecent(ctx, corrections, prefs, NewInferenceEngine(gen), 0)
	require.NoError(t, err)
	assert.Equal(t, ModeLLM, result.Mode)
	require.Len(t, result.Created, 1)
	assert.Equal(t, "valid global", result.Created[0].Description)
}
