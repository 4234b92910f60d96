package feedback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tono-megu/ai-video-gen/models"
)

func newEvolver(t *testing.T) (*PromptEvolver, *PreferenceStore) {
	store := NewPreferenceStore(newTestDB(t))
	return NewPromptEvolver(store), store
}

func TestEvolveNoQualifyingPreferencesIsNoOp(t *testing.T) {
	evolver, store := newEvolver(t)
	ctx := context.Background()

	const base = "Write a video script about the given theme."

	// Empty preference set.
	result, err := evolver.EvolveScriptPrompt(ctx, base, "", nil)
	require.NoError(t, err)
	assert.Equal(t, base, result)

	// One preference just below the apply threshold still changes nothing.
	_, err = store.Create(ctx, &models.Preference{
		Description: "almost qualifying", Confidence: 0.84,
	})
	require.NoError(t, err)

	result, err = evolver.EvolveScriptPrompt(ctx, base, "", nil)
	require.NoError(t, err)
	assert.Equal(t, base, result)
}

func TestEvolveAppendsDirectivesDeterministically(t *testing.T) {
	evolver, store := newEvolver(t)
	ctx := context.Background()

	_, err := store.Create(ctx, &models.Preference{
		Description: "Use a dark theme for code blocks",
		Category:    models.CategoryStyle,
		Scope:       models.ScopeSectionType,
		SectionType: models.SectionCode,
		Confidence:  0.9,
	})
	require.NoError(t, err)
	_, err = store.Create(ctx, &models.Preference{
		Description: "Open with a concrete example",
		Category:    models.CategoryStructural,
		Confidence:  0.88,
	})
	require.NoError(t, err)

	const base = "Write a video script."
	result, err := evolver.EvolveScriptPrompt(ctx, base, models.SectionCode, nil)
	require.NoError(t, err)
	assert.Contains(t, result, base)
	assert.Contains(t, result, "## User preferences (auto-applied)")
	assert.Contains(t, result, "- [code] Use a dark theme for code blocks (confidence: 90%)")
	assert.Contains(t, result, "- Open with a concrete example (confidence: 88%)")

	again, err := evolver.EvolveScriptPrompt(ctx, base, models.SectionCode, nil)
	require.NoError(t, err)
	assert.Equal(t, result, again)
}

func TestEvolveVisualPromptFiltersToStyle(t *testing.T) {
	evolver, store := newEvolver(t)
	ctx := context.Background()

	_, err := store.Create(ctx, &models.Preference{
		Description: "Muted color palettes", Category: models.CategoryStyle, Confidence: 0.9,
	})
	require.NoError(t, err)
	_, err = store.Create(ctx, &models.Preference{
		Description: "Cover edge cases explicitly", Category: models.CategoryContent, Confidence: 0.95,
	})
	require.NoError(t, err)

	result, err := evolver.EvolveVisualPrompt(ctx, "Render a slide.", models.SectionSlide, nil)
	require.NoError(t, err)
	assert.Contains(t, result, "Style preferences:")
	assert.Contains(t, result, "Muted color palettes")
	assert.NotContains(t, result, "Cover edge cases explicitly")
}

func TestEvolveNarrationPromptTakesContentAndStyle(t *testing.T) {
	evolver, store := newEvolver(t)
	ctx := context.Background()

	_, err := store.Create(ctx, &models.Preference{
		Description: "Conversational tone", Category: models.CategoryStyle, Confidence: 0.9,
	})
	require.NoError(t, err)
	_, err = store.Create(ctx, &models.Preference{
		Description: "Mention prerequisites up front", Category: models.CategoryContent, Confidence: 0.86,
	})
	require.NoError(t, err)
	_, err = store.Create(ctx, &models.Preference{
		Description: "Pin dependency versions", Category: models.CategoryTechnical, Confidence: 0.99,
	})
	require.NoError(t, err)

	result, err := evolver.EvolveNarrationPrompt(ctx, "Narrate this section.", nil)
	require.NoError(t, err)
	assert.Contains(t, result, "Tone and style preferences:")
	assert.Contains(t, result, "Conversational tone")
	assert.Contains(t, result, "Mention prerequisites up front")
	assert.NotContains(t, result, "Pin dependency versions")
}

func TestSuggestBand(t *testing.T) {
	evolver, store := newEvolver(t)
	ctx := context.Background()

	for _, confidence := range []float64{0.3, 0.6, 0.85, 0.9} {
		_, err := store.Create(ctx, &models.Preference{
			Description: "pref", Category: models.CategoryStyle, Confidence: confidence,
		})
		require.NoError(t, err)
	}

	suggestions, err := evolver.Suggest(ctx, nil)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, 0.6, suggestions[0].Confidence)
	assert.Equal(t, "Add this preference to the prompt: pref", suggestions[0].Action)
}

func TestPersonalizedSystemPrompt(t *testing.T) {
	evolver, store := newEvolver(t)
	ctx := context.Background()

	const base = "You are a scriptwriter."

	// No high-confidence preferences: unchanged.
	result, err := evolver.PersonalizedSystemPrompt(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, base, result)

	_, err = store.Create(ctx, &models.Preference{
		Description: "Dark themes everywhere", Category: models.CategoryStyle, Confidence: 0.9,
	})
	require.NoError(t, err)
	_, err = store.Create(ctx, &models.Preference{
		Description: "only a suggestion", Category: models.CategoryStyle, Confidence: 0.6,
	})
	require.NoError(t, err)

	result, err = evolver.PersonalizedSystemPrompt(ctx, base)
	require.NoError(t, err)
	assert.Contains(t, result, base)
	assert.Contains(t, result, "## User profile")
	assert.Contains(t, result, "- Dark themes everywhere")
	assert.NotContains(t, result, "only a suggestion")
}

func TestEvolutionHistoryNewestFirstPerProject(t *testing.T) {
	evolver, store := newEvolver(t)
	ctx := context.Background()

	first, err := store.Create(ctx, &models.Preference{
		Description: "first", Scope: models.ScopeProject, ProjectID: uintPtr(5), Confidence: 0.7,
	})
	require.NoError(t, err)
	second, err := store.Create(ctx, &models.Preference{
		Description: "second", Scope: models.ScopeProject, ProjectID: uintPtr(5), Confidence: 0.6,
	})
	require.NoError(t, err)
	_, err = store.Create(ctx, &models.Preference{
		Description: "other project", Scope: models.ScopeProject, ProjectID: uintPtr(6), Confidence: 0.9,
	})
	require.NoError(t, err)

	// Deactivated preferences stay in the audit trail.
	ok, err := store.Deactivate(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, ok)

	history, err := evolver.EvolutionHistory(ctx, 5)
	require.NoError(t, err)
	require.Len(t, history, 2)
	ids := []uint{history[0].PreferenceID, history[1].PreferenceID}
	assert.ElementsMatch(t, []uint{first.ID, second.ID}, ids)
	assert.False(t, history[0].CreatedAt.Before(history[1].CreatedAt))
}
