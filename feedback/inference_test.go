package feedback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tono-megu/ai-video-gen/models"
)

func corrections(n int) []models.CorrectionEvent {
	events := make([]models.CorrectionEvent, n)
	for i := range events {
		events[i] = models.CorrectionEvent{
			ID:        uint(i + 1),
			ProjectID: 1,
			Stage:     models.StageImage,
			Category:  models.CategoryStyle,
			FieldPath: "slide_image",
		}
	}
	return events
}

func TestInferEmptyBatch(t *testing.T) {
	engine := NewInferenceEngine(nil)
	prefs, mode := engine.Infer(context.Background(), nil)
	assert.Nil(t, prefs)
	assert.Equal(t, ModeMock, mode)
}

func TestInferMockConfidenceScalesWithCount(t *testing.T) {
	engine := NewInferenceEngine(nil)
	ctx := context.Background()

	// Five corrections: 0.3 + 0.1*5 = 0.8 for the first archetype, 0.64 for
	// the second.
	prefs, mode := engine.Infer(ctx, corrections(5))
	assert.Equal(t, ModeMock, mode)
	require.Len(t, prefs, 2)
	assert.InDelta(t, 0.8, prefs[0].Confidence, 1e-9)
	assert.InDelta(t, 0.64, prefs[1].Confidence, 1e-9)
	assert.Equal(t, models.SectionCode, prefs[0].SectionType)
	assert.Equal(t, models.SectionTitle, prefs[1].SectionType)

	// The cap kicks in at ten corrections.
	capped, _ := engine.Infer(ctx, corrections(10))
	assert.InDelta(t, 0.9, capped[0].Confidence, 1e-9)

	// Same input, same output.
	again, _ := engine.Infer(ctx, corrections(5))
	assert.Equal(t, prefs, again)
}

func TestInferMockProvenanceCappedAtFive(t *testing.T) {
	engine := NewInferenceEngine(nil)

	prefs, _ := engine.Infer(context.Background(), corrections(7))
	require.Len(t, prefs, 2)
	assert.Equal(t, []uint{1, 2, 3, 4, 5}, []uint(prefs[0].SourceCorrections))
}

func TestInferParsesFencedResponse(t *testing.T) {
	gen := &fakeGen{response: "Here are the inferred preferences:\n```json\n" +
		`[
  {"description": "Use monospace fonts in diagrams", "category": "style", "scope": "section_type", "section_type": "diagram", "confidence": 0.7},
  {"description": "Shorter intros"}
]` + "\n```\nLet me know if you need more."}
	engine := NewInferenceEngine(gen)

	prefs, mode := engine.Infer(context.Background(), corrections(3))
	assert.Equal(t, ModeLLM, mode)
	require.Len(t, prefs, 2)

	assert.Equal(t, "Use monospace fonts in diagrams", prefs[0].Description)
	assert.Equal(t, models.ScopeSectionType, prefs[0].Scope)
	assert.Equal(t, 0.7, prefs[0].Confidence)

	// Missing fields fall back to style/global/0.5.
	assert.Equal(t, models.CategoryStyle, prefs[1].Category)
	assert.Equal(t, models.ScopeGlobal, prefs[1].Scope)
	assert.Equal(t, 0.5, prefs[1].Confidence)

	assert.Equal(t, []uint{1, 2, 3}, []uint(prefs[0].SourceCorrections))
}

func TestInferPromptIncludesCorrectionTranscript(t *testing.T) {
	gen := &fakeGen{response: `[]`}
	engine := NewInferenceEngine(gen)

	events := []models.CorrectionEvent{{
		ProjectID:    1,
		Stage:        models.StageScript,
		Category:     models.CategoryContent,
		FieldPath:    "narration",
		PriorValue:   "long winded intro",
		NewValue:     "short intro",
		UserFeedback: "get to the point faster",
	}}
	engine.Infer(context.Background(), events)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "- [script][content] narration:")
	assert.Contains(t, gen.prompts[0], "'long winded intro' -> 'short intro'")
	assert.Contains(t, gen.prompts[0], "(feedback: get to the point faster)")
}

func TestInferFallsBackOnGeneratorError(t *testing.T) {
	gen := &fakeGen{err: errors.New("rate limited")}
	engine := NewInferenceEngine(gen)

	prefs, mode := engine.Infer(context.Background(), corrections(2))
	assert.Equal(t, ModeMock, mode)
	require.Len(t, prefs, 2)
	assert.InDelta(t, 0.5, prefs[0].Confidence, 1e-9)
}

func TestInferFallsBackOnMalformedResponse(t *testing.T) {
	gen := &fakeGen{response: "I could not find any patterns worth noting."}
	engine := NewInferenceEngine(gen)

	prefs, mode := engine.Infer(context.Background(), corrections(2))
	assert.Equal(t, ModeMock, mode)
	require.Len(t, prefs, 2)
	assert.Equal(t, "Use a dark theme for code blocks", prefs[0].Description)
}

func TestExtractJSONArraySubstring(t *testing.T) {
	// No fences: first '[' to last ']' wins.
	payload, err := extractJSONArray(`The result is [{"description": "x"}] as requested.`)
	require.NoError(t, err)
	assert.Equal(t, `[{"description": "x"}]`, payload)

	_, err = extractJSONArray("no array here")
	assert.Error(t, err)
}
