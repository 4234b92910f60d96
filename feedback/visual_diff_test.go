package feedback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeDiffMockWithoutVision(t *testing.T) {
	analyzer := NewVisualDiffAnalyzer(nil)

	result := analyzer.AnalyzeDiff(context.Background(), "data:image/png;base64,a", "data:image/png;base64,b")
	require.NotNil(t, result)
	require.Len(t, result.Changes, 2)
	assert.Equal(t, "color scheme", result.Changes[0].Aspect)
	assert.Equal(t, "leans toward muted colors and simple layouts", result.OverallPreference)
}

func TestAnalyzeDiffParsesFencedResponse(t *testing.T) {
	vision := &fakeVision{response: "```json\n" + `{
  "changes": [
    {"aspect": "typography", "before": "serif", "after": "sans-serif", "preference": "prefers sans-serif"}
  ],
  "overall_preference": "cleaner typography"
}` + "\n```"}
	analyzer := NewVisualDiffAnalyzer(vision)

	result := analyzer.AnalyzeDiff(context.Background(), "a", "b")
	require.NotNil(t, result)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, "typography", result.Changes[0].Aspect)
	assert.Equal(t, "cleaner typography", result.OverallPreference)
}

func TestAnalyzeDiffFallsBackOnError(t *testing.T) {
	analyzer := NewVisualDiffAnalyzer(&fakeVision{err: errors.New("vision unavailable")})

	result := analyzer.AnalyzeDiff(context.Background(), "a", "b")
	require.NotNil(t, result)
	assert.Equal(t, mockDiffResult(), result)
}

func TestAnalyzeDiffFallsBackOnUnparseableResponse(t *testing.T) {
	analyzer := NewVisualDiffAnalyzer(&fakeVision{response: "the images look pretty similar to me"})

	result := analyzer.AnalyzeDiff(context.Background(), "a", "b")
	require.NotNil(t, result)
	assert.Equal(t, mockDiffResult(), result)
}
