package processing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tono-megu/ai-video-gen/models"
)

type stubGen struct {
	response string
	err      error
}

func (s *stubGen) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return s.response, s.err
}

func TestMockScriptIsDeterministic(t *testing.T) {
	a := MockScript("Goroutines", 180)
	b := MockScript("Goroutines", 180)
	assert.Equal(t, a, b)

	require.Len(t, a.Sections, 5)
	assert.Equal(t, models.SectionTitle, a.Sections[0].Type)
	assert.Equal(t, models.SectionSummary, a.Sections[4].Type)
	assert.Contains(t, a.Title, "Goroutines")
}

func TestMockScriptDefaultsTargetDuration(t *testing.T) {
	script := MockScript("SQL", 0)
	// 180s default target: the slide section gets 20% of it.
	assert.Equal(t, float64(36), script.Sections[1].Duration)
}

func TestGenerateScriptWithoutGenerator(t *testing.T) {
	script, mode, err := GenerateScript(context.Background(), nil, "", "Docker", 120)
	require.NoError(t, err)
	assert.Equal(t, "mock", mode)
	assert.Equal(t, MockScript("Docker", 120), script)
}

func TestGenerateScriptParsesFencedResponse(t *testing.T) {
	gen := &stubGen{response: "Here you go:\n```json\n" + `{
  "title": "Intro to Redis",
  "description": "Caching basics.",
  "sections": [
    {"type": "title", "duration": 5, "narration": "Welcome", "visual_spec": {"title": "Intro to Redis"}}
  ]
}` + "\n```"}

	script, mode, err := GenerateScript(context.Background(), gen, "", "Redis", 60)
	require.NoError(t, err)
	assert.Equal(t, "generated", mode)
	assert.Equal(t, "Intro to Redis", script.Title)
	require.Len(t, script.Sections, 1)
	assert.Equal(t, "Intro to Redis", script.Sections[0].VisualSpec["title"])
}

func TestGenerateScriptFallsBackOnError(t *testing.T) {
	gen := &stubGen{err: errors.New("timeout")}

	script, mode, err := GenerateScript(context.Background(), gen, "", "Kafka", 90)
	require.NoError(t, err)
	assert.Equal(t, "mock", mode)
	assert.Equal(t, MockScript("Kafka", 90), script)
}

func TestGenerateScriptFallsBackOnUnparseableResponse(t *testing.T) {
	gen := &stubGen{response: "Sorry, I cannot write that script."}

	script, mode, err := GenerateScript(context.Background(), gen, "", "Kafka", 90)
	require.NoError(t, err)
	assert.Equal(t, "mock", mode)
	require.NotNil(t, script)
	assert.Len(t, script.Sections, 5)
}

func TestParseScriptRejectsEmptySections(t *testing.T) {
	_, err := parseScript(`{"title": "x", "sections": []}`)
	assert.Error(t, err)
}
