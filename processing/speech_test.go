package processing

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeechServiceMockModeWithoutKey(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "")
	svc := NewSpeechService()

	assert.False(t, svc.Available())

	audio, err := svc.GenerateSpeech(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Nil(t, audio)
}

func TestVoicesFallBackToMockList(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "")
	svc := NewSpeechService()

	voices := svc.Voices(context.Background())
	require.Len(t, voices, 3)
	assert.Equal(t, "mock_male_1", voices[0].VoiceID)
}

func TestEstimateDurationFloorsAtOneSecond(t *testing.T) {
	svc := NewSpeechService()

	assert.Equal(t, 1.0, svc.EstimateDuration(""))
	assert.Equal(t, 1.0, svc.EstimateDuration("hi"))

	// Sixty characters at six characters per second.
	text := strings.Repeat("a", 60)
	assert.InDelta(t, 10.0, svc.EstimateDuration(text), 1e-9)

	// Rune count, not byte count.
	assert.InDelta(t, 2.0, svc.EstimateDuration(strings.Repeat("あ", 12)), 1e-9)
}

func TestVoiceIDFromEnvironment(t *testing.T) {
	t.Setenv("ELEVENLABS_VOICE_ID", "custom_voice")
	svc := NewSpeechService()
	assert.Equal(t, "custom_voice", svc.voiceID)

	t.Setenv("ELEVENLABS_VOICE_ID", "")
	svc = NewSpeechService()
	assert.Equal(t, defaultVoiceID, svc.voiceID)
}
