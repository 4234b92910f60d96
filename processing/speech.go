package processing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

const defaultVoiceID = "21m00Tcm4TlvDq8ikWAM" // Rachel

// SpeechService synthesizes narration audio through the ElevenLabs REST API.
// With no API key configured it runs in mock mode: synthesis returns no audio
// and callers fall back to duration estimation.
type SpeechService struct {
	apiKey  string
	voiceID string
	baseURL string
	client  *http.Client
}

// NewSpeechService reads ELEVENLABS_API_KEY and ELEVENLABS_VOICE_ID from the
// environment.
func NewSpeechService() *SpeechService {
	voiceID := os.Getenv("ELEVENLABS_VOICE_ID")
	if voiceID == "" {
		voiceID = defaultVoiceID
	}
	return &SpeechService{
		apiKey:  os.Getenv("ELEVENLABS_API_KEY"),
		voiceID: voiceID,
		baseURL: "https://api.elevenlabs.io/v1",
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Available reports whether an API key is configured.
func (s *SpeechService) Available() bool {
	return s.apiKey != ""
}

// GenerateSpeech synthesizes text into MP3 audio. In mock mode it returns
// (nil, nil); a failed API call is logged and also yields nil audio rather
// than an error, since narration degrades to estimated durations.
func (s *SpeechService) GenerateSpeech(ctx context.Context, text string) ([]byte, error) {
	if !s.Available() {
		return nil, nil
	}

	body, err := json.Marshal(map[string]interface{}{
		"text":     text,
		"model_id": "eleven_multilingual_v2",
		"voice_settings": map[string]interface{}{
			"stability":         0.5,
			"similarity_boost":  0.75,
			"style":             0.0,
			"use_speaker_boost": true,
		},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", s.baseURL, s.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("Speech generation failed: %v", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Speech generation failed with status %d", resp.StatusCode)
		return nil, nil
	}

	return io.ReadAll(resp.Body)
}

// Voice describes one synthesis voice.
type Voice struct {
	VoiceID  string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Labels   map[string]string `json:"labels"`
}

// Voices lists the available voices, falling back to a fixed mock list when
// the API is unavailable.
func (s *SpeechService) Voices(ctx context.Context) []Voice {
	if !s.Available() {
		return mockVoices()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/voices", nil)
	if err != nil {
		return mockVoices()
	}
	req.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("Failed to list voices: %v", err)
		return mockVoices()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Failed to list voices: status %d", resp.StatusCode)
		return mockVoices()
	}

	var payload struct {
		Voices []Voice `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Printf("Failed to decode voices response: %v", err)
		return mockVoices()
	}
	return payload.Voices
}

func mockVoices() []Voice {
	return []Voice{
		{VoiceID: "mock_male_1", Name: "Tom (male)", Category: "generated", Labels: map[string]string{"gender": "male"}},
		{VoiceID: "mock_female_1", Name: "Hana (female)", Category: "generated", Labels: map[string]string{"gender": "female"}},
		{VoiceID: "mock_neutral_1", Name: "Announcer", Category: "professional", Labels: map[string]string{"gender": "neutral"}},
	}
}

// EstimateDuration approximates spoken duration in seconds. Roughly six
// characters per second, mixed-language average; never below one second.
func (s *SpeechService) EstimateDuration(text string) float64 {
	chars := len([]rune(text))
	d := float64(chars) / 6.0
	if d < 1.0 {
		return 1.0
	}
	return d
}
