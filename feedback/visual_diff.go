package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/tono-megu/ai-video-gen/generation"
)

// VisualChange is one observed difference between a generated slide and the
// user's edit of it.
type VisualChange struct {
	Aspect     string `json:"aspect"`
	Before     string `json:"before"`
	After      string `json:"after"`
	Preference string `json:"preference"`
}

// VisualDiffResult is the transient outcome of comparing two slide images.
// It is not persisted on its own; callers fold it into a CorrectionEvent.
type VisualDiffResult struct {
	Changes           []VisualChange `json:"changes"`
	OverallPreference string         `json:"overall_preference"`
}

// VisualDiffAnalyzer compares a generated slide with the user's edited
// version through a vision-capable generation service. Without a configured
// service, or when the service fails, it substitutes a fixed placeholder
// result instead of erroring.
type VisualDiffAnalyzer struct {
	vision generation.VisionComparer
}

// NewVisualDiffAnalyzer creates an analyzer backed by vision. Pass nil for
// mock mode.
func NewVisualDiffAnalyzer(vision generation.VisionComparer) *VisualDiffAnalyzer {
	return &VisualDiffAnalyzer{vision: vision}
}

// AnalyzeDiff compares the two images, given as data URLs or storage URLs.
func (a *VisualDiffAnalyzer) AnalyzeDiff(ctx context.Context, originalImage, editedImage string) *VisualDiffResult {
	if a.vision == nil {
		return mockDiffResult()
	}

	text, err := a.vision.Compare(ctx, originalImage, editedImage)
	if err != nil {
		log.Printf("Visual diff degraded to mock output: %v", err)
		return mockDiffResult()
	}

	result, err := parseDiffResult(text)
	if err != nil {
		log.Printf("Visual diff response unparseable, using mock output: %v", err)
		return mockDiffResult()
	}
	return result
}

func parseDiffResult(text string) (*VisualDiffResult, error) {
	payload, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var result VisualDiffResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to parse visual diff response: %w", err)
	}
	return &result, nil
}

// extractJSONObject mirrors extractJSONArray for object payloads.
func extractJSONObject(text string) (string, error) {
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+len("```"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return strings.TrimSpace(text[start : end+1]), nil
}

func mockDiffResult() *VisualDiffResult {
	return &VisualDiffResult{
		Changes: []VisualChange{
			{
				Aspect:     "color scheme",
				Before:     "light background",
				After:      "dark background",
				Preference: "prefers dark backgrounds for code walkthroughs",
			},
			{
				Aspect:     "layout",
				Before:     "centered",
				After:      "left-aligned",
				Preference: "prefers left-aligned text",
			},
		},
		OverallPreference: "leans toward muted colors and simple layouts",
	}
}
