package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/tono-megu/ai-video-gen/generation"
	"github.com/tono-megu/ai-video-gen/models"
)

// inferencePromptTemplate asks the LLM to turn a correction transcript into a
// JSON array of preference candidates. Confidence calibration is guidance for
// the model, not something enforced arithmetically on its output.
const inferencePromptTemplate = `The following is a log of corrections a user made to generated educational
video content. Infer the user's preferences from the patterns in these
corrections.

Corrections:
%s

Output a JSON array in this exact form:
[
  {
    "description": "a specific statement of the preference",
    "category": "style" | "structural" | "content" | "technical",
    "scope": "global" | "section_type" | "project",
    "section_type": "title" | "slide" | "code" | "summary" | null,
    "confidence": 0.0-1.0
  }
]

Notes:
- Repeated corrections of the same pattern raise confidence
- One or two isolated corrections warrant confidence around 0.3-0.5
- Five or more consistent corrections warrant confidence 0.8 or higher`

// InferenceEngine turns a batch of correction events into scored preference
// candidates. With no generator configured it runs in mock mode, producing a
// deterministic result that is a pure function of the correction count.
type InferenceEngine struct {
	gen generation.TextGenerator
}

// NewInferenceEngine creates an engine backed by gen. Pass nil for mock mode.
func NewInferenceEngine(gen generation.TextGenerator) *InferenceEngine {
	return &InferenceEngine{gen: gen}
}

// Inference modes reported alongside results, so callers can expose an
// explanatory status instead of failing when the service degrades.
const (
	ModeLLM  = "llm"
	ModeMock = "mock"
)

// Infer proposes preference candidates from a correction batch. The
// candidates are not persisted. An LLM failure or unparseable response is not
// an error: the engine degrades to the deterministic fallback instead, since
// a plausible answer is preferred over aborting the pipeline. The returned
// mode says which path produced the result.
func (e *InferenceEngine) Infer(ctx context.Context, corrections []models.CorrectionEvent) ([]models.Preference, string) {
	if len(corrections) == 0 {
		return nil, ModeMock
	}
	if e.gen == nil {
		return e.mockInfer(corrections), ModeMock
	}

	prefs, err := e.llmInfer(ctx, corrections)
	if err != nil {
		log.Printf("Preference inference degraded to mock output: %v", err)
		return e.mockInfer(corrections), ModeMock
	}
	return prefs, ModeLLM
}

func (e *InferenceEngine) llmInfer(ctx context.Context, corrections []models.CorrectionEvent) ([]models.Preference, error) {
	prompt := fmt.Sprintf(inferencePromptTemplate, formatCorrections(corrections))

	text, err := e.gen.Generate(ctx, prompt, "")
	if err != nil {
		return nil, err
	}
	return parsePreferences(text, corrections)
}

// formatCorrections renders the batch as a one-line-per-correction transcript.
func formatCorrections(corrections []models.CorrectionEvent) string {
	var b strings.Builder
	for i, c := range corrections {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- [%s][%s] %s:", c.Stage, c.Category, c.FieldPath)
		if c.PriorValue != "" && c.NewValue != "" {
			fmt.Fprintf(&b, " '%s' -> '%s'", c.PriorValue, c.NewValue)
		}
		if c.UserFeedback != "" {
			fmt.Fprintf(&b, " (feedback: %s)", c.UserFeedback)
		}
		if c.VisualDiffDescription != "" {
			fmt.Fprintf(&b, " (visual diff: %s)", c.VisualDiffDescription)
		}
	}
	return b.String()
}

type inferredPreference struct {
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Scope       string  `json:"scope"`
	SectionType string  `json:"section_type"`
	Confidence  float64 `json:"confidence"`
}

// parsePreferences extracts the JSON array from the model's response and maps
// it onto preference candidates. Provenance is capped at five correction ids,
// taken in input order.
func parsePreferences(text string, corrections []models.CorrectionEvent) ([]models.Preference, error) {
	payload, err := extractJSONArray(text)
	if err != nil {
		return nil, err
	}

	var items []inferredPreference
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("failed to parse inference response: %w", err)
	}

	sourceIDs := sourceCorrectionIDs(corrections)

	prefs := make([]models.Preference, 0, len(items))
	for _, item := range items {
		if item.Category == "" {
			item.Category = models.CategoryStyle
		}
		if item.Scope == "" {
			item.Scope = models.ScopeGlobal
		}
		confidence := item.Confidence
		if confidence == 0 {
			confidence = 0.5
		}
		prefs = append(prefs, models.Preference{
			Description:       item.Description,
			Category:          item.Category,
			Scope:             item.Scope,
			SectionType:       item.SectionType,
			Confidence:        confidence,
			SourceCorrections: sourceIDs,
		})
	}
	return prefs, nil
}

// extractJSONArray tolerates JSON wrapped in fenced code blocks; failing
// that, it takes the first '[' to the last ']' substring.
func extractJSONArray(text string) (string, error) {
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

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON array found in response")
	}
	return strings.TrimSpace(text[start : end+1]), nil
}

func sourceCorrectionIDs(corrections []models.CorrectionEvent) []uint {
	var ids []uint
	for _, c := range corrections {
		if c.ID == 0 {
			continue
		}
		ids = append(ids, c.ID)
		if len(ids) == 5 {
			break
		}
	}
	return ids
}

// mockInfer is the deterministic fallback: confidence is a pure function of
// the correction count, and the output is two fixed style archetypes.
func (e *InferenceEngine) mockInfer(corrections []models.CorrectionEvent) []models.Preference {
	confidence := math.Min(0.9, 0.3+0.1*float64(len(corrections)))
	sourceIDs := sourceCorrectionIDs(corrections)

	return []models.Preference{
		{
			Description:       "Use a dark theme for code blocks",
			Category:          models.CategoryStyle,
			Scope:             models.ScopeSectionType,
			SectionType:       models.SectionCode,
			Confidence:        confidence,
			SourceCorrections: sourceIDs,
		},
		{
			Description:       "Prefer simple, uncluttered title slides",
			Category:          models.CategoryStyle,
			Scope:             models.ScopeSectionType,
			SectionType:       models.SectionTitle,
			Confidence:        confidence * 0.8,
			SourceCorrections: sourceIDs,
		},
	}
}
