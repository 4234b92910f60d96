package feedback

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tono-megu/ai-video-gen/models"
)

// PromptEvolver mutates base generation prompts by appending qualifying
// preference directives. Only preferences at or above SilentApplyThreshold
// are applied automatically; returning the base prompt unchanged is a common,
// valid outcome.
type PromptEvolver struct {
	prefs *PreferenceStore
}

func NewPromptEvolver(prefs *PreferenceStore) *PromptEvolver {
	return &PromptEvolver{prefs: prefs}
}

// EvolveScriptPrompt applies all high-confidence preferences to a script
// generation prompt, regardless of category.
func (e *PromptEvolver) EvolveScriptPrompt(ctx context.Context, basePrompt, sectionType string, projectID *uint) (string, error) {
	return e.evolve(ctx, basePrompt, sectionType, projectID, nil,
		"## User preferences (auto-applied)\nReflect the following style and structure preferences:")
}

// EvolveVisualPrompt applies style preferences to a visual generation prompt.
func (e *PromptEvolver) EvolveVisualPrompt(ctx context.Context, basePrompt, sectionType string, projectID *uint) (string, error) {
	return e.evolve(ctx, basePrompt, sectionType, projectID,
		[]string{models.CategoryStyle},
		"Style preferences:")
}

// EvolveNarrationPrompt applies content and style preferences to a narration
// generation prompt.
func (e *PromptEvolver) EvolveNarrationPrompt(ctx context.Context, basePrompt string, projectID *uint) (string, error) {
	return e.evolve(ctx, basePrompt, "", projectID,
		[]string{models.CategoryContent, models.CategoryStyle},
		"Tone and style preferences:")
}

func (e *PromptEvolver) evolve(ctx context.Context, basePrompt, sectionType string, projectID *uint, categories []string, header string) (string, error) {
	prefs, err := e.prefs.Applicable(ctx, sectionType, projectID)
	if err != nil {
		return "", err
	}

	var qualifying []models.Preference
	for _, pref := range prefs {
		if pref.Confidence < SilentApplyThreshold {
			continue
		}
		if len(categories) > 0 && !containsString(categories, pref.Category) {
			continue
		}
		qualifying = append(qualifying, pref)
	}

	if len(qualifying) == 0 {
		return basePrompt, nil
	}

	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\n")
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(formatPreferenceInstructions(qualifying))
	b.WriteString("\n")
	return b.String(), nil
}

// formatPreferenceInstructions renders each preference as one directive line.
// The bracketed section type is omitted when the preference has none.
func formatPreferenceInstructions(prefs []models.Preference) string {
	lines := make([]string, 0, len(prefs))
	for _, pref := range prefs {
		if pref.SectionType != "" {
			lines = append(lines, fmt.Sprintf("- [%s] %s (confidence: %.0f%%)",
				pref.SectionType, pref.Description, pref.Confidence*100))
		} else {
			lines = append(lines, fmt.Sprintf("- %s (confidence: %.0f%%)",
				pref.Description, pref.Confidence*100))
		}
	}
	return strings.Join(lines, "\n")
}

// Suggestion is a preference in the suggest band, surfaced for human review
// instead of being auto-applied.
type Suggestion struct {
	PreferenceID uint    `json:"preference_id"`
	Description  string  `json:"description"`
	Confidence   float64 `json:"confidence"`
	Category     string  `json:"category"`
	Action       string  `json:"action"`
}

// Suggest returns the applicable preferences whose confidence sits in
// [SuggestThreshold, SilentApplyThreshold).
func (e *PromptEvolver) Suggest(ctx context.Context, projectID *uint) ([]Suggestion, error) {
	prefs, err := e.prefs.Applicable(ctx, "", projectID)
	if err != nil {
		return nil, err
	}

	var suggestions []Suggestion
	for _, pref := range prefs {
		if pref.Confidence < SuggestThreshold || pref.Confidence >= SilentApplyThreshold {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			PreferenceID: pref.ID,
			Description:  pref.Description,
			Confidence:   pref.Confidence,
			Category:     pref.Category,
			Action:       fmt.Sprintf("Add this preference to the prompt: %s", pref.Description),
		})
	}
	return suggestions, nil
}

// PersonalizedSystemPrompt appends a user-profile preamble built from the
// profile's high-confidence preferences, capped at ten entries. The base
// prompt is returned unchanged when no high-confidence preference exists.
func (e *PromptEvolver) PersonalizedSystemPrompt(ctx context.Context, baseSystemPrompt string) (string, error) {
	profile, err := e.prefs.Profile(ctx)
	if err != nil {
		return "", err
	}
	if len(profile.HighConfidence) == 0 {
		return baseSystemPrompt, nil
	}

	var b strings.Builder
	b.WriteString(baseSystemPrompt)
	b.WriteString("\n\n## User profile\nThis user has the following preferences:\n")
	for i, entry := range profile.HighConfidence {
		if i == 10 {
			break
		}
		fmt.Fprintf(&b, "- %s\n", entry.Description)
	}
	return b.String(), nil
}

// EvolutionRecord is one audit entry of a project's preference history.
type EvolutionRecord struct {
	PreferenceID  uint      `json:"preference_id"`
	Description   string    `json:"description"`
	PromptVersion int       `json:"prompt_version"`
	Confidence    float64   `json:"confidence"`
	CreatedAt     time.Time `json:"created_at"`
}

// EvolutionHistory lists a project's preferences with their prompt versions,
// newest first. Versions track audit history only; they are never used for
// conflict resolution.
func (e *PromptEvolver) EvolutionHistory(ctx context.Context, projectID uint) ([]EvolutionRecord, error) {
	prefs, err := e.prefs.Query(ctx, PreferenceQuery{IncludeInactive: true})
	if err != nil {
		return nil, err
	}

	var history []EvolutionRecord
	for _, pref := range prefs {
		if pref.ProjectID == nil || *pref.ProjectID != projectID {
			continue
		}
		history = append(history, EvolutionRecord{
			PreferenceID:  pref.ID,
			Description:   pref.Description,
			PromptVersion: pref.PromptVersion,
			Confidence:    pref.Confidence,
			CreatedAt:     pref.CreatedAt,
		})
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].CreatedAt.After(history[j].CreatedAt)
	})
	return history, nil
}

func containsString(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
