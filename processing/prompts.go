package processing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tono-megu/ai-video-gen/generation"
	"github.com/tono-megu/ai-video-gen/models"
)

// PromptGeneration is the structured output for the image-prompt LLM call
type PromptGeneration struct {
	Prompt string `json:"prompt" jsonschema_description:"The high-quality text-to-image generation prompt for this slide."`
}

var promptGenerationSchema = GenerateSchema[PromptGeneration]()

// GenerateSectionPrompt creates a text-to-image generation prompt for one
// section, for use by image-capable generation backends. Sections that
// already render as plain HTML slides don't need one; callers decide which
// sections to enrich. Returns an empty prompt in mock mode.
func GenerateSectionPrompt(ctx context.Context, client *generation.OpenAIClient, theme string, section models.Section) (string, error) {
	if client == nil {
		return "", nil
	}

	var spec map[string]interface{}
	if len(section.VisualSpec) > 0 {
		if err := json.Unmarshal(section.VisualSpec, &spec); err != nil {
			return "", fmt.Errorf("invalid visual spec for section %d: %w", section.ID, err)
		}
	}

	description := ""
	if d, ok := spec["description"].(string); ok {
		description = d
	} else if h, ok := spec["heading"].(string); ok {
		description = h
	}

	promptBase := fmt.Sprintf(`Generate a single, hyper-detailed, high-quality text-to-image prompt for a modern AI image model.
The image is a %s slide in an educational video about "%s".
The slide content is: "%s".
The prompt must produce a clean 16:9 slide with consistent styling and a restrained, legible color palette.
The prompt must be a single, continuous text block.`,
		section.Type, theme, description)

	raw, err := client.GenerateStructured(ctx, promptBase, "slide_prompt", promptGenerationSchema)
	if err != nil {
		return "", fmt.Errorf("failed to generate prompt for section %d: %w", section.SectionIndex, err)
	}

	var resp PromptGeneration
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return "", fmt.Errorf("failed to parse prompt response: %w", err)
	}
	return resp.Prompt, nil
}
