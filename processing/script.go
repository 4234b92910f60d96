package processing

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/tono-megu/ai-video-gen/generation"
	"github.com/tono-megu/ai-video-gen/models"
)

// ScriptSystemPrompt instructs the model to return the full video script as a
// single JSON object.
const ScriptSystemPrompt = `You are a scriptwriter for educational videos.
Write the script for an educational or tutorial video on the given theme.

Return the result as JSON in this form:
{
  "title": "video title",
  "description": "one or two sentences summarizing the video",
  "sections": [
    {
      "type": "title",
      "duration": 5,
      "narration": "narration for the title screen",
      "visual_spec": {"title": "title text", "subtitle": "subtitle"}
    },
    {
      "type": "slide",
      "duration": 30,
      "narration": "narration for this section...",
      "visual_spec": {"heading": "heading", "bullets": ["point 1", "point 2"]}
    },
    {
      "type": "code",
      "duration": 45,
      "narration": "explanation of the code...",
      "visual_spec": {"language": "python", "code": "print('Hello')"}
    },
    {
      "type": "summary",
      "duration": 10,
      "narration": "closing narration",
      "visual_spec": {"points": ["takeaway 1", "takeaway 2"]}
    }
  ]
}

Section types:
- title: title screen
- slide: bullet-point slide
- code: code display
- code_typing: code typing animation
- diagram: diagram
- summary: recap

Notes:
- duration is in seconds
- narration should read naturally when spoken aloud
- adjust the number of sections to match the target duration
- output JSON only, no commentary`

// Script is the parsed form of a generated video script.
type Script struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Sections    []ScriptSection `json:"sections"`
}

// ScriptSection is one section of a script. VisualSpec stays schemaless; its
// shape depends on the section type.
type ScriptSection struct {
	Type       string                 `json:"type"`
	Duration   float64                `json:"duration"`
	Narration  string                 `json:"narration"`
	VisualSpec map[string]interface{} `json:"visual_spec"`
}

// GenerateScript produces a script for the theme. With no generator
// configured, or when the call fails or returns unparseable output, it
// degrades to a deterministic mock script and reports mode "mock".
func GenerateScript(ctx context.Context, gen generation.TextGenerator, systemPrompt, theme string, durationTarget float64) (*Script, string, error) {
	if systemPrompt == "" {
		systemPrompt = ScriptSystemPrompt
	}
	if gen == nil {
		return MockScript(theme, durationTarget), "mock", nil
	}

	userPrompt := fmt.Sprintf("Theme: %s", theme)
	if durationTarget > 0 {
		userPrompt += fmt.Sprintf("\nTarget duration: %.0f seconds", durationTarget)
	}

	text, err := gen.Generate(ctx, userPrompt, systemPrompt)
	if err != nil {
		log.Printf("Script generation degraded to mock output: %v", err)
		return MockScript(theme, durationTarget), "mock", nil
	}

	script, err := parseScript(text)
	if err != nil {
		log.Printf("Script response unparseable, using mock output: %v", err)
		return MockScript(theme, durationTarget), "mock", nil
	}
	return script, "generated", nil
}

// parseScript tolerates JSON wrapped in fenced code blocks.
func parseScript(text string) (*Script, error) {
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

	var script Script
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &script); err != nil {
		return nil, fmt.Errorf("failed to parse script JSON: %w", err)
	}
	if len(script.Sections) == 0 {
		return nil, fmt.Errorf("script has no sections")
	}
	return &script, nil
}

// MockScript builds the deterministic fallback script used when no text
// generation service is available.
func MockScript(theme string, durationTarget float64) *Script {
	target := durationTarget
	if target <= 0 {
		target = 180
	}

	return &Script{
		Title:       fmt.Sprintf("Introduction to %s", theme),
		Description: fmt.Sprintf("A tutorial video covering the basics of %s.", theme),
		Sections: []ScriptSection{
			{
				Type:      models.SectionTitle,
				Duration:  5,
				Narration: fmt.Sprintf("Hello! Today we are going to learn about %s.", theme),
				VisualSpec: map[string]interface{}{
					"title":    fmt.Sprintf("Introduction to %s", theme),
					"subtitle": "A tutorial from the ground up",
				},
			},
			{
				Type:      models.SectionSlide,
				Duration:  float64(int(target * 0.2)),
				Narration: fmt.Sprintf("First, let's look at what %s actually is and why it matters.", theme),
				VisualSpec: map[string]interface{}{
					"heading": fmt.Sprintf("What is %s?", theme),
					"bullets": []interface{}{
						"The basic concept",
						"Why it matters",
						"Where it is used",
					},
				},
			},
			{
				Type:      models.SectionCode,
				Duration:  float64(int(target * 0.3)),
				Narration: fmt.Sprintf("Now let's see some real code. This is the most basic use of %s.", theme),
				VisualSpec: map[string]interface{}{
					"language": "python",
					"code":     fmt.Sprintf("# A first look at %s\nprint('Hello, %s!')", theme, theme),
				},
			},
			{
				Type:      models.SectionSlide,
				Duration:  float64(int(target * 0.25)),
				Narration: fmt.Sprintf("Here are the key points to keep in mind when working with %s.", theme),
				VisualSpec: map[string]interface{}{
					"heading": "Key points",
					"bullets": []interface{}{
						"Understand the basics",
						"Practice hands-on",
						"Don't fear errors",
					},
				},
			},
			{
				Type:      models.SectionSummary,
				Duration:  float64(int(target * 0.1)),
				Narration: fmt.Sprintf("That covers the basics of %s. Give it a try yourself. Thanks for watching!", theme),
				VisualSpec: map[string]interface{}{
					"points": []interface{}{
						fmt.Sprintf("Learned the basics of %s", theme),
						"Walked through a code example",
						"Ready for the next step",
					},
				},
			},
		},
	}
}
