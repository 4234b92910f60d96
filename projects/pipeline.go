package projects

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/tono-megu/ai-video-gen/models"
	"github.com/tono-megu/ai-video-gen/processing"
)

var (
	errProjectNotFound = errors.New("project not found")
	errSectionNotFound = errors.New("section not found")
	errScriptRequired  = errors.New("script must be generated first")
)

const narrationRewritePrompt = `You are a narrator for educational videos.
Rewrite the given narration text so it reads naturally when spoken aloud.
Keep the meaning and roughly the same length. Return only the rewritten text.`

// generateScript runs the script pipeline for a project: evolve the base
// prompt with applicable preferences, generate, persist the script, and
// replace the project's sections with the script's sections.
func (h *Handler) generateScript(ctx context.Context, projectID uint) (*processing.Script, string, error) {
	var project models.Project
	if err := h.DB.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", errProjectNotFound
		}
		return nil, "", err
	}

	systemPrompt := processing.ScriptSystemPrompt
	if h.Evolver != nil {
		evolved, err := h.Evolver.EvolveScriptPrompt(ctx, systemPrompt, "", &projectID)
		if err != nil {
			log.Printf("Prompt evolution failed for project %d, using base prompt: %v", projectID, err)
		} else {
			systemPrompt = evolved
		}
	}

	script, mode, err := processing.GenerateScript(ctx, h.Gen, systemPrompt, project.Theme, project.DurationTarget)
	if err != nil {
		return nil, "", err
	}

	if err := h.applyScript(&project, script, models.StateScriptDone); err != nil {
		return nil, "", err
	}
	return script, mode, nil
}

// updateScript persists a manually edited script and rebuilds the sections.
func (h *Handler) updateScript(projectID uint, script *processing.Script) error {
	var project models.Project
	if err := h.DB.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errProjectNotFound
		}
		return err
	}
	return h.applyScript(&project, script, "")
}

// applyScript stores the script JSON on the project and swaps its sections
// for the script's sections, in one transaction. An empty state leaves the
// project state untouched.
func (h *Handler) applyScript(project *models.Project, script *processing.Script, state string) error {
	scriptJSON, err := json.Marshal(script)
	if err != nil {
		return err
	}

	sections := make([]models.Section, 0, len(script.Sections))
	for idx, s := range script.Sections {
		sectionType := s.Type
		if !models.ValidSectionType(sectionType) {
			sectionType = models.SectionSlide
		}
		sections = append(sections, models.Section{
			ProjectID:    project.ID,
			SectionIndex: idx,
			Type:         sectionType,
			Duration:     s.Duration,
			Narration:    s.Narration,
			VisualSpec:   toJSON(s.VisualSpec),
		})
	}

	return h.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"script": scriptJSON}
		if state != "" {
			updates["state"] = state
		}
		if err := tx.Model(project).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", project.ID).Delete(&models.Section{}).Error; err != nil {
			return err
		}
		if len(sections) > 0 {
			if err := tx.Create(&sections).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

type SlideResult struct {
	SectionID    uint   `json:"section_id"`
	SectionIndex int    `json:"section_index"`
	Type         string `json:"type"`
	SlideURL     string `json:"slide_url"`
}

// generateVisuals renders a slide for every section and stores the per-section
// generation prompt alongside it.
func (h *Handler) generateVisuals(ctx context.Context, projectID uint) ([]SlideResult, error) {
	project, sections, err := h.projectWithSections(projectID)
	if err != nil {
		return nil, err
	}
	if project.State == models.StateInit {
		return nil, errScriptRequired
	}

	results := make([]SlideResult, 0, len(sections))
	for i := range sections {
		section := &sections[i]

		slideURL, err := processing.RenderSlideDataURL(specMap(section.VisualSpec), section.Type)
		if err != nil {
			return nil, err
		}

		prompt := h.sectionPrompt(ctx, project.Theme, *section, projectID)

		updates := map[string]interface{}{"slide_image_path": slideURL}
		if prompt != "" {
			updates["generation_prompt"] = prompt
		}
		if err := h.DB.Model(section).Updates(updates).Error; err != nil {
			return nil, err
		}

		results = append(results, SlideResult{
			SectionID:    section.ID,
			SectionIndex: section.SectionIndex,
			Type:         section.Type,
			SlideURL:     slideURL,
		})
	}

	if err := h.DB.Model(project).Update("state", models.StateVisualsDone).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// sectionPrompt builds the image-generation prompt for a section, shaped by
// the user's applicable style preferences. Empty in mock mode.
func (h *Handler) sectionPrompt(ctx context.Context, theme string, section models.Section, projectID uint) string {
	prompt, err := processing.GenerateSectionPrompt(ctx, h.OpenAI, theme, section)
	if err != nil {
		log.Printf("Section prompt generation failed for section %d: %v", section.ID, err)
		return ""
	}
	if prompt == "" || h.Evolver == nil {
		return prompt
	}

	evolved, err := h.Evolver.EvolveVisualPrompt(ctx, prompt, section.Type, &projectID)
	if err != nil {
		log.Printf("Visual prompt evolution failed for section %d: %v", section.ID, err)
		return prompt
	}
	return evolved
}

func (h *Handler) regenerateSectionVisual(ctx context.Context, section *models.Section, visualSpec map[string]interface{}) (*SlideResult, error) {
	if visualSpec != nil {
		if err := h.DB.Model(section).Update("visual_spec", toJSON(visualSpec)).Error; err != nil {
			return nil, err
		}
	} else {
		visualSpec = specMap(section.VisualSpec)
	}

	slideURL, err := processing.RenderSlideDataURL(visualSpec, section.Type)
	if err != nil {
		return nil, err
	}
	if err := h.DB.Model(section).Update("slide_image_path", slideURL).Error; err != nil {
		return nil, err
	}

	return &SlideResult{
		SectionID:    section.ID,
		SectionIndex: section.SectionIndex,
		Type:         section.Type,
		SlideURL:     slideURL,
	}, nil
}

type NarrationResult struct {
	SectionID    uint    `json:"section_id"`
	SectionIndex int     `json:"section_index"`
	Status       string  `json:"status"`
	Duration     float64 `json:"duration,omitempty"`
	AudioURL     string  `json:"audio_url,omitempty"`
	Message      string  `json:"message,omitempty"`
}

// generateNarrations synthesizes narration audio for every section that has
// narration text. Without a speech API key it records estimated durations and
// reports mock status instead of failing.
func (h *Handler) generateNarrations(ctx context.Context, projectID uint) ([]NarrationResult, error) {
	project, sections, err := h.projectWithSections(projectID)
	if err != nil {
		return nil, err
	}
	if project.State == models.StateInit {
		return nil, errScriptRequired
	}

	results := make([]NarrationResult, 0, len(sections))
	for i := range sections {
		section := &sections[i]
		if section.Narration == "" {
			results = append(results, NarrationResult{
				SectionID:    section.ID,
				SectionIndex: section.SectionIndex,
				Status:       "skipped",
				Message:      "No narration text",
			})
			continue
		}

		result, err := h.synthesizeSection(ctx, section)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}

	if err := h.DB.Model(project).Update("state", models.StateNarrationDone).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (h *Handler) regenerateSectionNarration(ctx context.Context, section *models.Section, narrationText string) (*NarrationResult, error) {
	if narrationText == "" && section.Narration != "" {
		narrationText = h.rewriteNarration(ctx, section.Narration)
	}
	if narrationText != "" && narrationText != section.Narration {
		if err := h.DB.Model(section).Update("narration", narrationText).Error; err != nil {
			return nil, err
		}
		section.Narration = narrationText
	}
	if section.Narration == "" {
		return &NarrationResult{
			SectionID:    section.ID,
			SectionIndex: section.SectionIndex,
			Status:       "error",
			Message:      "No narration text",
		}, nil
	}

	return h.synthesizeSection(ctx, section)
}

// rewriteNarration asks the text generator to polish narration text, with the
// tone prompt evolved by the user's content and style preferences. Returns
// the input unchanged whenever generation is unavailable or fails.
func (h *Handler) rewriteNarration(ctx context.Context, narration string) string {
	if h.Gen == nil {
		return narration
	}

	systemPrompt := narrationRewritePrompt
	if h.Evolver != nil {
		evolved, err := h.Evolver.EvolveNarrationPrompt(ctx, systemPrompt, nil)
		if err == nil {
			systemPrompt = evolved
		}
	}

	rewritten, err := h.Gen.Generate(ctx, narration, systemPrompt)
	if err != nil || rewritten == "" {
		if err != nil {
			log.Printf("Narration rewrite failed, keeping original text: %v", err)
		}
		return narration
	}
	return rewritten
}

func (h *Handler) synthesizeSection(ctx context.Context, section *models.Section) (*NarrationResult, error) {
	audio, err := h.Speech.GenerateSpeech(ctx, section.Narration)
	if err != nil {
		log.Printf("Speech synthesis failed for section %d: %v", section.ID, err)
	}
	duration := h.Speech.EstimateDuration(section.Narration)

	if len(audio) == 0 {
		// Mock mode: no audio, record the estimated duration only.
		if err := h.DB.Model(section).Update("duration", duration).Error; err != nil {
			return nil, err
		}
		return &NarrationResult{
			SectionID:    section.ID,
			SectionIndex: section.SectionIndex,
			Status:       "mock",
			Duration:     duration,
			Message:      "Speech API key not configured, mock mode",
		}, nil
	}

	audioURL := "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(audio)
	if err := h.DB.Model(section).Update("narration_audio_path", audioURL).Error; err != nil {
		return nil, err
	}
	return &NarrationResult{
		SectionID:    section.ID,
		SectionIndex: section.SectionIndex,
		Status:       "generated",
		Duration:     duration,
		AudioURL:     audioURL,
	}, nil
}

type ComposeStatus struct {
	ProjectID       uint    `json:"project_id"`
	State           string  `json:"state"`
	IsComposed      bool    `json:"is_composed"`
	CanCompose      bool    `json:"can_compose"`
	FFmpegAvailable bool    `json:"ffmpeg_available"`
	SectionsCount   int     `json:"sections_count"`
	TotalDuration   float64 `json:"total_duration"`
	EstimatedSize   int64   `json:"estimated_size"`
}

func (h *Handler) composeStatus(ctx context.Context, projectID uint) (*ComposeStatus, error) {
	project, sections, err := h.projectWithSections(projectID)
	if err != nil {
		return nil, err
	}

	totalDuration := 0.0
	for _, s := range sections {
		if s.Duration > 0 {
			totalDuration += s.Duration
		} else {
			totalDuration += 5.0
		}
	}

	return &ComposeStatus{
		ProjectID:       project.ID,
		State:           project.State,
		IsComposed:      project.State == models.StateComposed,
		CanCompose:      project.CanCompose(),
		FFmpegAvailable: h.FFmpeg.CheckFFmpeg(ctx),
		SectionsCount:   len(sections),
		TotalDuration:   totalDuration,
		EstimatedSize:   h.FFmpeg.EstimateFileSize(totalDuration),
	}, nil
}

func (h *Handler) projectWithSections(projectID uint) (*models.Project, []models.Section, error) {
	var project models.Project
	if err := h.DB.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errProjectNotFound
		}
		return nil, nil, err
	}

	var sections []models.Section
	if err := h.DB.Where("project_id = ?", projectID).Order("section_index ASC").Find(&sections).Error; err != nil {
		return nil, nil, err
	}
	return &project, sections, nil
}

func specMap(raw []byte) map[string]interface{} {
	if len(raw) == 0 {
		return map[string]interface{}{}
	}
	var spec map[string]interface{}
	if err := json.Unmarshal(raw, &spec); err != nil {
		return map[string]interface{}{}
	}
	return spec
}
