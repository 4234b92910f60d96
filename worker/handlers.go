package worker

import (
	"context"
	"encoding/json"
	"log"

	"github.com/tono-megu/ai-video-gen/feedback"
	"github.com/tono-megu/ai-video-gen/models"
	"github.com/tono-megu/ai-video-gen/tasks"
)

// HandleComposeVideo processes tasks from QueueVideoCompose: it renders the
// project's sections into a single video and publishes progress along the way.
func (p *Processor) HandleComposeVideo(ctx context.Context, payload string) error {
	var task tasks.ComposeTaskPayload
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return err
	}

	log.Printf("Composing video for project %d", task.ProjectID)
	p.Notifier.Progress(ctx, task.ProjectID, "compose", 0, "Starting composition")

	var project models.Project
	if err := p.DB.First(&project, task.ProjectID).Error; err != nil {
		p.Notifier.Error(ctx, task.ProjectID, "compose", "Project not found")
		return err
	}

	var sections []models.Section
	if err := p.DB.Where("project_id = ?", task.ProjectID).Order("section_index ASC").Find(&sections).Error; err != nil {
		p.Notifier.Error(ctx, task.ProjectID, "compose", "Failed to load sections")
		return err
	}
	if len(sections) == 0 {
		p.Notifier.Error(ctx, task.ProjectID, "compose", "No sections to compose")
		return nil
	}

	if !p.FFmpeg.CheckFFmpeg(ctx) {
		// Mock mode: no video output, but the state still advances.
		if err := p.DB.Model(&project).Update("state", models.StateComposed).Error; err != nil {
			return err
		}
		log.Printf("FFmpeg not available, project %d composed in mock mode", task.ProjectID)
		p.Notifier.Complete(ctx, task.ProjectID, "compose", map[string]interface{}{
			"status": "mock",
		})
		return nil
	}

	p.Notifier.Progress(ctx, task.ProjectID, "compose", 20, "Rendering segments")

	videoURL, err := p.FFmpeg.ComposeVideo(ctx, task.ProjectID, sections)
	if err != nil {
		p.DB.Model(&project).Update("state", models.StateNarrationDone)
		p.Notifier.Error(ctx, task.ProjectID, "compose", err.Error())
		return err
	}

	if err := p.DB.Model(&project).Updates(map[string]interface{}{
		"video_path": videoURL,
		"state":      models.StateComposed,
	}).Error; err != nil {
		return err
	}

	log.Printf("Composed video for project %d (%d sections)", task.ProjectID, len(sections))
	p.Notifier.Complete(ctx, task.ProjectID, "compose", map[string]interface{}{
		"status":         "completed",
		"sections_count": len(sections),
	})
	return nil
}

// HandleEvolvePreferences processes tasks from QueuePreferenceEvolve: it runs
// preference inference over the most recent corrections.
func (p *Processor) HandleEvolvePreferences(ctx context.Context, payload string) error {
	var task tasks.EvolveTaskPayload
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return err
	}

	corrections := feedback.NewCorrectionStore(p.DB)
	prefs := feedback.NewPreferenceStore(p.DB)

	result, err := feedback.EvolveRecent(ctx, corrections, prefs, p.Engine, task.Limit)
	if err != nil {
		return err
	}

	log.Printf("Preference evolution: analyzed %d corrections, created %d preferences (mode %s)",
		result.CorrectionsAnalyzed, len(result.Created), result.Mode)
	return nil
}
