package projects

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tono-megu/ai-video-gen/feedback"
	"github.com/tono-megu/ai-video-gen/generation"
	"github.com/tono-megu/ai-video-gen/models"
	"github.com/tono-megu/ai-video-gen/processing"
	"github.com/tono-megu/ai-video-gen/tasks"
)

type Handler struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Gen     generation.TextGenerator
	OpenAI  *generation.OpenAIClient
	Evolver *feedback.PromptEvolver
	Speech  *processing.SpeechService
	FFmpeg  *processing.FFmpegService
}

func NewHandler(db *gorm.DB, rdb *redis.Client, gen generation.TextGenerator, openai *generation.OpenAIClient, evolver *feedback.PromptEvolver) *Handler {
	return &Handler{
		DB:      db,
		Redis:   rdb,
		Gen:     gen,
		OpenAI:  openai,
		Evolver: evolver,
		Speech:  processing.NewSpeechService(),
		FFmpeg:  processing.NewFFmpegService(),
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/projects", h.CreateProject)
	r.GET("/projects", h.ListProjects)
	r.GET("/projects/:id", h.GetProject)
	r.PATCH("/projects/:id", h.UpdateProject)
	r.DELETE("/projects/:id", h.DeleteProject)

	r.POST("/projects/:id/generate-script", h.GenerateScript)
	r.PUT("/projects/:id/script", h.UpdateScript)

	r.POST("/projects/:id/generate-visuals", h.GenerateVisuals)
	r.GET("/projects/:id/sections/:section_id/slide", h.GetSlide)
	r.POST("/projects/:id/sections/:section_id/slide/regenerate", h.RegenerateSlide)
	r.PUT("/projects/:id/sections/:section_id/slide", h.UpdateSlide)

	r.POST("/projects/:id/generate-narration", h.GenerateNarrations)
	r.GET("/projects/:id/sections/:section_id/narration", h.GetNarration)
	r.POST("/projects/:id/sections/:section_id/narration/regenerate", h.RegenerateNarration)
	r.GET("/voices", h.GetVoices)

	r.POST("/projects/:id/compose", h.ComposeVideo)
	r.GET("/projects/:id/compose/status", h.GetComposeStatus)
}

type CreateProjectRequest struct {
	Theme          string  `json:"theme" binding:"required"`
	DurationTarget float64 `json:"duration_target"`
}

func (h *Handler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project := models.Project{
		Theme:          req.Theme,
		State:          models.StateInit,
		DurationTarget: req.DurationTarget,
	}
	if err := h.DB.Create(&project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}

	c.JSON(http.StatusCreated, project)
}

func (h *Handler) ListProjects(c *gin.Context) {
	var projects []models.Project
	if err := h.DB.Order("created_at DESC").Find(&projects).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve projects"})
		return
	}

	c.JSON(http.StatusOK, projects)
}

func (h *Handler) GetProject(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var project models.Project
	err := h.DB.Preload("Sections", func(db *gorm.DB) *gorm.DB {
		return db.Order("section_index ASC")
	}).First(&project, projectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}

	c.JSON(http.StatusOK, project)
}

type UpdateProjectRequest struct {
	Theme          *string  `json:"theme"`
	State          *string  `json:"state"`
	DurationTarget *float64 `json:"duration_target"`
}

func (h *Handler) UpdateProject(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var project models.Project
	if err := h.DB.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}

	updates := map[string]interface{}{}
	if req.Theme != nil {
		updates["theme"] = *req.Theme
	}
	if req.State != nil {
		updates["state"] = *req.State
	}
	if req.DurationTarget != nil {
		updates["duration_target"] = *req.DurationTarget
	}
	if len(updates) > 0 {
		if err := h.DB.Model(&project).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
			return
		}
	}

	c.JSON(http.StatusOK, project)
}

func (h *Handler) DeleteProject(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	result := h.DB.Select("Sections").Delete(&models.Project{ID: projectID})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) GenerateScript(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	script, mode, err := h.generateScript(c.Request.Context(), projectID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"script":  script,
		"mode":    mode,
		"message": "Script generated",
	})
}

type UpdateScriptRequest struct {
	Script processing.Script `json:"script" binding:"required"`
}

func (h *Handler) UpdateScript(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.updateScript(projectID, &req.Script); err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"script":  req.Script,
		"message": "Script updated",
	})
}

func (h *Handler) GenerateVisuals(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	slides, err := h.generateVisuals(c.Request.Context(), projectID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"slides":  slides,
		"message": "Slides generated",
	})
}

func (h *Handler) GetSlide(c *gin.Context) {
	section, ok := h.loadSection(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"section_id":    section.ID,
		"section_index": section.SectionIndex,
		"type":          section.Type,
		"visual_spec":   section.VisualSpec,
		"slide_url":     section.SlideImagePath,
		"narration":     section.Narration,
	})
}

type VisualSpecRequest struct {
	VisualSpec map[string]interface{} `json:"visual_spec"`
}

func (h *Handler) RegenerateSlide(c *gin.Context) {
	section, ok := h.loadSection(c)
	if !ok {
		return
	}

	var req VisualSpecRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := h.regenerateSectionVisual(c.Request.Context(), section, req.VisualSpec)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) UpdateSlide(c *gin.Context) {
	section, ok := h.loadSection(c)
	if !ok {
		return
	}

	var req VisualSpecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.regenerateSectionVisual(c.Request.Context(), section, req.VisualSpec)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GenerateNarrations(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	narrations, err := h.generateNarrations(c.Request.Context(), projectID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	generated := 0
	for _, n := range narrations {
		if n.Status == "generated" || n.Status == "mock" {
			generated++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"narrations": narrations,
		"message":    strconv.Itoa(generated) + " narrations generated",
	})
}

func (h *Handler) GetNarration(c *gin.Context) {
	section, ok := h.loadSection(c)
	if !ok {
		return
	}

	status := "not_generated"
	if section.NarrationAudioPath != "" {
		status = "available"
	}

	c.JSON(http.StatusOK, gin.H{
		"section_id":     section.ID,
		"section_index":  section.SectionIndex,
		"type":           section.Type,
		"status":         status,
		"narration_text": section.Narration,
		"audio_url":      section.NarrationAudioPath,
		"duration":       section.Duration,
	})
}

type NarrationUpdateRequest struct {
	NarrationText string `json:"narration_text"`
}

func (h *Handler) RegenerateNarration(c *gin.Context) {
	section, ok := h.loadSection(c)
	if !ok {
		return
	}

	var req NarrationUpdateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := h.regenerateSectionNarration(c.Request.Context(), section, req.NarrationText)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetVoices(c *gin.Context) {
	c.JSON(http.StatusOK, h.Speech.Voices(c.Request.Context()))
}

// ComposeVideo queues the project for composition; the worker picks it up.
func (h *Handler) ComposeVideo(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var project models.Project
	if err := h.DB.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}
	if !project.CanCompose() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Narration must be generated first"})
		return
	}

	payload, err := tasks.Marshal(tasks.ComposeTaskPayload{ProjectID: projectID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue composition"})
		return
	}
	if err := h.Redis.LPush(c.Request.Context(), tasks.QueueVideoCompose, payload).Err(); err != nil {
		log.Printf("Error queueing compose task for project %d: %v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue composition"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":     "queued",
		"project_id": projectID,
	})
}

func (h *Handler) GetComposeStatus(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	status, err := h.composeStatus(c.Request.Context(), projectID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// loadSection fetches the :section_id section, verifying it belongs to the
// :id project.
func (h *Handler) loadSection(c *gin.Context) (*models.Section, bool) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return nil, false
	}
	sectionID, ok := pathID(c, "section_id")
	if !ok {
		return nil, false
	}

	var section models.Section
	err := h.DB.First(&section, "id = ? AND project_id = ?", sectionID, projectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Section not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return nil, false
	}
	return &section, true
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func respondPipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errProjectNotFound), errors.Is(err, errSectionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, errScriptRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}
