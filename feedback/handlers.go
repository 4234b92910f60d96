package feedback

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tono-megu/ai-video-gen/generation"
	"github.com/tono-megu/ai-video-gen/models"
	"github.com/tono-megu/ai-video-gen/notify"
)

// Handler exposes the feedback loop over HTTP: correction recording, visual
// diff analysis, preference CRUD, and on-demand evolution.
type Handler struct {
	Corrections *CorrectionStore
	Preferences *PreferenceStore
	Engine      *InferenceEngine
	Evolver     *PromptEvolver
	Diff        *VisualDiffAnalyzer
	Notifier    *notify.Notifier
}

// NewHandler wires the feedback components. gen and vision may be nil, which
// puts inference and visual diff into mock mode.
func NewHandler(db *gorm.DB, gen generation.TextGenerator, vision generation.VisionComparer, notifier *notify.Notifier) *Handler {
	prefs := NewPreferenceStore(db)
	return &Handler{
		Corrections: NewCorrectionStore(db),
		Preferences: prefs,
		Engine:      NewInferenceEngine(gen),
		Evolver:     NewPromptEvolver(prefs),
		Diff:        NewVisualDiffAnalyzer(vision),
		Notifier:    notifier,
	}
}

// RegisterRoutes mounts the feedback API on rg, expected to be /feedback.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/corrections", h.RecordCorrection)
	rg.GET("/corrections", h.ListCorrections)
	rg.GET("/corrections/stats", h.CorrectionStats)

	rg.POST("/visual-diff", h.AnalyzeVisualDiff)

	rg.GET("/preferences", h.ListPreferences)
	rg.POST("/preferences", h.CreatePreference)
	rg.GET("/preferences/profile", h.PreferenceProfile)
	rg.PUT("/preferences/:id", h.UpdatePreference)
	rg.DELETE("/preferences/:id", h.DeactivatePreference)
	rg.POST("/preferences/evolve", h.EvolvePreferences)

	rg.GET("/suggestions", h.ListSuggestions)
}

type CorrectionRequest struct {
	ProjectID      uint   `json:"project_id" binding:"required"`
	SectionID      *uint  `json:"section_id"`
	Stage          string `json:"stage"`
	Category       string `json:"category"`
	FieldPath      string `json:"field_path"`
	PriorValue     string `json:"prior_value"`
	NewValue       string `json:"new_value"`
	OriginalPrompt string `json:"original_prompt"`
	UserFeedback   string `json:"user_feedback"`
}

func (h *Handler) RecordCorrection(c *gin.Context) {
	var req CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event := &models.CorrectionEvent{
		ProjectID:      req.ProjectID,
		SectionID:      req.SectionID,
		Stage:          req.Stage,
		Category:       req.Category,
		FieldPath:      req.FieldPath,
		PriorValue:     req.PriorValue,
		NewValue:       req.NewValue,
		OriginalPrompt: req.OriginalPrompt,
		UserFeedback:   req.UserFeedback,
	}

	stored, err := h.Corrections.Record(c.Request.Context(), event)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record correction"})
		return
	}

	h.Notifier.Complete(c.Request.Context(), stored.ProjectID, "correction_recorded", gin.H{"correction_id": stored.ID})
	c.JSON(http.StatusOK, gin.H{"status": "recorded", "event": stored})
}

func (h *Handler) ListCorrections(c *gin.Context) {
	var filter CorrectionFilter
	if id, ok := queryUint(c, "project_id"); ok {
		filter.ProjectID = &id
	}
	if id, ok := queryUint(c, "section_id"); ok {
		filter.SectionID = &id
	}
	filter.Stage = c.Query("stage")
	filter.Category = c.Query("category")

	limit := queryInt(c, "limit", 100)

	events, err := h.Corrections.List(c.Request.Context(), filter, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve corrections"})
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) CorrectionStats(c *gin.Context) {
	stats, err := h.Corrections.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute correction stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

type VisualDiffRequest struct {
	ProjectID     uint   `json:"project_id" binding:"required"`
	SectionID     *uint  `json:"section_id"`
	OriginalImage string `json:"original_image" binding:"required"`
	EditedImage   string `json:"edited_image" binding:"required"`
}

// AnalyzeVisualDiff compares the generated slide against the user's edit and
// folds the result into the correction log.
func (h *Handler) AnalyzeVisualDiff(c *gin.Context) {
	var req VisualDiffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.Diff.AnalyzeDiff(c.Request.Context(), req.OriginalImage, req.EditedImage)

	event := &models.CorrectionEvent{
		ProjectID:             req.ProjectID,
		SectionID:             req.SectionID,
		Stage:                 models.StageImage,
		Category:              models.CategoryStyle,
		FieldPath:             "slide_image",
		OriginalImagePath:     truncate(req.OriginalImage, 100),
		EditedImagePath:       truncate(req.EditedImage, 100),
		VisualDiffDescription: result.OverallPreference,
	}
	if _, err := h.Corrections.Record(c.Request.Context(), event); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record visual diff correction"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListPreferences(c *gin.Context) {
	q := PreferenceQuery{
		Scope:       c.Query("scope"),
		Category:    c.Query("category"),
		SectionType: c.Query("section_type"),
	}
	if v := c.Query("min_confidence"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			q.MinConfidence = f
		}
	}
	if c.Query("active_only") == "false" {
		q.IncludeInactive = true
	}

	prefs, err := h.Preferences.Query(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

type PreferenceCreateRequest struct {
	Description string  `json:"description" binding:"required"`
	Category    string  `json:"category"`
	Scope       string  `json:"scope"`
	SectionType string  `json:"section_type"`
	ProjectID   *uint   `json:"project_id"`
	Confidence  float64 `json:"confidence"`
}

func (h *Handler) CreatePreference(c *gin.Context) {
	var req PreferenceCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pref := &models.Preference{
		Description: req.Description,
		Category:    req.Category,
		Scope:       req.Scope,
		SectionType: req.SectionType,
		ProjectID:   req.ProjectID,
		Confidence:  req.Confidence,
	}

	created, err := h.Preferences.Create(c.Request.Context(), pref)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create preference"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "created", "preference": created})
}

func (h *Handler) PreferenceProfile(c *gin.Context) {
	profile, err := h.Preferences.Profile(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute preference profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) UpdatePreference(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid preference ID"})
		return
	}

	var patch PreferencePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.Preferences.Update(c.Request.Context(), uint(id), patch)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Preference not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update preference"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "preference": updated})
}

func (h *Handler) DeactivatePreference(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid preference ID"})
		return
	}

	ok, err := h.Preferences.Deactivate(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate preference"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Preference not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

type EvolveRequest struct {
	Limit int `json:"limit"`
}

// EvolvePreferences runs the inference feedback loop on demand over the most
// recent corrections.
func (h *Handler) EvolvePreferences(c *gin.Context) {
	var req EvolveRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := EvolveRecent(c.Request.Context(), h.Corrections, h.Preferences, h.Engine, req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to evolve preferences"})
		return
	}

	if result.CorrectionsAnalyzed == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "no_corrections", "preferences": []models.Preference{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":               "evolved",
		"mode":                 result.Mode,
		"corrections_analyzed": result.CorrectionsAnalyzed,
		"preferences_created":  len(result.Created),
		"preferences":          result.Created,
	})
}

func (h *Handler) ListSuggestions(c *gin.Context) {
	var projectID *uint
	if id, ok := queryUint(c, "project_id"); ok {
		projectID = &id
	}

	suggestions, err := h.Evolver.Suggest(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve suggestions"})
		return
	}
	if suggestions == nil {
		suggestions = []Suggestion{}
	}
	c.JSON(http.StatusOK, suggestions)
}

func queryUint(c *gin.Context, name string) (uint, bool) {
	v := c.Query(name)
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v := c.Query(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
