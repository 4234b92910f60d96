package feedback

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tono-megu/ai-video-gen/models"
)

// CorrectionStore is the append-only log of user correction events. Events
// are created once and never mutated or deleted; the inference engine reads
// them back in batches.
type CorrectionStore struct {
	db *gorm.DB
}

func NewCorrectionStore(db *gorm.DB) *CorrectionStore {
	return &CorrectionStore{db: db}
}

// CorrectionFilter narrows a List call. Zero-valued fields are ignored.
type CorrectionFilter struct {
	ProjectID *uint
	SectionID *uint
	Stage     string
	Category  string
}

// CorrectionStats is a full-scan aggregation over the correction log.
type CorrectionStats struct {
	Total      int            `json:"total"`
	ByStage    map[string]int `json:"by_stage"`
	ByCategory map[string]int `json:"by_category"`
}

// Record appends a correction event and returns the stored form. Only the
// project reference is required; stage and category values are stored as-is
// even when malformed, since the log is raw signal for inference.
func (s *CorrectionStore) Record(ctx context.Context, event *models.CorrectionEvent) (*models.CorrectionEvent, error) {
	if event.ProjectID == 0 {
		return nil, fmt.Errorf("%w: correction requires a project_id", ErrValidation)
	}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to record correction: %w", err)
	}
	return event, nil
}

// List returns corrections matching the filter, newest first.
func (s *CorrectionStore) List(ctx context.Context, filter CorrectionFilter, limit int) ([]models.CorrectionEvent, error) {
	query := s.db.WithContext(ctx).Model(&models.CorrectionEvent{})

	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.SectionID != nil {
		query = query.Where("section_id = ?", *filter.SectionID)
	}
	if filter.Stage != "" {
		query = query.Where("stage = ?", filter.Stage)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	var events []models.CorrectionEvent
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list corrections: %w", err)
	}
	return events, nil
}

// Recent returns the most recent corrections across all projects, newest
// first. This is the batch the inference engine consumes.
func (s *CorrectionStore) Recent(ctx context.Context, limit int) ([]models.CorrectionEvent, error) {
	var events []models.CorrectionEvent
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent corrections: %w", err)
	}
	return events, nil
}

// Stats aggregates the whole log by stage and category. This is a full table
// scan; acceptable at the intended corpus size, and isolated here so it can
// later be replaced by a server-side aggregation without changing callers.
func (s *CorrectionStore) Stats(ctx context.Context) (*CorrectionStats, error) {
	var rows []models.CorrectionEvent
	err := s.db.WithContext(ctx).
		Select("stage", "category").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load correction stats: %w", err)
	}

	stats := &CorrectionStats{
		Total:      len(rows),
		ByStage:    make(map[string]int),
		ByCategory: make(map[string]int),
	}
	for _, row := range rows {
		stage := row.Stage
		if stage == "" {
			stage = "unknown"
		}
		category := row.Category
		if category == "" {
			category = "unknown"
		}
		stats.ByStage[stage]++
		stats.ByCategory[category]++
	}
	return stats, nil
}
