package models

import "time"

// Pipeline stages a correction can originate from.
const (
	StageScript      = "script"
	StageNarration   = "narration"
	StageImage       = "image"
	StageAnimation   = "animation"
	StageComposition = "composition"
)

// Change categories shared by corrections and preferences.
const (
	CategoryStyle      = "style"
	CategoryStructural = "structural"
	CategoryContent    = "content"
	CategoryTechnical  = "technical"
)

// CorrectionEvent is an append-only record of a single user edit to generated
// content. Events are raw signal for preference inference: stage and category
// are stored as-is without validation, and SectionID may dangle after the
// section it referenced is deleted.
type CorrectionEvent struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProjectID uint   `gorm:"not null;index" json:"project_id"`
	SectionID *uint  `gorm:"index" json:"section_id,omitempty"`
	Stage     string `gorm:"index" json:"stage"`
	Category  string `gorm:"index" json:"category"`
	FieldPath string `json:"field_path"`

	PriorValue string `gorm:"type:text" json:"prior_value,omitempty"`
	NewValue   string `gorm:"type:text" json:"new_value,omitempty"`

	OriginalPrompt string `gorm:"type:text" json:"original_prompt,omitempty"`
	UserFeedback   string `gorm:"type:text" json:"user_feedback,omitempty"`

	// Populated when the correction originates from an image-diff analysis.
	OriginalImagePath     string `gorm:"type:text" json:"original_image_path,omitempty"`
	EditedImagePath       string `gorm:"type:text" json:"edited_image_path,omitempty"`
	VisualDiffDescription string `gorm:"type:text" json:"visual_diff_description,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (CorrectionEvent) TableName() string {
	return "corrections"
}
