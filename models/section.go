package models

import (
	"time"

	"gorm.io/datatypes"
)

// Section types a script may contain.
const (
	SectionTitle      = "title"
	SectionSlide      = "slide"
	SectionCode       = "code"
	SectionCodeTyping = "code_typing"
	SectionDiagram    = "diagram"
	SectionSummary    = "summary"
)

// ValidSectionType reports whether t is one of the known section types.
// Unknown types coming back from the LLM are coerced to "slide" by callers.
func ValidSectionType(t string) bool {
	switch t {
	case SectionTitle, SectionSlide, SectionCode, SectionCodeTyping, SectionDiagram, SectionSummary:
		return true
	}
	return false
}

type Section struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ProjectID    uint           `gorm:"not null;index" json:"project_id"`
	SectionIndex int            `gorm:"not null" json:"section_index"`
	Type         string         `gorm:"not null;default:'slide'" json:"type"`
	Duration     float64        `json:"duration"`
	Narration    string         `gorm:"type:text" json:"narration,omitempty"`
	VisualSpec   datatypes.JSON `gorm:"type:jsonb" json:"visual_spec,omitempty"`

	// Generated artifacts, stored as data URLs or storage paths.
	SlideImagePath     string `gorm:"type:text" json:"slide_image_path,omitempty"`
	NarrationAudioPath string `gorm:"type:text" json:"narration_audio_path,omitempty"`
	AnimationVideoPath string `gorm:"type:text" json:"animation_video_path,omitempty"`

	GenerationPrompt string    `gorm:"type:text" json:"generation_prompt,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Section) TableName() string {
	return "sections"
}
