package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Preference scopes, broadest first.
const (
	ScopeGlobal      = "global"
	ScopeProject     = "project"
	ScopeSectionType = "section_type"
	ScopeSpecific    = "specific"
)

// Preference is an inferred or user-declared stylistic rule with a confidence
// score and an applicability scope. Preferences are soft-deleted only: IsActive
// is flipped to false, rows are never removed.
type Preference struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Description string  `gorm:"type:text;not null" json:"description"`
	Category    string  `gorm:"index" json:"category"`
	Scope       string  `gorm:"index;default:'global'" json:"scope"`
	SectionType string  `gorm:"index" json:"section_type,omitempty"`
	ProjectID   *uint   `gorm:"index" json:"project_id,omitempty"`
	Confidence  float64 `gorm:"not null;default:0.5" json:"confidence"`

	// SourceCorrections holds up to five correction ids for provenance. The
	// referenced corrections may be rotated out later; nothing depends on them
	// still existing.
	SourceCorrections datatypes.JSONSlice[uint] `json:"source_corrections,omitempty"`

	IsActive      bool `gorm:"default:true" json:"is_active"`
	PromptVersion int  `gorm:"default:1" json:"prompt_version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Preference) TableName() string {
	return "preferences"
}

// ValidateScope checks the scope/field consistency rules: project scope needs
// a project id, section_type scope needs a section type, and specific scope
// needs both. Global needs neither.
func (p *Preference) ValidateScope() error {
	switch p.Scope {
	case ScopeGlobal:
		return nil
	case ScopeProject:
		if p.ProjectID == nil {
			return fmt.Errorf("scope %q requires project_id", p.Scope)
		}
		return nil
	case ScopeSectionType:
		if p.SectionType == "" {
			return fmt.Errorf("scope %q requires section_type", p.Scope)
		}
		return nil
	case ScopeSpecific:
		if p.ProjectID == nil || p.SectionType == "" {
			return fmt.Errorf("scope %q requires both project_id and section_type", p.Scope)
		}
		return nil
	default:
		return fmt.Errorf("unknown scope %q", p.Scope)
	}
}
