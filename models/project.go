package models

import (
	"time"

	"gorm.io/datatypes"
)

// Project states, in pipeline order.
const (
	StateInit          = "init"
	StateScriptDone    = "script_done"
	StateVisualsDone   = "visuals_done"
	StateNarrationDone = "narration_done"
	StateComposed      = "composed"
)

type Project struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Theme          string         `gorm:"not null" json:"theme"`
	State          string         `gorm:"default:'init'" json:"state"`
	Script         datatypes.JSON `gorm:"type:jsonb" json:"script,omitempty"`
	DurationTarget float64        `json:"duration_target,omitempty"`
	VideoPath      string         `gorm:"type:text" json:"video_path,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	Sections []Section `gorm:"foreignKey:ProjectID" json:"sections,omitempty"`
}

func (Project) TableName() string {
	return "projects"
}

// CanCompose reports whether the project has reached a state where video
// composition is allowed.
func (p *Project) CanCompose() bool {
	return p.State == StateNarrationDone || p.State == StateComposed
}
