package models

import (
	"regexp"
	"time"

	"gorm.io/gorm"
)

// DefaultStageColor is applied when a stage is created without a color.
const DefaultStageColor = "#6B7280"

var hexColorPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

// IsValidStageColor reports whether v is a #RGB or #RRGGBB hex color.
func IsValidStageColor(v string) bool {
	return hexColorPattern.MatchString(v)
}

type Workflow struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	Name        string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string         `gorm:"type:varchar(500)" json:"description"`
	IsDefault   bool           `gorm:"not null;default:false" json:"is_default"`
	CreatedByID uint64         `gorm:"not null" json:"created_by_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Stages    []Stage `gorm:"foreignKey:WorkflowID" json:"stages,omitempty"`
	CreatedBy User    `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}

// Stage is an owned child of a Workflow. It is addressed through its parent
// only; there is no standalone stage repository. The IsInitial and IsFinal
// flags are derived from the sorted order on every save and any
// caller-supplied values are overwritten.
type Stage struct {
	ID          string    `gorm:"type:varchar(36);primarykey" json:"id"`
	WorkflowID  uint64    `gorm:"not null;index" json:"workflow_id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Description string    `gorm:"type:varchar(500)" json:"description"`
	Order       int       `gorm:"column:stage_order;not null" json:"order"`
	Color       string    `gorm:"type:varchar(7);not null;default:'#6B7280'" json:"color"`
	IsInitial   bool      `gorm:"not null;default:false" json:"is_initial"`
	IsFinal     bool      `gorm:"not null;default:false" json:"is_final"`
	CreatedAt   time.Time `json:"created_at"`
}

// FindStage returns the stage with the given id, or nil when the id does
// not resolve within this workflow.
func (w *Workflow) FindStage(stageID string) *Stage {
	for i := range w.Stages {
		if w.Stages[i].ID == stageID {
			return &w.Stages[i]
		}
	}
	return nil
}

// InitialStage returns the stage flagged initial, falling back to the first
// stage. Returns nil for a workflow without stages.
func (w *Workflow) InitialStage() *Stage {
	if len(w.Stages) == 0 {
		return nil
	}
	for i := range w.Stages {
		if w.Stages[i].IsInitial {
			return &w.Stages[i]
		}
	}
	return &w.Stages[0]
}

// FinalStage returns the stage flagged final, falling back to the last
// stage. Returns nil for a workflow without stages.
func (w *Workflow) FinalStage() *Stage {
	if len(w.Stages) == 0 {
		return nil
	}
	for i := range w.Stages {
		if w.Stages[i].IsFinal {
			return &w.Stages[i]
		}
	}
	return &w.Stages[len(w.Stages)-1]
}
