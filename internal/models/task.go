package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// IsValidPriority reports whether p is one of the known priority values.
func IsValidPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID             uint64         `gorm:"primarykey" json:"id"`
	Title          string         `gorm:"type:varchar(200);not null" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	Priority       TaskPriority   `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	WorkflowID     uint64         `gorm:"not null;index" json:"workflow_id"`
	CurrentStageID string         `gorm:"type:varchar(36);not null;index" json:"current_stage_id"`
	CreatedByID    uint64         `gorm:"not null;index" json:"created_by_id"`
	DueDate        *time.Time     `gorm:"index" json:"due_date"`
	CompletedAt    *time.Time     `gorm:"index" json:"completed_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Workflow    Workflow           `gorm:"foreignKey:WorkflowID" json:"workflow,omitempty"`
	CreatedBy   User               `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Assignments []TaskAssignment   `gorm:"foreignKey:TaskID" json:"assignments,omitempty"`
	ActivityLog []ActivityLogEntry `gorm:"foreignKey:TaskID" json:"activity_log,omitempty"`
}

// IsOverdue reports whether the task has a due date in the past and has not
// been completed.
func (t *Task) IsOverdue() bool {
	if t.DueDate == nil || t.CompletedAt != nil {
		return false
	}
	return time.Now().After(*t.DueDate)
}

// AssigneeIDs returns the user IDs currently assigned to the task.
// Requires the Assignments relation to be preloaded.
func (t *Task) AssigneeIDs() []uint64 {
	ids := make([]uint64, 0, len(t.Assignments))
	for _, a := range t.Assignments {
		ids = append(ids, a.UserID)
	}
	return ids
}

// IsAssignedTo reports whether the user is currently assigned to the task.
// Requires the Assignments relation to be preloaded.
func (t *Task) IsAssignedTo(userID uint64) bool {
	for _, a := range t.Assignments {
		if a.UserID == userID {
			return true
		}
	}
	return false
}
