package models

import "time"

type ActivityAction string

const (
	ActionCreated         ActivityAction = "created"
	ActionUpdated         ActivityAction = "updated"
	ActionStageChanged    ActivityAction = "stage_changed"
	ActionAssigned        ActivityAction = "assigned"
	ActionUnassigned      ActivityAction = "unassigned"
	ActionPriorityChanged ActivityAction = "priority_changed"
	ActionDueDateChanged  ActivityAction = "due_date_changed"
	ActionCompleted       ActivityAction = "completed"
	ActionReopened        ActivityAction = "reopened"
)

// ActivityLogEntry is an owned child of a Task. Entries are immutable once
// appended and the sequence grows monotonically; they double as the task's
// audit trail and its state-machine history. Each entry is inserted as its
// own row, so concurrent appends to the same task cannot clobber each
// other.
type ActivityLogEntry struct {
	ID            string         `gorm:"type:varchar(36);primarykey" json:"id"`
	TaskID        uint64         `gorm:"not null;index" json:"task_id"`
	Action        ActivityAction `gorm:"type:varchar(20);not null" json:"action"`
	PerformedByID uint64         `gorm:"not null" json:"performed_by_id"`
	Timestamp     time.Time      `gorm:"not null" json:"timestamp"`
	Details       string         `gorm:"type:varchar(500)" json:"details,omitempty"`
	PreviousValue string         `gorm:"type:varchar(255)" json:"previous_value,omitempty"`
	NewValue      string         `gorm:"type:varchar(255)" json:"new_value,omitempty"`

	// Relations
	PerformedBy User `gorm:"foreignKey:PerformedByID" json:"performed_by,omitempty"`
}
