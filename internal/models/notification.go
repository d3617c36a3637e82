package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTaskAssigned     NotificationType = "task_assigned"
	NotificationTaskCompleted    NotificationType = "task_completed"
	NotificationTaskStageChanged NotificationType = "task_stage_changed"
	NotificationTaskDueSoon      NotificationType = "task_due_soon"
	NotificationTaskOverdue      NotificationType = "task_overdue"
	NotificationMention          NotificationType = "mention"
	NotificationComment          NotificationType = "comment"
)

// JSONMap stores free-form notification metadata as a JSON column.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata column type %T", value)
	}

	return json.Unmarshal(data, m)
}

type Notification struct {
	ID          uint64           `gorm:"primarykey" json:"id"`
	RecipientID uint64           `gorm:"not null;index" json:"recipient_id"`
	Type        NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Title       string           `gorm:"type:varchar(200);not null" json:"title"`
	Message     string           `gorm:"type:varchar(1000);not null" json:"message"`
	TaskID      *uint64          `gorm:"index" json:"task_id,omitempty"`
	WorkflowID  *uint64          `json:"workflow_id,omitempty"`
	TriggeredBy *uint64          `json:"triggered_by,omitempty"`
	IsRead      bool             `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
	Metadata    JSONMap          `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`

	// Relations
	Recipient User `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
}
