package dto

import (
	"time"

	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/utils"
)

// NotificationDTO represents a notification in API responses
type NotificationDTO struct {
	ID          uint64                  `json:"id"`
	Type        models.NotificationType `json:"type"`
	Title       string                  `json:"title"`
	Message     string                  `json:"message"`
	TaskID      *uint64                 `json:"task_id,omitempty"`
	WorkflowID  *uint64                 `json:"workflow_id,omitempty"`
	TriggeredBy *uint64                 `json:"triggered_by,omitempty"`
	IsRead      bool                    `json:"is_read"`
	ReadAt      *time.Time              `json:"read_at,omitempty"`
	Metadata    models.JSONMap          `json:"metadata,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// NotificationListResponse represents a paginated list of notifications
// with the recipient's unread count
type NotificationListResponse struct {
	Notifications []NotificationDTO        `json:"notifications"`
	UnreadCount   int64                    `json:"unread_count"`
	Pagination    utils.PaginationResponse `json:"pagination"`
}

// ToNotificationDTO converts a Notification model to NotificationDTO
func ToNotificationDTO(notification models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:          notification.ID,
		Type:        notification.Type,
		Title:       notification.Title,
		Message:     notification.Message,
		TaskID:      notification.TaskID,
		WorkflowID:  notification.WorkflowID,
		TriggeredBy: notification.TriggeredBy,
		IsRead:      notification.IsRead,
		ReadAt:      notification.ReadAt,
		Metadata:    notification.Metadata,
		CreatedAt:   notification.CreatedAt,
	}
}

// ToNotificationListResponse converts notifications to a paginated response
func ToNotificationListResponse(notifications []models.Notification, params utils.PaginationParams, total, unread int64) NotificationListResponse {
	items := make([]NotificationDTO, len(notifications))
	for i, notification := range notifications {
		items[i] = ToNotificationDTO(notification)
	}

	return NotificationListResponse{
		Notifications: items,
		UnreadCount:   unread,
		Pagination:    utils.NewPaginationResponse(params, total),
	}
}
