package repository

import (
	"time"

	"github.com/taskflow/taskflow-api/internal/database"
	"github.com/taskflow/taskflow-api/internal/models"
	"gorm.io/gorm"
)

// GormNotificationRepository is a GORM implementation of NotificationRepository
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &GormNotificationRepository{db: db}
}

// CreateBatch inserts one notification row per element
func (r *GormNotificationRepository) CreateBatch(notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.Create(&notifications).Error
}

// List retrieves a recipient's notifications, newest first
func (r *GormNotificationRepository) List(recipientID uint64, unreadOnly bool, page, pageSize int) ([]models.Notification, int64, error) {
	var notifications []models.Notification

	query := r.db.Model(&models.Notification{}).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Scopes(database.Paginate(page, pageSize)).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// FindByID finds a notification belonging to a recipient
func (r *GormNotificationRepository) FindByID(id, recipientID uint64) (*models.Notification, error) {
	var notification models.Notification
	if err := r.db.Where("id = ? AND recipient_id = ?", id, recipientID).
		First(&notification).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

// Update persists read-state changes
func (r *GormNotificationRepository) Update(notification *models.Notification) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ?", notification.ID).
		Select("is_read", "read_at").
		Updates(notification).Error
}

// MarkAllRead marks every unread notification of a recipient as read
func (r *GormNotificationRepository) MarkAllRead(recipientID uint64, readAt time.Time) (int64, error) {
	result := r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": readAt})
	return result.RowsAffected, result.Error
}

// CountUnread counts a recipient's unread notifications
func (r *GormNotificationRepository) CountUnread(recipientID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// Delete removes a notification belonging to a recipient
func (r *GormNotificationRepository) Delete(id, recipientID uint64) error {
	result := r.db.Where("id = ? AND recipient_id = ?", id, recipientID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ExistsForTaskSince reports whether a notification of the given type was
// already created for the task at or after since. Used by the sweeps to
// suppress duplicate reminders within their window.
func (r *GormNotificationRepository) ExistsForTaskSince(taskID uint64, typ models.NotificationType, since time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("task_id = ? AND type = ? AND created_at >= ?", taskID, typ, since).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteOlderThan removes notifications created before the cutoff
func (r *GormNotificationRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
