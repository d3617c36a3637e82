package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/taskflow/taskflow-api/internal/constants"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/repository"
	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Event describes one notifiable occurrence. The fan-out creates one
// notification row per recipient; recipient de-duplication is the caller's
// responsibility.
type Event struct {
	Type        models.NotificationType
	Title       string
	Message     string
	TaskID      *uint64
	WorkflowID  *uint64
	TriggeredBy *uint64
	Metadata    models.JSONMap
}

// NotificationService handles notification fan-out and the read-state
// surface
type NotificationService struct {
	notificationRepo repository.NotificationRepository
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notificationRepo repository.NotificationRepository) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
	}
}

// NotifyAll creates one notification per recipient for the event. An empty
// recipient set is a no-op. Errors are returned so the caller can log
// them; callers on mutation paths must never propagate them further.
func (s *NotificationService) NotifyAll(recipients []uint64, event Event) error {
	if len(recipients) == 0 {
		return nil
	}

	notifications := make([]models.Notification, len(recipients))
	for i, recipient := range recipients {
		notifications[i] = models.Notification{
			RecipientID: recipient,
			Type:        event.Type,
			Title:       event.Title,
			Message:     event.Message,
			TaskID:      event.TaskID,
			WorkflowID:  event.WorkflowID,
			TriggeredBy: event.TriggeredBy,
			Metadata:    event.Metadata,
		}
	}

	if err := s.notificationRepo.CreateBatch(notifications); err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}

	return nil
}

// ListNotifications returns a user's notifications with the unread count
func (s *NotificationService) ListNotifications(userID uint64, unreadOnly bool, page, pageSize int) ([]models.Notification, int64, int64, error) {
	notifications, total, err := s.notificationRepo.List(userID, unreadOnly, page, pageSize)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	unread, err := s.notificationRepo.CountUnread(userID)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return notifications, total, unread, nil
}

// MarkRead marks a single notification as read. Already-read notifications
// keep their original readAt.
func (s *NotificationService) MarkRead(notificationID, userID uint64) (*models.Notification, error) {
	notification, err := s.notificationRepo.FindByID(notificationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}

	if !notification.IsRead {
		now := time.Now()
		notification.IsRead = true
		notification.ReadAt = &now
		if err := s.notificationRepo.Update(notification); err != nil {
			return nil, fmt.Errorf("failed to mark notification read: %w", err)
		}
	}

	return notification, nil
}

// MarkAllRead marks all of a user's unread notifications as read
func (s *NotificationService) MarkAllRead(userID uint64) (int64, error) {
	count, err := s.notificationRepo.MarkAllRead(userID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return count, nil
}

// UnreadCount returns the number of unread notifications for a user
func (s *NotificationService) UnreadCount(userID uint64) (int64, error) {
	count, err := s.notificationRepo.CountUnread(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// DeleteNotification removes one of the user's own notifications
func (s *NotificationService) DeleteNotification(notificationID, userID uint64) error {
	if err := s.notificationRepo.Delete(notificationID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

// SweepExpired deletes notifications older than the retention window.
// Invoked by the scheduler.
func (s *NotificationService) SweepExpired() (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -constants.NotificationRetentionDays)

	deleted, err := s.notificationRepo.DeleteOlderThan(cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired notifications: %w", err)
	}

	return deleted, nil
}
