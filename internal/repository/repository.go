package repository

import (
	"time"

	"github.com/taskflow/taskflow-api/internal/models"
)

// WorkflowRepository defines the interface for workflow data access.
// Stages are owned children of a workflow and are only reachable through
// this interface; they have no repository of their own.
type WorkflowRepository interface {
	// Create creates a workflow together with its stages
	Create(workflow *models.Workflow) error

	// FindByID finds a workflow by ID with its stages loaded
	FindByID(id uint64, preload ...string) (*models.Workflow, error)

	// FindByName finds a workflow by its unique name
	FindByName(name string) (*models.Workflow, error)

	// List retrieves workflows with filtering and pagination
	List(filter WorkflowFilter) ([]models.Workflow, int64, error)

	// Update saves workflow fields and replaces its stage set
	Update(workflow *models.Workflow) error

	// Delete hard deletes a workflow and its stages
	Delete(id uint64) error
}

// WorkflowFilter holds filtering options for listing workflows
type WorkflowFilter struct {
	Search      string
	IsDefault   *bool
	CreatedByID *uint64

	// VisibleToUser restricts results to default workflows plus those the
	// user created. Ignored when nil (admin view).
	VisibleToUser *uint64

	Page     int
	PageSize int
}

// TaskRepository defines the interface for task data access. Activity log
// entries are owned children of a task and are appended through this
// interface only.
type TaskRepository interface {
	// Create creates a task together with any initial activity entries
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update persists the task's mutable columns
	Update(task *models.Task) error

	// Delete soft deletes a task and its assignments
	Delete(id uint64) error

	// AppendActivity inserts a single activity log entry
	AppendActivity(entry *models.ActivityLogEntry) error

	// AssignUsers assigns multiple users to a task
	AssignUsers(taskID uint64, userIDs []uint64) error

	// UnassignUser removes a user assignment from a task
	UnassignUser(taskID, userID uint64) error

	// FindOverdue returns incomplete tasks whose due date is before now,
	// with assignments preloaded
	FindOverdue(now time.Time) ([]models.Task, error)

	// FindDueSoon returns incomplete tasks due between now and until,
	// with assignments preloaded
	FindDueSoon(now, until time.Time) ([]models.Task, error)

	// CountByWorkflow counts tasks referencing a workflow
	CountByWorkflow(workflowID uint64) (int64, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	WorkflowID     *uint64
	StageID        *string
	AssignedUserID *uint64
	CreatedByID    *uint64
	Priority       *models.TaskPriority
	Overdue        bool
	Search         string
	Page           int
	PageSize       int
}

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	// CreateBatch inserts one notification row per element
	CreateBatch(notifications []models.Notification) error

	// List retrieves a recipient's notifications, newest first
	List(recipientID uint64, unreadOnly bool, page, pageSize int) ([]models.Notification, int64, error)

	// FindByID finds a notification belonging to a recipient
	FindByID(id, recipientID uint64) (*models.Notification, error)

	// Update persists read-state changes
	Update(notification *models.Notification) error

	// MarkAllRead marks every unread notification of a recipient as read
	MarkAllRead(recipientID uint64, readAt time.Time) (int64, error)

	// CountUnread counts a recipient's unread notifications
	CountUnread(recipientID uint64) (int64, error)

	// Delete removes a notification belonging to a recipient
	Delete(id, recipientID uint64) error

	// ExistsForTaskSince reports whether a notification of the given type
	// was already created for the task at or after since
	ExistsForTaskSince(taskID uint64, typ models.NotificationType, since time.Time) (bool, error)

	// DeleteOlderThan removes notifications created before the cutoff
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// CountActiveByIDs counts how many of the given user IDs exist and are active
	CountActiveByIDs(userIDs []uint64) (int64, error)
}
