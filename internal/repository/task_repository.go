package repository

import (
	"time"

	"github.com/taskflow/taskflow-api/internal/database"
	"github.com/taskflow/taskflow-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a task together with any initial activity entries
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		switch p {
		case "Workflow":
			// Stages ride along whenever the workflow is requested
			query = query.Preload("Workflow").Preload("Workflow.Stages", func(db *gorm.DB) *gorm.DB {
				return db.Order("stages.stage_order ASC")
			})
		case "ActivityLog":
			query = query.Preload("ActivityLog", func(db *gorm.DB) *gorm.DB {
				return db.Order("activity_log_entries.timestamp ASC")
			})
		default:
			query = query.Preload(p)
		}
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{})

	if filter.WorkflowID != nil {
		query = query.Where("tasks.workflow_id = ?", *filter.WorkflowID)
	}
	if filter.StageID != nil {
		query = query.Where("tasks.current_stage_id = ?", *filter.StageID)
	}
	if filter.CreatedByID != nil {
		query = query.Where("tasks.created_by_id = ?", *filter.CreatedByID)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.AssignedUserID != nil {
		assignmentSubQuery := r.db.Model(&models.TaskAssignment{}).
			Select("1").
			Where("task_assignments.task_id = tasks.id").
			Where("task_assignments.user_id = ?", *filter.AssignedUserID).
			Where("task_assignments.deleted_at IS NULL")
		query = query.Where("EXISTS (?)", assignmentSubQuery)
	}
	if filter.Overdue {
		query = query.Where("tasks.due_date < ?", time.Now()).
			Where("tasks.completed_at IS NULL")
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("tasks.title LIKE ? OR tasks.description LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("tasks.created_at DESC").
		Scopes(database.Paginate(filter.Page, filter.PageSize)).
		Preload("CreatedBy").
		Preload("Assignments").
		Preload("Assignments.User").
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update persists the task's mutable columns. The activity log and the
// assignment set are managed through their own operations, so a concurrent
// append cannot be lost by a column update.
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Model(&models.Task{}).
		Where("id = ?", task.ID).
		Select("title", "description", "priority", "current_stage_id", "due_date", "completed_at").
		Updates(task).Error
}

// Delete soft deletes a task and its assignments
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Task{}, id).Error
	})
}

// AppendActivity inserts a single activity log entry
func (r *GormTaskRepository) AppendActivity(entry *models.ActivityLogEntry) error {
	return r.db.Create(entry).Error
}

// AssignUsers assigns multiple users to a task, reviving soft-deleted rows
func (r *GormTaskRepository) AssignUsers(taskID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}

	assignments := make([]models.TaskAssignment, len(userIDs))

	for i, userID := range userIDs {
		assignments[i] = models.TaskAssignment{
			TaskID: taskID,
			UserID: userID,
		}
	}

	return r.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"deleted_at": gorm.Expr("NULL")}),
		}).
		Create(&assignments).Error
}

// UnassignUser removes a user assignment from a task
func (r *GormTaskRepository) UnassignUser(taskID, userID uint64) error {
	return r.db.Where("task_id = ? AND user_id = ?", taskID, userID).
		Delete(&models.TaskAssignment{}).Error
}

// FindOverdue returns incomplete tasks whose due date is before now
func (r *GormTaskRepository) FindOverdue(now time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.
		Where("due_date < ?", now).
		Where("completed_at IS NULL").
		Preload("Assignments").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// FindDueSoon returns incomplete tasks due between now and until
func (r *GormTaskRepository) FindDueSoon(now, until time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.
		Where("due_date >= ? AND due_date <= ?", now, until).
		Where("completed_at IS NULL").
		Preload("Assignments").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// CountByWorkflow counts tasks referencing a workflow
func (r *GormTaskRepository) CountByWorkflow(workflowID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.Task{}).
		Where("workflow_id = ?", workflowID).
		Count(&count).Error
	return count, err
}
