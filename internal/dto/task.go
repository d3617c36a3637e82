package dto

import (
	"time"

	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/utils"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64          `json:"id"`
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Role     models.UserRole `json:"role"`
	IsActive bool            `json:"is_active"`
}

// ActivityLogEntryDTO represents one activity log entry in API responses
type ActivityLogEntryDTO struct {
	ID            string                `json:"id"`
	Action        models.ActivityAction `json:"action"`
	PerformedByID uint64                `json:"performed_by_id"`
	Timestamp     time.Time             `json:"timestamp"`
	Details       string                `json:"details,omitempty"`
	PreviousValue string                `json:"previous_value,omitempty"`
	NewValue      string                `json:"new_value,omitempty"`
}

// TaskAssignmentDTO represents a task assignment in API responses
type TaskAssignmentDTO struct {
	User UserDTO `json:"user"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID             uint64                `json:"id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Priority       models.TaskPriority   `json:"priority"`
	WorkflowID     uint64                `json:"workflow_id"`
	CurrentStageID string                `json:"current_stage_id"`
	CreatedByID    uint64                `json:"created_by_id"`
	DueDate        *time.Time            `json:"due_date"`
	CompletedAt    *time.Time            `json:"completed_at"`
	IsOverdue      bool                  `json:"is_overdue"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	Workflow       *WorkflowDTO          `json:"workflow,omitempty"`
	CreatedBy      *UserDTO              `json:"created_by,omitempty"`
	Assignments    []TaskAssignmentDTO   `json:"assignments,omitempty"`
	ActivityLog    []ActivityLogEntryDTO `json:"activity_log,omitempty"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO                `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
		IsActive: user.IsActive,
	}
}

// ToActivityLogEntryDTO converts an ActivityLogEntry model to its DTO
func ToActivityLogEntryDTO(entry models.ActivityLogEntry) ActivityLogEntryDTO {
	return ActivityLogEntryDTO{
		ID:            entry.ID,
		Action:        entry.Action,
		PerformedByID: entry.PerformedByID,
		Timestamp:     entry.Timestamp,
		Details:       entry.Details,
		PreviousValue: entry.PreviousValue,
		NewValue:      entry.NewValue,
	}
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:             task.ID,
		Title:          task.Title,
		Description:    task.Description,
		Priority:       task.Priority,
		WorkflowID:     task.WorkflowID,
		CurrentStageID: task.CurrentStageID,
		CreatedByID:    task.CreatedByID,
		DueDate:        task.DueDate,
		CompletedAt:    task.CompletedAt,
		IsOverdue:      task.IsOverdue(),
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}

	// Include workflow if preloaded
	if task.Workflow.ID != 0 {
		workflow := ToWorkflowDTO(task.Workflow)
		dto.Workflow = &workflow
	}

	// Include creator if preloaded
	if task.CreatedBy.ID != 0 {
		creator := ToUserDTO(task.CreatedBy)
		dto.CreatedBy = &creator
	}

	// Include assignments if preloaded
	if len(task.Assignments) > 0 {
		dto.Assignments = make([]TaskAssignmentDTO, len(task.Assignments))
		for i, assignment := range task.Assignments {
			dto.Assignments[i] = TaskAssignmentDTO{
				User: ToUserDTO(assignment.User),
			}
		}
	}

	// Include activity log if preloaded
	if len(task.ActivityLog) > 0 {
		dto.ActivityLog = make([]ActivityLogEntryDTO, len(task.ActivityLog))
		for i, entry := range task.ActivityLog {
			dto.ActivityLog[i] = ToActivityLogEntryDTO(entry)
		}
	}

	return dto
}

// ToTaskListResponse converts tasks to a paginated response
func ToTaskListResponse(tasks []models.Task, params utils.PaginationParams, total int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	return TaskListResponse{
		Tasks:      items,
		Pagination: utils.NewPaginationResponse(params, total),
	}
}
