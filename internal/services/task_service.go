package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrTaskPermissionDenied = errors.New("user does not have permission to modify this task")
	ErrTitleRequired        = errors.New("title is required")
	ErrTitleEmpty           = errors.New("title cannot be empty")
	ErrInvalidPriority      = errors.New("invalid priority")
	ErrNoUserIDsProvided    = errors.New("at least one user ID is required")
	ErrInvalidAssignee      = errors.New("one or more users do not exist or are inactive")
	ErrUserNotAssigned      = errors.New("user is not assigned to this task")
	ErrNoChanges            = errors.New("no changes provided")
)

// TransitionError is returned when a stage change is rejected; Reason is
// surfaced to the caller verbatim.
type TransitionError struct {
	Reason string
}

func (e *TransitionError) Error() string {
	return e.Reason
}

// TaskService handles task business logic and orchestrates the stage
// machine: transition validation, activity logging, completion automation
// and notification fan-out.
type TaskService struct {
	taskRepo     repository.TaskRepository
	workflowRepo repository.WorkflowRepository
	userRepo     repository.UserRepository
	automation   *AutomationService
	logger       *slog.Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo repository.TaskRepository,
	workflowRepo repository.WorkflowRepository,
	userRepo repository.UserRepository,
	automation *AutomationService,
	logger *slog.Logger,
) *TaskService {
	return &TaskService{
		taskRepo:     taskRepo,
		workflowRepo: workflowRepo,
		userRepo:     userRepo,
		automation:   automation,
		logger:       logger.With("module", "tasks"),
	}
}

// taskPreloads are the relations loaded for full task responses
var taskPreloads = []string{"Workflow", "CreatedBy", "Assignments", "Assignments.User", "ActivityLog"}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    models.TaskPriority
	WorkflowID  uint64
	AssigneeIDs []uint64
	DueDate     *time.Time
	Actor       Actor
}

// UpdateTaskInput represents input for updating task fields. Stage changes
// go through ChangeStage, assignments through AssignUsers/UnassignUser.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Priority     *models.TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Actor          Actor
	WorkflowID     *uint64
	StageID        *string
	AssignedUserID *uint64
	Priority       *models.TaskPriority
	Overdue        bool
	Search         string
	Page           int
	PageSize       int
}

// CreateTask creates a task in its workflow's initial stage with a
// `created` activity entry, then notifies any initial assignees.
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if !input.Actor.Role.CanManageTasks() {
		return nil, ErrTaskPermissionDenied
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}

	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if !models.IsValidPriority(input.Priority) {
		return nil, ErrInvalidPriority
	}

	workflow, err := s.workflowRepo.FindByID(input.WorkflowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("failed to find workflow: %w", err)
	}

	initialStage := workflow.InitialStage()
	if initialStage == nil {
		return nil, ErrWorkflowNoStages
	}

	assigneeIDs := uniqueUint64(input.AssigneeIDs)
	if len(assigneeIDs) > 0 {
		count, err := s.userRepo.CountActiveByIDs(assigneeIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to verify users: %w", err)
		}
		if int(count) != len(assigneeIDs) {
			return nil, ErrInvalidAssignee
		}
	}

	task := &models.Task{
		Title:          strings.TrimSpace(input.Title),
		Description:    input.Description,
		Priority:       input.Priority,
		WorkflowID:     workflow.ID,
		CurrentStageID: initialStage.ID,
		CreatedByID:    input.Actor.ID,
		DueDate:        input.DueDate,
		ActivityLog: []models.ActivityLogEntry{
			{
				ID:            uuid.NewString(),
				Action:        models.ActionCreated,
				PerformedByID: input.Actor.ID,
				Timestamp:     time.Now(),
				Details:       fmt.Sprintf("Task created in stage: %s", initialStage.Name),
			},
		},
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if len(assigneeIDs) > 0 {
		if err := s.taskRepo.AssignUsers(task.ID, assigneeIDs); err != nil {
			return nil, fmt.Errorf("failed to assign users: %w", err)
		}
		s.automation.NotifyTaskAssignment(task, assigneeIDs, input.Actor.ID)
	}

	return s.taskRepo.FindByID(task.ID, taskPreloads...)
}

// GetTask returns a task with related data. Members can only see tasks
// they are assigned to.
func (s *TaskService) GetTask(taskID uint64, actor Actor) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, taskPreloads...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if actor.Role == models.RoleMember && !task.IsAssignedTo(actor.ID) {
		return nil, ErrTaskPermissionDenied
	}

	return task, nil
}

// ListTasks returns tasks matching the filters. Members only see tasks
// assigned to them.
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		WorkflowID:     input.WorkflowID,
		StageID:        input.StageID,
		AssignedUserID: input.AssignedUserID,
		Priority:       input.Priority,
		Overdue:        input.Overdue,
		Search:         input.Search,
		Page:           input.Page,
		PageSize:       input.PageSize,
	}

	if input.Actor.Role == models.RoleMember {
		filter.AssignedUserID = &input.Actor.ID
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// ChangeStage moves a task to another stage of its workflow. The move is
// validated first; on success the stage pointer is updated, a
// stage_changed entry appended, the completion check run, and
// task_stage_changed fanned out to assignees. Requesting the current stage
// is a no-op. Automation and notification failures are logged and never
// roll back the committed stage change.
func (s *TaskService) ChangeStage(taskID uint64, toStageID string, actor Actor) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Workflow", "Assignments")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if !actor.Role.CanManageTasks() {
		return nil, ErrTaskPermissionDenied
	}

	toStage := task.Workflow.FindStage(toStageID)
	if toStage == nil {
		return nil, &TransitionError{Reason: "invalid stage for this workflow"}
	}

	if toStageID == task.CurrentStageID {
		return s.taskRepo.FindByID(task.ID, taskPreloads...)
	}

	result := ValidateTransition(&task.Workflow, task.CurrentStageID, toStageID)
	if !result.Valid {
		return nil, &TransitionError{Reason: result.Reason}
	}

	oldStage := task.Workflow.FindStage(task.CurrentStageID)
	oldStageName := "Unknown"
	if oldStage != nil {
		oldStageName = oldStage.Name
	}

	task.CurrentStageID = toStageID
	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to change stage: %w", err)
	}

	entry := &models.ActivityLogEntry{
		ID:            uuid.NewString(),
		TaskID:        task.ID,
		Action:        models.ActionStageChanged,
		PerformedByID: actor.ID,
		Timestamp:     time.Now(),
		Details:       fmt.Sprintf("Stage changed from %q to %q", oldStageName, toStage.Name),
		PreviousValue: oldStageName,
		NewValue:      toStage.Name,
	}
	if err := s.taskRepo.AppendActivity(entry); err != nil {
		return nil, fmt.Errorf("failed to append activity entry: %w", err)
	}

	// The stage change is committed; everything below is best-effort.
	if err := s.automation.HandleTaskCompletion(task.ID, actor.ID); err != nil {
		s.logger.Error("completion automation failed", "task_id", task.ID, "error", err)
	}

	s.automation.NotifyStageChange(task, oldStageName, toStage.Name, actor.ID)

	return s.taskRepo.FindByID(task.ID, taskPreloads...)
}

// UpdateTask updates task fields, appending one activity entry per changed
// field
func (s *TaskService) UpdateTask(taskID uint64, input UpdateTaskInput, actor Actor) (*models.Task, error) {
	if !actor.Role.CanManageTasks() {
		return nil, ErrTaskPermissionDenied
	}

	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	now := time.Now()
	var entries []models.ActivityLogEntry

	if input.Title != nil && *input.Title != task.Title {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, ErrTitleEmpty
		}
		entries = append(entries, models.ActivityLogEntry{
			ID:            uuid.NewString(),
			TaskID:        task.ID,
			Action:        models.ActionUpdated,
			PerformedByID: actor.ID,
			Timestamp:     now,
			Details:       "Title updated",
			PreviousValue: task.Title,
			NewValue:      *input.Title,
		})
		task.Title = strings.TrimSpace(*input.Title)
	}

	if input.Description != nil && *input.Description != task.Description {
		entries = append(entries, models.ActivityLogEntry{
			ID:            uuid.NewString(),
			TaskID:        task.ID,
			Action:        models.ActionUpdated,
			PerformedByID: actor.ID,
			Timestamp:     now,
			Details:       "Description updated",
		})
		task.Description = *input.Description
	}

	if input.Priority != nil && *input.Priority != task.Priority {
		if !models.IsValidPriority(*input.Priority) {
			return nil, ErrInvalidPriority
		}
		entries = append(entries, models.ActivityLogEntry{
			ID:            uuid.NewString(),
			TaskID:        task.ID,
			Action:        models.ActionPriorityChanged,
			PerformedByID: actor.ID,
			Timestamp:     now,
			Details:       "Priority changed",
			PreviousValue: string(task.Priority),
			NewValue:      string(*input.Priority),
		})
		task.Priority = *input.Priority
	}

	if input.ClearDueDate || input.DueDate != nil {
		previous := ""
		if task.DueDate != nil {
			previous = task.DueDate.Format(time.RFC3339)
		}
		next := ""
		if !input.ClearDueDate && input.DueDate != nil {
			next = input.DueDate.Format(time.RFC3339)
		}
		entries = append(entries, models.ActivityLogEntry{
			ID:            uuid.NewString(),
			TaskID:        task.ID,
			Action:        models.ActionDueDateChanged,
			PerformedByID: actor.ID,
			Timestamp:     now,
			Details:       "Due date changed",
			PreviousValue: previous,
			NewValue:      next,
		})
		if input.ClearDueDate {
			task.DueDate = nil
		} else {
			task.DueDate = input.DueDate
		}
	}

	if len(entries) == 0 {
		return nil, ErrNoChanges
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	for i := range entries {
		if err := s.taskRepo.AppendActivity(&entries[i]); err != nil {
			return nil, fmt.Errorf("failed to append activity entry: %w", err)
		}
	}

	return s.taskRepo.FindByID(task.ID, taskPreloads...)
}

// AssignUsers assigns users to a task and notifies only the genuinely new
// assignees
func (s *TaskService) AssignUsers(taskID uint64, userIDs []uint64, actor Actor) (*models.Task, error) {
	if !actor.Role.CanManageTasks() {
		return nil, ErrTaskPermissionDenied
	}
	if len(userIDs) == 0 {
		return nil, ErrNoUserIDsProvided
	}

	task, err := s.taskRepo.FindByID(taskID, "Assignments")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	userIDs = uniqueUint64(userIDs)

	count, err := s.userRepo.CountActiveByIDs(userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to verify users: %w", err)
	}
	if int(count) != len(userIDs) {
		return nil, ErrInvalidAssignee
	}

	newUsers := make([]uint64, 0, len(userIDs))
	for _, id := range userIDs {
		if !task.IsAssignedTo(id) {
			newUsers = append(newUsers, id)
		}
	}

	if len(newUsers) > 0 {
		if err := s.taskRepo.AssignUsers(task.ID, newUsers); err != nil {
			return nil, fmt.Errorf("failed to assign users: %w", err)
		}

		entry := &models.ActivityLogEntry{
			ID:            uuid.NewString(),
			TaskID:        task.ID,
			Action:        models.ActionAssigned,
			PerformedByID: actor.ID,
			Timestamp:     time.Now(),
			Details:       fmt.Sprintf("%d user(s) assigned to task", len(newUsers)),
		}
		if err := s.taskRepo.AppendActivity(entry); err != nil {
			return nil, fmt.Errorf("failed to append activity entry: %w", err)
		}

		s.automation.NotifyTaskAssignment(task, newUsers, actor.ID)
	}

	return s.taskRepo.FindByID(task.ID, taskPreloads...)
}

// UnassignUser removes a user assignment from a task
func (s *TaskService) UnassignUser(taskID, userID uint64, actor Actor) (*models.Task, error) {
	if !actor.Role.CanManageTasks() {
		return nil, ErrTaskPermissionDenied
	}

	task, err := s.taskRepo.FindByID(taskID, "Assignments")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if !task.IsAssignedTo(userID) {
		return nil, ErrUserNotAssigned
	}

	if err := s.taskRepo.UnassignUser(task.ID, userID); err != nil {
		return nil, fmt.Errorf("failed to unassign user: %w", err)
	}

	entry := &models.ActivityLogEntry{
		ID:            uuid.NewString(),
		TaskID:        task.ID,
		Action:        models.ActionUnassigned,
		PerformedByID: actor.ID,
		Timestamp:     time.Now(),
		Details:       "User unassigned from task",
	}
	if err := s.taskRepo.AppendActivity(entry); err != nil {
		return nil, fmt.Errorf("failed to append activity entry: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, taskPreloads...)
}

// DeleteTask deletes a task. Allowed for privileged roles and the creator.
func (s *TaskService) DeleteTask(taskID uint64, actor Actor) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if !actor.Role.CanManageTasks() && task.CreatedByID != actor.ID {
		return ErrTaskPermissionDenied
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// uniqueUint64 removes duplicate values from a slice of uint64
func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}
