package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/taskflow/taskflow-api/internal/constants"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/repository"
	"gorm.io/gorm"
)

// AutomationService watches stage changes and drives their side effects:
// terminal-stage completion stamping and notification fan-out. All
// notification failures are logged and swallowed; they must never fail the
// mutation that triggered them.
type AutomationService struct {
	taskRepo         repository.TaskRepository
	notificationRepo repository.NotificationRepository
	notifier         *NotificationService
	logger           *slog.Logger
}

// NewAutomationService creates a new AutomationService
func NewAutomationService(
	taskRepo repository.TaskRepository,
	notificationRepo repository.NotificationRepository,
	notifier *NotificationService,
	logger *slog.Logger,
) *AutomationService {
	return &AutomationService{
		taskRepo:         taskRepo,
		notificationRepo: notificationRepo,
		notifier:         notifier,
		logger:           logger.With("module", "automation"),
	}
}

// HandleTaskCompletion marks a task complete when its current stage is the
// workflow's final stage. Idempotent: an already-completed task is a pure
// no-op, as is a task whose stage is not final, so it is safe to call
// after every stage change and from reconciliation sweeps.
func (s *AutomationService) HandleTaskCompletion(taskID, actorID uint64) error {
	task, err := s.taskRepo.FindByID(taskID, "Workflow", "Assignments")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	currentStage := task.Workflow.FindStage(task.CurrentStageID)
	if currentStage == nil || !currentStage.IsFinal || task.CompletedAt != nil {
		return nil
	}

	now := time.Now()
	task.CompletedAt = &now

	if err := s.taskRepo.Update(task); err != nil {
		return fmt.Errorf("failed to stamp completion: %w", err)
	}

	entry := &models.ActivityLogEntry{
		ID:            uuid.NewString(),
		TaskID:        task.ID,
		Action:        models.ActionCompleted,
		PerformedByID: actorID,
		Timestamp:     now,
		Details:       "Task automatically completed when moved to final stage",
	}
	if err := s.taskRepo.AppendActivity(entry); err != nil {
		return fmt.Errorf("failed to append completion entry: %w", err)
	}

	s.NotifyTaskCompletion(task)

	return nil
}

// NotifyTaskCompletion fans out task_completed to all assigned users
func (s *AutomationService) NotifyTaskCompletion(task *models.Task) {
	event := Event{
		Type:        models.NotificationTaskCompleted,
		Title:       "Task Completed",
		Message:     fmt.Sprintf("Task %q has been completed", task.Title),
		TaskID:      &task.ID,
		WorkflowID:  &task.WorkflowID,
		TriggeredBy: &task.CreatedByID,
	}

	if err := s.notifier.NotifyAll(task.AssigneeIDs(), event); err != nil {
		s.logger.Error("completion notification failed", "task_id", task.ID, "error", err)
	}
}

// NotifyTaskAssignment fans out task_assigned to the newly assigned users
func (s *AutomationService) NotifyTaskAssignment(task *models.Task, userIDs []uint64, assignedBy uint64) {
	event := Event{
		Type:        models.NotificationTaskAssigned,
		Title:       "New Task Assigned",
		Message:     fmt.Sprintf("You have been assigned to task: %q", task.Title),
		TaskID:      &task.ID,
		WorkflowID:  &task.WorkflowID,
		TriggeredBy: &assignedBy,
	}

	if err := s.notifier.NotifyAll(userIDs, event); err != nil {
		s.logger.Error("assignment notification failed", "task_id", task.ID, "error", err)
	}
}

// NotifyStageChange fans out task_stage_changed to all assigned users
func (s *AutomationService) NotifyStageChange(task *models.Task, oldStageName, newStageName string, changedBy uint64) {
	event := Event{
		Type:        models.NotificationTaskStageChanged,
		Title:       "Task Stage Changed",
		Message:     fmt.Sprintf("Task %q moved from %q to %q", task.Title, oldStageName, newStageName),
		TaskID:      &task.ID,
		WorkflowID:  &task.WorkflowID,
		TriggeredBy: &changedBy,
		Metadata: models.JSONMap{
			"oldStage": oldStageName,
			"newStage": newStageName,
		},
	}

	if err := s.notifier.NotifyAll(task.AssigneeIDs(), event); err != nil {
		s.logger.Error("stage change notification failed", "task_id", task.ID, "error", err)
	}
}

// SweepOverdueTasks notifies assignees of incomplete tasks whose due date
// has passed. Invoked by the scheduler; a task that was already reminded
// today is skipped.
func (s *AutomationService) SweepOverdueTasks() error {
	now := time.Now()

	tasks, err := s.taskRepo.FindOverdue(now)
	if err != nil {
		return fmt.Errorf("failed to find overdue tasks: %w", err)
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for i := range tasks {
		task := &tasks[i]

		sent, err := s.notificationRepo.ExistsForTaskSince(task.ID, models.NotificationTaskOverdue, startOfDay)
		if err != nil {
			s.logger.Error("overdue suppression check failed", "task_id", task.ID, "error", err)
			continue
		}
		if sent {
			continue
		}

		daysOverdue := int(now.Sub(*task.DueDate).Hours() / 24)
		event := Event{
			Type:       models.NotificationTaskOverdue,
			Title:      "Task Overdue",
			Message:    fmt.Sprintf("Task %q is overdue", task.Title),
			TaskID:     &task.ID,
			WorkflowID: &task.WorkflowID,
			Metadata: models.JSONMap{
				"dueDate":     task.DueDate.Format(time.RFC3339),
				"daysOverdue": daysOverdue,
			},
		}

		if err := s.notifier.NotifyAll(task.AssigneeIDs(), event); err != nil {
			s.logger.Error("overdue notification failed", "task_id", task.ID, "error", err)
		}
	}

	s.logger.Info("overdue sweep finished", "tasks", len(tasks))
	return nil
}

// SweepDueSoonTasks notifies assignees of incomplete tasks due within the
// next 24 hours. A task that was already reminded in the last 24 hours is
// skipped.
func (s *AutomationService) SweepDueSoonTasks() error {
	now := time.Now()
	window := time.Duration(constants.DueSoonWindowHours) * time.Hour

	tasks, err := s.taskRepo.FindDueSoon(now, now.Add(window))
	if err != nil {
		return fmt.Errorf("failed to find due-soon tasks: %w", err)
	}

	for i := range tasks {
		task := &tasks[i]

		sent, err := s.notificationRepo.ExistsForTaskSince(task.ID, models.NotificationTaskDueSoon, now.Add(-window))
		if err != nil {
			s.logger.Error("due-soon suppression check failed", "task_id", task.ID, "error", err)
			continue
		}
		if sent {
			continue
		}

		event := Event{
			Type:       models.NotificationTaskDueSoon,
			Title:      "Task Due Soon",
			Message:    fmt.Sprintf("Task %q is due within 24 hours", task.Title),
			TaskID:     &task.ID,
			WorkflowID: &task.WorkflowID,
			Metadata: models.JSONMap{
				"dueDate": task.DueDate.Format(time.RFC3339),
			},
		}

		if err := s.notifier.NotifyAll(task.AssigneeIDs(), event); err != nil {
			s.logger.Error("due-soon notification failed", "task_id", task.ID, "error", err)
		}
	}

	s.logger.Info("due-soon sweep finished", "tasks", len(tasks))
	return nil
}
