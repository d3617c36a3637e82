package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrWorkflowNotFound         = errors.New("workflow not found")
	ErrWorkflowNameTaken        = errors.New("workflow with this name already exists")
	ErrWorkflowNoStages         = errors.New("workflow must have at least one stage")
	ErrDuplicateStageOrder      = errors.New("duplicate stage order")
	ErrNegativeStageOrder       = errors.New("stage order must be non-negative")
	ErrInvalidStageColor        = errors.New("invalid hex color code")
	ErrStageNameRequired        = errors.New("stage name is required")
	ErrWorkflowNameRequired     = errors.New("workflow name is required")
	ErrDefaultWorkflowProtected = errors.New("cannot delete default workflow")
	ErrWorkflowInUse            = errors.New("workflow still has tasks and cannot be deleted")
	ErrWorkflowPermissionDenied = errors.New("user does not have permission to modify this workflow")
)

// Transition rejection reasons surfaced to callers.
const (
	ReasonInvalidStage      = "invalid stage"
	ReasonAdjacentOnly      = "can only move to adjacent stages, or to the final stage"
	ReasonBackwardFromFinal = "cannot move backwards from final stage"
	ReasonWorkflowNotFound  = "workflow not found"
)

// TransitionResult is the outcome of a stage-transition check.
type TransitionResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Actor identifies the principal performing an operation.
type Actor struct {
	ID   uint64
	Role models.UserRole
}

// NormalizeStages sorts stages ascending by order and recomputes the
// derived IsInitial/IsFinal flags, overwriting whatever the caller
// supplied. It fails when two stages share an order value. Every write
// path that touches stages must run this before persisting; a workflow
// with a single stage ends up flagged both initial and final.
func NormalizeStages(stages []models.Stage) ([]models.Stage, error) {
	seen := make(map[int]struct{}, len(stages))
	for _, stage := range stages {
		if _, dup := seen[stage.Order]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateStageOrder, stage.Order)
		}
		seen[stage.Order] = struct{}{}
	}

	normalized := make([]models.Stage, len(stages))
	copy(normalized, stages)

	sort.SliceStable(normalized, func(i, j int) bool {
		return normalized[i].Order < normalized[j].Order
	})

	for i := range normalized {
		normalized[i].IsInitial = i == 0
		normalized[i].IsFinal = i == len(normalized)-1
	}

	return normalized, nil
}

// ValidateTransition decides whether moving a task between two stages of a
// workflow is permitted. It is a pure decision function: no I/O, no
// mutation. Callers must special-case fromStageID == toStageID as a no-op
// before calling.
//
// Rules, in order: both stages must resolve within the workflow; moves of
// distance 1 in either direction pass the adjacency check, as do moves of
// any distance into the final stage; everything else is rejected. A task
// in the final stage can never move to a lower order, so once a task
// reaches the final stage it is frozen there.
func ValidateTransition(workflow *models.Workflow, fromStageID, toStageID string) TransitionResult {
	fromStage := workflow.FindStage(fromStageID)
	toStage := workflow.FindStage(toStageID)

	if fromStage == nil || toStage == nil {
		return TransitionResult{Valid: false, Reason: ReasonInvalidStage}
	}

	orderDiff := fromStage.Order - toStage.Order
	if orderDiff < 0 {
		orderDiff = -orderDiff
	}

	if orderDiff > 1 && !toStage.IsFinal {
		return TransitionResult{Valid: false, Reason: ReasonAdjacentOnly}
	}

	// Catches the adjacent backward move out of the final stage, which the
	// adjacency check above lets through.
	if fromStage.IsFinal && toStage.Order < fromStage.Order {
		return TransitionResult{Valid: false, Reason: ReasonBackwardFromFinal}
	}

	return TransitionResult{Valid: true}
}

// WorkflowService handles workflow business logic
type WorkflowService struct {
	workflowRepo repository.WorkflowRepository
	taskRepo     repository.TaskRepository
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(workflowRepo repository.WorkflowRepository, taskRepo repository.TaskRepository) *WorkflowService {
	return &WorkflowService{
		workflowRepo: workflowRepo,
		taskRepo:     taskRepo,
	}
}

// StageInput describes one stage of a workflow being created or updated.
// ID is kept when provided so existing tasks keep resolving their current
// stage across an update.
type StageInput struct {
	ID          string
	Name        string
	Description string
	Order       int
	Color       string
}

// CreateWorkflowInput represents input for creating a workflow
type CreateWorkflowInput struct {
	Name        string
	Description string
	Stages      []StageInput
	IsDefault   bool
	Actor       Actor
}

// UpdateWorkflowInput represents input for updating a workflow
type UpdateWorkflowInput struct {
	Name        *string
	Description *string
	Stages      []StageInput
}

// ListWorkflowsInput represents filters for listing workflows
type ListWorkflowsInput struct {
	Actor     Actor
	Search    string
	IsDefault *bool
	Page      int
	PageSize  int
}

func buildStages(inputs []StageInput) ([]models.Stage, error) {
	stages := make([]models.Stage, len(inputs))

	for i, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, ErrStageNameRequired
		}
		if in.Order < 0 {
			return nil, fmt.Errorf("%w: %d", ErrNegativeStageOrder, in.Order)
		}

		color := in.Color
		if color == "" {
			color = models.DefaultStageColor
		}
		if !models.IsValidStageColor(color) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStageColor, color)
		}

		id := in.ID
		if id == "" {
			id = uuid.NewString()
		}

		stages[i] = models.Stage{
			ID:          id,
			Name:        name,
			Description: strings.TrimSpace(in.Description),
			Order:       in.Order,
			Color:       color,
		}
	}

	return stages, nil
}

// CreateWorkflow creates a workflow with a normalized stage set
func (s *WorkflowService) CreateWorkflow(input CreateWorkflowInput) (*models.Workflow, error) {
	if !input.Actor.Role.CanManageTasks() {
		return nil, ErrWorkflowPermissionDenied
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrWorkflowNameRequired
	}
	if len(input.Stages) == 0 {
		return nil, ErrWorkflowNoStages
	}

	if _, err := s.workflowRepo.FindByName(name); err == nil {
		return nil, ErrWorkflowNameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check workflow name: %w", err)
	}

	stages, err := buildStages(input.Stages)
	if err != nil {
		return nil, err
	}

	stages, err = NormalizeStages(stages)
	if err != nil {
		return nil, err
	}

	workflow := &models.Workflow{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsDefault:   input.IsDefault,
		CreatedByID: input.Actor.ID,
		Stages:      stages,
	}

	if err := s.workflowRepo.Create(workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return workflow, nil
}

// GetWorkflow returns a workflow visible to the actor
func (s *WorkflowService) GetWorkflow(id uint64, actor Actor) (*models.Workflow, error) {
	workflow, err := s.workflowRepo.FindByID(id, "CreatedBy")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("failed to find workflow: %w", err)
	}

	canAccess := actor.Role == models.RoleAdmin ||
		workflow.IsDefault ||
		workflow.CreatedByID == actor.ID
	if !canAccess {
		return nil, ErrWorkflowPermissionDenied
	}

	return workflow, nil
}

// ListWorkflows returns workflows visible to the actor
func (s *WorkflowService) ListWorkflows(input ListWorkflowsInput) ([]models.Workflow, int64, error) {
	filter := repository.WorkflowFilter{
		Search:    input.Search,
		IsDefault: input.IsDefault,
		Page:      input.Page,
		PageSize:  input.PageSize,
	}

	if input.Actor.Role != models.RoleAdmin {
		filter.VisibleToUser = &input.Actor.ID
	}

	workflows, total, err := s.workflowRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, total, nil
}

// UpdateWorkflow renames a workflow or replaces its stages. Stage updates
// are re-normalized before persisting.
func (s *WorkflowService) UpdateWorkflow(id uint64, input UpdateWorkflowInput, actor Actor) (*models.Workflow, error) {
	workflow, err := s.workflowRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("failed to find workflow: %w", err)
	}

	if !s.canModify(workflow, actor) {
		return nil, ErrWorkflowPermissionDenied
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrWorkflowNameRequired
		}
		if name != workflow.Name {
			if existing, err := s.workflowRepo.FindByName(name); err == nil && existing.ID != workflow.ID {
				return nil, ErrWorkflowNameTaken
			} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to check workflow name: %w", err)
			}
		}
		workflow.Name = name
	}
	if input.Description != nil {
		workflow.Description = strings.TrimSpace(*input.Description)
	}

	if input.Stages != nil {
		if len(input.Stages) == 0 {
			return nil, ErrWorkflowNoStages
		}

		stages, err := buildStages(input.Stages)
		if err != nil {
			return nil, err
		}
		workflow.Stages = stages
	}

	// Normalization runs on every save that touches stages, including the
	// loaded set when only the name changed.
	workflow.Stages, err = NormalizeStages(workflow.Stages)
	if err != nil {
		return nil, err
	}

	if err := s.workflowRepo.Update(workflow); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return s.workflowRepo.FindByID(workflow.ID, "CreatedBy")
}

// DeleteWorkflow hard deletes a workflow unless it is a default template
// or still referenced by tasks
func (s *WorkflowService) DeleteWorkflow(id uint64, actor Actor) error {
	workflow, err := s.workflowRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWorkflowNotFound
		}
		return fmt.Errorf("failed to find workflow: %w", err)
	}

	if !s.canModify(workflow, actor) {
		return ErrWorkflowPermissionDenied
	}

	if workflow.IsDefault {
		return ErrDefaultWorkflowProtected
	}

	count, err := s.taskRepo.CountByWorkflow(id)
	if err != nil {
		return fmt.Errorf("failed to count workflow tasks: %w", err)
	}
	if count > 0 {
		return ErrWorkflowInUse
	}

	if err := s.workflowRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

// CheckTransition is the read-only probe exposed to the UI for pre-flight
// checks. A missing workflow yields an invalid result, not an error.
func (s *WorkflowService) CheckTransition(workflowID uint64, fromStageID, toStageID string) (TransitionResult, error) {
	workflow, err := s.workflowRepo.FindByID(workflowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TransitionResult{Valid: false, Reason: ReasonWorkflowNotFound}, nil
		}
		return TransitionResult{}, fmt.Errorf("failed to find workflow: %w", err)
	}

	return ValidateTransition(workflow, fromStageID, toStageID), nil
}

// canModify: admins modify any workflow, managers only the ones they created
func (s *WorkflowService) canModify(workflow *models.Workflow, actor Actor) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	return actor.Role == models.RoleManager && workflow.CreatedByID == actor.ID
}
