package dto

import (
	"time"

	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/utils"
)

// StageDTO represents a workflow stage in API responses
type StageDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
	Color       string `json:"color"`
	IsInitial   bool   `json:"is_initial"`
	IsFinal     bool   `json:"is_final"`
}

// WorkflowDTO represents a workflow in API responses
type WorkflowDTO struct {
	ID          uint64     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	IsDefault   bool       `json:"is_default"`
	CreatedByID uint64     `json:"created_by_id"`
	CreatedBy   *UserDTO   `json:"created_by,omitempty"`
	Stages      []StageDTO `json:"stages"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// WorkflowListResponse represents a paginated list of workflows
type WorkflowListResponse struct {
	Workflows  []WorkflowDTO            `json:"workflows"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ToStageDTO converts a Stage model to StageDTO
func ToStageDTO(stage models.Stage) StageDTO {
	return StageDTO{
		ID:          stage.ID,
		Name:        stage.Name,
		Description: stage.Description,
		Order:       stage.Order,
		Color:       stage.Color,
		IsInitial:   stage.IsInitial,
		IsFinal:     stage.IsFinal,
	}
}

// ToWorkflowDTO converts a Workflow model to WorkflowDTO
func ToWorkflowDTO(workflow models.Workflow) WorkflowDTO {
	dto := WorkflowDTO{
		ID:          workflow.ID,
		Name:        workflow.Name,
		Description: workflow.Description,
		IsDefault:   workflow.IsDefault,
		CreatedByID: workflow.CreatedByID,
		CreatedAt:   workflow.CreatedAt,
		UpdatedAt:   workflow.UpdatedAt,
	}

	dto.Stages = make([]StageDTO, len(workflow.Stages))
	for i, stage := range workflow.Stages {
		dto.Stages[i] = ToStageDTO(stage)
	}

	if workflow.CreatedBy.ID != 0 {
		creator := ToUserDTO(workflow.CreatedBy)
		dto.CreatedBy = &creator
	}

	return dto
}

// ToWorkflowListResponse converts workflows to a paginated response
func ToWorkflowListResponse(workflows []models.Workflow, params utils.PaginationParams, total int64) WorkflowListResponse {
	items := make([]WorkflowDTO, len(workflows))
	for i, workflow := range workflows {
		items[i] = ToWorkflowDTO(workflow)
	}

	return WorkflowListResponse{
		Workflows:  items,
		Pagination: utils.NewPaginationResponse(params, total),
	}
}
