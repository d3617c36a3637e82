package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskflow/taskflow-api/internal/dto"
	apierrors "github.com/taskflow/taskflow-api/internal/errors"
	"github.com/taskflow/taskflow-api/internal/middleware"
	"github.com/taskflow/taskflow-api/internal/services"
	"github.com/taskflow/taskflow-api/internal/utils"
)

// WorkflowHandler coordinates workflow-related HTTP handlers.
type WorkflowHandler struct {
	workflowService *services.WorkflowService
}

// NewWorkflowHandler creates a new WorkflowHandler.
func NewWorkflowHandler(workflowService *services.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{
		workflowService: workflowService,
	}
}

// StageRequest describes one stage in a create or update request.
type StageRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	Color       string `json:"color"`
}

func toStageInputs(stages []StageRequest) []services.StageInput {
	inputs := make([]services.StageInput, len(stages))
	for i, s := range stages {
		inputs[i] = services.StageInput{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Order:       s.Order,
			Color:       s.Color,
		}
	}
	return inputs
}

// Create creates a new workflow.
func (h *WorkflowHandler) Create(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateWorkflowRequest struct {
		Name        string         `json:"name" binding:"required,min=1,max=100"`
		Description string         `json:"description"`
		Stages      []StageRequest `json:"stages" binding:"required,dive"`
		IsDefault   bool           `json:"isDefault"`
	}

	var req CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	workflow, err := h.workflowService.CreateWorkflow(services.CreateWorkflowInput{
		Name:        req.Name,
		Description: req.Description,
		Stages:      toStageInputs(req.Stages),
		IsDefault:   req.IsDefault,
		Actor:       actor,
	})
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToWorkflowDTO(*workflow))
}

// Get returns a single workflow with its ordered stages.
func (h *WorkflowHandler) Get(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid workflow ID")
		return
	}

	workflow, err := h.workflowService.GetWorkflow(id, actor)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkflowDTO(*workflow))
}

// List returns workflows visible to the current user.
func (h *WorkflowHandler) List(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params := utils.GetPaginationParams(c)

	input := services.ListWorkflowsInput{
		Actor:    actor,
		Search:   c.Query("search"),
		Page:     params.Page,
		PageSize: params.Limit,
	}
	if raw := c.Query("isDefault"); raw != "" {
		isDefault := raw == "true"
		input.IsDefault = &isDefault
	}

	workflows, total, err := h.workflowService.ListWorkflows(input)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkflowListResponse(workflows, params, total))
}

// Update renames a workflow or replaces its stage set.
func (h *WorkflowHandler) Update(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid workflow ID")
		return
	}

	type UpdateWorkflowRequest struct {
		Name        *string        `json:"name"`
		Description *string        `json:"description"`
		Stages      []StageRequest `json:"stages" binding:"omitempty,dive"`
	}

	var req UpdateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateWorkflowInput{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Stages != nil {
		input.Stages = toStageInputs(req.Stages)
	}

	workflow, err := h.workflowService.UpdateWorkflow(id, input, actor)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkflowDTO(*workflow))
}

// Delete removes a workflow that no longer has tasks.
func (h *WorkflowHandler) Delete(c *gin.Context) {
	actor, exists := middleware.GetActor(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid workflow ID")
		return
	}

	if err := h.workflowService.DeleteWorkflow(id, actor); err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Workflow deleted successfully",
	})
}

// ValidateTransition checks whether a stage transition would be allowed,
// without touching any task.
func (h *WorkflowHandler) ValidateTransition(c *gin.Context) {
	if _, exists := middleware.GetActor(c); !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid workflow ID")
		return
	}

	type ValidateTransitionRequest struct {
		FromStageID string `json:"fromStageId" binding:"required"`
		ToStageID   string `json:"toStageId" binding:"required"`
	}

	var req ValidateTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.workflowService.CheckTransition(id, req.FromStageID, req.ToStageID)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":  result.Valid,
		"reason": result.Reason,
	})
}

func respondWorkflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrWorkflowNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrWorkflowNameTaken):
		apierrors.DuplicateName(c, err.Error())
	case errors.Is(err, services.ErrWorkflowPermissionDenied):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrWorkflowNoStages),
		errors.Is(err, services.ErrDuplicateStageOrder):
		apierrors.InvariantViolation(c, err.Error())
	case errors.Is(err, services.ErrWorkflowNameRequired),
		errors.Is(err, services.ErrStageNameRequired),
		errors.Is(err, services.ErrNegativeStageOrder),
		errors.Is(err, services.ErrInvalidStageColor):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrDefaultWorkflowProtected),
		errors.Is(err, services.ErrWorkflowInUse):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
