package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskflow/taskflow-api/internal/dto"
	apierrors "github.com/taskflow/taskflow-api/internal/errors"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/services"
)

func TestTaskHandler_Create(t *testing.T) {
	env := setupAPITestEnv(t)
	workflow := env.createWorkflow(t)
	r := env.newRouter(env.manager)

	payload := map[string]any{
		"title":       "Fix login crash",
		"workflowId":  workflow.ID,
		"assigneeIds": []uint64{env.member.ID},
	}

	w := doJSON(t, r, http.MethodPost, "/api/tasks", payload)
	require.Equal(t, http.StatusCreated, w.Code)

	var response dto.TaskDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "Fix login crash", response.Title)
	require.Equal(t, workflow.Stages[0].ID, response.CurrentStageID)
	require.Equal(t, models.PriorityMedium, response.Priority)
	require.Len(t, response.Assignments, 1)
	require.Len(t, response.ActivityLog, 1)
	require.Equal(t, models.ActionCreated, response.ActivityLog[0].Action)
}

func TestTaskHandler_ChangeStage(t *testing.T) {
	env := setupAPITestEnv(t)
	workflow := env.createWorkflow(t)
	r := env.newRouter(env.manager)

	task, err := env.taskService.CreateTask(services.CreateTaskInput{
		Title:      "Fix login crash",
		WorkflowID: workflow.ID,
		Actor:      services.Actor{ID: env.manager.ID, Role: env.manager.Role},
	})
	require.NoError(t, err)

	payload := map[string]string{"toStageId": workflow.Stages[1].ID}
	w := doJSON(t, r, http.MethodPatch, "/api/tasks/"+jsonID(task.ID)+"/stage", payload)
	require.Equal(t, http.StatusOK, w.Code)

	var response dto.TaskDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, workflow.Stages[1].ID, response.CurrentStageID)
}

func TestTaskHandler_ChangeStage_InvalidTransition(t *testing.T) {
	env := setupAPITestEnv(t)
	workflow := env.createWorkflow(t)
	r := env.newRouter(env.manager)

	task, err := env.taskService.CreateTask(services.CreateTaskInput{
		Title:      "Fix login crash",
		WorkflowID: workflow.ID,
		Actor:      services.Actor{ID: env.manager.ID, Role: env.manager.Role},
	})
	require.NoError(t, err)

	// Two stages forward, destination is not final.
	payload := map[string]string{"toStageId": workflow.Stages[2].ID}
	w := doJSON(t, r, http.MethodPatch, "/api/tasks/"+jsonID(task.ID)+"/stage", payload)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var apiErr apierrors.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	require.Equal(t, apierrors.ErrCodeInvalidTransition, apiErr.Code)
	require.Equal(t, services.ReasonAdjacentOnly, apiErr.Message)
}

func TestTaskHandler_ChangeStage_MemberForbidden(t *testing.T) {
	env := setupAPITestEnv(t)
	workflow := env.createWorkflow(t)

	task, err := env.taskService.CreateTask(services.CreateTaskInput{
		Title:       "Fix login crash",
		WorkflowID:  workflow.ID,
		AssigneeIDs: []uint64{env.member.ID},
		Actor:       services.Actor{ID: env.manager.ID, Role: env.manager.Role},
	})
	require.NoError(t, err)

	r := env.newRouter(env.member)
	payload := map[string]string{"toStageId": workflow.Stages[1].ID}
	w := doJSON(t, r, http.MethodPatch, "/api/tasks/"+jsonID(task.ID)+"/stage", payload)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestNotificationHandler_List(t *testing.T) {
	env := setupAPITestEnv(t)
	workflow := env.createWorkflow(t)

	_, err := env.taskService.CreateTask(services.CreateTaskInput{
		Title:       "Fix login crash",
		WorkflowID:  workflow.ID,
		AssigneeIDs: []uint64{env.member.ID},
		Actor:       services.Actor{ID: env.manager.ID, Role: env.manager.Role},
	})
	require.NoError(t, err)

	r := env.newRouter(env.member)
	w := doJSON(t, r, http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response dto.NotificationListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Notifications, 1)
	require.Equal(t, models.NotificationTaskAssigned, response.Notifications[0].Type)
	require.Equal(t, int64(1), response.UnreadCount)
}
