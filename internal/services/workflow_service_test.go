package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/taskflow/taskflow-api/internal/database"
	"github.com/taskflow/taskflow-api/internal/models"
	"github.com/taskflow/taskflow-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNormalizeStages_SortsAndDerivesFlags(t *testing.T) {
	stages := []models.Stage{
		{ID: "s3", Name: "Done", Order: 3},
		{ID: "s1", Name: "In Progress", Order: 1},
		{ID: "s0", Name: "To Do", Order: 0},
		{ID: "s2", Name: "Review", Order: 2},
	}

	normalized, err := NormalizeStages(stages)
	assert.NoError(t, err)
	assert.Len(t, normalized, 4)

	assert.Equal(t, []string{"s0", "s1", "s2", "s3"}, []string{
		normalized[0].ID, normalized[1].ID, normalized[2].ID, normalized[3].ID,
	})

	assert.True(t, normalized[0].IsInitial)
	assert.False(t, normalized[0].IsFinal)
	assert.False(t, normalized[1].IsInitial)
	assert.False(t, normalized[1].IsFinal)
	assert.False(t, normalized[2].IsInitial)
	assert.False(t, normalized[2].IsFinal)
	assert.False(t, normalized[3].IsInitial)
	assert.True(t, normalized[3].IsFinal)
}

func TestNormalizeStages_SingleStageIsBothInitialAndFinal(t *testing.T) {
	normalized, err := NormalizeStages([]models.Stage{{ID: "only", Name: "Only", Order: 0}})
	assert.NoError(t, err)
	assert.True(t, normalized[0].IsInitial)
	assert.True(t, normalized[0].IsFinal)
}

func TestNormalizeStages_OverwritesCallerFlags(t *testing.T) {
	stages := []models.Stage{
		{ID: "s0", Name: "To Do", Order: 0, IsFinal: true},
		{ID: "s1", Name: "Done", Order: 1, IsInitial: true},
	}

	normalized, err := NormalizeStages(stages)
	assert.NoError(t, err)
	assert.True(t, normalized[0].IsInitial)
	assert.False(t, normalized[0].IsFinal)
	assert.False(t, normalized[1].IsInitial)
	assert.True(t, normalized[1].IsFinal)
}

func TestNormalizeStages_DuplicateOrderRejected(t *testing.T) {
	stages := []models.Stage{
		{ID: "s0", Name: "To Do", Order: 0},
		{ID: "s1", Name: "Doing", Order: 1},
		{ID: "s2", Name: "Also Doing", Order: 1},
	}

	_, err := NormalizeStages(stages)
	assert.ErrorIs(t, err, ErrDuplicateStageOrder)
}

// fiveStageWorkflow builds a normalized workflow with stage IDs s0..s4 at
// orders 0..4.
func fiveStageWorkflow(t *testing.T) *models.Workflow {
	t.Helper()

	stages := []models.Stage{
		{ID: "s0", Name: "Backlog", Order: 0},
		{ID: "s1", Name: "To Do", Order: 1},
		{ID: "s2", Name: "In Progress", Order: 2},
		{ID: "s3", Name: "Review", Order: 3},
		{ID: "s4", Name: "Done", Order: 4},
	}
	normalized, err := NormalizeStages(stages)
	assert.NoError(t, err)

	return &models.Workflow{ID: 1, Name: "Engineering", Stages: normalized}
}

func TestValidateTransition(t *testing.T) {
	workflow := fiveStageWorkflow(t)

	tests := []struct {
		name   string
		from   string
		to     string
		valid  bool
		reason string
	}{
		{"adjacent forward", "s1", "s2", true, ""},
		{"adjacent backward", "s2", "s1", true, ""},
		{"skip forward to non-final", "s0", "s2", false, ReasonAdjacentOnly},
		{"skip backward", "s3", "s1", false, ReasonAdjacentOnly},
		{"jump to final from anywhere", "s0", "s4", true, ""},
		{"adjacent into final", "s3", "s4", true, ""},
		{"far backward from final", "s4", "s0", false, ReasonAdjacentOnly},
		{"adjacent backward from final", "s4", "s3", false, ReasonBackwardFromFinal},
		{"unknown from stage", "missing", "s1", false, ReasonInvalidStage},
		{"unknown to stage", "s1", "missing", false, ReasonInvalidStage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateTransition(workflow, tt.from, tt.to)
			assert.Equal(t, tt.valid, result.Valid)
			assert.Equal(t, tt.reason, result.Reason)
		})
	}
}

func TestValidateTransition_BackwardFromFinal(t *testing.T) {
	// A denormalized row set: the final flag sits on a stage that still has
	// a lower-order neighbor one step away.
	workflow := &models.Workflow{
		ID:   1,
		Name: "Hand Edited",
		Stages: []models.Stage{
			{ID: "a", Name: "Open", Order: 0, IsInitial: true},
			{ID: "b", Name: "Closed", Order: 1, IsFinal: true},
		},
	}

	result := ValidateTransition(workflow, "b", "a")
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonBackwardFromFinal, result.Reason)
}

// WorkflowServiceTestSuite defines the test suite for WorkflowService
type WorkflowServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *WorkflowService
}

// SetupTest runs before each test
func (suite *WorkflowServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Workflow{},
		&models.Stage{},
		&models.Task{},
		&models.TaskAssignment{},
		&models.ActivityLogEntry{},
	)
	suite.Require().NoError(err)

	database.SetDB(suite.db)

	suite.service = NewWorkflowService(
		repository.NewWorkflowRepository(suite.db),
		repository.NewTaskRepository(suite.db),
	)
}

// TearDownTest runs after each test
func (suite *WorkflowServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *WorkflowServiceTestSuite) createTestUser(email string, role models.UserRole) *models.User {
	user := &models.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: "hashedpassword",
		Role:         role,
		IsActive:     true,
	}
	suite.db.Create(user)
	return user
}

func (suite *WorkflowServiceTestSuite) manager() Actor {
	user := suite.createTestUser("manager@example.com", models.RoleManager)
	return Actor{ID: user.ID, Role: user.Role}
}

func threeStageInputs() []StageInput {
	return []StageInput{
		{Name: "Done", Order: 2},
		{Name: "To Do", Order: 0},
		{Name: "In Progress", Order: 1},
	}
}

func (suite *WorkflowServiceTestSuite) TestCreateWorkflow_NormalizesStages() {
	actor := suite.manager()

	workflow, err := suite.service.CreateWorkflow(CreateWorkflowInput{
		Name:   "Engineering",
		Stages: threeStageInputs(),
		Actor:  actor,
	})
	suite.Require().NoError(err)

	reloaded, err := suite.service.GetWorkflow(workflow.ID, actor)
	suite.Require().NoError(err)
	suite.Require().Len(reloaded.Stages, 3)

	suite.Equal("To Do", reloaded.Stages[0].Name)
	suite.Equal("In Progress", reloaded.Stages[1].Name)
	suite.Equal("Done", reloaded.Stages[2].Name)

	suite.True(reloaded.Stages[0].IsInitial)
	suite.False(reloaded.Stages[0].IsFinal)
	suite.False(reloaded.Stages[1].IsInitial)
	suite.False(reloaded.Stages[1].IsFinal)
	suite.True(reloaded.Stages[2].IsFinal)

	for _, stage := range reloaded.Stages {
		suite.NotEmpty(stage.ID)
		suite.Equal(models.DefaultStageColor, stage.Color)
	}
}

func (suite *WorkflowServiceTestSuite) TestCreateWorkflow_DuplicateName() {
	actor := suite.manager()

	_, err := suite.service.CreateWorkflow(CreateWorkflowInput{
		Name:   "Engineering",
		Stages: threeStageInputs(),
		Actor:  actor,
	})
	suite.Require().NoError(err)

	_, err = suite.service.CreateWorkflow(CreateWorkflowInput{
		Name:   "Engineering",
		Stages: threeStageInputs(),
		Actor:  actor,
	})
	suite.ErrorIs(err, ErrWorkflowNameTaken)
}

func (suite *WorkflowServiceTestSuite) TestCreateWorkflow_MemberDenied() {
	member := suite.createTestUser("member@example.com", models.RoleMember)

	_, err := suite.service.CreateWorkflow(CreateWorkflowInput{
		Name:   "Engineering",
		Stages: threeStageInputs(),
		Actor:  Actor{ID: member.ID, Role: member.Role},
	})
	suite.ErrorIs(err, ErrWorkflowPermissionDenied)
}

func (suite *WorkflowServiceTestSuite) TestCreateWorkflow_RequiresStages() {
	_, err := suite.service.CreateWorkflow(CreateWorkflowInput{
		Name:  "Empty",
		Actor: suite.manager(),
	})
	suite.ErrorIs(err, ErrWorkflowNoStages)
}

func (suite *WorkflowServiceTestSuite) TestCreateWorkflow_DuplicateStageOrder() {
	_, err := suite.service.CreateWorkflow(CreateWorkflowInput{
		Name: "Broken",
		Stages: []StageInput{
			{Name: "A", Order: 0},
			{Name: "B", Order: 0},
		},
		Actor: suite.manager(),
	})
	suite.ErrorIs(err, ErrDuplicateStageOrder)
}

func (suite *WorkflowServiceTestSuite) TestCreateWorkflow_InvalidColor() {
	_, err := suite.service.CreateWorkflow(CreateWorkflowInput{
		Name: "Colorful",
		Stages: []StageInput{
			{Name: "A", Order: 0, Color: "blue"},
		},
		Actor: suite.manager(),
	})
	suite.ErrorIs(err, ErrInvalidStageColor)
}

func (suite *WorkflowServiceTestSuite) TestUpdateWorkflow_ReplacesStagesKeepingIDs() {
	actor := suite.manager()

	workflow, err := suite.service.CreateWorkflow(CreateWorkflowInput{
		Name:   "Engineering",
		Stages: threeStageInputs(),
		Actor:  actor,
	})
	suite.Require().NoError(err)

	keptID := workflow.Stages[0].ID
	updated, err := suite.service.UpdateWorkflow(workflow.ID, UpdateWorkflowInput{
		Stages: []StageInput{
			{ID: keptID, Name: "Inbox", Order: 0},
			{Name: "Shipped", Order: 1},
		},
	}, actor)
	suite.Require().NoError(err)
	suite.Require().Len(updated.Stages, 2)

	suite.Equal(keptID, updated.Stages[0].ID)
	suite.Equal("Inbox", updated.Stages[0].Name)
	suite.True(updated.Stages[0].IsInitial)
	suite.True(updated.Stages[1].IsFinal)
}

func (suite *WorkflowServiceTestSuite) TestUpdateWorkflow_ManagerCannotTouchOthers() {
	owner := suite.manager()
	workflow, err := suite.service.CreateWorkflow(CreateWorkflowInput{
		Name:   "Engineering",
		Stages: threeStageInputs(),
		Actor:  owner,
	})
	suite.Require().NoError(err)

	other := suite.createTestUser("other@example.com", models.RoleManager)
	name := "Hijacked"
	_, err = suite.service.UpdateWorkflow(workflow.ID, UpdateWorkflowInput{Name: &name}, Actor{ID: other.ID, Role: other.Role})
	suite.ErrorIs(err, ErrWorkflowPermissionDenied)
}

func (suite *WorkflowServiceTestSuite) TestDeleteWorkflow_DefaultProtected() {
	actor := suite.manager()

	workflow, err := suite.service.CreateWorkflow(CreateWorkflowInput{
		Name:      "Default Kanban",
		Stages:    threeStageInputs(),
		IsDefault: true,
		Actor:     actor,
	})
	suite.Require().NoError(err)

	err = suite.service.DeleteWorkflow(workflow.ID, actor)
	suite.ErrorIs(err, ErrDefaultWorkflowProtected)
}

func (suite *WorkflowServiceTestSuite) TestDeleteWorkflow_InUse() {
	actor := suite.manager()

	workflow, err := suite.service.CreateWorkflow(CreateWorkflowInput{
		Name:   "Engineering",
		Stages: threeStageInputs(),
		Actor:  actor,
	})
	suite.Require().NoError(err)

	task := &models.Task{
		Title:          "Blocker",
		Priority:       models.PriorityMedium,
		WorkflowID:     workflow.ID,
		CurrentStageID: workflow.Stages[0].ID,
		CreatedByID:    actor.ID,
	}
	suite.Require().NoError(suite.db.Create(task).Error)

	err = suite.service.DeleteWorkflow(workflow.ID, actor)
	suite.ErrorIs(err, ErrWorkflowInUse)
}

func (suite *WorkflowServiceTestSuite) TestCheckTransition_MissingWorkflow() {
	result, err := suite.service.CheckTransition(9999, "a", "b")
	suite.NoError(err)
	suite.False(result.Valid)
	suite.Equal(ReasonWorkflowNotFound, result.Reason)
}

func (suite *WorkflowServiceTestSuite) TestCheckTransition_Probe() {
	actor := suite.manager()

	workflow, err := suite.service.CreateWorkflow(CreateWorkflowInput{
		Name:   "Engineering",
		Stages: threeStageInputs(),
		Actor:  actor,
	})
	suite.Require().NoError(err)

	result, err := suite.service.CheckTransition(workflow.ID, workflow.Stages[0].ID, workflow.Stages[2].ID)
	suite.NoError(err)
	// Distant move, but the destination is final.
	suite.True(result.Valid)
}

func TestWorkflowServiceTestSuite(t *testing.T) {
	suite.Run(t, new(WorkflowServiceTestSuite))
}
