package repository

import (
	"github.com/taskflow/taskflow-api/internal/database"
	"github.com/taskflow/taskflow-api/internal/models"
	"gorm.io/gorm"
)

// GormWorkflowRepository is a GORM implementation of WorkflowRepository
type GormWorkflowRepository struct {
	db *gorm.DB
}

// NewWorkflowRepository creates a new WorkflowRepository
func NewWorkflowRepository(db *gorm.DB) WorkflowRepository {
	return &GormWorkflowRepository{db: db}
}

// Create creates a workflow together with its stages
func (r *GormWorkflowRepository) Create(workflow *models.Workflow) error {
	return r.db.Create(workflow).Error
}

// FindByID finds a workflow by ID with its stages loaded in stage order
func (r *GormWorkflowRepository) FindByID(id uint64, preload ...string) (*models.Workflow, error) {
	var workflow models.Workflow
	query := r.db.Preload("Stages", func(db *gorm.DB) *gorm.DB {
		return db.Order("stages.stage_order ASC")
	})

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&workflow, id).Error; err != nil {
		return nil, err
	}

	return &workflow, nil
}

// FindByName finds a workflow by its unique name
func (r *GormWorkflowRepository) FindByName(name string) (*models.Workflow, error) {
	var workflow models.Workflow
	if err := r.db.Where("name = ?", name).First(&workflow).Error; err != nil {
		return nil, err
	}
	return &workflow, nil
}

// List retrieves workflows with filtering and pagination
func (r *GormWorkflowRepository) List(filter WorkflowFilter) ([]models.Workflow, int64, error) {
	var workflows []models.Workflow

	query := r.db.Model(&models.Workflow{})

	if filter.Search != "" {
		query = query.Where("name LIKE ?", "%"+filter.Search+"%")
	}
	if filter.IsDefault != nil {
		query = query.Where("is_default = ?", *filter.IsDefault)
	}
	if filter.CreatedByID != nil {
		query = query.Where("created_by_id = ?", *filter.CreatedByID)
	}
	if filter.VisibleToUser != nil {
		query = query.Where("is_default = ? OR created_by_id = ?", true, *filter.VisibleToUser)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Scopes(database.Paginate(filter.Page, filter.PageSize)).
		Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("stages.stage_order ASC")
		}).
		Find(&workflows).Error
	if err != nil {
		return nil, 0, err
	}

	return workflows, total, nil
}

// Update saves workflow fields and replaces its stage set in a transaction.
// Stages are value objects owned by the workflow, so the whole set is
// rewritten rather than diffed.
func (r *GormWorkflowRepository) Update(workflow *models.Workflow) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Workflow{}).
			Where("id = ?", workflow.ID).
			Select("name", "description", "is_default").
			Updates(workflow).Error
		if err != nil {
			return err
		}

		if err := tx.Unscoped().Where("workflow_id = ?", workflow.ID).Delete(&models.Stage{}).Error; err != nil {
			return err
		}

		for i := range workflow.Stages {
			workflow.Stages[i].WorkflowID = workflow.ID
		}

		return tx.Create(&workflow.Stages).Error
	})
}

// Delete hard deletes a workflow and its stages
func (r *GormWorkflowRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("workflow_id = ?", id).Delete(&models.Stage{}).Error; err != nil {
			return err
		}

		return tx.Unscoped().Delete(&models.Workflow{}, id).Error
	})
}
