package repository

import (
	"context"

	"github.com/court-opinions/engine/internal/models"
	appErr "github.com/court-opinions/engine/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentRepository interface {
	BaseRepository[models.Assignment]
	ExistsForValidator(ctx context.Context, projectID, validatorID uuid.UUID) (bool, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]models.Assignment, error)
}

type assignmentRepository struct {
	BaseRepository[models.Assignment]
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{BaseRepository: NewBaseRepository[models.Assignment](db, "assignment"), db: db}
}

func (r *assignmentRepository) ExistsForValidator(ctx context.Context, projectID, validatorID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("project_id = ? AND validator_id = ?", projectID, validatorID).
		Limit(1).Count(&n).Error
	if err != nil {
		return false, appErr.Wrap(err, appErr.CodeInternal, "lookup assignment failed")
	}
	return n > 0, nil
}

func (r *assignmentRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]models.Assignment, error) {
	var out []models.Assignment
	if err := r.db.WithContext(ctx).Where("case_id = ?", caseID).Order("priority DESC, assigned_at ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list assignments failed")
	}
	return out, nil
}
