package repository

import (
	"context"
	"errors"

	"github.com/court-opinions/engine/internal/models"
	appErr "github.com/court-opinions/engine/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CaseBatchSize bounds rows per INSERT during import.
const CaseBatchSize = 500

type CaseRepository interface {
	WithTx(tx *gorm.DB) CaseRepository
	CreateBatch(ctx context.Context, cases []models.CaseRecord) error
	ListByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]models.CaseRecord, error)
	CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
	GetInProject(ctx context.Context, projectID, caseID uuid.UUID, dest *models.CaseRecord) error
	DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
}

type caseRepository struct {
	db *gorm.DB
}

func NewCaseRepository(db *gorm.DB) CaseRepository {
	return &caseRepository{db: db}
}

func (r *caseRepository) WithTx(tx *gorm.DB) CaseRepository {
	return NewCaseRepository(tx)
}

func (r *caseRepository) CreateBatch(ctx context.Context, cases []models.CaseRecord) error {
	if len(cases) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(cases, CaseBatchSize).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "insert cases failed")
	}
	return nil
}

// ListByProject returns cases in import order. limit <= 0 returns all.
func (r *caseRepository) ListByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]models.CaseRecord, error) {
	q := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("row_index ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var out []models.CaseRecord
	if err := q.Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list cases failed")
	}
	return out, nil
}

func (r *caseRepository) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.CaseRecord{}).Where("project_id = ?", projectID).Count(&n).Error; err != nil {
		return 0, appErr.Wrap(err, appErr.CodeInternal, "count cases failed")
	}
	return n, nil
}

func (r *caseRepository) GetInProject(ctx context.Context, projectID, caseID uuid.UUID, dest *models.CaseRecord) error {
	err := r.db.WithContext(ctx).First(dest, "id = ? AND project_id = ?", caseID, projectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.NotFound("case not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get case failed")
	}
	return nil
}

func (r *caseRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.CaseRecord{})
	if res.Error != nil {
		return 0, appErr.Wrap(res.Error, appErr.CodeInternal, "delete cases failed")
	}
	return res.RowsAffected, nil
}
