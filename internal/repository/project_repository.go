package repository

import (
	"context"
	"time"

	"github.com/court-opinions/engine/internal/models"
	appErr "github.com/court-opinions/engine/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectRepository interface {
	BaseRepository[models.Project]
	WithTx(tx *gorm.DB) ProjectRepository
	ListByAdmin(ctx context.Context, adminID uuid.UUID) ([]models.Project, error)
	ListByScholar(ctx context.Context, scholarID uuid.UUID) ([]models.Project, error)
	ListByValidator(ctx context.Context, validatorID uuid.UUID) ([]models.Project, error)
	// UpdateVersioned writes p only if the stored version still equals
	// p.Version, then advances p.Version.
	UpdateVersioned(ctx context.Context, p *models.Project) error
}

type projectRepository struct {
	BaseRepository[models.Project]
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{BaseRepository: NewBaseRepository[models.Project](db, "project"), db: db}
}

func (r *projectRepository) WithTx(tx *gorm.DB) ProjectRepository {
	return NewProjectRepository(tx)
}

func (r *projectRepository) list(ctx context.Context, what string, query any, args ...any) ([]models.Project, error) {
	var out []models.Project
	if err := r.db.WithContext(ctx).Where(query, args...).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list projects by "+what+" failed")
	}
	return out, nil
}

func (r *projectRepository) ListByAdmin(ctx context.Context, adminID uuid.UUID) ([]models.Project, error) {
	return r.list(ctx, "admin", "admin_id = ?", adminID)
}

func (r *projectRepository) ListByScholar(ctx context.Context, scholarID uuid.UUID) ([]models.Project, error) {
	return r.list(ctx, "scholar", "scholar_id = ?", scholarID)
}

func (r *projectRepository) ListByValidator(ctx context.Context, validatorID uuid.UUID) ([]models.Project, error) {
	sub := r.db.Model(&models.Assignment{}).Select("project_id").Where("validator_id = ?", validatorID)
	return r.list(ctx, "validator", "id IN (?)", sub)
}

func (r *projectRepository) UpdateVersioned(ctx context.Context, p *models.Project) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]any{
			"name":               p.Name,
			"description":        p.Description,
			"status":             p.Status,
			"scholar_id":         p.ScholarID,
			"ai_model":           p.AIModel,
			"total_tokens_used":  p.TotalTokensUsed,
			"total_cost":         p.TotalCost,
			"budget_limit":       p.BudgetLimit,
			"parquet_filename":   p.ParquetFilename,
			"parquet_filepath":   p.ParquetFilepath,
			"parquet_sha256":     p.ParquetSHA256,
			"total_cases":        p.TotalCases,
			"sent_to_scholar_at": p.SentToScholarAt,
			"launched_at":        p.LaunchedAt,
			"version":            p.Version + 1,
			"updated_at":         now,
		})
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update project failed")
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", p.ID).Count(&count).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "update project failed")
		}
		if count == 0 {
			return appErr.NotFound("project not found")
		}
		return appErr.New(appErr.CodeConflict, "project was modified concurrently").WithMeta("version", p.Version)
	}
	p.Version++
	p.UpdatedAt = now
	return nil
}
