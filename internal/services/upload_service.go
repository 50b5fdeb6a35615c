package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/court-opinions/engine/internal/importer"
	"github.com/court-opinions/engine/internal/lock"
	"github.com/court-opinions/engine/internal/models"
	"github.com/court-opinions/engine/internal/policy"
	"github.com/court-opinions/engine/internal/repository"
	"github.com/court-opinions/engine/internal/storage"
	"github.com/court-opinions/engine/internal/workflow"
	appErr "github.com/court-opinions/engine/pkg/errors"
	"github.com/court-opinions/engine/pkg/logger"
	"github.com/court-opinions/engine/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SourceExtension is the only accepted upload file extension.
const SourceExtension = ".parquet"

// UploadService imports and removes a project's tabular source.
type UploadService interface {
	Upload(ctx context.Context, actor policy.Actor, projectID uuid.UUID, filename string, r io.Reader) (*UploadSummary, error)
	RemoveSource(ctx context.Context, actor policy.Actor, projectID uuid.UUID) (*RemovalSummary, error)
	CountCases(ctx context.Context, actor policy.Actor, projectID uuid.UUID) (int64, error)
}

type UploadSummary struct {
	ProjectID     uuid.UUID           `json:"project_id"`
	Filename      string              `json:"filename"`
	TotalRows     int                 `json:"total_rows"`
	CasesImported int                 `json:"cases_imported"`
	FileSizeMB    float64             `json:"file_size_mb"`
	SHA256        string              `json:"sha256"`
	Status        string              `json:"status"`
	Errors        []importer.RowError `json:"errors"`
}

type RemovalSummary struct {
	RemovedCount int64  `json:"removedCount"`
	Message      string `json:"message"`
}

type uploadService struct {
	*guard
	cases repository.CaseRepository
	store storage.FileStore
}

func NewUploadService(
	db *gorm.DB,
	projectRepo repository.ProjectRepository,
	caseRepo repository.CaseRepository,
	assignmentRepo repository.AssignmentRepository,
	store storage.FileStore,
	locker lock.Locker,
) UploadService {
	return &uploadService{
		guard: newGuard(db, projectRepo, assignmentRepo, locker),
		cases: caseRepo,
		store: store,
	}
}

var _ UploadService = (*uploadService)(nil)

// Upload stores, parses and imports a Parquet source. Either every valid row
// and the project update commit together, or nothing changes and the stored
// file is removed.
func (s *uploadService) Upload(ctx context.Context, actor policy.Actor, projectID uuid.UUID, filename string, r io.Reader) (*UploadSummary, error) {
	logger.L().Info("upload source", append(actorFields(actor, projectID), zap.String("filename", filename))...)

	name := storage.CleanFilename(filename)
	if !strings.EqualFold(filepath.Ext(name), SourceExtension) {
		return nil, appErr.Invalid("only .parquet files are accepted").WithMeta("filename", name)
	}

	// Fail fast before streaming the body.
	p, err := s.read(ctx, actor, policy.OpUploadSource, projectID)
	if err != nil {
		return nil, err
	}
	if err := workflow.CanUpload(p); err != nil {
		return nil, err
	}

	var summary *UploadSummary
	err = s.locked(ctx, projectID, func() error {
		var err error
		summary, err = s.importLocked(ctx, actor, projectID, name, r)
		return err
	})
	observe(policy.OpUploadSource, err)
	if err != nil {
		return nil, err
	}

	logger.L().Info("source imported",
		zap.String("project_id", projectID.String()),
		zap.Int("total_rows", summary.TotalRows),
		zap.Int("cases_imported", summary.CasesImported),
		zap.Int("rejected", len(summary.Errors)),
	)
	return summary, nil
}

func (s *uploadService) importLocked(ctx context.Context, actor policy.Actor, projectID uuid.UUID, name string, r io.Reader) (*UploadSummary, error) {
	start := time.Now()
	// Re-check under the lock so a concurrent upload's file is never overwritten.
	p, err := s.read(ctx, actor, policy.OpUploadSource, projectID)
	if err != nil {
		return nil, err
	}
	if err := workflow.CanUpload(p); err != nil {
		return nil, err
	}

	stored, err := s.store.Save(ctx, projectID, name, r)
	if err != nil {
		return nil, err
	}

	summary, err := s.parseAndCommit(ctx, actor, projectID, stored)
	if err != nil {
		if rmErr := s.store.Remove(stored.Path); rmErr != nil {
			logger.L().Warn("failed to remove rejected source", zap.String("path", stored.Path), zap.Error(rmErr))
		}
		return nil, err
	}
	metrics.RecordImport(summary.CasesImported, len(summary.Errors), start)
	return summary, nil
}

func (s *uploadService) parseAndCommit(ctx context.Context, actor policy.Actor, projectID uuid.UUID, stored *storage.Stored) (*UploadSummary, error) {
	f, err := s.store.Open(stored.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := importer.OpenParquet(f, stored.Size)
	if err != nil {
		return nil, err
	}
	res, err := importer.Import(ctx, src)
	if err != nil {
		return nil, err
	}

	rows := make([]models.CaseRecord, 0, res.Imported())
	for i, rec := range res.Records {
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInternal, "encode case failed")
		}
		rows = append(rows, models.CaseRecord{ProjectID: projectID, RowIndex: i, Data: datatypes.JSON(data)})
	}

	var status string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo, p, err := s.inTx(ctx, tx, actor, policy.OpUploadSource, projectID)
		if err != nil {
			return err
		}
		if err := workflow.ApplyImport(p, stored.Name, stored.Path, stored.SHA256, len(rows)); err != nil {
			var ae *appErr.AppError
			if errors.As(err, &ae) && ae.Code == appErr.CodeInvalid {
				ae.WithMeta("errors", res.Messages())
			}
			return err
		}
		if err := s.cases.WithTx(tx).CreateBatch(ctx, rows); err != nil {
			return err
		}
		if err := repo.UpdateVersioned(ctx, p); err != nil {
			return err
		}
		status = p.Status
		return nil
	})
	if err != nil {
		return nil, err
	}

	errs := res.Errors
	if errs == nil {
		errs = []importer.RowError{}
	}
	return &UploadSummary{
		ProjectID:     projectID,
		Filename:      stored.Name,
		TotalRows:     res.TotalRows,
		CasesImported: res.Imported(),
		FileSizeMB:    math.Round(float64(stored.Size)/(1024*1024)*100) / 100,
		SHA256:        stored.SHA256,
		Status:        status,
		Errors:        errs,
	}, nil
}

// RemoveSource deletes every case and clears the source fields. It succeeds
// on a project without a source.
func (s *uploadService) RemoveSource(ctx context.Context, actor policy.Actor, projectID uuid.UUID) (*RemovalSummary, error) {
	logger.L().Info("remove source", actorFields(actor, projectID)...)

	var (
		removed int64
		path    *string
	)
	_, err := s.mutate(ctx, actor, policy.OpRemoveSource, projectID, func(tx *gorm.DB, p *models.Project) error {
		n, err := s.cases.WithTx(tx).DeleteByProject(ctx, p.ID)
		if err != nil {
			return err
		}
		removed = n
		path = p.ParquetFilepath
		workflow.ApplyRemoval(p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if path != nil {
		if err := s.store.Remove(*path); err != nil {
			logger.L().Warn("failed to remove source file", zap.String("project_id", projectID.String()), zap.Error(err))
		}
	}
	logger.L().Info("source removed", zap.String("project_id", projectID.String()), zap.Int64("removed", removed))
	return &RemovalSummary{
		RemovedCount: removed,
		Message:      fmt.Sprintf("Parquet source and %d cases removed", removed),
	}, nil
}

func (s *uploadService) CountCases(ctx context.Context, actor policy.Actor, projectID uuid.UUID) (int64, error) {
	if _, err := s.read(ctx, actor, policy.OpReadCases, projectID); err != nil {
		return 0, err
	}
	return s.cases.CountByProject(ctx, projectID)
}
