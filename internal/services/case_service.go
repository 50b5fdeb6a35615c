package services

import (
	"context"
	"encoding/json"

	"github.com/court-opinions/engine/internal/lock"
	"github.com/court-opinions/engine/internal/models"
	"github.com/court-opinions/engine/internal/policy"
	"github.com/court-opinions/engine/internal/projection"
	"github.com/court-opinions/engine/internal/record"
	"github.com/court-opinions/engine/internal/repository"
	appErr "github.com/court-opinions/engine/pkg/errors"
	"github.com/court-opinions/engine/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CaseService reads a project's imported cases.
type CaseService interface {
	ListCases(ctx context.Context, actor policy.Actor, projectID uuid.UUID, page Page) ([]*record.Record, error)
	Table(ctx context.Context, actor policy.Actor, projectID uuid.UUID, query TableQuery) (*projection.Table, error)
}

// Page bounds a listing. Limit <= 0 means no limit.
type Page struct {
	Limit  int
	Offset int
}

// TableQuery selects the displayed columns. All wins over Columns; with
// neither, the default starter columns are shown.
type TableQuery struct {
	Columns []string
	All     bool
	Page    Page
}

type caseService struct {
	*guard
	cases repository.CaseRepository
}

func NewCaseService(
	db *gorm.DB,
	projectRepo repository.ProjectRepository,
	caseRepo repository.CaseRepository,
	assignmentRepo repository.AssignmentRepository,
	locker lock.Locker,
) CaseService {
	return &caseService{
		guard: newGuard(db, projectRepo, assignmentRepo, locker),
		cases: caseRepo,
	}
}

var _ CaseService = (*caseService)(nil)

// ListCases returns cases in import order. Each record leads with its id.
func (s *caseService) ListCases(ctx context.Context, actor policy.Actor, projectID uuid.UUID, page Page) ([]*record.Record, error) {
	logger.L().Info("list cases", actorFields(actor, projectID)...)
	if _, err := s.read(ctx, actor, policy.OpReadCases, projectID); err != nil {
		return nil, err
	}
	rows, err := s.cases.ListByProject(ctx, projectID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]*record.Record, 0, len(rows))
	for i := range rows {
		rec, err := decodeCase(&rows[i])
		if err != nil {
			logger.L().Error("stored case is not a json object", zap.String("case_id", rows[i].ID.String()), zap.Error(err))
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *caseService) Table(ctx context.Context, actor policy.Actor, projectID uuid.UUID, query TableQuery) (*projection.Table, error) {
	records, err := s.ListCases(ctx, actor, projectID, query.Page)
	if err != nil {
		return nil, err
	}
	t := projection.Build(records, func(sel *projection.Selection) {
		switch {
		case query.All:
			sel.SelectAll()
		case len(query.Columns) > 0:
			sel.SelectNone()
			for _, c := range query.Columns {
				if !sel.IsSelected(c) {
					sel.Toggle(c)
				}
			}
		}
	})
	return &t, nil
}

func decodeCase(c *models.CaseRecord) (*record.Record, error) {
	data := record.New()
	if err := json.Unmarshal([]byte(c.Data), data); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "decode case failed")
	}
	out := record.New()
	out.Set(projection.IDField, record.String(c.ID.String()))
	for _, f := range data.Fields() {
		out.Set(f.Name, f.Value)
	}
	return out, nil
}
