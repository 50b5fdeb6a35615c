package services

import (
	"context"
	"strings"

	"github.com/court-opinions/engine/internal/lock"
	"github.com/court-opinions/engine/internal/models"
	"github.com/court-opinions/engine/internal/policy"
	"github.com/court-opinions/engine/internal/repository"
	appErr "github.com/court-opinions/engine/pkg/errors"
	"github.com/court-opinions/engine/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AssignmentService links validators to cases.
type AssignmentService interface {
	AssignValidator(ctx context.Context, actor policy.Actor, projectID, caseID uuid.UUID, input *AssignValidatorInput) (*models.Assignment, error)
}

type AssignValidatorInput struct {
	ValidatorID uuid.UUID
	Priority    int
	Notes       string
}

type assignmentService struct {
	*guard
	cases repository.CaseRepository
	users repository.UserRepository
}

func NewAssignmentService(
	db *gorm.DB,
	projectRepo repository.ProjectRepository,
	caseRepo repository.CaseRepository,
	userRepo repository.UserRepository,
	assignmentRepo repository.AssignmentRepository,
	locker lock.Locker,
) AssignmentService {
	return &assignmentService{
		guard: newGuard(db, projectRepo, assignmentRepo, locker),
		cases: caseRepo,
		users: userRepo,
	}
}

var _ AssignmentService = (*assignmentService)(nil)

func (s *assignmentService) AssignValidator(ctx context.Context, actor policy.Actor, projectID, caseID uuid.UUID, input *AssignValidatorInput) (*models.Assignment, error) {
	logger.L().Info("assign validator", append(actorFields(actor, projectID),
		zap.String("case_id", caseID.String()),
		zap.String("validator_id", input.ValidatorID.String()),
	)...)

	if _, err := s.read(ctx, actor, policy.OpAssignValidator, projectID); err != nil {
		return nil, err
	}

	var c models.CaseRecord
	if err := s.cases.GetInProject(ctx, projectID, caseID, &c); err != nil {
		return nil, err
	}

	var v models.User
	if err := s.users.GetByID(ctx, input.ValidatorID, &v); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.NotFound("validator not found")
		}
		return nil, err
	}
	if v.Role != models.RoleValidator || !v.IsActive {
		return nil, appErr.Invalid("user is not an active validator").WithMeta("validator_id", v.ID.String())
	}

	a := &models.Assignment{
		CaseID:      c.ID,
		ValidatorID: v.ID,
		ProjectID:   projectID,
		Status:      models.AssignmentPending,
		Priority:    input.Priority,
		Notes:       strings.TrimSpace(input.Notes),
	}
	if err := s.assignments.Create(ctx, a); err != nil {
		if appErr.IsCode(err, appErr.CodeAlreadyExists) {
			return nil, appErr.Wrap(err, appErr.CodeConflict, "validator already assigned to this case")
		}
		return nil, err
	}
	logger.L().Info("validator assigned", zap.String("assignment_id", a.ID.String()))
	return a, nil
}
