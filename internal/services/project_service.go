package services

import (
	"context"

	"github.com/court-opinions/engine/internal/lock"
	"github.com/court-opinions/engine/internal/models"
	"github.com/court-opinions/engine/internal/policy"
	"github.com/court-opinions/engine/internal/repository"
	"github.com/court-opinions/engine/internal/storage"
	"github.com/court-opinions/engine/internal/workflow"
	appErr "github.com/court-opinions/engine/pkg/errors"
	"github.com/court-opinions/engine/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProjectService owns the project lifecycle.
type ProjectService interface {
	CreateProject(ctx context.Context, actor policy.Actor, input *CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, actor policy.Actor, projectID uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, actor policy.Actor) ([]models.Project, error)
	UpdateProject(ctx context.Context, actor policy.Actor, projectID uuid.UUID, input *UpdateProjectInput) (*models.Project, error)
	DeleteProject(ctx context.Context, actor policy.Actor, projectID uuid.UUID) error

	AssignScholar(ctx context.Context, actor policy.Actor, projectID, scholarID uuid.UUID) (*models.Project, error)
	UnassignScholar(ctx context.Context, actor policy.Actor, projectID uuid.UUID) (*models.Project, error)
	SendToScholar(ctx context.Context, actor policy.Actor, projectID uuid.UUID) (*models.Project, error)
	Launch(ctx context.Context, actor policy.Actor, projectID uuid.UUID) (*models.Project, error)
	UpdateAIModel(ctx context.Context, actor policy.Actor, projectID uuid.UUID, model string) (*models.Project, error)
	SetBudget(ctx context.Context, actor policy.Actor, projectID uuid.UUID, limit float64) (*models.Project, error)
	RecordUsage(ctx context.Context, actor policy.Actor, projectID uuid.UUID, tokens int64, cost float64) (*models.Project, error)
}

type CreateProjectInput struct {
	Name        string
	Description string
	AIModel     string
	BudgetLimit *float64
}

type UpdateProjectInput struct {
	Name        *string
	Description *string
}

// ProjectDefaults fill fields a create request leaves empty.
type ProjectDefaults struct {
	AIModel     string
	BudgetLimit float64
}

type projectService struct {
	*guard
	users    repository.UserRepository
	store    storage.FileStore
	defaults ProjectDefaults
}

func NewProjectService(
	db *gorm.DB,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	assignmentRepo repository.AssignmentRepository,
	store storage.FileStore,
	locker lock.Locker,
	defaults ProjectDefaults,
) ProjectService {
	if defaults.AIModel == "" {
		defaults.AIModel = models.AIModelGPT
	}
	return &projectService{
		guard:    newGuard(db, projectRepo, assignmentRepo, locker),
		users:    userRepo,
		store:    store,
		defaults: defaults,
	}
}

// Ensure interfaces are satisfied at compile time
var _ ProjectService = (*projectService)(nil)

func actorFields(actor policy.Actor, projectID uuid.UUID) []zap.Field {
	return []zap.Field{
		zap.String("project_id", projectID.String()),
		zap.String("user_id", actor.ID.String()),
		zap.String("role", string(actor.Role)),
	}
}

func (s *projectService) CreateProject(ctx context.Context, actor policy.Actor, input *CreateProjectInput) (*models.Project, error) {
	logger.L().Info("create project called", zap.String("user_id", actor.ID.String()), zap.String("name", input.Name))

	if err := policy.Authorize(actor, policy.OpCreate, nil).Err(); err != nil {
		observe(policy.OpCreate, err)
		return nil, err
	}

	model := input.AIModel
	if model == "" {
		model = s.defaults.AIModel
	}
	budget := s.defaults.BudgetLimit
	if input.BudgetLimit != nil {
		budget = *input.BudgetLimit
	}
	p, err := workflow.NewProject(actor.ID, input.Name, input.Description, model, budget)
	if err != nil {
		observe(policy.OpCreate, err)
		return nil, err
	}
	if err := s.projects.Create(ctx, p); err != nil {
		observe(policy.OpCreate, err)
		return nil, err
	}
	observe(policy.OpCreate, nil)

	logger.L().Info("project created", zap.String("project_id", p.ID.String()), zap.String("user_id", actor.ID.String()))
	return p, nil
}

func (s *projectService) GetProject(ctx context.Context, actor policy.Actor, projectID uuid.UUID) (*models.Project, error) {
	logger.L().Info("get project", actorFields(actor, projectID)...)
	return s.read(ctx, actor, policy.OpRead, projectID)
}

// ListProjects returns the projects visible to actor: owned for admins,
// assigned for scholars, holding an assignment for validators.
func (s *projectService) ListProjects(ctx context.Context, actor policy.Actor) ([]models.Project, error) {
	logger.L().Info("list projects", zap.String("user_id", actor.ID.String()), zap.String("role", string(actor.Role)))
	if err := policy.Authorize(actor, policy.OpList, nil).Err(); err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleAdmin:
		return s.projects.ListByAdmin(ctx, actor.ID)
	case models.RoleScholar:
		return s.projects.ListByScholar(ctx, actor.ID)
	default:
		return s.projects.ListByValidator(ctx, actor.ID)
	}
}

func (s *projectService) UpdateProject(ctx context.Context, actor policy.Actor, projectID uuid.UUID, input *UpdateProjectInput) (*models.Project, error) {
	logger.L().Info("update project", actorFields(actor, projectID)...)
	return s.mutate(ctx, actor, policy.OpUpdate, projectID, func(_ *gorm.DB, p *models.Project) error {
		return workflow.UpdateDetails(p, input.Name, input.Description)
	})
}

// DeleteProject removes the project, its cases (by cascade) and its stored
// source file.
func (s *projectService) DeleteProject(ctx context.Context, actor policy.Actor, projectID uuid.UUID) error {
	logger.L().Info("delete project", actorFields(actor, projectID)...)

	var sourcePath *string
	err := s.locked(ctx, projectID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo, p, err := s.inTx(ctx, tx, actor, policy.OpDelete, projectID)
			if err != nil {
				return err
			}
			sourcePath = p.ParquetFilepath
			return repo.Delete(ctx, p.ID)
		})
	})
	observe(policy.OpDelete, err)
	if err != nil {
		return err
	}

	if sourcePath != nil {
		if err := s.store.Remove(*sourcePath); err != nil {
			logger.L().Warn("failed to remove source file", zap.String("project_id", projectID.String()), zap.Error(err))
		}
	}
	logger.L().Info("project deleted", actorFields(actor, projectID)...)
	return nil
}

func (s *projectService) AssignScholar(ctx context.Context, actor policy.Actor, projectID, scholarID uuid.UUID) (*models.Project, error) {
	logger.L().Info("assign scholar", append(actorFields(actor, projectID), zap.String("scholar_id", scholarID.String()))...)

	var scholar models.User
	if err := s.users.GetByID(ctx, scholarID, &scholar); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.NotFound("scholar not found")
		}
		return nil, err
	}
	if scholar.Role != models.RoleScholar || !scholar.IsActive {
		return nil, appErr.Invalid("user is not an active scholar").WithMeta("scholar_id", scholarID.String())
	}

	p, err := s.mutate(ctx, actor, policy.OpAssignScholar, projectID, func(_ *gorm.DB, p *models.Project) error {
		return workflow.AssignScholar(p, scholarID)
	})
	if err != nil {
		return nil, err
	}
	logger.L().Info("scholar assigned", zap.String("project_id", p.ID.String()), zap.String("status", p.Status))
	return p, nil
}

func (s *projectService) UnassignScholar(ctx context.Context, actor policy.Actor, projectID uuid.UUID) (*models.Project, error) {
	logger.L().Info("unassign scholar", actorFields(actor, projectID)...)
	return s.mutate(ctx, actor, policy.OpUnassignScholar, projectID, func(_ *gorm.DB, p *models.Project) error {
		return workflow.UnassignScholar(p)
	})
}

func (s *projectService) SendToScholar(ctx context.Context, actor policy.Actor, projectID uuid.UUID) (*models.Project, error) {
	logger.L().Info("send to scholar", actorFields(actor, projectID)...)
	p, err := s.mutate(ctx, actor, policy.OpSendToScholar, projectID, func(_ *gorm.DB, p *models.Project) error {
		return workflow.SendToScholar(p, s.now())
	})
	if err != nil {
		return nil, err
	}
	logger.L().Info("project sent to scholar", zap.String("project_id", p.ID.String()), zap.Time("sent_to_scholar_at", *p.SentToScholarAt))
	return p, nil
}

func (s *projectService) Launch(ctx context.Context, actor policy.Actor, projectID uuid.UUID) (*models.Project, error) {
	logger.L().Info("launch project", actorFields(actor, projectID)...)
	p, err := s.mutate(ctx, actor, policy.OpLaunch, projectID, func(_ *gorm.DB, p *models.Project) error {
		return workflow.Launch(p, actor.ID, s.now())
	})
	if err != nil {
		return nil, err
	}
	logger.L().Info("project launched", zap.String("project_id", p.ID.String()), zap.Time("launched_at", *p.LaunchedAt))
	return p, nil
}

func (s *projectService) UpdateAIModel(ctx context.Context, actor policy.Actor, projectID uuid.UUID, model string) (*models.Project, error) {
	logger.L().Info("update ai model", append(actorFields(actor, projectID), zap.String("ai_model", model))...)
	return s.mutate(ctx, actor, policy.OpUpdateAIModel, projectID, func(_ *gorm.DB, p *models.Project) error {
		return workflow.UpdateAIModel(p, model)
	})
}

func (s *projectService) SetBudget(ctx context.Context, actor policy.Actor, projectID uuid.UUID, limit float64) (*models.Project, error) {
	logger.L().Info("set budget", append(actorFields(actor, projectID), zap.Float64("budget_limit", limit))...)
	return s.mutate(ctx, actor, policy.OpSetBudget, projectID, func(_ *gorm.DB, p *models.Project) error {
		return workflow.SetBudget(p, limit)
	})
}

// RecordUsage adds token/cost usage. Going over budget only logs a warning.
func (s *projectService) RecordUsage(ctx context.Context, actor policy.Actor, projectID uuid.UUID, tokens int64, cost float64) (*models.Project, error) {
	logger.L().Info("record usage", append(actorFields(actor, projectID), zap.Int64("tokens", tokens), zap.Float64("cost", cost))...)
	var exceeded bool
	p, err := s.mutate(ctx, actor, policy.OpRecordUsage, projectID, func(_ *gorm.DB, p *models.Project) error {
		var err error
		exceeded, err = workflow.RecordUsage(p, tokens, cost)
		return err
	})
	if err != nil {
		return nil, err
	}
	if exceeded {
		logger.L().Warn("project over budget",
			zap.String("project_id", p.ID.String()),
			zap.Float64("total_cost", p.TotalCost),
			zap.Float64("budget_limit", p.BudgetLimit),
		)
	}
	return p, nil
}
