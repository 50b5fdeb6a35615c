package services

import (
	"context"
	"errors"
	"time"

	"github.com/court-opinions/engine/internal/lock"
	"github.com/court-opinions/engine/internal/models"
	"github.com/court-opinions/engine/internal/policy"
	"github.com/court-opinions/engine/internal/repository"
	appErr "github.com/court-opinions/engine/pkg/errors"
	"github.com/court-opinions/engine/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// guard loads projects, applies the access policy and serializes mutations.
type guard struct {
	db          *gorm.DB
	projects    repository.ProjectRepository
	assignments repository.AssignmentRepository
	locker      lock.Locker
	now         func() time.Time
}

func newGuard(db *gorm.DB, projects repository.ProjectRepository, assignments repository.AssignmentRepository, locker lock.Locker) *guard {
	return &guard{
		db:          db,
		projects:    projects,
		assignments: assignments,
		locker:      locker,
		now:         func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// read loads a committed project and authorizes op on it.
func (g *guard) read(ctx context.Context, actor policy.Actor, op policy.Operation, projectID uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := g.projects.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	assigned := false
	if actor.Role == models.RoleValidator {
		ok, err := g.assignments.ExistsForValidator(ctx, projectID, actor.ID)
		if err != nil {
			return nil, err
		}
		assigned = ok
	}
	if err := policy.Authorize(actor, op, policy.ResourceOf(&p, assigned)).Err(); err != nil {
		return nil, err
	}
	return &p, nil
}

// locked runs fn while holding the project's mutation lock.
func (g *guard) locked(ctx context.Context, projectID uuid.UUID, fn func() error) error {
	stop := metrics.TrackLockWait()
	unlock, err := g.locker.Lock(ctx, lock.ProjectKey(projectID.String()))
	stop()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return appErr.Wrap(err, appErr.CodeDeadline, "timed out waiting for project lock")
		}
		return appErr.Wrap(err, appErr.CodeUnavailable, "project lock unavailable")
	}
	defer unlock()
	return fn()
}

// inTx loads the project inside tx and authorizes op. Callers already hold
// the lock.
func (g *guard) inTx(ctx context.Context, tx *gorm.DB, actor policy.Actor, op policy.Operation, projectID uuid.UUID) (repository.ProjectRepository, *models.Project, error) {
	repo := g.projects.WithTx(tx)
	var p models.Project
	if err := repo.GetByID(ctx, projectID, &p); err != nil {
		return nil, nil, err
	}
	// Validators never hold a mutating permission, so the assignment lookup
	// is skipped here.
	if err := policy.Authorize(actor, op, policy.ResourceOf(&p, false)).Err(); err != nil {
		return nil, nil, err
	}
	return repo, &p, nil
}

// mutate applies fn to the project and persists it with a version check, all
// under the lock and inside one transaction.
func (g *guard) mutate(ctx context.Context, actor policy.Actor, op policy.Operation, projectID uuid.UUID, fn func(tx *gorm.DB, p *models.Project) error) (*models.Project, error) {
	var out *models.Project
	err := g.locked(ctx, projectID, func() error {
		return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo, p, err := g.inTx(ctx, tx, actor, op, projectID)
			if err != nil {
				return err
			}
			if err := fn(tx, p); err != nil {
				return err
			}
			if err := repo.UpdateVersioned(ctx, p); err != nil {
				return err
			}
			out = p
			return nil
		})
	})
	observe(op, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func observe(op policy.Operation, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(appErr.CodeOf(err))
	}
	metrics.RecordTransition(string(op), outcome)
}
