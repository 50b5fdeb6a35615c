package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/court-opinions/engine/internal/models"
	appErr "github.com/court-opinions/engine/pkg/errors"
	"gorm.io/gorm"
)

type UserRepository interface {
	BaseRepository[models.User]
	GetByEmail(ctx context.Context, email string, dest *models.User) error
	ListByRole(ctx context.Context, role models.Role, activeOnly bool) ([]models.User, error)
}

type userRepository struct {
	BaseRepository[models.User]
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{BaseRepository: NewBaseRepository[models.User](db, "user"), db: db}
}

func (r *userRepository) GetByEmail(ctx context.Context, email string, dest *models.User) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.NotFound("user not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get user by email failed")
	}
	return nil
}

func (r *userRepository) ListByRole(ctx context.Context, role models.Role, activeOnly bool) ([]models.User, error) {
	q := r.db.WithContext(ctx).Where("role = ?", role)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []models.User
	if err := q.Order("full_name ASC, email ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list users by role failed")
	}
	return out, nil
}
