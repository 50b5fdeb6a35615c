package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/court-opinions/engine/internal/models"
	"github.com/court-opinions/engine/internal/policy"
	"github.com/court-opinions/engine/internal/repository"
	appErr "github.com/court-opinions/engine/pkg/errors"
	"github.com/court-opinions/engine/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Register(ctx context.Context, input *RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	ParseToken(token string) (policy.Actor, error)
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
	ListScholars(ctx context.Context) ([]models.User, error)
}

type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Role     models.Role
}

// TokenClaims is the bearer token payload. Subject carries the user id.
type TokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	userRepo   repository.UserRepository
	hmacSecret []byte
	tokenTTL   time.Duration
	now        func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, secret []byte, tokenTTL time.Duration) AuthService {
	return &authService{
		userRepo:   userRepo,
		hmacSecret: secret,
		tokenTTL:   tokenTTL,
		now:        time.Now,
	}
}

var _ AuthService = (*authService)(nil)

func (s *authService) Register(ctx context.Context, input *RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	logger.L().Info("register user", zap.String("email", email), zap.String("role", string(input.Role)))

	if email == "" || input.Password == "" {
		return nil, appErr.Invalid("email and password are required")
	}
	if !input.Role.Valid() {
		return nil, appErr.Invalid("unknown role").WithMeta("role", string(input.Role))
	}

	ph, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "hash password failed")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(ph),
		FullName:     strings.TrimSpace(input.FullName),
		Role:         input.Role,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if appErr.IsCode(err, appErr.CodeAlreadyExists) {
			return nil, appErr.Wrap(err, appErr.CodeAlreadyExists, "email already registered")
		}
		return nil, err
	}

	logger.L().Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	var user models.User
	if err := s.userRepo.GetByEmail(ctx, email, &user); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return "", nil, appErr.New(appErr.CodeUnauthorized, "invalid credentials")
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, appErr.New(appErr.CodeUnauthorized, "invalid credentials")
	}
	if !user.IsActive {
		return "", nil, appErr.New(appErr.CodeForbidden, "inactive user")
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	})

	tokenString, err := token.SignedString(s.hmacSecret)
	if err != nil {
		return "", nil, appErr.Wrap(err, appErr.CodeInternal, "sign token failed")
	}

	logger.L().Info("user logged in", zap.String("user_id", user.ID.String()))
	return tokenString, &user, nil
}

// ParseToken verifies a bearer token and returns the actor it names.
func (s *authService) ParseToken(tokenStr string) (policy.Actor, error) {
	var claims TokenClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.hmacSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		if err == nil {
			err = errors.New("token invalid")
		}
		return policy.Actor{}, appErr.Wrap(err, appErr.CodeUnauthorized, "invalid token")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return policy.Actor{}, appErr.Wrap(err, appErr.CodeUnauthorized, "invalid token subject")
	}
	role := models.Role(claims.Role)
	if !role.Valid() {
		return policy.Actor{}, appErr.New(appErr.CodeUnauthorized, "invalid token role")
	}
	return policy.Actor{ID: id, Role: role}, nil
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.userRepo.GetByID(ctx, userID, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListScholars returns active scholar accounts.
func (s *authService) ListScholars(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListByRole(ctx, models.RoleScholar, true)
}
