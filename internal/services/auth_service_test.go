package services

import (
	"context"
	"testing"
	"time"

	"github.com/court-opinions/engine/internal/models"
	appErr "github.com/court-opinions/engine/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestRegisterLoginAndParse(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	token, user, err := e.auth.Login(ctx, "SCHOLAR@court.test", "password123")
	require.NoError(t, err)
	require.Equal(t, e.scholar.ID, user.ID)

	actor, err := e.auth.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, e.scholar, actor)

	_, _, err = e.auth.Login(ctx, "scholar@court.test", "wrong-password")
	require.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
	_, _, err = e.auth.Login(ctx, "nobody@court.test", "password123")
	require.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))

	_, err = e.auth.Register(ctx, &RegisterInput{Email: "scholar@court.test", Password: "password123", Role: models.RoleScholar})
	require.True(t, appErr.IsCode(err, appErr.CodeAlreadyExists))
	_, err = e.auth.Register(ctx, &RegisterInput{Email: "x@court.test", Password: "password123", Role: "root"})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	me, err := e.auth.Me(ctx, e.admin.ID)
	require.NoError(t, err)
	require.Equal(t, "admin@court.test", me.Email)
}

func TestInactiveUserCannotLogin(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.db.Model(&models.User{}).Where("id = ?", e.scholar2.ID).Update("is_active", false).Error)

	_, _, err := e.auth.Login(context.Background(), "scholar2@court.test", "password123")
	require.True(t, appErr.IsCode(err, appErr.CodeForbidden))

	scholars, err := e.auth.ListScholars(context.Background())
	require.NoError(t, err)
	require.Len(t, scholars, 1)
	require.Equal(t, e.scholar.ID, scholars[0].ID)
}

func TestParseTokenRejectsTampering(t *testing.T) {
	e := newEnv(t)
	token, _, err := e.auth.Login(context.Background(), "admin@court.test", "password123")
	require.NoError(t, err)

	_, err = e.auth.ParseToken(token + "x")
	require.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: e.admin.ID.String()},
	})
	s, err := forged.SignedString([]byte("another-secret-entirely"))
	require.NoError(t, err)
	_, err = e.auth.ParseToken(s)
	require.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))

	old := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   e.admin.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	s, err = old.SignedString([]byte("test-secret-0123456789"))
	require.NoError(t, err)
	_, err = e.auth.ParseToken(s)
	require.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
}
