package main

import (
	"context"
	"fmt"
	"io"

	"github.com/court-opinions/engine/internal/models"
	"github.com/court-opinions/engine/internal/services"
	appErr "github.com/court-opinions/engine/pkg/errors"
	"github.com/court-opinions/engine/pkg/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type seedUser struct {
	Email    string      `yaml:"email"`
	Password string      `yaml:"password"`
	FullName string      `yaml:"full_name"`
	Role     models.Role `yaml:"role"`
}

type seedFile struct {
	Users []seedUser `yaml:"users"`
}

func parseSeed(r io.Reader) ([]seedUser, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f seedFile
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for i, u := range f.Users {
		if u.Email == "" || u.Password == "" {
			return nil, fmt.Errorf("users[%d]: email and password are required", i)
		}
		if !u.Role.Valid() {
			return nil, fmt.Errorf("users[%d]: unknown role %q", i, u.Role)
		}
	}
	return f.Users, nil
}

// seed registers every user. Existing accounts are left untouched.
func seed(ctx context.Context, auth services.AuthService, users []seedUser) (created, skipped int, err error) {
	for _, u := range users {
		_, err := auth.Register(ctx, &services.RegisterInput{
			Email:    u.Email,
			Password: u.Password,
			FullName: u.FullName,
			Role:     u.Role,
		})
		switch {
		case err == nil:
			created++
		case appErr.IsCode(err, appErr.CodeAlreadyExists):
			logger.L().Info("user already present", zap.String("email", u.Email))
			skipped++
		default:
			return created, skipped, fmt.Errorf("register %s: %w", u.Email, err)
		}
	}
	return created, skipped, nil
}
