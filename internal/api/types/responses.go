package types

import (
	"github.com/court-opinions/engine/internal/models"
	"github.com/google/uuid"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type APIError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Rule    string   `json:"rule,omitempty"`
	Details string   `json:"details,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
	Page      int    `json:"page,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
	Total     int64  `json:"total,omitempty"`
}

// ProjectResponse adds derived fields to a project.
type ProjectResponse struct {
	*models.Project
	BudgetExceeded bool `json:"budget_exceeded"`
}

func NewProjectResponse(p *models.Project) ProjectResponse {
	return ProjectResponse{Project: p, BudgetExceeded: p.BudgetExceeded()}
}

func NewProjectList(ps []models.Project) []ProjectResponse {
	out := make([]ProjectResponse, len(ps))
	for i := range ps {
		out[i] = NewProjectResponse(&ps[i])
	}
	return out
}

type UserResponse struct {
	ID       uuid.UUID   `json:"id"`
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	Role     models.Role `json:"role"`
	IsActive bool        `json:"is_active"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role, IsActive: u.IsActive}
}

// ScholarResponse is the public shape of a scholar account.
type ScholarResponse struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
}

type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        UserResponse `json:"user"`
}

type CaseCountResponse struct {
	ProjectID  uuid.UUID `json:"project_id"`
	TotalCases int64     `json:"total_cases"`
}
