package handlers

import (
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/court-opinions/engine/internal/api/types"
	"github.com/court-opinions/engine/internal/models"
	"github.com/court-opinions/engine/internal/services"
)

type AuthHandler struct {
	auth     services.AuthService
	tokenTTL time.Duration
}

func NewAuthHandler(auth services.AuthService, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, tokenTTL: tokenTTL}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.auth.Register(r.Context(), &services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, types.NewUserResponse(u))
}

// Login accepts a JSON body or an OAuth2 password-grant form
// (username, password).
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := r.ParseMultipartForm(maxJSONBody); err != nil && err != http.ErrNotMultipart {
			writeErrorStr(w, http.StatusBadRequest, "invalid form")
			return
		}
		req.Username = r.FormValue("username")
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")
	default:
		if !decode(w, r, &req) {
			return
		}
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = strings.TrimSpace(req.Username)
	}
	if email == "" || req.Password == "" {
		writeErrorStr(w, http.StatusBadRequest, "email and password are required")
		return
	}

	token, u, err := h.auth.Login(r.Context(), email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, types.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.tokenTTL.Seconds()),
		User:        types.NewUserResponse(u),
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	u, err := h.auth.Me(r.Context(), actor.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, types.NewUserResponse(u))
}

// Scholars lists active scholar accounts for the assignment picker.
func (h *AuthHandler) Scholars(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFrom(w, r); !ok {
		return
	}
	users, err := h.auth.ListScholars(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]types.ScholarResponse, len(users))
	for i, u := range users {
		out[i] = types.ScholarResponse{ID: u.ID, Email: u.Email, FullName: u.FullName}
	}
	writeData(w, http.StatusOK, out)
}
