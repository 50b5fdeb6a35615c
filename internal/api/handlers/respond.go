package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/court-opinions/engine/internal/api/middleware"
	"github.com/court-opinions/engine/internal/api/types"
	"github.com/court-opinions/engine/internal/api/validators"
	"github.com/court-opinions/engine/internal/policy"
	"github.com/court-opinions/engine/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.APIResponse{Success: true, Data: data})
}

// writeError maps err onto its HTTP status. Server-side failures are logged
// and never expose their cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := types.StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, types.APIResponse{
		Success: false,
		Error:   types.FromAppError(err),
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

func writeErrorStr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.APIResponse{Success: false, Error: &types.APIError{Code: "invalid", Message: msg}})
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := validators.New().Struct(dst); err != nil {
		writeErrorStr(w, http.StatusBadRequest, validators.Message(err))
		return false
	}
	return true
}

func actorFrom(w http.ResponseWriter, r *http.Request) (policy.Actor, bool) {
	a, ok := middleware.GetActor(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, types.APIResponse{
			Success: false,
			Error:   &types.APIError{Code: "unauthorized", Message: "authentication required"},
		})
	}
	return a, ok
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// intQuery parses a non-negative integer query parameter; absent yields def.
func intQuery(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}

func boolQuery(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

// target resolves the actor and the {id} path parameter.
func target(w http.ResponseWriter, r *http.Request) (policy.Actor, uuid.UUID, bool) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return policy.Actor{}, uuid.Nil, false
	}
	id, ok := uuidParam(w, r, "id")
	return actor, id, ok
}
