package types

import (
	"errors"
	"net/http"

	appErr "github.com/court-opinions/engine/pkg/errors"
)

// FromAppError converts err to the wire error. Policy violations carry the
// broken rule and the missing prerequisite.
func FromAppError(err error) *APIError {
	if err == nil {
		return nil
	}
	var e *appErr.AppError
	if !errors.As(err, &e) {
		return &APIError{Code: string(appErr.CodeInternal), Message: "internal error"}
	}
	out := &APIError{Code: string(e.Code), Message: e.Message}
	if e.Code == appErr.CodeInternal || e.Code == appErr.CodeUnknown {
		out.Message = "internal error"
		return out
	}
	if rule, ok := e.Meta[appErr.MetaRule].(string); ok {
		out.Rule = rule
	}
	if missing, ok := e.Meta[appErr.MetaMissing].(string); ok {
		out.Details = missing
	}
	if rows, ok := e.Meta["errors"].([]string); ok {
		out.Errors = rows
	}
	return out
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch appErr.CodeOf(err) {
	case appErr.CodeInvalid:
		return http.StatusBadRequest
	case appErr.CodeNotFound:
		return http.StatusNotFound
	case appErr.CodeUnauthorized:
		return http.StatusUnauthorized
	case appErr.CodeForbidden:
		return http.StatusForbidden
	case appErr.CodeConflict, appErr.CodeAlreadyExists:
		return http.StatusConflict
	case appErr.CodePolicyViolation:
		if appErr.RuleOf(err) == appErr.RuleState {
			return http.StatusConflict
		}
		return http.StatusForbidden
	case appErr.CodeDeadline:
		return http.StatusRequestTimeout
	case appErr.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
