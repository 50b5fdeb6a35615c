package errors

import (
	"errors"
	"fmt"
)

// Code represents a stable error code for programmatic handling.
type Code string

const (
	CodeUnknown         Code = "unknown"
	CodeInvalid         Code = "invalid"
	CodeNotFound        Code = "not_found"
	CodeConflict        Code = "conflict"
	CodeUnauthorized    Code = "unauthorized"
	CodeForbidden       Code = "forbidden"
	CodePolicyViolation Code = "policy_violation"
	CodeInternal        Code = "internal"
	CodeUnavailable     Code = "unavailable"
	CodeDeadline        Code = "deadline_exceeded"
	CodeAlreadyExists   Code = "already_exists"
)

// Rule names the class of policy a PolicyViolation broke.
type Rule string

const (
	RuleRole      Rule = "role"
	RuleOwnership Rule = "ownership"
	RuleState     Rule = "state"
)

// Meta keys attached to policy violations.
const (
	MetaRule    = "rule"
	MetaMissing = "missing"
)

// AppError is a structured error type that carries a code, message, and optional metadata.
type AppError struct {
	Code    Code
	Message string
	Err     error
	Meta    map[string]any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *AppError) Unwrap() error { return e.Err }

// WithMeta attaches metadata to the error.
func (e *AppError) WithMeta(k string, v any) *AppError {
	if e.Meta == nil {
		e.Meta = map[string]any{}
	}
	e.Meta[k] = v
	return e
}

// New creates a new AppError with code and message.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error with code and message.
func Wrap(err error, code Code, message string) *AppError {
	if err == nil {
		return New(code, message)
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// Invalid reports malformed caller input.
func Invalid(message string) *AppError {
	return New(CodeInvalid, message)
}

// NotFound reports a missing project, case or user.
func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

// Policy reports an operation that is not permitted. missing names the unmet
// prerequisite and may be empty.
func Policy(rule Rule, missing, message string) *AppError {
	e := New(CodePolicyViolation, message).WithMeta(MetaRule, string(rule))
	if missing != "" {
		e.WithMeta(MetaMissing, missing)
	}
	return e
}

// IsCode checks if an error has the provided code (through unwrapping).
func IsCode(err error, code Code) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost AppError in err's chain.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// RuleOf returns the policy rule recorded on a PolicyViolation, or "".
func RuleOf(err error) Rule {
	var ae *AppError
	if !errors.As(err, &ae) || ae.Meta == nil {
		return ""
	}
	if r, ok := ae.Meta[MetaRule].(string); ok {
		return Rule(r)
	}
	return ""
}
