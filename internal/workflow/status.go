// Package workflow holds the project lifecycle: the derived status and the
// guarded transitions that mutate a project.
package workflow

import "github.com/court-opinions/engine/internal/models"

// Status is the lifecycle state of a project.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusReady    Status = "ready"
	StatusActive   Status = "active"
	StatusLaunched Status = "launched"
)

// Valid reports whether s is one of the four lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusReady, StatusActive, StatusLaunched:
		return true
	}
	return false
}

// PreSend reports whether the project has not yet been handed to its scholar.
func (s Status) PreSend() bool {
	return s == StatusDraft || s == StatusReady
}

// DeriveStatus computes the status from the four facts that determine it.
// Launch and send are sticky; before send, ready needs both a source and a
// scholar.
func DeriveStatus(hasSource, hasScholar, hasBeenSent, hasBeenLaunched bool) Status {
	switch {
	case hasBeenLaunched:
		return StatusLaunched
	case hasBeenSent:
		return StatusActive
	case hasSource && hasScholar:
		return StatusReady
	default:
		return StatusDraft
	}
}

// StatusOf derives the status of p from its fields.
func StatusOf(p *models.Project) Status {
	return DeriveStatus(p.HasSource(), p.HasScholar(), p.SentToScholarAt != nil, p.LaunchedAt != nil)
}

// Refresh recomputes and stores p.Status. Every transition ends with it.
func Refresh(p *models.Project) Status {
	s := StatusOf(p)
	p.Status = string(s)
	return s
}
