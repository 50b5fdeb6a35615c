package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Assignment statuses.
const (
	AssignmentPending    = "pending"
	AssignmentInProgress = "in_progress"
	AssignmentCompleted  = "completed"
	AssignmentReviewed   = "reviewed"
)

// Assignment links a validator to one case record. It grants the validator
// read access to the owning project.
type Assignment struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID      uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_assignment_case_validator;not null" json:"case_id"`
	ValidatorID uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_assignment_case_validator;index;not null" json:"validator_id"`
	ProjectID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"project_id"`
	Status      string     `gorm:"type:varchar(16);not null;default:pending" json:"status" validate:"oneof=pending in_progress completed reviewed"`
	Priority    int        `gorm:"not null;default:0" json:"priority"`
	Notes       string     `gorm:"type:text" json:"notes,omitempty"`
	AssignedAt  time.Time  `gorm:"autoCreateTime" json:"assigned_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// BeforeCreate assigns a UUID when none is set.
func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
