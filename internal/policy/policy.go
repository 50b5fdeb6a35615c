// Package policy decides which actor may perform which operation on a
// project.
package policy

import (
	"fmt"
	"strings"

	"github.com/court-opinions/engine/internal/models"
	"github.com/court-opinions/engine/internal/workflow"
	appErr "github.com/court-opinions/engine/pkg/errors"
	"github.com/google/uuid"
)

// Operation is an action an actor asks to perform.
type Operation string

const (
	OpCreate          Operation = "create"
	OpList            Operation = "list"
	OpRead            Operation = "read"
	OpReadCases       Operation = "read_cases"
	OpUpdate          Operation = "update"
	OpDelete          Operation = "delete"
	OpAssignScholar   Operation = "assign_scholar"
	OpUnassignScholar Operation = "unassign_scholar"
	OpSendToScholar   Operation = "send_to_scholar"
	OpLaunch          Operation = "launch"
	OpUpdateAIModel   Operation = "update_ai_model"
	OpSetBudget       Operation = "set_budget"
	OpRecordUsage     Operation = "record_usage"
	OpUploadSource    Operation = "upload_source"
	OpRemoveSource    Operation = "remove_source"
	OpAssignValidator Operation = "assign_validator"
)

// Prerequisites reported when a rule denies an operation.
const (
	MissingAdminRole = "role=admin"
	MissingOwner     = "project_owner"
	MissingScholar   = "assigned_scholar"
	MissingValidator = "validator_assignment"
)

// Actor is the authenticated caller.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

// Resource is the slice of a project the rules look at.
type Resource struct {
	OwnerID           uuid.UUID
	ScholarID         *uuid.UUID
	Status            workflow.Status
	ValidatorAssigned bool
}

// ResourceOf builds a Resource from a project.
func ResourceOf(p *models.Project, validatorAssigned bool) *Resource {
	return &Resource{
		OwnerID:           p.AdminID,
		ScholarID:         p.ScholarID,
		Status:            workflow.StatusOf(p),
		ValidatorAssigned: validatorAssigned,
	}
}

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Rule    appErr.Rule
	Missing string
	Reason  string
}

// Err converts a denial into a PolicyViolation; nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return appErr.Policy(d.Rule, d.Missing, d.Reason)
}

func allow() Decision { return Decision{Allowed: true} }

func deny(rule appErr.Rule, missing, reason string) Decision {
	return Decision{Rule: rule, Missing: missing, Reason: reason}
}

var adminOnly = map[Operation]bool{
	OpUpdate:          true,
	OpDelete:          true,
	OpAssignScholar:   true,
	OpUnassignScholar: true,
	OpSendToScholar:   true,
	OpUpdateAIModel:   true,
	OpSetBudget:       true,
	OpRecordUsage:     true,
	OpUploadSource:    true,
	OpRemoveSource:    true,
	OpAssignValidator: true,
}

// Authorize applies the role, ownership and state rules. res may be nil for
// operations that do not target an existing project (create, list).
func Authorize(actor Actor, op Operation, res *Resource) Decision {
	if !actor.Role.Valid() {
		return deny(appErr.RuleRole, "", fmt.Sprintf("unknown role %q", actor.Role))
	}

	switch op {
	case OpList:
		return allow()
	case OpCreate:
		if actor.Role != models.RoleAdmin {
			return deny(appErr.RuleRole, MissingAdminRole, "only admins can create projects")
		}
		return allow()
	}

	if res == nil {
		return deny(appErr.RuleOwnership, MissingOwner, "operation requires a project")
	}

	switch actor.Role {
	case models.RoleAdmin:
		if op == OpLaunch {
			return deny(appErr.RuleRole, MissingScholar, "only the assigned scholar can launch a project")
		}
		if res.OwnerID != actor.ID {
			return deny(appErr.RuleOwnership, MissingOwner, "admin does not own this project")
		}
		return allow()

	case models.RoleScholar:
		if adminOnly[op] {
			return deny(appErr.RuleRole, MissingAdminRole, fmt.Sprintf("scholars cannot %s", opLabel(op)))
		}
		if res.ScholarID == nil || *res.ScholarID != actor.ID {
			return deny(appErr.RuleOwnership, MissingScholar, "project is not assigned to this scholar")
		}
		if op == OpLaunch && res.Status != workflow.StatusActive {
			return deny(appErr.RuleState, "status=active", "project is not active")
		}
		return allow()

	case models.RoleValidator:
		if op != OpRead && op != OpReadCases {
			return deny(appErr.RuleRole, "", fmt.Sprintf("validators cannot %s", opLabel(op)))
		}
		if !res.ValidatorAssigned {
			return deny(appErr.RuleOwnership, MissingValidator, "validator has no assignment in this project")
		}
		return allow()
	}

	return deny(appErr.RuleRole, "", "operation not permitted")
}

func opLabel(op Operation) string {
	return strings.ReplaceAll(string(op), "_", " ")
}
