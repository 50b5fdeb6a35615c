package workflow

import (
	"strings"
	"time"

	"github.com/court-opinions/engine/internal/models"
	appErr "github.com/court-opinions/engine/pkg/errors"
	"github.com/google/uuid"
)

// Prerequisite names reported in PolicyViolation metadata.
const (
	MissingScholar       = "scholar_assigned"
	MissingCaseData      = "case_data"
	MissingEmptyCaseSet  = "empty_case_set"
	MissingPreSend       = "status=draft|ready"
	MissingReady         = "status=ready"
	MissingActive        = "status=active"
	MissingNotLaunched   = "status!=launched"
	MissingAssignedActor = "assigned_scholar"
)

// NewProject returns a draft project owned by adminID.
func NewProject(adminID uuid.UUID, name, description, aiModel string, budgetLimit float64) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErr.Invalid("project name is required")
	}
	if !models.ValidAIModel(aiModel) {
		return nil, appErr.Invalid("unknown ai model").WithMeta("ai_model", aiModel)
	}
	if budgetLimit < 0 {
		return nil, appErr.Invalid("budget limit must not be negative")
	}
	p := &models.Project{
		Name:        name,
		Description: description,
		AdminID:     adminID,
		AIModel:     aiModel,
		BudgetLimit: budgetLimit,
		Version:     1,
	}
	Refresh(p)
	return p, nil
}

// AssignScholar sets the scholar. Replacing an existing scholar is allowed
// while the project is pre-send.
func AssignScholar(p *models.Project, scholarID uuid.UUID) error {
	if scholarID == uuid.Nil {
		return appErr.Invalid("scholar id is required")
	}
	if !StatusOf(p).PreSend() {
		return appErr.Policy(appErr.RuleState, MissingPreSend, "scholar can only be assigned before the project is sent")
	}
	id := scholarID
	p.ScholarID = &id
	Refresh(p)
	return nil
}

// UnassignScholar clears the scholar, reverting the project to draft.
func UnassignScholar(p *models.Project) error {
	if !StatusOf(p).PreSend() {
		return appErr.Policy(appErr.RuleState, MissingPreSend, "scholar can only be unassigned before the project is sent")
	}
	if !p.HasScholar() {
		return appErr.Policy(appErr.RuleState, MissingScholar, "no scholar is assigned")
	}
	p.ScholarID = nil
	Refresh(p)
	return nil
}

// SendToScholar moves a ready project to active.
func SendToScholar(p *models.Project, now time.Time) error {
	switch StatusOf(p) {
	case StatusReady:
	case StatusDraft:
		if !p.HasScholar() {
			return appErr.Policy(appErr.RuleState, MissingScholar, "project has no assigned scholar")
		}
		return appErr.Policy(appErr.RuleState, MissingCaseData, "project has no imported case data")
	default:
		return appErr.Policy(appErr.RuleState, MissingReady, "project has already been sent")
	}
	if p.SentToScholarAt == nil {
		t := now.UTC()
		p.SentToScholarAt = &t
	}
	Refresh(p)
	return nil
}

// Launch moves an active project to launched. Only the assigned scholar may
// launch.
func Launch(p *models.Project, scholarID uuid.UUID, now time.Time) error {
	if StatusOf(p) != StatusActive {
		return appErr.Policy(appErr.RuleState, MissingActive, "project is not active")
	}
	if !p.HasScholar() || *p.ScholarID != scholarID {
		return appErr.Policy(appErr.RuleOwnership, MissingAssignedActor, "only the assigned scholar can launch this project")
	}
	if p.LaunchedAt == nil {
		t := now.UTC()
		p.LaunchedAt = &t
	}
	Refresh(p)
	return nil
}

// UpdateAIModel changes the model label on a project that has not launched.
func UpdateAIModel(p *models.Project, model string) error {
	if StatusOf(p) == StatusLaunched {
		return appErr.Policy(appErr.RuleState, MissingNotLaunched, "ai model cannot change after launch")
	}
	if !models.ValidAIModel(model) {
		return appErr.Invalid("unknown ai model").WithMeta("ai_model", model).WithMeta("allowed", models.AIModels)
	}
	p.AIModel = model
	return nil
}

// UpdateDetails edits name and description. Nil leaves a field unchanged.
func UpdateDetails(p *models.Project, name, description *string) error {
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return appErr.Invalid("project name must not be empty")
		}
		p.Name = n
	}
	if description != nil {
		p.Description = *description
	}
	return nil
}

// CanUpload checks that the project holds no case set.
func CanUpload(p *models.Project) error {
	if p.HasSource() || p.ParquetFilename != nil {
		return appErr.Policy(appErr.RuleState, MissingEmptyCaseSet, "remove the existing source before uploading a new one")
	}
	return nil
}

// ApplyImport records a freshly imported source. count must be positive;
// a source with no valid rows is never recorded.
func ApplyImport(p *models.Project, filename, path, sha256 string, count int) error {
	if err := CanUpload(p); err != nil {
		return err
	}
	if count <= 0 {
		return appErr.Invalid("source contains no importable rows")
	}
	p.ParquetFilename = &filename
	p.ParquetFilepath = &path
	p.ParquetSHA256 = &sha256
	p.TotalCases = count
	Refresh(p)
	return nil
}

// ApplyRemoval clears the source fields. It is a no-op on a project without
// a source.
func ApplyRemoval(p *models.Project) {
	p.ParquetFilename = nil
	p.ParquetFilepath = nil
	p.ParquetSHA256 = nil
	p.TotalCases = 0
	Refresh(p)
}

// SetBudget changes the budget ceiling.
func SetBudget(p *models.Project, limit float64) error {
	if StatusOf(p) == StatusLaunched {
		return appErr.Policy(appErr.RuleState, MissingNotLaunched, "budget cannot change after launch")
	}
	if limit < 0 {
		return appErr.Invalid("budget limit must not be negative")
	}
	p.BudgetLimit = limit
	return nil
}

// RecordUsage adds to the usage counters and reports whether the project is
// now over budget. Overrun is never rejected.
func RecordUsage(p *models.Project, tokens int64, cost float64) (bool, error) {
	if tokens < 0 || cost < 0 {
		return false, appErr.Invalid("usage deltas must not be negative")
	}
	p.TotalTokensUsed += tokens
	p.TotalCost += cost
	return p.BudgetExceeded(), nil
}
