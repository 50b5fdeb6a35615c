package policy

import (
	"testing"

	"github.com/court-opinions/engine/internal/models"
	"github.com/court-opinions/engine/internal/workflow"
	appErr "github.com/court-opinions/engine/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAdminOwnership(t *testing.T) {
	owner := Actor{ID: uuid.New(), Role: models.RoleAdmin}
	other := Actor{ID: uuid.New(), Role: models.RoleAdmin}
	res := &Resource{OwnerID: owner.ID, Status: workflow.StatusDraft}

	for op := range adminOnly {
		require.True(t, Authorize(owner, op, res).Allowed, op)

		d := Authorize(other, op, res)
		require.False(t, d.Allowed, op)
		require.Equal(t, appErr.RuleOwnership, d.Rule)
	}
	require.True(t, Authorize(owner, OpRead, res).Allowed)
	require.True(t, Authorize(owner, OpCreate, nil).Allowed)
	require.True(t, Authorize(other, OpList, nil).Allowed)
}

func TestAdminCannotLaunch(t *testing.T) {
	owner := Actor{ID: uuid.New(), Role: models.RoleAdmin}
	d := Authorize(owner, OpLaunch, &Resource{OwnerID: owner.ID, Status: workflow.StatusActive})
	require.False(t, d.Allowed)
	require.Equal(t, appErr.RuleRole, d.Rule)
}

func TestScholarLaunch(t *testing.T) {
	scholar := Actor{ID: uuid.New(), Role: models.RoleScholar}
	sid := scholar.ID
	res := &Resource{OwnerID: uuid.New(), ScholarID: &sid, Status: workflow.StatusActive}

	require.True(t, Authorize(scholar, OpLaunch, res).Allowed)
	require.True(t, Authorize(scholar, OpRead, res).Allowed)
	require.True(t, Authorize(scholar, OpReadCases, res).Allowed)

	stranger := Actor{ID: uuid.New(), Role: models.RoleScholar}
	d := Authorize(stranger, OpLaunch, res)
	require.False(t, d.Allowed)
	require.Equal(t, appErr.RuleOwnership, d.Rule)

	res.Status = workflow.StatusReady
	d = Authorize(scholar, OpLaunch, res)
	require.False(t, d.Allowed)
	require.Equal(t, appErr.RuleState, d.Rule)

	err := d.Err()
	require.True(t, appErr.IsCode(err, appErr.CodePolicyViolation))
	require.Equal(t, appErr.RuleState, appErr.RuleOf(err))
}

func TestScholarIsReadOnlyOtherwise(t *testing.T) {
	scholar := Actor{ID: uuid.New(), Role: models.RoleScholar}
	sid := scholar.ID
	res := &Resource{OwnerID: uuid.New(), ScholarID: &sid, Status: workflow.StatusActive}

	for op := range adminOnly {
		d := Authorize(scholar, op, res)
		require.False(t, d.Allowed, op)
		require.Equal(t, appErr.RuleRole, d.Rule, op)
	}
	require.Equal(t, appErr.RuleRole, Authorize(scholar, OpCreate, nil).Rule)
}

func TestValidatorScopedToAssignment(t *testing.T) {
	validator := Actor{ID: uuid.New(), Role: models.RoleValidator}
	res := &Resource{OwnerID: uuid.New(), Status: workflow.StatusActive}

	d := Authorize(validator, OpRead, res)
	require.False(t, d.Allowed)
	require.Equal(t, appErr.RuleOwnership, d.Rule)

	res.ValidatorAssigned = true
	require.True(t, Authorize(validator, OpRead, res).Allowed)
	require.True(t, Authorize(validator, OpReadCases, res).Allowed)

	d = Authorize(validator, OpLaunch, res)
	require.False(t, d.Allowed)
	require.Equal(t, appErr.RuleRole, d.Rule)
	require.Equal(t, "validators cannot launch", d.Reason)
}

func TestUnknownRoleDenied(t *testing.T) {
	d := Authorize(Actor{ID: uuid.New(), Role: "guest"}, OpList, nil)
	require.False(t, d.Allowed)
	require.Equal(t, appErr.RuleRole, d.Rule)
	require.NoError(t, Authorize(Actor{Role: models.RoleAdmin}, OpList, nil).Err())
}

func TestResourceOf(t *testing.T) {
	p, err := workflow.NewProject(uuid.New(), "p", "", models.AIModelGPT, 0)
	require.NoError(t, err)
	res := ResourceOf(p, true)
	require.Equal(t, p.AdminID, res.OwnerID)
	require.Equal(t, workflow.StatusDraft, res.Status)
	require.True(t, res.ValidatorAssigned)
}
