package services

import (
	"context"
	"testing"

	"github.com/court-opinions/engine/internal/models"
	"github.com/court-opinions/engine/internal/workflow"
	appErr "github.com/court-opinions/engine/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEndToEndLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := e.newProject(t)
	require.Equal(t, string(workflow.StatusDraft), p.Status)
	require.Equal(t, models.AIModelGPT, p.AIModel)
	require.Equal(t, 100.0, p.BudgetLimit)

	sum := e.upload(t, p.ID, "cases.parquet", parquetFile(t, "Case", 100, 4, 50, 97))
	require.Equal(t, 100, sum.TotalRows)
	require.Equal(t, 97, sum.CasesImported)
	require.Len(t, sum.Errors, 3)
	require.Equal(t, "cases.parquet", sum.Filename)
	require.Len(t, sum.SHA256, 64)
	require.Equal(t, string(workflow.StatusDraft), sum.Status)

	p = e.reload(t, p.ID)
	require.Equal(t, 97, p.TotalCases)
	require.Equal(t, 97, e.caseCount(t, p.ID))
	require.Equal(t, string(workflow.StatusDraft), p.Status)

	p, err := e.projects.AssignScholar(ctx, e.admin, p.ID, e.scholar.ID)
	require.NoError(t, err)
	require.Equal(t, string(workflow.StatusReady), p.Status)

	p, err = e.projects.SendToScholar(ctx, e.admin, p.ID)
	require.NoError(t, err)
	require.Equal(t, string(workflow.StatusActive), p.Status)
	sentAt := *p.SentToScholarAt

	_, err = e.projects.SendToScholar(ctx, e.admin, p.ID)
	require.True(t, appErr.IsCode(err, appErr.CodePolicyViolation))

	_, err = e.projects.Launch(ctx, e.scholar2, p.ID)
	require.True(t, appErr.IsCode(err, appErr.CodePolicyViolation))
	require.Equal(t, appErr.RuleOwnership, appErr.RuleOf(err))

	p, err = e.projects.Launch(ctx, e.scholar, p.ID)
	require.NoError(t, err)
	require.Equal(t, string(workflow.StatusLaunched), p.Status)
	launchedAt := *p.LaunchedAt

	_, err = e.projects.Launch(ctx, e.scholar, p.ID)
	require.True(t, appErr.IsCode(err, appErr.CodePolicyViolation))
	require.Equal(t, appErr.RuleState, appErr.RuleOf(err))

	p = e.reload(t, p.ID)
	require.True(t, sentAt.Equal(*p.SentToScholarAt))
	require.True(t, launchedAt.Equal(*p.LaunchedAt))
}

func TestStatusFollowsPrerequisitesInAllOrderings(t *testing.T) {
	type step func(e *env, id uuid.UUID)
	ctx := context.Background()
	assign := func(e *env, id uuid.UUID) {
		_, err := e.projects.AssignScholar(ctx, e.admin, id, e.scholar.ID)
		require.NoError(t, err)
	}
	unassign := func(e *env, id uuid.UUID) {
		_, err := e.projects.UnassignScholar(ctx, e.admin, id)
		require.NoError(t, err)
	}
	upload := func(e *env, id uuid.UUID) { e.upload(t, id, "cases.parquet", parquetFile(t, "C", 5)) }
	remove := func(e *env, id uuid.UUID) {
		_, err := e.uploads.RemoveSource(ctx, e.admin, id)
		require.NoError(t, err)
	}

	orderings := [][]step{
		{assign, upload, unassign, remove},
		{assign, upload, remove, unassign},
		{upload, assign, unassign, remove},
		{upload, assign, remove, unassign},
	}
	for _, steps := range orderings {
		e := newEnv(t)
		p := e.newProject(t)
		for _, s := range steps {
			s(e, p.ID)
			got := e.reload(t, p.ID)
			want := workflow.StatusDraft
			if got.ScholarID != nil && got.TotalCases > 0 {
				want = workflow.StatusReady
			}
			require.Equal(t, string(want), got.Status)
			require.Equal(t, got.TotalCases, e.caseCount(t, p.ID))
			require.Equal(t, got.ParquetFilename != nil, got.TotalCases > 0)
		}
	}
}

func TestSendToScholarNeedsBothPrerequisites(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	withData := e.newProject(t)
	e.upload(t, withData.ID, "a.parquet", parquetFile(t, "A", 3))
	_, err := e.projects.SendToScholar(ctx, e.admin, withData.ID)
	require.True(t, appErr.IsCode(err, appErr.CodePolicyViolation))
	require.Equal(t, appErr.RuleState, appErr.RuleOf(err))

	withScholar := e.newProject(t)
	_, err = e.projects.AssignScholar(ctx, e.admin, withScholar.ID, e.scholar.ID)
	require.NoError(t, err)
	_, err = e.projects.SendToScholar(ctx, e.admin, withScholar.ID)
	require.True(t, appErr.IsCode(err, appErr.CodePolicyViolation))
	require.Equal(t, string(workflow.StatusDraft), e.reload(t, withScholar.ID).Status)
}

func TestOwnershipAndRoles(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.newProject(t)

	_, err := e.projects.AssignScholar(ctx, e.otherAdm, p.ID, e.scholar.ID)
	require.Equal(t, appErr.RuleOwnership, appErr.RuleOf(err))

	_, err = e.projects.CreateProject(ctx, e.scholar, &CreateProjectInput{Name: "x"})
	require.Equal(t, appErr.RuleRole, appErr.RuleOf(err))

	_, err = e.projects.GetProject(ctx, e.scholar, p.ID)
	require.Equal(t, appErr.RuleOwnership, appErr.RuleOf(err))

	_, err = e.projects.AssignScholar(ctx, e.admin, p.ID, e.validator.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	_, err = e.projects.AssignScholar(ctx, e.admin, p.ID, uuid.New())
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	_, err = e.projects.GetProject(ctx, e.admin, uuid.New())
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	_, err = e.projects.AssignScholar(ctx, e.admin, p.ID, e.scholar.ID)
	require.NoError(t, err)
	got, err := e.projects.GetProject(ctx, e.scholar, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)

	_, err = e.projects.UpdateAIModel(ctx, e.scholar, p.ID, models.AIModelSonnet)
	require.Equal(t, appErr.RuleRole, appErr.RuleOf(err))
}

func TestListProjectsByRole(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p1 := e.newProject(t)
	e.newProject(t)
	_, err := e.projects.CreateProject(ctx, e.otherAdm, &CreateProjectInput{Name: "theirs"})
	require.NoError(t, err)
	_, err = e.projects.AssignScholar(ctx, e.admin, p1.ID, e.scholar.ID)
	require.NoError(t, err)

	mine, err := e.projects.ListProjects(ctx, e.admin)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	assigned, err := e.projects.ListProjects(ctx, e.scholar)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	require.Equal(t, p1.ID, assigned[0].ID)

	none, err := e.projects.ListProjects(ctx, e.validator)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestUpdateDetailsModelAndBudget(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.newProject(t)

	name := "Renamed"
	p, err := e.projects.UpdateProject(ctx, e.admin, p.ID, &UpdateProjectInput{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Renamed", p.Name)
	require.Equal(t, "batch", p.Description)

	p, err = e.projects.UpdateAIModel(ctx, e.admin, p.ID, models.AIModelGemini)
	require.NoError(t, err)
	require.Equal(t, models.AIModelGemini, p.AIModel)
	_, err = e.projects.UpdateAIModel(ctx, e.admin, p.ID, "GPT-1")
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	p, err = e.projects.SetBudget(ctx, e.admin, p.ID, 1)
	require.NoError(t, err)
	p, err = e.projects.RecordUsage(ctx, e.admin, p.ID, 2000, 1.25)
	require.NoError(t, err)
	require.True(t, p.BudgetExceeded())
	require.Equal(t, int64(2000), p.TotalTokensUsed)

	_, err = e.projects.RecordUsage(ctx, e.admin, p.ID, -5, 0)
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	got := e.reload(t, p.ID)
	require.Equal(t, models.AIModelGemini, got.AIModel)
	require.InDelta(t, 1.25, got.TotalCost, 1e-9)
	require.Equal(t, p.Version, got.Version)
}

func TestDeleteProjectCascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.newProject(t)
	e.upload(t, p.ID, "cases.parquet", parquetFile(t, "C", 4))
	path := *e.reload(t, p.ID).ParquetFilepath
	require.True(t, e.fileExists(t, path))

	require.Equal(t, appErr.RuleOwnership, appErr.RuleOf(e.projects.DeleteProject(ctx, e.otherAdm, p.ID)))
	require.NoError(t, e.projects.DeleteProject(ctx, e.admin, p.ID))

	require.Zero(t, e.caseCount(t, p.ID))
	require.False(t, e.fileExists(t, path))
	_, err := e.projects.GetProject(ctx, e.admin, p.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestConcurrentMutationsSerialize(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.newProject(t)

	const n = 10
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := e.projects.RecordUsage(ctx, e.admin, p.ID, 10, 0.5)
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
	got := e.reload(t, p.ID)
	require.Equal(t, int64(10*n), got.TotalTokensUsed)
	require.Equal(t, 1+n, got.Version)
}
