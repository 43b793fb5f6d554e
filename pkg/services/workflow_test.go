package services

import (
	"testing"
	"time"

	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkflow(t *testing.T) {
	env := newTestEnv(t)
	service := env.workflows()

	assert.NotNil(t, service)
	assert.Equal(t, env.persistence, service.persistence)

	message, healthy := service.HealthCheck(t.Context())
	assert.True(t, healthy)
	assert.Equal(t, "Persistence layer is healthy", message)
}

func TestWorkflow_Create(t *testing.T) {
	env := newTestEnv(t)
	service := env.workflows()

	created, err := service.Create(t.Context(), CreateWorkflowRequest{
		CompanyID:   "company-1",
		Name:        "  Engineering hiring ",
		Description: "Pipeline for engineers",
		Kind:        models.WorkflowKindCandidateApplication,
		PhaseID:     strPtr("phase-interview"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Engineering hiring", created.Name)
	assert.Equal(t, models.WorkflowStatusDraft, created.Status)
	assert.Equal(t, models.DisplayModeKanban, created.DisplayMode)
	assert.False(t, created.IsDefault)
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, testNow, created.CreatedAt)

	fetched, err := service.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, fetched.Name)
}

func TestWorkflow_Create_Validation(t *testing.T) {
	service := newTestEnv(t).workflows()

	tests := []struct {
		name    string
		req     CreateWorkflowRequest
		wantErr error
	}{
		{
			name:    "missing name",
			req:     CreateWorkflowRequest{CompanyID: "c1", Kind: models.WorkflowKindJobOpening},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "unknown kind",
			req:     CreateWorkflowRequest{CompanyID: "c1", Name: "W", Kind: "sourcing"},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "unknown display mode",
			req:     CreateWorkflowRequest{CompanyID: "c1", Name: "W", Kind: models.WorkflowKindJobOpening, DisplayMode: "grid"},
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "default on a draft",
			req:     CreateWorkflowRequest{CompanyID: "c1", Name: "W", Kind: models.WorkflowKindJobOpening, IsDefault: true},
			wantErr: models.ErrWorkflowNotActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Create(t.Context(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWorkflow_FetchByID_NotFound(t *testing.T) {
	service := newTestEnv(t).workflows()

	_, err := service.FetchByID(t.Context(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestWorkflow_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	service := env.workflows()

	workflow, err := service.Create(t.Context(), CreateWorkflowRequest{
		CompanyID: "company-1",
		Name:      "Onboarding",
		Kind:      models.WorkflowKindCandidateOnboarding,
	})
	require.NoError(t, err)

	_, err = service.Deactivate(t.Context(), workflow.ID)
	require.ErrorIs(t, err, models.ErrWorkflowAlreadyDraft)
	assert.True(t, IsConflictError(err))

	env.clock.Advance(time.Hour)

	activated, err := service.Activate(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusActive, activated.Status)
	assert.Equal(t, testNow.Add(time.Hour), activated.UpdatedAt)

	_, err = service.Activate(t.Context(), workflow.ID)
	require.ErrorIs(t, err, models.ErrWorkflowAlreadyActive)

	archived, err := service.Archive(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusArchived, archived.Status)

	_, err = service.Archive(t.Context(), workflow.ID)
	require.ErrorIs(t, err, models.ErrWorkflowAlreadyArchived)

	drafted, err := service.Deactivate(t.Context(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusDraft, drafted.Status)

	_, err = service.SetAsDefault(t.Context(), workflow.ID)
	require.ErrorIs(t, err, models.ErrWorkflowNotActive)
}

func TestWorkflow_SetAsDefault(t *testing.T) {
	env := newTestEnv(t)
	service := env.workflows()
	ctx := t.Context()

	first := env.activeWorkflow(t, "company-1", nil)
	second := env.activeWorkflow(t, "company-1", nil)
	otherCompany := env.activeWorkflow(t, "company-2", nil)

	_, err := service.SetAsDefault(ctx, first.ID)
	require.NoError(t, err)

	_, err = service.SetAsDefault(ctx, otherCompany.ID)
	require.NoError(t, err)

	_, err = service.SetAsDefault(ctx, first.ID)
	require.ErrorIs(t, err, models.ErrWorkflowAlreadyDefault)

	updated, err := service.SetAsDefault(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)

	reloadedFirst, err := service.FetchByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, reloadedFirst.IsDefault)

	current, err := service.FetchDefault(ctx, "company-1", models.WorkflowKindCandidateApplication)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)

	// The other company keeps its own default.
	otherDefault, err := service.FetchDefault(ctx, "company-2", models.WorkflowKindCandidateApplication)
	require.NoError(t, err)
	assert.Equal(t, otherCompany.ID, otherDefault.ID)

	defaults := 0

	all, err := service.List(ctx, ListWorkflowsRequest{CompanyID: "company-1"})
	require.NoError(t, err)

	for _, w := range all {
		if w.IsDefault {
			defaults++
		}
	}

	assert.Equal(t, 1, defaults)
}

func TestWorkflow_DefaultIsLocked(t *testing.T) {
	env := newTestEnv(t)
	service := env.workflows()
	ctx := t.Context()

	workflow := env.activeWorkflow(t, "company-1", nil)

	_, err := service.UnsetAsDefault(ctx, workflow.ID)
	require.ErrorIs(t, err, models.ErrWorkflowNotDefault)

	_, err = service.SetAsDefault(ctx, workflow.ID)
	require.NoError(t, err)

	_, err = service.Archive(ctx, workflow.ID)
	require.ErrorIs(t, err, models.ErrDefaultWorkflowLocked)

	_, err = service.Deactivate(ctx, workflow.ID)
	require.ErrorIs(t, err, models.ErrDefaultWorkflowLocked)

	err = service.Delete(ctx, workflow.ID)
	require.ErrorIs(t, err, models.ErrDefaultWorkflowLocked)

	unset, err := service.UnsetAsDefault(ctx, workflow.ID)
	require.NoError(t, err)
	assert.False(t, unset.IsDefault)

	_, err = service.Archive(ctx, workflow.ID)
	require.NoError(t, err)
}

func TestWorkflow_Update(t *testing.T) {
	env := newTestEnv(t)
	service := env.workflows()
	ctx := t.Context()

	workflow := env.activeWorkflow(t, "company-1", nil)

	updated, err := service.Update(ctx, workflow.ID, UpdateWorkflowRequest{
		Name:            "Renamed",
		Description:     "New description",
		DisplayMode:     models.DisplayModeList,
		PhaseID:         strPtr("phase-2"),
		ExpectedVersion: workflow.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, models.DisplayModeList, updated.DisplayMode)
	assert.Equal(t, models.WorkflowStatusActive, updated.Status)
	assert.Equal(t, workflow.Version+1, updated.Version)

	_, err = service.Update(ctx, workflow.ID, UpdateWorkflowRequest{
		Name:            "Stale",
		DisplayMode:     models.DisplayModeList,
		ExpectedVersion: workflow.Version,
	})
	require.ErrorIs(t, err, persistence.ErrVersionConflict)
	assert.True(t, IsConflictError(err))

	_, err = service.Update(ctx, "missing", UpdateWorkflowRequest{Name: "X", DisplayMode: models.DisplayModeList})
	assert.True(t, IsNotFound(err))
}

func TestWorkflow_Delete(t *testing.T) {
	env := newTestEnv(t)
	service := env.workflows()
	ctx := t.Context()

	workflow := env.activeWorkflow(t, "company-1", nil)
	stage := env.addStage(t, workflow.ID, "Screening", models.StageTypeNormal)

	require.NoError(t, service.Delete(ctx, workflow.ID))

	_, err := service.FetchByID(ctx, workflow.ID)
	assert.True(t, IsNotFound(err))

	_, err = env.persistence.StageRepository().GetByID(ctx, stage.ID)
	assert.True(t, IsNotFound(err))

	err = service.Delete(ctx, workflow.ID)
	assert.True(t, IsNotFound(err))
}

func TestWorkflow_List(t *testing.T) {
	env := newTestEnv(t)
	service := env.workflows()
	ctx := t.Context()

	draft, err := service.Create(ctx, CreateWorkflowRequest{CompanyID: "company-1", Name: "B draft", Kind: models.WorkflowKindJobOpening})
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	active := env.activeWorkflow(t, "company-1", nil)

	t.Run("defaults sort newest first", func(t *testing.T) {
		workflows, err := service.List(ctx, ListWorkflowsRequest{CompanyID: "company-1"})
		require.NoError(t, err)
		require.Len(t, workflows, 2)
		assert.Equal(t, active.ID, workflows[0].ID)
		assert.Equal(t, draft.ID, workflows[1].ID)
	})

	t.Run("filters by status and kind", func(t *testing.T) {
		status := models.WorkflowStatusDraft
		workflows, err := service.List(ctx, ListWorkflowsRequest{CompanyID: "company-1", Status: &status})
		require.NoError(t, err)
		require.Len(t, workflows, 1)
		assert.Equal(t, draft.ID, workflows[0].ID)

		kind := models.WorkflowKindCandidateApplication
		workflows, err = service.List(ctx, ListWorkflowsRequest{CompanyID: "company-1", Kind: &kind})
		require.NoError(t, err)
		require.Len(t, workflows, 1)
		assert.Equal(t, active.ID, workflows[0].ID)
	})

	t.Run("sorts by name", func(t *testing.T) {
		workflows, err := service.List(ctx, ListWorkflowsRequest{CompanyID: "company-1", SortBy: "name", SortOrder: "asc"})
		require.NoError(t, err)
		require.Len(t, workflows, 2)
		assert.Equal(t, draft.ID, workflows[0].ID)
	})
}

func TestWorkflow_List_Validation(t *testing.T) {
	service := newTestEnv(t).workflows()

	badStatus := models.WorkflowStatus("paused")
	badKind := models.WorkflowKind("sourcing")

	tests := []struct {
		name    string
		req     ListWorkflowsRequest
		wantErr error
	}{
		{"empty company", ListWorkflowsRequest{}, ErrInvalidRequest},
		{"invalid sort field", ListWorkflowsRequest{CompanyID: "c1", SortBy: "status"}, ErrInvalidSortField},
		{"invalid sort order", ListWorkflowsRequest{CompanyID: "c1", SortOrder: "up"}, ErrInvalidSortOrder},
		{"invalid status", ListWorkflowsRequest{CompanyID: "c1", Status: &badStatus}, ErrInvalidStatus},
		{"invalid kind", ListWorkflowsRequest{CompanyID: "c1", Kind: &badKind}, ErrInvalidKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.List(t.Context(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidationError(err))

			var serviceErr *ServiceError
			require.ErrorAs(t, err, &serviceErr)
			assert.NotEmpty(t, serviceErr.Code)
		})
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		validation bool
		conflict   bool
		notFound   bool
	}{
		{"invalid request", NewValidationError("op", "X", "bad", ErrInvalidRequest), true, false, false},
		{"next phase on normal stage", models.ErrNextPhaseOnNormalStage, true, false, false},
		{"invalid transition", models.ErrWorkflowAlreadyActive, false, true, false},
		{"ordering conflict", ErrOrderingConflict, false, true, false},
		{"version conflict", persistence.NewStageError("Save", "s1", persistence.ErrVersionConflict), false, true, false},
		{"missing workflow", persistence.NewWorkflowError("GetByID", "w1", persistence.ErrWorkflowNotFound), false, false, true},
		{"missing history", persistence.ErrHistoryRecordNotFound, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.validation, IsValidationError(tt.err))
			assert.Equal(t, tt.conflict, IsConflictError(tt.err))
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
		})
	}
}
