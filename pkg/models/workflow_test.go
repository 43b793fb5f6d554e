package models

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestWorkflow(status WorkflowStatus, isDefault bool) *Workflow {
	return &Workflow{
		ID:          "wf-1",
		CompanyID:   "company-1",
		Kind:        WorkflowKindCandidateApplication,
		DisplayMode: DisplayModeKanban,
		Name:        "Engineering pipeline",
		Status:      status,
		IsDefault:   isDefault,
		CreatedAt:   testNow.Add(-time.Hour),
		UpdatedAt:   testNow.Add(-time.Hour),
	}
}

func TestWorkflow_Validation(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	workflow := newTestWorkflow(WorkflowStatusDraft, false)
	require.NoError(t, validate.Struct(workflow))

	workflow.Kind = "pipeline"
	err := validate.Struct(workflow)
	require.Error(t, err)

	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)
	assert.Equal(t, "Kind", validationErrors[0].Field())
	assert.Equal(t, "oneof", validationErrors[0].Tag())
}

func TestWorkflow_Activate(t *testing.T) {
	tests := []struct {
		name    string
		status  WorkflowStatus
		wantErr error
	}{
		{name: "draft can be activated", status: WorkflowStatusDraft},
		{name: "archived can be activated", status: WorkflowStatusArchived},
		{name: "active cannot be activated again", status: WorkflowStatusActive, wantErr: ErrWorkflowAlreadyActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workflow := newTestWorkflow(tt.status, false)

			err := workflow.Activate(testNow)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsInvalidTransition(err))
				assert.Equal(t, tt.status, workflow.Status)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, WorkflowStatusActive, workflow.Status)
			assert.Equal(t, testNow, workflow.UpdatedAt)
		})
	}
}

func TestWorkflow_Deactivate(t *testing.T) {
	tests := []struct {
		name      string
		status    WorkflowStatus
		isDefault bool
		wantErr   error
	}{
		{name: "active non-default becomes draft", status: WorkflowStatusActive},
		{name: "archived becomes draft", status: WorkflowStatusArchived},
		{name: "draft is rejected", status: WorkflowStatusDraft, wantErr: ErrWorkflowAlreadyDraft},
		{name: "default is rejected", status: WorkflowStatusActive, isDefault: true, wantErr: ErrDefaultWorkflowLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workflow := newTestWorkflow(tt.status, tt.isDefault)

			err := workflow.Deactivate(testNow)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.status, workflow.Status)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, WorkflowStatusDraft, workflow.Status)
		})
	}
}

func TestWorkflow_Archive(t *testing.T) {
	tests := []struct {
		name      string
		status    WorkflowStatus
		isDefault bool
		wantErr   error
	}{
		{name: "active is archived", status: WorkflowStatusActive},
		{name: "draft is archived", status: WorkflowStatusDraft},
		{name: "archived is rejected", status: WorkflowStatusArchived, wantErr: ErrWorkflowAlreadyArchived},
		{name: "default is rejected", status: WorkflowStatusActive, isDefault: true, wantErr: ErrDefaultWorkflowLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workflow := newTestWorkflow(tt.status, tt.isDefault)

			err := workflow.Archive(testNow)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, WorkflowStatusArchived, workflow.Status)
			assert.Equal(t, testNow, workflow.UpdatedAt)
		})
	}
}

func TestWorkflow_DefaultFlag(t *testing.T) {
	t.Run("draft cannot become default", func(t *testing.T) {
		workflow := newTestWorkflow(WorkflowStatusDraft, false)

		err := workflow.SetAsDefault(testNow)
		require.ErrorIs(t, err, ErrWorkflowNotActive)
		assert.False(t, workflow.IsDefault)
	})

	t.Run("active becomes default once", func(t *testing.T) {
		workflow := newTestWorkflow(WorkflowStatusActive, false)

		require.NoError(t, workflow.SetAsDefault(testNow))
		assert.True(t, workflow.IsDefault)

		err := workflow.SetAsDefault(testNow)
		require.ErrorIs(t, err, ErrWorkflowAlreadyDefault)
	})

	t.Run("unset requires default", func(t *testing.T) {
		workflow := newTestWorkflow(WorkflowStatusActive, false)

		err := workflow.UnsetAsDefault(testNow)
		require.ErrorIs(t, err, ErrWorkflowNotDefault)

		workflow.IsDefault = true
		require.NoError(t, workflow.UnsetAsDefault(testNow))
		assert.False(t, workflow.IsDefault)
	})
}
