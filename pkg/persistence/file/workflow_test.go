package file

import (
	"context"
	"testing"
	"time"

	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkflow(companyID, name string, createdAt time.Time) *models.Workflow {
	return &models.Workflow{
		CompanyID:   companyID,
		Kind:        models.WorkflowKindCandidateApplication,
		DisplayMode: models.DisplayModeKanban,
		Name:        name,
		Status:      models.WorkflowStatusDraft,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// TestWorkflowRepository_ListByCompany_InvalidSortField tests that invalid sort field returns typed error.
func TestWorkflowRepository_ListByCompany_InvalidSortField(t *testing.T) {
	tempDir := t.TempDir()
	repo := NewWorkflowRepository(tempDir)

	tests := []struct {
		name    string
		sortBy  string
		wantErr error
	}{
		{
			name:    "invalid sort field should return ErrInvalidSortField",
			sortBy:  "invalid_field",
			wantErr: persistence.ErrInvalidSortField,
		},
		{
			name:    "sql injection attempt should return ErrInvalidSortField",
			sortBy:  "name; DROP TABLE workflows; --",
			wantErr: persistence.ErrInvalidSortField,
		},
		{
			name:    "valid sort field name should not return error",
			sortBy:  "name",
			wantErr: nil,
		},
		{
			name:    "valid sort field updated_at should not return error",
			sortBy:  "updated_at",
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := persistence.ListWorkflowsOptions{SortBy: tt.sortBy, SortOrder: "asc"}

			_, err := repo.ListByCompany(context.Background(), "company-1", opts)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, persistence.IsInvalidSortField(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWorkflowRepository_SaveAndVersioning(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkflowRepository(t.TempDir())
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	workflow := newWorkflow("company-1", "Hiring", now)
	require.NoError(t, repo.Save(ctx, workflow))
	assert.NotEmpty(t, workflow.ID)
	assert.Equal(t, int64(1), workflow.Version)

	stale := *workflow

	workflow.Name = "Hiring v2"
	require.NoError(t, repo.Save(ctx, workflow))
	assert.Equal(t, int64(2), workflow.Version)

	stale.Name = "Lost update"
	err := repo.Save(ctx, &stale)
	require.Error(t, err)
	assert.True(t, persistence.IsVersionConflict(err))

	stored, err := repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hiring v2", stored.Name)
	assert.Equal(t, int64(2), stored.Version)

	t.Run("new aggregate with existing id conflicts", func(t *testing.T) {
		dup := newWorkflow("company-1", "Duplicate", now)
		dup.ID = workflow.ID

		err := repo.Save(ctx, dup)
		assert.True(t, persistence.IsVersionConflict(err))
	})
}

func TestWorkflowRepository_Queries(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())
	repo := p.WorkflowRepository()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	phaseID := "phase-2"

	first := newWorkflow("company-1", "B pipeline", base)
	first.PhaseID = &phaseID
	second := newWorkflow("company-1", "A pipeline", base.Add(time.Hour))
	second.Status = models.WorkflowStatusActive
	second.IsDefault = true
	other := newWorkflow("company-2", "Other", base)

	for _, w := range []*models.Workflow{first, second, other} {
		require.NoError(t, repo.Save(ctx, w))
	}

	t.Run("list by company sorted by name", func(t *testing.T) {
		workflows, err := repo.ListByCompany(ctx, "company-1", persistence.ListWorkflowsOptions{SortBy: "name"})
		require.NoError(t, err)
		require.Len(t, workflows, 2)
		assert.Equal(t, "A pipeline", workflows[0].Name)
		assert.Equal(t, "B pipeline", workflows[1].Name)
	})

	t.Run("list by company filtered by status", func(t *testing.T) {
		active := models.WorkflowStatusActive

		workflows, err := repo.ListByCompany(ctx, "company-1", persistence.ListWorkflowsOptions{Status: &active})
		require.NoError(t, err)
		require.Len(t, workflows, 1)
		assert.Equal(t, second.ID, workflows[0].ID)
	})

	t.Run("default by company", func(t *testing.T) {
		workflow, err := repo.GetDefaultByCompany(ctx, "company-1", models.WorkflowKindCandidateApplication)
		require.NoError(t, err)
		assert.Equal(t, second.ID, workflow.ID)

		_, err = repo.GetDefaultByCompany(ctx, "company-2", models.WorkflowKindCandidateApplication)
		assert.True(t, persistence.IsWorkflowNotFound(err))
	})

	t.Run("list by phase", func(t *testing.T) {
		workflows, err := repo.ListByPhaseID(ctx, phaseID)
		require.NoError(t, err)
		require.Len(t, workflows, 1)
		assert.Equal(t, first.ID, workflows[0].ID)
	})

	t.Run("get missing workflow", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "missing")
		assert.True(t, persistence.IsWorkflowNotFound(err))
	})
}

func TestWorkflowRepository_DeleteCascadesToStages(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	workflow := newWorkflow("company-1", "Hiring", now)
	require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))

	for order := 1; order <= 2; order++ {
		stage := &models.WorkflowStage{WorkflowID: workflow.ID, Name: "Stage", Type: models.StageTypeNormal, Order: order}
		require.NoError(t, p.StageRepository().Save(ctx, stage))
	}

	require.NoError(t, p.WorkflowRepository().Delete(ctx, workflow.ID))

	_, err := p.WorkflowRepository().GetByID(ctx, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	stages, err := p.StageRepository().ListByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Empty(t, stages)
}
