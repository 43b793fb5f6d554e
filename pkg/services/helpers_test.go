package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hirepath/hirepath/pkg/locking"
	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/persistence/file"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	persistence *file.Persistence
	locker      *locking.LocalLocker
	clock       *clockwork.FakeClock
	logger      *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	return &testEnv{
		persistence: file.NewPersistence(t.TempDir()),
		locker:      locking.NewLocalLocker(),
		clock:       clockwork.NewFakeClockAt(testNow),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (e *testEnv) workflows() *Workflow {
	return NewWorkflow(e.persistence, e.locker, e.clock, e.logger)
}

func (e *testEnv) stages() *Stage {
	return NewStage(e.persistence, e.locker, e.clock, e.logger)
}

func (e *testEnv) reorderer() *StageReorderer {
	return NewStageReorderer(e.persistence, e.locker, e.clock, e.logger)
}

// activeWorkflow creates and activates a candidate application workflow.
func (e *testEnv) activeWorkflow(t *testing.T, companyID string, phaseID *string) *models.Workflow {
	t.Helper()

	svc := e.workflows()

	workflow, err := svc.Create(t.Context(), CreateWorkflowRequest{
		CompanyID: companyID,
		Name:      "Interviews",
		Kind:      models.WorkflowKindCandidateApplication,
		PhaseID:   phaseID,
	})
	require.NoError(t, err)

	workflow, err = svc.Activate(t.Context(), workflow.ID)
	require.NoError(t, err)

	return workflow
}

// addStage appends a stage to the workflow.
func (e *testEnv) addStage(t *testing.T, workflowID, name string, stageType models.StageType, mutate ...func(*CreateStageRequest)) *models.WorkflowStage {
	t.Helper()

	req := CreateStageRequest{StageAttributes: StageAttributes{Name: name, Type: stageType}}
	for _, m := range mutate {
		m(&req)
	}

	stage, err := e.stages().Create(t.Context(), workflowID, req)
	require.NoError(t, err)

	return stage
}

// newApplication stores an application that has not entered any stage yet.
func (e *testEnv) newApplication(t *testing.T, positionID string, phaseID *string) *models.CandidateApplication {
	t.Helper()

	application := &models.CandidateApplication{
		CandidateID:    "candidate-" + positionID,
		PositionID:     positionID,
		CurrentPhaseID: phaseID,
		TaskStatus:     models.TaskStatusPending,
		CreatedAt:      e.clock.Now(),
		UpdatedAt:      e.clock.Now(),
	}

	require.NoError(t, e.persistence.ApplicationRepository().Save(context.Background(), application))

	return application
}

func stageOrders(stages []*models.WorkflowStage) map[string]int {
	orders := make(map[string]int, len(stages))
	for _, stage := range stages {
		orders[stage.ID] = stage.Order
	}

	return orders
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }

func timePtr(v time.Time) *time.Time { return &v }
