package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hirepath/hirepath/pkg/events"
	"github.com/hirepath/hirepath/pkg/mocks"
	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/otelhelper"
	"github.com/hirepath/hirepath/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const (
	phaseInterview  = "phase-interview"
	phaseOnboarding = "phase-onboarding"
)

type progressionFixture struct {
	env         *testEnv
	progression *Progression
	bus         *mocks.MockEventBus
	reader      *sdkmetric.ManualReader

	workflow *models.Workflow
	applied  *models.WorkflowStage
	review   *models.WorkflowStage
	hired    *models.WorkflowStage
}

// newProgressionFixture builds an interview workflow whose success stage cascades into the
// onboarding phase.
func newProgressionFixture(t *testing.T) *progressionFixture {
	t.Helper()

	env := newTestEnv(t)

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	reader := sdkmetric.NewManualReader()
	metrics, err := otelhelper.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	workflow := env.activeWorkflow(t, "company-1", strPtr(phaseInterview))
	applied := env.addStage(t, workflow.ID, "Applied", models.StageTypeNormal)
	review := env.addStage(t, workflow.ID, "Review", models.StageTypeNormal, func(r *CreateStageRequest) {
		r.EstimatedDurationDays = intPtr(5)
		r.DeadlineDays = intPtr(1)
		r.EstimatedCost = floatPtr(40)
	})
	hired := env.addStage(t, workflow.ID, "Hired", models.StageTypeSuccess, func(r *CreateStageRequest) {
		r.NextPhaseID = strPtr(phaseOnboarding)
	})

	f := &progressionFixture{
		env:         env,
		progression: NewProgression(env.persistence, env.locker, env.clock, env.logger, WithPublisher(bus), WithMetrics(metrics)),
		bus:         bus,
		reader:      reader,
		workflow:    workflow,
		applied:     applied,
		review:      review,
		hired:       hired,
	}

	return f
}

func (f *progressionFixture) counter(t *testing.T, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, f.reader.Collect(context.Background(), &rm))

	var total int64

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == name {
				for _, point := range sum.DataPoints {
					total += point.Value
				}
			}
		}
	}

	return total
}

func (f *progressionFixture) publishedTypes() []events.EventType {
	published := f.bus.Published()

	types := make([]events.EventType, 0, len(published))
	for _, event := range published {
		types = append(types, event.GetType())
	}

	return types
}

func TestProgression_MoveToStage(t *testing.T) {
	f := newProgressionFixture(t)
	application := f.env.newApplication(t, "position-1", strPtr(phaseInterview))

	application.TaskStatus = models.TaskStatusBlocked
	require.NoError(t, f.env.persistence.ApplicationRepository().Save(t.Context(), application))

	result, err := f.progression.MoveToStage(t.Context(), application.ID, f.applied.ID, intPtr(48))
	require.NoError(t, err)

	moved := result.Application
	require.NotNil(t, moved.CurrentStageID)
	assert.Equal(t, f.applied.ID, *moved.CurrentStageID)
	assert.Equal(t, testNow, *moved.StageEnteredAt)
	assert.Equal(t, testNow.Add(48*time.Hour), *moved.StageDeadline)
	assert.Equal(t, models.TaskStatusPending, moved.TaskStatus)
	assert.Equal(t, moved.StageDeadline, moved.CalculateStageDeadline(intPtr(48)))
	assert.Nil(t, result.FromStageID)
	assert.Nil(t, result.Cascade)

	require.NotNil(t, result.Record)
	assert.Equal(t, f.applied.ID, result.Record.StageID)
	assert.Equal(t, f.workflow.ID, result.Record.WorkflowID)
	assert.Equal(t, phaseInterview, *result.Record.PhaseID)
	assert.Equal(t, moved.StageDeadline, result.Record.Deadline)

	stored, err := f.progression.FetchApplication(t.Context(), application.ID)
	require.NoError(t, err)
	assert.Equal(t, moved.Version, stored.Version)

	assert.Equal(t, []events.EventType{events.StageChangedEvent}, f.publishedTypes())
	assert.Equal(t, int64(1), f.counter(t, "hirepath.stage.changes"))
}

func TestProgression_DeadlineScenario(t *testing.T) {
	f := newProgressionFixture(t)
	application := f.env.newApplication(t, "position-1", nil)

	result, err := f.progression.MoveToStage(t.Context(), application.ID, f.applied.ID, intPtr(48))
	require.NoError(t, err)

	moved := result.Application
	assert.True(t, moved.IsStageDeadlinePassed(testNow.Add(49*time.Hour)))
	assert.False(t, moved.IsStageDeadlinePassed(testNow.Add(47*time.Hour)))
}

func TestProgression_TimeLimitResolution(t *testing.T) {
	tests := []struct {
		name         string
		stage        func(f *progressionFixture) *models.WorkflowStage
		limit        *int
		wantDeadline *time.Time
	}{
		{
			name:         "explicit limit wins",
			stage:        func(f *progressionFixture) *models.WorkflowStage { return f.review },
			limit:        intPtr(6),
			wantDeadline: timePtr(testNow.Add(6 * time.Hour)),
		},
		{
			name:         "deadline override before estimate",
			stage:        func(f *progressionFixture) *models.WorkflowStage { return f.review },
			wantDeadline: timePtr(testNow.Add(24 * time.Hour)),
		},
		{
			name:  "non-positive explicit limit clears the deadline",
			stage: func(f *progressionFixture) *models.WorkflowStage { return f.review },
			limit: intPtr(0),
		},
		{
			name:  "stage without durations has no deadline",
			stage: func(f *progressionFixture) *models.WorkflowStage { return f.applied },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProgressionFixture(t)
			application := f.env.newApplication(t, "position-1", nil)

			result, err := f.progression.MoveToStage(t.Context(), application.ID, tt.stage(f).ID, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDeadline, result.Application.StageDeadline)
		})
	}
}

func TestProgression_TimeLimitBounds(t *testing.T) {
	t.Run("limit beyond the maximum is rejected", func(t *testing.T) {
		f := newProgressionFixture(t)
		application := f.env.newApplication(t, "position-1", nil)

		_, err := f.progression.MoveToStage(t.Context(), application.ID, f.applied.ID, intPtr(models.MaxTimeLimitHours+1))
		require.ErrorIs(t, err, models.ErrTimeLimitOutOfRange)
		assert.True(t, IsValidationError(err))

		stored, err := f.progression.FetchApplication(t.Context(), application.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.CurrentStageID)
	})

	t.Run("longest stage deadline lands after entry", func(t *testing.T) {
		f := newProgressionFixture(t)
		stage := f.env.addStage(t, f.workflow.ID, "Long haul", models.StageTypeNormal, func(r *CreateStageRequest) {
			r.DeadlineDays = intPtr(models.MaxStageDays)
		})
		application := f.env.newApplication(t, "position-1", nil)

		result, err := f.progression.MoveToStage(t.Context(), application.ID, stage.ID, nil)
		require.NoError(t, err)

		moved := result.Application
		require.NotNil(t, moved.StageDeadline)
		assert.Equal(t, testNow.Add(time.Duration(models.MaxTimeLimitHours)*time.Hour), *moved.StageDeadline)
		assert.False(t, moved.IsStageDeadlinePassed(testNow))
	})
}

func TestProgression_InactiveStageCannotBeEntered(t *testing.T) {
	f := newProgressionFixture(t)
	application := f.env.newApplication(t, "position-1", nil)

	_, err := f.env.stages().Update(t.Context(), f.applied.ID, UpdateStageRequest{StageAttributes: StageAttributes{
		Name: f.applied.Name, Type: f.applied.Type, Active: new(bool),
	}})
	require.NoError(t, err)

	_, err = f.progression.MoveToStage(t.Context(), application.ID, f.applied.ID, nil)
	require.ErrorIs(t, err, models.ErrStageInactive)
	assert.True(t, IsConflictError(err))
	assert.Empty(t, f.bus.Published())
}

func TestProgression_CascadeSkipsInactiveStages(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := t.Context()

	deactivate := func(stage *models.WorkflowStage) {
		_, err := f.env.stages().Update(ctx, stage.ID, UpdateStageRequest{StageAttributes: StageAttributes{
			Name: stage.Name, Type: stage.Type, Active: new(bool),
		}})
		require.NoError(t, err)
	}

	dormant := f.env.activeWorkflow(t, "company-1", strPtr(phaseOnboarding))
	deactivate(f.env.addStage(t, dormant.ID, "Dormant", models.StageTypeNormal))

	onboarding := f.env.activeWorkflow(t, "company-1", strPtr(phaseOnboarding))
	deactivate(f.env.addStage(t, onboarding.ID, "Retired paperwork", models.StageTypeNormal))
	welcome := f.env.addStage(t, onboarding.ID, "Welcome", models.StageTypeNormal)

	application := f.env.newApplication(t, "position-1", strPtr(phaseInterview))

	result, err := f.progression.MoveToStage(ctx, application.ID, f.hired.ID, nil)
	require.NoError(t, err)

	require.NotNil(t, result.Cascade)
	assert.True(t, result.Cascade.Cascaded)
	assert.Equal(t, onboarding.ID, result.Cascade.WorkflowID)
	assert.Equal(t, welcome.ID, *result.Application.CurrentStageID)
}

func TestProgression_HistoryIsAppendOnly(t *testing.T) {
	f := newProgressionFixture(t)
	application := f.env.newApplication(t, "position-1", strPtr(phaseInterview))

	_, err := f.progression.MoveToStage(t.Context(), application.ID, f.applied.ID, nil)
	require.NoError(t, err)

	f.env.clock.Advance(2 * time.Hour)

	result, err := f.progression.MoveToStage(t.Context(), application.ID, f.review.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, result.FromStageID)
	assert.Equal(t, f.applied.ID, *result.FromStageID)

	history, err := f.progression.History().ListByApplication(t.Context(), application.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, f.applied.ID, history[0].StageID)
	require.NotNil(t, history[0].CompletedAt)
	assert.Equal(t, testNow.Add(2*time.Hour), *history[0].CompletedAt)

	assert.Equal(t, f.review.ID, history[1].StageID)
	assert.Nil(t, history[1].CompletedAt)
	assert.Equal(t, floatPtr(40), history[1].EstimatedCost)

	current, err := f.progression.History().CurrentRecord(t.Context(), application.ID)
	require.NoError(t, err)
	assert.Equal(t, history[1].ID, current.ID)

	// A completed record cannot be written again.
	_, err = f.progression.History().UpdateData(t.Context(), history[0].ID, map[string]any{"score": 8})
	require.ErrorIs(t, err, models.ErrHistoryAlreadyCompleted)
	assert.True(t, IsConflictError(err))
}

func TestProgression_CascadesIntoNextPhase(t *testing.T) {
	f := newProgressionFixture(t)

	onboarding := f.env.activeWorkflow(t, "company-1", strPtr(phaseOnboarding))
	initial := f.env.addStage(t, onboarding.ID, "Paperwork", models.StageTypeNormal, func(r *CreateStageRequest) {
		r.EstimatedDurationDays = intPtr(2)
	})
	f.env.addStage(t, onboarding.ID, "First day", models.StageTypeSuccess)

	application := f.env.newApplication(t, "position-1", strPtr(phaseInterview))

	_, err := f.progression.MoveToStage(t.Context(), application.ID, f.review.ID, nil)
	require.NoError(t, err)

	f.env.clock.Advance(time.Hour)
	entry := f.env.clock.Now()

	result, err := f.progression.MoveToStage(t.Context(), application.ID, f.hired.ID, nil)
	require.NoError(t, err)

	moved := result.Application
	assert.Equal(t, phaseOnboarding, *moved.CurrentPhaseID)
	assert.Equal(t, initial.ID, *moved.CurrentStageID)
	assert.Equal(t, entry.Add(48*time.Hour), *moved.StageDeadline)
	assert.Equal(t, models.TaskStatusPending, moved.TaskStatus)

	require.NotNil(t, result.Cascade)
	assert.True(t, result.Cascade.Cascaded)
	assert.Equal(t, onboarding.ID, result.Cascade.WorkflowID)
	assert.Equal(t, f.hired.ID, result.ToStageID)
	assert.Equal(t, initial.ID, result.Record.StageID)

	history, err := f.progression.History().ListByApplication(t.Context(), application.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, f.hired.ID, history[1].StageID)
	assert.Equal(t, phaseInterview, *history[1].PhaseID)
	assert.NotNil(t, history[1].CompletedAt)
	assert.Equal(t, initial.ID, history[2].StageID)
	assert.Equal(t, phaseOnboarding, *history[2].PhaseID)
	assert.Nil(t, history[2].CompletedAt)

	assert.Equal(t, []events.EventType{
		events.StageChangedEvent,
		events.StageChangedEvent,
		events.PhaseAdvancedEvent,
	}, f.publishedTypes())
	assert.Equal(t, int64(0), f.counter(t, "hirepath.cascade.degraded"))
}

func TestProgression_CascadeSkipsInactiveAndOtherKinds(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := t.Context()

	draft, err := f.env.workflows().Create(ctx, CreateWorkflowRequest{
		CompanyID: "company-1",
		Name:      "Draft onboarding",
		Kind:      models.WorkflowKindCandidateApplication,
		PhaseID:   strPtr(phaseOnboarding),
	})
	require.NoError(t, err)
	f.env.addStage(t, draft.ID, "Draft stage", models.StageTypeNormal)

	opening, err := f.env.workflows().Create(ctx, CreateWorkflowRequest{
		CompanyID: "company-1",
		Name:      "Opening",
		Kind:      models.WorkflowKindJobOpening,
		PhaseID:   strPtr(phaseOnboarding),
	})
	require.NoError(t, err)
	_, err = f.env.workflows().Activate(ctx, opening.ID)
	require.NoError(t, err)
	f.env.addStage(t, opening.ID, "Opening stage", models.StageTypeNormal)

	empty := f.env.activeWorkflow(t, "company-1", strPtr(phaseOnboarding))

	active := f.env.activeWorkflow(t, "company-1", strPtr(phaseOnboarding))
	initial := f.env.addStage(t, active.ID, "Welcome", models.StageTypeNormal)

	application := f.env.newApplication(t, "position-1", strPtr(phaseInterview))

	result, err := f.progression.MoveToStage(ctx, application.ID, f.hired.ID, nil)
	require.NoError(t, err)

	require.NotNil(t, result.Cascade)
	assert.Equal(t, active.ID, result.Cascade.WorkflowID)
	assert.NotEqual(t, empty.ID, result.Cascade.WorkflowID)
	assert.Equal(t, initial.ID, *result.Application.CurrentStageID)
	assert.Nil(t, result.Application.StageDeadline)
}

func TestProgression_CascadeDegradesToPhasePointer(t *testing.T) {
	f := newProgressionFixture(t)
	application := f.env.newApplication(t, "position-1", strPtr(phaseInterview))

	result, err := f.progression.MoveToStage(t.Context(), application.ID, f.hired.ID, intPtr(12))
	require.NoError(t, err)

	moved := result.Application
	assert.Equal(t, phaseOnboarding, *moved.CurrentPhaseID)
	assert.Equal(t, f.hired.ID, *moved.CurrentStageID)
	assert.Equal(t, testNow.Add(12*time.Hour), *moved.StageDeadline)

	require.NotNil(t, result.Cascade)
	assert.True(t, result.Cascade.Degraded)
	assert.False(t, result.Cascade.Cascaded)

	assert.Equal(t, []events.EventType{events.StageChangedEvent, events.CascadeDegradedEvent}, f.publishedTypes())
	assert.Equal(t, int64(1), f.counter(t, "hirepath.cascade.degraded"))

	history, err := f.progression.History().ListByApplication(t.Context(), application.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, f.hired.ID, history[0].StageID)
}

func TestPhaseTransitionHandler_IsIdempotent(t *testing.T) {
	f := newProgressionFixture(t)
	ctx := t.Context()

	onboarding := f.env.activeWorkflow(t, "company-1", strPtr(phaseOnboarding))
	initial := f.env.addStage(t, onboarding.ID, "Paperwork", models.StageTypeNormal, func(r *CreateStageRequest) {
		r.EstimatedDurationDays = intPtr(2)
	})

	application := f.env.newApplication(t, "position-1", strPtr(phaseInterview))

	_, err := f.progression.MoveToStage(ctx, application.ID, f.hired.ID, nil)
	require.NoError(t, err)

	once, err := f.progression.FetchApplication(ctx, application.ID)
	require.NoError(t, err)

	f.env.clock.Advance(time.Hour)

	handler := NewPhaseTransitionHandler(f.env.persistence, f.progression.History(), f.env.logger)

	var outcome *CascadeOutcome

	err = f.env.persistence.WithinTransaction(ctx, func(ctx context.Context) error {
		reloaded, err := f.env.persistence.ApplicationRepository().GetByID(ctx, application.ID)
		if err != nil {
			return err
		}

		outcome, err = handler.Handle(ctx, reloaded, f.hired, f.env.clock.Now())

		return err
	})
	require.NoError(t, err)
	assert.False(t, outcome.Changed())

	twice, err := f.progression.FetchApplication(ctx, application.ID)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
	assert.Equal(t, initial.ID, *twice.CurrentStageID)

	history, err := f.progression.History().ListByApplication(ctx, application.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestPhaseTransitionHandler_NormalStageDoesNothing(t *testing.T) {
	f := newProgressionFixture(t)
	application := f.env.newApplication(t, "position-1", nil)

	handler := NewPhaseTransitionHandler(f.env.persistence, f.progression.History(), f.env.logger)

	outcome, err := handler.Handle(t.Context(), application, f.review, testNow)
	require.NoError(t, err)
	assert.Nil(t, outcome)
	assert.Nil(t, application.CurrentPhaseID)
}

func TestProgression_FailureRollsBack(t *testing.T) {
	f := newProgressionFixture(t)
	application := f.env.newApplication(t, "position-1", nil)

	_, err := f.progression.MoveToStage(t.Context(), application.ID, "missing-stage", nil)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	_, err = f.progression.MoveToStage(t.Context(), "missing-application", f.applied.ID, nil)
	assert.True(t, IsNotFound(err))

	stored, err := f.progression.FetchApplication(t.Context(), application.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CurrentStageID)
	assert.Empty(t, f.bus.Published())
}

func TestProgression_PublishFailureDoesNotFailTheMove(t *testing.T) {
	env := newTestEnv(t)

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	progression := NewProgression(env.persistence, env.locker, env.clock, env.logger, WithPublisher(bus))

	workflow := env.activeWorkflow(t, "company-1", nil)
	stage := env.addStage(t, workflow.ID, "Applied", models.StageTypeNormal)
	application := env.newApplication(t, "position-1", nil)

	result, err := progression.MoveToStage(t.Context(), application.ID, stage.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, stage.ID, *result.Application.CurrentStageID)
	bus.AssertNumberOfCalls(t, "Publish", 1)
}

func TestProgression_UpdateTaskStatus(t *testing.T) {
	f := newProgressionFixture(t)
	application := f.env.newApplication(t, "position-1", nil)

	updated, err := f.progression.UpdateTaskStatus(t.Context(), application.ID, models.TaskStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, updated.TaskStatus)

	_, err = f.progression.UpdateTaskStatus(t.Context(), application.ID, "waiting")
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.progression.UpdateTaskStatus(t.Context(), "missing", models.TaskStatusBlocked)
	assert.True(t, IsNotFound(err))
}

func TestHistoryRecorder_Complete(t *testing.T) {
	f := newProgressionFixture(t)
	application := f.env.newApplication(t, "position-1", nil)

	result, err := f.progression.MoveToStage(t.Context(), application.ID, f.review.ID, nil)
	require.NoError(t, err)

	recorder := f.progression.History()

	withData, err := recorder.UpdateData(t.Context(), result.Record.ID, map[string]any{"interviewer": "sam"})
	require.NoError(t, err)
	assert.Equal(t, "sam", withData.Data["interviewer"])

	_, err = recorder.UpdateData(t.Context(), result.Record.ID, nil)
	require.ErrorIs(t, err, ErrInvalidRequest)

	f.env.clock.Advance(30 * time.Hour)
	assert.True(t, recorder.Overdue(withData))

	completed, err := recorder.Complete(t.Context(), result.Record.ID, CompleteRecordRequest{
		ActualCost: floatPtr(55),
		Comments:   strPtr("strong hire"),
	})
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(30*time.Hour), *completed.CompletedAt)
	assert.Equal(t, floatPtr(55), completed.ActualCost)
	assert.Equal(t, "strong hire", completed.Comments)
	assert.Equal(t, "sam", completed.Data["interviewer"])
	assert.False(t, recorder.Overdue(completed))

	_, err = recorder.Complete(t.Context(), result.Record.ID, CompleteRecordRequest{})
	require.ErrorIs(t, err, models.ErrHistoryAlreadyCompleted)

	_, err = recorder.CurrentRecord(t.Context(), application.ID)
	assert.True(t, persistence.IsHistoryRecordNotFound(err))
}
