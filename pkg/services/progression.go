package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hirepath/hirepath/pkg/eventbus"
	"github.com/hirepath/hirepath/pkg/events"
	"github.com/hirepath/hirepath/pkg/locking"
	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/otelhelper"
	"github.com/hirepath/hirepath/pkg/persistence"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Progression moves candidate applications between stages. It is the single entry point for
// stage changes; phase changes only happen through the cascade it triggers.
type Progression struct {
	persistence persistence.Persistence
	locker      locking.Locker
	clock       clockwork.Clock
	logger      *slog.Logger

	history *HistoryRecorder
	phases  *PhaseTransitionHandler

	publisher eventbus.EventPublisher
	metrics   *otelhelper.Metrics
	tracer    trace.Tracer
}

// ProgressionOption configures optional collaborators of a Progression.
type ProgressionOption func(*Progression)

// WithPublisher publishes progression events after each committed move.
func WithPublisher(publisher eventbus.EventPublisher) ProgressionOption {
	return func(p *Progression) { p.publisher = publisher }
}

// WithMetrics records stage changes and degraded cascades.
func WithMetrics(metrics *otelhelper.Metrics) ProgressionOption {
	return func(p *Progression) { p.metrics = metrics }
}

// WithTracer replaces the global tracer.
func WithTracer(tracer trace.Tracer) ProgressionOption {
	return func(p *Progression) { p.tracer = tracer }
}

// NewProgression creates a new progression service.
func NewProgression(
	p persistence.Persistence,
	locker locking.Locker,
	clock clockwork.Clock,
	logger *slog.Logger,
	opts ...ProgressionOption,
) *Progression {
	history := NewHistoryRecorder(p, clock, logger)

	progression := &Progression{
		persistence: p,
		locker:      locker,
		clock:       clock,
		logger:      logger.With("module", "progression_service"),
		history:     history,
		phases:      NewPhaseTransitionHandler(p, history, logger),
		tracer:      otel.Tracer("hirepath/progression"),
	}

	for _, opt := range opts {
		opt(progression)
	}

	return progression
}

// History returns the recorder used for progression history.
func (p *Progression) History() *HistoryRecorder {
	return p.history
}

// MoveResult is the outcome of a committed stage change.
type MoveResult struct {
	Application *models.CandidateApplication      `json:"application"`
	Record      *models.CandidateApplicationStage `json:"record"`
	FromStageID *string                           `json:"from_stage_id,omitempty"`
	ToStageID   string                            `json:"to_stage_id"`
	Cascade     *CascadeOutcome                   `json:"-"`
}

// MoveToStage puts an application in a stage and runs the phase cascade, all in one unit of
// work. A nil timeLimitHours falls back to the stage's deadline override, then its estimated
// duration. A non-positive explicit limit means no deadline; one above
// models.MaxTimeLimitHours is rejected. Inactive stages cannot be entered.
func (p *Progression) MoveToStage(ctx context.Context, applicationID, stageID string, timeLimitHours *int) (*MoveResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "progression.move_to_stage",
		attribute.String(otelhelper.ApplicationIDKey, applicationID),
		attribute.String(otelhelper.StageIDKey, stageID),
	)
	defer span.End()

	err := models.ValidateTimeLimit(timeLimitHours)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, NewValidationError("MoveToStage", "INVALID_TIME_LIMIT", err.Error(), err)
	}

	now := p.clock.Now().UTC()

	var result *MoveResult

	err = withLock(ctx, p.locker, locking.ApplicationKey(applicationID), func() error {
		return p.persistence.WithinTransaction(ctx, func(ctx context.Context) error {
			var err error

			result, err = p.moveToStage(ctx, applicationID, stageID, timeLimitHours, now)

			return err
		})
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.WorkflowIDKey, result.Record.WorkflowID))

	if result.FromStageID != nil {
		span.SetAttributes(attribute.String(otelhelper.FromStageIDKey, *result.FromStageID))
	}

	if phaseID := result.Application.CurrentPhaseID; phaseID != nil {
		span.SetAttributes(attribute.String(otelhelper.PhaseIDKey, *phaseID))
	}

	p.afterCommit(ctx, result, now)

	return result, nil
}

func (p *Progression) moveToStage(
	ctx context.Context,
	applicationID, stageID string,
	timeLimitHours *int,
	now time.Time,
) (*MoveResult, error) {
	application, err := p.persistence.ApplicationRepository().GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	stage, err := p.persistence.StageRepository().GetByID(ctx, stageID)
	if err != nil {
		return nil, err
	}

	if !stage.Active {
		return nil, NewConflictError("MoveToStage", "STAGE_INACTIVE", models.ErrStageInactive)
	}

	limit := timeLimitHours
	if limit == nil {
		limit = stage.DefaultTimeLimitHours()
	}

	var from *string
	if application.CurrentStageID != nil {
		previous := *application.CurrentStageID
		from = &previous
	}

	application.MoveToStage(stage.ID, limit, now)

	err = p.persistence.ApplicationRepository().Save(ctx, application)
	if err != nil {
		return nil, fmt.Errorf("failed to save application: %w", err)
	}

	record, err := p.history.RecordTransition(ctx, application, stage, now)
	if err != nil {
		return nil, err
	}

	result := &MoveResult{
		Application: application,
		Record:      record,
		FromStageID: from,
		ToStageID:   stage.ID,
	}

	cascade, err := p.phases.Handle(ctx, application, stage, now)
	if err != nil {
		return nil, fmt.Errorf("phase transition failed: %w", err)
	}

	if cascade.Changed() {
		result.Cascade = cascade

		if cascade.Record != nil {
			result.Record = cascade.Record
		}
	}

	return result, nil
}

// afterCommit records metrics and publishes events. Publishing is best effort: the move is
// already committed, so failures are only logged.
func (p *Progression) afterCommit(ctx context.Context, result *MoveResult, now time.Time) {
	application := result.Application

	p.metrics.StageChanged(ctx, result.ToStageID)

	changed := events.StageChanged{
		BaseEvent:   p.baseEvent(events.StageChangedEvent, application.ID, now),
		FromStageID: result.FromStageID,
		ToStageID:   result.ToStageID,
		PhaseID:     application.CurrentPhaseID,
	}

	if result.Cascade == nil {
		changed.StageDeadline = application.StageDeadline
	} else {
		changed.PhaseID = result.Cascade.FromPhaseID
	}

	pending := []eventbus.Event{changed}

	if cascade := result.Cascade; cascade != nil {
		switch {
		case cascade.Cascaded:
			p.metrics.StageChanged(ctx, cascade.InitialStage.ID)

			pending = append(pending, events.PhaseAdvanced{
				BaseEvent:      p.baseEvent(events.PhaseAdvancedEvent, application.ID, now),
				FromPhaseID:    cascade.FromPhaseID,
				ToPhaseID:      cascade.NextPhaseID,
				WorkflowID:     cascade.WorkflowID,
				InitialStageID: cascade.InitialStage.ID,
			})
		case cascade.Degraded:
			p.metrics.CascadeDegraded(ctx, cascade.NextPhaseID)

			pending = append(pending, events.CascadeDegraded{
				BaseEvent:       p.baseEvent(events.CascadeDegradedEvent, application.ID, now),
				TerminalStageID: cascade.TerminalStageID,
				NextPhaseID:     cascade.NextPhaseID,
				Reason:          cascade.Reason,
			})
		}
	}

	p.logger.InfoContext(ctx, "Application moved",
		"application_id", application.ID,
		"stage_id", result.Record.StageID,
		"phase_id", stringValue(application.CurrentPhaseID),
		"stage_deadline", application.StageDeadline,
	)

	if p.publisher == nil {
		return
	}

	for _, event := range pending {
		err := p.publisher.Publish(ctx, application.ID, event)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to publish progression event",
				"application_id", application.ID,
				"event_type", event.GetType(),
				"error", err,
			)
		}
	}
}

func (p *Progression) baseEvent(eventType events.EventType, applicationID string, now time.Time) events.BaseEvent {
	return events.BaseEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		Timestamp:     now,
		ApplicationID: applicationID,
	}
}

// FetchApplication returns the progression snapshot of an application.
func (p *Progression) FetchApplication(ctx context.Context, applicationID string) (*models.CandidateApplication, error) {
	return p.persistence.ApplicationRepository().GetByID(ctx, applicationID)
}

// UpdateTaskStatus changes the task status of the application's current stage.
func (p *Progression) UpdateTaskStatus(ctx context.Context, applicationID string, status models.TaskStatus) (*models.CandidateApplication, error) {
	err := validate.Var(status, "required,oneof=pending in_progress completed blocked")
	if err != nil {
		return nil, NewValidationError("UpdateTaskStatus", "INVALID_TASK_STATUS", fmt.Sprintf("invalid task status '%s'", status), ErrInvalidRequest)
	}

	var application *models.CandidateApplication

	err = withLock(ctx, p.locker, locking.ApplicationKey(applicationID), func() error {
		var err error

		application, err = p.persistence.ApplicationRepository().GetByID(ctx, applicationID)
		if err != nil {
			return err
		}

		application.TaskStatus = status
		application.UpdatedAt = p.clock.Now().UTC()

		return p.persistence.ApplicationRepository().Save(ctx, application)
	})
	if err != nil {
		return nil, err
	}

	return application, nil
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
