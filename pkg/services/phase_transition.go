package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/persistence"
)

// CascadeOutcome describes what a phase transition did to an application.
type CascadeOutcome struct {
	// Cascaded is true when the application moved into the initial stage of the next phase.
	Cascaded bool
	// Degraded is true when the next phase had no active workflow or initial stage and only
	// the phase pointer moved.
	Degraded bool
	Reason   string

	FromPhaseID     *string
	NextPhaseID     string
	TerminalStageID string
	WorkflowID      string
	InitialStage    *models.WorkflowStage
	Record          *models.CandidateApplicationStage
}

// Changed reports whether the application was modified.
func (o *CascadeOutcome) Changed() bool {
	return o != nil && (o.Cascaded || o.Degraded)
}

// PhaseTransitionHandler advances an application into the next phase when it enters a
// terminal stage configured with one.
type PhaseTransitionHandler struct {
	persistence persistence.Persistence
	history     *HistoryRecorder
	logger      *slog.Logger
}

// NewPhaseTransitionHandler creates a new phase transition handler.
func NewPhaseTransitionHandler(p persistence.Persistence, history *HistoryRecorder, logger *slog.Logger) *PhaseTransitionHandler {
	return &PhaseTransitionHandler{
		persistence: p,
		history:     history,
		logger:      logger.With("module", "phase_transition"),
	}
}

// Handle inspects the stage the application just entered and cascades it when needed. It
// returns nil when nothing had to change, including when the application already sits in the
// target phase and stage, so it is safe to retry. It must run in the unit of work of the
// stage change that triggered it.
func (h *PhaseTransitionHandler) Handle(
	ctx context.Context,
	application *models.CandidateApplication,
	stage *models.WorkflowStage,
	now time.Time,
) (*CascadeOutcome, error) {
	if !stage.CascadesToPhase() {
		return nil, nil
	}

	nextPhaseID := *stage.NextPhaseID

	workflow, initial, err := h.resolveInitialStage(ctx, nextPhaseID)
	if err != nil {
		return nil, err
	}

	outcome := &CascadeOutcome{
		FromPhaseID:     application.CurrentPhaseID,
		NextPhaseID:     nextPhaseID,
		TerminalStageID: stage.ID,
	}

	if initial == nil {
		if application.IsInPhase(nextPhaseID) {
			return nil, nil
		}

		application.MoveToNextPhase(nextPhaseID, nil, nil, now)

		err = h.persistence.ApplicationRepository().Save(ctx, application)
		if err != nil {
			return nil, fmt.Errorf("failed to advance phase: %w", err)
		}

		outcome.Degraded = true
		outcome.Reason = "no active workflow with an active stage for phase"

		h.logger.WarnContext(ctx, "Phase cascade degraded to phase pointer only",
			"application_id", application.ID,
			"terminal_stage_id", stage.ID,
			"next_phase_id", nextPhaseID,
			"reason", outcome.Reason,
		)

		return outcome, nil
	}

	if application.IsInStage(nextPhaseID, initial.ID) {
		return nil, nil
	}

	application.MoveToNextPhase(nextPhaseID, &initial.ID, initial.EstimatedDurationHours(), now)

	err = h.persistence.ApplicationRepository().Save(ctx, application)
	if err != nil {
		return nil, fmt.Errorf("failed to advance phase: %w", err)
	}

	record, err := h.history.RecordTransition(ctx, application, initial, now)
	if err != nil {
		return nil, err
	}

	outcome.Cascaded = true
	outcome.WorkflowID = workflow.ID
	outcome.InitialStage = initial
	outcome.Record = record

	h.logger.InfoContext(ctx, "Application advanced to next phase",
		"application_id", application.ID,
		"next_phase_id", nextPhaseID,
		"workflow_id", workflow.ID,
		"initial_stage_id", initial.ID,
	)

	return outcome, nil
}

// resolveInitialStage picks the entry stage of a phase from its active candidate application
// workflows, the default workflow first. The entry stage is the workflow's initial stage, or
// its first active stage when the initial one is inactive. Workflows without an active stage
// are skipped. Both results are nil when nothing qualifies.
func (h *PhaseTransitionHandler) resolveInitialStage(ctx context.Context, phaseID string) (*models.Workflow, *models.WorkflowStage, error) {
	workflows, err := h.persistence.WorkflowRepository().ListByPhaseID(ctx, phaseID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list workflows of phase %s: %w", phaseID, err)
	}

	candidates := slices.DeleteFunc(slices.Clone(workflows), func(w *models.Workflow) bool {
		return !w.IsActive() || w.Kind != models.WorkflowKindCandidateApplication
	})

	slices.SortStableFunc(candidates, func(a, b *models.Workflow) int {
		switch {
		case a.IsDefault == b.IsDefault:
			return 0
		case a.IsDefault:
			return -1
		default:
			return 1
		}
	})

	for _, workflow := range candidates {
		initial, err := h.entryStage(ctx, workflow.ID)
		if err != nil {
			return nil, nil, err
		}

		if initial != nil {
			return workflow, initial, nil
		}
	}

	return nil, nil, nil
}

func (h *PhaseTransitionHandler) entryStage(ctx context.Context, workflowID string) (*models.WorkflowStage, error) {
	initial, err := h.persistence.StageRepository().GetInitialStage(ctx, workflowID)
	if err != nil {
		if persistence.IsStageNotFound(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get initial stage of workflow %s: %w", workflowID, err)
	}

	if initial.Active {
		return initial, nil
	}

	stages, err := h.persistence.StageRepository().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages of workflow %s: %w", workflowID, err)
	}

	idx := slices.IndexFunc(stages, func(s *models.WorkflowStage) bool { return s.Active })
	if idx < 0 {
		return nil, nil
	}

	return stages[idx], nil
}
