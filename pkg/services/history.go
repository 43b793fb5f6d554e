package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/persistence"
	"github.com/jonboulle/clockwork"
)

// HistoryRecorder appends progression history records. Completed records are never written again.
type HistoryRecorder struct {
	persistence persistence.Persistence
	clock       clockwork.Clock
	logger      *slog.Logger
}

// NewHistoryRecorder creates a new history recorder.
func NewHistoryRecorder(p persistence.Persistence, clock clockwork.Clock, logger *slog.Logger) *HistoryRecorder {
	return &HistoryRecorder{
		persistence: p,
		clock:       clock,
		logger:      logger.With("module", "history_recorder"),
	}
}

// RecordTransition closes the application's open record at now and opens one for the stage
// the application just entered. It must run in the unit of work that moved the application.
func (h *HistoryRecorder) RecordTransition(
	ctx context.Context,
	application *models.CandidateApplication,
	stage *models.WorkflowStage,
	now time.Time,
) (*models.CandidateApplicationStage, error) {
	repo := h.persistence.HistoryRepository()

	open, err := repo.GetOpenByApplication(ctx, application.ID)

	switch {
	case err == nil:
		closed, err := open.Complete(now, nil, nil, now)
		if err != nil {
			return nil, err
		}

		err = repo.Save(ctx, closed)
		if err != nil {
			return nil, fmt.Errorf("failed to close history record: %w", err)
		}
	case !persistence.IsHistoryRecordNotFound(err):
		return nil, fmt.Errorf("failed to load open history record: %w", err)
	}

	record := &models.CandidateApplicationStage{
		ApplicationID: application.ID,
		PhaseID:       application.CurrentPhaseID,
		WorkflowID:    stage.WorkflowID,
		StageID:       stage.ID,
		StartedAt:     now,
		Deadline:      application.StageDeadline,
		EstimatedCost: stage.EstimatedCost,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = repo.Save(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to open history record: %w", err)
	}

	return record, nil
}

// CompleteRecordRequest closes a record. A nil CompletedAt means now.
type CompleteRecordRequest struct {
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ActualCost  *float64   `json:"actual_cost,omitempty"  validate:"omitempty,min=0"`
	Comments    *string    `json:"comments,omitempty"`
}

// Complete closes an open record, merging the optional cost and comments.
func (h *HistoryRecorder) Complete(ctx context.Context, recordID string, req CompleteRecordRequest) (*models.CandidateApplicationStage, error) {
	err := validateStruct("CompleteHistoryRecord", req)
	if err != nil {
		return nil, err
	}

	record, err := h.persistence.HistoryRepository().GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	now := h.clock.Now().UTC()

	completedAt := now
	if req.CompletedAt != nil {
		completedAt = req.CompletedAt.UTC()
	}

	completed, err := record.Complete(completedAt, req.ActualCost, req.Comments, now)
	if err != nil {
		return nil, NewConflictError("CompleteHistoryRecord", "HISTORY_COMPLETED", err)
	}

	err = h.persistence.HistoryRepository().Save(ctx, completed)
	if err != nil {
		return nil, fmt.Errorf("failed to complete history record: %w", err)
	}

	h.logger.InfoContext(ctx, "History record completed", "record_id", recordID, "application_id", record.ApplicationID)

	return completed, nil
}

// UpdateData shallow-merges patch into the free-form data of an open record.
func (h *HistoryRecorder) UpdateData(ctx context.Context, recordID string, patch map[string]any) (*models.CandidateApplicationStage, error) {
	if len(patch) == 0 {
		return nil, NewValidationError("UpdateHistoryData", "EMPTY_PATCH", "data patch is empty", ErrInvalidRequest)
	}

	record, err := h.persistence.HistoryRepository().GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	updated, err := record.UpdateData(patch, h.clock.Now().UTC())
	if err != nil {
		return nil, NewConflictError("UpdateHistoryData", "HISTORY_COMPLETED", err)
	}

	err = h.persistence.HistoryRepository().Save(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("failed to update history data: %w", err)
	}

	return updated, nil
}

// ListByApplication returns the history of an application, oldest first.
func (h *HistoryRecorder) ListByApplication(ctx context.Context, applicationID string) ([]*models.CandidateApplicationStage, error) {
	_, err := h.persistence.ApplicationRepository().GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	return h.persistence.HistoryRepository().ListByApplication(ctx, applicationID)
}

// CurrentRecord returns the open record of an application.
func (h *HistoryRecorder) CurrentRecord(ctx context.Context, applicationID string) (*models.CandidateApplicationStage, error) {
	return h.persistence.HistoryRepository().GetOpenByApplication(ctx, applicationID)
}

// Overdue reports whether a record is open and past its deadline at the current time.
func (h *HistoryRecorder) Overdue(record *models.CandidateApplicationStage) bool {
	return record.IsOverdue(h.clock.Now())
}
