package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/hirepath/hirepath/pkg/locking"
	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/persistence"
	"github.com/jonboulle/clockwork"
)

// Stage manages the stage definitions of workflows. Every change to a workflow's stage list
// runs under the workflow's stage lock and keeps the order values a dense 1..N sequence.
type Stage struct {
	persistence persistence.Persistence
	locker      locking.Locker
	clock       clockwork.Clock
	logger      *slog.Logger
}

// NewStage creates a new stage service.
func NewStage(p persistence.Persistence, locker locking.Locker, clock clockwork.Clock, logger *slog.Logger) *Stage {
	return &Stage{
		persistence: p,
		locker:      locker,
		clock:       clock,
		logger:      logger.With("module", "stage_service"),
	}
}

// StageAttributes are the editable fields of a stage definition.
type StageAttributes struct {
	Name                  string            `json:"name"                              validate:"required,min=1,max=255"`
	Description           string            `json:"description"`
	Type                  models.StageType  `json:"type"                              validate:"required,oneof=normal success fail"`
	AllowSkip             bool              `json:"allow_skip"`
	EstimatedDurationDays *int              `json:"estimated_duration_days,omitempty" validate:"omitempty,min=0,max=36500"`
	Active                *bool             `json:"active,omitempty"`
	DefaultRoleIDs        []string          `json:"default_role_ids"`
	DefaultUserIDs        []string          `json:"default_user_ids"`
	EmailTemplateID       *string           `json:"email_template_id,omitempty"`
	DeadlineDays          *int              `json:"deadline_days,omitempty"           validate:"omitempty,min=0,max=36500"`
	EstimatedCost         *float64          `json:"estimated_cost,omitempty"          validate:"omitempty,min=0"`
	NextPhaseID           *string           `json:"next_phase_id,omitempty"`
	Style                 models.StageStyle `json:"style"`
	ValidationRules       json.RawMessage   `json:"validation_rules,omitempty"`
}

func (a StageAttributes) applyTo(stage *models.WorkflowStage) {
	stage.Name = strings.TrimSpace(a.Name)
	stage.Description = a.Description
	stage.Type = a.Type
	stage.AllowSkip = a.AllowSkip
	stage.EstimatedDurationDays = a.EstimatedDurationDays
	stage.DefaultRoleIDs = a.DefaultRoleIDs
	stage.DefaultUserIDs = a.DefaultUserIDs
	stage.EmailTemplateID = a.EmailTemplateID
	stage.DeadlineDays = a.DeadlineDays
	stage.EstimatedCost = a.EstimatedCost
	stage.NextPhaseID = a.NextPhaseID
	stage.Style = a.Style
	stage.ValidationRules = a.ValidationRules

	if a.Active != nil {
		stage.Active = *a.Active
	}
}

// CreateStageRequest describes a new stage. Order is 1-based; zero appends the stage after
// the last one.
type CreateStageRequest struct {
	StageAttributes

	Order int `json:"order" validate:"min=0"`
}

// Create inserts a stage at the requested order, shifting the stages at or after it down by one.
func (s *Stage) Create(ctx context.Context, workflowID string, req CreateStageRequest) (*models.WorkflowStage, error) {
	err := validateStruct("CreateStage", req)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()

	stage := &models.WorkflowStage{
		WorkflowID: workflowID,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	req.applyTo(stage)

	err = withLock(ctx, s.locker, locking.WorkflowStagesKey(workflowID), func() error {
		return s.persistence.WithinTransaction(ctx, func(ctx context.Context) error {
			_, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
			if err != nil {
				return err
			}

			stages, err := s.persistence.StageRepository().ListByWorkflow(ctx, workflowID)
			if err != nil {
				return fmt.Errorf("failed to list stages: %w", err)
			}

			err = checkDenseOrder("CreateStage", workflowID, stages)
			if err != nil {
				return err
			}

			stage.Order = req.Order
			if stage.Order == 0 {
				stage.Order = len(stages) + 1
			}

			if stage.Order > len(stages)+1 {
				return NewValidationError(
					"CreateStage",
					"STAGE_ORDER_OUT_OF_RANGE",
					fmt.Sprintf("order %d is outside 1..%d", stage.Order, len(stages)+1),
					ErrStageOrderOutOfRange,
				)
			}

			err = stage.Validate()
			if err != nil {
				return NewValidationError("CreateStage", "INVALID_STAGE", err.Error(), err)
			}

			// Shift from the end so no two stages share an order in between writes.
			for _, existing := range slices.Backward(stages) {
				if existing.Order < stage.Order {
					break
				}

				existing.Order++
				existing.UpdatedAt = now

				err = s.persistence.StageRepository().Save(ctx, existing)
				if err != nil {
					return fmt.Errorf("failed to shift stage %s: %w", existing.ID, err)
				}
			}

			err = s.persistence.StageRepository().Save(ctx, stage)
			if err != nil {
				return fmt.Errorf("failed to create stage: %w", err)
			}

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Stage created", "workflow_id", workflowID, "stage_id", stage.ID, "order", stage.Order)

	return stage, nil
}

// UpdateStageRequest replaces the editable fields of a stage. Order changes go through the
// reorderer.
type UpdateStageRequest struct {
	StageAttributes

	// ExpectedVersion, when set, must match the stored version.
	ExpectedVersion int64 `json:"version,omitempty"`
}

// Update modifies a stage definition.
func (s *Stage) Update(ctx context.Context, stageID string, req UpdateStageRequest) (*models.WorkflowStage, error) {
	err := validateStruct("UpdateStage", req)
	if err != nil {
		return nil, err
	}

	stage, err := s.persistence.StageRepository().GetByID(ctx, stageID)
	if err != nil {
		return nil, err
	}

	if req.ExpectedVersion != 0 && req.ExpectedVersion != stage.Version {
		return nil, persistence.NewStageError("Update", stageID, persistence.ErrVersionConflict)
	}

	req.applyTo(stage)
	stage.UpdatedAt = s.clock.Now().UTC()

	err = stage.Validate()
	if err != nil {
		return nil, NewValidationError("UpdateStage", "INVALID_STAGE", err.Error(), err)
	}

	err = s.persistence.StageRepository().Save(ctx, stage)
	if err != nil {
		return nil, fmt.Errorf("failed to update stage: %w", err)
	}

	return stage, nil
}

// FetchByID retrieves a stage by its ID.
func (s *Stage) FetchByID(ctx context.Context, stageID string) (*models.WorkflowStage, error) {
	return s.persistence.StageRepository().GetByID(ctx, stageID)
}

// List returns the stages of a workflow ordered by their order value.
func (s *Stage) List(ctx context.Context, workflowID string) ([]*models.WorkflowStage, error) {
	_, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return s.persistence.StageRepository().ListByWorkflow(ctx, workflowID)
}

// ListByPhase returns the stages of every workflow attached to a phase, grouped by workflow
// and ordered within each.
func (s *Stage) ListByPhase(ctx context.Context, phaseID string) ([]*models.WorkflowStage, error) {
	if strings.TrimSpace(phaseID) == "" {
		return nil, NewValidationError("ListPhaseStages", "PHASE_REQUIRED", "phase id is required", ErrInvalidRequest)
	}

	stages, err := s.persistence.StageRepository().ListByPhase(ctx, phaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages of phase %s: %w", phaseID, err)
	}

	return stages, nil
}

// FinalStages returns the success and fail stages of a workflow.
func (s *Stage) FinalStages(ctx context.Context, workflowID string) ([]*models.WorkflowStage, error) {
	_, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return s.persistence.StageRepository().GetFinalStages(ctx, workflowID)
}

// Delete removes a stage and closes the gap it leaves in the order sequence.
func (s *Stage) Delete(ctx context.Context, stageID string) error {
	stage, err := s.persistence.StageRepository().GetByID(ctx, stageID)
	if err != nil {
		return err
	}

	workflowID := stage.WorkflowID

	err = withLock(ctx, s.locker, locking.WorkflowStagesKey(workflowID), func() error {
		return s.persistence.WithinTransaction(ctx, func(ctx context.Context) error {
			now := s.clock.Now().UTC()

			stages, err := s.persistence.StageRepository().ListByWorkflow(ctx, workflowID)
			if err != nil {
				return fmt.Errorf("failed to list stages: %w", err)
			}

			err = checkDenseOrder("DeleteStage", workflowID, stages)
			if err != nil {
				return err
			}

			idx := slices.IndexFunc(stages, func(st *models.WorkflowStage) bool { return st.ID == stageID })
			if idx < 0 {
				return persistence.NewStageError("Delete", stageID, persistence.ErrStageNotFound)
			}

			err = s.persistence.StageRepository().Delete(ctx, stageID)
			if err != nil {
				return fmt.Errorf("failed to delete stage: %w", err)
			}

			for _, later := range stages[idx+1:] {
				later.Order--
				later.UpdatedAt = now

				err = s.persistence.StageRepository().Save(ctx, later)
				if err != nil {
					return fmt.Errorf("failed to shift stage %s: %w", later.ID, err)
				}
			}

			return nil
		})
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Stage deleted", "workflow_id", workflowID, "stage_id", stageID)

	return nil
}

// checkDenseOrder reports ErrOrderingConflict unless the ordered stages read 1..N.
func checkDenseOrder(op, workflowID string, stages []*models.WorkflowStage) error {
	for i, stage := range stages {
		if stage.Order != i+1 {
			return &ServiceError{
				Op:      op,
				Code:    "ORDERING_CONFLICT",
				Message: fmt.Sprintf("workflow %s: stage %s has order %d at position %d", workflowID, stage.ID, stage.Order, i+1),
				Err:     ErrOrderingConflict,
			}
		}
	}

	return nil
}
