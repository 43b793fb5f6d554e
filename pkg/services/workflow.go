package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/hirepath/hirepath/pkg/locking"
	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/persistence"
	"github.com/jonboulle/clockwork"
)

// Workflow manages the lifecycle of workflows.
type Workflow struct {
	persistence persistence.Persistence
	locker      locking.Locker
	clock       clockwork.Clock
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(p persistence.Persistence, locker locking.Locker, clock clockwork.Clock, logger *slog.Logger) *Workflow {
	return &Workflow{
		persistence: p,
		locker:      locker,
		clock:       clock,
		logger:      logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateWorkflowRequest describes a new workflow.
type CreateWorkflowRequest struct {
	CompanyID   string              `json:"company_id"   validate:"required"`
	Name        string              `json:"name"         validate:"required,min=1,max=255"`
	Description string              `json:"description"`
	Kind        models.WorkflowKind `json:"kind"         validate:"required,oneof=job_opening candidate_application candidate_onboarding"`
	DisplayMode models.DisplayMode  `json:"display_mode" validate:"omitempty,oneof=kanban list"`
	PhaseID     *string             `json:"phase_id,omitempty"`
	IsDefault   bool                `json:"is_default"`
}

// Create adds a new draft workflow. A draft cannot be the default of its kind, so asking for
// the default flag at creation time is rejected; activate then SetAsDefault instead.
func (w *Workflow) Create(ctx context.Context, req CreateWorkflowRequest) (*models.Workflow, error) {
	err := validateStruct("CreateWorkflow", req)
	if err != nil {
		return nil, err
	}

	if req.IsDefault {
		return nil, NewConflictError("CreateWorkflow", "DEFAULT_REQUIRES_ACTIVE", ErrDefaultOnCreate)
	}

	if req.DisplayMode == "" {
		req.DisplayMode = models.DisplayModeKanban
	}

	now := w.clock.Now().UTC()
	workflow := &models.Workflow{
		CompanyID:   req.CompanyID,
		Kind:        req.Kind,
		DisplayMode: req.DisplayMode,
		PhaseID:     req.PhaseID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Status:      models.WorkflowStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow created", "workflow_id", workflow.ID, "company_id", workflow.CompanyID, "kind", workflow.Kind)

	return workflow, nil
}

// ListWorkflowsRequest contains options for listing a company's workflows.
type ListWorkflowsRequest struct {
	CompanyID string
	Kind      *models.WorkflowKind
	Status    *models.WorkflowStatus

	SortBy    string
	SortOrder string
}

// List retrieves a company's workflows with filtering and sorting.
func (w *Workflow) List(ctx context.Context, req ListWorkflowsRequest) ([]*models.Workflow, error) {
	err := w.validateListRequest(&req)
	if err != nil {
		return nil, err
	}

	workflows, err := w.persistence.WorkflowRepository().ListByCompany(ctx, req.CompanyID, persistence.ListWorkflowsOptions{
		Kind:      req.Kind,
		Status:    req.Status,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		if persistence.IsInvalidSortField(err) {
			return nil, ErrInvalidSortField
		}

		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

func (w *Workflow) validateListRequest(req *ListWorkflowsRequest) error {
	if strings.TrimSpace(req.CompanyID) == "" {
		return NewValidationError("ListWorkflows", "COMPANY_REQUIRED", "company id is required", ErrInvalidRequest)
	}

	if req.SortBy == "" {
		req.SortBy = "created_at"
	}

	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}

	// Validate sort parameters against allowlist
	allowedSorts := []string{"created_at", "updated_at", "name"}

	if !slices.Contains(allowedSorts, req.SortBy) {
		return NewValidationError(
			"ListWorkflows",
			"INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field '%s', allowed: %s", req.SortBy, strings.Join(allowedSorts, ", ")),
			ErrInvalidSortField,
		)
	}

	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		return NewValidationError(
			"ListWorkflows",
			"INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder),
			ErrInvalidSortOrder,
		)
	}

	if req.Status != nil {
		allowedStatuses := []models.WorkflowStatus{
			models.WorkflowStatusDraft,
			models.WorkflowStatusActive,
			models.WorkflowStatusArchived,
		}

		if !slices.Contains(allowedStatuses, *req.Status) {
			return NewValidationError("ListWorkflows", "INVALID_STATUS", fmt.Sprintf("invalid status '%s'", *req.Status), ErrInvalidStatus)
		}
	}

	if req.Kind != nil {
		allowedKinds := []models.WorkflowKind{
			models.WorkflowKindJobOpening,
			models.WorkflowKindCandidateApplication,
			models.WorkflowKindCandidateOnboarding,
		}

		if !slices.Contains(allowedKinds, *req.Kind) {
			return NewValidationError("ListWorkflows", "INVALID_KIND", fmt.Sprintf("invalid kind '%s'", *req.Kind), ErrInvalidKind)
		}
	}

	return nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowRepository().GetByID(ctx, id)
}

// FetchDefault returns the default workflow of a (company, kind) pair.
func (w *Workflow) FetchDefault(ctx context.Context, companyID string, kind models.WorkflowKind) (*models.Workflow, error) {
	return w.persistence.WorkflowRepository().GetDefaultByCompany(ctx, companyID, kind)
}

// UpdateWorkflowRequest changes the descriptive fields of a workflow. Status and the default
// flag only change through their dedicated transitions.
type UpdateWorkflowRequest struct {
	Name        string             `json:"name"         validate:"required,min=1,max=255"`
	Description string             `json:"description"`
	DisplayMode models.DisplayMode `json:"display_mode" validate:"required,oneof=kanban list"`
	PhaseID     *string            `json:"phase_id,omitempty"`

	// ExpectedVersion, when set, must match the stored version.
	ExpectedVersion int64 `json:"version,omitempty"`
}

// Update modifies an existing workflow by its ID.
func (w *Workflow) Update(ctx context.Context, workflowID string, req UpdateWorkflowRequest) (*models.Workflow, error) {
	err := validateStruct("UpdateWorkflow", req)
	if err != nil {
		return nil, err
	}

	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if req.ExpectedVersion != 0 && req.ExpectedVersion != workflow.Version {
		return nil, persistence.NewWorkflowError("Update", workflowID, persistence.ErrVersionConflict)
	}

	workflow.Name = strings.TrimSpace(req.Name)
	workflow.Description = req.Description
	workflow.DisplayMode = req.DisplayMode
	workflow.PhaseID = req.PhaseID
	workflow.UpdatedAt = w.clock.Now().UTC()

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow and its stages. The default workflow cannot be deleted.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	return withLock(ctx, w.locker, locking.WorkflowStagesKey(workflowID), func() error {
		existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
		if err != nil {
			return err
		}

		if existing.IsDefault {
			return NewConflictError("DeleteWorkflow", "DEFAULT_WORKFLOW_LOCKED", models.ErrDefaultWorkflowLocked)
		}

		err = w.persistence.WorkflowRepository().Delete(ctx, workflowID)
		if err != nil {
			return fmt.Errorf("failed to delete workflow: %w", err)
		}

		w.logger.InfoContext(ctx, "Workflow deleted", "workflow_id", workflowID)

		return nil
	})
}

// Activate moves a workflow to active.
func (w *Workflow) Activate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return w.transition(ctx, "Activate", workflowID, (*models.Workflow).Activate)
}

// Deactivate moves a workflow back to draft.
func (w *Workflow) Deactivate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return w.transition(ctx, "Deactivate", workflowID, (*models.Workflow).Deactivate)
}

// Archive moves a workflow to archived.
func (w *Workflow) Archive(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return w.transition(ctx, "Archive", workflowID, (*models.Workflow).Archive)
}

// UnsetAsDefault clears the default flag. It fails when the workflow is not the default.
func (w *Workflow) UnsetAsDefault(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return w.transition(ctx, "UnsetAsDefault", workflowID, (*models.Workflow).UnsetAsDefault)
}

func (w *Workflow) transition(
	ctx context.Context,
	op string,
	workflowID string,
	apply func(*models.Workflow, time.Time) error,
) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	err = apply(workflow, w.clock.Now().UTC())
	if err != nil {
		return nil, NewConflictError(op, "INVALID_TRANSITION", err)
	}

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow transitioned", "op", op, "workflow_id", workflowID, "status", workflow.Status, "is_default", workflow.IsDefault)

	return workflow, nil
}

// SetAsDefault makes an active workflow the default of its (company, kind) pair, clearing the
// previous default in the same unit of work.
func (w *Workflow) SetAsDefault(ctx context.Context, workflowID string) (*models.Workflow, error) {
	candidate, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	var result *models.Workflow

	key := locking.WorkflowDefaultKey(candidate.CompanyID, string(candidate.Kind))

	err = withLock(ctx, w.locker, key, func() error {
		return w.persistence.WithinTransaction(ctx, func(ctx context.Context) error {
			now := w.clock.Now().UTC()

			// Reload under the lock so the checks see the latest state.
			workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
			if err != nil {
				return err
			}

			err = workflow.SetAsDefault(now)
			if err != nil {
				return NewConflictError("SetAsDefault", "INVALID_TRANSITION", err)
			}

			previous, err := w.persistence.WorkflowRepository().GetDefaultByCompany(ctx, workflow.CompanyID, workflow.Kind)

			switch {
			case err == nil:
				err = previous.UnsetAsDefault(now)
				if err != nil {
					return err
				}

				err = w.persistence.WorkflowRepository().Save(ctx, previous)
				if err != nil {
					return fmt.Errorf("failed to clear previous default: %w", err)
				}

				w.logger.InfoContext(ctx, "Previous default workflow cleared", "workflow_id", previous.ID)
			case !persistence.IsWorkflowNotFound(err):
				return fmt.Errorf("failed to load current default: %w", err)
			}

			err = w.persistence.WorkflowRepository().Save(ctx, workflow)
			if err != nil {
				return fmt.Errorf("failed to save default workflow: %w", err)
			}

			result = workflow

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	w.logger.InfoContext(ctx, "Default workflow set", "workflow_id", result.ID, "company_id", result.CompanyID, "kind", result.Kind)

	return result, nil
}
