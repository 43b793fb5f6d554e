// Package models defines the core domain models of the recruitment pipeline engine.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"    // Editable, not usable by candidates
	WorkflowStatusActive   WorkflowStatus = "active"   // Usable, may be the default for its kind
	WorkflowStatusArchived WorkflowStatus = "archived" // Historical, kept for reporting
)

// WorkflowKind is the part of the hiring process a workflow drives.
type WorkflowKind string

const (
	WorkflowKindJobOpening           WorkflowKind = "job_opening"
	WorkflowKindCandidateApplication WorkflowKind = "candidate_application"
	WorkflowKindCandidateOnboarding  WorkflowKind = "candidate_onboarding"
)

// DisplayMode controls how a workflow board is rendered by clients.
type DisplayMode string

const (
	DisplayModeKanban DisplayMode = "kanban"
	DisplayModeList   DisplayMode = "list"
)

// Workflow is an ordered pipeline of stages implementing one phase for one company and kind.
type Workflow struct {
	ID          string         `json:"id"`
	CompanyID   string         `json:"company_id"            validate:"required"`
	Kind        WorkflowKind   `json:"kind"                  validate:"required,oneof=job_opening candidate_application candidate_onboarding"`
	DisplayMode DisplayMode    `json:"display_mode"          validate:"required,oneof=kanban list"`
	PhaseID     *string        `json:"phase_id,omitempty"`
	Name        string         `json:"name"                  validate:"required,min=1,max=255"`
	Description string         `json:"description"`
	Status      WorkflowStatus `json:"status"                validate:"required,oneof=draft active archived"`
	IsDefault   bool           `json:"is_default"`
	Version     int64          `json:"version"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsActive reports whether the workflow is in the active state.
func (w *Workflow) IsActive() bool {
	return w.Status == WorkflowStatusActive
}

// Activate moves the workflow to active.
func (w *Workflow) Activate(now time.Time) error {
	if w.Status == WorkflowStatusActive {
		return ErrWorkflowAlreadyActive
	}

	w.Status = WorkflowStatusActive
	w.UpdatedAt = now

	return nil
}

// Deactivate moves an active or archived workflow back to draft.
// The default workflow of a kind cannot be deactivated.
func (w *Workflow) Deactivate(now time.Time) error {
	if w.Status == WorkflowStatusDraft {
		return ErrWorkflowAlreadyDraft
	}

	if w.IsDefault {
		return ErrDefaultWorkflowLocked
	}

	w.Status = WorkflowStatusDraft
	w.UpdatedAt = now

	return nil
}

// Archive moves the workflow to archived.
func (w *Workflow) Archive(now time.Time) error {
	if w.Status == WorkflowStatusArchived {
		return ErrWorkflowAlreadyArchived
	}

	if w.IsDefault {
		return ErrDefaultWorkflowLocked
	}

	w.Status = WorkflowStatusArchived
	w.UpdatedAt = now

	return nil
}

// SetAsDefault flags the workflow as the default of its (company, kind) pair.
// Clearing the previous default is the caller's responsibility.
func (w *Workflow) SetAsDefault(now time.Time) error {
	if w.Status != WorkflowStatusActive {
		return ErrWorkflowNotActive
	}

	if w.IsDefault {
		return ErrWorkflowAlreadyDefault
	}

	w.IsDefault = true
	w.UpdatedAt = now

	return nil
}

// UnsetAsDefault clears the default flag.
func (w *Workflow) UnsetAsDefault(now time.Time) error {
	if !w.IsDefault {
		return ErrWorkflowNotDefault
	}

	w.IsDefault = false
	w.UpdatedAt = now

	return nil
}
