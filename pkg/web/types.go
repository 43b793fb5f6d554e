package web

import (
	"time"

	"github.com/hirepath/hirepath/pkg/models"
)

// MoveApplicationRequest represents the request body for moving an application to a stage.
type MoveApplicationRequest struct {
	StageID        string `json:"stage_id"                   validate:"required"`
	TimeLimitHours *int   `json:"time_limit_hours,omitempty" validate:"omitempty,max=876000"`
}

// MoveApplicationResponse reports the outcome of a move, including any phase cascade.
type MoveApplicationResponse struct {
	Application *models.CandidateApplication      `json:"application"`
	Record      *models.CandidateApplicationStage `json:"record"`
	FromStageID *string                           `json:"from_stage_id,omitempty"`
	ToStageID   string                            `json:"to_stage_id"`
	Cascade     *CascadeResponse                  `json:"cascade,omitempty"`
}

// CascadeResponse describes a phase cascade triggered by entering a terminal stage.
type CascadeResponse struct {
	Cascaded       bool    `json:"cascaded"`
	Degraded       bool    `json:"degraded"`
	Reason         string  `json:"reason,omitempty"`
	NextPhaseID    string  `json:"next_phase_id"`
	WorkflowID     string  `json:"workflow_id,omitempty"`
	InitialStageID *string `json:"initial_stage_id,omitempty"`
}

// UpdateTaskStatusRequest represents the request body for changing an application's task status.
type UpdateTaskStatusRequest struct {
	Status models.TaskStatus `json:"status" validate:"required"`
}

// StageListResponse wraps a workflow's ordered stages.
type StageListResponse struct {
	WorkflowID string                  `json:"workflow_id"`
	Stages     []*models.WorkflowStage `json:"stages"`
}

// PhaseStageListResponse wraps the stages of every workflow attached to a phase.
type PhaseStageListResponse struct {
	PhaseID string                  `json:"phase_id"`
	Stages  []*models.WorkflowStage `json:"stages"`
}

// WorklistResponse wraps a user's prioritized worklist.
type WorklistResponse struct {
	UserID      string                 `json:"user_id"`
	Items       []*models.WorklistItem `json:"items"`
	GeneratedAt time.Time              `json:"generated_at"`
}
