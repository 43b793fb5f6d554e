package models

import (
	"encoding/json"
	"time"
)

// MaxStageDays bounds the estimated duration and deadline override of a stage.
const MaxStageDays = 36500

// StageType classifies a stage as regular work or a terminal outcome.
type StageType string

const (
	StageTypeNormal  StageType = "normal"
	StageTypeSuccess StageType = "success"
	StageTypeFail    StageType = "fail"
)

// StageStyle carries presentation hints for a stage column.
type StageStyle struct {
	Color string `json:"color,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

// WorkflowStage is a named step within a workflow.
type WorkflowStage struct {
	ID                    string     `json:"id"`
	WorkflowID            string     `json:"workflow_id"                       validate:"required"`
	Name                  string     `json:"name"                              validate:"required,min=1,max=255"`
	Description           string     `json:"description"`
	Type                  StageType  `json:"type"                              validate:"required,oneof=normal success fail"`
	Order                 int        `json:"order"                             validate:"min=1"`
	AllowSkip             bool       `json:"allow_skip"`
	EstimatedDurationDays *int       `json:"estimated_duration_days,omitempty" validate:"omitempty,min=0,max=36500"`
	Active                bool       `json:"active"`
	DefaultRoleIDs        []string   `json:"default_role_ids"`
	DefaultUserIDs        []string   `json:"default_user_ids"`
	EmailTemplateID       *string    `json:"email_template_id,omitempty"`
	DeadlineDays          *int       `json:"deadline_days,omitempty"           validate:"omitempty,min=0,max=36500"`
	EstimatedCost         *float64   `json:"estimated_cost,omitempty"          validate:"omitempty,min=0"`
	NextPhaseID           *string    `json:"next_phase_id,omitempty"`
	Style                 StageStyle `json:"style"`

	// ValidationRules is passed through untouched to whatever evaluates it downstream.
	ValidationRules json.RawMessage `json:"validation_rules,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal reports whether the stage is a success or fail outcome.
func (s *WorkflowStage) IsTerminal() bool {
	return s.Type == StageTypeSuccess || s.Type == StageTypeFail
}

// CascadesToPhase reports whether entering the stage should advance the candidate
// into another phase.
func (s *WorkflowStage) CascadesToPhase() bool {
	return s.IsTerminal() && s.NextPhaseID != nil && *s.NextPhaseID != ""
}

// Validate checks the structural invariants that do not depend on sibling stages.
func (s *WorkflowStage) Validate() error {
	if s.Order < 1 {
		return ErrInvalidStageOrder
	}

	if s.NextPhaseID != nil && *s.NextPhaseID != "" && !s.IsTerminal() {
		return ErrNextPhaseOnNormalStage
	}

	if exceedsStageDays(s.EstimatedDurationDays) || exceedsStageDays(s.DeadlineDays) {
		return ErrStageDaysOutOfRange
	}

	return nil
}

// DefaultTimeLimitHours returns the time limit applied when a candidate enters the stage
// without an explicit limit: the deadline override first, then the estimated duration.
func (s *WorkflowStage) DefaultTimeLimitHours() *int {
	switch {
	case s.DeadlineDays != nil && *s.DeadlineDays > 0:
		hours := *s.DeadlineDays * 24

		return &hours
	case s.EstimatedDurationDays != nil && *s.EstimatedDurationDays > 0:
		hours := *s.EstimatedDurationDays * 24

		return &hours
	default:
		return nil
	}
}

// EstimatedDurationHours returns the estimated duration converted to hours, or nil.
func (s *WorkflowStage) EstimatedDurationHours() *int {
	if s.EstimatedDurationDays == nil || *s.EstimatedDurationDays <= 0 {
		return nil
	}

	hours := *s.EstimatedDurationDays * 24

	return &hours
}

func exceedsStageDays(days *int) bool {
	return days != nil && *days > MaxStageDays
}
