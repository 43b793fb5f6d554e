package models

import (
	"maps"
	"time"
)

// CandidateApplicationStage is an immutable history row documenting one stay of an
// application in a phase, workflow and stage.
type CandidateApplicationStage struct {
	ID            string         `json:"id"`
	ApplicationID string         `json:"application_id"        validate:"required"`
	PhaseID       *string        `json:"phase_id,omitempty"`
	WorkflowID    string         `json:"workflow_id"           validate:"required"`
	StageID       string         `json:"stage_id"              validate:"required"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	Deadline      *time.Time     `json:"deadline,omitempty"`
	EstimatedCost *float64       `json:"estimated_cost,omitempty"`
	ActualCost    *float64       `json:"actual_cost,omitempty"`
	Comments      string         `json:"comments,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// IsCompleted reports whether the record has been closed.
func (h *CandidateApplicationStage) IsCompleted() bool {
	return h.CompletedAt != nil
}

// IsOverdue reports whether an open record has passed its deadline.
func (h *CandidateApplicationStage) IsOverdue(now time.Time) bool {
	return h.Deadline != nil && h.CompletedAt == nil && now.After(*h.Deadline)
}

// Complete returns a closed copy of the record. The receiver is left untouched.
func (h *CandidateApplicationStage) Complete(completedAt time.Time, actualCost *float64, comments *string, now time.Time) (*CandidateApplicationStage, error) {
	if h.IsCompleted() {
		return nil, ErrHistoryAlreadyCompleted
	}

	completed := h.clone()
	completed.CompletedAt = &completedAt
	completed.UpdatedAt = now

	if actualCost != nil {
		completed.ActualCost = actualCost
	}

	if comments != nil {
		completed.Comments = *comments
	}

	return completed, nil
}

// UpdateData returns a copy of the record with patch shallow-merged into Data.
func (h *CandidateApplicationStage) UpdateData(patch map[string]any, now time.Time) (*CandidateApplicationStage, error) {
	if h.IsCompleted() {
		return nil, ErrHistoryAlreadyCompleted
	}

	updated := h.clone()
	if updated.Data == nil {
		updated.Data = make(map[string]any, len(patch))
	}

	maps.Copy(updated.Data, patch)
	updated.UpdatedAt = now

	return updated, nil
}

func (h *CandidateApplicationStage) clone() *CandidateApplicationStage {
	c := *h
	c.Data = maps.Clone(h.Data)

	return &c
}
