package models

import "time"

// PositionStageAssignment grants a user responsibility for a stage of a job position.
type PositionStageAssignment struct {
	PositionID string `json:"position_id" validate:"required"`
	StageID    string `json:"stage_id"    validate:"required"`
	UserID     string `json:"user_id"     validate:"required"`
}

// TaskPriority is a derived, non-persisted ordering score for a worklist entry.
type TaskPriority struct {
	UrgencyScore float64 `json:"urgency_score"`
	AgeScore     float64 `json:"age_score"`
	TotalScore   float64 `json:"total_score"`
	Overdue      bool    `json:"overdue"`
}

// WorklistItem is one actionable application in a user's worklist.
type WorklistItem struct {
	ApplicationID  string       `json:"application_id"`
	CandidateID    string       `json:"candidate_id"`
	PositionID     string       `json:"position_id"`
	StageID        string       `json:"stage_id"`
	TaskStatus     TaskStatus   `json:"task_status"`
	StageEnteredAt *time.Time   `json:"stage_entered_at,omitempty"`
	StageDeadline  *time.Time   `json:"stage_deadline,omitempty"`
	Priority       TaskPriority `json:"priority"`
}
