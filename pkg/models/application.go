package models

import "time"

// TaskStatus is the recruiter-facing status of the work due in the current stage.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusBlocked    TaskStatus = "blocked"
)

// CandidateApplication holds the live progression of a candidate for a job position.
// The progression fields cache the latest open history record.
type CandidateApplication struct {
	ID             string     `json:"id"`
	CandidateID    string     `json:"candidate_id"              validate:"required"`
	PositionID     string     `json:"position_id"               validate:"required"`
	CurrentPhaseID *string    `json:"current_phase_id,omitempty"`
	CurrentStageID *string    `json:"current_stage_id,omitempty"`
	StageEnteredAt *time.Time `json:"stage_entered_at,omitempty"`
	StageDeadline  *time.Time `json:"stage_deadline,omitempty"`
	TaskStatus     TaskStatus `json:"task_status"               validate:"required,oneof=pending in_progress completed blocked"`
	Version        int64      `json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// MoveToStage places the application in a stage entered at now. A positive time limit
// yields a deadline; otherwise the deadline is cleared. The task status always resets.
func (a *CandidateApplication) MoveToStage(stageID string, timeLimitHours *int, now time.Time) {
	entered := now
	a.CurrentStageID = &stageID
	a.StageEnteredAt = &entered
	a.StageDeadline = a.CalculateStageDeadline(timeLimitHours)
	a.TaskStatus = TaskStatusPending
	a.UpdatedAt = now
}

// MoveToNextPhase sets the current phase and, when an initial stage is given, enters it.
func (a *CandidateApplication) MoveToNextPhase(nextPhaseID string, initialStageID *string, timeLimitHours *int, now time.Time) {
	a.CurrentPhaseID = &nextPhaseID
	a.UpdatedAt = now

	if initialStageID != nil {
		a.MoveToStage(*initialStageID, timeLimitHours, now)
	}
}

// MaxTimeLimitHours is the longest time limit a stage deadline can be computed from.
const MaxTimeLimitHours = MaxStageDays * 24

// ValidateTimeLimit rejects a time limit longer than MaxTimeLimitHours. Absent and
// non-positive limits are valid and mean no deadline.
func ValidateTimeLimit(timeLimitHours *int) error {
	if timeLimitHours != nil && *timeLimitHours > MaxTimeLimitHours {
		return ErrTimeLimitOutOfRange
	}

	return nil
}

// CalculateStageDeadline returns stage_entered_at plus the limit in hours, or nil when the
// entry time is unknown or the limit is absent or not positive. Limits above
// MaxTimeLimitHours are capped so the deadline never lands before the entry time.
func (a *CandidateApplication) CalculateStageDeadline(timeLimitHours *int) *time.Time {
	if a.StageEnteredAt == nil || timeLimitHours == nil || *timeLimitHours <= 0 {
		return nil
	}

	hours := min(*timeLimitHours, MaxTimeLimitHours)
	deadline := a.StageEnteredAt.Add(time.Duration(hours) * time.Hour)

	return &deadline
}

// IsStageDeadlinePassed reports whether now is strictly after the stage deadline.
func (a *CandidateApplication) IsStageDeadlinePassed(now time.Time) bool {
	return a.StageDeadline != nil && now.After(*a.StageDeadline)
}

// IsInStage reports whether the application currently sits in the given phase and stage.
func (a *CandidateApplication) IsInStage(phaseID, stageID string) bool {
	return a.CurrentPhaseID != nil && *a.CurrentPhaseID == phaseID &&
		a.CurrentStageID != nil && *a.CurrentStageID == stageID
}

// IsInPhase reports whether the application currently sits in the given phase.
func (a *CandidateApplication) IsInPhase(phaseID string) bool {
	return a.CurrentPhaseID != nil && *a.CurrentPhaseID == phaseID
}
