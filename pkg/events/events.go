// Package events defines the progression events published after a unit of work commits.
package events

import (
	"time"
)

type EventType string

// Kafka topic carrying every progression event.
const Topic = "hirepath.progression.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	StageChangedEvent        EventType = "application.stage_changed"
	PhaseAdvancedEvent       EventType = "application.phase_advanced"
	CascadeDegradedEvent     EventType = "application.cascade_degraded"
	StageDeadlinePassedEvent EventType = "application.stage_deadline_passed"
)

type BaseEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	ApplicationID string    `json:"application_id"`
}

// StageChanged is emitted when an application enters a stage.
type StageChanged struct {
	BaseEvent

	FromStageID   *string    `json:"from_stage_id,omitempty"`
	ToStageID     string     `json:"to_stage_id"`
	PhaseID       *string    `json:"phase_id,omitempty"`
	StageDeadline *time.Time `json:"stage_deadline,omitempty"`
}

func (e StageChanged) GetType() EventType {
	return StageChangedEvent
}

// PhaseAdvanced is emitted when a terminal stage cascades the application into another phase.
type PhaseAdvanced struct {
	BaseEvent

	FromPhaseID    *string `json:"from_phase_id,omitempty"`
	ToPhaseID      string  `json:"to_phase_id"`
	WorkflowID     string  `json:"workflow_id"`
	InitialStageID string  `json:"initial_stage_id"`
}

func (e PhaseAdvanced) GetType() EventType {
	return PhaseAdvancedEvent
}

// CascadeDegraded is emitted when the next phase has no active workflow or initial stage and
// only the phase pointer moved.
type CascadeDegraded struct {
	BaseEvent

	TerminalStageID string `json:"terminal_stage_id"`
	NextPhaseID     string `json:"next_phase_id"`
	Reason          string `json:"reason"`
}

func (e CascadeDegraded) GetType() EventType {
	return CascadeDegradedEvent
}

// StageDeadlinePassed is emitted by the overdue sweep for applications past their deadline.
type StageDeadlinePassed struct {
	BaseEvent

	StageID       string        `json:"stage_id"`
	PositionID    string        `json:"position_id"`
	StageDeadline time.Time     `json:"stage_deadline"`
	OverdueBy     time.Duration `json:"overdue_by"`
}

func (e StageDeadlinePassed) GetType() EventType {
	return StageDeadlinePassedEvent
}
