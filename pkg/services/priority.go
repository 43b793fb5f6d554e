package services

import (
	"errors"
	"math"
	"time"

	"github.com/hirepath/hirepath/pkg/models"
)

// PriorityWeights tune the worklist score. Whatever the values, overdue tasks outrank tasks
// with a future deadline, which outrank tasks without one.
type PriorityWeights struct {
	// UrgencyPerHour scores each hour a task is overdue, or each hour closer to its deadline.
	UrgencyPerHour float64
	// AgePerHour scores each hour a task without deadline has spent in its stage.
	AgePerHour float64
	// HorizonHours caps how far ahead deadlines, how long overdue tasks and how far back stage
	// entries are told apart.
	HorizonHours float64
}

// DefaultPriorityWeights returns the weights used when none are configured.
func DefaultPriorityWeights() PriorityWeights {
	return PriorityWeights{
		UrgencyPerHour: 1,
		AgePerHour:     0.01,
		HorizonHours:   24 * 365,
	}
}

var ErrInvalidPriorityWeights = errors.New("priority weights must be finite and non-negative with a positive horizon")

// Validate checks the weights can keep the bucket ordering. Every band bound must stay finite,
// otherwise distinct bands collapse onto +Inf.
func (w PriorityWeights) Validate() error {
	if !isFinite(w.UrgencyPerHour) || !isFinite(w.AgePerHour) || !isFinite(w.HorizonHours) {
		return ErrInvalidPriorityWeights
	}

	if w.UrgencyPerHour < 0 || w.AgePerHour < 0 || w.HorizonHours <= 0 {
		return ErrInvalidPriorityWeights
	}

	// overdueBase plus the longest overdue span counted.
	top := w.AgePerHour*w.HorizonHours + 2*w.UrgencyPerHour*w.HorizonHours + 2
	if !isFinite(top) {
		return ErrInvalidPriorityWeights
	}

	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// PriorityCalculator scores candidate applications for worklists.
//
// Scores fall in three disjoint bands:
//
//	no deadline:     AgePerHour * age                               [0, ageSpan]
//	future deadline: dueBase + UrgencyPerHour * (horizon - left)    [dueBase, dueBase+urgencySpan]
//	overdue:         overdueBase + UrgencyPerHour * overdue          [overdueBase, overdueBase+urgencySpan]
//
// Tasks with a deadline are ordered by the deadline alone so an earlier deadline never ranks
// below a later one. Time in stage breaks the remaining ties in the worklist sort.
type PriorityCalculator struct {
	weights     PriorityWeights
	dueBase     float64
	overdueBase float64
}

// NewPriorityCalculator creates a calculator, falling back to the defaults for invalid weights.
func NewPriorityCalculator(weights PriorityWeights) *PriorityCalculator {
	if weights.Validate() != nil {
		weights = DefaultPriorityWeights()
	}

	ageSpan := weights.AgePerHour * weights.HorizonHours
	urgencySpan := weights.UrgencyPerHour * weights.HorizonHours

	dueBase := ageSpan + 1

	return &PriorityCalculator{
		weights:     weights,
		dueBase:     dueBase,
		overdueBase: dueBase + urgencySpan + 1,
	}
}

// Weights returns the weights in use.
func (c *PriorityCalculator) Weights() PriorityWeights {
	return c.weights
}

// Calculate scores an application at now.
func (c *PriorityCalculator) Calculate(application *models.CandidateApplication, now time.Time) models.TaskPriority {
	var priority models.TaskPriority

	if application.StageEnteredAt != nil {
		age := min(max(now.Sub(*application.StageEnteredAt).Hours(), 0), c.weights.HorizonHours)
		priority.AgeScore = c.weights.AgePerHour * age
	}

	switch {
	case application.StageDeadline == nil:
		priority.TotalScore = priority.AgeScore
	case application.IsStageDeadlinePassed(now):
		overdue := min(now.Sub(*application.StageDeadline).Hours(), c.weights.HorizonHours)

		priority.Overdue = true
		priority.UrgencyScore = c.overdueBase + c.weights.UrgencyPerHour*overdue
		priority.TotalScore = priority.UrgencyScore
	default:
		left := min(application.StageDeadline.Sub(now).Hours(), c.weights.HorizonHours)

		priority.UrgencyScore = c.dueBase + c.weights.UrgencyPerHour*(c.weights.HorizonHours-left)
		priority.TotalScore = priority.UrgencyScore
	}

	return priority
}
