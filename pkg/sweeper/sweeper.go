// Package sweeper periodically announces applications whose stage deadline has passed.
//
// The sweeper only reads and publishes. It never moves or modifies an application.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hirepath/hirepath/pkg/eventbus"
	"github.com/hirepath/hirepath/pkg/events"
	"github.com/hirepath/hirepath/pkg/persistence"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs a sweep every five minutes.
const DefaultSchedule = "*/5 * * * *"

var ErrAlreadyStarted = errors.New("sweeper already started")

type Sweeper struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	clock       clockwork.Clock
	logger      *slog.Logger
	schedule    string

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	// announced maps an application to the deadline already published for it, so each
	// missed deadline is announced once.
	announced map[string]time.Time
	mutex     sync.Mutex
}

// NewSweeper creates a sweeper running on a standard five-field cron schedule.
func NewSweeper(
	p persistence.Persistence,
	publisher eventbus.EventPublisher,
	clock clockwork.Clock,
	logger *slog.Logger,
	schedule string,
) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule '%s': %w", schedule, err)
	}

	return &Sweeper{
		persistence: p,
		publisher:   publisher,
		clock:       clock,
		logger:      logger.With("module", "sweeper"),
		schedule:    schedule,
		announced:   make(map[string]time.Time),
	}, nil
}

func (s *Sweeper) Start(ctx context.Context) error {
	if s.cron != nil {
		return ErrAlreadyStarted
	}

	s.logger.InfoContext(ctx, "Starting overdue sweeper", "schedule", s.schedule)
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		_, err := s.Sweep(s.ctx)
		if err != nil {
			s.logger.ErrorContext(s.ctx, "Overdue sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add sweep job: %w", err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Overdue sweeper started", "entry_id", entryID)

	return nil
}

// Sweep publishes a StageDeadlinePassed event for every application newly found overdue and
// returns how many were published.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now().UTC()

	overdue, err := s.persistence.ApplicationRepository().ListOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue applications: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	seen := make(map[string]struct{}, len(overdue))
	published := 0

	for _, application := range overdue {
		if application.CurrentStageID == nil || application.StageDeadline == nil {
			continue
		}

		seen[application.ID] = struct{}{}

		deadline := application.StageDeadline.UTC()
		if last, ok := s.announced[application.ID]; ok && last.Equal(deadline) {
			continue
		}

		event := events.StageDeadlinePassed{
			BaseEvent: events.BaseEvent{
				ID:            uuid.NewString(),
				Type:          events.StageDeadlinePassedEvent,
				Timestamp:     now,
				ApplicationID: application.ID,
			},
			StageID:       *application.CurrentStageID,
			PositionID:    application.PositionID,
			StageDeadline: deadline,
			OverdueBy:     now.Sub(deadline),
		}

		err := s.publisher.Publish(ctx, application.ID, event)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish deadline event", "application_id", application.ID, "error", err)

			continue
		}

		s.announced[application.ID] = deadline
		published++
	}

	// Applications that moved on or got a new deadline are forgotten.
	for id := range s.announced {
		if _, ok := seen[id]; !ok {
			delete(s.announced, id)
		}
	}

	s.logger.InfoContext(ctx, "Overdue sweep finished", "overdue", len(overdue), "published", published)

	return published, nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Stopping overdue sweeper")

	if s.cancel != nil {
		s.cancel()
	}

	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
	}

	return nil
}
