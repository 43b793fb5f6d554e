// Package eventbus carries progression events from the engine to downstream consumers such as
// notifiers and the overdue sweeper's listeners.
package eventbus

import (
	"context"

	"github.com/hirepath/hirepath/pkg/events"
)

// Event is anything the bus can route by type: stage changes, phase advances, degraded
// cascades and passed deadlines.
type Event interface {
	GetType() events.EventType
}

// EventPublisher sends an event. key is the application id, so all events of one candidate
// application land on the same partition and keep their order.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber dispatches received events to the handler registered for their type.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event struct.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
