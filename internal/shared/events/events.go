package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stewardrx/platform/internal/shared/types"
)

// Event represents a domain event published to the audit streams
type Event struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`

	// Actor information
	ActorID   types.ID `json:"actor_id"`
	ActorName string   `json:"actor_name,omitempty"`
	ActorRole string   `json:"actor_role,omitempty"` // clinician, admin, system

	// Event data
	Data any `json:"data"`
}

// NewEvent creates a new event with auto-generated ID and timestamp
func NewEvent(eventType, source string, data any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// WithActor sets the actor information on the event
func (e Event) WithActor(actorID types.ID, actorName, actorRole string) Event {
	e.ActorID = actorID
	e.ActorName = actorName
	e.ActorRole = actorRole
	return e
}

// WithCorrelation sets the correlation ID for request tracing
func (e Event) WithCorrelation(correlationID string) Event {
	e.CorrelationID = correlationID
	return e
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// Publisher publishes domain events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber consumes domain events matching a wildcard pattern
type Subscriber interface {
	Subscribe(ctx context.Context, pattern string, handler Handler) error
}

// NopBus discards events, used when the event store is disabled
type NopBus struct{}

func (NopBus) Publish(context.Context, Event) error { return nil }

func (NopBus) Subscribe(context.Context, string, Handler) error { return nil }

func (NopBus) Close() {}
