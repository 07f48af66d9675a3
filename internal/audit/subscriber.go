package audit

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/stewardrx/platform/internal/shared/events"
	"github.com/stewardrx/platform/internal/shared/metrics"
)

// Subscriber tails the event bus and records every domain event as an
// audit chain entry.
type Subscriber struct {
	bus  events.Subscriber
	repo *Repository
}

func NewSubscriber(bus events.Subscriber, repo *Repository) *Subscriber {
	return &Subscriber{bus: bus, repo: repo}
}

// Start subscribes to all domain events. Runs until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	return s.bus.Subscribe(ctx, "*", func(ctx context.Context, event events.Event) error {
		entry, err := s.repo.Append(ctx, event)
		if err != nil {
			return err
		}

		metrics.RecordAuditEntry()
		log.Debug().
			Int64("sequence", entry.Sequence).
			Str("event_type", entry.EventType).
			Msg("audit entry recorded")
		return nil
	})
}
