package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stewardrx/platform/internal/shared/config"
)

// Bus provides event publishing and subscription backed by EventStoreDB.
// Every clinically relevant action flows through here on its way to the
// tamper-evident audit trail.
type Bus struct {
	client *esdb.Client
	prefix string
}

// NewBus creates a new event bus connected to EventStoreDB
func NewBus(ctx context.Context, cfg config.EventStoreConfig) (*Bus, error) {
	settings, err := esdb.ParseConnectionString(connectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	client, err := esdb.NewClient(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create EventStoreDB client: %w", err)
	}

	return &Bus{client: client, prefix: "rx"}, nil
}

func connectionString(cfg config.EventStoreConfig) string {
	var auth string
	if cfg.Username != "" && cfg.Password != "" {
		auth = fmt.Sprintf("%s:%s@", cfg.Username, cfg.Password)
	}

	params := ""
	if cfg.Insecure {
		params = "?tls=false&tlsVerifyCert=false&keepAliveInterval=10000&keepAliveTimeout=10000"
	}

	return fmt.Sprintf("esdb://%s%s:%d%s", auth, cfg.Host, cfg.Port, params)
}

// Publish appends an event to its type stream: patient.created -> rx-patient-created
func (b *Bus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	stream := fmt.Sprintf("%s-%s", b.prefix, strings.ReplaceAll(event.Type, ".", "-"))

	eventID, err := uuid.Parse(event.ID)
	if err != nil {
		eventID = uuid.New()
	}

	esdbEvent := esdb.EventData{
		EventType:   event.Type,
		ContentType: esdb.ContentTypeJson,
		Data:        data,
		EventID:     eventID,
	}

	_, err = b.client.AppendToStream(ctx, stream, esdb.AppendToStreamOptions{
		ExpectedRevision: esdb.Any{},
	}, esdbEvent)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Subscribe starts a catch-up subscription over $all, filtered by event
// type pattern ("patient.*", "analysis.run", "*"). The handler runs on a
// background goroutine until ctx is cancelled.
func (b *Bus) Subscribe(ctx context.Context, pattern string, handler Handler) error {
	sub, err := b.client.SubscribeToAll(ctx, esdb.SubscribeToAllOptions{
		From: esdb.End{},
		Filter: &esdb.SubscriptionFilter{
			Type:  esdb.EventFilterType,
			Regex: patternToRegex(pattern),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to pattern %q: %w", pattern, err)
	}

	go b.consume(ctx, sub, pattern, handler)
	return nil
}

func (b *Bus) consume(ctx context.Context, sub *esdb.Subscription, pattern string, handler Handler) {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			subEvent := sub.Recv()
			if subEvent.EventAppeared == nil {
				if subEvent.SubscriptionDropped != nil {
					log.Warn().Err(subEvent.SubscriptionDropped.Error).
						Str("pattern", pattern).
						Msg("event subscription dropped")
					return
				}
				time.Sleep(10 * time.Millisecond)
				continue
			}

			recorded := subEvent.EventAppeared.Event
			if recorded == nil {
				continue
			}

			// Skip system events
			if strings.HasPrefix(recorded.EventType, "$") {
				continue
			}
			if !matchesPattern(recorded.EventType, pattern) {
				continue
			}

			var event Event
			if err := json.Unmarshal(recorded.Data, &event); err != nil {
				log.Error().Err(err).Str("event_type", recorded.EventType).
					Msg("failed to decode event")
				continue
			}
			if event.ID == "" {
				event.ID = recorded.EventID.String()
			}

			if err := handler(ctx, event); err != nil {
				log.Error().Err(err).Str("event_id", event.ID).
					Str("event_type", event.Type).
					Msg("event handler failed")
			}
		}
	}
}

// patternToRegex converts a wildcard pattern like "patient.*" to a regex
func patternToRegex(pattern string) string {
	if pattern == "*" {
		return ".*"
	}
	escaped := strings.ReplaceAll(pattern, ".", `\.`)
	return strings.ReplaceAll(escaped, "*", ".*")
}

// matchesPattern checks if an event type matches a wildcard pattern
func matchesPattern(eventType, pattern string) bool {
	if pattern == "*" {
		return true
	}

	patternParts := strings.Split(pattern, ".")
	typeParts := strings.Split(eventType, ".")

	for i, pp := range patternParts {
		if pp == "*" {
			return true
		}
		if i >= len(typeParts) || pp != typeParts[i] {
			return false
		}
	}

	return len(patternParts) == len(typeParts)
}

// Health verifies the EventStoreDB connection
func (b *Bus) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := b.client.ReadStream(ctx, "$streams", esdb.ReadStreamOptions{
		From:      esdb.Start{},
		Direction: esdb.Forwards,
	}, 1)
	if err != nil {
		return fmt.Errorf("event store health check failed: %w", err)
	}
	defer stream.Close()

	return nil
}

// Close closes the event bus connection
func (b *Bus) Close() {
	if b.client != nil {
		b.client.Close()
	}
}
