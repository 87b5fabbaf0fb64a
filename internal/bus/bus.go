// Package bus provides event bus implementations for evaluation events.
package bus

import (
	"context"
	"fmt"
	"time"
)

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for event bus implementations.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe subscribes to events on a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close closes the bus and releases resources.
	Close() error
}

// Event represents a bus event.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type (e.g., "eval.run.completed").
	Type string `json:"type"`

	// Source is the service that generated the event.
	Source string `json:"source"`

	// Timestamp is when the event was created.
	Timestamp int64 `json:"timestamp"`

	// Payload contains the event data.
	Payload any `json:"payload"`
}

// NewEvent creates an event of the given type with a time-derived ID.
func NewEvent(eventType, source string, payload any) Event {
	now := time.Now()
	return Event{
		ID:        fmt.Sprintf("%s-%d", eventType, now.UnixNano()),
		Type:      eventType,
		Source:    source,
		Timestamp: now.UnixNano(),
		Payload:   payload,
	}
}

// Topics for evaluation events.
const (
	// Run lifecycle topics.
	TopicRunStarted   = "eval.run.started"
	TopicRunCompleted = "eval.run.completed"
	TopicRunFailed    = "eval.run.failed"

	// Per-query topics.
	TopicQuerySkipped = "eval.query.skipped"

	// History topics.
	TopicHistorySaved = "eval.history.saved"
)
