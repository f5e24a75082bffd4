package interfaces

import "context"

// EventType represents conversation lifecycle events
type EventType string

const (
	EventConversationStarted    EventType = "conversation_started"
	EventRetrievalCompleted     EventType = "retrieval_completed"
	EventTurnCompleted          EventType = "turn_completed"
	EventConversationTerminated EventType = "conversation_terminated"
)

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// RetrievalStats is the payload of EventRetrievalCompleted
type RetrievalStats struct {
	SessionID string
	Queries   int
	Hits      int
	Accepted  int
	Rejected  int
	Figures   int
}

// TurnStats is the payload of EventTurnCompleted
type TurnStats struct {
	SessionID   string
	Participant string
	Messages    int
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages pub/sub event bus
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
