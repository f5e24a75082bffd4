package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

// AllEventTypes lists every lifecycle event published by the research service
var AllEventTypes = []interfaces.EventType{
	interfaces.EventConversationStarted,
	interfaces.EventRetrievalCompleted,
	interfaces.EventTurnCompleted,
	interfaces.EventConversationTerminated,
}

// NewLoggerSubscriber creates an event handler that logs lifecycle events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		log := logger.Debug().Str("event_type", string(event.Type))

		switch payload := event.Payload.(type) {
		case *models.ConversationRecord:
			log = log.Str("session_id", payload.SessionID).Str("mode", string(payload.Mode))
			if payload.StopReason != "" {
				log = log.Str("stop_reason", payload.StopReason).Int("messages", payload.MessageCount)
			}
		case *interfaces.RetrievalStats:
			log = log.Str("session_id", payload.SessionID).
				Int("hits", payload.Hits).
				Int("accepted", payload.Accepted)
		case *interfaces.TurnStats:
			log = log.Str("session_id", payload.SessionID).
				Str("participant", payload.Participant).
				Int("messages", payload.Messages)
		}

		log.Msg("Event published")
		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to every lifecycle event
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	for _, eventType := range AllEventTypes {
		if err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("failed to subscribe logger to event type %s: %w", eventType, err)
		}
	}

	logger.Debug().
		Int("event_type_count", len(AllEventTypes)).
		Msg("Logger subscribed to all event types")

	return nil
}
