package chat

import (
	"strings"

	"github.com/ternarybob/quarry/internal/models"
)

// Stop reasons recorded when a conversation ends
const (
	StopSourceMatch   = "source_match"
	StopMaxMessages   = "max_messages"
	StopTextMention   = "text_mention"
	StopNoFurtherTurn = "no_further_turn"
	StopError         = "error"
	StopCancelled     = "cancelled"
)

// Condition inspects the history after a message is appended and reports
// whether the conversation should end, and why
type Condition func(history []models.Message) (reason string, done bool)

// lastMessage returns the last non-delta message
func lastMessage(history []models.Message) (models.Message, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].IsDelta() {
			return history[i], true
		}
	}
	return models.Message{}, false
}

// SourceMatch fires once a complete text message from one of sources is appended
func SourceMatch(sources ...string) Condition {
	return func(history []models.Message) (string, bool) {
		msg, ok := lastMessage(history)
		if !ok || msg.Type != models.MessageText {
			return "", false
		}
		for _, source := range sources {
			if msg.Source == source {
				return StopSourceMatch, true
			}
		}
		return "", false
	}
}

// MaxMessages fires when the history holds max messages, deltas excluded
func MaxMessages(max int) Condition {
	return func(history []models.Message) (string, bool) {
		if models.CountMessages(history) >= max {
			return StopMaxMessages, true
		}
		return "", false
	}
}

// TextMention fires when a message from one of sources contains phrase.
// With no sources any speaker counts.
func TextMention(phrase string, sources ...string) Condition {
	return func(history []models.Message) (string, bool) {
		msg, ok := lastMessage(history)
		if !ok || phrase == "" || !strings.Contains(msg.Content, phrase) {
			return "", false
		}
		if len(sources) == 0 {
			return StopTextMention, true
		}
		for _, source := range sources {
			if msg.Source == source {
				return StopTextMention, true
			}
		}
		return "", false
	}
}

// AnyOf fires as soon as one of conditions fires, reporting the first in order
func AnyOf(conditions ...Condition) Condition {
	return func(history []models.Message) (string, bool) {
		for _, condition := range conditions {
			if reason, done := condition(history); done {
				return reason, true
			}
		}
		return "", false
	}
}
