package agents

import (
	"context"

	"github.com/ternarybob/quarry/internal/models"
)

// EmitFunc appends a message to the conversation history and forwards it to
// the presentation boundary. A non-nil error means the participant must stop
// and return that error unchanged.
type EmitFunc func(models.Message) error

// Participant is one role in a conversation. Respond reads the full history
// and emits its output as an ordered sequence of messages.
type Participant interface {
	Name() string
	Description() string
	Respond(ctx context.Context, history []models.Message, emit EmitFunc) error
}

// Options are the model settings shared by every participant
type Options struct {
	Temperature float32
	MaxTokens   int
}
