package agents

import (
	"context"

	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

// Answerer writes user-facing prose from the retrieved evidence, streaming
// its text as it is produced.
type Answerer struct {
	name        string
	description string
	prompt      string
	client      interfaces.ModelClient
	options     Options
}

// NewAnswerer creates a plain responder
func NewAnswerer(name, description, prompt string, client interfaces.ModelClient, options Options) *Answerer {
	return &Answerer{
		name:        name,
		description: description,
		prompt:      prompt,
		client:      client,
		options:     options,
	}
}

func (a *Answerer) Name() string        { return a.name }
func (a *Answerer) Description() string { return a.description }

// Respond emits one delta per streamed fragment, then the complete message
func (a *Answerer) Respond(ctx context.Context, history []models.Message, emit EmitFunc) error {
	req := &interfaces.ModelRequest{
		System:      a.prompt,
		Messages:    BuildModelMessages(history, a.name),
		Temperature: a.options.Temperature,
		MaxTokens:   a.options.MaxTokens,
	}

	completion, err := a.client.Complete(ctx, req, func(fragment string) error {
		return emit(models.Message{
			Source:  a.name,
			Type:    models.MessageStreamingDelta,
			Content: fragment,
		})
	})
	if err != nil {
		return err
	}

	return emit(models.Message{
		Source:  a.name,
		Type:    models.MessageText,
		Content: completion.Text,
	})
}
