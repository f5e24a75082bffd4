package agents

import (
	"context"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/retrieval"
)

// Researcher turns the conversation into search queries, runs them through
// the search tool and records both the request and the result. It never
// answers directly.
type Researcher struct {
	name        string
	description string
	prompt      string
	client      interfaces.ModelClient
	tool        *retrieval.SearchTool
	options     Options
	logger      arbor.ILogger
}

// NewResearcher creates a tool-calling participant
func NewResearcher(name, prompt string, client interfaces.ModelClient, tool *retrieval.SearchTool, options Options, logger arbor.ILogger) *Researcher {
	return &Researcher{
		name:        name,
		description: "A research agent that can help you find information.",
		prompt:      prompt,
		client:      client,
		tool:        tool,
		options:     options,
		logger:      logger,
	}
}

func (r *Researcher) Name() string        { return r.name }
func (r *Researcher) Description() string { return r.description }

// Respond asks the model for a search call, executes it and emits the
// tool-call request followed by its result.
func (r *Researcher) Respond(ctx context.Context, history []models.Message, emit EmitFunc) error {
	req := &interfaces.ModelRequest{
		System:      r.prompt,
		Messages:    BuildModelMessages(history, r.name),
		Tools:       []interfaces.ToolSpec{r.tool.Spec()},
		Temperature: r.options.Temperature,
		MaxTokens:   r.options.MaxTokens,
	}

	completion, err := r.client.Complete(ctx, req, nil)
	if err != nil {
		return err
	}

	call, queries := r.selectCall(completion, history)

	if err := emit(models.Message{
		Source:    r.name,
		Type:      models.MessageToolCallRequest,
		Content:   completion.Text,
		ToolCalls: []models.ToolCall{call},
	}); err != nil {
		return err
	}

	_, content, err := r.tool.Run(ctx, queries)
	if err != nil {
		return err
	}

	return emit(models.Message{
		Source: r.name,
		Type:   models.MessageToolCallResult,
		ToolResults: []models.ToolResult{{
			CallID:  call.ID,
			Name:    call.Name,
			Content: content,
		}},
	})
}

// selectCall picks the search call from the completion. Malformed or missing
// calls fall back to searching for the user's question; a malformed call is
// still recorded as the model produced it.
func (r *Researcher) selectCall(completion *interfaces.Completion, history []models.Message) (models.ToolCall, []string) {
	fallback := []string{UserQuestion(history)}

	for _, call := range completion.ToolCalls {
		if call.Name != retrieval.ToolName {
			continue
		}
		if call.ID == "" {
			call.ID = uuid.NewString()
		}
		queries, err := retrieval.ParseSearchArguments(call.Arguments)
		if err != nil {
			r.logger.Warn().
				Str("participant", r.name).
				Err(err).
				Msg("Malformed search arguments, searching for the user question")
			return call, fallback
		}
		return call, queries
	}

	r.logger.Warn().
		Str("participant", r.name).
		Str("tool", retrieval.ToolName).
		Int("tool_calls", len(completion.ToolCalls)).
		Msg("No search call in completion, searching for the user question")

	return models.ToolCall{
		ID:        uuid.NewString(),
		Name:      retrieval.ToolName,
		Arguments: retrieval.EncodeSearchArguments(fallback, r.tool.Multi()),
	}, fallback
}
