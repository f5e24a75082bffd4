package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

// ClaudeClient streams completions from the Anthropic Messages API
type ClaudeClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
	retry     *RetryConfig
	logger    arbor.ILogger
}

// NewClaudeClient creates a model client bound to one Claude model
func NewClaudeClient(client anthropic.Client, model string, maxTokens int, retry *RetryConfig, logger arbor.ILogger) *ClaudeClient {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &ClaudeClient{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		retry:     retry,
		logger:    logger,
	}
}

// Name returns provider/model
func (c *ClaudeClient) Name() string {
	return string(ProviderClaude) + "/" + c.model
}

// convertMessagesToClaude maps provider-agnostic messages to Claude message params.
// Figures become base64 image blocks.
func convertMessagesToClaude(messages []interfaces.ModelMessage) ([]anthropic.MessageParam, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty")
	}

	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Parts))
		for _, part := range msg.Parts {
			if part.Figure != nil {
				blocks = append(blocks, anthropic.NewImageBlockBase64(part.Figure.MimeType, figureBase64(part.Figure)))
				continue
			}
			if part.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			}
		}
		if len(blocks) == 0 {
			continue
		}

		switch msg.Role {
		case interfaces.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		default:
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out, nil
}

func claudeTools(specs []interfaces.ToolSpec) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        spec.Name,
				Description: anthropic.String(spec.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: schemaProperties(spec.Parameters),
					Required:   spec.Parameters.Required,
				},
			},
		})
	}
	return tools
}

// Complete streams one completion, forwarding text deltas as they arrive
func (c *ClaudeClient) Complete(ctx context.Context, req *interfaces.ModelRequest, onDelta interfaces.DeltaFunc) (*interfaces.Completion, error) {
	messages, err := convertMessagesToClaude(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(maxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(float64(req.Temperature)),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}
	if len(req.Tools) > 0 {
		params.Tools = claudeTools(req.Tools)
	}

	return withRetry(ctx, c.retry, c.logger, string(ProviderClaude), onDelta,
		func(ctx context.Context, onDelta interfaces.DeltaFunc) (*interfaces.Completion, error) {
			return c.stream(ctx, params, onDelta)
		})
}

func (c *ClaudeClient) stream(ctx context.Context, params anthropic.MessageNewParams, onDelta interfaces.DeltaFunc) (*interfaces.Completion, error) {
	stream := c.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, fmt.Errorf("failed to accumulate stream event: %w", err)
		}

		if ev, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok {
				if err := onDelta(delta.Text); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}

	completion := &interfaces.Completion{
		Provider: string(ProviderClaude),
		Model:    c.model,
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args := json.RawMessage(block.Input)
			if !json.Valid(args) {
				args = json.RawMessage("{}")
			}
			completion.ToolCalls = append(completion.ToolCalls, models.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(args),
			})
		}
	}
	completion.Text = text.String()

	return completion, nil
}
