package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

// AzureOpenAIClient streams chat completions from an Azure OpenAI deployment
type AzureOpenAIClient struct {
	client     openai.Client
	deployment string
	retry      *RetryConfig
	logger     arbor.ILogger
}

// NewAzureOpenAIClient creates a model client bound to one deployment
func NewAzureOpenAIClient(client openai.Client, deployment string, retry *RetryConfig, logger arbor.ILogger) *AzureOpenAIClient {
	return &AzureOpenAIClient{
		client:     client,
		deployment: deployment,
		retry:      retry,
		logger:     logger,
	}
}

// Name returns provider/deployment
func (c *AzureOpenAIClient) Name() string {
	return string(ProviderAzureOpenAI) + "/" + c.deployment
}

// convertMessagesToOpenAI maps provider-agnostic messages to chat completion
// params. Figures become data-URL image parts.
func convertMessagesToOpenAI(system string, messages []interfaces.ModelMessage) ([]openai.ChatCompletionMessageParamUnion, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty")
	}

	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}

	for _, msg := range messages {
		if msg.Role == interfaces.RoleAssistant {
			var text string
			for _, part := range msg.Parts {
				text += part.Text
			}
			if text != "" {
				out = append(out, openai.AssistantMessage(text))
			}
			continue
		}

		parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(msg.Parts))
		for _, part := range msg.Parts {
			if part.Figure != nil {
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: figureDataURL(part.Figure),
				}))
				continue
			}
			if part.Text != "" {
				parts = append(parts, openai.TextContentPart(part.Text))
			}
		}
		if len(parts) > 0 {
			out = append(out, openai.UserMessage(parts))
		}
	}
	return out, nil
}

func openAITools(specs []interfaces.ToolSpec) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        spec.Name,
				Description: openai.String(spec.Description),
				Parameters:  openai.FunctionParameters(jsonSchema(spec.Parameters)),
			},
		})
	}
	return tools
}

// Complete streams one completion, forwarding text deltas as they arrive
func (c *AzureOpenAIClient) Complete(ctx context.Context, req *interfaces.ModelRequest, onDelta interfaces.DeltaFunc) (*interfaces.Completion, error) {
	messages, err := convertMessagesToOpenAI(req.System, req.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.deployment),
		Messages:    messages,
		Temperature: openai.Float(float64(req.Temperature)),
	}
	if len(req.Tools) > 0 {
		params.Tools = openAITools(req.Tools)
	}

	return withRetry(ctx, c.retry, c.logger, string(ProviderAzureOpenAI), onDelta,
		func(ctx context.Context, onDelta interfaces.DeltaFunc) (*interfaces.Completion, error) {
			return c.stream(ctx, params, onDelta)
		})
}

func (c *AzureOpenAIClient) stream(ctx context.Context, params openai.ChatCompletionNewParams, onDelta interfaces.DeltaFunc) (*interfaces.Completion, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if err := onDelta(chunk.Choices[0].Delta.Content); err != nil {
				return nil, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	if len(acc.Choices) == 0 {
		return nil, fmt.Errorf("empty response from Azure OpenAI")
	}

	message := acc.Choices[0].Message
	completion := &interfaces.Completion{
		Text:     message.Content,
		Provider: string(ProviderAzureOpenAI),
		Model:    c.deployment,
	}
	for _, call := range message.ToolCalls {
		completion.ToolCalls = append(completion.ToolCalls, models.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return completion, nil
}
