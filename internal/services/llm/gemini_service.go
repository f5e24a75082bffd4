package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
	"google.golang.org/genai"
)

// GeminiClient streams completions from the Gemini API
type GeminiClient struct {
	client *genai.Client
	model  string
	retry  *RetryConfig
	logger arbor.ILogger
}

// NewGeminiClient creates a model client bound to one Gemini model
func NewGeminiClient(client *genai.Client, model string, retry *RetryConfig, logger arbor.ILogger) *GeminiClient {
	return &GeminiClient{
		client: client,
		model:  model,
		retry:  retry,
		logger: logger,
	}
}

// Name returns provider/model
func (c *GeminiClient) Name() string {
	return string(ProviderGemini) + "/" + c.model
}

// convertMessagesToGemini maps provider-agnostic messages to Gemini contents.
// Figures become inline image parts.
func convertMessagesToGemini(messages []interfaces.ModelMessage) ([]*genai.Content, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty")
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		parts := make([]*genai.Part, 0, len(msg.Parts))
		for _, part := range msg.Parts {
			if part.Figure != nil {
				parts = append(parts, genai.NewPartFromBytes(part.Figure.Data, part.Figure.MimeType))
				continue
			}
			if part.Text != "" {
				parts = append(parts, genai.NewPartFromText(part.Text))
			}
		}
		if len(parts) == 0 {
			continue
		}

		var role genai.Role = genai.RoleUser
		if msg.Role == interfaces.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents, nil
}

func geminiTools(specs []interfaces.ToolSpec) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		props := make(map[string]*genai.Schema, len(spec.Parameters.Properties))
		for name, prop := range spec.Parameters.Properties {
			schema := &genai.Schema{
				Type:        genai.TypeString,
				Description: prop.Description,
			}
			if prop.Type == "array" {
				schema.Type = genai.TypeArray
				schema.Items = &genai.Schema{Type: genai.TypeString}
			}
			props[name] = schema
		}

		decls = append(decls, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   spec.Parameters.Required,
			},
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// Complete streams one completion, forwarding text deltas as they arrive
func (c *GeminiClient) Complete(ctx context.Context, req *interfaces.ModelRequest, onDelta interfaces.DeltaFunc) (*interfaces.Completion, error) {
	contents, err := convertMessagesToGemini(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		config.Tools = geminiTools(req.Tools)
	}

	return withRetry(ctx, c.retry, c.logger, string(ProviderGemini), onDelta,
		func(ctx context.Context, onDelta interfaces.DeltaFunc) (*interfaces.Completion, error) {
			return c.stream(ctx, contents, config, onDelta)
		})
}

func (c *GeminiClient) stream(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig, onDelta interfaces.DeltaFunc) (*interfaces.Completion, error) {
	completion := &interfaces.Completion{
		Provider: string(ProviderGemini),
		Model:    c.model,
	}

	var text strings.Builder
	for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, contents, config) {
		if err != nil {
			return nil, err
		}
		if resp == nil {
			continue
		}

		for _, fc := range resp.FunctionCalls() {
			args, err := json.Marshal(fc.Args)
			if err != nil {
				args = []byte("{}")
			}
			id := fc.ID
			if id == "" {
				id = uuid.NewString()
			}
			completion.ToolCalls = append(completion.ToolCalls, models.ToolCall{
				ID:        id,
				Name:      fc.Name,
				Arguments: string(args),
			})
		}

		if chunk := resp.Text(); chunk != "" {
			text.WriteString(chunk)
			if err := onDelta(chunk); err != nil {
				return nil, err
			}
		}
	}

	completion.Text = text.String()
	return completion, nil
}
