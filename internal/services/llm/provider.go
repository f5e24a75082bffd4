package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
	"google.golang.org/genai"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
	// ProviderAzureOpenAI uses an Azure OpenAI deployment
	ProviderAzureOpenAI ProviderType = "azure_openai"
)

var providerPrefixes = map[string]ProviderType{
	"claude/":    ProviderClaude,
	"anthropic/": ProviderClaude,
	"gemini/":    ProviderGemini,
	"google/":    ProviderGemini,
	"azure/":     ProviderAzureOpenAI,
	"openai/":    ProviderAzureOpenAI,
}

// ProviderFactory creates model clients and shares SDK clients between them
type ProviderFactory struct {
	config   *common.Config
	logger   arbor.ILogger
	retry    *RetryConfig
	observer CallObserver

	mu           sync.Mutex
	geminiClient *genai.Client
	claudeClient *anthropic.Client
	openaiClient *openai.Client
}

// FactoryOption configures the ProviderFactory
type FactoryOption func(*ProviderFactory)

// WithRetryConfig overrides the retry policy applied to every client
func WithRetryConfig(retry *RetryConfig) FactoryOption {
	return func(f *ProviderFactory) {
		f.retry = retry
	}
}

// WithCallObserver receives a record of every completed model call
func WithCallObserver(observer CallObserver) FactoryOption {
	return func(f *ProviderFactory) {
		f.observer = observer
	}
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(config *common.Config, logger arbor.ILogger, opts ...FactoryOption) *ProviderFactory {
	f := &ProviderFactory{
		config: config,
		logger: logger,
		retry:  NewDefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-sonnet-4-5" or "claude/claude-sonnet-4-5" -> Claude
// - "gemini-2.5-flash" or "gemini/gemini-2.5-flash" -> Gemini
// - "azure/my-deployment" or "gpt-4o" -> Azure OpenAI
// - Empty string -> uses default provider from config
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	if model == "" {
		return ProviderType(f.config.LLM.DefaultProvider)
	}

	model = strings.ToLower(model)

	for prefix, provider := range providerPrefixes {
		if strings.HasPrefix(model, prefix) {
			return provider
		}
	}

	switch {
	case strings.HasPrefix(model, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(model, "gemini-"):
		return ProviderGemini
	case strings.HasPrefix(model, "gpt-"):
		return ProviderAzureOpenAI
	}

	return ProviderType(f.config.LLM.DefaultProvider)
}

// NormalizeModel removes provider prefix from model name if present
func (f *ProviderFactory) NormalizeModel(model string) string {
	lower := strings.ToLower(model)
	for prefix := range providerPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// GetDefaultModel returns the default model for a provider
func (f *ProviderFactory) GetDefaultModel(provider ProviderType) string {
	switch provider {
	case ProviderClaude:
		return f.config.Claude.Model
	case ProviderAzureOpenAI:
		return f.config.AzureOpenAI.Deployment
	default:
		return f.config.Gemini.Model
	}
}

// Client returns a model client for the model string, creating the
// underlying SDK client on first use.
func (f *ProviderFactory) Client(ctx context.Context, model string) (interfaces.ModelClient, error) {
	provider := f.DetectProvider(model)
	model = f.NormalizeModel(model)
	if model == "" {
		model = f.GetDefaultModel(provider)
	}
	if model == "" {
		return nil, fmt.Errorf("no model configured for provider %s", provider)
	}

	var client interfaces.ModelClient
	switch provider {
	case ProviderClaude:
		sdk, err := f.getClaudeClient()
		if err != nil {
			return nil, err
		}
		client = NewClaudeClient(*sdk, model, f.config.Claude.MaxTokens, f.retry, f.logger)

	case ProviderAzureOpenAI:
		sdk, err := f.getOpenAIClient()
		if err != nil {
			return nil, err
		}
		client = NewAzureOpenAIClient(*sdk, model, f.retry, f.logger)

	case ProviderGemini:
		sdk, err := f.getGeminiClient(ctx)
		if err != nil {
			return nil, err
		}
		client = NewGeminiClient(sdk, model, f.retry, f.logger)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}

	f.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Msg("Created model client")

	return newAuditedClient(client, f.logger, f.observer), nil
}

func (f *ProviderFactory) getClaudeClient() (*anthropic.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.claudeClient != nil {
		return f.claudeClient, nil
	}
	if f.config.Claude.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set via ANTHROPIC_API_KEY, QUARRY_CLAUDE_API_KEY, or claude.api_key in config)")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(f.config.Claude.APIKey),
	)
	f.claudeClient = &client
	return f.claudeClient, nil
}

func (f *ProviderFactory) getGeminiClient(ctx context.Context) (*genai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.geminiClient != nil {
		return f.geminiClient, nil
	}
	if f.config.Gemini.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set via GEMINI_API_KEY, QUARRY_GEMINI_API_KEY, or gemini.api_key in config)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  f.config.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	f.geminiClient = client
	return client, nil
}

func (f *ProviderFactory) getOpenAIClient() (*openai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.openaiClient != nil {
		return f.openaiClient, nil
	}
	cfg := f.config.AzureOpenAI
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("Azure OpenAI endpoint and API key are required (set via AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY)")
	}

	client := openai.NewClient(
		azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
		azure.WithAPIKey(cfg.APIKey),
	)
	f.openaiClient = &client
	return f.openaiClient, nil
}

// Close releases provider clients
func (f *ProviderFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.geminiClient = nil
	f.claudeClient = nil
	f.openaiClient = nil
	return nil
}
