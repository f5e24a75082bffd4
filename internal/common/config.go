package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment"` // "development" or "production"
	Server      ServerConfig      `toml:"server"`
	Logging     LoggingConfig     `toml:"logging"`
	Search      SearchConfig      `toml:"search"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	Chat        ChatConfig        `toml:"chat"`
	LLM         LLMConfig         `toml:"llm"`
	Claude      ClaudeConfig      `toml:"claude"`
	Gemini      GeminiConfig      `toml:"gemini"`
	AzureOpenAI AzureOpenAIConfig `toml:"azure_openai"`
	Storage     StorageConfig     `toml:"storage"`
	Metrics     MetricsConfig     `toml:"metrics"`
	WebSocket   WebSocketConfig   `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"`
	Output []string `toml:"output"` // "stdout", "file"
	Dir    string   `toml:"dir"`    // file output directory, defaults to ./logs beside the binary
}

// SearchConfig configures the Azure AI Search backend
type SearchConfig struct {
	Endpoint              string    `toml:"endpoint" validate:"required,url"`
	APIKey                string    `toml:"api_key"`
	APIVersion            string    `toml:"api_version" validate:"required"`
	IndexName             string    `toml:"index_name" validate:"required"`
	SemanticConfiguration string    `toml:"semantic_configuration" validate:"required"`
	VectorField           string    `toml:"vector_field" validate:"required"`
	QueryLanguage         string    `toml:"query_language"`
	Timeout               string    `toml:"timeout"`    // request timeout as duration string (default: "30s")
	RateLimit             string    `toml:"rate_limit"` // minimum spacing between backend calls, "0s" disables
	AAD                   AADConfig `toml:"aad"`
}

// AADConfig enables Azure AD client-credential auth instead of an api key
type AADConfig struct {
	TenantID     string `toml:"tenant_id"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Scope        string `toml:"scope"`
}

// Enabled reports whether AAD credentials are configured
func (a AADConfig) Enabled() bool {
	return a.TenantID != "" && a.ClientID != "" && a.ClientSecret != ""
}

// RetrievalConfig holds per-mode result limits and the acceptance threshold
type RetrievalConfig struct {
	MinRerankerScore float64 `toml:"min_reranker_score" validate:"gte=0"`
	SinglePassTop    int     `toml:"single_pass_top" validate:"min=1,max=50"`
	BreadthTop       int     `toml:"breadth_top" validate:"min=1,max=50"`
	DepthTop         int     `toml:"depth_top" validate:"min=1,max=50"`
	NeighbourFactor  int     `toml:"neighbour_factor" validate:"min=1"`
	MaxConcurrency   int     `toml:"max_concurrency" validate:"min=1"`
}

// ChatConfig controls conversation behaviour
type ChatConfig struct {
	DefaultMode       string   `toml:"default_mode" validate:"oneof=single_pass iterative"`
	MaxMessages       int      `toml:"max_messages" validate:"min=2"`
	TerminationPhrase string   `toml:"termination_phrase"`
	Multimodal        bool     `toml:"multimodal"` // resolve figures into answerer input
	Timeout           string   `toml:"timeout"`    // whole-conversation deadline as duration string (default: "5m")
	Starters          []string `toml:"starters"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	LLMProviderGemini      LLMProvider = "gemini"
	LLMProviderClaude      LLMProvider = "claude"
	LLMProviderAzureOpenAI LLMProvider = "azure_openai"
)

// LLMConfig selects models per participant role. Model strings may carry a
// provider prefix ("claude/...", "gemini/...", "azure/...").
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude azure_openai"`
	ResearchModel   string      `toml:"research_model"`
	AnswerModel     string      `toml:"answer_model"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// AzureOpenAIConfig contains Azure OpenAI deployment configuration
type AzureOpenAIConfig struct {
	Endpoint    string  `toml:"endpoint"`
	APIKey      string  `toml:"api_key"`
	APIVersion  string  `toml:"api_version"`
	Deployment  string  `toml:"deployment"`
	Temperature float32 `toml:"temperature"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
	Audit          bool   `toml:"audit"` // record finished conversations
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// WebSocketConfig controls the streaming chat endpoint
type WebSocketConfig struct {
	// Minimum spacing between conversations started on one connection
	QueryInterval string `toml:"query_interval"`
	WriteTimeout  string `toml:"write_timeout"`
}

// GetTimeout returns the parsed search request timeout
func (c SearchConfig) GetTimeout() time.Duration { return parseDuration(c.Timeout) }

// GetRateLimit returns the parsed spacing between backend calls
func (c SearchConfig) GetRateLimit() time.Duration { return parseDuration(c.RateLimit) }

// GetTimeout returns the parsed conversation deadline
func (c ChatConfig) GetTimeout() time.Duration { return parseDuration(c.Timeout) }

// GetQueryInterval returns the parsed spacing between queries on one connection
func (c WebSocketConfig) GetQueryInterval() time.Duration { return parseDuration(c.QueryInterval) }

// GetWriteTimeout returns the parsed frame write deadline
func (c WebSocketConfig) GetWriteTimeout() time.Duration { return parseDuration(c.WriteTimeout) }

// parseDuration treats empty or unparsable values as zero. Validate rejects
// unparsable values before any service reads them.
func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// DefaultStarters are the suggested opening questions
var DefaultStarters = []string{
	"What is the approach for sustainability?",
	"What priority areas will have the most impact on the business and it's stakeholders?",
	"How is the company innovating?",
	"How does the company enforce compliance throughout the supply chain?",
	"What is the company doing to be more sustainable?",
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Search: SearchConfig{
			APIVersion:            "2024-07-01",
			IndexName:             "image-processing-index",
			SemanticConfiguration: "image-processing-semantic-config",
			VectorField:           "ChunkEmbedding",
			QueryLanguage:         "en-GB",
			Timeout:               "30s",
			AAD: AADConfig{
				Scope: "https://search.azure.com/.default",
			},
		},
		Retrieval: RetrievalConfig{
			MinRerankerScore: 2.5,
			SinglePassTop:    3,
			BreadthTop:       1,
			DepthTop:         4,
			NeighbourFactor:  5,
			MaxConcurrency:   4,
		},
		Chat: ChatConfig{
			DefaultMode:       "single_pass",
			MaxMessages:       15,
			TerminationPhrase: "TERMINATE",
			Multimodal:        true,
			Timeout:           "5m",
			Starters:          DefaultStarters,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-5",
			MaxTokens:   4096,
			Temperature: 0,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0,
		},
		AzureOpenAI: AzureOpenAIConfig{
			APIVersion:  "2024-10-21",
			Temperature: 0,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:  "./data/audit",
				Audit: true,
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		WebSocket: WebSocketConfig{
			QueryInterval: "2s",
			WriteTimeout:  "10s",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files. CLI flags are applied by the caller.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("QUARRY_ENV"); env != "" {
		config.Environment = env
	}

	// Server
	if port := os.Getenv("QUARRY_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("QUARRY_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging
	if level := os.Getenv("QUARRY_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("QUARRY_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Search
	if endpoint := firstEnv("QUARRY_SEARCH_ENDPOINT", "AZURE_SEARCH_ENDPOINT"); endpoint != "" {
		config.Search.Endpoint = endpoint
	}
	if key := firstEnv("QUARRY_SEARCH_API_KEY", "AZURE_SEARCH_API_KEY"); key != "" {
		config.Search.APIKey = key
	}
	if index := os.Getenv("QUARRY_SEARCH_INDEX"); index != "" {
		config.Search.IndexName = index
	}
	if semantic := os.Getenv("QUARRY_SEARCH_SEMANTIC_CONFIGURATION"); semantic != "" {
		config.Search.SemanticConfiguration = semantic
	}
	if timeout := os.Getenv("QUARRY_SEARCH_TIMEOUT"); timeout != "" {
		config.Search.Timeout = timeout
	}
	if secret := os.Getenv("QUARRY_SEARCH_AAD_CLIENT_SECRET"); secret != "" {
		config.Search.AAD.ClientSecret = secret
	}

	// Retrieval
	if score := os.Getenv("QUARRY_RETRIEVAL_MIN_RERANKER_SCORE"); score != "" {
		if s, err := strconv.ParseFloat(score, 64); err == nil {
			config.Retrieval.MinRerankerScore = s
		}
	}

	// Chat
	if mode := os.Getenv("QUARRY_CHAT_DEFAULT_MODE"); mode != "" {
		config.Chat.DefaultMode = mode
	}
	if maxMessages := os.Getenv("QUARRY_CHAT_MAX_MESSAGES"); maxMessages != "" {
		if n, err := strconv.Atoi(maxMessages); err == nil {
			config.Chat.MaxMessages = n
		}
	}
	if multimodal := os.Getenv("QUARRY_CHAT_MULTIMODAL"); multimodal != "" {
		if b, err := strconv.ParseBool(multimodal); err == nil {
			config.Chat.Multimodal = b
		}
	}

	// LLM
	if provider := os.Getenv("QUARRY_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
	if model := os.Getenv("QUARRY_LLM_RESEARCH_MODEL"); model != "" {
		config.LLM.ResearchModel = model
	}
	if model := os.Getenv("QUARRY_LLM_ANSWER_MODEL"); model != "" {
		config.LLM.AnswerModel = model
	}
	if key := firstEnv("QUARRY_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if key := firstEnv("QUARRY_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if endpoint := firstEnv("QUARRY_AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_ENDPOINT"); endpoint != "" {
		config.AzureOpenAI.Endpoint = endpoint
	}
	if key := firstEnv("QUARRY_AZURE_OPENAI_API_KEY", "AZURE_OPENAI_API_KEY"); key != "" {
		config.AzureOpenAI.APIKey = key
	}
	if deployment := os.Getenv("QUARRY_AZURE_OPENAI_DEPLOYMENT"); deployment != "" {
		config.AzureOpenAI.Deployment = deployment
	}
	if version := os.Getenv("QUARRY_AZURE_OPENAI_API_VERSION"); version != "" {
		config.AzureOpenAI.APIVersion = version
	}

	// Storage
	if badgerPath := os.Getenv("QUARRY_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
}

// firstEnv returns the first non-empty environment variable
func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the resolved configuration
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	durations := []struct{ key, value string }{
		{"search.timeout", c.Search.Timeout},
		{"search.rate_limit", c.Search.RateLimit},
		{"chat.timeout", c.Chat.Timeout},
		{"websocket.query_interval", c.WebSocket.QueryInterval},
		{"websocket.write_timeout", c.WebSocket.WriteTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		if parsed, err := time.ParseDuration(d.value); err != nil || parsed < 0 {
			return fmt.Errorf("invalid configuration: %s must be a non-negative duration, got %q", d.key, d.value)
		}
	}
	if c.Search.APIKey == "" && !c.Search.AAD.Enabled() {
		return fmt.Errorf("invalid configuration: search.api_key or search.aad credentials required")
	}
	return nil
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
