package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, 2.5, config.Retrieval.MinRerankerScore)
	assert.Equal(t, 15, config.Chat.MaxMessages)
	assert.Equal(t, 3, config.Retrieval.SinglePassTop)
	assert.Equal(t, 1, config.Retrieval.BreadthTop)
	assert.Equal(t, 4, config.Retrieval.DepthTop)
	assert.Equal(t, "ChunkEmbedding", config.Search.VectorField)
	assert.Equal(t, "en-GB", config.Search.QueryLanguage)
	assert.Len(t, config.Chat.Starters, 5)
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	base := writeConfig(t, "base.toml", `
[search]
endpoint = "https://example.search.windows.net"
api_key = "base-key"
index_name = "base-index"

[chat]
max_messages = 10
`)
	override := writeConfig(t, "override.toml", `
[search]
index_name = "override-index"

[retrieval]
depth_top = 6
`)

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, "override-index", config.Search.IndexName)
	assert.Equal(t, "base-key", config.Search.APIKey)
	assert.Equal(t, 10, config.Chat.MaxMessages)
	assert.Equal(t, 6, config.Retrieval.DepthTop)
	// untouched defaults survive
	assert.Equal(t, "image-processing-semantic-config", config.Search.SemanticConfiguration)
}

func TestLoadFromFiles_Durations(t *testing.T) {
	path := writeConfig(t, "durations.toml", `
[chat]
timeout = "90s"

[websocket]
query_interval = "500ms"
`)

	config, err := LoadFromFiles(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, config.Chat.GetTimeout())
	assert.Equal(t, 500*time.Millisecond, config.WebSocket.GetQueryInterval())
}

func TestLoadFromFiles_DeploymentConfig(t *testing.T) {
	config, err := LoadFromFiles(filepath.Join("..", "..", "deployments", "local", "quarry.toml"))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, config.Search.GetTimeout())
	assert.Equal(t, 5*time.Minute, config.Chat.GetTimeout())
	assert.Equal(t, 2*time.Second, config.WebSocket.GetQueryInterval())
	assert.Equal(t, 10*time.Second, config.WebSocket.GetWriteTimeout())
	assert.Zero(t, config.Search.GetRateLimit())
}

func TestValidate_RejectsBadDuration(t *testing.T) {
	config := NewDefaultConfig()
	config.Search.Endpoint = "https://example.search.windows.net"
	config.Search.APIKey = "key"
	require.NoError(t, config.Validate())

	config.Chat.Timeout = "five minutes"
	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat.timeout")
}

func TestLoadFromFiles_Errors(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	bad := writeConfig(t, "bad.toml", "[search\nendpoint=")
	_, err = LoadFromFiles(bad)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QUARRY_SERVER_PORT", "9191")
	t.Setenv("QUARRY_SEARCH_TIMEOUT", "5s")
	t.Setenv("AZURE_SEARCH_API_KEY", "env-key")
	t.Setenv("QUARRY_CHAT_MAX_MESSAGES", "7")
	t.Setenv("QUARRY_LOG_OUTPUT", "stdout, file")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 9191, config.Server.Port)
	assert.Equal(t, 5*time.Second, config.Search.GetTimeout())
	assert.Equal(t, "env-key", config.Search.APIKey)
	assert.Equal(t, 7, config.Chat.MaxMessages)
	assert.Equal(t, []string{"stdout", "file"}, config.Logging.Output)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 8085, config.Server.Port)

	ApplyFlagOverrides(config, 9000, "0.0.0.0")
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := NewDefaultConfig()
		c.Search.Endpoint = "https://example.search.windows.net"
		c.Search.APIKey = "key"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults with endpoint and key", func(c *Config) {}, false},
		{"missing endpoint", func(c *Config) { c.Search.Endpoint = "" }, true},
		{"endpoint not a url", func(c *Config) { c.Search.Endpoint = "not a url" }, true},
		{"no credentials", func(c *Config) { c.Search.APIKey = "" }, true},
		{"aad instead of key", func(c *Config) {
			c.Search.APIKey = ""
			c.Search.AAD = AADConfig{TenantID: "t", ClientID: "c", ClientSecret: "s"}
		}, false},
		{"message cap too low", func(c *Config) { c.Chat.MaxMessages = 1 }, true},
		{"unknown mode", func(c *Config) { c.Chat.DefaultMode = "graph" }, true},
		{"unknown provider", func(c *Config) { c.LLM.DefaultProvider = "mistral" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
