package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the effective setup
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.Print("Quarry", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.Environment).
		Str("search_index", config.Search.IndexName).
		Str("default_mode", config.Chat.DefaultMode).
		Str("provider", string(config.LLM.DefaultProvider)).
		Bool("multimodal", config.Chat.Multimodal).
		Msg("Quarry starting")
}
