package search

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
)

// NewBackend creates the search backend from configuration.
// Auth modes:
//   - "aad": Azure AD client credentials, when tenant, client id and secret are set
//   - "api_key": the api-key header otherwise
func NewBackend(ctx context.Context, config *common.Config, logger arbor.ILogger) interfaces.SearchBackend {
	auth := "api_key"
	if config.Search.AAD.Enabled() {
		auth = "aad"
	}

	logger.Info().
		Str("endpoint", config.Search.Endpoint).
		Str("index", config.Search.IndexName).
		Str("auth", auth).
		Msg("Initializing search backend")

	return NewClient(ctx, config.Search,
		WithLogger(logger),
		WithNeighbourFactor(config.Retrieval.NeighbourFactor),
	)
}
