package retrieval

import (
	"context"

	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

// ToolName is the function name exposed to research participants
const ToolName = "search_index"

// SearchTool binds the retrieval service to one session's figure cache and a
// mode-specific result limit, in the shape a research participant calls it.
type SearchTool struct {
	service *Service
	cache   *FigureCache
	limit   int
	multi   bool
	observe func(Outcome)
}

// NewSearchTool creates a search tool. multi selects the search_terms
// (list) argument form instead of search_term. observe may be nil.
func (s *Service) NewSearchTool(cache *FigureCache, limit int, multi bool, observe func(Outcome)) *SearchTool {
	return &SearchTool{
		service: s,
		cache:   cache,
		limit:   limit,
		multi:   multi,
		observe: observe,
	}
}

// Multi reports whether the tool takes a list of terms
func (t *SearchTool) Multi() bool {
	return t.multi
}

// Spec describes the tool to the model
func (t *SearchTool) Spec() interfaces.ToolSpec {
	spec := interfaces.ToolSpec{
		Name:        ToolName,
		Description: "Search the Azure Search index for the given query.",
	}
	if t.multi {
		spec.Parameters = interfaces.ToolSchema{
			Properties: map[string]interfaces.ToolProperty{
				ArgSearchTerms: {Type: "array", ItemsType: "string", Description: "Search terms to run against the index"},
			},
			Required: []string{ArgSearchTerms},
		}
	} else {
		spec.Parameters = interfaces.ToolSchema{
			Properties: map[string]interfaces.ToolProperty{
				ArgSearchTerm: {Type: "string", Description: "Search term to run against the index"},
			},
			Required: []string{ArgSearchTerm},
		}
	}
	return spec
}

// Run retrieves the queries and returns the result set with its serialized envelope
func (t *SearchTool) Run(ctx context.Context, queries []string) (*models.ResultSet, string, error) {
	rs, outcome, err := t.service.RetrieveWithOutcome(ctx, queries, t.limit, t.cache)
	if err != nil {
		return nil, "", err
	}
	if t.observe != nil {
		t.observe(outcome)
	}
	content, err := EncodeResultSet(rs)
	if err != nil {
		return nil, "", &models.RetrievalBackendError{Err: err}
	}
	return rs, content, nil
}
