package retrieval

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
	"golang.org/x/sync/errgroup"
)

// Outcome counts what happened during one retrieval call
type Outcome struct {
	Queries    int
	Hits       int
	Accepted   int
	Rejected   int // below the acceptance threshold
	Duplicates int
	Figures    int // newly cached figures
}

// Service executes ranked searches and turns hits into a deduplicated result set
type Service struct {
	backend interfaces.SearchBackend
	config  common.RetrievalConfig
	logger  arbor.ILogger
}

// NewService creates a retrieval service
func NewService(backend interfaces.SearchBackend, config common.RetrievalConfig, logger arbor.ILogger) *Service {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 1
	}
	return &Service{
		backend: backend,
		config:  config,
		logger:  logger,
	}
}

// Retrieve runs every query with the given per-query limit, keeps hits at or
// above the acceptance threshold, deduplicates by passage id (first hit in
// query order wins) and caches the figures of newly accepted passages.
func (s *Service) Retrieve(ctx context.Context, queries []string, limit int, cache *FigureCache) (*models.ResultSet, error) {
	rs, _, err := s.RetrieveWithOutcome(ctx, queries, limit, cache)
	return rs, err
}

// RetrieveWithOutcome is Retrieve plus the call's counters
func (s *Service) RetrieveWithOutcome(ctx context.Context, queries []string, limit int, cache *FigureCache) (*models.ResultSet, Outcome, error) {
	outcome := Outcome{Queries: len(queries)}
	if len(queries) == 0 {
		return nil, outcome, errors.New("at least one query is required")
	}
	if limit <= 0 {
		return nil, outcome, fmt.Errorf("result limit must be positive, got %d", limit)
	}
	if cache == nil {
		return nil, outcome, errors.New("figure cache is required")
	}

	start := time.Now()

	// Queries run concurrently; results are merged in query order below so
	// first-seen semantics do not depend on completion order.
	hitsByQuery := make([][]interfaces.SearchHit, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxConcurrency)
	for i, query := range queries {
		g.Go(func() error {
			hits, err := s.backend.Search(gctx, interfaces.SearchRequest{Query: query, Top: limit})
			if err != nil {
				return models.WrapBackendError("search", err, func(err error) error {
					return &models.RetrievalBackendError{Query: query, Err: err}
				})
			}
			if len(hits) > limit {
				hits = hits[:limit]
			}
			hitsByQuery[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn().Err(err).Strs("queries", queries).Msg("Retrieval failed")
		return nil, outcome, err
	}

	rs := models.NewResultSet()
	for i, hits := range hitsByQuery {
		for _, hit := range hits {
			outcome.Hits++
			if hit.RerankerScore < s.config.MinRerankerScore {
				outcome.Rejected++
				continue
			}

			// first seen wins: a later hit for the same passage is dropped
			// before its payload is decoded
			if _, seen := rs.Get(hit.ChunkID); seen {
				outcome.Duplicates++
				continue
			}

			passage, err := toPassage(hit)
			if err != nil {
				return nil, outcome, &models.RetrievalBackendError{Query: queries[i], Err: err}
			}
			if !rs.Add(passage) {
				outcome.Duplicates++
				continue
			}
			outcome.Accepted++

			for _, figure := range passage.Figures {
				if cache.Insert(passage.ID, figure) {
					outcome.Figures++
				}
			}
		}
	}

	s.logger.Info().
		Int("queries", outcome.Queries).
		Int("limit", limit).
		Int("hits", outcome.Hits).
		Int("accepted", outcome.Accepted).
		Int("rejected", outcome.Rejected).
		Int("duplicates", outcome.Duplicates).
		Int("figures_cached", outcome.Figures).
		Dur("duration", time.Since(start)).
		Msg("Retrieval completed")

	return rs, outcome, nil
}

// toPassage validates a hit and decodes its figure payloads
func toPassage(hit interfaces.SearchHit) (models.Passage, error) {
	if hit.ChunkID == "" {
		return models.Passage{}, errors.New("hit without ChunkId")
	}

	passage := models.Passage{
		ID:    hit.ChunkID,
		Title: hit.Title,
		Body:  hit.Chunk,
	}
	for _, f := range hit.Figures {
		if f.FigureID == "" {
			return models.Passage{}, fmt.Errorf("passage %s: figure without FigureId", hit.ChunkID)
		}
		data, err := base64.StdEncoding.DecodeString(f.Data)
		if err != nil {
			return models.Passage{}, fmt.Errorf("passage %s figure %s: %w", hit.ChunkID, f.FigureID, err)
		}
		passage.Figures = append(passage.Figures, models.Figure{
			ID:          f.FigureID,
			Data:        data,
			Description: f.Description,
		})
	}
	return passage, nil
}
