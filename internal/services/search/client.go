// Package search provides a client for the Azure AI Search documents API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// selectFields are the index fields a hit is built from.
	selectFields = "ChunkId,Title,Chunk,ChunkFigures"
)

// Client runs hybrid semantic and vector queries against one search index.
type Client struct {
	endpoint        string
	apiKey          string
	apiVersion      string
	index           string
	semanticConfig  string
	vectorField     string
	language        string
	neighbourFactor int
	httpClient      *http.Client
	limiter         *rate.Limiter
	logger          arbor.ILogger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client. AAD auth installs its own.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithNeighbourFactor sets how many vector neighbours are considered per requested result.
func WithNeighbourFactor(factor int) ClientOption {
	return func(c *Client) {
		if factor > 0 {
			c.neighbourFactor = factor
		}
	}
}

// NewClient creates a search client from configuration. With AAD credentials
// configured, requests carry a bearer token instead of the api-key header.
func NewClient(ctx context.Context, config common.SearchConfig, opts ...ClientOption) *Client {
	timeout := config.GetTimeout()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		endpoint:        strings.TrimRight(config.Endpoint, "/"),
		apiKey:          config.APIKey,
		apiVersion:      config.APIVersion,
		index:           config.IndexName,
		semanticConfig:  config.SemanticConfiguration,
		vectorField:     config.VectorField,
		language:        config.QueryLanguage,
		neighbourFactor: 5,
		httpClient:      &http.Client{Timeout: timeout},
		limiter:         rate.NewLimiter(rate.Inf, 1),
	}
	if interval := config.GetRateLimit(); interval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}

	for _, opt := range opts {
		opt(c)
	}

	if config.AAD.Enabled() {
		c.httpClient = NewAADHTTPClient(ctx, config.AAD, timeout)
		c.apiKey = ""
	}

	return c
}

// APIError represents a non-success response from the search service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("search API error: %s (status %d)", e.Message, e.StatusCode)
}

type vectorQuery struct {
	Kind   string `json:"kind"`
	Text   string `json:"text"`
	K      int    `json:"k"`
	Fields string `json:"fields"`
}

type searchBody struct {
	Search                string        `json:"search"`
	Top                   int           `json:"top"`
	Select                string        `json:"select"`
	QueryType             string        `json:"queryType"`
	SemanticConfiguration string        `json:"semanticConfiguration"`
	QueryLanguage         string        `json:"queryLanguage,omitempty"`
	VectorQueries         []vectorQuery `json:"vectorQueries"`
}

type searchResponse struct {
	Value []interfaces.SearchHit `json:"value"`
}

// Search runs one query and returns at most req.Top hits, best first.
func (c *Client) Search(ctx context.Context, req interfaces.SearchRequest) ([]interfaces.SearchHit, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(searchBody{
		Search:                req.Query,
		Top:                   req.Top,
		Select:                selectFields,
		QueryType:             "semantic",
		SemanticConfiguration: c.semanticConfig,
		QueryLanguage:         c.language,
		VectorQueries: []vectorQuery{{
			Kind:   "text",
			Text:   req.Query,
			K:      req.Top * c.neighbourFactor,
			Fields: c.vectorField,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search body: %w", err)
	}

	reqURL := fmt.Sprintf("%s/indexes/%s/docs/search?%s",
		c.endpoint, url.PathEscape(c.index), url.Values{"api-version": {c.apiVersion}}.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("api-key", c.apiKey)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("index", c.index).
			Str("query", req.Query).
			Int("top", req.Top).
			Msg("Search request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(parsed.Value) > req.Top {
		parsed.Value = parsed.Value[:req.Top]
	}
	return parsed.Value, nil
}
