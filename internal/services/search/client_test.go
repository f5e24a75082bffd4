package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
)

func testConfig(endpoint string) common.SearchConfig {
	cfg := common.NewDefaultConfig().Search
	cfg.Endpoint = endpoint
	cfg.APIKey = "secret"
	cfg.Timeout = "5s"
	return cfg
}

func TestClient_Search(t *testing.T) {
	var captured searchBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/indexes/image-processing-index/docs/search", r.URL.Path)
		assert.Equal(t, "2024-07-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":[
			{"ChunkId":"c1","Title":"Report","Chunk":"Body","@search.rerankerScore":3.1,
			 "ChunkFigures":[{"FigureId":"f1","Data":"aGVsbG8=","Description":"chart"}]},
			{"ChunkId":"c2","Title":"Report","Chunk":"More","@search.rerankerScore":2.0},
			{"ChunkId":"c3","Title":"Extra","Chunk":"x","@search.rerankerScore":1.0}
		]}`))
	}))
	defer server.Close()

	client := NewClient(context.Background(), testConfig(server.URL), WithNeighbourFactor(5))
	hits, err := client.Search(context.Background(), interfaces.SearchRequest{Query: "innovation", Top: 2})
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "c1", hits[0].ChunkID)
	assert.InDelta(t, 3.1, hits[0].RerankerScore, 0.0001)
	require.Len(t, hits[0].Figures, 1)
	assert.Equal(t, "f1", hits[0].Figures[0].FigureID)

	assert.Equal(t, "innovation", captured.Search)
	assert.Equal(t, 2, captured.Top)
	assert.Equal(t, "semantic", captured.QueryType)
	assert.Equal(t, selectFields, captured.Select)
	require.Len(t, captured.VectorQueries, 1)
	assert.Equal(t, 10, captured.VectorQueries[0].K)
	assert.Equal(t, "ChunkEmbedding", captured.VectorQueries[0].Fields)
}

func TestClient_SearchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index missing", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(context.Background(), testConfig(server.URL))
	_, err := client.Search(context.Background(), interfaces.SearchRequest{Query: "q", Top: 1})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "index missing")
}

func TestClient_SearchHonoursContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewClient(context.Background(), testConfig(server.URL))
	_, err := client.Search(ctx, interfaces.SearchRequest{Query: "q", Top: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewBackend(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Search.Endpoint = "https://example.search.windows.net/"

	backend := NewBackend(context.Background(), config, arbor.NewLogger())
	client, ok := backend.(*Client)
	require.True(t, ok)
	assert.Equal(t, "https://example.search.windows.net", client.endpoint)
	assert.Equal(t, config.Retrieval.NeighbourFactor, client.neighbourFactor)
}
