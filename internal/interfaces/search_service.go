package interfaces

import "context"

// SearchRequest is one ranked semantic+vector query against the index
type SearchRequest struct {
	Query string
	Top   int
}

// SearchFigure is a figure attached to a hit, still in transport encoding
type SearchFigure struct {
	FigureID    string `json:"FigureId"`
	Data        string `json:"Data"`
	Description string `json:"Description,omitempty"`
}

// SearchHit is one ranked hit returned by the backend
type SearchHit struct {
	ChunkID       string         `json:"ChunkId"`
	Title         string         `json:"Title"`
	Chunk         string         `json:"Chunk"`
	RerankerScore float64        `json:"@search.rerankerScore"`
	Figures       []SearchFigure `json:"ChunkFigures,omitempty"`
}

// SearchBackend is the external ranked-retrieval service
type SearchBackend interface {
	Search(ctx context.Context, req SearchRequest) ([]SearchHit, error)
}
