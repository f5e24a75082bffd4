package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/quarry/internal/models"
)

// ErrInvalidRequest wraps validation failures of a ResearchRequest
var ErrInvalidRequest = errors.New("invalid research request")

// EmitFunc receives presentation events in arrival order
type EmitFunc func(event models.Event) error

// ResearchRequest starts one conversation
type ResearchRequest struct {
	Query string      `json:"query" validate:"required,max=4000"`
	Mode  models.Mode `json:"mode" validate:"omitempty"` // parsed by models.ParseMode, aliases accepted
}

// ResearchResult summarises a finished conversation
type ResearchResult struct {
	SessionID  string                 `json:"session_id"`
	Mode       models.Mode            `json:"mode"`
	StopReason string                 `json:"stop_reason"`
	Answer     string                 `json:"answer"`
	Figures    []models.FigurePayload `json:"figures,omitempty"`
	Messages   int                    `json:"messages"`
}

// ResearchService runs conversations. Each call owns an independent session.
type ResearchService interface {
	Research(ctx context.Context, req ResearchRequest, emit EmitFunc) (*ResearchResult, error)
	Starters() []string
}
