package retrieval

import (
	"github.com/gabriel-vasile/mimetype"
	"github.com/ternarybob/quarry/internal/models"
)

// FigureCache maps passage id -> figure id -> decoded figure. One instance is
// owned by each conversation session and is never shared across sessions.
//
// It is written only by the Retrieval Service and read only by the Figure
// Resolver, both on the session's own loop, so it carries no lock.
type FigureCache struct {
	figures map[string]map[string]models.FigurePayload
}

// NewFigureCache creates an empty cache
func NewFigureCache() *FigureCache {
	return &FigureCache{figures: make(map[string]map[string]models.FigurePayload)}
}

// Insert stores the figure unless (passageID, figure.ID) is already present.
// Returns false when an earlier entry was kept.
func (c *FigureCache) Insert(passageID string, figure models.Figure) bool {
	byFigure, ok := c.figures[passageID]
	if !ok {
		byFigure = make(map[string]models.FigurePayload)
		c.figures[passageID] = byFigure
	}
	if _, exists := byFigure[figure.ID]; exists {
		return false
	}

	byFigure[figure.ID] = models.FigurePayload{
		PassageID:   passageID,
		FigureID:    figure.ID,
		MimeType:    mimetype.Detect(figure.Data).String(),
		Data:        figure.Data,
		Description: figure.Description,
	}
	return true
}

// Lookup returns the cached figure for the pair
func (c *FigureCache) Lookup(passageID, figureID string) (models.FigurePayload, bool) {
	byFigure, ok := c.figures[passageID]
	if !ok {
		return models.FigurePayload{}, false
	}
	payload, ok := byFigure[figureID]
	return payload, ok
}

// Len returns the total number of cached figures
func (c *FigureCache) Len() int {
	n := 0
	for _, byFigure := range c.figures {
		n += len(byFigure)
	}
	return n
}
