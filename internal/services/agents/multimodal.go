package agents

import (
	"context"
	"fmt"

	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/figures"
	"github.com/ternarybob/quarry/internal/services/retrieval"
)

// figureParticipant replaces search results in the history it hands to the
// wrapped participant with multimodal messages carrying the figures inline.
type figureParticipant struct {
	Participant
	cache figures.Source
}

// WithFigures decorates p so that it sees retrieved figures as images. Model
// interfaces accept images in user messages but not in tool results, so each
// search result is rewritten before p is invoked. The shared history is never
// modified.
func WithFigures(p Participant, cache figures.Source) Participant {
	return &figureParticipant{Participant: p, cache: cache}
}

func (f *figureParticipant) Respond(ctx context.Context, history []models.Message, emit EmitFunc) error {
	prepared, err := ExpandFigures(history, f.cache)
	if err != nil {
		return err
	}
	return f.Participant.Respond(ctx, prepared, emit)
}

// ExpandFigures returns a copy of history in which every search result is
// replaced by a multimodal message: each passage's text with figure markup
// removed, followed by its resolved figures. The same input always yields
// the same output. A result that cannot be decoded is a hard error.
func ExpandFigures(history []models.Message, cache figures.Source) ([]models.Message, error) {
	out := make([]models.Message, 0, len(history))
	for _, msg := range history {
		if msg.Type != models.MessageToolCallResult {
			out = append(out, msg)
			continue
		}

		var parts []models.ContentPart
		for _, result := range msg.ToolResults {
			if result.Name != retrieval.ToolName {
				parts = append(parts, models.ContentPart{Text: result.Content})
				continue
			}
			rs, err := retrieval.DecodeResultSet(result.Content)
			if err != nil {
				return nil, err
			}
			parts = append(parts, passageParts(rs, cache)...)
		}

		if len(parts) == 0 {
			out = append(out, msg)
			continue
		}

		out = append(out, models.Message{
			ID:        msg.ID,
			Source:    msg.Source,
			Type:      models.MessageMultiModal,
			Parts:     parts,
			CreatedAt: msg.CreatedAt,
		})
	}
	return out, nil
}

func passageParts(rs *models.ResultSet, cache figures.Source) []models.ContentPart {
	var parts []models.ContentPart
	for _, passage := range rs.Passages() {
		cleaned, resolved := figures.Resolve(cache, passage.Body, passage.ID)
		parts = append(parts, models.ContentPart{
			Text: fmt.Sprintf("Chunk ID: %s\nTitle: %s\n%s", passage.ID, passage.Title, cleaned),
		})
		for i := range resolved {
			figure := resolved[i]
			label := figures.Placeholder(figure.PassageID, figure.FigureID)
			if figure.Description != "" {
				label += " " + figure.Description
			}
			parts = append(parts,
				models.ContentPart{Text: label},
				models.ContentPart{Figure: &figure},
			)
		}
	}
	return parts
}
