package main

import (
	"fmt"
	"strings"

	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/figures"
	"github.com/ternarybob/quarry/internal/services/retrieval"
	"github.com/ternarybob/quarry/internal/services/transcript"
)

// formatResultSet formats retrieved passages as markdown. Figures are listed
// by name and description; image data is not sent to the client.
func formatResultSet(queries []string, rs *models.ResultSet, cache *retrieval.FigureCache) string {
	passages := rs.Passages()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Search Results for \"%s\" (%d passages)\n\n", strings.Join(queries, ", "), len(passages)))

	if len(passages) == 0 {
		sb.WriteString("No passages passed the relevance threshold.\n")
		return sb.String()
	}

	for i, passage := range passages {
		text, figs := figures.Resolve(cache, passage.Body, passage.ID)
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, passage.Title))
		sb.WriteString(fmt.Sprintf("**Chunk:** %s\n\n", passage.ID))
		sb.WriteString(text)
		sb.WriteString("\n\n")
		for _, fig := range figs {
			sb.WriteString(fmt.Sprintf("*%s* (%s): %s\n", fig.Name(), fig.MimeType, fig.Description))
		}
		sb.WriteString("\n---\n\n")
	}

	return sb.String()
}

// formatResearch formats a finished conversation as markdown
func formatResearch(result *interfaces.ResearchResult, t *transcript.Transcript, err error) string {
	var sb strings.Builder
	sb.WriteString("## Answer\n\n")
	if result.Answer == "" {
		sb.WriteString("No answer was produced.\n\n")
	} else {
		sb.WriteString(result.Answer)
		sb.WriteString("\n\n")
	}
	sb.WriteString(fmt.Sprintf("**Mode:** %s\n", result.Mode.Label()))
	sb.WriteString(fmt.Sprintf("**Stop reason:** %s\n", result.StopReason))
	if err != nil {
		sb.WriteString(fmt.Sprintf("**Error:** %v\n", err))
	}
	sb.WriteString("\n### Transcript\n\n")
	sb.WriteString(t.Markdown())
	return sb.String()
}
