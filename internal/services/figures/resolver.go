package figures

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/quarry/internal/models"
)

// Source is read-only access to a session's figure cache
type Source interface {
	Lookup(passageID, figureID string) (models.FigurePayload, bool)
}

// Ref is one (passage id, figure id) pair extracted from placeholder markup
type Ref struct {
	PassageID string
	FigureID  string
}

var (
	// markupPattern matches a figure tag (opening or closing) or, for
	// implicit mode, a bare FigureId='..' attribute outside any tag.
	markupPattern = regexp.MustCompile(`(?i)</?figure\b[^>]*>|\bfigure_?id\s*=\s*(?:'[^']*'|"[^"]*")`)

	// attrPattern matches one quoted attribute. Attribute names are accepted
	// in snake_case and CamelCase (chunk_id / ChunkId, figure_id / FigureId).
	attrPattern = regexp.MustCompile(`(?i)\b(chunk_?id|figure_?id|id)\s*=\s*(?:'([^']*)'|"([^"]*)")`)
)

// Placeholder renders the canonical placeholder for a figure
func Placeholder(passageID, figureID string) string {
	return fmt.Sprintf("<figure chunk_id='%s' figure_id='%s'>", passageID, figureID)
}

// Extract returns the figure references in text, in order of appearance,
// without duplicates. With passageID empty (explicit mode) only tags naming
// both ids count; otherwise every figure id found is paired with passageID.
func Extract(text, passageID string) []Ref {
	refs, _ := scan(text, passageID)
	return refs
}

// Resolve strips all placeholder markup from text and returns the figures it
// references that are present in the cache, in placeholder order. References
// missing from the cache are dropped silently.
func Resolve(cache Source, text, passageID string) (string, []models.FigurePayload) {
	refs, cleaned := scan(text, passageID)

	var figures []models.FigurePayload
	if cache != nil {
		for _, ref := range refs {
			if payload, ok := cache.Lookup(ref.PassageID, ref.FigureID); ok {
				figures = append(figures, payload)
			}
		}
	}
	return cleaned, figures
}

// Strip removes placeholder markup without resolving anything
func Strip(text string) string {
	_, cleaned := scan(text, "")
	return cleaned
}

func scan(text, passageID string) ([]Ref, string) {
	implicit := passageID != ""
	seen := make(map[Ref]bool)
	var refs []Ref
	add := func(ref Ref) {
		if ref.PassageID == "" || ref.FigureID == "" || seen[ref] {
			return
		}
		seen[ref] = true
		refs = append(refs, ref)
	}

	var cleaned strings.Builder
	last := 0
	for _, loc := range markupPattern.FindAllStringIndex(text, -1) {
		match := text[loc[0]:loc[1]]
		isTag := strings.HasPrefix(match, "<")

		if !isTag && !implicit {
			// bare attributes are only placeholders when the passage is known
			continue
		}

		cleaned.WriteString(text[last:loc[0]])
		last = loc[1]

		chunkID, figureID := attributes(match)
		if implicit {
			add(Ref{PassageID: passageID, FigureID: figureID})
		} else {
			add(Ref{PassageID: chunkID, FigureID: figureID})
		}
	}
	cleaned.WriteString(text[last:])

	return refs, strings.TrimSpace(cleaned.String())
}

// attributes returns the chunk and figure ids named inside a tag. A plain
// id attribute is read as the figure id.
func attributes(markup string) (chunkID, figureID string) {
	var plainID string
	for _, m := range attrPattern.FindAllStringSubmatch(markup, -1) {
		value := m[2]
		if value == "" {
			value = m[3]
		}
		switch strings.ToLower(strings.ReplaceAll(m[1], "_", "")) {
		case "chunkid":
			chunkID = value
		case "figureid":
			figureID = value
		case "id":
			plainID = value
		}
	}
	if figureID == "" {
		figureID = plainID
	}
	return chunkID, figureID
}
