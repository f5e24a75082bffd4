// Package transcript is the reference presentation adapter: it folds the
// presentation event stream into a user-facing Markdown transcript.
package transcript

import (
	"fmt"
	"strings"

	"github.com/ternarybob/quarry/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Entry is one displayed message
type Entry struct {
	Author  string                 `json:"author"`
	Content string                 `json:"content"`
	Figures []models.FigurePayload `json:"figures,omitempty"`
	// Streaming is true while an answer is still arriving
	Streaming bool `json:"streaming,omitempty"`
}

// Transcript is the rendered conversation
type Transcript struct {
	SessionID  string      `json:"session_id"`
	Mode       models.Mode `json:"mode"`
	Query      string      `json:"query"`
	Entries    []Entry     `json:"entries"`
	StopReason string      `json:"stop_reason,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Renderer applies events in arrival order. It is not safe for concurrent use.
type Renderer struct {
	transcript Transcript
	streaming  map[string]int // source -> index of its open entry
}

// NewRenderer creates a renderer for one conversation. mode may be empty or
// an alias; the resolved mode carried by events takes precedence.
func NewRenderer(mode models.Mode, query string) *Renderer {
	if parsed, err := models.ParseMode(string(mode)); err == nil {
		mode = parsed
	}
	return &Renderer{
		transcript: Transcript{Mode: mode, Query: query},
		streaming:  make(map[string]int),
	}
}

var titleCaser = cases.Title(language.English)

// AuthorLabel turns a participant name into a display name (answer_agent -> Answer Agent)
func AuthorLabel(source string) string {
	return titleCaser.String(strings.ReplaceAll(source, "_", " "))
}

func (r *Renderer) heading(author string) string {
	return fmt.Sprintf("**%s (%s):**\n\n", author, r.transcript.Mode.Label())
}

// Apply folds one event into the transcript
func (r *Renderer) Apply(event models.Event) {
	if r.transcript.SessionID == "" {
		r.transcript.SessionID = event.SessionID
	}
	if event.Mode != "" {
		r.transcript.Mode = event.Mode
	}

	switch event.Type {
	case models.EventToolCallRequested:
		r.add(Entry{
			Author:  "Research Agent",
			Content: r.heading("Research Agent") + fmt.Sprintf("Searching AI Search with: *'%s'*", strings.Join(event.Queries, ", ")),
		})

	case models.EventToolCallCompleted:
		var b strings.Builder
		b.WriteString(r.heading("Research Agent"))
		b.WriteString("Retrieved the following information:")
		for _, passage := range event.Passages {
			fmt.Fprintf(&b, "\n\n %s... ", Preview(passage.Text, PreviewLength))
		}
		r.add(Entry{Author: "Research Agent", Content: b.String(), Figures: event.Figures})

	case models.EventStreamingDelta:
		idx, ok := r.streaming[event.Source]
		if !ok {
			author := AuthorLabel(event.Source)
			idx = r.add(Entry{Author: author, Content: r.heading(author), Streaming: true})
			r.streaming[event.Source] = idx
		}
		r.transcript.Entries[idx].Content += event.Text

	case models.EventMessageComplete:
		author := AuthorLabel(event.Source)
		entry := Entry{Author: author, Content: r.heading(author) + event.Text, Figures: event.Figures}
		if idx, ok := r.streaming[event.Source]; ok {
			delete(r.streaming, event.Source)
			r.transcript.Entries[idx] = entry
		} else {
			r.add(entry)
		}

	case models.EventError:
		r.transcript.Error = event.Error
		r.add(Entry{Author: "Error", Content: "**Error:** " + event.Error})

	case models.EventTerminated:
		r.transcript.StopReason = event.StopReason
	}
}

func (r *Renderer) add(entry Entry) int {
	r.transcript.Entries = append(r.transcript.Entries, entry)
	return len(r.transcript.Entries) - 1
}

// Transcript returns a copy of the current transcript
func (r *Renderer) Transcript() *Transcript {
	t := r.transcript
	t.Entries = append([]Entry(nil), r.transcript.Entries...)
	return &t
}

// Markdown renders the transcript as one document. Figures are listed by
// name after the entry that carries them.
func (t *Transcript) Markdown() string {
	var b strings.Builder
	if t.Query != "" {
		fmt.Fprintf(&b, "# %s\n\n", t.Query)
	}
	for i, entry := range t.Entries {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		b.WriteString(entry.Content)
		for _, figure := range entry.Figures {
			fmt.Fprintf(&b, "\n\n*%s*", figure.Name())
			if figure.Description != "" {
				fmt.Fprintf(&b, ": %s", figure.Description)
			}
		}
	}
	b.WriteString("\n")
	return b.String()
}
