package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/quarry/internal/models"
)

func TestAuthorLabel(t *testing.T) {
	assert.Equal(t, "Answer Agent", AuthorLabel(models.ParticipantAnswerer))
	assert.Equal(t, "Revise Answer Agent", AuthorLabel(models.ParticipantReviseAnswerer))
	assert.Equal(t, "Research Agent", AuthorLabel(models.ParticipantResearcher))
}

func TestRenderer_ToolCallNotice(t *testing.T) {
	r := NewRenderer(models.ModeIterative, "q")
	r.Apply(models.Event{Type: models.EventToolCallRequested, Source: models.ParticipantResearcher, Queries: []string{"a", "b"}})

	entries := r.Transcript().Entries
	require.Len(t, entries, 1)
	assert.Equal(t, "**Research Agent (RAT Agent):**\n\nSearching AI Search with: *'a, b'*", entries[0].Content)
}

func TestRenderer_ModeFromEvents(t *testing.T) {
	tests := []struct {
		name      string
		requested models.Mode
	}{
		{"empty", ""},
		{"alias", "rat"},
		{"other mode", models.ModeSinglePass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRenderer(tt.requested, "q")
			r.Apply(models.Event{Type: models.EventToolCallRequested, Mode: models.ModeIterative, Source: models.ParticipantResearcher, Queries: []string{"a"}})

			transcript := r.Transcript()
			assert.Equal(t, models.ModeIterative, transcript.Mode)
			assert.Contains(t, transcript.Entries[0].Content, "(RAT Agent)")
		})
	}
}

func TestNewRenderer_NormalisesAlias(t *testing.T) {
	r := NewRenderer("RAT Agent", "q")
	r.Apply(models.Event{Type: models.EventToolCallRequested, Source: models.ParticipantResearcher, Queries: []string{"a"}})
	assert.Equal(t, models.ModeIterative, r.Transcript().Mode)
	assert.Contains(t, r.Transcript().Entries[0].Content, "(RAT Agent)")
}

func TestRenderer_RetrievalNotice(t *testing.T) {
	figure := models.FigurePayload{PassageID: "c1", FigureID: "f1", MimeType: "image/png", Data: []byte("png")}
	r := NewRenderer(models.ModeSinglePass, "q")
	r.Apply(models.Event{
		Type: models.EventToolCallCompleted,
		Passages: []models.ResolvedPassage{
			{ID: "c1", Title: "Innovation", Text: "**R&D** spend rose.\nSee chart.", Figures: []models.FigurePayload{figure}},
		},
		Figures: []models.FigurePayload{figure},
	})

	entries := r.Transcript().Entries
	require.Len(t, entries, 1)
	assert.Equal(t,
		"**Research Agent (RAG Agent):**\n\nRetrieved the following information:\n\n R&D spend rose. See chart.... ",
		entries[0].Content)
	assert.Len(t, entries[0].Figures, 1)
}

func TestRenderer_StreamingReplacedByFinalMessage(t *testing.T) {
	r := NewRenderer(models.ModeSinglePass, "q")
	r.Apply(models.Event{Type: models.EventStreamingDelta, Source: models.ParticipantAnswerer, Text: "Hello "})
	r.Apply(models.Event{Type: models.EventStreamingDelta, Source: models.ParticipantAnswerer, Text: "world"})

	entries := r.Transcript().Entries
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Streaming)
	assert.Equal(t, "**Answer Agent (RAG Agent):**\n\nHello world", entries[0].Content)

	figure := models.FigurePayload{PassageID: "c1", FigureID: "f1"}
	r.Apply(models.Event{
		Type:    models.EventMessageComplete,
		Source:  models.ParticipantAnswerer,
		Text:    "Hello world, resolved.",
		Figures: []models.FigurePayload{figure},
	})
	r.Apply(models.Event{Type: models.EventTerminated, StopReason: "source_match"})

	tr := r.Transcript()
	require.Len(t, tr.Entries, 1)
	assert.False(t, tr.Entries[0].Streaming)
	assert.Equal(t, "**Answer Agent (RAG Agent):**\n\nHello world, resolved.", tr.Entries[0].Content)
	assert.Equal(t, []models.FigurePayload{figure}, tr.Entries[0].Figures)
	assert.Equal(t, "source_match", tr.StopReason)
}

func TestRenderer_UnstreamedMessage(t *testing.T) {
	r := NewRenderer(models.ModeIterative, "q")
	r.Apply(models.Event{Type: models.EventMessageComplete, Source: models.ParticipantReviseAnswerer, Text: "final"})

	entries := r.Transcript().Entries
	require.Len(t, entries, 1)
	assert.Equal(t, "Revise Answer Agent", entries[0].Author)
	assert.Equal(t, "**Revise Answer Agent (RAT Agent):**\n\nfinal", entries[0].Content)
}

func TestRenderer_Error(t *testing.T) {
	r := NewRenderer(models.ModeSinglePass, "q")
	r.Apply(models.Event{SessionID: "s1", Type: models.EventError, Error: "search backend timed out"})
	r.Apply(models.Event{Type: models.EventTerminated, StopReason: "error"})

	tr := r.Transcript()
	assert.Equal(t, "s1", tr.SessionID)
	assert.Equal(t, "search backend timed out", tr.Error)
	assert.Equal(t, "error", tr.StopReason)
	require.Len(t, tr.Entries, 1)
	assert.Contains(t, tr.Entries[0].Content, "search backend timed out")
}

func TestTranscript_Markdown(t *testing.T) {
	r := NewRenderer(models.ModeSinglePass, "How is the company innovating?")
	r.Apply(models.Event{Type: models.EventToolCallRequested, Queries: []string{"innovation approach"}})
	r.Apply(models.Event{
		Type:    models.EventMessageComplete,
		Source:  models.ParticipantAnswerer,
		Text:    "Answer.",
		Figures: []models.FigurePayload{{PassageID: "c1", FigureID: "f1", Description: "R&D spend"}},
	})

	md := r.Transcript().Markdown()
	assert.Contains(t, md, "# How is the company innovating?")
	assert.Contains(t, md, "Searching AI Search with: *'innovation approach'*")
	assert.Contains(t, md, "---")
	assert.Contains(t, md, "*Figure f1*: R&D spend")
}
