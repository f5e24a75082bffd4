package agents

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/llm/llmtest"
	"github.com/ternarybob/quarry/internal/services/retrieval"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n0000")

// staticBackend answers every query from a fixed table
type staticBackend struct {
	hits    map[string][]interfaces.SearchHit
	err     error
	queries []string
}

func (b *staticBackend) Search(ctx context.Context, req interfaces.SearchRequest) ([]interfaces.SearchHit, error) {
	b.queries = append(b.queries, req.Query)
	if b.err != nil {
		return nil, b.err
	}
	return b.hits[req.Query], nil
}

func innovationHit() interfaces.SearchHit {
	return interfaces.SearchHit{
		ChunkID:       "c1",
		Title:         "Innovation",
		Chunk:         "R&D spend rose. <figure FigureId='f1'> See chart.",
		RerankerScore: 3.0,
		Figures: []interfaces.SearchFigure{{
			FigureID:    "f1",
			Data:        base64.StdEncoding.EncodeToString(pngBytes),
			Description: "R&D spend",
		}},
	}
}

type recorder struct {
	messages []models.Message
	stopAt   int
}

func (r *recorder) emit(msg models.Message) error {
	r.messages = append(r.messages, msg)
	if r.stopAt > 0 && len(r.messages) >= r.stopAt {
		return errStop
	}
	return nil
}

var errStop = errors.New("stop")

func question(q string) []models.Message {
	return []models.Message{{Source: models.SourceUser, Type: models.MessageText, Content: q}}
}

func newTool(backend interfaces.SearchBackend, cache *retrieval.FigureCache, multi bool) *retrieval.SearchTool {
	service := retrieval.NewService(backend, common.NewDefaultConfig().Retrieval, arbor.NewLogger())
	return service.NewSearchTool(cache, 3, multi, nil)
}

func TestResearcher_EmitsRequestAndResult(t *testing.T) {
	backend := &staticBackend{hits: map[string][]interfaces.SearchHit{
		"innovation approach": {innovationHit()},
	}}
	cache := retrieval.NewFigureCache()
	client := llmtest.New("research", llmtest.Turn{
		ToolCalls: []models.ToolCall{llmtest.SearchCall("call-1", "innovation approach")},
	})
	r := NewResearcher(models.ParticipantResearcher, ResearcherPrompt, client, newTool(backend, cache, false), Options{}, arbor.NewLogger())

	rec := &recorder{}
	require.NoError(t, r.Respond(context.Background(), question("How is the company innovating?"), rec.emit))

	require.Len(t, rec.messages, 2)
	request := rec.messages[0]
	assert.Equal(t, models.MessageToolCallRequest, request.Type)
	assert.Equal(t, models.ParticipantResearcher, request.Source)
	require.Len(t, request.ToolCalls, 1)
	assert.Equal(t, "call-1", request.ToolCalls[0].ID)

	result := rec.messages[1]
	assert.Equal(t, models.MessageToolCallResult, result.Type)
	require.Len(t, result.ToolResults, 1)
	assert.Equal(t, "call-1", result.ToolResults[0].CallID)

	rs, err := retrieval.DecodeResultSet(result.ToolResults[0].Content)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, rs.IDs())

	_, ok := cache.Lookup("c1", "f1")
	assert.True(t, ok)

	reqs := client.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, retrieval.ToolName, reqs[0].Tools[0].Name)
	assert.Equal(t, ResearcherPrompt, reqs[0].System)
}

func TestResearcher_MalformedArgumentsFallBackToQuestion(t *testing.T) {
	backend := &staticBackend{}
	client := llmtest.New("research", llmtest.Turn{
		ToolCalls: []models.ToolCall{{ID: "bad", Name: retrieval.ToolName, Arguments: `{"search_term":`}},
	})
	r := NewResearcher(models.ParticipantResearcher, ResearcherPrompt, client, newTool(backend, retrieval.NewFigureCache(), false), Options{}, arbor.NewLogger())

	rec := &recorder{}
	require.NoError(t, r.Respond(context.Background(), question("What is the approach for sustainability?"), rec.emit))

	require.Len(t, rec.messages, 2)
	assert.Equal(t, `{"search_term":`, rec.messages[0].ToolCalls[0].Arguments)
	assert.Equal(t, []string{"What is the approach for sustainability?"}, backend.queries)
}

func TestResearcher_NoToolCallSynthesisesOne(t *testing.T) {
	backend := &staticBackend{}
	client := llmtest.New("research", llmtest.Turn{Text: "I already know the answer."})
	r := NewResearcher(models.ParticipantResearcher, BreadthResearcherPrompt, client, newTool(backend, retrieval.NewFigureCache(), true), Options{}, arbor.NewLogger())

	rec := &recorder{}
	require.NoError(t, r.Respond(context.Background(), question("q?"), rec.emit))

	call := rec.messages[0].ToolCalls[0]
	assert.NotEmpty(t, call.ID)
	queries, err := retrieval.ParseSearchArguments(call.Arguments)
	require.NoError(t, err)
	assert.Equal(t, []string{"q?"}, queries)
	assert.Contains(t, call.Arguments, retrieval.ArgSearchTerms)
}

func TestResearcher_BackendErrorIsReturned(t *testing.T) {
	backend := &staticBackend{err: errors.New("503")}
	client := llmtest.New("research", llmtest.Turn{
		ToolCalls: []models.ToolCall{llmtest.SearchCall("c", "x")},
	})
	r := NewResearcher(models.ParticipantResearcher, ResearcherPrompt, client, newTool(backend, retrieval.NewFigureCache(), false), Options{}, arbor.NewLogger())

	rec := &recorder{}
	err := r.Respond(context.Background(), question("q"), rec.emit)

	var backendErr *models.RetrievalBackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Len(t, rec.messages, 1)
}

func TestResearcher_StopsWhenEmitFails(t *testing.T) {
	backend := &staticBackend{}
	client := llmtest.New("research", llmtest.Turn{
		ToolCalls: []models.ToolCall{llmtest.SearchCall("c", "x")},
	})
	r := NewResearcher(models.ParticipantResearcher, ResearcherPrompt, client, newTool(backend, retrieval.NewFigureCache(), false), Options{}, arbor.NewLogger())

	rec := &recorder{stopAt: 1}
	err := r.Respond(context.Background(), question("q"), rec.emit)
	assert.Same(t, errStop, err)
	assert.Empty(t, backend.queries)
}

func TestAnswerer_StreamsThenCompletes(t *testing.T) {
	client := llmtest.New("answer", llmtest.Turn{Fragments: []string{"Growth ", "was strong."}})
	a := NewAnswerer(models.ParticipantAnswerer, "An agent that can answer questions.", AnswererPrompt, client, Options{Temperature: 0.2})

	rec := &recorder{}
	require.NoError(t, a.Respond(context.Background(), question("q"), rec.emit))

	require.Len(t, rec.messages, 3)
	assert.Equal(t, models.MessageStreamingDelta, rec.messages[0].Type)
	assert.Equal(t, "Growth ", rec.messages[0].Content)
	assert.Equal(t, models.MessageStreamingDelta, rec.messages[1].Type)
	assert.Equal(t, models.MessageText, rec.messages[2].Type)
	assert.Equal(t, "Growth was strong.", rec.messages[2].Content)
	assert.Equal(t, float32(0.2), client.Requests()[0].Temperature)
}

func TestAnswerer_StopDuringStream(t *testing.T) {
	client := llmtest.New("answer", llmtest.Turn{Fragments: []string{"a", "b", "c"}})
	a := NewAnswerer(models.ParticipantAnswerer, "", AnswererPrompt, client, Options{})

	rec := &recorder{stopAt: 2}
	err := a.Respond(context.Background(), question("q"), rec.emit)
	assert.Same(t, errStop, err)
	assert.Len(t, rec.messages, 2)
}

func searchResultHistory(t *testing.T) ([]models.Message, *retrieval.FigureCache) {
	t.Helper()
	cache := retrieval.NewFigureCache()
	rs := models.NewResultSet()
	hit := innovationHit()
	rs.Add(models.Passage{ID: hit.ChunkID, Title: hit.Title, Body: hit.Chunk, Figures: []models.Figure{{ID: "f1", Description: "R&D spend"}}})
	cache.Insert("c1", models.Figure{ID: "f1", Data: pngBytes, Description: "R&D spend"})

	content, err := retrieval.EncodeResultSet(rs)
	require.NoError(t, err)

	history := append(question("How is the company innovating?"),
		models.Message{Source: models.ParticipantResearcher, Type: models.MessageToolCallRequest,
			ToolCalls: []models.ToolCall{llmtest.SearchCall("call-1", "innovation approach")}},
		models.Message{Source: models.ParticipantResearcher, Type: models.MessageToolCallResult,
			ToolResults: []models.ToolResult{{CallID: "call-1", Name: retrieval.ToolName, Content: content}}},
	)
	return history, cache
}

func TestExpandFigures(t *testing.T) {
	history, cache := searchResultHistory(t)

	expanded, err := ExpandFigures(history, cache)
	require.NoError(t, err)
	require.Len(t, expanded, 3)

	mm := expanded[2]
	assert.Equal(t, models.MessageMultiModal, mm.Type)
	require.Len(t, mm.Parts, 3)
	assert.Contains(t, mm.Parts[0].Text, "Chunk ID: c1")
	assert.NotContains(t, mm.Parts[0].Text, "<figure")
	assert.Contains(t, mm.Parts[1].Text, "figure_id='f1'")
	require.NotNil(t, mm.Parts[2].Figure)
	assert.Equal(t, pngBytes, mm.Parts[2].Figure.Data)

	// shared history is untouched and expansion is repeatable
	assert.Equal(t, models.MessageToolCallResult, history[2].Type)
	again, err := ExpandFigures(history, cache)
	require.NoError(t, err)
	assert.Equal(t, expanded, again)
}

func TestExpandFigures_MalformedResultIsHardError(t *testing.T) {
	history := []models.Message{{
		Source:      models.ParticipantResearcher,
		Type:        models.MessageToolCallResult,
		ToolResults: []models.ToolResult{{Name: retrieval.ToolName, Content: "not json"}},
	}}

	_, err := ExpandFigures(history, retrieval.NewFigureCache())
	var malformed *models.MalformedToolResultError
	assert.ErrorAs(t, err, &malformed)
}

type captureParticipant struct {
	seen []models.Message
}

func (c *captureParticipant) Name() string        { return "capture" }
func (c *captureParticipant) Description() string { return "" }
func (c *captureParticipant) Respond(ctx context.Context, history []models.Message, emit EmitFunc) error {
	c.seen = history
	return nil
}

func TestWithFigures_InnerSeesMultimodalHistory(t *testing.T) {
	history, cache := searchResultHistory(t)
	inner := &captureParticipant{}

	p := WithFigures(inner, cache)
	assert.Equal(t, "capture", p.Name())
	require.NoError(t, p.Respond(context.Background(), history, func(models.Message) error { return nil }))

	require.Len(t, inner.seen, 3)
	assert.Equal(t, models.MessageMultiModal, inner.seen[2].Type)
}

func TestBuildModelMessages(t *testing.T) {
	history, cache := searchResultHistory(t)
	expanded, err := ExpandFigures(history, cache)
	require.NoError(t, err)
	expanded = append(expanded,
		models.Message{Source: models.ParticipantAnswerer, Type: models.MessageStreamingDelta, Content: "Gro"},
		models.Message{Source: models.ParticipantAnswerer, Type: models.MessageText, Content: "Growth."},
	)

	msgs := BuildModelMessages(expanded, models.ParticipantAnswerer)

	require.Len(t, msgs, 2)
	assert.Equal(t, interfaces.RoleUser, msgs[0].Role)
	assert.Equal(t, "How is the company innovating?", msgs[0].Parts[0].Text)
	assert.Contains(t, msgs[0].Parts[1].Text, "innovation approach")
	assert.Equal(t, interfaces.RoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].Parts, 1)
	assert.Equal(t, "Growth.", msgs[1].Parts[0].Text)

	var images int
	for _, part := range msgs[0].Parts {
		if part.Figure != nil {
			images++
		}
	}
	assert.Equal(t, 1, images)
}
