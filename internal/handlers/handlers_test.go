package handlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

// fakeResearch replays a fixed event script
type fakeResearch struct {
	events []models.Event
	result *interfaces.ResearchResult
	err    error
	// block, when set, holds the conversation open until ctx is cancelled
	block   bool
	started chan struct{}
	once    sync.Once

	mu       sync.Mutex
	requests []interfaces.ResearchRequest
}

func (f *fakeResearch) Research(ctx context.Context, req interfaces.ResearchRequest, emit interfaces.EmitFunc) (*interfaces.ResearchResult, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("%w: query is required", interfaces.ErrInvalidRequest)
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	for _, event := range f.events {
		if err := emit(event); err != nil {
			return nil, err
		}
	}
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.result, f.err
}

func (f *fakeResearch) Starters() []string {
	return []string{"How is the company innovating?"}
}

func (f *fakeResearch) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func script() []models.Event {
	figure := models.FigurePayload{PassageID: "c1", FigureID: "f1", MimeType: "image/png", Data: []byte{1, 2, 3}, Description: "R&D chart"}
	return []models.Event{
		{Seq: 1, SessionID: "s1", Mode: models.ModeSinglePass, Type: models.EventToolCallRequested, Source: models.ParticipantResearcher, Queries: []string{"innovation approach"}},
		{Seq: 2, SessionID: "s1", Mode: models.ModeSinglePass, Type: models.EventToolCallCompleted, Source: models.ParticipantResearcher, Passages: []models.ResolvedPassage{{ID: "c1", Title: "Annual report", Text: "R&D spend rose. See chart.", Figures: []models.FigurePayload{figure}}}},
		{Seq: 3, SessionID: "s1", Mode: models.ModeSinglePass, Type: models.EventStreamingDelta, Source: models.ParticipantAnswerer, Text: "The company "},
		{Seq: 4, SessionID: "s1", Mode: models.ModeSinglePass, Type: models.EventMessageComplete, Source: models.ParticipantAnswerer, Text: "The company invests in R&D.", Figures: []models.FigurePayload{figure}},
		{Seq: 5, SessionID: "s1", Mode: models.ModeSinglePass, Type: models.EventTerminated, StopReason: "source_match"},
	}
}

func successResult() *interfaces.ResearchResult {
	return &interfaces.ResearchResult{
		SessionID:  "s1",
		Mode:       models.ModeSinglePass,
		StopReason: "source_match",
		Answer:     "The company invests in R&D.",
		Messages:   4,
	}
}

// memoryAudit is an in-memory audit store
type memoryAudit struct {
	records map[string]*models.ConversationRecord
}

func (m *memoryAudit) SaveConversation(ctx context.Context, record *models.ConversationRecord) error {
	m.records[record.SessionID] = record
	return nil
}

func (m *memoryAudit) GetConversation(ctx context.Context, sessionID string) (*models.ConversationRecord, error) {
	record, ok := m.records[sessionID]
	if !ok {
		return nil, interfaces.ErrConversationNotFound
	}
	return record, nil
}

func (m *memoryAudit) ListRecent(ctx context.Context, limit int) ([]*models.ConversationRecord, error) {
	var out []*models.ConversationRecord
	for _, record := range m.records {
		out = append(out, record)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryAudit) Close() error { return nil }
