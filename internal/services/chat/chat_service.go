package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/agents"
	"github.com/ternarybob/quarry/internal/services/llm"
	"github.com/ternarybob/quarry/internal/services/retrieval"
)

// Service runs research conversations. Every call owns a fresh session:
// its own figure cache, team and orchestrator. Only configuration and the
// model and search clients are shared between sessions.
type Service struct {
	config    *common.Config
	clients   *llm.RoleClients
	retrieval *retrieval.Service
	events    interfaces.EventService
	audit     interfaces.AuditStorage
	validate  *validator.Validate
	logger    arbor.ILogger
}

// ServiceOption configures optional collaborators
type ServiceOption func(*Service)

// WithEventService publishes lifecycle events to the bus
func WithEventService(events interfaces.EventService) ServiceOption {
	return func(s *Service) {
		s.events = events
	}
}

// WithAuditStorage records every finished conversation
func WithAuditStorage(audit interfaces.AuditStorage) ServiceOption {
	return func(s *Service) {
		s.audit = audit
	}
}

// NewService creates the research service
func NewService(config *common.Config, clients *llm.RoleClients, retrievalService *retrieval.Service, logger arbor.ILogger, opts ...ServiceOption) *Service {
	s := &Service{
		config:    config,
		clients:   clients,
		retrieval: retrievalService,
		validate:  validator.New(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Starters returns the suggested opening questions
func (s *Service) Starters() []string {
	if len(s.config.Chat.Starters) == 0 {
		return common.DefaultStarters
	}
	return s.config.Chat.Starters
}

// Research runs one conversation, passing presentation events to emit in
// arrival order.
//
// A cancelled ctx returns ctx.Err() and emits nothing further. A backend
// failure emits an error event followed by the terminated event and is
// returned alongside the partial result.
func (s *Service) Research(ctx context.Context, req interfaces.ResearchRequest, emit interfaces.EmitFunc) (*interfaces.ResearchResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidRequest, err)
	}
	mode, err := s.resolveMode(req.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidRequest, err)
	}

	sessionID := uuid.NewString()
	started := time.Now()
	logger := s.logger.WithCorrelationId(sessionID)

	if timeout := s.config.Chat.GetTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cache := retrieval.NewFigureCache()
	publisher := NewPublisher(sessionID, mode, cache, emit, logger)

	record := &models.ConversationRecord{
		SessionID: sessionID,
		Mode:      mode,
		Query:     req.Query,
		StartedAt: started,
	}
	announced := *record
	s.publish(ctx, interfaces.EventConversationStarted, &announced)

	logger.Info().
		Str("mode", string(mode)).
		Str("query", req.Query).
		Msg("Conversation started")

	team := NewTeam(TeamConfig{
		Mode:      mode,
		Research:  s.clients.Research,
		Answer:    s.clients.Answer,
		Retrieval: s.retrieval,
		Cache:     cache,
		Limits:    s.config.Retrieval,
		Chat:      s.config.Chat,
		Options:   s.options(),
		Observe: func(outcome retrieval.Outcome) {
			s.publish(ctx, interfaces.EventRetrievalCompleted, &interfaces.RetrievalStats{
				SessionID: sessionID,
				Queries:   outcome.Queries,
				Hits:      outcome.Hits,
				Accepted:  outcome.Accepted,
				Rejected:  outcome.Rejected,
				Figures:   outcome.Figures,
			})
		},
		Logger: logger,
	})

	orchestrator := NewOrchestrator(team, logger)
	orchestrator.OnTurn(func(participant string, messages int) {
		s.publish(ctx, interfaces.EventTurnCompleted, &interfaces.TurnStats{
			SessionID:   sessionID,
			Participant: participant,
			Messages:    messages,
		})
	})

	outcome, runErr := orchestrator.Run(ctx, req.Query, publisher.Observe)

	fillRecord(record, outcome, cache)
	record.Duration = time.Since(started)

	if runErr != nil {
		record.StopReason = StopCancelled
		record.Error = runErr.Error()
		s.finish(ctx, record)
		return nil, runErr
	}

	if outcome.Err != nil {
		record.Error = outcome.Err.Error()
		if err := publisher.Error(outcome.Err); err != nil {
			logger.Warn().Err(err).Msg("Failed to emit error event")
		}
	}
	if err := publisher.Terminated(outcome.StopReason); err != nil {
		logger.Warn().Err(err).Msg("Failed to emit terminated event")
	}
	s.finish(ctx, record)

	result := &interfaces.ResearchResult{
		SessionID:  sessionID,
		Mode:       mode,
		StopReason: outcome.StopReason,
		Messages:   models.CountMessages(outcome.History),
	}
	if answer, ok := publisher.Answer(); ok {
		result.Answer = answer.Text
		result.Figures = answer.Figures
	}

	logger.Info().
		Str("stop_reason", result.StopReason).
		Int("messages", result.Messages).
		Int("figures", len(result.Figures)).
		Dur("duration", record.Duration).
		Msg("Conversation finished")

	return result, outcome.Err
}

func (s *Service) resolveMode(raw models.Mode) (models.Mode, error) {
	if raw != "" {
		return models.ParseMode(string(raw))
	}
	if s.config.Chat.DefaultMode == "" {
		return models.ModeSinglePass, nil
	}
	return models.ParseMode(s.config.Chat.DefaultMode)
}

// options picks the sampling settings of the configured default provider
func (s *Service) options() agents.Options {
	switch s.config.LLM.DefaultProvider {
	case common.LLMProviderClaude:
		return agents.Options{Temperature: s.config.Claude.Temperature, MaxTokens: s.config.Claude.MaxTokens}
	case common.LLMProviderAzureOpenAI:
		return agents.Options{Temperature: s.config.AzureOpenAI.Temperature}
	default:
		return agents.Options{Temperature: s.config.Gemini.Temperature}
	}
}

// finish stores the audit record and announces the end of the conversation.
// Both outlive the session context.
func (s *Service) finish(ctx context.Context, record *models.ConversationRecord) {
	ctx = context.WithoutCancel(ctx)

	if s.audit != nil && s.config.Storage.Badger.Audit {
		if err := s.audit.SaveConversation(ctx, record); err != nil {
			s.logger.Warn().Err(err).Str("session_id", record.SessionID).Msg("Failed to save conversation record")
		}
	}
	s.publish(ctx, interfaces.EventConversationTerminated, record)
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, payload interface{}) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(context.WithoutCancel(ctx), interfaces.Event{Type: eventType, Payload: payload})
	if err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish event")
	}
}

// fillRecord copies what the audit log keeps from a finished conversation
func fillRecord(record *models.ConversationRecord, outcome *Outcome, cache *retrieval.FigureCache) {
	if outcome == nil {
		return
	}
	record.StopReason = outcome.StopReason
	record.MessageCount = models.CountMessages(outcome.History)
	record.FigureCount = cache.Len()

	spoken := make(map[string]bool)
	seen := make(map[string]bool)
	for _, msg := range outcome.History {
		if msg.IsDelta() || msg.Source == models.SourceUser {
			continue
		}
		if !spoken[msg.Source] {
			spoken[msg.Source] = true
			record.Speakers = append(record.Speakers, msg.Source)
		}
		for _, result := range msg.ToolResults {
			rs, err := retrieval.DecodeResultSet(result.Content)
			if err != nil {
				continue
			}
			for _, id := range rs.IDs() {
				if !seen[id] {
					seen[id] = true
					record.PassageIDs = append(record.PassageIDs, id)
				}
			}
		}
	}
}

var _ interfaces.ResearchService = (*Service)(nil)
