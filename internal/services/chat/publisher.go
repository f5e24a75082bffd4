package chat

import (
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
	"github.com/ternarybob/quarry/internal/services/figures"
	"github.com/ternarybob/quarry/internal/services/retrieval"
)

// Publisher converts history messages into presentation events. Figure
// markup is scrubbed from deltas and resolved in tool results and final
// messages, so no event carries raw placeholders.
type Publisher struct {
	sessionID string
	mode      models.Mode
	cache     figures.Source
	emit      interfaces.EmitFunc
	logger    arbor.ILogger

	seq       int
	scrubbers map[string]*figures.Scrubber
	answer    *models.Event
}

// NewPublisher creates a publisher for one session. emit may be nil.
func NewPublisher(sessionID string, mode models.Mode, cache figures.Source, emit interfaces.EmitFunc, logger arbor.ILogger) *Publisher {
	return &Publisher{
		sessionID: sessionID,
		mode:      mode,
		cache:     cache,
		emit:      emit,
		logger:    logger,
		scrubbers: make(map[string]*figures.Scrubber),
	}
}

// Observe publishes the events for one history message
func (p *Publisher) Observe(msg models.Message) error {
	switch msg.Type {
	case models.MessageToolCallRequest:
		return p.toolCallRequested(msg)
	case models.MessageToolCallResult:
		return p.toolCallCompleted(msg)
	case models.MessageStreamingDelta:
		return p.streamingDelta(msg)
	case models.MessageText:
		if models.Answering(msg.Source) {
			return p.messageComplete(msg)
		}
	}
	return nil
}

func (p *Publisher) toolCallRequested(msg models.Message) error {
	for _, call := range msg.ToolCalls {
		if call.Name != retrieval.ToolName {
			continue
		}
		queries, err := retrieval.ParseSearchArguments(call.Arguments)
		if err != nil {
			p.logger.Debug().Err(err).Str("source", msg.Source).Msg("Skipping notice for malformed search call")
			continue
		}
		if err := p.send(models.Event{
			Type:    models.EventToolCallRequested,
			Source:  msg.Source,
			Queries: queries,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) toolCallCompleted(msg models.Message) error {
	for _, result := range msg.ToolResults {
		if result.Name != retrieval.ToolName || result.IsError {
			continue
		}
		rs, err := retrieval.DecodeResultSet(result.Content)
		if err != nil {
			return err
		}

		event := models.Event{
			Type:   models.EventToolCallCompleted,
			Source: msg.Source,
		}
		for _, passage := range rs.Passages() {
			text, figs := figures.Resolve(p.cache, passage.Body, passage.ID)
			event.Passages = append(event.Passages, models.ResolvedPassage{
				ID:      passage.ID,
				Title:   passage.Title,
				Text:    text,
				Figures: figs,
			})
			event.Figures = append(event.Figures, figs...)
		}
		if err := p.send(event); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) streamingDelta(msg models.Message) error {
	if !models.Answering(msg.Source) {
		return nil
	}
	text := p.scrubber(msg.Source).Push(msg.Content)
	if text == "" {
		return nil
	}
	return p.send(models.Event{
		Type:   models.EventStreamingDelta,
		Source: msg.Source,
		Text:   text,
	})
}

func (p *Publisher) messageComplete(msg models.Message) error {
	if scrubber, ok := p.scrubbers[msg.Source]; ok {
		delete(p.scrubbers, msg.Source)
		if tail := scrubber.Flush(); tail != "" {
			if err := p.send(models.Event{
				Type:   models.EventStreamingDelta,
				Source: msg.Source,
				Text:   tail,
			}); err != nil {
				return err
			}
		}
	}

	text, figs := figures.Resolve(p.cache, msg.Content, "")
	event := models.Event{
		Type:    models.EventMessageComplete,
		Source:  msg.Source,
		Text:    text,
		Figures: figs,
	}
	p.answer = &event
	return p.send(event)
}

// Error publishes a terminal failure
func (p *Publisher) Error(err error) error {
	return p.send(models.Event{
		Type:       models.EventError,
		StopReason: StopError,
		Error:      err.Error(),
	})
}

// Terminated publishes the end of the conversation
func (p *Publisher) Terminated(reason string) error {
	return p.send(models.Event{
		Type:       models.EventTerminated,
		StopReason: reason,
	})
}

// Answer returns the last completed answering message, if any
func (p *Publisher) Answer() (models.Event, bool) {
	if p.answer == nil {
		return models.Event{}, false
	}
	return *p.answer, true
}

// Published returns the number of events sent so far
func (p *Publisher) Published() int {
	return p.seq
}

func (p *Publisher) scrubber(source string) *figures.Scrubber {
	s, ok := p.scrubbers[source]
	if !ok {
		s = figures.NewScrubber()
		p.scrubbers[source] = s
	}
	return s
}

func (p *Publisher) send(event models.Event) error {
	p.seq++
	event.Seq = p.seq
	event.SessionID = p.sessionID
	event.Mode = p.mode
	event.Timestamp = time.Now()
	if p.emit == nil {
		return nil
	}
	return p.emit(event)
}
