package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
	"golang.org/x/sync/errgroup"
)

var errClosed = errors.New("event service is closed")

// Service is the in-process lifecycle event bus. Asynchronous deliveries are
// tracked so Close can wait for them to drain.
type Service struct {
	logger arbor.ILogger

	mu          sync.RWMutex
	subscribers map[interfaces.EventType][]interfaces.EventHandler
	closed      bool

	inflight sync.WaitGroup
}

// NewService creates a new event service
func NewService(logger arbor.ILogger) interfaces.EventService {
	return &Service{
		subscribers: make(map[interfaces.EventType][]interfaces.EventHandler),
		logger:      logger,
	}
}

// Subscribe registers a handler for an event type
func (s *Service) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	if handler == nil {
		return fmt.Errorf("handler for %s cannot be nil", eventType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	s.subscribers[eventType] = append(s.subscribers[eventType], handler)

	s.logger.Debug().
		Str("event_type", string(eventType)).
		Int("subscriber_count", len(s.subscribers[eventType])).
		Msg("Event handler subscribed")
	return nil
}

// snapshot returns the handlers for eventType and reserves n in-flight
// deliveries while still holding the lock, so Close cannot miss them
func (s *Service) snapshot(eventType interfaces.EventType, reserve bool) ([]interfaces.EventHandler, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	handlers := s.subscribers[eventType]
	if reserve {
		s.inflight.Add(len(handlers))
	}
	return handlers, nil
}

// Publish hands the event to every subscriber without waiting. Handler
// failures and panics are logged, never returned.
func (s *Service) Publish(ctx context.Context, event interfaces.Event) error {
	handlers, err := s.snapshot(event.Type, true)
	if err != nil {
		return err
	}

	for _, handler := range handlers {
		common.SafeGo(s.logger, "event:"+string(event.Type), func() {
			defer s.inflight.Done()
			s.deliver(ctx, handler, event)
		})
	}
	return nil
}

// PublishSync runs every subscriber concurrently and joins their errors
func (s *Service) PublishSync(ctx context.Context, event interfaces.Event) error {
	handlers, err := s.snapshot(event.Type, false)
	if err != nil {
		return err
	}

	errs := make([]error, len(handlers))
	var g errgroup.Group
	for i, handler := range handlers {
		g.Go(func() error {
			errs[i] = s.deliver(ctx, handler, event)
			return nil
		})
	}
	g.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s handlers failed: %w", event.Type, err)
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, handler interfaces.EventHandler, event interfaces.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("event_type", string(event.Type)).
				Msg("Event handler failed")
		}
	}()
	return handler(ctx, event)
}

// Close rejects further publishing, waits for in-flight deliveries and
// drops all subscribers
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.inflight.Wait()

	s.mu.Lock()
	s.subscribers = make(map[interfaces.EventType][]interfaces.EventHandler)
	s.mu.Unlock()

	s.logger.Info().Msg("Event service closed")
	return nil
}
