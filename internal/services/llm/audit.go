package llm

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/interfaces"
)

// CallRecord describes one completed model call
type CallRecord struct {
	Client    string
	Duration  time.Duration
	Fragments int
	ToolCalls int
	Err       error
}

// CallObserver receives a record of every model call
type CallObserver func(CallRecord)

// auditedClient logs every call made through the wrapped client
type auditedClient struct {
	next     interfaces.ModelClient
	logger   arbor.ILogger
	observer CallObserver
}

func newAuditedClient(next interfaces.ModelClient, logger arbor.ILogger, observer CallObserver) interfaces.ModelClient {
	return &auditedClient{
		next:     next,
		logger:   logger,
		observer: observer,
	}
}

func (c *auditedClient) Name() string {
	return c.next.Name()
}

func (c *auditedClient) Complete(ctx context.Context, req *interfaces.ModelRequest, onDelta interfaces.DeltaFunc) (*interfaces.Completion, error) {
	record := CallRecord{Client: c.next.Name()}

	counted := onDelta
	if onDelta != nil {
		counted = func(fragment string) error {
			record.Fragments++
			return onDelta(fragment)
		}
	}

	start := time.Now()
	completion, err := c.next.Complete(ctx, req, counted)
	record.Duration = time.Since(start)
	record.Err = err
	if completion != nil {
		record.ToolCalls = len(completion.ToolCalls)
	}

	if err != nil {
		c.logger.Warn().
			Str("client", record.Client).
			Dur("duration", record.Duration).
			Err(err).
			Msg("Model call failed")
	} else {
		c.logger.Debug().
			Str("client", record.Client).
			Int("messages", len(req.Messages)).
			Int("tools", len(req.Tools)).
			Int("fragments", record.Fragments).
			Int("tool_calls", record.ToolCalls).
			Dur("duration", record.Duration).
			Msg("Model call completed")
	}

	if c.observer != nil {
		c.observer(record)
	}

	return completion, err
}
