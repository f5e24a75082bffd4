// Package llmtest provides a scripted model client for tests.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

// ErrScriptExhausted is returned when Complete is called more often than scripted
var ErrScriptExhausted = errors.New("no scripted turn left")

// Turn is the scripted outcome of one Complete call
type Turn struct {
	Fragments []string // streamed in order before returning
	Text      string   // final text; defaults to the joined fragments
	ToolCalls []models.ToolCall
	Err       error
	Block     bool // wait for the context to end instead of answering
}

// ScriptedClient replays turns in order and records every request
type ScriptedClient struct {
	mu       sync.Mutex
	name     string
	turns    []Turn
	requests []*interfaces.ModelRequest
}

// New creates a scripted client
func New(name string, turns ...Turn) *ScriptedClient {
	return &ScriptedClient{name: name, turns: turns}
}

func (c *ScriptedClient) Name() string { return c.name }

// Complete replays the next turn
func (c *ScriptedClient) Complete(ctx context.Context, req *interfaces.ModelRequest, onDelta interfaces.DeltaFunc) (*interfaces.Completion, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	if len(c.turns) == 0 {
		c.mu.Unlock()
		return nil, ErrScriptExhausted
	}
	turn := c.turns[0]
	c.turns = c.turns[1:]
	c.mu.Unlock()

	if turn.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	for _, fragment := range turn.Fragments {
		if onDelta == nil {
			continue
		}
		if err := onDelta(fragment); err != nil {
			return nil, err
		}
	}
	if turn.Err != nil {
		return nil, turn.Err
	}

	text := turn.Text
	if text == "" {
		text = strings.Join(turn.Fragments, "")
	}
	return &interfaces.Completion{
		Text:      text,
		ToolCalls: turn.ToolCalls,
		Provider:  "scripted",
		Model:     c.name,
	}, nil
}

// Requests returns the requests received so far
func (c *ScriptedClient) Requests() []*interfaces.ModelRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*interfaces.ModelRequest(nil), c.requests...)
}

// SearchCall builds a search_index call with the single-term argument form
func SearchCall(id, term string) models.ToolCall {
	return models.ToolCall{
		ID:        id,
		Name:      "search_index",
		Arguments: `{"search_term":` + quote(term) + `}`,
	}
}

// MultiSearchCall builds a search_index call with the list argument form
func MultiSearchCall(id string, terms ...string) models.ToolCall {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = quote(t)
	}
	return models.ToolCall{
		ID:        id,
		Name:      "search_index",
		Arguments: `{"search_terms":[` + strings.Join(quoted, ",") + `]}`,
	}
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
