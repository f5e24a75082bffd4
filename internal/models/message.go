package models

import "time"

// MessageType tags the payload carried by a history entry
type MessageType string

const (
	MessageText            MessageType = "text"
	MessageToolCallRequest MessageType = "tool_call_request"
	MessageToolCallResult  MessageType = "tool_call_result"
	MessageStreamingDelta  MessageType = "streaming_delta"
	MessageMultiModal      MessageType = "multimodal"
)

// ToolCall is a structured request emitted by a model-driven participant
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON as produced by the model
}

// ToolResult is the serialized outcome of executing a ToolCall
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// ContentPart is one element of a multimodal message: either text or a figure
type ContentPart struct {
	Text   string         `json:"text,omitempty"`
	Figure *FigurePayload `json:"figure,omitempty"`
}

// Message is one entry of the append-only conversation history
type Message struct {
	ID          string        `json:"id"`
	Source      string        `json:"source"`
	Type        MessageType   `json:"type"`
	Content     string        `json:"content,omitempty"`
	ToolCalls   []ToolCall    `json:"tool_calls,omitempty"`
	ToolResults []ToolResult  `json:"tool_results,omitempty"`
	Parts       []ContentPart `json:"parts,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// IsDelta reports whether the message is a streaming fragment.
// Deltas are recorded in history but never counted as messages.
func (m Message) IsDelta() bool {
	return m.Type == MessageStreamingDelta
}

// LastSpeaker returns the source of the last non-delta message, or SourceUser
// when the history is empty.
func LastSpeaker(history []Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].IsDelta() {
			return history[i].Source
		}
	}
	return SourceUser
}

// CountMessages returns the number of non-delta entries
func CountMessages(history []Message) int {
	n := 0
	for _, m := range history {
		if !m.IsDelta() {
			n++
		}
	}
	return n
}
