package models

import "time"

// EventType tags a presentation event
type EventType string

const (
	EventToolCallRequested EventType = "tool_call_requested"
	EventToolCallCompleted EventType = "tool_call_completed"
	EventStreamingDelta    EventType = "streaming_delta"
	EventMessageComplete   EventType = "message_complete"
	EventError             EventType = "error"
	EventTerminated        EventType = "terminated"
)

// ResolvedPassage is a retrieved passage with figure markup removed and its
// figures attached
type ResolvedPassage struct {
	ID      string          `json:"chunk_id"`
	Title   string          `json:"title"`
	Text    string          `json:"text"`
	Figures []FigurePayload `json:"figures,omitempty"`
}

// Event is one item of the stream consumed by presentation layers. Content is
// already deduplicated and figure-resolved; no placeholder markup is carried.
type Event struct {
	Seq        int               `json:"seq"`
	SessionID  string            `json:"session_id"`
	Type       EventType         `json:"type"`
	Source     string            `json:"source,omitempty"`
	Mode       Mode              `json:"mode,omitempty"`
	Queries    []string          `json:"queries,omitempty"`
	Passages   []ResolvedPassage `json:"passages,omitempty"`
	Text       string            `json:"text,omitempty"`
	Figures    []FigurePayload   `json:"figures,omitempty"`
	StopReason string            `json:"stop_reason,omitempty"`
	Error      string            `json:"error,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}
