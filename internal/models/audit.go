package models

import "time"

// ConversationRecord is the audit entry written when a conversation ends.
// It holds metadata only; conversation content is not persisted.
type ConversationRecord struct {
	SessionID    string        `json:"session_id" badgerhold:"key"`
	Mode         Mode          `json:"mode" badgerhold:"index"`
	Query        string        `json:"query"`
	StopReason   string        `json:"stop_reason" badgerhold:"index"`
	Speakers     []string      `json:"speakers"`
	MessageCount int           `json:"message_count"`
	PassageIDs   []string      `json:"passage_ids"`
	FigureCount  int           `json:"figure_count"`
	Error        string        `json:"error,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
}
