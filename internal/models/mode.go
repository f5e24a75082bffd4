package models

import (
	"fmt"
	"strings"
)

// Mode selects the fixed control-flow graph a conversation follows
type Mode string

const (
	// ModeSinglePass runs one research step and one answer step
	ModeSinglePass Mode = "single_pass"
	// ModeIterative adds a deeper research pass and a consolidated revision
	ModeIterative Mode = "iterative"
)

// Participant and source names. These appear in history, in routing and in
// user-facing author labels.
const (
	SourceUser                  = "user"
	ParticipantResearcher       = "research_agent"
	ParticipantAnswerer         = "answer_agent"
	ParticipantReviseResearcher = "revise_research_agent"
	ParticipantReviseAnswerer   = "revise_answer_agent"
)

// Modes lists all supported modes in display order
func Modes() []Mode {
	return []Mode{ModeSinglePass, ModeIterative}
}

// ParseMode accepts the canonical names plus the short and display aliases
// ("rag", "RAG Agent", "rat", "RAT Agent").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single_pass", "single-pass", "rag", "rag agent":
		return ModeSinglePass, nil
	case "iterative", "rat", "rat agent":
		return ModeIterative, nil
	default:
		return "", fmt.Errorf("unknown mode: %q", s)
	}
}

// Label is the name shown next to agent output ("RAG Agent" / "RAT Agent")
func (m Mode) Label() string {
	switch m {
	case ModeIterative:
		return "RAT Agent"
	default:
		return "RAG Agent"
	}
}

// Terminals returns the participants whose output ends a conversation in this mode
func (m Mode) Terminals() []string {
	if m == ModeIterative {
		return []string{ParticipantReviseAnswerer}
	}
	return []string{ParticipantAnswerer}
}

// Answering reports whether the participant produces user-facing prose
func Answering(name string) bool {
	return name == ParticipantAnswerer || name == ParticipantReviseAnswerer
}
