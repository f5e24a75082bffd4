package interfaces

import (
	"context"

	"github.com/ternarybob/quarry/internal/models"
)

// Role of a message in a model request
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ModelMessage is a provider-agnostic chat message. Parts may carry figures,
// which only user messages are allowed to contain. Tool interactions from
// earlier turns reach the model as plain text.
type ModelMessage struct {
	Role  Role
	Parts []models.ContentPart
}

// ToolSpec describes a function the model may call. Parameters is a JSON schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  ToolSchema
}

// ToolSchema is the subset of JSON schema used by tool parameters
type ToolSchema struct {
	Properties map[string]ToolProperty
	Required   []string
}

// ToolProperty is one tool parameter
type ToolProperty struct {
	Type        string // "string" or "array"
	Description string
	ItemsType   string // element type for arrays
}

// ModelRequest is one completion request
type ModelRequest struct {
	System      string
	Messages    []ModelMessage
	Tools       []ToolSpec
	Temperature float32
	MaxTokens   int
}

// Completion is the final result of a model call
type Completion struct {
	Text      string
	ToolCalls []models.ToolCall
	Provider  string
	Model     string
}

// DeltaFunc receives streamed text fragments in order. Returning an error aborts the call.
type DeltaFunc func(fragment string) error

// ModelClient is the black-box completion service. Streaming clients invoke
// onDelta for each text fragment before returning the full Completion.
type ModelClient interface {
	Complete(ctx context.Context, req *ModelRequest, onDelta DeltaFunc) (*Completion, error)
	Name() string
}
