package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/quarry/internal/models"
)

// ErrConversationNotFound is returned when no audit record exists for a session
var ErrConversationNotFound = errors.New("conversation not found")

// AuditStorage persists metadata about finished conversations
type AuditStorage interface {
	SaveConversation(ctx context.Context, record *models.ConversationRecord) error
	GetConversation(ctx context.Context, sessionID string) (*models.ConversationRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*models.ConversationRecord, error)
	Close() error
}
