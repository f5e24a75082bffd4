package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// AuditStorage stores conversation records keyed by session id
type AuditStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAuditStorage creates an audit store on an open database
func NewAuditStorage(db *BadgerDB, logger arbor.ILogger) *AuditStorage {
	return &AuditStorage{
		db:     db,
		logger: logger,
	}
}

// SaveConversation inserts or replaces the record for its session
func (s *AuditStorage) SaveConversation(ctx context.Context, record *models.ConversationRecord) error {
	if record.SessionID == "" {
		return fmt.Errorf("session ID is required")
	}
	if err := s.db.Store().Upsert(record.SessionID, record); err != nil {
		return fmt.Errorf("failed to save conversation record: %w", err)
	}
	s.logger.Debug().
		Str("session_id", record.SessionID).
		Str("stop_reason", record.StopReason).
		Msg("Conversation record saved")
	return nil
}

// GetConversation returns the record of one session
func (s *AuditStorage) GetConversation(ctx context.Context, sessionID string) (*models.ConversationRecord, error) {
	var record models.ConversationRecord
	if err := s.db.Store().Get(sessionID, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrConversationNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to get conversation record: %w", err)
	}
	return &record, nil
}

// ListRecent returns up to limit records, newest first
func (s *AuditStorage) ListRecent(ctx context.Context, limit int) ([]*models.ConversationRecord, error) {
	query := badgerhold.Where("SessionID").Ne("").SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []models.ConversationRecord
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list conversation records: %w", err)
	}

	out := make([]*models.ConversationRecord, len(records))
	for i := range records {
		out[i] = &records[i]
	}
	return out, nil
}

// ListByStopReason returns the records that ended with reason
func (s *AuditStorage) ListByStopReason(ctx context.Context, reason string) ([]*models.ConversationRecord, error) {
	var records []models.ConversationRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("StopReason").Eq(reason).Index("StopReason")); err != nil {
		return nil, fmt.Errorf("failed to list conversation records: %w", err)
	}

	out := make([]*models.ConversationRecord, len(records))
	for i := range records {
		out[i] = &records[i]
	}
	return out, nil
}

// Close closes the underlying database
func (s *AuditStorage) Close() error {
	return s.db.Close()
}

var _ interfaces.AuditStorage = (*AuditStorage)(nil)
