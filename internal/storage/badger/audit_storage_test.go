package badger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/models"
)

func newTestStorage(t *testing.T) *AuditStorage {
	t.Helper()
	logger := arbor.NewLogger()
	db, err := NewBadgerDB(logger, &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "quarry.db")})
	require.NoError(t, err)
	storage := NewAuditStorage(db, logger)
	t.Cleanup(func() { storage.Close() })
	return storage
}

func record(id string, started time.Time, reason string) *models.ConversationRecord {
	return &models.ConversationRecord{
		SessionID:    id,
		Mode:         models.ModeSinglePass,
		Query:        "How is the company innovating?",
		StopReason:   reason,
		Speakers:     []string{models.ParticipantResearcher, models.ParticipantAnswerer},
		MessageCount: 4,
		PassageIDs:   []string{"c1"},
		FigureCount:  1,
		StartedAt:    started,
		Duration:     2 * time.Second,
	}
}

func TestAuditStorage_SaveAndGet(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	want := record("s1", time.Now().UTC().Truncate(time.Millisecond), "source_match")
	require.NoError(t, storage.SaveConversation(ctx, want))

	got, err := storage.GetConversation(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, want.Query, got.Query)
	assert.Equal(t, want.Speakers, got.Speakers)
	assert.Equal(t, want.PassageIDs, got.PassageIDs)
	assert.Equal(t, want.Duration, got.Duration)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
}

func TestAuditStorage_GetMissing(t *testing.T) {
	storage := newTestStorage(t)
	_, err := storage.GetConversation(context.Background(), "missing")
	assert.ErrorIs(t, err, interfaces.ErrConversationNotFound)
}

func TestAuditStorage_SaveRequiresSessionID(t *testing.T) {
	storage := newTestStorage(t)
	assert.Error(t, storage.SaveConversation(context.Background(), &models.ConversationRecord{}))
}

func TestAuditStorage_SaveReplaces(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	r := record("s1", time.Now(), "source_match")
	require.NoError(t, storage.SaveConversation(ctx, r))
	r.StopReason = "error"
	require.NoError(t, storage.SaveConversation(ctx, r))

	got, err := storage.GetConversation(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "error", got.StopReason)
}

func TestAuditStorage_ListRecentNewestFirst(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"old", "middle", "new"} {
		require.NoError(t, storage.SaveConversation(ctx, record(id, base.Add(time.Duration(i)*time.Minute), "source_match")))
	}

	records, err := storage.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "new", records[0].SessionID)
	assert.Equal(t, "middle", records[1].SessionID)
}

func TestAuditStorage_ListByStopReason(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveConversation(ctx, record("a", time.Now(), "source_match")))
	require.NoError(t, storage.SaveConversation(ctx, record("b", time.Now(), "error")))
	require.NoError(t, storage.SaveConversation(ctx, record("c", time.Now(), "error")))

	failed, err := storage.ListByStopReason(ctx, "error")
	require.NoError(t, err)
	assert.Len(t, failed, 2)
}

func TestNewBadgerDB_InMemory(t *testing.T) {
	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{})
	require.NoError(t, err)
	defer db.Close()

	storage := NewAuditStorage(db, arbor.NewLogger())
	require.NoError(t, storage.SaveConversation(context.Background(), record("mem", time.Now(), "source_match")))
}
