package storage

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quarry/internal/common"
	"github.com/ternarybob/quarry/internal/interfaces"
	"github.com/ternarybob/quarry/internal/storage/badger"
)

// NewAuditStorage opens the audit log described by config. It returns nil
// when auditing is disabled.
func NewAuditStorage(logger arbor.ILogger, config *common.Config) (interfaces.AuditStorage, error) {
	if !config.Storage.Badger.Audit {
		logger.Debug().Msg("Conversation audit disabled")
		return nil, nil
	}

	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("path", config.Storage.Badger.Path).Msg("Conversation audit log opened")
	return badger.NewAuditStorage(db, logger), nil
}
