package storage

import (
	"fmt"

	"paper-trader/src/interfaces"
	"paper-trader/src/logger"
	"paper-trader/src/models"
)

// New builds the backend selected by storage.db_type. Initialize is left to the caller.
func New(cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	switch cfg.Storage.DBType {
	case "postgres":
		return NewPostgresDB(cfg, log)
	case "sqlite", "":
		return NewAsyncSQLiteDB(cfg, log)
	}
	return nil, fmt.Errorf("unsupported database type: %q", cfg.Storage.DBType)
}
