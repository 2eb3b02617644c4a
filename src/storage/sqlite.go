package storage

import (
	"database/sql"
	"fmt"

	"paper-trader/src/logger"
	"paper-trader/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	sqlStore
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	if cfg.Storage.DBPath == "" {
		return nil, fmt.Errorf("sqlite db_path is empty")
	}
	return &AsyncSQLiteDB{
		Config:   cfg,
		sqlStore: sqlStore{Logger: log},
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	// One writer keeps SQLite away from "database is locked"
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	// SQLite types: INTEGER for int64, TEXT for strings and decimals
	return d.execAll([]string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			virtual_balance TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS portfolio (
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			symbol TEXT NOT NULL,
			quantity TEXT NOT NULL,
			average_price TEXT NOT NULL,
			current_price TEXT NOT NULL,
			type TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, symbol)
		)`,
		`CREATE TABLE IF NOT EXISTS watchlist (
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			symbol TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, symbol)
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			symbol TEXT NOT NULL,
			quantity TEXT NOT NULL,
			price TEXT NOT NULL,
			type TEXT NOT NULL,
			total_amount TEXT NOT NULL,
			balance_after TEXT NOT NULL,
			stop_loss TEXT,
			take_profit TEXT,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_user_created ON trades (user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS market_data (
			symbol TEXT PRIMARY KEY,
			price TEXT NOT NULL,
			change TEXT NOT NULL,
			change_percent TEXT NOT NULL,
			volume TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	})
}
