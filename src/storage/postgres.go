package storage

import (
	"database/sql"
	"fmt"
	"regexp"

	"paper-trader/src/logger"
	"paper-trader/src/models"

	_ "github.com/lib/pq"
)

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	Schema string
	sqlStore
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	name := cfg.Storage.DBSchema
	if name == "" {
		name = "public"
	}
	if !schemaNameRe.MatchString(name) {
		return nil, fmt.Errorf("invalid postgres schema name %q", name)
	}

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		sqlStore: sqlStore{
			Logger:   log,
			prefix:   fmt.Sprintf(`"%s".`, name),
			numbered: true,
		},
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	return d.execAll([]string{
		`CREATE TABLE IF NOT EXISTS {p}users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			virtual_balance NUMERIC(24, 8) NOT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS {p}portfolio (
			user_id TEXT NOT NULL REFERENCES {p}users(id) ON DELETE CASCADE,
			symbol TEXT NOT NULL,
			quantity NUMERIC(24, 8) NOT NULL,
			average_price NUMERIC(24, 8) NOT NULL,
			current_price NUMERIC(24, 8) NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('buy', 'sell')),
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			PRIMARY KEY (user_id, symbol)
		)`,
		`CREATE TABLE IF NOT EXISTS {p}watchlist (
			user_id TEXT NOT NULL REFERENCES {p}users(id) ON DELETE CASCADE,
			symbol TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			PRIMARY KEY (user_id, symbol)
		)`,
		`CREATE TABLE IF NOT EXISTS {p}trades (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES {p}users(id) ON DELETE CASCADE,
			symbol TEXT NOT NULL,
			quantity NUMERIC(24, 8) NOT NULL,
			price NUMERIC(24, 8) NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('buy', 'sell')),
			total_amount NUMERIC(24, 8) NOT NULL,
			balance_after NUMERIC(24, 8) NOT NULL,
			stop_loss NUMERIC(24, 8),
			take_profit NUMERIC(24, 8),
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_user_created ON {p}trades (user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS {p}market_data (
			symbol TEXT PRIMARY KEY,
			price NUMERIC(24, 8) NOT NULL,
			change NUMERIC(24, 8) NOT NULL,
			change_percent NUMERIC(12, 4) NOT NULL,
			volume NUMERIC(24, 8) NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
	})
}
