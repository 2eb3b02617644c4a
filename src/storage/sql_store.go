package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"paper-trader/src/logger"
	"paper-trader/src/models"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("record not found")

// -----------------------------------------------------------------------------
// sqlStore holds the queries shared by the SQLite and Postgres backends.
// Queries are written with `?` placeholders and a `{p}` table prefix; q()
// rewrites them for the active dialect.
// -----------------------------------------------------------------------------

type sqlStore struct {
	DB        *sql.DB
	Logger    *logger.Logger
	prefix    string
	numbered  bool // $1, $2 ... placeholders
	queryRepl *strings.Replacer
}

// -----------------------------------------------------------------------------

func (s *sqlStore) q(query string) string {
	if s.queryRepl == nil {
		s.queryRepl = strings.NewReplacer("{p}", s.prefix)
	}
	query = s.queryRepl.Replace(query)
	if !s.numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// -----------------------------------------------------------------------------

func (s *sqlStore) execAll(stmts []string) error {
	for _, stmt := range stmts {
		if _, err := s.DB.Exec(s.q(stmt)); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

func (s *sqlStore) CreateUser(user *models.MUser) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := s.DB.Exec(s.q(`
		INSERT INTO {p}users (id, email, name, password_hash, virtual_balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), user.ID, strings.ToLower(user.Email), user.Name, user.PasswordHash, user.VirtualBalance,
		user.CreatedAt.UnixMilli(), user.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) GetUserByEmail(email string) (*models.MUser, error) {
	row := s.DB.QueryRow(s.q(`
		SELECT id, email, name, password_hash, virtual_balance, created_at, updated_at
		FROM {p}users WHERE email = ?
	`), strings.ToLower(email))
	return scanUser(row)
}

// -----------------------------------------------------------------------------

func (s *sqlStore) GetUserByID(id string) (*models.MUser, error) {
	row := s.DB.QueryRow(s.q(`
		SELECT id, email, name, password_hash, virtual_balance, created_at, updated_at
		FROM {p}users WHERE id = ?
	`), id)
	return scanUser(row)
}

// -----------------------------------------------------------------------------

func scanUser(row *sql.Row) (*models.MUser, error) {
	var u models.MUser
	var created, updated int64
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.VirtualBalance, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.UnixMilli(created).UTC()
	u.UpdatedAt = time.UnixMilli(updated).UTC()
	return &u, nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) UpdateUserBalance(userID string, balance string) error {
	bal, err := decimal.NewFromString(balance)
	if err != nil {
		return fmt.Errorf("invalid balance %q: %w", balance, err)
	}
	res, err := s.DB.Exec(s.q(`UPDATE {p}users SET virtual_balance = ?, updated_at = ? WHERE id = ?`),
		bal, time.Now().UTC().UnixMilli(), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// -----------------------------------------------------------------------------
// Portfolio
// -----------------------------------------------------------------------------

func (s *sqlStore) GetUserPortfolio(userID string) ([]models.MPosition, error) {
	rows, err := s.DB.Query(s.q(`
		SELECT symbol, quantity, average_price, current_price, type
		FROM {p}portfolio WHERE user_id = ? ORDER BY created_at, symbol
	`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MPosition
	for rows.Next() {
		var p models.MPosition
		var side string
		if err := rows.Scan(&p.Symbol, &p.Quantity, &p.AveragePrice, &p.CurrentPrice, &side); err != nil {
			return nil, err
		}
		if p.Side, err = models.ParseSide(side); err != nil {
			s.Logger.Warning("Skipping portfolio row %s/%s: %v", userID, p.Symbol, err)
			continue
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------

func (s *sqlStore) UpsertPosition(userID string, p models.MPosition) error {
	now := time.Now().UTC().UnixMilli()
	_, err := s.DB.Exec(s.q(`
		INSERT INTO {p}portfolio (user_id, symbol, quantity, average_price, current_price, type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, symbol) DO UPDATE SET
			quantity = excluded.quantity,
			average_price = excluded.average_price,
			current_price = excluded.current_price,
			type = excluded.type,
			updated_at = excluded.updated_at
	`), userID, p.Symbol, p.Quantity, p.AveragePrice, p.CurrentPrice, p.Side.String(), now, now)
	return err
}

// -----------------------------------------------------------------------------

func (s *sqlStore) DeletePosition(userID string, symbol string) error {
	_, err := s.DB.Exec(s.q(`DELETE FROM {p}portfolio WHERE user_id = ? AND symbol = ?`), userID, symbol)
	return err
}

// -----------------------------------------------------------------------------
// Watchlist
// -----------------------------------------------------------------------------

func (s *sqlStore) GetUserWatchlist(userID string) ([]string, error) {
	rows, err := s.DB.Query(s.q(`SELECT symbol FROM {p}watchlist WHERE user_id = ? ORDER BY created_at, symbol`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------

func (s *sqlStore) AddToWatchlist(userID string, symbol string) error {
	_, err := s.DB.Exec(s.q(`
		INSERT INTO {p}watchlist (user_id, symbol, created_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, symbol) DO NOTHING
	`), userID, symbol, time.Now().UTC().UnixNano())
	return err
}

// -----------------------------------------------------------------------------

func (s *sqlStore) RemoveFromWatchlist(userID string, symbol string) error {
	_, err := s.DB.Exec(s.q(`DELETE FROM {p}watchlist WHERE user_id = ? AND symbol = ?`), userID, symbol)
	return err
}

// -----------------------------------------------------------------------------
// Trades
// -----------------------------------------------------------------------------

func (s *sqlStore) RecordTrade(t *models.MTrade) error {
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().UTC().UnixMilli()
	}
	_, err := s.DB.Exec(s.q(`
		INSERT INTO {p}trades (id, user_id, symbol, quantity, price, type, total_amount, balance_after, stop_loss, take_profit, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), t.ID, t.UserID, t.Symbol, t.Quantity, t.Price, t.Side.String(), t.TotalAmount, t.BalanceAfter,
		nullDecimal(t.StopLoss), nullDecimal(t.TakeProfit), t.CreatedAt)
	return err
}

// -----------------------------------------------------------------------------

func (s *sqlStore) GetUserTrades(userID string, limit int) ([]models.MTrade, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.Query(s.q(`
		SELECT id, user_id, symbol, quantity, price, type, total_amount, balance_after, stop_loss, take_profit, created_at
		FROM {p}trades WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
	`), userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MTrade
	for rows.Next() {
		var t models.MTrade
		var side string
		var sl, tp decimal.NullDecimal
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.Quantity, &t.Price, &side, &t.TotalAmount,
			&t.BalanceAfter, &sl, &tp, &t.CreatedAt); err != nil {
			return nil, err
		}
		if t.Side, err = models.ParseSide(side); err != nil {
			return nil, fmt.Errorf("trade %s: %w", t.ID, err)
		}
		if sl.Valid {
			v := sl.Decimal
			t.StopLoss = &v
		}
		if tp.Valid {
			v := tp.Decimal
			t.TakeProfit = &v
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Market data
// -----------------------------------------------------------------------------

func (s *sqlStore) UpsertMarketData(data []models.MMarketData) error {
	if len(data) == 0 {
		return nil
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(s.q(`
		INSERT INTO {p}market_data (symbol, price, change, change_percent, volume, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET
			price = excluded.price,
			change = excluded.change,
			change_percent = excluded.change_percent,
			volume = excluded.volume,
			updated_at = excluded.updated_at
	`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().UnixMilli()
	for _, m := range data {
		ts := m.UpdatedAt
		if ts == 0 {
			ts = now
		}
		if _, err := stmt.Exec(m.Symbol, m.Price, m.Change, m.ChangePercent, m.Volume, ts); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (s *sqlStore) GetMarketData(symbols []string) ([]models.MMarketData, error) {
	query := `SELECT symbol, price, change, change_percent, volume, updated_at FROM {p}market_data`
	args := make([]interface{}, 0, len(symbols))
	if len(symbols) > 0 {
		query += ` WHERE symbol IN (` + strings.TrimSuffix(strings.Repeat("?, ", len(symbols)), ", ") + `)`
		for _, sym := range symbols {
			args = append(args, sym)
		}
	}
	query += ` ORDER BY symbol`

	rows, err := s.DB.Query(s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MMarketData
	for rows.Next() {
		var m models.MMarketData
		if err := rows.Scan(&m.Symbol, &m.Price, &m.Change, &m.ChangePercent, &m.Volume, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------

func (s *sqlStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
