package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"

	"paper-trader/src/logger"
	"paper-trader/src/models"
	"paper-trader/src/storage"

	"github.com/shopspring/decimal"
)

// fakeDB records calls and fails every operation when fail is set.
type fakeDB struct {
	mu        sync.Mutex
	fail      bool
	trades    []models.MTrade
	balances  map[string]string
	positions map[string]models.MPosition
	deleted   []string
	watch     []string
	market    []models.MMarketData
}

func newFakeDB() *fakeDB {
	return &fakeDB{balances: map[string]string{}, positions: map[string]models.MPosition{}}
}

var errDown = errors.New("store unavailable")

func (f *fakeDB) err() error {
	if f.fail {
		return errDown
	}
	return nil
}

func (f *fakeDB) Initialize() error                { return nil }
func (f *fakeDB) Close() error                     { return nil }
func (f *fakeDB) CreateUser(u *models.MUser) error { return f.err() }
func (f *fakeDB) GetUserByEmail(email string) (*models.MUser, error) {
	if f.fail {
		return nil, errDown
	}
	if email == "known@x.y" {
		return &models.MUser{ID: "u1", Email: email}, nil
	}
	return nil, storage.ErrNotFound
}
func (f *fakeDB) GetUserByID(id string) (*models.MUser, error) { return nil, storage.ErrNotFound }
func (f *fakeDB) UpdateUserBalance(userID, balance string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[userID] = balance
	return f.err()
}
func (f *fakeDB) GetUserPortfolio(userID string) ([]models.MPosition, error) { return nil, f.err() }
func (f *fakeDB) UpsertPosition(userID string, p models.MPosition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions[p.Symbol] = p
	return f.err()
}
func (f *fakeDB) DeletePosition(userID, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, symbol)
	return f.err()
}
func (f *fakeDB) GetUserWatchlist(userID string) ([]string, error) { return f.watch, f.err() }
func (f *fakeDB) AddToWatchlist(userID, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watch = append(f.watch, symbol)
	return f.err()
}
func (f *fakeDB) RemoveFromWatchlist(userID, symbol string) error { return f.err() }
func (f *fakeDB) RecordTrade(t *models.MTrade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append(f.trades, *t)
	return f.err()
}
func (f *fakeDB) GetUserTrades(userID string, limit int) ([]models.MTrade, error) {
	return f.trades, f.err()
}
func (f *fakeDB) UpsertMarketData(rows []models.MMarketData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.market = append(f.market, rows...)
	return f.err()
}
func (f *fakeDB) GetMarketData(symbols []string) ([]models.MMarketData, error) { return f.market, f.err() }

func TestNotifyTradeMirrorsPositionAndBalance(t *testing.T) {
	db := newFakeDB()
	g := New(db, 8, logger.NewLogger("gateway-test"))
	g.Start(context.Background())

	pos := models.MPosition{Symbol: "BTC", Quantity: decimal.NewFromInt(1), AveragePrice: decimal.NewFromInt(40000), Side: models.SideLong}
	g.NotifyTrade(TradeNotification{
		Trade:    models.MTrade{ID: "t1", UserID: "u1", Symbol: "BTC", BalanceAfter: decimal.NewFromInt(60000), Side: models.SideLong},
		Position: &pos,
	})
	g.NotifyTrade(TradeNotification{
		Trade: models.MTrade{ID: "t2", UserID: "u1", Symbol: "BTC", BalanceAfter: decimal.NewFromInt(101000), Side: models.SideShort},
	})
	g.Stop()

	if len(db.trades) != 2 || db.trades[0].ID != "t1" {
		t.Errorf("expected trades in order, got %+v", db.trades)
	}
	if db.balances["u1"] != "101000" {
		t.Errorf("expected last balance 101000, got %s", db.balances["u1"])
	}
	if _, ok := db.positions["BTC"]; !ok || len(db.deleted) != 1 {
		t.Errorf("expected upsert then delete, got %+v / %v", db.positions, db.deleted)
	}
}

func TestFailuresAreSwallowed(t *testing.T) {
	db := newFakeDB()
	db.fail = true
	g := New(db, 8, logger.NewLogger("gateway-test"))
	g.Start(context.Background())

	if g.AddToWatchlist("u1", "BTC") {
		t.Error("failed write should report false")
	}
	if g.GetUserPortfolio("u1") != nil {
		t.Error("failed read should return nil")
	}
	if g.GetUserByEmail("known@x.y") != nil {
		t.Error("failed lookup should return nil")
	}
	g.NotifyWatchlist("u1", "ETH", true)
	g.Stop()

	if g.Failures() != 4 {
		t.Errorf("expected 4 logged failures, got %d", g.Failures())
	}
}

func TestNotFoundIsNotAFailure(t *testing.T) {
	g := New(newFakeDB(), 1, logger.NewLogger("gateway-test"))
	if g.GetUserByEmail("nobody@x.y") != nil {
		t.Error("expected nil for unknown user")
	}
	if u := g.GetUserByEmail("known@x.y"); u == nil || u.ID != "u1" {
		t.Errorf("expected known user, got %+v", u)
	}
	if g.Failures() != 0 {
		t.Errorf("not found must not count as failure, got %d", g.Failures())
	}
}

func TestFullQueueDrops(t *testing.T) {
	db := newFakeDB()
	g := New(db, 1, logger.NewLogger("gateway-test"))

	if !g.NotifyBalance("u1", "1") {
		t.Fatal("first notification should be queued")
	}
	if g.NotifyBalance("u1", "2") {
		t.Error("second notification should be dropped on a full queue")
	}
	g.Stop()

	if g.Dropped() != 1 {
		t.Errorf("expected 1 dropped, got %d", g.Dropped())
	}
	if db.balances["u1"] != "1" {
		t.Errorf("queued job should still run on Stop, got %q", db.balances["u1"])
	}
	if g.NotifyMarketData([]models.MMarketData{{Symbol: "BTC"}}) {
		t.Error("notifications after Stop must be dropped")
	}
}
