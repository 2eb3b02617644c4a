package account

import (
	"context"
	"sync"
	"testing"
	"time"

	"paper-trader/src/gateway"
	"paper-trader/src/logger"
	"paper-trader/src/models"
	"paper-trader/src/session"

	"github.com/shopspring/decimal"
)

type fakePersister struct {
	mu        sync.Mutex
	trades    []gateway.TradeNotification
	watch     []string
	resets    int
	users     map[string]*models.MUser
	portfolio map[string][]models.MPosition
	watchlist map[string][]string
}

func newFakePersister() *fakePersister {
	return &fakePersister{
		users:     map[string]*models.MUser{},
		portfolio: map[string][]models.MPosition{},
		watchlist: map[string][]string{},
	}
}

func (f *fakePersister) NotifyTrade(n gateway.TradeNotification) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append(f.trades, n)
	return true
}
func (f *fakePersister) NotifyWatchlist(userID, symbol string, add bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watch = append(f.watch, symbol)
	return true
}
func (f *fakePersister) NotifyReset(userID string, balance string, symbols []string) bool {
	f.resets++
	return true
}
func (f *fakePersister) GetUserByID(id string) *models.MUser           { return f.users[id] }
func (f *fakePersister) GetUserPortfolio(id string) []models.MPosition { return f.portfolio[id] }
func (f *fakePersister) GetUserWatchlist(id string) []string           { return f.watchlist[id] }

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestStore(p Persister) *Store {
	return NewStore(p, session.NewMemoryStore(), d("100000"), time.Hour, logger.NewLogger("account-test"))
}

func buy(symbol, qty, price string) models.MTradeIntent {
	return models.MTradeIntent{Symbol: symbol, Quantity: d(qty), Price: d(price), Side: models.SideLong}
}

// -----------------------------------------------------------------------------

func TestAnonymousTradeIsNotPersisted(t *testing.T) {
	p := newFakePersister()
	s := newTestStore(p)
	acc := s.Create()

	res, view := acc.Trade(buy("BTC", "1", "40000"))
	if !res.Executed {
		t.Fatalf("trade rejected: %v", res.Err)
	}
	if !view.CashBalance.Equal(d("60000")) || len(view.Positions) != 1 || !view.HasTraded {
		t.Errorf("trade should return the post-trade portfolio, got %+v", view)
	}
	if len(p.trades) != 0 {
		t.Errorf("anonymous trades must stay in memory, got %d notifications", len(p.trades))
	}
	if got := acc.Snapshot().CashBalance; !got.Equal(d("60000")) {
		t.Errorf("expected 60000 cash, got %s", got)
	}
}

func TestLoggedInTradeNotifiesGateway(t *testing.T) {
	p := newFakePersister()
	s := newTestStore(p)
	acc := s.Create()
	user := &models.MUser{ID: "u1", Email: "a@b.c", VirtualBalance: d("50000")}

	if err := s.Login(context.Background(), acc, user); err != nil {
		t.Fatal(err)
	}
	acc.Trade(buy("ETH", "2", "2500"))
	res, view := acc.Trade(buy("ETH", "100", "2500")) // rejected, 250000 > 45000
	if res.Executed || !view.CashBalance.Equal(d("45000")) {
		t.Errorf("rejected trade should return the unchanged portfolio, got %+v", view)
	}

	if len(p.trades) != 1 {
		t.Fatalf("expected one notification, got %d", len(p.trades))
	}
	tr := p.trades[0].Trade
	if tr.UserID != "u1" || tr.ID == "" || !tr.TotalAmount.Equal(d("5000")) || !tr.BalanceAfter.Equal(d("45000")) {
		t.Errorf("unexpected trade record %+v", tr)
	}
	if p.trades[0].Position == nil || !p.trades[0].Position.Quantity.Equal(d("2")) {
		t.Errorf("expected position mirror, got %+v", p.trades[0].Position)
	}
	if got := acc.User().VirtualBalance; !got.Equal(d("45000")) {
		t.Errorf("user balance should follow the ledger, got %s", got)
	}
}

func TestLoginSeedsAndLogoutResets(t *testing.T) {
	p := newFakePersister()
	p.portfolio["u1"] = []models.MPosition{
		{Symbol: "BTC", Quantity: d("0.5"), AveragePrice: d("40000"), Side: models.SideLong},
	}
	p.watchlist["u1"] = []string{"SOL"}
	s := newTestStore(p)
	acc := s.Create()
	ctx := context.Background()

	s.Login(ctx, acc, &models.MUser{ID: "u1", Email: "a@b.c", VirtualBalance: d("80000")})
	view := acc.Snapshot()
	if !view.CashBalance.Equal(d("80000")) || len(view.Positions) != 1 {
		t.Fatalf("login did not seed the ledger: %+v", view)
	}
	if w := acc.Watchlist(); len(w) != 1 || w[0] != "SOL" {
		t.Errorf("expected persisted watchlist, got %v", w)
	}

	if err := s.Logout(ctx, acc); err != nil {
		t.Fatal(err)
	}
	view = acc.Snapshot()
	if acc.User() != nil || len(view.Positions) != 0 || !view.CashBalance.Equal(d("100000")) {
		t.Errorf("logout should reset the account, got %+v", view)
	}
	if w := acc.Watchlist(); len(w) != 3 {
		t.Errorf("expected default watchlist, got %v", w)
	}
}

func TestGetRestoresPersistedSession(t *testing.T) {
	p := newFakePersister()
	p.users["u1"] = &models.MUser{ID: "u1", Email: "a@b.c", VirtualBalance: d("70000")}
	sessions := session.NewMemoryStore()
	ctx := context.Background()
	sessions.Put(ctx, "old-token", "u1", time.Hour)

	s := NewStore(p, sessions, d("100000"), time.Hour, logger.NewLogger("account-test"))
	acc, ok := s.Get(ctx, "old-token")
	if !ok {
		t.Fatal("expected session to be restored")
	}
	if u := acc.User(); u == nil || u.ID != "u1" {
		t.Errorf("expected user u1, got %+v", u)
	}
	if !acc.Snapshot().CashBalance.Equal(d("70000")) {
		t.Errorf("expected restored balance")
	}
	if _, ok := s.Get(ctx, "unknown"); ok {
		t.Error("unknown token must not resolve")
	}
}

func TestMarkAllAndObservers(t *testing.T) {
	s := newTestStore(newFakePersister())
	a := s.Create()
	b := s.Create()
	a.Trade(buy("BTC", "1", "40000"))

	var mu sync.Mutex
	seen := map[string]models.MPortfolioView{}
	unsubscribe := s.Subscribe(func(token string, view models.MPortfolioView) {
		mu.Lock()
		seen[token] = view
		mu.Unlock()
	})

	s.MarkAll(map[string]decimal.Decimal{"BTC": d("42000")})

	if got, ok := seen[a.Token()]; !ok || !got.MarketValue.Equal(d("42000")) {
		t.Errorf("expected marked snapshot for a, got %+v", got)
	}
	if _, ok := seen[b.Token()]; ok {
		t.Error("account without positions should not publish on marks")
	}

	unsubscribe()
	a.Reset()
	if v := seen[a.Token()]; len(v.Positions) != 1 {
		t.Error("observer still called after unsubscribe")
	}

	accounts, positions := s.Stats()
	if accounts != 2 || positions != 0 {
		t.Errorf("expected 2 accounts / 0 positions, got %d / %d", accounts, positions)
	}
}

func TestWatchlistNotifiesOnlyChanges(t *testing.T) {
	p := newFakePersister()
	s := newTestStore(p)
	acc := s.Create()
	s.Login(context.Background(), acc, &models.MUser{ID: "u1", Email: "a@b.c"})

	if acc.Watch("btc") {
		t.Error("BTC is in the default watchlist")
	}
	if !acc.Watch("sol") || !acc.Unwatch("SOL") {
		t.Error("expected add and remove to succeed")
	}
	if len(p.watch) != 2 || p.watch[0] != "SOL" {
		t.Errorf("expected two normalized notifications, got %v", p.watch)
	}
}

func TestSelectMarketKeepsSymbol(t *testing.T) {
	acc := newTestStore(newFakePersister()).Create()
	acc.SelectMarket(models.MarketStocks, "TCS")
	acc.SelectMarket(models.MarketCrypto, "")
	m, sym := acc.Market()
	if m != models.MarketCrypto || sym != "TCS" {
		t.Errorf("got %s/%s", m, sym)
	}
}

func TestDropForgetsAccount(t *testing.T) {
	s := newTestStore(newFakePersister())
	acc := s.Create()
	s.Drop(acc.Token())

	if _, ok := s.Get(context.Background(), acc.Token()); ok {
		t.Error("dropped account is still reachable")
	}
	if n, _ := s.Stats(); n != 0 {
		t.Errorf("want 0 accounts, got %d", n)
	}
}
