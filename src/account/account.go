// Package account holds the per-session application state: a ledger, a
// watchlist, the logged-in user and the market the user is looking at.
package account

import (
	"sync"
	"time"

	"paper-trader/src/analysis"
	"paper-trader/src/gateway"
	"paper-trader/src/ledger"
	"paper-trader/src/models"
	"paper-trader/src/watchlist"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------

// Account serializes every mutation through one mutex, so trade intents are
// applied strictly in the order they arrive.
type Account struct {
	mu        sync.Mutex
	token     string
	store     *Store
	ledger    *ledger.Ledger
	watchlist *watchlist.Watchlist
	user      *models.MUser
	market    models.Market
	symbol    string
}

func newAccount(token string, store *Store) *Account {
	return &Account{
		token:     token,
		store:     store,
		ledger:    ledger.New(store.defaultBalance),
		watchlist: watchlist.New(watchlist.DefaultSymbols...),
		market:    models.MarketCrypto,
		symbol:    "BTC",
	}
}

// -----------------------------------------------------------------------------
// Trading
// -----------------------------------------------------------------------------

// Trade executes intent against the ledger and returns the portfolio as it
// stood right after, read under the same lock. An executed trade of a
// logged-in user is mirrored to the store in the background.
func (a *Account) Trade(intent models.MTradeIntent) (ledger.TradeResult, models.MPortfolioView) {
	a.mu.Lock()
	defer a.mu.Unlock()

	res := a.ledger.ExecuteTrade(intent)
	if !res.Executed {
		return res, a.ledger.Snapshot()
	}

	if a.user != nil {
		a.user.VirtualBalance = res.BalanceAfter
		a.store.persist.NotifyTrade(gateway.TradeNotification{
			Trade: models.MTrade{
				ID:           uuid.NewString(),
				UserID:       a.user.ID,
				Symbol:       intent.Symbol,
				Quantity:     intent.Quantity,
				Price:        intent.Price,
				Side:         intent.Side,
				TotalAmount:  intent.Quantity.Mul(intent.Price),
				BalanceAfter: res.BalanceAfter,
				StopLoss:     intent.StopLoss,
				TakeProfit:   intent.TakeProfit,
				CreatedAt:    time.Now().UnixMilli(),
			},
			Position: res.Position,
		})
	}
	return res, a.publishLocked()
}

// -----------------------------------------------------------------------------

// Reset restores the default balance and drops every position.
func (a *Account) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	var symbols []string
	for _, p := range a.ledger.Positions() {
		symbols = append(symbols, p.Symbol)
	}
	a.ledger.Reset(a.store.defaultBalance)
	if a.user != nil {
		a.user.VirtualBalance = a.store.defaultBalance
		a.store.persist.NotifyReset(a.user.ID, a.store.defaultBalance.String(), symbols)
	}
	a.publishLocked()
}

// -----------------------------------------------------------------------------

func (a *Account) markToMarket(prices map[string]decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ledger.MarkToMarket(prices) > 0 {
		a.publishLocked()
	}
}

// publishLocked hands the current snapshot to the store observers.
// Observers run under the account lock and must not block.
func (a *Account) publishLocked() models.MPortfolioView {
	view := a.ledger.Snapshot()
	a.store.publish(a.token, view)
	return view
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

func (a *Account) Token() string { return a.token }

func (a *Account) Snapshot() models.MPortfolioView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ledger.Snapshot()
}

// Performance summarises the account against the default starting balance.
func (a *Account) Performance() models.MPerformance {
	a.mu.Lock()
	defer a.mu.Unlock()
	return analysis.Performance(a.store.defaultBalance, a.ledger.Snapshot())
}

// User returns a copy of the logged-in user, or nil for an anonymous session.
func (a *Account) User() *models.MUser {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

func (a *Account) positionCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.ledger.Positions())
}

// -----------------------------------------------------------------------------
// Market selection
// -----------------------------------------------------------------------------

func (a *Account) Market() (models.Market, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.market, a.symbol
}

// SelectMarket switches the current market; an empty symbol keeps the previous one.
func (a *Account) SelectMarket(market models.Market, symbol string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.market = market
	if symbol != "" {
		a.symbol = symbol
	}
}

// -----------------------------------------------------------------------------
// Watchlist
// -----------------------------------------------------------------------------

func (a *Account) Watchlist() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.watchlist.Symbols()
}

// Watch adds symbol; it reports false when the symbol was already watched.
func (a *Account) Watch(symbol string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.watchlist.Add(symbol) {
		return false
	}
	if a.user != nil {
		a.store.persist.NotifyWatchlist(a.user.ID, normalizeSymbol(symbol), true)
	}
	return true
}

func (a *Account) Unwatch(symbol string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.watchlist.Remove(symbol) {
		return false
	}
	if a.user != nil {
		a.store.persist.NotifyWatchlist(a.user.ID, normalizeSymbol(symbol), false)
	}
	return true
}

// -----------------------------------------------------------------------------
// Identity
// -----------------------------------------------------------------------------

// attach seeds the account from the persisted state of user.
func (a *Account) attach(user *models.MUser) error {
	positions := a.store.persist.GetUserPortfolio(user.ID)
	symbols := a.store.persist.GetUserWatchlist(user.ID)

	a.mu.Lock()
	defer a.mu.Unlock()

	u := *user
	a.user = &u
	balance := u.VirtualBalance
	if balance.IsZero() && len(positions) == 0 {
		balance = a.store.defaultBalance
	}
	err := a.ledger.Seed(balance, positions)
	if len(symbols) > 0 {
		a.watchlist.Replace(symbols)
	}
	a.publishLocked()
	return err
}

func (a *Account) detach() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user = nil
	a.ledger.Reset(a.store.defaultBalance)
	a.watchlist.Replace(watchlist.DefaultSymbols)
	a.publishLocked()
}
