// Package gateway forwards ledger, watchlist and market data changes to the
// external store. The in-memory state is authoritative: every operation here
// reports success as a bool (or returns the record), logs failures and never
// retries them.
package gateway

import (
	"context"
	"errors"
	"sync"

	"paper-trader/src/helpers"
	"paper-trader/src/interfaces"
	"paper-trader/src/logger"
	"paper-trader/src/models"
	"paper-trader/src/storage"
)

// -----------------------------------------------------------------------------

// TradeNotification mirrors one executed trade: the trade log row, the new
// balance and the resulting position (nil when the trade closed it).
type TradeNotification struct {
	Trade    models.MTrade
	Position *models.MPosition
}

type job struct {
	name string
	run  func() error
}

// -----------------------------------------------------------------------------

type Gateway struct {
	DB     interfaces.IDatabase
	Logger *logger.Logger
	errors *helpers.ErrorHandler

	queue   chan job
	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
	dropped int
}

// -----------------------------------------------------------------------------

func New(db interfaces.IDatabase, queueSize int, log *logger.Logger) *Gateway {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Gateway{
		DB:     db,
		Logger: log,
		errors: helpers.NewErrorHandler("Gateway"),
		queue:  make(chan job, queueSize),
	}
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start launches the single worker draining the notification queue.
func (g *Gateway) Start(ctx context.Context) {
	g.mu.Lock()
	if g.started || g.closed {
		g.mu.Unlock()
		return
	}
	g.started = true
	g.mu.Unlock()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		for {
			select {
			case j, ok := <-g.queue:
				if !ok {
					return
				}
				g.errors.Handle(j.run(), j.name)
			case <-ctx.Done():
				g.drain()
				return
			}
		}
	}()
}

// -----------------------------------------------------------------------------

// Stop refuses new notifications and waits for queued ones to be written.
func (g *Gateway) Stop() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	close(g.queue)
	started := g.started
	g.mu.Unlock()

	if !started {
		g.drain()
	}
	g.wg.Wait()
}

// -----------------------------------------------------------------------------

func (g *Gateway) drain() {
	for j := range g.queue {
		g.errors.Handle(j.run(), j.name)
	}
}

// -----------------------------------------------------------------------------

// Failures returns how many store operations failed since start.
func (g *Gateway) Failures() int {
	return g.errors.ErrorCount()
}

// Dropped returns how many notifications were discarded on a full queue.
func (g *Gateway) Dropped() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dropped
}

// -----------------------------------------------------------------------------

// enqueue is at-most-once: a full or closed queue drops the job.
func (g *Gateway) enqueue(name string, run func() error) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		g.Logger.Warning("Gateway closed, dropping %s", name)
		g.dropped++
		return false
	}
	select {
	case g.queue <- job{name: name, run: run}:
		return true
	default:
		g.Logger.Warning("Gateway queue full, dropping %s", name)
		g.dropped++
		return false
	}
}

// -----------------------------------------------------------------------------
// Fire-and-forget notifications
// -----------------------------------------------------------------------------

// NotifyTrade queues the trade log row, the balance update and the position mirror.
func (g *Gateway) NotifyTrade(n TradeNotification) bool {
	return g.enqueue("record trade "+n.Trade.ID, func() error {
		t := n.Trade
		var errs []error
		if err := g.DB.RecordTrade(&t); err != nil {
			errs = append(errs, err)
		}
		if err := g.DB.UpdateUserBalance(t.UserID, t.BalanceAfter.String()); err != nil {
			errs = append(errs, err)
		}
		if n.Position != nil {
			if err := g.DB.UpsertPosition(t.UserID, *n.Position); err != nil {
				errs = append(errs, err)
			}
		} else if err := g.DB.DeletePosition(t.UserID, t.Symbol); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})
}

// -----------------------------------------------------------------------------

func (g *Gateway) NotifyWatchlist(userID, symbol string, add bool) bool {
	if add {
		return g.enqueue("watchlist add "+symbol, func() error { return g.DB.AddToWatchlist(userID, symbol) })
	}
	return g.enqueue("watchlist remove "+symbol, func() error { return g.DB.RemoveFromWatchlist(userID, symbol) })
}

// -----------------------------------------------------------------------------

func (g *Gateway) NotifyBalance(userID string, balance string) bool {
	return g.enqueue("update balance", func() error { return g.DB.UpdateUserBalance(userID, balance) })
}

// -----------------------------------------------------------------------------

// NotifyReset clears the mirrored portfolio of a user and restores the balance.
func (g *Gateway) NotifyReset(userID string, balance string, symbols []string) bool {
	return g.enqueue("reset account", func() error {
		var errs []error
		for _, s := range symbols {
			if err := g.DB.DeletePosition(userID, s); err != nil {
				errs = append(errs, err)
			}
		}
		if err := g.DB.UpdateUserBalance(userID, balance); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})
}

// -----------------------------------------------------------------------------

func (g *Gateway) NotifyMarketData(rows []models.MMarketData) bool {
	if len(rows) == 0 {
		return true
	}
	return g.enqueue("update market data", func() error { return g.DB.UpsertMarketData(rows) })
}

// -----------------------------------------------------------------------------
// Synchronous pass-through
// -----------------------------------------------------------------------------

func (g *Gateway) CreateUser(user *models.MUser) bool {
	return g.errors.Handle(g.DB.CreateUser(user), "create user")
}

// -----------------------------------------------------------------------------

// GetUserByEmail returns nil when the user does not exist or the lookup failed.
func (g *Gateway) GetUserByEmail(email string) *models.MUser {
	u, err := g.DB.GetUserByEmail(email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if !g.errors.Handle(err, "get user by email") {
		return nil
	}
	return u
}

// -----------------------------------------------------------------------------

func (g *Gateway) GetUserByID(id string) *models.MUser {
	u, err := g.DB.GetUserByID(id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if !g.errors.Handle(err, "get user by id") {
		return nil
	}
	return u
}

// -----------------------------------------------------------------------------

func (g *Gateway) UpdateUserBalance(userID string, balance string) bool {
	return g.errors.Handle(g.DB.UpdateUserBalance(userID, balance), "update balance")
}

// -----------------------------------------------------------------------------

func (g *Gateway) GetUserPortfolio(userID string) []models.MPosition {
	p, err := g.DB.GetUserPortfolio(userID)
	if !g.errors.Handle(err, "get portfolio") {
		return nil
	}
	return p
}

// -----------------------------------------------------------------------------

func (g *Gateway) GetUserWatchlist(userID string) []string {
	w, err := g.DB.GetUserWatchlist(userID)
	if !g.errors.Handle(err, "get watchlist") {
		return nil
	}
	return w
}

// -----------------------------------------------------------------------------

func (g *Gateway) AddToWatchlist(userID, symbol string) bool {
	return g.errors.Handle(g.DB.AddToWatchlist(userID, symbol), "add to watchlist")
}

// -----------------------------------------------------------------------------

func (g *Gateway) RemoveFromWatchlist(userID, symbol string) bool {
	return g.errors.Handle(g.DB.RemoveFromWatchlist(userID, symbol), "remove from watchlist")
}

// -----------------------------------------------------------------------------

func (g *Gateway) RecordTrade(t *models.MTrade) bool {
	return g.errors.Handle(g.DB.RecordTrade(t), "record trade")
}

// -----------------------------------------------------------------------------

func (g *Gateway) GetUserTrades(userID string, limit int) []models.MTrade {
	t, err := g.DB.GetUserTrades(userID, limit)
	if !g.errors.Handle(err, "get trades") {
		return nil
	}
	return t
}

// -----------------------------------------------------------------------------

func (g *Gateway) UpdateMarketData(rows []models.MMarketData) bool {
	return g.errors.Handle(g.DB.UpsertMarketData(rows), "update market data")
}

// -----------------------------------------------------------------------------

func (g *Gateway) GetMarketData(symbols []string) []models.MMarketData {
	m, err := g.DB.GetMarketData(symbols)
	if !g.errors.Handle(err, "get market data") {
		return nil
	}
	return m
}
