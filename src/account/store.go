package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"paper-trader/src/gateway"
	"paper-trader/src/interfaces"
	"paper-trader/src/logger"
	"paper-trader/src/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Persister is the part of the persistence gateway the accounts use.
type Persister interface {
	NotifyTrade(n gateway.TradeNotification) bool
	NotifyWatchlist(userID, symbol string, add bool) bool
	NotifyReset(userID string, balance string, symbols []string) bool
	GetUserByID(id string) *models.MUser
	GetUserPortfolio(userID string) []models.MPosition
	GetUserWatchlist(userID string) []string
}

// Observer receives the portfolio of an account after every change.
type Observer func(token string, view models.MPortfolioView)

// -----------------------------------------------------------------------------

// Store owns every account, keyed by session token.
type Store struct {
	Logger *logger.Logger

	persist        Persister
	sessions       interfaces.ISessionStore
	defaultBalance decimal.Decimal
	ttl            time.Duration

	mu       sync.RWMutex
	accounts map[string]*Account

	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObs   int
}

// -----------------------------------------------------------------------------

func NewStore(persist Persister, sessions interfaces.ISessionStore, defaultBalance decimal.Decimal, ttl time.Duration, log *logger.Logger) *Store {
	return &Store{
		Logger:         log,
		persist:        persist,
		sessions:       sessions,
		defaultBalance: defaultBalance,
		ttl:            ttl,
		accounts:       make(map[string]*Account),
		observers:      make(map[int]Observer),
	}
}

// -----------------------------------------------------------------------------
// Sessions
// -----------------------------------------------------------------------------

// Create opens an anonymous account under a fresh token.
func (s *Store) Create() *Account {
	token := uuid.NewString()
	acc := newAccount(token, s)

	s.mu.Lock()
	s.accounts[token] = acc
	s.mu.Unlock()
	return acc
}

// -----------------------------------------------------------------------------

// Get returns the account of token. A token unknown in memory but still
// present in the session store (after a restart) is restored for its user.
func (s *Store) Get(ctx context.Context, token string) (*Account, bool) {
	if token == "" {
		return nil, false
	}

	s.mu.RLock()
	acc, ok := s.accounts[token]
	s.mu.RUnlock()
	if ok {
		return acc, true
	}

	userID, err := s.sessions.Get(ctx, token)
	if err != nil {
		if !errors.Is(err, interfaces.ErrSessionNotFound) {
			s.Logger.Warning("Session lookup failed: %v", err)
		}
		return nil, false
	}
	user := s.persist.GetUserByID(userID)
	if user == nil {
		return nil, false
	}

	s.mu.Lock()
	if existing, ok := s.accounts[token]; ok {
		s.mu.Unlock()
		return existing, true
	}
	acc = newAccount(token, s)
	s.accounts[token] = acc
	s.mu.Unlock()

	if err := acc.attach(user); err != nil {
		s.Logger.Warning("Restoring session for %s: %v", user.Email, err)
	}
	s.Logger.Info("Restored session for %s", user.Email)
	return acc, true
}

// -----------------------------------------------------------------------------

// Drop forgets the in-memory account of token.
func (s *Store) Drop(token string) {
	s.mu.Lock()
	delete(s.accounts, token)
	s.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Login binds user to the account and records the session marker.
func (s *Store) Login(ctx context.Context, acc *Account, user *models.MUser) error {
	if err := acc.attach(user); err != nil {
		s.Logger.Warning("Seeding account for %s: %v", user.Email, err)
	}
	if err := s.sessions.Put(ctx, acc.token, user.ID, s.ttl); err != nil {
		return err
	}
	s.Logger.Info("User %s logged in", user.Email)
	return nil
}

// -----------------------------------------------------------------------------

// Logout resets the account to an anonymous one and removes the session marker.
func (s *Store) Logout(ctx context.Context, acc *Account) error {
	acc.detach()
	return s.sessions.Delete(ctx, acc.token)
}

// -----------------------------------------------------------------------------
// Market data fan-in
// -----------------------------------------------------------------------------

// MarkAll marks every account to market.
func (s *Store) MarkAll(prices map[string]decimal.Decimal) {
	if len(prices) == 0 {
		return
	}
	for _, acc := range s.snapshotAccounts() {
		acc.markToMarket(prices)
	}
}

// -----------------------------------------------------------------------------

// Stats returns the number of accounts and open positions.
func (s *Store) Stats() (accounts int, positions int) {
	all := s.snapshotAccounts()
	for _, acc := range all {
		positions += acc.positionCount()
	}
	return len(all), positions
}

func (s *Store) snapshotAccounts() []*Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, acc)
	}
	return out
}

// -----------------------------------------------------------------------------
// Observers
// -----------------------------------------------------------------------------

// Subscribe registers fn and returns the function that removes it.
func (s *Store) Subscribe(fn Observer) func() {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Store) publish(token string, view models.MPortfolioView) {
	s.obsMu.RLock()
	defer s.obsMu.RUnlock()
	for _, fn := range s.observers {
		fn(token, view)
	}
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
