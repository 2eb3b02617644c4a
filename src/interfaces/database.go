package interfaces

import "paper-trader/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for the hosted store mirroring users,
// portfolios, watchlists, trades and market data.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize opens the connection and creates missing tables.
	Initialize() error

	// -----------------------------------------------------------------------------
	// Users

	CreateUser(user *models.MUser) error
	GetUserByEmail(email string) (*models.MUser, error)
	GetUserByID(id string) (*models.MUser, error)
	UpdateUserBalance(userID string, balance string) error

	// -----------------------------------------------------------------------------
	// Portfolio

	GetUserPortfolio(userID string) ([]models.MPosition, error)
	UpsertPosition(userID string, position models.MPosition) error
	DeletePosition(userID string, symbol string) error

	// -----------------------------------------------------------------------------
	// Watchlist

	GetUserWatchlist(userID string) ([]string, error)
	AddToWatchlist(userID string, symbol string) error
	RemoveFromWatchlist(userID string, symbol string) error

	// -----------------------------------------------------------------------------
	// Trades

	RecordTrade(trade *models.MTrade) error
	// GetUserTrades returns the newest trades first.
	GetUserTrades(userID string, limit int) ([]models.MTrade, error)

	// -----------------------------------------------------------------------------
	// Market data

	UpsertMarketData(rows []models.MMarketData) error
	GetMarketData(symbols []string) ([]models.MMarketData, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
