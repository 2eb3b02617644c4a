package interfaces

import (
	"context"

	"paper-trader/src/models"
)

// -----------------------------------------------------------------------------
// IFeed is a market data producer managed by the feed manager.
// -----------------------------------------------------------------------------

type IFeed interface {

	// Name returns the unique identifier of the feed
	Name() string

	// -----------------------------------------------------------------------------

	// Market returns the market whose prices this feed moves.
	Market() models.Market

	// -----------------------------------------------------------------------------

	// IsRealTime returns true if the feed mirrors a live exchange
	IsRealTime() bool

	// -----------------------------------------------------------------------------

	// IsRunning reports whether Start has been called and Stop has not.
	IsRunning() bool

	// -----------------------------------------------------------------------------

	// Start begins producing data in background goroutines.
	// Cancelling ctx stops the feed as well as Stop does.
	Start(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// Stop terminates the feed. Stopping a stopped feed is a no-op.
	Stop() error
}

// -----------------------------------------------------------------------------
// ITickerSource hands ticker batches to subscribers of a market.
// -----------------------------------------------------------------------------

type ITickerSource interface {
	Subscribe(market models.Market, fn func([]models.MTicker)) (unsubscribe func())
}
