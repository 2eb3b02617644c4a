package models

import "github.com/shopspring/decimal"

// -----------------------------------------------------------------------------
// WebSocket push messages
// -----------------------------------------------------------------------------

const (
	MsgTickers   = "TICKERS"
	MsgCandles   = "CANDLES"
	MsgPortfolio = "PORTFOLIO"
	MsgError     = "ERROR"
)

// MPushMessage is the envelope for everything written to a WebSocket client.
type MPushMessage struct {
	Type      string      `json:"type"`
	Market    Market      `json:"market,omitempty"`
	Symbol    string      `json:"symbol,omitempty"`
	Timeframe string      `json:"timeframe,omitempty"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command   string `json:"command"` // "subscribe" or "unsubscribe"
	Channel   string `json:"channel"` // "tickers" or "candles"
	Market    string `json:"market"`
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
}

// -----------------------------------------------------------------------------
// Portfolio view
// -----------------------------------------------------------------------------

// MPositionView is a position with its derived P&L.
type MPositionView struct {
	MPosition
	MarketValue      decimal.Decimal `json:"market_value"`
	UnrealizedPnL    decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPnLPct decimal.Decimal `json:"unrealized_pnl_pct"`
}

// MPortfolioView is the read model of one account's ledger.
type MPortfolioView struct {
	CashBalance decimal.Decimal   `json:"cash_balance"`
	MarketValue decimal.Decimal   `json:"market_value"`
	TotalEquity decimal.Decimal   `json:"total_equity"`
	Positions   []MPositionView   `json:"positions"`
	EquityCurve []decimal.Decimal `json:"equity_curve"`
	HasTraded   bool              `json:"has_traded"`

	// NetEquity values shorts as liabilities; see ledger.NetEquity.
	NetEquity      decimal.Decimal   `json:"net_equity"`
	NetEquityCurve []decimal.Decimal `json:"net_equity_curve"`
}
