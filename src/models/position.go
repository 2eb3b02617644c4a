package models

import "github.com/shopspring/decimal"

// MPosition is an open position. Quantity and AveragePrice are always > 0.
type MPosition struct {
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Side         Side            `json:"type"`
}

// MTradeIntent is a user order as received by the ledger.
type MTradeIntent struct {
	Symbol     string           `json:"symbol"`
	Quantity   decimal.Decimal  `json:"quantity"`
	Price      decimal.Decimal  `json:"price"`
	Side       Side             `json:"type"`
	StopLoss   *decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit *decimal.Decimal `json:"take_profit,omitempty"`
}

// MTrade is the persisted trade record.
type MTrade struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	Symbol       string           `json:"symbol"`
	Quantity     decimal.Decimal  `json:"quantity"`
	Price        decimal.Decimal  `json:"price"`
	Side         Side             `json:"type"`
	TotalAmount  decimal.Decimal  `json:"total_amount"`
	BalanceAfter decimal.Decimal  `json:"balance_after"`
	StopLoss     *decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit   *decimal.Decimal `json:"take_profit,omitempty"`
	CreatedAt    int64            `json:"created_at"`
}

// MPerformance summarises an account's equity curve.
type MPerformance struct {
	InitialBalance   decimal.Decimal `json:"initial_balance"`
	TotalEquity      decimal.Decimal `json:"total_equity"`
	TotalReturn      decimal.Decimal `json:"total_return"`
	TotalReturnPct   decimal.Decimal `json:"total_return_pct"`
	MaxDrawdownPct   decimal.Decimal `json:"max_drawdown_pct"`
	VolatilityPct    decimal.Decimal `json:"volatility_pct"`
	UnrealizedPnL    decimal.Decimal `json:"unrealized_pnl"`
	Snapshots        int             `json:"snapshots"`
	WinningPositions int             `json:"winning_positions"`
	LosingPositions  int             `json:"losing_positions"`
}
