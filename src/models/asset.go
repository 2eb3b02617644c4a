package models

import "github.com/shopspring/decimal"

// MAsset is one tradable instrument as shown in a market list.
// Symbol is the identity key; everything else is refreshed by the feeds.
type MAsset struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Volume        decimal.Decimal `json:"volume"`
}

// MTicker is a single live price update for a symbol.
type MTicker struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Volume        decimal.Decimal `json:"volume"`

	// Fallback marks placeholder rows sent while the exchange is unreachable.
	Fallback bool `json:"fallback,omitempty"`
}

// MMarketData mirrors a row of the market_data table.
type MMarketData struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Volume        decimal.Decimal `json:"volume"`
	UpdatedAt     int64           `json:"updated_at"`
}
