package registry

import (
	"fmt"
	"strings"
	"sync"

	"paper-trader/src/models"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Master asset lists, in display order
// -----------------------------------------------------------------------------

var cryptoAssets = []models.MAsset{
	{Symbol: "BTC", Name: "Bitcoin"},
	{Symbol: "ETH", Name: "Ethereum"},
	{Symbol: "BNB", Name: "Binance Coin"},
	{Symbol: "SOL", Name: "Solana"},
	{Symbol: "XRP", Name: "Ripple"},
	{Symbol: "ADA", Name: "Cardano"},
	{Symbol: "DOGE", Name: "Dogecoin"},
	{Symbol: "DOT", Name: "Polkadot"},
	{Symbol: "MATIC", Name: "Polygon"},
	{Symbol: "AVAX", Name: "Avalanche"},
}

var stockAssets = []models.MAsset{
	{Symbol: "RELIANCE", Name: "Reliance Industries"},
	{Symbol: "TCS", Name: "Tata Consultancy Services"},
	{Symbol: "INFY", Name: "Infosys"},
	{Symbol: "HDFCBANK", Name: "HDFC Bank"},
	{Symbol: "ICICIBANK", Name: "ICICI Bank"},
}

// QuoteAsset is appended to crypto symbols to form exchange pairs.
const QuoteAsset = "USDT"

// -----------------------------------------------------------------------------

// Registry holds the tradable instruments of both markets and their latest prices.
type Registry struct {
	mu      sync.RWMutex
	markets map[models.Market][]models.MAsset
	index   map[string]assetRef
}

type assetRef struct {
	market models.Market
	pos    int
}

// -----------------------------------------------------------------------------

// New returns a registry seeded with the master lists and zero prices.
func New() *Registry {
	r := &Registry{
		markets: map[models.Market][]models.MAsset{
			models.MarketCrypto: append([]models.MAsset(nil), cryptoAssets...),
			models.MarketStocks: append([]models.MAsset(nil), stockAssets...),
		},
		index: make(map[string]assetRef),
	}
	for market, list := range r.markets {
		for i := range list {
			list[i].Price = decimal.Zero
			list[i].Change = decimal.Zero
			list[i].ChangePercent = decimal.Zero
			list[i].Volume = decimal.Zero
			r.index[list[i].Symbol] = assetRef{market: market, pos: i}
		}
	}
	return r
}

// -----------------------------------------------------------------------------

// Markets lists the supported markets.
func (r *Registry) Markets() []models.Market {
	return []models.Market{models.MarketCrypto, models.MarketStocks}
}

// -----------------------------------------------------------------------------

// Assets returns a copy of the market's assets in display order.
func (r *Registry) Assets(market models.Market) []models.MAsset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.markets[market]
	out := make([]models.MAsset, len(list))
	copy(out, list)
	return out
}

// -----------------------------------------------------------------------------

// Lookup finds an asset by symbol (case-insensitive).
func (r *Registry) Lookup(symbol string) (models.MAsset, models.Market, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, ok := r.index[strings.ToUpper(symbol)]
	if !ok {
		return models.MAsset{}, "", false
	}
	return r.markets[ref.market][ref.pos], ref.market, true
}

// -----------------------------------------------------------------------------

// Price returns the latest known price of symbol, zero when none arrived yet.
func (r *Registry) Price(symbol string) decimal.Decimal {
	a, _, ok := r.Lookup(symbol)
	if !ok {
		return decimal.Zero
	}
	return a.Price
}

// -----------------------------------------------------------------------------

// ApplyTickers refreshes matching assets and returns the prices that changed.
// Tickers for unknown symbols are ignored.
func (r *Registry) ApplyTickers(tickers []models.MTicker) map[string]decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated := make(map[string]decimal.Decimal, len(tickers))
	for _, t := range tickers {
		ref, ok := r.index[t.Symbol]
		if !ok {
			continue
		}
		a := &r.markets[ref.market][ref.pos]
		a.Price = t.Price
		a.Change = t.Change
		a.ChangePercent = t.ChangePercent
		a.Volume = t.Volume
		updated[t.Symbol] = t.Price
	}
	return updated
}

// FillMissing applies tickers only to assets that have no price yet and
// returns the prices it set. Placeholder data uses it so it never replaces a
// real quote.
func (r *Registry) FillMissing(tickers []models.MTicker) map[string]decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()

	filled := make(map[string]decimal.Decimal)
	for _, t := range tickers {
		ref, ok := r.index[t.Symbol]
		if !ok {
			continue
		}
		a := &r.markets[ref.market][ref.pos]
		if a.Price.IsPositive() {
			continue
		}
		a.Price = t.Price
		a.Change = t.Change
		a.ChangePercent = t.ChangePercent
		a.Volume = t.Volume
		filled[t.Symbol] = t.Price
	}
	return filled
}

// -----------------------------------------------------------------------------

// PairSymbols returns the exchange pair names (e.g. BTCUSDT) of the crypto assets.
func (r *Registry) PairSymbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.markets[models.MarketCrypto]
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Symbol+QuoteAsset)
	}
	return out
}

// -----------------------------------------------------------------------------

// ChartSymbol builds the charting widget identifier for symbol.
func ChartSymbol(symbol string, market models.Market) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", fmt.Errorf("symbol is required")
	}
	switch market {
	case models.MarketCrypto:
		return "BINANCE:" + symbol + QuoteAsset, nil
	case models.MarketStocks:
		return "NSE:" + symbol, nil
	}
	return "", fmt.Errorf("unknown market %q", market)
}
