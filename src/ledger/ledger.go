// Package ledger converts trade intents into positions and cash movements.
//
// A Ledger holds at most one position per symbol. An order on the opposite
// side of an open position nets against it; it can reduce or close the
// position but never flip it. A Ledger is not safe for concurrent use; callers
// serialize access (see package account).
//
// Valuation keeps two views. MarketValue and TotalEquity add quantity x price
// for every position whatever its side, which is what the portfolio read model
// reports. NetEquity counts a short as a liability owed back at the current
// price and is what performance figures are computed from.
//
// MarkToMarket ignores zero and negative prices, so a position always carries
// the last positive price seen for its symbol.
package ledger

import (
	"errors"
	"fmt"

	"paper-trader/src/models"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrInvalidPrice        = errors.New("price must be positive")
	ErrInvalidSide         = errors.New("side must be long or short")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOversizedClose      = errors.New("close quantity exceeds open position")
)

var hundred = decimal.NewFromInt(100)

// -----------------------------------------------------------------------------
// Trade results
// -----------------------------------------------------------------------------

// Action is what an executed trade did to the position it touched.
type Action int

const (
	ActionNone Action = iota
	ActionOpen
	ActionAdd
	ActionReduce
	ActionClose
)

func (a Action) String() string {
	switch a {
	case ActionOpen:
		return "open"
	case ActionAdd:
		return "add"
	case ActionReduce:
		return "reduce"
	case ActionClose:
		return "close"
	}
	return "none"
}

// TradeResult describes the outcome of ExecuteTrade.
// When Executed is false, Err holds the rejection reason and nothing changed.
type TradeResult struct {
	Executed      bool
	Err           error
	Action        Action
	Intent        models.MTradeIntent
	CashDelta     decimal.Decimal // signed: negative on debit
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	// Position is the position after the trade; nil when it was closed.
	Position *models.MPosition
}

// -----------------------------------------------------------------------------
// Ledger
// -----------------------------------------------------------------------------

type Ledger struct {
	positions   map[string]*models.MPosition
	order       []string
	cash        decimal.Decimal
	hasTraded   bool
	equityCurve []decimal.Decimal

	// net equity right after each executed trade
	netCurve []decimal.Decimal
}

// New returns an empty ledger holding balance in cash.
func New(balance decimal.Decimal) *Ledger {
	return &Ledger{
		positions: make(map[string]*models.MPosition),
		cash:      balance,
	}
}

// -----------------------------------------------------------------------------

// ExecuteTrade applies one intent at the caller-supplied price.
func (l *Ledger) ExecuteTrade(intent models.MTradeIntent) TradeResult {
	res := TradeResult{
		Intent:        intent,
		BalanceBefore: l.cash,
		BalanceAfter:  l.cash,
	}

	if !intent.Quantity.IsPositive() {
		res.Err = ErrInvalidQuantity
		return res
	}
	if !intent.Price.IsPositive() {
		res.Err = ErrInvalidPrice
		return res
	}
	if !intent.Side.Valid() {
		res.Err = ErrInvalidSide
		return res
	}

	qty := intent.Quantity
	price := intent.Price
	notional := qty.Mul(price)

	existing, held := l.positions[intent.Symbol]

	var next *models.MPosition
	switch {
	case !held:
		if intent.Side == models.SideLong && notional.GreaterThan(l.cash) {
			res.Err = ErrInsufficientBalance
			return res
		}
		next = &models.MPosition{
			Symbol:       intent.Symbol,
			Quantity:     qty,
			AveragePrice: price,
			CurrentPrice: price,
			Side:         intent.Side,
		}
		res.Action = ActionOpen

	case existing.Side == intent.Side:
		newQty := existing.Quantity.Add(qty)
		cost := existing.AveragePrice.Mul(existing.Quantity).Add(notional)
		next = &models.MPosition{
			Symbol:       intent.Symbol,
			Quantity:     newQty,
			AveragePrice: cost.Div(newQty),
			CurrentPrice: price,
			Side:         existing.Side,
		}
		res.Action = ActionAdd

	default:
		if qty.GreaterThan(existing.Quantity) {
			res.Err = ErrOversizedClose
			return res
		}
		remaining := existing.Quantity.Sub(qty)
		if remaining.IsZero() {
			res.Action = ActionClose
		} else {
			next = &models.MPosition{
				Symbol:       intent.Symbol,
				Quantity:     remaining,
				AveragePrice: existing.AveragePrice,
				CurrentPrice: price,
				Side:         existing.Side,
			}
			res.Action = ActionReduce
		}
	}

	// Buying debits cash, selling credits it, whatever the position does.
	switch intent.Side {
	case models.SideLong:
		res.CashDelta = notional.Neg()
	case models.SideShort:
		res.CashDelta = notional
	}

	l.equityCurve = append(l.equityCurve, l.cash)
	l.hasTraded = true
	l.cash = l.cash.Add(res.CashDelta)

	if next == nil {
		l.remove(intent.Symbol)
	} else {
		l.put(next)
		cp := *next
		res.Position = &cp
	}
	l.netCurve = append(l.netCurve, l.NetEquity())

	res.Executed = true
	res.BalanceAfter = l.cash
	return res
}

// -----------------------------------------------------------------------------

// MarkToMarket replaces the current price of every position found in prices.
// Non-positive prices are skipped. It returns the number of positions marked.
func (l *Ledger) MarkToMarket(prices map[string]decimal.Decimal) int {
	marked := 0
	for symbol, price := range prices {
		if p, ok := l.positions[symbol]; ok && price.IsPositive() {
			p.CurrentPrice = price
			marked++
		}
	}
	return marked
}

// -----------------------------------------------------------------------------

// Reset drops every position and restores cash to balance.
// The equity curves restart; the traded flag never goes back to false.
func (l *Ledger) Reset(balance decimal.Decimal) {
	l.positions = make(map[string]*models.MPosition)
	l.order = nil
	l.cash = balance
	l.equityCurve = nil
	l.netCurve = nil
}

// -----------------------------------------------------------------------------

// Seed restores persisted state on login. Invalid positions are skipped.
func (l *Ledger) Seed(balance decimal.Decimal, positions []models.MPosition) error {
	l.Reset(balance)
	var skipped []string
	for _, p := range positions {
		if !p.Quantity.IsPositive() || !p.AveragePrice.IsPositive() || !p.Side.Valid() {
			skipped = append(skipped, p.Symbol)
			continue
		}
		cp := p
		if !cp.CurrentPrice.IsPositive() {
			cp.CurrentPrice = cp.AveragePrice
		}
		l.put(&cp)
	}
	if len(skipped) > 0 {
		return fmt.Errorf("skipped %d invalid positions: %v", len(skipped), skipped)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

func (l *Ledger) Cash() decimal.Decimal { return l.cash }

func (l *Ledger) HasTraded() bool { return l.hasTraded }

// EquityCurve returns a copy of the balance snapshots.
func (l *Ledger) EquityCurve() []decimal.Decimal {
	out := make([]decimal.Decimal, len(l.equityCurve))
	copy(out, l.equityCurve)
	return out
}

// NetEquityCurve returns a copy of the net equity recorded after each trade.
func (l *Ledger) NetEquityCurve() []decimal.Decimal {
	out := make([]decimal.Decimal, len(l.netCurve))
	copy(out, l.netCurve)
	return out
}

// Position returns a copy of the open position for symbol.
func (l *Ledger) Position(symbol string) (models.MPosition, bool) {
	p, ok := l.positions[symbol]
	if !ok {
		return models.MPosition{}, false
	}
	return *p, true
}

// Positions returns copies of the open positions in the order they were opened.
func (l *Ledger) Positions() []models.MPosition {
	out := make([]models.MPosition, 0, len(l.order))
	for _, sym := range l.order {
		out = append(out, *l.positions[sym])
	}
	return out
}

// MarketValue is the sum of quantity x current price over open positions.
func (l *Ledger) MarketValue() decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.positions {
		total = total.Add(p.Quantity.Mul(p.CurrentPrice))
	}
	return total
}

// TotalEquity is cash plus market value.
func (l *Ledger) TotalEquity() decimal.Decimal {
	return l.cash.Add(l.MarketValue())
}

// NetEquity is cash plus long value minus what the shorts would cost to
// buy back at current prices.
func (l *Ledger) NetEquity() decimal.Decimal {
	total := l.cash
	for _, p := range l.positions {
		v := p.Quantity.Mul(p.CurrentPrice)
		if p.Side == models.SideShort {
			v = v.Neg()
		}
		total = total.Add(v)
	}
	return total
}

// Snapshot builds the portfolio read model.
func (l *Ledger) Snapshot() models.MPortfolioView {
	view := models.MPortfolioView{
		CashBalance:    l.cash,
		MarketValue:    l.MarketValue(),
		Positions:      make([]models.MPositionView, 0, len(l.order)),
		EquityCurve:    l.EquityCurve(),
		NetEquity:      l.NetEquity(),
		NetEquityCurve: l.NetEquityCurve(),
		HasTraded:      l.hasTraded,
	}
	view.TotalEquity = view.CashBalance.Add(view.MarketValue)
	for _, p := range l.Positions() {
		view.Positions = append(view.Positions, models.MPositionView{
			MPosition:        p,
			MarketValue:      p.Quantity.Mul(p.CurrentPrice),
			UnrealizedPnL:    UnrealizedPnL(p),
			UnrealizedPnLPct: UnrealizedPnLPercent(p),
		})
	}
	return view
}

// -----------------------------------------------------------------------------

func (l *Ledger) put(p *models.MPosition) {
	if _, ok := l.positions[p.Symbol]; !ok {
		l.order = append(l.order, p.Symbol)
	}
	l.positions[p.Symbol] = p
}

func (l *Ledger) remove(symbol string) {
	delete(l.positions, symbol)
	for i, s := range l.order {
		if s == symbol {
			l.order = append(l.order[:i], l.order[i+1:]...)
			return
		}
	}
}

// -----------------------------------------------------------------------------
// Derived quantities
// -----------------------------------------------------------------------------

// UnrealizedPnL is q x (current - avg) for a long and q x (avg - current) for a short.
func UnrealizedPnL(p models.MPosition) decimal.Decimal {
	switch p.Side {
	case models.SideLong:
		return p.Quantity.Mul(p.CurrentPrice.Sub(p.AveragePrice))
	case models.SideShort:
		return p.Quantity.Mul(p.AveragePrice.Sub(p.CurrentPrice))
	}
	return decimal.Zero
}

// UnrealizedPnLPercent is the P&L relative to the cost basis, in percent.
func UnrealizedPnLPercent(p models.MPosition) decimal.Decimal {
	basis := p.Quantity.Mul(p.AveragePrice)
	if basis.IsZero() {
		return decimal.Zero
	}
	return UnrealizedPnL(p).Div(basis).Mul(hundred).Round(4)
}
