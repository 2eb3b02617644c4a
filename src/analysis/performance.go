// Package analysis derives account performance figures from a portfolio snapshot.
package analysis

import (
	"paper-trader/src/analysis/core"
	"paper-trader/src/models"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------

// Performance summarises view against the balance the account started with.
// Returns, drawdown and volatility use net equity, so cash moved into a long
// is not a loss and proceeds from a short are not a gain. The series starts at
// initial, follows the net equity after each trade and closes on the current
// net equity.
func Performance(initial decimal.Decimal, view models.MPortfolioView) models.MPerformance {
	perf := models.MPerformance{
		InitialBalance: initial,
		TotalEquity:    view.NetEquity,
		TotalReturn:    view.NetEquity.Sub(initial),
		TotalReturnPct: core.CalculateChangePercent(view.NetEquity, initial).Round(4),
		Snapshots:      len(view.EquityCurve),
	}

	series := make([]decimal.Decimal, 0, len(view.NetEquityCurve)+2)
	series = append(series, initial)
	series = append(series, view.NetEquityCurve...)
	series = append(series, view.NetEquity)
	perf.MaxDrawdownPct = core.CalculateMaxDrawdownPct(series).Round(4)

	_, std := core.CalculateMeanStd(core.CalculateStepReturns(series))
	perf.VolatilityPct = decimal.NewFromFloat(std * 100).Round(4)

	perf.UnrealizedPnL = decimal.Zero
	for _, p := range view.Positions {
		perf.UnrealizedPnL = perf.UnrealizedPnL.Add(p.UnrealizedPnL)
		switch {
		case p.UnrealizedPnL.IsPositive():
			perf.WinningPositions++
		case p.UnrealizedPnL.IsNegative():
			perf.LosingPositions++
		}
	}
	return perf
}
