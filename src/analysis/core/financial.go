package core

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// -----------------------------------------------------------------------------

// CalculateChangePercent returns (current - previous) / previous in percent.
func CalculateChangePercent(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred)
}

// -----------------------------------------------------------------------------

// CalculateMaxDrawdownPct returns the largest peak-to-trough drop of series,
// in percent of the peak. A rising series has no drawdown.
func CalculateMaxDrawdownPct(series []decimal.Decimal) decimal.Decimal {
	worst := decimal.Zero
	if len(series) == 0 {
		return worst
	}
	peak := series[0]
	for _, v := range series[1:] {
		if v.GreaterThan(peak) {
			peak = v
			continue
		}
		if !peak.IsPositive() {
			continue
		}
		dd := peak.Sub(v).Div(peak).Mul(hundred)
		if dd.GreaterThan(worst) {
			worst = dd
		}
	}
	return worst
}

// -----------------------------------------------------------------------------

// CalculateStepReturns converts a value series into relative step changes.
// Steps from a non-positive value are skipped.
func CalculateStepReturns(series []decimal.Decimal) []float64 {
	if len(series) < 2 {
		return nil
	}
	out := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev := series[i-1]
		if !prev.IsPositive() {
			continue
		}
		out = append(out, series[i].Sub(prev).Div(prev).InexactFloat64())
	}
	return out
}
