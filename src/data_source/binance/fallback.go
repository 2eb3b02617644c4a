package binance

import (
	"paper-trader/src/models"

	"github.com/shopspring/decimal"
)

// FallbackTickers is the static snapshot broadcast when the exchange is
// unreachable. Every row is flagged Fallback.
func FallbackTickers() []models.MTicker {
	rows := [][5]string{
		{"BTC", "43250.50", "1250.30", "2.98", "28547.32"},
		{"ETH", "2650.75", "-45.20", "-1.68", "156789.45"},
		{"BNB", "285.40", "8.90", "3.22", "45632.18"},
		{"ADA", "0.485", "0.015", "3.19", "2547896.32"},
		{"SOL", "98.75", "-2.40", "-2.37", "89456.78"},
	}
	out := make([]models.MTicker, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.MTicker{
			Symbol:        r[0],
			Price:         decimal.RequireFromString(r[1]),
			Change:        decimal.RequireFromString(r[2]),
			ChangePercent: decimal.RequireFromString(r[3]),
			Volume:        decimal.RequireFromString(r[4]),
			Fallback:      true,
		})
	}
	return out
}
