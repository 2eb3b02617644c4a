package utils

import "time"

const (
	// DefaultHistoryLength bounds every candle series.
	DefaultHistoryLength = 100

	// DefaultTradeHistoryLimit is the page size of the trade log.
	DefaultTradeHistoryLimit = 50
)

// -----------------------------------------------------------------------------

var timeframeDurations = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"1hr": time.Hour,
	"4hr": 4 * time.Hour,
	"1D":  24 * time.Hour,
	"1W":  7 * 24 * time.Hour,
	"1M":  30 * 24 * time.Hour,
}

var timeframeRefresh = map[string]time.Duration{
	"1m":  time.Second,
	"3m":  3 * time.Second,
	"5m":  5 * time.Second,
	"15m": 10 * time.Second,
	"1hr": 30 * time.Second,
	"4hr": time.Minute,
	"1D":  5 * time.Minute,
	"1W":  10 * time.Minute,
	"1M":  30 * time.Minute,
}

var binanceIntervals = map[string]string{
	"1m":  "1m",
	"3m":  "3m",
	"5m":  "5m",
	"15m": "15m",
	"1hr": "1h",
	"4hr": "4h",
	"1D":  "1d",
	"1W":  "1w",
	"1M":  "1M",
}

// TimeframeDuration is the span of one candle. Unknown timeframes count as one minute.
func TimeframeDuration(tf string) time.Duration {
	if d, ok := timeframeDurations[tf]; ok {
		return d
	}
	return time.Minute
}

// TimeframeRefresh is how often the live candle of a timeframe is updated.
// Coarser timeframes refresh less often; unknown ones every 5 seconds.
func TimeframeRefresh(tf string) time.Duration {
	if d, ok := timeframeRefresh[tf]; ok {
		return d
	}
	return 5 * time.Second
}

// BinanceInterval maps a chart timeframe to the exchange kline interval, defaulting to 1h.
func BinanceInterval(tf string) string {
	if iv, ok := binanceIntervals[tf]; ok {
		return iv
	}
	return "1h"
}

// IsKnownTimeframe reports whether tf is one of the chart timeframes.
func IsKnownTimeframe(tf string) bool {
	_, ok := timeframeDurations[tf]
	return ok
}
