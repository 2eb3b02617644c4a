package utils

import (
	"sync"
	"time"

	"paper-trader/src/logger"
	"paper-trader/src/models"
)

// MarketScheduler answers "is this market open" for every market the service trades.
type MarketScheduler struct {
	Calendars map[models.Market]*TradingCalendar
	Logger    *logger.Logger
	now       func() time.Time
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(markets []models.Market, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Calendars: make(map[models.Market]*TradingCalendar),
		Logger:    l,
		now:       time.Now,
	}
	for _, m := range markets {
		ms.Calendars[m] = GetCalendar(m)
	}
	ms.Logger.Info("MarketScheduler: Mapped %d markets to calendars.", len(ms.Calendars))
	return ms
}

// -----------------------------------------------------------------------------

// SetClock replaces the time source (tests).
func (ms *MarketScheduler) SetClock(now func() time.Time) {
	ms.mu.Lock()
	ms.now = now
	ms.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Status reports whether market is open right now. Unknown markets are closed.
func (ms *MarketScheduler) Status(market models.Market) models.MMarketStatus {
	ms.mu.RLock()
	cal, ok := ms.Calendars[market]
	now := ms.now()
	ms.mu.RUnlock()

	status := models.MMarketStatus{Market: market, Checked: now.UnixMilli()}
	if !ok {
		return status
	}
	status.Open = cal.IsOpenOnMinute(now)
	status.Calendar = cal.MIC
	if cal.Timezone != nil {
		status.Timezone = cal.Timezone.String()
	}
	return status
}

// -----------------------------------------------------------------------------

// AnyMarketOpen checks if ANY tracked markets are currently open
func (ms *MarketScheduler) AnyMarketOpen() bool {
	ms.mu.RLock()
	markets := make([]models.Market, 0, len(ms.Calendars))
	for m := range ms.Calendars {
		markets = append(markets, m)
	}
	ms.mu.RUnlock()

	for _, m := range markets {
		if ms.Status(m).Open {
			return true
		}
	}
	return false
}
