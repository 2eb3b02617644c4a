package datasource

import (
	"sync"

	"paper-trader/src/models"
)

// TickerHub fans ticker batches out to the subscribers of a market.
type TickerHub struct {
	mu     sync.RWMutex
	subs   map[models.Market]map[int]func([]models.MTicker)
	nextID int
}

func NewTickerHub() *TickerHub {
	return &TickerHub{subs: make(map[models.Market]map[int]func([]models.MTicker))}
}

// -----------------------------------------------------------------------------

// Subscribe registers fn for market and returns the function that removes it.
func (h *TickerHub) Subscribe(market models.Market, fn func([]models.MTicker)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[market] == nil {
		h.subs[market] = make(map[int]func([]models.MTicker))
	}
	h.subs[market][id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[market], id)
			h.mu.Unlock()
		})
	}
}

// -----------------------------------------------------------------------------

// Publish delivers tickers to every subscriber of market, in the caller's goroutine.
func (h *TickerHub) Publish(market models.Market, tickers []models.MTicker) {
	if len(tickers) == 0 {
		return
	}
	h.mu.RLock()
	fns := make([]func([]models.MTicker), 0, len(h.subs[market]))
	for _, fn := range h.subs[market] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(tickers)
	}
}

// Subscribers returns the number of subscribers of market.
func (h *TickerHub) Subscribers(market models.Market) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[market])
}
