package models

// MFeedStatus describes one market data feed as reported by the feed manager.
type MFeedStatus struct {
	Name       string `json:"name"`
	Market     Market `json:"market"`
	IsRunning  bool   `json:"is_running"`
	IsRealTime bool   `json:"is_real_time"`
}

// MMarketStatus tells whether a market currently accepts orders at live prices.
type MMarketStatus struct {
	Market   Market `json:"market"`
	Open     bool   `json:"open"`
	Calendar string `json:"calendar"`
	Timezone string `json:"timezone"`
	Checked  int64  `json:"checked_at"`
}
