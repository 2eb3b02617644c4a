package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"paper-trader/src/logger"
	"paper-trader/src/models"

	"github.com/gorilla/websocket"
)

// Publisher receives ticker batches for a market.
type Publisher interface {
	Publish(market models.Market, tickers []models.MTicker)
}

// streamTicker is one element of the !ticker@arr payload.
type streamTicker struct {
	Symbol        string `json:"s"`
	Price         string `json:"c"`
	Change        string `json:"p"`
	ChangePercent string `json:"P"`
	Volume        string `json:"v"`
	// CloseTime is declared so that "C" is not folded into "c" by the decoder.
	CloseTime int64 `json:"C"`
}

// -----------------------------------------------------------------------------

// Source is the live crypto feed: a periodic 24h snapshot plus the ticker stream.
type Source struct {
	Config    models.MBinanceConfig
	Client    *Client
	Publisher Publisher
	Logger    *logger.Logger

	allow       map[string]struct{}
	dialer      *websocket.Dialer
	backoffUnit time.Duration

	mu           sync.Mutex
	cancelFunc   context.CancelFunc
	wg           sync.WaitGroup
	isRunning    atomic.Bool
	fallbackSent atomic.Bool
	connections  atomic.Int32
}

func NewSource(cfg models.MBinanceConfig, client *Client, pairs []string, pub Publisher, log *logger.Logger) *Source {
	if len(cfg.AllowList) > 0 {
		pairs = cfg.AllowList
	}
	return &Source{
		Config:      cfg,
		Client:      client,
		Publisher:   pub,
		Logger:      log,
		allow:       PairSet(pairs),
		dialer:      websocket.DefaultDialer,
		backoffUnit: time.Second,
	}
}

func (s *Source) Name() string          { return "binance" }
func (s *Source) Market() models.Market { return models.MarketCrypto }
func (s *Source) IsRealTime() bool      { return true }
func (s *Source) IsRunning() bool       { return s.isRunning.Load() }
func (s *Source) Connections() int      { return int(s.connections.Load()) }

// -----------------------------------------------------------------------------

func (s *Source) Start(parentCtx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning.Load() {
		return fmt.Errorf("source %s is already running", s.Name())
	}
	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel
	s.isRunning.Store(true)

	s.wg.Add(1)
	go s.pollLoop(ctx)
	if s.Config.StreamURL != "" {
		s.wg.Add(1)
		go s.streamLoop(ctx)
	}
	s.Logger.Info("Started Binance feed (%d pairs)", len(s.allow))
	return nil
}

// Stop cancels both loops and waits for them to exit.
func (s *Source) Stop() error {
	s.mu.Lock()
	if !s.isRunning.Load() {
		s.mu.Unlock()
		return nil
	}
	s.cancelFunc()
	s.isRunning.Store(false)
	s.mu.Unlock()

	s.wg.Wait()
	s.Logger.Info("Stopped Binance feed")
	return nil
}

// -----------------------------------------------------------------------------
// Snapshot polling
// -----------------------------------------------------------------------------

func (s *Source) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	interval := time.Duration(s.Config.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Poll(ctx)
		}
	}
}

// Poll fetches one snapshot and publishes it. On failure the fallback snapshot
// is published once until the exchange answers again.
func (s *Source) Poll(ctx context.Context) {
	tickers, err := s.Client.Tickers24h(ctx, s.allow)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.Logger.Warning("Ticker snapshot failed: %v", err)
		if !s.fallbackSent.Swap(true) {
			s.Logger.Info("Publishing fallback crypto prices")
			s.Publisher.Publish(models.MarketCrypto, FallbackTickers())
		}
		return
	}
	s.fallbackSent.Store(false)
	s.Publisher.Publish(models.MarketCrypto, tickers)
}

// -----------------------------------------------------------------------------
// Ticker stream
// -----------------------------------------------------------------------------

// streamLoop reconnects with a 2^attempt backoff and gives up after
// MaxReconnects consecutive failures. A successful connection resets the count.
func (s *Source) streamLoop(ctx context.Context) {
	defer s.wg.Done()

	maxAttempts := s.Config.MaxReconnects
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	attempts := 0
	for {
		connected, err := s.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			attempts = 0
		}
		if err != nil {
			s.Logger.Warning("Ticker stream closed: %v", err)
		}

		attempts++
		if attempts > maxAttempts {
			s.Logger.Error("Ticker stream gave up after %d reconnect attempts", maxAttempts)
			return
		}
		delay := time.Duration(1<<attempts) * s.backoffUnit
		s.Logger.Info("Reconnecting ticker stream in %v (attempt %d/%d)", delay, attempts, maxAttempts)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (s *Source) stream(ctx context.Context) (bool, error) {
	url := strings.TrimRight(s.Config.StreamURL, "/") + "/ws/!ticker@arr"
	conn, _, err := s.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return false, err
	}
	s.connections.Add(1)
	s.Logger.Info("Ticker stream connected")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		var rows []streamTicker
		if err := json.Unmarshal(msg, &rows); err != nil {
			s.Logger.Debug("Ignoring stream frame: %v", err)
			continue
		}
		tickers := make([]models.MTicker, 0, len(s.allow))
		for _, r := range rows {
			if _, ok := s.allow[r.Symbol]; !ok {
				continue
			}
			t, err := newTicker(r.Symbol, r.Price, r.Change, r.ChangePercent, r.Volume)
			if err != nil {
				continue
			}
			tickers = append(tickers, t)
		}
		if len(tickers) > 0 {
			s.Publisher.Publish(models.MarketCrypto, tickers)
		}
	}
}
