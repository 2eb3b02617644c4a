// Package simulator generates synthetic candlestick series for charts and
// drives the equity prices, which have no live feed.
package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"paper-trader/src/logger"
	"paper-trader/src/models"
	"paper-trader/src/utils"

	"github.com/shopspring/decimal"
)

// basePrices is used when no live price is known for a symbol.
var basePrices = map[string]float64{
	"BTC":       43250,
	"ETH":       2650,
	"BNB":       285,
	"ADA":       0.485,
	"SOL":       98.75,
	"RELIANCE":  2450,
	"TCS":       3850,
	"INFY":      1650,
	"HDFCBANK":  1580,
	"ICICIBANK": 950,
}

const defaultBasePrice = 1000

// -----------------------------------------------------------------------------

// AssetLookup is the part of the asset registry the simulator reads.
type AssetLookup interface {
	Lookup(symbol string) (models.MAsset, models.Market, bool)
	Price(symbol string) decimal.Decimal
}

// KlineFetcher loads real history for crypto symbols.
type KlineFetcher interface {
	Klines(ctx context.Context, symbol, timeframe string, limit int) ([]models.MCandle, error)
}

// Publisher receives the ticker derived from every stock candle update.
type Publisher interface {
	Publish(market models.Market, tickers []models.MTicker)
}

// -----------------------------------------------------------------------------

type series struct {
	mu        sync.Mutex
	symbol    string
	market    models.Market
	timeframe string
	ring      *utils.CandleRing
	gen       *Generator
	listeners map[int]func([]models.MCandle)
	cancel    context.CancelFunc
}

// Simulator keeps one live series per (symbol, timeframe) shared by every
// subscriber of that pair. A series runs while it has subscribers.
type Simulator struct {
	Config    models.MSimulatorConfig
	Assets    AssetLookup
	Klines    KlineFetcher
	Publisher Publisher
	Logger    *logger.Logger

	newRand func() *rand.Rand
	now     func() time.Time
	refresh func(timeframe string) time.Duration

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	series    map[string]*series
	nextID    int
	tracked   []string
	isRunning atomic.Bool
}

func New(cfg models.MSimulatorConfig, assets AssetLookup, klines KlineFetcher, pub Publisher, log *logger.Logger) *Simulator {
	if cfg.HistoryLength <= 0 {
		cfg.HistoryLength = utils.DefaultHistoryLength
	}
	if cfg.NewCandleProb <= 0 {
		cfg.NewCandleProb = 0.1
	}
	return &Simulator{
		Config:    cfg,
		Assets:    assets,
		Klines:    klines,
		Publisher: pub,
		Logger:    log,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		now:     time.Now,
		refresh: utils.TimeframeRefresh,
		series:  make(map[string]*series),
	}
}

func (s *Simulator) Name() string          { return "simulator" }
func (s *Simulator) Market() models.Market { return models.MarketStocks }
func (s *Simulator) IsRealTime() bool      { return false }
func (s *Simulator) IsRunning() bool       { return s.isRunning.Load() }

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

func (s *Simulator) Start(parentCtx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning.Load() {
		return fmt.Errorf("source %s is already running", s.Name())
	}
	s.ctx, s.cancel = context.WithCancel(parentCtx)
	s.isRunning.Store(true)
	if len(s.tracked) > 0 {
		go s.trackAll(s.ctx, append([]string(nil), s.tracked...))
	}
	s.Logger.Info("Started candle simulator")
	return nil
}

// Stop ends every series. Subscribers stop receiving updates.
func (s *Simulator) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning.Load() {
		return nil
	}
	s.cancel()
	s.series = make(map[string]*series)
	s.isRunning.Store(false)
	s.Logger.Info("Stopped candle simulator")
	return nil
}

// -----------------------------------------------------------------------------
// Price tracking
// -----------------------------------------------------------------------------

// trackTimeframe is the series that keeps tracked symbols priced.
const trackTimeframe = "1m"

// Track keeps a series running for each symbol while the simulator runs, so
// that symbols without a live feed always carry a price. Call before Start.
func (s *Simulator) Track(symbols ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked = append(s.tracked, symbols...)
}

func (s *Simulator) trackAll(ctx context.Context, symbols []string) {
	for _, symbol := range symbols {
		sym := symbol
		var once sync.Once
		_, err := s.Subscribe(ctx, sym, trackTimeframe, func(candles []models.MCandle) {
			// Ticks publish on their own; only the initial history needs a push.
			once.Do(func() {
				if s.Publisher != nil && len(candles) > 0 {
					s.Publisher.Publish(models.MarketStocks, []models.MTicker{tickerFromSeries(sym, candles)})
				}
			})
		})
		if err != nil {
			s.Logger.Warning("Cannot track %s: %v", sym, err)
		}
	}
}

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

// Subscribe delivers the current series of symbol on timeframe to fn right
// away, then after every tick until the returned function is called or ctx ends.
func (s *Simulator) Subscribe(ctx context.Context, symbol, timeframe string, fn func([]models.MCandle)) (func(), error) {
	if !utils.IsKnownTimeframe(timeframe) {
		return nil, fmt.Errorf("unknown timeframe %q", timeframe)
	}
	_, market, ok := s.Assets.Lookup(symbol)
	if !ok {
		return nil, fmt.Errorf("unknown symbol %q", symbol)
	}
	if !s.isRunning.Load() {
		return nil, fmt.Errorf("simulator is not running")
	}

	key := symbol + "-" + timeframe
	var fresh *series
	for {
		sr, snapshot, id, err := s.attach(key, fresh, fn)
		if err != nil {
			return nil, err
		}
		if sr == nil {
			// History may hit the network; build it outside the lock.
			fresh = s.newSeries(ctx, symbol, market, timeframe)
			continue
		}
		fn(snapshot)

		var once sync.Once
		stop := make(chan struct{})
		unsubscribe := func() {
			once.Do(func() {
				close(stop)
				s.removeListener(key, sr, id)
			})
		}
		go func() {
			select {
			case <-ctx.Done():
				unsubscribe()
			case <-stop:
			}
		}()
		return unsubscribe, nil
	}
}

// attach adds fn to the live series under key, installing fresh when there is
// none. It returns a nil series when fresh is needed but was not supplied.
func (s *Simulator) attach(key string, fresh *series, fn func([]models.MCandle)) (*series, []models.MCandle, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil || s.ctx.Err() != nil {
		return nil, nil, 0, fmt.Errorf("simulator is not running")
	}
	sr, exists := s.series[key]
	if !exists {
		if fresh == nil {
			return nil, nil, 0, nil
		}
		sr = fresh
		s.series[key] = sr
		var runCtx context.Context
		runCtx, sr.cancel = context.WithCancel(s.ctx)
		go s.run(runCtx, sr)
	}

	id := s.nextID
	s.nextID++
	sr.mu.Lock()
	sr.listeners[id] = fn
	snapshot := sr.ring.GetAll()
	sr.mu.Unlock()
	return sr, snapshot, id, nil
}

// Candles returns up to limit candles of the live series, or a fresh
// history when nobody watches that pair.
func (s *Simulator) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]models.MCandle, error) {
	if !utils.IsKnownTimeframe(timeframe) {
		return nil, fmt.Errorf("unknown timeframe %q", timeframe)
	}
	_, market, ok := s.Assets.Lookup(symbol)
	if !ok {
		return nil, fmt.Errorf("unknown symbol %q", symbol)
	}
	if limit <= 0 || limit > s.Config.HistoryLength {
		limit = s.Config.HistoryLength
	}

	s.mu.Lock()
	sr, exists := s.series[symbol+"-"+timeframe]
	s.mu.Unlock()
	if exists {
		sr.mu.Lock()
		defer sr.mu.Unlock()
		return sr.ring.GetLatest(limit), nil
	}
	return s.newSeries(ctx, symbol, market, timeframe).ring.GetLatest(limit), nil
}

// -----------------------------------------------------------------------------

func (s *Simulator) removeListener(key string, sr *series, id int) {
	sr.mu.Lock()
	delete(sr.listeners, id)
	empty := len(sr.listeners) == 0
	sr.mu.Unlock()
	if !empty {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.series[key] == sr {
		sr.mu.Lock()
		if len(sr.listeners) == 0 {
			delete(s.series, key)
			if sr.cancel != nil {
				sr.cancel()
			}
		}
		sr.mu.Unlock()
	}
}

// -----------------------------------------------------------------------------

func (s *Simulator) newSeries(ctx context.Context, symbol string, market models.Market, timeframe string) *series {
	sr := &series{
		symbol:    symbol,
		market:    market,
		timeframe: timeframe,
		ring:      utils.NewCandleRing(s.Config.HistoryLength),
		gen:       NewGenerator(s.newRand(), s.Config.Volatility),
		listeners: make(map[int]func([]models.MCandle)),
	}

	var history []models.MCandle
	if market == models.MarketCrypto && s.Klines != nil {
		candles, err := s.Klines.Klines(ctx, symbol, timeframe, s.Config.HistoryLength)
		if err != nil {
			s.Logger.Warning("Kline history for %s failed, using synthetic candles: %v", symbol, err)
		} else {
			history = candles
		}
	}
	if len(history) == 0 {
		history = sr.gen.History(s.basePrice(symbol), s.Config.HistoryLength, utils.TimeframeDuration(timeframe), s.now())
	}
	for _, c := range history {
		sr.ring.Append(c)
	}
	return sr
}

func (s *Simulator) basePrice(symbol string) float64 {
	if p := s.Assets.Price(symbol); p.IsPositive() {
		return p.InexactFloat64()
	}
	if p, ok := basePrices[symbol]; ok {
		return p
	}
	return defaultBasePrice
}

// -----------------------------------------------------------------------------

func (s *Simulator) run(ctx context.Context, sr *series) {
	ticker := time.NewTicker(s.refresh(sr.timeframe))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.step(sr)
		}
	}
}

// step advances sr by one tick and notifies its listeners.
func (s *Simulator) step(sr *series) {
	sr.mu.Lock()
	last, ok := sr.ring.Last()
	if !ok {
		sr.mu.Unlock()
		return
	}
	if sr.gen.NewCandle(s.Config.NewCandleProb) {
		sr.ring.Append(sr.gen.Next(last, utils.TimeframeDuration(sr.timeframe)))
	} else {
		sr.ring.ReplaceLast(sr.gen.Update(last))
	}
	snapshot := sr.ring.GetAll()
	fns := make([]func([]models.MCandle), 0, len(sr.listeners))
	for _, fn := range sr.listeners {
		fns = append(fns, fn)
	}
	sr.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
	if sr.market == models.MarketStocks && s.Publisher != nil {
		s.Publisher.Publish(models.MarketStocks, []models.MTicker{tickerFromSeries(sr.symbol, snapshot)})
	}
}

// tickerFromSeries prices symbol at the last close, with the change measured
// against the first open of the series.
func tickerFromSeries(symbol string, candles []models.MCandle) models.MTicker {
	first := candles[0]
	last := candles[len(candles)-1]
	price := decimal.NewFromFloat(last.Close).Round(2)
	open := decimal.NewFromFloat(first.Open).Round(2)
	t := models.MTicker{
		Symbol: symbol,
		Price:  price,
		Change: price.Sub(open),
		Volume: decimal.NewFromFloat(last.Volume),
	}
	if open.IsPositive() {
		t.ChangePercent = t.Change.Div(open).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return t
}
