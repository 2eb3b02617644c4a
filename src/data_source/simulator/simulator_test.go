package simulator

import (
	"context"
	"errors"
	"math/rand"
	"runtime"
	"sync"
	"testing"
	"time"

	"paper-trader/src/logger"
	"paper-trader/src/models"
	"paper-trader/src/registry"

	"github.com/shopspring/decimal"
)

type fakeKlines struct {
	candles []models.MCandle
	err     error
	calls   int
}

func (f *fakeKlines) Klines(ctx context.Context, symbol, timeframe string, limit int) ([]models.MCandle, error) {
	f.calls++
	return f.candles, f.err
}

type tickerRecorder struct {
	mu      sync.Mutex
	tickers []models.MTicker
}

func (r *tickerRecorder) Publish(market models.Market, tickers []models.MTicker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickers = append(r.tickers, tickers...)
}

func newTestSimulator(klines KlineFetcher, pub Publisher) *Simulator {
	s := New(models.MSimulatorConfig{HistoryLength: 100, Volatility: 0.02, NewCandleProb: 0.1},
		registry.New(), klines, pub, logger.NewLogger("simulator-test"))
	s.newRand = func() *rand.Rand { return rand.New(rand.NewSource(42)) }
	s.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	s.refresh = func(string) time.Duration { return time.Hour }
	return s
}

func checkOHLC(t *testing.T, candles []models.MCandle) {
	t.Helper()
	for i, c := range candles {
		if c.High < c.Open || c.High < c.Close || c.Low > c.Open || c.Low > c.Close {
			t.Fatalf("candle %d breaks OHLC bounds: %+v", i, c)
		}
		if c.Volume < minVolume {
			t.Fatalf("candle %d volume too low: %v", i, c.Volume)
		}
	}
}

// -----------------------------------------------------------------------------

func TestHistoryShape(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(1)), 0.02)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	h := g.History(1000, 100, time.Minute, now)

	if len(h) != 100 {
		t.Fatalf("expected 100 candles, got %d", len(h))
	}
	if h[0].Open != 900 {
		t.Errorf("walk should start 10%% under base, got %v", h[0].Open)
	}
	if h[99].Timestamp != now.UnixMilli() || h[1].Timestamp-h[0].Timestamp != 60000 {
		t.Errorf("timestamps not spaced by timeframe: %d %d", h[0].Timestamp, h[1].Timestamp)
	}
	for i := 1; i < len(h); i++ {
		if h[i].Open != h[i-1].Close {
			t.Fatalf("candle %d does not open at the previous close", i)
		}
	}
	checkOHLC(t, h)
}

func TestStepKeepsSeriesBounded(t *testing.T) {
	s := newTestSimulator(nil, nil)
	s.Config.NewCandleProb = 1
	sr := s.newSeries(context.Background(), "TCS", models.MarketStocks, "5m")

	first, _ := sr.ring.Last()
	for i := 0; i < 150; i++ {
		s.step(sr)
	}
	all := sr.ring.GetAll()
	if len(all) != 100 {
		t.Fatalf("series should stay at 100 candles, got %d", len(all))
	}
	last := all[len(all)-1]
	if last.Timestamp != first.Timestamp+150*5*60*1000 {
		t.Errorf("new candles should advance one step each, got %d", last.Timestamp)
	}
	checkOHLC(t, all)
}

func TestStepUpdatesFormingCandle(t *testing.T) {
	s := newTestSimulator(nil, nil)
	s.Config.NewCandleProb = 0.0000001
	sr := s.newSeries(context.Background(), "INFY", models.MarketStocks, "1m")

	before, _ := sr.ring.Last()
	s.step(sr)
	after, _ := sr.ring.Last()
	if sr.ring.Size() != 100 || after.Timestamp != before.Timestamp || after.Open != before.Open {
		t.Errorf("expected the last candle to be updated in place: %+v -> %+v", before, after)
	}
	checkOHLC(t, []models.MCandle{after})
}

func TestBasePriceFallbacks(t *testing.T) {
	s := newTestSimulator(nil, nil)
	reg := s.Assets.(*registry.Registry)
	reg.ApplyTickers([]models.MTicker{{Symbol: "ETH", Price: decimal.NewFromInt(3000)}})

	if got := s.basePrice("ETH"); got != 3000 {
		t.Errorf("live price should win, got %v", got)
	}
	if got := s.basePrice("RELIANCE"); got != 2450 {
		t.Errorf("expected static price, got %v", got)
	}
	if got := s.basePrice("DOGE"); got != defaultBasePrice {
		t.Errorf("expected default price, got %v", got)
	}
}

func TestCryptoHistoryFromKlines(t *testing.T) {
	k := &fakeKlines{candles: []models.MCandle{{Timestamp: 1, Open: 1, High: 2, Low: 1, Close: 2, Volume: 5}}}
	s := newTestSimulator(k, nil)

	got, err := s.Candles(context.Background(), "BTC", "1hr", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Close != 2 {
		t.Errorf("expected kline history, got %+v", got)
	}

	k.err = errors.New("offline")
	got, _ = s.Candles(context.Background(), "BTC", "1hr", 10)
	if len(got) != 10 {
		t.Errorf("expected synthetic fallback of 10 candles, got %d", len(got))
	}

	got, _ = s.Candles(context.Background(), "TCS", "1hr", 0)
	if k.calls != 2 || len(got) != 100 {
		t.Errorf("stocks must not hit the kline source, calls=%d len=%d", k.calls, len(got))
	}
}

func TestSubscribeSharesSeriesAndPublishesStockPrices(t *testing.T) {
	rec := &tickerRecorder{}
	s := newTestSimulator(nil, rec)
	ctx := context.Background()

	if _, err := s.Subscribe(ctx, "TCS", "1m", func([]models.MCandle) {}); err == nil {
		t.Fatal("subscribe before start should fail")
	}
	s.Start(ctx)
	defer s.Stop()

	if _, err := s.Subscribe(ctx, "NOPE", "1m", func([]models.MCandle) {}); err == nil {
		t.Error("unknown symbol should fail")
	}
	if _, err := s.Subscribe(ctx, "TCS", "2m", func([]models.MCandle) {}); err == nil {
		t.Error("unknown timeframe should fail")
	}

	var mu sync.Mutex
	deliveries := map[string]int{}
	listener := func(name string) func([]models.MCandle) {
		return func(c []models.MCandle) {
			mu.Lock()
			deliveries[name]++
			mu.Unlock()
		}
	}
	unsubA, err := s.Subscribe(ctx, "TCS", "1m", listener("a"))
	if err != nil {
		t.Fatal(err)
	}
	unsubB, _ := s.Subscribe(ctx, "TCS", "1m", listener("b"))
	if len(s.series) != 1 {
		t.Fatalf("subscribers of one pair should share a series, got %d", len(s.series))
	}
	if deliveries["a"] != 1 || deliveries["b"] != 1 {
		t.Errorf("history should be delivered on subscribe: %v", deliveries)
	}

	s.step(s.series["TCS-1m"])
	if deliveries["a"] != 2 || deliveries["b"] != 2 {
		t.Errorf("tick should reach every listener: %v", deliveries)
	}
	if len(rec.tickers) != 1 || rec.tickers[0].Symbol != "TCS" || !rec.tickers[0].Price.IsPositive() {
		t.Errorf("stock tick should publish a price, got %+v", rec.tickers)
	}

	unsubA()
	unsubA()
	if len(s.series) != 1 {
		t.Error("series must survive while it has listeners")
	}
	unsubB()
	if len(s.series) != 0 {
		t.Error("series without listeners should be dropped")
	}
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	s := newTestSimulator(nil, nil)
	s.Start(context.Background())
	defer s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := s.Subscribe(ctx, "ETH", "1D", func([]models.MCandle) {}); err != nil {
		t.Fatal(err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		n := len(s.series)
		s.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("cancelled subscription should release its series")
}

func TestUnsubscribeReleasesContextWatcher(t *testing.T) {
	s := newTestSimulator(nil, nil)
	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop()

	// Hold the series open so repeated subscriptions reuse it.
	hold, err := s.Subscribe(ctx, "TCS", "1m", func([]models.MCandle) {})
	if err != nil {
		t.Fatal(err)
	}
	defer hold()
	baseline := runtime.NumGoroutine()

	for i := 0; i < 50; i++ {
		unsub, err := s.Subscribe(ctx, "TCS", "1m", func([]models.MCandle) {})
		if err != nil {
			t.Fatal(err)
		}
		unsub()
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= baseline {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("goroutines grew from %d to %d after unsubscribing", baseline, runtime.NumGoroutine())
}

func TestTrackedSymbolsArePricedOnStart(t *testing.T) {
	rec := &tickerRecorder{}
	s := newTestSimulator(nil, rec)
	s.Track("INFY", "HDFCBANK")
	s.Start(context.Background())
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec.mu.Lock()
		n := len(rec.tickers)
		rec.mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.tickers) != 2 || rec.tickers[0].Symbol != "INFY" || rec.tickers[1].Symbol != "HDFCBANK" {
		t.Fatalf("tracked symbols should publish their history price, got %+v", rec.tickers)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.series) != 2 {
		t.Errorf("tracked series should keep running, got %d", len(s.series))
	}
}
