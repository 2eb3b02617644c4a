package analysis

import (
	"testing"

	"paper-trader/src/analysis/core"
	"paper-trader/src/ledger"
	"paper-trader/src/models"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPerformanceOfLosingLong(t *testing.T) {
	l := ledger.New(d("100000"))
	l.ExecuteTrade(models.MTradeIntent{Symbol: "BTC", Quantity: d("1"), Price: d("40000"), Side: models.SideLong})
	l.MarkToMarket(map[string]decimal.Decimal{"BTC": d("30000")})

	perf := Performance(d("100000"), l.Snapshot())

	if !perf.TotalEquity.Equal(d("90000")) {
		t.Errorf("expected equity 90000, got %s", perf.TotalEquity)
	}
	if !perf.TotalReturnPct.Equal(d("-10")) {
		t.Errorf("expected return -10%%, got %s", perf.TotalReturnPct)
	}
	if !perf.MaxDrawdownPct.Equal(d("10")) {
		t.Errorf("expected drawdown 10%%, got %s", perf.MaxDrawdownPct)
	}
	if !perf.UnrealizedPnL.Equal(d("-10000")) || perf.LosingPositions != 1 || perf.WinningPositions != 0 {
		t.Errorf("unexpected position stats: %+v", perf)
	}
	if perf.Snapshots != 1 {
		t.Errorf("expected 1 snapshot, got %d", perf.Snapshots)
	}
}

func TestPerformanceOfUntouchedAccount(t *testing.T) {
	perf := Performance(d("100000"), ledger.New(d("100000")).Snapshot())
	if !perf.TotalReturn.IsZero() || !perf.MaxDrawdownPct.IsZero() || !perf.VolatilityPct.IsZero() {
		t.Errorf("fresh account should be flat, got %+v", perf)
	}
}

func TestPerformanceIgnoresCashMovedIntoPositions(t *testing.T) {
	l := ledger.New(d("100000"))
	l.ExecuteTrade(models.MTradeIntent{Symbol: "BTC", Quantity: d("1"), Price: d("40000"), Side: models.SideLong})
	l.ExecuteTrade(models.MTradeIntent{Symbol: "ETH", Quantity: d("10"), Price: d("2000"), Side: models.SideLong})

	perf := Performance(d("100000"), l.Snapshot())
	if !perf.MaxDrawdownPct.IsZero() || !perf.VolatilityPct.IsZero() {
		t.Errorf("buys at market should not draw down, got %+v", perf)
	}
	if !perf.TotalReturn.IsZero() || perf.Snapshots != 2 {
		t.Errorf("unexpected return or snapshot count %+v", perf)
	}
}

func TestPerformanceOfFlatShort(t *testing.T) {
	l := ledger.New(d("100000"))
	l.ExecuteTrade(models.MTradeIntent{Symbol: "BTC", Quantity: d("2"), Price: d("40000"), Side: models.SideShort})

	perf := Performance(d("100000"), l.Snapshot())
	if !perf.TotalEquity.Equal(d("100000")) || !perf.TotalReturn.IsZero() || !perf.TotalReturnPct.IsZero() {
		t.Errorf("flat short should have no return, got %+v", perf)
	}

	l.MarkToMarket(map[string]decimal.Decimal{"BTC": d("44000")})
	perf = Performance(d("100000"), l.Snapshot())
	if !perf.TotalReturn.Equal(d("-8000")) || !perf.MaxDrawdownPct.Equal(d("8")) {
		t.Errorf("short against a rising price should lose 8%%, got %+v", perf)
	}
}

func TestMaxDrawdownTracksPeak(t *testing.T) {
	series := []decimal.Decimal{d("100"), d("120"), d("90"), d("110"), d("60")}
	if got := core.CalculateMaxDrawdownPct(series); !got.Equal(d("50")) {
		t.Errorf("expected 50%% drawdown, got %s", got)
	}
}

func TestMeanStd(t *testing.T) {
	mean, std := core.CalculateMeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 || std != 2 {
		t.Errorf("expected 5/2, got %v/%v", mean, std)
	}
}

func TestChangePercentZeroBase(t *testing.T) {
	if got := core.CalculateChangePercent(d("10"), decimal.Zero); !got.IsZero() {
		t.Errorf("expected 0, got %s", got)
	}
}
