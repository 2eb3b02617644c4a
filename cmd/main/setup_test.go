package main

import (
	"testing"

	datasource "paper-trader/src/data_source"
	"paper-trader/src/data_source/binance"
	"paper-trader/src/models"
	"paper-trader/src/registry"

	"github.com/shopspring/decimal"
)

type markRecorder struct {
	marks []map[string]decimal.Decimal
}

func (m *markRecorder) MarkAll(prices map[string]decimal.Decimal) {
	m.marks = append(m.marks, prices)
}

type mirrorRecorder struct {
	rows [][]models.MMarketData
}

func (m *mirrorRecorder) NotifyMarketData(rows []models.MMarketData) bool {
	m.rows = append(m.rows, rows)
	return true
}

// -----------------------------------------------------------------------------

func TestPlaceholderTickersStayOutOfAccountsAndDatabase(t *testing.T) {
	hub := datasource.NewTickerHub()
	reg := registry.New()
	reg.ApplyTickers([]models.MTicker{{Symbol: "BTC", Price: decimal.NewFromInt(61000)}})
	marks := &markRecorder{}
	mirror := &mirrorRecorder{}
	wirePrices(hub, reg, marks, mirror, true)

	hub.Publish(models.MarketCrypto, binance.FallbackTickers())

	if len(marks.marks) != 0 || len(mirror.rows) != 0 {
		t.Fatalf("placeholder batch reached accounts or database: %v / %v", marks.marks, mirror.rows)
	}
	if !reg.Price("BTC").Equal(decimal.NewFromInt(61000)) {
		t.Errorf("placeholder replaced the restored BTC price: %s", reg.Price("BTC"))
	}
	if !reg.Price("ETH").IsPositive() {
		t.Error("unpriced ETH should take the placeholder for display")
	}
}

func TestLiveTickersMarkAndMirror(t *testing.T) {
	hub := datasource.NewTickerHub()
	reg := registry.New()
	marks := &markRecorder{}
	mirror := &mirrorRecorder{}
	wirePrices(hub, reg, marks, mirror, true)

	hub.Publish(models.MarketCrypto, []models.MTicker{
		{Symbol: "ETH", Price: decimal.NewFromInt(2700)},
		{Symbol: "LINK", Price: decimal.NewFromInt(15)},
	})

	if len(marks.marks) != 1 || !marks.marks[0]["ETH"].Equal(decimal.NewFromInt(2700)) {
		t.Fatalf("unexpected marks %v", marks.marks)
	}
	if len(mirror.rows) != 1 || len(mirror.rows[0]) != 1 || mirror.rows[0][0].Symbol != "ETH" {
		t.Errorf("unexpected mirrored rows %+v", mirror.rows)
	}
}

func TestMirrorCanBeDisabled(t *testing.T) {
	hub := datasource.NewTickerHub()
	marks := &markRecorder{}
	mirror := &mirrorRecorder{}
	wirePrices(hub, registry.New(), marks, mirror, false)

	hub.Publish(models.MarketCrypto, []models.MTicker{{Symbol: "BTC", Price: decimal.NewFromInt(60000)}})

	if len(marks.marks) != 1 || len(mirror.rows) != 0 {
		t.Errorf("expected a mark without a mirror, got %d/%d", len(marks.marks), len(mirror.rows))
	}
}
