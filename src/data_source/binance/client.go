// Package binance reads crypto tickers and klines from the Binance public API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"paper-trader/src/interfaces"
	"paper-trader/src/models"
	"paper-trader/src/utils"

	"github.com/shopspring/decimal"
)

const quoteAsset = "USDT"

// Client is the REST half of the Binance integration.
type Client struct {
	Network interfaces.INetworkManager
	RestURL string
}

func NewClient(netMgr interfaces.INetworkManager, restURL string) *Client {
	return &Client{Network: netMgr, RestURL: strings.TrimRight(restURL, "/")}
}

// -----------------------------------------------------------------------------

type ticker24h struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChange        string `json:"priceChange"`
	PriceChangePercent string `json:"priceChangePercent"`
	Volume             string `json:"volume"`
}

// Tickers24h returns the 24h statistics of the pairs in allow, with the quote
// asset stripped from the symbol.
func (c *Client) Tickers24h(ctx context.Context, allow map[string]struct{}) ([]models.MTicker, error) {
	body, err := c.Network.Get(ctx, c.RestURL+"/api/v3/ticker/24hr", nil)
	if err != nil {
		return nil, err
	}
	var rows []ticker24h
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}

	out := make([]models.MTicker, 0, len(allow))
	for _, r := range rows {
		if _, ok := allow[r.Symbol]; !ok {
			continue
		}
		t, err := newTicker(r.Symbol, r.LastPrice, r.PriceChange, r.PriceChangePercent, r.Volume)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// Klines returns up to limit candles of symbol (without quote asset) on timeframe.
// Rows are [openTime, open, high, low, close, volume, ...] with prices as strings.
func (c *Client) Klines(ctx context.Context, symbol, timeframe string, limit int) ([]models.MCandle, error) {
	params := map[string]string{
		"symbol":   strings.ToUpper(symbol) + quoteAsset,
		"interval": utils.BinanceInterval(timeframe),
		"limit":    strconv.Itoa(limit),
	}
	body, err := c.Network.Get(ctx, c.RestURL+"/api/v3/klines", params)
	if err != nil {
		return nil, err
	}
	var rows [][]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}

	out := make([]models.MCandle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		out = append(out, models.MCandle{
			Timestamp: toInt64(row[0]),
			Open:      toF64(row[1]),
			High:      toF64(row[2]),
			Low:       toF64(row[3]),
			Close:     toF64(row[4]),
			Volume:    toF64(row[5]),
		})
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func newTicker(pair, price, change, changePct, volume string) (models.MTicker, error) {
	t := models.MTicker{Symbol: strings.TrimSuffix(pair, quoteAsset)}
	var err error
	if t.Price, err = decimal.NewFromString(price); err != nil {
		return t, err
	}
	t.Change, _ = decimal.NewFromString(change)
	t.ChangePercent, _ = decimal.NewFromString(changePct)
	t.Volume, _ = decimal.NewFromString(volume)
	return t, nil
}

// PairSet builds the allow-list lookup from pair symbols like "BTCUSDT".
func PairSet(pairs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		set[strings.ToUpper(p)] = struct{}{}
	}
	return set
}

func toF64(v any) float64 {
	switch t := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case float64:
		return t
	}
	return 0
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		i, _ := strconv.ParseInt(t, 10, 64)
		return i
	}
	return 0
}
