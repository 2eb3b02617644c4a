package simulator

import (
	"math"
	"math/rand"
	"time"

	"paper-trader/src/models"
)

const (
	historyVolatility = 0.02
	tickVolatility    = 0.01
	minVolume         = 100000
	volumeSpan        = 1000000
)

// Generator produces random-walk candles. It is not safe for concurrent use.
type Generator struct {
	rnd        *rand.Rand
	volatility float64
}

func NewGenerator(rnd *rand.Rand, volatility float64) *Generator {
	if volatility <= 0 {
		volatility = historyVolatility
	}
	return &Generator{rnd: rnd, volatility: volatility}
}

// -----------------------------------------------------------------------------

// History returns count candles ending at now, spaced by step. The walk
// starts 10% under base with a slight upward bias.
func (g *Generator) History(base float64, count int, step time.Duration, now time.Time) []models.MCandle {
	out := make([]models.MCandle, 0, count)
	price := base * 0.9
	end := now.UnixMilli()
	for i := count - 1; i >= 0; i-- {
		trend := (g.rnd.Float64() - 0.49) * 0.005
		c := g.candle(price, trend, g.volatility)
		c.Timestamp = end - int64(i)*step.Milliseconds()
		out = append(out, c)
		price = c.Close
	}
	return out
}

// Next opens a new candle at the close of prev, one step later.
func (g *Generator) Next(prev models.MCandle, step time.Duration) models.MCandle {
	trend := (g.rnd.Float64() - 0.5) * 0.002
	c := g.candle(prev.Close, trend, tickVolatility)
	c.Timestamp = prev.Timestamp + step.Milliseconds()
	return c
}

// Update moves the close of the forming candle and widens its range to fit.
func (g *Generator) Update(last models.MCandle) models.MCandle {
	trend := (g.rnd.Float64() - 0.5) * 0.002
	moved := g.candle(last.Close, trend, tickVolatility)
	return models.MCandle{
		Timestamp: last.Timestamp,
		Open:      last.Open,
		High:      math.Max(last.High, moved.High),
		Low:       math.Min(last.Low, moved.Low),
		Close:     moved.Close,
		Volume:    last.Volume + float64(g.rnd.Intn(volumeSpan/100)),
	}
}

// NewCandle reports whether the next tick should open a candle.
func (g *Generator) NewCandle(probability float64) bool {
	return g.rnd.Float64() < probability
}

// -----------------------------------------------------------------------------

func (g *Generator) candle(open, trend, volatility float64) models.MCandle {
	high := open * (1 + g.rnd.Float64()*volatility)
	low := open * (1 - g.rnd.Float64()*volatility)
	closePrice := open * (1 + trend + (g.rnd.Float64()-0.5)*volatility)
	return models.MCandle{
		Open:   open,
		High:   math.Max(high, math.Max(open, closePrice)),
		Low:    math.Min(low, math.Min(open, closePrice)),
		Close:  closePrice,
		Volume: float64(minVolume + g.rnd.Intn(volumeSpan)),
	}
}
