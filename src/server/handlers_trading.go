package server

import (
	"net/http"
	"strings"

	"paper-trader/src/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// tradeRequest is the body of POST /api/trades. Price falls back to the last
// known market price when omitted.
type tradeRequest struct {
	Symbol     string           `json:"symbol" binding:"required"`
	Quantity   decimal.Decimal  `json:"quantity"`
	Price      *decimal.Decimal `json:"price"`
	Type       string           `json:"type" binding:"required"`
	StopLoss   *decimal.Decimal `json:"stop_loss"`
	TakeProfit *decimal.Decimal `json:"take_profit"`
}

type marketRequest struct {
	Market string `json:"market" binding:"required"`
	Symbol string `json:"symbol"`
}

// -----------------------------------------------------------------------------
// Portfolio
// -----------------------------------------------------------------------------

func (s *APIServer) getPortfolio(c *gin.Context) {
	c.JSON(http.StatusOK, currentAccount(c).Snapshot())
}

func (s *APIServer) getPerformance(c *gin.Context) {
	c.JSON(http.StatusOK, currentAccount(c).Performance())
}

// -----------------------------------------------------------------------------
// Trades
// -----------------------------------------------------------------------------

// postTrade answers 200 for both executed and rejected trades; a rejection
// carries executed=false, the reason and the unchanged portfolio.
func (s *APIServer) postTrade(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid trade: %v", err)
		return
	}
	side, err := models.ParseSide(req.Type)
	if err != nil {
		badRequest(c, "%v", err)
		return
	}
	asset, _, ok := s.Registry.Lookup(req.Symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol " + strings.ToUpper(req.Symbol)})
		return
	}

	price := s.Registry.Price(asset.Symbol)
	if req.Price != nil {
		price = *req.Price
	}
	if !price.IsPositive() {
		badRequest(c, "no price available for %s", asset.Symbol)
		return
	}

	acc := currentAccount(c)
	res, view := acc.Trade(models.MTradeIntent{
		Symbol:     asset.Symbol,
		Quantity:   req.Quantity,
		Price:      price,
		Side:       side,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
	})

	body := gin.H{
		"executed":  res.Executed,
		"action":    res.Action.String(),
		"portfolio": view,
	}
	if res.Err != nil {
		body["error"] = res.Err.Error()
	} else {
		s.Logger.Debug("Trade %s %s %s %s @ %s", res.Action, side, req.Quantity, asset.Symbol, price)
	}
	c.JSON(http.StatusOK, body)
}

func (s *APIServer) getTrades(c *gin.Context) {
	user := currentAccount(c).User()
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}
	limit, err := intQuery(c, "limit", 50)
	if err != nil {
		badRequest(c, "%v", err)
		return
	}
	trades := s.Trades.GetUserTrades(user.ID, limit)
	if trades == nil {
		trades = []models.MTrade{}
	}
	c.JSON(http.StatusOK, trades)
}

// -----------------------------------------------------------------------------
// Account
// -----------------------------------------------------------------------------

func (s *APIServer) resetAccount(c *gin.Context) {
	acc := currentAccount(c)
	acc.Reset()
	c.JSON(http.StatusOK, acc.Snapshot())
}

func (s *APIServer) selectMarket(c *gin.Context) {
	var req marketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "market is required")
		return
	}
	market, err := models.ParseMarket(req.Market)
	if err != nil {
		badRequest(c, "%v", err)
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol != "" {
		if _, m, ok := s.Registry.Lookup(symbol); !ok || m != market {
			badRequest(c, "%s is not listed on %s", symbol, market)
			return
		}
	}

	acc := currentAccount(c)
	acc.SelectMarket(market, symbol)
	market, symbol = acc.Market()
	c.JSON(http.StatusOK, gin.H{"market": market, "symbol": symbol})
}

// -----------------------------------------------------------------------------
// Watchlist
// -----------------------------------------------------------------------------

func (s *APIServer) getWatchlist(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"symbols": currentAccount(c).Watchlist()})
}

func (s *APIServer) addToWatchlist(c *gin.Context) {
	asset, _, ok := s.Registry.Lookup(c.Param("symbol"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol " + strings.ToUpper(c.Param("symbol"))})
		return
	}
	acc := currentAccount(c)
	added := acc.Watch(asset.Symbol)
	c.JSON(http.StatusOK, gin.H{"added": added, "symbols": acc.Watchlist()})
}

func (s *APIServer) removeFromWatchlist(c *gin.Context) {
	acc := currentAccount(c)
	removed := acc.Unwatch(c.Param("symbol"))
	c.JSON(http.StatusOK, gin.H{"removed": removed, "symbols": acc.Watchlist()})
}
