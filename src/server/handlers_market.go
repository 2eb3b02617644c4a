package server

import (
	"net/http"
	"strings"

	"paper-trader/src/registry"
	"paper-trader/src/utils"

	"github.com/gin-gonic/gin"
)

func (s *APIServer) getAssets(c *gin.Context) {
	market, ok := marketParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"market": market, "assets": s.Registry.Assets(market)})
}

func (s *APIServer) getMarketStatus(c *gin.Context) {
	market, ok := marketParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Markets.Status(market))
}

// -----------------------------------------------------------------------------

func (s *APIServer) getCandles(c *gin.Context) {
	symbol := strings.ToUpper(c.Query("symbol"))
	timeframe := c.DefaultQuery("timeframe", "1m")
	limit, err := intQuery(c, "limit", utils.DefaultHistoryLength)
	if err != nil {
		badRequest(c, "%v", err)
		return
	}

	candles, err := s.Candles.Candles(c.Request.Context(), symbol, timeframe, limit)
	if err != nil {
		badRequest(c, "%v", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "timeframe": timeframe, "candles": candles})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getChartSymbol(c *gin.Context) {
	symbol := c.Query("symbol")
	_, market, ok := s.Registry.Lookup(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol"})
		return
	}
	chart, err := registry.ChartSymbol(symbol, market)
	if err != nil {
		badRequest(c, "%v", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": strings.ToUpper(symbol), "market": market, "chart_symbol": chart})
}
