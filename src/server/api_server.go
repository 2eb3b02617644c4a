package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"paper-trader/src/account"
	"paper-trader/src/auth"
	"paper-trader/src/interfaces"
	"paper-trader/src/logger"
	"paper-trader/src/models"
	"paper-trader/src/registry"
	"paper-trader/src/utils"

	"github.com/gin-gonic/gin"
)

// TradeHistory reads the persisted trades of a user.
type TradeHistory interface {
	GetUserTrades(userID string, limit int) []models.MTrade
}

// CandleSource serves candle series for charts.
type CandleSource interface {
	Subscribe(ctx context.Context, symbol, timeframe string, fn func([]models.MCandle)) (func(), error)
	Candles(ctx context.Context, symbol, timeframe string, limit int) ([]models.MCandle, error)
}

// Deps are the application services the API exposes.
type Deps struct {
	Accounts *account.Store
	Auth     *auth.Service
	Trades   TradeHistory
	Registry *registry.Registry
	Candles  CandleSource
	Tickers  interfaces.ITickerSource
	Markets  *utils.MarketScheduler
}

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	Deps
	engine     *gin.Engine
	httpServer *http.Server
	srvMu      sync.Mutex
	stopped    bool

	// WebSocket clients, owned by the hub loop
	clients    map[*Client]struct{}
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	clientsN   int
	countMu    sync.RWMutex

	unsubscribe []func()
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, deps Deps, log *logger.Logger) *APIServer {
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:  cfg,
		Logger:  log,
		Deps:    deps,
		engine:  gin.New(),
		clients: make(map[*Client]struct{}),
		// Buffered so that feed goroutines and account observers never wait on the hub
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger(), s.cors())
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	api := s.engine.Group("/api")

	api.GET("/health", s.getHealth)
	api.GET("/config", s.getConfig)
	api.GET("/markets/:market/assets", s.getAssets)
	api.GET("/markets/:market/status", s.getMarketStatus)
	api.GET("/candles", s.getCandles)
	api.GET("/chart-symbol", s.getChartSymbol)

	api.GET("/auth/oauth/google", s.oauthRedirect)

	session := api.Group("", s.session())
	session.POST("/auth/signup", s.signUp)
	session.POST("/auth/login", s.login)
	session.POST("/auth/logout", s.logout)
	session.GET("/auth/callback", s.oauthCallback)
	session.GET("/me", s.getMe)

	session.GET("/portfolio", s.getPortfolio)
	session.GET("/portfolio/performance", s.getPerformance)
	session.POST("/trades", s.postTrade)
	session.GET("/trades", s.getTrades)
	session.POST("/account/reset", s.resetAccount)
	session.PUT("/account/market", s.selectMarket)

	session.GET("/watchlist", s.getWatchlist)
	session.POST("/watchlist/:symbol", s.addToWatchlist)
	session.DELETE("/watchlist/:symbol", s.removeFromWatchlist)

	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router (tests, embedding).
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Run starts the hub and the push subscriptions without listening (tests).
func (s *APIServer) Run() {
	go s.handleWebsockets()

	for _, m := range s.Registry.Markets() {
		market := m
		s.unsubscribe = append(s.unsubscribe, s.Tickers.Subscribe(market, func(tickers []models.MTicker) {
			s.Broadcast(&models.MPushMessage{Type: models.MsgTickers, Market: market, Data: tickers})
		}))
	}
	s.unsubscribe = append(s.unsubscribe, s.Accounts.Subscribe(s.pushPortfolio))
}

// Start runs the hub and serves HTTP until Stop is called.
func (s *APIServer) Start() error {
	s.Run()

	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.srvMu.Lock()
	if s.stopped {
		s.srvMu.Unlock()
		return nil
	}
	s.httpServer = hs
	s.srvMu.Unlock()

	s.Logger.Info("Starting server on %s", addr)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop closes the listener, drops the push subscriptions and ends the hub.
func (s *APIServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		for _, fn := range s.unsubscribe {
			fn()
		}
		s.srvMu.Lock()
		s.stopped = true
		hs := s.httpServer
		s.srvMu.Unlock()
		if hs != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = hs.Shutdown(ctx)
		}
		close(s.done)
	})
	return err
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *APIServer) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if s.originAllowed(origin) && origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// originAllowed accepts the configured origins, or local development
// origins when none are configured. Requests without an Origin pass.
func (s *APIServer) originAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	if len(s.Config.AllowedOrigins) == 0 {
		return strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:")
	}
	for _, o := range s.Config.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (s *APIServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.countMu.RLock()
	connections := s.clientsN
	s.countMu.RUnlock()
	accounts, positions := s.Accounts.Stats()

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"connections":     connections,
		"accounts":        accounts,
		"open_positions":  positions,
		"any_market_open": s.Markets.AnyMarketOpen(),
		"timestamp":       time.Now().UnixMilli(),
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timeframes":      s.Config.Timeframes,
		"markets":         s.Registry.Markets(),
		"default_balance": s.Config.DefaultBalance,
		"oauth_enabled":   s.Auth.OAuthEnabled(),
	})
}
