package main

import (
	"context"
	"fmt"
	"time"

	"paper-trader/src/account"
	"paper-trader/src/auth"
	"paper-trader/src/config"
	datasource "paper-trader/src/data_source"
	"paper-trader/src/data_source/binance"
	"paper-trader/src/data_source/simulator"
	"paper-trader/src/gateway"
	pb "paper-trader/src/grpc_control"
	"paper-trader/src/interfaces"
	"paper-trader/src/logger"
	"paper-trader/src/models"
	"paper-trader/src/network"
	"paper-trader/src/registry"
	"paper-trader/src/server"
	"paper-trader/src/session"
	"paper-trader/src/storage"
	"paper-trader/src/utils"

	"github.com/shopspring/decimal"
)

// App holds every long-lived component of the server process.
type App struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            interfaces.IDatabase
	Gateway       *gateway.Gateway
	closeSessions func() error
	Accounts      *account.Store
	Registry      *registry.Registry
	Tickers       *datasource.TickerHub
	Feeds         *datasource.MultiSourceManager
	API           interfaces.IDataExchanger
	Control       *pb.Server
}

// -----------------------------------------------------------------------------

func loadConfig(configPath string) (*config.Config, *logger.Logger, error) {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return nil, nil, err
	}
	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	return cfg, logger.NewLogger(cfg.Name), nil
}

// setupDatabase opens the configured backend and creates missing tables.
func setupDatabase(cfg *config.Config, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	db, err := storage.New(cfg.MConfig, logger.NewLogger("Storage"))
	if err != nil {
		appLogger.Error("Failed to init db: %v", err)
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		appLogger.Error("Failed to migrate db: %v", err)
		db.Close()
		return nil, err
	}
	return db, nil
}

// -----------------------------------------------------------------------------

func buildApp(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (*App, error) {
	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return nil, err
	}
	gw := gateway.New(db, cfg.Storage.QueueSize, logger.NewLogger("Gateway"))

	sessions, closeSessions, err := session.New(ctx, cfg.Session)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("session store: %w", err)
	}

	balance := cfg.Balance()
	ttl := time.Duration(cfg.Session.TTLHours) * time.Hour
	accounts := account.NewStore(gw, sessions, balance, ttl, logger.NewLogger("Accounts"))
	authService := auth.NewService(gw, balance, cfg.OAuth, logger.NewLogger("Auth"))

	reg := registry.New()
	restorePrices(reg, gw, appLogger)

	tickers := datasource.NewTickerHub()
	wirePrices(tickers, reg, accounts, gw, cfg.DataSource.MirrorToDB)

	// Feeds
	netMgr := network.NewAsyncNetworkManager(cfg.MConfig, logger.NewLogger("Network"))
	client := binance.NewClient(netMgr, cfg.DataSource.Binance.RestURL)

	var feeds []interfaces.IFeed
	if cfg.DataSource.Binance.Enabled {
		feeds = append(feeds, binance.NewSource(cfg.DataSource.Binance, client, reg.PairSymbols(), tickers, logger.NewLogger("Binance")))
	}
	sim := simulator.New(cfg.DataSource.Simulator, reg, client, tickers, logger.NewLogger("Simulator"))
	for _, a := range reg.Assets(models.MarketStocks) {
		sim.Track(a.Symbol)
	}
	feeds = append(feeds, sim)
	manager := datasource.NewMultiSourceManager(feeds, logger.NewLogger("Feeds"))

	api := server.NewAPIServer(cfg.MConfig, server.Deps{
		Accounts: accounts,
		Auth:     authService,
		Trades:   gw,
		Registry: reg,
		Candles:  sim,
		Tickers:  tickers,
		Markets:  utils.NewMarketScheduler(reg.Markets(), logger.NewLogger("Markets")),
	}, logger.NewLogger("API"))

	var control *pb.Server
	if cfg.GrpcPort != 0 {
		controlLogger := logger.NewLogger("ControlService")
		control = pb.NewServer(pb.NewControlService(manager, accounts, gw, controlLogger), controlLogger)
	}

	return &App{
		Config:        cfg,
		Logger:        appLogger,
		DB:            db,
		Gateway:       gw,
		closeSessions: closeSessions,
		Accounts:      accounts,
		Registry:      reg,
		Tickers:       tickers,
		Feeds:         manager,
		API:           api,
		Control:       control,
	}, nil
}

// -----------------------------------------------------------------------------

// restorePrices seeds the registry with the last mirrored prices so that
// trading works before the feeds deliver.
func restorePrices(reg *registry.Registry, gw *gateway.Gateway, appLogger *logger.Logger) {
	var symbols []string
	for _, m := range reg.Markets() {
		for _, a := range reg.Assets(m) {
			symbols = append(symbols, a.Symbol)
		}
	}
	rows := gw.GetMarketData(symbols)
	tickers := make([]models.MTicker, 0, len(rows))
	for _, r := range rows {
		tickers = append(tickers, models.MTicker{
			Symbol:        r.Symbol,
			Price:         r.Price,
			Change:        r.Change,
			ChangePercent: r.ChangePercent,
			Volume:        r.Volume,
		})
	}
	if n := len(reg.ApplyTickers(tickers)); n > 0 {
		appLogger.Info("Restored %d prices from storage", n)
	}
}

// priceMarker is the part of account.Store that follows live prices.
type priceMarker interface {
	MarkAll(prices map[string]decimal.Decimal)
}

// marketMirror is the part of gateway.Gateway that persists quotes.
type marketMirror interface {
	NotifyMarketData(rows []models.MMarketData) bool
}

// wirePrices routes every ticker batch into the registry, then marks the
// accounts to the new prices and mirrors them to the store. Fallback rows
// only fill registry entries that have no price yet; they never mark an
// account or reach the database.
func wirePrices(hub *datasource.TickerHub, reg *registry.Registry, accounts priceMarker, gw marketMirror, mirror bool) {
	for _, m := range reg.Markets() {
		hub.Subscribe(m, func(batch []models.MTicker) {
			live := make([]models.MTicker, 0, len(batch))
			var placeholders []models.MTicker
			for _, t := range batch {
				if t.Fallback {
					placeholders = append(placeholders, t)
					continue
				}
				live = append(live, t)
			}
			if len(placeholders) > 0 {
				reg.FillMissing(placeholders)
			}

			prices := reg.ApplyTickers(live)
			if len(prices) == 0 {
				return
			}
			accounts.MarkAll(prices)
			if mirror {
				gw.NotifyMarketData(marketRows(live, prices))
			}
		})
	}
}

func marketRows(batch []models.MTicker, applied map[string]decimal.Decimal) []models.MMarketData {
	now := time.Now().UnixMilli()
	rows := make([]models.MMarketData, 0, len(applied))
	for _, t := range batch {
		if _, ok := applied[t.Symbol]; !ok {
			continue
		}
		rows = append(rows, models.MMarketData{
			Symbol:        t.Symbol,
			Price:         t.Price,
			Change:        t.Change,
			ChangePercent: t.ChangePercent,
			Volume:        t.Volume,
			UpdatedAt:     now,
		})
	}
	return rows
}
