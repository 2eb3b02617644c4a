package config

import (
	"fmt"
	"os"
	"strconv"

	"paper-trader/src/models"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file.
// Secrets may be supplied through the environment or a .env file next to the binary.
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. .env is optional
	_ = godotenv.Load()

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a validated Config from raw YAML, applying defaults and env overrides.
func Parse(data []byte) (*Config, error) {
	modelConfig := Defaults()
	if err := yaml.Unmarshal(data, modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: modelConfig}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Defaults returns the configuration used for keys absent from the file.
func Defaults() *models.MConfig {
	return &models.MConfig{
		Name:           "paper-trader",
		Host:           "127.0.0.1",
		Port:           8080,
		LogLevel:       "INFO",
		LogFormat:      "text",
		GrpcHost:       "127.0.0.1",
		GrpcPort:       9090,
		DefaultBalance: "100000",
		Storage: models.MStorageConfig{
			DBType:    "sqlite",
			DBPath:    "paper_trader.db",
			DBSchema:  "paper_trader",
			QueueSize: 256,
		},
		Session: models.MSessionConfig{
			Backend:  "memory",
			TTLHours: 24 * 7,
		},
		Network: models.MNetworkConfig{
			RequestTimeout: 10,
			MaxRetries:     2,
			UserAgent:      "paper-trader/1.0",
		},
		DataSource: models.MDataSourceConfig{
			Binance: models.MBinanceConfig{
				Enabled:             true,
				RestURL:             "https://api.binance.com",
				StreamURL:           "wss://stream.binance.com:9443",
				PollIntervalSeconds: 30,
				MaxReconnects:       5,
			},
			Simulator: models.MSimulatorConfig{
				HistoryLength: 100,
				Volatility:    0.02,
				NewCandleProb: 0.1,
			},
			MirrorToDB: true,
		},
		Timeframes: []string{"1m", "3m", "5m", "15m", "1hr", "4hr", "1D", "1W", "1M"},
	}
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() {
	if v := os.Getenv("PT_DB_CONNECTION_STRING"); v != "" {
		c.Storage.DBConnectionString = v
	}
	if v := os.Getenv("PT_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("PT_REDIS_ADDR"); v != "" {
		c.Session.RedisAddr = v
	}
	if v := os.Getenv("PT_REDIS_PASSWORD"); v != "" {
		c.Session.RedisPassword = v
	}
	if v := os.Getenv("PT_OAUTH_CLIENT_ID"); v != "" {
		c.OAuth.ClientID = v
	}
	if v := os.Getenv("PT_OAUTH_CLIENT_SECRET"); v != "" {
		c.OAuth.ClientSecret = v
	}
	if v := os.Getenv("PT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535) {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	balance, err := decimal.NewFromString(c.DefaultBalance)
	if err != nil {
		return fmt.Errorf("invalid default balance %q: %w", c.DefaultBalance, err)
	}
	if !balance.IsPositive() {
		return fmt.Errorf("default balance must be positive")
	}

	// Storage
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %q", c.Storage.DBType)
	}
	if c.Storage.QueueSize <= 0 {
		return fmt.Errorf("storage queue size must be greater than 0")
	}

	// Session
	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("redis address cannot be empty for redis sessions")
		}
	default:
		return fmt.Errorf("unsupported session backend: %q", c.Session.Backend)
	}
	if c.Session.TTLHours <= 0 {
		return fmt.Errorf("session ttl must be greater than 0")
	}

	// Network
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Data sources
	b := c.DataSource.Binance
	if b.Enabled {
		if b.RestURL == "" || b.StreamURL == "" {
			return fmt.Errorf("binance rest_url and stream_url are required when enabled")
		}
		if b.PollIntervalSeconds <= 0 {
			return fmt.Errorf("binance poll interval must be greater than 0")
		}
		if b.MaxReconnects < 0 {
			return fmt.Errorf("binance max reconnects cannot be negative")
		}
	}
	sim := c.DataSource.Simulator
	if sim.HistoryLength <= 0 {
		return fmt.Errorf("simulator history length must be greater than 0")
	}
	if sim.Volatility <= 0 || sim.Volatility >= 1 {
		return fmt.Errorf("simulator volatility must be in (0, 1)")
	}
	if sim.NewCandleProb < 0 || sim.NewCandleProb > 1 {
		return fmt.Errorf("simulator new candle probability must be in [0, 1]")
	}

	for i, tf := range c.Timeframes {
		if tf == "" {
			return fmt.Errorf("timeframe %d cannot be empty", i)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Balance returns the configured starting cash.
func (c *Config) Balance() decimal.Decimal {
	return decimal.RequireFromString(c.DefaultBalance)
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
