package models

// MConfig Structure
type MConfig struct {
	Name           string            `yaml:"name"`
	Host           string            `yaml:"host"`
	Port           int               `yaml:"port"`
	LogLevel       string            `yaml:"log_level"`
	LogFormat      string            `yaml:"log_format"` // "json" or "text"
	GrpcHost       string            `yaml:"grpc_host"`
	GrpcPort       int               `yaml:"grpc_port"`
	DefaultBalance string            `yaml:"default_balance"`
	Storage        MStorageConfig    `yaml:"storage"`
	Session        MSessionConfig    `yaml:"session"`
	OAuth          MOAuthConfig      `yaml:"oauth"`
	Network        MNetworkConfig    `yaml:"network"`
	DataSource     MDataSourceConfig `yaml:"data_source"`
	Timeframes     []string          `yaml:"timeframes"`
	AllowedOrigins []string          `yaml:"allowed_origins"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	DBSchema           string `yaml:"db_schema"` // postgres only
	QueueSize          int    `yaml:"queue_size"`
}

type MSessionConfig struct {
	Backend       string `yaml:"backend"` // "memory" or "redis"
	TTLHours      int    `yaml:"ttl_hours"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	CookieSecure  bool   `yaml:"cookie_secure"`
}

type MOAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	SuccessURL   string `yaml:"success_url"`
}

// Enabled reports whether the Google login flow is configured.
func (o MOAuthConfig) Enabled() bool {
	return o.ClientID != "" && o.ClientSecret != "" && o.RedirectURL != ""
}

type MNetworkConfig struct {
	Proxies        []string `yaml:"proxies"`
	RequestTimeout int      `yaml:"timeout"`
	MaxRetries     int      `yaml:"retries"`
	UserAgent      string   `yaml:"user_agent"`
}

type MDataSourceConfig struct {
	Binance    MBinanceConfig   `yaml:"binance"`
	Simulator  MSimulatorConfig `yaml:"simulator"`
	MirrorToDB bool             `yaml:"mirror_to_db"`
}

type MBinanceConfig struct {
	Enabled             bool     `yaml:"enabled"`
	RestURL             string   `yaml:"rest_url"`
	StreamURL           string   `yaml:"stream_url"`
	PollIntervalSeconds int      `yaml:"poll_interval_seconds"`
	MaxReconnects       int      `yaml:"max_reconnects"`
	AllowList           []string `yaml:"allow_list"` // Optional, defaults to registry crypto pairs
}

type MSimulatorConfig struct {
	HistoryLength int     `yaml:"history_length"`
	Volatility    float64 `yaml:"volatility"`
	NewCandleProb float64 `yaml:"new_candle_probability"`
}
