package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	FeedConfig         FeedConfig         `json:"feed"`
	MarketDataConfig   MarketDataConfig   `json:"market_data"`
	TradingConfig      TradingConfig      `json:"trading"`
	RouterConfig       RouterConfig       `json:"router"`
	OptimizerConfig    OptimizerConfig    `json:"optimizer"`
	CircuitConfig      CircuitConfig      `json:"circuit_breaker"`
	NotificationConfig NotificationConfig `json:"notification"`
	LoggingConfig      LoggingConfig      `json:"logging"`
	ServerConfig       ServerConfig       `json:"server"`
	AuthConfig         AuthConfig         `json:"auth"`
	VaultConfig        VaultConfig        `json:"vault"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
}

// FeedConfig holds the token discovery stream configuration
type FeedConfig struct {
	WebsocketURL      string `json:"websocket_url"`
	PriceMaxStaleSecs int    `json:"price_max_stale_secs"`
	FlowWindowSecs    int    `json:"flow_window_secs"`
}

// MarketDataConfig holds the HTTP market data API configuration
type MarketDataConfig struct {
	BaseURL        string `json:"base_url"`
	TimeoutSecs    int    `json:"timeout_secs"`
	SafetyCacheTTL int    `json:"safety_cache_ttl_secs"`
}

type TradingConfig struct {
	DryRun              bool    `json:"dry_run"` // Simulate fills without touching the chain
	CapitalSOL          float64 `json:"capital_sol"`
	MaxOpenPositions    int     `json:"max_open_positions"`
	ScanIntervalSecs    int     `json:"scan_interval_secs"`
	PollIntervalSecs    int     `json:"poll_interval_secs"`
	EventLogPath        string  `json:"event_log_path"`
	PrimaryVenueURL     string  `json:"primary_venue_url"`
	SecondaryVenueURL   string  `json:"secondary_venue_url"`
}

// RouterConfig holds the dual-track routing parameters
type RouterConfig struct {
	ProvenRunnerMinAgeMinutes float64 `json:"proven_runner_min_age_minutes"`
	EarlyQualityMaxAgeMinutes float64 `json:"early_quality_max_age_minutes"`
	DataCollectionMode        bool    `json:"data_collection_mode"`
	MaxWarnings               int     `json:"max_warnings"`
	KOLEndorsementTTLMinutes  int     `json:"kol_endorsement_ttl_minutes"`
}

// OptimizerConfig holds the threshold learning schedule
type OptimizerConfig struct {
	Enabled          bool    `json:"enabled"`
	IntervalMinutes  int     `json:"interval_minutes"`
	MinSampleSize    int     `json:"min_sample_size"`
	TargetWinRate    float64 `json:"target_win_rate"`
	MaxChangePercent float64 `json:"max_change_percent"`
	OutcomeLookback  int     `json:"outcome_lookback"`
}

type CircuitConfig struct {
	Enabled              bool    `json:"enabled"`
	MaxHourlyLossSOL     float64 `json:"max_hourly_loss_sol"`
	MaxDailyLossSOL      float64 `json:"max_daily_loss_sol"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	CooldownMinutes      int     `json:"cooldown_minutes"`
	MaxEntriesPerMinute  int     `json:"max_entries_per_minute"`
	MaxDailyEntries      int     `json:"max_daily_entries"`
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

type LoggingConfig struct {
	Level      string `json:"level"`       // DEBUG, INFO, WARN, ERROR
	Output     string `json:"output"`      // stdout, stderr, or file path
	JSONFormat bool   `json:"json_format"` // Output as JSON
}

// ServerConfig holds the operator API server configuration
type ServerConfig struct {
	Enabled         bool   `json:"enabled"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	AllowedOrigins  string `json:"allowed_origins"`
	ShutdownTimeout int    `json:"shutdown_timeout_secs"`
}

// AuthConfig holds operator authentication settings
type AuthConfig struct {
	Enabled             bool          `json:"enabled"`
	JWTSecret           string        `json:"-"`
	AccessTokenDuration time.Duration `json:"access_token_duration"`
	OperatorUsername    string        `json:"operator_username"`
	OperatorPasswordHash string       `json:"-"` // bcrypt hash
}

// VaultConfig holds the secret store settings for the wallet signing key
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"-"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
}

type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"-"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

func Load() (*Config, error) {
	// Local development convenience; missing .env is fine
	godotenv.Load()

	// Base config from file, if present
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = &Config{}
	}

	// Environment variable overrides take precedence
	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Secrets (vault token, JWT secret, DB password) come only from environment.
func applyEnvOverrides(cfg *Config) {
	// Feed config
	cfg.FeedConfig.WebsocketURL = getEnvOrDefault("FEED_WS_URL", defaultString(cfg.FeedConfig.WebsocketURL, "wss://pumpportal.fun/api/data"))
	cfg.FeedConfig.PriceMaxStaleSecs = getEnvIntOrDefault("FEED_PRICE_MAX_STALE_SECS", defaultInt(cfg.FeedConfig.PriceMaxStaleSecs, 30))
	cfg.FeedConfig.FlowWindowSecs = getEnvIntOrDefault("FEED_FLOW_WINDOW_SECS", defaultInt(cfg.FeedConfig.FlowWindowSecs, 120))

	// Market data config
	cfg.MarketDataConfig.BaseURL = getEnvOrDefault("MARKET_DATA_BASE_URL", defaultString(cfg.MarketDataConfig.BaseURL, "https://api.dexdata.local/v1"))
	cfg.MarketDataConfig.TimeoutSecs = getEnvIntOrDefault("MARKET_DATA_TIMEOUT_SECS", defaultInt(cfg.MarketDataConfig.TimeoutSecs, 10))
	cfg.MarketDataConfig.SafetyCacheTTL = getEnvIntOrDefault("SAFETY_CACHE_TTL_SECS", defaultInt(cfg.MarketDataConfig.SafetyCacheTTL, 300))

	// Trading config
	cfg.TradingConfig.DryRun = getEnvOrDefault("TRADING_DRY_RUN", "true") == "true"
	cfg.TradingConfig.CapitalSOL = getEnvFloatOrDefault("TRADING_CAPITAL_SOL", defaultFloat(cfg.TradingConfig.CapitalSOL, 10))
	cfg.TradingConfig.MaxOpenPositions = getEnvIntOrDefault("TRADING_MAX_OPEN_POSITIONS", defaultInt(cfg.TradingConfig.MaxOpenPositions, 5))
	cfg.TradingConfig.ScanIntervalSecs = getEnvIntOrDefault("TRADING_SCAN_INTERVAL_SECS", defaultInt(cfg.TradingConfig.ScanIntervalSecs, 20))
	cfg.TradingConfig.PollIntervalSecs = getEnvIntOrDefault("TRADING_POLL_INTERVAL_SECS", defaultInt(cfg.TradingConfig.PollIntervalSecs, 15))
	cfg.TradingConfig.EventLogPath = getEnvOrDefault("TRADING_EVENT_LOG", defaultString(cfg.TradingConfig.EventLogPath, "positions.jsonl"))
	cfg.TradingConfig.PrimaryVenueURL = getEnvOrDefault("VENUE_PRIMARY_URL", cfg.TradingConfig.PrimaryVenueURL)
	cfg.TradingConfig.SecondaryVenueURL = getEnvOrDefault("VENUE_SECONDARY_URL", cfg.TradingConfig.SecondaryVenueURL)

	// Router config
	cfg.RouterConfig.ProvenRunnerMinAgeMinutes = getEnvFloatOrDefault("ROUTER_PROVEN_MIN_AGE_MINUTES", defaultFloat(cfg.RouterConfig.ProvenRunnerMinAgeMinutes, 60))
	cfg.RouterConfig.EarlyQualityMaxAgeMinutes = getEnvFloatOrDefault("ROUTER_EARLY_MAX_AGE_MINUTES", defaultFloat(cfg.RouterConfig.EarlyQualityMaxAgeMinutes, 30))
	cfg.RouterConfig.DataCollectionMode = getEnvOrDefault("ROUTER_DATA_COLLECTION_MODE", "false") == "true"
	cfg.RouterConfig.MaxWarnings = getEnvIntOrDefault("ROUTER_MAX_WARNINGS", defaultInt(cfg.RouterConfig.MaxWarnings, 4))
	cfg.RouterConfig.KOLEndorsementTTLMinutes = getEnvIntOrDefault("ROUTER_KOL_TTL_MINUTES", defaultInt(cfg.RouterConfig.KOLEndorsementTTLMinutes, 30))

	// Optimizer config
	cfg.OptimizerConfig.Enabled = getEnvOrDefault("OPTIMIZER_ENABLED", "true") == "true"
	cfg.OptimizerConfig.IntervalMinutes = getEnvIntOrDefault("OPTIMIZER_INTERVAL_MINUTES", defaultInt(cfg.OptimizerConfig.IntervalMinutes, 60))
	cfg.OptimizerConfig.MinSampleSize = getEnvIntOrDefault("OPTIMIZER_MIN_SAMPLE_SIZE", defaultInt(cfg.OptimizerConfig.MinSampleSize, 20))
	cfg.OptimizerConfig.TargetWinRate = getEnvFloatOrDefault("OPTIMIZER_TARGET_WIN_RATE", defaultFloat(cfg.OptimizerConfig.TargetWinRate, 0.55))
	cfg.OptimizerConfig.MaxChangePercent = getEnvFloatOrDefault("OPTIMIZER_MAX_CHANGE_PERCENT", defaultFloat(cfg.OptimizerConfig.MaxChangePercent, 15))
	cfg.OptimizerConfig.OutcomeLookback = getEnvIntOrDefault("OPTIMIZER_OUTCOME_LOOKBACK", defaultInt(cfg.OptimizerConfig.OutcomeLookback, 200))

	// Circuit breaker config
	cfg.CircuitConfig.Enabled = getEnvOrDefault("CIRCUIT_BREAKER_ENABLED", "true") == "true"
	cfg.CircuitConfig.MaxHourlyLossSOL = getEnvFloatOrDefault("CIRCUIT_MAX_HOURLY_LOSS_SOL", defaultFloat(cfg.CircuitConfig.MaxHourlyLossSOL, 2))
	cfg.CircuitConfig.MaxDailyLossSOL = getEnvFloatOrDefault("CIRCUIT_MAX_DAILY_LOSS_SOL", defaultFloat(cfg.CircuitConfig.MaxDailyLossSOL, 5))
	cfg.CircuitConfig.MaxConsecutiveLosses = getEnvIntOrDefault("CIRCUIT_MAX_CONSECUTIVE_LOSSES", defaultInt(cfg.CircuitConfig.MaxConsecutiveLosses, 5))
	cfg.CircuitConfig.CooldownMinutes = getEnvIntOrDefault("CIRCUIT_COOLDOWN_MINUTES", defaultInt(cfg.CircuitConfig.CooldownMinutes, 30))
	cfg.CircuitConfig.MaxEntriesPerMinute = getEnvIntOrDefault("CIRCUIT_MAX_ENTRIES_PER_MINUTE", defaultInt(cfg.CircuitConfig.MaxEntriesPerMinute, 3))
	cfg.CircuitConfig.MaxDailyEntries = getEnvIntOrDefault("CIRCUIT_MAX_DAILY_ENTRIES", defaultInt(cfg.CircuitConfig.MaxDailyEntries, 60))

	// Notification config
	cfg.NotificationConfig.Enabled = getEnvOrDefault("NOTIFICATIONS_ENABLED", "false") == "true"
	cfg.NotificationConfig.Telegram.Enabled = getEnvOrDefault("TELEGRAM_ENABLED", "false") == "true"
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Discord.Enabled = getEnvOrDefault("DISCORD_ENABLED", "false") == "true"
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", "INFO")
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", "stdout")
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", "true") == "true"

	// Server config
	cfg.ServerConfig.Enabled = getEnvOrDefault("SERVER_ENABLED", "true") == "true"
	cfg.ServerConfig.Host = getEnvOrDefault("SERVER_HOST", "0.0.0.0")
	cfg.ServerConfig.Port = getEnvIntOrDefault("SERVER_PORT", 8080)
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", "*")
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10)

	// Auth config: secrets always from environment
	cfg.AuthConfig.Enabled = getEnvOrDefault("AUTH_ENABLED", "false") == "true"
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.AccessTokenDuration = getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_DURATION", 15*time.Minute)
	cfg.AuthConfig.OperatorUsername = getEnvOrDefault("AUTH_OPERATOR_USERNAME", defaultString(cfg.AuthConfig.OperatorUsername, "operator"))
	cfg.AuthConfig.OperatorPasswordHash = getEnvOrDefault("AUTH_OPERATOR_PASSWORD_HASH", cfg.AuthConfig.OperatorPasswordHash)

	// Vault config
	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", "false") == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", defaultString(cfg.VaultConfig.Address, "http://localhost:8200"))
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", defaultString(cfg.VaultConfig.MountPath, "secret"))
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", defaultString(cfg.VaultConfig.SecretPath, "sniper/wallet"))

	// Database config
	cfg.DatabaseConfig.Enabled = getEnvOrDefault("DB_ENABLED", "false") == "true"
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", defaultString(cfg.DatabaseConfig.Host, "localhost"))
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", defaultInt(cfg.DatabaseConfig.Port, 5432))
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", defaultString(cfg.DatabaseConfig.User, "sniper"))
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", defaultString(cfg.DatabaseConfig.Database, "sniper"))
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", defaultString(cfg.DatabaseConfig.SSLMode, "disable"))

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", "false") == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDR", defaultString(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
}

// Validate checks for configuration that cannot work at runtime
func (c *Config) Validate() error {
	if !c.TradingConfig.DryRun && c.TradingConfig.CapitalSOL <= 0 {
		return fmt.Errorf("live trading requires capital_sol > 0")
	}
	if c.AuthConfig.Enabled && c.AuthConfig.JWTSecret == "" {
		return fmt.Errorf("auth enabled but AUTH_JWT_SECRET is not set")
	}
	if c.AuthConfig.Enabled && c.AuthConfig.OperatorPasswordHash == "" {
		return fmt.Errorf("auth enabled but AUTH_OPERATOR_PASSWORD_HASH is not set")
	}
	if !c.TradingConfig.DryRun && !c.VaultConfig.Enabled {
		return fmt.Errorf("live trading requires vault for the wallet signing key")
	}
	return nil
}

// GenerateSampleConfig writes a config.json populated with defaults, as a
// starting point for deployment. Secrets stay out of the file.
func GenerateSampleConfig(filename string) error {
	cfg := &Config{}
	applyEnvOverrides(cfg)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling sample config: %w", err)
	}
	return os.WriteFile(filename, data, 0644)
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloatOrDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDurationOrDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func defaultInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func defaultFloat(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}
