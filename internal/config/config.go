// Package config defines the top-level configuration for the spread bot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SPREADBOT_* environment variables.
type Config struct {
	Strategy StrategyConfig `toml:"strategy"`
	Feed     FeedConfig     `toml:"feed"`
	Venues   VenuesConfig   `toml:"venues"`
	Notify   NotifyConfig   `toml:"notify"`
	Server   ServerConfig   `toml:"server"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	LogLevel string         `toml:"log_level"`
	LogText  bool           `toml:"log_text"`
}

// StrategyConfig holds the pair-trading thresholds and sizing.
type StrategyConfig struct {
	// EntryThresholdPct is the minimum |spread| that fires an entry signal.
	EntryThresholdPct float64 `toml:"entry_threshold_pct"`
	// MaxSpreadPct is the sanity ceiling; spreads beyond it are treated as
	// anomalous and ignored on the entry path.
	MaxSpreadPct float64 `toml:"max_spread_pct"`
	// CloseThresholdPct is the |spread| below which a position may close.
	CloseThresholdPct float64  `toml:"close_threshold_pct"`
	PositionSizeUSD   float64  `toml:"position_size_usd"`
	TakeProfitUSD     float64  `toml:"take_profit_usd"`
	Cooldown          duration `toml:"cooldown"`
	Debug             bool     `toml:"debug"`
}

// FeedConfig holds data-source endpoints and timing.
type FeedConfig struct {
	BinanceWSURL   string   `toml:"binance_ws_url"`
	BinanceRESTURL string   `toml:"binance_rest_url"`
	CoinGeckoURL   string   `toml:"coingecko_url"`
	PollInterval   duration `toml:"poll_interval"`
	ReconnectBase  duration `toml:"reconnect_base"`
	ReconnectMax   duration `toml:"reconnect_max"`
}

// VenuesConfig selects which supplementary venues enrich alerts.
type VenuesConfig struct {
	Enabled        []string `toml:"enabled"`
	ExtendedURL    string   `toml:"extended_url"`
	VariationalURL string   `toml:"variational_url"`
}

// NotifyConfig holds notification channel settings. Tokens and webhook URLs
// come from the environment only (SPREADBOT_NOTIFY_*).
type NotifyConfig struct {
	TelegramEnabled   bool   `toml:"telegram_enabled"`
	TelegramToken     string `toml:"-"`
	TelegramChatID    string `toml:"-"`
	DiscordEnabled    bool   `toml:"discord_enabled"`
	DiscordWebhookURL string `toml:"-"`
	DiscordRoleID     string `toml:"discord_role_id"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Listen      string   `toml:"listen"`
	CORSOrigins []string `toml:"cors_origins"`
}

// RedisConfig holds the optional latest-price cache and signal bus settings.
type RedisConfig struct {
	Enabled      bool     `toml:"enabled"`
	Addr         string   `toml:"addr"`
	Password     string   `toml:"-"`
	DB           int      `toml:"db"`
	TTL          duration `toml:"ttl"`
	StreamMaxLen int64    `toml:"stream_max_len"`
}

// PostgresConfig holds the optional signal audit store settings.
type PostgresConfig struct {
	Enabled  bool   `toml:"enabled"`
	DSN      string `toml:"-"`
	MaxConns int    `toml:"max_conns"`
}

// S3Config holds the optional alert archiver settings.
type S3Config struct {
	Enabled        bool     `toml:"enabled"`
	Endpoint       string   `toml:"endpoint"`
	Region         string   `toml:"region"`
	Bucket         string   `toml:"bucket"`
	AccessKey      string   `toml:"-"`
	SecretKey      string   `toml:"-"`
	ForcePathStyle bool     `toml:"force_path_style"`
	FlushInterval  duration `toml:"flush_interval"`
	MaxBufferLines int      `toml:"max_buffer_lines"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Strategy: StrategyConfig{
			EntryThresholdPct: 2.0,
			MaxSpreadPct:      8.0,
			CloseThresholdPct: 1.0,
			PositionSizeUSD:   1000,
			TakeProfitUSD:     25,
			Cooldown:          duration{5 * time.Minute},
			Debug:             false,
		},
		Feed: FeedConfig{
			BinanceWSURL:   "wss://stream.binance.com:9443/ws",
			BinanceRESTURL: "https://api.binance.com/api/v3",
			CoinGeckoURL:   "https://api.coingecko.com/api/v3",
			PollInterval:   duration{30 * time.Second},
			ReconnectBase:  duration{5 * time.Second},
			ReconnectMax:   duration{60 * time.Second},
		},
		Venues: VenuesConfig{
			Enabled:        []string{"variational", "extended"},
			ExtendedURL:    "https://api.extended.exchange/api/v1",
			VariationalURL: "https://omni-client-api.prod.ap-northeast-1.variational.io",
		},
		Notify: NotifyConfig{
			TelegramEnabled: true,
			DiscordEnabled:  true,
		},
		Server: ServerConfig{
			Enabled: true,
			Listen:  ":8080",
		},
		Redis: RedisConfig{
			Enabled:      false,
			Addr:         "localhost:6379",
			TTL:          duration{5 * time.Minute},
			StreamMaxLen: 10000,
		},
		Postgres: PostgresConfig{
			Enabled:  false,
			MaxConns: 5,
		},
		S3: S3Config{
			Enabled:        false,
			Region:         "us-east-1",
			ForcePathStyle: true,
			FlushInterval:  duration{time.Minute},
			MaxBufferLines: 500,
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found. Validation failures are
// fatal: the process exits before the feed loop starts.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Strategy thresholds
	if c.Strategy.EntryThresholdPct <= 0 {
		errs = append(errs, "strategy: entry_threshold_pct must be > 0")
	}
	if c.Strategy.EntryThresholdPct >= c.Strategy.MaxSpreadPct {
		errs = append(errs, "strategy: entry_threshold_pct must be less than max_spread_pct")
	}
	if c.Strategy.CloseThresholdPct < 0 {
		errs = append(errs, "strategy: close_threshold_pct must be >= 0")
	}
	if c.Strategy.PositionSizeUSD <= 0 {
		errs = append(errs, "strategy: position_size_usd must be > 0")
	}
	if c.Strategy.Cooldown.Duration < 0 {
		errs = append(errs, "strategy: cooldown must not be negative")
	}

	// Feed
	if c.Feed.PollInterval.Duration <= 0 {
		errs = append(errs, "feed: poll_interval must be > 0")
	}
	if c.Feed.BinanceWSURL == "" {
		errs = append(errs, "feed: binance_ws_url must not be empty")
	}
	if c.Feed.CoinGeckoURL == "" {
		errs = append(errs, "feed: coingecko_url must not be empty")
	}

	// Venues
	for _, v := range c.Venues.Enabled {
		switch v {
		case "extended", "variational":
		default:
			errs = append(errs, fmt.Sprintf("venues: unknown venue %q (valid: extended, variational)", v))
		}
	}

	// Notify — credentials required when a channel is enabled.
	if c.Notify.TelegramEnabled {
		if c.Notify.TelegramToken == "" {
			errs = append(errs, "notify: SPREADBOT_NOTIFY_TELEGRAM_TOKEN is required when telegram is enabled")
		}
		if c.Notify.TelegramChatID == "" {
			errs = append(errs, "notify: SPREADBOT_NOTIFY_TELEGRAM_CHAT_ID is required when telegram is enabled")
		}
	}
	if c.Notify.DiscordEnabled && c.Notify.DiscordWebhookURL == "" {
		errs = append(errs, "notify: SPREADBOT_NOTIFY_DISCORD_WEBHOOK_URL is required when discord is enabled")
	}

	// Server
	if c.Server.Enabled && c.Server.Listen == "" {
		errs = append(errs, "server: listen must not be empty when enabled")
	}

	// Optional components need their connection settings when enabled.
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when enabled")
	}
	if c.Postgres.Enabled && strings.TrimSpace(c.Postgres.DSN) == "" {
		errs = append(errs, "postgres: SPREADBOT_POSTGRES_DSN is required when enabled")
	}
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
