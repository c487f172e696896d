package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SPREADBOT_* environment variable overrides, and
// returns the final Config. A missing file is not an error; the defaults plus
// environment are used. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SPREADBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). Secrets (tokens, webhook URLs, DSNs, object-store keys) are only
// ever sourced from here, never from the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Strategy ──
	setFloat64(&cfg.Strategy.EntryThresholdPct, "SPREADBOT_STRATEGY_ENTRY_THRESHOLD_PCT")
	setFloat64(&cfg.Strategy.MaxSpreadPct, "SPREADBOT_STRATEGY_MAX_SPREAD_PCT")
	setFloat64(&cfg.Strategy.CloseThresholdPct, "SPREADBOT_STRATEGY_CLOSE_THRESHOLD_PCT")
	setFloat64(&cfg.Strategy.PositionSizeUSD, "SPREADBOT_STRATEGY_POSITION_SIZE_USD")
	setFloat64(&cfg.Strategy.TakeProfitUSD, "SPREADBOT_STRATEGY_TAKE_PROFIT_USD")
	setDuration(&cfg.Strategy.Cooldown, "SPREADBOT_STRATEGY_COOLDOWN")
	setBool(&cfg.Strategy.Debug, "SPREADBOT_STRATEGY_DEBUG")

	// ── Feed ──
	setStr(&cfg.Feed.BinanceWSURL, "SPREADBOT_FEED_BINANCE_WS_URL")
	setStr(&cfg.Feed.BinanceRESTURL, "SPREADBOT_FEED_BINANCE_REST_URL")
	setStr(&cfg.Feed.CoinGeckoURL, "SPREADBOT_FEED_COINGECKO_URL")
	setDuration(&cfg.Feed.PollInterval, "SPREADBOT_FEED_POLL_INTERVAL")
	setDuration(&cfg.Feed.ReconnectBase, "SPREADBOT_FEED_RECONNECT_BASE")
	setDuration(&cfg.Feed.ReconnectMax, "SPREADBOT_FEED_RECONNECT_MAX")

	// ── Venues ──
	setStringSlice(&cfg.Venues.Enabled, "SPREADBOT_VENUES_ENABLED")
	setStr(&cfg.Venues.ExtendedURL, "SPREADBOT_VENUES_EXTENDED_URL")
	setStr(&cfg.Venues.VariationalURL, "SPREADBOT_VENUES_VARIATIONAL_URL")

	// ── Notify ──
	setBool(&cfg.Notify.TelegramEnabled, "SPREADBOT_NOTIFY_TELEGRAM_ENABLED")
	setStr(&cfg.Notify.TelegramToken, "SPREADBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SPREADBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setBool(&cfg.Notify.DiscordEnabled, "SPREADBOT_NOTIFY_DISCORD_ENABLED")
	setStr(&cfg.Notify.DiscordWebhookURL, "SPREADBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStr(&cfg.Notify.DiscordRoleID, "SPREADBOT_NOTIFY_DISCORD_ROLE_ID")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SPREADBOT_SERVER_ENABLED")
	setStr(&cfg.Server.Listen, "SPREADBOT_SERVER_LISTEN")
	setStringSlice(&cfg.Server.CORSOrigins, "SPREADBOT_SERVER_CORS_ORIGINS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SPREADBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SPREADBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SPREADBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SPREADBOT_REDIS_DB")
	setDuration(&cfg.Redis.TTL, "SPREADBOT_REDIS_TTL")
	setInt64(&cfg.Redis.StreamMaxLen, "SPREADBOT_REDIS_STREAM_MAX_LEN")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "SPREADBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "SPREADBOT_POSTGRES_DSN")
	setInt(&cfg.Postgres.MaxConns, "SPREADBOT_POSTGRES_MAX_CONNS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SPREADBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SPREADBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SPREADBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "SPREADBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SPREADBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SPREADBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "SPREADBOT_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.S3.FlushInterval, "SPREADBOT_S3_FLUSH_INTERVAL")
	setInt(&cfg.S3.MaxBufferLines, "SPREADBOT_S3_MAX_BUFFER_LINES")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "SPREADBOT_LOG_LEVEL")
	setBool(&cfg.LogText, "SPREADBOT_LOG_TEXT")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
