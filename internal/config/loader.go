package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies KALSHIDASH_* environment variable overrides, and
// returns the final Config. An empty path skips the file and uses defaults
// plus environment. The returned Config has NOT been validated; the caller
// should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known KALSHIDASH_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Kalshi ──
	setStr(&cfg.Kalshi.BaseURL, "KALSHIDASH_KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.APIKey, "KALSHIDASH_KALSHI_API_KEY")
	setStr(&cfg.Kalshi.RSAPrivateKeyPath, "KALSHIDASH_KALSHI_RSA_PRIVATE_KEY_PATH")
	setDuration(&cfg.Kalshi.Timeout, "KALSHIDASH_KALSHI_TIMEOUT")
	setFloat64(&cfg.Kalshi.RequestsPerSecond, "KALSHIDASH_KALSHI_REQUESTS_PER_SECOND")
	setInt(&cfg.Kalshi.Burst, "KALSHIDASH_KALSHI_BURST")
	setInt(&cfg.Kalshi.PageLimit, "KALSHIDASH_KALSHI_PAGE_LIMIT")
	setInt(&cfg.Kalshi.MaxPages, "KALSHIDASH_KALSHI_MAX_PAGES")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "KALSHIDASH_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "KALSHIDASH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "KALSHIDASH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "KALSHIDASH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "KALSHIDASH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "KALSHIDASH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "KALSHIDASH_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "KALSHIDASH_REDIS_KEY_PREFIX")

	// ── Cache ──
	setDuration(&cfg.Cache.MarketTTL, "KALSHIDASH_CACHE_MARKET_TTL")
	setDuration(&cfg.Cache.OrderbookTTL, "KALSHIDASH_CACHE_ORDERBOOK_TTL")
	setDuration(&cfg.Cache.TradesTTL, "KALSHIDASH_CACHE_TRADES_TTL")

	// ── Universe ──
	setStr(&cfg.Universe.Status, "KALSHIDASH_UNIVERSE_STATUS")
	setDuration(&cfg.Universe.RefreshInterval, "KALSHIDASH_UNIVERSE_REFRESH_INTERVAL")

	// ── Scan ──
	setInt(&cfg.Scan.TopN, "KALSHIDASH_SCAN_TOP_N")
	setInt(&cfg.Scan.TopK, "KALSHIDASH_SCAN_TOP_K")
	setFloat64(&cfg.Scan.MinScore, "KALSHIDASH_SCAN_MIN_SCORE")
	setInt(&cfg.Scan.FetchConcurrency, "KALSHIDASH_SCAN_FETCH_CONCURRENCY")
	setInt(&cfg.Scan.TradeLimit, "KALSHIDASH_SCAN_TRADE_LIMIT")

	// ── Arbitrage ──
	setDuration(&cfg.Arbitrage.WatchInterval, "KALSHIDASH_ARBITRAGE_WATCH_INTERVAL")
	setBool(&cfg.Arbitrage.MispricedOnly, "KALSHIDASH_ARBITRAGE_MISPRICED_ONLY")

	// ── Server ──
	setInt(&cfg.Server.Port, "KALSHIDASH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "KALSHIDASH_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "KALSHIDASH_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMinute, "KALSHIDASH_SERVER_RATE_LIMIT_PER_MINUTE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "KALSHIDASH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "KALSHIDASH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "KALSHIDASH_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "KALSHIDASH_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "KALSHIDASH_LOG_LEVEL")
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
		if cleaned := splitList(v); len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
