// Package config defines the top-level configuration for kalshidash and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/kalshidash/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by KALSHIDASH_* environment variables.
type Config struct {
	Kalshi    KalshiConfig    `toml:"kalshi"`
	Redis     RedisConfig     `toml:"redis"`
	Cache     CacheConfig     `toml:"cache"`
	Universe  UniverseConfig  `toml:"universe"`
	Scan      ScanConfig      `toml:"scan"`
	Arbitrage ArbitrageConfig `toml:"arbitrage"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	LogLevel  string          `toml:"log_level"`
}

// KalshiConfig holds the upstream exchange API settings. APIKey and
// RSAPrivateKeyPath are optional; public market data needs neither.
type KalshiConfig struct {
	BaseURL           string   `toml:"base_url"`
	APIKey            string   `toml:"api_key"`
	RSAPrivateKeyPath string   `toml:"rsa_private_key_path"`
	Timeout           duration `toml:"timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
	PageLimit         int      `toml:"page_limit"`
	MaxPages          int      `toml:"max_pages"`
}

// RedisConfig holds connection parameters for Redis. When Enabled is false the
// service runs without the snapshot cache, the signal bus and the API rate
// limiter.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// CacheConfig holds per-kind snapshot TTLs. A zero TTL disables caching for
// that kind.
type CacheConfig struct {
	MarketTTL    duration `toml:"market_ttl"`
	OrderbookTTL duration `toml:"orderbook_ttl"`
	TradesTTL    duration `toml:"trades_ttl"`
}

// UniverseConfig controls which events are loaded and how often.
type UniverseConfig struct {
	// Status is a comma-separated list of event statuses, e.g. "open" or
	// "open,unopened".
	Status          string   `toml:"status"`
	RefreshInterval duration `toml:"refresh_interval"`
}

// Statuses splits Status into its trimmed, non-empty parts.
func (u UniverseConfig) Statuses() []string {
	return splitList(u.Status)
}

// ScanConfig holds the related-market scan parameters.
type ScanConfig struct {
	TopN             int     `toml:"top_n"`
	TopK             int     `toml:"top_k"`
	MinScore         float64 `toml:"min_score"`
	FetchConcurrency int     `toml:"fetch_concurrency"`
	TradeLimit       int     `toml:"trade_limit"`
}

// ArbitrageConfig holds the arbitrage watch settings.
type ArbitrageConfig struct {
	WatchInterval duration `toml:"watch_interval"`
	MispricedOnly bool     `toml:"mispriced_only"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port               int      `toml:"port"`
	CORSOrigins        []string `toml:"cors_origins"`
	APIKey             string   `toml:"api_key"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
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
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Kalshi: KalshiConfig{
			BaseURL:           "https://api.elections.kalshi.com/trade-api/v2",
			Timeout:           duration{15 * time.Second},
			RequestsPerSecond: 10,
			Burst:             10,
			PageLimit:         200,
			MaxPages:          20,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "kalshidash",
		},
		Cache: CacheConfig{
			MarketTTL:    duration{30 * time.Second},
			OrderbookTTL: duration{10 * time.Second},
			TradesTTL:    duration{30 * time.Second},
		},
		Universe: UniverseConfig{
			Status:          "open",
			RefreshInterval: duration{5 * time.Minute},
		},
		Scan: ScanConfig{
			TopN:             50,
			TopK:             10,
			MinScore:         0.15,
			FetchConcurrency: 5,
			TradeLimit:       100,
		},
		Arbitrage: ArbitrageConfig{
			WatchInterval: duration{time.Minute},
			MispricedOnly: true,
		},
		Server: ServerConfig{
			Port:               8000,
			CORSOrigins:        []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimitPerMinute: 120,
		},
		Notify: NotifyConfig{
			Events: []string{"arb_detected", "error"},
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

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Kalshi
	if c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty")
	}
	if c.Kalshi.Timeout.Duration <= 0 {
		errs = append(errs, "kalshi: timeout must be > 0")
	}
	if c.Kalshi.RequestsPerSecond <= 0 {
		errs = append(errs, "kalshi: requests_per_second must be > 0")
	}
	if c.Kalshi.Burst < 1 {
		errs = append(errs, "kalshi: burst must be >= 1")
	}
	if c.Kalshi.PageLimit < 1 || c.Kalshi.PageLimit > 200 {
		errs = append(errs, fmt.Sprintf("kalshi: page_limit must be 1-200, got %d", c.Kalshi.PageLimit))
	}
	if c.Kalshi.MaxPages < 1 {
		errs = append(errs, "kalshi: max_pages must be >= 1")
	}
	if c.Kalshi.RSAPrivateKeyPath != "" && c.Kalshi.APIKey == "" {
		errs = append(errs, "kalshi: api_key is required when rsa_private_key_path is set")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Cache
	if c.Cache.MarketTTL.Duration < 0 || c.Cache.OrderbookTTL.Duration < 0 || c.Cache.TradesTTL.Duration < 0 {
		errs = append(errs, "cache: ttls must not be negative")
	}

	// Universe
	if len(c.Universe.Statuses()) == 0 {
		errs = append(errs, "universe: status must name at least one event status")
	}
	for _, st := range c.Universe.Statuses() {
		if !domain.IsEventStatusFilter(st) {
			errs = append(errs, fmt.Sprintf("universe: unknown status %q (valid: unopened, open, closed, settled)", st))
		}
	}
	if c.Universe.RefreshInterval.Duration <= 0 {
		errs = append(errs, "universe: refresh_interval must be > 0")
	}

	// Scan
	if c.Scan.TopN < 1 {
		errs = append(errs, "scan: top_n must be >= 1")
	}
	if c.Scan.TopK < 0 {
		errs = append(errs, "scan: top_k must be >= 0")
	}
	if c.Scan.TopK > c.Scan.TopN {
		errs = append(errs, "scan: top_k must not exceed top_n")
	}
	if c.Scan.MinScore < 0 || c.Scan.MinScore > 1 {
		errs = append(errs, fmt.Sprintf("scan: min_score must be within [0, 1], got %g", c.Scan.MinScore))
	}
	if c.Scan.FetchConcurrency < 1 {
		errs = append(errs, "scan: fetch_concurrency must be >= 1")
	}
	if c.Scan.TradeLimit < 1 {
		errs = append(errs, "scan: trade_limit must be >= 1")
	}

	// Arbitrage
	if c.Arbitrage.WatchInterval.Duration <= 0 {
		errs = append(errs, "arbitrage: watch_interval must be > 0")
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, "server: rate_limit_per_minute must be >= 0")
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}
