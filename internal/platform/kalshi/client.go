// Package kalshi is a read-only REST client for the Kalshi trade API v2. It
// implements domain.MarketFetcher behind a token-bucket limiter and a circuit
// breaker.
package kalshi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/alanyoungcy/kalshidash/internal/crypto"
	"github.com/alanyoungcy/kalshidash/internal/domain"
	"github.com/alanyoungcy/kalshidash/internal/metrics"
)

// DefaultBaseURL is the public production API root.
const DefaultBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

const maxErrorBody = 4 << 10

// Config configures a Client. Zero values fall back to defaults.
type Config struct {
	BaseURL           string
	APIKeyID          string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
	Metrics           *metrics.Metrics
	Logger            *slog.Logger
}

// Client is the REST client for the Kalshi exchange API.
type Client struct {
	baseURL    string
	basePath   string
	apiKeyID   string
	signer     *crypto.RSASigner
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

var _ domain.MarketFetcher = (*Client)(nil)

// NewClient creates a new Kalshi REST client. Requests are unsigned until
// SetRSAPrivateKey is called; the public market data endpoints do not need
// authentication.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	basePath := ""
	if u, err := url.Parse(baseURL); err == nil {
		basePath = u.Path
	}

	c := &Client{
		baseURL:    baseURL,
		basePath:   basePath,
		apiKeyID:   cfg.APIKeyID,
		httpClient: cfg.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With(slog.String("component", "kalshi_client")),
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "kalshi",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Only upstream trouble trips the breaker; a 404 or a cancelled
		// caller says nothing about Kalshi's health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, domain.ErrNotFound) ||
				errors.Is(err, domain.ErrUnauthorized) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			c.metrics.SetBreakerState(name, int(to))
		},
	})
	return c
}

// SetRSAPrivateKey loads an RSA private key from PEM-encoded bytes and
// configures the client for RSA-signed authentication.
func (c *Client) SetRSAPrivateKey(pemBytes []byte) error {
	key, err := crypto.ParseRSAPrivateKey(pemBytes)
	if err != nil {
		return fmt.Errorf("kalshi: %w", err)
	}
	c.signer = crypto.NewRSASigner(c.apiKeyID, key)
	return nil
}

// LoadRSAPrivateKeyFile reads a PEM file and configures signing with it.
func (c *Client) LoadRSAPrivateKeyFile(path string) error {
	key, err := crypto.LoadKey(crypto.KeyConfig{Path: path})
	if err != nil {
		return fmt.Errorf("kalshi: %w", err)
	}
	c.signer = crypto.NewRSASigner(c.apiKeyID, key)
	return nil
}

// GetEvents returns one page of events, optionally with nested markets.
func (c *Client) GetEvents(ctx context.Context, filter domain.EventFilter) (domain.EventPage, error) {
	params := url.Values{}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Cursor != "" {
		params.Set("cursor", filter.Cursor)
	}
	if filter.Status != "" {
		params.Set("status", filter.Status)
	}
	if filter.WithNestedMarkets {
		params.Set("with_nested_markets", "true")
	}

	var resp struct {
		Events []KalshiEvent `json:"events"`
		Cursor string        `json:"cursor"`
	}
	if err := c.getJSON(ctx, "events", "/events", params, &resp); err != nil {
		return domain.EventPage{}, fmt.Errorf("kalshi: get events: %w", err)
	}

	page := domain.EventPage{Cursor: resp.Cursor, Events: make([]domain.Event, 0, len(resp.Events))}
	for _, e := range resp.Events {
		page.Events = append(page.Events, e.ToDomain())
	}
	return page, nil
}

// GetMarket returns a single market by its ticker.
func (c *Client) GetMarket(ctx context.Context, ticker string) (domain.Market, error) {
	path := fmt.Sprintf("/markets/%s", url.PathEscape(ticker))

	var resp struct {
		Market KalshiMarket `json:"market"`
	}
	if err := c.getJSON(ctx, "market", path, nil, &resp); err != nil {
		return domain.Market{}, fmt.Errorf("kalshi: get market %s: %w", ticker, err)
	}
	return resp.Market.ToDomain(), nil
}

// GetOrderbook returns the current orderbook for the given market ticker,
// each side sorted best bid first.
func (c *Client) GetOrderbook(ctx context.Context, ticker string) (domain.Orderbook, error) {
	path := fmt.Sprintf("/markets/%s/orderbook", url.PathEscape(ticker))

	var resp struct {
		Orderbook KalshiOrderbook `json:"orderbook"`
	}
	if err := c.getJSON(ctx, "orderbook", path, nil, &resp); err != nil {
		return domain.Orderbook{}, fmt.Errorf("kalshi: get orderbook %s: %w", ticker, err)
	}
	return resp.Orderbook.ToDomain(ticker, time.Now()), nil
}

// GetTrades returns one page of public trades for ticker, newest first.
func (c *Client) GetTrades(ctx context.Context, ticker string, filter domain.TradeFilter) (domain.TradePage, error) {
	params := url.Values{}
	params.Set("ticker", ticker)
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Cursor != "" {
		params.Set("cursor", filter.Cursor)
	}

	var resp struct {
		Trades []KalshiTrade `json:"trades"`
		Cursor string        `json:"cursor"`
	}
	if err := c.getJSON(ctx, "trades", "/markets/trades", params, &resp); err != nil {
		return domain.TradePage{}, fmt.Errorf("kalshi: get trades %s: %w", ticker, err)
	}

	page := domain.TradePage{Cursor: resp.Cursor, Trades: make([]domain.Trade, 0, len(resp.Trades))}
	for _, t := range resp.Trades {
		page.Trades = append(page.Trades, t.ToDomain())
	}
	return page, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// getJSON waits for the limiter, runs the request through the breaker and
// decodes the body into out.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() (any, error) {
		return c.doRequest(ctx, http.MethodGet, path, params)
	})
	c.metrics.ObserveUpstream(endpoint, outcome(err), time.Since(start))
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
		}
		return err
	}

	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

// doRequest builds, optionally signs, sends, and reads an HTTP request
// against the Kalshi API.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if c.signer != nil {
		if err := c.signRequest(req, method, c.basePath+path); err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: http request: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", domain.ErrUpstream, err)
	}
	return respBody, nil
}

// signRequest adds RSA authentication headers to the HTTP request. path is
// the full URL path without the query string.
func (c *Client) signRequest(req *http.Request, method, path string) error {
	headers, err := c.signer.Headers(method, path)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return nil
}

// checkStatus maps non-2xx HTTP status codes onto domain errors.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var apiErr KalshiErrorResponse
	_ = json.Unmarshal(body, &apiErr)
	code, msg := apiErr.codeAndMessage()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s (%s)", domain.ErrNotFound, msg, code)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s (%s)", domain.ErrUnauthorized, msg, code)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s (%s)", domain.ErrRateLimited, msg, code)
	case http.StatusBadRequest:
		return fmt.Errorf("kalshi: bad request: %s (%s)", msg, code)
	default:
		return fmt.Errorf("%w: HTTP %d: %s (%s)", domain.ErrUpstream, resp.StatusCode, msg, code)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	default:
		return "error"
	}
}
