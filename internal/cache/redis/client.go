// Package redis implements the domain cache, rate limiter, lock and signal
// bus interfaces on go-redis/v9.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
	// KeyPrefix namespaces every key and Pub/Sub channel so several
	// dashboards can share one Redis. Empty means no prefix.
	KeyPrefix string
}

// Client wraps a go-redis Client and provides connectivity and key naming
// helpers.
type Client struct {
	rdb     *redis.Client
	prefix  string
	replica string
}

// New creates a new Redis Client, pings it to verify connectivity, and returns
// the wrapper. It returns an error if the connection cannot be established.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}

	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	rdb := redis.NewClient(opts)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}

	return Wrap(rdb, cfg.KeyPrefix), nil
}

// Wrap adapts an existing go-redis client without pinging it.
func Wrap(rdb *redis.Client, keyPrefix string) *Client {
	return &Client{
		rdb:     rdb,
		prefix:  strings.TrimSuffix(keyPrefix, ":"),
		replica: replicaID(),
	}
}

// replicaID names this process as host/pid. Lock tokens carry it so an
// operator can tell which replica holds a lock.
func replicaID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return host + "/" + strconv.Itoa(os.Getpid())
}

// Key joins parts with ':' under the client's prefix, e.g.
// Key("snap", "market", "FED-25DEC") is "kalshidash:snap:market:FED-25DEC".
func (c *Client) Key(parts ...string) string {
	k := strings.Join(parts, ":")
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// Prefix returns the key namespace, without the trailing ':'.
func (c *Client) Prefix() string { return c.prefix }

// Replica returns the host/pid identity stamped into lock tokens.
func (c *Client) Replica() string { return c.replica }

// Ping checks the Redis connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Underlying returns the raw *redis.Client for adapters that need direct
// access to the driver.
func (c *Client) Underlying() *redis.Client {
	return c.rdb
}
