package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NewFromRedis wraps an existing connection
func NewFromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetExchangeRate returns a cached rate for a currency pair such as "USD:LKR".
// The bool is false when nothing is cached.
func (c *Client) GetExchangeRate(ctx context.Context, pair string) (decimal.Decimal, bool, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("fxrate:%s", pair)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}

	rate, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid cached rate %q: %w", val, err)
	}

	return rate, true, nil
}

// SetExchangeRate caches a rate with TTL
func (c *Client) SetExchangeRate(ctx context.Context, pair string, rate decimal.Decimal, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("fxrate:%s", pair), rate.String(), ttl).Err()
}

// SetIdempotencyKey records the order number created for an idempotency key.
// It returns false when the key was already taken.
func (c *Client) SetIdempotencyKey(ctx context.Context, key, orderNumber string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("idempotency:%s", key), orderNumber, ttl).Result()
}

// DeleteIdempotencyKey frees a key whose order was never written
func (c *Client) DeleteIdempotencyKey(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("idempotency:%s", key)).Err()
}

// GetIdempotencyKey returns the order number stored for key, or "" if none
func (c *Client) GetIdempotencyKey(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}
