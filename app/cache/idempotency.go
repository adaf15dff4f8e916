package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lms-payments:reconciled:"

type store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// IdempotencyCache remembers tokens whose payment already reached a terminal
// state so repeated provider deliveries can be answered without a transaction.
// The database stays authoritative; the cache only short-circuits.
type IdempotencyCache struct {
	store store
	ttl   time.Duration
}

func NewIdempotencyCache(client redis.Cmdable, ttl time.Duration) *IdempotencyCache {
	return newIdempotencyCache(client, ttl)
}

func newIdempotencyCache(s store, ttl time.Duration) *IdempotencyCache {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &IdempotencyCache{store: s, ttl: ttl}
}

// Seen returns the outcome recorded for token, if any.
func (c *IdempotencyCache) Seen(ctx context.Context, token string) (string, bool, error) {
	token = strings.TrimSpace(token)
	if c == nil || c.store == nil || token == "" {
		return "", false, nil
	}

	outcome, err := c.store.Get(ctx, keyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return outcome, true, nil
}

// Mark records outcome for token. The first writer wins.
func (c *IdempotencyCache) Mark(ctx context.Context, token, outcome string) error {
	token = strings.TrimSpace(token)
	if c == nil || c.store == nil || token == "" {
		return nil
	}
	return c.store.SetNX(ctx, keyPrefix+token, outcome, c.ttl).Err()
}
