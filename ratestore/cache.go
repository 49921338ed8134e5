package ratestore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skosovsky/plantool/loancalc"
	"github.com/skosovsky/plantool/logger"
)

const keyPrefix = "plantool:rate:"

// Cache is the minimal key/value contract the rate cache needs.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisCache implements Cache on go-redis.
type RedisCache struct {
	client redis.UniversalClient
}

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// CachedRates is a read-through cache over a RateSource. Cache failures are logged and bypassed;
// absent rates are not cached.
type CachedRates struct {
	next  loancalc.RateSource
	cache Cache
	ttl   time.Duration
	log   *logger.Logger
}

func NewCachedRates(next loancalc.RateSource, cache Cache, ttl time.Duration, log *logger.Logger) *CachedRates {
	if log == nil {
		log = logger.NewNop()
	}
	return &CachedRates{next: next, cache: cache, ttl: ttl, log: log.With("component", "rate_cache")}
}

func (c *CachedRates) LowestRate(ctx context.Context, loanType string) (float64, bool, error) {
	key := keyPrefix + loanType
	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		c.log.Warn("rate cache read failed", "key", key, "error", err)
	} else if ok {
		if rate, perr := strconv.ParseFloat(raw, 64); perr == nil {
			return rate, true, nil
		}
		c.log.Warn("rate cache holds malformed value", "key", key, "value", raw)
	}

	rate, found, err := c.next.LowestRate(ctx, loanType)
	if err != nil || !found {
		return rate, found, err
	}
	if err := c.cache.Set(ctx, key, strconv.FormatFloat(rate, 'f', -1, 64), c.ttl); err != nil {
		c.log.Warn("rate cache write failed", "key", key, "error", err)
	}
	return rate, true, nil
}

var _ loancalc.RateSource = (*CachedRates)(nil)
