package directoryservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "directory:"

// Upstream источник данных для кеширующего клиента
type Upstream interface {
	GetCourt(ctx context.Context, courtID int64) (*Court, error)
	ListCourts(ctx context.Context) ([]Court, error)
	GetPaymentRecipient(ctx context.Context, courtID int64) (*PaymentRecipient, error)
}

// CachedClient кеширует корты в Redis.
// Получатель выплат не кешируется: он читается только перед движением денег.
// Недоступность Redis не ломает запросы, они уходят напрямую в upstream.
type CachedClient struct {
	upstream Upstream
	redis    *redis.Client
	ttl      time.Duration
	log      Logger
}

// NewCachedClient создает кеширующий клиент
func NewCachedClient(upstream Upstream, rdb *redis.Client, ttl time.Duration, log Logger) *CachedClient {
	return &CachedClient{
		upstream: upstream,
		redis:    rdb,
		ttl:      ttl,
		log:      log,
	}
}

// GetCourt получает корт из кеша или из upstream
func (c *CachedClient) GetCourt(ctx context.Context, courtID int64) (*Court, error) {
	key := fmt.Sprintf("%scourt:%d", cacheKeyPrefix, courtID)

	var court Court
	if c.load(ctx, key, &court) {
		return &court, nil
	}

	fetched, err := c.upstream.GetCourt(ctx, courtID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, fetched)
	return fetched, nil
}

// ListCourts получает список кортов из кеша или из upstream
func (c *CachedClient) ListCourts(ctx context.Context) ([]Court, error) {
	key := cacheKeyPrefix + "courts"

	var courts []Court
	if c.load(ctx, key, &courts) {
		return courts, nil
	}

	fetched, err := c.upstream.ListCourts(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, fetched)
	return fetched, nil
}

// GetPaymentRecipient всегда идет в upstream
func (c *CachedClient) GetPaymentRecipient(ctx context.Context, courtID int64) (*PaymentRecipient, error) {
	return c.upstream.GetPaymentRecipient(ctx, courtID)
}

func (c *CachedClient) load(ctx context.Context, key string, out interface{}) bool {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("Directory cache read failed for %s: %v", key, err)
		}
		return false
	}

	if err := json.Unmarshal(data, out); err != nil {
		c.log.Warn("Directory cache entry %s is corrupted: %v", key, err)
		return false
	}
	return true
}

func (c *CachedClient) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("Directory cache encode failed for %s: %v", key, err)
		return
	}

	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("Directory cache write failed for %s: %v", key, err)
	}
}
