package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is a best-effort layer: the database stays the source of truth, so
// every failure here is logged and treated as a miss. A nil client turns the
// cache off.
type Cache struct {
	R   *redis.Client
	Log *zap.Logger
}

func (c *Cache) enabled() bool { return c != nil && c.R != nil }

func (c *Cache) warn(op, key string, err error) {
	if c.Log != nil {
		c.Log.Warn("redis "+op+" failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) getJSON(ctx context.Context, key string, out any) bool {
	if !c.enabled() {
		return false
	}
	b, err := c.R.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.warn("get", key, err)
		}
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		c.warn("decode", key, err)
		return false
	}
	return true
}

func (c *Cache) setJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if !c.enabled() {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		c.warn("encode", key, err)
		return
	}
	if err := c.R.Set(ctx, key, b, ttl).Err(); err != nil {
		c.warn("set", key, err)
	}
}

func (c *Cache) del(ctx context.Context, key string) {
	if !c.enabled() {
		return
	}
	if err := c.R.Del(ctx, key).Err(); err != nil {
		c.warn("del", key, err)
	}
}

type StatusEntry struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Cache) OrderStatus(ctx context.Context, orderID string) (StatusEntry, bool) {
	var e StatusEntry
	ok := c.getJSON(ctx, fmt.Sprintf(KeyOrderStatus, orderID), &e)
	return e, ok
}

func (c *Cache) SetOrderStatus(ctx context.Context, orderID, status string, updatedAt time.Time) {
	c.setJSON(ctx, fmt.Sprintf(KeyOrderStatus, orderID), StatusEntry{Status: status, UpdatedAt: updatedAt}, TTLStatusCache)
}

func (c *Cache) ForgetOrder(ctx context.Context, orderID string) {
	c.del(ctx, fmt.Sprintf(KeyOrderStatus, orderID))
}

// IdempotentOrder returns the order id remembered for an external id.
func (c *Cache) IdempotentOrder(ctx context.Context, externalID string) (string, bool) {
	if !c.enabled() || externalID == "" {
		return "", false
	}
	key := fmt.Sprintf(KeyIdemOrderCreate, externalID)
	id, err := c.R.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.warn("get", key, err)
		}
		return "", false
	}
	return id, id != ""
}

func (c *Cache) RememberOrder(ctx context.Context, externalID, orderID string) {
	if !c.enabled() || externalID == "" {
		return
	}
	key := fmt.Sprintf(KeyIdemOrderCreate, externalID)
	if err := c.R.Set(ctx, key, orderID, TTLIdempotency).Err(); err != nil {
		c.warn("set", key, err)
	}
}

func (c *Cache) Product(ctx context.Context, productID string, out any) bool {
	return c.getJSON(ctx, fmt.Sprintf(KeyProduct, productID), out)
}

func (c *Cache) SetProduct(ctx context.Context, productID string, v any) {
	c.setJSON(ctx, fmt.Sprintf(KeyProduct, productID), v, TTLProduct)
}

func (c *Cache) InvalidateProduct(ctx context.Context, productID string) {
	c.del(ctx, fmt.Sprintf(KeyProduct, productID))
}

// FirstSeen marks an event id as processed for a consumer and reports
// whether this is the first time. Without redis every event counts as new.
func (c *Cache) FirstSeen(ctx context.Context, consumer, eventID string) bool {
	if !c.enabled() {
		return true
	}
	key := fmt.Sprintf(KeyDedup, consumer, eventID)
	ok, err := c.R.SetNX(ctx, key, "1", TTLDedup).Result()
	if err != nil {
		c.warn("setnx", key, err)
		return true
	}
	return ok
}

// Forget drops a dedup mark so a failed event can be processed again.
func (c *Cache) Forget(ctx context.Context, consumer, eventID string) {
	c.del(ctx, fmt.Sprintf(KeyDedup, consumer, eventID))
}
