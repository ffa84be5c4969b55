package redisx_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newCache(t *testing.T) (*redisx.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return &redisx.Cache{R: rdb, Log: zaptest.NewLogger(t)}, mr
}

func TestDisabledCacheIsAMiss(t *testing.T) {
	ctx := context.Background()
	for name, c := range map[string]*redisx.Cache{
		"nil cache":  nil,
		"nil client": {},
	} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, c.FirstSeen(ctx, "notifier", "e1"))
			assert.True(t, c.FirstSeen(ctx, "notifier", "e1"))
			c.Forget(ctx, "notifier", "e1")

			c.RememberOrder(ctx, "ext-1", "o1")
			_, ok := c.IdempotentOrder(ctx, "ext-1")
			assert.False(t, ok)

			c.SetOrderStatus(ctx, "o1", "PAID", time.Now())
			_, ok = c.OrderStatus(ctx, "o1")
			assert.False(t, ok)

			var out map[string]any
			assert.False(t, c.Product(ctx, "p1", &out))
		})
	}
}

func TestFirstSeenAndForget(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	assert.True(t, c.FirstSeen(ctx, "notifier", "e1"))
	assert.False(t, c.FirstSeen(ctx, "notifier", "e1"))
	assert.True(t, c.FirstSeen(ctx, "audit", "e1"), "marks are per consumer")

	c.Forget(ctx, "notifier", "e1")
	assert.True(t, c.FirstSeen(ctx, "notifier", "e1"))

	assert.True(t, mr.Exists("dedup:notifier:e1"))
	mr.FastForward(redisx.TTLDedup + time.Second)
	assert.True(t, c.FirstSeen(ctx, "notifier", "e1"))
}

func TestIdempotentOrder(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	_, ok := c.IdempotentOrder(ctx, "ext-1")
	assert.False(t, ok)

	c.RememberOrder(ctx, "ext-1", "o1")
	id, ok := c.IdempotentOrder(ctx, "ext-1")
	require.True(t, ok)
	assert.Equal(t, "o1", id)
	assert.Equal(t, redisx.TTLIdempotency, mr.TTL("idem:order:create:ext-1"))

	c.RememberOrder(ctx, "", "o2")
	_, ok = c.IdempotentOrder(ctx, "")
	assert.False(t, ok)
	assert.Len(t, mr.Keys(), 1)
}

func TestOrderStatusCache(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	c.SetOrderStatus(ctx, "o1", "SHIPPED", at)
	e, ok := c.OrderStatus(ctx, "o1")
	require.True(t, ok)
	assert.Equal(t, "SHIPPED", e.Status)
	assert.True(t, at.Equal(e.UpdatedAt))

	c.ForgetOrder(ctx, "o1")
	_, ok = c.OrderStatus(ctx, "o1")
	assert.False(t, ok)
}

func TestProductCache(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	type view struct {
		Name  string `json:"name"`
		Stock int    `json:"stock"`
	}
	c.SetProduct(ctx, "p1", view{Name: "Kebaya", Stock: 3})

	var got view
	require.True(t, c.Product(ctx, "p1", &got))
	assert.Equal(t, view{Name: "Kebaya", Stock: 3}, got)

	c.InvalidateProduct(ctx, "p1")
	assert.False(t, c.Product(ctx, "p1", &got))

	require.NoError(t, mr.Set("product:p2", "{not json"))
	assert.False(t, c.Product(ctx, "p2", &got))
}

func TestRedisOutageDegradesToMiss(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	c.RememberOrder(ctx, "ext-1", "o1")
	require.True(t, c.FirstSeen(ctx, "notifier", "e1"))
	mr.Close()

	_, ok := c.IdempotentOrder(ctx, "ext-1")
	assert.False(t, ok)
	assert.True(t, c.FirstSeen(ctx, "notifier", "e1"), "without redis every event counts as new")
	c.SetOrderStatus(ctx, "o1", "PAID", time.Now())
	_, ok = c.OrderStatus(ctx, "o1")
	assert.False(t, ok)
}
