package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderEffect(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     StockEffect
	}{
		{"", OrderPending, EffectReserve},
		{"", OrderCancelled, EffectNone},
		{OrderPending, OrderConfirmed, EffectNone},
		{OrderConfirmed, OrderShipped, EffectNone},
		{OrderShipped, OrderDelivered, EffectNone},
		{OrderPending, OrderCancelled, EffectRelease},
		{OrderShipped, OrderCancelled, EffectRelease},
		{OrderCancelled, OrderConfirmed, EffectReserve},
		{OrderCancelled, OrderPending, EffectReserve},
		{OrderCancelled, OrderCancelled, EffectNone},
		{OrderConfirmed, OrderConfirmed, EffectNone},
		{OrderDelivered, "", EffectRelease},
		{OrderCancelled, "", EffectNone},
	}
	for _, c := range cases {
		t.Run(string(c.from)+"->"+string(c.to), func(t *testing.T) {
			assert.Equal(t, c.want, OrderEffect(c.from, c.to))
		})
	}
}

// Any walk through statuses that ends outside the committed set nets to zero.
func TestOrderEffectConservesStock(t *testing.T) {
	walks := [][]OrderStatus{
		{"", OrderPending, OrderCancelled},
		{"", OrderPending, OrderConfirmed, OrderCancelled, OrderConfirmed, OrderShipped, ""},
		{"", OrderPending, OrderCancelled, OrderPending, OrderCancelled, ""},
		{"", OrderPending, OrderDelivered, ""},
	}
	for _, walk := range walks {
		net := 0
		for i := 1; i < len(walk); i++ {
			net += OrderEffect(walk[i-1], walk[i]).Sign()
		}
		assert.Zero(t, net, "walk %v", walk)
	}
}

func TestCanTransition(t *testing.T) {
	assert.False(t, CanTransition(OrderDelivered, OrderCancelled))
	assert.True(t, CanTransition(OrderShipped, OrderCancelled))
	assert.True(t, CanTransition(OrderCancelled, OrderConfirmed))
	assert.True(t, CanTransition(OrderDelivered, OrderDelivered))
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus(" confirmed ")
	require.NoError(t, err)
	assert.Equal(t, OrderConfirmed, s)

	_, err = ParseOrderStatus("")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseOrderStatus("LOST")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBookingEffect(t *testing.T) {
	assert.Equal(t, EffectReserve, BookingEffect(BookingPending, BookingConfirmed))
	assert.Equal(t, EffectReserve, BookingEffect("", BookingConfirmed))
	assert.Equal(t, EffectRelease, BookingEffect(BookingConfirmed, BookingCancelled))
	assert.Equal(t, EffectRelease, BookingEffect(BookingConfirmed, ""))
	assert.Equal(t, EffectNone, BookingEffect(BookingConfirmed, BookingConfirmed))
	assert.Equal(t, EffectNone, BookingEffect(BookingPending, BookingCancelled))
}

func TestReturnTypeBucket(t *testing.T) {
	want := map[ReturnType]Bucket{
		ReturnValid:     BucketStock,
		ReturnDamaged:   BucketDamaged,
		ReturnWash:      BucketWash,
		ReturnRepackage: BucketRepackage,
	}
	for typ, b := range want {
		got, ok := typ.Bucket()
		require.True(t, ok)
		assert.Equal(t, b, got)
	}
	_, ok := ReturnType("LOST").Bucket()
	assert.False(t, ok)

	typ, err := ParseReturnType("wash")
	require.NoError(t, err)
	assert.Equal(t, ReturnWash, typ)
}

func TestParseBucket(t *testing.T) {
	b, err := ParseBucket("")
	require.NoError(t, err)
	assert.Equal(t, BucketStock, b)

	b, err = ParseBucket("Damaged_Stock")
	require.NoError(t, err)
	assert.Equal(t, BucketDamaged, b)

	_, err = ParseBucket("price")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUnitPrice(t *testing.T) {
	p := Product{Price: decimal.RequireFromString("150000"), DiscountPercent: decimal.RequireFromString("15")}
	assert.Equal(t, "127500.00", p.UnitPrice().StringFixed(2))

	p = Product{Price: decimal.RequireFromString("99.999")}
	assert.Equal(t, "100.00", p.UnitPrice().StringFixed(2))
}

func TestShortageErrorIsConflict(t *testing.T) {
	var err error = &ShortageError{VariantID: "v1", Bucket: BucketStock, Required: 2, Available: 1}
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.ErrorIs(t, err, ErrConflict)
	assert.False(t, errors.Is(err, ErrNotFound))
}
