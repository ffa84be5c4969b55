package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *Store, stock int) domain.Variant {
	t.Helper()
	ctx := context.Background()
	v := domain.Variant{ID: "v1", ProductID: "p1", Color: "navy", Size: "M"}
	err := s.InTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertProduct(ctx, &domain.Product{ID: "p1", Name: "Linen Shirt", Active: true}); err != nil {
			return err
		}
		if err := tx.InsertVariant(ctx, &v); err != nil {
			return err
		}
		_, err := tx.AdjustStock(ctx, v.ID, domain.BucketStock, stock)
		return err
	})
	require.NoError(t, err)
	return v
}

func stockOf(t *testing.T, s *Store, id string, b domain.Bucket) int {
	t.Helper()
	var n int
	require.NoError(t, s.InTx(context.Background(), func(tx store.Tx) error {
		v, err := tx.GetVariant(context.Background(), id)
		n = v.Count(b)
		return err
	}))
	return n
}

func TestFailedTransactionLeavesNoTrace(t *testing.T) {
	s := New()
	v := seed(t, s, 5)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.AdjustStock(ctx, v.ID, domain.BucketStock, -3); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 5, stockOf(t, s, v.ID, domain.BucketStock))
}

func TestAdjustStockRefusesNegative(t *testing.T) {
	s := New()
	v := seed(t, s, 1)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx store.Tx) error {
		_, err := tx.AdjustStock(ctx, v.ID, domain.BucketStock, -2)
		return err
	})
	var short *domain.ShortageError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, 1, short.Available)
	assert.Equal(t, 2, short.Required)
	assert.Equal(t, 1, stockOf(t, s, v.ID, domain.BucketStock))

	err = s.InTx(ctx, func(tx store.Tx) error {
		after, err := tx.AdjustStock(ctx, v.ID, domain.BucketWash, 4)
		assert.Equal(t, 4, after)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 4, stockOf(t, s, v.ID, domain.BucketWash))
}

func TestAdjustStockUnknownVariant(t *testing.T) {
	s := New()
	err := s.InTx(context.Background(), func(tx store.Tx) error {
		_, err := tx.AdjustStock(context.Background(), "nope", domain.BucketStock, 1)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInsertVariantUnique(t *testing.T) {
	s := New()
	seed(t, s, 0)
	err := s.InTx(context.Background(), func(tx store.Tx) error {
		return tx.InsertVariant(context.Background(), &domain.Variant{ID: "v2", ProductID: "p1", Color: "navy", Size: "M"})
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestInsertVariantStartsEmpty(t *testing.T) {
	s := New()
	seed(t, s, 0)
	ctx := context.Background()
	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		return tx.InsertVariant(ctx, &domain.Variant{ID: "v2", ProductID: "p1", Color: "navy", Size: "L", Stock: 40})
	}))
	assert.Zero(t, stockOf(t, s, "v2", domain.BucketStock))
}

func TestOrdersExternalIDAndCascade(t *testing.T) {
	s := New()
	ctx := context.Background()
	o := domain.Order{ID: "o1", ExternalID: "ext-1", Status: domain.OrderShipped,
		Items: []domain.OrderItem{{ID: "i1", OrderID: "o1", ProductID: "p1", Quantity: 1}}}

	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertOrder(ctx, &o); err != nil {
			return err
		}
		return tx.InsertReturn(ctx, &domain.ReturnRequest{ID: "r1", OrderID: "o1", ProductID: "p1", Quantity: 1,
			Type: domain.ReturnValid, Status: domain.ReturnPending})
	}))

	err := s.InTx(ctx, func(tx store.Tx) error {
		dup := domain.Order{ID: "o2", ExternalID: "ext-1"}
		return tx.InsertOrder(ctx, &dup)
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		got, err := tx.FindOrderByExternalID(ctx, "ext-1")
		require.NoError(t, err)
		assert.Equal(t, "o1", got.ID)
		assert.Len(t, got.Items, 1)
		return tx.DeleteOrder(ctx, "o1")
	}))

	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		_, err := tx.GetReturn(ctx, "r1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		return nil
	}))
}

func TestListsAreNewestFirstAndPaged(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		for _, id := range []string{"a", "b", "c"} {
			if err := tx.InsertBooking(ctx, &domain.Booking{ID: id, Status: domain.BookingPending}); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		got, err := tx.ListBookings(ctx, store.BookingFilter{Page: store.Page{Limit: 2}})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "c", got[0].ID)
		assert.Equal(t, "b", got[1].ID)

		got, err = tx.ListBookings(ctx, store.BookingFilter{Page: store.Page{Limit: 2, Offset: 2}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "a", got[0].ID)
		return nil
	}))
}

func TestInTxHonoursCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := s.InTx(ctx, func(store.Tx) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
