package inventory_test

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/app/apptest"
	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualAdjust(t *testing.T) {
	f := apptest.New(t)
	ctx := context.Background()
	_, vs := f.Product(t, "Hoodie", "250000", 2, "L")
	v := vs[0]

	got, m, err := f.Inventory.Adjust(ctx, v.ID, inventory.ManualAdjustment{Bucket: domain.BucketStock, Delta: 10})
	require.NoError(t, err)
	assert.Equal(t, 12, got.Stock)
	assert.Equal(t, inventory.ReasonRestock, m.Reason)

	_, _, err = f.Inventory.Adjust(ctx, v.ID, inventory.ManualAdjustment{Bucket: domain.BucketStock, Delta: -20})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 12, f.Stock(t, v.ID))

	_, _, err = f.Inventory.Adjust(ctx, v.ID, inventory.ManualAdjustment{Bucket: domain.BucketStock, Delta: 1, Reason: inventory.ReasonOrderReserve})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = f.Inventory.Adjust(ctx, v.ID, inventory.ManualAdjustment{Bucket: domain.BucketStock, Delta: 3, Reason: inventory.ReasonWriteOff})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = f.Inventory.Adjust(ctx, v.ID, inventory.ManualAdjustment{Bucket: domain.BucketStock})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = f.Inventory.Adjust(ctx, "missing", inventory.ManualAdjustment{Bucket: domain.BucketStock, Delta: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReclassify(t *testing.T) {
	f := apptest.New(t)
	ctx := context.Background()
	_, vs := f.Product(t, "Chino", "300000", 0, "32")
	v := vs[0]

	_, _, err := f.Inventory.Adjust(ctx, v.ID, inventory.ManualAdjustment{Bucket: domain.BucketWash, Delta: 4, Reason: inventory.ReasonCorrection})
	require.NoError(t, err)

	got, err := f.Inventory.Reclassify(ctx, v.ID, domain.BucketWash, domain.BucketStock, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, got.WashStock)
	assert.Equal(t, 3, got.Stock)

	_, err = f.Inventory.Reclassify(ctx, v.ID, domain.BucketWash, domain.BucketStock, 2)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	got = f.Variant(t, v.ID)
	assert.Equal(t, 1, got.WashStock)
	assert.Equal(t, 3, got.Stock)

	_, err = f.Inventory.Reclassify(ctx, v.ID, domain.BucketStock, domain.BucketStock, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLowStockListing(t *testing.T) {
	f := apptest.New(t)
	ctx := context.Background()
	_, vs := f.Product(t, "Tote", "90000", 2, "S", "M")
	_, _, err := f.Inventory.Adjust(ctx, vs[1].ID, inventory.ManualAdjustment{Bucket: domain.BucketStock, Delta: 20})
	require.NoError(t, err)

	rows, err := f.Inventory.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, vs[0].ID, rows[0].VariantID)
	assert.Equal(t, 2, rows[0].Stock)
}
