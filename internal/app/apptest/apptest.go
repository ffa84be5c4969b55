// Package apptest builds a fully wired app over the in-memory store for tests.
package apptest

import (
	"context"
	"sync"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/app"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/memstore"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// Recorder captures published events and forwards them to Next, if set.
type Recorder struct {
	mu     sync.Mutex
	Events []events.Envelope
	Next   events.Publisher
}

func (r *Recorder) Publish(ctx context.Context, topic string, env events.Envelope) error {
	r.mu.Lock()
	r.Events = append(r.Events, env)
	r.mu.Unlock()
	if r.Next != nil {
		return r.Next.Publish(ctx, topic, env)
	}
	return nil
}

// Types lists the recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.EventType)
	}
	return out
}

type Fixture struct {
	*app.App
	Store  *memstore.Store
	Events *Recorder
}

func New(t testing.TB) *Fixture {
	t.Helper()
	st := memstore.New()
	rec := &Recorder{}
	a := app.New(app.Deps{
		Store:       st,
		Publisher:   rec,
		ServiceName: "storefront-test",
		Log:         zaptest.NewLogger(t),
	})
	// Deliver to the in-process notification handler as the API does without kafka.
	rec.Next = events.Inline{Handle: a.Notifier.Handle}
	return &Fixture{App: a, Store: st, Events: rec}
}

// Product creates an active product priced at price with one variant per size,
// each starting with stock units.
func (f *Fixture) Product(t testing.TB, name, price string, stock int, sizes ...string) (domain.Product, []domain.Variant) {
	t.Helper()
	ctx := context.Background()
	p, err := f.Catalog.CreateProduct(ctx, catalog.ProductInput{
		Name:  name,
		Price: decimal.RequireFromString(price),
	})
	require.NoError(t, err)

	vs := make([]domain.Variant, 0, len(sizes))
	for _, size := range sizes {
		v, err := f.Catalog.AddVariant(ctx, p.ID, catalog.VariantInput{Color: "black", Size: size, Stock: stock})
		require.NoError(t, err)
		vs = append(vs, v)
	}
	return p, vs
}

func (f *Fixture) Variant(t testing.TB, id string) domain.Variant {
	t.Helper()
	var v domain.Variant
	err := f.Store.InTx(context.Background(), func(tx store.Tx) error {
		var err error
		v, err = tx.GetVariant(context.Background(), id)
		return err
	})
	require.NoError(t, err)
	return v
}

func (f *Fixture) Stock(t testing.TB, variantID string) int {
	t.Helper()
	return f.Variant(t, variantID).Stock
}

// Order places a guest order for qty units of one variant.
func (f *Fixture) Order(t testing.TB, p domain.Product, v domain.Variant, qty int) domain.Order {
	t.Helper()
	o, _, err := f.Orders.Create(context.Background(), GuestOrder(p.ID, v.ID, qty))
	require.NoError(t, err)
	return o
}

func GuestOrder(productID, variantID string, qty int) orders.CreateInput {
	return orders.CreateInput{
		GuestName:  "Rina",
		GuestPhone: "08123456789",
		GuestEmail: "rina@example.com",
		Items:      []orders.ItemInput{{ProductID: productID, VariantID: variantID, Quantity: qty}},
	}
}

func (f *Fixture) Movements(t testing.TB, variantID string) []domain.StockMovement {
	t.Helper()
	ms, err := f.Inventory.Movements(context.Background(), variantID, store.Page{Limit: 200})
	require.NoError(t, err)
	return ms
}
