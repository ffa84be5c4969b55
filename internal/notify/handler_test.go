package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/memstore"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/ariefcatur/go-storefront/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type sent struct{ to, subject string }

type fakeMailer struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sent{to, subject})
	return m.err
}

type memDedup struct{ seen map[string]bool }

func (d *memDedup) FirstSeen(_ context.Context, c, id string) bool {
	if d.seen[c+id] {
		return false
	}
	d.seen[c+id] = true
	return true
}

func (d *memDedup) Forget(_ context.Context, c, id string) { delete(d.seen, c+id) }

func newHandler(t *testing.T) (*notify.Handler, *fakeMailer, *notify.Service) {
	st := memstore.New()
	m := &fakeMailer{}
	h := &notify.Handler{
		Store:      st,
		Mailer:     m,
		Dedup:      &memDedup{seen: map[string]bool{}},
		Consumer:   "test",
		AdminEmail: "admin@example.com",
		Log:        zaptest.NewLogger(t),
	}
	return h, m, &notify.Service{Store: st}
}

func env(t *testing.T, typ string, payload any) events.Envelope {
	e, err := events.New(typ, "test", "c1", "", payload)
	require.NoError(t, err)
	return e
}

func TestOrderCreatedWritesNotificationAndMail(t *testing.T) {
	h, m, svc := newHandler(t)
	ctx := context.Background()

	e := env(t, events.EventOrderCreated, events.OrderCreatedPayload{
		OrderID: "o1", CustomerName: "Rina", CustomerEmail: "rina@example.com",
		Total: decimal.NewFromInt(400000),
	})
	require.NoError(t, h.Handle(ctx, e))
	require.NoError(t, h.Handle(ctx, e)) // redelivery

	list, err := svc.List(ctx, false, store.Page{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.NotificationOrder, list[0].Type)
	assert.Contains(t, list[0].Description, "400000.00")
	require.Len(t, m.sent, 1)
	assert.Equal(t, "rina@example.com", m.sent[0].to)
}

func TestStockLowMailsAdmin(t *testing.T) {
	h, m, svc := newHandler(t)
	ctx := context.Background()
	require.NoError(t, h.Handle(ctx, env(t, events.EventStockLow, events.StockLowPayload{
		ProductName: "Hoodie", Color: "grey", Size: "L", Stock: 2, Threshold: 3,
	})))

	list, err := svc.List(ctx, true, store.Page{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.NotificationSystem, list[0].Type)
	require.Len(t, m.sent, 1)
	assert.Equal(t, "admin@example.com", m.sent[0].to)
}

func TestMailFailureIsSwallowed(t *testing.T) {
	h, m, svc := newHandler(t)
	m.err = errors.New("smtp down")
	ctx := context.Background()
	require.NoError(t, h.Handle(ctx, env(t, events.EventOrderStatusChanged, events.OrderStatusChangedPayload{
		OrderID: "o1", From: "PENDING", To: "SHIPPED", CustomerEmail: "x@example.com",
	})))
	list, err := svc.List(ctx, false, store.Page{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUnknownAndBrokenEventsAreIgnored(t *testing.T) {
	h, _, svc := newHandler(t)
	ctx := context.Background()
	require.NoError(t, h.Handle(ctx, env(t, "SomethingElse", struct{}{})))
	broken := env(t, events.EventBookingCreated, struct{}{})
	broken.Payload = []byte(`"not an object"`)
	require.NoError(t, h.Handle(ctx, broken))

	list, err := svc.List(ctx, false, store.Page{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMarkRead(t *testing.T) {
	h, _, svc := newHandler(t)
	ctx := context.Background()
	for _, name := range []string{"A", "B"} {
		require.NoError(t, h.Handle(ctx, env(t, events.EventBookingCreated, events.BookingPayload{Name: name})))
	}
	list, err := svc.List(ctx, true, store.Page{})
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, svc.MarkRead(ctx, list[0].ID))
	assert.ErrorIs(t, svc.MarkRead(ctx, "missing"), domain.ErrNotFound)

	n, err := svc.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	unread, err := svc.List(ctx, true, store.Page{})
	require.NoError(t, err)
	assert.Empty(t, unread)
}

// stuckMailer never finishes unless its context ends.
type stuckMailer struct{ release chan struct{} }

func (m stuckMailer) Send(ctx context.Context, _, _, _ string) error {
	select {
	case <-m.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestQueuedMailDoesNotHoldTheEvent(t *testing.T) {
	h, _, svc := newHandler(t)
	stuck := stuckMailer{release: make(chan struct{})}
	q := notify.NewMailQueue(stuck, 8, time.Minute, zaptest.NewLogger(t))
	h.Mailer = q
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- h.Handle(ctx, env(t, events.EventOrderCreated, events.OrderCreatedPayload{
			OrderID: "o9", CustomerName: "Rina", CustomerEmail: "rina@example.com",
			Total: decimal.NewFromInt(1000),
		}))
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("event handling waited on the mail server")
	}

	list, err := svc.List(ctx, false, store.Page{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	close(stuck.release)
	require.NoError(t, q.Close(ctx))
}
