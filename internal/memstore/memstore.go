// Package memstore keeps everything in process memory. Transactions are
// serialized and applied copy-on-write, which gives the same atomicity the
// postgres backend offers. Used for local runs and tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/store"
)

type data struct {
	seq           int64
	products      map[string]domain.Product
	variants      map[string]domain.Variant
	orders        map[string]domain.Order
	bookings      map[string]domain.Booking
	returns       map[string]domain.ReturnRequest
	notifications map[string]domain.Notification
	movements     []domain.StockMovement
	order         map[string]int64 // insertion sequence per id
}

func newData() *data {
	return &data{
		products:      map[string]domain.Product{},
		variants:      map[string]domain.Variant{},
		orders:        map[string]domain.Order{},
		bookings:      map[string]domain.Booking{},
		returns:       map[string]domain.ReturnRequest{},
		notifications: map[string]domain.Notification{},
		order:         map[string]int64{},
	}
}

func (d *data) clone() *data {
	c := &data{
		seq:           d.seq,
		products:      make(map[string]domain.Product, len(d.products)),
		variants:      make(map[string]domain.Variant, len(d.variants)),
		orders:        make(map[string]domain.Order, len(d.orders)),
		bookings:      make(map[string]domain.Booking, len(d.bookings)),
		returns:       make(map[string]domain.ReturnRequest, len(d.returns)),
		notifications: make(map[string]domain.Notification, len(d.notifications)),
		movements:     append([]domain.StockMovement(nil), d.movements...),
		order:         make(map[string]int64, len(d.order)),
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.variants {
		c.variants[k] = v
	}
	for k, v := range d.orders {
		v.Items = append([]domain.OrderItem(nil), v.Items...)
		c.orders[k] = v
	}
	for k, v := range d.bookings {
		c.bookings[k] = v
	}
	for k, v := range d.returns {
		c.returns[k] = v
	}
	for k, v := range d.notifications {
		c.notifications[k] = v
	}
	for k, v := range d.order {
		c.order[k] = v
	}
	return c
}

type Store struct {
	mu  sync.Mutex
	cur *data
	now func() time.Time
}

func New() *Store {
	return &Store{cur: newData(), now: time.Now}
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.cur.clone()
	if err := fn(&tx{d: work, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cur = work
	return nil
}

type tx struct {
	d   *data
	now func() time.Time
}

func (t *tx) stamp(id string) {
	t.d.seq++
	t.d.order[id] = t.d.seq
}

// newestFirst sorts ids by reverse insertion order.
func (t *tx) newestFirst(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return t.d.order[ids[i]] > t.d.order[ids[j]] })
}

func paginate[T any](items []T, p store.Page) []T {
	p = p.Normalize()
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}

// products

func (t *tx) InsertProduct(_ context.Context, p *domain.Product) error {
	now := t.now()
	p.CreatedAt, p.UpdatedAt = now, now
	stored := *p
	stored.Variants = nil
	t.d.products[p.ID] = stored
	t.stamp(p.ID)
	return nil
}

func (t *tx) UpdateProduct(_ context.Context, p *domain.Product) error {
	cur, ok := t.d.products[p.ID]
	if !ok {
		return domain.NotFound("product %s not found", p.ID)
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = t.now()
	stored := *p
	stored.Variants = nil
	t.d.products[p.ID] = stored
	return nil
}

func (t *tx) GetProduct(_ context.Context, id string) (domain.Product, error) {
	p, ok := t.d.products[id]
	if !ok {
		return domain.Product{}, domain.NotFound("product %s not found", id)
	}
	return p, nil
}

func (t *tx) FindProductByName(_ context.Context, name string) (domain.Product, error) {
	ids := make([]string, 0)
	for id, p := range t.d.products {
		if p.Name == name {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return domain.Product{}, domain.NotFound("product %q not found", name)
	}
	sort.Slice(ids, func(i, j int) bool { return t.d.order[ids[i]] < t.d.order[ids[j]] })
	return t.d.products[ids[0]], nil
}

func (t *tx) ListProducts(_ context.Context, activeOnly bool, page store.Page) ([]domain.Product, error) {
	ids := make([]string, 0, len(t.d.products))
	for id, p := range t.d.products {
		if activeOnly && !p.Active {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return strings.ToLower(t.d.products[ids[i]].Name) < strings.ToLower(t.d.products[ids[j]].Name)
	})
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.d.products[id])
	}
	return paginate(out, page), nil
}

// variants

func (t *tx) InsertVariant(_ context.Context, v *domain.Variant) error {
	if _, ok := t.d.products[v.ProductID]; !ok {
		return domain.NotFound("product %s not found", v.ProductID)
	}
	for _, other := range t.d.variants {
		if other.ProductID == v.ProductID && other.Color == v.Color && other.Size == v.Size {
			return domain.Conflict("variant %s/%s already exists", v.Color, v.Size)
		}
	}
	v.Stock, v.DamagedStock, v.WashStock, v.RepackageStock = 0, 0, 0, 0
	now := t.now()
	v.CreatedAt, v.UpdatedAt = now, now
	t.d.variants[v.ID] = *v
	t.stamp(v.ID)
	return nil
}

func (t *tx) GetVariant(_ context.Context, id string) (domain.Variant, error) {
	v, ok := t.d.variants[id]
	if !ok {
		return domain.Variant{}, domain.NotFound("variant %s not found", id)
	}
	return v, nil
}

func (t *tx) FindVariant(ctx context.Context, productID, size string) (domain.Variant, error) {
	vs, _ := t.ListVariants(ctx, productID)
	for _, v := range vs {
		if v.Size == size {
			return v, nil
		}
	}
	return domain.Variant{}, domain.NotFound("no variant of size %q for product %s", size, productID)
}

func (t *tx) ListVariants(_ context.Context, productID string) ([]domain.Variant, error) {
	ids := make([]string, 0)
	for id, v := range t.d.variants {
		if v.ProductID == productID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return t.d.order[ids[i]] < t.d.order[ids[j]] })
	out := make([]domain.Variant, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.d.variants[id])
	}
	return out, nil
}

func (t *tx) AdjustStock(_ context.Context, variantID string, bucket domain.Bucket, delta int) (int, error) {
	if !bucket.Valid() {
		return 0, domain.Invalid("unknown stock bucket %q", bucket)
	}
	v, ok := t.d.variants[variantID]
	if !ok {
		return 0, domain.NotFound("variant %s not found", variantID)
	}
	cur := v.Count(bucket)
	if cur+delta < 0 {
		return cur, &domain.ShortageError{VariantID: variantID, Bucket: bucket, Required: -delta, Available: cur}
	}
	v.SetCount(bucket, cur+delta)
	v.UpdatedAt = t.now()
	t.d.variants[variantID] = v
	return cur + delta, nil
}

func (t *tx) InsertMovement(_ context.Context, m *domain.StockMovement) error {
	m.CreatedAt = t.now()
	t.d.movements = append(t.d.movements, *m)
	return nil
}

func (t *tx) ListMovements(_ context.Context, variantID string, page store.Page) ([]domain.StockMovement, error) {
	out := make([]domain.StockMovement, 0)
	for i := len(t.d.movements) - 1; i >= 0; i-- {
		if t.d.movements[i].VariantID == variantID {
			out = append(out, t.d.movements[i])
		}
	}
	return paginate(out, page), nil
}

func (t *tx) LowStock(_ context.Context) ([]store.LowStockRow, error) {
	out := make([]store.LowStockRow, 0)
	for _, v := range t.d.variants {
		p, ok := t.d.products[v.ProductID]
		if !ok || !p.Active || v.Stock > p.ReorderThreshold {
			continue
		}
		out = append(out, store.LowStockRow{
			ProductID: p.ID, ProductName: p.Name, VariantID: v.ID,
			Color: v.Color, Size: v.Size, Stock: v.Stock, Threshold: p.ReorderThreshold,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stock != out[j].Stock {
			return out[i].Stock < out[j].Stock
		}
		return out[i].VariantID < out[j].VariantID
	})
	return out, nil
}

// orders

func (t *tx) InsertOrder(_ context.Context, o *domain.Order) error {
	if o.ExternalID != "" {
		for _, other := range t.d.orders {
			if other.ExternalID == o.ExternalID {
				return domain.Conflict("order with external id %s already exists", o.ExternalID)
			}
		}
	}
	now := t.now()
	o.CreatedAt, o.UpdatedAt = now, now
	stored := *o
	stored.Items = append([]domain.OrderItem(nil), o.Items...)
	t.d.orders[o.ID] = stored
	t.stamp(o.ID)
	return nil
}

func (t *tx) GetOrder(_ context.Context, id string) (domain.Order, error) {
	o, ok := t.d.orders[id]
	if !ok {
		return domain.Order{}, domain.NotFound("order %s not found", id)
	}
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o, nil
}

// GetOrderForUpdate needs no extra locking: transactions are already serialized.
func (t *tx) GetOrderForUpdate(ctx context.Context, id string) (domain.Order, error) {
	return t.GetOrder(ctx, id)
}

func (t *tx) FindOrderByExternalID(ctx context.Context, externalID string) (domain.Order, error) {
	for id, o := range t.d.orders {
		if o.ExternalID == externalID {
			return t.GetOrder(ctx, id)
		}
	}
	return domain.Order{}, domain.NotFound("order with external id %s not found", externalID)
}

func (t *tx) ListOrders(_ context.Context, f store.OrderFilter) ([]domain.Order, error) {
	ids := make([]string, 0, len(t.d.orders))
	for id, o := range t.d.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		ids = append(ids, id)
	}
	t.newestFirst(ids)
	out := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		o := t.d.orders[id]
		o.Items = append([]domain.OrderItem(nil), o.Items...)
		out = append(out, o)
	}
	return paginate(out, f.Page), nil
}

func (t *tx) SetOrderStatus(_ context.Context, id string, status domain.OrderStatus) error {
	o, ok := t.d.orders[id]
	if !ok {
		return domain.NotFound("order %s not found", id)
	}
	o.Status = status
	o.UpdatedAt = t.now()
	t.d.orders[id] = o
	return nil
}

func (t *tx) DeleteOrder(_ context.Context, id string) error {
	if _, ok := t.d.orders[id]; !ok {
		return domain.NotFound("order %s not found", id)
	}
	delete(t.d.orders, id)
	delete(t.d.order, id)
	for rid, r := range t.d.returns {
		if r.OrderID == id {
			delete(t.d.returns, rid)
			delete(t.d.order, rid)
		}
	}
	return nil
}

// bookings

func (t *tx) InsertBooking(_ context.Context, b *domain.Booking) error {
	now := t.now()
	b.CreatedAt, b.UpdatedAt = now, now
	t.d.bookings[b.ID] = *b
	t.stamp(b.ID)
	return nil
}

func (t *tx) GetBooking(_ context.Context, id string) (domain.Booking, error) {
	b, ok := t.d.bookings[id]
	if !ok {
		return domain.Booking{}, domain.NotFound("booking %s not found", id)
	}
	return b, nil
}

func (t *tx) GetBookingForUpdate(ctx context.Context, id string) (domain.Booking, error) {
	return t.GetBooking(ctx, id)
}

func (t *tx) ListBookings(_ context.Context, f store.BookingFilter) ([]domain.Booking, error) {
	ids := make([]string, 0, len(t.d.bookings))
	for id, b := range t.d.bookings {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		ids = append(ids, id)
	}
	t.newestFirst(ids)
	out := make([]domain.Booking, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.d.bookings[id])
	}
	return paginate(out, f.Page), nil
}

func (t *tx) UpdateBooking(_ context.Context, b *domain.Booking) error {
	cur, ok := t.d.bookings[b.ID]
	if !ok {
		return domain.NotFound("booking %s not found", b.ID)
	}
	b.CreatedAt = cur.CreatedAt
	b.UpdatedAt = t.now()
	t.d.bookings[b.ID] = *b
	return nil
}

func (t *tx) DeleteBooking(_ context.Context, id string) error {
	if _, ok := t.d.bookings[id]; !ok {
		return domain.NotFound("booking %s not found", id)
	}
	delete(t.d.bookings, id)
	delete(t.d.order, id)
	return nil
}

// returns

func (t *tx) InsertReturn(_ context.Context, r *domain.ReturnRequest) error {
	now := t.now()
	r.CreatedAt, r.UpdatedAt = now, now
	t.d.returns[r.ID] = *r
	t.stamp(r.ID)
	return nil
}

func (t *tx) GetReturn(_ context.Context, id string) (domain.ReturnRequest, error) {
	r, ok := t.d.returns[id]
	if !ok {
		return domain.ReturnRequest{}, domain.NotFound("return %s not found", id)
	}
	return r, nil
}

func (t *tx) GetReturnForUpdate(ctx context.Context, id string) (domain.ReturnRequest, error) {
	return t.GetReturn(ctx, id)
}

func (t *tx) ListReturns(_ context.Context, f store.ReturnFilter) ([]domain.ReturnRequest, error) {
	ids := make([]string, 0, len(t.d.returns))
	for id, r := range t.d.returns {
		if f.OrderID != "" && r.OrderID != f.OrderID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		ids = append(ids, id)
	}
	t.newestFirst(ids)
	out := make([]domain.ReturnRequest, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.d.returns[id])
	}
	return paginate(out, f.Page), nil
}

func (t *tx) UpdateReturn(_ context.Context, r *domain.ReturnRequest) error {
	cur, ok := t.d.returns[r.ID]
	if !ok {
		return domain.NotFound("return %s not found", r.ID)
	}
	r.CreatedAt = cur.CreatedAt
	r.UpdatedAt = t.now()
	t.d.returns[r.ID] = *r
	return nil
}

// notifications

func (t *tx) InsertNotification(_ context.Context, n *domain.Notification) error {
	n.CreatedAt = t.now()
	t.d.notifications[n.ID] = *n
	t.stamp(n.ID)
	return nil
}

func (t *tx) ListNotifications(_ context.Context, unreadOnly bool, page store.Page) ([]domain.Notification, error) {
	ids := make([]string, 0, len(t.d.notifications))
	for id, n := range t.d.notifications {
		if unreadOnly && n.Read {
			continue
		}
		ids = append(ids, id)
	}
	t.newestFirst(ids)
	out := make([]domain.Notification, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.d.notifications[id])
	}
	return paginate(out, page), nil
}

func (t *tx) MarkNotificationRead(_ context.Context, id string) error {
	n, ok := t.d.notifications[id]
	if !ok {
		return domain.NotFound("notification %s not found", id)
	}
	n.Read = true
	t.d.notifications[id] = n
	return nil
}

func (t *tx) MarkAllNotificationsRead(_ context.Context) (int, error) {
	count := 0
	for id, n := range t.d.notifications {
		if !n.Read {
			n.Read = true
			t.d.notifications[id] = n
			count++
		}
	}
	return count, nil
}

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*tx)(nil)
)
