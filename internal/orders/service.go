package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Cache is the redis side of orders: status lookups and create idempotency.
type Cache interface {
	OrderStatus(ctx context.Context, orderID string) (redisx.StatusEntry, bool)
	SetOrderStatus(ctx context.Context, orderID, status string, updatedAt time.Time)
	ForgetOrder(ctx context.Context, orderID string)
	IdempotentOrder(ctx context.Context, externalID string) (string, bool)
	RememberOrder(ctx context.Context, externalID, orderID string)
	InvalidateProduct(ctx context.Context, productID string)
}

type Service struct {
	Store       store.Store
	Ledger      *inventory.Ledger
	Publisher   events.Publisher
	Cache       Cache
	ServiceName string
	Log         *zap.Logger
}

type ItemInput struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

type CreateInput struct {
	ExternalID    string      `json:"externalId"`
	UserID        string      `json:"userId"`
	GuestName     string      `json:"guestName"`
	GuestPhone    string      `json:"guestPhone"`
	GuestEmail    string      `json:"guestEmail"`
	GuestAddress  string      `json:"guestAddress"`
	GuestCity     string      `json:"guestCity"`
	PaymentMethod string      `json:"paymentMethod"`
	Items         []ItemInput `json:"items"`
}

func (in *CreateInput) validate() error {
	in.PaymentMethod = strings.ToUpper(strings.TrimSpace(in.PaymentMethod))
	if in.PaymentMethod == "" {
		in.PaymentMethod = domain.PaymentCOD
	}
	if in.PaymentMethod != domain.PaymentCOD {
		return domain.Invalid("payment method %q is not supported", in.PaymentMethod)
	}
	if in.UserID == "" && (strings.TrimSpace(in.GuestName) == "" || strings.TrimSpace(in.GuestPhone) == "") {
		return domain.Invalid("either userId or guestName and guestPhone are required")
	}
	if len(in.Items) == 0 {
		return domain.Invalid("order must have at least one item")
	}
	for i, it := range in.Items {
		if it.ProductID == "" {
			return domain.Invalid("items[%d]: productId is required", i)
		}
		if it.Quantity <= 0 {
			return domain.Invalid("items[%d]: quantity must be positive", i)
		}
	}
	return nil
}

// Create stores a PENDING order and takes its stock in the same transaction.
// A repeated externalId returns the order created the first time and
// existed=true.
func (s *Service) Create(ctx context.Context, in CreateInput) (order domain.Order, existed bool, err error) {
	ctx, span := otel.Tracer("orders").Start(ctx, "CreateOrder")
	defer span.End()

	if err := in.validate(); err != nil {
		return domain.Order{}, false, err
	}

	if id, ok := s.Cache.IdempotentOrder(ctx, in.ExternalID); ok {
		if o, err := s.Get(ctx, id); err == nil {
			return o, true, nil
		}
	}

	var sess *inventory.Session
	err = s.Store.InTx(ctx, func(tx store.Tx) error {
		if in.ExternalID != "" {
			prev, err := tx.FindOrderByExternalID(ctx, in.ExternalID)
			if err == nil {
				order, existed = prev, true
				return nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}

		o, err := s.build(ctx, tx, in)
		if err != nil {
			return err
		}
		if err := tx.InsertOrder(ctx, &o); err != nil {
			return err
		}
		sess = s.Ledger.Begin(tx)
		if err := sess.ApplyItems(ctx, o.Items, domain.OrderEffect("", o.Status), o.ID); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		// Lost a race on the same externalId: the winner's order is the answer.
		if in.ExternalID != "" && errors.Is(err, domain.ErrConflict) && !errors.Is(err, domain.ErrInsufficientStock) {
			if prev, ferr := s.findByExternalID(ctx, in.ExternalID); ferr == nil {
				return prev, true, nil
			}
		}
		span.RecordError(err)
		return domain.Order{}, false, err
	}
	if existed {
		s.Cache.RememberOrder(ctx, in.ExternalID, order.ID)
		return order, true, nil
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	out := s.outbox(ctx)
	sess.Committed(out)
	out.Add(events.TopicOrders, events.EventOrderCreated, order.ID, createdPayload(order))
	out.Flush(ctx, s.Publisher, s.Log)

	metrics.RecordOrderTransition("", string(order.Status))
	s.Cache.RememberOrder(ctx, in.ExternalID, order.ID)
	s.Cache.SetOrderStatus(ctx, order.ID, string(order.Status), order.UpdatedAt)
	s.invalidateProducts(ctx, order.Items)

	s.Log.Info("order created",
		zap.String("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.TotalAmount.StringFixed(2)))
	return order, false, nil
}

// build resolves products and variants and snapshots prices. Items of a
// product that has variants must name one, otherwise their stock would go
// untracked.
func (s *Service) build(ctx context.Context, tx store.Tx, in CreateInput) (domain.Order, error) {
	o := domain.Order{
		ID:            uuid.NewString(),
		ExternalID:    in.ExternalID,
		UserID:        in.UserID,
		GuestName:     strings.TrimSpace(in.GuestName),
		GuestPhone:    strings.TrimSpace(in.GuestPhone),
		GuestEmail:    strings.TrimSpace(in.GuestEmail),
		GuestAddress:  strings.TrimSpace(in.GuestAddress),
		GuestCity:     strings.TrimSpace(in.GuestCity),
		PaymentMethod: in.PaymentMethod,
		Status:        domain.OrderPending,
		TotalAmount:   decimal.Zero,
		Items:         make([]domain.OrderItem, 0, len(in.Items)),
	}

	for i, it := range in.Items {
		p, err := tx.GetProduct(ctx, it.ProductID)
		if err != nil {
			return o, err
		}
		if !p.Active {
			return o, domain.Invalid("items[%d]: product %q is not available", i, p.Name)
		}
		if it.VariantID != "" {
			v, err := tx.GetVariant(ctx, it.VariantID)
			if err != nil {
				return o, err
			}
			if v.ProductID != p.ID {
				return o, domain.Invalid("items[%d]: variant %s does not belong to product %s", i, v.ID, p.ID)
			}
		} else {
			vs, err := tx.ListVariants(ctx, p.ID)
			if err != nil {
				return o, err
			}
			if len(vs) > 0 {
				return o, domain.Invalid("items[%d]: variantId is required for product %q", i, p.Name)
			}
		}

		item := domain.OrderItem{
			ID:        uuid.NewString(),
			OrderID:   o.ID,
			ProductID: p.ID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			UnitPrice: p.UnitPrice(),
		}
		o.Items = append(o.Items, item)
		o.TotalAmount = o.TotalAmount.Add(item.Subtotal())
	}
	return o, nil
}

func (s *Service) findByExternalID(ctx context.Context, externalID string) (domain.Order, error) {
	var o domain.Order
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		var err error
		o, err = tx.FindOrderByExternalID(ctx, externalID)
		return err
	})
	return o, err
}

// UpdateStatus moves an order to a new status and applies the paired stock
// change in one transaction. Re-sending the current status changes nothing.
func (s *Service) UpdateStatus(ctx context.Context, id, rawStatus string) (domain.Order, error) {
	ctx, span := otel.Tracer("orders").Start(ctx, "UpdateOrderStatus")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id))

	to, err := domain.ParseOrderStatus(rawStatus)
	if err != nil {
		return domain.Order{}, err
	}

	var (
		order  domain.Order
		from   domain.OrderStatus
		effect domain.StockEffect
		sess   *inventory.Session
	)
	err = s.Store.InTx(ctx, func(tx store.Tx) error {
		o, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = o.Status
		if from == to {
			order = o
			return nil
		}
		if !domain.CanTransition(from, to) {
			return domain.Conflict("order %s cannot go from %s to %s; use a return instead", id, from, to)
		}

		effect = domain.OrderEffect(from, to)
		if err := guardReturned(ctx, tx, o.ID, effect); err != nil {
			return err
		}
		sess = s.Ledger.Begin(tx)
		if err := sess.ApplyItems(ctx, o.Items, effect, o.ID); err != nil {
			return err
		}
		if err := tx.SetOrderStatus(ctx, id, to); err != nil {
			return err
		}
		order, err = tx.GetOrder(ctx, id)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return domain.Order{}, err
	}
	if from == to {
		return order, nil
	}

	out := s.outbox(ctx)
	sess.Committed(out)
	out.Add(events.TopicOrders, events.EventOrderStatusChanged, order.ID, events.OrderStatusChangedPayload{
		OrderID:       order.ID,
		From:          string(from),
		To:            string(to),
		StockEffect:   effect.String(),
		CustomerEmail: order.GuestEmail,
	})
	out.Flush(ctx, s.Publisher, s.Log)

	metrics.RecordOrderTransition(string(from), string(to))
	s.Cache.SetOrderStatus(ctx, order.ID, string(order.Status), order.UpdatedAt)
	if effect != domain.EffectNone {
		s.invalidateProducts(ctx, order.Items)
	}

	s.Log.Info("order status changed",
		zap.String("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("stock_effect", effect.String()))
	return order, nil
}

// Delete removes an order and its items, giving stock back if it still held any.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := otel.Tracer("orders").Start(ctx, "DeleteOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id))

	var (
		order  domain.Order
		effect domain.StockEffect
		sess   *inventory.Session
	)
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		var err error
		order, err = tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		effect = domain.OrderEffect(order.Status, "")
		if err := guardReturned(ctx, tx, order.ID, effect); err != nil {
			return err
		}
		sess = s.Ledger.Begin(tx)
		if err := sess.ApplyItems(ctx, order.Items, effect, order.ID); err != nil {
			return err
		}
		return tx.DeleteOrder(ctx, id)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	out := s.outbox(ctx)
	sess.Committed(out)
	out.Add(events.TopicOrders, events.EventOrderDeleted, order.ID, events.OrderDeletedPayload{
		OrderID:     order.ID,
		Status:      string(order.Status),
		StockEffect: effect.String(),
	})
	out.Flush(ctx, s.Publisher, s.Log)

	metrics.RecordOrderTransition(string(order.Status), "")
	s.Cache.ForgetOrder(ctx, order.ID)
	if effect != domain.EffectNone {
		s.invalidateProducts(ctx, order.Items)
	}
	s.Log.Info("order deleted", zap.String("order_id", order.ID), zap.String("stock_effect", effect.String()))
	return nil
}

// guardReturned refuses to release the stock of an order with returns that
// are approved or still awaiting review; those units are credited by the
// return, not by the order.
func guardReturned(ctx context.Context, tx store.Tx, orderID string, effect domain.StockEffect) error {
	if effect != domain.EffectRelease {
		return nil
	}
	rs, err := tx.ListReturns(ctx, store.ReturnFilter{OrderID: orderID, Page: store.Page{Limit: 200}})
	if err != nil {
		return err
	}
	for _, r := range rs {
		if r.Status != domain.ReturnRejected {
			return domain.Conflict("order %s has a %s return %s; reject it first", orderID, r.Status, r.ID)
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		var err error
		o, err = tx.GetOrder(ctx, id)
		return err
	})
	return o, err
}

func (s *Service) List(ctx context.Context, f store.OrderFilter) ([]domain.Order, error) {
	var out []domain.Order
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListOrders(ctx, f)
		return err
	})
	return out, err
}

// Status serves the cheap status poll from redis, falling back to the database.
func (s *Service) Status(ctx context.Context, id string) (redisx.StatusEntry, error) {
	if e, ok := s.Cache.OrderStatus(ctx, id); ok {
		return e, nil
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return redisx.StatusEntry{}, err
	}
	s.Cache.SetOrderStatus(ctx, o.ID, string(o.Status), o.UpdatedAt)
	return redisx.StatusEntry{Status: string(o.Status), UpdatedAt: o.UpdatedAt}, nil
}

func (s *Service) outbox(ctx context.Context) *events.Outbox {
	return &events.Outbox{Producer: s.ServiceName, TraceID: events.TraceIDFrom(ctx)}
}

func (s *Service) invalidateProducts(ctx context.Context, items []domain.OrderItem) {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.VariantID == "" || seen[it.ProductID] {
			continue
		}
		seen[it.ProductID] = true
		s.Cache.InvalidateProduct(ctx, it.ProductID)
	}
}

func createdPayload(o domain.Order) events.OrderCreatedPayload {
	items := make([]events.OrderItemPayload, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, events.OrderItemPayload{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Qty:       it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return events.OrderCreatedPayload{
		OrderID:       o.ID,
		ExternalID:    o.ExternalID,
		CustomerName:  o.GuestName,
		CustomerEmail: o.GuestEmail,
		Items:         items,
		Total:         o.TotalAmount,
	}
}
