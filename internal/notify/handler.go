// Package notify turns domain events into admin notifications and customer
// mail. Everything here is fire-and-forget for the business flows: a failed
// notification never undoes an order.
package notify

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/ariefcatur/go-storefront/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deduper remembers processed event ids; kafka delivers at least once.
type Deduper interface {
	FirstSeen(ctx context.Context, consumer, eventID string) bool
	Forget(ctx context.Context, consumer, eventID string)
}

type Handler struct {
	Store      store.Store
	Mailer     Mailer
	Dedup      Deduper
	Consumer   string
	AdminEmail string
	Log        *zap.Logger
}

type message struct {
	notification domain.Notification
	mailTo       string
	subject      string
	body         string
}

// Handle implements events.Handler.
func (h *Handler) Handle(ctx context.Context, env events.Envelope) error {
	msgs, err := h.render(env)
	if err != nil {
		h.Log.Warn("undecodable event", zap.String("event_type", env.EventType), zap.Error(err))
		return nil
	}
	if len(msgs) == 0 {
		return nil
	}
	if h.Dedup != nil && !h.Dedup.FirstSeen(ctx, h.Consumer, env.EventID) {
		h.Log.Debug("duplicate event skipped", zap.String("event_id", env.EventID))
		return nil
	}

	err = h.Store.InTx(ctx, func(tx store.Tx) error {
		for i := range msgs {
			if msgs[i].notification.Title == "" {
				continue
			}
			if err := tx.InsertNotification(ctx, &msgs[i].notification); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if h.Dedup != nil {
			h.Dedup.Forget(ctx, h.Consumer, env.EventID)
		}
		return fmt.Errorf("store notification for %s: %w", env.EventType, err)
	}
	metrics.RecordNotification(env.EventType)

	for _, m := range msgs {
		if m.mailTo == "" || h.Mailer == nil {
			continue
		}
		if err := h.Mailer.Send(ctx, m.mailTo, m.subject, m.body); err != nil {
			h.Log.Warn("mail failed", zap.String("event_type", env.EventType), zap.String("to", m.mailTo), zap.Error(err))
		}
	}
	return nil
}

func note(t domain.NotificationType, title, desc string) domain.Notification {
	return domain.Notification{ID: uuid.NewString(), Title: title, Description: desc, Type: t}
}

func (h *Handler) render(env events.Envelope) ([]message, error) {
	switch env.EventType {
	case events.EventOrderCreated:
		p, err := events.Decode[events.OrderCreatedPayload](env)
		if err != nil {
			return nil, err
		}
		who := p.CustomerName
		if who == "" {
			who = "a registered customer"
		}
		msgs := []message{{
			notification: note(domain.NotificationOrder, "New order",
				fmt.Sprintf("Order %s from %s, %d item(s), total %s", p.OrderID, who, len(p.Items), p.Total.StringFixed(2))),
		}}
		if p.CustomerEmail != "" {
			msgs = append(msgs, message{
				mailTo:  p.CustomerEmail,
				subject: "We received your order",
				body:    fmt.Sprintf("Thank you for your order %s. Total to pay on delivery: %s.", p.OrderID, p.Total.StringFixed(2)),
			})
		}
		return msgs, nil

	case events.EventOrderStatusChanged:
		p, err := events.Decode[events.OrderStatusChangedPayload](env)
		if err != nil {
			return nil, err
		}
		msgs := []message{{
			notification: note(domain.NotificationOrder, "Order status updated",
				fmt.Sprintf("Order %s moved from %s to %s", p.OrderID, p.From, p.To)),
		}}
		if p.CustomerEmail != "" {
			msgs = append(msgs, message{
				mailTo:  p.CustomerEmail,
				subject: fmt.Sprintf("Your order is now %s", p.To),
				body:    fmt.Sprintf("Order %s is now %s.", p.OrderID, p.To),
			})
		}
		return msgs, nil

	case events.EventOrderDeleted:
		p, err := events.Decode[events.OrderDeletedPayload](env)
		if err != nil {
			return nil, err
		}
		return []message{{
			notification: note(domain.NotificationSystem, "Order deleted",
				fmt.Sprintf("Order %s (%s) was deleted", p.OrderID, p.Status)),
		}}, nil

	case events.EventBookingCreated:
		p, err := events.Decode[events.BookingPayload](env)
		if err != nil {
			return nil, err
		}
		return []message{{
			notification: note(domain.NotificationUser, "New booking",
				fmt.Sprintf("%s (%s) booked %s size %s", p.Name, p.Phone, p.ProductModel, p.ProductSize)),
		}}, nil

	case events.EventReturnRequested:
		p, err := events.Decode[events.ReturnPayload](env)
		if err != nil {
			return nil, err
		}
		return []message{{
			notification: note(domain.NotificationOrder, "Return requested",
				fmt.Sprintf("%d item(s) of order %s returned as %s", p.Quantity, p.OrderID, p.Type)),
		}}, nil

	case events.EventStockLow:
		p, err := events.Decode[events.StockLowPayload](env)
		if err != nil {
			return nil, err
		}
		desc := fmt.Sprintf("%s %s/%s has %d left (threshold %d)", p.ProductName, p.Color, p.Size, p.Stock, p.Threshold)
		return []message{{
			notification: note(domain.NotificationSystem, "Low stock", desc),
			mailTo:       h.AdminEmail,
			subject:      "Low stock: " + p.ProductName,
			body:         desc,
		}}, nil
	}
	return nil, nil
}
