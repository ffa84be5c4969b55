// Package returns records post-sale returns and credits approved ones to the
// stock counter that matches the condition the goods came back in.
package returns

import (
	"context"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/ariefcatur/go-storefront/internal/store"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type Service struct {
	Store       store.Store
	Ledger      *inventory.Ledger
	Publisher   events.Publisher
	Cache       inventory.ProductCache
	ServiceName string
	Log         *zap.Logger
}

type CreateInput struct {
	OrderID   string `json:"orderId"`
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
	Type      string `json:"type"`
	Notes     string `json:"notes"`
}

type ReviewInput struct {
	Status    string  `json:"status"`
	Notes     *string `json:"notes"`
	VariantID string  `json:"variantId"`
}

// Create records a PENDING return against an item of a shipped or delivered
// order. The quantity may not exceed what was ordered minus what is already
// under return.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.ReturnRequest, error) {
	if in.OrderID == "" || in.ProductID == "" {
		return domain.ReturnRequest{}, domain.Invalid("orderId and productId are required")
	}
	if in.Quantity <= 0 {
		return domain.ReturnRequest{}, domain.Invalid("quantity must be positive")
	}
	typ, err := domain.ParseReturnType(in.Type)
	if err != nil {
		return domain.ReturnRequest{}, err
	}

	r := domain.ReturnRequest{
		ID:        uuid.NewString(),
		OrderID:   in.OrderID,
		ProductID: in.ProductID,
		VariantID: in.VariantID,
		Quantity:  in.Quantity,
		Type:      typ,
		Status:    domain.ReturnPending,
		Notes:     strings.TrimSpace(in.Notes),
	}
	err = s.Store.InTx(ctx, func(tx store.Tx) error {
		o, err := tx.GetOrderForUpdate(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if o.Status != domain.OrderShipped && o.Status != domain.OrderDelivered {
			return domain.Conflict("order %s is %s; only shipped or delivered orders can be returned", o.ID, o.Status)
		}

		ordered, variants := orderedQuantity(o, r.ProductID, r.VariantID)
		if ordered == 0 {
			return domain.Invalid("order %s has no item for product %s", o.ID, r.ProductID)
		}
		// A product bought in a single variant pins the return to it.
		if r.VariantID == "" && len(variants) == 1 {
			r.VariantID = variants[0]
		}

		prev, err := tx.ListReturns(ctx, store.ReturnFilter{OrderID: o.ID, Page: store.Page{Limit: 200}})
		if err != nil {
			return err
		}
		requested := 0
		for _, p := range prev {
			if p.Status == domain.ReturnRejected || p.ProductID != r.ProductID {
				continue
			}
			if in.VariantID != "" && p.VariantID != "" && p.VariantID != in.VariantID {
				continue
			}
			requested += p.Quantity
		}
		if r.Quantity > ordered-requested {
			return domain.Invalid("quantity %d exceeds returnable %d", r.Quantity, ordered-requested)
		}
		return tx.InsertReturn(ctx, &r)
	})
	if err != nil {
		return domain.ReturnRequest{}, err
	}

	s.publish(ctx, nil, events.EventReturnRequested, r, "")
	s.Log.Info("return requested",
		zap.String("return_id", r.ID),
		zap.String("order_id", r.OrderID),
		zap.String("type", string(r.Type)),
		zap.Int("quantity", r.Quantity))
	return r, nil
}

// orderedQuantity sums the order's items for a product, restricted to one
// variant when given, and lists the distinct variants seen.
func orderedQuantity(o domain.Order, productID, variantID string) (int, []string) {
	total := 0
	var variants []string
	seen := map[string]bool{}
	for _, it := range o.Items {
		if it.ProductID != productID {
			continue
		}
		if variantID != "" && it.VariantID != variantID {
			continue
		}
		total += it.Quantity
		if it.VariantID != "" && !seen[it.VariantID] {
			seen[it.VariantID] = true
			variants = append(variants, it.VariantID)
		}
	}
	return total, variants
}

// Review approves or rejects a return. Approval credits the quantity to the
// counter chosen by the return type exactly once; repeating a decision is a
// no-op and reversing one is a conflict.
func (s *Service) Review(ctx context.Context, id string, in ReviewInput) (domain.ReturnRequest, error) {
	ctx, span := otel.Tracer("returns").Start(ctx, "ReviewReturn")
	defer span.End()
	span.SetAttributes(attribute.String("return.id", id))

	to, err := domain.ParseReturnStatus(in.Status)
	if err != nil {
		return domain.ReturnRequest{}, err
	}

	var (
		r         domain.ReturnRequest
		from      domain.ReturnStatus
		bucket    domain.Bucket
		sess      *inventory.Session
		productID string
	)
	err = s.Store.InTx(ctx, func(tx store.Tx) error {
		// Order row first, then the return; Create locks in the same order.
		cur, err := tx.GetReturn(ctx, id)
		if err != nil {
			return err
		}
		o, err := tx.GetOrderForUpdate(ctx, cur.OrderID)
		if err != nil {
			return err
		}
		r, err = tx.GetReturnForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = r.Status
		if from == to {
			if in.Notes == nil {
				return nil
			}
			r.Notes = *in.Notes
			return tx.UpdateReturn(ctx, &r)
		}
		if from.Decided() {
			return domain.Conflict("return %s is already %s", id, from)
		}

		if in.VariantID != "" && in.VariantID != r.VariantID {
			v, err := tx.GetVariant(ctx, in.VariantID)
			if err != nil {
				return err
			}
			if v.ProductID != r.ProductID {
				return domain.Invalid("variant %s does not belong to product %s", v.ID, r.ProductID)
			}
			r.VariantID = v.ID
		}
		r.Status = to
		if in.Notes != nil {
			r.Notes = *in.Notes
		}

		sess = s.Ledger.Begin(tx)
		if to == domain.ReturnApproved {
			if o.Status != domain.OrderShipped && o.Status != domain.OrderDelivered {
				return domain.Conflict("order %s is %s; only returns of shipped or delivered orders can be approved", o.ID, o.Status)
			}
			if r.VariantID == "" {
				return domain.Invalid("return %s has no variant; set variantId to approve it", id)
			}
			var ok bool
			if bucket, ok = r.Type.Bucket(); !ok {
				return domain.Invalid("unknown return type %q", r.Type)
			}
			if _, err := sess.Adjust(ctx, inventory.Adjustment{
				VariantID: r.VariantID,
				Bucket:    bucket,
				Delta:     r.Quantity,
				Reason:    inventory.ReasonReturn,
				RefType:   inventory.RefReturn,
				RefID:     r.ID,
			}); err != nil {
				return err
			}
			v, err := tx.GetVariant(ctx, r.VariantID)
			if err != nil {
				return err
			}
			productID = v.ProductID
		}
		return tx.UpdateReturn(ctx, &r)
	})
	if err != nil {
		span.RecordError(err)
		return domain.ReturnRequest{}, err
	}
	if from == to {
		return r, nil
	}

	s.publish(ctx, sess, events.EventReturnReviewed, r, bucket)
	if productID != "" && s.Cache != nil {
		s.Cache.InvalidateProduct(ctx, productID)
	}
	s.Log.Info("return reviewed",
		zap.String("return_id", r.ID),
		zap.String("status", string(r.Status)),
		zap.String("bucket", string(bucket)))
	return r, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.ReturnRequest, error) {
	var r domain.ReturnRequest
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		var err error
		r, err = tx.GetReturn(ctx, id)
		return err
	})
	return r, err
}

func (s *Service) List(ctx context.Context, f store.ReturnFilter) ([]domain.ReturnRequest, error) {
	var out []domain.ReturnRequest
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListReturns(ctx, f)
		return err
	})
	return out, err
}

func (s *Service) publish(ctx context.Context, sess *inventory.Session, eventType string, r domain.ReturnRequest, bucket domain.Bucket) {
	out := &events.Outbox{Producer: s.ServiceName, TraceID: events.TraceIDFrom(ctx)}
	if sess != nil {
		sess.Committed(out)
	}
	out.Add(events.TopicReturns, eventType, r.ID, events.ReturnPayload{
		ReturnID: r.ID,
		OrderID:  r.OrderID,
		Type:     string(r.Type),
		Status:   string(r.Status),
		Quantity: r.Quantity,
		Bucket:   string(bucket),
	})
	out.Flush(ctx, s.Publisher, s.Log)
}
