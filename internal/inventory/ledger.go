// Package inventory owns every write to variant stock counters. Callers pass
// deltas with a reason; raw "set stock" does not exist.
package inventory

import (
	"context"
	"errors"
	"sort"

	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/ariefcatur/go-storefront/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ReasonOrderReserve   = "order_reserve"
	ReasonOrderRelease   = "order_release"
	ReasonBookingReserve = "booking_reserve"
	ReasonBookingRelease = "booking_release"
	ReasonReturn         = "return"
	ReasonInitial        = "initial"
	ReasonRestock        = "restock"
	ReasonWriteOff       = "write_off"
	ReasonCorrection     = "correction"
)

const (
	RefOrder   = "order"
	RefBooking = "booking"
	RefReturn  = "return"
	RefManual  = "manual"
)

type Adjustment struct {
	VariantID string
	Bucket    domain.Bucket
	Delta     int
	Reason    string
	RefType   string
	RefID     string
}

type Ledger struct {
	Log *zap.Logger
}

// Begin binds the ledger to one transaction. The returned session must not
// outlive it.
func (l *Ledger) Begin(tx store.Tx) *Session {
	return &Session{tx: tx, log: l.Log}
}

type Session struct {
	tx      store.Tx
	log     *zap.Logger
	applied []domain.StockMovement
	low     []events.StockLowPayload
}

// Adjust applies one delta and writes the movement row. A zero delta is a no-op.
func (s *Session) Adjust(ctx context.Context, a Adjustment) (domain.StockMovement, error) {
	if !a.Bucket.Valid() {
		return domain.StockMovement{}, domain.Invalid("unknown stock bucket %q", a.Bucket)
	}
	if a.VariantID == "" {
		return domain.StockMovement{}, domain.Invalid("variant id is required")
	}
	if a.Delta == 0 {
		return domain.StockMovement{}, nil
	}

	after, err := s.tx.AdjustStock(ctx, a.VariantID, a.Bucket, a.Delta)
	if err != nil {
		var short *domain.ShortageError
		if errors.As(err, &short) {
			metrics.RecordStockRejection(string(a.Bucket), a.Reason)
			s.log.Info("stock change refused",
				zap.String("variant_id", a.VariantID),
				zap.String("bucket", string(a.Bucket)),
				zap.Int("delta", a.Delta),
				zap.Int("available", short.Available),
				zap.String("reason", a.Reason))
		}
		return domain.StockMovement{}, err
	}

	m := domain.StockMovement{
		ID:        uuid.NewString(),
		VariantID: a.VariantID,
		Bucket:    a.Bucket,
		Delta:     a.Delta,
		Before:    after - a.Delta,
		After:     after,
		Reason:    a.Reason,
		RefType:   a.RefType,
		RefID:     a.RefID,
	}
	if err := s.tx.InsertMovement(ctx, &m); err != nil {
		return domain.StockMovement{}, err
	}
	s.applied = append(s.applied, m)

	if a.Bucket == domain.BucketStock && a.Delta < 0 {
		if err := s.checkLow(ctx, m); err != nil {
			return domain.StockMovement{}, err
		}
	}
	return m, nil
}

// checkLow records a crossing of the reorder threshold, not every sale below it.
func (s *Session) checkLow(ctx context.Context, m domain.StockMovement) error {
	v, err := s.tx.GetVariant(ctx, m.VariantID)
	if err != nil {
		return err
	}
	p, err := s.tx.GetProduct(ctx, v.ProductID)
	if err != nil {
		return err
	}
	if m.After <= p.ReorderThreshold && m.Before > p.ReorderThreshold {
		s.low = append(s.low, events.StockLowPayload{
			ProductID:   p.ID,
			ProductName: p.Name,
			VariantID:   v.ID,
			Color:       v.Color,
			Size:        v.Size,
			Stock:       m.After,
			Threshold:   p.ReorderThreshold,
		})
	}
	return nil
}

// ApplyItems applies an order stock effect to every item that names a
// variant. Quantities are summed per variant and applied in id order so two
// transactions touching the same variants lock them in the same sequence.
func (s *Session) ApplyItems(ctx context.Context, items []domain.OrderItem, effect domain.StockEffect, orderID string) error {
	sign := effect.Sign()
	if sign == 0 {
		return nil
	}
	reason := ReasonOrderReserve
	if effect == domain.EffectRelease {
		reason = ReasonOrderRelease
	}

	totals := make(map[string]int)
	for _, it := range items {
		if it.VariantID == "" {
			continue
		}
		totals[it.VariantID] += it.Quantity
	}
	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if _, err := s.Adjust(ctx, Adjustment{
			VariantID: id,
			Bucket:    domain.BucketStock,
			Delta:     sign * totals[id],
			Reason:    reason,
			RefType:   RefOrder,
			RefID:     orderID,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) Applied() []domain.StockMovement { return s.applied }

// Committed is called once the enclosing transaction is durable. It counts
// the applied movements and queues low-stock alerts.
func (s *Session) Committed(out *events.Outbox) {
	for _, m := range s.applied {
		metrics.RecordStockAdjustment(string(m.Bucket), m.Reason)
	}
	for _, low := range s.low {
		out.Add(events.TopicInventory, events.EventStockLow, low.VariantID, low)
	}
}
