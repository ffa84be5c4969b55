package inventory

import (
	"context"

	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const ReasonReclassify = "reclassify"

// ProductCache drops cached product views whose stock figures went stale.
type ProductCache interface {
	InvalidateProduct(ctx context.Context, productID string)
}

// Service exposes the manual stock operations of the back office. Order,
// booking and return flows use a Session directly inside their own
// transactions.
type Service struct {
	Store       store.Store
	Ledger      *Ledger
	Publisher   events.Publisher
	Cache       ProductCache
	ServiceName string
	Log         *zap.Logger
}

var manualReasons = map[string]bool{
	ReasonRestock:    true,
	ReasonWriteOff:   true,
	ReasonCorrection: true,
}

type ManualAdjustment struct {
	Bucket domain.Bucket
	Delta  int
	Reason string
	Note   string
}

// Adjust books a manual delta (delivery, write-off, count correction).
func (s *Service) Adjust(ctx context.Context, variantID string, in ManualAdjustment) (domain.Variant, domain.StockMovement, error) {
	ctx, span := otel.Tracer("inventory").Start(ctx, "Adjust")
	defer span.End()
	span.SetAttributes(attribute.String("variant.id", variantID), attribute.Int("delta", in.Delta))

	if in.Delta == 0 {
		return domain.Variant{}, domain.StockMovement{}, domain.Invalid("delta must not be zero")
	}
	if in.Reason == "" {
		in.Reason = ReasonRestock
		if in.Delta < 0 {
			in.Reason = ReasonWriteOff
		}
	}
	if !manualReasons[in.Reason] {
		return domain.Variant{}, domain.StockMovement{}, domain.Invalid("reason %q is not allowed for manual adjustments", in.Reason)
	}
	if in.Reason == ReasonRestock && in.Delta < 0 {
		return domain.Variant{}, domain.StockMovement{}, domain.Invalid("restock needs a positive delta")
	}
	if in.Reason == ReasonWriteOff && in.Delta > 0 {
		return domain.Variant{}, domain.StockMovement{}, domain.Invalid("write-off needs a negative delta")
	}

	var (
		v    domain.Variant
		m    domain.StockMovement
		sess *Session
	)
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		sess = s.Ledger.Begin(tx)
		var err error
		m, err = sess.Adjust(ctx, Adjustment{
			VariantID: variantID,
			Bucket:    in.Bucket,
			Delta:     in.Delta,
			Reason:    in.Reason,
			RefType:   RefManual,
			RefID:     in.Note,
		})
		if err != nil {
			return err
		}
		v, err = tx.GetVariant(ctx, variantID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return domain.Variant{}, domain.StockMovement{}, err
	}
	s.afterCommit(ctx, sess, v.ProductID)
	return v, m, nil
}

// Reclassify moves units between two counters of the same variant, e.g. from
// wash_stock back to stock once items are cleaned.
func (s *Service) Reclassify(ctx context.Context, variantID string, from, to domain.Bucket, qty int) (domain.Variant, error) {
	if qty <= 0 {
		return domain.Variant{}, domain.Invalid("quantity must be positive")
	}
	if from == to {
		return domain.Variant{}, domain.Invalid("source and target bucket are the same")
	}
	var (
		v    domain.Variant
		sess *Session
	)
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		sess = s.Ledger.Begin(tx)
		if _, err := sess.Adjust(ctx, Adjustment{
			VariantID: variantID, Bucket: from, Delta: -qty,
			Reason: ReasonReclassify, RefType: RefManual, RefID: string(to),
		}); err != nil {
			return err
		}
		if _, err := sess.Adjust(ctx, Adjustment{
			VariantID: variantID, Bucket: to, Delta: qty,
			Reason: ReasonReclassify, RefType: RefManual, RefID: string(from),
		}); err != nil {
			return err
		}
		var err error
		v, err = tx.GetVariant(ctx, variantID)
		return err
	})
	if err != nil {
		return domain.Variant{}, err
	}
	s.afterCommit(ctx, sess, v.ProductID)
	return v, nil
}

func (s *Service) afterCommit(ctx context.Context, sess *Session, productID string) {
	out := &events.Outbox{Producer: s.ServiceName, TraceID: events.TraceIDFrom(ctx)}
	sess.Committed(out)
	out.Flush(ctx, s.Publisher, s.Log)
	if s.Cache != nil {
		s.Cache.InvalidateProduct(ctx, productID)
	}
}

func (s *Service) Movements(ctx context.Context, variantID string, page store.Page) ([]domain.StockMovement, error) {
	var out []domain.StockMovement
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetVariant(ctx, variantID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListMovements(ctx, variantID, page)
		return err
	})
	return out, err
}

func (s *Service) LowStock(ctx context.Context) ([]store.LowStockRow, error) {
	var out []store.LowStockRow
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.LowStock(ctx)
		return err
	})
	return out, err
}
