// Package bookings handles single-item reservations. A booking holds one unit
// of its variant for as long as it is CONFIRMED.
package bookings

import (
	"context"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/ariefcatur/go-storefront/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	City           string          `json:"city"`
	ProductModel   string          `json:"productModel"`
	ProductSize    string          `json:"productSize"`
	VariantID      string          `json:"variantId"`
	ShippingAmount decimal.Decimal `json:"shippingAmount"`
	Notes          string          `json:"notes"`
	Status         string          `json:"status"`
}

// UpdateInput changes status and/or notes; nil fields are left alone.
type UpdateInput struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

// Create stores a booking bound to one variant. The variant is given directly
// or resolved from the product model name and size.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Booking, error) {
	ctx, span := otel.Tracer("bookings").Start(ctx, "CreateBooking")
	defer span.End()

	b := domain.Booking{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(in.Name),
		Phone:          strings.TrimSpace(in.Phone),
		City:           strings.TrimSpace(in.City),
		ProductModel:   strings.TrimSpace(in.ProductModel),
		ProductSize:    strings.TrimSpace(in.ProductSize),
		ShippingAmount: in.ShippingAmount,
		Notes:          in.Notes,
		Status:         domain.BookingPending,
		Type:           domain.BookingTypeReservation,
	}
	if b.Name == "" || b.Phone == "" {
		return domain.Booking{}, domain.Invalid("name and phone are required")
	}
	if b.ShippingAmount.IsNegative() {
		return domain.Booking{}, domain.Invalid("shipping amount must not be negative")
	}
	if in.VariantID == "" && (b.ProductModel == "" || b.ProductSize == "") {
		return domain.Booking{}, domain.Invalid("variantId or productModel and productSize are required")
	}
	if in.Status != "" {
		st, err := domain.ParseBookingStatus(in.Status)
		if err != nil {
			return domain.Booking{}, err
		}
		b.Status = st
	}

	var (
		sess      *inventory.Session
		productID string
	)
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		v, p, err := resolveVariant(ctx, tx, in.VariantID, b.ProductModel, b.ProductSize)
		if err != nil {
			return err
		}
		b.VariantID, productID = v.ID, p.ID
		if b.ProductModel == "" {
			b.ProductModel = p.Name
		}
		if b.ProductSize == "" {
			b.ProductSize = v.Size
		}

		if err := tx.InsertBooking(ctx, &b); err != nil {
			return err
		}
		sess = s.Ledger.Begin(tx)
		return applyEffect(ctx, sess, b, domain.BookingEffect("", b.Status))
	})
	if err != nil {
		span.RecordError(err)
		return domain.Booking{}, err
	}

	s.afterCommit(ctx, sess, events.EventBookingCreated, b, "", productID)
	s.Log.Info("booking created",
		zap.String("booking_id", b.ID),
		zap.String("variant_id", b.VariantID),
		zap.String("status", string(b.Status)))
	return b, nil
}

func resolveVariant(ctx context.Context, tx store.Tx, variantID, model, size string) (domain.Variant, domain.Product, error) {
	if variantID != "" {
		v, err := tx.GetVariant(ctx, variantID)
		if err != nil {
			return domain.Variant{}, domain.Product{}, err
		}
		p, err := tx.GetProduct(ctx, v.ProductID)
		return v, p, err
	}
	p, err := tx.FindProductByName(ctx, model)
	if err != nil {
		return domain.Variant{}, domain.Product{}, err
	}
	v, err := tx.FindVariant(ctx, p.ID, size)
	return v, p, err
}

// Update changes status and/or notes. Entering CONFIRMED takes one unit and
// fails with a conflict when none is left; leaving CONFIRMED gives it back.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (domain.Booking, error) {
	ctx, span := otel.Tracer("bookings").Start(ctx, "UpdateBooking")
	defer span.End()
	span.SetAttributes(attribute.String("booking.id", id))

	if in.Status == nil && in.Notes == nil {
		return domain.Booking{}, domain.Invalid("nothing to update")
	}
	var to domain.BookingStatus
	if in.Status != nil {
		var err error
		if to, err = domain.ParseBookingStatus(*in.Status); err != nil {
			return domain.Booking{}, err
		}
	}

	var (
		b         domain.Booking
		from      domain.BookingStatus
		sess      *inventory.Session
		productID string
	)
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		var err error
		b, err = tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = b.Status
		if to != "" {
			b.Status = to
		}
		if in.Notes != nil {
			b.Notes = *in.Notes
		}

		effect := domain.BookingEffect(from, b.Status)
		if effect != domain.EffectNone {
			v, err := tx.GetVariant(ctx, b.VariantID)
			if err != nil {
				return err
			}
			productID = v.ProductID
		}
		sess = s.Ledger.Begin(tx)
		if err := applyEffect(ctx, sess, b, effect); err != nil {
			return err
		}
		return tx.UpdateBooking(ctx, &b)
	})
	if err != nil {
		span.RecordError(err)
		return domain.Booking{}, err
	}

	if from != b.Status {
		s.afterCommit(ctx, sess, events.EventBookingStatusChanged, b, from, productID)
		s.Log.Info("booking status changed",
			zap.String("booking_id", b.ID),
			zap.String("from", string(from)),
			zap.String("to", string(b.Status)))
	}
	return b, nil
}

// Delete removes a booking, releasing its unit if it was CONFIRMED.
func (s *Service) Delete(ctx context.Context, id string) error {
	var (
		b         domain.Booking
		sess      *inventory.Session
		productID string
	)
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		var err error
		b, err = tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		effect := domain.BookingEffect(b.Status, "")
		if effect != domain.EffectNone {
			v, err := tx.GetVariant(ctx, b.VariantID)
			if err != nil {
				return err
			}
			productID = v.ProductID
		}
		sess = s.Ledger.Begin(tx)
		if err := applyEffect(ctx, sess, b, effect); err != nil {
			return err
		}
		return tx.DeleteBooking(ctx, id)
	})
	if err != nil {
		return err
	}
	s.afterCommit(ctx, sess, events.EventBookingDeleted, b, b.Status, productID)
	s.Log.Info("booking deleted", zap.String("booking_id", b.ID), zap.String("status", string(b.Status)))
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Booking, error) {
	var b domain.Booking
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		var err error
		b, err = tx.GetBooking(ctx, id)
		return err
	})
	return b, err
}

func (s *Service) List(ctx context.Context, f store.BookingFilter) ([]domain.Booking, error) {
	var out []domain.Booking
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListBookings(ctx, f)
		return err
	})
	return out, err
}

func applyEffect(ctx context.Context, sess *inventory.Session, b domain.Booking, effect domain.StockEffect) error {
	if effect == domain.EffectNone {
		return nil
	}
	reason := inventory.ReasonBookingReserve
	if effect == domain.EffectRelease {
		reason = inventory.ReasonBookingRelease
	}
	_, err := sess.Adjust(ctx, inventory.Adjustment{
		VariantID: b.VariantID,
		Bucket:    domain.BucketStock,
		Delta:     effect.Sign(),
		Reason:    reason,
		RefType:   inventory.RefBooking,
		RefID:     b.ID,
	})
	return err
}

func (s *Service) afterCommit(ctx context.Context, sess *inventory.Session, eventType string, b domain.Booking, from domain.BookingStatus, productID string) {
	out := &events.Outbox{Producer: s.ServiceName, TraceID: events.TraceIDFrom(ctx)}
	sess.Committed(out)
	p := events.BookingPayload{
		BookingID:    b.ID,
		Name:         b.Name,
		Phone:        b.Phone,
		ProductModel: b.ProductModel,
		ProductSize:  b.ProductSize,
		To:           string(b.Status),
	}
	if eventType != events.EventBookingCreated {
		p.From = string(from)
	}
	out.Add(events.TopicBookings, eventType, b.ID, p)
	out.Flush(ctx, s.Publisher, s.Log)

	if productID != "" && len(sess.Applied()) > 0 && s.Cache != nil {
		s.Cache.InvalidateProduct(ctx, productID)
	}
}
