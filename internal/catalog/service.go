// Package catalog manages products and their color/size variants. Stock
// counters are read here but only ever written through the inventory ledger.
package catalog

import (
	"context"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/ariefcatur/go-storefront/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Cache stores the product-with-variants view served by GetProduct.
type Cache interface {
	Product(ctx context.Context, productID string, out any) bool
	SetProduct(ctx context.Context, productID string, v any)
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

type ProductInput struct {
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	DiscountPercent  decimal.Decimal `json:"discountPercent"`
	Category         string          `json:"category"`
	Active           *bool           `json:"active"`
	ReorderThreshold *int            `json:"reorderThreshold"`
}

// ProductPatch carries the editable product fields; stock is not among them.
type ProductPatch struct {
	Name             *string          `json:"name"`
	Price            *decimal.Decimal `json:"price"`
	DiscountPercent  *decimal.Decimal `json:"discountPercent"`
	Category         *string          `json:"category"`
	Active           *bool            `json:"active"`
	ReorderThreshold *int             `json:"reorderThreshold"`
}

type VariantInput struct {
	Color string `json:"color"`
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

const defaultReorderThreshold = 3

var hundred = decimal.NewFromInt(100)

func validateProduct(p domain.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return domain.Invalid("name is required")
	}
	if p.Price.IsNegative() {
		return domain.Invalid("price must not be negative")
	}
	if p.DiscountPercent.IsNegative() || p.DiscountPercent.GreaterThan(hundred) {
		return domain.Invalid("discount must be between 0 and 100")
	}
	if p.ReorderThreshold < 0 {
		return domain.Invalid("reorder threshold must not be negative")
	}
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (domain.Product, error) {
	p := domain.Product{
		ID:               uuid.NewString(),
		Name:             strings.TrimSpace(in.Name),
		Price:            in.Price,
		DiscountPercent:  in.DiscountPercent,
		Category:         strings.TrimSpace(in.Category),
		Active:           true,
		ReorderThreshold: defaultReorderThreshold,
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if in.ReorderThreshold != nil {
		p.ReorderThreshold = *in.ReorderThreshold
	}
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		return tx.InsertProduct(ctx, &p)
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.Log.Info("product created", zap.String("product_id", p.ID), zap.String("name", p.Name))
	p.Variants = []domain.Variant{}
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductPatch) (domain.Product, error) {
	var p domain.Product
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if p, err = tx.GetProduct(ctx, id); err != nil {
			return err
		}
		if in.Name != nil {
			p.Name = strings.TrimSpace(*in.Name)
		}
		if in.Price != nil {
			p.Price = *in.Price
		}
		if in.DiscountPercent != nil {
			p.DiscountPercent = *in.DiscountPercent
		}
		if in.Category != nil {
			p.Category = strings.TrimSpace(*in.Category)
		}
		if in.Active != nil {
			p.Active = *in.Active
		}
		if in.ReorderThreshold != nil {
			p.ReorderThreshold = *in.ReorderThreshold
		}
		if err := validateProduct(p); err != nil {
			return err
		}
		if err := tx.UpdateProduct(ctx, &p); err != nil {
			return err
		}
		p.Variants, err = tx.ListVariants(ctx, p.ID)
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.Cache.InvalidateProduct(ctx, p.ID)
	return p, nil
}

// GetProduct returns a product with its variants, from redis when cached.
func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	if s.Cache.Product(ctx, id, &p) {
		return p, nil
	}
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if p, err = tx.GetProduct(ctx, id); err != nil {
			return err
		}
		p.Variants, err = tx.ListVariants(ctx, id)
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}
	s.Cache.SetProduct(ctx, id, p)
	return p, nil
}

func (s *Service) ListProducts(ctx context.Context, activeOnly bool, page store.Page) ([]domain.Product, error) {
	var out []domain.Product
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if out, err = tx.ListProducts(ctx, activeOnly, page); err != nil {
			return err
		}
		for i := range out {
			if out[i].Variants, err = tx.ListVariants(ctx, out[i].ID); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// AddVariant creates a color/size variant. Opening stock is booked as an
// "initial" movement so the history explains every unit.
func (s *Service) AddVariant(ctx context.Context, productID string, in VariantInput) (domain.Variant, error) {
	v := domain.Variant{
		ID:        uuid.NewString(),
		ProductID: productID,
		Color:     strings.TrimSpace(in.Color),
		Size:      strings.ToUpper(strings.TrimSpace(in.Size)),
	}
	if v.Size == "" {
		return domain.Variant{}, domain.Invalid("size is required")
	}
	if in.Stock < 0 {
		return domain.Variant{}, domain.Invalid("initial stock must not be negative")
	}

	var sess *inventory.Session
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetProduct(ctx, productID); err != nil {
			return err
		}
		if err := tx.InsertVariant(ctx, &v); err != nil {
			return err
		}
		sess = s.Ledger.Begin(tx)
		if _, err := sess.Adjust(ctx, inventory.Adjustment{
			VariantID: v.ID,
			Bucket:    domain.BucketStock,
			Delta:     in.Stock,
			Reason:    inventory.ReasonInitial,
			RefType:   inventory.RefManual,
		}); err != nil {
			return err
		}
		var err error
		v, err = tx.GetVariant(ctx, v.ID)
		return err
	})
	if err != nil {
		return domain.Variant{}, err
	}

	out := &events.Outbox{Producer: s.ServiceName, TraceID: events.TraceIDFrom(ctx)}
	sess.Committed(out)
	out.Flush(ctx, s.Publisher, s.Log)
	s.Cache.InvalidateProduct(ctx, productID)
	s.Log.Info("variant added",
		zap.String("product_id", productID),
		zap.String("variant_id", v.ID),
		zap.Int("stock", v.Stock))
	return v, nil
}
