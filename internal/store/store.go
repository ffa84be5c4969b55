// Package store defines the transactional persistence contract shared by the
// postgres and in-memory backends.
package store

import (
	"context"

	"github.com/ariefcatur/go-storefront/internal/domain"
)

// Store runs fn inside a single read-committed transaction. If fn returns an
// error nothing it wrote is kept.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

type Page struct {
	Limit  int
	Offset int
}

func (p Page) Normalize() Page {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type OrderFilter struct {
	Status domain.OrderStatus
	Page
}

type BookingFilter struct {
	Status domain.BookingStatus
	Page
}

type ReturnFilter struct {
	OrderID string
	Status  domain.ReturnStatus
	Page
}

// Tx is every operation available inside a transaction. Lookups that end in
// ForUpdate lock the row until the transaction ends.
type Tx interface {
	InsertProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	FindProductByName(ctx context.Context, name string) (domain.Product, error)
	ListProducts(ctx context.Context, activeOnly bool, page Page) ([]domain.Product, error)

	InsertVariant(ctx context.Context, v *domain.Variant) error
	GetVariant(ctx context.Context, id string) (domain.Variant, error)
	FindVariant(ctx context.Context, productID, size string) (domain.Variant, error)
	ListVariants(ctx context.Context, productID string) ([]domain.Variant, error)
	// AdjustStock adds delta to one counter atomically and returns the new
	// value. It fails with a *domain.ShortageError instead of going below zero.
	AdjustStock(ctx context.Context, variantID string, bucket domain.Bucket, delta int) (after int, err error)
	InsertMovement(ctx context.Context, m *domain.StockMovement) error
	ListMovements(ctx context.Context, variantID string, page Page) ([]domain.StockMovement, error)
	LowStock(ctx context.Context) ([]LowStockRow, error)

	InsertOrder(ctx context.Context, o *domain.Order) error
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	GetOrderForUpdate(ctx context.Context, id string) (domain.Order, error)
	FindOrderByExternalID(ctx context.Context, externalID string) (domain.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]domain.Order, error)
	SetOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error
	DeleteOrder(ctx context.Context, id string) error

	InsertBooking(ctx context.Context, b *domain.Booking) error
	GetBooking(ctx context.Context, id string) (domain.Booking, error)
	GetBookingForUpdate(ctx context.Context, id string) (domain.Booking, error)
	ListBookings(ctx context.Context, f BookingFilter) ([]domain.Booking, error)
	UpdateBooking(ctx context.Context, b *domain.Booking) error
	DeleteBooking(ctx context.Context, id string) error

	InsertReturn(ctx context.Context, r *domain.ReturnRequest) error
	GetReturn(ctx context.Context, id string) (domain.ReturnRequest, error)
	GetReturnForUpdate(ctx context.Context, id string) (domain.ReturnRequest, error)
	ListReturns(ctx context.Context, f ReturnFilter) ([]domain.ReturnRequest, error)
	UpdateReturn(ctx context.Context, r *domain.ReturnRequest) error

	InsertNotification(ctx context.Context, n *domain.Notification) error
	ListNotifications(ctx context.Context, unreadOnly bool, page Page) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) (int, error)
}

// LowStockRow is a variant whose sellable stock is at or below its product's
// reorder threshold.
type LowStockRow struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	VariantID   string `json:"variantId"`
	Color       string `json:"color"`
	Size        string `json:"size"`
	Stock       int    `json:"stock"`
	Threshold   int    `json:"threshold"`
}
