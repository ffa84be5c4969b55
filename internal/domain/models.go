package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	DiscountPercent  decimal.Decimal `json:"discountPercent"`
	Category         string          `json:"category"`
	Active           bool            `json:"active"`
	ReorderThreshold int             `json:"reorderThreshold"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	Variants         []Variant       `json:"variants,omitempty"`
}

var hundred = decimal.NewFromInt(100)

// UnitPrice is the price a customer pays today, discount applied and rounded to cents.
func (p Product) UnitPrice() decimal.Decimal {
	if p.DiscountPercent.IsZero() {
		return p.Price.Round(2)
	}
	factor := hundred.Sub(p.DiscountPercent).Div(hundred)
	return p.Price.Mul(factor).Round(2)
}

// Variant is a color/size combination; stock is tracked here.
type Variant struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"productId"`
	Color          string    `json:"color"`
	Size           string    `json:"size"`
	Stock          int       `json:"stock"`
	DamagedStock   int       `json:"damagedStock"`
	WashStock      int       `json:"washStock"`
	RepackageStock int       `json:"repackageStock"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (v Variant) Count(b Bucket) int {
	switch b {
	case BucketStock:
		return v.Stock
	case BucketDamaged:
		return v.DamagedStock
	case BucketWash:
		return v.WashStock
	case BucketRepackage:
		return v.RepackageStock
	}
	return 0
}

// SetCount is for store implementations only; services go through inventory.Ledger.
func (v *Variant) SetCount(b Bucket, n int) {
	switch b {
	case BucketStock:
		v.Stock = n
	case BucketDamaged:
		v.DamagedStock = n
	case BucketWash:
		v.WashStock = n
	case BucketRepackage:
		v.RepackageStock = n
	}
}

const PaymentCOD = "COD"

type Order struct {
	ID            string          `json:"id"`
	ExternalID    string          `json:"externalId,omitempty"`
	UserID        string          `json:"userId,omitempty"`
	GuestName     string          `json:"guestName,omitempty"`
	GuestPhone    string          `json:"guestPhone,omitempty"`
	GuestEmail    string          `json:"guestEmail,omitempty"`
	GuestAddress  string          `json:"guestAddress,omitempty"`
	GuestCity     string          `json:"guestCity,omitempty"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentMethod string          `json:"paymentMethod"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Items         []OrderItem     `json:"items"`
}

type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"orderId"`
	ProductID string          `json:"productId"`
	VariantID string          `json:"variantId,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

func (it OrderItem) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

const BookingTypeReservation = "RESERVATION"

// Booking reserves one unit of a variant without a full checkout.
type Booking struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	City           string          `json:"city"`
	ProductModel   string          `json:"productModel"`
	ProductSize    string          `json:"productSize"`
	VariantID      string          `json:"variantId"`
	ShippingAmount decimal.Decimal `json:"shippingAmount"`
	Notes          string          `json:"notes"`
	Status         BookingStatus   `json:"status"`
	Type           string          `json:"type"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type ReturnRequest struct {
	ID        string       `json:"id"`
	OrderID   string       `json:"orderId"`
	ProductID string       `json:"productId"`
	VariantID string       `json:"variantId,omitempty"`
	Quantity  int          `json:"quantity"`
	Type      ReturnType   `json:"type"`
	Status    ReturnStatus `json:"status"`
	Notes     string       `json:"notes"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

type NotificationType string

const (
	NotificationOrder  NotificationType = "order"
	NotificationUser   NotificationType = "user"
	NotificationSystem NotificationType = "system"
)

type Notification struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Type        NotificationType `json:"type"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// StockMovement is one applied change to a variant counter.
type StockMovement struct {
	ID        string    `json:"id"`
	VariantID string    `json:"variantId"`
	Bucket    Bucket    `json:"bucket"`
	Delta     int       `json:"delta"`
	Before    int       `json:"before"`
	After     int       `json:"after"`
	Reason    string    `json:"reason"`
	RefType   string    `json:"refType,omitempty"`
	RefID     string    `json:"refId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
