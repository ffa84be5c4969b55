package events

import "github.com/shopspring/decimal"

type OrderItemPayload struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type OrderCreatedPayload struct {
	OrderID       string             `json:"order_id"`
	ExternalID    string             `json:"external_id,omitempty"`
	CustomerName  string             `json:"customer_name,omitempty"`
	CustomerEmail string             `json:"customer_email,omitempty"`
	Items         []OrderItemPayload `json:"items"`
	Total         decimal.Decimal    `json:"total"`
}

type OrderStatusChangedPayload struct {
	OrderID       string `json:"order_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	StockEffect   string `json:"stock_effect"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

type OrderDeletedPayload struct {
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	StockEffect string `json:"stock_effect"`
}

type BookingPayload struct {
	BookingID    string `json:"booking_id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	ProductModel string `json:"product_model"`
	ProductSize  string `json:"product_size"`
	From         string `json:"from,omitempty"`
	To           string `json:"to,omitempty"`
}

type ReturnPayload struct {
	ReturnID string `json:"return_id"`
	OrderID  string `json:"order_id"`
	Type     string `json:"type"`
	Status   string `json:"status"`
	Quantity int    `json:"quantity"`
	Bucket   string `json:"bucket,omitempty"`
}

type StockLowPayload struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	VariantID   string `json:"variant_id"`
	Color       string `json:"color"`
	Size        string `json:"size"`
	Stock       int    `json:"stock"`
	Threshold   int    `json:"threshold"`
}
