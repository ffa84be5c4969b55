package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated         = "OrderCreated"
	EventOrderStatusChanged   = "OrderStatusChanged"
	EventOrderDeleted         = "OrderDeleted"
	EventBookingCreated       = "BookingCreated"
	EventBookingStatusChanged = "BookingStatusChanged"
	EventBookingDeleted       = "BookingDeleted"
	EventReturnRequested      = "ReturnRequested"
	EventReturnReviewed       = "ReturnReviewed"
	EventStockLow             = "StockLow"
)

const (
	TopicOrders    = "storefront.orders"
	TopicBookings  = "storefront.bookings"
	TopicReturns   = "storefront.returns"
	TopicInventory = "storefront.inventory"
)

var AllTopics = []string{TopicOrders, TopicBookings, TopicReturns, TopicInventory}

// Partition key = aggregate id, so every event of one order keeps its order.
func PartitionKey(id string) []byte { return []byte(id) }

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

func New(eventType, producer, correlationID, traceID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       b,
	}, nil
}

func Decode[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return t, nil
}

// Publisher hands an event to whatever transport is configured. Callers
// publish only after their transaction committed and never fail on error.
type Publisher interface {
	Publish(ctx context.Context, topic string, env Envelope) error
}

type Handler func(ctx context.Context, env Envelope) error

// Inline delivers events synchronously to an in-process handler. Used when no
// broker is configured.
type Inline struct{ Handle Handler }

func (p Inline) Publish(ctx context.Context, _ string, env Envelope) error {
	return p.Handle(ctx, env)
}

type Discard struct{}

func (Discard) Publish(context.Context, string, Envelope) error { return nil }
