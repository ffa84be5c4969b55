package events

import (
	"context"

	"go.uber.org/zap"
)

type pending struct {
	topic string
	env   Envelope
}

// Outbox collects events produced inside a transaction so they can be
// published once it has committed. A rolled back transaction simply drops
// its Outbox.
type Outbox struct {
	Producer string
	TraceID  string
	items    []pending
	err      error
}

func (o *Outbox) Add(topic, eventType, correlationID string, payload any) {
	env, err := New(eventType, o.Producer, correlationID, o.TraceID, payload)
	if err != nil {
		o.err = err
		return
	}
	o.items = append(o.items, pending{topic: topic, env: env})
}

func (o *Outbox) Len() int { return len(o.items) }

// Flush publishes everything collected. Failures are logged, never returned:
// a committed business change must not be reported as failed.
func (o *Outbox) Flush(ctx context.Context, pub Publisher, log *zap.Logger) {
	if o.err != nil {
		log.Warn("dropping event with unencodable payload", zap.Error(o.err))
	}
	for _, p := range o.items {
		if err := pub.Publish(ctx, p.topic, p.env); err != nil {
			log.Warn("publish event failed",
				zap.String("event_type", p.env.EventType),
				zap.String("correlation_id", p.env.CorrelationID),
				zap.Error(err))
		}
	}
	o.items = nil
}
