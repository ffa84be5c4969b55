package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/segmentio/kafka-go"
)

const (
	headerEventType = "event_type"
	headerTraceID   = "trace_id"
)

// EnvelopeMessage keys the message by correlation id so all events of one
// aggregate land on the same partition.
func EnvelopeMessage(topic string, env events.Envelope) (kafka.Message, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode envelope: %w", err)
	}
	headers := []kafka.Header{{Key: headerEventType, Value: []byte(env.EventType)}}
	if env.TraceID != "" {
		headers = append(headers, kafka.Header{Key: headerTraceID, Value: []byte(env.TraceID)})
	}
	return kafka.Message{
		Topic:   topic,
		Key:     events.PartitionKey(env.CorrelationID),
		Value:   b,
		Time:    time.Now(),
		Headers: headers,
	}, nil
}

func UnmarshalEnvelope(m kafka.Message) (events.Envelope, error) {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return env, fmt.Errorf("decode envelope at %s/%d@%d: %w", m.Topic, m.Partition, m.Offset, err)
	}
	return env, nil
}

// EnvelopeHandler adapts an events.Handler to raw kafka messages. Messages
// that cannot be decoded are logged by the consumer and committed, since a
// retry would fail the same way.
func EnvelopeHandler(h events.Handler) Handler {
	return func(ctx context.Context, m kafka.Message) error {
		env, err := UnmarshalEnvelope(m)
		if err != nil {
			return Permanent(err)
		}
		return h(ctx, env)
	}
}
