package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env, err := events.New(events.EventOrderCreated, "api", "order-1", "req-1", map[string]string{"order_id": "order-1"})
	require.NoError(t, err)

	m, err := EnvelopeMessage(events.TopicOrders, env)
	require.NoError(t, err)
	assert.Equal(t, events.TopicOrders, m.Topic)
	assert.Equal(t, []byte("order-1"), m.Key)
	require.Len(t, m.Headers, 2)
	assert.Equal(t, headerEventType, m.Headers[0].Key)
	assert.Equal(t, events.EventOrderCreated, string(m.Headers[0].Value))

	got, err := UnmarshalEnvelope(m)
	require.NoError(t, err)
	assert.Equal(t, env.EventID, got.EventID)
	assert.Equal(t, "req-1", got.TraceID)
}

func TestEnvelopeHandlerMarksGarbagePermanent(t *testing.T) {
	called := false
	h := EnvelopeHandler(func(context.Context, events.Envelope) error {
		called = true
		return nil
	})

	err := h(context.Background(), kafka.Message{Topic: "t", Value: []byte("{not json")})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.False(t, called)
}

func TestEnvelopeHandlerPassesTransientErrors(t *testing.T) {
	boom := errors.New("db down")
	h := EnvelopeHandler(func(context.Context, events.Envelope) error { return boom })

	env, err := events.New(events.EventStockLow, "api", "v1", "", struct{}{})
	require.NoError(t, err)
	m, err := EnvelopeMessage(events.TopicInventory, env)
	require.NoError(t, err)

	err = h(context.Background(), m)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsPermanent(err))
}

func TestProducerRefusesAfterClose(t *testing.T) {
	p := newProducer(&kafka.Writer{}, 4, zaptest.NewLogger(t))
	env, err := events.New(events.EventOrderDeleted, "api", "o1", "", struct{}{})
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), events.TopicOrders, env))
	assert.Len(t, p.inbox, 1)

	p.Close()
	assert.ErrorIs(t, p.Publish(context.Background(), events.TopicOrders, env), ErrProducerClosed)
}

type recordingWriter struct {
	mu     sync.Mutex
	got    []kafka.Message
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.got = append(w.got, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestProducerCloseTwice(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, 4, zaptest.NewLogger(t))
	p.Start(context.Background())

	env, err := events.New(events.EventOrderCreated, "api", "o1", "", struct{}{})
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), events.TopicOrders, env))

	assert.NotPanics(t, func() {
		p.Close()
		p.Close()
	})
	p.WaitClosed()
	assert.Len(t, w.got, 1)
	assert.True(t, w.closed)
}

func TestProducerStoppedByContextRefusesPublish(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, 4, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	env, err := events.New(events.EventOrderCreated, "api", "o1", "", struct{}{})
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), events.TopicOrders, env))

	cancel()
	p.WaitClosed()
	assert.ErrorIs(t, p.Publish(context.Background(), events.TopicOrders, env), ErrProducerClosed)
	assert.Len(t, w.got, 1)
	assert.Empty(t, p.inbox)
	p.Close()
}

func TestProducerFlushesEverythingAcceptedDuringShutdown(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, 64, zaptest.NewLogger(t))
	p.Start(context.Background())

	env, err := events.New(events.EventOrderCreated, "api", "o1", "", struct{}{})
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p.Publish(context.Background(), events.TopicOrders, env) == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	p.Close()
	wg.Wait()
	p.WaitClosed()
	assert.Len(t, w.got, accepted)
}
