package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// gatedMailer blocks every send until the gate opens.
type gatedMailer struct {
	gate chan struct{}
	mu   sync.Mutex
	sent []string
}

func (m *gatedMailer) Send(ctx context.Context, to, _, _ string) error {
	select {
	case <-m.gate:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.mu.Lock()
	m.sent = append(m.sent, to)
	m.mu.Unlock()
	return nil
}

func TestMailQueueDoesNotWaitForTheServer(t *testing.T) {
	next := &gatedMailer{gate: make(chan struct{})}
	q := NewMailQueue(next, 2, time.Second, zaptest.NewLogger(t))

	start := time.Now()
	require.NoError(t, q.Send(context.Background(), "a@example.com", "s", "b"))
	require.NoError(t, q.Send(context.Background(), "b@example.com", "s", "b"))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(next.gate)
	require.NoError(t, q.Close(context.Background()))
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, next.sent)

	assert.ErrorIs(t, q.Send(context.Background(), "c@example.com", "s", "b"), ErrMailQueueClosed)
	require.NoError(t, q.Close(context.Background()))
}

func TestMailQueueFull(t *testing.T) {
	next := &gatedMailer{gate: make(chan struct{})}
	q := NewMailQueue(next, 1, time.Second, zaptest.NewLogger(t))

	// The worker holds one message and the buffer holds one more.
	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = q.Send(context.Background(), "x@example.com", "s", "b")
	}
	assert.ErrorIs(t, err, ErrMailQueueFull)

	close(next.gate)
	require.NoError(t, q.Close(context.Background()))
}

func TestMailQueueCloseGivesUpWithContext(t *testing.T) {
	next := &gatedMailer{gate: make(chan struct{})}
	q := NewMailQueue(next, 1, time.Minute, zaptest.NewLogger(t))
	require.NoError(t, q.Send(context.Background(), "x@example.com", "s", "b"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Close(ctx), context.DeadlineExceeded)

	close(next.gate)
	require.NoError(t, q.Close(context.Background()))
}
