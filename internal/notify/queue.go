package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrMailQueueFull   = errors.New("mail queue full")
	ErrMailQueueClosed = errors.New("mail queue closed")
)

type mail struct {
	to, subject, body string
}

// MailQueue hands mail to a background sender so callers never wait on
// the mail server. Used when events are handled inside the API request.
type MailQueue struct {
	next    Mailer
	timeout time.Duration
	log     *zap.Logger

	mu     sync.RWMutex
	closed bool
	inbox  chan mail
	done   chan struct{}
	once   sync.Once
}

func NewMailQueue(next Mailer, buf int, timeout time.Duration, log *zap.Logger) *MailQueue {
	if buf <= 0 {
		buf = 64
	}
	if timeout <= 0 {
		timeout = defaultMailTimeout
	}
	q := &MailQueue{
		next:    next,
		timeout: timeout,
		log:     log,
		inbox:   make(chan mail, buf),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *MailQueue) run() {
	defer close(q.done)
	for m := range q.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if err := q.next.Send(ctx, m.to, m.subject, m.body); err != nil {
			q.log.Warn("queued mail failed", zap.String("to", m.to), zap.Error(err))
		}
		cancel()
	}
}

// Send enqueues without blocking; a full or closed queue is an error the
// caller logs.
func (q *MailQueue) Send(_ context.Context, to, subject, body string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrMailQueueClosed
	}
	select {
	case q.inbox <- mail{to: to, subject: subject, body: body}:
		return nil
	default:
		return ErrMailQueueFull
	}
}

// Close stops accepting mail and waits until the queued mail is sent or ctx ends.
func (q *MailQueue) Close(ctx context.Context) error {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.inbox)
		q.mu.Unlock()
	})
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
