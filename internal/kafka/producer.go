package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrProducerClosed = errors.New("kafka producer closed")

// Producer queues messages on an inbox channel and writes them from a single
// goroutine, so request handlers never wait on the broker. The topic is set
// per message.
type Producer struct {
	w       messageWriter
	inbox   chan kafka.Message
	closeCh chan struct{}
	done    chan struct{}
	log     *zap.Logger

	// mu guards closed; Publish holds it shared while queueing so nothing
	// lands in the inbox after the final drain.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewProducer(brokers []string, buf int, log *zap.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}, buf, log)
}

func newProducer(w messageWriter, buf int, log *zap.Logger) *Producer {
	return &Producer{
		w:       w,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
		log:     log,
	}
}

func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.done)
		defer func() {
			if err := p.w.Close(); err != nil {
				p.log.Warn("kafka writer close", zap.Error(err))
			}
		}()
		for {
			select {
			case m := <-p.inbox:
				p.write(m)
			case <-ctx.Done():
				p.shutdown()
				return
			case <-p.closeCh:
				p.shutdown()
				return
			}
		}
	}()
}

// shutdown refuses new messages, waits for in-flight Publish calls and then
// flushes the queue.
func (p *Producer) shutdown() {
	p.Close()
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.drain()
}

// drain flushes whatever is still queued.
func (p *Producer) drain() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			return
		}
	}
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.Error("kafka write failed",
			zap.String("topic", m.Topic),
			zap.ByteString("key", m.Key),
			zap.Error(err))
	}
}

// Publish implements events.Publisher. It only fails when the producer is
// shutting down or the caller's context ends while the inbox is full.
func (p *Producer) Publish(ctx context.Context, topic string, env events.Envelope) error {
	m, err := EnvelopeMessage(topic, env)
	if err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	select {
	case <-p.closeCh:
		return ErrProducerClosed
	default:
	}
	select {
	case p.inbox <- m:
		return nil
	case <-p.closeCh:
		return ErrProducerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages; WaitClosed blocks until the queue is
// flushed. Close may be called more than once.
func (p *Producer) Close() { p.closeOnce.Do(func() { close(p.closeCh) }) }

func (p *Producer) WaitClosed() { <-p.done }
