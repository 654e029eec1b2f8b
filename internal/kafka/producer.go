package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer queues messages in a buffered inbox and writes them from a single
// goroutine, so Publish never waits on the broker.
type Producer struct {
	w       messageWriter
	inbox   chan kafka.Message
	stop    chan struct{}
	closeCh chan struct{}

	mu     sync.RWMutex
	closed bool

	log *zap.Logger
}

func NewProducer(brokers []string, topic string, buf int, log *zap.Logger) *Producer {
	if log == nil {
		log = zap.NewNop()
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Error("kafka write failed", zap.String("topic", topic), zap.Int("messages", len(msgs)), zap.Error(err))
			}
		},
	}
	return newProducer(w, buf, log.With(zap.String("topic", topic)))
}

func newProducer(w messageWriter, buf int, log *zap.Logger) *Producer {
	if buf <= 0 {
		buf = 1024
	}
	return &Producer{
		w:       w,
		inbox:   make(chan kafka.Message, buf),
		stop:    make(chan struct{}),
		closeCh: make(chan struct{}),
		log:     log,
	}
}

// Start runs the write loop until ctx is done or Close is called. Whatever is
// still queued at that point is flushed before the writer closes.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
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
				p.Close()
				p.drain()
				return
			case <-p.stop:
				p.drain()
				return
			}
		}
	}()
}

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
		p.log.Error("kafka publish failed", zap.ByteString("key", m.Key), zap.Error(err))
	}
}

// Publish queues a message. It reports false, and drops the message, when
// the inbox is full or the producer is closed. A true result means the
// message was queued before Close and will be flushed.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.inbox <- kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}:
		return true
	default:
		p.log.Warn("kafka inbox full, message dropped", zap.ByteString("key", key))
		return false
	}
}

// Close stops the loop after flushing queued messages. Safe to call twice.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.stop)
}

// WaitClosed blocks until the loop started by Start has exited.
func (p *Producer) WaitClosed() { <-p.closeCh }
