package redisx

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SnapshotMirror copies every published snapshot to Redis: the latest one
// under Key and each one on Channel. Writes happen on a background goroutine;
// Publish never blocks and keeps only the newest pending snapshot.
type SnapshotMirror struct {
	rdb     *redis.Client
	key     string
	channel string
	log     *zap.Logger

	pending chan []byte
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewSnapshotMirror(rdb *redis.Client, key, channel string, log *zap.Logger) *SnapshotMirror {
	if key == "" {
		key = KeySnapshotLatest
	}
	if channel == "" {
		channel = ChannelSnapshots
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SnapshotMirror{
		rdb:     rdb,
		key:     key,
		channel: channel,
		log:     log,
		pending: make(chan []byte, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Publish replaces any snapshot still waiting to be written.
func (m *SnapshotMirror) Publish(msg []byte) {
	select {
	case m.pending <- msg:
		return
	default:
	}
	select {
	case <-m.pending:
	default:
	}
	select {
	case m.pending <- msg:
	default:
		m.log.Warn("snapshot mirror busy, snapshot dropped")
	}
}

// Start runs the write loop until ctx is done or Close is called.
func (m *SnapshotMirror) Start(ctx context.Context) {
	go func() {
		defer close(m.done)
		for {
			select {
			case msg := <-m.pending:
				m.write(msg)
			case <-ctx.Done():
				m.flush()
				return
			case <-m.stop:
				m.flush()
				return
			}
		}
	}()
}

func (m *SnapshotMirror) flush() {
	select {
	case msg := <-m.pending:
		m.write(msg)
	default:
	}
}

func (m *SnapshotMirror) write(msg []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := m.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, m.key, msg, 0)
		p.Publish(ctx, m.channel, msg)
		return nil
	})
	if err != nil {
		m.log.Error("snapshot mirror write failed", zap.String("key", m.key), zap.Error(err))
	}
}

func (m *SnapshotMirror) Close() { m.once.Do(func() { close(m.stop) }) }

func (m *SnapshotMirror) WaitClosed() { <-m.done }
