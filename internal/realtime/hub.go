package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

type State int32

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Connector hands out viewer subscriptions primed with the current snapshot.
type Connector interface {
	Connect(ctx context.Context) *Subscription
}

// Subscription is one connected viewer. Messages arrive on C in publish
// order; C is closed once the viewer is disconnected.
type Subscription struct {
	id    uint64
	hub   *Hub
	ch    chan []byte
	state atomic.Int32
	done  chan struct{}
	once  sync.Once
}

func (s *Subscription) ID() uint64 { return s.id }
func (s *Subscription) C() <-chan []byte { return s.ch }
func (s *Subscription) Done() <-chan struct{} { return s.done }
func (s *Subscription) State() State { return State(s.state.Load()) }

// Close disconnects the viewer. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		s.state.Store(int32(StateDisconnected))
		close(s.done)
	})
}

// offer queues msg without blocking. When the buffer is full the oldest
// queued message is dropped: every message is a full snapshot, so the newest
// one supersedes it.
func (s *Subscription) offer(msg []byte) bool {
	select {
	case s.ch <- msg:
		return true
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}

// Hub is the viewer registry. Publish fans a message out to every connected
// viewer without waiting on any of them.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	log    *zap.Logger
}

func NewHub(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs:   map[uint64]*Subscription{},
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers a viewer and queues initial as its first message. The
// viewer is removed when ctx is done or Close is called.
func (h *Hub) Subscribe(ctx context.Context, initial []byte) *Subscription {
	h.mu.Lock()
	h.nextID++
	s := &Subscription{
		id:   h.nextID,
		hub:  h,
		ch:   make(chan []byte, h.buffer),
		done: make(chan struct{}),
	}
	s.state.Store(int32(StateConnecting))
	h.subs[s.id] = s
	if initial != nil {
		s.ch <- initial
	}
	s.state.Store(int32(StateConnected))
	n := len(h.subs)
	h.mu.Unlock()

	h.log.Info("viewer connected", zap.Uint64("viewer", s.id), zap.Int("viewers", n))

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
	return s
}

func (h *Hub) Publish(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if !s.offer(msg) {
			h.log.Warn("viewer send dropped", zap.Uint64("viewer", s.id))
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	if _, ok := h.subs[s.id]; ok {
		delete(h.subs, s.id)
		close(s.ch)
	}
	n := len(h.subs)
	h.mu.Unlock()
	h.log.Info("viewer disconnected", zap.Uint64("viewer", s.id), zap.Int("viewers", n))
}
