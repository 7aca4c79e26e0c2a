package recordstore

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

const defaultSubscriptionBuffer = 16

// Subscription is a scoped stream of change events for one (table, kind) pair.
// C is closed after Unsubscribe.
type Subscription struct {
	C <-chan ChangeEvent

	id    uint64
	table Table
	kind  EventKind
	ch    chan ChangeEvent
	hub   *Hub
	once  sync.Once
	done  chan struct{}
}

// Unsubscribe releases the subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.done)
	})
}

// Hub fans change events out to in-process subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	closed bool
}

// NewHub creates a hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriptionBuffer
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
	}
}

// Subscribe registers a subscription. It is released when ctx is done or Unsubscribe is called.
func (h *Hub) Subscribe(ctx context.Context, table Table, kind EventKind) (*Subscription, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	h.nextID++
	ch := make(chan ChangeEvent, h.buffer)
	sub := &Subscription{
		C:     ch,
		id:    h.nextID,
		table: table,
		kind:  kind,
		ch:    ch,
		hub:   h,
		done:  make(chan struct{}),
	}
	h.subs[sub.id] = sub
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
		case <-sub.done:
		}
	}()

	log.Debug().
		Str("table", string(table)).
		Str("kind", string(kind)).
		Uint64("subscription_id", sub.id).
		Msg("change subscription opened")

	return sub, nil
}

// Publish delivers ev to every matching subscription without blocking. When a subscriber's
// buffer is full the oldest buffered event is replaced by a resync.
func (h *Hub) Publish(ev ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !ev.Matches(sub.table, sub.kind) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			log.Debug().
				Uint64("subscription_id", sub.id).
				Str("table", string(ev.Table)).
				Msg("subscriber buffer full, queueing resync")
			sub.overflow(ChangeEvent{Kind: EventResync, ReceivedAt: ev.ReceivedAt})
		}
	}
}

// overflow makes room for resync by evicting buffered events.
func (s *Subscription) overflow(resync ChangeEvent) {
	for {
		select {
		case s.ch <- resync:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Len returns the number of open subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close releases every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.id]; ok {
		delete(h.subs, sub.id)
		close(sub.ch)
	}
}
