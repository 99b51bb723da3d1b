// Package hub implements the real-time broadcast hub that decouples the
// write path (status manager, location ingest) from live tracking watchers.
// Subscriptions are runtime-only and keyed by delivery id; publication is
// best-effort and never blocks on a slow subscriber.
package hub

import (
	"sync"
	"sync/atomic"

	"delivery-tracking/internal/models"

	"github.com/rs/zerolog"
)

// Subscriber is one live registration for a single delivery's events.
// Events arrive on Updates in publication order; when the bounded queue is
// full further events are dropped for this subscriber only.
type Subscriber struct {
	deliveryID string
	ch         chan models.TrackingUpdate
	closeOnce  sync.Once
	dropped    atomic.Int64
}

// DeliveryID returns the delivery this subscriber watches.
func (s *Subscriber) DeliveryID() string { return s.deliveryID }

// Updates is the event stream. The channel is closed on Unsubscribe.
func (s *Subscriber) Updates() <-chan models.TrackingUpdate { return s.ch }

// Dropped reports how many events were discarded because the subscriber's
// queue was full.
func (s *Subscriber) Dropped() int64 { return s.dropped.Load() }

// Hub maintains the mapping from delivery id to active subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscriber]struct{}
	buffer int
	log    zerolog.Logger
}

// New creates a hub whose subscribers each get a queue of the given size.
func New(buffer int, log zerolog.Logger) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subs:   make(map[string]map[*Subscriber]struct{}),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers a new subscriber for the delivery. The subscriber only
// receives events published after this call; there is no replay of history.
func (h *Hub) Subscribe(deliveryID string) *Subscriber {
	sub := &Subscriber{
		deliveryID: deliveryID,
		ch:         make(chan models.TrackingUpdate, h.buffer),
	}

	h.mu.Lock()
	set, ok := h.subs[deliveryID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subs[deliveryID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	h.log.Debug().Str("delivery_id", deliveryID).Msg("subscriber registered")
	return sub
}

// Unsubscribe removes the registration and closes the event channel. It is
// safe to call more than once and a no-op for an already removed subscriber.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	if set, ok := h.subs[sub.deliveryID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.deliveryID)
		}
	}
	h.mu.Unlock()

	sub.closeOnce.Do(func() { close(sub.ch) })
	h.log.Debug().Str("delivery_id", sub.deliveryID).Msg("subscriber removed")
}

// Publish delivers the event to every subscriber currently registered for
// its delivery id. Publishing with zero subscribers is a successful no-op.
// A subscriber whose queue is full has the event dropped; other subscribers
// and the publisher are unaffected. Sends happen under the read lock, and
// Unsubscribe removes the subscriber from the registry under the write lock
// before closing its channel: a publisher either sees the subscriber with an
// open channel or does not see it at all, so a send on a closed channel
// cannot happen.
func (h *Hub) Publish(ev models.TrackingUpdate) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set, ok := h.subs[ev.DeliveryID]
	if !ok {
		return
	}

	for sub := range set {
		select {
		case sub.ch <- ev:
		default:
			sub.dropped.Add(1)
			h.log.Warn().
				Str("delivery_id", ev.DeliveryID).
				Str("event", string(ev.Type)).
				Msg("subscriber queue full, event dropped")
		}
	}
}

// SubscriberCount returns the number of active subscribers for a delivery.
func (h *Hub) SubscriberCount(deliveryID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[deliveryID])
}
