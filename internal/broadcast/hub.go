package broadcast

import (
	"sync"

	"github.com/google/uuid"

	"github.com/doubtdesk/doubtdesk-backend/pkg/metrics"
)

// Subscription is one dashboard session's feed for a single topic. Frames
// arrive on C; the channel is closed when the hub shuts down or the
// subscription is cancelled.
type Subscription struct {
	id    string
	topic string
	C     chan []byte

	// lastVersion is guarded by the hub mutex.
	lastVersion int64
}

// Hub fans event frames out to in-process subscribers. Delivery is at most
// once: a slow consumer's frame is dropped rather than blocking the rest,
// and frames older than the last delivered version for a subscription are
// discarded so reordered events cannot roll a dashboard backwards.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[string]*Subscription
	buffer int
	closed bool
	stats  *metrics.EventMetrics
}

func NewHub(sendBuffer int, stats *metrics.EventMetrics) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 16
	}
	return &Hub{
		topics: make(map[string]map[string]*Subscription),
		buffer: sendBuffer,
		stats:  stats,
	}
}

// Subscribe opens a feed on the topic starting after sinceVersion. Frames at
// or below sinceVersion are dropped, which pairs with a snapshot read taken
// just before subscribing.
func (h *Hub) Subscribe(topic string, sinceVersion int64) *Subscription {
	sub := &Subscription{
		id:          uuid.NewString(),
		topic:       topic,
		C:           make(chan []byte, h.buffer),
		lastVersion: sinceVersion,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.C)
		return sub
	}
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[string]*Subscription)
		h.topics[topic] = subs
	}
	subs[sub.id] = sub
	return sub
}

// Advance raises the subscription's version floor. Called after a snapshot
// read taken once the subscription is registered, so live frames the snapshot
// already covers get dropped instead of delivered out of order.
func (h *Hub) Advance(sub *Subscription, version int64) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if version > sub.lastVersion {
		sub.lastVersion = version
	}
}

// Unsubscribe removes the subscription and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[sub.topic]
	if !ok {
		return
	}
	if _, ok := subs[sub.id]; !ok {
		return
	}
	delete(subs, sub.id)
	if len(subs) == 0 {
		delete(h.topics, sub.topic)
	}
	close(sub.C)
}

// Publish fans a frame out to the topic's subscribers. version orders frames
// per subscription; version 0 always delivers.
func (h *Hub) Publish(topic string, version int64, frame []byte, eventType string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, sub := range h.topics[topic] {
		if version != 0 && version <= sub.lastVersion {
			h.stats.IncDropped("stale")
			continue
		}
		select {
		case sub.C <- frame:
			if version != 0 {
				sub.lastVersion = version
			}
			h.stats.IncFanout(eventType)
		default:
			h.stats.IncDropped("slow_consumer")
		}
	}
}

// SubscriberCount reports the current subscriptions on a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Close shuts the hub down and closes every subscription channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for topic, subs := range h.topics {
		for _, sub := range subs {
			close(sub.C)
		}
		delete(h.topics, topic)
	}
}
