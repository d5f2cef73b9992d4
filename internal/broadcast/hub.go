// Package broadcast fans room events out to the transports subscribed to a topic.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/vovakirdan/roomchat-server/internal/core"
)

// DefaultBuffer is the per-subscription queue length used when none is configured.
const DefaultBuffer = 32

// Hub is an in-process topic pub/sub. Delivery is best effort: an event is dropped for a
// subscriber whose queue is full.
type Hub struct {
	buffer int

	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	closed bool

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// Stats is a point-in-time view of hub counters.
type Stats struct {
	Topics        int
	Subscriptions int
	Published     uint64
	Delivered     uint64
	Dropped       uint64
}

// NewHub creates a hub whose subscriptions queue up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		buffer: buffer,
		topics: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers interest in topic. On a closed hub the returned subscription is
// already closed.
func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		Topic:  topic,
		events: make(chan core.ChatMessage, h.buffer),
		hub:    h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		sub.closeLocked()
		return sub
	}

	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

// Publish delivers msg to every subscriber of topic without blocking.
func (h *Hub) Publish(topic string, msg core.ChatMessage) {
	h.published.Add(1)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.topics[topic] {
		select {
		case sub.events <- msg:
			h.delivered.Add(1)
		default:
			// Drop if slow consumer.
			h.dropped.Add(1)
		}
	}
}

// Close ends every subscription. Later subscriptions are closed on creation.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for topic, subs := range h.topics {
		for sub := range subs {
			sub.closeLocked()
		}
		delete(h.topics, topic)
	}
}

// Stats returns the current counters.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := 0
	for _, s := range h.topics {
		subs += len(s)
	}
	return Stats{
		Topics:        len(h.topics),
		Subscriptions: subs,
		Published:     h.published.Load(),
		Delivered:     h.delivered.Load(),
		Dropped:       h.dropped.Load(),
	}
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.topics[sub.Topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.topics, sub.Topic)
		}
	}
	sub.closeLocked()
}

// Subscription is one consumer of a topic.
type Subscription struct {
	Topic string

	events chan core.ChatMessage
	hub    *Hub
	closed bool // guarded by hub.mu
}

// Events yields published messages until the subscription is closed.
func (s *Subscription) Events() <-chan core.ChatMessage {
	return s.events
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

func (s *Subscription) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}
