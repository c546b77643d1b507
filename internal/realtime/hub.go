package realtime

import (
	"context"
	"sync"

	"github.com/alexanderramin/routinebuzz/internal/sharesync"
)

// Hub is an in-process notifier. Publish invokes handlers synchronously on
// the publishing goroutine.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func()
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]func())}
}

func (h *Hub) Subscribe(_ context.Context, topic string, onEvent func()) (sharesync.Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[int]func())
	}
	h.subs[topic][id] = onEvent
	return &hubSubscription{hub: h, topic: topic, id: id}, nil
}

func (h *Hub) Publish(_ context.Context, topic string) error {
	h.mu.RLock()
	handlers := make([]func(), 0, len(h.subs[topic]))
	for _, f := range h.subs[topic] {
		handlers = append(handlers, f)
	}
	h.mu.RUnlock()

	for _, f := range handlers {
		f()
	}
	return nil
}

// Subscribers counts live subscriptions on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

type hubSubscription struct {
	hub   *Hub
	topic string
	id    int
	once  sync.Once
}

func (s *hubSubscription) Close() error {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		delete(s.hub.subs[s.topic], s.id)
		if len(s.hub.subs[s.topic]) == 0 {
			delete(s.hub.subs, s.topic)
		}
	})
	return nil
}
