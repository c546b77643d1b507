package testutil

import (
	"context"
	"sync"

	"github.com/alexanderramin/routinebuzz/internal/sharesync"
)

// FakeNotifier is a synchronous in-memory sharesync.Notifier.
type FakeNotifier struct {
	mu         sync.Mutex
	subs       map[string][]*fakeSub
	subscribes []string
	err        error
}

type fakeSub struct {
	n       *FakeNotifier
	topic   string
	onEvent func()
	closed  bool
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{subs: make(map[string][]*fakeSub)}
}

// FailWith makes subsequent Subscribe calls return err.
func (n *FakeNotifier) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *FakeNotifier) Subscribe(_ context.Context, topic string, onEvent func()) (sharesync.Subscription, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscribes = append(n.subscribes, topic)
	if n.err != nil {
		return nil, n.err
	}
	s := &fakeSub{n: n, topic: topic, onEvent: onEvent}
	n.subs[topic] = append(n.subs[topic], s)
	return s, nil
}

// Notify delivers one event to every open subscription on topic.
func (n *FakeNotifier) Notify(topic string) {
	n.mu.Lock()
	var targets []func()
	for _, s := range n.subs[topic] {
		if !s.closed {
			targets = append(targets, s.onEvent)
		}
	}
	n.mu.Unlock()

	for _, f := range targets {
		f()
	}
}

// Active counts open subscriptions on topic.
func (n *FakeNotifier) Active(topic string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, s := range n.subs[topic] {
		if !s.closed {
			c++
		}
	}
	return c
}

// Subscribes lists every topic Subscribe was called with.
func (n *FakeNotifier) Subscribes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.subscribes...)
}

func (s *fakeSub) Close() error {
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	s.closed = true
	return nil
}
