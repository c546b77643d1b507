// Package realtime carries payload-free change notifications for shared
// routines. A Hub serves a single process; the Redis implementation fans
// notifications out across processes.
package realtime

import (
	"context"
	"time"

	"github.com/alexanderramin/routinebuzz/internal/sharesync"
)

// Publisher announces that a topic changed.
type Publisher interface {
	Publish(ctx context.Context, topic string) error
}

// Message is the optional body published with a notification. Subscribers
// must not depend on it.
type Message struct {
	Topic string    `json:"topic"`
	At    time.Time `json:"at"`
}

var (
	_ sharesync.Notifier = (*Hub)(nil)
	_ Publisher          = (*Hub)(nil)
	_ sharesync.Notifier = (*RedisNotifier)(nil)
	_ Publisher          = (*RedisPublisher)(nil)
)

// NopPublisher drops every notification.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string) error { return nil }
