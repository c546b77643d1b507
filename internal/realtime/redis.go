package realtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/alexanderramin/routinebuzz/internal/sharesync"
)

// NewRedisClient connects to addr and verifies the connection with PING.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisPublisher publishes notifications with PUBLISH.
type RedisPublisher struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, now: time.Now}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string) error {
	body, err := json.Marshal(Message{Topic: topic, At: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	if err := p.client.Publish(ctx, topic, body).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// RedisNotifier subscribes to Redis Pub/Sub channels.
type RedisNotifier struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisNotifier(client *redis.Client, logger *slog.Logger) *RedisNotifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RedisNotifier{client: client, logger: logger}
}

// Subscribe returns after Redis confirms the subscription. onEvent runs on
// a dedicated goroutine, once per received message.
func (n *RedisNotifier) Subscribe(ctx context.Context, topic string, onEvent func()) (sharesync.Subscription, error) {
	ps := n.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	sub := &redisSubscription{ps: ps}
	ch := ps.Channel()
	go func() {
		for range ch {
			onEvent()
		}
		n.logger.Debug("realtime_channel_closed", "topic", topic)
	}()
	return sub, nil
}

type redisSubscription struct {
	ps   *redis.PubSub
	once sync.Once
	err  error
}

// Close unsubscribes. The delivery goroutine exits once the channel drains.
func (s *redisSubscription) Close() error {
	s.once.Do(func() {
		s.err = s.ps.Close()
	})
	return s.err
}
