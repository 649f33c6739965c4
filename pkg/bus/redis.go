package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/teslashibe/go-kokoro/internal/log"
)

// Redis is a Bus backed by Redis pub/sub. It is the transport of choice when
// the connectors and the playback bridge run in separate processes.
type Redis struct {
	client *redis.Client

	mu     sync.Mutex
	subs   []*redis.PubSub
	closed bool
}

// NewRedis creates a Redis bus and verifies connectivity with a short ping.
func NewRedis(client *redis.Client) (*Redis, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{client: client}, nil
}

// Publish publishes payload to the Redis channel named topic.
func (r *Redis) Publish(ctx context.Context, topic string, payload []byte) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrBusClosed
	}

	if err := r.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe subscribes h to the Redis channel named topic. Messages are
// delivered on a dedicated goroutine per subscription.
func (r *Redis) Subscribe(ctx context.Context, topic string, h Handler) (func(), error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrBusClosed
	}

	ps := r.client.Subscribe(ctx, topic)
	r.subs = append(r.subs, ps)
	r.mu.Unlock()

	// Wait for the subscription to be confirmed so callers can publish
	// immediately after Subscribe returns.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", topic, err)
	}

	go func() {
		for msg := range ps.Channel() {
			h(msg.Channel, []byte(msg.Payload))
		}
	}()

	return func() {
		if err := ps.Close(); err != nil {
			log.Warn("closing redis subscription", "topic", topic, "error", err)
		}
	}, nil
}

// Close closes all subscriptions and the underlying client.
func (r *Redis) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	for _, ps := range r.subs {
		ps.Close()
	}
	r.subs = nil
	return r.client.Close()
}

// Verify Redis implements Bus at compile time.
var _ Bus = (*Redis)(nil)
