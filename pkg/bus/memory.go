package bus

import (
	"context"
	"sync"

	"github.com/teslashibe/go-kokoro/internal/log"
)

// subscriberBuffer is how many messages a subscriber may fall behind before
// new messages are dropped for it.
const subscriberBuffer = 256

type memorySub struct {
	topic   string
	handler Handler
	ch      chan []byte
	done    chan struct{}
}

// Memory is an in-process bus using per-subscriber buffered channels.
// Delivery is asynchronous; a subscriber that cannot keep up loses messages
// rather than blocking publishers.
type Memory struct {
	mu     sync.RWMutex
	subs   map[string][]*memorySub
	closed bool
}

// NewMemory creates a new in-process bus.
func NewMemory() *Memory {
	return &Memory{
		subs: make(map[string][]*memorySub),
	}
}

// Publish delivers payload to every subscriber of topic.
func (m *Memory) Publish(_ context.Context, topic string, payload []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrBusClosed
	}

	for _, sub := range m.subs[topic] {
		select {
		case sub.ch <- payload:
		default:
			log.Warn("dropping message for slow subscriber", "topic", topic)
		}
	}
	return nil
}

// Subscribe registers h for topic. Each subscriber gets its own delivery
// goroutine so handlers never run on the publisher's goroutine.
func (m *Memory) Subscribe(_ context.Context, topic string, h Handler) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrBusClosed
	}

	sub := &memorySub{
		topic:   topic,
		handler: h,
		ch:      make(chan []byte, subscriberBuffer),
		done:    make(chan struct{}),
	}
	m.subs[topic] = append(m.subs[topic], sub)

	go func() {
		for {
			select {
			case payload := <-sub.ch:
				sub.handler(topic, payload)
			case <-sub.done:
				return
			}
		}
	}()

	return func() { m.unsubscribe(sub) }, nil
}

func (m *Memory) unsubscribe(sub *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := m.subs[sub.topic]
	for i, s := range subs {
		if s == sub {
			m.subs[sub.topic] = append(subs[:i], subs[i+1:]...)
			close(sub.done)
			return
		}
	}
}

// Close shuts down all subscriptions.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	for _, subs := range m.subs {
		for _, sub := range subs {
			close(sub.done)
		}
	}
	m.subs = make(map[string][]*memorySub)
	return nil
}

// Verify Memory implements Bus at compile time.
var _ Bus = (*Memory)(nil)
