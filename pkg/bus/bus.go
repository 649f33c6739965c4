// Package bus provides the pub/sub transport that decouples the speech
// connectors from the rest of the robot runtime. Two implementations exist:
// an in-process Memory bus and a Redis-backed bus for multi-process setups.
package bus

import "context"

// Handler receives one published message. Handlers must not block; slow
// handlers may cause messages to be dropped depending on the implementation.
type Handler func(topic string, payload []byte)

// Publisher publishes messages to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Subscriber subscribes a handler to a topic. The returned function removes
// the subscription.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, h Handler) (func(), error)
}

// Bus combines publishing and subscribing over a single transport.
type Bus interface {
	Publisher
	Subscriber
	Close() error
}
