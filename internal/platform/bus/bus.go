// Package bus abstracts the message broker behind explicit publish and
// consumer-registration operations. Consumers are plain functions bound to a
// named topic by the process bootstrap; nothing is registered implicitly.
package bus

import "context"

// Message is one unit of work delivered to a consumer. Key selects the
// partition, so messages sharing a key are serialized to one consumer.
type Message struct {
	Key   []byte
	Value []byte
}

// HandlerFunc processes one message. Delivery is at-least-once; handlers must
// tolerate redelivery of a message they have already seen.
type HandlerFunc func(ctx context.Context, msg Message) error

// Publisher publishes messages to a named topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Bus couples publishing with blocking consumption so main can wire both
// sides of a topic against one dependency.
type Bus interface {
	Publisher
	// Consume blocks, delivering messages for topic to fn until ctx is
	// cancelled.
	Consume(ctx context.Context, topic string, fn HandlerFunc) error
}
