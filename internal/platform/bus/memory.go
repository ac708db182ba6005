package bus

import (
	"context"
	"sync"
)

// Memory is a channel-backed Bus for tests and brokerless development. It
// preserves the Bus contract: per-topic ordering and at-least-once style
// delivery to whatever consumer is registered when the message arrives.
type Memory struct {
	mu     sync.Mutex
	topics map[string]chan Message
}

func NewMemory() *Memory {
	return &Memory{topics: make(map[string]chan Message)}
}

func (m *Memory) topic(name string) chan Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.topics[name]
	if !ok {
		ch = make(chan Message, 256)
		m.topics[name] = ch
	}
	return ch
}

func (m *Memory) Publish(ctx context.Context, topic string, key, value []byte) error {
	select {
	case m.topic(topic) <- Message{Key: key, Value: value}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) Consume(ctx context.Context, topic string, fn HandlerFunc) error {
	ch := m.topic(topic)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			// Handler errors are swallowed like the Kafka bus does:
			// outcomes are recorded in domain state, not retried here.
			_ = fn(ctx, msg)
		}
	}
}
