package bus

import (
	"context"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Kafka is the production Bus backed by a Kafka-compatible broker. The hash
// balancer routes equal keys to one partition, which serializes all messages
// of one import job to a single consumer.
type Kafka struct {
	brokers []string
	group   string
	writer  *kafka.Writer
	logger  *slog.Logger
}

func NewKafka(brokers []string, group string, logger *slog.Logger) *Kafka {
	return &Kafka{
		brokers: brokers,
		group:   group,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		logger: logger,
	}
}

func (k *Kafka) Publish(ctx context.Context, topic string, key, value []byte) error {
	return k.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

// Consume reads messages for topic in the configured consumer group. Handler
// errors are logged and the message is committed anyway: processing outcomes
// live in domain state (unit status, job error detail), and the broker is not
// used as a retry mechanism.
func (k *Kafka) Consume(ctx context.Context, topic string, fn HandlerFunc) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: k.brokers,
		GroupID: k.group,
		Topic:   topic,
	})
	defer reader.Close()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			return err
		}
		if err := fn(ctx, Message{Key: msg.Key, Value: msg.Value}); err != nil {
			k.logger.ErrorContext(ctx, "message handler failed",
				"topic", topic,
				"key", string(msg.Key),
				"error", err,
			)
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
