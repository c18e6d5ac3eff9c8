package kafka

import (
	"context"
	"log"

	"github.com/segmentio/kafka-go"
)

type MessageHandler func(ctx context.Context, key, value []byte) error

// Consumer reads a topic within a consumer group and hands each message to
// a handler. Handler errors are logged, not retried; handlers are expected
// to be idempotent.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader}
}

func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[Kafka] read message: %v", err)
			continue
		}
		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			log.Printf("[Kafka] handle message: %v", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
