package notification

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/ledger-saga/internal/infrastructure/kafka"
)

// Notification is an outbound customer-facing message derived from a
// domain event.
type Notification struct {
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sent_at"`
}

// Notifier delivers notifications. Delivery is at-least-once; upstream
// redeliveries can produce duplicate messages.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// KafkaNotifier publishes notifications to a topic for a downstream
// delivery service, keyed by recipient.
type KafkaNotifier struct {
	producer *kafka.Producer
}

func NewKafkaNotifier(producer *kafka.Producer) *KafkaNotifier {
	return &KafkaNotifier{producer: producer}
}

func (n *KafkaNotifier) Notify(ctx context.Context, msg Notification) error {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	if err := n.producer.Publish(ctx, msg.Recipient, msg); err != nil {
		return fmt.Errorf("publish notification to %s: %w", msg.Recipient, err)
	}
	return nil
}

// LogNotifier writes notifications to the process log. Used in local
// development and as the fallback when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, msg Notification) error {
	log.Printf("[Notifier] to=%s subject=%q body=%q", msg.Recipient, msg.Subject, msg.Body)
	return nil
}
