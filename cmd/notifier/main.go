package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/example/ledger-saga/internal/infrastructure/kafka"
	"github.com/example/ledger-saga/internal/notification"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Configuration from environment variables
	kafkaBrokersStr := getEnv("KAFKA_BROKERS", "localhost:9092")
	kafkaBrokers := strings.Split(kafkaBrokersStr, ",")
	kafkaTopic := getEnv("KAFKA_TOPIC", "ledger-events")
	consumerGroup := getEnv("KAFKA_CONSUMER_GROUP", "notifier")
	notificationsTopic := os.Getenv("NOTIFICATIONS_TOPIC")

	log.Println("[Notifier] ========================================")
	log.Println("[Notifier] Ledger Saga - Notifier")
	log.Println("[Notifier] ========================================")
	log.Printf("[Notifier] Kafka: %v", kafkaBrokers)
	log.Printf("[Notifier] Topic: %s", kafkaTopic)
	log.Printf("[Notifier] Group: %s", consumerGroup)

	var notifier notification.Notifier
	if notificationsTopic != "" {
		producer := kafka.NewProducer(kafkaBrokers, notificationsTopic)
		defer producer.Close()
		notifier = notification.NewKafkaNotifier(producer)
		log.Printf("[Notifier] Publishing notifications to topic: %s", notificationsTopic)
	} else {
		notifier = notification.LogNotifier{}
		log.Println("[Notifier] NOTIFICATIONS_TOPIC not set, logging notifications")
	}

	handler := notification.NewHandler(notifier)

	consumer := kafka.NewConsumer(kafkaBrokers, kafkaTopic, consumerGroup)
	defer consumer.Close()

	go func() {
		log.Println("[Notifier] Starting event consumer...")
		if err := consumer.Consume(ctx, handler.HandleMessage); err != nil {
			if ctx.Err() == nil {
				log.Printf("[Notifier] Consumer error: %v", err)
			}
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Notifier] Shutting down...")
	cancel()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
