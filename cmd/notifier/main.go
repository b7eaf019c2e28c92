package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/restaurant-orders/internal/config"
	"github.com/example/restaurant-orders/internal/email"
	"github.com/example/restaurant-orders/internal/infrastructure/kafka"
	"github.com/example/restaurant-orders/internal/logger"
	"github.com/example/restaurant-orders/internal/notification"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadNotifier(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.App.LogLevel, "order-notifier")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler := notification.NewHandler(email.NewService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From), log)

	consumer := kafka.NewConsumer(cfg.Kafka.BrokerList(), cfg.Kafka.Topic, cfg.Kafka.ConsumerGroup, log)
	defer consumer.Close()

	log.Info("notifier started",
		"brokers", cfg.Kafka.BrokerList(),
		"topic", cfg.Kafka.Topic,
		"group", cfg.Kafka.ConsumerGroup,
		"smtp", cfg.SMTP.Host+":"+cfg.SMTP.Port,
	)

	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
	log.Info("notifier stopped")
}
