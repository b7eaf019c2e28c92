package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/example/restaurant-orders/internal/domain/order"
	"github.com/segmentio/kafka-go"
)

type EventHandler func(ctx context.Context, event *order.Event) error

type Consumer struct {
	reader *kafka.Reader
	logger *slog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{reader: reader, logger: logger.With("component", "KafkaConsumer", "topic", topic)}
}

// Consume reads until ctx is cancelled. Handler failures are logged and the
// message is still committed; notifications are best-effort.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Error("failed to read message", "error", err)
				continue
			}

			event, err := decodeMessage(msg)
			if err != nil {
				c.logger.Warn("skipping undecodable message", "offset", msg.Offset, "error", err)
				continue
			}

			if err := handler(ctx, event); err != nil {
				c.logger.Error("failed to handle event",
					"event_type", event.EventType, "order_id", event.OrderID, "error", err)
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func decodeMessage(msg kafka.Message) (*order.Event, error) {
	var event order.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.EventType == "" || event.OrderID == "" {
		return nil, fmt.Errorf("missing required fields: order_id=%q, event_type=%q", event.OrderID, event.EventType)
	}
	return &event, nil
}
