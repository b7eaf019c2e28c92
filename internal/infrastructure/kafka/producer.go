package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/restaurant-orders/internal/domain/order"
	"github.com/segmentio/kafka-go"
)

// Producer publishes order events. Messages are keyed by order id so all
// events of one order land on the same partition in order.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{writer: writer}
}

func (p *Producer) Publish(ctx context.Context, event *order.Event) error {
	msg, err := newMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s for order %s: %w", event.EventType, event.OrderID, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func newMessage(event *order.Event) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.OrderID),
		Value: data,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}, nil
}
