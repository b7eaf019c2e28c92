package command

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/restaurant-orders/internal/domain/order"
	"github.com/example/restaurant-orders/internal/notify"
)

const DefaultOrderNumberRetries = 3

// Publisher writes order events to the event stream (Kafka)
type Publisher interface {
	Publish(ctx context.Context, event *order.Event) error
}

type Handler struct {
	orderSvc  *order.Service
	notifier  notify.Notifier
	publisher Publisher
	retries   int
	logger    *slog.Logger
}

// NewHandler wires the order service to its observers. publisher may be nil
// when events reach the notifier through the order table stream instead.
func NewHandler(
	orderSvc *order.Service,
	notifier notify.Notifier,
	publisher Publisher,
	retries int,
	logger *slog.Logger,
) *Handler {
	if retries < 1 {
		retries = DefaultOrderNumberRetries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		orderSvc:  orderSvc,
		notifier:  notifier,
		publisher: publisher,
		retries:   retries,
		logger:    logger.With("component", "CommandHandler"),
	}
}

// CreateOrder assembles and persists the order, then tells admins about it.
// A taken order number is retried; every other failure is returned as is.
func (h *Handler) CreateOrder(ctx context.Context, cmd CreateOrder) (*order.Order, error) {
	var (
		o   *order.Order
		err error
	)
	for attempt := 1; attempt <= h.retries; attempt++ {
		o, err = h.orderSvc.Assemble(ctx, cmd.cart(), cmd.customer(), cmd.meta())
		if err == nil {
			break
		}
		var ae *order.AssemblyError
		if !errors.As(err, &ae) || !ae.Retryable() {
			return nil, err
		}
		h.logger.Warn("order number taken, retrying", "attempt", attempt, "error", err)
	}
	if err != nil {
		return nil, err
	}

	// Persisted; nothing below may fail the request.
	h.notifier.NotifyOrderCreated(ctx, notify.SummaryFromOrder(o))
	h.publish(ctx, o.ID, order.EventOrderPlaced, order.NewOrderPlaced(o))

	return o, nil
}

// UpdateOrderStatus applies a partial update. Observers are told only when
// the update carried a status.
func (h *Handler) UpdateOrderStatus(ctx context.Context, cmd UpdateOrderStatus) (*order.Order, error) {
	o, err := h.orderSvc.Transition(ctx, cmd.OrderID, cmd.update())
	if err != nil {
		return nil, err
	}

	if cmd.Status != nil {
		h.notifier.NotifyStatusChanged(ctx, o.ID, o.Status, o.UserID)
	}
	if cmd.Status != nil || cmd.PaymentStatus != nil {
		h.publish(ctx, o.ID, order.EventOrderStatusChanged, order.NewOrderStatusChanged(o))
	}

	return o, nil
}

func (h *Handler) publish(ctx context.Context, orderID, eventType string, data any) {
	if h.publisher == nil {
		return
	}
	event, err := order.NewEvent(orderID, eventType, data)
	if err != nil {
		h.logger.Error("failed to build event", "event_type", eventType, "order_id", orderID, "error", err)
		return
	}
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Error("failed to publish event", "event_type", eventType, "order_id", orderID, "error", err)
	}
}
