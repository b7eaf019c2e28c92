package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/example/restaurant-orders/internal/domain/order"
	"github.com/example/restaurant-orders/internal/email"
)

// Mailer is the subset of email.Service used by Handler
type Mailer interface {
	SendOrderConfirmation(to string, c email.Confirmation) error
	SendStatusUpdate(to string, u email.StatusUpdate) error
}

// Handler turns order events into customer e-mails
type Handler struct {
	mailer Mailer
	logger *slog.Logger
}

func NewHandler(mailer Mailer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		mailer: mailer,
		logger: logger.With("component", "Notifier"),
	}
}

// HandleEvent processes an event from Kafka or the order table stream.
// Unknown event types and orders without an e-mail address are skipped.
func (h *Handler) HandleEvent(ctx context.Context, event *order.Event) error {
	switch event.EventType {
	case order.EventOrderPlaced:
		return h.handleOrderPlaced(event)
	case order.EventOrderStatusChanged:
		return h.handleStatusChanged(event)
	}
	return nil
}

func (h *Handler) handleOrderPlaced(event *order.Event) error {
	var e order.OrderPlaced
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return fmt.Errorf("failed to unmarshal OrderPlaced event: %w", err)
	}

	if e.CustomerEmail == "" {
		h.logger.Debug("no e-mail on order, skipping confirmation", "order_id", e.OrderID)
		return nil
	}

	items := make([]email.OrderItem, len(e.Items))
	for i, it := range e.Items {
		extras := make([]string, 0, len(it.SelectedIngredients))
		for _, ing := range it.SelectedIngredients {
			extras = append(extras, ing.Name)
		}
		items[i] = email.OrderItem{
			Name:      it.MealName,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice(),
			Subtotal:  it.Subtotal,
			Extras:    extras,
		}
	}

	err := h.mailer.SendOrderConfirmation(e.CustomerEmail, email.Confirmation{
		OrderNumber:  e.OrderNumber,
		CustomerName: e.CustomerName,
		Items:        items,
		Subtotal:     e.Subtotal,
		TaxAmount:    e.TaxAmount,
		DeliveryFee:  e.DeliveryFee,
		TotalAmount:  e.TotalAmount,
	})
	if err != nil {
		return fmt.Errorf("order confirmation for %s: %w", e.OrderNumber, err)
	}

	h.logger.Info("order confirmation sent", "order_id", e.OrderID, "order_number", e.OrderNumber)
	return nil
}

func (h *Handler) handleStatusChanged(event *order.Event) error {
	var e order.OrderStatusChanged
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return fmt.Errorf("failed to unmarshal OrderStatusChanged event: %w", err)
	}

	if e.CustomerEmail == "" {
		return nil
	}

	err := h.mailer.SendStatusUpdate(e.CustomerEmail, email.StatusUpdate{
		OrderNumber:   e.OrderNumber,
		CustomerName:  e.CustomerName,
		Status:        string(e.Status),
		PaymentStatus: string(e.PaymentStatus),
	})
	if err != nil {
		return fmt.Errorf("status update for %s: %w", e.OrderNumber, err)
	}

	h.logger.Info("status update sent", "order_id", e.OrderID, "status", e.Status)
	return nil
}
