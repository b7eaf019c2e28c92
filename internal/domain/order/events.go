package order

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types published to the order event stream.
const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

// Event is the envelope written to Kafka and decoded by the notifier.
type Event struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewEvent(orderID, eventType string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		EventType: eventType,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

type OrderPlaced struct {
	OrderID       string          `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	UserID        string          `json:"user_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	OrderType     Type            `json:"order_type"`
	Items         []OrderItem     `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PlacedAt      time.Time       `json:"placed_at"`
}

type OrderStatusChanged struct {
	OrderID       string        `json:"order_id"`
	OrderNumber   string        `json:"order_number"`
	UserID        string        `json:"user_id"`
	CustomerName  string        `json:"customer_name"`
	CustomerEmail string        `json:"customer_email,omitempty"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	ChangedAt     time.Time     `json:"changed_at"`
}

func NewOrderPlaced(o *Order) OrderPlaced {
	return OrderPlaced{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		OrderType:     o.OrderType,
		Items:         o.Items,
		Subtotal:      o.Subtotal,
		TaxAmount:     o.TaxAmount,
		DeliveryFee:   o.DeliveryFee,
		TotalAmount:   o.TotalAmount,
		PlacedAt:      o.CreatedAt,
	}
}

func NewOrderStatusChanged(o *Order) OrderStatusChanged {
	return OrderStatusChanged{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		ChangedAt:     o.UpdatedAt,
	}
}
