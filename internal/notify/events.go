package notify

import (
	"encoding/json"

	"github.com/example/restaurant-orders/internal/domain/order"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventConnection        EventType = "connection"
	EventNewOrder          EventType = "new_order"
	EventOrderStatusUpdate EventType = "order_status_update"
	EventPong              EventType = "pong"
)

// Event is a payload pushed to observers. The set of implementations is
// closed; each variant owns its JSON shape.
type Event interface {
	json.Marshaler
	Type() EventType
	isEvent()
}

// Connected greets an observer right after it registers.
type Connected struct {
	Message string
}

func (Connected) Type() EventType { return EventConnection }
func (Connected) isEvent()        {}

func (e Connected) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    EventType `json:"type"`
		Status  string    `json:"status"`
		Message string    `json:"message"`
	}{EventConnection, "connected", e.Message})
}

type SummaryItem struct {
	MealID   string
	MealName string
	Quantity int
	Price    decimal.Decimal
}

// OrderSummary is the part of a new order that admins see on their board.
type OrderSummary struct {
	ID            string
	OrderNumber   string
	CustomerName  string
	CustomerPhone string
	TotalAmount   decimal.Decimal
	Status        order.Status
	Items         []SummaryItem
}

// SummaryFromOrder snapshots o for the new_order event. Item price is the
// unit price including extras.
func SummaryFromOrder(o *order.Order) OrderSummary {
	items := make([]SummaryItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, SummaryItem{
			MealID:   it.MealID,
			MealName: it.MealName,
			Quantity: it.Quantity,
			Price:    it.UnitPrice(),
		})
	}
	return OrderSummary{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		TotalAmount:   o.TotalAmount,
		Status:        o.Status,
		Items:         items,
	}
}

type OrderCreated struct {
	Order OrderSummary
}

func (OrderCreated) Type() EventType { return EventNewOrder }
func (OrderCreated) isEvent()        {}

type wireItem struct {
	MealID   string      `json:"meal_id"`
	MealName string      `json:"meal_name"`
	Quantity int         `json:"quantity"`
	Price    json.Number `json:"price"`
}

type wireOrder struct {
	ID            string       `json:"id"`
	OrderNumber   string       `json:"order_number"`
	CustomerName  string       `json:"customer_name"`
	CustomerPhone string       `json:"customer_phone"`
	TotalAmount   json.Number  `json:"total_amount"`
	Status        order.Status `json:"status"`
	Items         []wireItem   `json:"items"`
}

func (e OrderCreated) MarshalJSON() ([]byte, error) {
	items := make([]wireItem, 0, len(e.Order.Items))
	for _, it := range e.Order.Items {
		items = append(items, wireItem{
			MealID:   it.MealID,
			MealName: it.MealName,
			Quantity: it.Quantity,
			Price:    number(it.Price),
		})
	}
	return json.Marshal(struct {
		Type EventType `json:"type"`
		Data wireOrder `json:"data"`
	}{EventNewOrder, wireOrder{
		ID:            e.Order.ID,
		OrderNumber:   e.Order.OrderNumber,
		CustomerName:  e.Order.CustomerName,
		CustomerPhone: e.Order.CustomerPhone,
		TotalAmount:   number(e.Order.TotalAmount),
		Status:        e.Order.Status,
		Items:         items,
	}})
}

type StatusChanged struct {
	OrderID string
	Status  order.Status
}

func (StatusChanged) Type() EventType { return EventOrderStatusUpdate }
func (StatusChanged) isEvent()        {}

func (e StatusChanged) MarshalJSON() ([]byte, error) {
	type data struct {
		OrderID string       `json:"order_id"`
		Status  order.Status `json:"status"`
	}
	return json.Marshal(struct {
		Type EventType `json:"type"`
		Data data      `json:"data"`
	}{EventOrderStatusUpdate, data{e.OrderID, e.Status}})
}

// Pong answers an observer's literal "ping".
type Pong struct{}

func (Pong) Type() EventType { return EventPong }
func (Pong) isEvent()        {}

func (Pong) MarshalJSON() ([]byte, error) {
	return []byte(`{"type":"pong"}`), nil
}

// number renders d as an exact JSON number rather than a quoted string.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
