package command

import (
	"time"

	"github.com/example/restaurant-orders/internal/domain/order"
)

// Order Commands
type CreateOrderItem struct {
	MealID               string   `json:"meal_id"`
	MealName             string   `json:"meal_name,omitempty"`
	Quantity             int      `json:"quantity"`
	AddedIngredientIDs   []string `json:"added_ingredients,omitempty"`
	RemovedIngredientIDs []string `json:"removed_ingredients,omitempty"`
	SpecialInstructions  string   `json:"special_instructions,omitempty"`
}

type CreateOrder struct {
	UserID              string              `json:"-"`
	Items               []CreateOrderItem   `json:"items"`
	OrderType           order.Type          `json:"order_type"`
	PaymentMethod       order.PaymentMethod `json:"payment_method"`
	CustomerName        string              `json:"customer_name"`
	CustomerPhone       string              `json:"customer_phone"`
	CustomerEmail       string              `json:"customer_email,omitempty"`
	DeliveryAddress     string              `json:"delivery_address,omitempty"`
	DeliveryLatitude    *float64            `json:"delivery_latitude,omitempty"`
	DeliveryLongitude   *float64            `json:"delivery_longitude,omitempty"`
	SpecialInstructions string              `json:"special_instructions,omitempty"`
	CouponCode          string              `json:"coupon_code,omitempty"`
}

type UpdateOrderStatus struct {
	OrderID               string               `json:"-"`
	Status                *order.Status        `json:"status,omitempty"`
	PaymentStatus         *order.PaymentStatus `json:"payment_status,omitempty"`
	EstimatedDeliveryTime *time.Time           `json:"estimated_delivery_time,omitempty"`
}

func (c CreateOrder) cart() order.Cart {
	items := make([]order.CartItem, len(c.Items))
	for i, it := range c.Items {
		items[i] = order.CartItem{
			MealID:               it.MealID,
			MealName:             it.MealName,
			Quantity:             it.Quantity,
			AddedIngredientIDs:   it.AddedIngredientIDs,
			RemovedIngredientIDs: it.RemovedIngredientIDs,
			SpecialInstructions:  it.SpecialInstructions,
		}
	}
	return order.Cart{Items: items}
}

func (c CreateOrder) customer() order.Customer {
	return order.Customer{
		UserID: c.UserID,
		Name:   c.CustomerName,
		Phone:  c.CustomerPhone,
		Email:  c.CustomerEmail,
	}
}

func (c CreateOrder) meta() order.Meta {
	return order.Meta{
		OrderType:           c.OrderType,
		PaymentMethod:       c.PaymentMethod,
		DeliveryAddress:     c.DeliveryAddress,
		DeliveryLatitude:    c.DeliveryLatitude,
		DeliveryLongitude:   c.DeliveryLongitude,
		SpecialInstructions: c.SpecialInstructions,
		CouponCode:          c.CouponCode,
	}
}

func (c UpdateOrderStatus) update() order.Update {
	return order.Update{
		Status:                c.Status,
		PaymentStatus:         c.PaymentStatus,
		EstimatedDeliveryTime: c.EstimatedDeliveryTime,
	}
}
