package order

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending        Status = "PENDING"
	StatusConfirmed      Status = "CONFIRMED"
	StatusPreparing      Status = "PREPARING"
	StatusReady          Status = "READY"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
)

// Valid reports whether s is one of the known order statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further progress is expected from s.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type Type string

const (
	TypeDelivery Type = "DELIVERY"
	TypeDineIn   Type = "DINE_IN"
	TypeTakeAway Type = "TAKE_AWAY"
)

func (t Type) Valid() bool {
	return t == TypeDelivery || t == TypeDineIn || t == TypeTakeAway
}

type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "CASH"
	PaymentCard        PaymentMethod = "CARD"
	PaymentMobileMoney PaymentMethod = "MOBILE_MONEY"
	PaymentMpesa       PaymentMethod = "MPESA"
	PaymentStripe      PaymentMethod = "STRIPE"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentMobileMoney, PaymentMpesa, PaymentStripe:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
	ErrInvalidStatus        = errors.New("invalid order status")
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
	ErrInvalidOrderType     = errors.New("invalid order type")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrEmptyUpdate          = errors.New("update changes nothing")
	ErrTotalsMismatch       = errors.New("order totals do not add up")
	ErrCatalogUnavailable   = errors.New("catalog unavailable")
	ErrNoValidItems         = errors.New("order must have at least one valid item")
	ErrPersistenceFailed    = errors.New("order persistence failed")
	ErrOrderNumberConflict  = errors.New("order number already taken")
	ErrConcurrentUpdate     = errors.New("order was modified concurrently")
)

// OrderItemIngredient is a snapshot of an extra ingredient added to a meal.
type OrderItemIngredient struct {
	IngredientID string          `json:"ingredient_id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
}

type OrderItem struct {
	ID                     string                `json:"id"`
	MealID                 string                `json:"meal_id"`
	MealName               string                `json:"meal_name"`
	MealPrice              decimal.Decimal       `json:"meal_price"`
	Quantity               int                   `json:"quantity"`
	SelectedIngredients    []OrderItemIngredient `json:"selected_ingredients"`
	RemovedIngredients     []string              `json:"removed_ingredients"`
	RemovedIngredientNames []string              `json:"removed_ingredients_names"`
	SpecialInstructions    string                `json:"special_instructions,omitempty"`
	Subtotal               decimal.Decimal       `json:"subtotal"`
}

// UnitPrice is the meal price plus every selected extra.
func (it OrderItem) UnitPrice() decimal.Decimal {
	unit := it.MealPrice
	for _, ing := range it.SelectedIngredients {
		unit = unit.Add(ing.Price)
	}
	return unit
}

func (it OrderItem) computeSubtotal() decimal.Decimal {
	return it.UnitPrice().Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type Order struct {
	ID            string        `json:"id"`
	OrderNumber   string        `json:"order_number"`
	UserID        string        `json:"user_id"`
	Status        Status        `json:"status"`
	OrderType     Type          `json:"order_type"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status"`

	Items          []OrderItem     `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DeliveryFee    decimal.Decimal `json:"delivery_fee"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`

	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email,omitempty"`

	DeliveryAddress       string     `json:"delivery_address,omitempty"`
	DeliveryLatitude      *float64   `json:"delivery_latitude,omitempty"`
	DeliveryLongitude     *float64   `json:"delivery_longitude,omitempty"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time,omitempty"`
	ActualDeliveryTime    *time.Time `json:"actual_delivery_time,omitempty"`

	SpecialInstructions string `json:"special_instructions,omitempty"`
	CouponCode          string `json:"coupon_code,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Version counts persisted updates. UpdateOrder only writes over the
	// version the order was read at.
	Version int `json:"version"`
}

// ListFilter narrows ListOrders. Zero values mean "any".
type ListFilter struct {
	UserID string
	Status Status
	Skip   int
	Limit  int
}

// Stats backs the admin dashboard. Revenue only counts delivered orders.
// TotalMeals comes from the catalog, not from Repository.Stats.
type Stats struct {
	TotalOrders  int             `json:"total_orders"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TodayOrders  int             `json:"today_orders"`
	TodayRevenue decimal.Decimal `json:"today_revenue"`
	TotalMeals   int             `json:"total_meals"`
}

// Repository is the persistence gateway for orders.
//
// InsertOrder must return ErrDuplicateOrderNumber when the order number is
// already taken and must not leave a partial order behind on failure.
// GetOrder and UpdateOrder return ErrOrderNotFound for unknown ids.
// UpdateOrder writes o only while the stored version is still o.Version-1
// and returns ErrConcurrentUpdate otherwise.
type Repository interface {
	InsertOrder(ctx context.Context, o *Order) error
	UpdateOrder(ctx context.Context, o *Order) error
	CountOrders(ctx context.Context) (int, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]*Order, error)
	Stats(ctx context.Context, since time.Time) (*Stats, error)
}

// Clone returns a deep copy of o so stored snapshots cannot be mutated
// through a returned pointer.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = cloneSlice(o.Items)
	for i, it := range c.Items {
		it.SelectedIngredients = cloneSlice(it.SelectedIngredients)
		it.RemovedIngredients = cloneSlice(it.RemovedIngredients)
		it.RemovedIngredientNames = cloneSlice(it.RemovedIngredientNames)
		c.Items[i] = it
	}
	c.DeliveryLatitude = cloneFloat(o.DeliveryLatitude)
	c.DeliveryLongitude = cloneFloat(o.DeliveryLongitude)
	c.EstimatedDeliveryTime = cloneTime(o.EstimatedDeliveryTime)
	c.ActualDeliveryTime = cloneTime(o.ActualDeliveryTime)
	c.ConfirmedAt = cloneTime(o.ConfirmedAt)
	c.CompletedAt = cloneTime(o.CompletedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
