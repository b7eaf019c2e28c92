package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/restaurant-orders/internal/domain/catalog"
	"github.com/google/uuid"
)

// CartItem is one requested line as submitted by the customer.
type CartItem struct {
	MealID               string
	MealName             string // optional display override
	Quantity             int
	AddedIngredientIDs   []string
	RemovedIngredientIDs []string
	SpecialInstructions  string
}

type Cart struct {
	Items []CartItem
}

// Customer is captured at call time and stored on the order as a snapshot.
type Customer struct {
	UserID string
	Name   string
	Phone  string
	Email  string
}

type Meta struct {
	OrderType           Type
	PaymentMethod       PaymentMethod
	DeliveryAddress     string
	DeliveryLatitude    *float64
	DeliveryLongitude   *float64
	SpecialInstructions string
	CouponCode          string
}

// AssemblyError is returned by Assemble. Reason is one of the package
// sentinels and Err carries the underlying cause, if any.
type AssemblyError struct {
	Reason error
	Err    error
}

func (e *AssemblyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("assemble order: %v: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("assemble order: %v", e.Reason)
}

func (e *AssemblyError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Reason != nil {
		errs = append(errs, e.Reason)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Retryable reports whether running Assemble again may succeed.
func (e *AssemblyError) Retryable() bool {
	return errors.Is(e.Reason, ErrOrderNumberConflict)
}

type Service struct {
	repo    Repository
	catalog catalog.Reader
	pricing Pricing
	now     func() time.Time
	logger  *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithPricing(p Pricing) Option {
	return func(s *Service) { s.pricing = p }
}

func NewService(repo Repository, cat catalog.Reader, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		catalog: cat,
		pricing: DefaultPricing(),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "OrderService")
	return s
}

// Assemble prices the cart, numbers the order and persists it.
// It never emits notifications; that is left to the caller once it returns.
func (s *Service) Assemble(ctx context.Context, cart Cart, customer Customer, meta Meta) (*Order, error) {
	if !meta.OrderType.Valid() {
		return nil, &AssemblyError{Reason: ErrInvalidOrderType, Err: fmt.Errorf("%q", meta.OrderType)}
	}
	if !meta.PaymentMethod.Valid() {
		return nil, &AssemblyError{Reason: ErrInvalidPaymentMethod, Err: fmt.Errorf("%q", meta.PaymentMethod)}
	}

	orderID := uuid.New().String()
	log := s.logger.With("order_id", orderID)

	items := make([]OrderItem, 0, len(cart.Items))
	for _, ci := range cart.Items {
		item, ok, err := s.buildItem(ctx, log, ci)
		if err != nil {
			return nil, &AssemblyError{Reason: ErrCatalogUnavailable, Err: err}
		}
		if ok {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil, &AssemblyError{Reason: ErrNoValidItems}
	}

	count, err := s.repo.CountOrders(ctx)
	if err != nil {
		return nil, &AssemblyError{Reason: ErrPersistenceFailed, Err: fmt.Errorf("count orders: %w", err)}
	}

	now := s.now().UTC()
	o := &Order{
		ID:                  orderID,
		OrderNumber:         FormatOrderNumber(count+1, now),
		UserID:              customer.UserID,
		Status:              StatusPending,
		OrderType:           meta.OrderType,
		PaymentMethod:       meta.PaymentMethod,
		PaymentStatus:       PaymentPending,
		Items:               items,
		CustomerName:        customer.Name,
		CustomerPhone:       customer.Phone,
		CustomerEmail:       customer.Email,
		DeliveryAddress:     meta.DeliveryAddress,
		DeliveryLatitude:    meta.DeliveryLatitude,
		DeliveryLongitude:   meta.DeliveryLongitude,
		SpecialInstructions: meta.SpecialInstructions,
		CouponCode:          meta.CouponCode,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	s.pricing.Apply(o)
	if err := verifyAssembled(o); err != nil {
		return nil, err
	}

	if err := s.repo.InsertOrder(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicateOrderNumber) {
			return nil, &AssemblyError{Reason: ErrOrderNumberConflict, Err: err}
		}
		return nil, &AssemblyError{Reason: ErrPersistenceFailed, Err: err}
	}

	log.Info("order assembled",
		"order_number", o.OrderNumber,
		"items", len(o.Items),
		"total_amount", o.TotalAmount.String(),
	)
	return o, nil
}

// buildItem resolves one cart line against the catalog. ok is false when the
// line is skipped; err is only set when the catalog itself failed.
func (s *Service) buildItem(ctx context.Context, log *slog.Logger, ci CartItem) (item OrderItem, ok bool, err error) {
	log = log.With("meal_id", ci.MealID)

	if ci.Quantity < 1 {
		log.Warn("skipping cart item", "reason", "quantity must be at least 1", "quantity", ci.Quantity)
		return OrderItem{}, false, nil
	}

	meal, err := s.catalog.GetMeal(ctx, ci.MealID)
	if errors.Is(err, catalog.ErrNotFound) {
		log.Warn("skipping cart item", "reason", "meal not found")
		return OrderItem{}, false, nil
	}
	if err != nil {
		return OrderItem{}, false, fmt.Errorf("get meal %s: %w", ci.MealID, err)
	}

	name := ci.MealName
	if name == "" {
		name = meal.Name.String()
	}

	item = OrderItem{
		ID:                     uuid.New().String(),
		MealID:                 ci.MealID,
		MealName:               name,
		MealPrice:              meal.Price,
		Quantity:               ci.Quantity,
		SelectedIngredients:    make([]OrderItemIngredient, 0, len(ci.AddedIngredientIDs)),
		RemovedIngredients:     make([]string, 0, len(ci.RemovedIngredientIDs)),
		RemovedIngredientNames: make([]string, 0, len(ci.RemovedIngredientIDs)),
		SpecialInstructions:    ci.SpecialInstructions,
	}

	for _, id := range ci.AddedIngredientIDs {
		ing, err := s.catalog.GetIngredient(ctx, id)
		if err != nil {
			log.Warn("dropping added ingredient", "ingredient_id", id, "reason", lookupReason(err))
			continue
		}
		item.SelectedIngredients = append(item.SelectedIngredients, OrderItemIngredient{
			IngredientID: id,
			Name:         ing.Name.String(),
			Price:        ing.Price,
		})
	}

	for _, id := range ci.RemovedIngredientIDs {
		label := id
		ing, err := s.catalog.GetIngredient(ctx, id)
		switch {
		case err != nil:
			log.Warn("removed ingredient kept by id", "ingredient_id", id, "reason", lookupReason(err))
		case ing.Name.String() != "":
			label = ing.Name.String()
		}
		item.RemovedIngredients = append(item.RemovedIngredients, id)
		item.RemovedIngredientNames = append(item.RemovedIngredientNames, label)
	}

	item.Subtotal = item.computeSubtotal()
	return item, true, nil
}

func lookupReason(err error) string {
	if errors.Is(err, catalog.ErrNotFound) {
		return "not found"
	}
	return err.Error()
}

// verifyAssembled types a totals failure like every other Assemble error.
func verifyAssembled(o *Order) error {
	if err := o.VerifyTotals(); err != nil {
		return &AssemblyError{Reason: ErrTotalsMismatch, Err: err}
	}
	return nil
}
