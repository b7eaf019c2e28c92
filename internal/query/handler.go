package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/restaurant-orders/internal/domain/catalog"
	"github.com/example/restaurant-orders/internal/domain/order"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 100
)

var (
	ErrForbidden     = errors.New("not allowed to view this order")
	ErrInvalidFilter = errors.New("invalid list filter")
)

// Viewer is the authenticated caller of a query
type Viewer struct {
	UserID  string
	IsAdmin bool
}

type Handler struct {
	orders order.Repository
	meals  catalog.MealCounter
	now    func() time.Time
	logger *slog.Logger
}

// NewHandler builds the read side. meals may be nil, in which case the
// dashboard reports no menu size.
func NewHandler(orders order.Repository, meals catalog.MealCounter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		orders: orders,
		meals:  meals,
		now:    time.Now,
		logger: logger.With("component", "QueryHandler"),
	}
}

// GetOrder returns the order when the viewer owns it or is an admin
func (h *Handler) GetOrder(ctx context.Context, viewer Viewer, id string) (*order.Order, error) {
	o, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin && o.UserID != viewer.UserID {
		h.logger.Warn("order access denied", "order_id", id, "user_id", viewer.UserID)
		return nil, ErrForbidden
	}
	return o, nil
}

// ListOrders is the admin listing, newest first
func (h *Handler) ListOrders(ctx context.Context, status order.Status, skip, limit int) ([]*order.Order, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidFilter, status)
	}
	filter, err := pageFilter(skip, limit)
	if err != nil {
		return nil, err
	}
	filter.Status = status
	return h.list(ctx, filter)
}

// MyOrders lists the viewer's own orders, newest first
func (h *Handler) MyOrders(ctx context.Context, viewer Viewer, skip, limit int) ([]*order.Order, error) {
	filter, err := pageFilter(skip, limit)
	if err != nil {
		return nil, err
	}
	filter.UserID = viewer.UserID
	return h.list(ctx, filter)
}

// DashboardStats counts all orders and today's orders, where today starts
// at midnight UTC, plus the active meals on the menu.
func (h *Handler) DashboardStats(ctx context.Context) (*order.Stats, error) {
	now := h.now().UTC()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	stats, err := h.orders.Stats(ctx, since)
	if err != nil {
		return nil, err
	}
	if h.meals != nil {
		if stats.TotalMeals, err = h.meals.CountActiveMeals(ctx); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (h *Handler) list(ctx context.Context, filter order.ListFilter) ([]*order.Order, error) {
	orders, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []*order.Order{}
	}
	return orders, nil
}

func pageFilter(skip, limit int) (order.ListFilter, error) {
	if skip < 0 {
		return order.ListFilter{}, fmt.Errorf("%w: skip %d", ErrInvalidFilter, skip)
	}
	switch {
	case limit < 0:
		return order.ListFilter{}, fmt.Errorf("%w: limit %d", ErrInvalidFilter, limit)
	case limit == 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return order.ListFilter{Skip: skip, Limit: limit}, nil
}
