package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/restaurant-orders/internal/domain/order"
	"github.com/shopspring/decimal"
)

// MockOrderStore is an in-memory order.Repository for testing
type MockOrderStore struct {
	mu      sync.RWMutex
	orders  map[string]*order.Order
	numbers map[string]string // order number -> order id

	// For tracking calls in tests
	InsertCalls []*order.Order
	UpdateCalls []*order.Order
	GetCalls    []string
	CountCalls  int

	InsertErr      error
	UpdateErr      error
	CountErr       error
	GetErr         error
	ListErr        error
	StatsErr       error
	InsertCallback func(ctx context.Context, o *order.Order) error
}

// NewMockOrderStore creates a new MockOrderStore
func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{
		orders:      make(map[string]*order.Order),
		numbers:     make(map[string]string),
		InsertCalls: make([]*order.Order, 0),
		UpdateCalls: make([]*order.Order, 0),
		GetCalls:    make([]string, 0),
	}
}

// InsertOrder stores a copy of o, rejecting taken order numbers
func (m *MockOrderStore) InsertOrder(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InsertCalls = append(m.InsertCalls, o.Clone())

	if m.InsertCallback != nil {
		if err := m.InsertCallback(ctx, o); err != nil {
			return err
		}
	}
	if m.InsertErr != nil {
		return m.InsertErr
	}
	if _, taken := m.numbers[o.OrderNumber]; taken {
		return order.ErrDuplicateOrderNumber
	}

	m.orders[o.ID] = o.Clone()
	m.numbers[o.OrderNumber] = o.ID
	return nil
}

// UpdateOrder replaces the stored copy of o when o was read at the stored
// version
func (m *MockOrderStore) UpdateOrder(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalls = append(m.UpdateCalls, o.Clone())

	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	stored, ok := m.orders[o.ID]
	if !ok {
		return order.ErrOrderNotFound
	}
	if stored.Version != o.Version-1 {
		return order.ErrConcurrentUpdate
	}
	m.orders[o.ID] = o.Clone()
	return nil
}

// CountOrders returns the number of stored orders
func (m *MockOrderStore) CountOrders(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CountCalls++
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	return len(m.orders), nil
}

// GetOrder returns a copy of the stored order
func (m *MockOrderStore) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = append(m.GetCalls, id)

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return o.Clone(), nil
}

// ListOrders returns matching orders, newest first
func (m *MockOrderStore) ListOrders(ctx context.Context, filter order.ListFilter) ([]*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}

	result := make([]*order.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		result = append(result, o.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Skip > 0 {
		if filter.Skip >= len(result) {
			return []*order.Order{}, nil
		}
		result = result[filter.Skip:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Stats aggregates the stored orders the same way the SQL store does
func (m *MockOrderStore) Stats(ctx context.Context, since time.Time) (*order.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.StatsErr != nil {
		return nil, m.StatsErr
	}

	stats := &order.Stats{TotalRevenue: decimal.Zero, TodayRevenue: decimal.Zero}
	for _, o := range m.orders {
		stats.TotalOrders++
		today := !o.CreatedAt.Before(since)
		if today {
			stats.TodayOrders++
		}
		if o.Status != order.StatusDelivered {
			continue
		}
		stats.TotalRevenue = stats.TotalRevenue.Add(o.TotalAmount)
		if today {
			stats.TodayRevenue = stats.TodayRevenue.Add(o.TotalAmount)
		}
	}
	return stats, nil
}

// Reset clears all orders, recorded calls and injected errors
func (m *MockOrderStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = make(map[string]*order.Order)
	m.numbers = make(map[string]string)
	m.InsertCalls = make([]*order.Order, 0)
	m.UpdateCalls = make([]*order.Order, 0)
	m.GetCalls = make([]string, 0)
	m.CountCalls = 0
	m.InsertErr = nil
	m.UpdateErr = nil
	m.CountErr = nil
	m.GetErr = nil
	m.ListErr = nil
	m.StatsErr = nil
	m.InsertCallback = nil
}

// SetOrder stores an order directly for testing
func (m *MockOrderStore) SetOrder(o *order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o.Clone()
	if o.OrderNumber != "" {
		m.numbers[o.OrderNumber] = o.ID
	}
}

// GetData gets an order directly for testing (without recording the call)
func (m *MockOrderStore) GetData(id string) (*order.Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	return o.Clone(), ok
}
