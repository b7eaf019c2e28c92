package mocks

import (
	"context"
	"sync"

	"github.com/example/restaurant-orders/internal/domain/order"
	"github.com/example/restaurant-orders/internal/notify"
)

// StatusChangedCall records parameters passed to NotifyStatusChanged
type StatusChangedCall struct {
	OrderID    string
	Status     order.Status
	CustomerID string
}

// MockNotifier records every notification it receives
type MockNotifier struct {
	mu            sync.Mutex
	createdCalls  []notify.OrderSummary
	statusChanges []StatusChangedCall
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{
		createdCalls:  make([]notify.OrderSummary, 0),
		statusChanges: make([]StatusChangedCall, 0),
	}
}

func (m *MockNotifier) NotifyOrderCreated(ctx context.Context, summary notify.OrderSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdCalls = append(m.createdCalls, summary)
}

func (m *MockNotifier) NotifyStatusChanged(ctx context.Context, orderID string, status order.Status, customerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusChanges = append(m.statusChanges, StatusChangedCall{
		OrderID:    orderID,
		Status:     status,
		CustomerID: customerID,
	})
}

// CreatedCalls returns a copy of the recorded NotifyOrderCreated calls
func (m *MockNotifier) CreatedCalls() []notify.OrderSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.OrderSummary(nil), m.createdCalls...)
}

// StatusChangedCalls returns a copy of the recorded NotifyStatusChanged calls
func (m *MockNotifier) StatusChangedCalls() []StatusChangedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StatusChangedCall(nil), m.statusChanges...)
}

// Reset clears recorded calls
func (m *MockNotifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdCalls = make([]notify.OrderSummary, 0)
	m.statusChanges = make([]StatusChangedCall, 0)
}
