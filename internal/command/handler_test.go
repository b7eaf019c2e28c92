package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/restaurant-orders/internal/domain/catalog"
	"github.com/example/restaurant-orders/internal/domain/order"
	"github.com/example/restaurant-orders/internal/infrastructure/store/mocks"
	notifymocks "github.com/example/restaurant-orders/internal/notify/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*order.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event *order.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

type testDeps struct {
	orderStore *mocks.MockOrderStore
	catalog    *mocks.MockCatalog
	notifier   *notifymocks.MockNotifier
	publisher  *recordingPublisher
}

func newTestHandler() (*Handler, *testDeps) {
	deps := &testDeps{
		orderStore: mocks.NewMockOrderStore(),
		catalog:    mocks.NewMockCatalog(),
		notifier:   notifymocks.NewMockNotifier(),
		publisher:  &recordingPublisher{},
	}
	deps.catalog.AddMeal(&catalog.Meal{
		ID:       "meal-burger",
		Name:     catalog.LocalizedName{"en": "Classic Burger"},
		Price:    decimal.RequireFromString("10.00"),
		IsActive: true,
	})
	deps.catalog.AddIngredient(&catalog.Ingredient{
		ID:    "ing-cheese",
		Name:  catalog.LocalizedName{"en": "Cheese"},
		Price: decimal.RequireFromString("1.00"),
	})

	orderSvc := order.NewService(deps.orderStore, deps.catalog, order.WithClock(func() time.Time { return fixedNow }))
	handler := NewHandler(orderSvc, deps.notifier, deps.publisher, 3, nil)
	return handler, deps
}

func burgerOrder() CreateOrder {
	return CreateOrder{
		UserID: "user-123",
		Items: []CreateOrderItem{
			{MealID: "meal-burger", Quantity: 2},
		},
		OrderType:       order.TypeDelivery,
		PaymentMethod:   order.PaymentCash,
		CustomerName:    "Amina",
		CustomerPhone:   "+254700000000",
		CustomerEmail:   "amina@example.com",
		DeliveryAddress: "12 Harbour Road",
	}
}

func statusPtr(s order.Status) *order.Status { return &s }

func paymentPtr(p order.PaymentStatus) *order.PaymentStatus { return &p }

// ============================================
// Create Order Tests
// ============================================

func TestHandler_CreateOrder_Success(t *testing.T) {
	handler, deps := newTestHandler()
	ctx := context.Background()

	o, err := handler.CreateOrder(ctx, burgerOrder())

	require.NoError(t, err)
	assert.Equal(t, "ORD-20240305-000001", o.OrderNumber)
	assert.Equal(t, "user-123", o.UserID)
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("26.60")))

	created := deps.notifier.CreatedCalls()
	require.Len(t, created, 1)
	assert.Equal(t, o.ID, created[0].ID)
	assert.Equal(t, "ORD-20240305-000001", created[0].OrderNumber)

	require.Len(t, deps.publisher.events, 1)
	assert.Equal(t, order.EventOrderPlaced, deps.publisher.events[0].EventType)
	assert.Equal(t, o.ID, deps.publisher.events[0].OrderID)
}

func TestHandler_CreateOrder_WithExtras(t *testing.T) {
	handler, deps := newTestHandler()
	cmd := burgerOrder()
	cmd.Items[0].AddedIngredientIDs = []string{"ing-cheese"}

	o, err := handler.CreateOrder(context.Background(), cmd)

	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	require.Len(t, o.Items[0].SelectedIngredients, 1)
	assert.True(t, o.Items[0].Subtotal.Equal(decimal.RequireFromString("22.00")))
	assert.Len(t, deps.orderStore.InsertCalls, 1)
}

func TestHandler_CreateOrder_NoValidItems(t *testing.T) {
	handler, deps := newTestHandler()
	cmd := burgerOrder()
	cmd.Items = []CreateOrderItem{{MealID: "ghost", Quantity: 1}}

	o, err := handler.CreateOrder(context.Background(), cmd)

	assert.ErrorIs(t, err, order.ErrNoValidItems)
	assert.Nil(t, o)
	assert.Empty(t, deps.orderStore.InsertCalls)
	assert.Empty(t, deps.notifier.CreatedCalls())
	assert.Empty(t, deps.publisher.events)
}

func TestHandler_CreateOrder_RetriesOrderNumberConflict(t *testing.T) {
	handler, deps := newTestHandler()
	calls := 0
	deps.orderStore.InsertCallback = func(ctx context.Context, o *order.Order) error {
		calls++
		if calls == 1 {
			return order.ErrDuplicateOrderNumber
		}
		return nil
	}

	o, err := handler.CreateOrder(context.Background(), burgerOrder())

	require.NoError(t, err)
	assert.NotNil(t, o)
	assert.Len(t, deps.orderStore.InsertCalls, 2)
	assert.Len(t, deps.notifier.CreatedCalls(), 1)
}

func TestHandler_CreateOrder_ConflictRetriesExhausted(t *testing.T) {
	handler, deps := newTestHandler()
	deps.orderStore.InsertErr = order.ErrDuplicateOrderNumber

	o, err := handler.CreateOrder(context.Background(), burgerOrder())

	assert.ErrorIs(t, err, order.ErrOrderNumberConflict)
	assert.Nil(t, o)
	assert.Len(t, deps.orderStore.InsertCalls, 3)
	assert.Empty(t, deps.notifier.CreatedCalls())
}

func TestHandler_CreateOrder_PersistenceFailureNotRetried(t *testing.T) {
	handler, deps := newTestHandler()
	deps.orderStore.InsertErr = errors.New("connection reset")

	_, err := handler.CreateOrder(context.Background(), burgerOrder())

	assert.ErrorIs(t, err, order.ErrPersistenceFailed)
	assert.Len(t, deps.orderStore.InsertCalls, 1)
	assert.Empty(t, deps.notifier.CreatedCalls())
}

func TestHandler_CreateOrder_PublishFailureDoesNotFail(t *testing.T) {
	handler, deps := newTestHandler()
	deps.publisher.err = errors.New("kafka unavailable")

	o, err := handler.CreateOrder(context.Background(), burgerOrder())

	require.NoError(t, err)
	assert.NotNil(t, o)
	assert.Len(t, deps.notifier.CreatedCalls(), 1)
}

func TestHandler_CreateOrder_WithoutPublisher(t *testing.T) {
	_, deps := newTestHandler()
	orderSvc := order.NewService(deps.orderStore, deps.catalog)
	handler := NewHandler(orderSvc, deps.notifier, nil, 0, nil)

	o, err := handler.CreateOrder(context.Background(), burgerOrder())

	require.NoError(t, err)
	assert.NotNil(t, o)
	assert.Equal(t, DefaultOrderNumberRetries, handler.retries)
}

// ============================================
// Update Order Status Tests
// ============================================

func TestHandler_UpdateOrderStatus_NotifiesCustomerAndAdmins(t *testing.T) {
	handler, deps := newTestHandler()
	ctx := context.Background()
	o, err := handler.CreateOrder(ctx, burgerOrder())
	require.NoError(t, err)
	deps.publisher.events = nil

	updated, err := handler.UpdateOrderStatus(ctx, UpdateOrderStatus{
		OrderID: o.ID,
		Status:  statusPtr(order.StatusConfirmed),
	})

	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, updated.Status)
	assert.NotNil(t, updated.ConfirmedAt)

	calls := deps.notifier.StatusChangedCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, o.ID, calls[0].OrderID)
	assert.Equal(t, order.StatusConfirmed, calls[0].Status)
	assert.Equal(t, "user-123", calls[0].CustomerID)

	require.Len(t, deps.publisher.events, 1)
	assert.Equal(t, order.EventOrderStatusChanged, deps.publisher.events[0].EventType)
}

func TestHandler_UpdateOrderStatus_PaymentOnly(t *testing.T) {
	handler, deps := newTestHandler()
	ctx := context.Background()
	o, err := handler.CreateOrder(ctx, burgerOrder())
	require.NoError(t, err)
	deps.publisher.events = nil

	updated, err := handler.UpdateOrderStatus(ctx, UpdateOrderStatus{
		OrderID:       o.ID,
		PaymentStatus: paymentPtr(order.PaymentPaid),
	})

	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, updated.PaymentStatus)
	assert.Empty(t, deps.notifier.StatusChangedCalls())
	assert.Len(t, deps.publisher.events, 1)
}

func TestHandler_UpdateOrderStatus_ETAOnlyIsQuiet(t *testing.T) {
	handler, deps := newTestHandler()
	ctx := context.Background()
	o, err := handler.CreateOrder(ctx, burgerOrder())
	require.NoError(t, err)
	deps.publisher.events = nil

	eta := fixedNow.Add(45 * time.Minute)
	updated, err := handler.UpdateOrderStatus(ctx, UpdateOrderStatus{
		OrderID:               o.ID,
		EstimatedDeliveryTime: &eta,
	})

	require.NoError(t, err)
	require.NotNil(t, updated.EstimatedDeliveryTime)
	assert.True(t, eta.Equal(*updated.EstimatedDeliveryTime))
	assert.Empty(t, deps.notifier.StatusChangedCalls())
	assert.Empty(t, deps.publisher.events)
}

func TestHandler_UpdateOrderStatus_NotFound(t *testing.T) {
	handler, deps := newTestHandler()

	_, err := handler.UpdateOrderStatus(context.Background(), UpdateOrderStatus{
		OrderID: "missing",
		Status:  statusPtr(order.StatusConfirmed),
	})

	assert.ErrorIs(t, err, order.ErrOrderNotFound)
	assert.Empty(t, deps.notifier.StatusChangedCalls())
}

func TestHandler_UpdateOrderStatus_InvalidStatus(t *testing.T) {
	handler, deps := newTestHandler()
	ctx := context.Background()
	o, err := handler.CreateOrder(ctx, burgerOrder())
	require.NoError(t, err)

	_, err = handler.UpdateOrderStatus(ctx, UpdateOrderStatus{
		OrderID: o.ID,
		Status:  statusPtr("SHIPPED"),
	})

	assert.ErrorIs(t, err, order.ErrInvalidStatus)
	assert.Empty(t, deps.orderStore.UpdateCalls)
	assert.Empty(t, deps.notifier.StatusChangedCalls())
}

func TestHandler_UpdateOrderStatus_PersistFailureDoesNotNotify(t *testing.T) {
	handler, deps := newTestHandler()
	ctx := context.Background()
	o, err := handler.CreateOrder(ctx, burgerOrder())
	require.NoError(t, err)
	deps.orderStore.UpdateErr = errors.New("disk full")

	_, err = handler.UpdateOrderStatus(ctx, UpdateOrderStatus{
		OrderID: o.ID,
		Status:  statusPtr(order.StatusPreparing),
	})

	assert.Error(t, err)
	assert.Empty(t, deps.notifier.StatusChangedCalls())
}
