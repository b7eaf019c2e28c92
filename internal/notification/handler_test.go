package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/restaurant-orders/internal/domain/order"
	"github.com/example/restaurant-orders/internal/email"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	confirmations []sentConfirmation
	updates       []sentUpdate
	err           error
}

type sentConfirmation struct {
	To string
	C  email.Confirmation
}

type sentUpdate struct {
	To string
	U  email.StatusUpdate
}

func (m *recordingMailer) SendOrderConfirmation(to string, c email.Confirmation) error {
	if m.err != nil {
		return m.err
	}
	m.confirmations = append(m.confirmations, sentConfirmation{To: to, C: c})
	return nil
}

func (m *recordingMailer) SendStatusUpdate(to string, u email.StatusUpdate) error {
	if m.err != nil {
		return m.err
	}
	m.updates = append(m.updates, sentUpdate{To: to, U: u})
	return nil
}

func placedOrder() *order.Order {
	return &order.Order{
		ID:            "order-1",
		OrderNumber:   "ORD-20240305-000001",
		UserID:        "user-1",
		Status:        order.StatusPending,
		PaymentStatus: order.PaymentPending,
		OrderType:     order.TypeDelivery,
		Items: []order.OrderItem{{
			MealID:    "meal-burger",
			MealName:  "Classic Burger",
			MealPrice: decimal.RequireFromString("10.00"),
			Quantity:  2,
			SelectedIngredients: []order.OrderItemIngredient{
				{IngredientID: "ing-cheese", Name: "Cheese", Price: decimal.RequireFromString("1.00")},
			},
			Subtotal: decimal.RequireFromString("22.00"),
		}},
		Subtotal:      decimal.RequireFromString("22.00"),
		TaxAmount:     decimal.RequireFromString("1.76"),
		DeliveryFee:   decimal.RequireFromString("5.00"),
		TotalAmount:   decimal.RequireFromString("28.76"),
		CustomerName:  "Jane",
		CustomerEmail: "jane@example.com",
		CreatedAt:     time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
	}
}

func TestHandleEvent_OrderPlaced(t *testing.T) {
	mailer := &recordingMailer{}
	h := NewHandler(mailer, nil)

	event, err := order.NewEvent("order-1", order.EventOrderPlaced, order.NewOrderPlaced(placedOrder()))
	require.NoError(t, err)

	require.NoError(t, h.HandleEvent(context.Background(), event))

	require.Len(t, mailer.confirmations, 1)
	sent := mailer.confirmations[0]
	assert.Equal(t, "jane@example.com", sent.To)
	assert.Equal(t, "ORD-20240305-000001", sent.C.OrderNumber)
	require.Len(t, sent.C.Items, 1)
	assert.Equal(t, []string{"Cheese"}, sent.C.Items[0].Extras)
	assert.True(t, sent.C.Items[0].UnitPrice.Equal(decimal.RequireFromString("11.00")))
	assert.True(t, sent.C.TotalAmount.Equal(decimal.RequireFromString("28.76")))
}

func TestHandleEvent_StatusChanged(t *testing.T) {
	mailer := &recordingMailer{}
	h := NewHandler(mailer, nil)

	o := placedOrder()
	o.Status = order.StatusOutForDelivery
	event, err := order.NewEvent(o.ID, order.EventOrderStatusChanged, order.NewOrderStatusChanged(o))
	require.NoError(t, err)

	require.NoError(t, h.HandleEvent(context.Background(), event))

	require.Len(t, mailer.updates, 1)
	assert.Equal(t, "OUT_FOR_DELIVERY", mailer.updates[0].U.Status)
	assert.Equal(t, "PENDING", mailer.updates[0].U.PaymentStatus)
}

func TestHandleEvent_NoEmailSkips(t *testing.T) {
	mailer := &recordingMailer{}
	h := NewHandler(mailer, nil)

	o := placedOrder()
	o.CustomerEmail = ""
	placed, err := order.NewEvent(o.ID, order.EventOrderPlaced, order.NewOrderPlaced(o))
	require.NoError(t, err)
	changed, err := order.NewEvent(o.ID, order.EventOrderStatusChanged, order.NewOrderStatusChanged(o))
	require.NoError(t, err)

	require.NoError(t, h.HandleEvent(context.Background(), placed))
	require.NoError(t, h.HandleEvent(context.Background(), changed))

	assert.Empty(t, mailer.confirmations)
	assert.Empty(t, mailer.updates)
}

func TestHandleEvent_UnknownTypeIgnored(t *testing.T) {
	mailer := &recordingMailer{}
	h := NewHandler(mailer, nil)

	err := h.HandleEvent(context.Background(), &order.Event{EventType: "SomethingElse", Data: []byte(`{}`)})

	assert.NoError(t, err)
	assert.Empty(t, mailer.confirmations)
}

func TestHandleEvent_Errors(t *testing.T) {
	t.Run("malformed payload", func(t *testing.T) {
		h := NewHandler(&recordingMailer{}, nil)
		err := h.HandleEvent(context.Background(), &order.Event{
			EventType: order.EventOrderPlaced,
			Data:      []byte(`"not an object"`),
		})
		assert.Error(t, err)
	})

	t.Run("mailer failure surfaces", func(t *testing.T) {
		smtpErr := errors.New("smtp down")
		h := NewHandler(&recordingMailer{err: smtpErr}, nil)
		event, err := order.NewEvent("order-1", order.EventOrderPlaced, order.NewOrderPlaced(placedOrder()))
		require.NoError(t, err)

		assert.ErrorIs(t, h.HandleEvent(context.Background(), event), smtpErr)
	})
}
