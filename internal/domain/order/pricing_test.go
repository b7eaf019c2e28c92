package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, money(want).Equal(got), "expected %s, got %s", want, got)
}

func pricedOrder(orderType Type, items ...OrderItem) *Order {
	o := &Order{OrderType: orderType, Items: items}
	DefaultPricing().Apply(o)
	return o
}

// ============================================
// Pricing Tests
// ============================================

func TestPricing_Apply_DeliveryOrder(t *testing.T) {
	o := pricedOrder(TypeDelivery, OrderItem{MealID: "meal-1", MealPrice: money("10.00"), Quantity: 2})

	assertMoney(t, "20.00", o.Subtotal)
	assertMoney(t, "1.60", o.TaxAmount)
	assertMoney(t, "5.00", o.DeliveryFee)
	assertMoney(t, "0", o.DiscountAmount)
	assertMoney(t, "26.60", o.TotalAmount)
}

func TestPricing_Apply_DineInHasNoDeliveryFee(t *testing.T) {
	o := &Order{
		OrderType:       TypeDineIn,
		DeliveryAddress: "12 Harbour Road",
		Items:           []OrderItem{{MealID: "meal-1", MealPrice: money("20.00"), Quantity: 1}},
	}
	DefaultPricing().Apply(o)

	assert.True(t, o.DeliveryFee.IsZero())
	assertMoney(t, "21.60", o.TotalAmount)
}

func TestPricing_Apply_TakeAwayHasNoDeliveryFee(t *testing.T) {
	o := pricedOrder(TypeTakeAway, OrderItem{MealID: "meal-1", MealPrice: money("7.50"), Quantity: 1})

	assert.True(t, o.DeliveryFee.IsZero())
}

func TestPricing_Apply_ItemSubtotalIncludesExtras(t *testing.T) {
	o := pricedOrder(TypeDineIn, OrderItem{
		MealID:    "meal-1",
		MealPrice: money("8.25"),
		Quantity:  3,
		SelectedIngredients: []OrderItemIngredient{
			{IngredientID: "ing-1", Price: money("0.50")},
			{IngredientID: "ing-2", Price: money("1.25")},
		},
	})

	// (8.25 + 0.50 + 1.25) * 3
	assertMoney(t, "30.00", o.Items[0].Subtotal)
	assertMoney(t, "30.00", o.Subtotal)
	assertMoney(t, "2.40", o.TaxAmount)
}

func TestPricing_Apply_TaxIsNotRounded(t *testing.T) {
	o := pricedOrder(TypeDineIn, OrderItem{MealID: "meal-1", MealPrice: money("0.99"), Quantity: 1})

	assertMoney(t, "0.0792", o.TaxAmount)
	assertMoney(t, "1.0692", o.TotalAmount)
}

func TestPricing_Apply_CustomPolicy(t *testing.T) {
	p := Pricing{TaxRate: money("0.16"), DeliveryFee: money("3.00")}
	o := &Order{OrderType: TypeDelivery, Items: []OrderItem{{MealPrice: money("10"), Quantity: 1}}}

	p.Apply(o)

	assertMoney(t, "1.60", o.TaxAmount)
	assertMoney(t, "14.60", o.TotalAmount)
}

// ============================================
// VerifyTotals Tests
// ============================================

func TestOrder_VerifyTotals_Consistent(t *testing.T) {
	o := pricedOrder(TypeDelivery,
		OrderItem{MealID: "meal-1", MealPrice: money("12.00"), Quantity: 1},
		OrderItem{MealID: "meal-2", MealPrice: money("4.40"), Quantity: 2},
	)

	require.NoError(t, o.VerifyTotals())
}

func TestOrder_VerifyTotals_TamperedTotal(t *testing.T) {
	o := pricedOrder(TypeDelivery, OrderItem{MealID: "meal-1", MealPrice: money("12.00"), Quantity: 1})
	o.TotalAmount = o.TotalAmount.Add(money("0.01"))

	assert.ErrorIs(t, o.VerifyTotals(), ErrTotalsMismatch)
}

func TestOrder_VerifyTotals_TamperedItemSubtotal(t *testing.T) {
	o := pricedOrder(TypeDineIn, OrderItem{MealID: "meal-1", MealPrice: money("12.00"), Quantity: 2})
	o.Items[0].Subtotal = money("12.00")

	assert.ErrorIs(t, o.VerifyTotals(), ErrTotalsMismatch)
}

func TestOrder_VerifyTotals_SubtotalDoesNotMatchItems(t *testing.T) {
	o := pricedOrder(TypeDineIn, OrderItem{MealID: "meal-1", MealPrice: money("12.00"), Quantity: 1})
	o.Subtotal = money("11.00")

	assert.ErrorIs(t, o.VerifyTotals(), ErrTotalsMismatch)
}

func TestVerifyAssembled_TotalsMismatchIsAssemblyError(t *testing.T) {
	o := pricedOrder(TypeDelivery, OrderItem{MealID: "meal-1", MealPrice: money("12.00"), Quantity: 1})
	o.TaxAmount = money("0")

	err := verifyAssembled(o)

	var ae *AssemblyError
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, ae.Reason, ErrTotalsMismatch)
	assert.False(t, ae.Retryable())
	assert.ErrorIs(t, err, ErrTotalsMismatch)
}

func TestVerifyAssembled_Consistent(t *testing.T) {
	o := pricedOrder(TypeTakeAway, OrderItem{MealID: "meal-1", MealPrice: money("12.00"), Quantity: 3})

	assert.NoError(t, verifyAssembled(o))
}
