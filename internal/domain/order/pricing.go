package order

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	DefaultTaxRate     = decimal.RequireFromString("0.08")
	DefaultDeliveryFee = decimal.RequireFromString("5.00")
)

// Pricing holds the fee policy applied when an order is assembled.
type Pricing struct {
	TaxRate     decimal.Decimal
	DeliveryFee decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{TaxRate: DefaultTaxRate, DeliveryFee: DefaultDeliveryFee}
}

// FeeFor returns the delivery fee for an order type. Only DELIVERY pays it.
func (p Pricing) FeeFor(t Type) decimal.Decimal {
	if t == TypeDelivery {
		return p.DeliveryFee
	}
	return decimal.Zero
}

// Apply derives every monetary field of o from its items.
// Callers never supply these amounts directly.
func (p Pricing) Apply(o *Order) {
	subtotal := decimal.Zero
	for i := range o.Items {
		o.Items[i].Subtotal = o.Items[i].computeSubtotal()
		subtotal = subtotal.Add(o.Items[i].Subtotal)
	}

	o.Subtotal = subtotal
	o.TaxAmount = subtotal.Mul(p.TaxRate)
	o.DeliveryFee = p.FeeFor(o.OrderType)
	o.DiscountAmount = decimal.Zero
	o.TotalAmount = o.Subtotal.Add(o.TaxAmount).Add(o.DeliveryFee).Sub(o.DiscountAmount)
}

// VerifyTotals checks the monetary invariants of o. It does not re-check the
// tax rate because historical orders keep the rate they were priced with.
func (o *Order) VerifyTotals() error {
	sum := decimal.Zero
	for _, it := range o.Items {
		if want := it.computeSubtotal(); !it.Subtotal.Equal(want) {
			return fmt.Errorf("%w: item %s subtotal %s, want %s", ErrTotalsMismatch, it.MealID, it.Subtotal, want)
		}
		sum = sum.Add(it.Subtotal)
	}
	if !o.Subtotal.Equal(sum) {
		return fmt.Errorf("%w: subtotal %s, items sum to %s", ErrTotalsMismatch, o.Subtotal, sum)
	}

	want := o.Subtotal.Add(o.TaxAmount).Add(o.DeliveryFee).Sub(o.DiscountAmount)
	if !o.TotalAmount.Equal(want) {
		return fmt.Errorf("%w: total %s, want %s", ErrTotalsMismatch, o.TotalAmount, want)
	}
	return nil
}
