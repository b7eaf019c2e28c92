package email

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"
)

type OrderItem struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
	Extras    []string
}

// Confirmation is everything the order confirmation mail shows
type Confirmation struct {
	OrderNumber  string
	CustomerName string
	Items        []OrderItem
	Subtotal     decimal.Decimal
	TaxAmount    decimal.Decimal
	DeliveryFee  decimal.Decimal
	TotalAmount  decimal.Decimal
}

type StatusUpdate struct {
	OrderNumber   string
	CustomerName  string
	Status        string
	PaymentStatus string
}

var statusLabels = map[string]string{
	"PENDING":          "Received",
	"CONFIRMED":        "Confirmed",
	"PREPARING":        "Being prepared",
	"READY":            "Ready",
	"OUT_FOR_DELIVERY": "Out for delivery",
	"DELIVERED":        "Delivered",
	"CANCELLED":        "Cancelled",
}

// StatusLabel returns the customer facing label of an order status
func StatusLabel(status string) string {
	if l, ok := statusLabels[status]; ok {
		return l
	}
	return status
}

// BuildOrderConfirmationBody builds the HTML body for order confirmation email
func BuildOrderConfirmationBody(c Confirmation) string {
	var itemsHTML strings.Builder
	for _, item := range c.Items {
		name := html.EscapeString(item.Name)
		if len(item.Extras) > 0 {
			name += `<br><span style="font-size: 12px; color: #666;">+ ` +
				html.EscapeString(strings.Join(item.Extras, ", ")) + `</span>`
		}
		itemsHTML.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
			</tr>`,
			name,
			item.Quantity,
			FormatMoney(item.UnitPrice),
			FormatMoney(item.Subtotal),
		))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #f6a04d 0%%, #e4572e 100%%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">Thank you for your order</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">Hi %s, we have received your order and will let you know as it progresses.</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Order number</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left; font-weight: 600;">Item</th>
					<th style="padding: 12px; text-align: center; font-weight: 600;">Qty</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Unit price</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Subtotal</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
		</table>

		<table style="width: 100%%; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<tr><td>Subtotal</td><td style="text-align: right;">%s</td></tr>
			<tr><td>Tax</td><td style="text-align: right;">%s</td></tr>
			<tr><td>Delivery fee</td><td style="text-align: right;">%s</td></tr>
			<tr><td style="font-weight: bold;">Total</td><td style="text-align: right; font-size: 20px; font-weight: bold; color: #e4572e;">%s</td></tr>
		</table>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This is an automated message. Please contact the restaurant if you have any questions.
		</p>
	</div>
</body>
</html>`,
		html.EscapeString(c.CustomerName),
		html.EscapeString(c.OrderNumber),
		itemsHTML.String(),
		FormatMoney(c.Subtotal),
		FormatMoney(c.TaxAmount),
		FormatMoney(c.DeliveryFee),
		FormatMoney(c.TotalAmount),
	)
}

func BuildStatusUpdateBody(u StatusUpdate) string {
	payment := ""
	if u.PaymentStatus != "" {
		payment = fmt.Sprintf(`<p style="font-size: 14px; color: #666;">Payment: %s</p>`, html.EscapeString(u.PaymentStatus))
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<p>Hi %s,</p>
	<p>Your order <strong style="font-family: monospace;">%s</strong> is now: <strong>%s</strong></p>
	%s
	<p style="font-size: 12px; color: #999;">This is an automated message.</p>
</body>
</html>`,
		html.EscapeString(u.CustomerName),
		html.EscapeString(u.OrderNumber),
		html.EscapeString(StatusLabel(u.Status)),
		payment,
	)
}

// FormatMoney renders an amount with two decimals and comma separators
func FormatMoney(d decimal.Decimal) string {
	str := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(str, "-") {
		sign, str = "-", str[1:]
	}
	intPart, frac, _ := strings.Cut(str, ".")
	return sign + groupThousands(intPart) + "." + frac
}

func groupThousands(str string) string {
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	remainder := len(str) % 3
	if remainder > 0 {
		result.WriteString(str[:remainder])
		result.WriteString(",")
	}

	for i := remainder; i < len(str); i += 3 {
		result.WriteString(str[i : i+3])
		if i+3 < len(str) {
			result.WriteString(",")
		}
	}

	return result.String()
}
