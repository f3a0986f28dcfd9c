// Package pricing computes cart totals. It is pure: callers pass the line
// items and applied discount terms, and persist the resulting quote.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Business constants for home delivery. Orders above the threshold ship free.
var (
	FlatShippingFee       = decimal.NewFromInt(1500)
	FreeShippingThreshold = decimal.NewFromInt(10000)
)

var hundred = decimal.NewFromInt(100)

// DiscountKind enumerates the supported coupon discount strategies.
type DiscountKind string

const (
	// DiscountPercentage applies a percentage-based discount to the subtotal.
	DiscountPercentage DiscountKind = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountKind = "fixed"
)

// Discount holds the terms of an applied coupon.
type Discount struct {
	Kind  DiscountKind
	Value decimal.Decimal
}

// LineItem is a priced cart line for quote calculation purposes.
type LineItem struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Quote is the result of a pricing pass over a cart.
type Quote struct {
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	ShippingCost decimal.Decimal
	Total        decimal.Decimal
}

// Compute recalculates subtotal, discount, shipping, and total.
// The discount is clamped to the subtotal and the total never goes negative.
// Shipping applies only to home delivery and is waived above the threshold.
func Compute(lines []LineItem, homeDelivery bool, d *Discount) Quote {
	subtotal := decimal.Zero
	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		subtotal = subtotal.Add(line.UnitPrice.Mul(qty))
	}

	discount := decimal.Zero
	if d != nil {
		switch d.Kind {
		case DiscountPercentage:
			discount = subtotal.Mul(d.Value).Div(hundred)
		case DiscountFixed:
			discount = d.Value
		}
		discount = decimal.Min(discount, subtotal)
		if discount.IsNegative() {
			discount = decimal.Zero
		}
		discount = discount.Round(2)
	}

	shipping := decimal.Zero
	if homeDelivery && subtotal.IsPositive() && !subtotal.GreaterThan(FreeShippingThreshold) {
		shipping = FlatShippingFee
	}

	total := subtotal.Sub(discount).Add(shipping)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Quote{
		Subtotal:     subtotal.Round(2),
		Discount:     discount,
		ShippingCost: shipping,
		Total:        total.Round(2),
	}
}
