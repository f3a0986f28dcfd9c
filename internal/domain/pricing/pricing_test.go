package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCompute(t *testing.T) {
	twoLines := []LineItem{
		{UnitPrice: d("5000"), Quantity: 2},
		{UnitPrice: d("3000"), Quantity: 1},
	}

	tests := []struct {
		name         string
		lines        []LineItem
		homeDelivery bool
		discount     *Discount
		wantSubtotal string
		wantDiscount string
		wantShipping string
		wantTotal    string
	}{
		{
			name:         "empty cart",
			lines:        nil,
			wantSubtotal: "0",
			wantDiscount: "0",
			wantShipping: "0",
			wantTotal:    "0",
		},
		{
			name:         "two lines home delivery above free shipping threshold",
			lines:        twoLines,
			homeDelivery: true,
			wantSubtotal: "13000",
			wantDiscount: "0",
			wantShipping: "0",
			wantTotal:    "13000",
		},
		{
			name:         "ten percent coupon",
			lines:        twoLines,
			homeDelivery: true,
			discount:     &Discount{Kind: DiscountPercentage, Value: d("10")},
			wantSubtotal: "13000",
			wantDiscount: "1300",
			wantShipping: "0",
			wantTotal:    "11700",
		},
		{
			name:         "small order pays flat shipping fee",
			lines:        []LineItem{{UnitPrice: d("2500"), Quantity: 1}},
			homeDelivery: true,
			wantSubtotal: "2500",
			wantShipping: "1500",
			wantDiscount: "0",
			wantTotal:    "4000",
		},
		{
			name:         "subtotal exactly at threshold still pays shipping",
			lines:        []LineItem{{UnitPrice: d("10000"), Quantity: 1}},
			homeDelivery: true,
			wantSubtotal: "10000",
			wantShipping: "1500",
			wantDiscount: "0",
			wantTotal:    "11500",
		},
		{
			name:         "pickup never pays shipping",
			lines:        []LineItem{{UnitPrice: d("2500"), Quantity: 1}},
			homeDelivery: false,
			wantSubtotal: "2500",
			wantShipping: "0",
			wantDiscount: "0",
			wantTotal:    "2500",
		},
		{
			name:         "fixed discount",
			lines:        twoLines,
			discount:     &Discount{Kind: DiscountFixed, Value: d("2000")},
			wantSubtotal: "13000",
			wantDiscount: "2000",
			wantShipping: "0",
			wantTotal:    "11000",
		},
		{
			name:         "fixed discount clamped to subtotal",
			lines:        []LineItem{{UnitPrice: d("1000"), Quantity: 1}},
			discount:     &Discount{Kind: DiscountFixed, Value: d("5000")},
			wantSubtotal: "1000",
			wantDiscount: "1000",
			wantShipping: "0",
			wantTotal:    "0",
		},
		{
			name:         "negative discount value treated as zero",
			lines:        []LineItem{{UnitPrice: d("1000"), Quantity: 1}},
			discount:     &Discount{Kind: DiscountFixed, Value: d("-50")},
			wantSubtotal: "1000",
			wantDiscount: "0",
			wantShipping: "0",
			wantTotal:    "1000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Compute(tt.lines, tt.homeDelivery, tt.discount)

			assert.True(t, d(tt.wantSubtotal).Equal(q.Subtotal), "subtotal: want %s, got %s", tt.wantSubtotal, q.Subtotal)
			assert.True(t, d(tt.wantDiscount).Equal(q.Discount), "discount: want %s, got %s", tt.wantDiscount, q.Discount)
			assert.True(t, d(tt.wantShipping).Equal(q.ShippingCost), "shipping: want %s, got %s", tt.wantShipping, q.ShippingCost)
			assert.True(t, d(tt.wantTotal).Equal(q.Total), "total: want %s, got %s", tt.wantTotal, q.Total)
		})
	}
}

func TestComputeInvariants(t *testing.T) {
	lines := []LineItem{
		{UnitPrice: d("4500"), Quantity: 3},
		{UnitPrice: d("1200"), Quantity: 2},
	}
	discounts := []*Discount{
		nil,
		{Kind: DiscountPercentage, Value: d("15")},
		{Kind: DiscountFixed, Value: d("99999")},
	}

	for _, disc := range discounts {
		for _, home := range []bool{true, false} {
			q := Compute(lines, home, disc)

			require.False(t, q.Total.IsNegative())
			require.False(t, q.Discount.IsNegative())
			require.True(t, q.Discount.LessThanOrEqual(q.Subtotal))
			assert.True(t, q.Total.Equal(q.Subtotal.Sub(q.Discount).Add(q.ShippingCost)),
				"total must equal subtotal - discount + shipping")
		}
	}
}
