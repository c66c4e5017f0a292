package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
)

// Totals is the order-level money summary.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Totals sums already-rounded line totals, clamps the discount to the
// subtotal and applies shipping on the pre-discount subtotal.
func (c *ShippingCalculator) Totals(lineTotals []decimal.Decimal, discount decimal.Decimal, currency enums.Currency) Totals {
	subtotal := decimal.Zero
	for _, line := range lineTotals {
		subtotal = subtotal.Add(line)
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	shipping := c.Compute(subtotal, currency)
	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Total:    subtotal.Sub(discount).Add(shipping),
	}
}
