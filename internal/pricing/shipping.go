package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
)

// ShippingCalculator applies the free-shipping threshold.
type ShippingCalculator struct {
	resolver *CurrencyResolver
}

func NewShippingCalculator(resolver *CurrencyResolver) *ShippingCalculator {
	if resolver == nil {
		resolver = NewCurrencyResolver(nil)
	}
	return &ShippingCalculator{resolver: resolver}
}

// Compute returns zero when subtotal reaches the currency's free threshold,
// otherwise the standard fee.
func (c *ShippingCalculator) Compute(subtotal decimal.Decimal, currency enums.Currency) decimal.Decimal {
	schedule := c.resolver.Schedule(currency)
	if subtotal.GreaterThanOrEqual(schedule.FreeThreshold) {
		return decimal.Zero
	}
	return schedule.StandardFee
}
