package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
)

// Coupon grants a single additive discount per currency.
type Coupon struct {
	Code        string          `gorm:"column:code;primaryKey"`
	IsActive    bool            `gorm:"column:is_active;not null"`
	DiscountTRY decimal.Decimal `gorm:"column:discount_try;type:numeric(12,2);not null;default:0"`
	DiscountEUR decimal.Decimal `gorm:"column:discount_eur;type:numeric(12,2);not null;default:0"`
	ExpiresAt   *time.Time      `gorm:"column:expires_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Coupon) TableName() string { return "coupons" }

func (c Coupon) Discount(currency enums.Currency) decimal.Decimal {
	if currency == enums.CurrencyEUR {
		return c.DiscountEUR
	}
	return c.DiscountTRY
}

// Usable reports whether the coupon is active and unexpired at now.
func (c Coupon) Usable(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	return c.ExpiresAt == nil || now.Before(*c.ExpiresAt)
}
