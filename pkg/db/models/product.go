package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
)

// Product is the authoritative catalog row. Prices here always win over
// anything a client claims.
type Product struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string           `gorm:"column:name;not null"`
	IsActive     bool             `gorm:"column:is_active;not null"`
	UnitType     enums.UnitType   `gorm:"column:unit_type;not null;default:'piece'"`
	MinOrderQty  decimal.Decimal  `gorm:"column:min_order_qty;type:numeric(12,3);not null;default:1"`
	StepQty      decimal.Decimal  `gorm:"column:step_qty;type:numeric(12,3);not null;default:1"`
	PriceTRY     decimal.Decimal  `gorm:"column:price_try;type:numeric(12,2);not null"`
	PriceEUR     decimal.Decimal  `gorm:"column:price_eur;type:numeric(12,2);not null"`
	SalePriceTRY *decimal.Decimal `gorm:"column:sale_price_try;type:numeric(12,2)"`
	SalePriceEUR *decimal.Decimal `gorm:"column:sale_price_eur;type:numeric(12,2)"`
	Categories   pq.StringArray   `gorm:"column:categories;type:text[];default:ARRAY[]::text[]"`
	OptionGroups []OptionGroup    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }

// BasePrice returns the list price for the currency, before any sale.
func (p Product) BasePrice(currency enums.Currency) decimal.Decimal {
	if currency == enums.CurrencyEUR {
		return p.PriceEUR
	}
	return p.PriceTRY
}

// EffectivePrice returns the sale price when one is set and positive,
// otherwise the list price.
func (p Product) EffectivePrice(currency enums.Currency) decimal.Decimal {
	sale := p.SalePriceTRY
	if currency == enums.CurrencyEUR {
		sale = p.SalePriceEUR
	}
	if sale != nil && sale.IsPositive() {
		return *sale
	}
	return p.BasePrice(currency)
}

// Category returns the nth category or the fallback when absent.
func (p Product) Category(n int, fallback string) string {
	if n >= 0 && n < len(p.Categories) && p.Categories[n] != "" {
		return p.Categories[n]
	}
	return fallback
}
