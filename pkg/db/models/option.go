package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
)

// OptionGroup is a single-select variant group belonging to one product.
type OptionGroup struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	Name      string                `gorm:"column:name;not null"`
	Type      enums.OptionGroupType `gorm:"column:type;not null;default:'list'"`
	SortOrder int                   `gorm:"column:sort_order;not null;default:0"`
	Values    []OptionValue         `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

func (OptionGroup) TableName() string { return "product_option_groups" }

// OptionValue carries one additive and one percentage price modifier.
// The additive modifier is stored per currency.
type OptionValue struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID              uuid.UUID       `gorm:"column:group_id;type:uuid;not null"`
	Label                string          `gorm:"column:label;not null"`
	PriceModifier        decimal.Decimal `gorm:"column:price_modifier;type:numeric(12,2);not null;default:0"`
	PriceModifierEUR     decimal.Decimal `gorm:"column:price_modifier_eur;type:numeric(12,2);not null;default:0"`
	PriceModifierPercent decimal.Decimal `gorm:"column:price_modifier_percent;type:numeric(6,2);not null;default:0"`
	IsAvailable          bool            `gorm:"column:is_available;not null"`
	IsDefault            bool            `gorm:"column:is_default;not null;default:false"`
	SortOrder            int             `gorm:"column:sort_order;not null;default:0"`
}

func (OptionValue) TableName() string { return "product_option_values" }

// FixedModifier returns the additive modifier in the given currency.
func (v OptionValue) FixedModifier(currency enums.Currency) decimal.Decimal {
	if currency == enums.CurrencyEUR {
		return v.PriceModifierEUR
	}
	return v.PriceModifier
}
