package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
	"github.com/csdakkoni/ecommerce-sub000/pkg/types"
)

// OrderItem is a point-in-time price snapshot; it is never recomputed from
// the live catalog after creation.
type OrderItem struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID             `gorm:"column:order_id;type:uuid;not null"`
	ProductID       uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	ProductName     string                `gorm:"column:product_name;not null"`
	Category        string                `gorm:"column:category;not null"`
	SubCategory     string                `gorm:"column:sub_category;not null"`
	UnitType        enums.UnitType        `gorm:"column:unit_type;not null"`
	Quantity        decimal.Decimal       `gorm:"column:quantity;type:numeric(12,3);not null"`
	UnitPrice       decimal.Decimal       `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal       decimal.Decimal       `gorm:"column:line_total;type:numeric(12,2);not null"`
	SelectedOptions types.SelectedOptions `gorm:"column:selected_options;type:jsonb"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (OrderItem) TableName() string { return "order_items" }
