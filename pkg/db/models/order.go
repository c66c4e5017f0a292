package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
	"github.com/csdakkoni/ecommerce-sub000/pkg/types"
)

// Order is the persisted checkout header. Totals satisfy
// Total = Subtotal - Discount + ShippingCost.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Status          enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	Currency        enums.Currency    `gorm:"column:currency;not null"`
	Locale          string            `gorm:"column:locale;not null"`
	Subtotal        decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingCost    decimal.Decimal   `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	Discount        decimal.Decimal   `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	Total           decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	CouponCode      *string           `gorm:"column:coupon_code"`
	ConversationID  string            `gorm:"column:conversation_id;not null;uniqueIndex"`
	IdempotencyKey  *string           `gorm:"column:idempotency_key"`
	CustomerEmail   string            `gorm:"column:customer_email;not null"`
	CustomerName    string            `gorm:"column:customer_name;not null"`
	CustomerPhone   string            `gorm:"column:customer_phone;not null"`
	UserID          *string           `gorm:"column:user_id"`
	ShippingAddress types.Address     `gorm:"column:shipping_address;type:jsonb;not null"`
	BillingAddress  types.Address     `gorm:"column:billing_address;type:jsonb;not null"`
	PaymentProvider *string           `gorm:"column:payment_provider"`
	PaymentToken    *string           `gorm:"column:payment_token"`
	PaymentPageURL  *string           `gorm:"column:payment_page_url"`
	PaidAt          *time.Time        `gorm:"column:paid_at"`
	// ReconcileCheckedAt is when the reconcile loop last asked the gateway
	// about this order and found it unpaid.
	ReconcileCheckedAt *time.Time  `gorm:"column:reconcile_checked_at"`
	Items              []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }
