// Package dbtest opens throwaway SQLite databases carrying the storefront
// schema for repository tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/csdakkoni/ecommerce-sub000/pkg/db/models"
	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  unit_type TEXT NOT NULL DEFAULT 'piece',
  min_order_qty TEXT NOT NULL DEFAULT '1',
  step_qty TEXT NOT NULL DEFAULT '1',
  price_try TEXT NOT NULL,
  price_eur TEXT NOT NULL,
  sale_price_try TEXT,
  sale_price_eur TEXT,
  categories TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS product_option_groups (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  type TEXT NOT NULL DEFAULT 'list',
  sort_order INTEGER NOT NULL DEFAULT 0
);`, `
CREATE TABLE IF NOT EXISTS product_option_values (
  id TEXT PRIMARY KEY,
  group_id TEXT NOT NULL REFERENCES product_option_groups(id) ON DELETE CASCADE,
  label TEXT NOT NULL,
  price_modifier TEXT NOT NULL DEFAULT '0',
  price_modifier_eur TEXT NOT NULL DEFAULT '0',
  price_modifier_percent TEXT NOT NULL DEFAULT '0',
  is_available INTEGER NOT NULL DEFAULT 1,
  is_default INTEGER NOT NULL DEFAULT 0,
  sort_order INTEGER NOT NULL DEFAULT 0
);`, `
CREATE TABLE IF NOT EXISTS coupons (
  code TEXT PRIMARY KEY,
  is_active INTEGER NOT NULL DEFAULT 1,
  discount_try TEXT NOT NULL DEFAULT '0',
  discount_eur TEXT NOT NULL DEFAULT '0',
  expires_at DATETIME,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  status TEXT NOT NULL DEFAULT 'pending',
  currency TEXT NOT NULL,
  locale TEXT NOT NULL,
  subtotal TEXT NOT NULL,
  shipping_cost TEXT NOT NULL,
  discount TEXT NOT NULL DEFAULT '0',
  total TEXT NOT NULL,
  coupon_code TEXT,
  conversation_id TEXT NOT NULL UNIQUE,
  idempotency_key TEXT,
  customer_email TEXT NOT NULL,
  customer_name TEXT NOT NULL,
  customer_phone TEXT NOT NULL,
  user_id TEXT,
  shipping_address TEXT NOT NULL,
  billing_address TEXT NOT NULL,
  payment_provider TEXT,
  payment_token TEXT,
  payment_page_url TEXT,
  paid_at DATETIME,
  reconcile_checked_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  category TEXT NOT NULL,
  sub_category TEXT NOT NULL,
  unit_type TEXT NOT NULL,
  quantity TEXT NOT NULL,
  unit_price TEXT NOT NULL,
  line_total TEXT NOT NULL,
  selected_options TEXT,
  created_at DATETIME
);`}

// Open returns a private in-memory database with the storefront schema.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_foreign_keys=on", name, uuid.NewString()[:8])
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// ProductSpec describes a product fixture; zero values get sensible defaults.
type ProductSpec struct {
	Name     string
	Inactive bool
	UnitType enums.UnitType
	MinQty   string
	StepQty  string
	PriceTRY string
	PriceEUR string
	SaleTRY  string
	Groups   []models.OptionGroup
}

// CreateProduct inserts a product and its option tables.
func CreateProduct(t *testing.T, db *gorm.DB, spec ProductSpec) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:           uuid.New(),
		Name:         orDefault(spec.Name, "Cotton Towel"),
		IsActive:     !spec.Inactive,
		UnitType:     spec.UnitType,
		MinOrderQty:  decimal.RequireFromString(orDefault(spec.MinQty, "1")),
		StepQty:      decimal.RequireFromString(orDefault(spec.StepQty, "1")),
		PriceTRY:     decimal.RequireFromString(orDefault(spec.PriceTRY, "500")),
		PriceEUR:     decimal.RequireFromString(orDefault(spec.PriceEUR, "50")),
		Categories:   []string{"Home Textile", "Bath"},
		OptionGroups: spec.Groups,
	}
	if product.UnitType == "" {
		product.UnitType = enums.UnitPiece
	}
	if spec.SaleTRY != "" {
		sale := decimal.RequireFromString(spec.SaleTRY)
		product.SalePriceTRY = &sale
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
