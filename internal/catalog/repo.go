// Package catalog is the read-only view of products, option tables and
// coupons that checkout validates against.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/csdakkoni/ecommerce-sub000/internal/pricing"
	"github.com/csdakkoni/ecommerce-sub000/pkg/db/models"
)

// Snapshot is the per-request catalog view. It is never mutated and holds no locks.
type Snapshot struct {
	Products map[uuid.UUID]*models.Product
	// Coupon is nil when no code was requested or the code is unknown.
	Coupon *models.Coupon
}

// Product returns the catalog row for id, if present.
func (s *Snapshot) Product(id uuid.UUID) (*models.Product, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.Products[id]
	return p, ok
}

// Repository reads catalog rows.
type Repository interface {
	Product(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Snapshot(ctx context.Context, productIDs []uuid.UUID, couponCode string) (*Snapshot, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) withOptions(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("OptionGroups", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("OptionGroups.Values", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") })
}

func (r *repository) Product(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.withOptions(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", pricing.ErrProductNotFound, id)
		}
		return nil, err
	}
	return &product, nil
}

// Snapshot loads every requested product in one query plus the coupon.
// Missing products are simply absent from the map.
func (r *repository) Snapshot(ctx context.Context, productIDs []uuid.UUID, couponCode string) (*Snapshot, error) {
	snapshot := &Snapshot{Products: make(map[uuid.UUID]*models.Product, len(productIDs))}

	ids := uniqueIDs(productIDs)
	if len(ids) > 0 {
		var products []models.Product
		if err := r.withOptions(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
			return nil, fmt.Errorf("load products: %w", err)
		}
		for i := range products {
			snapshot.Products[products[i].ID] = &products[i]
		}
	}

	code := NormalizeCouponCode(couponCode)
	if code == "" {
		return snapshot, nil
	}
	var coupon models.Coupon
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&coupon).Error
	switch {
	case err == nil:
		snapshot.Coupon = &coupon
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, fmt.Errorf("load coupon: %w", err)
	}
	return snapshot, nil
}

// NormalizeCouponCode upper-cases and trims a client-supplied code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
