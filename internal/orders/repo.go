package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/csdakkoni/ecommerce-sub000/pkg/db/models"
	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
)

// ErrOrderNotFound is returned when no order matches the lookup.
var ErrOrderNotFound = errors.New("order not found")

// ErrStatusConflict is returned when a conditional status update matched no row.
var ErrStatusConflict = errors.New("order status does not allow this transition")

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// DeleteOrder removes the items before the header so none are orphaned.
func (r *repository) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	if err := db.Where("id = ?", orderID).Delete(&models.Order{}).Error; err != nil {
		return fmt.Errorf("delete order header: %w", err)
	}
	return nil
}

func (r *repository) findOne(ctx context.Context, query string, arg any) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where(query, arg).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, "id = ?", orderID)
}

func (r *repository) FindOrderByConversationID(ctx context.Context, conversationID string) (*models.Order, error) {
	return r.findOne(ctx, "conversation_id = ?", conversationID)
}

func (r *repository) FindOrderByPaymentToken(ctx context.Context, token string) (*models.Order, error) {
	return r.findOne(ctx, "payment_token = ?", token)
}

// AttachPaymentSession stores the hosted session and advances the order to
// pending_payment. Orders that already reached a terminal state are untouched.
func (r *repository) AttachPaymentSession(ctx context.Context, orderID uuid.UUID, session PaymentSession) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", orderID, []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusPendingPayment}).
		Updates(map[string]any{
			"status":           enums.OrderStatusPendingPayment,
			"payment_provider": session.Provider,
			"payment_token":    session.Token,
			"payment_page_url": session.PageURL,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

// MarkPaid moves a pending_payment order to paid. It reports false when the
// order was already paid or is in another state.
func (r *repository) MarkPaid(ctx context.Context, orderID uuid.UUID, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPendingPayment).
		Updates(map[string]any{
			"status":     enums.OrderStatusPaid,
			"paid_at":    paidAt.UTC(),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteAbandonedBefore reclaims pending headers older than cutoff that never
// received items.
func (r *repository) DeleteAbandonedBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff.UTC()).
		Where("NOT EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id)").
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("find abandoned orders: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	err := r.db.WithContext(ctx).
		Where("id IN ? AND status = ?", ids, enums.OrderStatusPending).
		Where("NOT EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id)").
		Delete(&models.Order{}).Error
	if err != nil {
		return nil, fmt.Errorf("delete abandoned orders: %w", err)
	}
	return ids, nil
}

// ListAwaitingPayment returns pending_payment orders whose session was last
// touched inside (updatedAfter, updatedBefore). Orders never checked come
// first, then the ones checked longest ago, so a full batch of unpaid orders
// cannot hide the rest of the window.
func (r *repository) ListAwaitingPayment(ctx context.Context, updatedBefore, updatedAfter time.Time, limit int) ([]models.Order, error) {
	var out []models.Order
	query := r.db.WithContext(ctx).
		Where("status = ? AND payment_token IS NOT NULL", enums.OrderStatusPendingPayment).
		Where("updated_at < ? AND updated_at > ?", updatedBefore.UTC(), updatedAfter.UTC()).
		Order("reconcile_checked_at IS NOT NULL").
		Order("reconcile_checked_at ASC").
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list orders awaiting payment: %w", err)
	}
	return out, nil
}

// MarkReconcileChecked stamps orders still awaiting payment as checked.
// updated_at is left alone since it bounds the reconcile window.
func (r *repository) MarkReconcileChecked(ctx context.Context, orderIDs []uuid.UUID, checkedAt time.Time) error {
	if len(orderIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id IN ? AND status = ?", orderIDs, enums.OrderStatusPendingPayment).
		UpdateColumn("reconcile_checked_at", checkedAt.UTC()).Error
	if err != nil {
		return fmt.Errorf("mark reconcile checked: %w", err)
	}
	return nil
}
