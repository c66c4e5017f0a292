package orders

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/csdakkoni/ecommerce-sub000/pkg/db/models"
)

// PaymentSession is what a gateway returns for a hosted checkout.
type PaymentSession struct {
	Provider string
	Token    string
	PageURL  string
}

// Repository defines row-level persistence for orders and their items.
// The order header and its items are written by separate calls; callers
// must not assume the two are atomic.
type Repository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderByConversationID(ctx context.Context, conversationID string) (*models.Order, error)
	FindOrderByPaymentToken(ctx context.Context, token string) (*models.Order, error)
	AttachPaymentSession(ctx context.Context, orderID uuid.UUID, session PaymentSession) error
	MarkPaid(ctx context.Context, orderID uuid.UUID, paidAt time.Time) (bool, error)
	DeleteAbandonedBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
	ListAwaitingPayment(ctx context.Context, updatedBefore, updatedAfter time.Time, limit int) ([]models.Order, error)
	MarkReconcileChecked(ctx context.Context, orderIDs []uuid.UUID, checkedAt time.Time) error
}
