package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/csdakkoni/ecommerce-sub000/internal/cart"
	"github.com/csdakkoni/ecommerce-sub000/internal/pricing"
	"github.com/csdakkoni/ecommerce-sub000/pkg/db"
	"github.com/csdakkoni/ecommerce-sub000/pkg/db/models"
	"github.com/csdakkoni/ecommerce-sub000/pkg/enums"
	pkgerrors "github.com/csdakkoni/ecommerce-sub000/pkg/errors"
	"github.com/csdakkoni/ecommerce-sub000/pkg/logger"
	"github.com/csdakkoni/ecommerce-sub000/pkg/types"
)

// WriteState is a step of the two-phase order write.
type WriteState string

const (
	StateNew            WriteState = "new"
	StateHeaderCreated  WriteState = "created-header"
	StateItemsCommitted WriteState = "items-committed"
	StateRolledBack     WriteState = "rolled-back"
	// StateOrphaned means the compensating delete failed and the header
	// survives without items until the abandoned-order job reclaims it.
	StateOrphaned WriteState = "orphaned"
	StateFailed   WriteState = "failed"
)

// TransitionObserver is notified on every write state change.
type TransitionObserver interface {
	ObserveTransition(from, to WriteState)
}

type TransitionObserverFunc func(from, to WriteState)

func (f TransitionObserverFunc) ObserveTransition(from, to WriteState) { f(from, to) }

// Header is everything the order row needs besides its items.
type Header struct {
	Currency        enums.Currency
	Locale          string
	Totals          pricing.Totals
	CouponCode      *string
	ConversationID  string
	IdempotencyKey  *string
	CustomerEmail   string
	CustomerName    string
	CustomerPhone   string
	UserID          *string
	ShippingAddress types.Address
	BillingAddress  types.Address
}

// Writer persists an order header and then its items, deleting the header
// again if the items cannot be written.
type Writer struct {
	repo     Repository
	logg     *logger.Logger
	observer TransitionObserver
	newID    func() uuid.UUID
	now      func() time.Time
}

func NewWriter(repo Repository, logg *logger.Logger, observer TransitionObserver) (*Writer, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Writer{
		repo:     repo,
		logg:     logg,
		observer: observer,
		newID:    uuid.New,
		now:      time.Now,
	}, nil
}

type orderWrite struct {
	state WriteState
	order *models.Order
	items []models.OrderItem
}

func (w *Writer) advance(ctx context.Context, op *orderWrite, to WriteState) {
	from := op.state
	op.state = to
	if w.observer != nil {
		w.observer.ObserveTransition(from, to)
	}
	w.logg.Debug(w.logg.WithFields(ctx, map[string]any{"from": string(from), "to": string(to)}), "order write transition")
}

// CreateOrder runs new -> created-header -> items-committed. A failed item
// insert moves to rolled-back (or orphaned if the delete fails too) and the
// item error is returned either way.
func (w *Writer) CreateOrder(ctx context.Context, header Header, lines []cart.ValidatedLine) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeCartRejected, "cart is empty")
	}
	if want := header.Totals.Subtotal.Sub(header.Totals.Discount).Add(header.Totals.Shipping); !want.Equal(header.Totals.Total) {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order totals are inconsistent")
	}

	op := &orderWrite{state: StateNew, order: w.buildOrder(header)}
	ctx = w.logg.WithOrderID(ctx, op.order.ID.String())

	if err := w.repo.CreateOrder(ctx, op.order); err != nil {
		w.advance(ctx, op, StateFailed)
		if db.IsUniqueViolation(err, "conversation_id") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "an order with this conversation id already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeLedgerWrite, err, "order could not be created")
	}
	w.advance(ctx, op, StateHeaderCreated)

	op.items = w.buildItems(op.order.ID, lines)
	if err := w.repo.CreateOrderItems(ctx, op.items); err != nil {
		w.compensate(ctx, op, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeLedgerWrite, err, "order items could not be created")
	}
	w.advance(ctx, op, StateItemsCommitted)

	op.order.Items = op.items
	return op.order, nil
}

func (w *Writer) compensate(ctx context.Context, op *orderWrite, cause error) {
	// The caller's context may already be cancelled; the delete must still run.
	cleanupCtx := context.WithoutCancel(ctx)
	if err := w.repo.DeleteOrder(cleanupCtx, op.order.ID); err != nil {
		w.advance(ctx, op, StateOrphaned)
		w.logg.Error(ctx, "compensating order delete failed", multierr.Combine(cause, err))
		return
	}
	w.advance(ctx, op, StateRolledBack)
	w.logg.Warn(ctx, "order header rolled back after item insert failure")
}

func (w *Writer) buildOrder(header Header) *models.Order {
	return &models.Order{
		ID:              w.newID(),
		Status:          enums.OrderStatusPending,
		Currency:        header.Currency,
		Locale:          header.Locale,
		Subtotal:        header.Totals.Subtotal,
		ShippingCost:    header.Totals.Shipping,
		Discount:        header.Totals.Discount,
		Total:           header.Totals.Total,
		CouponCode:      header.CouponCode,
		ConversationID:  header.ConversationID,
		IdempotencyKey:  header.IdempotencyKey,
		CustomerEmail:   header.CustomerEmail,
		CustomerName:    header.CustomerName,
		CustomerPhone:   header.CustomerPhone,
		UserID:          header.UserID,
		ShippingAddress: header.ShippingAddress,
		BillingAddress:  header.BillingAddress,
		CreatedAt:       w.now().UTC(),
		UpdatedAt:       w.now().UTC(),
	}
}

func (w *Writer) buildItems(orderID uuid.UUID, lines []cart.ValidatedLine) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	created := w.now().UTC()
	for i, line := range lines {
		items = append(items, models.OrderItem{
			ID:              w.newID(),
			OrderID:         orderID,
			ProductID:       line.ProductID,
			ProductName:     line.Name,
			Category:        line.Category,
			SubCategory:     line.SubCategory,
			UnitType:        line.UnitType,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			LineTotal:       line.LineTotal,
			SelectedOptions: line.Options,
			// Keep input order stable when items are re-read by created_at.
			CreatedAt: created.Add(time.Duration(i) * time.Microsecond),
		})
	}
	return items
}
