package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/csdakkoni/ecommerce-sub000/internal/payment"
	"github.com/csdakkoni/ecommerce-sub000/pkg/db/models"
	"github.com/csdakkoni/ecommerce-sub000/pkg/logger"
)

const (
	defaultReconcileLimit    = 100
	defaultReconcileAfter    = 30 * time.Minute
	defaultReconcileLookback = 48 * time.Hour
)

// PaymentReconcileJobParams configures the job that settles orders whose
// gateway callback never arrived.
type PaymentReconcileJobParams struct {
	Logger     *logger.Logger
	Orders     awaitingPaymentStore
	Settlement paymentSettler
	Limit      int
	After      time.Duration
	Lookback   time.Duration
	Now        func() time.Time
}

type awaitingPaymentStore interface {
	ListAwaitingPayment(ctx context.Context, updatedBefore, updatedAfter time.Time, limit int) ([]models.Order, error)
	MarkReconcileChecked(ctx context.Context, orderIDs []uuid.UUID, checkedAt time.Time) error
}

type paymentSettler interface {
	Reconcile(ctx context.Context, token string) (*payment.CallbackOutcome, error)
}

func NewPaymentReconcileJob(params PaymentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("payment settlement required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultReconcileLimit
	}
	after := params.After
	if after <= 0 {
		after = defaultReconcileAfter
	}
	lookback := params.Lookback
	if lookback <= after {
		lookback = defaultReconcileLookback
	}
	return &paymentReconcileJob{
		logg:     params.Logger,
		orders:   params.Orders,
		settle:   params.Settlement,
		limit:    limit,
		after:    after,
		lookback: lookback,
		now:      now,
	}, nil
}

type paymentReconcileJob struct {
	logg     *logger.Logger
	orders   awaitingPaymentStore
	settle   paymentSettler
	limit    int
	after    time.Duration
	lookback time.Duration
	now      func() time.Time
}

func (j *paymentReconcileJob) Name() string { return "payment-reconcile" }

func (j *paymentReconcileJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	candidates, err := j.orders.ListAwaitingPayment(ctx, now.Add(-j.after), now.Add(-j.lookback), j.limit)
	if err != nil {
		return fmt.Errorf("list orders awaiting payment: %w", err)
	}

	var errs error
	paid := 0
	checked := make([]uuid.UUID, 0, len(candidates))
	for i := range candidates {
		order := &candidates[i]
		if order.PaymentToken == nil {
			continue
		}
		out, err := j.settle.Reconcile(j.logg.WithOrderID(ctx, order.ID.String()), *order.PaymentToken)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reconcile order %s: %w", order.ID, err))
		} else if out.Paid {
			paid++
			continue
		}
		// Failed lookups rotate to the back of the queue as well.
		checked = append(checked, order.ID)
	}
	if err := j.orders.MarkReconcileChecked(ctx, checked, now); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("mark orders reconcile checked: %w", err))
	}
	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(candidates),
		"paid":       paid,
	})
	j.logg.Info(reportCtx, "payment reconcile loop complete")
	return errs
}
