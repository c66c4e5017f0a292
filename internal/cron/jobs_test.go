package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/csdakkoni/ecommerce-sub000/internal/payment"
	"github.com/csdakkoni/ecommerce-sub000/pkg/db/models"
	"github.com/csdakkoni/ecommerce-sub000/pkg/logger"
	"github.com/csdakkoni/ecommerce-sub000/pkg/metrics"
)

type fakeAbandonedDeleter struct {
	batches [][]uuid.UUID
	cutoffs []time.Time
	limits  []int
	err     error
}

func (f *fakeAbandonedDeleter) DeleteAbandonedBefore(_ context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	next := f.batches[0]
	f.batches = f.batches[1:]
	return next, nil
}

func TestAbandonedOrdersJobDrainsBatches(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deleter := &fakeAbandonedDeleter{batches: [][]uuid.UUID{
		{uuid.New(), uuid.New()},
		{uuid.New()},
	}}
	reg := prometheus.NewRegistry()
	job, err := NewAbandonedOrdersJob(AbandonedOrdersJobParams{
		Logger:  logger.Nop(),
		Orders:  deleter,
		Metrics: metrics.NewCronJobMetrics(reg),
		Grace:   10 * time.Minute,
		Batch:   2,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	job.(*abandonedOrdersJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(deleter.cutoffs) != 2 {
		t.Fatalf("expected two batches, got %d", len(deleter.cutoffs))
	}
	if want := now.Add(-10 * time.Minute); !deleter.cutoffs[0].Equal(want) {
		t.Fatalf("cutoff = %s, want %s", deleter.cutoffs[0], want)
	}
	if deleter.limits[0] != 2 {
		t.Fatalf("limit = %d, want 2", deleter.limits[0])
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var reclaimed float64
	for _, mf := range mfs {
		if mf.GetName() == "storefront_cron_rows_reclaimed_total" {
			reclaimed = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	if reclaimed != 3 {
		t.Fatalf("expected 3 reclaimed rows, got %v", reclaimed)
	}
}

func TestAbandonedOrdersJobPropagatesErrors(t *testing.T) {
	job, err := NewAbandonedOrdersJob(AbandonedOrdersJobParams{
		Logger: logger.Nop(),
		Orders: &fakeAbandonedDeleter{err: errors.New("db down")},
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeAwaitingLister struct {
	orders        []models.Order
	before, after time.Time
	checked       []uuid.UUID
	checkedAt     time.Time
}

func (f *fakeAwaitingLister) ListAwaitingPayment(_ context.Context, before, after time.Time, _ int) ([]models.Order, error) {
	f.before, f.after = before, after
	return f.orders, nil
}

func (f *fakeAwaitingLister) MarkReconcileChecked(_ context.Context, ids []uuid.UUID, at time.Time) error {
	f.checked, f.checkedAt = append(f.checked, ids...), at
	return nil
}

type fakeSettler struct {
	paid   map[string]bool
	failOn string
	tokens []string
}

func (f *fakeSettler) Reconcile(_ context.Context, token string) (*payment.CallbackOutcome, error) {
	f.tokens = append(f.tokens, token)
	if token == f.failOn {
		return nil, errors.New("gateway unavailable")
	}
	return &payment.CallbackOutcome{Paid: f.paid[token]}, nil
}

func TestPaymentReconcileJobSettlesEachCandidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := func(s string) *string { return &s }
	lister := &fakeAwaitingLister{orders: []models.Order{
		{ID: uuid.New(), PaymentToken: tok("a")},
		{ID: uuid.New(), PaymentToken: tok("b")},
		{ID: uuid.New()},
		{ID: uuid.New(), PaymentToken: tok("c")},
	}}
	settler := &fakeSettler{paid: map[string]bool{"a": true}, failOn: "b"}
	job, err := NewPaymentReconcileJob(PaymentReconcileJobParams{
		Logger:     logger.Nop(),
		Orders:     lister,
		Settlement: settler,
		Now:        func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	err = job.Run(context.Background())
	if err == nil {
		t.Fatal("expected the failed reconcile to be reported")
	}
	if len(settler.tokens) != 3 {
		t.Fatalf("expected every tokenized order to be tried, got %v", settler.tokens)
	}
	if !lister.before.Equal(now.Add(-defaultReconcileAfter)) || !lister.after.Equal(now.Add(-defaultReconcileLookback)) {
		t.Fatalf("unexpected window %s..%s", lister.after, lister.before)
	}
	// The paid order leaves the queue; the unpaid and the failed one are
	// stamped so the next run reaches other candidates first.
	wantChecked := []uuid.UUID{lister.orders[1].ID, lister.orders[3].ID}
	if len(lister.checked) != 2 || lister.checked[0] != wantChecked[0] || lister.checked[1] != wantChecked[1] {
		t.Fatalf("expected %v stamped as checked, got %v", wantChecked, lister.checked)
	}
	if !lister.checkedAt.Equal(now) {
		t.Fatalf("expected checked at %s, got %s", now, lister.checkedAt)
	}
}

func TestNewPaymentReconcileJobRequiresSettlement(t *testing.T) {
	if _, err := NewPaymentReconcileJob(PaymentReconcileJobParams{Logger: logger.Nop(), Orders: &fakeAwaitingLister{}}); err == nil {
		t.Fatal("expected error")
	}
}
