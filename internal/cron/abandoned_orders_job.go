package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/csdakkoni/ecommerce-sub000/pkg/logger"
	"github.com/csdakkoni/ecommerce-sub000/pkg/metrics"
)

const (
	defaultAbandonedGrace = 15 * time.Minute
	defaultAbandonedBatch = 500
)

// AbandonedOrdersJobParams configure the abandoned order reclamation job.
type AbandonedOrdersJobParams struct {
	Logger  *logger.Logger
	Orders  abandonedOrderDeleter
	Metrics *metrics.CronJobMetrics
	Grace   time.Duration
	Batch   int
}

type abandonedOrderDeleter interface {
	DeleteAbandonedBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

// NewAbandonedOrdersJob builds the job that deletes pending order headers
// left without items by an interrupted checkout.
func NewAbandonedOrdersJob(params AbandonedOrdersJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	grace := params.Grace
	if grace <= 0 {
		grace = defaultAbandonedGrace
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultAbandonedBatch
	}
	return &abandonedOrdersJob{
		logg:    params.Logger,
		orders:  params.Orders,
		metrics: params.Metrics,
		grace:   grace,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type abandonedOrdersJob struct {
	logg    *logger.Logger
	orders  abandonedOrderDeleter
	metrics *metrics.CronJobMetrics
	grace   time.Duration
	batch   int
	now     func() time.Time
}

func (j *abandonedOrdersJob) Name() string { return "abandoned-orders" }

// Every matches the grace period; a header cannot become abandoned faster.
func (j *abandonedOrdersJob) Every() time.Duration { return j.grace }

// Run deletes in batches until a short batch shows the backlog is drained.
func (j *abandonedOrdersJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ids, err := j.orders.DeleteAbandonedBefore(ctx, cutoff, j.batch)
		if err != nil {
			return fmt.Errorf("reclaim abandoned orders: %w", err)
		}
		for _, id := range ids {
			j.logg.Warn(j.logg.WithOrderID(ctx, id.String()), "abandoned order header reclaimed")
		}
		total += len(ids)
		j.metrics.AddReclaimed(j.Name(), len(ids))
		if len(ids) < j.batch {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"grace":        j.grace.String(),
		"rows_deleted": total,
	})
	j.logg.Info(logCtx, "abandoned order reclamation complete")
	return nil
}
