package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/extrachill/marketplace-settlement/internal/orders"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
	"github.com/extrachill/marketplace-settlement/pkg/pagination"
	"github.com/extrachill/marketplace-settlement/pkg/types"
)

const (
	defaultStuckAfter          = time.Hour
	settlementWatchdogJobName  = "settlement-watchdog"
	settlementWatchdogMaxPages = 10
)

type orderLister interface {
	List(ctx context.Context, params pagination.Params, filters orders.ListFilters) (*types.Page[orders.OrderDTO], error)
}

type SettlementWatchdogParams struct {
	Logger *logger.Logger
	Orders orderLister
	// StuckAfter is how long an order may sit in validating before it is
	// reported.
	StuckAfter time.Duration
}

// NewSettlementWatchdogJob reports orders left in validating, which happens
// when records could not be persisted after a claim. Those orders need a
// manual look; the job never changes them.
func NewSettlementWatchdogJob(params SettlementWatchdogParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	stuckAfter := params.StuckAfter
	if stuckAfter <= 0 {
		stuckAfter = defaultStuckAfter
	}
	return &settlementWatchdogJob{logg: params.Logger, orders: params.Orders, stuckAfter: stuckAfter, now: time.Now}, nil
}

type settlementWatchdogJob struct {
	logg       *logger.Logger
	orders     orderLister
	stuckAfter time.Duration
	now        func() time.Time
}

func (j *settlementWatchdogJob) Name() string { return settlementWatchdogJobName }

func (j *settlementWatchdogJob) Run(ctx context.Context) error {
	state := enums.SettlementStateValidating
	cutoff := j.now().UTC().Add(-j.stuckAfter)
	params := pagination.Params{Limit: pagination.MaxLimit}
	stuck := 0

	for page := 0; page < settlementWatchdogMaxPages; page++ {
		result, err := j.orders.List(ctx, params, orders.ListFilters{SettlementState: &state})
		if err != nil {
			return fmt.Errorf("list validating orders: %w", err)
		}
		for _, order := range result.Items {
			if order.UpdatedAt.After(cutoff) {
				continue
			}
			stuck++
			j.logg.Warn(j.logg.WithOrderID(ctx, order.ID.String()), "cron.settlement_watchdog.stuck_order")
		}
		if result.NextCursor == "" {
			break
		}
		params.Cursor = result.NextCursor
	}

	j.logg.Info(j.logg.WithField(ctx, "stuck_orders", stuck), "cron.settlement_watchdog.complete")
	return nil
}
