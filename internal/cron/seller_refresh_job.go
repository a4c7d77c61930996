package cron

import (
	"context"
	"fmt"

	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
)

const (
	sellerRefreshBatch   = 50
	sellerRefreshJobName = "seller-account-refresh"
)

type staleAccountRefresher interface {
	RefreshStale(ctx context.Context, limit int) (int, error)
}

type SellerRefreshJobParams struct {
	Logger  *logger.Logger
	Sellers staleAccountRefresher
	Batch   int
}

// NewSellerRefreshJob re-reads connected accounts that are not yet active so
// sellers who finished onboarding outside a webhook delivery become payable.
func NewSellerRefreshJob(params SellerRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sellers == nil {
		return nil, fmt.Errorf("seller service required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = sellerRefreshBatch
	}
	return &sellerRefreshJob{logg: params.Logger, sellers: params.Sellers, batch: batch}, nil
}

type sellerRefreshJob struct {
	logg    *logger.Logger
	sellers staleAccountRefresher
	batch   int
}

func (j *sellerRefreshJob) Name() string { return sellerRefreshJobName }

func (j *sellerRefreshJob) Run(ctx context.Context) error {
	checked, err := j.sellers.RefreshStale(ctx, j.batch)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeConfiguration) {
			j.logg.Warn(ctx, "cron.seller_refresh.gateway_not_configured")
			return nil
		}
		return fmt.Errorf("refresh seller accounts: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "accounts_checked", checked), "cron.seller_refresh.complete")
	return nil
}
