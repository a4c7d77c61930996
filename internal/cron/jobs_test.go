package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/extrachill/marketplace-settlement/internal/orders"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
	"github.com/extrachill/marketplace-settlement/pkg/pagination"
	"github.com/extrachill/marketplace-settlement/pkg/types"
)

type fakeRefresher struct {
	limit   int
	checked int
	err     error
}

func (f *fakeRefresher) RefreshStale(ctx context.Context, limit int) (int, error) {
	f.limit = limit
	return f.checked, f.err
}

func TestSellerRefreshJob(t *testing.T) {
	refresher := &fakeRefresher{checked: 3}
	job, err := NewSellerRefreshJob(SellerRefreshJobParams{Logger: testLogger(), Sellers: refresher})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if job.Name() != sellerRefreshJobName {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if refresher.limit != sellerRefreshBatch {
		t.Fatalf("expected batch %d, got %d", sellerRefreshBatch, refresher.limit)
	}
}

func TestSellerRefreshJobToleratesMissingGateway(t *testing.T) {
	refresher := &fakeRefresher{err: pkgerrors.New(pkgerrors.CodeConfiguration, "payment gateway not configured")}
	job, _ := NewSellerRefreshJob(SellerRefreshJobParams{Logger: testLogger(), Sellers: refresher})
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("expected nil for unconfigured gateway, got %v", err)
	}

	refresher.err = errors.New("database down")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected infrastructure error to surface")
	}
}

type fakeOrderLister struct {
	pages   []types.Page[orders.OrderDTO]
	calls   int
	filters []orders.ListFilters
}

func (f *fakeOrderLister) List(ctx context.Context, params pagination.Params, filters orders.ListFilters) (*types.Page[orders.OrderDTO], error) {
	f.filters = append(f.filters, filters)
	page := f.pages[f.calls]
	f.calls++
	return &page, nil
}

func TestSettlementWatchdogWalksPages(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lister := &fakeOrderLister{pages: []types.Page[orders.OrderDTO]{
		{Items: []orders.OrderDTO{{ID: uuid.New(), UpdatedAt: now.Add(-2 * time.Hour)}}, NextCursor: "c1"},
		{Items: []orders.OrderDTO{{ID: uuid.New(), UpdatedAt: now.Add(-time.Minute)}}},
	}}
	jobIface, err := NewSettlementWatchdogJob(SettlementWatchdogParams{Logger: testLogger(), Orders: lister})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	job := jobIface.(*settlementWatchdogJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if lister.calls != 2 {
		t.Fatalf("expected 2 pages, got %d", lister.calls)
	}
	for _, f := range lister.filters {
		if f.SettlementState == nil || *f.SettlementState != enums.SettlementStateValidating {
			t.Fatalf("expected validating filter, got %+v", f)
		}
	}
}
