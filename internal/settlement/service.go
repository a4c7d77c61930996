package settlement

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/extrachill/marketplace-settlement/internal/ledger"
	"github.com/extrachill/marketplace-settlement/internal/orders"
	"github.com/extrachill/marketplace-settlement/pkg/db"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
)

// Earnings summarizes a seller's payouts.
type Earnings struct {
	SellerID           int64 `json:"seller_id"`
	TotalOrders        int64 `json:"total_orders"`
	TotalEarningsCents int64 `json:"total_earnings_cents"`
	PendingPayoutCents int64 `json:"pending_payout_cents"`
}

// Service answers read-side settlement questions.
type Service struct {
	orders  orders.Repository
	records RecordRepository
	ledger  ledger.Service
}

func NewService(ordersRepo orders.Repository, records RecordRepository, ledgerSvc ledger.Service) (*Service, error) {
	if ordersRepo == nil || records == nil || ledgerSvc == nil {
		return nil, errors.New("orders, records and ledger are required")
	}
	return &Service{orders: ordersRepo, records: records, ledger: ledgerSvc}, nil
}

// Result rebuilds an order's settlement view from its records.
func (s *Service) Result(ctx context.Context, orderID uuid.UUID) (*Result, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	records, err := s.records.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load settlement records")
	}
	return resultFrom(order, records), nil
}

// Earnings reports transferred earnings net of reversals and payouts that
// are still owed.
func (s *Service) Earnings(ctx context.Context, sellerID int64) (*Earnings, error) {
	if sellerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id must be positive")
	}
	stats, err := s.records.SellerStats(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller settlement stats")
	}
	paid, err := s.ledger.SellerTotal(ctx, sellerID, enums.LedgerEventTypeSellerPayout)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum seller payouts")
	}
	reversed, err := s.ledger.SellerTotal(ctx, sellerID, enums.LedgerEventTypeTransferReversal)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum seller reversals")
	}
	return &Earnings{
		SellerID:           sellerID,
		TotalOrders:        stats.Orders,
		TotalEarningsCents: paid - reversed,
		PendingPayoutCents: stats.PendingPayoutCents,
	}, nil
}
