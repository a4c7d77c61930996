package settlement

import (
	"github.com/google/uuid"

	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
)

// GroupResult is the outcome for one seller group.
type GroupResult struct {
	SellerID        int64                `json:"seller_id"`
	SubtotalCents   int64                `json:"subtotal_cents"`
	CommissionRate  string               `json:"commission_rate"`
	CommissionCents int64                `json:"commission_cents"`
	PayoutCents     int64                `json:"payout_cents"`
	Status          enums.TransferStatus `json:"status"`
	TransferID      string               `json:"transfer_id,omitempty"`
	FailureReason   string               `json:"failure_reason,omitempty"`
}

// Result describes an order's settlement. AlreadyProcessed is set when the
// call found settlement already claimed and changed nothing.
type Result struct {
	OrderID          uuid.UUID             `json:"order_id"`
	State            enums.SettlementState `json:"settlement_state"`
	AlreadyProcessed bool                  `json:"already_processed"`
	TransferGroup    string                `json:"transfer_group,omitempty"`
	Currency         string                `json:"currency"`
	PlatformCents    int64                 `json:"platform_commission_cents"`
	Groups           []GroupResult         `json:"groups"`
	Issues           []string              `json:"issues,omitempty"`
}

// Succeeded lists groups whose payout reached the seller.
func (r *Result) Succeeded() []GroupResult {
	return r.filter(enums.TransferStatusTransferred)
}

// Failed lists groups whose transfer failed.
func (r *Result) Failed() []GroupResult {
	return r.filter(enums.TransferStatusFailed)
}

// TransferCount is the number of transfers that were issued and kept.
func (r *Result) TransferCount() int {
	return len(r.Succeeded())
}

func (r *Result) filter(status enums.TransferStatus) []GroupResult {
	var out []GroupResult
	for _, g := range r.Groups {
		if g.Status == status {
			out = append(out, g)
		}
	}
	return out
}

func groupResultFrom(rec models.SettlementRecord) GroupResult {
	g := GroupResult{
		SellerID:        rec.SellerID,
		SubtotalCents:   rec.SubtotalCents,
		CommissionRate:  rec.CommissionRate.String(),
		CommissionCents: rec.CommissionCents,
		PayoutCents:     rec.PayoutCents,
		Status:          rec.Status,
	}
	if rec.TransferID != nil {
		g.TransferID = *rec.TransferID
	}
	if rec.FailureReason != nil {
		g.FailureReason = *rec.FailureReason
	}
	return g
}

// resultFrom rebuilds a result from persisted state.
func resultFrom(order *models.Order, records []models.SettlementRecord) *Result {
	res := &Result{
		OrderID:  order.ID,
		State:    order.SettlementState,
		Currency: order.Currency,
		Groups:   make([]GroupResult, 0, len(records)),
	}
	if order.TransferGroup != nil {
		res.TransferGroup = *order.TransferGroup
	}
	for _, rec := range records {
		res.Groups = append(res.Groups, groupResultFrom(rec))
		if rec.Status != enums.TransferStatusReversed {
			res.PlatformCents += rec.CommissionCents
		}
	}
	return res
}
