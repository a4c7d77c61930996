package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/extrachill/marketplace-settlement/pkg/enums"
	"github.com/extrachill/marketplace-settlement/pkg/money"
)

// RateSource resolves commission rates. *catalog.Service satisfies it.
type RateSource interface {
	DefaultRate() decimal.Decimal
	RateForPolicy(ctx context.Context, policy enums.RatePolicy, representative uuid.UUID) decimal.Decimal
}

// Calculation is the split of one seller group.
type Calculation struct {
	SellerID        int64
	SubtotalCents   int64
	Rate            decimal.Decimal
	CommissionCents int64
	PayoutCents     int64
}

// Calculator splits group subtotals into commission and payout.
type Calculator struct {
	rates  RateSource
	policy enums.RatePolicy
}

func NewCalculator(rates RateSource, policy enums.RatePolicy) *Calculator {
	if !policy.IsValid() {
		policy = enums.RatePolicyPlatformDefault
	}
	return &Calculator{rates: rates, policy: policy}
}

func (c *Calculator) Policy() enums.RatePolicy {
	return c.policy
}

// Calculate derives commission from the group's summed cents, never from
// per-item roundings. The platform group keeps its whole subtotal.
func (c *Calculator) Calculate(ctx context.Context, group SellerGroup) Calculation {
	if group.IsPlatform() {
		return Calculation{
			SellerID:        group.SellerID,
			SubtotalCents:   group.SubtotalCents,
			Rate:            decimal.NewFromInt(1),
			CommissionCents: group.SubtotalCents,
		}
	}
	var representative uuid.UUID
	if len(group.Items) > 0 {
		representative = group.Items[0].ProductID
	}
	rate := c.rates.RateForPolicy(ctx, c.policy, representative)
	split := money.SplitCents(group.SubtotalCents, rate)
	return Calculation{
		SellerID:        group.SellerID,
		SubtotalCents:   split.SubtotalCents,
		Rate:            rate,
		CommissionCents: split.CommissionCents,
		PayoutCents:     split.PayoutCents,
	}
}

// CalculateAll splits every group, preserving group order.
func (c *Calculator) CalculateAll(ctx context.Context, groups []SellerGroup) []Calculation {
	out := make([]Calculation, 0, len(groups))
	for _, g := range groups {
		out = append(out, c.Calculate(ctx, g))
	}
	return out
}
