package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSplitCents(t *testing.T) {
	cases := []struct {
		name       string
		subtotal   int64
		rate       string
		commission int64
		payout     int64
	}{
		{name: "ten percent", subtotal: 2000, rate: "0.10", commission: 200, payout: 1800},
		{name: "half cent rounds up", subtotal: 5, rate: "0.10", commission: 1, payout: 4},
		{name: "below half rounds down", subtotal: 4, rate: "0.10", commission: 0, payout: 4},
		{name: "fractional rate", subtotal: 999, rate: "0.125", commission: 125, payout: 874},
		{name: "zero rate", subtotal: 1500, rate: "0", commission: 0, payout: 1500},
		{name: "full rate", subtotal: 1500, rate: "1", commission: 1500, payout: 0},
		{name: "rate above one clamps", subtotal: 1500, rate: "1.5", commission: 1500, payout: 0},
		{name: "zero subtotal", subtotal: 0, rate: "0.10", commission: 0, payout: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			split := SplitCents(tc.subtotal, decimal.RequireFromString(tc.rate))
			assert.Equal(t, tc.commission, split.CommissionCents)
			assert.Equal(t, tc.payout, split.PayoutCents)
			assert.Equal(t, split.SubtotalCents, split.CommissionCents+split.PayoutCents)
		})
	}
}

func TestSplitCentsConservesEveryAmount(t *testing.T) {
	rate := decimal.RequireFromString("0.15")
	for subtotal := int64(1); subtotal <= 2000; subtotal++ {
		split := SplitCents(subtotal, rate)
		if split.CommissionCents+split.PayoutCents != subtotal {
			t.Fatalf("subtotal %d split into %d + %d", subtotal, split.CommissionCents, split.PayoutCents)
		}
		if split.PayoutCents < 0 || split.CommissionCents < 0 {
			t.Fatalf("negative split for %d: %+v", subtotal, split)
		}
	}
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "10.50", FormatCents(1050))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "25.00 USD", FormatAmount(2500, "usd"))
	assert.Equal(t, "10%", Percent(decimal.RequireFromString("0.10")))
	assert.Equal(t, "12.5%", Percent(decimal.RequireFromString("0.125")))
	assert.Equal(t, int64(3000), LineSubtotal(1000, 3))
	assert.Equal(t, int64(0), LineSubtotal(1000, 0))
}
