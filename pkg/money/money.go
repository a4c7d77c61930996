// Package money holds the integer-cent arithmetic shared by the rate
// resolver and the settlement calculator.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Split is the division of a subtotal between the platform and a seller.
type Split struct {
	SubtotalCents   int64
	CommissionCents int64
	PayoutCents     int64
}

// SplitCents applies rate to subtotalCents. The commission is rounded to the
// nearest cent with halves rounded up and the payout absorbs the remainder, so
// CommissionCents+PayoutCents always equals SubtotalCents.
func SplitCents(subtotalCents int64, rate decimal.Decimal) Split {
	if subtotalCents <= 0 {
		return Split{SubtotalCents: subtotalCents}
	}
	if rate.IsNegative() {
		rate = decimal.Zero
	}
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		rate = decimal.NewFromInt(1)
	}
	commission := decimal.NewFromInt(subtotalCents).Mul(rate).Round(0).IntPart()
	return Split{
		SubtotalCents:   subtotalCents,
		CommissionCents: commission,
		PayoutCents:     subtotalCents - commission,
	}
}

// LineSubtotal returns unit price times quantity in cents.
func LineSubtotal(unitPriceCents int64, qty int) int64 {
	if qty <= 0 {
		return 0
	}
	return unitPriceCents * int64(qty)
}

// FormatCents renders cents as a major-unit amount, e.g. 1050 -> "10.50".
func FormatCents(cents int64) string {
	return decimal.NewFromInt(cents).Shift(-2).StringFixed(2)
}

// FormatAmount renders cents with an upper-cased currency code, e.g. "10.50 USD".
func FormatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%s %s", FormatCents(cents), strings.ToUpper(strings.TrimSpace(currency)))
}

// Percent renders a fraction as a whole or fractional percentage, e.g. 0.1 -> "10%".
func Percent(rate decimal.Decimal) string {
	return rate.Shift(2).String() + "%"
}
