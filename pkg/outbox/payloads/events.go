package payloads

import (
	"time"

	"github.com/google/uuid"
)

// SellerPayout is one seller's share of a settled order.
type SellerPayout struct {
	SellerID        int64  `json:"seller_id"`
	SubtotalCents   int64  `json:"subtotal_cents"`
	CommissionCents int64  `json:"commission_cents"`
	PayoutCents     int64  `json:"payout_cents"`
	CommissionRate  string `json:"commission_rate"`
	TransferID      string `json:"transfer_id,omitempty"`
	Status          string `json:"status"`
}

// SettlementCompletedEvent is emitted once all seller transfers of an order succeed.
// Consumers use it to notify sellers of their payout.
type SettlementCompletedEvent struct {
	OrderID       uuid.UUID      `json:"order_id"`
	Currency      string         `json:"currency"`
	TransferGroup string         `json:"transfer_group"`
	TransferCount int            `json:"transfer_count"`
	PlatformCents int64          `json:"platform_commission_cents"`
	Payouts       []SellerPayout `json:"payouts"`
	SettledAt     time.Time      `json:"settled_at"`
}

// SettlementFailedEvent is emitted when a settlement stops before completing.
type SettlementFailedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	SettlementState string    `json:"settlement_state"`
	Reason          string    `json:"reason"`
	FailedSellerID  *int64    `json:"failed_seller_id,omitempty"`
	TransferCount   int       `json:"transfer_count"`
}

// SellerAccountUpdatedEvent reports a connected account status change.
type SellerAccountUpdatedEvent struct {
	SellerID         int64  `json:"seller_id"`
	StripeAccountID  string `json:"stripe_account_id"`
	Status           string `json:"status"`
	PreviousStatus   string `json:"previous_status"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
}

// OrderRefundedEvent reports a gateway refund against an order's charge.
type OrderRefundedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	ChargeID      string    `json:"charge_id"`
	AmountCents   int64     `json:"amount_refunded_cents"`
	Currency      string    `json:"currency"`
	FullyRefunded bool      `json:"fully_refunded"`
}
