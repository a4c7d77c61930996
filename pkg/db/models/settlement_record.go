package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/extrachill/marketplace-settlement/pkg/enums"
)

// SettlementRecord is the audit row for one seller group of one order.
// Rows are never deleted.
type SettlementRecord struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	SellerID        int64                `gorm:"column:seller_id;not null"`
	Position        int                  `gorm:"column:position;not null"`
	SubtotalCents   int64                `gorm:"column:subtotal_cents;not null"`
	CommissionRate  decimal.Decimal      `gorm:"column:commission_rate;type:numeric(5,4);not null"`
	CommissionCents int64                `gorm:"column:commission_cents;not null"`
	PayoutCents     int64                `gorm:"column:payout_cents;not null"`
	Status          enums.TransferStatus `gorm:"column:status;not null;default:'pending'"`
	TransferID      *string              `gorm:"column:transfer_id"`
	FailureReason   *string              `gorm:"column:failure_reason"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
