package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/extrachill/marketplace-settlement/pkg/enums"
)

// Order is a placed purchase. Line items are immutable; only status and
// settlement metadata change after creation.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Status          enums.OrderStatus     `gorm:"column:status;not null;default:'pending'"`
	CustomerEmail   string                `gorm:"column:customer_email;not null"`
	Currency        string                `gorm:"column:currency;not null"`
	TotalCents      int64                 `gorm:"column:total_cents;not null"`
	PaymentRef      *string               `gorm:"column:payment_ref"`
	CaptureRef      *string               `gorm:"column:capture_ref"`
	SettlementState enums.SettlementState `gorm:"column:settlement_state;not null;default:'unsettled'"`
	TransferGroup   *string               `gorm:"column:transfer_group"`
	SettledAt       *time.Time            `gorm:"column:settled_at"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`

	LineItems []OrderLineItem `gorm:"foreignKey:OrderID;references:ID"`
}
