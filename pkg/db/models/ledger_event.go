package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/extrachill/marketplace-settlement/pkg/enums"
)

// LedgerEvent records an immutable money movement tied to an order and seller.
type LedgerEvent struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null"`
	SellerID    int64                 `gorm:"column:seller_id;not null"`
	Type        enums.LedgerEventType `gorm:"column:type;not null"`
	AmountCents int64                 `gorm:"column:amount_cents;not null"`
	Currency    string                `gorm:"column:currency;not null"`
	Reference   *string               `gorm:"column:reference"`
	Metadata    json.RawMessage       `gorm:"column:metadata"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
