package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem snapshots one purchased product, including the seller
// resolved when the order was placed.
type OrderLineItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	Position       int       `gorm:"column:position;not null"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	Qty            int       `gorm:"column:qty;not null"`
	SubtotalCents  int64     `gorm:"column:subtotal_cents;not null"`
	SellerID       int64     `gorm:"column:seller_id;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
