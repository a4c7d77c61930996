package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/extrachill/marketplace-settlement/pkg/enums"
)

// Product is a catalog listing. CommissionRate holds the raw override as
// entered; it is only honored when it parses to a fraction in [0,1].
type Product struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name           string              `gorm:"column:name;not null"`
	PriceCents     int64               `gorm:"column:price_cents;not null"`
	SellerID       *int64              `gorm:"column:seller_id"`
	CommissionRate *string             `gorm:"column:commission_rate"`
	Status         enums.ListingStatus `gorm:"column:status;not null;default:'pending'"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
