package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/extrachill/marketplace-settlement/pkg/enums"
)

// SellerAccount caches a seller's connected account and its capabilities.
// StripeAccountID never changes once written.
type SellerAccount struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SellerID           int64               `gorm:"column:seller_id;not null;uniqueIndex"`
	StripeAccountID    string              `gorm:"column:stripe_account_id;not null;uniqueIndex"`
	Status             enums.AccountStatus `gorm:"column:status;not null;default:'pending'"`
	ChargesEnabled     bool                `gorm:"column:charges_enabled;not null;default:false"`
	PayoutsEnabled     bool                `gorm:"column:payouts_enabled;not null;default:false"`
	DetailsSubmitted   bool                `gorm:"column:details_submitted;not null;default:false"`
	OnboardingComplete bool                `gorm:"column:onboarding_complete;not null;default:false"`
	StatusCheckedAt    *time.Time          `gorm:"column:status_checked_at"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsActive reports whether the account can receive transfers.
func (a *SellerAccount) IsActive() bool {
	return a != nil && a.StripeAccountID != "" && a.Status == enums.AccountStatusActive
}
