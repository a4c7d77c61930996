package sellers

import (
	"time"

	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
)

// CreateSellerInput registers a new storefront.
type CreateSellerInput struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
}

// SellerDTO is the API view of a seller and its payout account.
type SellerDTO struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Account   *AccountDTO `json:"account,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// AccountDTO is the cached state of a connected account.
type AccountDTO struct {
	StripeAccountID    string              `json:"stripe_account_id"`
	Status             enums.AccountStatus `json:"status"`
	ChargesEnabled     bool                `json:"charges_enabled"`
	PayoutsEnabled     bool                `json:"payouts_enabled"`
	DetailsSubmitted   bool                `json:"details_submitted"`
	OnboardingComplete bool                `json:"onboarding_complete"`
	StatusCheckedAt    *time.Time          `json:"status_checked_at,omitempty"`
}

// LinkKind says which hosted page a link opens.
type LinkKind string

const (
	LinkKindOnboarding LinkKind = "onboarding"
	LinkKindDashboard  LinkKind = "dashboard"
)

// LinkDTO is a hosted gateway URL for a seller.
type LinkDTO struct {
	URL     string              `json:"url"`
	Kind    LinkKind            `json:"kind"`
	Status  enums.AccountStatus `json:"status"`
	Created bool                `json:"account_created"`
}

func toAccountDTO(a *models.SellerAccount) *AccountDTO {
	if a == nil {
		return nil
	}
	return &AccountDTO{
		StripeAccountID:    a.StripeAccountID,
		Status:             a.Status,
		ChargesEnabled:     a.ChargesEnabled,
		PayoutsEnabled:     a.PayoutsEnabled,
		DetailsSubmitted:   a.DetailsSubmitted,
		OnboardingComplete: a.OnboardingComplete,
		StatusCheckedAt:    a.StatusCheckedAt,
	}
}

func toSellerDTO(s *models.Seller, a *models.SellerAccount) *SellerDTO {
	return &SellerDTO{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		Account:   toAccountDTO(a),
		CreatedAt: s.CreatedAt,
	}
}
