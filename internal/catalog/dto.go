package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
)

// CreateProductInput is the validated payload for a new listing.
type CreateProductInput struct {
	Name           string
	PriceCents     int64
	SellerID       int64
	CommissionRate *string
}

// ProductDTO is the API view of a listing.
type ProductDTO struct {
	ID             uuid.UUID           `json:"id"`
	Name           string              `json:"name"`
	PriceCents     int64               `json:"price_cents"`
	SellerID       int64               `json:"seller_id"`
	Status         enums.ListingStatus `json:"status"`
	CommissionRate string              `json:"commission_rate"`
	RatePercent    string              `json:"rate_percent"`
	SellerShare    string              `json:"seller_share_percent"`
}

// ProductSplit previews how a single unit of a product would be divided.
type ProductSplit struct {
	PriceCents      int64           `json:"price_cents"`
	Rate            decimal.Decimal `json:"rate"`
	CommissionCents int64           `json:"commission_cents"`
	PayoutCents     int64           `json:"payout_cents"`
}

func sellerIDOf(product *models.Product) int64 {
	if product == nil || product.SellerID == nil {
		return 0
	}
	return *product.SellerID
}
