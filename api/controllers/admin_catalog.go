package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/extrachill/marketplace-settlement/api/responses"
	"github.com/extrachill/marketplace-settlement/api/validators"
	"github.com/extrachill/marketplace-settlement/internal/catalog"
	"github.com/extrachill/marketplace-settlement/internal/sellers"
	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
)

type productService interface {
	CreateProduct(ctx context.Context, input catalog.CreateProductInput) (*catalog.ProductDTO, error)
	PublishProduct(ctx context.Context, productID uuid.UUID) (*catalog.ProductDTO, error)
	ProductSplit(ctx context.Context, productID uuid.UUID) (*catalog.ProductSplit, error)
}

type sellerAdminService interface {
	CreateSeller(ctx context.Context, input sellers.CreateSellerInput) (*sellers.SellerDTO, error)
	GetSeller(ctx context.Context, sellerID int64) (*sellers.SellerDTO, error)
	OnboardingLink(ctx context.Context, sellerID int64) (*sellers.LinkDTO, error)
}

type createProductRequest struct {
	Name           string  `json:"name" validate:"required,max=200"`
	PriceCents     int64   `json:"price_cents" validate:"min=0"`
	SellerID       int64   `json:"seller_id" validate:"min=0"`
	CommissionRate *string `json:"commission_rate,omitempty" validate:"omitempty,max=16"`
}

// AdminCreateProduct stores a listing, optionally with a commission override.
func AdminCreateProduct(svc productService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		var req createProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.CreateProduct(r.Context(), catalog.CreateProductInput{
			Name:           validators.SanitizeString(req.Name, 200),
			PriceCents:     req.PriceCents,
			SellerID:       req.SellerID,
			CommissionRate: req.CommissionRate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// AdminPublishProduct approves a pending listing.
func AdminPublishProduct(svc productService, logg *logger.Logger) http.HandlerFunc {
	return productHandler(svc, logg, func(ctx context.Context, id uuid.UUID) (any, error) {
		return svc.PublishProduct(ctx, id)
	})
}

// AdminProductSplit previews commission and payout for one unit.
func AdminProductSplit(svc productService, logg *logger.Logger) http.HandlerFunc {
	return productHandler(svc, logg, func(ctx context.Context, id uuid.UUID) (any, error) {
		return svc.ProductSplit(ctx, id)
	})
}

func productHandler(svc productService, logg *logger.Logger, fn func(ctx context.Context, id uuid.UUID) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := fn(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// AdminCreateSeller registers a storefront.
func AdminCreateSeller(svc sellerAdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seller service unavailable"))
			return
		}
		var input sellers.CreateSellerInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		seller, err := svc.CreateSeller(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, seller)
	}
}

// AdminGetSeller returns a seller and its cached account state.
func AdminGetSeller(svc sellerAdminService, logg *logger.Logger) http.HandlerFunc {
	return adminSellerHandler(svc, logg, func(ctx context.Context, id int64) (any, error) {
		return svc.GetSeller(ctx, id)
	})
}

// AdminSellerOnboardingLink issues an onboarding link on a seller's behalf.
func AdminSellerOnboardingLink(svc sellerAdminService, logg *logger.Logger) http.HandlerFunc {
	return adminSellerHandler(svc, logg, func(ctx context.Context, id int64) (any, error) {
		return svc.OnboardingLink(ctx, id)
	})
}

func adminSellerHandler(svc sellerAdminService, logg *logger.Logger, fn func(ctx context.Context, id int64) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seller service unavailable"))
			return
		}
		sellerID, err := validators.ParseIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := fn(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}
