package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/extrachill/marketplace-settlement/api/responses"
	"github.com/extrachill/marketplace-settlement/api/validators"
	"github.com/extrachill/marketplace-settlement/internal/orders"
	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
)

type cartValidator interface {
	ValidateCart(ctx context.Context, productIDs []uuid.UUID) (*orders.CartValidation, error)
}

type validateCartRequest struct {
	ProductIDs []uuid.UUID `json:"product_ids" validate:"required,min=1,max=100"`
}

// ValidateCart reports cart products whose sellers cannot receive payouts.
func ValidateCart(svc cartValidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		var req validateCartRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ValidateCart(r.Context(), req.ProductIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
