package controllers

import (
	"context"
	"net/http"

	"github.com/extrachill/marketplace-settlement/api/middleware"
	"github.com/extrachill/marketplace-settlement/api/responses"
	"github.com/extrachill/marketplace-settlement/internal/sellers"
	"github.com/extrachill/marketplace-settlement/internal/settlement"
	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
)

type sellerAccountService interface {
	GetSeller(ctx context.Context, sellerID int64) (*sellers.SellerDTO, error)
	OnboardingLink(ctx context.Context, sellerID int64) (*sellers.LinkDTO, error)
	DashboardLink(ctx context.Context, sellerID int64) (*sellers.LinkDTO, error)
	RefreshStatus(ctx context.Context, sellerID int64) (*sellers.AccountDTO, error)
}

type earningsReader interface {
	Earnings(ctx context.Context, sellerID int64) (*settlement.Earnings, error)
}

func sellerFromRequest(r *http.Request) (int64, error) {
	sellerID := middleware.SellerIDFromContext(r.Context())
	if sellerID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeForbidden, "seller context required")
	}
	return sellerID, nil
}

// SellerProfile returns the calling seller and its cached account state.
func SellerProfile(svc sellerAccountService, logg *logger.Logger) http.HandlerFunc {
	return sellerHandler(svc, logg, func(ctx context.Context, sellerID int64) (any, error) {
		return svc.GetSeller(ctx, sellerID)
	})
}

// SellerOnboardingLink creates the connected account on first use and
// returns a hosted onboarding URL.
func SellerOnboardingLink(svc sellerAccountService, logg *logger.Logger) http.HandlerFunc {
	return sellerHandler(svc, logg, func(ctx context.Context, sellerID int64) (any, error) {
		return svc.OnboardingLink(ctx, sellerID)
	})
}

// SellerDashboardLink returns a login link for an onboarded seller.
func SellerDashboardLink(svc sellerAccountService, logg *logger.Logger) http.HandlerFunc {
	return sellerHandler(svc, logg, func(ctx context.Context, sellerID int64) (any, error) {
		return svc.DashboardLink(ctx, sellerID)
	})
}

// SellerRefreshAccount pulls the account's capability flags from the gateway.
func SellerRefreshAccount(svc sellerAccountService, logg *logger.Logger) http.HandlerFunc {
	return sellerHandler(svc, logg, func(ctx context.Context, sellerID int64) (any, error) {
		return svc.RefreshStatus(ctx, sellerID)
	})
}

// SellerEarnings summarizes transferred and pending payouts.
func SellerEarnings(svc earningsReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		sellerID, err := sellerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		earnings, err := svc.Earnings(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, earnings)
	}
}

func sellerHandler(svc sellerAccountService, logg *logger.Logger, fn func(ctx context.Context, sellerID int64) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seller service unavailable"))
			return
		}
		sellerID, err := sellerFromRequest(r)
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
