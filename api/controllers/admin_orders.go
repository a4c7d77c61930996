package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/extrachill/marketplace-settlement/api/responses"
	"github.com/extrachill/marketplace-settlement/api/validators"
	"github.com/extrachill/marketplace-settlement/internal/orders"
	"github.com/extrachill/marketplace-settlement/internal/settlement"
	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
	"github.com/extrachill/marketplace-settlement/pkg/pagination"
	"github.com/extrachill/marketplace-settlement/pkg/types"
)

type adminOrderService interface {
	CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.OrderDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Notes(ctx context.Context, id uuid.UUID) ([]orders.NoteDTO, error)
	List(ctx context.Context, params pagination.Params, filters orders.ListFilters) (*types.Page[orders.OrderDTO], error)
}

type settler interface {
	Settle(ctx context.Context, orderID uuid.UUID, captureRef string) (*settlement.Result, error)
}

type settlementReader interface {
	Result(ctx context.Context, orderID uuid.UUID) (*settlement.Result, error)
}

type settleOrderRequest struct {
	CaptureRef string `json:"capture_ref" validate:"omitempty,max=255"`
}

type orderDetailResponse struct {
	Order orders.OrderDTO  `json:"order"`
	Notes []orders.NoteDTO `json:"notes"`
}

// AdminCreateOrder records a new order for catalog products.
func AdminCreateOrder(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		var input orders.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// AdminListOrders returns a cursor page of orders, newest first.
func AdminListOrders(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		var filters orders.ListFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("settlement_state")); raw != "" {
			state, err := enums.ParseSettlementState(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid settlement_state"))
				return
			}
			filters.SettlementState = &state
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filters.Status = &status
		}

		page, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// AdminOrderDetail returns an order with its line items and audit notes.
func AdminOrderDetail(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		notes, err := svc.Notes(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderDetailResponse{Order: orders.ToDTO(order), Notes: notes})
	}
}

// AdminSettleOrder triggers settlement for a paid order. The capture
// reference falls back to the one stored on the order.
func AdminSettleOrder(svc settler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "settlement unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req settleOrderRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		result, err := svc.Settle(r.Context(), orderID, req.CaptureRef)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminOrderSettlement returns the stored settlement view of an order.
func AdminOrderSettlement(svc settlementReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Result(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
