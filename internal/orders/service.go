package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/extrachill/marketplace-settlement/pkg/db"
	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
	"github.com/extrachill/marketplace-settlement/pkg/money"
	"github.com/extrachill/marketplace-settlement/pkg/pagination"
	"github.com/extrachill/marketplace-settlement/pkg/types"
)

// Service defines order intake, payment status transitions and notes.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPaymentRef(ctx context.Context, paymentRef string) (*models.Order, error)
	ValidateCart(ctx context.Context, productIDs []uuid.UUID) (*CartValidation, error)
	MarkProcessing(ctx context.Context, id uuid.UUID, paymentRef, note string) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	AddNote(ctx context.Context, id uuid.UUID, body string) error
	Notes(ctx context.Context, id uuid.UUID) ([]NoteDTO, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*types.Page[OrderDTO], error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repository Repository
	Products   ProductSource
	Sellers    SellerAccounts
	Tx         txRunner
	Logger     *logger.Logger
	// Currency applies to orders created without one.
	Currency string
}

type service struct {
	repo     Repository
	products ProductSource
	sellers  SellerAccounts
	tx       txRunner
	logg     *logger.Logger
	currency string
}

// NewService builds the order service with the required dependencies.
func NewService(p ServiceParams) (Service, error) {
	if p.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Products == nil {
		return nil, fmt.Errorf("product source required")
	}
	if p.Sellers == nil {
		return nil, fmt.Errorf("seller accounts required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	currency := strings.ToLower(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = "usd"
	}
	return &service{
		repo:     p.Repository,
		products: p.Products,
		sellers:  p.Sellers,
		tx:       p.Tx,
		logg:     p.Logger,
		currency: currency,
	}, nil
}

// CreateOrder snapshots prices and sellers from the catalog. Line items are
// never rewritten afterwards.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	email := strings.TrimSpace(input.CustomerEmail)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.Products(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}

	currency := strings.ToLower(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.currency
	}
	order := &models.Order{
		ID:              uuid.New(),
		Status:          enums.OrderStatusPending,
		CustomerEmail:   email,
		Currency:        currency,
		PaymentRef:      input.PaymentRef,
		SettlementState: enums.SettlementStateUnsettled,
	}
	for i, item := range input.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		if product.Status != enums.ListingStatusPublished {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not published").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		var sellerID int64
		if product.SellerID != nil {
			sellerID = *product.SellerID
		}
		subtotal := money.LineSubtotal(product.PriceCents, item.Qty)
		order.TotalCents += subtotal
		order.LineItems = append(order.LineItems, models.OrderLineItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			Position:       i,
			ProductID:      product.ID,
			Name:           product.Name,
			UnitPriceCents: product.PriceCents,
			Qty:            item.Qty,
			SubtotalCents:  subtotal,
			SellerID:       sellerID,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		return repo.AddNote(ctx, &models.OrderNote{
			OrderID: order.ID,
			Body:    fmt.Sprintf("Order placed: %d item(s), total %s.", len(order.LineItems), money.FormatAmount(order.TotalCents, order.Currency)),
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "orders.created")
	dto := ToDTO(order)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func (s *service) FindByPaymentRef(ctx context.Context, paymentRef string) (*models.Order, error) {
	if strings.TrimSpace(paymentRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	order, err := s.repo.FindByPaymentRef(ctx, paymentRef)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order by payment reference")
	}
	return order, nil
}

// ValidateCart reports products whose sellers cannot currently receive
// payouts. Platform products are always valid.
func (s *service) ValidateCart(ctx context.Context, productIDs []uuid.UUID) (*CartValidation, error) {
	result := &CartValidation{Valid: true}
	if len(productIDs) == 0 {
		return result, nil
	}
	products, err := s.products.Products(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}

	var sellerIDs []int64
	seen := map[int64]bool{}
	for _, id := range productIDs {
		product, ok := products[id]
		if !ok || product.SellerID == nil || *product.SellerID == 0 || seen[*product.SellerID] {
			continue
		}
		seen[*product.SellerID] = true
		sellerIDs = append(sellerIDs, *product.SellerID)
	}
	accounts, err := s.sellers.AccountsFor(ctx, sellerIDs)
	if err != nil {
		return nil, err
	}

	reasons := make(map[int64]enums.InvalidProductReason, len(sellerIDs))
	for _, sellerID := range sellerIDs {
		account := accounts[sellerID]
		if account == nil {
			reasons[sellerID] = enums.InvalidProductSellerNotConnected
			continue
		}
		if account.IsActive() {
			continue
		}
		ok, err := s.sellers.CanReceivePayments(ctx, sellerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			reasons[sellerID] = enums.InvalidProductAccountRestricted
		}
	}

	for _, id := range productIDs {
		product, ok := products[id]
		if !ok {
			result.InvalidProducts = append(result.InvalidProducts, InvalidProduct{
				ProductID:   id,
				ProductName: "Unknown",
				Reason:      enums.InvalidProductUnknown,
			})
			continue
		}
		if product.SellerID == nil {
			continue
		}
		if reason, bad := reasons[*product.SellerID]; bad {
			result.InvalidProducts = append(result.InvalidProducts, InvalidProduct{
				ProductID:   id,
				ProductName: product.Name,
				SellerID:    *product.SellerID,
				Reason:      reason,
			})
		}
	}
	result.Valid = len(result.InvalidProducts) == 0
	return result, nil
}

// MarkProcessing moves an order awaiting payment to processing and records
// the gateway reference. Orders in any other state are left alone and
// reported as unchanged.
func (s *service) MarkProcessing(ctx context.Context, id uuid.UUID, paymentRef, note string) (bool, error) {
	updates := map[string]any{}
	if paymentRef != "" {
		updates["payment_ref"] = paymentRef
	}
	return s.transition(ctx, id, enums.OrderStatusProcessing, updates, note)
}

// MarkFailed moves an order awaiting payment to failed with the reason noted.
func (s *service) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown error"
	}
	return s.transition(ctx, id, enums.OrderStatusFailed, nil, "Payment failed: "+reason)
}

func (s *service) transition(ctx context.Context, id uuid.UUID, to enums.OrderStatus, updates map[string]any, note string) (bool, error) {
	var moved bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.TransitionStatus(ctx, id, enums.AwaitingPaymentStatuses, to, updates)
		if err != nil || !ok {
			return err
		}
		moved = true
		if note == "" {
			return nil
		}
		return repo.AddNote(ctx, &models.OrderNote{OrderID: id, Body: note})
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	if moved {
		s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, id.String()), map[string]any{"status": to}), "orders.status_changed")
	}
	return moved, nil
}

func (s *service) AddNote(ctx context.Context, id uuid.UUID, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "note body is required")
	}
	if err := s.repo.AddNote(ctx, &models.OrderNote{OrderID: id, Body: body}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add order note")
	}
	return nil
}

func (s *service) Notes(ctx context.Context, id uuid.UUID) ([]NoteDTO, error) {
	notes, err := s.repo.ListNotes(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list order notes")
	}
	out := make([]NoteDTO, 0, len(notes))
	for _, n := range notes {
		out = append(out, NoteDTO{Body: n.Body, CreatedAt: n.CreatedAt})
	}
	return out, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*types.Page[OrderDTO], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	page := &types.Page[OrderDTO]{Items: make([]OrderDTO, 0, len(list.Orders)), NextCursor: list.NextCursor}
	for i := range list.Orders {
		page.Items = append(page.Items, ToDTO(&list.Orders[i]))
	}
	return page, nil
}
