package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
	"github.com/extrachill/marketplace-settlement/pkg/pagination"
)

// Repository persists orders, their line items and notes.
// Conditional updates report whether a row actually moved.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPaymentRef(ctx context.Context, paymentRef string) (*models.Order, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (bool, error)
	ClaimSettlement(ctx context.Context, id uuid.UUID, captureRef string) (bool, error)
	SetSettlementState(ctx context.Context, id uuid.UUID, from, to enums.SettlementState, updates map[string]any) (bool, error)
	AddNote(ctx context.Context, note *models.OrderNote) error
	ListNotes(ctx context.Context, orderID uuid.UUID) ([]models.OrderNote, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
}

// ProductSource prices line items and names their sellers.
type ProductSource interface {
	Products(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// SellerAccounts answers whether sellers can currently be paid.
type SellerAccounts interface {
	AccountsFor(ctx context.Context, sellerIDs []int64) (map[int64]*models.SellerAccount, error)
	CanReceivePayments(ctx context.Context, sellerID int64) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
