package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
	"github.com/extrachill/marketplace-settlement/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByPaymentRef(ctx context.Context, paymentRef string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("payment_ref = ?", paymentRef).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(values)
	return res.RowsAffected == 1, res.Error
}

// ClaimSettlement moves a claimable order into validating. Only one caller
// can win the claim for a given order, and only once its payment is captured.
func (r *repository) ClaimSettlement(ctx context.Context, id uuid.UUID, captureRef string) (bool, error) {
	values := map[string]any{
		"settlement_state": enums.SettlementStateValidating,
		"updated_at":       time.Now().UTC(),
	}
	if captureRef != "" {
		values["capture_ref"] = captureRef
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND settlement_state IN ? AND status IN ?", id, enums.ClaimableSettlementStates, enums.SettleableStatuses).
		Updates(values)
	return res.RowsAffected == 1, res.Error
}

func (r *repository) SetSettlementState(ctx context.Context, id uuid.UUID, from, to enums.SettlementState, updates map[string]any) (bool, error) {
	values := map[string]any{"settlement_state": to, "updated_at": time.Now().UTC()}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND settlement_state = ?", id, from).
		Updates(values)
	return res.RowsAffected == 1, res.Error
}

func (r *repository) AddNote(ctx context.Context, note *models.OrderNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *repository) ListNotes(ctx context.Context, orderID uuid.UUID) ([]models.OrderNote, error) {
	var notes []models.OrderNote
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&notes).Error
	return notes, err
}

// List pages through orders newest first.
func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.SettlementState != nil {
		query = query.Where("settlement_state = ?", *filters.SettlementState)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	list := &OrderList{Orders: rows}
	if len(rows) > limit {
		last := rows[limit-1]
		list.Orders = rows[:limit]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}
