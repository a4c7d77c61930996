package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
)

// RecordRepository persists settlement records. Records are only ever
// inserted or moved between transfer statuses.
type RecordRepository interface {
	WithTx(tx *gorm.DB) RecordRepository
	Create(ctx context.Context, records []models.SettlementRecord) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.SettlementRecord, error)
	MarkTransferred(ctx context.Context, id uuid.UUID, transferID string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	MarkReversed(ctx context.Context, id uuid.UUID) error
	SellerStats(ctx context.Context, sellerID int64) (*SellerStats, error)
}

// SellerStats aggregates one seller's settlement records.
type SellerStats struct {
	Orders             int64
	PendingPayoutCents int64
}

type recordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) WithTx(tx *gorm.DB) RecordRepository {
	if tx == nil {
		return r
	}
	return &recordRepository{db: tx}
}

func (r *recordRepository) Create(ctx context.Context, records []models.SettlementRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&records).Error
}

func (r *recordRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.SettlementRecord, error) {
	var records []models.SettlementRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("position ASC").
		Find(&records).Error
	return records, err
}

func (r *recordRepository) MarkTransferred(ctx context.Context, id uuid.UUID, transferID string) error {
	return r.update(ctx, id, map[string]any{
		"status":         enums.TransferStatusTransferred,
		"transfer_id":    transferID,
		"failure_reason": nil,
	})
}

func (r *recordRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.update(ctx, id, map[string]any{
		"status":         enums.TransferStatusFailed,
		"failure_reason": reason,
	})
}

func (r *recordRepository) MarkReversed(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, map[string]any{"status": enums.TransferStatusReversed})
}

func (r *recordRepository) update(ctx context.Context, id uuid.UUID, values map[string]any) error {
	values["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.SettlementRecord{}).
		Where("id = ?", id).
		Updates(values).Error
}

// SellerStats counts settled orders and sums payouts not yet transferred.
func (r *recordRepository) SellerStats(ctx context.Context, sellerID int64) (*SellerStats, error) {
	var stats SellerStats
	if err := r.db.WithContext(ctx).
		Model(&models.SettlementRecord{}).
		Where("seller_id = ?", sellerID).
		Distinct("order_id").
		Count(&stats.Orders).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Model(&models.SettlementRecord{}).
		Select("COALESCE(SUM(payout_cents), 0)").
		Where("seller_id = ? AND status IN ?", sellerID, []enums.TransferStatus{enums.TransferStatusPending, enums.TransferStatusFailed}).
		Scan(&stats.PendingPayoutCents).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
