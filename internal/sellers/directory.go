package sellers

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
)

// AccountFlags are the capability flags reported by the gateway.
type AccountFlags struct {
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
}

// Status derives the cached account status from the flags.
func (f AccountFlags) Status() enums.AccountStatus {
	return enums.DeriveAccountStatus(f.ChargesEnabled, f.PayoutsEnabled, f.DetailsSubmitted)
}

// Directory is the only path to seller and connected-account data.
// Lookups of absent accounts return (nil, nil).
type Directory interface {
	WithTx(tx *gorm.DB) Directory
	CreateSeller(ctx context.Context, seller *models.Seller) error
	Get(ctx context.Context, sellerID int64) (*models.Seller, error)
	AccountFor(ctx context.Context, sellerID int64) (*models.SellerAccount, error)
	AccountsFor(ctx context.Context, sellerIDs []int64) (map[int64]*models.SellerAccount, error)
	AccountByStripeID(ctx context.Context, stripeAccountID string) (*models.SellerAccount, error)
	CreateAccount(ctx context.Context, account *models.SellerAccount) error
	UpdateAccountStatus(ctx context.Context, sellerID int64, flags AccountFlags) error
	ListAccountsNeedingRefresh(ctx context.Context, limit int) ([]models.SellerAccount, error)
}

type directory struct {
	db *gorm.DB
}

// NewDirectory binds the seller directory to db.
func NewDirectory(db *gorm.DB) Directory {
	return &directory{db: db}
}

func (d *directory) WithTx(tx *gorm.DB) Directory {
	if tx == nil {
		return d
	}
	return &directory{db: tx}
}

func (d *directory) CreateSeller(ctx context.Context, seller *models.Seller) error {
	return d.db.WithContext(ctx).Create(seller).Error
}

// Get returns gorm.ErrRecordNotFound for unknown sellers.
func (d *directory) Get(ctx context.Context, sellerID int64) (*models.Seller, error) {
	var seller models.Seller
	if err := d.db.WithContext(ctx).Where("id = ?", sellerID).First(&seller).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

func (d *directory) AccountFor(ctx context.Context, sellerID int64) (*models.SellerAccount, error) {
	var account models.SellerAccount
	err := d.db.WithContext(ctx).Where("seller_id = ?", sellerID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (d *directory) AccountsFor(ctx context.Context, sellerIDs []int64) (map[int64]*models.SellerAccount, error) {
	out := make(map[int64]*models.SellerAccount, len(sellerIDs))
	if len(sellerIDs) == 0 {
		return out, nil
	}
	var accounts []models.SellerAccount
	if err := d.db.WithContext(ctx).Where("seller_id IN ?", sellerIDs).Find(&accounts).Error; err != nil {
		return nil, err
	}
	for i := range accounts {
		out[accounts[i].SellerID] = &accounts[i]
	}
	return out, nil
}

func (d *directory) AccountByStripeID(ctx context.Context, stripeAccountID string) (*models.SellerAccount, error) {
	var account models.SellerAccount
	err := d.db.WithContext(ctx).Where("stripe_account_id = ?", stripeAccountID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (d *directory) CreateAccount(ctx context.Context, account *models.SellerAccount) error {
	return d.db.WithContext(ctx).Create(account).Error
}

// UpdateAccountStatus rewrites the cached capability flags. The connected
// account id is never part of the update.
func (d *directory) UpdateAccountStatus(ctx context.Context, sellerID int64, flags AccountFlags) error {
	now := time.Now().UTC()
	return d.db.WithContext(ctx).
		Model(&models.SellerAccount{}).
		Where("seller_id = ?", sellerID).
		Updates(map[string]any{
			"status":              flags.Status(),
			"charges_enabled":     flags.ChargesEnabled,
			"payouts_enabled":     flags.PayoutsEnabled,
			"details_submitted":   flags.DetailsSubmitted,
			"onboarding_complete": flags.DetailsSubmitted,
			"status_checked_at":   now,
			"updated_at":          now,
		}).Error
}

// ListAccountsNeedingRefresh returns non-active accounts, least recently
// checked first.
func (d *directory) ListAccountsNeedingRefresh(ctx context.Context, limit int) ([]models.SellerAccount, error) {
	if limit <= 0 {
		limit = 100
	}
	var accounts []models.SellerAccount
	err := d.db.WithContext(ctx).
		Where("status <> ?", enums.AccountStatusActive).
		Order("status_checked_at IS NOT NULL").
		Order("status_checked_at ASC").
		Limit(limit).
		Find(&accounts).Error
	return accounts, err
}
