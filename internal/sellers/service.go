package sellers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/extrachill/marketplace-settlement/pkg/db"
	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
	"github.com/extrachill/marketplace-settlement/pkg/outbox"
	"github.com/extrachill/marketplace-settlement/pkg/outbox/payloads"
	stripeclient "github.com/extrachill/marketplace-settlement/pkg/stripe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the seller service.
type ServiceParams struct {
	Directory Directory
	// Gateway may be nil when the payment gateway is not configured; every
	// operation that needs it then fails with CONFIGURATION_ERROR.
	Gateway Gateway
	Tx      txRunner
	Outbox  outbox.Emitter
	Logger  *logger.Logger
}

// Service owns connected-account onboarding and the cached account status.
type Service struct {
	dir     Directory
	gateway Gateway
	tx      txRunner
	outbox  outbox.Emitter
	logg    *logger.Logger
}

func NewService(p ServiceParams) (*Service, error) {
	if p.Directory == nil {
		return nil, errors.New("seller directory required")
	}
	if p.Tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if p.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Service{
		dir:     p.Directory,
		gateway: p.Gateway,
		tx:      p.Tx,
		outbox:  p.Outbox,
		logg:    p.Logger,
	}, nil
}

// GatewayConfigured reports whether a payment gateway is wired.
func (s *Service) GatewayConfigured() bool {
	return s.gateway != nil
}

func (s *Service) CreateSeller(ctx context.Context, input CreateSellerInput) (*SellerDTO, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if name == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and email are required")
	}
	seller := &models.Seller{Name: name, Email: email}
	if err := s.dir.CreateSeller(ctx, seller); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create seller")
	}
	return toSellerDTO(seller, nil), nil
}

func (s *Service) GetSeller(ctx context.Context, sellerID int64) (*SellerDTO, error) {
	seller, err := s.requireSeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	account, err := s.dir.AccountFor(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller account")
	}
	return toSellerDTO(seller, account), nil
}

// OnboardingLink returns the hosted page a seller should visit next. The
// first call opens an Express account and caches it as pending. Active
// accounts get a dashboard login link instead of onboarding.
func (s *Service) OnboardingLink(ctx context.Context, sellerID int64) (*LinkDTO, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "payment gateway not configured")
	}
	ctx = s.logg.WithSellerID(ctx, sellerID)

	seller, err := s.requireSeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	account, created, err := s.ensureAccount(ctx, seller)
	if err != nil {
		return nil, err
	}

	if account.IsActive() {
		url, err := s.gateway.CreateDashboardLink(ctx, account.StripeAccountID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dashboard link")
		}
		return &LinkDTO{URL: url, Kind: LinkKindDashboard, Status: account.Status, Created: created}, nil
	}

	url, err := s.gateway.CreateOnboardingLink(ctx, account.StripeAccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create onboarding link")
	}
	return &LinkDTO{URL: url, Kind: LinkKindOnboarding, Status: account.Status, Created: created}, nil
}

// DashboardLink returns a login link for a seller whose account is active.
func (s *Service) DashboardLink(ctx context.Context, sellerID int64) (*LinkDTO, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "payment gateway not configured")
	}
	account, err := s.dir.AccountFor(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller account")
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller has no connected account")
	}
	if !account.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "connected account is not active")
	}
	url, err := s.gateway.CreateDashboardLink(ctx, account.StripeAccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dashboard link")
	}
	return &LinkDTO{URL: url, Kind: LinkKindDashboard, Status: account.Status}, nil
}

func (s *Service) ensureAccount(ctx context.Context, seller *models.Seller) (*models.SellerAccount, bool, error) {
	existing, err := s.dir.AccountFor(ctx, seller.ID)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller account")
	}
	if existing != nil {
		return existing, false, nil
	}

	acct, err := s.gateway.CreateExpressAccount(ctx, stripeclient.ExpressAccountRequest{
		SellerID: seller.ID,
		Email:    seller.Email,
		Name:     seller.Name,
	})
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create connected account")
	}

	flags := FlagsOf(acct)
	account := &models.SellerAccount{
		SellerID:           seller.ID,
		StripeAccountID:    acct.ID,
		Status:             enums.AccountStatusPending,
		ChargesEnabled:     flags.ChargesEnabled,
		PayoutsEnabled:     flags.PayoutsEnabled,
		DetailsSubmitted:   flags.DetailsSubmitted,
		OnboardingComplete: flags.DetailsSubmitted,
	}
	if err := s.dir.CreateAccount(ctx, account); err != nil {
		if db.IsUniqueViolation(err, "") {
			// Another request linked an account first; theirs wins.
			s.logg.Warn(ctx, "sellers.onboarding.account_race")
			winner, lookupErr := s.dir.AccountFor(ctx, seller.ID)
			if lookupErr != nil {
				return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, lookupErr, "reload seller account")
			}
			if winner != nil {
				return winner, false, nil
			}
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save seller account")
	}
	s.logg.Info(s.logg.WithField(ctx, "stripe_account_id", acct.ID), "sellers.onboarding.account_created")
	return account, true, nil
}

// RefreshStatus pulls the account's capabilities from the gateway and
// updates the cache. Sellers without an account yield (nil, nil).
func (s *Service) RefreshStatus(ctx context.Context, sellerID int64) (*AccountDTO, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "payment gateway not configured")
	}
	account, err := s.dir.AccountFor(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller account")
	}
	if account == nil {
		return nil, nil
	}
	acct, err := s.gateway.GetAccount(ctx, account.StripeAccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch connected account")
	}
	updated, _, err := s.applyFlags(ctx, account, FlagsOf(acct))
	if err != nil {
		return nil, err
	}
	return toAccountDTO(updated), nil
}

// UpdateStatusByAccountID applies flags pushed by the gateway. found is false
// when no seller owns the account id.
func (s *Service) UpdateStatusByAccountID(ctx context.Context, stripeAccountID string, flags AccountFlags) (found bool, err error) {
	account, err := s.dir.AccountByStripeID(ctx, stripeAccountID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller account")
	}
	if account == nil {
		return false, nil
	}
	if _, _, err := s.applyFlags(ctx, account, flags); err != nil {
		return true, err
	}
	return true, nil
}

// CanReceivePayments reports whether the seller can be paid now. A cached
// active status is trusted; anything else is refreshed from the gateway when
// one is configured.
func (s *Service) CanReceivePayments(ctx context.Context, sellerID int64) (bool, error) {
	account, err := s.dir.AccountFor(ctx, sellerID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller account")
	}
	if account == nil {
		return false, nil
	}
	if account.IsActive() {
		return true, nil
	}
	if s.gateway == nil {
		return false, nil
	}
	refreshed, err := s.RefreshStatus(ctx, sellerID)
	if err != nil {
		return false, err
	}
	return refreshed != nil && refreshed.Status == enums.AccountStatusActive, nil
}

// AccountsFor returns the cached accounts of several sellers keyed by id.
func (s *Service) AccountsFor(ctx context.Context, sellerIDs []int64) (map[int64]*models.SellerAccount, error) {
	accounts, err := s.dir.AccountsFor(ctx, sellerIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller accounts")
	}
	return accounts, nil
}

// RefreshStale refreshes up to limit non-active accounts and returns how many
// were checked.
func (s *Service) RefreshStale(ctx context.Context, limit int) (int, error) {
	if s.gateway == nil {
		return 0, pkgerrors.New(pkgerrors.CodeConfiguration, "payment gateway not configured")
	}
	accounts, err := s.dir.ListAccountsNeedingRefresh(ctx, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stale accounts")
	}
	checked := 0
	for i := range accounts {
		if err := ctx.Err(); err != nil {
			return checked, err
		}
		sellerCtx := s.logg.WithSellerID(ctx, accounts[i].SellerID)
		if _, err := s.RefreshStatus(sellerCtx, accounts[i].SellerID); err != nil {
			s.logg.Error(sellerCtx, "sellers.refresh.failed", err)
			continue
		}
		checked++
	}
	return checked, nil
}

// applyFlags persists flags and, when the derived status changes, emits a
// seller_account_updated event in the same transaction.
func (s *Service) applyFlags(ctx context.Context, account *models.SellerAccount, flags AccountFlags) (*models.SellerAccount, bool, error) {
	previous := account.Status
	next := flags.Status()
	changed := previous != next

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.dir.WithTx(tx).UpdateAccountStatus(ctx, account.SellerID, flags); err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSellerAccountUpdated,
			AggregateType: enums.AggregateSellerAccount,
			AggregateID:   strconv.FormatInt(account.SellerID, 10),
			Actor:         &outbox.ActorRef{Source: "stripe"},
			Data: payloads.SellerAccountUpdatedEvent{
				SellerID:         account.SellerID,
				StripeAccountID:  account.StripeAccountID,
				Status:           string(next),
				PreviousStatus:   string(previous),
				ChargesEnabled:   flags.ChargesEnabled,
				PayoutsEnabled:   flags.PayoutsEnabled,
				DetailsSubmitted: flags.DetailsSubmitted,
			},
		})
	})
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update account status")
	}

	if changed {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"seller_id":       account.SellerID,
			"previous_status": previous,
			"status":          next,
		}), "sellers.account.status_changed")
	}

	updated := *account
	updated.Status = next
	updated.ChargesEnabled = flags.ChargesEnabled
	updated.PayoutsEnabled = flags.PayoutsEnabled
	updated.DetailsSubmitted = flags.DetailsSubmitted
	updated.OnboardingComplete = flags.DetailsSubmitted
	return &updated, changed, nil
}

func (s *Service) requireSeller(ctx context.Context, sellerID int64) (*models.Seller, error) {
	if sellerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id must be positive")
	}
	seller, err := s.dir.Get(ctx, sellerID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller")
	}
	return seller, nil
}
