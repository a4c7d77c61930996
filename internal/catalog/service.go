package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/extrachill/marketplace-settlement/pkg/config"
	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
	pkgerrors "github.com/extrachill/marketplace-settlement/pkg/errors"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
	"github.com/extrachill/marketplace-settlement/pkg/money"
)

var (
	fallbackRate = decimal.RequireFromString(config.FallbackCommissionRate)
	one          = decimal.NewFromInt(1)
)

// Service resolves commission rates and owns listing rules.
type Service struct {
	repo   Repository
	cfg    config.CommissionConfig
	logger *logger.Logger
}

// NewService wires the catalog service.
func NewService(repo Repository, cfg config.CommissionConfig, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, cfg: cfg, logger: logg}, nil
}

// DefaultRate is the configured platform rate, or 0.10 when the configured
// value is unusable.
func (s *Service) DefaultRate() decimal.Decimal {
	rate := s.cfg.DefaultRate()
	if !validRate(rate) {
		return fallbackRate
	}
	return rate
}

// ResolveRate returns the commission fraction for a product. It never fails:
// a missing, malformed or out-of-range override falls back to the default,
// and lookup errors are logged and fall back too.
func (s *Service) ResolveRate(ctx context.Context, productID uuid.UUID) decimal.Decimal {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if !isNotFound(err) {
			logCtx := s.logger.WithFields(ctx, map[string]any{
				"product_id": productID.String(),
				"error":      err.Error(),
			})
			s.logger.Warn(logCtx, "catalog.resolve_rate.lookup_failed")
		}
		return s.DefaultRate()
	}
	return s.rateFor(product)
}

// RateForPolicy picks the rate a seller group is charged. Under the product
// override policy the group's representative product decides; otherwise the
// platform default applies.
func (s *Service) RateForPolicy(ctx context.Context, policy enums.RatePolicy, representative uuid.UUID) decimal.Decimal {
	if policy == enums.RatePolicyProductOverride && representative != uuid.Nil {
		return s.ResolveRate(ctx, representative)
	}
	return s.DefaultRate()
}

// SellerOf returns the seller that owns productID, 0 for platform listings.
func (s *Service) SellerOf(ctx context.Context, productID uuid.UUID) (int64, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if isNotFound(err) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup product")
	}
	return sellerIDOf(product), nil
}

// Products loads listings keyed by id. Unknown ids are absent from the map.
func (s *Service) Products(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	rows, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup products")
	}
	out := make(map[uuid.UUID]models.Product, len(rows))
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

// PublishProduct approves a pending listing.
func (s *Service) PublishProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup product")
	}
	if product.Status != enums.ListingStatusPublished {
		if err := s.repo.UpdateStatus(ctx, productID, enums.ListingStatusPublished); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "publish product")
		}
		product.Status = enums.ListingStatusPublished
	}
	return s.toDTO(product), nil
}

// ProductSplit previews the division of one unit's price. Display only.
func (s *Service) ProductSplit(ctx context.Context, productID uuid.UUID) (*ProductSplit, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup product")
	}
	rate := s.rateFor(product)
	split := money.SplitCents(product.PriceCents, rate)
	return &ProductSplit{
		PriceCents:      product.PriceCents,
		Rate:            rate,
		CommissionCents: split.CommissionCents,
		PayoutCents:     split.PayoutCents,
	}, nil
}

// NewListingStatus is the status a freshly created listing starts in.
func (s *Service) NewListingStatus() enums.ListingStatus {
	if s.cfg.RequireListingApproval {
		return enums.ListingStatusPending
	}
	return enums.ListingStatusPublished
}

// CreateProduct stores a listing. A commission override must be a fraction in [0,1].
func (s *Service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if input.SellerID < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id must be non-negative")
	}

	product := &models.Product{
		ID:         uuid.New(),
		Name:       name,
		PriceCents: input.PriceCents,
		Status:     s.NewListingStatus(),
	}
	if input.SellerID > 0 {
		sellerID := input.SellerID
		product.SellerID = &sellerID
	}
	if input.CommissionRate != nil {
		raw := strings.TrimSpace(*input.CommissionRate)
		if raw != "" {
			if _, ok := parseRate(raw); !ok {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission_rate must be a decimal between 0 and 1")
			}
			product.CommissionRate = &raw
		}
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	return s.toDTO(product), nil
}

func (s *Service) rateFor(product *models.Product) decimal.Decimal {
	if product != nil && product.CommissionRate != nil {
		if rate, ok := parseRate(*product.CommissionRate); ok {
			return rate
		}
	}
	return s.DefaultRate()
}

func (s *Service) toDTO(product *models.Product) *ProductDTO {
	rate := s.rateFor(product)
	return &ProductDTO{
		ID:             product.ID,
		Name:           product.Name,
		PriceCents:     product.PriceCents,
		SellerID:       sellerIDOf(product),
		Status:         product.Status,
		CommissionRate: rate.String(),
		RatePercent:    RatePercent(rate),
		SellerShare:    SellerSharePercent(rate),
	}
}

// RatePercent renders the platform's share, e.g. "10%".
func RatePercent(rate decimal.Decimal) string {
	return money.Percent(rate)
}

// SellerSharePercent renders the seller's share, e.g. "90%".
func SellerSharePercent(rate decimal.Decimal) string {
	return money.Percent(one.Sub(rate))
}

func parseRate(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil || !validRate(rate) {
		return decimal.Zero, false
	}
	return rate, true
}

func validRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && !rate.GreaterThan(one)
}
