package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stripe/stripe-go/v84"

	"github.com/extrachill/marketplace-settlement/api/controllers"
	webhookcontrollers "github.com/extrachill/marketplace-settlement/api/controllers/webhooks"
	"github.com/extrachill/marketplace-settlement/api/middleware"
	"github.com/extrachill/marketplace-settlement/internal/catalog"
	"github.com/extrachill/marketplace-settlement/internal/orders"
	"github.com/extrachill/marketplace-settlement/internal/sellers"
	"github.com/extrachill/marketplace-settlement/internal/settlement"
	"github.com/extrachill/marketplace-settlement/pkg/config"
	"github.com/extrachill/marketplace-settlement/pkg/db"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
	"github.com/extrachill/marketplace-settlement/pkg/metrics"
	pkgredis "github.com/extrachill/marketplace-settlement/pkg/redis"
)

// Cache is the redis surface the HTTP layer needs.
type Cache interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

type SellerService interface {
	CreateSeller(ctx context.Context, input sellers.CreateSellerInput) (*sellers.SellerDTO, error)
	GetSeller(ctx context.Context, sellerID int64) (*sellers.SellerDTO, error)
	OnboardingLink(ctx context.Context, sellerID int64) (*sellers.LinkDTO, error)
	DashboardLink(ctx context.Context, sellerID int64) (*sellers.LinkDTO, error)
	RefreshStatus(ctx context.Context, sellerID int64) (*sellers.AccountDTO, error)
}

type CatalogService interface {
	CreateProduct(ctx context.Context, input catalog.CreateProductInput) (*catalog.ProductDTO, error)
	PublishProduct(ctx context.Context, productID uuid.UUID) (*catalog.ProductDTO, error)
	ProductSplit(ctx context.Context, productID uuid.UUID) (*catalog.ProductSplit, error)
}

type SettlementReader interface {
	Result(ctx context.Context, orderID uuid.UUID) (*settlement.Result, error)
	Earnings(ctx context.Context, sellerID int64) (*settlement.Earnings, error)
}

type Settler interface {
	Settle(ctx context.Context, orderID uuid.UUID, captureRef string) (*settlement.Result, error)
}

type EventVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

type WebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// Deps carries everything the router wires into handlers. A nil Verifier
// means the payment gateway is not configured.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Cache    Cache
	Gatherer prometheus.Gatherer

	Orders     orders.Service
	Catalog    CatalogService
	Sellers    SellerService
	Settlement SettlementReader
	Settler    Settler

	Verifier       EventVerifier
	WebhookService webhookcontrollers.StripeWebhookService
	WebhookGuard   WebhookGuard
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var limiterStore middleware.RateLimiterStore
	var idemStore pkgredis.IdempotencyStore
	var cachePinger controllersPinger
	if d.Cache != nil {
		limiterStore, idemStore, cachePinger = d.Cache, d.Cache, d.Cache
	}
	var dbPinger controllersPinger
	if d.DB != nil {
		dbPinger = d.DB
	}

	publicPolicy := middleware.NewRateLimitPolicy("public", cfg.RateLimit.Window, cfg.RateLimit.IPLimit, 0)
	sellerPolicy := middleware.NewRateLimitPolicy("seller", cfg.RateLimit.Window, cfg.RateLimit.IPLimit, cfg.RateLimit.SellerLimit)
	idempotent := middleware.Idempotency(idemStore, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, cachePinger))
	})
	r.Handle("/metrics", metrics.Handler(d.Gatherer))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(d.WebhookService, d.Verifier, d.WebhookGuard, logg))
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.RateLimit(publicPolicy, limiterStore, logg))
		r.Post("/validate", controllers.ValidateCart(d.Orders, logg))
	})

	r.Route("/api/v1/seller", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleSeller))
		r.Use(middleware.RateLimit(sellerPolicy, limiterStore, logg))
		r.Get("/", controllers.SellerProfile(d.Sellers, logg))
		r.Get("/onboarding-link", controllers.SellerOnboardingLink(d.Sellers, logg))
		r.Get("/dashboard-link", controllers.SellerDashboardLink(d.Sellers, logg))
		r.Post("/account/refresh", controllers.SellerRefreshAccount(d.Sellers, logg))
		r.Get("/earnings", controllers.SellerEarnings(d.Settlement, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleAdmin))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(d.Orders, logg))
			r.With(idempotent).Post("/", controllers.AdminCreateOrder(d.Orders, logg))
			r.Get("/{orderId}", controllers.AdminOrderDetail(d.Orders, logg))
			r.With(idempotent).Post("/{orderId}/settle", controllers.AdminSettleOrder(d.Settler, logg))
			r.Get("/{orderId}/settlement", controllers.AdminOrderSettlement(d.Settlement, logg))
		})
		r.Route("/products", func(r chi.Router) {
			r.With(idempotent).Post("/", controllers.AdminCreateProduct(d.Catalog, logg))
			r.Post("/{productId}/publish", controllers.AdminPublishProduct(d.Catalog, logg))
			r.Get("/{productId}/split", controllers.AdminProductSplit(d.Catalog, logg))
		})
		r.Route("/sellers", func(r chi.Router) {
			r.With(idempotent).Post("/", controllers.AdminCreateSeller(d.Sellers, logg))
			r.Get("/{sellerId}", controllers.AdminGetSeller(d.Sellers, logg))
			r.Get("/{sellerId}/onboarding-link", controllers.AdminSellerOnboardingLink(d.Sellers, logg))
		})
	})

	return r
}

type controllersPinger interface {
	Ping(ctx context.Context) error
}
