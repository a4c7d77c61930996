package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/extrachill/marketplace-settlement/api/routes"
	"github.com/extrachill/marketplace-settlement/internal/catalog"
	"github.com/extrachill/marketplace-settlement/internal/ledger"
	"github.com/extrachill/marketplace-settlement/internal/orders"
	"github.com/extrachill/marketplace-settlement/internal/sellers"
	"github.com/extrachill/marketplace-settlement/internal/settlement"
	stripewebhook "github.com/extrachill/marketplace-settlement/internal/webhooks/stripe"
	"github.com/extrachill/marketplace-settlement/pkg/config"
	"github.com/extrachill/marketplace-settlement/pkg/db"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
	"github.com/extrachill/marketplace-settlement/pkg/metrics"
	"github.com/extrachill/marketplace-settlement/pkg/migrate"
	"github.com/extrachill/marketplace-settlement/pkg/outbox"
	"github.com/extrachill/marketplace-settlement/pkg/redis"
	pkgstripe "github.com/extrachill/marketplace-settlement/pkg/stripe"
)

const webhookScope = "stripe-webhook"

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	settlementMetrics := metrics.NewSettlementMetrics(registry)

	// A missing gateway leaves the service up; gateway-bound operations
	// answer CONFIGURATION_ERROR instead.
	var (
		stripeClient    *pkgstripe.Client
		sellerGateway   sellers.Gateway
		transferGateway settlement.TransferGateway
		verifier        routes.EventVerifier
	)
	stripeClient, err = pkgstripe.Initialize(ctx, cfg.Stripe, logg)
	switch {
	case err != nil && cfg.App.IsProd():
		logg.Error(ctx, "stripe gateway not configured in production", err)
	case err != nil:
		logg.Warn(logg.WithField(ctx, "reason", err.Error()), "stripe gateway not configured")
	default:
		sellerGateway, transferGateway, verifier = stripeClient, stripeClient, stripeClient
	}

	gormDB := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	catalogSvc, err := catalog.NewService(catalog.NewRepository(gormDB), cfg.Commission, logg)
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		os.Exit(1)
	}

	sellerSvc, err := sellers.NewService(sellers.ServiceParams{
		Directory: sellers.NewDirectory(gormDB),
		Gateway:   sellerGateway,
		Tx:        dbClient,
		Outbox:    outboxSvc,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create seller service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(gormDB)
	currency := ""
	if stripeClient != nil {
		currency = stripeClient.Currency()
	}
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repository: ordersRepo,
		Products:   catalogSvc,
		Sellers:    sellerSvc,
		Tx:         dbClient,
		Logger:     logg,
		Currency:   currency,
	})
	if err != nil {
		logg.Error(ctx, "failed to create order service", err)
		os.Exit(1)
	}

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gormDB))
	if err != nil {
		logg.Error(ctx, "failed to create ledger service", err)
		os.Exit(1)
	}

	policy, err := enums.ParseRatePolicy(cfg.Commission.RatePolicy)
	if err != nil {
		logg.Error(ctx, "invalid commission rate policy", err)
		os.Exit(1)
	}

	records := settlement.NewRecordRepository(gormDB)
	orchestrator, err := settlement.NewOrchestrator(settlement.OrchestratorParams{
		Orders:           ordersRepo,
		Records:          records,
		Sellers:          sellerSvc,
		Calculator:       settlement.NewCalculator(catalogSvc, policy),
		Gateway:          transferGateway,
		Ledger:           ledgerSvc,
		Outbox:           outboxSvc,
		Tx:               dbClient,
		Metrics:          settlementMetrics,
		Logger:           logg,
		PlatformSellerID: cfg.Commission.PlatformSellerID,
		ReverseOnFailure: cfg.Commission.ReverseOnFailure,
	})
	if err != nil {
		logg.Error(ctx, "failed to create settlement orchestrator", err)
		os.Exit(1)
	}

	settlementSvc, err := settlement.NewService(ordersRepo, records, ledgerSvc)
	if err != nil {
		logg.Error(ctx, "failed to create settlement service", err)
		os.Exit(1)
	}

	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:    orderSvc,
		OrderRepo: ordersRepo,
		Accounts:  sellerSvc,
		Settler:   orchestrator,
		Ledger:    ledgerSvc,
		Outbox:    outboxSvc,
		Tx:        dbClient,
		Metrics:   settlementMetrics,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, webhookScope)
	if err != nil {
		logg.Error(ctx, "failed to create stripe webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Cache:          redisClient,
			Gatherer:       registry,
			Orders:         orderSvc,
			Catalog:        catalogSvc,
			Sellers:        sellerSvc,
			Settlement:     settlementSvc,
			Settler:        orchestrator,
			Verifier:       verifier,
			WebhookService: webhookSvc,
			WebhookGuard:   webhookGuard,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}()

	logg.Info(logg.WithField(ctx, "addr", server.Addr), "starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(context.Background(), "server failed", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "api server stopped")
}
