package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/extrachill/marketplace-settlement/internal/catalog"
	"github.com/extrachill/marketplace-settlement/internal/cron"
	"github.com/extrachill/marketplace-settlement/internal/orders"
	"github.com/extrachill/marketplace-settlement/internal/sellers"
	"github.com/extrachill/marketplace-settlement/pkg/config"
	"github.com/extrachill/marketplace-settlement/pkg/db"
	"github.com/extrachill/marketplace-settlement/pkg/instance"
	"github.com/extrachill/marketplace-settlement/pkg/logger"
	"github.com/extrachill/marketplace-settlement/pkg/metrics"
	"github.com/extrachill/marketplace-settlement/pkg/migrate"
	"github.com/extrachill/marketplace-settlement/pkg/outbox"
	"github.com/extrachill/marketplace-settlement/pkg/redis"
	pkgstripe "github.com/extrachill/marketplace-settlement/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var gateway sellers.Gateway
	if stripeClient, err := pkgstripe.Initialize(context.Background(), cfg.Stripe, logg); err != nil {
		logg.Warn(logg.WithField(context.Background(), "reason", err.Error()), "stripe gateway not configured; seller refresh will skip")
	} else {
		gateway = stripeClient
	}

	gormDB := dbClient.DB()
	outboxRepo := outbox.NewRepository(gormDB)

	sellerSvc, err := sellers.NewService(sellers.ServiceParams{
		Directory: sellers.NewDirectory(gormDB),
		Gateway:   gateway,
		Tx:        dbClient,
		Outbox:    outbox.NewService(outboxRepo, logg),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create seller service", err)
		os.Exit(1)
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(gormDB), cfg.Commission, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repository: orders.NewRepository(gormDB),
		Products:   catalogSvc,
		Sellers:    sellerSvc,
		Tx:         dbClient,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	sellerRefresh, err := cron.NewSellerRefreshJob(cron.SellerRefreshJobParams{
		Logger:  logg,
		Sellers: sellerSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create seller refresh job", err)
		os.Exit(1)
	}

	outboxRetention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:           logg,
		DB:               dbClient,
		Repository:       outboxRepo,
		TerminalAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	watchdog, err := cron.NewSettlementWatchdogJob(cron.SettlementWatchdogParams{
		Logger: logg,
		Orders: orderSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement watchdog job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron", cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sellerRefresh, outboxRetention, watchdog),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
