// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"comics-commerce/internal/config"
	pg "comics-commerce/internal/infra/db/postgres"
	"comics-commerce/internal/infra/logging"
	"comics-commerce/internal/infra/metrics"
	"comics-commerce/internal/infra/payment"
	red "comics-commerce/internal/infra/redis"
	"comics-commerce/internal/infra/sched"
	"comics-commerce/internal/infra/web"
	"comics-commerce/internal/infra/worker"
	"comics-commerce/internal/usecase"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, verbose errors)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		// logger is not configured yet
		boot := logging.New(config.LogConfig{Level: "info"}, true)
		boot.Fatal().Err(err).Str("path", *cfgPath).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second, logger)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	userRepo := pg.NewPostgresUserRepo(pool)
	historyRepo := pg.NewTransactionRepo(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPostgresPlanRepo(pool), redisClient, cfg.Redis.TTL)
	subRepo := pg.NewSubscriptionRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)
	productRepo := pg.NewProductRepo(pool)
	cartRepo := pg.NewCartRepo(pool)
	orderRepo := pg.NewOrderRepo(pool)

	// ---- Payment gateway ----
	gateway := payment.NewYooKassaGateway(cfg.Payment, logger)

	// ---- Use cases ----
	currency := cfg.Payment.Currency
	ledgerUC := usecase.NewLedgerUseCase(userRepo, historyRepo, tm, currency, logger)
	userUC := usecase.NewUserUseCase(userRepo, tm, logger)
	cartUC := usecase.NewCartUseCase(cartRepo, productRepo, tm, logger)
	orderUC := usecase.NewOrderUseCase(orderRepo, cartRepo, productRepo, userRepo, ledgerUC, tm,
		usecase.ShippingPolicy{Fee: cfg.Shop.ShippingFee, FreeFrom: cfg.Shop.FreeShippingFrom}, currency, logger)
	subUC := usecase.NewSubscriptionUseCase(planRepo, subRepo, userRepo, ledgerUC, tm, logger)
	paymentUC := usecase.NewPaymentUseCase(payRepo, ledgerUC, tm, gateway, locker, rateLimiter, usecase.TopUpPolicy{
		Min:            cfg.Payment.MinTopUp,
		Max:            cfg.Payment.MaxTopUp,
		Currency:       currency,
		ReturnURL:      cfg.Payment.ReturnURL,
		RateLimit:      cfg.Payment.TopUpRateLimit,
		RateWindow:     time.Minute,
		VerifyWebhooks: cfg.Payment.VerifyWebhooks,
	}, logger)

	// ---- Background workers ----
	jobs := worker.NewPool(cfg.Scheduler.ReconcileWorkers, logger)
	jobs.Start(ctx)
	defer jobs.Stop()

	var bg sync.WaitGroup
	reconciler := sched.NewPaymentReconciler(paymentUC, payRepo, jobs, cfg.Scheduler.ReconcileInterval, cfg.Scheduler.ReconcileStale, logger)
	expiry := sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval, subUC, logger)
	bg.Add(2)
	go func() { defer bg.Done(); _ = reconciler.Run(ctx) }()
	go func() { defer bg.Done(); _ = expiry.Run(ctx) }()

	// ---- HTTP ----
	srv := web.NewServer(web.Deps{
		Users:         userUC,
		Carts:         cartUC,
		Orders:        orderUC,
		Subscriptions: subUC,
		Ledger:        ledgerUC,
		Payments:      paymentUC,
		Auth:          web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Health: map[string]web.HealthCheck{
			"postgres": pool.Ping,
			"redis":    redisClient.Ping,
		},
	}, cfg.Server, cfg.Shop, cfg.Payment.WebhookSecret, logger)
	server := srv.NewHTTPServer()

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		logger.Error().Err(err).Msg("http server error")
		cancel()
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 20*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	bg.Wait()
	logger.Info().Msg("bye")
}
