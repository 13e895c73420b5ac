package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recurring-billing-engine/config"
	httpHandler "recurring-billing-engine/internal/adapter/http/handler"
	"recurring-billing-engine/internal/adapter/oracle"
	pgStorage "recurring-billing-engine/internal/adapter/storage/postgres"
	redisStorage "recurring-billing-engine/internal/adapter/storage/redis"
	"recurring-billing-engine/internal/adapter/transfer"
	"recurring-billing-engine/internal/core/ports"
	"recurring-billing-engine/internal/service"
	"recurring-billing-engine/pkg/logger"
)

// quoteCacheTTL bounds how long a fetched oracle rate is reused. Kept below
// the settlement staleness window so cached quotes can never be rejected as
// stale right after a cache hit.
const quoteCacheTTL = 1 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Recurring Billing Engine")

	adminAccount, err := cfg.Billing.AdminAccountID()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid whitelist admin account")
	}

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	balanceRepo := pgStorage.NewBalanceRepo(pool)
	serviceRepo := pgStorage.NewServiceRepo(pool)
	subRepo := pgStorage.NewSubscriptionRepo(pool)
	whitelistRepo := pgStorage.NewWhitelistRepo(pool)
	settlementRepo := pgStorage.NewSettlementRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	clock := service.NewSystemClock()

	// Price oracle: HTTP client behind a Redis quote cache
	quoteCache := redisStorage.NewQuoteCache(rdb)
	rateFetcher := oracle.NewCachedFetcher(
		oracle.NewClient(cfg.Oracle.BaseURL, cfg.Oracle.Timeout),
		quoteCache,
		quoteCacheTTL,
		log,
	)
	priceOracle := oracle.NewOracle(rateFetcher, clock)

	// Fund transfers out of escrow
	transferor := transfer.NewLogDispatcher(log)

	// Initialize business services
	authSvc := service.NewAuthService(accountRepo, hashSvc, tokenSvc, clock)
	ledgerSvc := service.NewLedgerService(balanceRepo, transactor, transferor, clock, log)
	registrySvc := service.NewRegistryService(serviceRepo, clock, log)
	whitelistSvc := service.NewWhitelistService(whitelistRepo, adminAccount, clock, log)
	subSvc := service.NewSubscriptionService(subRepo, serviceRepo, whitelistRepo, clock, log)
	billingSvc := service.NewBillingService(
		serviceRepo,
		subRepo,
		balanceRepo,
		whitelistRepo,
		settlementRepo,
		transactor,
		priceOracle,
		clock,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		LedgerSvc:      ledgerSvc,
		RegistrySvc:    registrySvc,
		WhitelistSvc:   whitelistSvc,
		SubSvc:         subSvc,
		BillingSvc:     billingSvc,
		TokenSvc:       tokenSvc,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
