package handler

import (
	"recurring-billing-engine/internal/adapter/http/middleware"
	"recurring-billing-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	LedgerSvc      ports.LedgerService
	RegistrySvc    ports.RegistryService
	WhitelistSvc   ports.WhitelistService
	SubSvc         ports.SubscriptionService
	BillingSvc     ports.BillingService
	TokenSvc       ports.TokenService
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	ledgerHandler := NewLedgerHandler(deps.LedgerSvc)
	ledger := v1.Group("/ledger", jwtAuth)
	{
		ledger.POST("/deposit", ledgerHandler.Deposit)
		ledger.POST("/withdraw", ledgerHandler.Withdraw)
		ledger.GET("/balance", ledgerHandler.Balance)
	}

	registryHandler := NewRegistryHandler(deps.RegistrySvc)
	services := v1.Group("/services")
	{
		services.POST("", jwtAuth, registryHandler.Register)
		services.GET("/:id", registryHandler.Get)
	}

	whitelistHandler := NewWhitelistHandler(deps.WhitelistSvc)
	whitelist := v1.Group("/whitelist")
	{
		whitelist.PUT("", jwtAuth, middleware.AdminOnly(), whitelistHandler.Set)
		whitelist.DELETE("/:currency", jwtAuth, middleware.AdminOnly(), whitelistHandler.Delete)
		whitelist.GET("/:currency", whitelistHandler.Get)
	}

	subHandler := NewSubscriptionHandler(deps.SubSvc)
	subscriptions := v1.Group("/subscriptions", jwtAuth)
	{
		subscriptions.POST("", subHandler.Subscribe)
		subscriptions.DELETE("/:service_id", subHandler.Unsubscribe)
		subscriptions.GET("", subHandler.List)
	}

	billingHandler := NewBillingHandler(deps.BillingSvc)
	billing := v1.Group("/billing", jwtAuth)
	{
		billing.POST("/settle", billingHandler.Settle)
		billing.POST("/collect/:service_id", billingHandler.Collect)
		billing.GET("/settlements", billingHandler.History)
	}

	return r
}
