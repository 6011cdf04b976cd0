package routes

import (
	"spsc-mbanking/internal/adapters/biometric"
	"spsc-mbanking/internal/adapters/http/handlers"
	"spsc-mbanking/internal/adapters/http/middleware"
	"spsc-mbanking/internal/adapters/persistence/ledger"
	"spsc-mbanking/internal/adapters/persistence/repositories"
	"spsc-mbanking/internal/config"
	"spsc-mbanking/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config, cells ledger.Store, events services.EventPublisher) {
	// Initialize repositories
	identityRepo := repositories.NewIdentityRepository(db)
	accountRepo := repositories.NewAccountRepository(db)
	attemptRepo := repositories.NewAttemptRepository(db)
	transactionRepo := repositories.NewTransactionRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	mortgageRepo := repositories.NewMortgageRepository(db)
	savingsRepo := repositories.NewSavingsRepository(db)
	billRepo := repositories.NewBillRepository(db)

	// Initialize services
	authService := services.NewAuthService(identityRepo, cfg)
	accountService := services.NewAccountService(accountRepo, transactionRepo, notificationRepo, cells)
	lockoutService := services.NewLockoutService(cells, identityRepo, accountRepo)
	sequenceService := services.NewSequenceService(cells)
	pinService := services.NewPinService(lockoutService)
	biometricService := services.NewBiometricService(biometric.NewGatewayVerifier(), lockoutService)
	otpService := services.NewOTPService(attemptRepo, services.NewMailNotifier())
	settlementService := services.NewSettlementService(
		cells,
		attemptRepo,
		transactionRepo,
		notificationRepo,
		mortgageRepo,
		savingsRepo,
		billRepo,
		events,
	)
	authzService := services.NewAuthorizationService(
		identityRepo,
		accountRepo,
		sequenceService,
		pinService,
		biometricService,
		otpService,
		settlementService,
	)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService)
	authzHandler := handlers.NewAuthorizationHandler(authzService)
	accountHandler := handlers.NewAccountHandler(accountService)
	adminHandler := handlers.NewAdminHandler(lockoutService, identityRepo)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	setupAPIV1Routes(apiV1, healthHandler, authHandler, authzHandler, accountHandler, adminHandler, cfg)
}

// setupAPIV1Routes configures API v1 routes
func setupAPIV1Routes(
	router fiber.Router,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	authzHandler *handlers.AuthorizationHandler,
	accountHandler *handlers.AccountHandler,
	adminHandler *handlers.AdminHandler,
	cfg *config.Config,
) {
	// API Info
	router.Get("/", healthHandler.APIInfo)

	// Auth routes (public, rate limited)
	authRoutes := router.Group("/auth")
	authRoutes.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)

	// Account read routes (Authenticated)
	accountRoutes := router.Group("/accounts")
	accountRoutes.Use(middleware.AuthMiddleware(cfg))
	accountRoutes.Get("/", accountHandler.ListBalances)
	accountRoutes.Get("/:number", accountHandler.GetBalance)

	// Transaction routes (Authenticated; authorization endpoints are
	// strict rate limited to slow down OTP brute force)
	txnRoutes := router.Group("/transactions")
	txnRoutes.Use(middleware.AuthMiddleware(cfg))
	txnRoutes.Get("/", accountHandler.History)
	txnRoutes.Post("/authorize", middleware.StrictRateLimiter(), authzHandler.Begin)
	txnRoutes.Post("/:txn_id/resend", middleware.StrictRateLimiter(), authzHandler.Resend)
	txnRoutes.Post("/:txn_id/confirm", middleware.StrictRateLimiter(), authzHandler.Confirm)

	// Notification inbox (Authenticated)
	notificationRoutes := router.Group("/notifications")
	notificationRoutes.Use(middleware.AuthMiddleware(cfg))
	notificationRoutes.Get("/", accountHandler.Notifications)

	// Admin routes (Admin only)
	adminRoutes := router.Group("/admin")
	adminRoutes.Use(middleware.AuthMiddleware(cfg))
	adminRoutes.Use(middleware.AdminOnly())
	adminRoutes.Post("/identities/:id/lock", adminHandler.Lock)
	adminRoutes.Post("/identities/:id/unlock", adminHandler.Unlock)
}
