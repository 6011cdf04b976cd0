package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"spsc-mbanking/internal/adapters/events"
	"spsc-mbanking/internal/adapters/http/middleware"
	"spsc-mbanking/internal/adapters/http/routes"
	"spsc-mbanking/internal/adapters/persistence/ledger"
	"spsc-mbanking/internal/adapters/persistence/models"
	"spsc-mbanking/internal/adapters/persistence/repositories"
	"spsc-mbanking/internal/config"
	"spsc-mbanking/internal/core/services"
	"spsc-mbanking/internal/pkg/metrics"

	"github.com/gofiber/fiber/v2"
)

// @title SPSC mBanking API
// @version 1.0
// @description ระบบ mobile banking สหกรณ์ SPSC v1.0 API

// @contact.name API Support
// @contact.email support@spsc.or.th

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /api/v1
// @schemes https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Shared ledger cell store - the single write path for balances,
	// statuses and failure counters
	cells := ledger.NewSQLStore(db)

	// Seed demo data (dev only)
	if cfg.IsDev() {
		if err := config.NewSeeder(db, cells).Run(); err != nil {
			log.Printf("⚠️ Warning: Failed to seed demo data: %v", err)
		}
	}

	// Settled-transaction event publisher (optional)
	var publisher services.EventPublisher
	if cfg.AMQP.URL != "" {
		producer, err := events.NewProducer(cfg.AMQP.URL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to RabbitMQ: %v", err)
		}
		defer producer.Close()
		publisher = producer
		log.Println("✅ Event publisher connected")
	}

	// Start cron service for abandoned-attempt expiry
	cronService := services.NewCronService(repositories.NewAttemptRepository(db))
	cronService.Start()
	defer cronService.Stop()

	// Prometheus metrics on a side listener
	metrics.Serve(cfg.MetricsPort)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "SPSC mBanking API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (pass db and cfg for dependency injection)
	routes.Setup(app, db, cfg, cells, publisher)

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
