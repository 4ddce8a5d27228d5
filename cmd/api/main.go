package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/loyalty-pos/internal/config"
	"github.com/fairyhunter13/loyalty-pos/internal/handler"
	"github.com/fairyhunter13/loyalty-pos/internal/middleware"
	"github.com/fairyhunter13/loyalty-pos/internal/repository"
	"github.com/fairyhunter13/loyalty-pos/internal/scheduler"
	"github.com/fairyhunter13/loyalty-pos/internal/service"
	"github.com/fairyhunter13/loyalty-pos/internal/validator"
	"github.com/fairyhunter13/loyalty-pos/internal/wallet"
	"github.com/fairyhunter13/loyalty-pos/pkg/database"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Money goes over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), cfg.DB.MaxRetries)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Apply schema migrations once the database is reachable
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(cfg.DB.MigrationURL()); err != nil {
			log.Fatal().Err(err).Msg("failed to run database migrations")
		}
	}

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Loyalty POS",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // 1MB body limit
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Repositories
	customers := repository.NewCustomerRepository(pool)
	coupons := repository.NewCouponRepository(pool)
	campaigns := repository.NewCampaignRepository(pool)
	repos := service.Repositories{
		Customers:    customers,
		Discounts:    repository.NewDiscountRepository(pool),
		Campaigns:    campaigns,
		Coupons:      coupons,
		Progress:     repository.NewProgressRepository(pool),
		Transactions: repository.NewTransactionRepository(pool),
	}

	// Services
	transactionService := service.NewTransactionService(pool, repos, wallet.New(pool))
	campaignService := service.NewCampaignService(campaigns)
	scanService := service.NewScanService(customers, coupons, campaigns)

	// Handlers and guards
	validate := validator.New()
	auth := middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	gate := middleware.NewMaintenanceGate(cfg.Maintenance.Enabled)

	guards := handler.Guards{
		Authenticate: auth.Authenticate(),
		Maintenance:  gate.Handler(),
	}
	if cfg.RateLimit.Enabled {
		guards.RateLimit = middleware.RateLimit(cfg.RateLimit.Max, cfg.RateLimit.Window)
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	handler.Register(app, handler.Handlers{
		Health:       handler.NewHealthHandler(pool, gate),
		Transactions: handler.NewTransactionHandler(transactionService, validate),
		Campaigns:    handler.NewCampaignHandler(campaignService, validate),
		Scan:         handler.NewScanHandler(scanService),
	}, guards)

	// Background coupon expiry sweep
	var expiryJob *scheduler.ExpiryJob
	if cfg.Scheduler.Enabled {
		expiryJob = scheduler.NewExpiryJob(coupons, cfg.Scheduler.ExpirySpec)
		if err := expiryJob.Start(); err != nil {
			log.Fatal().Err(err).Str("spec", cfg.Scheduler.ExpirySpec).Msg("failed to schedule coupon expiry sweep")
		}
	}

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Bool("maintenance", gate.Enabled()).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Stop the sweep before the pool it writes through
	expiryJob.Stop()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close database pool AFTER server shutdown (even if shutdown timed out)
	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("database connections closed")
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
