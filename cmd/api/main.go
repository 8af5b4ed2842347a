package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/content-unlock-system/internal/catalog"
	"github.com/fairyhunter13/content-unlock-system/internal/config"
	"github.com/fairyhunter13/content-unlock-system/internal/handler"
	"github.com/fairyhunter13/content-unlock-system/internal/payment"
	"github.com/fairyhunter13/content-unlock-system/internal/pricing"
	"github.com/fairyhunter13/content-unlock-system/internal/promo"
	"github.com/fairyhunter13/content-unlock-system/internal/service"
	"github.com/fairyhunter13/content-unlock-system/internal/token"
	"github.com/fairyhunter13/content-unlock-system/internal/unlock"
	"github.com/fairyhunter13/content-unlock-system/internal/validator"
	"github.com/fairyhunter13/content-unlock-system/pkg/database"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Select the unlock persistence backend. Audit records go to the data
	// directory regardless of backend.
	var unlockStore unlock.Store
	var pool *pgxpool.Pool
	switch cfg.Unlock.Backend {
	case "postgres":
		pool, err = database.NewPool(ctx, cfg.DB.DSN(), 5)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		unlockStore = unlock.NewPostgresStore(pool)
		log.Info().Msg("using postgres unlock backend")
	case "file":
		unlockStore = unlock.NewFileStore(cfg.Unlock.DataDir)
		log.Info().Str("data_dir", cfg.Unlock.DataDir).Msg("using file unlock backend")
	default:
		log.Fatal().Str("backend", cfg.Unlock.Backend).Msg("unknown unlock backend")
	}
	auditor := unlock.NewAuditor(cfg.Unlock.DataDir)

	// Domain components
	promoStore := promo.NewStore()
	catalogClient := catalog.NewHTTPClient(
		cfg.Catalog.BaseURL,
		cfg.Catalog.APIKey,
		time.Duration(cfg.Catalog.Timeout)*time.Second,
	)
	calculator := pricing.NewCalculator(catalogClient, time.Duration(cfg.Pricing.CacheTTL)*time.Second)
	issuer := token.NewIssuer(cfg.Token.Secret, time.Duration(cfg.Token.TTLHours)*time.Hour)
	sessions := payment.NewStripeVerifier(cfg.Stripe.SecretKey)
	unlockService := service.NewUnlockService(promoStore, unlockStore, sessions, issuer, auditor)

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Content Unlock System",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // 1MB body limit (explicit, prevents large payloads)
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Initialize validator with the notblank rule
	validate := validator.New()

	// Handlers
	promoHandler := handler.NewPromoHandler(unlockService, promoStore, validate)
	unlockHandler := handler.NewUnlockHandler(unlockService, validate)
	priceHandler := handler.NewPriceHandler(calculator, validate)
	adminHandler := handler.NewAdminHandler(promoStore, validate)

	// Health handler (pings the pool only when the postgres backend is on)
	var pinger handler.Pinger
	if pool != nil {
		pinger = pool
	}
	healthHandler := handler.NewHealthHandler(pinger)
	app.Get("/health", healthHandler.Check)

	// Promo routes
	app.Post("/api/promo/unlock", promoHandler.Unlock)
	app.Post("/api/promo/validate", promoHandler.ValidateCode)

	// Unlock routes
	app.Post("/api/meditation/unlock", unlockHandler.UnlockFromCheckout)
	app.Get("/api/meditation/unlock", unlockHandler.CheckMeditation)
	app.Get("/api/book/unlock", unlockHandler.CheckBook)

	// Checkout price validation
	app.Post("/api/checkout/validate-price", priceHandler.ValidatePrice)
	app.Get("/api/checkout/price-cache", priceHandler.CacheStats)

	// Admin promo CRUD (disabled when no key is configured)
	admin := app.Group("/api/admin", handler.AdminKeyMiddleware(cfg.Admin.APIKey))
	admin.Post("/promo-codes", adminHandler.CreateCode)
	admin.Get("/promo-codes", adminHandler.ListCodes)
	admin.Get("/promo-codes/:code", adminHandler.GetCode)
	admin.Put("/promo-codes/:code", adminHandler.UpdateCode)
	admin.Delete("/promo-codes/:code", adminHandler.DeleteCode)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
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

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close database pool AFTER server shutdown (even if shutdown timed out)
	if pool != nil {
		log.Info().Msg("closing database connections...")
		pool.Close()
		log.Info().Msg("database connections closed")
	}
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
