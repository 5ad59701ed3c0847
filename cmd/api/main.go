package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eato/internal/auth"
	"eato/internal/cache"
	"eato/internal/catalog"
	"eato/internal/config"
	"eato/internal/database"
	"eato/internal/events"
	"eato/internal/handler"
	"eato/internal/mail"
	"eato/internal/repository"
	"eato/internal/router"
	"eato/internal/service"
	"eato/internal/storage"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

const catalogS3Prefix = "catalog/"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting eato API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool and schema
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	// Cache
	store, closeCache, err := newCache(ctx, cfg.Cache, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer closeCache()
	ttls := cache.TTLs{
		Products: cfg.Cache.ProductsTTL,
		Carts:    cfg.Cache.CartsTTL,
		Orders:   cfg.Cache.OrdersTTL,
		Users:    cfg.Cache.UsersTTL,
	}

	// Email
	var mailer mail.Mailer
	if cfg.Mail.Enabled {
		mailer = mail.NewSMTPMailer(cfg.Mail, logger)
	} else {
		mailer = mail.NewLogMailer(logger)
		logger.Info().Msg("SMTP disabled, emails will be logged only")
	}
	notifier := mail.NewNotifier(mailer, cfg.Mail.SenderName)

	// Order events
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, logger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	// Image storage; the S3 client is shared with the catalog loader
	var (
		images   storage.ImageStore = storage.DisabledImageStore{}
		s3Client *s3.Client
	)
	if cfg.S3.Enabled {
		s3Client, err = storage.NewS3Client(ctx, cfg.S3.Region)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialise S3 client, image uploads disabled")
		} else {
			images = storage.NewS3ImageStore(s3Client, cfg.S3, logger)
		}
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)
	otpRepo := repository.NewOTPRepository(pool, logger)

	// Initialize services
	hasher := auth.NewBcryptHasher(0)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	productService := service.NewProductService(productRepo, cartRepo, store, ttls, images, logger)
	cartService := service.NewCartService(cartRepo, productRepo, store, ttls, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, userRepo, store, ttls, publisher, logger)
	otpService := service.NewOTPService(otpRepo, hasher, notifier, cfg.OTP, logger)
	userService := service.NewUserService(userRepo, otpService, hasher, tokens, notifier, store, ttls, cfg.Auth, logger)

	// Seed an empty catalog when a seed file is configured
	if cfg.Seed.CatalogPath != "" {
		var s3Loader catalog.Loader
		if s3Client != nil {
			s3Loader = catalog.NewS3Loader(s3Client, cfg.S3.Bucket, logger)
		}
		loader := catalog.NewFallbackLoader(s3Loader, catalog.NewFileLoader(logger), catalogS3Prefix, logger)
		if _, err := catalog.NewSeeder(loader, productService, logger).Seed(ctx, cfg.Seed.CatalogPath); err != nil {
			logger.Warn().Err(err).Str("path", cfg.Seed.CatalogPath).Msg("catalog seed failed, continuing with existing catalog")
		}
	}

	go service.RunOTPSweeper(ctx, otpService, cfg.OTP.SweepInterval, logger)

	// Initialize HTTP handlers and router
	mux := router.New(router.Handlers{
		Auth:    handler.NewAuthHandler(userService, logger),
		User:    handler.NewUserHandler(userService, orderService, cartService, logger),
		Product: handler.NewProductHandler(productService, logger),
		Order:   handler.NewOrderHandler(orderService, logger),
		OTP:     handler.NewOTPHandler(otpService, logger),
	}, tokens, cfg.RateLimit, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Stop background work before draining requests
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newCache builds the configured cache backend and its closer.
func newCache(ctx context.Context, cfg config.CacheConfig, logger zerolog.Logger) (cache.Cache, func() error, error) {
	if cfg.Driver == "redis" {
		return cache.NewRedis(ctx, cfg.RedisURL, logger)
	}
	logger.Info().Msg("using in-memory cache")
	return cache.NewMemory(cfg.ProductsTTL, 10*time.Minute), func() error { return nil }, nil
}
