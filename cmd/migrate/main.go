// Command migrate applies the database schema and optionally seeds the
// product catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"eato/internal/cache"
	"eato/internal/catalog"
	"eato/internal/config"
	"eato/internal/database"
	"eato/internal/repository"
	"eato/internal/service"
	"eato/internal/storage"
)

const catalogS3Prefix = "catalog/"

func main() {
	seedPath := flag.String("seed", "", "catalog seed file (defaults to CATALOG_SEED_PATH)")
	flag.Parse()

	if err := run(*seedPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(seedPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if seedPath == "" {
		seedPath = cfg.Seed.CatalogPath
	}

	logger := config.NewLogger(cfg.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	var dbName string
	if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		return fmt.Errorf("failed to query database name: %w", err)
	}

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	fmt.Printf("Schema applied to database: %s\n", dbName)

	if seedPath == "" {
		fmt.Println("No catalog seed configured")
		return nil
	}

	var s3Loader catalog.Loader
	if cfg.S3.Enabled {
		client, err := storage.NewS3Client(ctx, cfg.S3.Region)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialise S3 client, seeding from local file system only")
		} else {
			s3Loader = catalog.NewS3Loader(client, cfg.S3.Bucket, logger)
		}
	}
	loader := catalog.NewFallbackLoader(s3Loader, catalog.NewFileLoader(logger), catalogS3Prefix, logger)

	products := service.NewProductService(
		repository.NewProductRepository(pool, logger),
		repository.NewCartRepository(pool, logger),
		cache.NewNoop(),
		cache.DefaultTTLs(),
		storage.DisabledImageStore{},
		logger,
	)

	created, err := catalog.NewSeeder(loader, products, logger).Seed(ctx, seedPath)
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	total, err := products.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	fmt.Printf("Seeded %d products from %s (%d in catalog)\n", created, seedPath, total)

	return nil
}
