package repository

import (
	"context"
	"errors"
	"fmt"

	"eato/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *productRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(ctx, r.pool, r.logger)
}

// List returns every product with all of its sizes, newest first.
func (r *productRepository) List(ctx context.Context) ([]model.Product, error) {
	query := `
		SELECT product_id, product_type, title, image_url, created_at
		FROM products
		ORDER BY created_at DESC, product_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0)
	index := make(map[string]int)
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Category, &p.Title, &p.ImageURL, &p.CreatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Sizes = []model.ProductSize{}
		index[p.ID] = len(products)
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	if len(products) == 0 {
		return products, nil
	}

	sizes, err := r.sizes(ctx, r.pool, nil)
	if err != nil {
		return nil, err
	}
	for _, s := range sizes {
		if i, ok := index[s.ProductID]; ok {
			products[i].Sizes = append(products[i].Sizes, s)
		}
	}

	r.logger.Debug().Int("count", len(products)).Msg("retrieved products")

	return products, nil
}

// GetByID returns a product with all of its sizes.
func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	return r.get(ctx, r.pool, id, false)
}

// GetForUpdate locks a product row and returns it with its sizes.
func (r *productRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*model.Product, error) {
	return r.get(ctx, tx, id, true)
}

func (r *productRepository) get(ctx context.Context, q querier, id string, lock bool) (*model.Product, error) {
	query := `
		SELECT product_id, product_type, title, image_url, created_at
		FROM products
		WHERE product_id = $1
	`
	if lock {
		query += " FOR UPDATE"
	}

	var p model.Product
	err := q.QueryRow(ctx, query, id).Scan(&p.ID, &p.Category, &p.Title, &p.ImageURL, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	sizes, err := r.sizes(ctx, q, &id)
	if err != nil {
		return nil, err
	}
	p.Sizes = sizes

	return &p, nil
}

// sizes loads size rows for one product, or for all products when id is nil,
// in small/medium/large order.
func (r *productRepository) sizes(ctx context.Context, q querier, id *string) ([]model.ProductSize, error) {
	query := `
		SELECT product_id, size, price, is_available
		FROM product_sizes
		WHERE ($1::text IS NULL OR product_id = $1)
		ORDER BY product_id, array_position(ARRAY['small', 'medium', 'large']::text[], size::text)
	`

	rows, err := q.Query(ctx, query, id)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query product sizes")
		return nil, fmt.Errorf("failed to query product sizes: %w", err)
	}
	defer rows.Close()

	sizes := make([]model.ProductSize, 0)
	for rows.Next() {
		var s model.ProductSize
		if err := rows.Scan(&s.ProductID, &s.Size, &s.Price, &s.IsAvailable); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product size row")
			return nil, fmt.Errorf("failed to scan product size: %w", err)
		}
		sizes = append(sizes, s)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product size rows")
		return nil, fmt.Errorf("error iterating product sizes: %w", err)
	}

	return sizes, nil
}

// Count returns the number of products in the catalog.
func (r *productRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM products").Scan(&count); err != nil {
		r.logger.Error().Err(err).Msg("failed to count products")
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// Create inserts a product row within the provided transaction.
func (r *productRepository) Create(ctx context.Context, tx pgx.Tx, product *model.Product) error {
	query := `
		INSERT INTO products (product_id, product_type, title, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id) DO NOTHING
	`

	tag, err := tx.Exec(ctx, query, product.ID, product.Category, product.Title, product.ImageURL, product.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", product.ID).Msg("failed to create product")
		return fmt.Errorf("failed to create product: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Debug().Str("product_id", product.ID).Msg("product id collision")
		return model.ErrIDConflict
	}

	return nil
}

// UpsertSizes inserts or replaces size rows within the provided transaction.
func (r *productRepository) UpsertSizes(ctx context.Context, tx pgx.Tx, sizes []model.ProductSize) error {
	if len(sizes) == 0 {
		return nil
	}

	query := `
		INSERT INTO product_sizes (product_id, size, price, is_available)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, size)
		DO UPDATE SET price = EXCLUDED.price, is_available = EXCLUDED.is_available
	`

	batch := &pgx.Batch{}
	for _, s := range sizes {
		batch.Queue(query, s.ProductID, s.Size, s.Price, s.IsAvailable)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := range sizes {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("product_id", sizes[i].ProductID).
				Str("size", string(sizes[i].Size)).
				Msg("failed to upsert product size")
			return fmt.Errorf("failed to upsert product size: %w", err)
		}
	}

	return nil
}

// Update replaces the descriptive fields of a product.
func (r *productRepository) Update(ctx context.Context, tx pgx.Tx, product *model.Product) error {
	query := `
		UPDATE products
		SET product_type = $2, title = $3, image_url = $4
		WHERE product_id = $1
	`

	if _, err := tx.Exec(ctx, query, product.ID, product.Category, product.Title, product.ImageURL); err != nil {
		r.logger.Error().Err(err).Str("product_id", product.ID).Msg("failed to update product")
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// DeleteSizesExcept removes every size of a product not listed in keep.
func (r *productRepository) DeleteSizesExcept(ctx context.Context, tx pgx.Tx, productID string, keep []model.Size) error {
	names := make([]string, len(keep))
	for i, s := range keep {
		names[i] = string(s)
	}

	query := `DELETE FROM product_sizes WHERE product_id = $1 AND NOT (size = ANY($2))`

	tag, err := tx.Exec(ctx, query, productID, names)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", productID).Msg("failed to delete product sizes")
		return fmt.Errorf("failed to delete product sizes: %w", err)
	}

	r.logger.Debug().
		Str("product_id", productID).
		Int64("removed", tag.RowsAffected()).
		Msg("pruned product sizes")

	return nil
}

// Delete removes a product; sizes cascade.
func (r *productRepository) Delete(ctx context.Context, tx pgx.Tx, id string) (bool, error) {
	tag, err := tx.Exec(ctx, "DELETE FROM products WHERE product_id = $1", id)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to delete product")
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
