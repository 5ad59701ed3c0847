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

const cartColumns = `id, email, product_id, product_title, product_image_url, size, price, quantity, total_price, added_at`

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *cartRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(ctx, r.pool, r.logger)
}

func scanCartLine(row pgx.Row) (*model.CartLine, error) {
	var l model.CartLine
	err := row.Scan(
		&l.ID,
		&l.Email,
		&l.ProductID,
		&l.ProductTitle,
		&l.ProductImageURL,
		&l.Size,
		&l.Price,
		&l.Quantity,
		&l.TotalPrice,
		&l.AddedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListByEmail returns every cart line of a customer, oldest first.
func (r *cartRepository) ListByEmail(ctx context.Context, email string) ([]model.CartLine, error) {
	query := `SELECT ` + cartColumns + ` FROM cart WHERE email = $1 ORDER BY added_at, id`

	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		r.logger.Error().Err(err).Str("email", email).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	lines := make([]model.CartLine, 0)
	for rows.Next() {
		l, err := scanCartLine(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart row")
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, *l)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart rows")
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}

	return lines, nil
}

// GetForUpdate locks and returns one cart line.
func (r *cartRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, email, productID string, size model.Size) (*model.CartLine, error) {
	query := `SELECT ` + cartColumns + `
		FROM cart
		WHERE email = $1 AND product_id = $2 AND size = $3
		FOR UPDATE`

	line, err := scanCartLine(tx.QueryRow(ctx, query, email, productID, size))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().
			Err(err).
			Str("email", email).
			Str("product_id", productID).
			Str("size", string(size)).
			Msg("failed to lock cart line")
		return nil, fmt.Errorf("failed to query cart line: %w", err)
	}
	return line, nil
}

// Insert adds a cart line, merging with a concurrently inserted twin.
func (r *cartRepository) Insert(ctx context.Context, tx pgx.Tx, line *model.CartLine) error {
	query := `
		INSERT INTO cart (email, product_id, product_title, product_image_url, size, price, quantity, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (email, product_id, size)
		DO UPDATE SET quantity = cart.quantity + EXCLUDED.quantity
		RETURNING id, quantity, total_price
	`

	err := tx.QueryRow(ctx, query,
		line.Email,
		line.ProductID,
		line.ProductTitle,
		line.ProductImageURL,
		line.Size,
		line.Price,
		line.Quantity,
		line.AddedAt,
	).Scan(&line.ID, &line.Quantity, &line.TotalPrice)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("email", line.Email).
			Str("product_id", line.ProductID).
			Msg("failed to insert cart line")
		return fmt.Errorf("failed to insert cart line: %w", err)
	}

	return nil
}

// UpdateQuantity sets the quantity of a cart line.
func (r *cartRepository) UpdateQuantity(ctx context.Context, tx pgx.Tx, id int64, quantity int) error {
	if _, err := tx.Exec(ctx, "UPDATE cart SET quantity = $2 WHERE id = $1", id, quantity); err != nil {
		r.logger.Error().Err(err).Int64("cart_id", id).Msg("failed to update cart line")
		return fmt.Errorf("failed to update cart line: %w", err)
	}
	return nil
}

// Delete removes a cart line.
func (r *cartRepository) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	if _, err := tx.Exec(ctx, "DELETE FROM cart WHERE id = $1", id); err != nil {
		r.logger.Error().Err(err).Int64("cart_id", id).Msg("failed to delete cart line")
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	return nil
}

// DeleteByProduct removes every line referencing a product.
func (r *cartRepository) DeleteByProduct(ctx context.Context, tx pgx.Tx, productID string) ([]string, error) {
	rows, err := tx.Query(ctx, "DELETE FROM cart WHERE product_id = $1 RETURNING email", productID)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", productID).Msg("failed to delete cart lines")
		return nil, fmt.Errorf("failed to delete cart lines: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan cart email: %w", err)
		}
		if !seen[email] {
			seen[email] = true
			emails = append(emails, email)
		}
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Str("product_id", productID).Msg("error iterating deleted cart rows")
		return nil, fmt.Errorf("error iterating deleted cart lines: %w", err)
	}

	return emails, nil
}
