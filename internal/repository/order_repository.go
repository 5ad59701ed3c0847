package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eato/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(ctx, r.pool, r.logger)
}

// CreateOrder inserts a new order within the provided transaction. The
// insert skips on an id collision so the surrounding transaction stays usable.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (order_id, email, total_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO NOTHING
	`

	tag, err := tx.Exec(ctx, query,
		order.ID,
		order.Email,
		order.TotalAmount,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Warn().Str("order_id", order.ID).Msg("order id collision")
		return model.ErrIDConflict
	}

	r.logger.Debug().
		Str("order_id", order.ID).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order lines within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderLine) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (order_id, product_id, product_name, product_size, quantity, price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING item_id, total_amount
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.OrderID, item.ProductID, item.ProductName, item.Size, item.Quantity, item.Price)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := range items {
		if err := results.QueryRow().Scan(&items[i].ID, &items[i].TotalAmount); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID).
				Str("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetByID retrieves an order by its ID along with its lines.
func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	order, err := r.header(ctx, r.pool, id, false)
	if err != nil || order == nil {
		return order, err
	}

	lines, err := r.lines(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	order.Items = lines[id]
	if order.Items == nil {
		order.Items = []model.OrderLine{}
	}

	return order, nil
}

// GetForUpdate locks an order header row.
func (r *orderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*model.Order, error) {
	return r.header(ctx, tx, id, true)
}

func (r *orderRepository) header(ctx context.Context, q querier, id string, lock bool) (*model.Order, error) {
	query := `
		SELECT order_id, email, total_amount, status, created_at, updated_at
		FROM orders
		WHERE order_id = $1
	`
	if lock {
		query += " FOR UPDATE"
	}

	var order model.Order
	err := q.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.Email,
		&order.TotalAmount,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return &order, nil
}

// UpdateStatus sets the status of an order.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status model.OrderStatus, at time.Time) error {
	query := `UPDATE orders SET status = $2, updated_at = $3 WHERE order_id = $1`

	if _, err := tx.Exec(ctx, query, id, status, at); err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id).
			Str("status", string(status)).
			Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return nil
}

// ListByEmail returns a customer's orders with lines, newest first.
func (r *orderRepository) ListByEmail(ctx context.Context, email string) ([]model.Order, error) {
	query := `
		SELECT order_id, email, total_amount, status, created_at, updated_at
		FROM orders
		WHERE email = $1
		ORDER BY created_at DESC, order_id
	`

	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		r.logger.Error().Err(err).Str("email", email).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]model.Order, 0)
	var ids []string
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.Email, &o.TotalAmount, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if len(ids) == 0 {
		return orders, nil
	}

	lines, err := r.lines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = lines[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []model.OrderLine{}
		}
	}

	return orders, nil
}

// lines loads the order lines of the given orders keyed by order id.
func (r *orderRepository) lines(ctx context.Context, orderIDs []string) (map[string][]model.OrderLine, error) {
	query := `
		SELECT item_id, order_id, product_id, product_name, product_size, quantity, price, total_amount
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY item_id
	`

	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		r.logger.Error().Err(err).Int("order_count", len(orderIDs)).Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.OrderLine, len(orderIDs))
	for rows.Next() {
		var item model.OrderLine
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Size,
			&item.Quantity,
			&item.Price,
			&item.TotalAmount,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		out[item.OrderID] = append(out[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return out, nil
}
