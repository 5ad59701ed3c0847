package repository

import (
	"context"
	"testing"
	"time"

	"eato/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(id, email string) *model.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Order{
		ID:          id,
		Email:       email,
		TotalAmount: decimal.RequireFromString("11.10"),
		Status:      model.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	order := newTestOrder("ORD-abcdefghij", "jane@example.com")
	items := []model.OrderLine{
		{OrderID: order.ID, ProductID: "p1", ProductName: "Burger", Size: model.SizeSmall, Quantity: 3, Price: decimal.RequireFromString("3.33")},
		{OrderID: order.ID, ProductID: "p2", ProductName: "Cake", Size: model.SizeLarge, Quantity: 1, Price: decimal.RequireFromString("1.11")},
	}

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.CreateOrder(ctx, tx, order))
	require.NoError(t, repo.CreateOrderItems(ctx, tx, items))
	require.NoError(t, tx.Commit(ctx))

	assert.NotZero(t, items[0].ID)
	assert.True(t, decimal.RequireFromString("9.99").Equal(items[0].TotalAmount), "line total is computed by the database")

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "jane@example.com", got.Email)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.True(t, order.TotalAmount.Equal(got.TotalAmount))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Burger", got.Items[0].ProductName)
}

func TestOrderRepository_CreateOrder_Collision(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	require.NoError(t, repo.CreateOrder(ctx, tx, newTestOrder("ORD-samesame00", "a@example.com")))
	err = repo.CreateOrder(ctx, tx, newTestOrder("ORD-samesame00", "b@example.com"))
	assert.ErrorIs(t, err, model.ErrIDConflict)

	require.NoError(t, repo.CreateOrder(ctx, tx, newTestOrder("ORD-different0", "b@example.com")))
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	order := newTestOrder("ORD-status0001", "jane@example.com")
	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.CreateOrder(ctx, tx, order))
	require.NoError(t, tx.Commit(ctx))

	tx, err = repo.BeginTx(ctx)
	require.NoError(t, err)
	locked, err := repo.GetForUpdate(ctx, tx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, locked)
	require.NoError(t, repo.UpdateStatus(ctx, tx, order.ID, model.StatusShipped, time.Now()))
	require.NoError(t, tx.Commit(ctx))

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusShipped, got.Status)
	assert.Empty(t, got.Items)

	tx, err = repo.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	missing, err := repo.GetForUpdate(ctx, tx, "ORD-missing000")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOrderRepository_ListByEmail(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	older := newTestOrder("ORD-older00000", "jane@example.com")
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	newer := newTestOrder("ORD-newer00000", "jane@example.com")
	other := newTestOrder("ORD-other00000", "john@example.com")

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	for _, o := range []*model.Order{older, newer, other} {
		require.NoError(t, repo.CreateOrder(ctx, tx, o))
	}
	require.NoError(t, repo.CreateOrderItems(ctx, tx, []model.OrderLine{
		{OrderID: older.ID, ProductID: "p1", ProductName: "Burger", Size: model.SizeSmall, Quantity: 1, Price: decimal.RequireFromString("2.00")},
	}))
	require.NoError(t, tx.Commit(ctx))

	orders, err := repo.ListByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, newer.ID, orders[0].ID)
	assert.Empty(t, orders[0].Items)
	assert.Len(t, orders[1].Items, 1)

	none, err := repo.ListByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, none)
}
