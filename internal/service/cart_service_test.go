package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"eato/internal/cache"
	"eato/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const shopper = "jane@example.com"

type cartFixture struct {
	carts    *MockCartRepository
	products *MockProductRepository
	cache    cache.Cache
	tx       *MockTx
	svc      *cartService
}

func newCartFixture() *cartFixture {
	f := &cartFixture{
		carts:    new(MockCartRepository),
		products: new(MockProductRepository),
		cache:    cache.NewMemory(time.Minute, time.Minute),
		tx:       new(MockTx),
	}
	f.svc = NewCartService(f.carts, f.products, f.cache, cache.DefaultTTLs(), zerolog.Nop()).(*cartService)
	f.svc.now = func() time.Time { return fixedNow }

	f.products.On("GetByID", mock.Anything, "burger0001").Return(testProduct("burger0001", "Classic Burger",
		model.ProductSize{Size: model.SizeSmall, Price: price("3.50"), IsAvailable: true},
		model.ProductSize{Size: model.SizeMedium, Price: price("4.50"), IsAvailable: true},
		model.ProductSize{Size: model.SizeLarge, Price: price("6.50"), IsAvailable: false},
	), nil).Maybe()
	f.products.On("GetByID", mock.Anything, "missing001").Return(nil, nil).Maybe()
	return f
}

func cartItems(items ...model.CartItemRequest) *model.CartUpdateRequest {
	return &model.CartUpdateRequest{Items: items}
}

func TestCartService_Apply_AddsNewLine(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()

	f.carts.On("BeginTx", ctx).Return(f.tx, nil)
	f.carts.On("GetForUpdate", ctx, f.tx, shopper, "burger0001", model.SizeSmall).Return(nil, nil)
	f.carts.On("Insert", ctx, f.tx, mock.MatchedBy(func(l *model.CartLine) bool {
		return l.Email == shopper &&
			l.ProductTitle == "Classic Burger" &&
			l.Price.Equal(price("3.50")) &&
			l.Quantity == 2 &&
			l.AddedAt.Equal(fixedNow)
	})).Return(nil)
	f.tx.On("Commit", ctx).Return(nil)

	require.NoError(t, f.cache.Set(ctx, cache.CartKey(shopper), model.NewCart(nil), time.Hour))

	resp, err := f.svc.Apply(ctx, shopper, cartItems(model.CartItemRequest{ProductID: "burger0001", ProductSize: "Small", Quantity: 2}))

	require.NoError(t, err)
	assert.Equal(t, []model.CartItemResult{{
		ProductID: "burger0001", ProductSize: model.SizeSmall, Action: model.CartAdded, Quantity: 2,
	}}, resp.Items)
	assert.Equal(t, model.CartSummary{Added: 1}, resp.Summary)

	var cart model.Cart
	found, _ := f.cache.Get(ctx, cache.CartKey(shopper), &cart)
	assert.False(t, found)
	assert.True(t, f.tx.committed)
}

func TestCartService_Apply_Deltas(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		existing *model.CartLine
		delta    int
		action   model.CartAction
		quantity int
		setup    func(f *cartFixture)
	}{
		{
			name:     "increments existing line",
			existing: &model.CartLine{ID: 41, Quantity: 2},
			delta:    3,
			action:   model.CartUpdated,
			quantity: 5,
			setup: func(f *cartFixture) {
				f.carts.On("UpdateQuantity", ctx, f.tx, int64(41), 5).Return(nil)
			},
		},
		{
			name:     "decrements existing line",
			existing: &model.CartLine{ID: 41, Quantity: 4},
			delta:    -1,
			action:   model.CartUpdated,
			quantity: 3,
			setup: func(f *cartFixture) {
				f.carts.On("UpdateQuantity", ctx, f.tx, int64(41), 3).Return(nil)
			},
		},
		{
			name:     "removes line that reaches zero",
			existing: &model.CartLine{ID: 41, Quantity: 2},
			delta:    -2,
			action:   model.CartRemoved,
			setup: func(f *cartFixture) {
				f.carts.On("Delete", ctx, f.tx, int64(41)).Return(nil)
			},
		},
		{
			name:     "clamps overshoot and removes",
			existing: &model.CartLine{ID: 41, Quantity: 2},
			delta:    -5,
			action:   model.CartRemoved,
			setup: func(f *cartFixture) {
				f.carts.On("Delete", ctx, f.tx, int64(41)).Return(nil)
			},
		},
		{
			name:   "skips negative delta on absent line",
			delta:  -1,
			action: model.CartSkipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCartFixture()
			f.carts.On("BeginTx", ctx).Return(f.tx, nil)
			if tt.existing != nil {
				f.carts.On("GetForUpdate", ctx, f.tx, shopper, "burger0001", model.SizeMedium).Return(tt.existing, nil)
			} else {
				f.carts.On("GetForUpdate", ctx, f.tx, shopper, "burger0001", model.SizeMedium).Return(nil, nil)
			}
			if tt.setup != nil {
				tt.setup(f)
			}
			f.tx.On("Commit", ctx).Return(nil)

			resp, err := f.svc.Apply(ctx, shopper, cartItems(model.CartItemRequest{ProductID: "burger0001", ProductSize: "medium", Quantity: tt.delta}))

			require.NoError(t, err)
			require.Len(t, resp.Items, 1)
			assert.Equal(t, tt.action, resp.Items[0].Action)
			assert.Equal(t, tt.quantity, resp.Items[0].Quantity)
			f.carts.AssertExpectations(t)
			f.carts.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCartService_Apply_MixedSummary(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()

	f.carts.On("BeginTx", ctx).Return(f.tx, nil)
	f.carts.On("GetForUpdate", ctx, f.tx, shopper, "burger0001", model.SizeSmall).Return(nil, nil)
	f.carts.On("GetForUpdate", ctx, f.tx, shopper, "burger0001", model.SizeMedium).Return(&model.CartLine{ID: 7, Quantity: 1}, nil)
	f.carts.On("Insert", ctx, f.tx, mock.Anything).Return(nil)
	f.carts.On("Delete", ctx, f.tx, int64(7)).Return(nil)
	f.tx.On("Commit", ctx).Return(nil)

	resp, err := f.svc.Apply(ctx, shopper, cartItems(
		model.CartItemRequest{ProductID: "burger0001", ProductSize: "small", Quantity: 1},
		model.CartItemRequest{ProductID: "burger0001", ProductSize: "medium", Quantity: -3},
	))

	require.NoError(t, err)
	assert.Equal(t, model.CartSummary{Added: 1, Removed: 1}, resp.Summary)
	f.products.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestCartService_Apply_LocksInStableOrder(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()
	f.products.On("GetByID", mock.Anything, "alfredo001").Return(testProduct("alfredo001", "Alfredo Pizza",
		model.ProductSize{Size: model.SizeLarge, Price: price("11.00"), IsAvailable: true},
	), nil)

	var locked []string
	record := func(args mock.Arguments) {
		locked = append(locked, args.String(3)+"/"+string(args.Get(4).(model.Size)))
	}
	f.carts.On("BeginTx", ctx).Return(f.tx, nil)
	for _, key := range []struct {
		id   string
		size model.Size
	}{{"burger0001", model.SizeSmall}, {"burger0001", model.SizeMedium}, {"alfredo001", model.SizeLarge}} {
		f.carts.On("GetForUpdate", ctx, f.tx, shopper, key.id, key.size).Run(record).Return(nil, nil)
	}
	f.carts.On("Insert", ctx, f.tx, mock.Anything).Return(nil)
	f.tx.On("Commit", ctx).Return(nil)

	resp, err := f.svc.Apply(ctx, shopper, cartItems(
		model.CartItemRequest{ProductID: "burger0001", ProductSize: "small", Quantity: 1},
		model.CartItemRequest{ProductID: "burger0001", ProductSize: "medium", Quantity: 1},
		model.CartItemRequest{ProductID: "alfredo001", ProductSize: "large", Quantity: 1},
	))

	require.NoError(t, err)
	assert.Equal(t, []string{"alfredo001/large", "burger0001/medium", "burger0001/small"}, locked)
	require.Len(t, resp.Items, 3)
	assert.Equal(t, "burger0001", resp.Items[0].ProductID, "results keep request order")
	assert.Equal(t, model.SizeSmall, resp.Items[0].ProductSize)
	assert.Equal(t, "alfredo001", resp.Items[2].ProductID)
}

func TestCartService_Apply_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		req  *model.CartUpdateRequest
		code string
	}{
		{name: "nil request", req: nil, code: model.ErrCodeMissingField},
		{name: "no items", req: cartItems(), code: model.ErrCodeMissingField},
		{
			name: "missing product",
			req:  cartItems(model.CartItemRequest{ProductSize: "small", Quantity: 1}),
			code: model.ErrCodeMissingField,
		},
		{
			name: "invalid size",
			req:  cartItems(model.CartItemRequest{ProductID: "burger0001", ProductSize: "xl", Quantity: 1}),
			code: model.ErrCodeInvalidSize,
		},
		{
			name: "zero delta",
			req:  cartItems(model.CartItemRequest{ProductID: "burger0001", ProductSize: "small"}),
			code: model.ErrCodeInvalidQuantity,
		},
		{
			name: "duplicate pair",
			req: cartItems(
				model.CartItemRequest{ProductID: "burger0001", ProductSize: "small", Quantity: 1},
				model.CartItemRequest{ProductID: "BURGER0001", ProductSize: "Small", Quantity: 2},
			),
			code: model.ErrCodeDuplicateItem,
		},
		{
			name: "unknown product",
			req:  cartItems(model.CartItemRequest{ProductID: "missing001", ProductSize: "small", Quantity: 1}),
			code: model.ErrCodeProductNotFound,
		},
		{
			name: "unavailable size",
			req:  cartItems(model.CartItemRequest{ProductID: "burger0001", ProductSize: "large", Quantity: 1}),
			code: model.ErrCodeSizeUnavailable,
		},
		{
			name: "one bad item rejects the batch",
			req: cartItems(
				model.CartItemRequest{ProductID: "burger0001", ProductSize: "small", Quantity: 1},
				model.CartItemRequest{ProductID: "missing001", ProductSize: "small", Quantity: 1},
			),
			code: model.ErrCodeProductNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCartFixture()

			resp, err := f.svc.Apply(ctx, shopper, tt.req)

			assert.Nil(t, resp)
			var domainErr *model.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.code, domainErr.Code)
			f.carts.AssertNotCalled(t, "BeginTx", mock.Anything)
		})
	}
}

func TestCartService_Apply_RollsBackOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()

	f.carts.On("BeginTx", ctx).Return(f.tx, nil)
	f.carts.On("GetForUpdate", ctx, f.tx, shopper, "burger0001", model.SizeSmall).Return(nil, nil)
	f.carts.On("Insert", ctx, f.tx, mock.Anything).Return(errors.New("disk full"))
	f.tx.On("Rollback", ctx).Return(nil)

	require.NoError(t, f.cache.Set(ctx, cache.CartKey(shopper), model.NewCart(nil), time.Hour))

	_, err := f.svc.Apply(ctx, shopper, cartItems(model.CartItemRequest{ProductID: "burger0001", ProductSize: "small", Quantity: 1}))

	require.Error(t, err)
	assert.True(t, f.tx.rolledBack)
	assert.False(t, f.tx.committed)

	var cart model.Cart
	found, _ := f.cache.Get(ctx, cache.CartKey(shopper), &cart)
	assert.True(t, found, "cache stays untouched when nothing was written")
}

func TestCartService_Get(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()

	f.carts.On("ListByEmail", ctx, shopper).Return([]model.CartLine{
		{ID: 1, ProductID: "burger0001", Size: model.SizeSmall, Price: price("3.50"), Quantity: 2, TotalPrice: price("7.00")},
		{ID: 2, ProductID: "burger0001", Size: model.SizeMedium, Price: price("4.50"), Quantity: 1, TotalPrice: price("4.50")},
	}, nil).Once()

	cart, err := f.svc.Get(ctx, shopper)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.ItemCount)
	assert.True(t, cart.TotalAmount.Equal(price("11.50")))

	cached, err := f.svc.Get(ctx, shopper)
	require.NoError(t, err)
	assert.Len(t, cached.Items, 2)
	f.carts.AssertNumberOfCalls(t, "ListByEmail", 1)
}

func TestCartService_Get_Empty(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture()
	f.carts.On("ListByEmail", ctx, "new@example.com").Return(nil, nil)

	cart, err := f.svc.Get(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.NotNil(t, cart.Items)
	assert.True(t, cart.TotalAmount.IsZero())
}
