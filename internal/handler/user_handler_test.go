package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"eato/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type userFixture struct {
	users  *MockUserService
	orders *MockOrderService
	carts  *MockCartService
	h      *UserHandler
}

func newUserFixture() *userFixture {
	f := &userFixture{
		users:  new(MockUserService),
		orders: new(MockOrderService),
		carts:  new(MockCartService),
	}
	f.h = NewUserHandler(f.users, f.orders, f.carts, zerolog.Nop())
	return f
}

func TestUserHandler_List(t *testing.T) {
	f := newUserFixture()
	f.users.On("List", mock.Anything).Return([]model.User{
		{ID: 1, Email: "admin@eato.test", Role: model.RoleAdmin},
		{ID: 7, Email: "jane@example.com", Role: model.RoleUser, PasswordHash: "$2a$10$hash"},
	}, nil)

	w := httptest.NewRecorder()
	f.h.List(w, newRequest(t, http.MethodGet, "/api/users", nil, &admin))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[[]model.User](t, w), 2)
	assert.NotContains(t, w.Body.String(), "$2a$10$hash")
}

func TestUserHandler_GetByID(t *testing.T) {
	tests := []struct {
		name           string
		pathID         string
		expectService  bool
		mockReturn     *model.User
		mockError      error
		expectedStatus int
	}{
		{name: "Found", pathID: "7", expectService: true, mockReturn: &model.User{ID: 7}, expectedStatus: http.StatusOK},
		{name: "Missing", pathID: "8", expectService: true, mockError: model.ErrUserNotFound, expectedStatus: http.StatusNotFound},
		{name: "Not a number", pathID: "abc", expectedStatus: http.StatusBadRequest},
		{name: "Zero", pathID: "0", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserFixture()
			if tt.expectService {
				f.users.On("Get", mock.Anything, mock.AnythingOfType("int64")).Return(tt.mockReturn, tt.mockError)
			}

			req := newRequest(t, http.MethodGet, "/api/users/"+tt.pathID, nil, &admin)
			req.SetPathValue("id", tt.pathID)
			w := httptest.NewRecorder()
			f.h.GetByID(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			f.users.AssertExpectations(t)
		})
	}
}

func TestUserHandler_OrderHistory(t *testing.T) {
	f := newUserFixture()
	f.orders.On("ListByUser", mock.Anything, int64(7)).Return([]model.Order{{ID: "ord-2"}, {ID: "ord-1"}}, nil)
	f.orders.On("ListByUser", mock.Anything, int64(404)).Return(nil, model.ErrUserNotFound)

	req := newRequest(t, http.MethodGet, "/api/users/7/order-history", nil, &admin)
	req.SetPathValue("id", "7")
	w := httptest.NewRecorder()
	f.h.OrderHistory(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	orders := decodeBody[[]model.Order](t, w)
	require.Len(t, orders, 2)
	assert.Equal(t, "ord-2", orders[0].ID)

	req = newRequest(t, http.MethodGet, "/api/users/404/order-history", nil, &admin)
	req.SetPathValue("id", "404")
	w = httptest.NewRecorder()
	f.h.OrderHistory(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.orders.AssertExpectations(t)
}

func TestUserHandler_MyOrders(t *testing.T) {
	f := newUserFixture()
	f.orders.On("ListByEmail", mock.Anything, customer.Email).Return([]model.Order{}, nil)

	w := httptest.NewRecorder()
	f.h.MyOrders(w, newRequest(t, http.MethodGet, "/api/users/my-orders", nil, &customer))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
	f.orders.AssertExpectations(t)
}

func TestUserHandler_AddToCart(t *testing.T) {
	body := &model.CartUpdateRequest{Items: []model.CartItemRequest{
		{ProductID: "margherita", ProductSize: "small", Quantity: 2},
		{ProductID: "margherita", ProductSize: "large", Quantity: -1},
	}}

	tests := []struct {
		name           string
		body           any
		identity       *model.Identity
		mockReturn     *model.CartUpdateResponse
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:     "Applied",
			body:     body,
			identity: &customer,
			mockReturn: &model.CartUpdateResponse{
				Items: []model.CartItemResult{
					{ProductID: "margherita", ProductSize: model.SizeSmall, Action: model.CartAdded, Quantity: 2},
					{ProductID: "margherita", ProductSize: model.SizeLarge, Action: model.CartSkipped},
				},
				Summary: model.CartSummary{Added: 1, Skipped: 1},
			},
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Duplicate item",
			body:           body,
			identity:       &customer,
			mockError:      model.NewDomainError(model.ErrCodeDuplicateItem, "Duplicate item in request"),
			expectedStatus: http.StatusBadRequest,
			expectService:  true,
		},
		{name: "Invalid JSON", body: "nope", identity: &customer, expectedStatus: http.StatusBadRequest},
		{name: "No identity", body: body, expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserFixture()
			if tt.expectService {
				f.carts.On("Apply", mock.Anything, customer.Email, body).Return(tt.mockReturn, tt.mockError)
			}

			w := httptest.NewRecorder()
			f.h.AddToCart(w, newRequest(t, http.MethodPut, "/api/users/add-to-cart", tt.body, tt.identity))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.mockReturn != nil {
				assert.Equal(t, *tt.mockReturn, decodeBody[model.CartUpdateResponse](t, w))
			}
			f.carts.AssertExpectations(t)
		})
	}
}

func TestUserHandler_Cart(t *testing.T) {
	f := newUserFixture()
	cart := model.NewCart([]model.CartLine{{
		ProductID:  "margherita",
		Size:       model.SizeSmall,
		Quantity:   2,
		Price:      decimal.RequireFromString("4.50"),
		TotalPrice: decimal.RequireFromString("9.00"),
	}})
	f.carts.On("Get", mock.Anything, customer.Email).Return(cart, nil)

	w := httptest.NewRecorder()
	f.h.Cart(w, newRequest(t, http.MethodGet, "/api/users/cart", nil, &customer))

	assert.Equal(t, http.StatusOK, w.Code)
	got := decodeBody[model.Cart](t, w)
	assert.Equal(t, 2, got.ItemCount)
	assert.True(t, decimal.RequireFromString("9").Equal(got.TotalAmount))
	f.carts.AssertExpectations(t)
}
