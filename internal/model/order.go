package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

// ParseOrderStatus matches s against the known statuses ignoring case and
// surrounding whitespace.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	s = strings.TrimSpace(s)
	for _, st := range OrderStatuses {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

// Order represents a placed order.
type Order struct {
	ID          string          `json:"orderId"`
	Email       string          `json:"email"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Items       []OrderLine     `json:"orderItems"`
}

// OrderLine is an immutable snapshot of one purchased product size.
type OrderLine struct {
	ID          int64           `json:"itemId"`
	OrderID     string          `json:"orderId"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Size        Size            `json:"size"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// OrderRequest is the body of a place-order request.
type OrderRequest struct {
	Items []OrderItemRequest `json:"items"`
}

// OrderItemRequest groups the sizes ordered for one product.
type OrderItemRequest struct {
	ProductID      string               `json:"productId"`
	ProductDetails []OrderDetailRequest `json:"productDetails"`
}

// OrderDetailRequest is one size and quantity of a product.
type OrderDetailRequest struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// OrderResponse is returned after a successful placement.
type OrderResponse struct {
	OrderID     string          `json:"orderId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Items       []OrderLine     `json:"orderItems"`
}

// StatusUpdateRequest changes the status of an order.
type StatusUpdateRequest struct {
	OrderID string `json:"orderId" validate:"required"`
	Status  string `json:"status" validate:"required"`
}

// StatusUpdateResponse reports a status transition.
type StatusUpdateResponse struct {
	OrderID        string      `json:"orderId"`
	PreviousStatus OrderStatus `json:"previousStatus"`
	NewStatus      OrderStatus `json:"newStatus"`
}
