package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one product size in a customer's cart.
type CartLine struct {
	ID              int64           `json:"id"`
	Email           string          `json:"email"`
	ProductID       string          `json:"productId"`
	ProductTitle    string          `json:"productTitle"`
	ProductImageURL string          `json:"productImageUrl"`
	Size            Size            `json:"size"`
	Price           decimal.Decimal `json:"price"`
	Quantity        int             `json:"quantity"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	AddedAt         time.Time       `json:"addedAt"`
}

// Cart is the customer's full cart view.
type Cart struct {
	Items       []CartLine      `json:"items"`
	ItemCount   int             `json:"itemCount"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// NewCart builds a cart view from its lines.
func NewCart(lines []CartLine) *Cart {
	cart := &Cart{Items: lines, TotalAmount: decimal.Zero}
	if cart.Items == nil {
		cart.Items = []CartLine{}
	}
	for _, l := range lines {
		cart.ItemCount += l.Quantity
		cart.TotalAmount = cart.TotalAmount.Add(l.TotalPrice)
	}
	return cart
}

// CartUpdateRequest applies signed quantity deltas to the cart.
type CartUpdateRequest struct {
	Items []CartItemRequest `json:"items"`
}

// CartItemRequest is one delta; Quantity may be negative.
type CartItemRequest struct {
	ProductID   string `json:"productId"`
	ProductSize string `json:"productSize"`
	Quantity    int    `json:"quantity"`
}

// CartAction is the outcome of applying one delta.
type CartAction string

const (
	CartAdded   CartAction = "added"
	CartUpdated CartAction = "updated"
	CartRemoved CartAction = "removed"
	CartSkipped CartAction = "skipped"
)

// CartItemResult describes what happened to one requested delta.
type CartItemResult struct {
	ProductID   string     `json:"productId"`
	ProductSize Size       `json:"productSize"`
	Action      CartAction `json:"action"`
	Quantity    int        `json:"quantity"`
}

// CartSummary counts outcomes by action.
type CartSummary struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
	Skipped int `json:"skipped"`
}

// CartUpdateResponse is returned after applying deltas.
type CartUpdateResponse struct {
	Items   []CartItemResult `json:"items"`
	Summary CartSummary      `json:"summary"`
}

// Record appends r and bumps the matching counter.
func (c *CartUpdateResponse) Record(r CartItemResult) {
	c.Items = append(c.Items, r)
	switch r.Action {
	case CartAdded:
		c.Summary.Added++
	case CartUpdated:
		c.Summary.Updated++
	case CartRemoved:
		c.Summary.Removed++
	case CartSkipped:
		c.Summary.Skipped++
	}
}
