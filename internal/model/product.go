package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category is the product family shown in the storefront.
type Category string

const (
	CategoryBurger Category = "burger"
	CategoryPizza  Category = "pizza"
	CategoryCake   Category = "cake"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryBurger, CategoryPizza, CategoryCake:
		return true
	}
	return false
}

// Size is a product size variant.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// Sizes lists every size in display order.
var Sizes = []Size{SizeSmall, SizeMedium, SizeLarge}

// Valid reports whether s is a known size.
func (s Size) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// Product represents a catalog entry.
type Product struct {
	ID        string        `json:"productId"`
	Category  Category      `json:"productType"`
	Title     string        `json:"title"`
	ImageURL  string        `json:"imageUrl"`
	Sizes     []ProductSize `json:"sizes"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Size returns the size variant s of the product, or nil.
func (p *Product) Size(s Size) *ProductSize {
	for i := range p.Sizes {
		if p.Sizes[i].Size == s {
			return &p.Sizes[i]
		}
	}
	return nil
}

// AvailableOnly returns a copy of the product holding only available sizes.
func (p Product) AvailableOnly() Product {
	sizes := make([]ProductSize, 0, len(p.Sizes))
	for _, s := range p.Sizes {
		if s.IsAvailable {
			sizes = append(sizes, s)
		}
	}
	p.Sizes = sizes
	return p
}

// ProductSize is the priced size variant of a product.
type ProductSize struct {
	ProductID   string          `json:"-"`
	Size        Size            `json:"size"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable bool            `json:"is_available"`
}

// ProductInput is the create/update request body for a product.
type ProductInput struct {
	Category string      `json:"productType"`
	Title    string      `json:"title"`
	ImageURL string      `json:"imageUrl"`
	Sizes    []SizeInput `json:"sizes"`
}

// SizeInput is one size entry in a product request. Price may be omitted on
// update for an existing size.
type SizeInput struct {
	Size        string           `json:"size"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	IsAvailable *bool            `json:"is_available,omitempty"`
}

// ImageUploadRequest asks for a presigned product image upload.
type ImageUploadRequest struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required,oneof=image/jpeg image/png image/webp"`
}

// ImageUpload is a presigned upload target.
type ImageUpload struct {
	UploadURL string    `json:"uploadUrl"`
	ImageURL  string    `json:"imageUrl"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NormaliseID trims, strips inner whitespace and lower-cases an identifier
// or enum value received from a client.
func NormaliseID(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}
