package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"eato/internal/model"
)

// ProductService defines operations for catalog management.
type ProductService interface {
	// Create validates and inserts a product with its sizes.
	Create(ctx context.Context, in *model.ProductInput) (*model.Product, error)

	// List returns every product with only its available sizes.
	List(ctx context.Context) ([]model.Product, error)

	// Get returns one product with all of its sizes.
	Get(ctx context.Context, id string) (*model.Product, error)

	// Update replaces a product's fields and its size set.
	Update(ctx context.Context, id string, in *model.ProductInput) (*model.Product, error)

	// Delete removes a product and every cart line referencing it.
	Delete(ctx context.Context, id string) error

	// Count returns the number of products in the catalog.
	Count(ctx context.Context) (int, error)

	// PresignImage returns an upload target for a product image.
	PresignImage(ctx context.Context, req *model.ImageUploadRequest) (*model.ImageUpload, error)
}

// CartService defines operations on a customer's cart.
type CartService interface {
	// Apply applies signed quantity deltas atomically.
	Apply(ctx context.Context, email string, req *model.CartUpdateRequest) (*model.CartUpdateResponse, error)

	// Get returns the customer's cart.
	Get(ctx context.Context, email string) (*model.Cart, error)
}

// OrderService defines operations for order management.
type OrderService interface {
	// Place validates, prices and persists a new order for the caller.
	Place(ctx context.Context, caller model.Identity, req *model.OrderRequest) (*model.OrderResponse, error)

	// UpdateStatus moves an order to a new status.
	UpdateStatus(ctx context.Context, req *model.StatusUpdateRequest) (*model.StatusUpdateResponse, error)

	// GetByID retrieves an order with its lines.
	GetByID(ctx context.Context, id string) (*model.Order, error)

	// ListByEmail returns a customer's orders, newest first.
	ListByEmail(ctx context.Context, email string) ([]model.Order, error)

	// ListByUser returns the orders of the account with userID.
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)
}

// UserService defines account operations.
type UserService interface {
	// Register creates an account and signs it in.
	Register(ctx context.Context, req *model.SignupRequest) (*model.AuthResponse, error)

	// Login authenticates by email or contact number.
	Login(ctx context.Context, req *model.SigninRequest) (*model.AuthResponse, error)

	// Update changes the caller's profile, email or password.
	Update(ctx context.Context, caller model.Identity, req *model.UpdateUserRequest) (*model.AuthResponse, error)

	// Delete removes the caller's account after password confirmation.
	Delete(ctx context.Context, caller model.Identity, req *model.DeleteUserRequest) error

	// List returns every account.
	List(ctx context.Context) ([]model.User, error)

	// Get returns one account.
	Get(ctx context.Context, id int64) (*model.User, error)
}

// OTPService defines one-time email verification.
type OTPService interface {
	// Generate creates and emails a fresh code.
	Generate(ctx context.Context, req *model.OTPRequest) error

	// Verify checks a submitted code.
	Verify(ctx context.Context, req *model.OTPVerifyRequest) error

	// ConsumeVerified reports whether email holds a verified code and
	// removes it if so.
	ConsumeVerified(ctx context.Context, email string) (bool, error)

	// SweepExpired removes every expired code.
	SweepExpired(ctx context.Context) (int64, error)
}

// Notifier sends account lifecycle emails.
type Notifier interface {
	SendOTP(ctx context.Context, email, code string, ttl time.Duration) error
	SendWelcome(ctx context.Context, u *model.User) error
	SendLoginAlert(ctx context.Context, u *model.User) error
	SendPasswordChanged(ctx context.Context, u *model.User) error
	SendEmailChanged(ctx context.Context, u *model.User, oldEmail string) error
	SendAccountDeleted(ctx context.Context, u *model.User) error
}

// TokenIssuer signs bearer tokens for accounts.
type TokenIssuer interface {
	Issue(u *model.User) (string, error)
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// randomToken returns n characters drawn uniformly from idAlphabet.
func randomToken(n int) (string, error) {
	return randomString(n, idAlphabet)
}

func randomString(n int, alphabet string) (string, error) {
	limit := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		v, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[v.Int64()]
	}
	return string(b), nil
}
