package repository

import (
	"context"
	"time"

	"eato/internal/model"

	"github.com/jackc/pgx/v5"
)

// ProductRepository defines the interface for catalog data access.
type ProductRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// List returns every product with all of its sizes, newest first.
	List(ctx context.Context) ([]model.Product, error)

	// GetByID returns a product with all of its sizes.
	// Returns nil if the product is not found.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// Count returns the number of products in the catalog.
	Count(ctx context.Context) (int, error)

	// Create inserts a product row. Returns model.ErrIDConflict when the
	// identifier is already taken.
	Create(ctx context.Context, tx pgx.Tx, product *model.Product) error

	// UpsertSizes inserts or replaces size rows for a product.
	UpsertSizes(ctx context.Context, tx pgx.Tx, sizes []model.ProductSize) error

	// GetForUpdate locks a product row and returns it with its sizes.
	// Returns nil if the product is not found.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*model.Product, error)

	// Update replaces the descriptive fields of a product.
	Update(ctx context.Context, tx pgx.Tx, product *model.Product) error

	// DeleteSizesExcept removes every size of a product not in keep.
	DeleteSizesExcept(ctx context.Context, tx pgx.Tx, productID string, keep []model.Size) error

	// Delete removes a product; sizes cascade. Reports whether a row was removed.
	Delete(ctx context.Context, tx pgx.Tx, id string) (bool, error)
}

// CartRepository defines the interface for cart data access.
type CartRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// ListByEmail returns every cart line of a customer, oldest first.
	ListByEmail(ctx context.Context, email string) ([]model.CartLine, error)

	// GetForUpdate locks and returns one cart line. Returns nil if absent.
	GetForUpdate(ctx context.Context, tx pgx.Tx, email, productID string, size model.Size) (*model.CartLine, error)

	// Insert adds a cart line. A concurrent insert of the same
	// (email, product, size) merges quantities and keeps the stored price.
	Insert(ctx context.Context, tx pgx.Tx, line *model.CartLine) error

	// UpdateQuantity sets the quantity of a cart line.
	UpdateQuantity(ctx context.Context, tx pgx.Tx, id int64, quantity int) error

	// Delete removes a cart line.
	Delete(ctx context.Context, tx pgx.Tx, id int64) error

	// DeleteByProduct removes every line referencing a product and returns
	// the distinct emails whose carts changed.
	DeleteByProduct(ctx context.Context, tx pgx.Tx, productID string) ([]string, error)
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	// Returns model.ErrIDConflict when the order id is already taken.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order lines within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderLine) error

	// GetByID retrieves an order with its lines.
	// Returns nil if the order is not found.
	GetByID(ctx context.Context, id string) (*model.Order, error)

	// GetForUpdate locks an order header row. Returns nil if not found.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*model.Order, error)

	// UpdateStatus sets the status of an order.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status model.OrderStatus, at time.Time) error

	// ListByEmail returns a customer's orders with lines, newest first.
	ListByEmail(ctx context.Context, email string) ([]model.Order, error)
}

// UserRepository defines the interface for account data access.
type UserRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// Create inserts an account. Returns model.ErrEmailExists or
	// model.ErrContactExists on a uniqueness violation.
	Create(ctx context.Context, user *model.User) error

	// GetByID returns an account or nil.
	GetByID(ctx context.Context, id int64) (*model.User, error)

	// GetByEmail returns an account or nil.
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// GetByContactNo returns an account or nil.
	GetByContactNo(ctx context.Context, contactNo string) (*model.User, error)

	// GetForUpdate locks an account row. Returns nil if not found.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.User, error)

	// ExistsByEmail reports whether another account (not excludeID) uses email.
	ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error)

	// ExistsByContactNo reports whether another account (not excludeID) uses contactNo.
	ExistsByContactNo(ctx context.Context, contactNo string, excludeID int64) (bool, error)

	// Update writes every mutable field of an account.
	Update(ctx context.Context, tx pgx.Tx, user *model.User) error

	// Delete removes an account. Reports whether a row was removed.
	Delete(ctx context.Context, id int64) (bool, error)

	// List returns all accounts ordered by id.
	List(ctx context.Context) ([]model.User, error)
}

// OTPRepository defines the interface for one-time code storage.
type OTPRepository interface {
	// Upsert stores a fresh code for an email, replacing any previous one.
	Upsert(ctx context.Context, otp *model.OTP) error

	// Get returns the stored code for an email or nil.
	Get(ctx context.Context, email string) (*model.OTP, error)

	// ClaimAttempt atomically spends one attempt on an unexpired code and
	// returns the updated row, or nil when no such code has attempts left.
	ClaimAttempt(ctx context.Context, email string, maxAttempts int, now time.Time) (*model.OTP, error)

	// MarkVerified flags the code as successfully verified.
	MarkVerified(ctx context.Context, email string) error

	// Delete removes the code for an email.
	Delete(ctx context.Context, email string) error

	// DeleteExpired removes every code that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
