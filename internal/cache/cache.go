// Package cache provides the read-through cache used in front of the
// catalog, cart, order and account reads.
package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Cache stores JSON-serialisable values under string keys.
type Cache interface {
	// Get decodes the value stored under key into dest and reports whether
	// the key was present.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Invalidate removes keys. Missing keys are ignored.
	Invalidate(ctx context.Context, keys ...string) error
}

// Key names.
const (
	KeyAllProducts = "all_products"
	KeyAllUsers    = "all_users"
)

// ProductKey is the key of a single product's details.
func ProductKey(id string) string {
	return "product_details_" + id
}

// CartKey is the key of a customer's cart.
func CartKey(email string) string {
	return "user_cart_" + email
}

// OrdersKey is the key of a customer's order history.
func OrdersKey(email string) string {
	return "user_orders_" + email
}

// TTLs holds the lifetime of each cached resource family.
type TTLs struct {
	Products time.Duration
	Carts    time.Duration
	Orders   time.Duration
	Users    time.Duration
}

// DefaultTTLs returns the standard lifetimes.
func DefaultTTLs() TTLs {
	return TTLs{
		Products: 6 * time.Hour,
		Carts:    15 * time.Minute,
		Orders:   time.Hour,
		Users:    time.Hour,
	}
}

// Fetch returns the cached value for key or calls load and caches its
// result. Cache failures are logged and treated as a miss.
func Fetch[T any](
	ctx context.Context,
	c Cache,
	logger zerolog.Logger,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	var cached T
	found, err := c.Get(ctx, key, &cached)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	} else if found {
		logger.Debug().Str("key", key).Msg("cache hit")
		return cached, nil
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}

	return value, nil
}

// Invalidate removes keys and logs a failure instead of returning it.
func Invalidate(ctx context.Context, c Cache, logger zerolog.Logger, keys ...string) {
	if err := c.Invalidate(ctx, keys...); err != nil {
		logger.Error().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}
