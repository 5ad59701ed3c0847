package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"eato/internal/cache"
	"eato/internal/model"
	"eato/internal/repository"

	"github.com/rs/zerolog"
)

// cartService implements CartService.
type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	cache       cache.Cache
	ttls        cache.TTLs
	now         func() time.Time
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	c cache.Cache,
	ttls cache.TTLs,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		cache:       c,
		ttls:        ttls,
		now:         time.Now,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// cartDelta is a validated request item with its catalog snapshot.
type cartDelta struct {
	product *model.Product
	size    *model.ProductSize
	delta   int
}

// lockOrder returns the indexes of deltas sorted by product id then size.
func lockOrder(deltas []cartDelta) []int {
	order := make([]int, len(deltas))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		return cmp.Or(
			strings.Compare(deltas[a].product.ID, deltas[b].product.ID),
			strings.Compare(string(deltas[a].size.Size), string(deltas[b].size.Size)),
		)
	})
	return order
}

// Apply validates every delta before touching the cart, then applies them
// in one transaction. Stored prices are never re-read.
func (s *cartService) Apply(ctx context.Context, email string, req *model.CartUpdateRequest) (*model.CartUpdateResponse, error) {
	deltas, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	tx, err := s.cartRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	resp := &model.CartUpdateResponse{Items: make([]model.CartItemResult, 0, len(deltas))}
	results := make([]model.CartItemResult, len(deltas))
	now := s.now().UTC()

	// Lines are locked in (product, size) order so concurrent updates of the
	// same cart cannot deadlock.
	for _, i := range lockOrder(deltas) {
		d := deltas[i]
		result := model.CartItemResult{ProductID: d.product.ID, ProductSize: d.size.Size}

		var line *model.CartLine
		line, err = s.cartRepo.GetForUpdate(ctx, tx, email, d.product.ID, d.size.Size)
		if err != nil {
			return nil, fmt.Errorf("failed to update cart: %w", err)
		}

		switch {
		case line != nil:
			qty := max(0, line.Quantity+d.delta)
			if qty == 0 {
				if err = s.cartRepo.Delete(ctx, tx, line.ID); err != nil {
					return nil, fmt.Errorf("failed to update cart: %w", err)
				}
				result.Action = model.CartRemoved
			} else {
				if err = s.cartRepo.UpdateQuantity(ctx, tx, line.ID, qty); err != nil {
					return nil, fmt.Errorf("failed to update cart: %w", err)
				}
				result.Action = model.CartUpdated
				result.Quantity = qty
			}

		case d.delta >= 1:
			line = &model.CartLine{
				Email:           email,
				ProductID:       d.product.ID,
				ProductTitle:    d.product.Title,
				ProductImageURL: d.product.ImageURL,
				Size:            d.size.Size,
				Price:           d.size.Price,
				Quantity:        d.delta,
				AddedAt:         now,
			}
			if err = s.cartRepo.Insert(ctx, tx, line); err != nil {
				return nil, fmt.Errorf("failed to update cart: %w", err)
			}
			result.Action = model.CartAdded
			result.Quantity = line.Quantity

		default:
			result.Action = model.CartSkipped
		}

		results[i] = result
	}
	for _, result := range results {
		resp.Record(result)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}

	cache.Invalidate(ctx, s.cache, s.logger, cache.CartKey(email))

	s.logger.Info().
		Str("email", email).
		Int("added", resp.Summary.Added).
		Int("updated", resp.Summary.Updated).
		Int("removed", resp.Summary.Removed).
		Int("skipped", resp.Summary.Skipped).
		Msg("cart updated")

	return resp, nil
}

// validate checks the whole request against the catalog before any write.
func (s *cartService) validate(ctx context.Context, req *model.CartUpdateRequest) ([]cartDelta, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "Cart items are required")
	}

	type pair struct {
		id   string
		size model.Size
	}
	seen := make(map[pair]bool, len(req.Items))
	products := make(map[string]*model.Product)
	deltas := make([]cartDelta, 0, len(req.Items))

	for i, item := range req.Items {
		id := model.NormaliseID(item.ProductID)
		if id == "" {
			return nil, model.Errorf(model.ErrCodeMissingField, "Item %d: productId is required", i)
		}
		size := model.Size(model.NormaliseID(item.ProductSize))
		if !size.Valid() {
			return nil, model.Errorf(model.ErrCodeInvalidSize, "Invalid size %q for product %s", item.ProductSize, id)
		}
		if item.Quantity == 0 {
			return nil, model.Errorf(model.ErrCodeInvalidQuantity, "Quantity for product %s (%s) must be a non-zero integer", id, size)
		}

		key := pair{id: id, size: size}
		if seen[key] {
			return nil, model.Errorf(model.ErrCodeDuplicateItem, "Duplicate item for product %s size %s", id, size)
		}
		seen[key] = true

		product, ok := products[id]
		if !ok {
			var err error
			product, err = s.productRepo.GetByID(ctx, id)
			if err != nil {
				s.logger.Error().Err(err).Str("product_id", id).Msg("failed to load product")
				return nil, fmt.Errorf("failed to load product %s: %w", id, err)
			}
			if product == nil {
				return nil, model.Errorf(model.ErrCodeProductNotFound, "Product %s not found", id)
			}
			products[id] = product
		}

		ps := product.Size(size)
		if ps == nil {
			return nil, model.Errorf(model.ErrCodeSizeNotFound, "Size %s not found for product %s", size, id)
		}
		if !ps.IsAvailable {
			return nil, model.Errorf(model.ErrCodeSizeUnavailable, "Size %s is not available for product %s", size, id)
		}

		deltas = append(deltas, cartDelta{product: product, size: ps, delta: item.Quantity})
	}

	return deltas, nil
}

// Get returns the customer's cart through the cache.
func (s *cartService) Get(ctx context.Context, email string) (*model.Cart, error) {
	return cache.Fetch(ctx, s.cache, s.logger, cache.CartKey(email), s.ttls.Carts,
		func(ctx context.Context) (*model.Cart, error) {
			lines, err := s.cartRepo.ListByEmail(ctx, email)
			if err != nil {
				s.logger.Error().Err(err).Str("email", email).Msg("failed to list cart")
				return nil, fmt.Errorf("failed to get cart: %w", err)
			}
			return model.NewCart(lines), nil
		})
}
