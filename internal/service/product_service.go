package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eato/internal/cache"
	"eato/internal/model"
	"eato/internal/repository"
	"eato/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	productIDLength     = 10
	productIDMaxRetries = 10
	maxTitleLength      = 100
	maxImageURLLength   = 255
)

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	cartRepo    repository.CartRepository
	cache       cache.Cache
	ttls        cache.TTLs
	images      storage.ImageStore
	newID       func() (string, error)
	now         func() time.Time
	logger      zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(
	productRepo repository.ProductRepository,
	cartRepo repository.CartRepository,
	c cache.Cache,
	ttls cache.TTLs,
	images storage.ImageStore,
	logger zerolog.Logger,
) ProductService {
	return &productService{
		productRepo: productRepo,
		cartRepo:    cartRepo,
		cache:       c,
		ttls:        ttls,
		images:      images,
		newID:       func() (string, error) { return randomToken(productIDLength) },
		now:         time.Now,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// Create validates the input and inserts the product and its sizes in one
// transaction.
func (s *productService) Create(ctx context.Context, in *model.ProductInput) (*model.Product, error) {
	product, err := s.productFields(in)
	if err != nil {
		return nil, err
	}

	sizes, err := s.sizeSet(in.Sizes, nil)
	if err != nil {
		return nil, err
	}
	product.CreatedAt = s.now().UTC()

	tx, err := s.productRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.insertProduct(ctx, tx, product); err != nil {
		return nil, err
	}

	for i := range sizes {
		sizes[i].ProductID = product.ID
	}
	if err = s.productRepo.UpsertSizes(ctx, tx, sizes); err != nil {
		return nil, fmt.Errorf("failed to create product sizes: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("product_id", product.ID).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	product.Sizes = sizes

	cache.Invalidate(ctx, s.cache, s.logger, cache.KeyAllProducts)

	s.logger.Info().
		Str("product_id", product.ID).
		Str("category", string(product.Category)).
		Int("sizes", len(sizes)).
		Msg("product created")

	return product, nil
}

func (s *productService) insertProduct(ctx context.Context, tx pgx.Tx, product *model.Product) error {
	for attempt := 0; attempt <= productIDMaxRetries; attempt++ {
		id, err := s.newID()
		if err != nil {
			return fmt.Errorf("failed to generate product id: %w", err)
		}
		product.ID = id

		err = s.productRepo.Create(ctx, tx, product)
		if err == nil {
			return nil
		}
		if !errors.Is(err, model.ErrIDConflict) {
			return fmt.Errorf("failed to create product: %w", err)
		}
		s.logger.Warn().Str("product_id", id).Int("attempt", attempt).Msg("product id collision, regenerating")
	}

	s.logger.Error().Int("retries", productIDMaxRetries).Msg("product id retries exhausted")
	return model.ErrProductIDExhausted
}

// productFields normalises and validates the descriptive fields of in.
func (s *productService) productFields(in *model.ProductInput) (*model.Product, error) {
	if in == nil {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "Product details are required")
	}

	category := model.Category(model.NormaliseID(in.Category))
	if category == "" {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "productType is required")
	}
	if !category.Valid() {
		return nil, model.Errorf(model.ErrCodeValidationFailed, "Invalid productType %q. Allowed: burger, pizza, cake", in.Category)
	}

	title := strings.TrimSpace(in.Title)
	if err := validate.Var(title, fmt.Sprintf("required,max=%d", maxTitleLength)); err != nil {
		return nil, model.Errorf(model.ErrCodeValidationFailed, "title is required and must be at most %d characters", maxTitleLength)
	}

	imageURL := strings.TrimSpace(in.ImageURL)
	if err := validate.Var(imageURL, fmt.Sprintf("required,max=%d", maxImageURLLength)); err != nil {
		return nil, model.Errorf(model.ErrCodeValidationFailed, "imageUrl is required and must be at most %d characters", maxImageURLLength)
	}

	return &model.Product{Category: category, Title: title, ImageURL: imageURL}, nil
}

// sizeSet turns size inputs into rows. Entries with an unknown size or a
// non-positive price are dropped. On update, existing supplies the price and
// availability of sizes that omit them.
func (s *productService) sizeSet(in []model.SizeInput, existing *model.Product) ([]model.ProductSize, error) {
	var sizes []model.ProductSize
	seen := make(map[model.Size]bool, len(in))

	for _, entry := range in {
		size := model.Size(model.NormaliseID(entry.Size))
		if !size.Valid() {
			s.logger.Debug().Str("size", entry.Size).Msg("dropping unknown size")
			continue
		}

		var current *model.ProductSize
		if existing != nil {
			current = existing.Size(size)
		}

		row := model.ProductSize{Size: size, IsAvailable: true}
		switch {
		case entry.Price != nil:
			row.Price = entry.Price.Round(2)
		case current != nil:
			row.Price = current.Price
		case existing != nil:
			return nil, model.Errorf(model.ErrCodeValidationFailed, "price is required for new size %s", size)
		default:
			s.logger.Debug().Str("size", string(size)).Msg("dropping size without price")
			continue
		}
		if !row.Price.IsPositive() {
			s.logger.Debug().Str("size", string(size)).Str("price", row.Price.String()).Msg("dropping size with non-positive price")
			continue
		}

		switch {
		case entry.IsAvailable != nil:
			row.IsAvailable = *entry.IsAvailable
		case current != nil:
			row.IsAvailable = current.IsAvailable
		}

		if seen[size] {
			return nil, model.Errorf(model.ErrCodeDuplicateSize, "Duplicate size %s", size)
		}
		seen[size] = true
		sizes = append(sizes, row)
	}

	if len(sizes) == 0 {
		return nil, model.NewDomainError(model.ErrCodeValidationFailed, "At least one valid size with a positive price is required")
	}
	return sizes, nil
}

// List returns the catalog with unavailable sizes hidden.
func (s *productService) List(ctx context.Context) ([]model.Product, error) {
	return cache.Fetch(ctx, s.cache, s.logger, cache.KeyAllProducts, s.ttls.Products,
		func(ctx context.Context) ([]model.Product, error) {
			products, err := s.productRepo.List(ctx)
			if err != nil {
				s.logger.Error().Err(err).Msg("failed to list products")
				return nil, fmt.Errorf("failed to get products: %w", err)
			}

			visible := make([]model.Product, 0, len(products))
			for _, p := range products {
				visible = append(visible, p.AvailableOnly())
			}

			s.logger.Debug().Int("count", len(visible)).Msg("retrieved products")
			return visible, nil
		})
}

// Get retrieves a single product with all of its sizes.
func (s *productService) Get(ctx context.Context, id string) (*model.Product, error) {
	id = model.NormaliseID(id)
	if id == "" {
		s.logger.Warn().Msg("product ID is empty")
		return nil, model.ErrProductNotFound
	}

	return cache.Fetch(ctx, s.cache, s.logger, cache.ProductKey(id), s.ttls.Products,
		func(ctx context.Context) (*model.Product, error) {
			product, err := s.productRepo.GetByID(ctx, id)
			if err != nil {
				s.logger.Error().Err(err).Str("product_id", id).Msg("failed to get product by ID")
				return nil, fmt.Errorf("failed to get product: %w", err)
			}
			if product == nil {
				s.logger.Debug().Str("product_id", id).Msg("product not found")
				return nil, model.Errorf(model.ErrCodeProductNotFound, "Product %s not found", id)
			}
			return product, nil
		})
}

// Update replaces the product fields, upserts the listed sizes and removes
// every size not listed, under a row lock.
func (s *productService) Update(ctx context.Context, id string, in *model.ProductInput) (*model.Product, error) {
	id = model.NormaliseID(id)
	if id == "" {
		return nil, model.ErrProductNotFound
	}

	fields, err := s.productFields(in)
	if err != nil {
		return nil, err
	}

	tx, err := s.productRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	var current *model.Product
	current, err = s.productRepo.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if current == nil {
		err = model.Errorf(model.ErrCodeProductNotFound, "Product %s not found", id)
		return nil, err
	}

	var sizes []model.ProductSize
	if sizes, err = s.sizeSet(in.Sizes, current); err != nil {
		return nil, err
	}

	updated := &model.Product{
		ID:        id,
		Category:  fields.Category,
		Title:     fields.Title,
		ImageURL:  fields.ImageURL,
		CreatedAt: current.CreatedAt,
	}
	if err = s.productRepo.Update(ctx, tx, updated); err != nil {
		return nil, err
	}

	keep := make([]model.Size, len(sizes))
	for i := range sizes {
		sizes[i].ProductID = id
		keep[i] = sizes[i].Size
	}
	if err = s.productRepo.UpsertSizes(ctx, tx, sizes); err != nil {
		return nil, err
	}
	if err = s.productRepo.DeleteSizesExcept(ctx, tx, id, keep); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	updated.Sizes = sizes

	cache.Invalidate(ctx, s.cache, s.logger, cache.KeyAllProducts, cache.ProductKey(id))

	s.logger.Info().Str("product_id", id).Int("sizes", len(sizes)).Msg("product updated")
	return updated, nil
}

// Delete removes a product, its sizes and every cart line referencing it.
func (s *productService) Delete(ctx context.Context, id string) error {
	id = model.NormaliseID(id)
	if id == "" {
		return model.ErrProductNotFound
	}

	tx, err := s.productRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to delete product: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	var emails []string
	if emails, err = s.cartRepo.DeleteByProduct(ctx, tx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	var deleted bool
	if deleted, err = s.productRepo.Delete(ctx, tx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if !deleted {
		err = model.Errorf(model.ErrCodeProductNotFound, "Product %s not found", id)
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to commit transaction")
		return fmt.Errorf("failed to delete product: %w", err)
	}

	keys := []string{cache.KeyAllProducts, cache.ProductKey(id)}
	for _, email := range emails {
		keys = append(keys, cache.CartKey(email))
	}
	cache.Invalidate(ctx, s.cache, s.logger, keys...)

	s.logger.Info().Str("product_id", id).Int("carts_affected", len(emails)).Msg("product deleted")
	return nil
}

// Count returns the number of products in the catalog.
func (s *productService) Count(ctx context.Context) (int, error) {
	n, err := s.productRepo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// PresignImage validates the upload request and asks the image store for a
// target.
func (s *productService) PresignImage(ctx context.Context, req *model.ImageUploadRequest) (*model.ImageUpload, error) {
	if req == nil {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "filename and contentType are required")
	}
	req.Filename = strings.TrimSpace(req.Filename)
	req.ContentType = strings.ToLower(strings.TrimSpace(req.ContentType))
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	return s.images.PresignUpload(ctx, *req)
}
