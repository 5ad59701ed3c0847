package catalog

import (
	"context"
	"fmt"

	"eato/internal/model"

	"github.com/rs/zerolog"
)

// Catalog is the product surface the seeder writes through.
type Catalog interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, in *model.ProductInput) (*model.Product, error)
}

// Seeder fills an empty catalog from a seed source.
type Seeder struct {
	loader  Loader
	catalog Catalog
	logger  zerolog.Logger
}

// NewSeeder creates a Seeder.
func NewSeeder(loader Loader, catalog Catalog, logger zerolog.Logger) *Seeder {
	return &Seeder{
		loader:  loader,
		catalog: catalog,
		logger:  logger.With().Str("component", "catalog-seeder").Logger(),
	}
}

// Seed loads path and creates every product, but only when the catalog holds
// no products yet. It returns the number of products created.
func (s *Seeder) Seed(ctx context.Context, path string) (int, error) {
	count, err := s.catalog.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		s.logger.Info().Int("existing", count).Msg("catalog already populated, skipping seed")
		return 0, nil
	}

	inputs, err := s.loader.Load(ctx, path)
	if err != nil {
		return 0, err
	}

	created := 0
	for i := range inputs {
		p, err := s.catalog.Create(ctx, &inputs[i])
		if err != nil {
			return created, fmt.Errorf("failed to seed product %q: %w", inputs[i].Title, err)
		}
		s.logger.Debug().Str("product_id", p.ID).Str("title", p.Title).Msg("product seeded")
		created++
	}

	s.logger.Info().Int("created", created).Str("source", path).Msg("catalog seeded")
	return created, nil
}
