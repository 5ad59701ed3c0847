// Package catalog loads product seed files and seeds an empty catalog.
package catalog

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"eato/internal/model"

	"github.com/rs/zerolog"
)

// Loader reads product definitions from a seed source.
type Loader interface {
	// Load reads a JSON-lines seed, gzipped or plain, one product per line.
	Load(ctx context.Context, path string) ([]model.ProductInput, error)
}

var gzipMagic = []byte{0x1f, 0x8b}

// decode reads JSON-lines products from r, transparently inflating gzip.
func decode(ctx context.Context, r io.Reader) ([]model.ProductInput, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if head, err := br.Peek(2); err == nil && bytes.Equal(head, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var products []model.ProductInput
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var p model.ProductInput
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("invalid product on line %d: %w", line, err)
		}
		products = append(products, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}

	return products, nil
}

// fileLoader reads seed files from the local file system.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a file-based catalog loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "catalog-loader").Logger(),
	}
}

func (l *fileLoader) Load(ctx context.Context, path string) ([]model.ProductInput, error) {
	l.logger.Info().Str("file", path).Msg("loading catalog seed")

	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open catalog seed")
		return nil, fmt.Errorf("failed to open catalog seed %s: %w", path, err)
	}
	defer file.Close()

	products, err := decode(ctx, file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("error reading catalog seed")
		return nil, fmt.Errorf("error reading catalog seed %s: %w", path, err)
	}

	l.logger.Info().Str("file", path).Int("products_loaded", len(products)).Msg("catalog seed loaded")
	return products, nil
}
