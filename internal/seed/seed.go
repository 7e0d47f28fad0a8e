// Package seed loads the initial product catalog.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Products []productEntry `yaml:"products"`
}

type productEntry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	ImageURL    string `yaml:"image_url"`
	Category    string `yaml:"category"`
	Stock       int    `yaml:"stock"`
}

// Parse decodes a catalog document. Unknown fields are rejected.
func Parse(data []byte) ([]entity.Product, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	products := make([]entity.Product, 0, len(file.Products))
	seen := make(map[string]bool, len(file.Products))
	for i, e := range file.Products {
		price, err := decimal.NewFromString(e.Price)
		if err != nil {
			return nil, fmt.Errorf("product %d (%s): invalid price %q: %w", i, e.Name, e.Price, err)
		}
		p := entity.Product{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Price:       price.Round(2),
			ImageURL:    e.ImageURL,
			Category:    e.Category,
			Stock:       e.Stock,
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("product %d (%s): %w", i, e.Name, err)
		}
		if p.ID != "" {
			if seen[p.ID] {
				return nil, fmt.Errorf("product %d: duplicate id %s", i, p.ID)
			}
			seen[p.ID] = true
		}
		products = append(products, p)
	}
	return products, nil
}

// Load reads the catalog at path, or the built-in catalog when path is empty.
func Load(path string) ([]entity.Product, error) {
	if path == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Products seeds the catalog from path unless the store already has products.
func Products(ctx context.Context, products repository.ProductRepository, path string) error {
	catalog, err := Load(path)
	if err != nil {
		return err
	}
	if err := products.Seed(ctx, catalog); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}
	slog.Info("Catalog seeded", "count", len(catalog))
	return nil
}
