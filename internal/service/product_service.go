package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// ProductService manages the catalog.
type ProductService struct {
	store repository.Store
}

func NewProductService(store repository.Store) *ProductService {
	return &ProductService{store: store}
}

// CreateProduct validates and stores a new product. An empty id is generated.
func (s *ProductService) CreateProduct(ctx context.Context, p entity.Product) (*entity.Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Products().Create(ctx, &p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: product %s already exists", ErrInvalidInput, p.ID)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	slog.Info("Service: Product created", "product_id", p.ID)
	return &p, nil
}

// GetProducts returns the whole catalog, ordered by name.
func (s *ProductService) GetProducts(ctx context.Context) ([]entity.Product, error) {
	products, err := s.store.Products().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	return findProduct(ctx, s.store.Products(), id)
}

// ListProducts returns one page of the catalog narrowed by filter.
func (s *ProductService) ListProducts(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, error) {
	if err := filter.Normalize(); err != nil {
		return nil, err
	}
	products, err := s.store.Products().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// SearchProducts matches keyword against product names, ignoring case.
func (s *ProductService) SearchProducts(ctx context.Context, keyword string) ([]entity.Product, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("%w: keyword is required", ErrInvalidInput)
	}
	products, err := s.store.Products().Search(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

// UpdateProduct applies patch to the product. Nothing is written when any
// patched field is invalid.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, patch entity.ProductPatch) (*entity.Product, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}

	var updated entity.Product
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		current, err := findProduct(ctx, tx.Products(), id)
		if err != nil {
			return err
		}
		if updated, err = patch.Apply(*current); err != nil {
			return err
		}
		if err := tx.Products().Update(ctx, &updated); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to update product: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, conflictAsRetryable(err)
	}
	slog.Info("Service: Product updated", "product_id", id)
	return &updated, nil
}

// DeleteProduct removes the product and every cart line referencing it,
// returning the removed product. Order items keep their snapshot.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) (*entity.Product, error) {
	var deleted *entity.Product
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		p, err := findProduct(ctx, tx.Products(), id)
		if err != nil {
			return err
		}
		if err := tx.Products().Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to delete product: %w", err)
		}
		if err := tx.Carts().DeleteByProduct(ctx, id); err != nil {
			return fmt.Errorf("failed to remove product from carts: %w", err)
		}
		deleted = p
		return nil
	})
	if err != nil {
		return nil, conflictAsRetryable(err)
	}
	slog.Info("Service: Product deleted", "product_id", id)
	return deleted, nil
}
