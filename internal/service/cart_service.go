package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// RemovedFromCatalogLabel names cart lines whose product was deleted.
const RemovedFromCatalogLabel = "This product has been removed by admin"

// CartService orchestrates shopping cart logic.
type CartService struct {
	store repository.Store
}

func NewCartService(store repository.Store) *CartService {
	return &CartService{store: store}
}

// AddItem adds quantity of a product to the cart, merging with an existing
// line. The merged quantity may not exceed current stock.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*entity.CartLine, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	slog.Info("Service: Adding item to cart", "user_id", userID, "product_id", productID, "quantity", quantity)

	var line entity.CartLine
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		product, existing, err := lockLine(ctx, tx, userID, productID)
		if err != nil {
			return err
		}
		inCart := 0
		if existing != nil {
			inCart = existing.Quantity
		}

		if inCart+quantity > product.Stock {
			return &StockError{
				ProductID: product.ID,
				Name:      product.Name,
				Available: product.Stock,
				Requested: quantity,
				InCart:    inCart,
			}
		}

		line = entity.CartLine{UserID: userID, ProductID: productID, Quantity: inCart + quantity}
		if err := tx.Carts().Upsert(ctx, &line); err != nil {
			return fmt.Errorf("failed to save cart line: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, conflictAsRetryable(err)
	}
	return &line, nil
}

// UpdateItem sets the quantity of an existing cart line.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*entity.CartLine, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var line entity.CartLine
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		product, existing, err := lockLine(ctx, tx, userID, productID)
		if err != nil {
			return err
		}
		if quantity > product.Stock {
			return &StockError{ProductID: product.ID, Name: product.Name, Available: product.Stock, Requested: quantity}
		}
		if existing == nil {
			return ErrCartItemNotFound
		}

		line = entity.CartLine{UserID: userID, ProductID: productID, Quantity: quantity}
		if err := tx.Carts().Upsert(ctx, &line); err != nil {
			return fmt.Errorf("failed to save cart line: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, conflictAsRetryable(err)
	}
	return &line, nil
}

// RemoveItem deletes one line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) error {
	err := s.store.Carts().Delete(ctx, userID, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrCartItemNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	return nil
}

// GetCart returns the cart lines in the order they were added, named after
// their products.
func (s *CartService) GetCart(ctx context.Context, userID string) ([]entity.CartView, error) {
	lines, err := s.store.Carts().List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	if len(lines) == 0 {
		return []entity.CartView{}, nil
	}

	ids := make([]string, len(lines))
	for i, line := range lines {
		ids[i] = line.ProductID
	}
	products, err := s.store.Products().FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve product names: %w", err)
	}

	views := make([]entity.CartView, len(lines))
	for i, line := range lines {
		name := RemovedFromCatalogLabel
		if p, ok := products[line.ProductID]; ok {
			name = p.Name
		}
		views[i] = entity.CartView{CartLine: line, ProductName: name}
	}
	return views, nil
}

func findProduct(ctx context.Context, products repository.ProductRepository, id string) (*entity.Product, error) {
	p, err := products.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// lockLine locks the user's cart rows and then the product row, the same
// order checkout takes them, and returns the product and the user's current
// line for it (nil when absent). The line is read after the product lock is
// held, so concurrent adds of one product always see each other's result.
func lockLine(ctx context.Context, tx repository.Repositories, userID, productID string) (*entity.Product, *entity.CartLine, error) {
	if _, err := tx.Carts().LockByUser(ctx, userID); err != nil {
		return nil, nil, fmt.Errorf("failed to lock cart: %w", err)
	}
	locked, err := tx.Products().LockByIDs(ctx, []string{productID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock product: %w", err)
	}
	product, ok := locked[productID]
	if !ok {
		return nil, nil, ErrProductNotFound
	}

	line, err := tx.Carts().Get(ctx, userID, productID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &product, nil, nil
	case err != nil:
		return nil, nil, fmt.Errorf("failed to load cart line: %w", err)
	}
	return &product, line, nil
}

func conflictAsRetryable(err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("%w: %w", ErrRetryable, err)
	}
	return err
}
