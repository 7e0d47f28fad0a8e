package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
)

func TestAddItemMergesQuantity(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	addProduct(t, store, "A", "Alpha", "10", 5)
	svc := NewCartService(store)

	_, err := svc.AddItem(ctx, "u1", "A", 2)
	require.NoError(t, err)
	line, err := svc.AddItem(ctx, "u1", "A", 3)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)

	_, err = svc.AddItem(ctx, "u1", "A", 1)
	require.ErrorIs(t, err, ErrInsufficientStock)
	var stockErr *StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 5, stockErr.InCart)
	assert.Contains(t, err.Error(), "already in your cart")

	lines := cartOf(t, store, "u1")
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestAddItemConcurrentAddsMerge(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	addProduct(t, store, "A", "Alpha", "1", 6)
	svc := NewCartService(store)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddItem(ctx, "u1", "A", 1); err != nil {
				assert.ErrorIs(t, err, ErrInsufficientStock)
			}
		}()
	}
	wg.Wait()

	lines := cartOf(t, store, "u1")
	require.Len(t, lines, 1)
	assert.Equal(t, 6, lines[0].Quantity)
}

func TestAddItemValidation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	addProduct(t, store, "A", "Alpha", "10", 5)
	svc := NewCartService(store)

	_, err := svc.AddItem(ctx, "u1", "A", 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.AddItem(ctx, "u1", "missing", 1)
	require.ErrorIs(t, err, ErrProductNotFound)
	assert.Empty(t, cartOf(t, store, "u1"))
}

func TestUpdateItem(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	addProduct(t, store, "A", "Alpha", "10", 5)
	addProduct(t, store, "B", "Beta", "10", 5)
	putLine(t, store, "u1", "A", 1)
	svc := NewCartService(store)

	line, err := svc.UpdateItem(ctx, "u1", "A", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, line.Quantity)

	_, err = svc.UpdateItem(ctx, "u1", "A", 6)
	require.ErrorIs(t, err, ErrInsufficientStock)
	_, err = svc.UpdateItem(ctx, "u1", "B", 1)
	require.ErrorIs(t, err, ErrCartItemNotFound)
	_, err = svc.UpdateItem(ctx, "u1", "A", -1)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	assert.Equal(t, 4, cartOf(t, store, "u1")[0].Quantity)
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()
	store := exampleStore(t)
	svc := NewCartService(store)

	require.NoError(t, svc.RemoveItem(ctx, "u1", "A"))
	require.ErrorIs(t, svc.RemoveItem(ctx, "u1", "A"), ErrCartItemNotFound)
	assert.Len(t, cartOf(t, store, "u1"), 1)
}

func TestGetCartNamesRemovedProducts(t *testing.T) {
	ctx := context.Background()
	store := exampleStore(t)
	putLine(t, store, "u1", "gone", 1)
	svc := NewCartService(store)

	views, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "Alpha", views[0].ProductName)
	assert.Equal(t, "Beta", views[1].ProductName)
	assert.Equal(t, RemovedFromCatalogLabel, views[2].ProductName)

	empty, err := svc.GetCart(ctx, "u2")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
